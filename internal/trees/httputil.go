package trees

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/futaoo/INTERVAL/internal/utils"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeNotFound answers 404 with the {message} body the map client expects.
func writeNotFound(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusNotFound, map[string]string{"message": message})
}

// writeInternal logs err under the handler's tag and hides it from the caller.
func writeInternal(w http.ResponseWriter, r *http.Request, tag string, err error) {
	reqID, _ := utils.GetRequestIDFromContext(r.Context())
	log.Printf("[%s] request_id=%s err=%v", tag, reqID, err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
}

func addServerTiming(w http.ResponseWriter, kv ...[2]string) {
	// kv: [][2]string{{"summary","12.3"}, {"activities","4.0"}}
	if len(kv) == 0 {
		return
	}
	parts := make([]string, 0, len(kv))
	for _, p := range kv {
		parts = append(parts, fmt.Sprintf("%s;dur=%s", p[0], p[1]))
	}
	w.Header().Add("Server-Timing", strings.Join(parts, ", "))
}
