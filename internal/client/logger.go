package client

import (
	"log"
	"time"
)

func logRequest(method, path string) {
	log.Printf("[client] %s %s", method, path)
}

func logResponse(method, path string, status int, d time.Duration) {
	log.Printf("[client] %s %s status=%d duration=%dms", method, path, status, d.Milliseconds())
}

func logError(operation string, err error) {
	log.Printf("[client] %s error: %v", operation, err)
}
