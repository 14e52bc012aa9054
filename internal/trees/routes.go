package trees

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func SetupRoutes() http.Handler {
	r := chi.NewRouter()

	r.Get("/electoral_label", ElectoralLabels)
	r.Get("/electoral", ElectoralStatistics)
	r.Get("/electoral/", ElectoralStatistics)
	r.Get("/electoral/{id}", ElectoralStatistics)

	r.Post("/trees", FilterTreeStatistics)
	r.Get("/trees/{id}", GetTree)

	r.Get("/species", ListSpecies)
	r.Get("/conditions", ListConditions)
	r.Get("/styles", ListStyles)

	r.Route("/trees/{treeId}/records", func(r chi.Router) {
		r.Post("/", CreateRecord)
		r.Put("/{recordId}", UpdateRecord)
		r.Delete("/{recordId}", DeleteRecord)
	})

	return r
}
