package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/futaoo/INTERVAL/internal/cache"
	"github.com/futaoo/INTERVAL/internal/db"
	"github.com/futaoo/INTERVAL/internal/metrics"
	"github.com/futaoo/INTERVAL/internal/middleware"
	"github.com/futaoo/INTERVAL/internal/trees"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprint(w, "Tree Data API is running")
}

func main() {
	_ = godotenv.Load(".env.local")
	db.Connect()

	port := os.Getenv("PORT")
	if port == "" {
		port = "3001"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	lists := cache.OpenFromEnv(ctx)
	cancel()
	defer lists.Close()

	trees.Init(lists)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORSMiddleware(middleware.AllowedOrigins()))
	r.Use(middleware.Instrument)
	r.Use(middleware.RateLimit(middleware.RateLimitFromEnv()))

	r.Get("/", RootHandler)
	r.Handle("/metrics", metrics.Handler())
	r.Mount("/api", trees.SetupRoutes())

	log.Printf("Server listening on port :%s...", port)
	if err := http.ListenAndServe("0.0.0.0:"+port, r); err != nil {
		log.Fatal(err)
	}
}
