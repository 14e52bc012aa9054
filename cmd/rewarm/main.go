package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/futaoo/INTERVAL/internal/cache"
	"github.com/futaoo/INTERVAL/internal/client"
	"github.com/joho/godotenv"
)

var warm = flag.Bool("warm", false, "Request every list from the API afterwards so the cache is filled again")

// Drops the cached reference lists, e.g. after cmd/seed changed species or trees.
func main() {
	_ = godotenv.Load(".env.local")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	c := cache.OpenFromEnv(ctx)
	defer c.Close()
	if !c.Enabled() {
		log.Fatal("REDIS_HOST not set or redis unreachable; nothing to rewarm")
	}

	n, err := c.Invalidate(ctx, cache.Keys...)
	if err != nil {
		log.Fatalf("Error deleting cache: %v", err)
	}
	fmt.Printf("Deleted %d cached lists\n", n)

	if !*warm {
		return
	}

	cfg := client.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	api := client.New(cfg)

	species, err := api.Species(ctx)
	if err != nil {
		log.Fatalf("warm species: %v", err)
	}
	conditions, err := api.Conditions(ctx)
	if err != nil {
		log.Fatalf("warm conditions: %v", err)
	}
	combos, err := api.StyleCombinations(ctx)
	if err != nil {
		log.Fatalf("warm styles: %v", err)
	}
	labels, err := api.ElectoralLabels(ctx)
	if err != nil {
		log.Fatalf("warm labels: %v", err)
	}
	fmt.Printf("Warmed: species=%d conditions=%d styles=%d labels=%d\n",
		len(species), len(conditions), len(combos), len(labels))
}
