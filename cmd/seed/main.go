// Command main fills a ForgeDB store with demo users, mods, reviews and reactions.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"forgedb/internal/bootstrap"
	"forgedb/internal/config"
	"forgedb/internal/middleware"
	"forgedb/internal/seed"

	"github.com/spf13/afero"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of demo users to create")
	numMods := flag.Int("mods", 8, "Number of generated mods")
	reviewsPerMod := flag.Int("reviews", 6, "Reviews per mod")
	maxDays := flag.Int("max-days", 90, "Spread review dates over this many past days")
	randSeed := flag.Int64("seed", time.Now().UnixNano(), "Random seed for reproducible data")
	fixtures := flag.String("fixtures", "", "YAML file with mods to insert before the generated ones")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	middleware.InitLogger(cfg.Env, os.Stdout)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	defer func() { _ = rt.Close() }()

	opts := seed.Options{
		Users:         *numUsers,
		Mods:          *numMods,
		ReviewsPerMod: *reviewsPerMod,
		MaxDays:       *maxDays,
		Seed:          *randSeed,
	}
	if *fixtures != "" {
		opts.Fixtures, err = seed.LoadModFixtures(afero.NewOsFs(), *fixtures)
		if err != nil {
			log.Fatalf("Failed to load fixtures: %v", err)
		}
	}

	res, err := seed.NewSeeder(rt.Users, rt.Content, bootstrap.HashPassword).Demo(ctx, opts)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	middleware.Logger.Info("Seeding complete",
		"content_backend", cfg.ContentBackend,
		"users", res.Users,
		"mods", res.Mods,
		"reviews", res.Reviews,
		"reactions", res.Reactions,
		"seed", *randSeed,
	)
	log.Printf("All demo users have the password: %s", seed.DemoPassword)
}
