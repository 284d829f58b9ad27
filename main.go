package main

import (
	"context"
	"log"
	"os"
	"time"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// 1) DB
	db, err := OpenDB(cfg.DBDriver, cfg.DBDSN, cfg.DBLogLevel)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	// 2) Seed (if empty)
	if isEmpty, err := IsBankEmpty(db); err != nil {
		log.Fatalf("count subjects: %v", err)
	} else if isEmpty {
		if _, err := os.Stat(cfg.SeedPath); err == nil {
			if err := SeedFromJSON(db, cfg.SeedPath); err != nil {
				log.Fatalf("seed: %v", err)
			}
			log.Printf("Seeded question bank from %s", cfg.SeedPath)
		} else {
			log.Printf("No seed file at %s; running with empty bank", cfg.SeedPath)
		}
	}

	// 3) Throttle
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	store, err := newThrottleStore(ctx, cfg, db)
	cancel()
	if err != nil {
		log.Fatalf("throttle store: %v", err)
	}
	th := NewThrottle(store, cfg.Rates())

	// 4) Router
	r := NewRouter(cfg, db, th)

	log.Printf("Listening on %s (db=%s, throttle=%s, generate_test=%s, submit_answers=%s)",
		cfg.HTTPAddr, cfg.DBDriver, cfg.ThrottleBackend, cfg.GenerateTestRate, cfg.SubmitAnswersRate)
	if err := r.Run(cfg.HTTPAddr); err != nil {
		log.Fatalf("run: %v", err)
	}
}
