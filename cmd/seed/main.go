package main

import (
	"log"

	"github.com/oggyb/campus-connect/internal/config"
	"github.com/oggyb/campus-connect/internal/db"
)

func main() {
	// Load configuration
	cfg := config.New()

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Fatalf("failed to init db: %v", err)
	}

	if err := db.SeedTestData(database); err != nil {
		log.Fatalf("failed to seed: %v", err)
	}

	log.Printf("Seeding completed. Every demo account uses password %q.", db.SeedPassword)
}
