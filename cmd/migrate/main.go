package main

import (
	"log"

	"planhub-be/internal/config"
	"planhub-be/pkg/database"
)

func main() {
	cfg := config.Load()
	if cfg.Database.Connection == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, false)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Starting schema migration...")
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Error: %v", err)
	}
	log.Println("Database migration completed")
}
