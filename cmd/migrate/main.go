package main

import (
	"github.com/sirupsen/logrus" // Logging

	"event_wallet/internal/config" // Configuration
	"event_wallet/internal/db"     // Database connection and schema
)

// Main entry point for migration
func main() {
	cfg := config.LoadConfig()
	gdb, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		logrus.Fatalf("migration failed: %v", err)
	}
	logrus.WithField("driver", cfg.DBDriver).Info("Migration completed")
}
