package cmd

import (
	"fmt"

	"github.com/ragstack/ragd/db"
	"github.com/ragstack/ragd/internal/config"
)

// runMigrate applies pending database migrations and exits.
// Useful for deployments that migrate separately from serving.
func runMigrate() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := db.Migrate(cfg.DatabaseURL()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	fmt.Println("migrations applied")
	return nil
}
