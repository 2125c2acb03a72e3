package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/desertthunder/dash/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file from the embedded template when missing, then opens the
// configured database, which runs pending migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	if _, err := os.Stat(r.configPath); errors.Is(err, fs.ErrNotExist) {
		r.logger.Info("config file not found, creating from template", "path", r.configPath)
		if err := shared.CreateConfigFile(r.configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		r.writePlain("✓ Created %s\n", r.configPath)
	}

	driver := shared.Driver(r.config.Database.Driver)
	r.logger.Info("initializing database", "driver", driver)

	s, err := r.openStore()
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}

	if cmd.Bool("rollback") {
		if err := shared.RollbackMigration(s.db, driver); err != nil {
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
		r.logger.Warn("rolled back most recent migration")
	}

	version, err := shared.CurrentVersion(s.db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", driver)
	r.writePlain("✓ Database ready (%s, schema version %d)\n", driver, version)
	r.writePlainln("Next steps:")
	r.writePlain("1. dash keyring set spotify_client_secret   (and news_api_key, quote_api_key, session_secret)\n")
	r.writePlain("2. dash serve --open\n")
	return nil
}
