package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/vendorbot/internal/config"
	"github.com/tbourn/vendorbot/internal/repo"
	"github.com/tbourn/vendorbot/internal/services"
	"github.com/tbourn/vendorbot/internal/sysutil"
)

// openStore loads config, sets up logging and opens the migrated database.
func openStore() (config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, fmt.Errorf("config: %w", err)
	}
	sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty, nil)

	db, err := repo.Open(cfg.DatabaseURL, cfg.DBPath)
	if err != nil {
		return cfg, nil, fmt.Errorf("open database: %w", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		closeDB(db)
		return cfg, nil, fmt.Errorf("migrate: %w", err)
	}
	return cfg, db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := openStore()
			if err != nil {
				return err
			}
			defer closeDB(db)
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

func newSeedMenuCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "seed-menu",
		Short: "Upsert menu items from a YAML file",
		Long: `Reads a YAML file of the form

  items:
    - name: Jollof Rice
      price: 500
    - name: Zobo
      price: 200
      available: false

and upserts every item. Safe to run repeatedly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := openStore()
			if err != nil {
				return err
			}
			defer closeDB(db)
			if path == "" {
				path = cfg.MenuSeedPath
			}
			return runSeedMenu(cmd.Context(), cmd.OutOrStdout(), db, path)
		},
	}
	cmd.Flags().StringVarP(&path, "file", "f", "", "menu YAML file (default $MENU_SEED_PATH)")
	return cmd
}

func runSeedMenu(ctx context.Context, out io.Writer, db *gorm.DB, path string) error {
	if path == "" {
		return fmt.Errorf("seed-menu: no file given and MENU_SEED_PATH is empty")
	}
	items, err := services.LoadSeedFile(path)
	if err != nil {
		return fmt.Errorf("seed-menu: %w", err)
	}
	n, err := services.NewCatalogService(db).Seed(ctx, items)
	if err != nil {
		return fmt.Errorf("seed-menu: %w", err)
	}
	fmt.Fprintf(out, "seeded %d menu items from %s\n", n, path)
	return nil
}
