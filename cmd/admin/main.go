// Command admin manages ForgeDB administrators and the database schema.
package main

import (
	"fmt"
	"os"

	"forgedb/internal/config"
	"forgedb/internal/database"
	"forgedb/internal/middleware"

	"gorm.io/gorm"
)

func main() {
	root := newRootCmd(openDatabase)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openDatabase loads configuration and connects without migrating.
func openDatabase() (*config.Config, *gorm.DB, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	middleware.InitLogger(cfg.Env, os.Stderr)

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return cfg, db, nil
}
