package database

import (
	"fmt"
	"os"
	"path/filepath"

	"shield-go/internal/config"
	"shield-go/internal/shield"
)

// NewDatabaseFromConfig creates a Database implementation based on the database config type.
func NewDatabaseFromConfig(cfg config.DatabaseConfig, hostID string) (shield.Database, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data_dir: %w", err)
		}
		return openSQLite(filepath.Join(cfg.DataDir, hostID+".db"))
	case "memory":
		return openSQLite(":memory:")
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}

// openSQLite keeps a failed open from leaking a typed nil into the interface.
func openSQLite(path string) (shield.Database, error) {
	db, err := NewSQLiteDatabase(path)
	if err != nil {
		return nil, err
	}
	return db, nil
}
