package database

import (
	"os"
	"path/filepath"
	"testing"

	"shield-go/internal/config"
)

func TestNewDatabaseFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.DatabaseConfig
		wantErr bool
	}{
		{"memory database", config.DatabaseConfig{Type: "memory"}, false},
		{"sqlite database", config.DatabaseConfig{Type: "sqlite", DataDir: filepath.Join(t.TempDir(), "db")}, false},
		{"sqlite database without data_dir", config.DatabaseConfig{Type: "sqlite"}, true},
		{"unknown database type", config.DatabaseConfig{Type: "postgres"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewDatabaseFromConfig(tt.cfg, "test-host-123")
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewDatabaseFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if got != nil {
					t.Error("NewDatabaseFromConfig() should return nil on error")
				}
				return
			}
			defer got.Close()

			if _, err := got.ListTargets(); err != nil {
				t.Errorf("ListTargets() on fresh database error = %v", err)
			}
		})
	}
}

func TestNewDatabaseFromConfig_SQLiteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	db, err := NewDatabaseFromConfig(config.DatabaseConfig{Type: "sqlite", DataDir: dir}, "host-a")
	if err != nil {
		t.Fatalf("NewDatabaseFromConfig() error = %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Join(dir, "host-a.db")); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}
