package alerts

import (
	"fmt"
	"os"
	"path/filepath"

	"shield-go/internal/config"
	"shield-go/internal/shield"
)

// NewRepositoryFromConfig creates an AlertRepository based on the alerts config type.
func NewRepositoryFromConfig(cfg config.AlertsConfig, hostID string) (shield.AlertRepository, error) {
	switch cfg.Type {
	case "memory", "":
		return NewMemoryRepository(), nil
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite alerts")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data_dir: %w", err)
		}
		repo, err := NewSQLiteRepository(filepath.Join(cfg.DataDir, hostID+"-alerts.db"))
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown alerts type: %s", cfg.Type)
	}
}
