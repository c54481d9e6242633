package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - SHIELD_CONFIG_PATH: config file location (default: ~/.config/shield.toml)
//   - SHIELD_HOME: base directory for shield data (default: ~/.local/share/shield)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path":  configPath,
		"base_dir":     baseDir,
		"log_dir":      filepath.Join(baseDir, "log"),
		"targets_file": filepath.Join(filepath.Dir(configPath), "shield-targets.yaml"),
	}, nil
}

// getConfigPath returns the config file path, checking SHIELD_CONFIG_PATH env var first,
// then falling back to the default ~/.config/shield.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("SHIELD_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "shield.toml"), nil
}

// getBaseDir returns the base directory for shield data, checking SHIELD_HOME env var first,
// then falling back to the XDG default ~/.local/share/shield.
func getBaseDir() (string, error) {
	if path := os.Getenv("SHIELD_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "shield"), nil
}
