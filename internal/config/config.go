package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for shield.
type Config struct {
	HostID      string           `toml:"host_id"`
	BaseDir     string           `toml:"base_dir"`
	LogDir      string           `toml:"log_dir"`
	TargetsFile string           `toml:"targets_file,omitempty"` // YAML target list imported by `shield target import`
	Vaults      []VaultConfig    `toml:"vaults"`
	Encryption  EncryptionConfig `toml:"encryption"`
	Database    DatabaseConfig   `toml:"database"`
	Alerts      AlertsConfig     `toml:"alerts"`
	Matching    MatchingConfig   `toml:"matching"`
	Scan        ScanConfig       `toml:"scan"`
	Crawler     CrawlerConfig    `toml:"crawler"`
	Server      ServerConfig     `toml:"server"`
	Watch       WatchConfig      `toml:"watch"`
	Filesystem  FilesystemConfig `toml:"filesystem"`
}

// EncryptionConfig holds paths to the age key pair used for thumbnail encryption.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (default), "test", or "none" to store no thumbnails
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// FilesystemConfig holds filesystem-related settings.
type FilesystemConfig struct {
	Ignore []string `toml:"ignore"`
}

// VaultConfig represents configuration for a fingerprint vault backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket       string `toml:"s3_bucket,omitempty"`
	S3Prefix       string `toml:"s3_prefix,omitempty"`
	S3Region       string `toml:"s3_region,omitempty"`
	S3Endpoint     string `toml:"s3_endpoint,omitempty"`       // custom endpoint for S3-compatible stores
	S3UsePathStyle bool   `toml:"s3_use_path_style,omitempty"` // required by most S3-compatible stores

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// DatabaseConfig represents configuration for the targets and history database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// AlertsConfig represents configuration for the alert log.
type AlertsConfig struct {
	Type     string `toml:"type"`               // "sqlite" or "memory"
	DataDir  string `toml:"data_dir,omitempty"` // only used for type=sqlite
	Capacity int    `toml:"capacity"`           // alerts kept before the oldest are evicted; defaults to 100
}

// MatchingConfig holds the Hamming distance thresholds per algorithm.
// Zero values fall back to the built-in defaults.
type MatchingConfig struct {
	AHashThreshold int `toml:"ahash_threshold"`
	DHashThreshold int `toml:"dhash_threshold"`
	PHashThreshold int `toml:"phash_threshold"`
}

// ScanConfig holds settings for monitoring sessions and registration.
type ScanConfig struct {
	HistoryLimit int `toml:"history_limit"` // finished sessions kept; defaults to 50
	Workers      int `toml:"workers"`       // parallel hashing workers for bulk registration
}

// CrawlerConfig represents configuration for the target crawler.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type CrawlerConfig struct {
	Type            string `toml:"type"` // "http" or "none"
	UserAgent       string `toml:"user_agent,omitempty"`
	TimeoutSeconds  int    `toml:"timeout_seconds,omitempty"`
	MaxImages       int    `toml:"max_images,omitempty"`        // images fetched per page
	MaxImageBytes   int64  `toml:"max_image_bytes,omitempty"`   // larger images are skipped
	CacheSize       int    `toml:"cache_size,omitempty"`        // remote image hashes cached
	CacheTTLSeconds int    `toml:"cache_ttl_seconds,omitempty"` // lifetime of a cached hash
}

// ServerConfig holds settings for `shield serve`.
type ServerConfig struct {
	Listen string `toml:"listen"`
}

// WatchConfig holds settings for `shield watch`.
type WatchConfig struct {
	InboxDir       string `toml:"inbox_dir,omitempty"`
	DebounceMillis int    `toml:"debounce_millis,omitempty"`
}

// NewConfig creates a new Config with the provided values and local defaults:
// a filesystem vault, SQLite stores under baseDir and the HTTP crawler.
func NewConfig(hostID, baseDir string) *Config {
	dataDir := filepath.Join(baseDir, "db")
	return &Config{
		HostID:  hostID,
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Vaults: []VaultConfig{
			{Type: "filesystem", Name: "local", FSVaultRoot: filepath.Join(baseDir, "vault")},
		},
		Encryption: EncryptionConfig{
			Type:           "age",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "shield.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "shield.key"),
		},
		Database: DatabaseConfig{Type: "sqlite", DataDir: dataDir},
		Alerts:   AlertsConfig{Type: "sqlite", DataDir: dataDir, Capacity: 100},
		Matching: MatchingConfig{AHashThreshold: 5, DHashThreshold: 10, PHashThreshold: 10},
		Scan:     ScanConfig{HistoryLimit: 50, Workers: 4},
		Crawler:  CrawlerConfig{Type: "http", TimeoutSeconds: 20, MaxImages: 25},
		Server:   ServerConfig{Listen: "127.0.0.1:8750"},
		Watch:    WatchConfig{InboxDir: filepath.Join(baseDir, "inbox"), DebounceMillis: 500},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
