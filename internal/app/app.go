package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"shield-go/internal/alerts"
	"shield-go/internal/api"
	"shield-go/internal/config"
	"shield-go/internal/crawler"
	"shield-go/internal/database"
	"shield-go/internal/encryption"
	"shield-go/internal/fs"
	"shield-go/internal/imagesource"
	"shield-go/internal/model"
	"shield-go/internal/phash"
	"shield-go/internal/shield"
	"shield-go/internal/vault"
	"shield-go/internal/watch"
)

// Options control how a ShieldApp is created for one CLI command.
type Options struct {
	Operation string     // CLI command name, e.g. "RegisterAsset"
	Args      string     // command arguments, logged with the operation
	Console   slog.Level // minimum level echoed to stderr
}

// ShieldApp is the application layer between the CLI and the engine.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string paths, and releases resources on Close.
type ShieldApp struct {
	cfg       *config.Config
	db        shield.Database
	alertRepo shield.AlertRepository
	fsmgr     shield.FilesystemManager
	encryptor shield.Encryptor
	vault     *shield.FingerprintVault
	alerts    *shield.AlertStore
	service   *shield.Service
	scanner   *shield.Scanner
	logger    shield.Logger
	clock     shield.Clock
	op        *Operation
	logFile   *os.File
}

// NewShieldApp creates a fully wired ShieldApp from the given config.
// The caller must call Close when done.
func NewShieldApp(cfg *config.Config, opts Options) (_ *ShieldApp, err error) {
	a := &ShieldApp{cfg: cfg, clock: shield.RealClock{}}
	defer func() {
		if err != nil {
			a.closeResources()
		}
	}()

	a.op = NewOperation(opts.Operation, opts.Args, a.clock.Now())
	logger, logFile, err := newLogger(cfg.LogDir, a.op.ID, opts.Console)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	a.logFile = logFile
	a.logger = &slogAdapter{l: logger.With("host", cfg.HostID)}

	a.fsmgr = fs.NewOSFilesystemManager(cfg.Filesystem.Ignore)

	if len(cfg.Vaults) == 0 {
		return nil, fmt.Errorf("no vaults configured")
	}
	backend, err := vault.NewVaultFromConfig(cfg.Vaults[0])
	if err != nil {
		return nil, fmt.Errorf("creating vault: %w", err)
	}
	if err := backend.ValidateSetup(); err != nil {
		return nil, fmt.Errorf("validating vault: %w", err)
	}
	a.vault = shield.NewFingerprintVault(backend)

	a.db, err = database.NewDatabaseFromConfig(cfg.Database, cfg.HostID)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	a.alertRepo, err = alerts.NewRepositoryFromConfig(cfg.Alerts, cfg.HostID)
	if err != nil {
		return nil, fmt.Errorf("creating alert repository: %w", err)
	}
	idgen := shield.UUIDGenerator{}
	a.alerts = shield.NewAlertStore(a.alertRepo, cfg.Alerts.Capacity, a.clock, idgen)

	a.encryptor, err = encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	thresholds := phash.Thresholds{
		AHash: cfg.Matching.AHashThreshold,
		DHash: cfg.Matching.DHashThreshold,
		PHash: cfg.Matching.PHashThreshold,
	}
	decoder := imagesource.NewDecoder()
	a.service = shield.NewService(a.vault, a.db, a.alerts, decoder, a.encryptor, a.fsmgr, a.logger, a.clock, idgen, shield.ServiceOptions{
		Thresholds: thresholds,
		Workers:    cfg.Scan.Workers,
	})

	crawl, err := crawler.NewCrawlerFromConfig(cfg.Crawler, decoder, a.service.Thresholds().For(model.PHash), a.logger)
	if err != nil {
		return nil, fmt.Errorf("creating crawler: %w", err)
	}
	a.scanner = shield.NewScanner(a.vault, a.db, crawl, a.alerts, a.logger, a.clock, idgen, cfg.Scan.HistoryLimit)

	a.logger.Debug("operation started", "operation", a.op.Name, "args", a.op.Args)
	return a, nil
}

// Service exposes the underlying engine service.
func (a *ShieldApp) Service() *shield.Service { return a.service }

// RegisterAsset resolves the given path and registers the image as a protected asset.
func (a *ShieldApp) RegisterAsset(rawPath string) (*model.ProtectedAsset, error) {
	p, err := a.fsmgr.Resolve(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	return a.service.RegisterAsset(p)
}

// RegisterDirectory registers every image under the given directory.
// Returns the number of assets registered.
func (a *ShieldApp) RegisterDirectory(rawPath string, recursive bool) (int, error) {
	p, err := a.fsmgr.Resolve(rawPath)
	if err != nil {
		return 0, fmt.Errorf("resolving path: %w", err)
	}
	return a.service.RegisterDirectory(p, recursive)
}

// ListAssets returns every protected asset ordered by upload time.
func (a *ShieldApp) ListAssets() ([]*model.ProtectedAsset, error) {
	return a.service.ListAssets()
}

// RemoveAsset deletes an asset and its thumbnail.
func (a *ShieldApp) RemoveAsset(id string) error {
	return a.service.RemoveAsset(id)
}

// SetMonitoring toggles whether an asset is included in scans.
func (a *ShieldApp) SetMonitoring(id string, enabled bool) error {
	return a.service.SetMonitoring(id, enabled)
}

// ExportThumbnail decrypts an asset's thumbnail into the PNG file at outPath.
// A partially written file is removed on failure.
func (a *ShieldApp) ExportThumbnail(id, passphrase, outPath string) error {
	f, err := os.OpenFile(outPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := a.service.ExportThumbnail(id, passphrase, f); err != nil {
		f.Close()
		os.Remove(outPath)
		return err
	}
	return f.Close()
}

// AddTarget registers a monitoring target.
func (a *ShieldApp) AddTarget(spec shield.TargetSpec) (*model.MonitoringTarget, error) {
	return a.service.AddTarget(spec)
}

// ListTargets returns all targets ordered by name.
func (a *ShieldApp) ListTargets() ([]*model.MonitoringTarget, error) {
	return a.service.ListTargets()
}

// RemoveTarget deletes a target by name or id.
func (a *ShieldApp) RemoveTarget(ref string) error {
	return a.service.RemoveTarget(ref)
}

// SetTargetEnabled toggles a target by name or id.
func (a *ShieldApp) SetTargetEnabled(ref string, enabled bool) error {
	return a.service.SetTargetEnabled(ref, enabled)
}

// ImportTargets reads a targets file and upserts its entries by name.
// An empty path uses the configured targets_file.
func (a *ShieldApp) ImportTargets(path string) (created, updated int, err error) {
	if path == "" {
		path = a.cfg.TargetsFile
	}
	if path == "" {
		return 0, 0, fmt.Errorf("no targets file given and targets_file is not configured")
	}

	entries, err := config.ReadTargetsFromFile(path)
	if err != nil {
		return 0, 0, err
	}
	specs := make([]shield.TargetSpec, 0, len(entries))
	for _, e := range entries {
		specs = append(specs, shield.TargetSpec{
			Name:      e.Name,
			Category:  e.Category,
			RiskLevel: model.RiskLevel(e.RiskLevel),
			URL:       e.URL,
			Enabled:   e.IsEnabled(),
		})
	}
	return a.service.ImportTargets(specs)
}

// Scan runs one monitoring session over all enabled assets and targets.
func (a *ShieldApp) Scan(ctx context.Context, onProgress shield.ProgressFunc) (*model.MonitoringSession, error) {
	return a.scanner.Run(ctx, onProgress)
}

// Alerts returns alerts newest first.
func (a *ShieldApp) Alerts(unreadOnly bool) ([]*model.ContentAlert, error) {
	return a.alerts.List(unreadOnly)
}

// UnreadAlerts returns the number of unread alerts.
func (a *ShieldApp) UnreadAlerts() (int, error) {
	return a.alerts.UnreadCount()
}

// MarkAlertRead marks one alert as read.
func (a *ShieldApp) MarkAlertRead(id string) error {
	return a.alerts.MarkRead(id)
}

// MarkAllAlertsRead marks every unread alert as read and returns how many changed.
func (a *ShieldApp) MarkAllAlertsRead() (int, error) {
	unread, err := a.alerts.List(true)
	if err != nil {
		return 0, err
	}
	for _, alert := range unread {
		if err := a.alerts.MarkRead(alert.ID); err != nil {
			return 0, err
		}
	}
	return len(unread), nil
}

// ClearAlerts deletes every alert.
func (a *ShieldApp) ClearAlerts() error {
	return a.alerts.ClearAll()
}

// History returns the most recent scan sessions, newest first.
func (a *ShieldApp) History(limit int) ([]*model.MonitoringSession, error) {
	return a.service.GetHistory(limit)
}

// HashImage computes all three hashes of an image without storing anything.
func (a *ShieldApp) HashImage(rawPath string) (model.Fingerprint, error) {
	p, err := a.fsmgr.Resolve(rawPath)
	if err != nil {
		return model.Fingerprint{}, fmt.Errorf("resolving path: %w", err)
	}
	return a.service.HashImage(p)
}

// SearchImage hashes an image with algo and lists vault assets within the threshold.
func (a *ShieldApp) SearchImage(rawPath string, algo model.Algorithm) ([]model.VaultMatch, error) {
	p, err := a.fsmgr.Resolve(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	return a.service.SearchImage(p, algo)
}

// CompareHex compares two hex hashes of algo under the configured threshold.
func (a *ShieldApp) CompareHex(h1, h2 string, algo model.Algorithm) (phash.Comparison, error) {
	return phash.CompareHex(h1, h2, algo, a.service.Thresholds().For(algo))
}

// Watch registers images dropped into dir until ctx is cancelled.
// An empty dir uses the configured inbox, which is created if missing.
// onResult is called for every registration attempt.
func (a *ShieldApp) Watch(ctx context.Context, dir string, onResult func(watch.Result)) error {
	if dir == "" {
		dir = a.cfg.Watch.InboxDir
		if dir == "" {
			return fmt.Errorf("no inbox given and watch.inbox_dir is not configured")
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating inbox: %w", err)
		}
	}

	debounce := time.Duration(a.cfg.Watch.DebounceMillis) * time.Millisecond
	w, err := watch.New(dir, a.fsmgr, a.service, a.logger, debounce)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	for r := range w.Results() {
		if onResult != nil {
			onResult(r)
		}
	}
	return <-errCh
}

// Serve runs the HTTP API until ctx is cancelled.
func (a *ShieldApp) Serve(ctx context.Context) error {
	if a.cfg.Server.Listen == "" {
		return fmt.Errorf("server.listen is not configured")
	}
	handler := api.NewHandler(api.Deps{
		Service:     a.service,
		Alerts:      a.alerts,
		Scanner:     a.scanner,
		Logger:      a.logger,
		ScanContext: ctx,
	})
	return api.NewServer(a.cfg.Server.Listen, handler, a.logger).Run(ctx)
}

// Finish records the outcome of the CLI command in the log.
func (a *ShieldApp) Finish(err error) {
	d := a.op.Finish(err, a.clock.Now())
	if err != nil {
		a.logger.Error("operation failed", "operation", a.op.Name, "duration", d, "error", err)
		return
	}
	a.logger.Debug("operation finished", "operation", a.op.Name, "duration", d)
}

// Close releases the database, alert store and log file.
func (a *ShieldApp) Close() error {
	if a.op != nil && a.op.Status == "running" {
		a.Finish(nil)
	}
	return a.closeResources()
}

func (a *ShieldApp) closeResources() error {
	var errs []error
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing database: %w", err))
		}
	}
	if c, ok := a.alertRepo.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing alert store: %w", err))
		}
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return errors.Join(errs...)
}

// SetupKeys generates the thumbnail key pair protected by passphrase.
// Existing keys are never overwritten.
func SetupKeys(cfg *config.Config, passphrase string) error {
	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}
	if enc == nil {
		return fmt.Errorf("encryption is disabled in config")
	}
	return enc.Setup(passphrase)
}
