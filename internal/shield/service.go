package shield

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"shield-go/internal/model"
	"shield-go/internal/phash"
)

// thumbnailSide bounds the longer side of stored thumbnails, in pixels.
const thumbnailSide = 128

// imageExtensions are the file types picked up by directory registration.
var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// IsImageFile reports whether name has an extension handled by registration.
func IsImageFile(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// Service is the registration and inspection layer used by the CLI, the
// watcher and the HTTP API. Scanning lives in Scanner.
type Service struct {
	vault      *FingerprintVault
	database   Database
	alerts     *AlertStore
	decoder    ImageDecoder
	engine     *phash.Engine
	encryptor  Encryptor
	fsmgr      FilesystemManager
	logger     Logger
	clock      Clock
	idgen      IDGenerator
	thresholds phash.Thresholds
	workers    int
}

// ServiceOptions carries the tunables of a Service.
type ServiceOptions struct {
	Thresholds phash.Thresholds
	Workers    int // parallel hashing workers for directory registration
}

// NewService creates a Service with the provided dependencies.
func NewService(vault *FingerprintVault, database Database, alerts *AlertStore, decoder ImageDecoder, encryptor Encryptor, fsmgr FilesystemManager, logger Logger, clock Clock, idgen IDGenerator, opts ServiceOptions) *Service {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Thresholds == (phash.Thresholds{}) {
		opts.Thresholds = phash.DefaultThresholds()
	}
	return &Service{
		vault:      vault,
		database:   database,
		alerts:     alerts,
		decoder:    decoder,
		engine:     phash.NewEngine(clock),
		encryptor:  encryptor,
		fsmgr:      fsmgr,
		logger:     logger,
		clock:      clock,
		idgen:      idgen,
		thresholds: opts.Thresholds,
		workers:    opts.Workers,
	}
}

// Thresholds returns the per-algorithm match policy.
func (s *Service) Thresholds() phash.Thresholds {
	return s.thresholds
}

// RegisterAsset fingerprints the image at path and stores it as a protected asset.
// Decode failures are returned as *phash.ImageDecodeError; nothing is stored.
// If the image already matches a registered asset a potential_match alert is raised.
func (s *Service) RegisterAsset(path *Path) (*model.ProtectedAsset, error) {
	asset, err := s.registerAsset(path)
	if err != nil {
		registrationFailuresTotal.Inc()
		return nil, err
	}
	assetsRegisteredTotal.Inc()
	return asset, nil
}

func (s *Service) registerAsset(path *Path) (*model.ProtectedAsset, error) {
	if path.IsDir() {
		return nil, fmt.Errorf("path is a directory, not an image: %s", path.String())
	}

	img, err := s.loadImage(path)
	if err != nil {
		return nil, err
	}

	fp, err := s.engine.HashAll(img)
	if err != nil {
		return nil, fmt.Errorf("hashing %s: %w", path.String(), err)
	}

	asset := &model.ProtectedAsset{
		ID:                s.idgen.New(),
		Filename:          filepath.Base(path.String()),
		Hashes:            fp,
		UploadedAt:        s.clock.Now(),
		MonitoringEnabled: true,
	}

	duplicates, err := s.searchHash(fp.PHash)
	if err != nil {
		return nil, fmt.Errorf("checking for existing registrations: %w", err)
	}

	if s.encryptor != nil {
		ref, err := s.storeThumbnail(asset.ID, img)
		if err != nil {
			return nil, err
		}
		asset.Thumbnail = ref
	}

	if err := s.vault.Store(asset); err != nil {
		return nil, fmt.Errorf("storing asset: %w", err)
	}

	if len(duplicates) > 0 {
		best := duplicates[0]
		similarity := best.Similarity
		alert := &model.ContentAlert{
			Type:        model.AlertPotentialMatch,
			Severity:    model.SeverityWarning,
			Title:       "Asset already registered",
			Description: fmt.Sprintf("%s is %d%% similar to protected asset %s.", asset.Filename, similarity, best.AssetID),
			Similarity:  &similarity,
			AssetID:     asset.ID,
		}
		if err := s.alerts.Save(alert); err != nil {
			s.logger.Error("saving duplicate alert", "asset", asset.ID, "error", err)
		}
	}

	s.logger.Info("asset registered", "asset", asset.ID, "file", asset.Filename, "phash", fp.PHash.Hash)
	return asset, nil
}

// RegisterDirectory registers every image file under path that is not ignored.
// Hashing runs on a bounded worker pool. Returns the number of assets
// registered and the joined errors of the files that failed.
func (s *Service) RegisterDirectory(path *Path, recursive bool) (int, error) {
	if !path.IsDir() {
		return 0, fmt.Errorf("path is not a directory: %s", path.String())
	}

	files, err := s.fsmgr.FindFiles(path, recursive)
	if err != nil {
		return 0, fmt.Errorf("finding files: %w", err)
	}

	var candidates []*Path
	for _, f := range files {
		if !IsImageFile(f.String()) {
			continue
		}
		ignored, err := s.fsmgr.IsIgnored(f, path.String())
		if err != nil {
			return 0, fmt.Errorf("checking ignore rules: %w", err)
		}
		if ignored {
			s.logger.Debug("file ignored", "path", f.String())
			continue
		}
		candidates = append(candidates, f)
	}

	var (
		mu    sync.Mutex
		count int
		errs  []error
		wg    sync.WaitGroup
	)
	work := make(chan *Path)
	for i := 0; i < min(s.workers, max(1, len(candidates))); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range work {
				_, err := s.RegisterAsset(f)
				mu.Lock()
				if err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", f.String(), err))
				} else {
					count++
				}
				mu.Unlock()
			}
		}()
	}
	for _, f := range candidates {
		work <- f
	}
	close(work)
	wg.Wait()

	s.logger.Info("directory registered", "path", path.String(), "count", count, "failed", len(errs))
	return count, errors.Join(errs...)
}

// SearchImage hashes the image at path and searches the vault with the
// configured threshold for algo.
func (s *Service) SearchImage(path *Path, algo model.Algorithm) ([]model.VaultMatch, error) {
	img, err := s.loadImage(path)
	if err != nil {
		return nil, err
	}
	result, err := s.engine.Hash(img, algo)
	if err != nil {
		return nil, fmt.Errorf("hashing %s: %w", path.String(), err)
	}
	return s.searchHash(result)
}

// HashImage computes all three hashes of the image at path without storing anything.
func (s *Service) HashImage(path *Path) (model.Fingerprint, error) {
	img, err := s.loadImage(path)
	if err != nil {
		return model.Fingerprint{}, err
	}
	return s.engine.HashAll(img)
}

func (s *Service) searchHash(result model.HashResult) ([]model.VaultMatch, error) {
	h, err := phash.FromResult(result)
	if err != nil {
		return nil, err
	}
	return s.vault.SearchMatches(h, s.thresholds.For(h.Algorithm))
}

// ListAssets returns every protected asset ordered by upload time.
func (s *Service) ListAssets() ([]*model.ProtectedAsset, error) {
	return s.vault.All()
}

// GetAsset returns the asset with the given id.
func (s *Service) GetAsset(id string) (*model.ProtectedAsset, error) {
	asset, err := s.vault.Get(id)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, id)
	}
	return asset, nil
}

// RemoveAsset deletes an asset and its thumbnail at the user's request.
func (s *Service) RemoveAsset(id string) error {
	if err := s.vault.Delete(id); err != nil {
		return err
	}
	s.logger.Info("asset removed", "asset", id)
	return nil
}

// SetMonitoring enables or disables scanning for an asset.
func (s *Service) SetMonitoring(id string, enabled bool) error {
	_, err := s.vault.Update(id, func(a *model.ProtectedAsset) { a.MonitoringEnabled = enabled })
	if err != nil {
		return err
	}
	s.logger.Info("asset monitoring changed", "asset", id, "enabled", enabled)
	return nil
}

// ExportThumbnail decrypts the stored thumbnail of an asset and writes the PNG to w.
func (s *Service) ExportThumbnail(id string, passphrase string, w io.Writer) error {
	asset, err := s.GetAsset(id)
	if err != nil {
		return err
	}
	if asset.Thumbnail == "" {
		return fmt.Errorf("asset %s has no thumbnail", id)
	}
	if s.encryptor == nil {
		return ErrEncryptionNotConfigured
	}

	var sealed bytes.Buffer
	if err := s.vault.GetThumbnail(asset.Thumbnail, &sealed); err != nil {
		return err
	}

	dc, err := s.encryptor.Unlock(passphrase)
	if err != nil {
		return fmt.Errorf("unlocking private key: %w", err)
	}
	if err := dc.Decrypt(&sealed, w); err != nil {
		return fmt.Errorf("decrypting thumbnail: %w", err)
	}
	return nil
}

// GetHistory returns the most recent scan sessions, newest first.
func (s *Service) GetHistory(limit int) ([]*model.MonitoringSession, error) {
	sessions, err := s.database.ListSessions(limit)
	if err != nil {
		return nil, fmt.Errorf("listing scan sessions: %w", err)
	}
	return sessions, nil
}

func (s *Service) loadImage(path *Path) (image.Image, error) {
	f, err := s.fsmgr.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path.String(), err)
	}
	defer f.Close()

	img, err := s.decoder.Decode(f)
	if err != nil {
		var decodeErr *phash.ImageDecodeError
		if errors.As(err, &decodeErr) {
			decodeErr.Source = path.String()
			return nil, decodeErr
		}
		return nil, &phash.ImageDecodeError{Source: path.String(), Err: err}
	}
	return img, nil
}

// storeThumbnail encrypts a PNG thumbnail of img and stores it in the vault.
func (s *Service) storeThumbnail(assetID string, img image.Image) (string, error) {
	if !s.encryptor.IsConfigured() {
		return "", fmt.Errorf("%w: run `shield keys init`", ErrEncryptionNotConfigured)
	}

	var plain bytes.Buffer
	if err := png.Encode(&plain, phash.Thumbnail(img, thumbnailSide)); err != nil {
		return "", fmt.Errorf("encoding thumbnail: %w", err)
	}

	var sealed bytes.Buffer
	if err := s.encryptor.Encrypt(&plain, &sealed); err != nil {
		return "", fmt.Errorf("encrypting thumbnail: %w", err)
	}

	ref := assetID + ".png.age"
	if err := s.vault.PutThumbnail(ref, &sealed, int64(sealed.Len())); err != nil {
		return "", err
	}
	return ref, nil
}
