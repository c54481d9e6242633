package shield

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"shield-go/internal/model"
	"shield-go/internal/phash"
)

// FingerprintVault owns the protected-asset records and answers threshold
// searches over them. Writes are serialised by a store-wide mutex.
type FingerprintVault struct {
	backend Vault
	mu      sync.RWMutex
}

// NewFingerprintVault wraps a storage backend.
func NewFingerprintVault(backend Vault) *FingerprintVault {
	return &FingerprintVault{backend: backend}
}

// Store inserts or replaces the record for asset.ID.
// Every record must carry all three hashes.
func (v *FingerprintVault) Store(asset *model.ProtectedAsset) error {
	if asset.ID == "" {
		return fmt.Errorf("asset id is required")
	}
	if err := asset.Hashes.Validate(); err != nil {
		return fmt.Errorf("asset %s: %w", asset.ID, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.backend.PutRecord(asset); err != nil {
		return &PersistenceError{Op: "asset", Key: asset.ID, Err: err}
	}
	return nil
}

// Update applies fn to the stored record for id and writes the result back
// under the store lock. Returns ErrAssetNotFound if id is unknown.
func (v *FingerprintVault) Update(id string, fn func(asset *model.ProtectedAsset)) (*model.ProtectedAsset, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	asset, err := v.backend.GetRecord(id)
	if err != nil {
		return nil, fmt.Errorf("loading asset %s: %w", id, err)
	}
	if asset == nil {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, id)
	}

	fn(asset)

	if err := v.backend.PutRecord(asset); err != nil {
		return nil, &PersistenceError{Op: "asset", Key: id, Err: err}
	}
	return asset, nil
}

// Get returns the record for id, or nil if it does not exist.
func (v *FingerprintVault) Get(id string) (*model.ProtectedAsset, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	asset, err := v.backend.GetRecord(id)
	if err != nil {
		return nil, fmt.Errorf("loading asset %s: %w", id, err)
	}
	return asset, nil
}

// All returns every record ordered by upload time, then id.
func (v *FingerprintVault) All() ([]*model.ProtectedAsset, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	assets, err := v.backend.ListRecords()
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}
	sort.SliceStable(assets, func(i, j int) bool {
		if !assets[i].UploadedAt.Equal(assets[j].UploadedAt) {
			return assets[i].UploadedAt.Before(assets[j].UploadedAt)
		}
		return assets[i].ID < assets[j].ID
	})
	return assets, nil
}

// Delete removes an asset and its thumbnail.
func (v *FingerprintVault) Delete(id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	asset, err := v.backend.GetRecord(id)
	if err != nil {
		return fmt.Errorf("loading asset %s: %w", id, err)
	}
	if asset == nil {
		return fmt.Errorf("%w: %s", ErrAssetNotFound, id)
	}

	if asset.Thumbnail != "" {
		if err := v.backend.DeleteThumbnail(asset.Thumbnail); err != nil {
			return &PersistenceError{Op: "thumbnail", Key: asset.Thumbnail, Err: err}
		}
	}
	if err := v.backend.DeleteRecord(id); err != nil {
		return &PersistenceError{Op: "asset", Key: id, Err: err}
	}
	return nil
}

// SearchMatches returns every asset whose hash of target's algorithm lies
// within threshold bits of target, most similar first (ties by asset id).
// An empty vault yields an empty slice.
func (v *FingerprintVault) SearchMatches(target phash.Hash, threshold int) ([]model.VaultMatch, error) {
	assets, err := v.All()
	if err != nil {
		return nil, err
	}

	matches := make([]model.VaultMatch, 0)
	for _, asset := range assets {
		stored, err := phash.FromResult(asset.Hashes.Get(target.Algorithm))
		if err != nil {
			continue
		}
		cmp, err := phash.Compare(target, stored, threshold)
		if err != nil {
			return nil, err
		}
		if !cmp.IsMatch {
			continue
		}
		matches = append(matches, model.VaultMatch{
			AssetID:    asset.ID,
			Similarity: cmp.Similarity,
			Distance:   cmp.Distance,
			StoredAt:   asset.UploadedAt,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].AssetID < matches[j].AssetID
	})
	return matches, nil
}

// PutThumbnail stores an already encrypted thumbnail blob.
func (v *FingerprintVault) PutThumbnail(ref string, r io.Reader, size int64) error {
	if err := v.backend.PutThumbnail(ref, r, size); err != nil {
		return &PersistenceError{Op: "thumbnail", Key: ref, Err: err}
	}
	return nil
}

// GetThumbnail writes the encrypted thumbnail blob stored under ref to w.
func (v *FingerprintVault) GetThumbnail(ref string, w io.Writer) error {
	if err := v.backend.GetThumbnail(ref, w); err != nil {
		return fmt.Errorf("reading thumbnail %s: %w", ref, err)
	}
	return nil
}
