package vault

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"shield-go/internal/model"
	"shield-go/internal/shield"
)

// MemoryVault is an in-memory implementation of the Vault interface.
// Records are kept encoded so callers never share state with the store.
// This implementation is safe for concurrent use.
type MemoryVault struct {
	name       string
	records    map[string][]byte // asset id -> encoded record
	thumbnails map[string][]byte // ref -> encrypted thumbnail
	mu         sync.RWMutex
}

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:       name,
		records:    make(map[string][]byte),
		thumbnails: make(map[string][]byte),
	}
}

// PutRecord inserts or replaces the record for asset.ID.
func (m *MemoryVault) PutRecord(asset *model.ProtectedAsset) error {
	data, err := encodeRecord(asset)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[asset.ID] = data
	return nil
}

// GetRecord returns the record for id, or nil if it does not exist.
func (m *MemoryVault) GetRecord(id string) (*model.ProtectedAsset, error) {
	m.mu.RLock()
	data, ok := m.records[id]
	m.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	return decodeRecord(data)
}

// ListRecords returns every stored record.
func (m *MemoryVault) ListRecords() ([]*model.ProtectedAsset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	assets := make([]*model.ProtectedAsset, 0, len(m.records))
	for id, data := range m.records {
		asset, err := decodeRecord(data)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", id, err)
		}
		assets = append(assets, asset)
	}
	return assets, nil
}

// DeleteRecord removes the record for id.
func (m *MemoryVault) DeleteRecord(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records, id)
	return nil
}

// PutThumbnail stores an encrypted thumbnail under ref.
func (m *MemoryVault) PutThumbnail(ref string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read thumbnail: %w", err)
	}

	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.thumbnails[ref] = data
	return nil
}

// GetThumbnail writes the thumbnail stored under ref to w.
func (m *MemoryVault) GetThumbnail(ref string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.thumbnails[ref]
	if !ok {
		return fmt.Errorf("thumbnail not found: %s", ref)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write thumbnail: %w", err)
	}
	return nil
}

// DeleteThumbnail removes the thumbnail stored under ref.
func (m *MemoryVault) DeleteThumbnail(ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.thumbnails, ref)
	return nil
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup() error {
	return nil
}

// Compile-time check that MemoryVault implements shield.Vault interface
var _ shield.Vault = (*MemoryVault)(nil)
