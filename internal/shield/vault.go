package shield

import (
	"io"

	"shield-go/internal/model"
)

// Vault is the storage backend behind the FingerprintVault.
// Records are keyed by asset id; thumbnails are opaque (already encrypted)
// blobs keyed by the reference stored on the asset.
type Vault interface {
	// PutRecord inserts or replaces the record for asset.ID.
	PutRecord(asset *model.ProtectedAsset) error

	// GetRecord returns the record for id, or nil if it does not exist.
	GetRecord(id string) (*model.ProtectedAsset, error)

	// ListRecords returns every stored record in no particular order.
	ListRecords() ([]*model.ProtectedAsset, error)

	// DeleteRecord removes the record for id. Deleting a missing record is not an error.
	DeleteRecord(id string) error

	// PutThumbnail stores size bytes read from r under ref.
	PutThumbnail(ref string, r io.Reader, size int64) error

	// GetThumbnail writes the blob stored under ref to w.
	GetThumbnail(ref string, w io.Writer) error

	// DeleteThumbnail removes the blob stored under ref, if any.
	DeleteThumbnail(ref string) error

	// ValidateSetup verifies that the backend is reachable and writable.
	ValidateSetup() error
}
