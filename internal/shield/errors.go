package shield

import (
	"errors"
	"fmt"
)

var (
	// ErrAssetNotFound is returned when an operation names an unknown asset id.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrTargetNotFound is returned when an operation names an unknown target.
	ErrTargetNotFound = errors.New("target not found")

	// ErrAlertNotFound is returned when an operation names an unknown alert id.
	ErrAlertNotFound = errors.New("alert not found")

	// ErrScanInProgress is returned when a scan is started while another one runs.
	ErrScanInProgress = errors.New("scan already in progress")

	// ErrEncryptionNotConfigured is returned when thumbnails cannot be sealed.
	ErrEncryptionNotConfigured = errors.New("encryption keys not configured")
)

// PersistenceError wraps a storage backend failure on a write path.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persisting %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
