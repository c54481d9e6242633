package vault

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"shield-go/internal/model"
	"shield-go/internal/shield"
)

const recordExt = ".json"

// FileSystemVault is a filesystem-based implementation of the Vault interface.
// It stores records and thumbnails as files in a directory structure:
//
//	<root>/
//	  records/
//	    <asset id>.json   (one fingerprint record per asset)
//	  thumbnails/
//	    <ref>             (age-encrypted PNG thumbnails)
type FileSystemVault struct {
	name          string
	root          string
	recordsDir    string
	thumbnailsDir string
}

// NewFileSystemVault creates a new filesystem vault rooted at the given path.
func NewFileSystemVault(name, root string) (*FileSystemVault, error) {
	recordsDir := filepath.Join(root, "records")
	thumbnailsDir := filepath.Join(root, "thumbnails")

	if err := os.MkdirAll(recordsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create records directory: %w", err)
	}
	if err := os.MkdirAll(thumbnailsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create thumbnails directory: %w", err)
	}

	return &FileSystemVault{
		name:          name,
		root:          root,
		recordsDir:    recordsDir,
		thumbnailsDir: thumbnailsDir,
	}, nil
}

// PutRecord writes the record for asset.ID, replacing any previous version atomically.
func (v *FileSystemVault) PutRecord(asset *model.ProtectedAsset) error {
	if err := validKey(asset.ID); err != nil {
		return err
	}
	data, err := encodeRecord(asset)
	if err != nil {
		return err
	}
	return v.writeFile(v.recordPath(asset.ID), bytes.NewReader(data), int64(len(data)))
}

// GetRecord returns the record for id, or nil if it does not exist.
func (v *FileSystemVault) GetRecord(id string) (*model.ProtectedAsset, error) {
	if err := validKey(id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(v.recordPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading record: %w", err)
	}
	return decodeRecord(data)
}

// ListRecords returns every record in the records directory.
func (v *FileSystemVault) ListRecords() ([]*model.ProtectedAsset, error) {
	entries, err := os.ReadDir(v.recordsDir)
	if err != nil {
		return nil, fmt.Errorf("reading records directory: %w", err)
	}

	assets := make([]*model.ProtectedAsset, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), recordExt) || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(v.recordsDir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading record %s: %w", e.Name(), err)
		}
		asset, err := decodeRecord(data)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", e.Name(), err)
		}
		assets = append(assets, asset)
	}
	return assets, nil
}

// DeleteRecord removes the record for id. A missing record is not an error.
func (v *FileSystemVault) DeleteRecord(id string) error {
	if err := validKey(id); err != nil {
		return err
	}
	return removeIfExists(v.recordPath(id))
}

// PutThumbnail stores an encrypted thumbnail under ref.
func (v *FileSystemVault) PutThumbnail(ref string, r io.Reader, size int64) error {
	if err := validKey(ref); err != nil {
		return err
	}
	return v.writeFile(filepath.Join(v.thumbnailsDir, ref), r, size)
}

// GetThumbnail writes the thumbnail stored under ref to w.
func (v *FileSystemVault) GetThumbnail(ref string, w io.Writer) error {
	if err := validKey(ref); err != nil {
		return err
	}
	return v.readFile(filepath.Join(v.thumbnailsDir, ref), w, fmt.Sprintf("thumbnail not found: %s", ref))
}

// DeleteThumbnail removes the thumbnail stored under ref.
func (v *FileSystemVault) DeleteThumbnail(ref string) error {
	if err := validKey(ref); err != nil {
		return err
	}
	return removeIfExists(filepath.Join(v.thumbnailsDir, ref))
}

// ValidateSetup verifies that the vault directories are accessible.
func (v *FileSystemVault) ValidateSetup() error {
	info, err := os.Stat(v.root)
	if err != nil {
		return fmt.Errorf("vault root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault root is not a directory: %s", v.root)
	}

	for _, dir := range []string{v.recordsDir, v.thumbnailsDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("vault directory not accessible: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("vault path is not a directory: %s", dir)
		}
	}

	return nil
}

func (v *FileSystemVault) recordPath(id string) string {
	return filepath.Join(v.recordsDir, id+recordExt)
}

// writeFile writes data from r to the specified path using atomic write (temp file + rename).
func (v *FileSystemVault) writeFile(destPath string, r io.Reader, expectedSize int64) error {
	dir := filepath.Dir(destPath)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// readFile reads from the specified path and writes to w.
func (v *FileSystemVault) readFile(srcPath string, w io.Writer, notFoundMsg string) error {
	f, err := os.Open(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s", notFoundMsg)
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	return nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Compile-time check that FileSystemVault implements shield.Vault interface
var _ shield.Vault = (*FileSystemVault)(nil)
