package encryption

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"shield-go/internal/shield"
)

// testHeader marks data sealed by TestEncryptor.
var testHeader = []byte("SHLDTHM\x00")

// TestEncryptor is a deterministic, reversible stand-in for AgeEncryptor.
// It prepends a fixed header instead of encrypting. If Setup was called with
// a passphrase, Unlock requires the same one.
type TestEncryptor struct {
	mu         sync.Mutex
	configured bool
	passphrase string
}

var _ shield.Encryptor = (*TestEncryptor)(nil)

// NewTestEncryptor creates a TestEncryptor that is already configured.
func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{configured: true}
}

// NewUnconfiguredTestEncryptor creates a TestEncryptor that reports no keys until Setup.
func NewUnconfiguredTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Setup(passphrase string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.configured = true
	e.passphrase = passphrase
	return nil
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if !e.IsConfigured() {
		return fmt.Errorf("%w", shield.ErrEncryptionNotConfigured)
	}
	if _, err := w.Write(testHeader); err != nil {
		return fmt.Errorf("writing test header: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (e *TestEncryptor) Unlock(passphrase string) (shield.DecryptionContext, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.passphrase != "" && passphrase != e.passphrase {
		return nil, fmt.Errorf("decrypting private key: incorrect passphrase")
	}
	return &TestDecryptionContext{}, nil
}

func (e *TestEncryptor) IsConfigured() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.configured
}

// TestDecryptionContext strips the header added by TestEncryptor.
type TestDecryptionContext struct{}

var _ shield.DecryptionContext = (*TestDecryptionContext)(nil)

func (c *TestDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	header := make([]byte, len(testHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("reading test header: %w", err)
	}
	if !bytes.Equal(header, testHeader) {
		return fmt.Errorf("invalid test encryption header")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
