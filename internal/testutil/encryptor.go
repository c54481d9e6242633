package testutil

import (
	"shield-go/internal/encryption"
)

// NewTestEncryptor creates a configured test encryptor.
func NewTestEncryptor() *encryption.TestEncryptor {
	return encryption.NewTestEncryptor()
}
