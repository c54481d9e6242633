package encryption

import (
	"fmt"

	"shield-go/internal/config"
	"shield-go/internal/shield"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration type.
// Type "none" disables thumbnail storage and returns a nil Encryptor.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (shield.Encryptor, error) {
	switch cfg.Type {
	case "age", "":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
