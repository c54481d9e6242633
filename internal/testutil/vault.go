package testutil

import (
	"time"

	"shield-go/internal/alerts"
	"shield-go/internal/model"
	"shield-go/internal/shield"
	"shield-go/internal/vault"
)

// NewTestVault creates a new in-memory vault backend for testing.
func NewTestVault() shield.Vault {
	return vault.NewMemoryVault("test-vault")
}

// NewTestFingerprintVault creates a FingerprintVault over an in-memory backend.
func NewTestFingerprintVault() *shield.FingerprintVault {
	return shield.NewFingerprintVault(NewTestVault())
}

// NewTestAlertStore creates an AlertStore over an in-memory repository.
func NewTestAlertStore(capacity int, clock shield.Clock, idgen shield.IDGenerator) *shield.AlertStore {
	return shield.NewAlertStore(alerts.NewMemoryRepository(), capacity, clock, idgen)
}

// NewAsset builds an enabled protected asset whose three hashes all render as hex.
func NewAsset(id, hex string, uploadedAt time.Time) *model.ProtectedAsset {
	result := func(algo model.Algorithm) model.HashResult {
		return model.HashResult{Hash: hex, Algorithm: algo, Size: model.HashSize, Timestamp: uploadedAt}
	}
	return &model.ProtectedAsset{
		ID:       id,
		Filename: id + ".png",
		Hashes: model.Fingerprint{
			AHash: result(model.AHash),
			DHash: result(model.DHash),
			PHash: result(model.PHash),
		},
		UploadedAt:        uploadedAt,
		MonitoringEnabled: true,
	}
}

// NewTarget builds an enabled monitoring target.
func NewTarget(id, name string) *model.MonitoringTarget {
	return &model.MonitoringTarget{
		ID:        id,
		Name:      name,
		Category:  "forum",
		RiskLevel: model.RiskMedium,
		URL:       "https://" + name + ".example/",
		Enabled:   true,
		CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}
