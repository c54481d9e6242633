package vault

import (
	"testing"

	"shield-go/internal/config"
)

func TestNewVaultFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.VaultConfig
		wantErr bool
	}{
		{
			name:    "memory vault",
			cfg:     config.VaultConfig{Type: "memory", Name: "test-memory"},
			wantErr: false,
		},
		{
			name:    "filesystem vault",
			cfg:     config.VaultConfig{Type: "filesystem", Name: "test-fs", FSVaultRoot: t.TempDir()},
			wantErr: false,
		},
		{
			name:    "filesystem vault without root",
			cfg:     config.VaultConfig{Type: "filesystem", Name: "test-fs"},
			wantErr: true,
		},
		{
			name:    "s3 vault without bucket",
			cfg:     config.VaultConfig{Type: "s3", Name: "test-s3"},
			wantErr: true,
		},
		{
			name:    "unknown vault type",
			cfg:     config.VaultConfig{Type: "unknown", Name: "test-unknown"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewVaultFromConfig(tt.cfg)

			if (err != nil) != tt.wantErr {
				t.Fatalf("NewVaultFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if got != nil {
					t.Errorf("NewVaultFromConfig() = %v, want nil on error", got)
				}
				return
			}

			if err := got.ValidateSetup(); err != nil {
				t.Errorf("ValidateSetup() error = %v", err)
			}
		})
	}
}

func TestS3Vault_ObjectKeys(t *testing.T) {
	tests := []struct {
		prefix        string
		wantRecord    string
		wantThumbnail string
	}{
		{"", "records/a1.json", "thumbnails/a1.png.age"},
		{"shield", "shield/records/a1.json", "shield/thumbnails/a1.png.age"},
		{"/nested/dir/", "nested/dir/records/a1.json", "nested/dir/thumbnails/a1.png.age"},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			v, err := NewS3Vault("s3", S3Options{Bucket: "bucket", Prefix: tt.prefix, Region: "us-east-1"})
			if err != nil {
				t.Fatalf("NewS3Vault() error = %v", err)
			}
			if got := v.recordKey("a1"); got != tt.wantRecord {
				t.Errorf("recordKey() = %q, want %q", got, tt.wantRecord)
			}
			if got := v.thumbnailKey("a1.png.age"); got != tt.wantThumbnail {
				t.Errorf("thumbnailKey() = %q, want %q", got, tt.wantThumbnail)
			}
		})
	}
}

func TestS3Vault_RejectsInvalidKeys(t *testing.T) {
	v, err := NewS3Vault("s3", S3Options{Bucket: "bucket", Region: "us-east-1"})
	if err != nil {
		t.Fatalf("NewS3Vault() error = %v", err)
	}
	if _, err := v.GetRecord("../escape"); err == nil {
		t.Error("GetRecord() expected error for key with separator")
	}
	if err := v.DeleteThumbnail(""); err == nil {
		t.Error("DeleteThumbnail() expected error for empty ref")
	}
}
