package encryption

import (
	"bytes"
	"errors"
	"testing"

	"shield-go/internal/config"
	"shield-go/internal/shield"
)

func TestTestEncryptor_RoundTrip(t *testing.T) {
	e := NewTestEncryptor()

	var sealed bytes.Buffer
	if err := e.Encrypt(bytes.NewReader([]byte("thumbnail")), &sealed); err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if !bytes.HasPrefix(sealed.Bytes(), testHeader) {
		t.Errorf("sealed output missing header: %q", sealed.Bytes())
	}

	dc, err := e.Unlock("anything")
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	var opened bytes.Buffer
	if err := dc.Decrypt(&sealed, &opened); err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if opened.String() != "thumbnail" {
		t.Errorf("Decrypt() = %q, want %q", opened.String(), "thumbnail")
	}
}

func TestTestEncryptor_Passphrase(t *testing.T) {
	e := NewUnconfiguredTestEncryptor()
	if e.IsConfigured() {
		t.Fatal("IsConfigured() = true before Setup")
	}
	if err := e.Encrypt(bytes.NewReader(nil), &bytes.Buffer{}); !errors.Is(err, shield.ErrEncryptionNotConfigured) {
		t.Errorf("Encrypt() before Setup error = %v, want ErrEncryptionNotConfigured", err)
	}

	if err := e.Setup("secret"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if _, err := e.Unlock("wrong"); err == nil {
		t.Error("Unlock() with wrong passphrase should fail")
	}
	if _, err := e.Unlock("secret"); err != nil {
		t.Errorf("Unlock() error = %v", err)
	}
}

func TestTestDecryptionContext_RejectsForeignData(t *testing.T) {
	dc := &TestDecryptionContext{}
	tests := map[string][]byte{
		"short":      []byte("SH"),
		"bad header": []byte("NOTTHEHEADERdata"),
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			if err := dc.Decrypt(bytes.NewReader(input), &bytes.Buffer{}); err == nil {
				t.Error("Decrypt() expected error")
			}
		})
	}
}

func TestNewEncryptorFromConfig(t *testing.T) {
	tests := []struct {
		typ      string
		wantType any
		wantNil  bool
		wantErr  bool
	}{
		{typ: "", wantType: &AgeEncryptor{}},
		{typ: "age", wantType: &AgeEncryptor{}},
		{typ: "test", wantType: &TestEncryptor{}},
		{typ: "none", wantNil: true},
		{typ: "rot13", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			got, err := NewEncryptorFromConfig(config.EncryptionConfig{Type: tt.typ})
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewEncryptorFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if tt.wantNil {
				if got != nil {
					t.Errorf("NewEncryptorFromConfig() = %T, want nil", got)
				}
				return
			}
			switch tt.wantType.(type) {
			case *AgeEncryptor:
				if _, ok := got.(*AgeEncryptor); !ok {
					t.Errorf("NewEncryptorFromConfig() = %T, want *AgeEncryptor", got)
				}
			case *TestEncryptor:
				if _, ok := got.(*TestEncryptor); !ok {
					t.Errorf("NewEncryptorFromConfig() = %T, want *TestEncryptor", got)
				}
			}
		})
	}
}
