package fs

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func relNames(t *testing.T, root string, m *OSFilesystemManager, recursive bool) []string {
	t.Helper()
	dir, err := m.Resolve(root)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	files, err := m.FindFiles(dir, recursive)
	if err != nil {
		t.Fatalf("FindFiles() error = %v", err)
	}
	var names []string
	for _, f := range files {
		rel, _ := filepath.Rel(root, f.String())
		names = append(names, filepath.ToSlash(rel))
	}
	sort.Strings(names)
	return names
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestOSFilesystemManager_Resolve(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.png": "x"})
	m := NewOSFilesystemManager(nil)

	file, err := m.Resolve(filepath.Join(root, "a.png"))
	if err != nil {
		t.Fatalf("Resolve(file) error = %v", err)
	}
	if file.IsDir() || file.Info().Size() != 1 {
		t.Errorf("Resolve(file) = dir %v size %d", file.IsDir(), file.Info().Size())
	}

	dir, err := m.Resolve(root)
	if err != nil || !dir.IsDir() {
		t.Errorf("Resolve(dir) = %v, %v", dir, err)
	}

	if _, err := m.Resolve(filepath.Join(root, "missing.png")); err == nil {
		t.Error("Resolve(missing) expected error")
	}
}

func TestOSFilesystemManager_Open(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.png": "pixels"})
	m := NewOSFilesystemManager(nil)

	p, _ := m.Resolve(filepath.Join(root, "a.png"))
	rc, err := m.Open(p)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "pixels" {
		t.Errorf("Open() read %q", data)
	}

	dir, _ := m.Resolve(root)
	if _, err := m.Open(dir); err == nil {
		t.Error("Open(dir) expected error")
	}
}

func TestOSFilesystemManager_FindFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.png":             "x",
		"b.psd":             "x",
		".hidden.png":       "x",
		"sub/c.jpg":         "x",
		"sub/drafts/d.png":  "x",
		".cache/e.png":      "x",
		IgnoreFileName:      "drafts/\n",
		"sub/deeper/f.webp": "x",
	})

	t.Run("non-recursive", func(t *testing.T) {
		got := relNames(t, root, NewOSFilesystemManager(nil), false)
		want := []string{".hidden.png", ".shieldignore", "a.png", "b.psd"}
		if !equal(got, want) {
			t.Errorf("FindFiles() = %v, want %v", got, want)
		}
	})

	t.Run("recursive skips ignored directories", func(t *testing.T) {
		got := relNames(t, root, NewOSFilesystemManager([]string{"*.psd"}), true)
		want := []string{".hidden.png", ".shieldignore", "a.png", "b.psd", "sub/c.jpg", "sub/deeper/f.webp"}
		if !equal(got, want) {
			t.Errorf("FindFiles() = %v, want %v", got, want)
		}
	})
}

func TestOSFilesystemManager_IsIgnored(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.png":          "x",
		"b.psd":          "x",
		".hidden.png":    "x",
		"raw/c.png":      "x",
		IgnoreFileName:   "raw/*.png\n",
	})
	m := NewOSFilesystemManager([]string{"*.psd"})

	tests := []struct {
		rel  string
		want bool
	}{
		{"a.png", false},
		{"b.psd", true},        // configured pattern
		{".hidden.png", true},  // default pattern
		{"raw/c.png", true},    // ignore file pattern
		{IgnoreFileName, true}, // the ignore file itself
	}

	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			p, err := m.Resolve(filepath.Join(root, tt.rel))
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			got, err := m.IsIgnored(p, root)
			if err != nil {
				t.Fatalf("IsIgnored() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("IsIgnored(%s) = %v, want %v", tt.rel, got, tt.want)
			}
		})
	}
}
