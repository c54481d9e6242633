package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"shield-go/internal/fs"
	"shield-go/internal/model"
	"shield-go/internal/shield"
	"shield-go/internal/testutil"
)

type fakeRegistrar struct {
	mu    sync.Mutex
	paths []string
	fail  map[string]error
}

func (r *fakeRegistrar) RegisterAsset(path *shield.Path) (*model.ProtectedAsset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path.String())
	if err := r.fail[filepath.Base(path.String())]; err != nil {
		return nil, err
	}
	return &model.ProtectedAsset{ID: "asset-" + filepath.Base(path.String()), Filename: filepath.Base(path.String())}, nil
}

func (r *fakeRegistrar) registered() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func startWatcher(t *testing.T, dir string, reg Registrar) *Watcher {
	t.Helper()
	w, err := New(dir, fs.NewOSFilesystemManager(nil), reg, shield.NewNopLogger(), 50*time.Millisecond)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Run() error = %v", err)
		}
	})

	// give the watcher time to add the directory before files appear
	time.Sleep(100 * time.Millisecond)
	return w
}

func nextResult(t *testing.T, w *Watcher) Result {
	t.Helper()
	select {
	case r := <-w.Results():
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for registration")
		return Result{}
	}
}

func TestWatcher_RegistersNewImages(t *testing.T) {
	dir := t.TempDir()
	reg := &fakeRegistrar{}
	w := startWatcher(t, dir, reg)

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".hidden.png"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	png := testutil.EncodePNG(t, testutil.GradientImage(16, 16, 0))
	if err := os.WriteFile(filepath.Join(dir, "cat.png"), png, 0644); err != nil {
		t.Fatal(err)
	}

	// ignored files produce no result
	registered := nextResult(t, w)
	if registered.Err != nil || registered.Asset == nil {
		t.Fatalf("unexpected result: %+v", registered)
	}
	if filepath.Base(registered.Path) != "cat.png" {
		t.Errorf("registered %q, want cat.png", registered.Path)
	}

	paths := reg.registered()
	if len(paths) != 1 || filepath.Base(paths[0]) != "cat.png" {
		t.Errorf("registrar saw %v, want only cat.png", paths)
	}
}

func TestWatcher_ReportsFailures(t *testing.T) {
	dir := t.TempDir()
	reg := &fakeRegistrar{fail: map[string]error{"bad.png": errors.New("decoding image: garbage")}}
	w := startWatcher(t, dir, reg)

	if err := os.WriteFile(filepath.Join(dir, "bad.png"), []byte("garbage"), 0644); err != nil {
		t.Fatal(err)
	}

	r := nextResult(t, w)
	if r.Err == nil {
		t.Fatalf("result = %+v, want error", r)
	}
	if filepath.Base(r.Path) != "bad.png" {
		t.Errorf("Path = %q, want bad.png", r.Path)
	}
}

func TestWatcher_Run_Errors(t *testing.T) {
	t.Run("missing inbox", func(t *testing.T) {
		w, err := New(filepath.Join(t.TempDir(), "nope"), fs.NewOSFilesystemManager(nil), &fakeRegistrar{}, shield.NewNopLogger(), 0)
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if err := w.Run(context.Background()); err == nil {
			t.Error("Run() expected error for missing inbox")
		}
	})

	t.Run("inbox is a file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file.png")
		if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		w, err := New(file, fs.NewOSFilesystemManager(nil), &fakeRegistrar{}, shield.NewNopLogger(), 0)
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if err := w.Run(context.Background()); err == nil {
			t.Error("Run() expected error for file inbox")
		}
	})
}
