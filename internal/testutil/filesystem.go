package testutil

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"shield-go/internal/shield"
)

// MockFile represents a file in the mock filesystem.
type MockFile struct {
	Content     []byte
	Permissions fs.FileMode
	ModTime     time.Time
	IsDirectory bool
}

// MockFilesystemManager is an in-memory filesystem for testing.
// Paths are stored absolute; parent directories are created implicitly.
type MockFilesystemManager struct {
	mu      sync.RWMutex
	files   map[string]*MockFile
	ignored []string
}

// NewMockFilesystemManager creates a new mock filesystem.
func NewMockFilesystemManager() *MockFilesystemManager {
	return &MockFilesystemManager{
		files: make(map[string]*MockFile),
	}
}

// AddFile adds a file to the mock filesystem.
func (m *MockFilesystemManager) AddFile(path string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addParents(path)
	m.files[path] = &MockFile{
		Content:     content,
		Permissions: 0644,
		ModTime:     time.Now(),
	}
}

// AddDirectory adds a directory to the mock filesystem.
func (m *MockFilesystemManager) AddDirectory(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addParents(path)
	m.files[path] = &MockFile{
		Permissions: 0755,
		ModTime:     time.Now(),
		IsDirectory: true,
	}
}

// Ignore adds a base-name glob (filepath.Match syntax) that IsIgnored honours.
func (m *MockFilesystemManager) Ignore(pattern string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ignored = append(m.ignored, pattern)
}

func (m *MockFilesystemManager) addParents(path string) {
	for dir := filepath.Dir(path); dir != "/" && dir != "."; dir = filepath.Dir(dir) {
		if _, ok := m.files[dir]; ok {
			continue
		}
		m.files[dir] = &MockFile{Permissions: 0755, ModTime: time.Now(), IsDirectory: true}
	}
}

func (m *MockFilesystemManager) Resolve(rawPath string) (*shield.Path, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.resolveLocked(absPath)
}

func (m *MockFilesystemManager) resolveLocked(absPath string) (*shield.Path, error) {
	file, ok := m.files[absPath]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", absPath)
	}

	info := &mockFileInfo{
		name:    filepath.Base(absPath),
		size:    int64(len(file.Content)),
		mode:    file.Permissions,
		modTime: file.ModTime,
		isDir:   file.IsDirectory,
	}
	return shield.NewPath(absPath, file.IsDirectory, info), nil
}

func (m *MockFilesystemManager) Open(path *shield.Path) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	file, ok := m.files[path.String()]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path.String())
	}
	if file.IsDirectory {
		return nil, fmt.Errorf("cannot open directory: %s", path.String())
	}
	return io.NopCloser(bytes.NewReader(file.Content)), nil
}

// FindFiles returns regular files under path in lexical order.
func (m *MockFilesystemManager) FindFiles(path *shield.Path, recursive bool) ([]*shield.Path, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	root := path.String()
	prefix := strings.TrimSuffix(root, "/") + "/"

	var names []string
	for name, file := range m.files {
		if file.IsDirectory || !strings.HasPrefix(name, prefix) {
			continue
		}
		if !recursive && filepath.Dir(name) != root {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]*shield.Path, 0, len(names))
	for _, name := range names {
		p, err := m.resolveLocked(name)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, nil
}

func (m *MockFilesystemManager) IsIgnored(path *shield.Path, root string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	base := filepath.Base(path.String())
	for _, pattern := range m.ignored {
		ok, err := filepath.Match(pattern, base)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// mockFileInfo implements fs.FileInfo
type mockFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
	isDir   bool
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return m.size }
func (m *mockFileInfo) Mode() fs.FileMode  { return m.mode }
func (m *mockFileInfo) ModTime() time.Time { return m.modTime }
func (m *mockFileInfo) IsDir() bool        { return m.isDir }
func (m *mockFileInfo) Sys() any           { return nil }

// Compile-time check
var _ shield.FilesystemManager = (*MockFilesystemManager)(nil)
