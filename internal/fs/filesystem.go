package fs

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"shield-go/internal/shield"
)

// OSFilesystemManager is the real filesystem implementation of FilesystemManager.
// Ignore rules combine the built-in defaults, configured patterns and the
// .shieldignore file at the registration root.
type OSFilesystemManager struct {
	patterns []string

	mu       sync.Mutex
	matchers map[string]*IgnoreMatcher // registration root -> matcher
}

// NewOSFilesystemManager creates a filesystem manager with the given configured ignore patterns.
func NewOSFilesystemManager(ignorePatterns []string) *OSFilesystemManager {
	return &OSFilesystemManager{
		patterns: ignorePatterns,
		matchers: make(map[string]*IgnoreMatcher),
	}
}

// Resolve validates a raw path and returns a Path object.
func (m *OSFilesystemManager) Resolve(rawPath string) (*shield.Path, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat path: %w", err)
	}

	mode := info.Mode()
	if !mode.IsRegular() && !mode.IsDir() {
		return nil, fmt.Errorf("not a regular file or directory: %s", absPath)
	}

	return shield.NewPath(absPath, info.IsDir(), info), nil
}

// Open opens a file for reading.
func (m *OSFilesystemManager) Open(path *shield.Path) (io.ReadCloser, error) {
	if path.IsDir() {
		return nil, fmt.Errorf("cannot open directory as file: %s", path.String())
	}
	return os.Open(path.String())
}

// FindFiles discovers regular files under the given directory path.
// Directories matched by ignore rules are not descended into.
func (m *OSFilesystemManager) FindFiles(path *shield.Path, recursive bool) ([]*shield.Path, error) {
	if !path.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", path.String())
	}
	root := path.String()

	matcher, err := m.matcherFor(root)
	if err != nil {
		return nil, err
	}

	var paths []*shield.Path
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		if d.IsDir() {
			if !recursive {
				return filepath.SkipDir
			}
			rel, _ := filepath.Rel(root, p)
			if matcher.Match(rel + "/") || matcher.Match(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", p, err)
		}
		paths = append(paths, shield.NewPath(p, false, info))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return paths, nil
}

// IsIgnored reports whether path is excluded by the ignore rules in effect for root.
func (m *OSFilesystemManager) IsIgnored(path *shield.Path, root string) (bool, error) {
	rel, err := filepath.Rel(root, path.String())
	if err != nil {
		return false, fmt.Errorf("calculating relative path: %w", err)
	}

	matcher, err := m.matcherFor(root)
	if err != nil {
		return false, err
	}
	return matcher.Match(rel), nil
}

func (m *OSFilesystemManager) matcherFor(root string) (*IgnoreMatcher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if matcher, ok := m.matchers[root]; ok {
		return matcher, nil
	}

	filePatterns, err := ParseIgnoreFile(filepath.Join(root, IgnoreFileName))
	if err != nil {
		return nil, err
	}

	all := make([]string, 0, len(defaultIgnorePatterns)+len(m.patterns)+len(filePatterns))
	all = append(all, defaultIgnorePatterns...)
	all = append(all, m.patterns...)
	all = append(all, filePatterns...)

	matcher := NewIgnoreMatcher(all)
	m.matchers[root] = matcher
	return matcher, nil
}

// Compile-time check that OSFilesystemManager implements shield.FilesystemManager interface
var _ shield.FilesystemManager = (*OSFilesystemManager)(nil)
