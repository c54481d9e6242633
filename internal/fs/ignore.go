package fs

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// IgnoreFileName is the per-directory ignore file consulted during bulk registration.
const IgnoreFileName = ".shieldignore"

// defaultIgnorePatterns are always applied regardless of config or ignore files.
var defaultIgnorePatterns = []string{IgnoreFileName, ".*"}

type patternKind int

const (
	matchBase patternKind = iota // no '/': match the basename
	matchPath                    // contains '/': match the whole relative path
	matchDir                     // trailing '/': match any directory component
)

type ignorePattern struct {
	pattern string
	kind    patternKind
}

// IgnoreMatcher checks relative paths against ignore patterns.
//
//	*.psd      basename match anywhere
//	raw/*.png  match against the path relative to the registration root
//	drafts/    ignore everything below any directory named drafts
type IgnoreMatcher struct {
	patterns []ignorePattern
}

// NewIgnoreMatcher creates an IgnoreMatcher from raw pattern strings.
// Blank lines and lines starting with '#' are skipped.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	var patterns []ignorePattern
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		switch {
		case strings.HasSuffix(raw, "/"):
			patterns = append(patterns, ignorePattern{pattern: strings.TrimSuffix(raw, "/"), kind: matchDir})
		case strings.Contains(raw, "/"):
			patterns = append(patterns, ignorePattern{pattern: raw, kind: matchPath})
		default:
			patterns = append(patterns, ignorePattern{pattern: raw, kind: matchBase})
		}
	}
	return &IgnoreMatcher{patterns: patterns}
}

// Match reports whether relativePath should be ignored.
func (m *IgnoreMatcher) Match(relativePath string) bool {
	normalized := filepath.ToSlash(relativePath)
	parts := strings.Split(normalized, "/")
	base := parts[len(parts)-1]

	for _, p := range m.patterns {
		switch p.kind {
		case matchBase:
			if ok, _ := filepath.Match(p.pattern, base); ok {
				return true
			}
		case matchPath:
			if ok, _ := filepath.Match(p.pattern, normalized); ok {
				return true
			}
		case matchDir:
			for _, dir := range parts[:len(parts)-1] {
				if ok, _ := filepath.Match(p.pattern, dir); ok {
					return true
				}
			}
		}
	}
	return false
}

// ParseIgnoreFile reads an ignore file and returns the raw pattern strings.
// Returns nil and no error if the file does not exist.
func ParseIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return patterns, nil
}
