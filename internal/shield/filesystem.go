package shield

import "io"

// FilesystemManager abstracts access to the images being registered so the
// registration flow can be tested without touching the real filesystem.
type FilesystemManager interface {
	// Resolve makes rawPath absolute, stats it and rejects anything that is
	// not a regular file or directory.
	Resolve(rawPath string) (*Path, error)

	// Open opens a file for reading.
	Open(path *Path) (io.ReadCloser, error)

	// FindFiles lists regular files under a directory.
	FindFiles(path *Path, recursive bool) ([]*Path, error)

	// IsIgnored reports whether path is excluded by ignore rules relative to root.
	IsIgnored(path *Path, root string) (bool, error)
}
