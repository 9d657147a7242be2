// Package storage defines the root-confined file-system abstraction used by
// the manifest store and the file vault.
package storage

import (
	"io"
	"os"
)

// Provider is the interface for file operations relative to a root directory.
type Provider interface {
	// Root returns the absolute root directory.
	Root() string
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the file at path with content.
	Write(path string, content []byte) error
	// Create opens path for writing and fails if it already exists.
	Create(path string) (*os.File, error)
	// Open returns a reader for the file at path.
	Open(path string) (io.ReadSeekCloser, os.FileInfo, error)
	// Exists reports whether path names an existing entry.
	Exists(path string) (bool, error)
	// Delete removes the file at path.
	Delete(path string) error
}

var _ Provider = (*FS)(nil)
