// Package storage defines the vault file-system abstraction.
package storage

import "github.com/fleetingnotes/fleeting-sync/internal/models"

// Provider is the interface for vault file operations. All paths are
// relative to the vault root and use forward slashes.
type Provider interface {
	// List walks dir and returns path and modification time for every
	// .md file under it.
	List(dir string) ([]models.FileInfo, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent
	// directories as needed.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath. The underlying file is renamed in
	// place, so its identity is preserved across the move.
	Move(oldPath, newPath string) error
	// Exists reports whether a file or directory exists at path.
	Exists(path string) (bool, error)
	// EnsureDir creates the directory at path (and parents) if absent.
	EnsureDir(path string) error
}
