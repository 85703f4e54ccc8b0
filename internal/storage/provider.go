// Package storage defines the archive file-system abstraction.
package storage

// Provider is the interface for archive file operations. Paths are relative
// to the archive root.
type Provider interface {
	// List returns the names of the regular files directly inside dir.
	List(dir string) ([]string, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Create writes content to a new file at path. It fails with an error
	// wrapping fs.ErrExist if path already exists and never leaves a
	// partially written file behind.
	Create(path string, content []byte) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
	// Exists reports whether a file exists at path.
	Exists(path string) (bool, error)
	// Abs returns the absolute file-system path for path.
	Abs(path string) (string, error)
}
