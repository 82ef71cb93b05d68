// Package storage writes export outputs and scene files under a root directory.
package storage

import "time"

// FileInfo describes one file below the root.
type FileInfo struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the file surface the exporter and the scene loader need. Paths
// are slash-separated and relative to Root.
type Provider interface {
	Root() string
	// List fingerprints every regular file under dir whose name ends with
	// one of exts (all files when exts is empty).
	List(dir string, exts ...string) ([]FileInfo, error)
	// Stat fingerprints a single file.
	Stat(path string) (FileInfo, error)
	Read(path string) ([]byte, error)
	// Write replaces path atomically, creating parent directories.
	Write(path string, content []byte) error
}
