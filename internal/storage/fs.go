package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/magebay99/multiexporter-hack/internal/checksum"
)

// tmpPrefix marks in-flight writes; List skips them.
const tmpPrefix = ".mx-tmp-"

// FS implements Provider on the local file system.
type FS struct {
	root string // absolute
}

var _ Provider = (*FS)(nil)

// NewFS returns an FS rooted at an existing directory.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// EnsureFS creates root (and parents) when missing and returns an FS on it.
func EnsureFS(root string) (*FS, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: mkdir root: %w", err)
	}
	return NewFS(root)
}

func (f *FS) Root() string { return f.root }

// resolve maps rel onto the root. Absolute paths and paths that climb out
// of the root are rejected.
func (f *FS) resolve(rel string) (string, error) {
	if rel == "" || rel == "." {
		return f.root, nil
	}
	local := filepath.FromSlash(rel)
	if filepath.IsAbs(local) || !filepath.IsLocal(local) {
		return "", fmt.Errorf("storage: path outside root: %s", rel)
	}
	return filepath.Join(f.root, local), nil
}

func (f *FS) describe(abs string, info fs.FileInfo) (FileInfo, error) {
	data, err := os.ReadFile(abs)
	if err != nil {
		return FileInfo{}, err
	}
	rel, err := filepath.Rel(f.root, abs)
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{
		Path:      filepath.ToSlash(rel),
		Size:      info.Size(),
		Checksum:  checksum.Sum(data),
		UpdatedAt: info.ModTime(),
	}, nil
}

func (f *FS) List(dir string, exts ...string) ([]FileInfo, error) {
	base, err := f.resolve(dir)
	if err != nil {
		return nil, err
	}
	var out []FileInfo
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		switch {
		case walkErr != nil:
			return walkErr
		case d.IsDir(), strings.HasPrefix(d.Name(), tmpPrefix), !matchExt(d.Name(), exts):
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		fi, err := f.describe(p, info)
		if err != nil {
			return err
		}
		out = append(out, fi)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", dir, err)
	}
	return out, nil
}

func matchExt(name string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := filepath.Ext(name)
	for _, e := range exts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

func (f *FS) Stat(path string) (FileInfo, error) {
	abs, err := f.resolve(path)
	if err != nil {
		return FileInfo{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return FileInfo{}, fmt.Errorf("storage: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return FileInfo{}, fmt.Errorf("storage: %s is a directory", path)
	}
	fi, err := f.describe(abs, info)
	if err != nil {
		return FileInfo{}, fmt.Errorf("storage: stat %s: %w", path, err)
	}
	return fi, nil
}

func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

func (f *FS) Write(path string, content []byte) error {
	abs, err := f.resolve(path)
	if err != nil {
		return err
	}
	if abs == f.root {
		return fmt.Errorf("storage: cannot write the root")
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}
	if err := writeAtomic(abs, content); err != nil {
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	return nil
}

// writeAtomic stages content next to dst, syncs it and renames it over dst,
// so readers see either the old file or the new one.
func writeAtomic(dst string, content []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(dst), tmpPrefix+"*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(content); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
