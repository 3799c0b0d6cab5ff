// Package fileutil provides filesystem helpers shared across the elan
// codebase.
package fileutil

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"

	cerrors "github.com/tierline/elan/core/errors"
)

// WriteFileAtomic writes data to path without ever exposing a partially
// written file: the bytes land in a uniquely named sibling temp file which
// is then renamed over the target. Rename is atomic on the same filesystem,
// which the sibling placement guarantees.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")

	if err := os.WriteFile(tmp, data, perm); err != nil {
		return cerrors.NewIO("write", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return cerrors.NewIO("rename", path, err)
	}
	return nil
}

// Exists reports whether path names an existing file or directory.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// EnsureDir creates the directory (and parents) if missing.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return cerrors.NewIO("create directory", path, err)
	}
	return nil
}
