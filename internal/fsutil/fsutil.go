// Package fsutil has small filesystem helpers.
package fsutil

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// WriteFileAtomic writes data to a temp file in the target directory and
// renames it over path, so readers never observe a partial file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "fsutil: create dir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return eris.Wrap(err, "fsutil: create temp file")
	}
	name := tmp.Name()
	defer os.Remove(name) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return eris.Wrap(err, "fsutil: write temp file")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "fsutil: close temp file")
	}
	if err := os.Chmod(name, perm); err != nil {
		return eris.Wrap(err, "fsutil: chmod temp file")
	}
	if err := os.Rename(name, path); err != nil {
		return eris.Wrapf(err, "fsutil: rename into %s", path)
	}
	return nil
}
