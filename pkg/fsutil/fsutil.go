// Package fsutil wraps file reads and writes in advisory file locks so that two
// post-render hooks touching the same output tree never interleave writes.
package fsutil

import (
	"bytes"
	"io/fs"
	"os"

	"github.com/pkg/errors"
	"github.com/rogpeppe/go-internal/lockedfile"
)

// DefaultFileMode is used for files created from scratch.
const DefaultFileMode fs.FileMode = 0o644

// ReadFile reads path under a shared lock. A missing file is an error.
func ReadFile(path string) ([]byte, error) {
	data, err := lockedfile.Read(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	return data, nil
}

// WriteFile creates or truncates path under an exclusive lock and writes data.
func WriteFile(path string, data []byte, perm fs.FileMode) error {
	if err := lockedfile.Write(path, bytes.NewReader(data), perm); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

// ReplaceFile overwrites an existing file in place, keeping its permission bits.
func ReplaceFile(path string, data []byte) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrapf(err, "failed to stat %s", path)
	}
	return WriteFile(path, data, info.Mode().Perm())
}
