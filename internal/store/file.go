package store

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// FileStore writes bundles to a local directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a store rooted at dir. The directory is created on first write.
func NewFileStore(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("directory is required")
	}

	return &FileStore{dir: dir}, nil
}

// Dir returns the root directory of the store.
func (s *FileStore) Dir() string {
	return s.dir
}

// Put writes body to <dir>/<name> through a temporary file so readers never see partial bundles.
func (s *FileStore) Put(ctx context.Context, name string, body io.Reader, size int64) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", errors.Wrapf(ErrNameMustBeSet, "invalid name %q", name)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	err := os.MkdirAll(s.dir, 0o755)
	if err != nil {
		return "", errors.Wrapf(err, "unable to create %s", s.dir)
	}

	tmp, err := os.CreateTemp(s.dir, "."+name+".*")
	if err != nil {
		return "", errors.Wrap(err, "unable to create temporary file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // already renamed on success

	written, err := io.Copy(tmp, body)
	if err != nil {
		tmp.Close()

		return "", errors.Wrapf(err, "unable to write %s", name)
	}
	err = tmp.Close()
	if err != nil {
		return "", errors.Wrapf(err, "unable to close %s", name)
	}
	if size >= 0 && written != size {
		return "", errors.Errorf("%s: wrote %d bytes, expected %d", name, written, size)
	}

	target := filepath.Join(s.dir, name)
	err = os.Rename(tmp.Name(), target)
	if err != nil {
		return "", errors.Wrapf(err, "unable to move %s into place", name)
	}

	return target, nil
}
