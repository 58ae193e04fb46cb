package session

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// FileBackend stores each key as a file in a directory. Writes go through a
// temporary file and a rename so a crash never leaves a half-written value.
type FileBackend struct {
	dir string
}

var _ Backend = (*FileBackend)(nil)

// NewFileBackend creates dir if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "NewFileBackend MkdirAll")
	}
	return &FileBackend{dir: dir}, nil
}

func (b *FileBackend) Dir() string {
	return b.dir
}

func (b *FileBackend) Get(key string) (string, bool, error) {
	path, err := b.path(key)
	if err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "FileBackend.Get ReadFile")
	}
	return string(data), true, nil
}

func (b *FileBackend) Set(key, value string) error {
	path, err := b.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(b.dir, "."+key+".*")
	if err != nil {
		return errors.Wrap(err, "FileBackend.Set CreateTemp")
	}
	defer os.Remove(tmp.Name()) // no-op once renamed

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return errors.Wrap(err, "FileBackend.Set Chmod")
	}
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		return errors.Wrap(err, "FileBackend.Set Write")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "FileBackend.Set Sync")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "FileBackend.Set Close")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(err, "FileBackend.Set Rename")
	}
	return nil
}

func (b *FileBackend) Remove(key string) error {
	path, err := b.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(err, "FileBackend.Remove")
	}
	return nil
}

func (b *FileBackend) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") {
		return "", errors.Errorf("invalid session key %q", key)
	}
	return filepath.Join(b.dir, key), nil
}
