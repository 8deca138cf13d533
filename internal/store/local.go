package store

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// LocalStore keeps documents on the filesystem under Root. Keys are paths
// relative to Root; absolute keys are used as they are.
type LocalStore struct {
	Root string
}

// NewLocal returns a LocalStore rooted at root.
func NewLocal(root string) *LocalStore {
	return &LocalStore{Root: root}
}

func (s *LocalStore) path(key string) string {
	if filepath.IsAbs(key) || s.Root == "" {
		return filepath.FromSlash(key)
	}
	return filepath.Join(s.Root, filepath.FromSlash(key))
}

func (s *LocalStore) Exists(_ context.Context, key string) (bool, error) {
	st, err := os.Stat(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "local: stat %s", key)
	}
	return !st.IsDir(), nil
}

func (s *LocalStore) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "local: read %s", key)
	}
	return data, nil
}

func (s *LocalStore) Put(_ context.Context, localFile, key string) error {
	data, err := os.ReadFile(localFile)
	if err != nil {
		return eris.Wrapf(err, "local: read %s", localFile)
	}
	dst := s.path(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return eris.Wrapf(err, "local: mkdir for %s", key)
	}

	// Write beside dst and rename so readers never see a partial document.
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return eris.Wrapf(err, "local: create temp for %s", key)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return eris.Wrapf(err, "local: write %s", key)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return eris.Wrapf(err, "local: sync %s", key)
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrapf(err, "local: close %s", key)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return eris.Wrapf(err, "local: chmod %s", key)
	}
	return eris.Wrapf(os.Rename(tmpName, dst), "local: rename %s", key)
}

func (s *LocalStore) Close() error { return nil }
