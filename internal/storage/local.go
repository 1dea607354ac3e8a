package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Local stores blobs as flat files under one directory.
type Local struct {
	root string
}

func NewLocal(dir string) (*Local, error) {
	if dir == "" {
		dir = "uploads"
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrap(err, "resolve upload directory")
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, errors.Wrap(err, "create upload directory")
	}
	return &Local{root: abs}, nil
}

func (l *Local) path(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	p := filepath.Join(l.root, key)
	if filepath.Dir(p) != l.root {
		return "", errors.Wrapf(ErrInvalidKey, "key %q", key)
	}
	return p, nil
}

func (l *Local) Save(ctx context.Context, originalName, contentType string, r io.Reader, size int64) (string, error) {
	key := NewKey(originalName)
	p, err := l.path(key)
	if err != nil {
		return "", err
	}

	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", errors.Wrap(err, "create blob file")
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(p)
		return "", errors.Wrap(err, "write blob file")
	}
	if err := f.Close(); err != nil {
		os.Remove(p)
		return "", errors.Wrap(err, "close blob file")
	}
	return key, nil
}

func (l *Local) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	p, err := l.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "open blob file")
	}
	return f, nil
}

func (l *Local) Delete(ctx context.Context, key string) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove blob file")
	}
	return nil
}

func (l *Local) Exists(ctx context.Context, key string) (bool, error) {
	p, err := l.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, errors.Wrap(err, "stat blob file")
}

func (l *Local) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil, errors.Wrap(err, "list upload directory")
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			keys = append(keys, e.Name())
		}
	}
	return keys, nil
}
