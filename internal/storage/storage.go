// Package storage holds uploaded file blobs. Keys are opaque to callers.
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/huangang/projecthub/internal/config"
)

var (
	ErrNotFound   = errors.New("blob not found")
	ErrInvalidKey = errors.New("invalid storage key")
)

type Storage interface {
	// Save stores r and returns the key to fetch it with.
	Save(ctx context.Context, originalName, contentType string, r io.Reader, size int64) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	List(ctx context.Context) ([]string, error)
}

// New builds the backend selected by cfg.Driver.
func New(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocal(cfg.LocalDir)
	case "minio":
		return NewMinio(ctx, cfg.Minio)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

// NewKey produces "<uuid>_<sanitized name>".
func NewKey(originalName string) string {
	return uuid.NewString() + "_" + SanitizeFileName(originalName)
}

// SanitizeFileName keeps the base name and replaces anything outside
// [A-Za-z0-9._-] with an underscore.
func SanitizeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "file"
	}
	if len(out) > 200 {
		out = out[len(out)-200:]
	}
	return out
}

// ValidateKey rejects keys that could escape the storage root.
func ValidateKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return errors.Wrapf(ErrInvalidKey, "key %q", key)
	}
	return nil
}
