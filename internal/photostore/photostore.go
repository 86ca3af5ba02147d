package photostore

import (
	"context"
	"errors"
	"io"
)

var (
	ErrNotFound   = errors.New("photo not found")
	ErrInvalidKey = errors.New("invalid photo key")
)

// PhotoStore keeps a device-side copy of captured photos under their
// generated file names.
type PhotoStore interface {
	Save(ctx context.Context, name, mimeType string, r io.Reader) (storageKey string, err error)
	// Get returns ErrNotFound for an unknown key.
	Get(ctx context.Context, storageKey string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, storageKey string) error
}
