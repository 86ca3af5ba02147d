package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/prodair/fieldinstall/internal/domain"
)

const (
	KeyInstallations = "installations"
	KeyCurrentUser   = "current_user"
	KeyRememberMe    = "remember_me"
)

// InstallationStore is the append-only record collection, persisted as one
// JSON array under KeyInstallations.
type InstallationStore struct {
	blobs  BlobStore
	logger *slog.Logger
	now    func() time.Time
}

func NewInstallationStore(blobs BlobStore, logger *slog.Logger) *InstallationStore {
	return &InstallationStore{blobs: blobs, logger: logger, now: time.Now}
}

// List returns every record in insertion order. Malformed stored data is
// reported as an empty collection.
func (s *InstallationStore) List(ctx context.Context) ([]*domain.Installation, error) {
	records, _, _, err := s.load(ctx)
	return records, err
}

// Get returns the record with the given id, or nil.
func (s *InstallationStore) Get(ctx context.Context, id string) (*domain.Installation, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

// Append reads the full collection, appends rec and writes it back.
func (s *InstallationStore) Append(ctx context.Context, rec *domain.Installation) error {
	records, raw, malformed, err := s.load(ctx)
	if err != nil {
		return err
	}

	// Keep a malformed blob aside instead of overwriting it with the new
	// collection.
	if malformed {
		backupKey := fmt.Sprintf("%s.corrupt.%d", KeyInstallations, s.now().Unix())
		if err := s.blobs.Put(ctx, backupKey, raw); err != nil {
			return &StorageError{Op: "backup", Key: backupKey, Err: err}
		}
		s.logger.Warn("preserved unreadable installations blob", "backup_key", backupKey, "bytes", len(raw))
	}

	records = append(records, rec)
	data, err := json.Marshal(records)
	if err != nil {
		return &StorageError{Op: "encode", Key: KeyInstallations, Err: err}
	}
	if err := s.blobs.Put(ctx, KeyInstallations, data); err != nil {
		return &StorageError{Op: "write", Key: KeyInstallations, Err: err}
	}

	s.logger.Debug("installation appended", "id", rec.ID, "total", len(records))
	return nil
}

// load decodes the stored collection. malformed reports that the blob could
// not be used as is: either it is not a JSON array of records or some of its
// elements are null. Null elements are dropped.
func (s *InstallationStore) load(ctx context.Context) (records []*domain.Installation, raw []byte, malformed bool, err error) {
	raw, found, err := s.blobs.Get(ctx, KeyInstallations)
	if err != nil {
		return nil, nil, false, &StorageError{Op: "read", Key: KeyInstallations, Err: err}
	}
	if !found || len(bytes.TrimSpace(raw)) == 0 {
		return []*domain.Installation{}, raw, false, nil
	}

	var decoded []*domain.Installation
	if err := json.Unmarshal(raw, &decoded); err != nil {
		s.logger.Warn("stored installations are malformed, treating as empty", "error", err)
		return []*domain.Installation{}, raw, true, nil
	}

	records = make([]*domain.Installation, 0, len(decoded))
	for _, r := range decoded {
		if r != nil {
			records = append(records, r)
		}
	}
	if dropped := len(decoded) - len(records); dropped > 0 {
		s.logger.Warn("dropped null entries from stored installations", "dropped", dropped)
		malformed = true
	}
	return records, raw, malformed, nil
}
