package store

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/prodair/fieldinstall/internal/domain"
)

// SessionStore persists the logged-in operator and the remember-me flag as
// two independent entries.
type SessionStore struct {
	blobs  BlobStore
	logger *slog.Logger
}

func NewSessionStore(blobs BlobStore, logger *slog.Logger) *SessionStore {
	return &SessionStore{blobs: blobs, logger: logger}
}

func (s *SessionStore) CurrentUser(ctx context.Context) (*domain.User, error) {
	raw, found, err := s.blobs.Get(ctx, KeyCurrentUser)
	if err != nil {
		return nil, &StorageError{Op: "read", Key: KeyCurrentUser, Err: err}
	}
	if !found || len(raw) == 0 {
		return nil, nil
	}

	var user *domain.User
	if err := json.Unmarshal(raw, &user); err != nil {
		s.logger.Warn("stored user is malformed, ignoring", "error", err)
		return nil, nil
	}
	return user, nil
}

// SetCurrentUser stores user, or clears the entry when user is nil.
func (s *SessionStore) SetCurrentUser(ctx context.Context, user *domain.User) error {
	if user == nil {
		if err := s.blobs.Delete(ctx, KeyCurrentUser); err != nil {
			return &StorageError{Op: "delete", Key: KeyCurrentUser, Err: err}
		}
		return nil
	}

	data, err := json.Marshal(user)
	if err != nil {
		return &StorageError{Op: "encode", Key: KeyCurrentUser, Err: err}
	}
	if err := s.blobs.Put(ctx, KeyCurrentUser, data); err != nil {
		return &StorageError{Op: "write", Key: KeyCurrentUser, Err: err}
	}
	return nil
}

func (s *SessionStore) RememberMe(ctx context.Context) (bool, error) {
	raw, found, err := s.blobs.Get(ctx, KeyRememberMe)
	if err != nil {
		return false, &StorageError{Op: "read", Key: KeyRememberMe, Err: err}
	}
	return found && string(raw) == "true", nil
}

func (s *SessionStore) SetRememberMe(ctx context.Context, remember bool) error {
	value := "false"
	if remember {
		value = "true"
	}
	if err := s.blobs.Put(ctx, KeyRememberMe, []byte(value)); err != nil {
		return &StorageError{Op: "write", Key: KeyRememberMe, Err: err}
	}
	return nil
}
