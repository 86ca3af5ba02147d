package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/prodair/fieldinstall/internal/domain"
)

// sessionRepository is the subset of store.SessionStore that SessionService requires.
type sessionRepository interface {
	CurrentUser(ctx context.Context) (*domain.User, error)
	SetCurrentUser(ctx context.Context, user *domain.User) error
	RememberMe(ctx context.Context) (bool, error)
	SetRememberMe(ctx context.Context, remember bool) error
}

type SessionService struct {
	sessions sessionRepository
	logger   *slog.Logger
}

func NewSessionService(sessions sessionRepository, logger *slog.Logger) *SessionService {
	return &SessionService{sessions: sessions, logger: logger}
}

func (s *SessionService) Login(ctx context.Context, name string, remember bool) (*domain.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Fields: []string{"name"}}
	}

	user := &domain.User{ID: uuid.NewString(), Name: name}
	if err := s.sessions.SetCurrentUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to store user: %w", err)
	}
	if err := s.sessions.SetRememberMe(ctx, remember); err != nil {
		return nil, fmt.Errorf("failed to store remember-me: %w", err)
	}
	s.logger.Info("user logged in", "user", name, "remember", remember)
	return user, nil
}

func (s *SessionService) Logout(ctx context.Context) error {
	if err := s.sessions.SetCurrentUser(ctx, nil); err != nil {
		return fmt.Errorf("failed to clear user: %w", err)
	}
	if err := s.sessions.SetRememberMe(ctx, false); err != nil {
		return fmt.Errorf("failed to clear remember-me: %w", err)
	}
	s.logger.Info("user logged out")
	return nil
}

// Current returns the logged-in user, or nil.
func (s *SessionService) Current(ctx context.Context) (*domain.User, error) {
	return s.sessions.CurrentUser(ctx)
}

// Restore runs at startup. The stored user survives a restart only when
// remember-me was set; otherwise it is cleared and nil is returned.
func (s *SessionService) Restore(ctx context.Context) (*domain.User, error) {
	remember, err := s.sessions.RememberMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read remember-me: %w", err)
	}
	if !remember {
		if err := s.sessions.SetCurrentUser(ctx, nil); err != nil {
			return nil, fmt.Errorf("failed to clear user: %w", err)
		}
		return nil, nil
	}

	user, err := s.sessions.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if user != nil {
		s.logger.Info("session restored", "user", user.Name)
	}
	return user, nil
}
