package geo

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prodair/fieldinstall/internal/domain"
)

// Tracker holds the last known location for the form. Every request or
// client report takes a new generation; a provider answer is applied only if
// its generation is still the newest, so a slow stale answer never replaces
// a fresher one.
type Tracker struct {
	provider Provider
	opts     Options
	logger   *slog.Logger

	mu         sync.Mutex
	generation uint64
	last       *domain.Location
	lastErr    error
	pending    int
}

func NewTracker(provider Provider, opts Options, logger *slog.Logger) *Tracker {
	return &Tracker{provider: provider, opts: opts, logger: logger}
}

// Refresh queries the provider once. The result is returned even when a newer
// request has superseded it; applied reports whether it became current.
func (t *Tracker) Refresh(ctx context.Context) (loc domain.Location, applied bool, err error) {
	t.mu.Lock()
	t.generation++
	gen := t.generation
	t.pending++
	t.mu.Unlock()

	loc, err = t.provider.Locate(ctx, t.opts)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending--
	if gen != t.generation {
		t.logger.Debug("discarding stale location answer", "generation", gen, "current", t.generation)
		return loc, false, err
	}
	if err != nil {
		t.lastErr = err
		return loc, true, err
	}
	t.last = &loc
	t.lastErr = nil
	return loc, true, nil
}

// Report applies a fix obtained by the client itself.
func (t *Tracker) Report(loc domain.Location) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.generation++
	t.last = &loc
	t.lastErr = nil
}

// Last returns a copy of the sticky location, or nil.
func (t *Tracker) Last() *domain.Location {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		return nil
	}
	loc := *t.last
	if loc.Accuracy != nil {
		acc := *loc.Accuracy
		loc.Accuracy = &acc
	}
	return &loc
}

// LastError is the error of the newest completed request, if it failed.
func (t *Tracker) LastError() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

// Pending reports whether a request is still in flight.
func (t *Tracker) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending > 0
}
