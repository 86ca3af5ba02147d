package geo

import (
	"context"
	"errors"
	"time"

	"github.com/prodair/fieldinstall/internal/domain"
)

// Options mirror the one-shot position query parameters of the form.
type Options struct {
	Timeout      time.Duration
	MaxCacheAge  time.Duration
	HighAccuracy bool
}

// DefaultOptions are the values the installation form has always used.
var DefaultOptions = Options{
	Timeout:      10 * time.Second,
	MaxCacheAge:  60 * time.Second,
	HighAccuracy: true,
}

// Provider answers a single position query. It resolves exactly once with a
// location or an *Error and never retries on its own.
type Provider interface {
	Locate(ctx context.Context, opts Options) (domain.Location, error)
}

type ErrorKind int

const (
	PermissionDenied ErrorKind = iota + 1
	PositionUnavailable
	Timeout
	Unsupported
)

func (k ErrorKind) String() string {
	switch k {
	case PermissionDenied:
		return "permission_denied"
	case PositionUnavailable:
		return "position_unavailable"
	case Timeout:
		return "timeout"
	case Unsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// Message is the operator-facing text shown next to the location block.
func (k ErrorKind) Message() string {
	switch k {
	case PermissionDenied:
		return "Permission de géolocalisation refusée"
	case PositionUnavailable:
		return "Position non disponible"
	case Timeout:
		return "Délai de géolocalisation dépassé"
	case Unsupported:
		return "La géolocalisation n'est pas supportée par cet appareil"
	default:
		return "Erreur de géolocalisation"
	}
}

type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the error kind, defaulting to PositionUnavailable for
// errors that did not come from a provider.
func KindOf(err error) ErrorKind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return PositionUnavailable
}

// Static always reports the same fix. Useful on a bench without a receiver.
type Static struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
	Now       func() time.Time
}

func (s *Static) Locate(_ context.Context, _ Options) (domain.Location, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	loc := domain.Location{
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
		Timestamp: now().UnixMilli(),
	}
	if s.Accuracy > 0 {
		acc := s.Accuracy
		loc.Accuracy = &acc
	}
	return loc, nil
}

// Unavailable is used when no position source is configured.
type Unavailable struct{}

func (Unavailable) Locate(_ context.Context, _ Options) (domain.Location, error) {
	return domain.Location{}, &Error{Kind: Unsupported}
}
