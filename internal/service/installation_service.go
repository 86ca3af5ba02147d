package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/prodair/fieldinstall/internal/capture"
	"github.com/prodair/fieldinstall/internal/domain"
	"github.com/prodair/fieldinstall/internal/export"
	"github.com/prodair/fieldinstall/internal/geo"
	"github.com/prodair/fieldinstall/internal/metrics"
)

// ErrNoUser is returned when an operation needs a logged-in operator.
var ErrNoUser = errors.New("no user logged in")

// installationRepository is the subset of store.InstallationStore that
// InstallationService requires.
type installationRepository interface {
	List(ctx context.Context) ([]*domain.Installation, error)
	Get(ctx context.Context, id string) (*domain.Installation, error)
	Append(ctx context.Context, rec *domain.Installation) error
}

// photoSession is the subset of capture.Session that InstallationService requires.
type photoSession interface {
	Capture(ctx context.Context, coffretCode string, files []capture.RawFile) ([]capture.Photo, []error)
	Remove(ctx context.Context, i int) error
	Clear()
	Discard(ctx context.Context)
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
	Photos() []capture.Photo
	Payloads() (photos, names []string)
}

// locationTracker is the subset of geo.Tracker that InstallationService requires.
type locationTracker interface {
	Refresh(ctx context.Context) (domain.Location, bool, error)
	Report(loc domain.Location)
	Last() *domain.Location
	LastError() error
	Pending() bool
}

// DraftPhoto is a captured photo as shown in the form.
type DraftPhoto struct {
	Index   int    `json:"index"`
	Name    string `json:"name"`
	Size    int    `json:"size"`
	DataURL string `json:"dataUrl"`
}

// Draft is the server-held part of the installation form.
type Draft struct {
	Photos          []DraftPhoto     `json:"photos"`
	Location        *domain.Location `json:"location,omitempty"`
	MapURL          string           `json:"mapUrl,omitempty"`
	LocationError   string           `json:"locationError,omitempty"`
	LocationPending bool             `json:"locationPending"`
	Zones           []string         `json:"zones"`
}

// InstallationService holds the single in-progress form and submits it.
type InstallationService struct {
	installations installationRepository
	photos        photoSession
	tracker       locationTracker
	metrics       *metrics.Metrics
	validate      *validator.Validate
	zones         []string
	logger        *slog.Logger
	now           func() time.Time

	mu     sync.Mutex
	lastID int64
}

func NewInstallationService(
	installations installationRepository,
	photos photoSession,
	tracker locationTracker,
	zones []string,
	m *metrics.Metrics,
	logger *slog.Logger,
) *InstallationService {
	return &InstallationService{
		installations: installations,
		photos:        photos,
		tracker:       tracker,
		metrics:       m,
		validate:      newValidator(zones),
		zones:         zones,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *InstallationService) Draft() Draft {
	d := Draft{
		Photos:          []DraftPhoto{},
		Location:        s.tracker.Last(),
		LocationPending: s.tracker.Pending(),
		Zones:           s.zones,
	}
	for i, p := range s.photos.Photos() {
		d.Photos = append(d.Photos, DraftPhoto{Index: i, Name: p.Name, Size: p.Size, DataURL: p.DataURL})
	}
	if d.Location != nil {
		d.MapURL = export.MapURL(d.Location)
	}
	if err := s.tracker.LastError(); err != nil {
		d.LocationError = geo.KindOf(err).Message()
	}
	return d
}

// AddPhotos captures files into the draft. Failed files are reported one
// error each and do not prevent the others from being added.
func (s *InstallationService) AddPhotos(ctx context.Context, coffretCode string, files []capture.RawFile) ([]capture.Photo, []error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added, errs := s.photos.Capture(ctx, strings.TrimSpace(coffretCode), files)
	s.metrics.Photos(len(added), len(errs))
	s.logger.Info("photos captured", "added", len(added), "failed", len(errs))
	return added, errs
}

// RemovePhoto drops one photo from the draft and deletes its device copy.
func (s *InstallationService) RemovePhoto(ctx context.Context, i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.photos.Remove(ctx, i)
}

// ClearPhotos discards every draft photo and its device copy.
func (s *InstallationService) ClearPhotos(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.photos.Discard(ctx)
}

// DevicePhoto opens the device copy saved under the photo's name.
func (s *InstallationService) DevicePhoto(ctx context.Context, name string) (io.ReadCloser, string, error) {
	return s.photos.Open(ctx, name)
}

// RefreshLocation queries the provider once. A failure is also kept on the
// draft so the form can show it with a retry.
func (s *InstallationService) RefreshLocation(ctx context.Context) (*domain.Location, error) {
	loc, applied, err := s.tracker.Refresh(ctx)
	if err != nil {
		kind := geo.KindOf(err)
		s.metrics.Location(kind.String())
		s.logger.Warn("location request failed", "kind", kind.String(), "applied", applied, "error", err)
		return nil, err
	}
	s.metrics.Location(metrics.OutcomeOK)
	if !applied {
		return s.tracker.Last(), nil
	}
	return &loc, nil
}

// ReportLocation accepts a fix obtained by the client device.
func (s *InstallationService) ReportLocation(loc domain.Location) error {
	var fields []string
	if loc.Latitude < -90 || loc.Latitude > 90 {
		fields = append(fields, "latitude")
	}
	if loc.Longitude < -180 || loc.Longitude > 180 {
		fields = append(fields, "longitude")
	}
	if loc.Accuracy != nil && *loc.Accuracy < 0 {
		fields = append(fields, "accuracy")
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	if loc.Timestamp == 0 {
		loc.Timestamp = s.now().UnixMilli()
	}
	s.tracker.Report(loc)
	s.metrics.Location(metrics.OutcomeOK)
	return nil
}

// Submit validates the form, persists the record and resets the photos.
// The location stays for the next installation. If the record cannot be
// saved the draft is left untouched so the operator can retry.
func (s *InstallationService) Submit(ctx context.Context, form domain.Form, mat domain.MaterialUsage, user *domain.User) (*domain.Installation, error) {
	if user == nil {
		return nil, ErrNoUser
	}
	form = trimForm(form)
	if err := check(s.validate, form, mat); err != nil {
		s.metrics.Submission(false)
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	photos, names := s.photos.Payloads()
	now := s.now()
	rec := Assemble(form, s.tracker.Last(), photos, names, mat, *user, now, s.nextID(now))

	if err := s.installations.Append(ctx, rec); err != nil {
		s.metrics.Submission(false)
		s.logger.Error("failed to save installation", "coffret", rec.CoffretCode, "error", err)
		return nil, fmt.Errorf("failed to save installation: %w", err)
	}

	s.photos.Clear()
	s.metrics.Submission(true)
	s.logger.Info("installation submitted", "id", rec.ID, "coffret", rec.CoffretCode, "photos", len(rec.Photos))
	return rec, nil
}

// Preview assembles an unsaved record from the draft, for sharing before
// submission. Only the coffret code is required.
func (s *InstallationService) Preview(form domain.Form, mat domain.MaterialUsage, user *domain.User) (*domain.Installation, error) {
	if user == nil {
		return nil, ErrNoUser
	}
	form = trimForm(form)
	if form.CoffretCode == "" {
		return nil, &ValidationError{Fields: []string{"coffretCode"}}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	photos, names := s.photos.Payloads()
	return Assemble(form, s.tracker.Last(), photos, names, mat, *user, s.now(), ""), nil
}

func (s *InstallationService) List(ctx context.Context) ([]*domain.Installation, error) {
	return s.installations.List(ctx)
}

// Get returns nil when no record has the id.
func (s *InstallationService) Get(ctx context.Context, id string) (*domain.Installation, error) {
	return s.installations.Get(ctx, id)
}

// nextID returns the epoch milliseconds of now, bumped past the previous id
// so two submissions in the same millisecond stay distinct. Caller holds mu.
func (s *InstallationService) nextID(now time.Time) string {
	id := now.UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return strconv.FormatInt(id, 10)
}

func trimForm(f domain.Form) domain.Form {
	f.CoffretName = strings.TrimSpace(f.CoffretName)
	f.CoffretCode = strings.TrimSpace(f.CoffretCode)
	f.Zone = strings.TrimSpace(f.Zone)
	f.DeviceEUI = strings.TrimSpace(f.DeviceEUI)
	f.AppEUI = strings.TrimSpace(f.AppEUI)
	f.AppKey = strings.TrimSpace(f.AppKey)
	return f
}
