// Package capture turns raw image uploads into named, embeddable photos for
// the current installation form.
package capture

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/prodair/fieldinstall/internal/domain"
	"github.com/prodair/fieldinstall/internal/photostore"
)

const (
	DefaultMaxEdge     = 1920
	DefaultJPEGQuality = 85
	DefaultMaxPixels   = 50_000_000
	jpegDataURLPrefix  = "data:image/jpeg;base64,"
)

var (
	// ErrNoSuchPhoto is returned by Remove for an index outside the session.
	ErrNoSuchPhoto = errors.New("no such photo")
	// ErrImageTooLarge rejects files whose declared dimensions exceed
	// Options.MaxPixels. It is checked before any pixel is decoded.
	ErrImageTooLarge = errors.New("image too large")
)

type RawFile struct {
	Name string
	Data []byte
}

type Photo struct {
	DataURL string
	Name    string
	Size    int

	// deviceKey is the key of the saved device copy, empty when none was kept.
	deviceKey string
}

// PhotoDecodeError reports one input file that could not be decoded. Other
// files of the same call are unaffected.
type PhotoDecodeError struct {
	Index int
	File  string
	Err   error
}

func (e *PhotoDecodeError) Error() string {
	return fmt.Sprintf("failed to decode photo %d (%s): %v", e.Index, e.File, e.Err)
}

func (e *PhotoDecodeError) Unwrap() error { return e.Err }

type Options struct {
	// MaxEdge bounds the longest side in pixels; 0 keeps the original size.
	MaxEdge int
	// MaxPixels bounds width times height; 0 means DefaultMaxPixels.
	MaxPixels int
	Quality   int
	Location  *time.Location
	// Clock stamps photo names; nil means time.Now.
	Clock func() time.Time
}

// Session accumulates the photos of one form. Names are numbered from the
// count already held, so numbering continues across Capture calls.
type Session struct {
	opts   Options
	store  photostore.PhotoStore
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	photos []Photo
}

// NewSession creates an empty session. store may be nil to skip the
// save-to-device copy.
func NewSession(opts Options, store photostore.PhotoStore, logger *slog.Logger) *Session {
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = DefaultJPEGQuality
	}
	if opts.MaxPixels <= 0 {
		opts.MaxPixels = DefaultMaxPixels
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &Session{opts: opts, store: store, logger: logger, now: now}
}

// Capture decodes files in order and appends every success to the session.
// It returns the new photos and one *PhotoDecodeError per failed file.
func (s *Session) Capture(ctx context.Context, coffretCode string, files []RawFile) ([]Photo, []error) {
	var (
		added []Photo
		errs  []error
	)

	for i, f := range files {
		jpeg, err := s.normalize(f.Data)
		if err != nil {
			errs = append(errs, &PhotoDecodeError{Index: i, File: f.Name, Err: err})
			s.logger.Warn("photo decode failed", "file", f.Name, "error", err)
			continue
		}

		s.mu.Lock()
		name := domain.PhotoName(coffretCode, s.now().In(s.opts.Location), len(s.photos)+1)
		p := Photo{
			DataURL:   jpegDataURLPrefix + base64.StdEncoding.EncodeToString(jpeg),
			Name:      name,
			Size:      len(jpeg),
			deviceKey: s.saveToDevice(ctx, name, jpeg),
		}
		s.photos = append(s.photos, p)
		s.mu.Unlock()

		added = append(added, p)
	}

	return added, errs
}

func (s *Session) normalize(data []byte) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > int64(s.opts.MaxPixels) {
		return nil, fmt.Errorf("%dx%d exceeds %d pixels: %w", cfg.Width, cfg.Height, s.opts.MaxPixels, ErrImageTooLarge)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}

	if edge := s.opts.MaxEdge; edge > 0 {
		b := img.Bounds()
		if b.Dx() > edge || b.Dy() > edge {
			img = imaging.Fit(img, edge, edge, imaging.Lanczos)
		}
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(s.opts.Quality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// saveToDevice keeps a local copy and returns its key. Failures are logged
// only.
func (s *Session) saveToDevice(ctx context.Context, name string, jpeg []byte) string {
	if s.store == nil {
		return ""
	}
	key, err := s.store.Save(ctx, name, "image/jpeg", bytes.NewReader(jpeg))
	if err != nil {
		s.logger.Error("failed to save photo to device", "name", name, "error", err)
		return ""
	}
	s.logger.Debug("photo saved to device", "name", name, "storage_key", key)
	return key
}

// deleteFromDevice removes the device copies of photos. Failures are logged
// only.
func (s *Session) deleteFromDevice(ctx context.Context, photos []Photo) {
	if s.store == nil {
		return
	}
	for _, p := range photos {
		if p.deviceKey == "" {
			continue
		}
		if err := s.store.Delete(ctx, p.deviceKey); err != nil {
			s.logger.Warn("failed to delete device copy", "name", p.Name, "storage_key", p.deviceKey, "error", err)
		}
	}
}

// Remove drops the photo at index i together with its device copy.
func (s *Session) Remove(ctx context.Context, i int) error {
	s.mu.Lock()
	if i < 0 || i >= len(s.photos) {
		s.mu.Unlock()
		return fmt.Errorf("photo index %d: %w", i, ErrNoSuchPhoto)
	}
	removed := s.photos[i]
	s.photos = append(s.photos[:i], s.photos[i+1:]...)
	s.mu.Unlock()

	s.deleteFromDevice(ctx, []Photo{removed})
	return nil
}

// Clear empties the session after a submission. Device copies are kept.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.photos = nil
}

// Discard empties the session and deletes the device copies of the
// discarded photos.
func (s *Session) Discard(ctx context.Context) {
	s.mu.Lock()
	discarded := s.photos
	s.photos = nil
	s.mu.Unlock()

	s.deleteFromDevice(ctx, discarded)
}

// Open reads back the device copy saved under key.
func (s *Session) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	if s.store == nil {
		return nil, "", photostore.ErrNotFound
	}
	return s.store.Get(ctx, key)
}

func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.photos)
}

func (s *Session) Photos() []Photo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Photo(nil), s.photos...)
}

// Payloads returns the index-aligned data URLs and names.
func (s *Session) Payloads() (photos, names []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	photos = make([]string, 0, len(s.photos))
	names = make([]string, 0, len(s.photos))
	for _, p := range s.photos {
		photos = append(photos, p.DataURL)
		names = append(names, p.Name)
	}
	return photos, names
}
