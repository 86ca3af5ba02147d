package geo

import (
	"context"
	"sync"
	"time"

	"github.com/prodair/fieldinstall/internal/domain"
)

// Cached returns the previous fix while it is younger than Options.MaxCacheAge
// and delegates otherwise.
type Cached struct {
	next Provider
	now  func() time.Time

	mu   sync.Mutex
	last *domain.Location
}

func NewCached(next Provider) *Cached {
	return &Cached{next: next, now: time.Now}
}

func (c *Cached) Locate(ctx context.Context, opts Options) (domain.Location, error) {
	if opts.MaxCacheAge > 0 {
		c.mu.Lock()
		last := c.last
		c.mu.Unlock()
		if last != nil && c.now().Sub(time.UnixMilli(last.Timestamp)) <= opts.MaxCacheAge {
			return *last, nil
		}
	}

	loc, err := c.next.Locate(ctx, opts)
	if err != nil {
		return domain.Location{}, err
	}

	c.mu.Lock()
	c.last = &loc
	c.mu.Unlock()
	return loc, nil
}
