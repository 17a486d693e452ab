// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

// Package interval caches contiguous time ranges of series data and fetches
// only the parts of a requested range that are missing.
package interval

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Voxer/zag-sub000/internal/series"
)

// ErrInvalidRange is returned when a requested range ends before it starts.
var ErrInvalidRange = errors.New("invalid range: end before start")

// DefaultConcurrency bounds how many keys LoadMany fetches at once.
const DefaultConcurrency = 8

// Fetcher retrieves the points of one series in [start, end).
type Fetcher interface {
	FetchPoints(ctx context.Context, key series.Key, start, end int64) ([]series.Point, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, key series.Key, start, end int64) ([]series.Point, error)

func (f FetcherFunc) FetchPoints(ctx context.Context, key series.Key, start, end int64) ([]series.Point, error) {
	return f(ctx, key, start, end)
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the loader's logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(l *Loader) { l.log = log }
}

// WithConcurrency bounds the number of keys LoadMany loads in parallel.
func WithConcurrency(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// Loader owns the interval cache. At most one fetch per key is in flight;
// other requests for that key queue in arrival order and are re-attempted
// one at a time as fetches complete. Different keys load independently.
type Loader struct {
	fetcher     Fetcher
	log         logrus.FieldLogger
	concurrency int

	mu        sync.Mutex
	intervals map[series.Key]*Interval
}

// NewLoader creates a Loader that fetches through f.
func NewLoader(f Fetcher, opts ...Option) *Loader {
	l := &Loader{
		fetcher:     f,
		log:         logrus.StandardLogger(),
		concurrency: DefaultConcurrency,
		intervals:   make(map[series.Key]*Interval),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loader) intervalFor(key series.Key) *Interval {
	l.mu.Lock()
	defer l.mu.Unlock()
	iv, ok := l.intervals[key]
	if !ok {
		iv = newInterval(key)
		l.intervals[key] = iv
	}
	return iv
}

// Load ensures [start, end) is cached for key and returns the interval.
// Only the missing sub-ranges are fetched. A cache hit returns immediately.
func (l *Loader) Load(ctx context.Context, key series.Key, start, end int64) (*Interval, error) {
	if end < start {
		return nil, fmt.Errorf("%w: [%d, %d)", ErrInvalidRange, start, end)
	}
	iv := l.intervalFor(key)

	iv.mu.Lock()
	for iv.loading {
		w := make(chan struct{})
		iv.waiters = append(iv.waiters, w)
		iv.mu.Unlock()
		select {
		case <-w:
			iv.mu.Lock()
		case <-ctx.Done():
			iv.mu.Lock()
			if !iv.dropWaiter(w) {
				// Woken while giving up: hand the turn on.
				iv.wakeNext()
			}
			iv.mu.Unlock()
			return nil, ctx.Err()
		}
	}

	var missing []Range
	if iv.loaded {
		missing = Diff(iv.start, iv.end, start, end)
	} else {
		missing = []Range{{Start: start, End: end}}
	}
	if len(missing) == 0 {
		iv.wakeNext()
		iv.mu.Unlock()
		return iv, nil
	}
	iv.loading = true
	iv.mu.Unlock()

	if err := l.fetch(ctx, iv, missing); err != nil {
		return nil, err
	}
	return iv, nil
}

// fetch retrieves each missing range in order and stitches every successful
// one into iv. Failed ranges are reported together; the loading flag is
// always cleared.
func (l *Loader) fetch(ctx context.Context, iv *Interval, missing []Range) error {
	defer func() {
		iv.mu.Lock()
		iv.loading = false
		iv.flushPending()
		iv.wakeNext()
		iv.mu.Unlock()
	}()

	var errs *multierror.Error
	for _, r := range missing {
		pts, err := l.fetcher.FetchPoints(ctx, iv.key, r.Start, r.End)
		if err != nil {
			l.log.WithError(err).WithFields(logrus.Fields{
				"key":   iv.key.String(),
				"start": r.Start,
				"end":   r.End,
			}).Debug("range fetch failed")
			errs = multierror.Append(errs, fmt.Errorf("failed to fetch %s [%d, %d): %w", iv.key, r.Start, r.End, err))
			continue
		}
		iv.mu.Lock()
		iv.add(r.Start, r.End, pts)
		iv.mu.Unlock()
	}
	return errs.ErrorOrNil()
}

// LoadMany loads the same range for several keys in parallel. Every key is
// attempted; failures are aggregated. The returned slice is index-aligned
// with keys and holds nil for keys that failed.
func (l *Loader) LoadMany(ctx context.Context, keys []series.Key, start, end int64) ([]*Interval, error) {
	out := make([]*Interval, len(keys))
	var (
		mu   sync.Mutex
		errs *multierror.Error
	)
	var g errgroup.Group
	g.SetLimit(l.concurrency)
	for i, key := range keys {
		g.Go(func() error {
			iv, err := l.Load(ctx, key, start, end)
			if err != nil {
				mu.Lock()
				errs = multierror.Append(errs, err)
				mu.Unlock()
				return nil
			}
			out[i] = iv
			return nil
		})
	}
	_ = g.Wait()
	return out, errs.ErrorOrNil()
}

// Get returns the cached interval for key, or nil if none exists.
func (l *Loader) Get(key series.Key) *Interval {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.intervals[key]
}

// GetData returns a copy of the cached points for key. Unknown keys yield an
// empty, non-nil slice.
func (l *Loader) GetData(key series.Key) []series.Point {
	iv := l.Get(key)
	if iv == nil {
		return []series.Point{}
	}
	return iv.Points()
}

// Push merges a live point into the cached interval for key. It reports
// whether the point was accepted; keys with no loaded data ignore it.
func (l *Loader) Push(key series.Key, p series.Point) bool {
	iv := l.Get(key)
	if iv == nil {
		return false
	}
	iv.mu.Lock()
	defer iv.mu.Unlock()
	return iv.push(p)
}
