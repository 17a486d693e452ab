// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

package interval

import (
	"sort"
	"sync"

	"github.com/Voxer/zag-sub000/internal/series"
)

// Interval is the cached, contiguous point data for one series key.
// Its data covers [start, end) with no fetch gaps and is ordered by timestamp.
type Interval struct {
	key series.Key

	mu      sync.Mutex
	data    []series.Point
	start   int64
	end     int64
	loaded  bool
	loading bool
	waiters []chan struct{}
	pending []series.Point
}

func newInterval(key series.Key) *Interval {
	return &Interval{key: key}
}

// Key returns the series key this interval caches.
func (iv *Interval) Key() series.Key { return iv.key }

// Range returns the covered range. ok is false until the first fetch succeeds.
func (iv *Interval) Range() (start, end int64, ok bool) {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	return iv.start, iv.end, iv.loaded
}

// Points returns a copy of the cached points.
func (iv *Interval) Points() []series.Point {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	out := make([]series.Point, len(iv.data))
	copy(out, iv.data)
	return out
}

// Len returns the number of cached points.
func (iv *Interval) Len() int {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	return len(iv.data)
}

// Loading reports whether a fetch for this key is in flight.
func (iv *Interval) Loading() bool {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	return iv.loading
}

// add stitches fetched points for [start, end) onto the cache. Points go in
// front when the range ends at or before the cached start, at the back
// otherwise. Callers must hold iv.mu.
func (iv *Interval) add(start, end int64, pts []series.Point) {
	if !iv.loaded {
		iv.data = append([]series.Point(nil), pts...)
		iv.start, iv.end = start, end
		iv.loaded = true
		return
	}
	if end <= iv.start {
		merged := make([]series.Point, 0, len(pts)+len(iv.data))
		merged = append(merged, pts...)
		iv.data = append(merged, iv.data...)
		iv.start = start
		return
	}
	iv.data = append(iv.data, pts...)
	if end > iv.end {
		iv.end = end
	}
}

// push merges a live point. While a fetch is in flight the point is held
// back and merged once the fetch result has been stitched in.
// Callers must hold iv.mu.
func (iv *Interval) push(p series.Point) bool {
	if !iv.loaded {
		return false
	}
	if iv.loading {
		iv.pending = append(iv.pending, p)
		return true
	}
	return iv.mergeLive(p)
}

// mergeLive accepts points inside the cached range or in the bucket right
// after it. Anything later would leave an unfetched gap, so it is left to
// the next Load.
func (iv *Interval) mergeLive(p series.Point) bool {
	ts := p.Timestamp()
	if ts < iv.start || ts >= iv.end+iv.key.Delta {
		return false
	}
	n := len(iv.data)
	switch {
	case n == 0 || ts > iv.data[n-1].Timestamp():
		iv.data = append(iv.data, p)
	case ts == iv.data[n-1].Timestamp():
		iv.data[n-1] = p
	default:
		i := sort.Search(n, func(i int) bool { return iv.data[i].Timestamp() >= ts })
		if iv.data[i].Timestamp() == ts {
			iv.data[i] = p
		} else {
			iv.data = append(iv.data, nil)
			copy(iv.data[i+1:], iv.data[i:])
			iv.data[i] = p
		}
	}
	if next := ts + iv.key.Delta; next > iv.end {
		iv.end = next
	}
	return true
}

func (iv *Interval) flushPending() {
	if len(iv.pending) == 0 {
		return
	}
	pending := iv.pending
	iv.pending = nil
	if !iv.loaded {
		return
	}
	for _, p := range pending {
		iv.mergeLive(p)
	}
}

// wakeNext releases the oldest queued waiter, if any. Callers must hold iv.mu.
func (iv *Interval) wakeNext() {
	if len(iv.waiters) == 0 {
		return
	}
	w := iv.waiters[0]
	iv.waiters[0] = nil
	iv.waiters = iv.waiters[1:]
	close(w)
}

// dropWaiter removes w from the queue. It returns false if w was already woken.
func (iv *Interval) dropWaiter(w chan struct{}) bool {
	for i, q := range iv.waiters {
		if q == w {
			iv.waiters = append(iv.waiters[:i], iv.waiters[i+1:]...)
			return true
		}
	}
	return false
}
