// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

package watch

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/Voxer/zag-sub000/internal/series"
)

// Ingester receives batched points.
type Ingester interface {
	Ingest(ctx context.Context, key series.Key, pts []series.Point) error
}

// Batcher groups samples by key and sends them on Flush. Plain values are
// summed into delta-aligned counter buckets; plain values sent to an @llq
// key are quantized into a delta-aligned distribution instead. Since the
// server replaces points with equal timestamps, the still-open bucket is
// kept and resent with its running total until time moves past it.
type Batcher struct {
	ing   Ingester
	delta int64
	now   func() time.Time
	log   logrus.FieldLogger

	mu      sync.Mutex
	buckets map[string]map[int64]float64
	llqs    map[string]map[int64]*series.LLQ
	points  map[string][]series.Point
}

// NewBatcher creates a batcher sending to ing at delta.
func NewBatcher(ing Ingester, delta int64, log logrus.FieldLogger) *Batcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Batcher{
		ing:     ing,
		delta:   delta,
		now:     time.Now,
		log:     log,
		buckets: make(map[string]map[int64]float64),
		llqs:    make(map[string]map[int64]*series.LLQ),
		points:  make(map[string][]series.Point),
	}
}

// Add queues a sample.
func (b *Batcher) Add(s Sample) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s.Point != nil {
		key := s.Key
		if s.Point.Type() == series.TypeLLQ && !hasLLQSubkey(key) {
			key += "@" + series.SubkeyLLQ
		}
		b.points[key] = append(b.points[key], s.Point)
		return
	}
	ts := series.AlignDown(s.TS, b.delta)
	if hasLLQSubkey(s.Key) {
		m := b.llqs[s.Key]
		if m == nil {
			m = make(map[int64]*series.LLQ)
			b.llqs[s.Key] = m
		}
		q := m[ts]
		if q == nil {
			q = &series.LLQ{TS: ts}
			m[ts] = q
		}
		q.Observe(s.Value)
		return
	}
	m := b.buckets[s.Key]
	if m == nil {
		m = make(map[int64]float64)
		b.buckets[s.Key] = m
	}
	m[ts] += s.Value
}

func hasLLQSubkey(mkey string) bool {
	k, err := series.ParseKey(mkey, 1)
	return err == nil && k.IsLLQ()
}

// Pending returns the number of keys with queued data.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buckets) + len(b.llqs) + len(b.points)
}

type batch struct {
	mkey string
	pts  []series.Point
}

// Flush sends everything queued. Keys that fail are reported together;
// their data is dropped, apart from the open bucket.
func (b *Batcher) Flush(ctx context.Context) error {
	open := series.AlignDown(b.now().UnixMilli(), b.delta)

	b.mu.Lock()
	batches := make([]batch, 0, len(b.buckets)+len(b.llqs)+len(b.points))
	for mkey, m := range b.buckets {
		tss := make([]int64, 0, len(m))
		for ts := range m {
			tss = append(tss, ts)
		}
		sort.Slice(tss, func(i, j int) bool { return tss[i] < tss[j] })
		pts := make([]series.Point, 0, len(tss))
		for _, ts := range tss {
			pts = append(pts, series.Counter{TS: ts, Count: m[ts]})
			if ts < open {
				delete(m, ts)
			}
		}
		if len(m) == 0 {
			delete(b.buckets, mkey)
		}
		batches = append(batches, batch{mkey, pts})
	}
	for mkey, m := range b.llqs {
		tss := make([]int64, 0, len(m))
		for ts := range m {
			tss = append(tss, ts)
		}
		sort.Slice(tss, func(i, j int) bool { return tss[i] < tss[j] })
		pts := make([]series.Point, 0, len(tss))
		for _, ts := range tss {
			data := make(map[string]float64, len(m[ts].Data))
			for k, n := range m[ts].Data {
				data[k] = n
			}
			pts = append(pts, series.LLQ{TS: ts, Data: data})
			if ts < open {
				delete(m, ts)
			}
		}
		if len(m) == 0 {
			delete(b.llqs, mkey)
		}
		batches = append(batches, batch{mkey, pts})
	}
	for mkey, pts := range b.points {
		sort.SliceStable(pts, func(i, j int) bool { return pts[i].Timestamp() < pts[j].Timestamp() })
		batches = append(batches, batch{mkey, pts})
	}
	b.points = make(map[string][]series.Point)
	b.mu.Unlock()

	sort.Slice(batches, func(i, j int) bool { return batches[i].mkey < batches[j].mkey })
	var errs *multierror.Error
	sent := 0
	for _, bt := range batches {
		key, err := series.ParseKey(bt.mkey, b.delta)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		if err := b.ing.Ingest(ctx, key, bt.pts); err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		sent += len(bt.pts)
	}
	if sent > 0 {
		b.log.WithFields(logrus.Fields{"keys": len(batches), "points": sent}).Debug("flushed metric batch")
	}
	return errs.ErrorOrNil()
}

// Run flushes every interval until ctx is done, then flushes once more.
func (b *Batcher) Run(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			// The run context is gone; give the last flush its own deadline.
			final, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := b.Flush(final); err != nil {
				b.log.WithError(err).Warn("final metric flush failed")
			}
			cancel()
			return
		case <-t.C:
			if err := b.Flush(ctx); err != nil {
				b.log.WithError(err).Warn("metric flush failed")
			}
		}
	}
}
