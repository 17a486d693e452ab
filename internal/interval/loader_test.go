// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

package interval

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/Voxer/zag-sub000/internal/series"
)

func TestDiff(t *testing.T) {
	tests := []struct {
		name                   string
		minA, maxA, minB, maxB int64
		want                   []Range
	}{
		{name: "subset", minA: 4, maxA: 8, minB: 5, maxB: 7, want: nil},
		{name: "equal", minA: 4, maxA: 8, minB: 4, maxB: 8, want: nil},
		{name: "shares left edge", minA: 4, maxA: 8, minB: 0, maxB: 4, want: []Range{{0, 4}}},
		{name: "shares right edge", minA: 4, maxA: 8, minB: 8, maxB: 12, want: []Range{{8, 12}}},
		{name: "superset", minA: 4, maxA: 8, minB: 0, maxB: 14, want: []Range{{0, 4}, {8, 14}}},
		{name: "overlaps left", minA: 4, maxA: 8, minB: 2, maxB: 6, want: []Range{{2, 4}}},
		{name: "overlaps right", minA: 4, maxA: 8, minB: 6, maxB: 10, want: []Range{{8, 10}}},
		{name: "disjoint right fills gap", minA: 4, maxA: 8, minB: 10, maxB: 14, want: []Range{{8, 14}}},
		{name: "disjoint left fills gap", minA: 4, maxA: 8, minB: 0, maxB: 2, want: []Range{{0, 4}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.minA, tt.maxA, tt.minB, tt.maxB)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Diff(%d,%d,%d,%d) = %v, want %v", tt.minA, tt.maxA, tt.minB, tt.maxB, got, tt.want)
			}
			if len(got) > 2 {
				t.Errorf("Diff returned %d ranges, want at most 2", len(got))
			}
		})
	}
}

// mockFetcher serves counter points with ts = t and count = 10 + t for every
// integer t in the requested range, and records calls.
type mockFetcher struct {
	mu      sync.Mutex
	calls   []Range
	running int
	peak    int
	fail    map[Range]error
	gate    chan struct{}
	started chan Range
}

func (m *mockFetcher) FetchPoints(ctx context.Context, key series.Key, start, end int64) ([]series.Point, error) {
	r := Range{start, end}
	m.mu.Lock()
	m.calls = append(m.calls, r)
	m.running++
	if m.running > m.peak {
		m.peak = m.running
	}
	gate, started := m.gate, m.started
	err := m.fail[r]
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.running--
		m.mu.Unlock()
	}()

	if started != nil {
		started <- r
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	var pts []series.Point
	for ts := start; ts < end; ts++ {
		pts = append(pts, series.Counter{TS: ts, Count: float64(10 + ts)})
	}
	return pts, nil
}

func (m *mockFetcher) Calls() []Range {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Range(nil), m.calls...)
}

func counts(pts []series.Point) []float64 {
	out := make([]float64, len(pts))
	for i, p := range pts {
		out[i], _ = p.Field("count")
	}
	return out
}

var fooKey = series.Key{Base: "foo", Delta: 1}

func TestLoad_StitchesAdjacentRange(t *testing.T) {
	m := &mockFetcher{}
	l := NewLoader(m)
	ctx := context.Background()

	if _, err := l.Load(ctx, fooKey, 2, 4); err != nil {
		t.Fatalf("Load(2,4) error: %v", err)
	}
	iv, err := l.Load(ctx, fooKey, 4, 6)
	if err != nil {
		t.Fatalf("Load(4,6) error: %v", err)
	}

	if got := m.Calls(); !reflect.DeepEqual(got, []Range{{2, 4}, {4, 6}}) {
		t.Errorf("fetch calls = %v, want [{2 4} {4 6}]", got)
	}
	if got := counts(iv.Points()); !reflect.DeepEqual(got, []float64{12, 13, 14, 15}) {
		t.Errorf("data = %v, want [12 13 14 15]", got)
	}
	start, end, ok := iv.Range()
	if !ok || start != 2 || end != 6 {
		t.Errorf("Range() = (%d, %d, %v), want (2, 6, true)", start, end, ok)
	}
}

func TestLoad_CacheHitDoesNotFetch(t *testing.T) {
	m := &mockFetcher{}
	l := NewLoader(m)
	ctx := context.Background()

	first, err := l.Load(ctx, fooKey, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	second, err := l.Load(ctx, fooKey, 3, 7)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("cache hit should return the same interval")
	}
	if n := len(m.Calls()); n != 1 {
		t.Errorf("fetch calls = %d, want 1", n)
	}
}

func TestLoad_FetchesBothSides(t *testing.T) {
	m := &mockFetcher{}
	l := NewLoader(m)
	ctx := context.Background()

	if _, err := l.Load(ctx, fooKey, 4, 8); err != nil {
		t.Fatal(err)
	}
	iv, err := l.Load(ctx, fooKey, 0, 14)
	if err != nil {
		t.Fatal(err)
	}
	if got := m.Calls()[1:]; !reflect.DeepEqual(got, []Range{{0, 4}, {8, 14}}) {
		t.Errorf("extension calls = %v, want [{0 4} {8 14}]", got)
	}
	pts := iv.Points()
	if len(pts) != 14 {
		t.Fatalf("len = %d, want 14", len(pts))
	}
	for i, p := range pts {
		if p.Timestamp() != int64(i) {
			t.Fatalf("pts[%d].ts = %d, want %d (data out of order)", i, p.Timestamp(), i)
		}
	}
}

func TestLoad_InvalidRange(t *testing.T) {
	l := NewLoader(&mockFetcher{})
	if _, err := l.Load(context.Background(), fooKey, 5, 1); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("error = %v, want ErrInvalidRange", err)
	}
}

func TestLoad_FailureClearsLoading(t *testing.T) {
	boom := errors.New("boom")
	m := &mockFetcher{fail: map[Range]error{{0, 10}: boom}}
	l := NewLoader(m)
	ctx := context.Background()

	if _, err := l.Load(ctx, fooKey, 0, 10); !errors.Is(err, boom) {
		t.Fatalf("error = %v, want boom", err)
	}
	if l.Get(fooKey).Loading() {
		t.Fatal("loading flag still set after failure")
	}

	m.mu.Lock()
	m.fail = nil
	m.mu.Unlock()
	iv, err := l.Load(ctx, fooKey, 0, 10)
	if err != nil {
		t.Fatalf("retry error: %v", err)
	}
	if iv.Len() != 10 {
		t.Errorf("len = %d, want 10", iv.Len())
	}
}

func TestLoad_PartialFailureKeepsMergedRange(t *testing.T) {
	boom := errors.New("left failed")
	m := &mockFetcher{}
	l := NewLoader(m)
	ctx := context.Background()
	if _, err := l.Load(ctx, fooKey, 4, 8); err != nil {
		t.Fatal(err)
	}

	m.mu.Lock()
	m.fail = map[Range]error{{0, 4}: boom}
	m.mu.Unlock()
	if _, err := l.Load(ctx, fooKey, 0, 12); !errors.Is(err, boom) {
		t.Fatalf("error = %v, want left failure", err)
	}
	start, end, _ := l.Get(fooKey).Range()
	if start != 4 || end != 12 {
		t.Errorf("Range() = (%d, %d), want (4, 12)", start, end)
	}
	if got := counts(l.GetData(fooKey)); !reflect.DeepEqual(got, []float64{14, 15, 16, 17, 18, 19, 20, 21}) {
		t.Errorf("data = %v", got)
	}
}

func waitForWaiters(t *testing.T, iv *Interval, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		iv.mu.Lock()
		got := len(iv.waiters)
		iv.mu.Unlock()
		if got == n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d waiters", n)
}

func TestLoad_SerializesFetchesPerKey(t *testing.T) {
	m := &mockFetcher{gate: make(chan struct{}), started: make(chan Range, 8)}
	l := NewLoader(m)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	load := func(start, end int64) {
		defer wg.Done()
		if _, err := l.Load(ctx, fooKey, start, end); err != nil {
			errs <- err
		}
	}

	wg.Add(1)
	go load(10, 20)
	first := <-m.started

	// Queue four overlapping loads behind the first fetch, in order.
	iv := l.Get(fooKey)
	queued := []Range{{15, 25}, {5, 15}, {0, 30}, {12, 18}}
	for i, r := range queued {
		wg.Add(1)
		go load(r.Start, r.End)
		waitForWaiters(t, iv, i+1)
	}

	// Each waiter takes its turn in arrival order and fetches only what the
	// cache is missing by then; the last one is a cache hit.
	want := []Range{{10, 20}, {20, 25}, {5, 10}, {0, 5}, {25, 30}}
	got := []Range{first}
	for len(got) < len(want) {
		m.gate <- struct{}{}
		got = append(got, <-m.started)
	}
	m.gate <- struct{}{}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Load error: %v", err)
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("fetch order = %v, want %v", got, want)
	}
	if calls := m.Calls(); !reflect.DeepEqual(calls, want) {
		t.Errorf("fetch calls = %v, want %v", calls, want)
	}
	if m.peak != 1 {
		t.Errorf("peak concurrent fetches = %d, want 1", m.peak)
	}
	if start, end, _ := iv.Range(); start != 0 || end != 30 {
		t.Errorf("Range() = (%d, %d), want (0, 30)", start, end)
	}
	if iv.Len() != 30 {
		t.Errorf("len = %d, want 30", iv.Len())
	}
}

func TestLoad_CancelledWaiterDoesNotStall(t *testing.T) {
	m := &mockFetcher{gate: make(chan struct{}), started: make(chan Range, 8)}
	l := NewLoader(m)

	done := make(chan error, 1)
	go func() {
		_, err := l.Load(context.Background(), fooKey, 0, 10)
		done <- err
	}()
	<-m.started
	iv := l.Get(fooKey)

	ctx, cancel := context.WithCancel(context.Background())
	waiterErr := make(chan error, 1)
	go func() {
		_, err := l.Load(ctx, fooKey, 0, 20)
		waiterErr <- err
	}()
	waitForWaiters(t, iv, 1)
	cancel()
	if err := <-waiterErr; !errors.Is(err, context.Canceled) {
		t.Errorf("waiter error = %v, want context.Canceled", err)
	}
	waitForWaiters(t, iv, 0)

	m.gate <- struct{}{}
	if err := <-done; err != nil {
		t.Fatalf("first load error: %v", err)
	}

	m.mu.Lock()
	m.gate = nil
	m.started = nil
	m.mu.Unlock()
	if _, err := l.Load(context.Background(), fooKey, 0, 15); err != nil {
		t.Fatalf("follow-up load error: %v", err)
	}
	if iv.Len() != 15 {
		t.Errorf("len = %d, want 15", iv.Len())
	}
}

func TestLoadMany_AggregatesErrors(t *testing.T) {
	barKey := series.Key{Base: "bar", Delta: 1}
	boom := errors.New("bar unavailable")
	f := FetcherFunc(func(ctx context.Context, key series.Key, start, end int64) ([]series.Point, error) {
		if key == barKey {
			return nil, boom
		}
		return []series.Point{series.Counter{TS: start, Count: 1}}, nil
	})
	l := NewLoader(f, WithConcurrency(2))

	out, err := l.LoadMany(context.Background(), []series.Key{fooKey, barKey}, 0, 5)
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want bar failure", err)
	}
	if out[0] == nil || out[0].Len() != 1 {
		t.Errorf("foo interval = %v, want one point", out[0])
	}
	if out[1] != nil {
		t.Errorf("bar interval = %v, want nil", out[1])
	}
}

func TestGetData_UnknownKey(t *testing.T) {
	l := NewLoader(&mockFetcher{})
	got := l.GetData(fooKey)
	if got == nil || len(got) != 0 {
		t.Errorf("GetData(unknown) = %#v, want empty non-nil slice", got)
	}
	if l.Get(fooKey) != nil {
		t.Error("Get(unknown) should be nil")
	}
}

func TestPush(t *testing.T) {
	l := NewLoader(&mockFetcher{})
	if l.Push(fooKey, series.Counter{TS: 3, Count: 1}) {
		t.Error("Push before any load should be ignored")
	}
	if _, err := l.Load(context.Background(), fooKey, 0, 3); err != nil {
		t.Fatal(err)
	}

	l.Push(fooKey, series.Counter{TS: 3, Count: 100})
	l.Push(fooKey, series.Counter{TS: 3, Count: 101})
	l.Push(fooKey, series.Counter{TS: 1, Count: 50})
	if l.Push(fooKey, series.Counter{TS: -1, Count: 1}) {
		t.Error("point before cached start should be dropped")
	}

	if got := counts(l.GetData(fooKey)); !reflect.DeepEqual(got, []float64{10, 50, 12, 101}) {
		t.Errorf("data = %v, want [10 50 12 101]", got)
	}
	if _, end, _ := l.Get(fooKey).Range(); end != 4 {
		t.Errorf("end = %d, want 4", end)
	}
}

func TestPush_BeyondNextBucketLeavesGapToFetch(t *testing.T) {
	m := &mockFetcher{}
	l := NewLoader(m)
	ctx := context.Background()
	if _, err := l.Load(ctx, fooKey, 0, 5); err != nil {
		t.Fatal(err)
	}
	if l.Push(fooKey, series.Counter{TS: 50, Count: 1}) {
		t.Error("point past the next bucket should be dropped")
	}
	if _, end, _ := l.Get(fooKey).Range(); end != 5 {
		t.Errorf("end = %d, want 5", end)
	}

	if _, err := l.Load(ctx, fooKey, 0, 51); err != nil {
		t.Fatal(err)
	}
	want := []Range{{0, 5}, {5, 51}}
	if got := m.Calls(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
	if n := l.Get(fooKey).Len(); n != 51 {
		t.Errorf("len = %d, want 51", n)
	}
}

func TestPush_DeferredWhileLoading(t *testing.T) {
	m := &mockFetcher{}
	l := NewLoader(m)
	ctx := context.Background()
	if _, err := l.Load(ctx, fooKey, 0, 2); err != nil {
		t.Fatal(err)
	}

	m.mu.Lock()
	m.gate = make(chan struct{})
	m.started = make(chan Range, 1)
	m.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := l.Load(ctx, fooKey, 0, 4)
		done <- err
	}()
	<-m.started
	l.Push(fooKey, series.Counter{TS: 4, Count: 99})
	m.gate <- struct{}{}
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	if got := counts(l.GetData(fooKey)); !reflect.DeepEqual(got, []float64{10, 11, 12, 13, 99}) {
		t.Errorf("data = %v, want [10 11 12 13 99]", got)
	}
}

func TestInterval_AddPrependAppend(t *testing.T) {
	iv := newInterval(fooKey)
	iv.add(4, 6, []series.Point{series.Counter{TS: 4}, series.Counter{TS: 5}})
	iv.add(2, 4, []series.Point{series.Counter{TS: 2}, series.Counter{TS: 3}})
	iv.add(6, 7, []series.Point{series.Counter{TS: 6}})

	var ts []int64
	for _, p := range iv.Points() {
		ts = append(ts, p.Timestamp())
	}
	if !reflect.DeepEqual(ts, []int64{2, 3, 4, 5, 6}) {
		t.Errorf("timestamps = %v", ts)
	}
	if start, end, _ := iv.Range(); start != 2 || end != 7 {
		t.Errorf("Range() = (%d, %d), want (2, 7)", start, end)
	}
}
