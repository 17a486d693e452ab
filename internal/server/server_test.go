// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/Voxer/zag-sub000/internal/dashboard"
	"github.com/Voxer/zag-sub000/internal/logging"
	"github.com/Voxer/zag-sub000/internal/series"
	"github.com/Voxer/zag-sub000/internal/store"
)

// now is the fixed clock used by the tests: ranges ending before it are
// historical.
var now = time.UnixMilli(1_000_000)

func newTestServer(t *testing.T, opts Options) (*Server, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	if opts.Now == nil {
		opts.Now = func() time.Time { return now }
	}
	log := logrus.New()
	log.SetOutput(io.Discard)
	s, err := New(mem, mem, opts, log)
	require.NoError(t, err)
	return s, mem
}

func do(t *testing.T, h http.Handler, method, target, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func seed(t *testing.T, mem *store.Memory, mkey string, pts ...series.Point) {
	t.Helper()
	require.NoError(t, mem.Append(context.Background(), series.MustKey(mkey, 1000), pts))
}

func TestGetRange(t *testing.T) {
	s, mem := newTestServer(t, Options{})
	seed(t, mem, "cpu",
		series.Counter{TS: 1000, Count: 1},
		series.Counter{TS: 2000, Count: 2},
		series.Counter{TS: 3000, Count: 3},
	)
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/api/metrics/cpu?start=1000&end=3000&delta=1000", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	pts, err := series.DecodePoints(rec.Body.Bytes())
	require.NoError(t, err)
	require.Len(t, pts, 2)
	assert.Equal(t, int64(1000), pts[0].Timestamp())
	assert.Equal(t, int64(2000), pts[1].Timestamp())

	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag, "historical range must carry an ETag")

	rec = do(t, h, http.MethodGet, "/api/metrics/cpu?start=1000&end=3000&delta=1000", "",
		http.Header{"If-None-Match": []string{etag}})
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestGetRange_LiveHasNoETag(t *testing.T) {
	s, mem := newTestServer(t, Options{})
	seed(t, mem, "cpu", series.Counter{TS: 1000, Count: 1})

	rec := do(t, s.Handler(), http.MethodGet, "/api/metrics/cpu?start=0&end=2000000&delta=1000", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("ETag"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestGetRange_Errors(t *testing.T) {
	s, mem := newTestServer(t, Options{})
	seed(t, mem, "cpu", series.Counter{TS: 1000, Count: 1})
	h := s.Handler()

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"missing start", "/api/metrics/cpu?end=1000&delta=1000", http.StatusBadRequest},
		{"missing delta", "/api/metrics/cpu?start=0&end=1000", http.StatusBadRequest},
		{"bad end", "/api/metrics/cpu?start=0&end=soon&delta=1000", http.StatusBadRequest},
		{"end before start", "/api/metrics/cpu?start=5000&end=1000&delta=1000", http.StatusBadRequest},
		{"zero delta", "/api/metrics/cpu?start=0&end=1000&delta=0", http.StatusBadRequest},
		{"unknown key", "/api/metrics/nope?start=0&end=1000&delta=1000", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, tt.target, "", nil)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestIngest(t *testing.T) {
	s, mem := newTestServer(t, Options{})
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/metrics/cpu?delta=1000",
		`[{"ts":1000,"count":4},{"ts":2000,"count":5}]`, nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	pts, err := mem.Range(context.Background(), series.MustKey("cpu", 1000), 0, 3000)
	require.NoError(t, err)
	require.Len(t, pts, 2)

	typ, err := mem.KeyType(context.Background(), "cpu")
	require.NoError(t, err)
	assert.Equal(t, series.TypeCounter, typ)

	rec = do(t, h, http.MethodPost, "/api/metrics/cpu?delta=1000", `{"ts":1}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/metrics/cpu?delta=1000", `[{"ts":3000,"mean":2}]`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "histogram points on a counter key")
}

func TestIngest_InvalidatesCachedRange(t *testing.T) {
	s, mem := newTestServer(t, Options{})
	seed(t, mem, "cpu", series.Counter{TS: 1000, Count: 1})
	h := s.Handler()

	target := "/api/metrics/cpu?start=0&end=5000&delta=1000"
	first := do(t, h, http.MethodGet, target, "", nil)
	require.Equal(t, http.StatusOK, first.Code)

	rec := do(t, h, http.MethodPost, "/api/metrics/cpu?delta=1000", `[{"ts":2000,"count":7}]`, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	second := do(t, h, http.MethodGet, target, "", nil)
	require.Equal(t, http.StatusOK, second.Code)
	assert.NotEqual(t, first.Header().Get("ETag"), second.Header().Get("ETag"))
	pts, err := series.DecodePoints(second.Body.Bytes())
	require.NoError(t, err)
	assert.Len(t, pts, 2)
}

func TestIngest_RateLimited(t *testing.T) {
	s, _ := newTestServer(t, Options{IngestRate: 0.001, IngestBurst: 1})
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/metrics/cpu?delta=1000", `[{"ts":1000,"count":1}]`, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodPost, "/api/metrics/cpu?delta=1000", `[{"ts":2000,"count":1}]`, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestKeys(t *testing.T) {
	s, mem := newTestServer(t, Options{})
	seed(t, mem, "api.latency", series.Histogram{TS: 1000, Count: 1, Mean: 3})
	seed(t, mem, "api.requests", series.Counter{TS: 1000, Count: 1})
	seed(t, mem, "db.queries", series.Counter{TS: 1000, Count: 1})
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/api/keys?prefix=api.", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var keys []store.KeyInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &keys))
	require.Len(t, keys, 2)
	assert.Equal(t, "api.latency", keys[0].Key)
	assert.Equal(t, series.TypeHistogram, keys[0].Type)

	rec = do(t, h, http.MethodGet, "/api/keys/api.latency@p95", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"key":"api.latency","type":"histogram"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/keys/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDashboards(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	h := s.Handler()

	rec := do(t, h, http.MethodPut, "/api/dashboards/ops",
		`{"name":"Ops","graphs":[{"title":"CPU","keys":["cpu"]}]}`, nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/dashboards/ops", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var d dashboard.Dashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, "ops", d.ID)
	assert.Equal(t, "Ops", d.Name)
	require.Len(t, d.Graphs, 1)

	rec = do(t, h, http.MethodGet, "/api/dashboards", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all []dashboard.Dashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, 1)

	rec = do(t, h, http.MethodPut, "/api/dashboards/bad", `{"graphs":[{"keys":[]}]}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodPut, "/api/dashboards/bad", `not json`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/dashboards/ops", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodDelete, "/api/dashboards/ops", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/dashboards/ops", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateChannel_Errors(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/channels/missing", `{"add":["cpu"]}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	s.Hub().Open("c1", 1000)
	rec = do(t, h, http.MethodPost, "/api/channels/c1", `{"add":`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodPost, "/api/channels/c1", `{"add":["cpu"]}`, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

// readEvent returns the next event name and data from an SSE stream,
// skipping comments.
func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var event, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if event != "" || data != "" {
				return event, data
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestChannelStream(t *testing.T) {
	s, _ := newTestServer(t, Options{Heartbeat: 20 * time.Millisecond})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/channels/c1?delta=1000", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := bufio.NewReader(resp.Body)
	name, _ := readEvent(t, events)
	require.Equal(t, "init", name)

	post := func(path, body string) int {
		r, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
		require.NoError(t, err)
		r.Body.Close()
		return r.StatusCode
	}
	require.Equal(t, http.StatusNoContent, post("/api/channels/c1", `{"add":["cpu"]}`))
	require.Equal(t, http.StatusNoContent, post("/api/metrics/mem?delta=1000", `[{"ts":1000,"count":9}]`))
	require.Equal(t, http.StatusNoContent, post("/api/metrics/cpu?delta=1000", `[{"ts":1000,"count":2}]`))

	name, data := readEvent(t, events)
	require.Equal(t, "point", name)
	key, p, err := series.DecodeLive([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, "cpu", key)
	assert.Equal(t, series.Counter{TS: 1000, Count: 2}, p)

	cancel()
	require.Eventually(t, func() bool { return s.Hub().Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, _ := newTestServer(t, Options{Registry: reg})
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	do(t, h, http.MethodGet, "/api/keys", "", nil)
	rec = do(t, h, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), MetricPrefix+"http_requests_total")
	assert.Contains(t, rec.Body.String(), `route="/api/keys"`)
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	rec := do(t, s.Handler(), http.MethodOptions, "/api/metrics/cpu", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "ETag")
}

func TestRequestLogsCarryTraceID(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.DebugLevel)
	log.AddHook(logging.TraceHook{})
	hook := logtest.NewLocal(log)

	mem := store.NewMemory()
	s, err := New(mem, mem, Options{Now: func() time.Time { return now }}, log)
	require.NoError(t, err)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{0xa, 0xb},
		SpanID:  trace.SpanID{0xc},
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil).WithContext(ctx)
	s.router.ServeHTTP(httptest.NewRecorder(), req)
	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "HTTP request completed", entry.Message)
	assert.Equal(t, sc.TraceID().String(), entry.Data["trace_id"])
	assert.Equal(t, sc.SpanID().String(), entry.Data["span_id"])

	hook.Reset()
	rec := httptest.NewRecorder()
	s.fail(rec, req, errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	entry = hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "request failed", entry.Message)
	assert.Equal(t, sc.TraceID().String(), entry.Data["trace_id"])
}
