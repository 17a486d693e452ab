// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

// Package server serves metric ranges, live channels and dashboards over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	lru "github.com/hashicorp/golang-lru"
	"github.com/klauspost/compress/gzhttp"
	cache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/Voxer/zag-sub000/internal/dashboard"
	"github.com/Voxer/zag-sub000/internal/store"
)

// Options tunes the server. Zero values take the defaults below.
type Options struct {
	CacheSize     int
	TypeCacheTTL  time.Duration
	IngestRate    float64
	IngestBurst   int
	ChannelBuffer int
	Heartbeat     time.Duration
	// Registry receives the server's metrics and is served on /metrics.
	Registry *prometheus.Registry
	// Now is the clock deciding which ranges are historical.
	Now func() time.Time
}

func (o *Options) setDefaults() {
	if o.CacheSize <= 0 {
		o.CacheSize = 1024
	}
	if o.TypeCacheTTL <= 0 {
		o.TypeCacheTTL = time.Minute
	}
	if o.IngestRate <= 0 {
		o.IngestRate = 100
	}
	if o.IngestBurst <= 0 {
		o.IngestBurst = 200
	}
	if o.ChannelBuffer <= 0 {
		o.ChannelBuffer = 256
	}
	if o.Heartbeat <= 0 {
		o.Heartbeat = 15 * time.Second
	}
	if o.Registry == nil {
		o.Registry = prometheus.NewRegistry()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Server is the zag HTTP API.
type Server struct {
	store      store.Store
	dashboards store.Dashboards
	opts       Options
	log        logrus.FieldLogger

	ranges  *lru.Cache
	types   *cache.Cache
	limiter *rate.Limiter
	hub     *Hub
	metrics *metrics
	router  chi.Router
}

// New creates a server over st and ds.
func New(st store.Store, ds store.Dashboards, opts Options, log logrus.FieldLogger) (*Server, error) {
	opts.setDefaults()
	if log == nil {
		log = logrus.StandardLogger()
	}
	ranges, err := lru.New(opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create range cache: %w", err)
	}
	m := newMetrics(opts.Registry)
	s := &Server{
		store:      st,
		dashboards: ds,
		opts:       opts,
		log:        log,
		ranges:     ranges,
		types:      cache.New(opts.TypeCacheTTL, 2*opts.TypeCacheTTL),
		limiter:    rate.NewLimiter(rate.Limit(opts.IngestRate), opts.IngestBurst),
		hub:        NewHub(opts.ChannelBuffer, m, log),
		metrics:    m,
	}
	s.router = s.routes()
	return s, nil
}

// Hub returns the live channel hub.
func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(CORS)
	r.Use(Logging(s.log, s.metrics))

	gzip := func(next http.Handler) http.Handler { return gzhttp.GzipHandler(next) }

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.opts.Registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.With(gzip).Get("/metrics/{mkey}", s.handleGetRange)
		r.Post("/metrics/{mkey}", s.handleIngest)

		r.With(gzip).Get("/keys", s.handleListKeys)
		r.Get("/keys/{mkey}", s.handleGetKey)

		r.Get("/channels/{id}", s.handleStream)
		r.Post("/channels/{id}", s.handleUpdateChannel)

		r.Get("/dashboards", s.handleListDashboards)
		r.Get("/dashboards/{id}", s.handleGetDashboard)
		r.Put("/dashboards/{id}", s.handlePutDashboard)
		r.Delete("/dashboards/{id}", s.handleDeleteDashboard)
	})
	return r
}

// Handler returns the traced HTTP handler.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.router, "zag",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readHeaderTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("zag server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down zag server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeRaw(w, status, body)
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps store errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, ErrChannelNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrTypeMismatch), errors.Is(err, store.ErrUnsupported),
		errors.Is(err, dashboard.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrReadOnly):
		return http.StatusMethodNotAllowed
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		s.log.WithError(err).WithContext(r.Context()).Error("request failed")
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}
