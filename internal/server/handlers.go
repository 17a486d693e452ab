// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/Voxer/zag-sub000/internal/series"
)

// maxIngestBody bounds a single ingest request.
const maxIngestBody = 8 << 20

type rangeKey struct {
	base  string
	llq   bool
	delta int64
	start int64
	end   int64
}

type cachedRange struct {
	body []byte
	etag string
}

func queryInt(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("missing %s", name)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return v, nil
}

func etagOf(body []byte) string {
	return `"` + strconv.FormatUint(xxhash.Sum64(body), 16) + `"`
}

// handleGetRange serves GET /api/metrics/{mkey}?start&end&delta&nocache.
func (s *Server) handleGetRange(w http.ResponseWriter, r *http.Request) {
	start, err := queryInt(r, "start")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	end, err := queryInt(r, "end")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	delta, err := queryInt(r, "delta")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if end < start {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("end %d is before start %d", end, start))
		return
	}
	key, err := series.ParseKey(chi.URLParam(r, "mkey"), delta)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	historical := end < s.opts.Now().UnixMilli()
	_, nocache := r.URL.Query()["nocache"]
	ck := rangeKey{base: key.Base, llq: key.IsLLQ(), delta: delta, start: start, end: end}

	if historical && !nocache {
		if v, ok := s.ranges.Get(ck); ok {
			s.metrics.rangeCache.WithLabelValues("hit").Inc()
			s.writeRange(w, r, v.(cachedRange), true)
			return
		}
		s.metrics.rangeCache.WithLabelValues("miss").Inc()
	}

	pts, err := s.store.Range(r.Context(), key, start, end)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	body, err := series.EncodePoints(pts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	cr := cachedRange{body: body, etag: etagOf(body)}
	if historical && !nocache {
		s.ranges.Add(ck, cr)
	}
	s.writeRange(w, r, cr, historical)
}

func (s *Server) writeRange(w http.ResponseWriter, r *http.Request, cr cachedRange, historical bool) {
	if !historical {
		w.Header().Set("Cache-Control", "no-store")
		writeRaw(w, http.StatusOK, cr.body)
		return
	}
	w.Header().Set("ETag", cr.etag)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	if r.Header.Get("If-None-Match") == cr.etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeRaw(w, http.StatusOK, cr.body)
}

// handleIngest serves POST /api/metrics/{mkey}?delta.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		s.metrics.ingestLimited.Inc()
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusTooManyRequests, "ingest rate exceeded")
		return
	}
	delta, err := queryInt(r, "delta")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	key, err := series.ParseKey(chi.URLParam(r, "mkey"), delta)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxIngestBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	pts, err := series.DecodePoints(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(pts) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := s.store.Append(r.Context(), key, pts); err != nil {
		s.fail(w, r, err)
		return
	}
	s.metrics.ingestedPoints.Add(float64(len(pts)))
	s.types.Delete(key.Base)
	s.invalidate(key, pts)

	sent := 0
	for _, p := range pts {
		sent += s.hub.Publish(key, p)
	}
	s.log.WithFields(logrus.Fields{
		"key":    key.String(),
		"points": len(pts),
		"live":   sent,
	}).WithContext(r.Context()).Debug("ingested points")
	w.WriteHeader(http.StatusNoContent)
}

// invalidate drops cached ranges of key's series that cover any of pts.
func (s *Server) invalidate(key series.Key, pts []series.Point) {
	for _, k := range s.ranges.Keys() {
		ck, ok := k.(rangeKey)
		if !ok || ck.base != key.Base || ck.llq != key.IsLLQ() || ck.delta != key.Delta {
			continue
		}
		for _, p := range pts {
			if ts := p.Timestamp(); ts >= ck.start && ts < ck.end {
				s.ranges.Remove(k)
				break
			}
		}
	}
}

// handleListKeys serves GET /api/keys?prefix.
func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := s.store.Keys(r.Context(), r.URL.Query().Get("prefix"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, keys)
}

// handleGetKey serves GET /api/keys/{mkey}, the type lookup.
func (s *Server) handleGetKey(w http.ResponseWriter, r *http.Request) {
	key, err := series.ParseKey(chi.URLParam(r, "mkey"), 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	typ, err := s.keyType(r, key.Base)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key.Base, "type": string(typ)})
}

func (s *Server) keyType(r *http.Request, base string) (series.Type, error) {
	if v, ok := s.types.Get(base); ok {
		return v.(series.Type), nil
	}
	typ, err := s.store.KeyType(r.Context(), base)
	if err != nil {
		return "", err
	}
	s.types.SetDefault(base, typ)
	return typ, nil
}
