// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// ChannelUpdate is the body of POST /api/channels/{id}.
type ChannelUpdate struct {
	Add    []string `json:"add"`
	Remove []string `json:"remove"`
}

func writeEvent(w io.Writer, event string, data []byte) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

// handleStream serves GET /api/channels/{id}?delta as a server-sent event stream.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		writeError(w, http.StatusBadRequest, "empty channel id")
		return
	}
	delta, err := queryInt(r, "delta")
	if err != nil || delta <= 0 {
		writeError(w, http.StatusBadRequest, "delta must be a positive integer")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ch := s.hub.Open(id, delta)
	defer s.hub.Close(ch)
	log := s.log.WithFields(logrus.Fields{"channel": id, "delta": delta}).WithContext(r.Context())
	log.Debug("live channel opened")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, "init", []byte(`{}`)); err != nil {
		return
	}
	flusher.Flush()

	ping := time.NewTicker(s.opts.Heartbeat)
	defer ping.Stop()
	for {
		select {
		case <-r.Context().Done():
			log.Debug("live channel client went away")
			return
		case <-ch.Done():
			log.Debug("live channel replaced")
			return
		case <-ping.C:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev := <-ch.Events():
			if err := writeEvent(w, "point", ev); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// handleUpdateChannel serves POST /api/channels/{id}.
func (s *Server) handleUpdateChannel(w http.ResponseWriter, r *http.Request) {
	var body ChannelUpdate
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed channel update")
		return
	}
	if err := s.hub.Update(chi.URLParam(r, "id"), body.Add, body.Remove); err != nil {
		if status := statusFor(err); status == http.StatusNotFound {
			writeError(w, status, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
