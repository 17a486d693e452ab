// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

// Package watch reads metric lines from files and batches them for ingest.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nxadm/tail"
	"github.com/sirupsen/logrus"
)

// SampleHandler is called for each parsed metric line
type SampleHandler func(s Sample)

// Watcher watches multiple metric files and calls handlers for each sample
type Watcher struct {
	files    []string
	follow   bool
	fromHead bool
	poll     bool
	log      logrus.FieldLogger
	now      func() time.Time
	handlers []SampleHandler
	tails    []*tail.Tail
	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc

	skipped int
}

// Config holds watcher configuration
type Config struct {
	Context  context.Context
	Files    []string
	Follow   bool // Keep watching for new lines
	FromHead bool // Start tailing at the beginning of each file instead of the end
	Poll     bool // Poll for changes instead of using inotify
	Log      logrus.FieldLogger
}

// New creates a new Watcher
func New(cfg Config) (*Watcher, error) {
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	// Expand globs
	var files []string
	for _, pattern := range cfg.Files {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			// Check if it's a literal file that doesn't exist yet
			if _, err := os.Stat(pattern); os.IsNotExist(err) {
				log.WithField("file", pattern).Warn("file does not exist, will watch for creation")
			}
			files = append(files, pattern)
		} else {
			files = append(files, matches...)
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no files to watch")
	}

	parent := cfg.Context
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	return &Watcher{
		files:    files,
		follow:   cfg.Follow,
		fromHead: cfg.FromHead,
		poll:     cfg.Poll,
		log:      log,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// AddHandler adds a sample handler
func (w *Watcher) AddHandler(h SampleHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, h)
}

// Start tails all files until Stop is called or the context is done
func (w *Watcher) Start() error {
	var wg sync.WaitGroup

	for _, file := range w.files {
		wg.Add(1)
		go func(f string) {
			defer wg.Done()
			if err := w.watchFile(f); err != nil {
				w.log.WithError(err).WithField("file", f).Error("error watching file")
			}
		}(file)
	}

	// Wait for context cancellation
	<-w.ctx.Done()

	// Stop all tails
	w.mu.Lock()
	for _, t := range w.tails {
		_ = t.Stop()
	}
	w.mu.Unlock()

	wg.Wait()
	return nil
}

// Stop stops watching all files
func (w *Watcher) Stop() {
	w.cancel()
}

// FileCount returns the number of files being watched
func (w *Watcher) FileCount() int {
	return len(w.files)
}

// Files returns the list of files being watched (after glob expansion)
func (w *Watcher) Files() []string {
	return append([]string(nil), w.files...)
}

// Skipped returns the number of lines that could not be parsed
func (w *Watcher) Skipped() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.skipped
}

// ReadAll reads every line of every file once and returns the number of
// samples handled. This is used for oneshot mode.
func (w *Watcher) ReadAll() (int, error) {
	total := 0
	for _, filename := range w.files {
		data, err := os.ReadFile(filename)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				w.log.WithField("file", filename).Warn("skipping missing file")
				continue
			}
			return total, fmt.Errorf("error reading %s: %w", filename, err)
		}
		for _, line := range splitLines(string(data)) {
			if w.handleLine(line, filename) {
				total++
			}
		}
	}
	return total, nil
}

func (w *Watcher) watchFile(filename string) error {
	whence := io.SeekEnd
	if w.fromHead {
		whence = io.SeekStart
	}
	cfg := tail.Config{
		Follow:    w.follow,
		ReOpen:    w.follow, // Handle file rotation
		MustExist: false,    // Allow watching files that don't exist yet
		Poll:      w.poll,
		Location:  &tail.SeekInfo{Offset: 0, Whence: whence},
		Logger:    tail.DiscardingLogger,
	}

	t, err := tail.TailFile(filename, cfg)
	if err != nil {
		return fmt.Errorf("failed to tail %s: %w", filename, err)
	}

	w.mu.Lock()
	w.tails = append(w.tails, t)
	w.mu.Unlock()

	for {
		select {
		case <-w.ctx.Done():
			return nil
		case line, ok := <-t.Lines:
			if !ok {
				return nil
			}
			if line.Err != nil {
				w.log.WithError(line.Err).WithField("file", filename).Warn("error reading line")
				continue
			}
			w.handleLine(line.Text, filename)
		}
	}
}

// handleLine parses a line and hands it to the handlers. It reports whether
// the line produced a sample.
func (w *Watcher) handleLine(line, source string) bool {
	s, err := ParseLine(line, source, w.now())
	if errors.Is(err, ErrBlank) {
		return false
	}
	if err != nil {
		w.mu.Lock()
		w.skipped++
		w.mu.Unlock()
		w.log.WithError(err).WithField("file", source).Debug("skipping metric line")
		return false
	}
	w.callHandlers(s)
	return true
}

// splitLines splits a string into lines, preserving the last potentially incomplete line
func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			line := s[start:i]
			if len(line) > 0 && line[len(line)-1] == '\r' {
				line = line[:len(line)-1]
			}
			lines = append(lines, line)
			start = i + 1
		}
	}
	// Include any trailing content (potentially incomplete line)
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

func (w *Watcher) callHandlers(s Sample) {
	w.mu.Lock()
	handlers := make([]SampleHandler, len(w.handlers))
	copy(handlers, w.handlers)
	w.mu.Unlock()

	for _, h := range handlers {
		h(s)
	}
}
