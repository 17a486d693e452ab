// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

package watch

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestSplitLines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "empty string", input: "", expected: nil},
		{name: "single line no newline", input: "line1", expected: []string{"line1"}},
		{name: "single line with newline", input: "line1\n", expected: []string{"line1"}},
		{name: "multiple lines", input: "line1\nline2\n", expected: []string{"line1", "line2"}},
		{name: "multiple lines no trailing newline", input: "line1\nline2", expected: []string{"line1", "line2"}},
		{name: "windows CRLF", input: "line1\r\nline2\r\n", expected: []string{"line1", "line2"}},
		{name: "mixed newlines", input: "line1\nline2\r\nline3", expected: []string{"line1", "line2", "line3"}},
		{name: "empty lines preserved", input: "line1\n\nline3\n", expected: []string{"line1", "", "line3"}},
		{name: "just newline", input: "\n", expected: []string{""}},
		{name: "multiple empty lines", input: "\n\n\n", expected: []string{"", "", ""}},
		{name: "trailing partial", input: "line1\npartial", expected: []string{"line1", "partial"}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := splitLines(tc.input)
			if len(got) != len(tc.expected) {
				t.Fatalf("splitLines(%q) length = %d, want %d\ngot:  %#v\nwant: %#v",
					tc.input, len(got), len(tc.expected), got, tc.expected)
			}
			for i := range got {
				if got[i] != tc.expected[i] {
					t.Fatalf("splitLines(%q)[%d] = %q, want %q", tc.input, i, got[i], tc.expected[i])
				}
			}
		})
	}
}

func TestWatcherNew(t *testing.T) {
	t.Parallel()

	t.Run("rejects empty file list", func(t *testing.T) {
		t.Parallel()
		_, err := New(Config{Files: []string{}})
		if err == nil {
			t.Error("expected error for empty file list")
		}
		if !strings.Contains(err.Error(), "no files") {
			t.Errorf("error should mention 'no files', got: %v", err)
		}
	})

	t.Run("accepts literal file path", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		file := filepath.Join(dir, "test.log")
		if err := writeFile(file, "cpu 1\n"); err != nil {
			t.Fatalf("setup: %v", err)
		}

		w, err := New(Config{Files: []string{file}, Log: quietLog()})
		if err != nil {
			t.Fatalf("New() error: %v", err)
		}
		if w.FileCount() != 1 {
			t.Errorf("FileCount() = %d, want 1", w.FileCount())
		}
	})

	t.Run("expands glob patterns", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		for _, name := range []string{"a.metrics", "b.metrics", "c.txt"} {
			if err := writeFile(filepath.Join(dir, name), "cpu 1\n"); err != nil {
				t.Fatalf("setup: %v", err)
			}
		}

		w, err := New(Config{Files: []string{filepath.Join(dir, "*.metrics")}})
		if err != nil {
			t.Fatalf("New() error: %v", err)
		}
		if w.FileCount() != 2 {
			t.Errorf("FileCount() = %d, want 2 (*.metrics matches a.metrics, b.metrics)", w.FileCount())
		}
	})

	t.Run("keeps missing literal path", func(t *testing.T) {
		t.Parallel()
		missing := filepath.Join(t.TempDir(), "later.metrics")
		w, err := New(Config{Files: []string{missing}, Log: quietLog()})
		if err != nil {
			t.Fatalf("New() error: %v", err)
		}
		if got := w.Files(); len(got) != 1 || got[0] != missing {
			t.Errorf("Files() = %v, want [%s]", got, missing)
		}
	})

	t.Run("respects context", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		file := filepath.Join(dir, "test.log")
		if err := writeFile(file, "cpu 1\n"); err != nil {
			t.Fatalf("setup: %v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel() // Pre-cancel

		w, err := New(Config{Context: ctx, Files: []string{file}, Log: quietLog()})
		if err != nil {
			t.Fatalf("New() error: %v", err)
		}
		// Context should be stored and cancellation should propagate
		if w.ctx.Err() == nil {
			t.Error("expected watcher context to be canceled")
		}
	})
}

func TestWatcherAccessors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	files := []string{
		filepath.Join(dir, "one.log"),
		filepath.Join(dir, "two.log"),
	}
	for _, f := range files {
		if err := writeFile(f, "cpu 1\n"); err != nil {
			t.Fatalf("setup: %v", err)
		}
	}

	w, err := New(Config{Files: files, Log: quietLog()})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	t.Run("FileCount", func(t *testing.T) {
		if got := w.FileCount(); got != 2 {
			t.Errorf("FileCount() = %d, want 2", got)
		}
	})

	t.Run("Files returns copy", func(t *testing.T) {
		got := w.Files()
		if len(got) != 2 {
			t.Errorf("Files() length = %d, want 2", len(got))
		}
		// Verify it contains expected paths
		foundOne, foundTwo := false, false
		for _, f := range got {
			if strings.HasSuffix(f, "one.log") {
				foundOne = true
			}
			if strings.HasSuffix(f, "two.log") {
				foundTwo = true
			}
		}
		if !foundOne || !foundTwo {
			t.Errorf("Files() missing expected files: %v", got)
		}
	})
}

func TestWatcherAddHandler(t *testing.T) {
	t.Parallel()

	t.Run("single handler called", func(t *testing.T) {
		t.Parallel()
		w := &Watcher{}
		callCount := 0
		w.AddHandler(func(Sample) { callCount++ })
		w.callHandlers(Sample{})
		if callCount != 1 {
			t.Errorf("handler called %d times, want 1", callCount)
		}
	})

	t.Run("multiple handlers called in order", func(t *testing.T) {
		t.Parallel()
		w := &Watcher{}
		order := []int{}
		w.AddHandler(func(Sample) { order = append(order, 1) })
		w.AddHandler(func(Sample) { order = append(order, 2) })
		w.AddHandler(func(Sample) { order = append(order, 3) })
		w.callHandlers(Sample{})
		if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
			t.Errorf("handlers called in wrong order: %v", order)
		}
	})

	t.Run("handler receives sample", func(t *testing.T) {
		t.Parallel()
		w := &Watcher{}
		var received Sample
		w.AddHandler(func(s Sample) { received = s })

		sent := Sample{Key: "cpu", Value: 2, TS: 1000}
		w.callHandlers(sent)

		if received.Key != sent.Key || received.Value != sent.Value {
			t.Errorf("handler received %+v, want %+v", received, sent)
		}
	})
}

func TestWatcherStop(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "test.log")
	if err := writeFile(file, "cpu 1\n"); err != nil {
		t.Fatalf("setup: %v", err)
	}

	w, err := New(Config{Files: []string{file}, Log: quietLog()})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	// Stop should cancel the context
	w.Stop()
	if w.ctx.Err() == nil {
		t.Error("Stop() should cancel the context")
	}
}

func TestWatcherReadAll(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "app.metrics")
	content := "# warmup\ncpu 1 1000\n\nnot-a-number x\n{\"key\":\"mem\",\"value\":4,\"ts\":2000}\r\ncpu 2 1500"
	if err := writeFile(file, content); err != nil {
		t.Fatalf("setup: %v", err)
	}

	w, err := New(Config{Files: []string{file, filepath.Join(dir, "missing.metrics")}, Log: quietLog()})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	var got []Sample
	w.AddHandler(func(s Sample) { got = append(got, s) })

	n, err := w.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	if n != 3 || len(got) != 3 {
		t.Fatalf("ReadAll() = %d (%d handled), want 3", n, len(got))
	}
	if got[1].Key != "mem" || got[1].Value != 4 || got[1].TS != 2000 {
		t.Errorf("second sample = %+v, want mem 4 @2000", got[1])
	}
	if got[2].Source != file {
		t.Errorf("Source = %q, want %q", got[2].Source, file)
	}
	if w.Skipped() != 1 {
		t.Errorf("Skipped() = %d, want 1", w.Skipped())
	}
}

func TestWatcherFollow(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "live.metrics")
	if err := writeFile(file, "cpu 1 1000\n"); err != nil {
		t.Fatalf("setup: %v", err)
	}

	w, err := New(Config{Files: []string{file}, Follow: true, FromHead: true, Poll: true, Log: quietLog()})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	got := make(chan Sample, 4)
	w.AddHandler(func(s Sample) { got <- s })

	done := make(chan struct{})
	go func() {
		_ = w.Start()
		close(done)
	}()

	select {
	case s := <-got:
		if s.Key != "cpu" || s.TS != 1000 {
			t.Errorf("sample = %+v, want cpu @1000", s)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no sample from tailed file")
	}

	w.Stop()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after Stop()")
	}
}

func quietLog() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// writeFile is a helper to create test files.
func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
