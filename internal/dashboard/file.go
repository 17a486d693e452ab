// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

package dashboard

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of a dashboards file.
type File struct {
	Dashboards []Dashboard `yaml:"dashboards"`
}

// Decode parses a dashboards document and validates every entry.
func Decode(data []byte) ([]Dashboard, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse dashboards: %w", err)
	}
	for _, d := range f.Dashboards {
		if err := d.Validate(); err != nil {
			return nil, err
		}
	}
	return f.Dashboards, nil
}

// Encode renders dashboards as a YAML document.
func Encode(ds []Dashboard) ([]byte, error) {
	data, err := yaml.Marshal(File{Dashboards: ds})
	if err != nil {
		return nil, fmt.Errorf("marshal dashboards: %w", err)
	}
	return data, nil
}

// LoadFile reads and validates a dashboards file.
func LoadFile(path string) ([]Dashboard, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dashboards file: %w", err)
	}
	return Decode(data)
}

// SaveFile writes dashboards to path, creating its directory.
func SaveFile(path string, ds []Dashboard) error {
	data, err := Encode(ds)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dashboards directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write dashboards file: %w", err)
	}
	return nil
}

// Watch calls onChange with the file's dashboards every time it is written,
// until ctx is done. The directory is watched so editors that replace the
// file on save are picked up. Invalid contents are logged and skipped.
func Watch(ctx context.Context, path string, log logrus.FieldLogger, onChange func([]Dashboard)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve dashboards path: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch directory: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher closed")
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			ds, err := LoadFile(abs)
			if err != nil {
				log.WithError(err).WithField("path", abs).Warn("ignoring invalid dashboards file")
				continue
			}
			onChange(ds)
		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher closed")
			}
			log.WithError(err).Warn("dashboards watcher error")
		}
	}
}
