// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

// Package logging builds the process logger and wires it to OpenTelemetry.
package logging

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// Config holds logger configuration
type Config struct {
	Level        string // trace, debug, info, warn, error
	Format       string // text or json
	OTLPEndpoint string // when set, entries are also exported as OTLP log records
	OTLPInsecure bool
	ServiceName  string
}

// New creates a logger writing to out. The returned shutdown flushes any
// exporter and must be called before exit.
func New(ctx context.Context, cfg Config, out io.Writer) (*logrus.Logger, func(context.Context) error, error) {
	log := logrus.New()
	log.SetOutput(out)

	level := cfg.Level
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	log.SetLevel(lvl)

	switch cfg.Format {
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, nil, fmt.Errorf("invalid log format %q: must be text or json", cfg.Format)
	}

	log.AddHook(TraceHook{})

	shutdown := func(context.Context) error { return nil }
	if cfg.OTLPEndpoint != "" {
		hook, err := NewOTLPHook(ctx, OTLPConfig{
			Endpoint:    cfg.OTLPEndpoint,
			Insecure:    cfg.OTLPInsecure,
			ServiceName: cfg.ServiceName,
		})
		if err != nil {
			return nil, nil, err
		}
		log.AddHook(hook)
		shutdown = hook.Close
	}
	return log, shutdown, nil
}
