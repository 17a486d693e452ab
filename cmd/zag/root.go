// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Voxer/zag-sub000/internal/config"
	"github.com/Voxer/zag-sub000/internal/logging"
)

// Global flags shared across commands.
// Values are bound via Viper; variables keep Cobra compatibility.
var (
	configFile string
	logLevel   string
	logFormat  string
	otlpFlag   string
	serverURL  string
)

var rootCmd = &cobra.Command{
	Use:   "zag",
	Short: "Time-series metrics server and terminal chart viewer",
	Long: `zag stores delta-bucketed metric series, streams live points to viewers,
and charts them in the terminal.

Start a server with 'zag serve', feed it with 'zag ingest', then browse
charts with 'zag ui'.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cmd)
		if err != nil {
			return err
		}
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	// Global flags (Viper precedence: flags > env > config file > defaults)
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file (env: ZAG_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "Log level: trace, debug, info, warn, error (env: ZAG_LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", config.DefaultLogFormat, "Log format: text or json (env: ZAG_LOG_FORMAT)")
	rootCmd.PersistentFlags().StringVar(&otlpFlag, "otlp", "", "OTLP HTTP endpoint for logs and traces (env: ZAG_LOG_OTLP_ENDPOINT)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "url", config.DefaultClientURL, "zag server URL (env: ZAG_CLIENT_URL)")
}

// loadConfig returns the configuration stored by the root command.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, ok := config.FromContext(cmd.Context())
	if !ok {
		return config.Config{}, fmt.Errorf("configuration not loaded")
	}
	return cfg, nil
}

// setupTelemetry builds the logger and tracer provider. The returned
// shutdown flushes both exporters.
func setupTelemetry(ctx context.Context, cfg config.Config, out io.Writer) (*logrus.Logger, func(), error) {
	log, shutdownLogs, err := logging.New(ctx, logging.Config{
		Level:        cfg.Log.Level,
		Format:       cfg.Log.Format,
		OTLPEndpoint: cfg.Log.OTLPEndpoint,
		OTLPInsecure: cfg.Log.OTLPInsecure,
		ServiceName:  "zag",
	}, out)
	if err != nil {
		return nil, nil, err
	}
	shutdownTraces, err := logging.SetupTracing(ctx, logging.TracingConfig{
		ServiceName:    "zag",
		ServiceVersion: version,
		Endpoint:       cfg.Log.OTLPEndpoint,
		Insecure:       cfg.Log.OTLPInsecure,
	})
	if err != nil {
		_ = shutdownLogs(ctx)
		return nil, nil, fmt.Errorf("setup tracing: %w", err)
	}
	return log, func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTraces(sctx); err != nil {
			log.WithError(err).Warn("trace exporter shutdown failed")
		}
		if err := shutdownLogs(sctx); err != nil {
			log.WithError(err).Warn("log exporter shutdown failed")
		}
	}, nil
}
