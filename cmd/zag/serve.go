// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Voxer/zag-sub000/internal/config"
	"github.com/Voxer/zag-sub000/internal/dashboard"
	"github.com/Voxer/zag-sub000/internal/es"
	"github.com/Voxer/zag-sub000/internal/server"
	"github.com/Voxer/zag-sub000/internal/store"
	"github.com/Voxer/zag-sub000/internal/store/redisstore"
)

var (
	serveAddr        string
	serveBackend     string
	serveDashboards  string
	serveRedisAddr   string
	serveRedisPrefix string
	serveESURL       string
	serveIndex       string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the zag HTTP API",
	Long: `Serves metric ranges, ingest, live channels and dashboards over HTTP.

Examples:
  zag serve
  zag serve --backend redis --redis-addr localhost:6379
  zag serve --backend elasticsearch --es-url http://localhost:9200 --index 'metrics-*'
  zag serve --dashboards-file dashboards.yaml   # reloaded when the file changes`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", config.DefaultAddr, "Listen address (env: ZAG_SERVER_ADDR)")
	serveCmd.Flags().StringVar(&serveBackend, "backend", config.DefaultBackend, "Storage backend: memory, redis or elasticsearch")
	serveCmd.Flags().StringVar(&serveDashboards, "dashboards-file", "", "YAML dashboards file, watched for changes")
	serveCmd.Flags().StringVar(&serveRedisAddr, "redis-addr", config.DefaultRedisAddr, "Redis address")
	serveCmd.Flags().StringVar(&serveRedisPrefix, "redis-prefix", config.DefaultRedisPrefix, "Redis key prefix")
	serveCmd.Flags().StringVar(&serveESURL, "es-url", config.DefaultESURL, "Elasticsearch URL")
	serveCmd.Flags().StringVarP(&serveIndex, "index", "i", config.DefaultIndex, "Elasticsearch index pattern")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Listen for SIGINT/SIGTERM and cancel the run context.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log, shutdown, err := setupTelemetry(ctx, cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer shutdown()

	st, ds, closeBackend, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeBackend()

	if path := cfg.Server.DashboardsFile; path != "" {
		if err := serveDashboardsFile(ctx, path, ds, log); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv, err := server.New(st, ds, server.Options{
		CacheSize:     cfg.Server.CacheSize,
		TypeCacheTTL:  cfg.Server.TypeCacheTTL,
		IngestRate:    cfg.Server.IngestRate,
		IngestBurst:   cfg.Server.IngestBurst,
		ChannelBuffer: cfg.Server.ChannelBuffer,
		Heartbeat:     cfg.Server.Heartbeat,
		Registry:      reg,
	}, log)
	if err != nil {
		return err
	}
	return srv.ListenAndServe(ctx, cfg.Server.Addr, cfg.Server.ReadHeaderTimeout)
}

// openBackend connects the configured store. Backends without dashboard
// storage get an in-memory dashboard store.
func openBackend(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (store.Store, store.Dashboards, func(), error) {
	switch cfg.Store.Backend {
	case "", "memory":
		mem := store.NewMemory()
		return mem, mem, func() {}, nil

	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
		rs := redisstore.New(rdb, cfg.Store.Redis.Prefix)
		if err := rs.Ping(ctx); err != nil {
			_ = rdb.Close()
			return nil, nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.Store.Redis.Addr, err)
		}
		log.WithField("addr", cfg.Store.Redis.Addr).Info("using redis store")
		return rs, rs, func() { _ = rdb.Close() }, nil

	case "elasticsearch":
		client, err := es.New(es.Options{
			Addresses: []string{cfg.Store.ES.URL},
			Index:     cfg.Store.ES.Index,
			Timeout:   cfg.Store.ES.Timeout,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		if err := client.Ping(ctx); err != nil {
			return nil, nil, nil, fmt.Errorf("connect to elasticsearch at %s: %w", cfg.Store.ES.URL, err)
		}
		log.WithFields(logrus.Fields{"url": cfg.Store.ES.URL, "index": cfg.Store.ES.Index}).Info("using read-only elasticsearch store")
		return es.NewStore(client), store.NewMemory(), func() {}, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

// serveDashboardsFile loads path into ds and keeps reloading it on change.
// An in-memory store is replaced wholesale; other stores get each dashboard
// put, so dashboards removed from the file stay until deleted.
func serveDashboardsFile(ctx context.Context, path string, ds store.Dashboards, log logrus.FieldLogger) error {
	apply := func(list []dashboard.Dashboard) error {
		if mem, ok := ds.(*store.Memory); ok {
			mem.Replace(list)
			return nil
		}
		var errs *multierror.Error
		for _, d := range list {
			if err := ds.Put(ctx, d); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("dashboard %s: %w", d.ID, err))
			}
		}
		return errs.ErrorOrNil()
	}

	initial, err := dashboard.LoadFile(path)
	if err != nil {
		return err
	}
	if err := apply(initial); err != nil {
		return fmt.Errorf("load dashboards file: %w", err)
	}
	log.WithFields(logrus.Fields{"path": path, "dashboards": len(initial)}).Info("loaded dashboards file")

	go func() {
		err := dashboard.Watch(ctx, path, log, func(list []dashboard.Dashboard) {
			if err := apply(list); err != nil {
				log.WithError(err).WithField("path", path).Warn("dashboards file partially applied")
				return
			}
			log.WithFields(logrus.Fields{"path": path, "dashboards": len(list)}).Info("reloaded dashboards file")
		})
		if err != nil {
			log.WithError(err).WithField("path", path).Error("dashboards file watch stopped")
		}
	}()
	return nil
}
