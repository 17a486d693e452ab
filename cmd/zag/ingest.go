// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Voxer/zag-sub000/internal/client"
	"github.com/Voxer/zag-sub000/internal/config"
	"github.com/Voxer/zag-sub000/internal/watch"
)

var (
	ingestOneshot  bool
	ingestFromHead bool
	ingestPoll     bool
	ingestFlush    time.Duration
	ingestDelta    int64
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Tail metric files and send them to a zag server",
	Long: `Tails one or more metric files like tail -F and sends their samples to
a zag server.

Lines are either JSON objects with a "key" plus point fields, or plain
"key value [ts_ms]". Plain values are summed into counter buckets.

Examples:
  zag ingest app.metrics
  zag ingest ./metrics/*.log --from-head
  zag ingest --oneshot backfill.log   # Send the whole file and exit`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestOneshot, "oneshot", false, "Send every line once and exit (don't follow)")
	ingestCmd.Flags().BoolVar(&ingestFromHead, "from-head", false, "Start tailing at the beginning of each file")
	ingestCmd.Flags().BoolVar(&ingestPoll, "poll", false, "Poll files for changes instead of using inotify")
	ingestCmd.Flags().DurationVar(&ingestFlush, "flush", 2*time.Second, "How often batched samples are sent")
	ingestCmd.Flags().Int64Var(&ingestDelta, "delta", config.DefaultDelta, "Bucket width in ms (env: ZAG_CLIENT_DELTA)")

	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, files []string) error {
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

	c := client.New(client.Options{URL: cfg.Client.URL, Timeout: cfg.Client.Timeout})
	if err := c.Ping(ctx); err != nil {
		return fmt.Errorf("zag server at %s: %w", cfg.Client.URL, err)
	}

	watcher, err := watch.New(watch.Config{
		Context:  ctx,
		Files:    files,
		Follow:   !ingestOneshot,
		FromHead: ingestFromHead,
		Poll:     ingestPoll,
		Log:      log,
	})
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	batcher := watch.NewBatcher(c, cfg.Client.Delta, log)
	watcher.AddHandler(batcher.Add)

	if ingestOneshot {
		n, err := watcher.ReadAll()
		if err != nil {
			return err
		}
		fctx, cancel := context.WithTimeout(ctx, cfg.Client.Timeout)
		defer cancel()
		if err := batcher.Flush(fctx); err != nil {
			return fmt.Errorf("send samples: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Sent %d samples from %d files (%d lines skipped)\n", n, watcher.FileCount(), watcher.Skipped())
		return nil
	}

	log.WithField("files", watcher.Files()).Info("watching metric files")
	done := make(chan struct{})
	go func() {
		batcher.Run(ctx, ingestFlush)
		close(done)
	}()
	err = watcher.Start()
	<-done
	return err
}
