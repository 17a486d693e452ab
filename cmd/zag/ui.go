// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	osSignal "os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Voxer/zag-sub000/internal/client"
	"github.com/Voxer/zag-sub000/internal/config"
	"github.com/Voxer/zag-sub000/internal/session"
	"github.com/Voxer/zag-sub000/internal/tui"
)

var (
	uiDashboard string
	uiLogFile   string
	uiNoLive    bool
)

var uiCmd = &cobra.Command{
	Use:   "ui [key]...",
	Short: "Open the interactive chart viewer",
	Long: `Opens the terminal chart viewer against a zag server.

With one key the viewer charts it; several keys are charted together.
Use --dashboard to open a saved dashboard instead.

Examples:
  zag ui
  zag ui requests
  zag ui requests errors
  zag ui --dashboard ops`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUI(cmd, args)
	},
}

func init() {
	uiCmd.Flags().StringVarP(&uiDashboard, "dashboard", "d", "", "Dashboard to open")
	uiCmd.Flags().StringVar(&uiLogFile, "log-file", "", "Write logs to this file (default: discard)")
	uiCmd.Flags().BoolVar(&uiNoLive, "no-live", false, "Don't subscribe to live points")
	uiCmd.Flags().Int64("delta", config.DefaultDelta, "Bucket width in ms (env: ZAG_CLIENT_DELTA)")
	uiCmd.Flags().Duration("window", config.DefaultWindow, "Initial visible range (env: ZAG_CLIENT_WINDOW)")
	uiCmd.Flags().Duration("refresh", config.DefaultRefresh, "Refresh interval (env: ZAG_CLIENT_REFRESH)")

	rootCmd.AddCommand(uiCmd)
}

func runUI(cmd *cobra.Command, args []string) error {
	if len(args) > 0 && uiDashboard != "" {
		return fmt.Errorf("give either keys or --dashboard, not both")
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("zag ui needs a terminal")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	notifyCtx, stop := osSignal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The viewer owns the screen, so logs go to a file or nowhere.
	var logOut io.Writer = io.Discard
	if uiLogFile != "" {
		f, err := os.OpenFile(uiLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	log, shutdown, err := setupTelemetry(notifyCtx, cfg, logOut)
	if err != nil {
		return err
	}
	defer shutdown()

	c := client.New(client.Options{URL: cfg.Client.URL, Timeout: cfg.Client.Timeout})
	if err := c.Ping(notifyCtx); err != nil {
		return fmt.Errorf("zag server at %s: %w", cfg.Client.URL, err)
	}

	sess := session.New(c, session.Config{
		Delta:           cfg.Client.Delta,
		Window:          cfg.Client.Window,
		LoadConcurrency: cfg.Client.LoadConcurrency,
	}, log)
	defer sess.Close()

	if err := showInitial(notifyCtx, sess, args, uiDashboard); err != nil {
		return err
	}

	if !uiNoLive {
		ch, err := c.OpenChannel(notifyCtx, cfg.Client.Delta, sess.HandlePoint)
		if err != nil {
			// Charts still load and refresh without live points.
			log.WithError(err).Warn("live channel unavailable")
		} else {
			sess.Follow(ch)
		}
	}

	return tui.Run(notifyCtx, sess, tui.Options{
		Refresh:          cfg.Client.Refresh,
		LoadTimeout:      cfg.Client.Timeout,
		PanAmplification: cfg.Client.PanAmplification,
	})
}

// showInitial puts the command line's keys or dashboard on screen.
func showInitial(ctx context.Context, sess *session.Session, keys []string, dashboardID string) error {
	set := sess.ChartSet()
	switch {
	case dashboardID != "":
		return set.GraphDashboardID(ctx, dashboardID)
	case len(keys) == 1:
		return set.GraphOne(ctx, keys[0])
	case len(keys) > 1:
		return set.GraphMany(ctx, keys)
	}
	return nil
}
