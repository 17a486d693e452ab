// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Voxer/zag-sub000/internal/client"
	"github.com/Voxer/zag-sub000/internal/dashboard"
)

// dashboardAPI is the part of the client the dashboards commands use.
type dashboardAPI interface {
	Dashboards(ctx context.Context) ([]dashboard.Dashboard, error)
	PutDashboard(ctx context.Context, d dashboard.Dashboard) error
	DeleteDashboard(ctx context.Context, id string) error
}

var dashboardsCmd = &cobra.Command{
	Use:     "dashboards",
	Aliases: []string{"dashboard", "dash"},
	Short:   "Manage dashboards on a zag server",
	Long: `List, import, export and delete dashboards.

Dashboards files are YAML:

  dashboards:
    - id: ops
      name: Operations
      graphs:
        - title: Requests
          keys: [requests]
        - keys: [latency@llq]
          renderer: heat`,
}

var listDashboardsCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List dashboards",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		return listDashboards(cmd.Context(), c, cmd.OutOrStdout())
	},
}

var importDashboardsCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Create or replace the dashboards in a YAML file ('-' for stdin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		var ds []dashboard.Dashboard
		if args[0] == "-" {
			ds, err = readDashboards(os.Stdin)
		} else {
			ds, err = dashboard.LoadFile(args[0])
		}
		if err != nil {
			return err
		}
		if err := importDashboards(cmd.Context(), c, ds); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d dashboards\n", len(ds))
		return nil
	},
}

var exportDashboardsCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write every dashboard as YAML to a file or stdout",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		ds, err := c.Dashboards(cmd.Context())
		if err != nil {
			return err
		}
		sortDashboards(ds)
		if len(args) == 1 {
			if err := dashboard.SaveFile(args[0], ds); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d dashboards to %s\n", len(ds), args[0])
			return nil
		}
		data, err := dashboard.Encode(ds)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var deleteDashboardCmd = &cobra.Command{
	Use:     "delete <id>...",
	Aliases: []string{"rm"},
	Short:   "Delete dashboards",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		for _, id := range args {
			if err := c.DeleteDashboard(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dashboard %q deleted\n", id)
		}
		return nil
	},
}

func init() {
	dashboardsCmd.AddCommand(listDashboardsCmd)
	dashboardsCmd.AddCommand(importDashboardsCmd)
	dashboardsCmd.AddCommand(exportDashboardsCmd)
	dashboardsCmd.AddCommand(deleteDashboardCmd)

	rootCmd.AddCommand(dashboardsCmd)
}

// newClient builds a client for the configured server.
func newClient(cmd *cobra.Command) (*client.Client, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return client.New(client.Options{URL: cfg.Client.URL, Timeout: cfg.Client.Timeout}), nil
}

func sortDashboards(ds []dashboard.Dashboard) {
	sort.Slice(ds, func(i, j int) bool { return ds[i].ID < ds[j].ID })
}

func listDashboards(ctx context.Context, api dashboardAPI, out io.Writer) error {
	ds, err := api.Dashboards(ctx)
	if err != nil {
		return err
	}
	if len(ds) == 0 {
		fmt.Fprintln(out, "No dashboards.")
		fmt.Fprintln(out, "Import some with: zag dashboards import <file>")
		return nil
	}
	sortDashboards(ds)
	fmt.Fprintf(out, "%-20s  %-24s  %s\n", "ID", "NAME", "GRAPHS")
	for _, d := range ds {
		titles := make([]string, len(d.Graphs))
		for i, g := range d.Graphs {
			titles[i] = g.DisplayTitle()
		}
		fmt.Fprintf(out, "%-20s  %-24s  %s\n", d.ID, d.Name, strings.Join(titles, ", "))
	}
	return nil
}

// importDashboards puts each dashboard, stopping at the first failure.
func importDashboards(ctx context.Context, api dashboardAPI, ds []dashboard.Dashboard) error {
	for _, d := range ds {
		if err := api.PutDashboard(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

// readDashboards decodes a YAML dashboards document from r.
func readDashboards(r io.Reader) ([]dashboard.Dashboard, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read dashboards: %w", err)
	}
	return dashboard.Decode(data)
}
