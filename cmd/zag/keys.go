// Copyright 2026 Elasticsearch B.V.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys [prefix]",
	Short: "List the metric keys a zag server knows",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(cmd)
		if err != nil {
			return err
		}
		prefix := ""
		if len(args) == 1 {
			prefix = args[0]
		}
		keys, err := c.Keys(cmd.Context(), prefix)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(keys) == 0 {
			fmt.Fprintln(out, "No keys.")
			return nil
		}
		for _, k := range keys {
			fmt.Fprintf(out, "%-40s  %s\n", k.Key, k.Type)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keysCmd)
}
