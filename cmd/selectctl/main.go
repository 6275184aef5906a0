// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command selectctl is the operator CLI for Aleutian Select.
//
// Usage:
//
//	selectctl validate catalog.yaml
//	selectctl eval "120 + 0.02 * N" --var N=100
//	selectctl run --capability asset_query --text "fast count" --var N=100
//	selectctl catalog
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// serverURL is shared by the commands that talk to a running selector.
var serverURL string

var rootCmd = &cobra.Command{
	Use:   "selectctl",
	Short: "Operator CLI for the Aleutian Select service",
	Long: `selectctl validates tool catalogs, evaluates catalog formulas,
and exercises a running Aleutian Select server.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Base URL of the selector server")
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(catalogCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
