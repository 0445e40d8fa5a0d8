// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command merchant is the command-line client for the Aleutian Merchant
// planner.
//
// Usage:
//
//	merchant plan "increase hoodie prices by 10%"
//	merchant plan --interactive
//	merchant plan --local "archive old hoodies"
//	merchant rules
//
// The plan command talks to a running planner server by default; pass
// --local to plan against the embedded rule tables without one.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is the CLI version printed by --version.
const Version = "0.3.0"

// serverURL and jsonOutput hold the persistent flag values.
var (
	serverURL  string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:     "merchant",
	Version: Version,
	Short:   "Plan merchant catalog changes from plain language",
	Long: `merchant turns plain-language catalog instructions into typed,
reviewable plans. Supported operations: price and compare-at changes,
tag edits, inventory adjustments, and status changes.

The planner is deterministic: the same instruction always produces the
same plan, and ambiguous instructions come back as clarify questions
instead of guesses.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "",
		"Planner server base URL (default: $ALEUTIAN_PLANNER_URL or http://localhost:8080)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Print raw JSON responses")

	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(rulesCmd)
}

// getPlannerBaseURL resolves the server address: flag, then
// environment, then the local default.
func getPlannerBaseURL() string {
	if serverURL != "" {
		return serverURL
	}
	if env := os.Getenv("ALEUTIAN_PLANNER_URL"); env != "" {
		return env
	}
	return "http://localhost:8080"
}

// fatalf prints an error to stderr and exits non-zero.
func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
