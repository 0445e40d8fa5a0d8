// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianMerchant/services/planner/config"
)

// rulesLocal and rulesFile hold the flag values for the rules command.
var (
	rulesLocal bool
	rulesFile  string
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Show the rule tables the planner is serving",
	Long: `Show the rule tables the planner is serving.

Against a server this prints the summary the server reports. With
--local it loads the embedded tables and prints the full vocabulary;
with --rules FILE it validates and prints a rules file you are
editing, before handing the file to the server.`,
	Run: runRulesCommand,
}

func init() {
	rulesCmd.Flags().BoolVar(&rulesLocal, "local", false,
		"Show the embedded rule tables, no server required")
	rulesCmd.Flags().StringVar(&rulesFile, "rules", "",
		"Validate and show a rules YAML file instead of the served tables")
}

// rulesSummaryResponse mirrors the server's RulesInfoResponse.
type rulesSummaryResponse struct {
	Families        []string `json:"families"`
	StopWords       int      `json:"stopWords"`
	StatusRules     int      `json:"statusRules"`
	CurrencySymbols int      `json:"currencySymbols"`
	TitleMinLength  int      `json:"titleMinLength"`
}

func runRulesCommand(_ *cobra.Command, _ []string) {
	switch {
	case rulesFile != "":
		rules, err := config.LoadPlannerRulesFile(context.Background(), rulesFile)
		if err != nil {
			fatalf("Error: %v", err)
		}
		printRuleTables(rules, fmt.Sprintf("Rule tables (%s):", rulesFile))

	case rulesLocal:
		rules, err := config.GetPlannerRules(context.Background())
		if err != nil {
			fatalf("Error: loading embedded rules: %v", err)
		}
		printRuleTables(rules, "Rule tables (embedded):")

	default:
		summary, err := fetchRulesSummary(getPlannerBaseURL())
		if err != nil {
			fatalf("Error: %v", err)
		}
		if jsonOutput {
			out, _ := json.MarshalIndent(summary, "", "  ")
			fmt.Println(string(out))
			return
		}
		fmt.Println("Rule tables (from server):")
		fmt.Printf("  Families (priority order): %s\n", strings.Join(summary.Families, ", "))
		fmt.Printf("  Status rules:              %d\n", summary.StatusRules)
		fmt.Printf("  Stop words:                %d\n", summary.StopWords)
		fmt.Printf("  Currency symbols:          %d\n", summary.CurrencySymbols)
		fmt.Printf("  Title hint minimum length: %d\n", summary.TitleMinLength)
	}
}

// fetchRulesSummary retrieves the rule table summary from the server.
func fetchRulesSummary(baseURL string) (*rulesSummaryResponse, error) {
	client := &http.Client{Timeout: 10 * time.Second}

	resp, err := client.Get(baseURL + "/v1/planner/rules")
	if err != nil {
		return nil, fmt.Errorf("planner server unavailable at %s (start it with 'go run ./cmd/planner' or pass --local): %w", baseURL, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Error("failed to close response body", "error", closeErr)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("planner error (HTTP %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var summary rulesSummaryResponse
	if err := json.Unmarshal(body, &summary); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &summary, nil
}

// printRuleTables prints loaded tables with their full vocabulary.
func printRuleTables(rules *config.PlannerRules, heading string) {
	if jsonOutput {
		families := make([]string, 0, len(rules.Families))
		for _, f := range rules.Families {
			families = append(families, f.Family)
		}
		summary := rulesSummaryResponse{
			Families:        families,
			StopWords:       len(rules.StopWords),
			StatusRules:     len(rules.Status.Rules),
			CurrencySymbols: len(rules.CurrencySymbols),
			TitleMinLength:  rules.TitleMinLength,
		}
		out, _ := json.MarshalIndent(summary, "", "  ")
		fmt.Println(string(out))
		return
	}

	fmt.Println(heading)
	fmt.Println("  Families (priority order):")
	for _, f := range rules.Families {
		fmt.Printf("    %-9s %s\n", f.Family+":", strings.Join(f.Patterns, ", "))
	}

	fmt.Println("  Price vocabulary:")
	fmt.Printf("    increase: %s\n", strings.Join(rules.Price.IncreaseWords, ", "))
	fmt.Printf("    decrease: %s\n", strings.Join(rules.Price.DecreaseWords, ", "))
	fmt.Printf("    set:      %s\n", strings.Join(rules.Price.SetWords, ", "))

	fmt.Println("  Tags vocabulary:")
	fmt.Printf("    replace: %s\n", strings.Join(rules.Tags.ReplaceWords, ", "))
	fmt.Printf("    remove:  %s\n", strings.Join(rules.Tags.RemoveWords, ", "))

	fmt.Println("  Inventory vocabulary:")
	fmt.Printf("    increase: %s\n", strings.Join(rules.Inventory.IncWords, ", "))
	fmt.Printf("    decrease: %s\n", strings.Join(rules.Inventory.DecWords, ", "))
	fmt.Printf("    set:      %s\n", strings.Join(rules.Inventory.SetWords, ", "))

	fmt.Println("  Status rules (first match wins):")
	for _, r := range rules.Status.Rules {
		fmt.Printf("    %-9s %s\n", r.Status+":", strings.Join(r.Patterns, ", "))
	}

	symbols := make([]string, 0, len(rules.CurrencySymbols))
	for symbol, code := range rules.CurrencySymbols {
		symbols = append(symbols, fmt.Sprintf("%s=%s", symbol, code))
	}
	sort.Strings(symbols)
	fmt.Printf("  Currency symbols: %s\n", strings.Join(symbols, ", "))
	fmt.Printf("  Stop words: %s\n", strings.Join(rules.StopWords, ", "))
	fmt.Printf("  Title hint minimum length: %d\n", rules.TitleMinLength)
}
