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
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianMerchant/services/planner/config"
	"github.com/AleutianAI/AleutianMerchant/services/planner/engine"
)

// planInteractive, planLocal, and planLocale hold flag values for the
// plan command.
var (
	planInteractive bool
	planLocal       bool
	planLocale      string
)

var planCmd = &cobra.Command{
	Use:   "plan [instruction]",
	Short: "Turn a plain-language instruction into a typed plan",
	Long: `Turn a plain-language catalog instruction into a typed plan.

The plan is printed for review; nothing is applied. Ambiguous
instructions come back as clarify questions instead of guesses.`,
	Example: `  merchant plan "increase hoodie prices by 10%"
  merchant plan "set stock to 50 at location Main Warehouse for winter boots"
  merchant plan --interactive
  merchant plan --local "archive old hoodies"`,
	Run: runPlanCommand,
}

func init() {
	planCmd.Flags().BoolVarP(&planInteractive, "interactive", "i", false,
		"Read instructions from stdin in a loop")
	planCmd.Flags().BoolVar(&planLocal, "local", false,
		"Plan with the embedded rule tables, no server required")
	planCmd.Flags().StringVar(&planLocale, "locale", "",
		"Locale forwarded for message keys (e.g. en-US)")
}

// planFunc produces a planning outcome for one instruction.
type planFunc func(text string) (*engine.PlanResponse, error)

func runPlanCommand(_ *cobra.Command, args []string) {
	if !planInteractive && len(args) == 0 {
		fatalf("Usage: merchant plan \"increase hoodie prices by 10%%\"\n       merchant plan --interactive")
	}

	plan, err := newPlanFunc()
	if err != nil {
		fatalf("Error: %v", err)
	}

	scanner := bufio.NewScanner(os.Stdin)
	text := strings.TrimSpace(strings.Join(args, " "))

	for {
		if text == "" {
			fmt.Print("> ")
			if !scanner.Scan() {
				break
			}
			text = strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}
			if text == "exit" || text == "quit" || text == "q" {
				fmt.Println("Goodbye.")
				break
			}
		}

		resp, err := plan(text)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			if !planInteractive {
				os.Exit(1)
			}
		} else {
			printOutcome(resp)
		}

		if !planInteractive {
			break
		}
		text = ""
	}
}

// newPlanFunc returns the server-backed plan function, or a local one
// built from the embedded rule tables when --local is set.
func newPlanFunc() (planFunc, error) {
	if planLocal {
		rules, err := config.GetPlannerRules(context.Background())
		if err != nil {
			return nil, fmt.Errorf("loading embedded rules: %w", err)
		}
		p, err := engine.NewPlanner(rules, slog.Default())
		if err != nil {
			return nil, fmt.Errorf("building planner: %w", err)
		}
		return func(text string) (*engine.PlanResponse, error) {
			return p.Plan(context.Background(), engine.Request{Text: text, Locale: planLocale})
		}, nil
	}

	baseURL := getPlannerBaseURL()
	return func(text string) (*engine.PlanResponse, error) {
		return planViaServer(baseURL, text, planLocale)
	}, nil
}

// planViaServer calls the planner server and decodes the outcome.
// Both 200 and 400 carry the planning envelope; anything else is a
// transport failure.
func planViaServer(baseURL, text, locale string) (*engine.PlanResponse, error) {
	client := &http.Client{Timeout: 30 * time.Second}

	payload := engine.Request{Text: text, Locale: locale}
	jsonPayload, _ := json.Marshal(payload)

	var done chan bool
	if isatty.IsTerminal(os.Stdout.Fd()) && !jsonOutput {
		done = make(chan bool)
		go showSpinner("Planning", done)
	}

	resp, err := client.Post(baseURL+"/v1/planner/plan", "application/json", bytes.NewBuffer(jsonPayload))
	if done != nil {
		done <- true
		fmt.Print("\r                                                \r")
	}

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

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusBadRequest {
		return nil, fmt.Errorf("planner error (HTTP %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result engine.PlanResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if result.Action == "" {
		return nil, fmt.Errorf("planner error (HTTP %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return &result, nil
}

// showSpinner animates a progress indicator until done receives.
func showSpinner(msg string, done chan bool) {
	chars := []string{"▖", "▘", "▝", "▗"}
	i := 0

	// Hide the cursor while animating
	fmt.Print("\033[?25l")
	defer fmt.Print("\033[?25h") // Restore cursor on exit

	for {
		select {
		case <-done:
			return
		default:
			// \r = return to start of line, \033[K = clear to end of line
			fmt.Printf("\r%s  %s... \033[K", chars[i%len(chars)], msg)
			i++
			time.Sleep(100 * time.Millisecond)
		}
	}
}

// printOutcome renders a planning outcome. Raw JSON when --json is set
// or stdout is not a terminal, readable text otherwise.
func printOutcome(resp *engine.PlanResponse) {
	if jsonOutput || !isatty.IsTerminal(os.Stdout.Fd()) {
		out, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			fatalf("encoding response: %v", err)
		}
		fmt.Println(string(out))
		return
	}

	switch resp.Action {
	case engine.ActionPlan:
		printPlan(resp.Plan)
	case engine.ActionClarify:
		printClarify(resp.Clarify)
	case engine.ActionError:
		fmt.Printf("Error [%s]: %s\n", resp.Error.Code, resp.Error.Message)
	default:
		fatalf("unexpected response action %q", resp.Action)
	}
}

func printPlan(p *engine.PlanPayload) {
	fmt.Printf("%s (confidence: %s)\n", engine.RenderMessage(p.SummaryKey), p.Confidence)
	fmt.Printf("  Operation: %s\n", describeOperation(p.OpSpec))
	fmt.Printf("  Selection: %s\n", describeFilter(p.FilterSpec))
	if p.OpSpec.Schedule != nil {
		fmt.Printf("  Scheduled: %s\n", *p.OpSpec.Schedule)
	}
	if p.Confidence == engine.ConfidenceLow {
		fmt.Println("  Note: low confidence, review before applying")
	}
}

func printClarify(c *engine.ClarifyPayload) {
	fmt.Println("Needs clarification:")
	for _, issue := range c.Issues {
		line := "  - " + engine.RenderMessage(issue.MessageKey)
		if len(issue.Options) > 0 {
			values := make([]string, 0, len(issue.Options))
			for _, opt := range issue.Options {
				values = append(values, opt.Value)
			}
			line += fmt.Sprintf(" (options: %s)", strings.Join(values, ", "))
		}
		fmt.Println(line)
	}
	if c.Draft != nil {
		fmt.Printf("Understood so far: %s\n", describeOperation(c.Draft.OpSpec))
	}
}

// describeOperation renders an operation spec in one readable line.
func describeOperation(op engine.OperationSpec) string {
	target := "price"
	if op.Operation == engine.FamilyCompareAt {
		target = "compare-at price"
	}

	switch params := op.Params.(type) {
	case engine.PriceParams:
		switch params.Mode {
		case engine.PriceModeIncPercent:
			return fmt.Sprintf("change %s by %s%%", target, formatSigned(params.Value))
		case engine.PriceModeIncValue:
			return fmt.Sprintf("change %s by %s", target, formatAmount(formatSigned(params.Value), params.Currency))
		default:
			return fmt.Sprintf("set %s to %s", target, formatAmount(formatNumber(params.Value), params.Currency))
		}
	case engine.TagsParams:
		return fmt.Sprintf("%s tags: %s", params.Mode, strings.Join(params.Values, ", "))
	case engine.InventoryParams:
		var s string
		switch params.Mode {
		case engine.InventoryModeInc:
			s = fmt.Sprintf("raise stock by %d", params.Quantity)
		case engine.InventoryModeDec:
			s = fmt.Sprintf("lower stock by %d", params.Quantity)
		default:
			s = fmt.Sprintf("set stock to %d", params.Quantity)
		}
		if params.LocationID != "" {
			s += fmt.Sprintf(" at %q", params.LocationID)
		}
		return s
	case engine.StatusParams:
		return fmt.Sprintf("set status to %s", params.Status)
	default:
		return string(op.Operation)
	}
}

// describeFilter renders the selection conditions in one readable line.
func describeFilter(fs engine.FilterSpec) string {
	var parts []string
	if fs.TitleContains != nil {
		parts = append(parts, fmt.Sprintf("title contains %q", *fs.TitleContains))
	}
	if len(fs.Must.Vendors) > 0 {
		parts = append(parts, "vendor "+strings.Join(fs.Must.Vendors, " or "))
	}
	if len(fs.Must.Types) > 0 {
		parts = append(parts, "type "+strings.Join(fs.Must.Types, " or "))
	}
	if len(fs.Must.Collections) > 0 {
		parts = append(parts, "in collection "+strings.Join(fs.Must.Collections, " or "))
	}
	if len(fs.Must.Tags) > 0 {
		parts = append(parts, "tagged "+strings.Join(fs.Must.Tags, " or "))
	}
	if len(fs.MustNot.Tags) > 0 {
		parts = append(parts, "not tagged "+strings.Join(fs.MustNot.Tags, " or "))
	}
	if fs.Numeric.PriceGte != nil {
		parts = append(parts, "price >= "+formatNumber(*fs.Numeric.PriceGte))
	}
	if fs.Numeric.PriceLte != nil {
		parts = append(parts, "price <= "+formatNumber(*fs.Numeric.PriceLte))
	}
	if fs.Numeric.InventoryEq != nil {
		parts = append(parts, fmt.Sprintf("inventory = %d", *fs.Numeric.InventoryEq))
	}
	if len(parts) == 0 {
		return "all products"
	}
	return strings.Join(parts, ", ")
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatSigned keeps an explicit sign so direction is visible.
func formatSigned(v float64) string {
	if v >= 0 {
		return "+" + formatNumber(v)
	}
	return formatNumber(v)
}

func formatAmount(number, currency string) string {
	if currency == "" {
		return number
	}
	return number + " " + currency
}
