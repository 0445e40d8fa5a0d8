// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config holds the planner's rule tables: family trigger
// patterns, per-family keyword lists, the stop-word list, and the
// currency symbol table. The tables ship embedded in the binary and can
// be replaced at runtime from an external YAML file (see Watch).
package config

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Embedded Default Planner Rules
// =============================================================================

//go:embed planner_rules.yaml
var defaultPlannerRulesYAML []byte

// =============================================================================
// OTel Tracer
// =============================================================================

var configTracer = otel.Tracer("aleutian.planner.config")

// =============================================================================
// Planner Rules Types
// =============================================================================

// PlannerRules defines the keyword vocabulary of the planning engine.
//
// Description:
//
//	Contains the family trigger patterns (in dispatch priority order),
//	per-family verb lists, status keyword rules, the stop-word list used
//	by the residual title filter, and the currency symbol table.
//
// Thread Safety: Immutable after loading; safe for concurrent use.
type PlannerRules struct {
	// TitleMinLength is the minimum residue length (in bytes) for the
	// residual text to become a titleContains filter hint.
	TitleMinLength int `yaml:"title_min_length"`

	// Families lists the family triggers in dispatch priority order.
	Families []FamilyTrigger `yaml:"families"`

	// Price holds the price/compare-at builder vocabulary.
	Price PriceRules `yaml:"price"`

	// Tags holds the tags builder vocabulary.
	Tags TagRules `yaml:"tags"`

	// Inventory holds the inventory builder vocabulary.
	Inventory InventoryRules `yaml:"inventory"`

	// Status holds the status keyword rules, first match wins.
	Status StatusRules `yaml:"status"`

	// StopWords are stripped from the residual title filter as whole words.
	StopWords []string `yaml:"stop_words"`

	// CurrencySymbols maps a currency symbol to its ISO 4217 code.
	CurrencySymbols map[string]string `yaml:"currency_symbols"`
}

// FamilyTrigger binds an operation family to its trigger patterns.
//
// A plain token is matched as a case-insensitive substring; a token
// containing regex metacharacters is compiled as a case-insensitive
// regular expression.
type FamilyTrigger struct {
	// Family is the operation family name (price, tags, inventory, status).
	Family string `yaml:"family"`

	// Patterns trigger dispatch to this family's builder.
	Patterns []string `yaml:"patterns"`
}

// PriceRules is the vocabulary of the price/compare-at builder.
type PriceRules struct {
	// IncreaseWords select a positive sign.
	IncreaseWords []string `yaml:"increase_words"`

	// DecreaseWords select a negative sign.
	DecreaseWords []string `yaml:"decrease_words"`

	// SetWords combined with the word "price" select the literal set mode.
	SetWords []string `yaml:"set_words"`

	// CompareAtPattern switches the family from price to compare_at.
	CompareAtPattern string `yaml:"compare_at_pattern"`
}

// TagRules is the vocabulary of the tags builder.
type TagRules struct {
	// ReplaceWords select the replace mode.
	ReplaceWords []string `yaml:"replace_words"`

	// RemoveWords select the remove mode.
	RemoveWords []string `yaml:"remove_words"`
}

// InventoryRules is the vocabulary of the inventory builder.
type InventoryRules struct {
	// IncWords select the inc mode.
	IncWords []string `yaml:"inc_words"`

	// DecWords select the dec mode.
	DecWords []string `yaml:"dec_words"`

	// SetWords are recognized but only consumed for filter stripping;
	// set is already the default mode.
	SetWords []string `yaml:"set_words"`
}

// StatusRules wraps the ordered status keyword rules.
type StatusRules struct {
	Rules []StatusRule `yaml:"rules"`
}

// StatusRule maps word-bounded keyword patterns to a target lifecycle status.
type StatusRule struct {
	// Status is the target lifecycle value (ACTIVE, DRAFT, ARCHIVED).
	Status string `yaml:"status"`

	// Patterns are the trigger patterns for this status.
	Patterns []string `yaml:"patterns"`
}

// =============================================================================
// Defaults
// =============================================================================

const (
	// DefaultTitleMinLength is the default minimum residue length for a
	// titleContains hint.
	DefaultTitleMinLength = 3

	// MaxRulesFileSize bounds rule files read from disk.
	MaxRulesFileSize = 1 << 20
)

// knownFamilies is the closed set of families a trigger may route to.
// metafield and seo exist in the operation schema but have no builder,
// so they are not valid trigger targets.
var knownFamilies = map[string]bool{
	"price":     true,
	"tags":      true,
	"inventory": true,
	"status":    true,
}

// knownStatuses is the closed set of lifecycle values.
var knownStatuses = map[string]bool{
	"ACTIVE":   true,
	"DRAFT":    true,
	"ARCHIVED": true,
}

// =============================================================================
// Singleton Planner Rules
// =============================================================================

var (
	plannerRulesMu      sync.RWMutex
	plannerRulesOnce    sync.Once
	cachedPlannerRules  *PlannerRules
	plannerRulesLoadErr error
)

// GetPlannerRules returns the cached default rule tables.
//
// Description:
//
//	Loads the embedded planner_rules.yaml on first call and caches the
//	result. Callers that need an external override should use
//	LoadPlannerRulesFile instead; the singleton always reflects the
//	embedded defaults.
//
// Inputs:
//
//	ctx - Context for tracing. Must not be nil.
//
// Outputs:
//
//	*PlannerRules - The loaded tables. Never nil on success.
//	error - Non-nil if parsing or validation failed.
//
// Thread Safety: Safe for concurrent use via sync.Once.
func GetPlannerRules(ctx context.Context) (*PlannerRules, error) {
	if ctx == nil {
		return nil, fmt.Errorf("GetPlannerRules: ctx must not be nil")
	}

	plannerRulesMu.RLock()
	if cachedPlannerRules != nil || plannerRulesLoadErr != nil {
		rules, err := cachedPlannerRules, plannerRulesLoadErr
		plannerRulesMu.RUnlock()
		return rules, err
	}
	plannerRulesMu.RUnlock()

	plannerRulesMu.Lock()
	defer plannerRulesMu.Unlock()

	plannerRulesOnce.Do(func() {
		cachedPlannerRules, plannerRulesLoadErr = LoadPlannerRules(ctx, defaultPlannerRulesYAML)
	})

	return cachedPlannerRules, plannerRulesLoadErr
}

// ResetPlannerRules resets the cached tables for testing.
//
// Thread Safety: Safe for concurrent use.
func ResetPlannerRules() {
	plannerRulesMu.Lock()
	defer plannerRulesMu.Unlock()
	cachedPlannerRules = nil
	plannerRulesLoadErr = nil
	plannerRulesOnce = sync.Once{}
}

// LoadPlannerRules loads and validates rule tables from YAML bytes.
//
// Description:
//
//	Parses the YAML, applies defaults for missing fields, and validates
//	the tables for consistency (known family names, known status values,
//	non-empty pattern lists).
//
// Inputs:
//
//	ctx - Context for tracing.
//	data - Raw YAML bytes to parse.
//
// Outputs:
//
//	*PlannerRules - The validated tables.
//	error - Non-nil if parsing or validation fails.
func LoadPlannerRules(ctx context.Context, data []byte) (*PlannerRules, error) {
	_, span := configTracer.Start(ctx, "config.LoadPlannerRules")
	defer span.End()

	if len(data) == 0 {
		return nil, fmt.Errorf("LoadPlannerRules: empty YAML data")
	}
	if len(data) > MaxRulesFileSize {
		return nil, fmt.Errorf("LoadPlannerRules: YAML data exceeds maximum size (%d > %d)", len(data), MaxRulesFileSize)
	}

	var rules PlannerRules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("LoadPlannerRules: parsing YAML: %w", err)
	}

	if rules.TitleMinLength <= 0 {
		rules.TitleMinLength = DefaultTitleMinLength
	}

	if err := validatePlannerRules(&rules); err != nil {
		return nil, fmt.Errorf("LoadPlannerRules: validation: %w", err)
	}

	span.SetAttributes(
		attribute.Int("families", len(rules.Families)),
		attribute.Int("status_rules", len(rules.Status.Rules)),
		attribute.Int("stop_words", len(rules.StopWords)),
		attribute.Int("currency_symbols", len(rules.CurrencySymbols)),
	)

	slog.Info("planner rules loaded",
		slog.Int("families", len(rules.Families)),
		slog.Int("status_rules", len(rules.Status.Rules)),
		slog.Int("stop_words", len(rules.StopWords)),
		slog.Int("currency_symbols", len(rules.CurrencySymbols)),
	)

	return &rules, nil
}

// LoadPlannerRulesFile loads rule tables from an external YAML file.
//
// Description:
//
//	Reads the file (bounded by MaxRulesFileSize) and delegates to
//	LoadPlannerRules. Used for the --rules override and by the hot
//	reload watcher.
//
// Inputs:
//
//	ctx - Context for tracing.
//	path - Path to a YAML rules file.
//
// Outputs:
//
//	*PlannerRules - The validated tables.
//	error - Non-nil if reading, parsing, or validation fails.
func LoadPlannerRulesFile(ctx context.Context, path string) (*PlannerRules, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("LoadPlannerRulesFile: %w", err)
	}
	if info.Size() > MaxRulesFileSize {
		return nil, fmt.Errorf("LoadPlannerRulesFile: %s exceeds maximum size (%d > %d)", path, info.Size(), MaxRulesFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadPlannerRulesFile: %w", err)
	}
	return LoadPlannerRules(ctx, data)
}

// validatePlannerRules checks the tables for consistency.
func validatePlannerRules(rules *PlannerRules) error {
	if len(rules.Families) == 0 {
		return fmt.Errorf("families must not be empty")
	}
	seen := make(map[string]bool, len(rules.Families))
	for i, ft := range rules.Families {
		if !knownFamilies[ft.Family] {
			return fmt.Errorf("families[%d]: unknown family %q", i, ft.Family)
		}
		if seen[ft.Family] {
			return fmt.Errorf("families[%d]: duplicate family %q", i, ft.Family)
		}
		seen[ft.Family] = true
		if len(ft.Patterns) == 0 {
			return fmt.Errorf("families[%d] (%s): patterns must not be empty", i, ft.Family)
		}
	}

	if len(rules.Status.Rules) == 0 {
		return fmt.Errorf("status.rules must not be empty")
	}
	for i, sr := range rules.Status.Rules {
		if !knownStatuses[sr.Status] {
			return fmt.Errorf("status.rules[%d]: unknown status %q", i, sr.Status)
		}
		if len(sr.Patterns) == 0 {
			return fmt.Errorf("status.rules[%d] (%s): patterns must not be empty", i, sr.Status)
		}
	}

	if len(rules.StopWords) == 0 {
		return fmt.Errorf("stop_words must not be empty")
	}
	for symbol, code := range rules.CurrencySymbols {
		if symbol == "" {
			return fmt.Errorf("currency_symbols: empty symbol")
		}
		if len(code) != 3 {
			return fmt.Errorf("currency_symbols[%q]: code must be 3 letters, got %q", symbol, code)
		}
	}

	return nil
}
