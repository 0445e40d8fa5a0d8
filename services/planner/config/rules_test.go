// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// minimalRulesYAML satisfies validation with the fewest possible entries.
const minimalRulesYAML = `
families:
  - family: price
    patterns: ["price"]
status:
  rules:
    - status: ACTIVE
      patterns: ['\bpublish\b']
stop_words: ["please"]
`

func TestLoadPlannerRules_Embedded(t *testing.T) {
	ctx := context.Background()
	rules, err := LoadPlannerRules(ctx, defaultPlannerRulesYAML)
	if err != nil {
		t.Fatalf("LoadPlannerRules failed on embedded YAML: %v", err)
	}

	if rules.TitleMinLength != 3 {
		t.Errorf("expected title_min_length = 3, got %d", rules.TitleMinLength)
	}
	if len(rules.Families) != 4 {
		t.Fatalf("expected 4 family triggers, got %d", len(rules.Families))
	}
	if rules.Families[0].Family != "price" {
		t.Errorf("expected price first in priority order, got %q", rules.Families[0].Family)
	}
	if rules.Families[3].Family != "status" {
		t.Errorf("expected status last in priority order, got %q", rules.Families[3].Family)
	}
	if len(rules.Price.IncreaseWords) == 0 || rules.Price.IncreaseWords[0] != "increase" {
		t.Error("expected price increase_words to contain 'increase'")
	}
	if len(rules.Inventory.DecWords) == 0 {
		t.Error("expected inventory dec_words to be non-empty")
	}
	if len(rules.Status.Rules) != 3 {
		t.Errorf("expected 3 status rules, got %d", len(rules.Status.Rules))
	}
	if len(rules.StopWords) != 23 {
		t.Errorf("expected 23 stop words, got %d", len(rules.StopWords))
	}
	if rules.CurrencySymbols["$"] != "USD" {
		t.Errorf("expected $ to map to USD, got %q", rules.CurrencySymbols["$"])
	}
}

func TestLoadPlannerRules_DefaultTitleMinLength(t *testing.T) {
	ctx := context.Background()
	rules, err := LoadPlannerRules(ctx, []byte(minimalRulesYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rules.TitleMinLength != DefaultTitleMinLength {
		t.Errorf("expected default title_min_length = %d, got %d", DefaultTitleMinLength, rules.TitleMinLength)
	}
}

func TestLoadPlannerRules_Validation_UnknownFamily(t *testing.T) {
	yaml := []byte(`
families:
  - family: shipping
    patterns: ["shipping"]
status:
  rules:
    - status: ACTIVE
      patterns: ["publish"]
stop_words: ["please"]
`)
	ctx := context.Background()
	_, err := LoadPlannerRules(ctx, yaml)
	if err == nil {
		t.Fatal("expected validation error for unknown family")
	}
}

func TestLoadPlannerRules_Validation_DuplicateFamily(t *testing.T) {
	yaml := []byte(`
families:
  - family: price
    patterns: ["price"]
  - family: price
    patterns: ["cost"]
status:
  rules:
    - status: ACTIVE
      patterns: ["publish"]
stop_words: ["please"]
`)
	ctx := context.Background()
	_, err := LoadPlannerRules(ctx, yaml)
	if err == nil {
		t.Fatal("expected validation error for duplicate family")
	}
}

func TestLoadPlannerRules_Validation_EmptyFamilyPatterns(t *testing.T) {
	yaml := []byte(`
families:
  - family: price
    patterns: []
status:
  rules:
    - status: ACTIVE
      patterns: ["publish"]
stop_words: ["please"]
`)
	ctx := context.Background()
	_, err := LoadPlannerRules(ctx, yaml)
	if err == nil {
		t.Fatal("expected validation error for empty family patterns")
	}
}

func TestLoadPlannerRules_Validation_UnknownStatus(t *testing.T) {
	yaml := []byte(`
families:
  - family: price
    patterns: ["price"]
status:
  rules:
    - status: HIDDEN
      patterns: ["hide"]
stop_words: ["please"]
`)
	ctx := context.Background()
	_, err := LoadPlannerRules(ctx, yaml)
	if err == nil {
		t.Fatal("expected validation error for unknown status")
	}
}

func TestLoadPlannerRules_Validation_NoStatusRules(t *testing.T) {
	yaml := []byte(`
families:
  - family: price
    patterns: ["price"]
status:
  rules: []
stop_words: ["please"]
`)
	ctx := context.Background()
	_, err := LoadPlannerRules(ctx, yaml)
	if err == nil {
		t.Fatal("expected validation error for empty status rules")
	}
}

func TestLoadPlannerRules_Validation_NoStopWords(t *testing.T) {
	yaml := []byte(`
families:
  - family: price
    patterns: ["price"]
status:
  rules:
    - status: ACTIVE
      patterns: ["publish"]
stop_words: []
`)
	ctx := context.Background()
	_, err := LoadPlannerRules(ctx, yaml)
	if err == nil {
		t.Fatal("expected validation error for empty stop words")
	}
}

func TestLoadPlannerRules_Validation_BadCurrencyCode(t *testing.T) {
	yaml := []byte(minimalRulesYAML + `
currency_symbols:
  "$": "DOLLARS"
`)
	ctx := context.Background()
	_, err := LoadPlannerRules(ctx, yaml)
	if err == nil {
		t.Fatal("expected validation error for non-ISO currency code")
	}
}

func TestLoadPlannerRules_EmptyData(t *testing.T) {
	ctx := context.Background()
	_, err := LoadPlannerRules(ctx, []byte{})
	if err == nil {
		t.Fatal("expected error for empty data")
	}
}

func TestLoadPlannerRules_InvalidYAML(t *testing.T) {
	ctx := context.Background()
	_, err := LoadPlannerRules(ctx, []byte("{{{{not yaml"))
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoadPlannerRulesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	if err := os.WriteFile(path, []byte(minimalRulesYAML), 0o644); err != nil {
		t.Fatalf("writing temp rules: %v", err)
	}

	ctx := context.Background()
	rules, err := LoadPlannerRulesFile(ctx, path)
	if err != nil {
		t.Fatalf("LoadPlannerRulesFile failed: %v", err)
	}
	if len(rules.Families) != 1 {
		t.Errorf("expected 1 family, got %d", len(rules.Families))
	}
}

func TestLoadPlannerRulesFile_Missing(t *testing.T) {
	ctx := context.Background()
	_, err := LoadPlannerRulesFile(ctx, filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestGetPlannerRules_NilContext(t *testing.T) {
	_, err := GetPlannerRules(nil) //nolint:staticcheck // testing nil ctx
	if err == nil {
		t.Fatal("expected error for nil context")
	}
}

func TestGetPlannerRules_Singleton(t *testing.T) {
	ResetPlannerRules()
	defer ResetPlannerRules()

	ctx := context.Background()
	rules1, err := GetPlannerRules(ctx)
	if err != nil {
		t.Fatalf("first call failed: %v", err)
	}

	rules2, err := GetPlannerRules(ctx)
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}

	if rules1 != rules2 {
		t.Error("expected same pointer from singleton")
	}
}
