// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import "fmt"

// =============================================================================
// Error Codes
// =============================================================================

const (
	// ErrCodeInvalidRequest marks a request that failed shape validation.
	ErrCodeInvalidRequest = "plan.invalid_request"

	// ErrCodeFailed marks an unhandled internal failure during planning.
	ErrCodeFailed = "plan.failed"
)

// =============================================================================
// Message and Summary Keys
// =============================================================================

// MessageKeyFor derives the localizable message key of a clarify issue.
func MessageKeyFor(code IssueCode) string {
	return "clarify." + string(code)
}

// summaryKeyFor derives the localizable one-line summary key of a plan.
// variant is the builder-specific suffix (e.g. percent-increase, add, set).
func summaryKeyFor(family Family, variant string) string {
	return fmt.Sprintf("summary.%s.%s", family, variant)
}

// newIssue builds a ClarifyIssue with its derived message key.
func newIssue(code IssueCode) ClarifyIssue {
	return ClarifyIssue{
		Code:       code,
		MessageKey: MessageKeyFor(code),
	}
}

// MessageText is the English fallback catalog, keyed by message and
// summary keys. Callers with a localization pipeline use the keys
// directly; the bundled CLI renders from this table.
var MessageText = map[string]string{
	"clarify.inventory.requireLocation": "Which location should this apply to?",
	"clarify.plan.unrecognized":         "I couldn't recognize an operation in that request.",
	"clarify.plan.unsupported":          "That status change isn't supported.",
	"clarify.plan.missingAmount":        "What amount should I use?",
	"clarify.plan.missingTagValues":     "Which tags should I use?",

	"summary.price.percent-increase": "Increase prices by a percentage",
	"summary.price.percent-decrease": "Decrease prices by a percentage",
	"summary.price.value-increase":   "Increase prices by an amount",
	"summary.price.value-decrease":   "Decrease prices by an amount",
	"summary.price.set":              "Set prices to an amount",

	"summary.compare_at.percent-increase": "Increase compare-at prices by a percentage",
	"summary.compare_at.percent-decrease": "Decrease compare-at prices by a percentage",
	"summary.compare_at.value-increase":   "Increase compare-at prices by an amount",
	"summary.compare_at.value-decrease":   "Decrease compare-at prices by an amount",
	"summary.compare_at.set":              "Set compare-at prices to an amount",

	"summary.tags.add":     "Add tags",
	"summary.tags.remove":  "Remove tags",
	"summary.tags.replace": "Replace tags",

	"summary.inventory.set": "Set inventory quantity",
	"summary.inventory.inc": "Increase inventory quantity",
	"summary.inventory.dec": "Decrease inventory quantity",

	"summary.status.set": "Change product status",
}

// RenderMessage resolves a message or summary key to English text,
// falling back to the key itself for unknown keys.
func RenderMessage(key string) string {
	if text, ok := MessageText[key]; ok {
		return text
	}
	return key
}
