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

import (
	"math"
	"strings"
)

// =============================================================================
// Inventory Builder
// =============================================================================

// clampQuantity converts a parsed magnitude to a quantity. Values past
// int32 would overflow the int conversion, so they saturate instead.
func clampQuantity(n float64) int {
	n = math.Abs(n)
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}

// buildInventoryPlan interprets an inventory quantity instruction.
//
// Description:
//
//	Inventory mutations are unsafe to execute without a resolved
//	location, so a full plan requires both a magnitude and a location
//	phrase. Issues accumulate rather than short-circuit: a missing
//	amount and a missing location are both reported in one clarify.
//	Whenever a number was found a draft is attached at low confidence
//	so the caller can prefill the follow-up. The magnitude is the
//	absolute value of the first number; direction lives in the mode.
func (p *Planner) buildInventoryPlan(text string) *PlanResponse {
	lower := strings.ToLower(text)

	number, hasNumber := ExtractPlainNumber(text)
	location, locationSpan, hasLocation := DetectLocation(text)

	mode := InventoryModeSet
	switch {
	case p.invInc.matches(lower):
		mode = InventoryModeInc
	case p.invDec.matches(lower):
		mode = InventoryModeDec
	}

	var dynamic []string
	if hasLocation {
		dynamic = append(dynamic, locationSpan)
	}
	fs := p.buildFilter(text, FamilyInventory, dynamic)

	var issues []ClarifyIssue
	if !hasNumber {
		issues = append(issues, newIssue(IssueMissingAmount))
	}
	if !hasLocation {
		issues = append(issues, newIssue(IssueRequireLocation))
	}

	if len(issues) == 0 {
		return NewPlanResult(PlanPayload{
			OpSpec: OperationSpec{
				Operation: FamilyInventory,
				Scope:     ScopeProduct,
				Params: InventoryParams{
					Mode:       mode,
					Quantity:   clampQuantity(number),
					LocationID: location,
				},
			},
			FilterSpec: fs,
			Confidence: ConfidenceMedium,
			SummaryKey: summaryKeyFor(FamilyInventory, string(mode)),
		})
	}

	var draft *PlanPayload
	if hasNumber {
		params := InventoryParams{
			Mode:     mode,
			Quantity: clampQuantity(number),
		}
		if hasLocation {
			params.LocationID = location
		}
		draft = &PlanPayload{
			OpSpec: OperationSpec{
				Operation: FamilyInventory,
				Scope:     ScopeProduct,
				Params:    params,
			},
			FilterSpec: fs,
			Confidence: ConfidenceLow,
			SummaryKey: summaryKeyFor(FamilyInventory, string(mode)),
		}
	}

	return NewClarifyResult(issues, draft)
}
