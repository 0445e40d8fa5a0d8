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
// Price / Compare-at Builder
// =============================================================================

// buildPricePlan interprets a price or compare-at instruction.
//
// Description:
//
//	Direction words pick the sign, independent of the number's own sign.
//	A percentage with a direction becomes inc_percent; "set"/"change"
//	next to the word price becomes a literal set; a bare amount with a
//	direction becomes inc_value. When neither a mode nor a value can be
//	determined the builder asks for the amount, with no draft (a price
//	change with no number has nothing safe to prefill).
func (p *Planner) buildPricePlan(text string) *PlanResponse {
	lower := strings.ToLower(text)

	family := FamilyPrice
	if p.compareAtPattern != nil && p.compareAtPattern.MatchString(lower) {
		family = FamilyCompareAt
	}

	sign := 0.0
	if p.priceIncrease.matches(lower) {
		sign = 1
	} else if p.priceDecrease.matches(lower) {
		sign = -1
	}

	percent, hasPercent := ExtractPercentage(text)
	amount, currency, hasAmount := p.extractCurrencyAmount(text)

	wantsSet := p.priceSet.matches(lower) &&
		(strings.Contains(lower, "price") || family == FamilyCompareAt)

	var params PriceParams
	var variant string
	switch {
	case sign != 0 && hasPercent:
		params = PriceParams{Mode: PriceModeIncPercent, Value: sign * math.Abs(percent)}
		variant = "percent-increase"
		if sign < 0 {
			variant = "percent-decrease"
		}
	case wantsSet && hasAmount:
		params = PriceParams{Mode: PriceModeSet, Value: amount, Currency: currency}
		variant = "set"
	case sign != 0 && hasAmount:
		params = PriceParams{Mode: PriceModeIncValue, Value: sign * math.Abs(amount), Currency: currency}
		variant = "value-increase"
		if sign < 0 {
			variant = "value-decrease"
		}
	default:
		return NewClarifyResult([]ClarifyIssue{newIssue(IssueMissingAmount)}, nil)
	}

	return NewPlanResult(PlanPayload{
		OpSpec: OperationSpec{
			Operation: family,
			Scope:     ScopeProduct,
			Params:    params,
		},
		FilterSpec: p.buildFilter(text, FamilyPrice, nil),
		Confidence: ConfidenceMedium,
		SummaryKey: summaryKeyFor(family, variant),
	})
}
