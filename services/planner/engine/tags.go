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

import "strings"

// =============================================================================
// Tags Builder
// =============================================================================

// buildTagsPlan interprets a tag mutation instruction.
//
// Description:
//
//	Tag literals come from ParseTags in user order with case preserved.
//	Without any literal there is nothing safe to prefill, so the builder
//	asks for the values with no draft. Mode defaults to add; replace and
//	remove words override it, replace checked first.
func (p *Planner) buildTagsPlan(text string) *PlanResponse {
	values := ParseTags(text)
	if len(values) == 0 {
		return NewClarifyResult([]ClarifyIssue{newIssue(IssueMissingTagValues)}, nil)
	}

	lower := strings.ToLower(text)
	mode := TagsModeAdd
	switch {
	case p.tagsReplace.matches(lower):
		mode = TagsModeReplace
	case p.tagsRemove.matches(lower):
		mode = TagsModeRemove
	}

	return NewPlanResult(PlanPayload{
		OpSpec: OperationSpec{
			Operation: FamilyTags,
			Scope:     ScopeProduct,
			Params:    TagsParams{Mode: mode, Values: values},
		},
		FilterSpec: p.buildFilter(text, FamilyTags, values),
		Confidence: ConfidenceMedium,
		SummaryKey: summaryKeyFor(FamilyTags, string(mode)),
	})
}
