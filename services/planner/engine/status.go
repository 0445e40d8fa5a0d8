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
// Status Builder
// =============================================================================

// buildStatusPlan interprets a lifecycle status instruction.
//
// Description:
//
//	Delegates entirely to the status keyword rules, first match wins.
//	Reaching this builder without a derivable status means the family
//	trigger fired on a word (e.g. "status") that no rule maps, which is
//	an unsupported request rather than an unrecognized one.
func (p *Planner) buildStatusPlan(text string) *PlanResponse {
	status, ok := p.deriveStatus(strings.ToLower(text))
	if !ok {
		return NewClarifyResult([]ClarifyIssue{newIssue(IssueUnsupported)}, nil)
	}

	return NewPlanResult(PlanPayload{
		OpSpec: OperationSpec{
			Operation: FamilyStatus,
			Scope:     ScopeProduct,
			Params:    StatusParams{Status: status},
		},
		FilterSpec: p.buildFilter(text, FamilyStatus, nil),
		Confidence: ConfidenceMedium,
		SummaryKey: summaryKeyFor(FamilyStatus, "set"),
	})
}
