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
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/codes"
)

// =============================================================================
// Legacy Price Flow
// =============================================================================

// LegacyPricePlan interprets a single-field price instruction the way
// the original one-page flow did.
//
// Description:
//
//	Runs the price builder, then replaces the residual filter with the
//	phrase after the first for/of/on/in preposition (ExtractFilterTerm),
//	lowercased, with no stop-word stripping. Kept for callers of the
//	old single-field page; the residual filter of Plan supersedes it.
//
// Inputs:
//
//	ctx - Context for tracing. Must not be nil.
//	text - The raw instruction text.
//
// Outputs:
//
//	*PlanResponse - The validated response. Nil when error is non-nil.
//	error - Non-nil only for internal invariant violations.
//
// Thread Safety: Safe for concurrent use.
func (p *Planner) LegacyPricePlan(ctx context.Context, text string) (resp *PlanResponse, err error) {
	start := time.Now()

	_, span := engineTracer.Start(ctx, "engine.Planner.LegacyPricePlan")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			plannerPanicsTotal.Inc()
			span.SetStatus(codes.Error, "panic")
			p.logger.Error("legacy planning panicked",
				slog.Any("panic", r),
				slog.String("text_preview", truncateForLog(text, 80)),
			)
			resp = nil
			err = fmt.Errorf("planning panicked: %v", r)
		}
	}()

	if strings.TrimSpace(text) == "" {
		return p.finish(span, NewErrorResult(ErrCodeInvalidRequest, "text must not be empty"), "none", start)
	}

	resp = p.buildPricePlan(text)

	fs := NewFilterSpec()
	if term, ok := ExtractFilterTerm(text); ok {
		term = strings.ToLower(term)
		fs.TitleContains = &term
	}
	if resp.Plan != nil {
		resp.Plan.FilterSpec = fs
	}
	if resp.Clarify != nil && resp.Clarify.Draft != nil {
		resp.Clarify.Draft.FilterSpec = fs
	}

	return p.finish(span, resp, string(FamilyPrice), start)
}
