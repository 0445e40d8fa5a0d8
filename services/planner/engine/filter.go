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
	"regexp"
	"strings"
	"unicode/utf8"
)

// =============================================================================
// Residual Filter Builder
// =============================================================================

// percentStripPattern removes percentage tokens together with their
// leading preposition, so "by 10%" leaves no residue.
var percentStripPattern = regexp.MustCompile(`(?:\b(?:by|to|at)\s+)?[+-]?\d+(?:\.\d+)?\s*%`)

// tokenPunctuation is trimmed from both ends of residual tokens.
const tokenPunctuation = `.,;:!?()[]{}"'`

// buildFilter derives the selection filter from the text left over
// after the operation builder took its share.
//
// Description:
//
//	Works on a lowercased copy of the text. Strips, in order: quoted
//	literal spans, percentage tokens, currency/plain amounts (each with
//	their leading preposition), the family's precompiled keyword
//	patterns, and any dynamic fragments the builder consumed (tag
//	values, location spans). All keyword stripping is word-bounded so
//	"lower" never eats into "flower". The surviving tokens, minus stop
//	words, describe which items to target; at or above the configured
//	minimum length the residue becomes titleContains, otherwise the
//	filter stays empty.
//
// Inputs:
//
//	text - The raw instruction text.
//	family - The dispatch family whose keyword table applies.
//	dynamic - Extra fragments consumed by the builder for this text.
//
// Outputs:
//
//	FilterSpec - Empty, or carrying only titleContains.
func (p *Planner) buildFilter(text string, family Family, dynamic []string) FilterSpec {
	fs := NewFilterSpec()

	work := strings.ToLower(text)
	work = quotedLiteralPattern.ReplaceAllString(work, " ")
	work = percentStripPattern.ReplaceAllString(work, " ")
	work = p.amountStripPattern.ReplaceAllString(work, " ")

	for _, re := range p.consumedPatterns[family] {
		work = re.ReplaceAllString(work, " ")
	}
	for _, frag := range dynamic {
		frag = strings.ToLower(strings.TrimSpace(frag))
		if frag == "" {
			continue
		}
		re, err := regexp.Compile(`\b` + regexp.QuoteMeta(frag) + `\b`)
		if err != nil {
			continue
		}
		work = re.ReplaceAllString(work, " ")
	}

	var kept []string
	for _, token := range strings.Fields(work) {
		token = strings.Trim(token, tokenPunctuation)
		if token == "" || p.stopWords[token] {
			continue
		}
		kept = append(kept, token)
	}

	residue := strings.Join(kept, " ")
	if utf8.RuneCountInString(residue) >= p.rules.TitleMinLength {
		fs.TitleContains = &residue
	}
	return fs
}
