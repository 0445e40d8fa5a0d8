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
	"strconv"
	"strings"
)

// =============================================================================
// Extraction Primitives
// =============================================================================

// Primitives never fail loudly: absence is reported through the ok
// return and callers decide what a missing value means.

var (
	// percentPattern matches the first signed decimal followed by %.
	percentPattern = regexp.MustCompile(`([+-]?\d+(?:\.\d+)?)\s*%`)

	// numberPattern matches the first signed decimal anywhere.
	numberPattern = regexp.MustCompile(`[+-]?\d+(?:\.\d+)?`)

	// filterTermPattern captures the phrase after a preposition, up to
	// trailing punctuation. Legacy price flow only.
	filterTermPattern = regexp.MustCompile(`(?i)\b(?:for|of|on|in)\s+([^.,;:!?]+)`)

	// quotedLiteralPattern captures double- or single-quoted literals.
	quotedLiteralPattern = regexp.MustCompile(`"([^"]+)"|'([^']+)'`)

	// tagsTailPattern captures the text following the keyword tag(s).
	tagsTailPattern = regexp.MustCompile(`(?i)\btags?\b[:\s]*(.*)$`)

	// tagSplitPattern separates unquoted tag segments.
	tagSplitPattern = regexp.MustCompile(`[,&]`)

	// locationKeywordPattern captures a phrase introduced by the word
	// "location", optionally preceded by at/in.
	locationKeywordPattern = regexp.MustCompile(`(?i)\b(?:(?:at|in)\s+)?(?:the\s+)?location\s+([\p{L}][\p{L}\s'&-]*)`)

	// locationPrepPattern captures a phrase introduced by at/in alone.
	locationPrepPattern = regexp.MustCompile(`(?i)\b(?:at|in)\b\s+(?:the\s+)?([\p{L}][\p{L}\s'&-]*)`)
)

// locationCutPattern truncates a captured location phrase at the first
// connector word, so "Main Warehouse for winter boots" keeps only the
// label. Multi-word labels containing a connector lose their tail; the
// label is resolved downstream either way.
var locationCutPattern = regexp.MustCompile(`(?i)\s+(?:by|to|with|and|for|of|on|from)\b.*$`)

// ExtractPercentage returns the first signed decimal immediately
// followed by a percent sign. The literal sign is preserved; deciding
// what the sign means is the caller's concern.
func ExtractPercentage(text string) (float64, bool) {
	m := percentPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// ExtractPlainNumber returns the first signed decimal anywhere in the
// text.
func ExtractPlainNumber(text string) (float64, bool) {
	m := numberPattern.FindString(text)
	if m == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// extractCurrencyAmount returns the first symbol-prefixed signed
// decimal, with the symbol resolved to its ISO 4217 code through the
// rule tables. When no symbol-prefixed amount exists it falls back to
// ExtractPlainNumber with an empty currency.
func (p *Planner) extractCurrencyAmount(text string) (value float64, currency string, ok bool) {
	if p.currencyPattern != nil {
		if m := p.currencyPattern.FindStringSubmatch(text); m != nil {
			v, err := strconv.ParseFloat(m[2], 64)
			if err == nil {
				return v, p.symbolCodes[m[1]], true
			}
		}
	}
	v, found := ExtractPlainNumber(text)
	return v, "", found
}

// ExtractFilterTerm returns the phrase following the first for/of/on/in
// preposition, trimmed of surrounding whitespace. Used only by the
// legacy single-field price flow; the main planner derives its filter
// from the residual text instead.
func ExtractFilterTerm(text string) (string, bool) {
	m := filterTermPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	term := strings.TrimSpace(m[1])
	if term == "" {
		return "", false
	}
	return term, true
}

// ParseTags returns the tag literals in order of appearance.
//
// Description:
//
//	Quoted literals (single or double quotes) are preferred and returned
//	exactly as written. When nothing is quoted, the text following the
//	keyword "tag(s)" is split on commas and ampersands, each segment
//	trimmed, empties discarded. A single leading connector (with/to/as)
//	on the unquoted tail is dropped. Case is preserved throughout.
//
// Inputs:
//
//	text - The raw instruction text.
//
// Outputs:
//
//	[]string - The extracted tag literals; nil when none were found.
func ParseTags(text string) []string {
	var tags []string

	for _, m := range quotedLiteralPattern.FindAllStringSubmatch(text, -1) {
		literal := m[1]
		if literal == "" {
			literal = m[2]
		}
		literal = strings.TrimSpace(literal)
		if literal != "" {
			tags = append(tags, literal)
		}
	}
	if len(tags) > 0 {
		return tags
	}

	m := tagsTailPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	tail := strings.TrimSpace(m[1])
	for _, connector := range []string{"with ", "to ", "as "} {
		if len(tail) > len(connector) && strings.EqualFold(tail[:len(connector)], connector) {
			tail = strings.TrimSpace(tail[len(connector):])
			break
		}
	}
	if tail == "" {
		return nil
	}

	for _, segment := range tagSplitPattern.Split(tail, -1) {
		segment = strings.TrimSpace(segment)
		if segment != "" {
			tags = append(tags, segment)
		}
	}
	return tags
}

// DetectLocation returns the location phrase following location/at/in.
//
// Description:
//
//	Tries the explicit "location <name>" form first, then a bare at/in
//	preposition. The capture is greedy over letters and spaces, so it is
//	truncated at the first connector word; the phrase keeps the user's
//	casing (it is a free-text label resolved downstream). The consumed
//	span shrinks with the phrase and is returned so the filter builder
//	strips exactly the claimed text from the residue.
//
// Outputs:
//
//	phrase - The cleaned location label.
//	span - The raw text consumed by the match.
//	ok - False when no location phrase was found.
func DetectLocation(text string) (phrase string, span string, ok bool) {
	m := locationKeywordPattern.FindStringSubmatch(text)
	if m == nil {
		m = locationPrepPattern.FindStringSubmatch(text)
	}
	if m == nil {
		return "", "", false
	}

	// The capture group sits at the end of both patterns, so the full
	// match is prefix + capture and the span can shrink in lockstep.
	kept := locationCutPattern.ReplaceAllString(m[1], "")
	phrase = strings.Join(strings.Fields(kept), " ")
	if phrase == "" {
		return "", "", false
	}
	span = m[0][:len(m[0])-len(m[1])] + kept
	return phrase, strings.TrimSpace(span), true
}

// deriveStatus maps status keywords to a lifecycle value using the
// configured rules, first match wins.
func (p *Planner) deriveStatus(lowerText string) (ProductStatus, bool) {
	for _, rule := range p.statusRules {
		for _, cp := range rule.patterns {
			if matchCompiledPattern(lowerText, cp) {
				return rule.status, true
			}
		}
	}
	return "", false
}
