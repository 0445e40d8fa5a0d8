// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package engine turns a merchant's free-form instruction into a typed,
// validated bulk-edit plan.
//
// The engine is a single-step deterministic classifier: the dispatcher
// tests the text against family trigger patterns in priority order,
// the matching builder extracts parameters through the primitives in
// extract.go, the residual text becomes a selection filter, and the
// assembled response is schema-validated before it is returned. There
// is no I/O and no state between calls; identical input yields an
// identical response.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/AleutianMerchant/services/planner/config"
)

// =============================================================================
// Prometheus Metrics
// =============================================================================

var (
	plannerRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "planner",
		Subsystem: "engine",
		Name:      "requests_total",
		Help:      "Total planning calls by response action and operation family",
	}, []string{"action", "family"})

	plannerLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "planner",
		Subsystem: "engine",
		Name:      "latency_seconds",
		Help:      "Planning call latency",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01},
	})

	plannerClarifyIssues = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "planner",
		Subsystem: "engine",
		Name:      "clarify_issues_total",
		Help:      "Total clarify issues emitted by code",
	}, []string{"code"})

	plannerAmbiguousTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "planner",
		Subsystem: "engine",
		Name:      "ambiguous_total",
		Help:      "Times the text matched more than one operation family",
	})

	plannerValidationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "planner",
		Subsystem: "engine",
		Name:      "validation_failures_total",
		Help:      "Builder outputs rejected by schema validation",
	})

	plannerPanicsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "planner",
		Subsystem: "engine",
		Name:      "panics_total",
		Help:      "Panics recovered during planning",
	})
)

// =============================================================================
// OTel Tracer
// =============================================================================

var engineTracer = otel.Tracer("aleutian.planner.engine")

// =============================================================================
// Planner Types
// =============================================================================

// compiledPattern holds a pattern string alongside its pre-compiled regex (if applicable).
type compiledPattern struct {
	raw   string
	regex *regexp.Regexp // nil for substring-only patterns
}

// familyTrigger binds an operation family to its compiled trigger patterns.
type familyTrigger struct {
	family   Family
	patterns []compiledPattern
}

// statusMatcher binds a lifecycle value to its compiled keyword patterns.
type statusMatcher struct {
	status   ProductStatus
	patterns []compiledPattern
}

// wordMatcher matches any of a word list at a word start, so "increased"
// matches "increase" but "flower" never matches "lower".
type wordMatcher struct {
	re *regexp.Regexp
}

// newWordMatcher compiles a word list into a single prefix-anchored matcher.
func newWordMatcher(words []string) wordMatcher {
	if len(words) == 0 {
		return wordMatcher{}
	}
	escaped := make([]string, len(words))
	for i, w := range words {
		escaped[i] = regexp.QuoteMeta(strings.ToLower(w))
	}
	return wordMatcher{re: regexp.MustCompile(`\b(?:` + strings.Join(escaped, "|") + `)`)}
}

func (m wordMatcher) matches(lowerText string) bool {
	return m.re != nil && m.re.MatchString(lowerText)
}

// familyNouns are the literal family fragments each builder claims from
// the text before the residual filter is computed. Plural forms are
// listed alongside singulars so stripping stays word-bounded.
var familyNouns = map[Family][]string{
	FamilyPrice:     {"prices", "price", "compare at", "compare-at", "compareat"},
	FamilyTags:      {"tags", "tag"},
	FamilyInventory: {"inventory", "stock", "quantities", "quantity"},
	FamilyStatus:    {"publish", "unpublish", "archived", "archive", "draft", "activate", "status"},
}

// Planner is the deterministic text-to-plan interpreter.
//
// Description:
//
//	Holds the rule tables in compiled form. Construction does all
//	pattern compilation; planning itself allocates only the response.
//
// Thread Safety: Safe for concurrent use (all state is read-only after construction).
type Planner struct {
	rules  *config.PlannerRules
	logger *slog.Logger

	familyTriggers []familyTrigger
	statusRules    []statusMatcher

	// currencyPattern matches a configured symbol followed by a signed
	// decimal; nil when no symbols are configured.
	currencyPattern *regexp.Regexp

	// amountStripPattern removes currency/plain amounts with their
	// leading preposition from the residual text.
	amountStripPattern *regexp.Regexp

	// symbolCodes maps a currency symbol to its ISO 4217 code.
	symbolCodes map[string]string

	// compareAtPattern switches the price builder to the compare_at
	// family; nil when not configured.
	compareAtPattern *regexp.Regexp

	priceIncrease wordMatcher
	priceDecrease wordMatcher
	priceSet      wordMatcher
	tagsReplace   wordMatcher
	tagsRemove    wordMatcher
	invInc        wordMatcher
	invDec        wordMatcher

	stopWords map[string]bool

	// consumedPatterns holds the word-bounded strip patterns per family.
	consumedPatterns map[Family][]*regexp.Regexp
}

// NewPlanner compiles the rule tables into a ready planner.
//
// Description:
//
//	Compiles family triggers, status rules, the currency symbol
//	alternation (longest symbol first so multi-rune symbols win), the
//	per-family keyword matchers, and the residual-filter strip
//	patterns.
//
// Inputs:
//
//	rules - Validated rule tables. Must not be nil.
//	logger - Logger for structured output. May be nil (defaults).
//
// Outputs:
//
//	*Planner - The constructed planner.
//	error - Non-nil if rules is nil or a configured regex fails to compile.
//
// Thread Safety: The returned Planner is safe for concurrent use.
func NewPlanner(rules *config.PlannerRules, logger *slog.Logger) (*Planner, error) {
	if rules == nil {
		return nil, fmt.Errorf("NewPlanner: rules must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Planner{
		rules:  rules,
		logger: logger,
	}

	p.familyTriggers = make([]familyTrigger, len(rules.Families))
	for i, ft := range rules.Families {
		p.familyTriggers[i] = familyTrigger{
			family:   Family(ft.Family),
			patterns: compilePatterns(ft.Patterns, logger),
		}
	}

	p.statusRules = make([]statusMatcher, len(rules.Status.Rules))
	for i, sr := range rules.Status.Rules {
		p.statusRules[i] = statusMatcher{
			status:   ProductStatus(sr.Status),
			patterns: compilePatterns(sr.Patterns, logger),
		}
	}

	if rules.Price.CompareAtPattern != "" {
		re, err := regexp.Compile("(?i)" + rules.Price.CompareAtPattern)
		if err != nil {
			return nil, fmt.Errorf("NewPlanner: price.compare_at_pattern: %w", err)
		}
		p.compareAtPattern = re
	}

	p.symbolCodes = rules.CurrencySymbols
	symbolAlt := currencyAlternation(rules.CurrencySymbols)
	if symbolAlt != "" {
		p.currencyPattern = regexp.MustCompile(`(` + symbolAlt + `)\s*([+-]?\d+(?:\.\d+)?)`)
		p.amountStripPattern = regexp.MustCompile(`(?:\b(?:by|to|at)\s+)?(?:(?:` + symbolAlt + `)\s*)?[+-]?\d+(?:\.\d+)?`)
	} else {
		p.amountStripPattern = regexp.MustCompile(`(?:\b(?:by|to|at)\s+)?[+-]?\d+(?:\.\d+)?`)
	}

	p.priceIncrease = newWordMatcher(rules.Price.IncreaseWords)
	p.priceDecrease = newWordMatcher(rules.Price.DecreaseWords)
	p.priceSet = newWordMatcher(rules.Price.SetWords)
	p.tagsReplace = newWordMatcher(rules.Tags.ReplaceWords)
	p.tagsRemove = newWordMatcher(rules.Tags.RemoveWords)
	p.invInc = newWordMatcher(rules.Inventory.IncWords)
	p.invDec = newWordMatcher(rules.Inventory.DecWords)

	p.stopWords = make(map[string]bool, len(rules.StopWords))
	for _, w := range rules.StopWords {
		p.stopWords[strings.ToLower(w)] = true
	}

	p.consumedPatterns = map[Family][]*regexp.Regexp{
		FamilyPrice: compileConsumed(
			familyNouns[FamilyPrice],
			rules.Price.IncreaseWords, rules.Price.DecreaseWords, rules.Price.SetWords,
		),
		FamilyTags: compileConsumed(
			familyNouns[FamilyTags],
			rules.Tags.ReplaceWords, rules.Tags.RemoveWords, []string{"add"},
		),
		FamilyInventory: compileConsumed(
			familyNouns[FamilyInventory],
			rules.Inventory.IncWords, rules.Inventory.DecWords, rules.Inventory.SetWords,
		),
		FamilyStatus: compileConsumed(familyNouns[FamilyStatus]),
	}

	return p, nil
}

// Rules returns the tables the planner was built from.
func (p *Planner) Rules() *config.PlannerRules {
	return p.rules
}

// compilePatterns pre-compiles trigger patterns. A pattern containing
// regex metacharacters is compiled case-insensitively; a plain token is
// matched as a lowercase substring.
func compilePatterns(patterns []string, logger *slog.Logger) []compiledPattern {
	result := make([]compiledPattern, 0, len(patterns))
	for _, pattern := range patterns {
		if regexp.QuoteMeta(pattern) == pattern {
			result = append(result, compiledPattern{raw: strings.ToLower(pattern)})
			continue
		}
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			logger.Warn("planner: invalid trigger pattern, skipping",
				slog.String("pattern", pattern),
				slog.String("error", err.Error()),
			)
			continue
		}
		result = append(result, compiledPattern{raw: strings.ToLower(pattern), regex: re})
	}
	return result
}

// matchCompiledPattern checks if lowercased text matches a pre-compiled pattern.
func matchCompiledPattern(lowerText string, cp compiledPattern) bool {
	if cp.regex != nil {
		return cp.regex.MatchString(lowerText)
	}
	return strings.Contains(lowerText, cp.raw)
}

// matchAnyCompiled checks if any pre-compiled pattern matches the text.
func matchAnyCompiled(lowerText string, patterns []compiledPattern) bool {
	for _, cp := range patterns {
		if matchCompiledPattern(lowerText, cp) {
			return true
		}
	}
	return false
}

// compileConsumed builds word-bounded strip patterns from fragment lists.
func compileConsumed(lists ...[]string) []*regexp.Regexp {
	var patterns []*regexp.Regexp
	for _, list := range lists {
		for _, frag := range list {
			frag = strings.ToLower(strings.TrimSpace(frag))
			if frag == "" {
				continue
			}
			patterns = append(patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(frag)+`\b`))
		}
	}
	return patterns
}

// currencyAlternation joins the escaped currency symbols longest first,
// so a multi-rune symbol is never shadowed by one of its prefixes. The
// secondary lexicographic order keeps compilation deterministic.
func currencyAlternation(symbols map[string]string) string {
	if len(symbols) == 0 {
		return ""
	}
	keys := make([]string, 0, len(symbols))
	for symbol := range symbols {
		keys = append(keys, symbol)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	escaped := make([]string, len(keys))
	for i, symbol := range keys {
		escaped[i] = regexp.QuoteMeta(symbol)
	}
	return strings.Join(escaped, "|")
}

// =============================================================================
// Planning Entry Point
// =============================================================================

// Plan interprets one instruction into a validated response.
//
// Description:
//
//	Dispatches on the first matching family trigger, runs the family's
//	builder, demotes confidence when more than one family matched, and
//	schema-validates the result. A schema-invalid builder output is a
//	programming error and is returned as a Go error, never downgraded
//	to a clarify. A recovered panic is likewise returned as a Go error.
//
// Inputs:
//
//	ctx - Context for tracing. Must not be nil.
//	req - The planning request.
//
// Outputs:
//
//	*PlanResponse - The validated response. Nil when error is non-nil.
//	error - Non-nil only for internal invariant violations.
//
// Thread Safety: Safe for concurrent use.
func (p *Planner) Plan(ctx context.Context, req Request) (resp *PlanResponse, err error) {
	start := time.Now()

	_, span := engineTracer.Start(ctx, "engine.Planner.Plan")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			plannerPanicsTotal.Inc()
			span.SetStatus(codes.Error, "panic")
			p.logger.Error("planning panicked",
				slog.Any("panic", r),
				slog.String("text_preview", truncateForLog(req.Text, 80)),
			)
			resp = nil
			err = fmt.Errorf("planning panicked: %v", r)
		}
	}()

	if vErr := ValidateRequest(req); vErr != nil {
		return p.finish(span, NewErrorResult(ErrCodeInvalidRequest, vErr.Error()), "none", start)
	}
	if strings.TrimSpace(req.Text) == "" {
		return p.finish(span, NewErrorResult(ErrCodeInvalidRequest, "text must not be blank"), "none", start)
	}

	lower := strings.ToLower(req.Text)
	matched := p.matchFamilies(lower)
	if len(matched) == 0 {
		return p.finish(span, NewClarifyResult([]ClarifyIssue{newIssue(IssueUnrecognized)}, nil), "none", start)
	}

	family := matched[0]
	switch family {
	case FamilyPrice:
		resp = p.buildPricePlan(req.Text)
	case FamilyTags:
		resp = p.buildTagsPlan(req.Text)
	case FamilyInventory:
		resp = p.buildInventoryPlan(req.Text)
	case FamilyStatus:
		resp = p.buildStatusPlan(req.Text)
	default:
		return nil, fmt.Errorf("no builder for family %q", family)
	}

	if len(matched) > 1 && resp.Action == ActionPlan {
		resp.Plan.Confidence = ConfidenceLow
		plannerAmbiguousTotal.Inc()
		span.SetAttributes(attribute.Bool("plan.ambiguous", true))
		p.logger.Warn("multiple operation families matched, demoting confidence",
			slog.String("chosen", string(family)),
			slog.Int("matched", len(matched)),
			slog.String("text_preview", truncateForLog(req.Text, 80)),
		)
	}

	return p.finish(span, resp, string(family), start)
}

// matchFamilies returns every family whose trigger patterns match, in
// configured priority order.
func (p *Planner) matchFamilies(lowerText string) []Family {
	var matched []Family
	for _, ft := range p.familyTriggers {
		if matchAnyCompiled(lowerText, ft.patterns) {
			matched = append(matched, ft.family)
		}
	}
	return matched
}

// finish validates the response and records telemetry for it.
func (p *Planner) finish(span trace.Span, resp *PlanResponse, family string, start time.Time) (*PlanResponse, error) {
	if err := resp.Validate(); err != nil {
		plannerValidationFailures.Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "schema-invalid response")
		p.logger.Error("builder produced schema-invalid response",
			slog.String("family", family),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	duration := time.Since(start)
	plannerRequestsTotal.WithLabelValues(string(resp.Action), family).Inc()
	plannerLatency.Observe(duration.Seconds())
	if resp.Clarify != nil {
		for _, issue := range resp.Clarify.Issues {
			plannerClarifyIssues.WithLabelValues(string(issue.Code)).Inc()
		}
	}

	span.SetAttributes(
		attribute.String("plan.action", string(resp.Action)),
		attribute.String("plan.family", family),
		attribute.Int64("plan.duration_us", duration.Microseconds()),
	)

	p.logger.Debug("planning finished",
		slog.String("action", string(resp.Action)),
		slog.String("family", family),
		slog.Duration("duration", duration),
	)

	return resp, nil
}

// truncateForLog shortens text for log previews.
func truncateForLog(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
