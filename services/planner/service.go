// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package planner

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/AleutianAI/AleutianMerchant/services/planner/config"
	"github.com/AleutianAI/AleutianMerchant/services/planner/engine"
)

// =============================================================================
// Planner Service
// =============================================================================

// Service owns the live Planner and supports hot rule reloads.
//
// Description:
//
//	The service holds the current engine.Planner behind an atomic
//	pointer. Planning calls load the pointer once and run against that
//	snapshot, so a reload never changes the tables mid-request. Reload
//	builds a full replacement planner from fresh rule tables and swaps
//	it in only if compilation succeeds; a bad reload keeps the previous
//	planner serving.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Service struct {
	logger  *slog.Logger
	current atomic.Pointer[engine.Planner]
	started time.Time
}

// NewService builds a Service around a planner compiled from the given
// rule tables.
//
// Inputs:
//   - rules: Validated rule tables, typically from config.GetPlannerRules.
//   - logger: Structured logger. Must not be nil.
//
// Outputs:
//   - *Service: The ready service.
//   - error: Non-nil if the rule tables fail to compile.
func NewService(rules *config.PlannerRules, logger *slog.Logger) (*Service, error) {
	p, err := engine.NewPlanner(rules, logger)
	if err != nil {
		return nil, fmt.Errorf("building planner: %w", err)
	}

	s := &Service{
		logger:  logger,
		started: time.Now(),
	}
	s.current.Store(p)
	return s, nil
}

// Plan interprets merchant text against the current rule tables.
//
// Outputs:
//   - *engine.PlanResponse: The plan, clarify, or error outcome.
//   - error: Non-nil only for internal planner failures.
func (s *Service) Plan(ctx context.Context, req engine.Request) (*engine.PlanResponse, error) {
	return s.current.Load().Plan(ctx, req)
}

// LegacyPricePlan runs the frozen price-only planning path.
func (s *Service) LegacyPricePlan(ctx context.Context, text string) (*engine.PlanResponse, error) {
	return s.current.Load().LegacyPricePlan(ctx, text)
}

// Reload swaps in a planner compiled from fresh rule tables.
//
// Description:
//
//	Matches the config.RulesWatcher callback signature so the watcher
//	can drive reloads directly. If the new tables fail to compile the
//	previous planner keeps serving and the failure is logged; the
//	watcher already validated the tables, so this only fires on pattern
//	compilation problems.
func (s *Service) Reload(rules *config.PlannerRules) {
	p, err := engine.NewPlanner(rules, s.logger)
	if err != nil {
		recordReloadResult("rejected")
		s.logger.Error("rule reload rejected, previous tables still serving",
			"error", err)
		return
	}

	s.current.Store(p)
	recordReloadResult("applied")
	s.logger.Info("rule reload applied",
		"families", len(rules.Families),
		"stop_words", len(rules.StopWords),
		"status_rules", len(rules.Status.Rules))
}

// Rules returns the rule tables behind the current planner.
func (s *Service) Rules() *config.PlannerRules {
	return s.current.Load().Rules()
}

// Uptime reports how long the service has been running.
func (s *Service) Uptime() time.Duration {
	return time.Since(s.started)
}

// Ready reports whether a planner is loaded and able to serve.
func (s *Service) Ready() bool {
	return s.current.Load() != nil
}
