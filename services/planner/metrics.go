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
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics for the Planner HTTP Surface
// =============================================================================

var (
	// httpRequestsTotal counts handled requests by route and status class.
	// Labels: route (plan, legacy_price, rules, health, ready), status (HTTP code)
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "planner",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total handled requests by route and status code",
	}, []string{"route", "status"})

	// httpRequestDuration measures handler latency per route.
	// Labels: route
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "planner",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Handler latency by route",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"route"})

	// httpRateLimitedTotal counts requests rejected by the rate limiter.
	// Labels: route (matched route path)
	httpRateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "planner",
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Total requests rejected by the per-client rate limiter",
	}, []string{"route"})

	// ruleReloadsTotal counts hot rule reload outcomes.
	// Labels: result (applied, rejected)
	ruleReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "planner",
		Subsystem: "service",
		Name:      "rule_reloads_total",
		Help:      "Total hot rule reload attempts by outcome",
	}, []string{"result"})
)

// recordHTTPRequest records one handled request.
//
// Inputs:
//   - route: The logical route name.
//   - status: The HTTP status code.
//   - seconds: Handler latency in seconds.
func recordHTTPRequest(route string, status int, seconds float64) {
	httpRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(route).Observe(seconds)
}

// recordRateLimited records a request rejected by the rate limiter.
func recordRateLimited(route string) {
	httpRateLimitedTotal.WithLabelValues(route).Inc()
}

// recordReloadResult records a rule reload outcome.
func recordReloadResult(result string) {
	ruleReloadsTotal.WithLabelValues(result).Inc()
}
