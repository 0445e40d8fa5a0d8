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
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianMerchant/services/planner/engine"
)

// =============================================================================
// HTTP Handlers
// =============================================================================

// Handlers bundles the planner HTTP handlers around a Service.
type Handlers struct {
	svc *Service
}

// NewHandlers creates the handler set for a service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// ErrorResponse is the transport-level error envelope.
//
// Description:
//
//	Used only for service-surface rejections that are not planning
//	outcomes: rate limiting and oversize bodies. Everything inside the
//	planning contract, including malformed bodies and internal
//	failures, uses the engine.PlanResponse envelope instead.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// LegacyPlanRequest is the body of the frozen price-only endpoint.
type LegacyPlanRequest struct {
	// Text is the merchant's free-form price instruction.
	Text string `json:"text"`
}

// RulesInfoResponse summarizes the rule tables behind the live planner.
type RulesInfoResponse struct {
	// Families lists the trigger families in dispatch priority order.
	Families []string `json:"families"`

	// StopWords is the number of filter stop words.
	StopWords int `json:"stopWords"`

	// StatusRules is the number of status keyword rules.
	StatusRules int `json:"statusRules"`

	// CurrencySymbols is the number of recognized currency symbols.
	CurrencySymbols int `json:"currencySymbols"`

	// TitleMinLength is the minimum residue length for a title hint.
	TitleMinLength int `json:"titleMinLength"`
}

// HealthResponse is the body of the health and readiness endpoints.
type HealthResponse struct {
	Status        string  `json:"status"`
	Service       string  `json:"service"`
	UptimeSeconds float64 `json:"uptime_seconds,omitempty"`
}

// getOrCreateRequestID returns the caller's X-Request-ID or mints one,
// and echoes it on the response so clients can correlate logs.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.New().String()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}

// HandlePlan handles POST /v1/planner/plan.
//
// Description:
//
//	Interprets a merchant instruction and returns the typed planning
//	outcome. The response is always an engine.PlanResponse envelope:
//	plan and clarify outcomes return 200, the caller-mistake error
//	tier returns 400 with code plan.invalid_request, and internal
//	failures return 500 with code plan.failed.
//
// Request Body:
//
//	{"text": "increase hoodie prices by 10%", "locale": "en-US"}
//
// Response:
//
//	200 OK: PlanResponse with action plan or clarify
//	400 Bad Request: PlanResponse with action error
//	500 Internal Server Error: PlanResponse with action error
//
// Thread Safety: This method is safe for concurrent use.
func (h *Handlers) HandlePlan(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandlePlan")
	start := time.Now()

	var req engine.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("unreadable plan request body", "error", err)
		c.JSON(http.StatusBadRequest,
			engine.NewErrorResult(engine.ErrCodeInvalidRequest, err.Error()))
		recordHTTPRequest("plan", http.StatusBadRequest, time.Since(start).Seconds())
		return
	}

	resp, err := h.svc.Plan(c.Request.Context(), req)
	if err != nil {
		logger.Error("planning failed", "error", err)
		c.JSON(http.StatusInternalServerError,
			engine.NewErrorResult(engine.ErrCodeFailed, "planning failed"))
		recordHTTPRequest("plan", http.StatusInternalServerError, time.Since(start).Seconds())
		return
	}

	status := statusForAction(resp.Action)
	c.JSON(status, resp)
	recordHTTPRequest("plan", status, time.Since(start).Seconds())
}

// HandleLegacyPricePlan handles POST /v1/planner/legacy/price.
//
// Description:
//
//	Runs the frozen price-only planning path kept for clients that
//	predate the multi-family endpoint. Same envelope and status
//	mapping as HandlePlan.
//
// Request Body:
//
//	{"text": "increase prices by 10% for Hoodies"}
//
// Response:
//
//	200 OK: PlanResponse with action plan or clarify
//	400 Bad Request: PlanResponse with action error
//	500 Internal Server Error: PlanResponse with action error
//
// Thread Safety: This method is safe for concurrent use.
func (h *Handlers) HandleLegacyPricePlan(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleLegacyPricePlan")
	start := time.Now()

	var req LegacyPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("unreadable legacy plan request body", "error", err)
		c.JSON(http.StatusBadRequest,
			engine.NewErrorResult(engine.ErrCodeInvalidRequest, err.Error()))
		recordHTTPRequest("legacy_price", http.StatusBadRequest, time.Since(start).Seconds())
		return
	}

	resp, err := h.svc.LegacyPricePlan(c.Request.Context(), req.Text)
	if err != nil {
		logger.Error("legacy planning failed", "error", err)
		c.JSON(http.StatusInternalServerError,
			engine.NewErrorResult(engine.ErrCodeFailed, "planning failed"))
		recordHTTPRequest("legacy_price", http.StatusInternalServerError, time.Since(start).Seconds())
		return
	}

	status := statusForAction(resp.Action)
	c.JSON(status, resp)
	recordHTTPRequest("legacy_price", status, time.Since(start).Seconds())
}

// HandleRules handles GET /v1/planner/rules.
//
// Description:
//
//	Returns a summary of the rule tables behind the live planner so
//	operators can confirm which tables a hot reload left serving.
//
// Response:
//
//	200 OK: RulesInfoResponse
//
// Thread Safety: This method is safe for concurrent use.
func (h *Handlers) HandleRules(c *gin.Context) {
	start := time.Now()
	rules := h.svc.Rules()

	families := make([]string, 0, len(rules.Families))
	for _, f := range rules.Families {
		families = append(families, f.Family)
	}

	c.JSON(http.StatusOK, RulesInfoResponse{
		Families:        families,
		StopWords:       len(rules.StopWords),
		StatusRules:     len(rules.Status.Rules),
		CurrencySymbols: len(rules.CurrencySymbols),
		TitleMinLength:  rules.TitleMinLength,
	})
	recordHTTPRequest("rules", http.StatusOK, time.Since(start).Seconds())
}

// HandleHealth handles GET /health.
//
// Response:
//
//	200 OK: HealthResponse
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:        "healthy",
		Service:       "planner",
		UptimeSeconds: h.svc.Uptime().Seconds(),
	})
}

// HandleReady handles GET /ready.
//
// Response:
//
//	200 OK: HealthResponse when a planner is loaded
//	503 Service Unavailable: HealthResponse otherwise
func (h *Handlers) HandleReady(c *gin.Context) {
	if !h.svc.Ready() {
		c.JSON(http.StatusServiceUnavailable, HealthResponse{
			Status:  "not_ready",
			Service: "planner",
		})
		return
	}
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ready",
		Service: "planner",
	})
}

// statusForAction maps a planning outcome to its HTTP status.
//
// The clarify tier is a successful interpretation that needs more
// input, so it stays 200; only the caller-mistake error tier is 400.
func statusForAction(action engine.Action) int {
	if action == engine.ActionError {
		return http.StatusBadRequest
	}
	return http.StatusOK
}
