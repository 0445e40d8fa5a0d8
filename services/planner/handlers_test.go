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
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianMerchant/services/planner/config"
	"github.com/AleutianAI/AleutianMerchant/services/planner/engine"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestService builds a Service from the embedded default rule tables.
func newTestService(t *testing.T) *Service {
	t.Helper()
	rules, err := config.GetPlannerRules(context.Background())
	if err != nil {
		t.Fatalf("GetPlannerRules() error = %v", err)
	}
	svc, err := NewService(rules, slog.Default())
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc
}

// setupTestRouter creates a Gin router with planner routes registered.
func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	handlers := NewHandlers(newTestService(t))
	router := gin.New()
	v1 := router.Group("/v1")
	RegisterRoutes(v1, handlers)
	return router
}

func TestHandlePlan_ReturnsPlan(t *testing.T) {
	router := setupTestRouter(t)

	body := `{"text": "increase hoodie prices by 10%"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/planner/plan", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header not set on response")
	}

	var resp engine.PlanResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Action != engine.ActionPlan {
		t.Fatalf("Action = %q, want %q", resp.Action, engine.ActionPlan)
	}
	if resp.Plan.OpSpec.Operation != engine.FamilyPrice {
		t.Errorf("Operation = %q, want %q", resp.Plan.OpSpec.Operation, engine.FamilyPrice)
	}
	params, ok := resp.Plan.OpSpec.Params.(engine.PriceParams)
	if !ok {
		t.Fatalf("Params type = %T, want engine.PriceParams", resp.Plan.OpSpec.Params)
	}
	if params.Mode != engine.PriceModeIncPercent {
		t.Errorf("Mode = %q, want %q", params.Mode, engine.PriceModeIncPercent)
	}
	if params.Value != 10 {
		t.Errorf("Value = %v, want 10", params.Value)
	}
}

func TestHandlePlan_ClarifyIsOK(t *testing.T) {
	router := setupTestRouter(t)

	body := `{"text": "increase hoodie prices"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/planner/plan", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp engine.PlanResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Action != engine.ActionClarify {
		t.Fatalf("Action = %q, want %q", resp.Action, engine.ActionClarify)
	}
	if len(resp.Clarify.Issues) == 0 {
		t.Fatal("Clarify.Issues is empty")
	}
	if resp.Clarify.Issues[0].Code != engine.IssueMissingAmount {
		t.Errorf("Issues[0].Code = %q, want %q", resp.Clarify.Issues[0].Code, engine.IssueMissingAmount)
	}
}

func TestHandlePlan_BlankTextIsBadRequest(t *testing.T) {
	router := setupTestRouter(t)

	body := `{"text": "   "}`
	req := httptest.NewRequest(http.MethodPost, "/v1/planner/plan", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusBadRequest, w.Body.String())
	}

	var resp engine.PlanResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Action != engine.ActionError {
		t.Fatalf("Action = %q, want %q", resp.Action, engine.ActionError)
	}
	if resp.Error.Code != engine.ErrCodeInvalidRequest {
		t.Errorf("Error.Code = %q, want %q", resp.Error.Code, engine.ErrCodeInvalidRequest)
	}
	if resp.Error.Message == "" {
		t.Error("Error.Message is empty")
	}
}

func TestHandlePlan_MalformedBodyIsBadRequest(t *testing.T) {
	router := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/planner/plan", strings.NewReader(`{"text": `))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	var resp engine.PlanResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Action != engine.ActionError {
		t.Fatalf("Action = %q, want %q", resp.Action, engine.ActionError)
	}
	if resp.Error.Code != engine.ErrCodeInvalidRequest {
		t.Errorf("Error.Code = %q, want %q", resp.Error.Code, engine.ErrCodeInvalidRequest)
	}
	if resp.Error.Message == "" {
		t.Error("Error.Message is empty, want the decode failure detail")
	}
}

func TestHandlePlan_EchoesRequestID(t *testing.T) {
	router := setupTestRouter(t)

	body := `{"text": "archive old hoodies"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/planner/plan", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "req-fixed-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "req-fixed-42" {
		t.Errorf("X-Request-ID = %q, want req-fixed-42", got)
	}
}

func TestHandleLegacyPricePlan_ReturnsPlan(t *testing.T) {
	router := setupTestRouter(t)

	body := `{"text": "increase prices by 10% for Hoodies"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/planner/legacy/price", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var resp engine.PlanResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Action != engine.ActionPlan {
		t.Fatalf("Action = %q, want %q; body: %s", resp.Action, engine.ActionPlan, w.Body.String())
	}
	params, ok := resp.Plan.OpSpec.Params.(engine.PriceParams)
	if !ok {
		t.Fatalf("Params type = %T, want engine.PriceParams", resp.Plan.OpSpec.Params)
	}
	if params.Mode != engine.PriceModeIncPercent || params.Value != 10 {
		t.Errorf("params = %+v, want inc_percent 10", params)
	}
	if resp.Plan.FilterSpec.TitleContains == nil || *resp.Plan.FilterSpec.TitleContains != "hoodies" {
		t.Errorf("TitleContains = %v, want hoodies", resp.Plan.FilterSpec.TitleContains)
	}
}

func TestHandleLegacyPricePlan_MalformedBodyIsBadRequest(t *testing.T) {
	router := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/planner/legacy/price", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}

	var resp engine.PlanResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Action != engine.ActionError {
		t.Fatalf("Action = %q, want %q", resp.Action, engine.ActionError)
	}
	if resp.Error.Code != engine.ErrCodeInvalidRequest {
		t.Errorf("Error.Code = %q, want %q", resp.Error.Code, engine.ErrCodeInvalidRequest)
	}
}

func TestHandleRules_ReturnsSummary(t *testing.T) {
	router := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/planner/rules", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp RulesInfoResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	wantFamilies := []string{"price", "tags", "inventory", "status"}
	if len(resp.Families) != len(wantFamilies) {
		t.Fatalf("Families = %v, want %v", resp.Families, wantFamilies)
	}
	for i, f := range wantFamilies {
		if resp.Families[i] != f {
			t.Errorf("Families[%d] = %q, want %q", i, resp.Families[i], f)
		}
	}
	if resp.TitleMinLength != 3 {
		t.Errorf("TitleMinLength = %d, want 3", resp.TitleMinLength)
	}
	if resp.StopWords == 0 {
		t.Error("StopWords = 0, want > 0")
	}
	if resp.StatusRules == 0 {
		t.Error("StatusRules = 0, want > 0")
	}
	if resp.CurrencySymbols == 0 {
		t.Error("CurrencySymbols = 0, want > 0")
	}
}

func TestHandleHealth(t *testing.T) {
	router := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/planner/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("Status = %q, want healthy", resp.Status)
	}
	if resp.Service != "planner" {
		t.Errorf("Service = %q, want planner", resp.Service)
	}
}

func TestHandleReady(t *testing.T) {
	router := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/planner/ready", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Status != "ready" {
		t.Errorf("Status = %q, want ready", resp.Status)
	}
}
