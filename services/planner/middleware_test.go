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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianMerchant/services/planner/engine"
)

func TestClientRateLimiter_AllowsUnderLimit(t *testing.T) {
	limiter := NewClientRateLimiter(5)

	for i := 0; i < 5; i++ {
		allowed, _ := limiter.Allow("client-a")
		if !allowed {
			t.Fatalf("request %d denied, want allowed", i+1)
		}
	}

	allowed, retryAfter := limiter.Allow("client-a")
	if allowed {
		t.Fatal("request 6 allowed, want denied")
	}
	if retryAfter <= 0 || retryAfter > time.Minute {
		t.Errorf("retryAfter = %v, want within (0, 1m]", retryAfter)
	}
}

func TestClientRateLimiter_IsolatesClients(t *testing.T) {
	limiter := NewClientRateLimiter(1)

	if allowed, _ := limiter.Allow("client-a"); !allowed {
		t.Fatal("client-a first request denied")
	}
	if allowed, _ := limiter.Allow("client-a"); allowed {
		t.Fatal("client-a second request allowed, want denied")
	}
	if allowed, _ := limiter.Allow("client-b"); !allowed {
		t.Error("client-b denied by client-a's window")
	}
}

func TestClientRateLimiter_DisabledWhenNonPositive(t *testing.T) {
	limiter := NewClientRateLimiter(0)

	for i := 0; i < 100; i++ {
		if allowed, _ := limiter.Allow("client-a"); !allowed {
			t.Fatalf("request %d denied with limiting disabled", i+1)
		}
	}
}

func TestRateLimitMiddleware_ReturnsTooManyRequests(t *testing.T) {
	router := gin.New()
	router.POST("/plan",
		RateLimitMiddleware(NewClientRateLimiter(1)),
		func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/plan", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want %d", first.Code, http.StatusOK)
	}

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/plan", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want %d", second.Code, http.StatusTooManyRequests)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header not set on 429")
	}

	var resp ErrorResponse
	if err := json.Unmarshal(second.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Code != "RATE_LIMITED" {
		t.Errorf("Code = %q, want RATE_LIMITED", resp.Code)
	}
}

func TestRecoveryHandler_ShapesPanicAsPlanFailed(t *testing.T) {
	router := gin.New()
	router.Use(gin.CustomRecovery(RecoveryHandler))
	router.POST("/plan", func(c *gin.Context) { panic("builder invariant broken") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/plan", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}

	var resp engine.PlanResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Action != engine.ActionError {
		t.Fatalf("Action = %q, want %q", resp.Action, engine.ActionError)
	}
	if resp.Error.Code != engine.ErrCodeFailed {
		t.Errorf("Error.Code = %q, want %q", resp.Error.Code, engine.ErrCodeFailed)
	}
}

func TestBodySizeLimit_RejectsDeclaredOversize(t *testing.T) {
	router := gin.New()
	router.POST("/plan",
		BodySizeLimitMiddleware(64),
		func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	body := strings.Repeat("x", 200)
	req := httptest.NewRequest(http.MethodPost, "/plan", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusRequestEntityTooLarge)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Code != "BODY_TOO_LARGE" {
		t.Errorf("Code = %q, want BODY_TOO_LARGE", resp.Code)
	}
}

func TestBodySizeLimit_AllowsSmallBodies(t *testing.T) {
	router := gin.New()
	router.POST("/plan",
		BodySizeLimitMiddleware(1024),
		func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	req := httptest.NewRequest(http.MethodPost, "/plan", strings.NewReader(`{"text": "hi"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
}
