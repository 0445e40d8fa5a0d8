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
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/AleutianMerchant/services/planner/engine"
)

// =============================================================================
// Client Rate Limiting
// =============================================================================

// maxTrackedClients bounds the number of client windows kept in memory.
// Idle clients are evicted once the tracked set passes this cap.
const maxTrackedClients = 10_000

// ClientRateLimiter enforces per-client request rate limits.
//
// Description:
//
//	Implements sliding-window rate limiting keyed by client address.
//	Each client gets the same requests-per-minute limit; the window
//	slides continuously rather than resetting on minute boundaries.
//
// Thread Safety:
//   - All methods are safe for concurrent use (protected by mutex).
type ClientRateLimiter struct {
	mu        sync.Mutex
	perMinute int
	windows   map[string][]int64 // client -> request timestamps (UnixMilli)
}

// NewClientRateLimiter creates a rate limiter allowing perMinute
// requests per client per sliding minute. A non-positive perMinute
// disables limiting.
func NewClientRateLimiter(perMinute int) *ClientRateLimiter {
	return &ClientRateLimiter{
		perMinute: perMinute,
		windows:   make(map[string][]int64),
	}
}

// Allow checks whether a request from the client is within the rate limit.
//
// Inputs:
//   - client: The client key, typically the remote address.
//
// Outputs:
//   - bool: True if the request is allowed.
//   - time.Duration: Suggested retry-after when denied.
func (r *ClientRateLimiter) Allow(client string) (bool, time.Duration) {
	if r.perMinute <= 0 {
		return true, 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UnixMilli()
	windowStart := now - 60_000

	window := r.windows[client]
	pruned := window[:0]
	for _, ts := range window {
		if ts >= windowStart {
			pruned = append(pruned, ts)
		}
	}

	if len(pruned) >= r.perMinute {
		r.windows[client] = pruned
		oldestInWindow := pruned[0]
		retryAfter := time.Duration(oldestInWindow+60_000-now) * time.Millisecond
		return false, retryAfter
	}

	r.windows[client] = append(pruned, now)

	if len(r.windows) > maxTrackedClients {
		r.evictIdleLocked(windowStart)
	}

	return true, 0
}

// evictIdleLocked drops clients whose entire window has expired.
// Caller must hold r.mu.
func (r *ClientRateLimiter) evictIdleLocked(windowStart int64) {
	for client, window := range r.windows {
		idle := true
		for _, ts := range window {
			if ts >= windowStart {
				idle = false
				break
			}
		}
		if idle {
			delete(r.windows, client)
		}
	}
}

// RateLimitMiddleware rejects requests that exceed the per-client rate
// limit with 429 and a Retry-After header.
//
// Inputs:
//   - limiter: The shared rate limiter. Must not be nil.
func RateLimitMiddleware(limiter *ClientRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryAfter := limiter.Allow(c.ClientIP())
		if !allowed {
			recordRateLimited(c.FullPath())
			seconds := int64((retryAfter + time.Second - 1) / time.Second)
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.FormatInt(seconds, 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error: "rate limit exceeded, retry later",
				Code:  "RATE_LIMITED",
			})
			return
		}
		c.Next()
	}
}

// =============================================================================
// Panic Recovery
// =============================================================================

// RecoveryHandler shapes a recovered panic as the plan.failed error
// envelope. Wire it with gin.CustomRecovery so clients never see a
// bare 500 on the planning contract.
func RecoveryHandler(c *gin.Context, recovered any) {
	slog.Error("panic recovered in handler",
		slog.String("path", c.FullPath()),
		slog.Any("panic", recovered),
	)
	c.AbortWithStatusJSON(http.StatusInternalServerError,
		engine.NewErrorResult(engine.ErrCodeFailed, "planning failed"))
}

// =============================================================================
// Request Body Limits
// =============================================================================

// BodySizeLimitMiddleware bounds request body size.
//
// Description:
//
//	Rejects requests whose declared Content-Length exceeds maxBytes
//	with 413. Bodies without a declared length are wrapped with
//	http.MaxBytesReader, so an oversize chunked body fails during
//	decode instead.
func BodySizeLimitMiddleware(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ErrorResponse{
				Error: "request body exceeds " + strconv.FormatInt(maxBytes, 10) + " bytes",
				Code:  "BODY_TOO_LARGE",
			})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
