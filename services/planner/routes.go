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
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all Planner routes with the router.
//
// Description:
//
//	Registers all /v1/planner/* endpoints with the given Gin router
//	group. The router group should already have any required middleware
//	applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Planning Endpoints:
//
//	POST /v1/planner/plan - Interpret a merchant instruction
//	POST /v1/planner/legacy/price - Frozen price-only planning path
//
// Operational Endpoints:
//
//	GET  /v1/planner/rules - Summary of the live rule tables
//	GET  /v1/planner/health - Health check
//	GET  /v1/planner/ready - Readiness check
//
// Example:
//
//	svc, _ := planner.NewService(rules, logger)
//	handlers := planner.NewHandlers(svc)
//
//	v1 := router.Group("/v1")
//	planner.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	RegisterRoutesWithMiddleware(rg, handlers, nil)
}

// RegisterRoutesWithMiddleware registers planner routes with optional
// middleware on the planning endpoints.
//
// Description:
//
//	Same as RegisterRoutes but allows applying middleware (e.g., rate
//	limiting) to the planning endpoints. The operational endpoints stay
//	unguarded so probes and dashboards are never rate limited. If
//	middleware is nil, no additional middleware is applied.
//
// Inputs:
//
//	rg - The router group to register routes under.
//	handlers - The planner handlers.
//	middleware - Optional middleware for the planning routes. Can be nil.
//
// Thread Safety: This function is safe for concurrent use.
func RegisterRoutesWithMiddleware(rg *gin.RouterGroup, handlers *Handlers, middleware gin.HandlerFunc) {
	pl := rg.Group("/planner")
	{
		var planning *gin.RouterGroup
		if middleware != nil {
			planning = pl.Group("", middleware)
		} else {
			planning = pl.Group("")
		}
		{
			planning.POST("/plan", handlers.HandlePlan)
			planning.POST("/legacy/price", handlers.HandleLegacyPricePlan)
		}

		// Operational
		pl.GET("/rules", handlers.HandleRules)
		pl.GET("/health", handlers.HandleHealth)
		pl.GET("/ready", handlers.HandleReady)
	}
}
