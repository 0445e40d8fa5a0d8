// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command planner starts the Aleutian Merchant planner API server.
//
// The planner turns free-form merchant instructions into typed,
// executable plans:
//   - Deterministic rule-table interpretation (no LLM in the loop)
//   - Price, compare-at, tags, inventory, and status operations
//   - Clarify outcomes instead of guesses when text is ambiguous
//   - Hot rule reloads from a YAML file without restarts
//
// Usage:
//
//	go run ./cmd/planner
//	go run ./cmd/planner -port 9090
//	go run ./cmd/planner -rules ./planner_rules.yaml -watch
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8080/v1/planner/health
//
//	# Plan a price change
//	curl -X POST http://localhost:8080/v1/planner/plan \
//	  -H "Content-Type: application/json" \
//	  -d '{"text": "increase hoodie prices by 10%"}'
//
//	# Inspect the live rule tables
//	curl http://localhost:8080/v1/planner/rules | jq
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianMerchant/services/planner"
	"github.com/AleutianAI/AleutianMerchant/services/planner/config"
)

// maxBodyBytes bounds planning request bodies. Merchant instructions
// are a sentence or two; anything near this limit is not a real request.
const maxBodyBytes = 1 << 20

// shutdownTimeout bounds graceful drain of in-flight requests.
const shutdownTimeout = 10 * time.Second

func main() {
	port := flag.Int("port", 8080, "Port to listen on")
	debug := flag.Bool("debug", false, "Enable debug mode")
	rulesPath := flag.String("rules", "", "Path to an external rules YAML file (default: embedded tables)")
	watch := flag.Bool("watch", false, "Hot-reload the rules file on change (requires -rules)")
	rateLimit := flag.Int("rate-limit", 120, "Planning requests per client per minute (0 disables)")
	traceStdout := flag.Bool("trace-stdout", false, "Print spans to stdout when no OTLP endpoint is configured")
	flag.Parse()

	// Set Gin mode
	if *debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// W3C TraceContext propagation so planner spans join caller traces.
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := initTracer(ctx, *traceStdout)
	if err != nil {
		slog.Error("Failed to initialize tracer", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracer(flushCtx); err != nil {
			slog.Warn("Tracer shutdown failed", slog.String("error", err.Error()))
		}
	}()

	rules, err := loadRules(ctx, *rulesPath)
	if err != nil {
		slog.Error("Failed to load planner rules", slog.String("error", err.Error()))
		os.Exit(1)
	}

	svc, err := planner.NewService(rules, slog.Default())
	if err != nil {
		slog.Error("Failed to build planner service", slog.String("error", err.Error()))
		os.Exit(1)
	}
	handlers := planner.NewHandlers(svc)

	// Setup router
	router := gin.New()
	router.Use(gin.CustomRecovery(planner.RecoveryHandler))
	router.Use(otelgin.Middleware("aleutian-planner"))
	router.Use(planner.BodySizeLimitMiddleware(maxBodyBytes))
	if *debug {
		router.Use(gin.Logger())
	}

	// Rate limiting guards the planning endpoints only; probes and
	// dashboards stay unguarded.
	var planMiddleware gin.HandlerFunc
	if *rateLimit > 0 {
		planMiddleware = planner.RateLimitMiddleware(planner.NewClientRateLimiter(*rateLimit))
	}

	// Register routes under /v1/planner
	v1 := router.Group("/v1")
	planner.RegisterRoutesWithMiddleware(v1, handlers, planMiddleware)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	printBanner(*port, *rulesPath, *watch)

	g, gctx := errgroup.WithContext(ctx)

	if *watch {
		if *rulesPath == "" {
			slog.Warn("-watch ignored: embedded tables cannot change, pass -rules to watch a file")
		} else {
			rw, werr := config.NewRulesWatcher(*rulesPath, svc.Reload)
			if werr != nil {
				slog.Error("Failed to create rules watcher", slog.String("error", werr.Error()))
				os.Exit(1)
			}
			g.Go(func() error {
				return rw.Start(gctx)
			})
		}
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", *port),
		Handler: router,
	}

	g.Go(func() error {
		slog.Info("Starting Aleutian Merchant planner server", slog.String("address", srv.Addr))
		if serveErr := srv.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return serveErr
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down Aleutian Merchant planner server")
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(drainCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// loadRules loads external rule tables when a path is given, otherwise
// the embedded defaults.
func loadRules(ctx context.Context, path string) (*config.PlannerRules, error) {
	if path != "" {
		return config.LoadPlannerRulesFile(ctx, path)
	}
	return config.GetPlannerRules(ctx)
}

// initTracer wires the OpenTelemetry SDK.
//
// Description:
//
//	With OTEL_EXPORTER_OTLP_ENDPOINT set, spans ship over gRPC to the
//	collector. Otherwise -trace-stdout prints them locally, and with
//	neither the SDK stays unconfigured (spans are no-ops).
//
// Outputs:
//
//	func(context.Context) error - Flushes and shuts the provider down.
//	error - Non-nil if the exporter could not be created.
func initTracer(ctx context.Context, stdout bool) (func(context.Context) error, error) {
	var exporter sdktrace.SpanExporter

	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		exp, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("creating OTLP exporter: %w", err)
		}
		exporter = exp
	} else if stdout {
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("creating stdout exporter: %w", err)
		}
		exporter = exp
	} else {
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName("aleutian-planner"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

func printBanner(port int, rulesPath string, watch bool) {
	rulesSource := "embedded defaults"
	if rulesPath != "" {
		rulesSource = rulesPath
		if watch {
			rulesSource += " (hot reload)"
		}
	}

	banner := `
╔═══════════════════════════════════════════════════════════════════╗
║                  ALEUTIAN MERCHANT PLANNER SERVER                 ║
╠═══════════════════════════════════════════════════════════════════╣
║                                                                   ║
║  Deterministic merchant-instruction planning. No LLM in the loop. ║
║  Rule tables: %-50s  ║
║                                                                   ║
║  Quick Start:                                                     ║
║  ┌─────────────────────────────────────────────────────────────┐  ║
║  │ # Health check                                              │  ║
║  │ curl http://localhost:%d/v1/planner/health            │  ║
║  │                                                             │  ║
║  │ # Plan a price change                                       │  ║
║  │ curl -X POST http://localhost:%d/v1/planner/plan \    │  ║
║  │   -H "Content-Type: application/json" \                     │  ║
║  │   -d '{"text": "increase hoodie prices by 10%%"}'           │  ║
║  │                                                             │  ║
║  │ # Inspect the live rule tables                              │  ║
║  │ curl http://localhost:%d/v1/planner/rules | jq        │  ║
║  └─────────────────────────────────────────────────────────────┘  ║
║                                                                   ║
║  Endpoints:                                                       ║
║  ├── Planning: /plan, /legacy/price                               ║
║  └── Operational: /rules, /health, /ready, /metrics               ║
║                                                                   ║
║  Press Ctrl+C to stop                                             ║
╚═══════════════════════════════════════════════════════════════════╝
`
	fmt.Printf(banner, rulesSource, port, port, port)
}
