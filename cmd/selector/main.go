// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command selector starts the Aleutian Select API server.
//
// Aleutian Select picks the best tool usage pattern for a capability:
// it scores catalog patterns against detected user preferences, applies
// policy constraints, and resolves near-ties with an optional LLM
// arbiter.
//
// Usage:
//
//	go run ./cmd/selector
//	go run ./cmd/selector -port 9090 -catalog ./catalog.yaml -watch
//
// With an OpenAI arbiter for tie-breaking:
//
//	SELECT_ARBITER=openai OPENAI_API_KEY=... go run ./cmd/selector
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8080/v1/select/health
//
//	# Run a selection
//	curl -X POST http://localhost:8080/v1/select/run \
//	  -H "Content-Type: application/json" \
//	  -d '{"capabilities":["asset_query"],"request_text":"fast count of linux hosts","variables":{"N":100}}'
//
//	# Reload the catalog file
//	curl -X POST http://localhost:8080/v1/select/catalog/reload
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
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianSelect/services/selector"
	"github.com/AleutianAI/AleutianSelect/services/selector/catalog"
	"github.com/AleutianAI/AleutianSelect/services/selector/llm"
	"github.com/AleutianAI/AleutianSelect/services/selector/selection"
	"github.com/AleutianAI/AleutianSelect/services/selector/telemetry"
	"github.com/AleutianAI/AleutianSelect/services/selector/tiebreak"
)

func main() {
	port := flag.Int("port", 8080, "Port to listen on")
	debug := flag.Bool("debug", false, "Enable debug mode")
	catalogPath := flag.String("catalog", "", "Catalog YAML file (empty uses the embedded default catalog)")
	watch := flag.Bool("watch", false, "Reload the catalog file automatically when it changes")
	telemetryDir := flag.String("telemetry-dir", os.Getenv("SELECT_TELEMETRY_DIR"), "Directory for the BadgerDB telemetry spool (empty logs records instead)")
	arbiterLimit := flag.Int("arbiter-rpm", 30, "Max arbiter LLM calls per minute")
	epsilon := flag.Float64("ambiguity-epsilon", selection.AmbiguityEpsilon, "Score gap below which the top two candidates count as tied")
	flag.Parse()

	if *debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.InitTracing(ctx, telemetry.DefaultTraceConfig())
	if err != nil {
		slog.Error("Failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer shutdownTracing(context.Background())

	// Load the catalog before serving anything: a selector with no
	// catalog has nothing to select from.
	store := catalog.NewStore(slog.Default())
	if *catalogPath != "" {
		if _, err := store.ReloadFile(ctx, *catalogPath); err != nil {
			slog.Error("Failed to load catalog", slog.String("path", *catalogPath), slog.String("error", err.Error()))
			os.Exit(1)
		}
	} else {
		if _, err := store.Reload(ctx, catalog.DefaultYAML()); err != nil {
			slog.Error("Failed to load embedded catalog", slog.String("error", err.Error()))
			os.Exit(1)
		}
		slog.Info("No catalog file configured, using embedded default catalog")
	}

	emitter, closeSink := setupTelemetry(*telemetryDir)
	defer closeSink()
	defer emitter.Close()

	arbiter := setupArbiter(*arbiterLimit)

	orchestrator := selection.NewOrchestrator(store, arbiter, emitter, slog.Default())
	orchestrator.SetAmbiguityEpsilon(*epsilon)
	handlers := selector.NewHandlers(orchestrator, store, *catalogPath, slog.Default())

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("aleutian-select"))
	if *debug {
		router.Use(gin.Logger())
	}

	v1 := router.Group("/v1")
	selector.RegisterRoutes(v1, handlers)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", *port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		slog.Info("Starting Aleutian Select server",
			slog.String("address", server.Addr),
			slog.Uint64("catalog_generation", store.Generation()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if *watch && *catalogPath != "" {
		path := *catalogPath
		group.Go(func() error {
			return store.Watch(groupCtx, path)
		})
	}
	group.Go(func() error {
		<-groupCtx.Done()
		slog.Info("Shutting down Aleutian Select server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		slog.Error("Server exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// setupTelemetry builds the telemetry emitter: a BadgerDB spool when a
// directory is configured, structured logs otherwise.
func setupTelemetry(dir string) (emitter *telemetry.Emitter, closeSink func()) {
	if dir == "" {
		return telemetry.NewEmitter(telemetry.NewLogSink(slog.Default()), 0, slog.Default()), func() {}
	}

	sink, err := telemetry.OpenBadgerSink(dir, 0, nil)
	if err != nil {
		slog.Warn("Telemetry spool unavailable, falling back to log sink",
			slog.String("dir", dir),
			slog.String("error", err.Error()),
		)
		return telemetry.NewEmitter(telemetry.NewLogSink(slog.Default()), 0, slog.Default()), func() {}
	}
	slog.Info("Telemetry spool opened", slog.String("dir", dir))
	return telemetry.NewEmitter(sink, 0, slog.Default()), func() {
		if err := sink.Close(); err != nil {
			slog.Warn("Failed to close telemetry spool", slog.String("error", err.Error()))
		}
	}
}

// setupArbiter wires the tie-break arbiter from SELECT_ARBITER
// (openai, anthropic, or none). Misconfiguration degrades to
// deterministic tie-breaking rather than refusing to start.
func setupArbiter(limitPerMin int) tiebreak.Arbiter {
	provider := os.Getenv("SELECT_ARBITER")

	var client llm.Client
	var err error
	switch provider {
	case "openai":
		client, err = llm.NewOpenAIClient()
	case "anthropic":
		client, err = llm.NewAnthropicClient()
	case "", "none":
		slog.Info("No tie-break arbiter configured, near-ties resolve deterministically")
		return nil
	default:
		slog.Warn("Unknown SELECT_ARBITER value, tie-breaking disabled", slog.String("provider", provider))
		return nil
	}
	if err != nil {
		slog.Warn("Tie-break arbiter unavailable, tie-breaking disabled",
			slog.String("provider", provider),
			slog.String("error", err.Error()),
		)
		return nil
	}

	slog.Info("Tie-break arbiter configured",
		slog.String("provider", client.Name()),
		slog.String("model", client.Model()),
	)
	return tiebreak.NewLLMArbiter(client, tiebreak.NewRateLimiter(limitPerMin), 0, true, slog.Default())
}
