// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package selector exposes the selection pipeline over HTTP.
package selector

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianSelect/services/selector/catalog"
	"github.com/AleutianAI/AleutianSelect/services/selector/selection"
)

// ErrorResponse is the uniform error body for all endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// CatalogSummary describes the installed snapshot without dumping the
// full pattern definitions.
type CatalogSummary struct {
	Generation   uint64              `json:"generation"`
	PatternCount int                 `json:"pattern_count"`
	Tools        map[string][]string `json:"tools"` // tool -> capabilities
}

// ReloadResponse reports the outcome of a catalog reload.
type ReloadResponse struct {
	Generation   uint64 `json:"generation"`
	PatternCount int    `json:"pattern_count"`
}

// Handlers holds the HTTP handlers and their dependencies.
//
// Thread Safety: Safe for concurrent use.
type Handlers struct {
	orchestrator *selection.Orchestrator
	store        *catalog.Store
	catalogPath  string
	logger       *slog.Logger
}

// NewHandlers creates the handler set.
//
// Inputs:
//   - orchestrator: The selection pipeline. Must not be nil.
//   - store: The catalog store reloads and summaries read from. Must
//     not be nil.
//   - catalogPath: File the reload endpoint re-reads. Empty disables
//     file reloads (the endpoint then returns 409).
func NewHandlers(orchestrator *selection.Orchestrator, store *catalog.Store, catalogPath string, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		orchestrator: orchestrator,
		store:        store,
		catalogPath:  catalogPath,
		logger:       logger,
	}
}

// HandleRun handles POST /v1/select/run.
//
// Response:
//
//	200 OK: selection.Result
//	400 Bad Request: Malformed body or missing capability
//	422 Unprocessable Entity: Every pattern was dropped by policy
//	503 Service Unavailable: No catalog snapshot installed
func (h *Handlers) HandleRun(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleRun")

	var req selection.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body: " + err.Error(),
			Code:  "INVALID_BODY",
		})
		return
	}

	result, err := h.orchestrator.Select(c.Request.Context(), req)
	if err != nil {
		var noViable *selection.NoViableCandidateError
		switch {
		case errors.Is(err, selection.ErrEmptyCapability):
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: err.Error(),
				Code:  "MISSING_CAPABILITY",
			})
		case errors.Is(err, catalog.ErrNoSnapshot):
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{
				Error: err.Error(),
				Code:  "NO_CATALOG",
			})
		case errors.As(err, &noViable):
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":        noViable.Error(),
				"code":         "NO_VIABLE_CANDIDATE",
				"capabilities": noViable.Capabilities,
				"violations":   noViable.Violations,
			})
		default:
			logger.Error("selection failed", "error", err)
			c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error: "selection failed",
				Code:  "INTERNAL",
			})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// HandleReloadCatalog handles POST /v1/select/catalog/reload.
//
// Description:
//
//	Re-reads the configured catalog file and atomically installs the
//	new snapshot. A failed reload leaves the previous snapshot serving
//	and returns the validation error.
func (h *Handlers) HandleReloadCatalog(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleReloadCatalog")

	if h.catalogPath == "" {
		c.JSON(http.StatusConflict, ErrorResponse{
			Error: "no catalog file configured; reload is disabled",
			Code:  "RELOAD_DISABLED",
		})
		return
	}

	cfg, err := h.store.ReloadFile(c.Request.Context(), h.catalogPath)
	if err != nil {
		logger.Warn("catalog reload rejected", "path", h.catalogPath, "error", err)
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error: err.Error(),
			Code:  "CATALOG_INVALID",
		})
		return
	}

	c.JSON(http.StatusOK, ReloadResponse{
		Generation:   cfg.Generation,
		PatternCount: cfg.PatternCount(),
	})
}

// HandleCatalog handles GET /v1/select/catalog.
func (h *Handlers) HandleCatalog(c *gin.Context) {
	snapshot, err := h.store.Snapshot()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: err.Error(),
			Code:  "NO_CATALOG",
		})
		return
	}

	summary := CatalogSummary{
		Generation:   snapshot.Generation,
		PatternCount: snapshot.PatternCount(),
		Tools:        make(map[string][]string),
	}
	for _, tool := range snapshot.GetAll() {
		capabilities := make([]string, 0, len(tool.Capabilities))
		for _, capability := range tool.Capabilities {
			capabilities = append(capabilities, capability.Name)
		}
		summary.Tools[tool.Name] = capabilities
	}
	c.JSON(http.StatusOK, summary)
}

// HandleHealth handles GET /v1/select/health. Reports the installed
// catalog generation and whether an LLM tie-break arbiter is wired;
// without one, near-ties resolve to the scoring winner.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":             "ok",
		"catalog_generation": h.store.Generation(),
		"arbiter_available":  h.orchestrator.HasArbiter(),
	})
}

// HandleReady handles GET /v1/select/ready. Ready means a catalog
// snapshot is installed.
func (h *Handlers) HandleReady(c *gin.Context) {
	if _, err := h.store.Snapshot(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "no catalog loaded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// getOrCreateRequestID returns the inbound X-Request-ID or mints one.
func getOrCreateRequestID(c *gin.Context) string {
	if id := c.GetHeader("X-Request-ID"); id != "" {
		return id
	}
	return uuid.New().String()
}
