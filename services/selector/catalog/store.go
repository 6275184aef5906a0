// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
)

// =============================================================================
// Prometheus Metrics
// =============================================================================

var (
	catalogReloadTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "selector",
		Subsystem: "catalog",
		Name:      "reload_total",
		Help:      "Catalog reload attempts by outcome: success, failure",
	}, []string{"outcome"})

	catalogGeneration = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "selector",
		Subsystem: "catalog",
		Name:      "generation",
		Help:      "Generation counter of the installed catalog snapshot",
	})

	catalogPatterns = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "selector",
		Subsystem: "catalog",
		Name:      "patterns",
		Help:      "Pattern count in the installed catalog snapshot",
	})
)

// ErrNoSnapshot is returned by Snapshot before the first successful load.
var ErrNoSnapshot = errors.New("catalog: no snapshot installed")

// Store holds the current catalog snapshot behind an atomic pointer.
//
// Description:
//
//	Readers call Snapshot and traverse the returned immutable config;
//	Reload builds a complete replacement and installs it with a single
//	pointer swap, so in-flight requests see either the old or the new
//	snapshot in full, never a mix. A failed reload keeps the previous
//	snapshot installed.
//
// Thread Safety: Safe for concurrent use. Reload is serialized internally.
type Store struct {
	current    atomic.Pointer[CatalogConfig]
	generation atomic.Uint64

	reloadMu sync.Mutex
	logger   *slog.Logger
}

// NewStore creates an empty Store.
//
// Inputs:
//   - logger: Logger instance. Nil uses slog.Default().
//
// Outputs:
//   - *Store: The store with no snapshot installed.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{logger: logger}
}

// Snapshot returns the current immutable snapshot.
//
// Outputs:
//   - *CatalogConfig: The installed snapshot.
//   - error: ErrNoSnapshot if Reload has never succeeded.
func (s *Store) Snapshot() (*CatalogConfig, error) {
	cfg := s.current.Load()
	if cfg == nil {
		return nil, ErrNoSnapshot
	}
	return cfg, nil
}

// Generation returns the installed snapshot's generation, 0 if none.
func (s *Store) Generation() uint64 {
	return s.generation.Load()
}

// Reload parses data and atomically installs the result.
//
// Description:
//
//	Runs the full fail-fast Load. On success the new snapshot gets the
//	next generation number and replaces the old one in a single atomic
//	swap. On failure the previous snapshot stays installed and the error
//	is returned for the caller to report.
//
// Inputs:
//   - ctx: Context for tracing.
//   - data: Raw catalog YAML.
//
// Outputs:
//   - *CatalogConfig: The installed snapshot on success.
//   - error: *LoadError on failure; the old snapshot remains live.
func (s *Store) Reload(ctx context.Context, data []byte) (*CatalogConfig, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	ctx, span := loaderTracer.Start(ctx, "catalog.Store.Reload")
	defer span.End()

	cfg, err := Load(ctx, data)
	if err != nil {
		catalogReloadTotal.WithLabelValues("failure").Inc()
		s.logger.Error("catalog reload failed, keeping previous snapshot",
			slog.String("error", err.Error()),
			slog.Uint64("generation", s.generation.Load()),
		)
		return nil, err
	}

	cfg.Generation = s.generation.Add(1)
	s.current.Store(cfg)

	catalogReloadTotal.WithLabelValues("success").Inc()
	catalogGeneration.Set(float64(cfg.Generation))
	catalogPatterns.Set(float64(cfg.PatternCount()))
	span.SetAttributes(attribute.Int64("generation", int64(cfg.Generation)))

	s.logger.Info("catalog snapshot installed",
		slog.Uint64("generation", cfg.Generation),
		slog.Int("tools", len(cfg.Tools)),
		slog.Int("patterns", cfg.PatternCount()),
	)

	return cfg, nil
}

// ReloadFile reads path and reloads from its contents.
func (s *Store) ReloadFile(ctx context.Context, path string) (*CatalogConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		catalogReloadTotal.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("catalog: reading %s: %w", path, err)
	}
	return s.Reload(ctx, data)
}

// Watch reloads the catalog whenever the file at path changes.
//
// Description:
//
//	Starts an fsnotify watcher on the file's directory (editors often
//	replace files via rename, which drops a watch on the file itself)
//	and reloads on write/create events for the watched path. Reload
//	failures are logged and leave the previous snapshot live. Watch
//	blocks until ctx is cancelled.
//
// Inputs:
//   - ctx: Cancelling it stops the watcher.
//   - path: The catalog file to watch. Must already load successfully
//     at least once before Watch is useful.
//
// Outputs:
//   - error: Non-nil only if the watcher itself cannot be started.
func (s *Store) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("catalog: starting watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("catalog: watching %s: %w", dir, err)
	}

	target := filepath.Clean(path)
	s.logger.Info("catalog watcher started", slog.String("path", target))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if _, err := s.ReloadFile(ctx, target); err != nil {
				// Already logged by Reload; nothing else to do — the
				// previous snapshot stays live.
				continue
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("catalog watcher error", slog.String("error", werr.Error()))
		}
	}
}
