// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recordsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "selector",
			Subsystem: "telemetry",
			Name:      "records_total",
			Help:      "Telemetry records by disposition (written, dropped, failed).",
		},
		[]string{"disposition"},
	)
)

// Sink persists one telemetry record.
//
// Implementations must be safe for concurrent use. Errors are reported
// to the caller for logging only; nothing retries a failed write.
type Sink interface {
	Write(ctx context.Context, record *Record) error
}

// =============================================================================
// Log Sink
// =============================================================================

// LogSink writes records as structured log lines. This is the default
// sink for deployments without a spool directory.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink. A nil logger uses slog.Default().
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Write implements Sink.Write.
func (s *LogSink) Write(_ context.Context, record *Record) error {
	s.logger.Info("selection telemetry",
		"selection_id", record.SelectionID,
		"capabilities", record.Capabilities,
		"environment", record.Environment,
		"catalog_generation", record.CatalogGeneration,
		"candidates_total", record.CandidatesTotal,
		"candidates_dropped", record.CandidatesDropped,
		"selected_pattern", record.SelectedPattern,
		"selection_method", record.SelectionMethod,
		"is_ambiguous", record.IsAmbiguous,
		"outcome", record.Outcome,
		"duration_ms", record.DurationMs,
	)
	return nil
}

// =============================================================================
// Emitter
// =============================================================================

// defaultEmitterBuffer is how many records can queue before new ones
// are dropped.
const defaultEmitterBuffer = 256

// Emitter decouples the selection path from sink latency.
//
// Description:
//
//	Emit enqueues the record and returns immediately. A single
//	background goroutine drains the queue into the sink. When the
//	queue is full the record is dropped and counted — the selection
//	path never blocks on telemetry.
//
// Thread Safety: Emit is safe for concurrent use. Close must be called
// exactly once, after all Emit calls have returned.
type Emitter struct {
	sink   Sink
	queue  chan *Record
	done   chan struct{}
	logger *slog.Logger
}

// NewEmitter creates and starts an Emitter draining into sink.
//
// Inputs:
//   - sink: Destination for records. Must not be nil.
//   - buffer: Queue capacity; non-positive uses the default.
//   - logger: For drop and write-failure diagnostics. May be nil.
func NewEmitter(sink Sink, buffer int, logger *slog.Logger) *Emitter {
	if buffer <= 0 {
		buffer = defaultEmitterBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	e := &Emitter{
		sink:   sink,
		queue:  make(chan *Record, buffer),
		done:   make(chan struct{}),
		logger: logger,
	}
	go e.drain()
	return e
}

// Emit enqueues one record without blocking.
func (e *Emitter) Emit(record *Record) {
	if record == nil {
		return
	}
	select {
	case e.queue <- record:
	default:
		recordsEmitted.WithLabelValues("dropped").Inc()
		e.logger.Warn("telemetry queue full, dropping record",
			"selection_id", record.SelectionID)
	}
}

// Close stops the drain goroutine after flushing queued records.
func (e *Emitter) Close() {
	close(e.queue)
	<-e.done
}

func (e *Emitter) drain() {
	defer close(e.done)
	for record := range e.queue {
		// Each write gets its own deadline so one stuck sink call
		// cannot wedge the drain goroutine forever.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := e.sink.Write(ctx, record)
		cancel()
		if err != nil {
			recordsEmitted.WithLabelValues("failed").Inc()
			e.logger.Warn("telemetry write failed",
				"selection_id", record.SelectionID, "error", err)
			continue
		}
		recordsEmitted.WithLabelValues("written").Inc()
	}
}

// encodeRecord is shared by persistent sinks.
func encodeRecord(record *Record) ([]byte, error) {
	encoded, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("telemetry: encoding record: %w", err)
	}
	return encoded, nil
}

func decodeRecord(raw []byte) (*Record, error) {
	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("telemetry: decoding record: %w", err)
	}
	return &record, nil
}
