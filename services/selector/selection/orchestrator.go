// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package selection

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/AleutianSelect/services/selector/catalog"
	"github.com/AleutianAI/AleutianSelect/services/selector/policy"
	"github.com/AleutianAI/AleutianSelect/services/selector/prefs"
	"github.com/AleutianAI/AleutianSelect/services/selector/telemetry"
	"github.com/AleutianAI/AleutianSelect/services/selector/tiebreak"
)

// ErrEmptyCapability is returned when the request names no capabilities.
var ErrEmptyCapability = errors.New("selection: at least one capability is required")

// Orchestrator drives one selection run end to end.
//
// Description:
//
//	Select is a fixed pipeline: snapshot → preferences → enumerate →
//	ambiguity → tie-break → result. Every run, including failed ones,
//	emits exactly one telemetry record. Tie-breaking is best-effort:
//	cancellation or arbiter failure during it still yields the
//	deterministic scoring winner.
//
// Thread Safety: Safe for concurrent use.
type Orchestrator struct {
	store   *catalog.Store
	arbiter tiebreak.Arbiter
	emitter *telemetry.Emitter
	enum    *enumerator
	epsilon float64
	logger  *slog.Logger
}

// NewOrchestrator creates an Orchestrator.
//
// Inputs:
//   - store: Catalog snapshot source. Must not be nil.
//   - arbiter: Tie-break arbiter. May be nil; near-ties then resolve to
//     the scoring winner without an LLM call.
//   - emitter: Telemetry destination. May be nil; runs then emit nothing.
//   - logger: For run diagnostics. May be nil.
func NewOrchestrator(store *catalog.Store, arbiter tiebreak.Arbiter, emitter *telemetry.Emitter, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:   store,
		arbiter: arbiter,
		emitter: emitter,
		enum:    &enumerator{enforcer: policy.NewEnforcer(logger), logger: logger},
		epsilon: AmbiguityEpsilon,
		logger:  logger,
	}
}

// SetAmbiguityEpsilon overrides the score gap below which the top two
// candidates count as tied. Non-positive values are ignored. Call
// before the first Select; the field is not synchronized.
func (o *Orchestrator) SetAmbiguityEpsilon(epsilon float64) {
	if epsilon > 0 {
		o.epsilon = epsilon
	}
}

// HasArbiter reports whether an LLM tie-break arbiter is configured.
func (o *Orchestrator) HasArbiter() bool {
	return o.arbiter != nil
}

// Select runs the selection pipeline for one request.
//
// Outputs:
//   - *Result: The selection outcome. Nil only when error is non-nil.
//   - error: ErrEmptyCapability, catalog.ErrNoSnapshot, or a
//     *NoViableCandidateError. Ambiguity is not an error.
func (o *Orchestrator) Select(ctx context.Context, req Request) (*Result, error) {
	ctx, span := otel.Tracer("aleutian.selector.selection").Start(ctx, "selection.Orchestrator.Select",
		oteltrace.WithAttributes(
			attribute.StringSlice("capabilities", req.Capabilities),
			attribute.String("environment", req.Environment),
		),
	)
	defer span.End()

	start := time.Now()
	selectionID := uuid.New().String()
	span.SetAttributes(attribute.String("selection_id", selectionID))

	record := &telemetry.Record{
		SelectionID:  selectionID,
		Timestamp:    start.UTC(),
		Capabilities: req.Capabilities,
		Environment:  req.Environment,
		RequestChars: len(req.RequestText),
	}
	defer func() {
		record.DurationMs = time.Since(start).Milliseconds()
		selectionLatency.Observe(time.Since(start).Seconds())
		if o.emitter != nil {
			o.emitter.Emit(record)
		}
	}()

	if len(req.Capabilities) == 0 {
		record.Outcome = "error"
		selectionRuns.WithLabelValues("error").Inc()
		span.SetStatus(codes.Error, ErrEmptyCapability.Error())
		return nil, ErrEmptyCapability
	}

	snapshot, err := o.store.Snapshot()
	if err != nil {
		record.Outcome = "error"
		selectionRuns.WithLabelValues("error").Inc()
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	record.CatalogGeneration = snapshot.Generation

	preferences := prefs.Detect(req.RequestText, req.Mode)
	record.Preferences = preferences
	outcome := o.enum.enumerate(snapshot, req, preferences)
	record.CandidatesTotal = outcome.total
	record.CandidatesDropped = len(outcome.violations) + outcome.skipped
	for _, c := range outcome.candidates {
		record.Scores = append(record.Scores, telemetry.CandidateScore{
			PatternID:       c.PatternID,
			EstimatedTimeMs: c.EstimatedTimeMs,
			EstimatedCost:   c.EstimatedCost,
			Score:           c.Score,
		})
	}

	if len(outcome.candidates) == 0 {
		record.Outcome = "no_viable_candidate"
		selectionRuns.WithLabelValues("no_viable_candidate").Inc()
		err := &NoViableCandidateError{Capabilities: req.Capabilities, Violations: outcome.violations}
		span.SetStatus(codes.Error, err.Error())
		o.logger.Warn("no viable candidate",
			"selection_id", selectionID,
			"capabilities", req.Capabilities,
			"patterns_considered", outcome.total,
			"violations", len(outcome.violations),
		)
		return nil, err
	}

	selected := outcome.candidates[0]
	var runnerUp *ToolCandidate
	if len(outcome.candidates) > 1 {
		runnerUp = outcome.candidates[1]
	}

	method := MethodDeterministic
	justification := ""
	ambiguous, question := detectAmbiguity(selected, runnerUp, o.epsilon)
	if ambiguous {
		selectionAmbiguous.Inc()
		span.SetAttributes(attribute.Bool("ambiguous", true))
		if o.arbiter != nil {
			decision := o.arbiter.Break(ctx, req.RequestText,
				candidateCard(selected), candidateCard(runnerUp))
			justification = decision.Justification
			if decision.UsedLLM {
				method = MethodLLMTiebreaker
				if decision.Choice == "B" {
					selected, runnerUp = runnerUp, selected
				}
			}
		}
	}

	result := &Result{
		SelectionID:        selectionID,
		Selected:           selected,
		Alternatives:       alternatives(outcome.candidates, selected),
		SelectionMethod:    method,
		Justification:      justification,
		IsAmbiguous:        ambiguous,
		ClarifyingQuestion: question,
		Violations:         outcome.violations,
		CatalogGeneration:  snapshot.Generation,
	}

	record.Outcome = "selected"
	record.SelectedPattern = selected.PatternID
	record.SelectionMethod = method
	record.IsAmbiguous = ambiguous
	record.PredictedTimeMs = selected.EstimatedTimeMs
	record.PredictedCost = selected.EstimatedCost
	record.PredictedComplexity = selected.Complexity
	selectionRuns.WithLabelValues("selected").Inc()
	span.SetAttributes(
		attribute.String("selected_pattern", selected.PatternID),
		attribute.String("selection_method", method),
	)

	o.logger.Info("selection complete",
		"selection_id", selectionID,
		"capabilities", req.Capabilities,
		"selected", selected.PatternID,
		"score", selected.Score,
		"method", method,
		"ambiguous", ambiguous,
	)
	return result, nil
}

// alternatives returns the non-selected candidates in rank order,
// capped at MaxAlternatives.
func alternatives(ranked []*ToolCandidate, selected *ToolCandidate) []*ToolCandidate {
	var alts []*ToolCandidate
	for _, c := range ranked {
		if c == selected {
			continue
		}
		alts = append(alts, c)
		if len(alts) == MaxAlternatives {
			break
		}
	}
	return alts
}

func candidateCard(c *ToolCandidate) tiebreak.CandidateCard {
	return tiebreak.CandidateCard{
		ID:              c.PatternID,
		EstimatedTimeMs: c.EstimatedTimeMs,
		EstimatedCost:   c.EstimatedCost,
		Accuracy:        c.components.Accuracy,
		Completeness:    c.components.Completeness,
		Score:           c.Score,
		Limitations:     c.Limitations,
	}
}
