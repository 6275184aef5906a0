// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry records what each selection run saw and decided.
//
// Emission is fire-and-forget: the selection path hands a record to the
// Emitter and moves on. A slow or failing sink can drop records but can
// never slow down or fail a selection.
package telemetry

import (
	"time"

	"github.com/AleutianAI/AleutianSelect/services/selector/scoring"
)

// CandidateScore is one candidate's predicted profile and final score
// as the run saw it.
type CandidateScore struct {
	PatternID       string  `json:"pattern_id"`
	EstimatedTimeMs float64 `json:"estimated_time_ms"`
	EstimatedCost   float64 `json:"estimated_cost"`
	Score           float64 `json:"score"`
}

// Record captures one completed selection run.
//
// Exactly one Record is emitted per run, successful or not. The request
// text itself is not stored, only its length, so the spool never holds
// user content.
type Record struct {
	SelectionID       string                  `json:"selection_id"`
	Timestamp         time.Time               `json:"timestamp"`
	Capabilities      []string                `json:"capabilities"`
	Environment       string                  `json:"environment"`
	RequestChars      int                     `json:"request_chars"`
	Preferences       scoring.UserPreferences `json:"preferences"`
	CatalogGeneration uint64                  `json:"catalog_generation"`
	CandidatesTotal   int                     `json:"candidates_total"`
	CandidatesDropped int                     `json:"candidates_dropped"`
	Scores            []CandidateScore        `json:"scores,omitempty"`
	SelectedPattern   string                  `json:"selected_pattern,omitempty"`
	SelectionMethod   string                  `json:"selection_method,omitempty"`
	IsAmbiguous       bool                    `json:"is_ambiguous"`
	Outcome           string                  `json:"outcome"` // selected | no_viable_candidate | error
	DurationMs        int64                   `json:"duration_ms"`

	// Predicted profile of the winner, compared against the actuals
	// below once the pattern has run.
	PredictedTimeMs     float64 `json:"predicted_time_ms,omitempty"`
	PredictedCost       float64 `json:"predicted_cost,omitempty"`
	PredictedComplexity float64 `json:"predicted_complexity,omitempty"`

	// Execution actuals, attached after the selected pattern has run
	// (see BadgerSink.CompleteRecord). Nil/empty until then.
	ActualDurationMs *int64   `json:"actual_duration_ms,omitempty"`
	ActualCost       *float64 `json:"actual_cost,omitempty"`
	UserFeedback     string   `json:"user_feedback,omitempty"`
}
