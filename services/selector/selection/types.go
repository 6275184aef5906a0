// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package selection runs the full tool selection pipeline: enumerate
// catalog patterns for the requested capabilities, enforce policy,
// score, detect ambiguity, tie-break, and emit telemetry.
package selection

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/AleutianSelect/services/selector/policy"
	"github.com/AleutianAI/AleutianSelect/services/selector/scoring"
)

// Selection methods reported in results and telemetry.
const (
	MethodDeterministic = "deterministic"
	MethodLLMTiebreaker = "llm_tiebreaker"
)

// MaxAlternatives caps how many runners-up a result carries.
const MaxAlternatives = 4

// Request is one selection run's input.
type Request struct {
	// Capabilities names what the caller wants done, e.g.
	// ["asset_query"]. Patterns from every listed capability compete
	// in one ranked pool.
	Capabilities []string `json:"capabilities"`

	// RequestText is the user's natural-language request. Drives
	// preference detection and the tie-break prompt.
	RequestText string `json:"request_text"`

	// Mode is an optional explicit preference mode
	// (fast/balanced/accurate/thorough).
	Mode string `json:"mode,omitempty"`

	// Environment is the deployment environment the selection targets.
	Environment string `json:"environment,omitempty"`

	// Variables binds the catalog formula variables (N, pages, ...).
	Variables map[string]float64 `json:"variables,omitempty"`
}

// ToolCandidate is one scored, policy-checked pattern.
type ToolCandidate struct {
	PatternID         string   `json:"pattern_id"`
	Tool              string   `json:"tool"`
	Capability        string   `json:"capability"`
	Pattern           string   `json:"pattern"`
	EstimatedTimeMs   float64  `json:"estimated_time_ms"`
	EstimatedCost     float64  `json:"estimated_cost"`
	Complexity        float64  `json:"complexity"`
	ExecutionModeHint string   `json:"execution_mode_hint"`
	SLAClass          string   `json:"sla_class"`
	Score             float64  `json:"score"`
	Limitations       []string `json:"limitations,omitempty"`

	// components feed ambiguity analysis and the tie-break prompt.
	components scoring.Components
}

// Components returns the normalized score components the candidate was
// ranked on.
func (c *ToolCandidate) Components() scoring.Components { return c.components }

// Result is the single outcome of one selection run.
type Result struct {
	SelectionID        string             `json:"selection_id"`
	Selected           *ToolCandidate     `json:"selected"`
	Alternatives       []*ToolCandidate   `json:"alternatives,omitempty"`
	SelectionMethod    string             `json:"selection_method"`
	Justification      string             `json:"justification,omitempty"`
	IsAmbiguous        bool               `json:"is_ambiguous"`
	ClarifyingQuestion string             `json:"clarifying_question,omitempty"`
	Violations         []policy.Violation `json:"violations,omitempty"`
	CatalogGeneration  uint64             `json:"catalog_generation"`
}

// NoViableCandidateError is returned when every pattern across the
// requested capabilities was dropped (or none existed). It is fatal
// for the run: there is nothing sensible to select.
type NoViableCandidateError struct {
	Capabilities []string
	Violations   []policy.Violation
}

func (e *NoViableCandidateError) Error() string {
	names := strings.Join(e.Capabilities, ", ")
	if len(e.Violations) == 0 {
		return fmt.Sprintf("selection: no patterns available for capabilities [%s]", names)
	}
	reasons := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		reasons = append(reasons, v.String())
	}
	return fmt.Sprintf("selection: no viable candidate for capabilities [%s]: %s",
		names, strings.Join(reasons, "; "))
}
