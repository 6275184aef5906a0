// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package policy applies pattern policy constraints before scoring.
//
// The enforcer runs a fixed, ordered set of pre-scoring checks per
// pattern. Cost and production-safety checks drop the pattern outright;
// background and approval checks only relabel how the pattern would
// execute. Policy never reorders candidates — it gates and annotates,
// and the scorer ranks whatever survives.
package policy

import (
	"fmt"
	"log/slog"

	"github.com/AleutianAI/AleutianSelect/services/selector/catalog"
)

// Execution mode hints attached to surviving patterns.
const (
	ModeImmediate        = "immediate"
	ModeBackground       = "background"
	ModeApprovalRequired = "approval_required"
)

// SLA classes paired with the execution mode hints.
const (
	SLAInteractive = "interactive"
	SLABatch       = "batch"
	SLABackground  = "background"
)

// Violation reasons, in the order the checks run.
const (
	ReasonMaxCostExceeded   = "MaxCostExceeded"
	ReasonNotProductionSafe = "NotProductionSafe"
)

// Violation records one policy check that removed a pattern from
// consideration. Violations are values, not errors: a dropped pattern is
// a normal outcome that the selection result reports, not a failure of
// the selection run.
type Violation struct {
	PatternID string `json:"pattern_id"`
	Reason    string `json:"reason"`
	Detail    string `json:"detail"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s (%s)", v.PatternID, v.Reason, v.Detail)
}

// Decision is the enforcer's verdict for one pattern.
//
// When Allowed is false, Violation holds the reason and the mode fields
// are unset. When Allowed is true, ExecutionModeHint and SLAClass carry
// the relabeling the checks applied (immediate/interactive when nothing
// fired).
type Decision struct {
	Allowed           bool
	Violation         *Violation
	ExecutionModeHint string
	SLAClass          string
}

// Request carries the per-run inputs the checks evaluate against.
type Request struct {
	// Environment is the deployment environment the selection targets,
	// e.g. "production" or "staging". Only "production" activates the
	// production-safety check.
	Environment string

	// EvalContext provides variable bindings (N, pages, ...) for
	// requires_background_if formulas.
	EvalContext map[string]float64
}

// Enforcer runs the ordered policy checks.
//
// Thread Safety: Safe for concurrent use.
type Enforcer struct {
	logger *slog.Logger
}

// NewEnforcer creates an Enforcer. A nil logger uses slog.Default().
func NewEnforcer(logger *slog.Logger) *Enforcer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enforcer{logger: logger}
}

// Enforce applies the policy checks to one pattern.
//
// Description:
//
//	Check order is fixed:
//	  1. MaxCost — estimated cost above the pattern's ceiling drops it.
//	  2. ProductionSafe — unsafe patterns are dropped in production.
//	  3. requires_background_if — a truthy formula relabels the pattern
//	     to background execution. A formula that fails to evaluate also
//	     relabels to background: when we cannot prove a run is small
//	     enough for the interactive path, it is not.
//	  4. requires_approval — relabels to approval_required. Approval
//	     takes precedence over the background hint.
//
// Inputs:
//   - pattern: The catalog pattern under consideration. Must not be nil.
//   - estimatedCost: The run's cost estimate from the pattern's formula.
//   - req: Per-run environment and variable bindings.
//
// Outputs:
//   - Decision: Drop verdict or the relabeled execution mode.
func (e *Enforcer) Enforce(pattern *catalog.PatternProfile, estimatedCost float64, req Request) Decision {
	constraints := pattern.Policy

	if constraints.MaxCost != nil && estimatedCost > *constraints.MaxCost {
		return Decision{
			Allowed: false,
			Violation: &Violation{
				PatternID: pattern.ID(),
				Reason:    ReasonMaxCostExceeded,
				Detail:    fmt.Sprintf("estimated cost %.4f exceeds ceiling %.4f", estimatedCost, *constraints.MaxCost),
			},
		}
	}

	if req.Environment == "production" && !constraints.ProductionSafe {
		return Decision{
			Allowed: false,
			Violation: &Violation{
				PatternID: pattern.ID(),
				Reason:    ReasonNotProductionSafe,
				Detail:    "pattern is not marked production_safe",
			},
		}
	}

	mode := ModeImmediate
	sla := SLAInteractive

	if formula := constraints.RequiresBackgroundIf; formula != nil {
		background, err := formula.EvaluateBool(req.EvalContext)
		if err != nil {
			// Fail safe: an unprovable trigger is treated as fired.
			e.logger.Warn("background trigger evaluation failed, assuming background",
				"pattern", pattern.ID(),
				"formula", formula.Source(),
				"error", err,
			)
			background = true
		}
		if background {
			mode = ModeBackground
			sla = SLABackground
		}
	}

	if constraints.RequiresApproval {
		mode = ModeApprovalRequired
		sla = SLABatch
	}

	return Decision{Allowed: true, ExecutionModeHint: mode, SLAClass: sla}
}
