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
	"log/slog"
	"sort"

	"github.com/AleutianAI/AleutianSelect/services/selector/catalog"
	"github.com/AleutianAI/AleutianSelect/services/selector/policy"
	"github.com/AleutianAI/AleutianSelect/services/selector/scoring"
)

// enumerationOutcome is everything candidate building produced for one
// run: the scored survivors (descending score, catalog order on exact
// ties), the policy drops, and how many patterns were skipped as
// unevaluable.
type enumerationOutcome struct {
	candidates []*ToolCandidate
	violations []policy.Violation
	skipped    int
	total      int
}

// enumerator turns catalog patterns into scored candidates.
type enumerator struct {
	enforcer *policy.Enforcer
	logger   *slog.Logger
}

// enumerate builds, policy-checks, and scores every pattern the
// snapshot offers for the requested capabilities.
//
// Description:
//
//	Patterns from all requested capabilities are pooled in request
//	order (catalog order within a capability, a capability listed
//	twice counts once), so they compete in a single ranking. A
//	pattern whose time or cost formula cannot be evaluated against
//	the run's variables is skipped with a warning; one bad pattern
//	never sinks the run. Policy drops are collected as violations.
//	Survivors are scored and sorted descending; candidates with equal
//	scores keep pool order, so ranking is deterministic for
//	identical inputs.
func (e *enumerator) enumerate(snapshot *catalog.CatalogConfig, req Request, prefs scoring.UserPreferences) enumerationOutcome {
	var patterns []*catalog.PatternProfile
	seen := make(map[string]bool, len(req.Capabilities))
	for _, capability := range req.Capabilities {
		if seen[capability] {
			continue
		}
		seen[capability] = true
		patterns = append(patterns, snapshot.GetByCapability(capability)...)
	}
	outcome := enumerationOutcome{total: len(patterns)}

	policyReq := policy.Request{
		Environment: req.Environment,
		EvalContext: req.Variables,
	}

	for _, pattern := range patterns {
		timeMs, err := pattern.TimeEstimate.Evaluate(req.Variables)
		if err != nil {
			e.skip(pattern, "time", err)
			outcome.skipped++
			continue
		}
		cost, err := pattern.CostEstimate.Evaluate(req.Variables)
		if err != nil {
			e.skip(pattern, "cost", err)
			outcome.skipped++
			continue
		}

		decision := e.enforcer.Enforce(pattern, cost, policyReq)
		if !decision.Allowed {
			outcome.violations = append(outcome.violations, *decision.Violation)
			continue
		}

		components := scoring.Components{
			NormTime:       scoring.NormalizeTime(timeMs),
			Accuracy:       pattern.Preference.Accuracy,
			NormCost:       scoring.NormalizeCost(cost),
			NormComplexity: scoring.NormalizeComplexity(pattern.Complexity),
			Completeness:   pattern.Preference.Completeness,
		}

		outcome.candidates = append(outcome.candidates, &ToolCandidate{
			PatternID:         pattern.ID(),
			Tool:              pattern.Tool,
			Capability:        pattern.Capability,
			Pattern:           pattern.Name,
			EstimatedTimeMs:   timeMs,
			EstimatedCost:     cost,
			Complexity:        pattern.Complexity,
			ExecutionModeHint: decision.ExecutionModeHint,
			SLAClass:          decision.SLAClass,
			Score:             scoring.Score(components, prefs),
			Limitations:       pattern.Limitations,
			components:        components,
		})
	}

	sort.SliceStable(outcome.candidates, func(i, j int) bool {
		return outcome.candidates[i].Score > outcome.candidates[j].Score
	})
	return outcome
}

func (e *enumerator) skip(pattern *catalog.PatternProfile, formula string, err error) {
	candidatesSkipped.Inc()
	e.logger.Warn("skipping unevaluable pattern",
		"pattern", pattern.ID(),
		"formula", formula,
		"error", err,
	)
}
