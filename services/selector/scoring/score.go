// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scoring

// UserPreferences is the per-request weight vector over the five scoring
// dimensions. Weights are non-negative and need not sum to 1 — Score
// normalizes by the weight sum. Derived fresh for every request.
type UserPreferences struct {
	Speed        float64 `json:"speed"`
	Accuracy     float64 `json:"accuracy"`
	Cost         float64 `json:"cost"`
	Complexity   float64 `json:"complexity"`
	Completeness float64 `json:"completeness"`
}

// Sum returns the total weight.
func (p UserPreferences) Sum() float64 {
	return p.Speed + p.Accuracy + p.Cost + p.Complexity + p.Completeness
}

// Components are a candidate's five scoring inputs, each already on the
// [0,1] better-is-higher scale.
type Components struct {
	// NormTime is NormalizeTime of the estimated milliseconds.
	NormTime float64 `json:"norm_time"`

	// Accuracy is the pattern's preference-match accuracy.
	Accuracy float64 `json:"accuracy"`

	// NormCost is NormalizeCost of the estimated cost.
	NormCost float64 `json:"norm_cost"`

	// NormComplexity is NormalizeComplexity of the pattern complexity.
	NormComplexity float64 `json:"norm_complexity"`

	// Completeness is the pattern's preference-match completeness.
	Completeness float64 `json:"completeness"`
}

// Score computes the preference-weighted score of one candidate.
//
// Description:
//
//	score = (w_speed·norm_time + w_accuracy·accuracy + w_cost·norm_cost
//	         + w_complexity·norm_complexity
//	         + w_completeness·completeness) / Σw
//
//	All components are in [0,1], so the score is in [0,1]. A zero weight
//	sum is degenerate but total: every candidate scores 0 rather than
//	faulting on the division.
func Score(c Components, prefs UserPreferences) float64 {
	sum := prefs.Sum()
	if sum == 0 {
		return 0
	}
	weighted := prefs.Speed*c.NormTime +
		prefs.Accuracy*c.Accuracy +
		prefs.Cost*c.NormCost +
		prefs.Complexity*c.NormComplexity +
		prefs.Completeness*c.Completeness
	return clamp01(weighted / sum)
}
