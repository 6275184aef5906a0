// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scoring holds the pure math of candidate ranking: feature
// normalization onto a comparable [0,1] better-is-higher scale, the
// preference weight vector, and the weighted score.
//
// Every function here is total (no errors) and deterministic; the hot
// selection path calls them per candidate with no allocation.
package scoring

import "math"

// Normalization anchors. Latency is perceived logarithmically, so time
// uses a log scale between the "feels instant" floor and the "give up"
// ceiling; willingness to pay is roughly linear within a bounded
// practical range, so cost is linear.
const (
	// TimeFloorMs and below normalize to 1.0.
	TimeFloorMs = 50.0

	// TimeCeilingMs and above normalize to 0.0.
	TimeCeilingMs = 60000.0

	// CostCeiling and above normalize to 0.0; zero or negative cost is 1.0.
	CostCeiling = 10.0
)

var logTimeRange = math.Log(TimeCeilingMs) - math.Log(TimeFloorMs)

// NormalizeTime maps estimated milliseconds onto [0,1], higher is better.
//
//	ms <= 50     -> 1.0
//	ms >= 60000  -> 0.0
//	otherwise    -> 1 - (ln(ms)-ln(50)) / (ln(60000)-ln(50))
func NormalizeTime(ms float64) float64 {
	if ms <= TimeFloorMs {
		return 1.0
	}
	if ms >= TimeCeilingMs {
		return 0.0
	}
	return clamp01(1.0 - (math.Log(ms)-math.Log(TimeFloorMs))/logTimeRange)
}

// NormalizeCost maps estimated cost onto [0,1] linearly, higher is better.
//
//	cost <= 0   -> 1.0
//	cost >= 10  -> 0.0
//	otherwise   -> 1 - cost/10
func NormalizeCost(cost float64) float64 {
	if cost <= 0 {
		return 1.0
	}
	if cost >= CostCeiling {
		return 0.0
	}
	return clamp01(1.0 - cost/CostCeiling)
}

// NormalizeComplexity inverts a [0,1] complexity (lower complexity is
// better). Out-of-range inputs are clamped rather than rejected — the
// catalog loader already guarantees the range for real patterns.
func NormalizeComplexity(c float64) float64 {
	return clamp01(1.0 - c)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
