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

import "math"

// AmbiguityEpsilon is the default score gap below which the top two
// candidates are considered effectively tied.
const AmbiguityEpsilon = 0.08

// clarifyingQuestions maps the dominant differing dimension to a canned
// question the caller can put to the user. The questions are fixed
// strings so downstream systems can match on them.
var clarifyingQuestions = map[string]string{
	"speed":        "Do you need results as fast as possible, even if they are approximate?",
	"accuracy":     "Do you need fully verified, up-to-date results, even if they take longer?",
	"cost":         "Is keeping execution cost low more important than speed or completeness?",
	"completeness": "Do you need every item covered, or is a representative subset acceptable?",
}

// detectAmbiguity compares the top two candidates.
//
// Description:
//
//	The pair is ambiguous when the score gap is strictly below
//	epsilon. The clarifying question targets the dimension
//	where the two candidates differ most; on equal differences the
//	fixed precedence speed > accuracy > cost > completeness picks one,
//	so the question is deterministic.
//
// Outputs:
//   - bool: True when ambiguous.
//   - string: The clarifying question; empty when not ambiguous.
func detectAmbiguity(top, runnerUp *ToolCandidate, epsilon float64) (bool, string) {
	if runnerUp == nil {
		return false, ""
	}
	if top.Score-runnerUp.Score >= epsilon {
		return false, ""
	}

	a, b := top.components, runnerUp.components
	diffs := []struct {
		dimension string
		delta     float64
	}{
		{"speed", math.Abs(a.NormTime - b.NormTime)},
		{"accuracy", math.Abs(a.Accuracy - b.Accuracy)},
		{"cost", math.Abs(a.NormCost - b.NormCost)},
		{"completeness", math.Abs(a.Completeness - b.Completeness)},
	}

	dominant := diffs[0]
	for _, d := range diffs[1:] {
		// Strict > keeps the earlier dimension on ties.
		if d.delta > dominant.delta {
			dominant = d
		}
	}
	return true, clarifyingQuestions[dominant.dimension]
}
