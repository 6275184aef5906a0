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
	"strings"
	"testing"

	"github.com/AleutianAI/AleutianSelect/services/selector/scoring"
)

func candidate(score float64, comps scoring.Components) *ToolCandidate {
	return &ToolCandidate{PatternID: "t/c/p", Score: score, components: comps}
}

func TestDetectAmbiguity_Gap(t *testing.T) {
	base := scoring.Components{NormTime: 0.5, Accuracy: 0.5, NormCost: 0.5, Completeness: 0.5}

	tests := []struct {
		name          string
		top, runnerUp float64
		want          bool
	}{
		{"wide gap", 0.80, 0.60, false},
		{"gap exactly epsilon", 0.80, 0.72, false},
		{"gap just under epsilon", 0.80, 0.7201, true},
		{"identical scores", 0.80, 0.80, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, _ := detectAmbiguity(candidate(tc.top, base), candidate(tc.runnerUp, base), AmbiguityEpsilon)
			if got != tc.want {
				t.Fatalf("ambiguous=%v, want %v", got, tc.want)
			}
		})
	}
}

func TestDetectAmbiguity_NoRunnerUp(t *testing.T) {
	got, question := detectAmbiguity(candidate(0.5, scoring.Components{}), nil, AmbiguityEpsilon)
	if got || question != "" {
		t.Fatalf("single candidate flagged ambiguous: %v %q", got, question)
	}
}

func TestDetectAmbiguity_DominantDimensionQuestion(t *testing.T) {
	tests := []struct {
		name     string
		a, b     scoring.Components
		wantWord string
	}{
		{
			name:     "speed dominates",
			a:        scoring.Components{NormTime: 0.9, Accuracy: 0.5, NormCost: 0.5, Completeness: 0.5},
			b:        scoring.Components{NormTime: 0.2, Accuracy: 0.6, NormCost: 0.5, Completeness: 0.5},
			wantWord: "fast",
		},
		{
			name:     "accuracy dominates",
			a:        scoring.Components{NormTime: 0.5, Accuracy: 1.0, NormCost: 0.5, Completeness: 0.5},
			b:        scoring.Components{NormTime: 0.6, Accuracy: 0.4, NormCost: 0.5, Completeness: 0.5},
			wantWord: "verified",
		},
		{
			name:     "cost dominates",
			a:        scoring.Components{NormTime: 0.5, Accuracy: 0.5, NormCost: 0.9, Completeness: 0.5},
			b:        scoring.Components{NormTime: 0.5, Accuracy: 0.5, NormCost: 0.2, Completeness: 0.6},
			wantWord: "cost",
		},
		{
			name:     "completeness dominates",
			a:        scoring.Components{NormTime: 0.5, Accuracy: 0.5, NormCost: 0.5, Completeness: 0.3},
			b:        scoring.Components{NormTime: 0.5, Accuracy: 0.5, NormCost: 0.5, Completeness: 1.0},
			wantWord: "every item",
		},
		{
			// All diffs equal: precedence picks speed.
			name:     "equal diffs fall to speed",
			a:        scoring.Components{NormTime: 0.6, Accuracy: 0.6, NormCost: 0.6, Completeness: 0.6},
			b:        scoring.Components{NormTime: 0.4, Accuracy: 0.4, NormCost: 0.4, Completeness: 0.4},
			wantWord: "fast",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ambiguous, question := detectAmbiguity(candidate(0.70, tc.a), candidate(0.69, tc.b), AmbiguityEpsilon)
			if !ambiguous {
				t.Fatal("expected ambiguous pair")
			}
			if !strings.Contains(question, tc.wantWord) {
				t.Fatalf("question %q does not mention %q", question, tc.wantWord)
			}
		})
	}
}
