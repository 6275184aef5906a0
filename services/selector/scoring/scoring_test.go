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

import (
	"math"
	"testing"
)

func TestNormalizeTime_Anchors(t *testing.T) {
	if got := NormalizeTime(50); got != 1.0 {
		t.Errorf("NormalizeTime(50) = %g, want 1.0", got)
	}
	if got := NormalizeTime(60000); got != 0.0 {
		t.Errorf("NormalizeTime(60000) = %g, want 0.0", got)
	}
	if got := NormalizeTime(10); got != 1.0 {
		t.Errorf("NormalizeTime(10) = %g, want 1.0", got)
	}
	if got := NormalizeTime(1e9); got != 0.0 {
		t.Errorf("NormalizeTime(1e9) = %g, want 0.0", got)
	}
}

func TestNormalizeTime_LogScale(t *testing.T) {
	// Midpoint on the log scale, not the linear one.
	mid := math.Sqrt(50 * 60000)
	got := NormalizeTime(mid)
	if math.Abs(got-0.5) > 1e-9 {
		t.Errorf("NormalizeTime(geometric mid) = %g, want 0.5", got)
	}
}

func TestNormalizeTime_Monotonic(t *testing.T) {
	prev := NormalizeTime(1)
	for ms := 10.0; ms < 100000; ms *= 1.5 {
		cur := NormalizeTime(ms)
		if cur > prev {
			t.Fatalf("NormalizeTime not monotonically decreasing at %g", ms)
		}
		prev = cur
	}
}

func TestNormalizeCost_Anchors(t *testing.T) {
	tests := []struct {
		cost, want float64
	}{
		{0, 1.0},
		{-3, 1.0},
		{10, 0.0},
		{100, 0.0},
		{5, 0.5},
		{2.5, 0.75},
	}
	for _, tt := range tests {
		if got := NormalizeCost(tt.cost); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("NormalizeCost(%g) = %g, want %g", tt.cost, got, tt.want)
		}
	}
}

func TestNormalizeComplexity(t *testing.T) {
	if got := NormalizeComplexity(0.3); math.Abs(got-0.7) > 1e-9 {
		t.Errorf("NormalizeComplexity(0.3) = %g, want 0.7", got)
	}
	// Out-of-range inputs clamp instead of escaping [0,1].
	if got := NormalizeComplexity(-1); got != 1.0 {
		t.Errorf("NormalizeComplexity(-1) = %g, want 1.0", got)
	}
	if got := NormalizeComplexity(2); got != 0.0 {
		t.Errorf("NormalizeComplexity(2) = %g, want 0.0", got)
	}
}

func TestNormalize_Bounds(t *testing.T) {
	inputs := []float64{-1e9, -1, 0, 0.5, 1, 49, 50, 51, 100, 9.99, 10, 5000, 60000, 1e12}
	for _, v := range inputs {
		for name, f := range map[string]func(float64) float64{
			"time":       NormalizeTime,
			"cost":       NormalizeCost,
			"complexity": NormalizeComplexity,
		} {
			got := f(v)
			if got < 0 || got > 1 || math.IsNaN(got) {
				t.Errorf("Normalize%s(%g) = %g, outside [0,1]", name, v, got)
			}
		}
	}
}

func TestScore_Bounds(t *testing.T) {
	comps := []Components{
		{0, 0, 0, 0, 0},
		{1, 1, 1, 1, 1},
		{0.3, 0.9, 0.1, 0.5, 0.7},
	}
	prefsList := []UserPreferences{
		{Speed: 1},
		{Speed: 0.4, Accuracy: 0.3, Cost: 0.1, Complexity: 0.1, Completeness: 0.1},
		{Speed: 10, Accuracy: 10, Cost: 10, Complexity: 10, Completeness: 10},
	}
	for _, c := range comps {
		for _, p := range prefsList {
			s := Score(c, p)
			if s < 0 || s > 1 {
				t.Errorf("Score(%+v, %+v) = %g, outside [0,1]", c, p, s)
			}
		}
	}
}

func TestScore_ZeroWeightSum(t *testing.T) {
	s := Score(Components{NormTime: 1, Accuracy: 1}, UserPreferences{})
	if s != 0 {
		t.Errorf("Score with zero weight sum = %g, want 0", s)
	}
}

func TestScore_WeightsNeedNotSumToOne(t *testing.T) {
	c := Components{NormTime: 0.8, Accuracy: 0.4, NormCost: 0.6, NormComplexity: 0.5, Completeness: 0.3}
	unit := Score(c, UserPreferences{Speed: 0.2, Accuracy: 0.2, Cost: 0.2, Complexity: 0.2, Completeness: 0.2})
	scaled := Score(c, UserPreferences{Speed: 2, Accuracy: 2, Cost: 2, Complexity: 2, Completeness: 2})
	if math.Abs(unit-scaled) > 1e-12 {
		t.Errorf("score should be invariant to weight scaling: %g vs %g", unit, scaled)
	}
}

func TestScore_SpeedWeightMonotonicity(t *testing.T) {
	fast := Components{NormTime: NormalizeTime(122), Accuracy: 0.6, NormCost: NormalizeCost(0.07), NormComplexity: 0.8, Completeness: 0.5}
	slow := Components{NormTime: NormalizeTime(4000), Accuracy: 1.0, NormCost: NormalizeCost(6.0), NormComplexity: 0.3, Completeness: 1.0}

	// Increasing the speed weight never lets the slower candidate gain
	// rank ground against the faster one.
	prevMargin := math.Inf(-1)
	for w := 0.0; w <= 5.0; w += 0.25 {
		prefs := UserPreferences{Speed: w, Accuracy: 0.3, Cost: 0.2, Complexity: 0.1, Completeness: 0.2}
		margin := Score(fast, prefs) - Score(slow, prefs)
		if margin < prevMargin-1e-9 {
			t.Fatalf("margin decreased when speed weight rose to %g", w)
		}
		prevMargin = margin
	}
}
