// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package prefs

import (
	"testing"

	"github.com/AleutianAI/AleutianSelect/services/selector/scoring"
)

func TestDetect_ModeSelection(t *testing.T) {
	tests := []struct {
		name string
		mode string
		want scoring.UserPreferences
	}{
		{"fast", ModeFast, modeWeights[ModeFast]},
		{"balanced", ModeBalanced, modeWeights[ModeBalanced]},
		{"accurate", ModeAccurate, modeWeights[ModeAccurate]},
		{"thorough", ModeThorough, modeWeights[ModeThorough]},
		{"empty falls back to balanced", "", modeWeights[ModeBalanced]},
		{"unknown falls back to balanced", "turbo", modeWeights[ModeBalanced]},
		{"case insensitive", "ACCURATE", modeWeights[ModeAccurate]},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Detect("", tc.mode)
			if got != tc.want {
				t.Fatalf("Detect(%q): got %+v, want %+v", tc.mode, got, tc.want)
			}
		})
	}
}

func TestDetect_KeywordBumps(t *testing.T) {
	base := modeWeights[ModeBalanced]

	tests := []struct {
		name string
		text string
		want scoring.UserPreferences
	}{
		{
			name: "speed keyword",
			text: "give me a fast count of devices",
			want: scoring.UserPreferences{
				Speed: base.Speed + KeywordBump, Accuracy: base.Accuracy,
				Cost: base.Cost, Complexity: base.Complexity, Completeness: base.Completeness,
			},
		},
		{
			name: "accuracy keyword with punctuation",
			text: "verify the state, exactly.",
			want: scoring.UserPreferences{
				Speed: base.Speed, Accuracy: base.Accuracy + KeywordBump,
				Cost: base.Cost, Complexity: base.Complexity, Completeness: base.Completeness,
			},
		},
		{
			name: "one bump per family even with multiple hits",
			text: "quick fast rapid asap",
			want: scoring.UserPreferences{
				Speed: base.Speed + KeywordBump, Accuracy: base.Accuracy,
				Cost: base.Cost, Complexity: base.Complexity, Completeness: base.Completeness,
			},
		},
		{
			name: "multiple families bump independently",
			text: "a quick but complete sweep",
			want: scoring.UserPreferences{
				Speed: base.Speed + KeywordBump, Accuracy: base.Accuracy,
				Cost: base.Cost, Complexity: base.Complexity,
				Completeness: base.Completeness + KeywordBump,
			},
		},
		{
			name: "substring does not match",
			text: "fasten the bracket and recall the hostnames",
			want: base,
		},
		{
			name: "empty text",
			text: "",
			want: base,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Detect(tc.text, ModeBalanced)
			if got != tc.want {
				t.Fatalf("Detect(%q): got %+v, want %+v", tc.text, got, tc.want)
			}
		})
	}
}

func TestDetect_ClampAtOne(t *testing.T) {
	// Fast mode starts at 0.5; five hypothetical bumps could not push past 1.0.
	got := Detect("fast", ModeFast)
	if got.Speed != 0.7 {
		t.Fatalf("expected bumped speed 0.7, got %v", got.Speed)
	}
	// Force the clamp path directly.
	if clampWeight(1.15) != 1.0 {
		t.Fatal("expected clamp to 1.0")
	}
}

func TestDetect_AlwaysPositiveSum(t *testing.T) {
	for _, mode := range []string{ModeFast, ModeBalanced, ModeAccurate, ModeThorough, "", "bogus"} {
		if got := Detect("", mode); got.Sum() <= 0 {
			t.Fatalf("mode %q: weight sum %v not positive", mode, got.Sum())
		}
	}
}
