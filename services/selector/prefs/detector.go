// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package prefs derives a preference weight vector from the request text
// and an optional explicit mode.
//
// This is intentionally a cheap, explainable keyword heuristic over a
// static table, not a learned classifier — determinism and auditability
// are worth more here than coverage. The table is the single source of
// truth: tests and tuning touch the table, never the detection code.
package prefs

import (
	"strings"

	"github.com/AleutianAI/AleutianSelect/services/selector/scoring"
)

// Mode names accepted by Detect. An empty or unrecognized mode falls back
// to ModeBalanced.
const (
	ModeFast     = "fast"
	ModeBalanced = "balanced"
	ModeAccurate = "accurate"
	ModeThorough = "thorough"
)

// KeywordBump is the additive weight applied once per matched keyword
// family, clamped so no weight exceeds 1.0.
const KeywordBump = 0.2

// modeWeights are the base vectors per named mode.
var modeWeights = map[string]scoring.UserPreferences{
	ModeFast:     {Speed: 0.50, Accuracy: 0.15, Cost: 0.15, Complexity: 0.10, Completeness: 0.10},
	ModeBalanced: {Speed: 0.25, Accuracy: 0.25, Cost: 0.20, Complexity: 0.10, Completeness: 0.20},
	ModeAccurate: {Speed: 0.10, Accuracy: 0.50, Cost: 0.10, Complexity: 0.10, Completeness: 0.20},
	ModeThorough: {Speed: 0.05, Accuracy: 0.35, Cost: 0.10, Complexity: 0.10, Completeness: 0.40},
}

// dimension identifies which weight a keyword family bumps.
type dimension int

const (
	dimSpeed dimension = iota
	dimAccuracy
	dimCost
	dimComplexity
	dimCompleteness
)

// keywordFamily groups the trigger words for one preference dimension.
// Matching is whole-word and case-insensitive; each family bumps its
// dimension at most once per request.
type keywordFamily struct {
	dim   dimension
	words []string
}

var keywordFamilies = []keywordFamily{
	{dimSpeed, []string{
		"fast", "quick", "quickly", "rapid", "asap", "urgent", "urgently",
		"immediately", "now", "roughly", "estimate", "ballpark",
	}},
	{dimAccuracy, []string{
		"exact", "exactly", "precise", "precisely", "accurate", "accurately",
		"verify", "verified", "correct", "current", "real-time", "realtime",
	}},
	{dimCost, []string{
		"cheap", "cheaply", "inexpensive", "affordable", "budget", "cost",
		"costs", "free",
	}},
	{dimComplexity, []string{
		"simple", "simply", "easy", "easiest", "straightforward", "basic",
	}},
	{dimCompleteness, []string{
		"all", "every", "everything", "complete", "full", "entire",
		"comprehensive", "thorough", "exhaustive",
	}},
}

// Detect derives preference weights for one request.
//
// Description:
//
//	Starts from the explicit mode's base weights (balanced when the mode
//	is empty or unrecognized), then applies a fixed additive bump per
//	matched keyword family, clamping each weight to 1.0. The output is
//	not normalized — the scorer divides by the weight sum.
//
// Inputs:
//   - requestText: The user's request. May be empty.
//   - explicitMode: One of the Mode* constants, or empty.
//
// Outputs:
//   - scoring.UserPreferences: The derived weights. Always has a
//     positive sum.
func Detect(requestText, explicitMode string) scoring.UserPreferences {
	weights, ok := modeWeights[strings.ToLower(strings.TrimSpace(explicitMode))]
	if !ok {
		weights = modeWeights[ModeBalanced]
	}

	words := tokenize(requestText)
	for _, family := range keywordFamilies {
		if !familyMatches(words, family) {
			continue
		}
		switch family.dim {
		case dimSpeed:
			weights.Speed = clampWeight(weights.Speed + KeywordBump)
		case dimAccuracy:
			weights.Accuracy = clampWeight(weights.Accuracy + KeywordBump)
		case dimCost:
			weights.Cost = clampWeight(weights.Cost + KeywordBump)
		case dimComplexity:
			weights.Complexity = clampWeight(weights.Complexity + KeywordBump)
		case dimCompleteness:
			weights.Completeness = clampWeight(weights.Completeness + KeywordBump)
		}
	}

	return weights
}

// familyMatches reports whether any of the family's words appears in
// the tokenized request.
func familyMatches(words map[string]bool, family keywordFamily) bool {
	if len(words) == 0 {
		return false
	}
	for _, keyword := range family.words {
		if words[keyword] {
			return true
		}
	}
	return false
}

// tokenize lowercases and splits the text into words, trimming common
// punctuation so "exactly," still matches.
func tokenize(text string) map[string]bool {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return nil
	}
	words := make(map[string]bool, len(fields))
	for _, f := range fields {
		words[strings.Trim(f, ".,;:!?\"'()[]")] = true
	}
	return words
}

func clampWeight(w float64) float64 {
	if w > 1.0 {
		return 1.0
	}
	return w
}
