// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"
)

const minimalCatalog = `
tools:
  alpha:
    capabilities:
      query:
        patterns:
          fast:
            time_ms_formula: "100"
            cost_formula: "0.1"
            complexity: 0.2
            preference_match: {accuracy: 0.6, completeness: 0.5}
`

func TestLoad_Minimal(t *testing.T) {
	cfg, err := Load(context.Background(), []byte(minimalCatalog))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tool := cfg.Get("alpha")
	if tool == nil {
		t.Fatal("Get(alpha) = nil")
	}
	if len(tool.Capabilities) != 1 || tool.Capabilities[0].Name != "query" {
		t.Fatalf("unexpected capabilities: %+v", tool.Capabilities)
	}

	patterns := cfg.GetByCapability("query")
	if len(patterns) != 1 {
		t.Fatalf("GetByCapability(query) = %d patterns, want 1", len(patterns))
	}
	p := patterns[0]
	if p.ID() != "alpha/query/fast" {
		t.Errorf("ID = %q", p.ID())
	}

	v, err := p.TimeEstimate.Evaluate(map[string]float64{})
	if err != nil || v != 100 {
		t.Errorf("time estimate = %g err=%v, want 100", v, err)
	}
}

func TestLoad_EmptyAndMissing(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty document", ""},
		{"no tools", "tools: {}"},
		{"tool without capabilities", "tools: {alpha: {capabilities: {}}}"},
		{"capability without patterns", `
tools:
  alpha:
    capabilities:
      query:
        patterns: {}
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(context.Background(), []byte(tt.doc)); err == nil {
				t.Error("Load should fail")
			}
		})
	}
}

func TestLoad_PatternCap(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("tools:\n  alpha:\n    capabilities:\n      query:\n        patterns:\n")
	for _, name := range []string{"p1", "p2", "p3", "p4", "p5", "p6"} {
		sb.WriteString("          " + name + ":\n")
		sb.WriteString("            time_ms_formula: \"100\"\n")
		sb.WriteString("            cost_formula: \"0.1\"\n")
		sb.WriteString("            complexity: 0.2\n")
		sb.WriteString("            preference_match: {accuracy: 0.5, completeness: 0.5}\n")
	}

	_, err := Load(context.Background(), []byte(sb.String()))
	if err == nil {
		t.Fatal("6 patterns should exceed the per-capability cap")
	}
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected *LoadError, got %T", err)
	}
	if le.Capability != "query" {
		t.Errorf("LoadError.Capability = %q, want query", le.Capability)
	}
}

func TestLoad_MalformedFormulaFailsWholeLoad(t *testing.T) {
	doc := `
tools:
  alpha:
    capabilities:
      query:
        patterns:
          good:
            time_ms_formula: "100"
            cost_formula: "0.1"
            complexity: 0.2
            preference_match: {accuracy: 0.5, completeness: 0.5}
          bad:
            time_ms_formula: "100 + bogus_var"
            cost_formula: "0.1"
            complexity: 0.2
            preference_match: {accuracy: 0.5, completeness: 0.5}
`
	_, err := Load(context.Background(), []byte(doc))
	if err == nil {
		t.Fatal("malformed formula should abort the whole load")
	}
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected *LoadError, got %T", err)
	}
	if le.Pattern != "bad" || le.Field != "time_ms_formula" {
		t.Errorf("LoadError location = %s/%s, want bad/time_ms_formula", le.Pattern, le.Field)
	}
}

func TestLoad_RangeValidation(t *testing.T) {
	tests := []struct {
		name  string
		patch string
		field string
	}{
		{"complexity above 1", "complexity: 1.5", "complexity"},
		{"accuracy above 1", "preference_match: {accuracy: 1.2, completeness: 0.5}", "preference_match.accuracy"},
		{"completeness negative", "preference_match: {accuracy: 0.5, completeness: -0.1}", "preference_match.completeness"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := `
tools:
  alpha:
    capabilities:
      query:
        patterns:
          p:
            time_ms_formula: "100"
            cost_formula: "0.1"
            complexity: 0.2
            preference_match: {accuracy: 0.5, completeness: 0.5}
`
			switch tt.field {
			case "complexity":
				doc = strings.Replace(doc, "complexity: 0.2", tt.patch, 1)
			default:
				doc = strings.Replace(doc, "preference_match: {accuracy: 0.5, completeness: 0.5}", tt.patch, 1)
			}
			_, err := Load(context.Background(), []byte(doc))
			if err == nil {
				t.Fatal("Load should fail")
			}
			var le *LoadError
			if !errors.As(err, &le) {
				t.Fatalf("expected *LoadError, got %T", err)
			}
			if le.Field != tt.field {
				t.Errorf("Field = %q, want %q", le.Field, tt.field)
			}
		})
	}
}

func TestLoad_Inheritance(t *testing.T) {
	doc := `
tools:
  alpha:
    defaults:
      time_ms_formula: "1000"
      complexity: 0.9
      policy:
        production_safe: true
        max_cost: 3.0
    capabilities:
      query:
        defaults:
          cost_formula: "0.5"
          complexity: 0.4
        patterns:
          plain:
            preference_match: {accuracy: 0.5, completeness: 0.5}
          override:
            time_ms_formula: "50"
            complexity: 0.1
            policy:
              max_cost: 9.0
            preference_match: {accuracy: 0.9, completeness: 0.9}
`
	cfg, err := Load(context.Background(), []byte(doc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	patterns := cfg.GetByCapability("query")
	if len(patterns) != 2 {
		t.Fatalf("want 2 patterns, got %d", len(patterns))
	}

	byName := map[string]*PatternProfile{}
	for _, p := range patterns {
		byName[p.Name] = p
	}

	plain := byName["plain"]
	// time from tool defaults, cost + complexity from capability defaults.
	if v, _ := plain.TimeEstimate.Evaluate(nil); v != 1000 {
		t.Errorf("plain time = %g, want 1000 (tool default)", v)
	}
	if v, _ := plain.CostEstimate.Evaluate(nil); v != 0.5 {
		t.Errorf("plain cost = %g, want 0.5 (capability default)", v)
	}
	if plain.Complexity != 0.4 {
		t.Errorf("plain complexity = %g, want 0.4 (capability default wins over tool)", plain.Complexity)
	}
	if !plain.Policy.ProductionSafe || plain.Policy.MaxCost == nil || *plain.Policy.MaxCost != 3.0 {
		t.Errorf("plain policy not inherited: %+v", plain.Policy)
	}

	override := byName["override"]
	if v, _ := override.TimeEstimate.Evaluate(nil); v != 50 {
		t.Errorf("override time = %g, want 50", v)
	}
	if override.Complexity != 0.1 {
		t.Errorf("override complexity = %g, want 0.1", override.Complexity)
	}
	if override.Policy.MaxCost == nil || *override.Policy.MaxCost != 9.0 {
		t.Errorf("override max_cost = %v, want 9.0", override.Policy.MaxCost)
	}
	if !override.Policy.ProductionSafe {
		t.Error("override should still inherit production_safe from tool defaults")
	}
}

func TestLoad_PreferenceMatchDoesNotInherit(t *testing.T) {
	doc := `
tools:
  alpha:
    capabilities:
      query:
        patterns:
          p:
            time_ms_formula: "100"
            cost_formula: "0.1"
            complexity: 0.2
`
	_, err := Load(context.Background(), []byte(doc))
	if err == nil {
		t.Fatal("missing preference_match should fail the load")
	}
	var le *LoadError
	if !errors.As(err, &le) || le.Field != "preference_match" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadDefault(t *testing.T) {
	cfg, err := LoadDefault(context.Background())
	if err != nil {
		t.Fatalf("LoadDefault: %v", err)
	}
	if cfg.Get("asset_inventory") == nil {
		t.Error("default catalog should contain asset_inventory")
	}
	if len(cfg.GetByCapability("asset_query")) < 2 {
		t.Error("default catalog should have at least 2 asset_query patterns")
	}
}

func TestLoad_StableOrder(t *testing.T) {
	cfg1, err := Load(context.Background(), DefaultYAML())
	if err != nil {
		t.Fatal(err)
	}
	cfg2, err := Load(context.Background(), DefaultYAML())
	if err != nil {
		t.Fatal(err)
	}

	p1 := cfg1.GetByCapability("asset_query")
	p2 := cfg2.GetByCapability("asset_query")
	if len(p1) != len(p2) {
		t.Fatal("pattern counts differ between loads")
	}
	for i := range p1 {
		if p1[i].ID() != p2[i].ID() {
			t.Errorf("pattern order differs at %d: %s vs %s", i, p1[i].ID(), p2[i].ID())
		}
	}
}
