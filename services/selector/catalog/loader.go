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
	"fmt"
	"log/slog"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianSelect/services/selector/expr"
)

// MaxYAMLFileSize bounds catalog documents to keep load time predictable.
const MaxYAMLFileSize = 4 * 1024 * 1024

var loaderTracer = otel.Tracer("aleutian.selector.catalog")

// =============================================================================
// Raw YAML schema
// =============================================================================

// rawCatalog mirrors the loosely-typed source document. Tools, capabilities
// and patterns are keyed by name; defaults participate in three-level
// inheritance for formulas, complexity, and policy fields only.
type rawCatalog struct {
	Tools map[string]rawTool `yaml:"tools"`
}

type rawTool struct {
	Description  string                   `yaml:"description"`
	Defaults     rawInheritable           `yaml:"defaults"`
	Capabilities map[string]rawCapability `yaml:"capabilities"`
}

type rawCapability struct {
	Defaults rawInheritable        `yaml:"defaults"`
	Patterns map[string]rawPattern `yaml:"patterns"`
}

// rawInheritable holds the fields that inherit tool → capability → pattern.
type rawInheritable struct {
	TimeMsFormula string    `yaml:"time_ms_formula"`
	CostFormula   string    `yaml:"cost_formula"`
	Complexity    *float64  `yaml:"complexity"`
	Policy        rawPolicy `yaml:"policy"`
}

type rawPattern struct {
	TimeMsFormula   string                 `yaml:"time_ms_formula"`
	CostFormula     string                 `yaml:"cost_formula"`
	Complexity      *float64               `yaml:"complexity"`
	Policy          rawPolicy              `yaml:"policy"`
	PreferenceMatch *PreferenceMatchScores `yaml:"preference_match"`
	Limitations     []string               `yaml:"limitations"`
	RequiredInputs  []string               `yaml:"required_inputs"`
	ExpectedOutputs []string               `yaml:"expected_outputs"`
	Examples        []string               `yaml:"examples"`
}

type rawPolicy struct {
	MaxCost              *float64 `yaml:"max_cost"`
	RequiresApproval     *bool    `yaml:"requires_approval"`
	ProductionSafe       *bool    `yaml:"production_safe"`
	RequiresBackgroundIf *string  `yaml:"requires_background_if"`
}

// merge overlays child policy fields onto the receiver, child winning.
func (p rawPolicy) merge(child rawPolicy) rawPolicy {
	out := p
	if child.MaxCost != nil {
		out.MaxCost = child.MaxCost
	}
	if child.RequiresApproval != nil {
		out.RequiresApproval = child.RequiresApproval
	}
	if child.ProductionSafe != nil {
		out.ProductionSafe = child.ProductionSafe
	}
	if child.RequiresBackgroundIf != nil {
		out.RequiresBackgroundIf = child.RequiresBackgroundIf
	}
	return out
}

// =============================================================================
// Load
// =============================================================================

// Load parses and validates a catalog document.
//
// Description:
//
//	Parses the tool → capability → pattern structure, applies three-level
//	inheritance (pattern over capability defaults over tool defaults; only
//	time/cost formulas, complexity, and policy fields inherit), builds
//	every formula eagerly, validates score ranges, and enforces the
//	pattern-per-capability cap. A single malformed entry aborts the whole
//	load with the precise tool/capability/pattern location.
//
// Inputs:
//   - ctx: Context for tracing. Must not be nil.
//   - data: Raw YAML bytes.
//
// Outputs:
//   - *CatalogConfig: The validated immutable snapshot (Generation 0).
//   - error: *LoadError on any failure.
func Load(ctx context.Context, data []byte) (*CatalogConfig, error) {
	_, span := loaderTracer.Start(ctx, "catalog.Load")
	defer span.End()

	if len(data) == 0 {
		return nil, &LoadError{Err: errors.New("empty YAML data")}
	}
	if len(data) > MaxYAMLFileSize {
		return nil, &LoadError{Err: fmt.Errorf("YAML data exceeds maximum size (%d > %d)", len(data), MaxYAMLFileSize)}
	}

	var raw rawCatalog
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &LoadError{Err: fmt.Errorf("parsing YAML: %w", err)}
	}
	if len(raw.Tools) == 0 {
		return nil, &LoadError{Err: errors.New("catalog defines no tools")}
	}

	cfg := &CatalogConfig{
		byName:       make(map[string]*ToolProfile, len(raw.Tools)),
		byCapability: make(map[string][]*PatternProfile),
	}

	// Sorted iteration gives every snapshot the same stable order, which
	// the scorer relies on for deterministic tie-breaking.
	toolNames := sortedKeys(raw.Tools)
	for _, toolName := range toolNames {
		rawT := raw.Tools[toolName]
		tool, err := buildTool(toolName, rawT)
		if err != nil {
			return nil, err
		}
		cfg.Tools = append(cfg.Tools, tool)
		cfg.byName[toolName] = tool
		for _, capability := range tool.Capabilities {
			cfg.byCapability[capability.Name] = append(cfg.byCapability[capability.Name], capability.Patterns...)
		}
	}

	span.SetAttributes(
		attribute.Int("tools", len(cfg.Tools)),
		attribute.Int("patterns", cfg.PatternCount()),
	)
	slog.Info("catalog loaded",
		slog.Int("tools", len(cfg.Tools)),
		slog.Int("patterns", cfg.PatternCount()),
	)

	return cfg, nil
}

// buildTool resolves one tool and its capabilities.
func buildTool(toolName string, rawT rawTool) (*ToolProfile, error) {
	if len(rawT.Capabilities) == 0 {
		return nil, &LoadError{Tool: toolName, Err: errors.New("tool defines no capabilities")}
	}

	tool := &ToolProfile{Name: toolName, Description: rawT.Description}

	for _, capName := range sortedKeys(rawT.Capabilities) {
		rawC := rawT.Capabilities[capName]
		if len(rawC.Patterns) == 0 {
			return nil, &LoadError{Tool: toolName, Capability: capName, Err: errors.New("capability defines no patterns")}
		}
		if len(rawC.Patterns) > MaxPatternsPerCapability {
			return nil, &LoadError{Tool: toolName, Capability: capName,
				Err: fmt.Errorf("capability has %d patterns, cap is %d", len(rawC.Patterns), MaxPatternsPerCapability)}
		}

		capability := &CapabilityProfile{Name: capName, Tool: toolName}
		for _, patName := range sortedKeys(rawC.Patterns) {
			pattern, err := buildPattern(toolName, capName, patName,
				rawT.Defaults, rawC.Defaults, rawC.Patterns[patName])
			if err != nil {
				return nil, err
			}
			capability.Patterns = append(capability.Patterns, pattern)
		}
		tool.Capabilities = append(tool.Capabilities, capability)
	}

	return tool, nil
}

// buildPattern applies inheritance, builds formulas, and validates ranges
// for one pattern.
func buildPattern(
	toolName, capName, patName string,
	toolDefaults, capDefaults rawInheritable,
	raw rawPattern,
) (*PatternProfile, error) {
	loc := func(field string, err error) *LoadError {
		return &LoadError{Tool: toolName, Capability: capName, Pattern: patName, Field: field, Err: err}
	}

	// Three-level inheritance: pattern > capability defaults > tool defaults.
	timeFormula := firstNonEmpty(raw.TimeMsFormula, capDefaults.TimeMsFormula, toolDefaults.TimeMsFormula)
	costFormula := firstNonEmpty(raw.CostFormula, capDefaults.CostFormula, toolDefaults.CostFormula)
	complexity := firstNonNil(raw.Complexity, capDefaults.Complexity, toolDefaults.Complexity)
	policy := toolDefaults.Policy.merge(capDefaults.Policy).merge(raw.Policy)

	if timeFormula == "" {
		return nil, loc("time_ms_formula", errors.New("missing (no pattern value or inherited default)"))
	}
	if costFormula == "" {
		return nil, loc("cost_formula", errors.New("missing (no pattern value or inherited default)"))
	}
	if complexity == nil {
		return nil, loc("complexity", errors.New("missing (no pattern value or inherited default)"))
	}
	if *complexity < 0 || *complexity > 1 {
		return nil, loc("complexity", fmt.Errorf("%g outside [0,1]", *complexity))
	}

	// Preference-match scores do not inherit.
	if raw.PreferenceMatch == nil {
		return nil, loc("preference_match", errors.New("missing (does not inherit, must be set per pattern)"))
	}
	if raw.PreferenceMatch.Accuracy < 0 || raw.PreferenceMatch.Accuracy > 1 {
		return nil, loc("preference_match.accuracy", fmt.Errorf("%g outside [0,1]", raw.PreferenceMatch.Accuracy))
	}
	if raw.PreferenceMatch.Completeness < 0 || raw.PreferenceMatch.Completeness > 1 {
		return nil, loc("preference_match.completeness", fmt.Errorf("%g outside [0,1]", raw.PreferenceMatch.Completeness))
	}

	timeExpr, err := expr.Build(timeFormula)
	if err != nil {
		return nil, loc("time_ms_formula", err)
	}
	costExpr, err := expr.Build(costFormula)
	if err != nil {
		return nil, loc("cost_formula", err)
	}

	constraints := PolicyConstraints{
		MaxCost: policy.MaxCost,
	}
	if policy.RequiresApproval != nil {
		constraints.RequiresApproval = *policy.RequiresApproval
	}
	if policy.ProductionSafe != nil {
		constraints.ProductionSafe = *policy.ProductionSafe
	}
	if policy.MaxCost != nil && *policy.MaxCost < 0 {
		return nil, loc("policy.max_cost", fmt.Errorf("%g is negative", *policy.MaxCost))
	}
	if policy.RequiresBackgroundIf != nil && *policy.RequiresBackgroundIf != "" {
		bg, err := expr.Build(*policy.RequiresBackgroundIf)
		if err != nil {
			return nil, loc("policy.requires_background_if", err)
		}
		constraints.RequiresBackgroundIf = bg
	}

	return &PatternProfile{
		Name:            patName,
		Tool:            toolName,
		Capability:      capName,
		TimeEstimate:    timeExpr,
		CostEstimate:    costExpr,
		Complexity:      *complexity,
		Preference:      *raw.PreferenceMatch,
		Policy:          constraints,
		Limitations:     raw.Limitations,
		RequiredInputs:  raw.RequiredInputs,
		ExpectedOutputs: raw.ExpectedOutputs,
		Examples:        raw.Examples,
	}, nil
}

// =============================================================================
// Helpers
// =============================================================================

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonNil(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
