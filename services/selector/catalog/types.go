// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package catalog models the tool → capability → usage-pattern registry
// consumed by the selector.
//
// The source format is loosely-typed YAML; Load converts it into a fully
// typed, validated, immutable in-memory structure exactly once, building
// every embedded formula eagerly so malformed entries are rejected at load
// time rather than at use time.
//
// Thread Safety:
//
//	A loaded CatalogConfig is immutable and safe to share across
//	arbitrarily many concurrent readers. The Store swaps whole snapshots
//	atomically on reload.
package catalog

import (
	"fmt"

	"github.com/AleutianAI/AleutianSelect/services/selector/expr"
)

// MaxPatternsPerCapability caps catalog sprawl: a capability carries at most
// this many usage patterns.
const MaxPatternsPerCapability = 5

// PreferenceMatchScores records how well a pattern serves two preference
// dimensions that cannot be derived from its formulas. Both values are in
// [0,1] and do not inherit — they must be set per pattern.
type PreferenceMatchScores struct {
	// Accuracy is how exact the pattern's answer is (1.0 = ground truth).
	Accuracy float64 `yaml:"accuracy"`

	// Completeness is how much of the requested data the pattern returns.
	Completeness float64 `yaml:"completeness"`
}

// PolicyConstraints are the hard rules attached to a pattern. They can drop
// or relabel a candidate during enforcement but are never scored away.
type PolicyConstraints struct {
	// MaxCost is an absolute cost ceiling. Nil means no ceiling.
	MaxCost *float64

	// RequiresApproval marks the pattern as needing human sign-off before
	// execution. The candidate is relabeled, not dropped.
	RequiresApproval bool

	// ProductionSafe is false for patterns that must not run against a
	// production environment.
	ProductionSafe bool

	// RequiresBackgroundIf is a boolean-valued formula (nonzero = true)
	// that, when satisfied by the runtime context, forces background
	// execution. Nil means never.
	RequiresBackgroundIf *expr.Expression
}

// PatternProfile is one concrete way of using a capability, with its own
// time/cost/accuracy profile. Immutable after load.
type PatternProfile struct {
	// Name is the pattern name, unique within its capability.
	Name string

	// Tool is the owning tool's name.
	Tool string

	// Capability is the owning capability's name.
	Capability string

	// TimeEstimate predicts execution time in milliseconds.
	TimeEstimate *expr.Expression

	// CostEstimate predicts execution cost in abstract cost units.
	CostEstimate *expr.Expression

	// Complexity is the pattern's operational complexity in [0,1]
	// (lower is simpler).
	Complexity float64

	// Preference holds the per-pattern preference-match scores.
	Preference PreferenceMatchScores

	// Policy holds the pattern's hard constraints.
	Policy PolicyConstraints

	// Limitations are free-text caveats surfaced to the tie-breaker and
	// in justifications.
	Limitations []string

	// RequiredInputs names the input fields the pattern needs.
	RequiredInputs []string

	// ExpectedOutputs names the output fields the pattern produces.
	ExpectedOutputs []string

	// Examples are sample requests this pattern serves well.
	Examples []string
}

// ID returns the tool/capability/pattern triple as a stable identifier.
func (p *PatternProfile) ID() string {
	return p.Tool + "/" + p.Capability + "/" + p.Name
}

// CapabilityProfile is a named capability owned by exactly one tool.
type CapabilityProfile struct {
	// Name is the capability name (e.g. "asset_query").
	Name string

	// Tool is the owning tool's name.
	Tool string

	// Patterns are the capability's usage patterns in stable (sorted)
	// order. Between 1 and MaxPatternsPerCapability entries.
	Patterns []*PatternProfile
}

// ToolProfile is a registered tool and its capabilities.
type ToolProfile struct {
	// Name is the tool's identity.
	Name string

	// Description is free text shown in catalog listings.
	Description string

	// Capabilities are the tool's capabilities in stable (sorted) order.
	Capabilities []*CapabilityProfile
}

// CatalogConfig is one immutable catalog snapshot.
type CatalogConfig struct {
	// Tools in stable (sorted) order.
	Tools []*ToolProfile

	// Generation is the snapshot's generation counter, assigned by the
	// Store on install. Zero for a config that never entered a Store.
	Generation uint64

	byName       map[string]*ToolProfile
	byCapability map[string][]*PatternProfile
}

// Get returns the tool with the given name, or nil if absent.
func (c *CatalogConfig) Get(toolName string) *ToolProfile {
	return c.byName[toolName]
}

// GetAll returns all tools in stable order. The returned slice must not be
// mutated.
func (c *CatalogConfig) GetAll() []*ToolProfile {
	return c.Tools
}

// GetByCapability returns every pattern, across all tools, whose capability
// has the given name, in stable order. The returned slice must not be
// mutated.
func (c *CatalogConfig) GetByCapability(name string) []*PatternProfile {
	return c.byCapability[name]
}

// PatternCount returns the total number of patterns in the snapshot.
func (c *CatalogConfig) PatternCount() int {
	n := 0
	for _, patterns := range c.byCapability {
		n += len(patterns)
	}
	return n
}

// LoadError is a tagged load failure with the precise catalog location that
// caused it.
type LoadError struct {
	Tool       string
	Capability string
	Pattern    string
	Field      string
	Err        error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	loc := e.Tool
	if e.Capability != "" {
		loc += "/" + e.Capability
	}
	if e.Pattern != "" {
		loc += "/" + e.Pattern
	}
	if loc == "" {
		loc = "catalog"
	}
	if e.Field != "" {
		return fmt.Sprintf("catalog: %s: field %q: %v", loc, e.Field, e.Err)
	}
	return fmt.Sprintf("catalog: %s: %v", loc, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *LoadError) Unwrap() error {
	return e.Err
}
