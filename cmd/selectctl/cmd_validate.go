// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianSelect/services/selector/catalog"
	"github.com/AleutianAI/AleutianSelect/services/selector/expr"
)

var evalVars []string

var validateCmd = &cobra.Command{
	Use:   "validate <catalog.yaml>",
	Short: "Validate a catalog file without starting the server",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidateCommand,
}

var evalCmd = &cobra.Command{
	Use:   "eval <formula>",
	Short: "Evaluate a catalog formula against variable bindings",
	Long: `Evaluates one formula with the catalog expression grammar.
Bindings are passed as repeated --var name=value flags, e.g.

  selectctl eval "120 + 0.02 * N" --var N=100`,
	Args: cobra.ExactArgs(1),
	RunE: runEvalCommand,
}

func init() {
	evalCmd.Flags().StringArrayVar(&evalVars, "var", nil, "Variable binding name=value (repeatable)")
}

func runValidateCommand(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	cfg, err := catalog.Load(cmd.Context(), data)
	if err != nil {
		return fmt.Errorf("catalog invalid: %w", err)
	}

	fmt.Printf("%s: OK\n", path)
	for _, tool := range cfg.GetAll() {
		fmt.Printf("  %s\n", tool.Name)
		for _, capability := range tool.Capabilities {
			fmt.Printf("    %s: %d pattern(s)\n", capability.Name, len(capability.Patterns))
		}
	}
	fmt.Printf("%d pattern(s) total\n", cfg.PatternCount())
	return nil
}

func runEvalCommand(_ *cobra.Command, args []string) error {
	bindings, err := parseBindings(evalVars)
	if err != nil {
		return err
	}

	expression, err := expr.Build(args[0])
	if err != nil {
		return fmt.Errorf("formula invalid: %w", err)
	}

	value, err := expression.Evaluate(bindings)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}
	fmt.Printf("%g\n", value)
	return nil
}

// parseBindings turns repeated name=value flags into an eval context.
func parseBindings(pairs []string) (map[string]float64, error) {
	bindings := make(map[string]float64, len(pairs))
	for _, pair := range pairs {
		name, raw, found := strings.Cut(pair, "=")
		if !found || name == "" {
			return nil, fmt.Errorf("invalid --var %q: expected name=value", pair)
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --var %q: %w", pair, err)
		}
		bindings[name] = value
	}
	return bindings, nil
}
