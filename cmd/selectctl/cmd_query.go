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
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianSelect/services/selector/selection"
)

var (
	runCapabilities []string
	runText         string
	runMode         string
	runEnvironment  string
	runVars         []string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one selection against a running server",
	RunE:  runRunCommand,
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Show the server's installed catalog summary",
	RunE:  runCatalogCommand,
}

func init() {
	runCmd.Flags().StringArrayVar(&runCapabilities, "capability", nil, "Capability to select for (repeatable, at least one required)")
	runCmd.Flags().StringVar(&runText, "text", "", "Request text driving preference detection")
	runCmd.Flags().StringVar(&runMode, "mode", "", "Explicit preference mode (fast/balanced/accurate/thorough)")
	runCmd.Flags().StringVar(&runEnvironment, "env", "", "Target environment (e.g. production)")
	runCmd.Flags().StringArrayVar(&runVars, "var", nil, "Formula variable binding name=value (repeatable)")
	runCmd.MarkFlagRequired("capability")
}

func runRunCommand(_ *cobra.Command, _ []string) error {
	variables, err := parseBindings(runVars)
	if err != nil {
		return err
	}

	body, err := json.Marshal(selection.Request{
		Capabilities: runCapabilities,
		RequestText:  runText,
		Mode:         runMode,
		Environment:  runEnvironment,
		Variables:    variables,
	})
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	raw, status, err := post(serverURL+"/v1/select/run", body)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("server returned %d: %s", status, raw)
	}

	var result selection.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return fmt.Errorf("decoding result: %w", err)
	}

	fmt.Printf("Selected: %s (score %.3f, %s)\n",
		result.Selected.PatternID, result.Selected.Score, result.SelectionMethod)
	fmt.Printf("  estimated: %.0f ms, cost %.2f, mode %s, sla %s\n",
		result.Selected.EstimatedTimeMs, result.Selected.EstimatedCost,
		result.Selected.ExecutionModeHint, result.Selected.SLAClass)
	if result.Justification != "" {
		fmt.Printf("  justification: %s\n", result.Justification)
	}
	if result.IsAmbiguous {
		fmt.Printf("Ambiguous with runner-up. Clarify: %s\n", result.ClarifyingQuestion)
	}
	for _, alt := range result.Alternatives {
		fmt.Printf("Alternative: %s (score %.3f)\n", alt.PatternID, alt.Score)
	}
	for _, v := range result.Violations {
		fmt.Printf("Dropped: %s\n", v)
	}
	return nil
}

func runCatalogCommand(_ *cobra.Command, _ []string) error {
	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Get(serverURL + "/v1/select/catalog")
	if err != nil {
		return fmt.Errorf("contacting server: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, raw)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return fmt.Errorf("formatting response: %w", err)
	}
	fmt.Println(pretty.String())
	return nil
}

func post(url string, body []byte) ([]byte, int, error) {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("contacting server: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, 0, fmt.Errorf("reading response: %w", err)
	}
	return raw, resp.StatusCode, nil
}
