// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tiebreak resolves near-tie candidate pairs with an LLM
// arbiter.
//
// The arbiter is strictly advisory: it picks between exactly two
// already-scored candidates and justifies the pick. Any failure —
// timeout, rate limit, malformed output, transport error — falls back
// to the deterministic scoring winner. The selection pipeline never
// blocks on, and never fails because of, the arbiter.
package tiebreak

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/AleutianSelect/services/selector/llm"
)

// FallbackJustification is the fixed justification attached when the
// arbiter cannot produce a verdict and the scoring winner stands.
const FallbackJustification = "Selected based on mathematical scoring (tie-breaker unavailable)"

// DefaultTimeout bounds one arbiter round trip.
const DefaultTimeout = 10 * time.Second

var (
	tiebreakTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "selector",
			Subsystem: "tiebreak",
			Name:      "decisions_total",
			Help:      "Tie-break decisions by outcome (llm_a, llm_b, fallback).",
		},
		[]string{"outcome"},
	)
	tiebreakLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "selector",
			Subsystem: "tiebreak",
			Name:      "llm_latency_seconds",
			Help:      "Latency of arbiter LLM round trips.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// CandidateCard is the compact view of one candidate the arbiter sees.
// It deliberately excludes raw request text beyond what the caller
// passes as context: the prompt stays small and the comparison stays
// grounded in catalog facts.
type CandidateCard struct {
	ID              string   `json:"id"`
	EstimatedTimeMs float64  `json:"estimated_time_ms"`
	EstimatedCost   float64  `json:"estimated_cost"`
	Accuracy        float64  `json:"accuracy"`
	Completeness    float64  `json:"completeness"`
	Score           float64  `json:"score"`
	Limitations     []string `json:"limitations,omitempty"`
}

// Decision is the arbiter's verdict for one pair.
type Decision struct {
	// Choice is "A" or "B". On fallback it is always "A", the
	// deterministic scoring winner.
	Choice        string
	Justification string
	// UsedLLM is true only when the choice came from a well-formed
	// arbiter response.
	UsedLLM bool
}

// Arbiter picks between two near-tied candidates.
type Arbiter interface {
	// Break decides between a (the scoring winner) and b (the runner-up).
	// Implementations must always return a usable Decision; failures
	// surface as the fallback choice, never as an error.
	Break(ctx context.Context, requestText string, a, b CandidateCard) Decision
}

// verdict is the exact wire shape the arbiter must answer with.
type verdict struct {
	Choice        string `json:"choice"`
	Justification string `json:"justification"`
}

// =============================================================================
// LLM Arbiter
// =============================================================================

// LLMArbiter implements Arbiter over an llm.Client.
//
// Description:
//
//	Sends both candidate cards and the request text in a single chat
//	turn and expects a strict JSON verdict. One retry is attempted for
//	malformed output when Retry is set; transport failures are not
//	retried. Each round trip is bounded by Timeout.
//
// Thread Safety: Safe for concurrent use.
type LLMArbiter struct {
	client  llm.Client
	limiter *RateLimiter
	timeout time.Duration
	retry   bool
	logger  *slog.Logger
}

// NewLLMArbiter creates an LLMArbiter.
//
// Inputs:
//   - client: The chat backend. Must not be nil.
//   - limiter: Optional rate limiter; nil disables limiting.
//   - timeout: Per-round-trip bound; non-positive uses DefaultTimeout.
//   - retry: Whether to retry once on a malformed verdict.
func NewLLMArbiter(client llm.Client, limiter *RateLimiter, timeout time.Duration, retry bool, logger *slog.Logger) *LLMArbiter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMArbiter{
		client:  client,
		limiter: limiter,
		timeout: timeout,
		retry:   retry,
		logger:  logger,
	}
}

const arbiterSystemPrompt = `You are an arbiter choosing between two automation tool candidates whose scores are nearly tied. Consider the user's request, each candidate's estimates, and its limitations. Respond with ONLY a JSON object of the form {"choice":"A","justification":"..."} or {"choice":"B","justification":"..."}. No other text.`

// Break implements Arbiter.Break.
func (l *LLMArbiter) Break(ctx context.Context, requestText string, a, b CandidateCard) Decision {
	ctx, span := otel.Tracer("aleutian.selector.tiebreak").Start(ctx, "tiebreak.LLMArbiter.Break")
	defer span.End()
	span.SetAttributes(
		attribute.String("candidate_a", a.ID),
		attribute.String("candidate_b", b.ID),
	)

	if l.limiter != nil && !l.limiter.Allow() {
		l.logger.Warn("tie-break arbiter rate-limited, using scoring winner",
			"candidate_a", a.ID, "candidate_b", b.ID)
		span.SetAttributes(attribute.String("outcome", "fallback"))
		return l.fallback()
	}

	prompt, err := buildPrompt(requestText, a, b)
	if err != nil {
		l.logger.Error("building arbiter prompt failed", "error", err)
		span.SetStatus(codes.Error, err.Error())
		return l.fallback()
	}

	decision, err := l.ask(ctx, prompt)
	if err != nil && l.retry && isMalformed(err) {
		l.logger.Warn("arbiter verdict malformed, retrying once", "error", err)
		decision, err = l.ask(ctx, prompt)
	}
	if err != nil {
		l.logger.Warn("tie-break arbiter unavailable, using scoring winner",
			"candidate_a", a.ID, "candidate_b", b.ID, "error", err)
		span.SetAttributes(attribute.String("outcome", "fallback"))
		return l.fallback()
	}

	span.SetAttributes(attribute.String("outcome", "llm_"+strings.ToLower(decision.Choice)))
	tiebreakTotal.WithLabelValues("llm_" + strings.ToLower(decision.Choice)).Inc()
	return decision
}

func (l *LLMArbiter) fallback() Decision {
	tiebreakTotal.WithLabelValues("fallback").Inc()
	return Decision{Choice: "A", Justification: FallbackJustification, UsedLLM: false}
}

// ask performs one bounded round trip and parses the verdict.
func (l *LLMArbiter) ask(ctx context.Context, prompt string) (Decision, error) {
	callCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	temperature := float32(0.0)
	maxTokens := 256

	start := time.Now()
	raw, err := l.client.Complete(callCtx, []llm.Message{
		{Role: "system", Content: arbiterSystemPrompt},
		{Role: "user", Content: prompt},
	}, llm.GenerationParams{Temperature: &temperature, MaxTokens: &maxTokens})
	tiebreakLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return Decision{}, fmt.Errorf("tiebreak: arbiter call failed: %w", err)
	}

	v, err := parseVerdict(raw)
	if err != nil {
		return Decision{}, err
	}
	return Decision{Choice: v.Choice, Justification: v.Justification, UsedLLM: true}, nil
}

// malformedError marks parse failures so only those are retried.
type malformedError struct{ msg string }

func (e *malformedError) Error() string { return "tiebreak: " + e.msg }

func isMalformed(err error) bool {
	_, ok := err.(*malformedError)
	return ok
}

// buildPrompt renders the comparison the arbiter judges.
func buildPrompt(requestText string, a, b CandidateCard) (string, error) {
	payload := struct {
		Request    string        `json:"request"`
		CandidateA CandidateCard `json:"candidate_a"`
		CandidateB CandidateCard `json:"candidate_b"`
	}{Request: requestText, CandidateA: a, CandidateB: b}

	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("tiebreak: encoding prompt payload: %w", err)
	}
	return string(encoded), nil
}

// parseVerdict strictly decodes the arbiter's answer.
//
// Description:
//
//	Accepts exactly one JSON object with the fields "choice" and
//	"justification". Markdown code fences around the object are
//	tolerated since chat models add them despite instructions; any
//	other deviation (unknown fields, trailing text, bad choice value,
//	empty justification) is rejected.
func parseVerdict(raw string) (verdict, error) {
	trimmed := stripCodeFences(strings.TrimSpace(raw))

	decoder := json.NewDecoder(bytes.NewReader([]byte(trimmed)))
	decoder.DisallowUnknownFields()

	var v verdict
	if err := decoder.Decode(&v); err != nil {
		return verdict{}, &malformedError{msg: fmt.Sprintf("verdict is not valid JSON: %v", err)}
	}
	if decoder.More() {
		return verdict{}, &malformedError{msg: "verdict has trailing content"}
	}
	if v.Choice != "A" && v.Choice != "B" {
		return verdict{}, &malformedError{msg: fmt.Sprintf("verdict choice %q is not A or B", v.Choice)}
	}
	if strings.TrimSpace(v.Justification) == "" {
		return verdict{}, &malformedError{msg: "verdict justification is empty"}
	}
	return v, nil
}

// stripCodeFences removes a surrounding ```...``` block if present.
func stripCodeFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
