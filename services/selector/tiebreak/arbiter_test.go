// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tiebreak

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AleutianAI/AleutianSelect/services/selector/llm"
)

// fakeClient scripts arbiter responses for tests.
type fakeClient struct {
	responses []string
	errs      []error
	calls     int
}

func (f *fakeClient) Complete(ctx context.Context, messages []llm.Message, params llm.GenerationParams) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	i := f.calls
	f.calls++
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", errors.New("fake: no scripted response")
}

func (f *fakeClient) Name() string  { return "fake" }
func (f *fakeClient) Model() string { return "fake-model" }

var (
	cardA = CandidateCard{ID: "tool/cap/a", Score: 0.71, EstimatedTimeMs: 120}
	cardB = CandidateCard{ID: "tool/cap/b", Score: 0.68, EstimatedTimeMs: 4000}
)

func TestBreak_WellFormedVerdict(t *testing.T) {
	client := &fakeClient{responses: []string{`{"choice":"B","justification":"fresher data"}`}}
	arbiter := NewLLMArbiter(client, nil, time.Second, false, nil)

	d := arbiter.Break(context.Background(), "verify state", cardA, cardB)
	if !d.UsedLLM || d.Choice != "B" || d.Justification != "fresher data" {
		t.Fatalf("unexpected decision: %+v", d)
	}
}

func TestBreak_CodeFencedVerdict(t *testing.T) {
	client := &fakeClient{responses: []string{"```json\n{\"choice\":\"A\",\"justification\":\"cheaper\"}\n```"}}
	arbiter := NewLLMArbiter(client, nil, time.Second, false, nil)

	d := arbiter.Break(context.Background(), "count", cardA, cardB)
	if !d.UsedLLM || d.Choice != "A" {
		t.Fatalf("unexpected decision: %+v", d)
	}
}

func TestBreak_MalformedFallsBack(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "I would pick A because it is faster."},
		{"bad choice", `{"choice":"C","justification":"x"}`},
		{"empty justification", `{"choice":"A","justification":"  "}`},
		{"unknown field", `{"choice":"A","justification":"x","confidence":0.9}`},
		{"trailing content", `{"choice":"A","justification":"x"} trust me`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := &fakeClient{responses: []string{tc.raw}}
			arbiter := NewLLMArbiter(client, nil, time.Second, false, nil)

			d := arbiter.Break(context.Background(), "req", cardA, cardB)
			if d.UsedLLM {
				t.Fatalf("malformed verdict accepted: %+v", d)
			}
			if d.Choice != "A" || d.Justification != FallbackJustification {
				t.Fatalf("fallback not deterministic: %+v", d)
			}
		})
	}
}

func TestBreak_RetryOnMalformedOnly(t *testing.T) {
	// First answer malformed, second well-formed: retry recovers it.
	client := &fakeClient{responses: []string{"garbage", `{"choice":"B","justification":"ok"}`}}
	arbiter := NewLLMArbiter(client, nil, time.Second, true, nil)

	d := arbiter.Break(context.Background(), "req", cardA, cardB)
	if !d.UsedLLM || d.Choice != "B" {
		t.Fatalf("retry did not recover: %+v", d)
	}
	if client.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", client.calls)
	}

	// Transport errors are not retried.
	client = &fakeClient{errs: []error{errors.New("connection refused")}}
	arbiter = NewLLMArbiter(client, nil, time.Second, true, nil)
	d = arbiter.Break(context.Background(), "req", cardA, cardB)
	if d.UsedLLM || client.calls != 1 {
		t.Fatalf("transport error retried or accepted: %+v calls=%d", d, client.calls)
	}
}

func TestBreak_TransportErrorFallsBack(t *testing.T) {
	client := &fakeClient{errs: []error{errors.New("dial tcp: connection refused")}}
	arbiter := NewLLMArbiter(client, nil, time.Second, false, nil)

	d := arbiter.Break(context.Background(), "req", cardA, cardB)
	if d.UsedLLM || d.Choice != "A" || d.Justification != FallbackJustification {
		t.Fatalf("unexpected decision: %+v", d)
	}
}

func TestBreak_RateLimitedFallsBack(t *testing.T) {
	client := &fakeClient{responses: []string{`{"choice":"B","justification":"x"}`}}
	limiter := NewRateLimiter(1)
	arbiter := NewLLMArbiter(client, limiter, time.Second, false, nil)

	first := arbiter.Break(context.Background(), "req", cardA, cardB)
	if !first.UsedLLM {
		t.Fatalf("first call should reach the LLM: %+v", first)
	}
	second := arbiter.Break(context.Background(), "req", cardA, cardB)
	if second.UsedLLM {
		t.Fatalf("second call should have been rate-limited: %+v", second)
	}
	if client.calls != 1 {
		t.Fatalf("expected exactly 1 LLM call, got %d", client.calls)
	}
}

func TestBreak_CanceledContextFallsBack(t *testing.T) {
	client := &fakeClient{responses: []string{`{"choice":"B","justification":"x"}`}}
	arbiter := NewLLMArbiter(client, nil, time.Second, false, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := arbiter.Break(ctx, "req", cardA, cardB)
	if d.UsedLLM || d.Choice != "A" {
		t.Fatalf("canceled context should fall back to A: %+v", d)
	}
}

func TestRateLimiter_Window(t *testing.T) {
	limiter := NewRateLimiter(2)
	base := time.Unix(1_700_000_000, 0)
	current := base
	limiter.now = func() time.Time { return current }

	if !limiter.Allow() || !limiter.Allow() {
		t.Fatal("first two calls should pass")
	}
	if limiter.Allow() {
		t.Fatal("third call within window should be limited")
	}

	current = base.Add(61 * time.Second)
	if !limiter.Allow() {
		t.Fatal("call after window expiry should pass")
	}
}

func TestRateLimiter_Unlimited(t *testing.T) {
	limiter := NewRateLimiter(0)
	for i := 0; i < 100; i++ {
		if !limiter.Allow() {
			t.Fatal("zero limit must disable limiting")
		}
	}
}
