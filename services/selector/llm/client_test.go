// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAIClient_Complete(t *testing.T) {
	var gotAuth string
	var gotReq openaiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(openaiResponse{
			Choices: []openaiChoice{{
				Message:      Message{Role: "assistant", Content: `{"choice":"A"}`},
				FinishReason: "stop",
			}},
		})
	}))
	defer server.Close()

	client := NewOpenAIClientWithConfig("test-key", "test-model", server.URL)
	out, err := client.Complete(context.Background(), []Message{
		{Role: "system", Content: "you are an arbiter"},
		{Role: "user", Content: "pick one"},
	}, GenerationParams{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != `{"choice":"A"}` {
		t.Fatalf("unexpected content: %q", out)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("missing bearer auth: %q", gotAuth)
	}
	if gotReq.Model != "test-model" || len(gotReq.Messages) != 2 {
		t.Fatalf("unexpected request payload: %+v", gotReq)
	}
}

func TestOpenAIClient_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"type":"overloaded","message":"try later"}}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewOpenAIClientWithConfig("k", "m", server.URL)
	if _, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "x"}}, GenerationParams{}); err == nil {
		t.Fatal("expected error on 503")
	}
}

func TestOpenAIClient_EmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openaiResponse{Choices: []openaiChoice{{Message: Message{Content: "   "}}}})
	}))
	defer server.Close()

	client := NewOpenAIClientWithConfig("k", "m", server.URL)
	_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "x"}}, GenerationParams{})
	var emptyErr *EmptyResponseError
	if !errors.As(err, &emptyErr) {
		t.Fatalf("expected EmptyResponseError, got %v", err)
	}
}

func TestAnthropicClient_Complete(t *testing.T) {
	var gotReq anthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("missing x-api-key header")
		}
		if r.Header.Get("anthropic-version") != anthropicAPIVersion {
			t.Errorf("missing anthropic-version header")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(anthropicResponse{
			Content: []anthropicContent{{Type: "text", Text: "B it is"}},
		})
	}))
	defer server.Close()

	client := NewAnthropicClientWithConfig("test-key", "test-model", server.URL)
	out, err := client.Complete(context.Background(), []Message{
		{Role: "system", Content: "arbiter"},
		{Role: "user", Content: "pick"},
	}, GenerationParams{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "B it is" {
		t.Fatalf("unexpected content: %q", out)
	}
	// System turn lifted out of the message list.
	if gotReq.System != "arbiter" || len(gotReq.Messages) != 1 {
		t.Fatalf("system message not lifted: %+v", gotReq)
	}
}

func TestAnthropicClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(anthropicResponse{
			Error: &anthropicError{Type: "invalid_request_error", Message: "bad model"},
		})
	}))
	defer server.Close()

	client := NewAnthropicClientWithConfig("k", "m", server.URL)
	if _, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "x"}}, GenerationParams{}); err == nil {
		t.Fatal("expected error from API error body")
	}
}

func TestClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewOpenAIClientWithConfig("k", "m", server.URL)
	if _, err := client.Complete(ctx, []Message{{Role: "user", Content: "x"}}, GenerationParams{}); err == nil {
		t.Fatal("expected error from canceled context")
	}
}
