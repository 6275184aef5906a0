// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm provides the chat clients the tie-breaker calls out to.
//
// Only the small slice of provider surface the arbiter needs is
// implemented: single-shot chat completion over raw net/http, no
// streaming, no tool calling.
package llm

import (
	"context"
	"fmt"
	"time"
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationParams are the per-call knobs the arbiter sets.
type GenerationParams struct {
	Temperature *float32
	MaxTokens   *int
}

// Client is a chat completion backend.
//
// Description:
//
//	Complete sends the conversation and returns the assistant's text.
//	Implementations must honor ctx cancellation and be safe for
//	concurrent use.
type Client interface {
	Complete(ctx context.Context, messages []Message, params GenerationParams) (string, error)
	Name() string
	Model() string
}

// EmptyResponseError indicates the provider returned HTTP 200 with no
// usable text. Kept as a distinct type so callers can decide whether an
// empty completion is retryable.
type EmptyResponseError struct {
	Provider string
	Model    string
	Duration time.Duration
}

func (e *EmptyResponseError) Error() string {
	return fmt.Sprintf("%s: empty response from model %s after %v", e.Provider, e.Model, e.Duration)
}
