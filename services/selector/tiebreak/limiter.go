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
	"sync"
	"time"
)

// RateLimiter bounds arbiter calls per minute using a sliding window of
// timestamps. When the window is full the arbiter skips the LLM and
// takes the deterministic fallback instead of queueing.
//
// Thread Safety: Safe for concurrent use via sync.Mutex.
type RateLimiter struct {
	mu     sync.Mutex
	limit  int
	window []int64 // timestamps in Unix milliseconds
	now    func() time.Time
}

// NewRateLimiter creates a limiter allowing limitPerMin calls per
// minute. A non-positive limit disables limiting.
func NewRateLimiter(limitPerMin int) *RateLimiter {
	return &RateLimiter{limit: limitPerMin, now: time.Now}
}

// Allow reports whether one more call fits in the current window and,
// if so, records it.
func (r *RateLimiter) Allow() bool {
	if r.limit <= 0 {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	nowMs := r.now().UnixMilli()
	cutoff := nowMs - 60_000

	kept := r.window[:0]
	for _, ts := range r.window {
		if ts > cutoff {
			kept = append(kept, ts)
		}
	}
	r.window = kept

	if len(r.window) >= r.limit {
		return false
	}
	r.window = append(r.window, nowMs)
	return true
}
