// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package selection

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	selectionRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "selector",
			Subsystem: "selection",
			Name:      "runs_total",
			Help:      "Selection runs by outcome (selected, no_viable_candidate, error).",
		},
		[]string{"outcome"},
	)
	selectionLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "selector",
			Subsystem: "selection",
			Name:      "latency_seconds",
			Help:      "End-to-end selection run latency.",
			Buckets:   prometheus.DefBuckets,
		},
	)
	selectionAmbiguous = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "selector",
			Subsystem: "selection",
			Name:      "ambiguous_total",
			Help:      "Runs whose top two candidates were within the ambiguity epsilon.",
		},
	)
	candidatesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "selector",
			Subsystem: "selection",
			Name:      "patterns_skipped_total",
			Help:      "Catalog patterns skipped because their formulas could not be evaluated.",
		},
	)
)
