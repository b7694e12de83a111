// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package metrics registers the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector the services report into.
type Metrics struct {
	SearchesTotal      *prometheus.CounterVec
	SearchesFailed     *prometheus.CounterVec
	SearchCycleSeconds prometheus.Histogram
	GrabsTotal         *prometheus.CounterVec
	DownloadsFailed    prometheus.Counter
	DownloadsCompleted prometheus.Counter
	PendingPromotions  prometheus.Counter
	PendingHeld        prometheus.Gauge
	TrackedDownloads   prometheus.Gauge
}

// New creates and registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SearchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fetcharr_searches_total",
			Help: "Total number of indexer searches by indexer name",
		}, []string{"indexer"}),
		SearchesFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fetcharr_searches_failed_total",
			Help: "Total number of failed indexer searches by indexer name",
		}, []string{"indexer"}),
		SearchCycleSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "fetcharr_search_cycle_duration_seconds",
			Help:    "Time spent running one full search cycle",
			Buckets: prometheus.DefBuckets,
		}),
		GrabsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fetcharr_grabs_total",
			Help: "Total number of grabbed releases by protocol",
		}, []string{"protocol"}),
		DownloadsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "fetcharr_downloads_failed_total",
			Help: "Total number of downloads that failed after grabbing",
		}),
		DownloadsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "fetcharr_downloads_completed_total",
			Help: "Total number of downloads imported successfully",
		}),
		PendingPromotions: factory.NewCounter(prometheus.CounterOpts{
			Name: "fetcharr_pending_promotions_total",
			Help: "Total number of pending releases promoted to grabs",
		}),
		PendingHeld: factory.NewGauge(prometheus.GaugeOpts{
			Name: "fetcharr_pending_held",
			Help: "Number of releases currently held in the pending queue",
		}),
		TrackedDownloads: factory.NewGauge(prometheus.GaugeOpts{
			Name: "fetcharr_tracked_downloads",
			Help: "Number of downloads currently tracked across all clients",
		}),
	}
}
