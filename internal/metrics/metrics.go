// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeDiscarded = "discarded"
)

var (
	// Section Metrics
	SectionFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_section_fetch_total",
			Help: "Total number of section catalog fetches by outcome",
		},
		[]string{"kind", "outcome"},
	)

	SectionFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feed_section_fetch_duration_seconds",
			Help:    "Duration of section catalog fetches in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	SectionStaleServes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_section_stale_serves_total",
			Help: "Total number of section snapshots served with stale items",
		},
		[]string{"kind"},
	)

	// Feedback Metrics
	FeedbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_feedback_total",
			Help: "Total number of feedback events by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	ProfileRecomputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "feed_profile_recompute_duration_seconds",
			Help:    "Duration of preference profile recomputation in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
		},
	)

	// Persistence Metrics
	PersistenceOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_persistence_operations_total",
			Help: "Total number of persistence operations by outcome",
		},
		[]string{"op", "outcome"},
	)

	// Catalog Client Metrics
	CatalogRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_catalog_requests_total",
			Help: "Total number of upstream catalog requests by outcome",
		},
		[]string{"source", "outcome"},
	)

	CatalogCircuitState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "feed_catalog_circuit_state",
			Help: "Catalog circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Event Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_events_published_total",
			Help: "Total number of feedback events published by outcome",
		},
		[]string{"outcome"},
	)

	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_events_consumed_total",
			Help: "Total number of feedback events consumed in-process by type",
		},
		[]string{"type"},
	)

	// Session Metrics
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feed_active_sessions",
			Help: "Current number of engines held by the session registry",
		},
	)

	SessionEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_session_evictions_total",
			Help: "Total number of evicted session engines by reason",
		},
		[]string{"reason"},
	)

	ScheduledRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_scheduled_refreshes_total",
			Help: "Total number of section refreshes triggered by the scheduler",
		},
		[]string{"section"},
	)

	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feed_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"method", "route"},
	)
)

// RecordSectionFetch records the outcome and latency of one section fetch.
func RecordSectionFetch(kind, outcome string, duration time.Duration) {
	SectionFetchTotal.WithLabelValues(kind, outcome).Inc()
	if outcome != OutcomeDiscarded {
		SectionFetchDuration.WithLabelValues(kind).Observe(duration.Seconds())
	}
}

// RecordStaleServe records a snapshot served with stale items.
func RecordStaleServe(kind string) {
	SectionStaleServes.WithLabelValues(kind).Inc()
}

// RecordFeedback records one feedback event.
func RecordFeedback(eventType string, accepted bool) {
	outcome := "accepted"
	if !accepted {
		outcome = "rejected"
	}
	FeedbackTotal.WithLabelValues(eventType, outcome).Inc()
}

// RecordProfileRecompute records the duration of a profile recompute.
func RecordProfileRecompute(duration time.Duration) {
	ProfileRecomputeDuration.Observe(duration.Seconds())
}

// RecordPersistence records a persistence operation.
func RecordPersistence(op string, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	PersistenceOperations.WithLabelValues(op, outcome).Inc()
}

// RecordCatalogRequest records an upstream catalog call.
func RecordCatalogRequest(source string, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	CatalogRequests.WithLabelValues(source, outcome).Inc()
}

// SetCatalogCircuitState records a breaker state (0 closed, 1 half-open, 2 open).
func SetCatalogCircuitState(name string, state int) {
	CatalogCircuitState.WithLabelValues(name).Set(float64(state))
}

// RecordEventPublish records the outcome of publishing one feedback event.
func RecordEventPublish(err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	EventsPublished.WithLabelValues(outcome).Inc()
}

// RecordEventConsumed records one feedback event handled by an in-process consumer.
func RecordEventConsumed(eventType string) {
	EventsConsumed.WithLabelValues(eventType).Inc()
}

// RecordScheduledRefresh records n session refreshes of section.
func RecordScheduledRefresh(section string, n int) {
	ScheduledRefreshes.WithLabelValues(section).Add(float64(n))
}

// RecordSessionEviction records an evicted session engine.
func RecordSessionEviction(reason string) {
	SessionEvictions.WithLabelValues(reason).Inc()
}

// RecordHTTPRequest records one served HTTP request.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
