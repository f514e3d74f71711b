// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

/*
Package metrics provides Prometheus collectors for the personalization service.

All collectors are registered with the default registry through promauto and
exposed by the API at /metrics:

	curl http://localhost:8080/metrics

# Available Metrics

Sections:
  - feed_section_fetch_total: catalog fetch outcomes (counter)
    Labels: kind, outcome (ok, error, discarded)
  - feed_section_fetch_duration_seconds: fetch latency (histogram)
    Labels: kind
  - feed_section_stale_serves_total: snapshots served with stale items (counter)
    Labels: kind

Feedback and profile:
  - feed_feedback_total: recorded feedback (counter)
    Labels: type, outcome (accepted, rejected)
  - feed_profile_recompute_duration_seconds: recompute latency (histogram)

Persistence:
  - feed_persistence_operations_total: save/load outcomes (counter)
    Labels: op, outcome

Catalog client:
  - feed_catalog_requests_total: upstream catalog calls (counter)
    Labels: source, outcome
  - feed_catalog_circuit_state: breaker state, 0 closed, 1 half-open, 2 open (gauge)

Events:
  - feed_events_published_total: feedback event publication (counter)
    Labels: outcome

Sessions and HTTP:
  - feed_active_sessions: engines held by the session registry (gauge)
  - feed_session_evictions_total: engines evicted (counter), labels: reason
  - feed_http_requests_total / feed_http_request_duration_seconds
    Labels: method, route, status
*/
package metrics
