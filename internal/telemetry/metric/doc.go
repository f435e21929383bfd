// Package metric provides Prometheus metrics for rolegate.
//
// It exposes ingestion, grant, and persistence metrics on a private
// registry, served on the optional metrics listener. No per-user data
// is exported; all series are process-level aggregates.
package metric
