// Package otel publishes goSession client metrics through OpenTelemetry
// observable instruments.
//
// Counters are folded into three instruments keyed by attributes:
// gosession.auth.operations (operation, outcome), gosession.refresh.outcomes
// (outcome) and gosession.gateway.interceptions (kind). Refresh latency is a
// gauge per cumulative bucket, labelled le. One callback reads
// [goSession.Client.MetricsSnapshot] per collection; callers own the
// MeterProvider.
package otel
