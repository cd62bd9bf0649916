// Package prometheus exposes goSession counters and the refresh latency
// histogram as a prometheus.Collector.
//
// Counter names are gosession_*_total and the histogram is
// gosession_refresh_latency_seconds. [Exporter.Handler] serves a private
// registry; callers that run their own registry register the [Exporter]
// directly instead.
package prometheus
