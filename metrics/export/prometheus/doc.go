// Package prometheus exports controller metrics to Prometheus.
//
// [Collector] implements client_golang's Collector and reads a fresh snapshot on every
// scrape. [PrometheusExporter] wraps one Collector in a private registry and serves it
// through promhttp, or renders it with expfmt for callers that want a string. Counter
// names are prefixed gosession_ and end in _total; the single histogram is
// gosession_refresh_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry. Callers mount the Handler or
//     register the Collector themselves.
//   - Mutate controller state.
package prometheus
