// Package prometheus renders goCred counters in the Prometheus text format.
//
// [NewPrometheusExporter] wraps a [goCred.Engine] and exposes an
// [http.Handler] for the scrape endpoint. Counters are named gocred_*_total;
// the validation latency histogram is gocred_validate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register with a global Prometheus registry. Callers mount the Handler.
//   - Mutate engine state.
package prometheus
