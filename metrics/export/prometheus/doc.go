// Package prometheus renders gateway metrics in Prometheus text exposition
// format.
//
// Counter names are prefixed authgate_*_total; the single histogram is
// authgate_authenticate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate gateway state.
package prometheus
