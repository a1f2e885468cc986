// Package otel binds gateway metrics to OpenTelemetry observable instruments.
//
// Counters are published as a single authgate.events counter with an "event"
// attribute (challenge_issued, basic_failure, ...). The latency histogram is
// published as cumulative bucket gauges with an "le" attribute plus a count
// gauge. One callback reads [authgate.Gateway.MetricsSnapshot] per collection.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate gateway state.
package otel
