/*
Package metrics provides Prometheus metrics collection and exposition for
Runinator.

The metrics package defines and registers every Runinator metric using the
Prometheus client library: gossip peer counts and message outcomes, HTTP
API request counts and latency, scheduler dispatch counts and cycle
latency, broker queue/inflight/dedupe depth, and per-action provider call
latency and outcome on workers. Metrics are exposed via an HTTP handler
for scraping.

# Usage

	mux.Handle("/metrics", metrics.Handler())

	timer := metrics.NewTimer()
	err := dispatch(cmd)
	timer.ObserveDuration(metrics.SchedulingLatency)

	metrics.BrokerAckTotal.WithLabelValues("ok").Inc()

# Health

This package also owns the HealthChecker behind HealthHandler and
LivenessHandler (health.go); the metadata server
mounts HealthHandler at /health. Each binary calls
metrics.SetCriticalComponents with the names it depends on — web and
scheduler name "store", the broker names "queue", the worker names
"broker" — and registers/updates those components as they come up.

# Design Patterns

Registration happens once in this package's init(), mirroring the rest of
the module's "package-level collector, registered at import time" habit.
Timer wraps time.Now()/time.Since so callers don't repeat the same three
lines at every call site that wants to observe a histogram.
*/
package metrics
