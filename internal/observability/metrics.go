// Package observability carries the ambient metrics/tracing stack (spec §2
// domain stack), retargeted from the teacher's NBI/scheduler gRPC
// control-plane collectors (NBICollector, SchedulerCollector — deleted, see
// DESIGN.md) onto exposing the engine's own core.Stats Prometheus
// registration as an HTTP endpoint for `cmd/astrons --metrics-addr`.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns a ready-to-mount /metrics HTTP handler for the given
// gatherer, defaulting to the global Prometheus registry when nil. The
// engine registers its per-node counters (core/stats.go's Collector)
// against whatever Registerer the caller supplies at startup, so this
// handler simply exposes that same registry's Gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
