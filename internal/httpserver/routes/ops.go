// Package routes mounts the handlers of the ops HTTP server.
package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rsilvagit/go-airdrop/internal/httpserver/deps"
	"github.com/rsilvagit/go-airdrop/internal/httpserver/handlers"
)

// OpsPaths are the liveness, readiness and metrics endpoints mounted by Ops.
var OpsPaths = []string{"/healthz", "/readyz", "/metrics"}

// Ops mounts liveness, readiness and the Prometheus scrape endpoint.
func Ops(r chi.Router, d deps.Deps) {
	r.Get("/healthz", handlers.Healthz(d))
	r.Get("/readyz", handlers.Readyz(d))

	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}
