package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rsilvagit/go-airdrop/internal/httpserver/deps"
	"github.com/rsilvagit/go-airdrop/internal/httpserver/handlers"
)

// API mounts the read-only JSON views under /api. The scan views need a
// store and are left out without one.
func API(r chi.Router, d deps.Deps) {
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NoCache)
		if d.Store != nil {
			r.Get("/scans/latest", handlers.LatestScan(d))
			r.Get("/scans", handlers.ListScans(d))
		}
		r.Get("/jobs", handlers.Jobs(d))
	})
}
