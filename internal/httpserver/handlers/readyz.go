package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/rsilvagit/go-airdrop/internal/httpserver/deps"
	"github.com/rsilvagit/go-airdrop/internal/logger"
)

type readyzResponse struct {
	Ready bool   `json:"ready"`
	Store string `json:"store"`
}

// Readyz reports ready once the result store answers a ping.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Store == nil {
			writeJSON(w, http.StatusOK, readyzResponse{Ready: true, Store: "none"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()
		if err := d.Store.Ping(ctx); err != nil {
			d.Logger.Warn("readiness check failed", logger.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, readyzResponse{Ready: false, Store: "unreachable"})
			return
		}
		writeJSON(w, http.StatusOK, readyzResponse{Ready: true, Store: "ok"})
	}
}
