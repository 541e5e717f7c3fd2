package handlers

import (
	"net/http"

	"github.com/rsilvagit/go-airdrop/internal/httpserver/deps"
	"github.com/rsilvagit/go-airdrop/internal/scheduler"
)

// Jobs lists the scheduled entries with their state and next activation.
func Jobs(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobs := []scheduler.EntryInfo{}
		if d.Jobs != nil {
			jobs = d.Jobs()
		}
		writeJSON(w, http.StatusOK, jobs)
	}
}
