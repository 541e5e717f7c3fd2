package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rsilvagit/go-airdrop/internal/httpserver/deps"
	"github.com/rsilvagit/go-airdrop/internal/logger"
	"github.com/rsilvagit/go-airdrop/internal/model"
	"github.com/rsilvagit/go-airdrop/internal/store"
)

// LatestScan returns the most recent stored scan result.
func LatestScan(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := d.Store.LastResult(r.Context())
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "no scan recorded yet"})
			return
		}
		if err != nil {
			d.Logger.Error("load last scan", logger.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "store unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

type scansResponse struct {
	Since time.Time          `json:"since"`
	Count int                `json:"count"`
	Scans []model.ScanResult `json:"scans"`
}

// ListScans returns stored results from the last ?days=N days (default 7),
// newest first.
func ListScans(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days := 7
		if v := r.URL.Query().Get("days"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > 90 {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "days must be between 1 and 90"})
				return
			}
			days = n
		}

		since := d.Now().Add(-time.Duration(days) * 24 * time.Hour)
		results, err := d.Store.Results(r.Context(), since)
		if err != nil {
			d.Logger.Error("list scans", logger.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "store unavailable"})
			return
		}
		if results == nil {
			results = []model.ScanResult{}
		}
		writeJSON(w, http.StatusOK, scansResponse{Since: since, Count: len(results), Scans: results})
	}
}
