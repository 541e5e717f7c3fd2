package mw

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/rsilvagit/go-airdrop/internal/logger"
)

// AccessLog logs every request once it has been served. Requests for a
// path in quiet go to debug, the rest to info.
func AccessLog(log logger.Logger, quiet ...string) func(http.Handler) http.Handler {
	debugOnly := make(map[string]bool, len(quiet))
	for _, p := range quiet {
		debugOnly[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				write := log.Info
				if debugOnly[r.URL.Path] {
					write = log.Debug
				}
				write("served",
					logger.String("request_id", middleware.GetReqID(r.Context())),
					logger.String("method", r.Method),
					logger.String("path", r.URL.Path),
					logger.Int("status", status),
					logger.Int("bytes", ww.BytesWritten()),
					logger.Duration("took", time.Since(start)),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
