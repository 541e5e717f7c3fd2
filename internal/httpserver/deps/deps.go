package deps

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rsilvagit/go-airdrop/internal/logger"
	"github.com/rsilvagit/go-airdrop/internal/scheduler"
	"github.com/rsilvagit/go-airdrop/internal/store"
)

type Deps struct {
	Logger    logger.Logger
	StartTime time.Time
	Version   string
	Commit    string
	BuildDate string
	GoVersion string
	TimeNow   func() time.Time // for testing, defaults to time.Now

	Store    store.Store                   // scan results and last-run times
	Gatherer prometheus.Gatherer           // exposed on /metrics
	Jobs     func() []scheduler.EntryInfo // nil when no scheduler runs
}

func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
