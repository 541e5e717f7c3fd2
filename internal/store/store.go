package store

import (
	"context"
	"errors"
	"time"

	"github.com/rsilvagit/go-airdrop/internal/model"
)

// ErrNotFound is returned when no value has been recorded yet.
var ErrNotFound = errors.New("store: not found")

// historyLimit caps how many past scan results are kept.
const historyLimit = 64

// Store keeps the latest scan results and per-job last-run times across
// process restarts. The snapshot file is diagnostic only; this is the state
// the scheduler and reports read back.
type Store interface {
	SaveResult(ctx context.Context, res model.ScanResult) error
	LastResult(ctx context.Context) (model.ScanResult, error)
	// Results returns stored results with ScanTime at or after since, newest first.
	Results(ctx context.Context, since time.Time) ([]model.ScanResult, error)
	MarkRun(ctx context.Context, job string, at time.Time) error
	LastRun(ctx context.Context, job string) (time.Time, error)
	Ping(ctx context.Context) error
	Close() error
}
