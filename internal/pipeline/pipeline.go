package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rsilvagit/go-airdrop/internal/filter"
	"github.com/rsilvagit/go-airdrop/internal/httpclient"
	"github.com/rsilvagit/go-airdrop/internal/logger"
	"github.com/rsilvagit/go-airdrop/internal/metrics"
	"github.com/rsilvagit/go-airdrop/internal/model"
	"github.com/rsilvagit/go-airdrop/internal/scraper"
)

// Cycle carries the state of one pipeline execution. It is created by the
// caller (usually a scheduled job) and passed through every stage.
type Cycle struct {
	ID        string
	StartedAt time.Time
	Log       logger.Logger
}

// Pipeline runs fetch, parse, legitimacy filter and dedup over a fixed,
// ordered list of sources.
type Pipeline struct {
	sources   []scraper.Source
	blocklist *filter.Blocklist
	mode      model.DedupMode
	log       logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// New builds a pipeline. The order of sources is the dedup priority order.
func New(sources []scraper.Source, blocklist *filter.Blocklist, mode model.DedupMode, log logger.Logger, m *metrics.Metrics) *Pipeline {
	if log == nil {
		log = logger.NewNop()
	}
	if blocklist == nil {
		blocklist = filter.NewBlocklist(filter.DefaultBlocklist)
	}
	return &Pipeline{
		sources:   sources,
		blocklist: blocklist,
		mode:      mode,
		log:       log,
		metrics:   m,
		now:       time.Now,
	}
}

// Sources returns the configured source names in priority order.
func (p *Pipeline) Sources() []string {
	out := make([]string, 0, len(p.sources))
	for _, s := range p.sources {
		out = append(out, s.Name())
	}
	return out
}

// NewCycle starts a new cycle with a fresh id.
func (p *Pipeline) NewCycle() *Cycle {
	id := uuid.NewString()
	return &Cycle{
		ID:        id,
		StartedAt: p.now(),
		Log:       p.log.With(logger.String("cycle_id", id)),
	}
}

// Scan is NewCycle followed by Run.
func (p *Pipeline) Scan(ctx context.Context) model.ScanResult {
	return p.Run(ctx, p.NewCycle())
}

type sourceOutcome struct {
	airdrops []model.Airdrop
	report   model.SourceReport
}

// Run executes one cycle. Source failures are recorded in the result's
// reports and never returned: the cycle always yields whatever the healthy
// sources produced.
func (p *Pipeline) Run(ctx context.Context, c *Cycle) model.ScanResult {
	c.Log.Info("scan started", logger.Int("sources", len(p.sources)))

	outcomes := make([]sourceOutcome, len(p.sources))
	var wg sync.WaitGroup
	for i, s := range p.sources {
		wg.Add(1)
		go func(i int, s scraper.Source) {
			defer wg.Done()
			outcomes[i] = p.scrape(ctx, c, s)
		}(i, s)
	}
	wg.Wait()

	res := model.ScanResult{
		CycleID:  c.ID,
		ScanTime: c.StartedAt,
		Sources:  make([]model.SourceReport, 0, len(outcomes)),
	}

	var merged []model.Airdrop
	for _, o := range outcomes {
		kept, rejected := p.blocklist.Apply(o.airdrops)
		o.report.Accepted = len(kept)
		res.Rejected += rejected
		res.Sources = append(res.Sources, o.report)
		merged = append(merged, kept...)
	}

	res.Airdrops, res.Duplicates = filter.Dedup(merged, p.mode)
	if res.Airdrops == nil {
		res.Airdrops = []model.Airdrop{}
	}

	elapsed := p.now().Sub(c.StartedAt)
	p.metrics.ObserveScan(res, elapsed)

	c.Log.Info("scan finished",
		logger.Int("total_found", res.TotalFound()),
		logger.Int("rejected", res.Rejected),
		logger.Int("duplicates", res.Duplicates),
		logger.Int("failed_sources", len(res.Failed())),
		logger.Duration("elapsed", elapsed))

	return res
}

func (p *Pipeline) scrape(ctx context.Context, c *Cycle, s scraper.Source) (out sourceOutcome) {
	start := p.now()
	log := c.Log.With(logger.String("source", s.Name()))
	out.report = model.SourceReport{Source: s.Name()}

	defer func() {
		if r := recover(); r != nil {
			log.Error("source panicked", logger.Any("panic", r), logger.Stack("stack"))
			out.airdrops = nil
			out.report.Status = model.StatusError
			out.report.Error = fmt.Sprintf("panic: %v", r)
		}
		out.report.Duration = p.now().Sub(start)
	}()

	airdrops, err := s.Scrape(ctx)
	out.report.Found = len(airdrops)
	out.report.Status = classify(airdrops, err)

	switch out.report.Status {
	case model.StatusOK:
		out.airdrops = airdrops
		log.Debug("source scraped", logger.Int("found", len(airdrops)))
	case model.StatusEmpty:
		log.Info("no airdrops found on source")
	case model.StatusMismatch:
		out.report.Error = err.Error()
		log.Warn("page no longer matches layout, source contributed nothing", logger.Error(err))
	case model.StatusTransportError:
		out.report.Error = err.Error()
		log.Warn("fetch failed, skipping source for this cycle", logger.Error(err))
	default:
		out.report.Error = err.Error()
		log.Error("source failed", logger.Error(err))
	}
	return out
}

func classify(airdrops []model.Airdrop, err error) model.SourceStatus {
	switch {
	case err == nil && len(airdrops) == 0:
		return model.StatusEmpty
	case err == nil:
		return model.StatusOK
	case errors.Is(err, scraper.ErrExtractionMismatch):
		return model.StatusMismatch
	case httpclient.IsTransport(err), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return model.StatusTransportError
	default:
		return model.StatusError
	}
}
