// Package scheduler fires named jobs on cron schedules from a single
// polling loop.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rsilvagit/go-airdrop/internal/logger"
	"github.com/rsilvagit/go-airdrop/internal/metrics"
	"github.com/rsilvagit/go-airdrop/internal/store"
)

// PollInterval is how often Run evaluates the schedules.
const PollInterval = time.Minute

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSpec parses a five-field cron expression or a descriptor such as
// "@daily".
func ParseSpec(spec string) (cron.Schedule, error) {
	return parser.Parse(spec)
}

// Job is the unit of work attached to an entry.
type Job func(ctx context.Context) error

type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
)

// Entry is a named job and the schedule it fires on.
type Entry struct {
	Name string
	Spec string
	Job  Job

	schedule  cron.Schedule
	lastFired time.Time
	state     State
}

// EntryInfo is a read-only view of an entry.
type EntryInfo struct {
	Name      string    `json:"name"`
	Spec      string    `json:"spec"`
	State     State     `json:"state"`
	LastFired time.Time `json:"last_fired,omitempty"`
	Next      time.Time `json:"next"`
}

// Scheduler runs entries serially. A job that is still running when
// another entry's minute comes round makes that activation get skipped;
// it is neither queued nor run late. An activation that falls between two
// polls with no job running is fired by the later poll.
type Scheduler struct {
	mu      sync.Mutex
	entries []*Entry
	index   map[string]*Entry

	store   store.Store
	metrics *metrics.Metrics
	log     logger.Logger
	now     func() time.Time
	poll    time.Duration

	lastPoll time.Time // minute of the previous Tick
}

// New creates an empty scheduler. st records successful runs and may be nil.
func New(st store.Store, log logger.Logger, m *metrics.Metrics) *Scheduler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Scheduler{
		index:   make(map[string]*Entry),
		store:   st,
		metrics: m,
		log:     log.With(logger.String("component", "scheduler")),
		now:     time.Now,
		poll:    PollInterval,
	}
}

// Add registers job under name. The spec is validated immediately.
func (s *Scheduler) Add(name, spec string, job Job) error {
	if name == "" {
		return errors.New("scheduler: entry name is empty")
	}
	if job == nil {
		return fmt.Errorf("scheduler: entry %q has no job", name)
	}
	sched, err := ParseSpec(spec)
	if err != nil {
		return fmt.Errorf("scheduler: entry %q: invalid spec %q: %w", name, spec, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[name]; ok {
		return fmt.Errorf("scheduler: entry %q already registered", name)
	}
	e := &Entry{Name: name, Spec: spec, Job: job, schedule: sched, state: StateIdle}
	s.entries = append(s.entries, e)
	s.index[name] = e
	return nil
}

// State reports whether the named entry is idle or running.
func (s *Scheduler) State(name string) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.index[name]
	if !ok {
		return "", false
	}
	return e.state, true
}

// Entries describes every entry in registration order.
func (s *Scheduler) Entries() []EntryInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	out := make([]EntryInfo, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, EntryInfo{
			Name:      e.Name,
			Spec:      e.Spec,
			State:     e.state,
			LastFired: e.lastFired,
			Next:      e.schedule.Next(now),
		})
	}
	return out
}

// Tick fires every entry with an activation in the minutes since the
// previous poll, up to and including the minute containing now, in
// registration order. A poll that lands late, after a scheduler stall or a
// clock jump, still fires an activation it stepped over, once. Minutes that
// pass while a job runs are not looked at again. An entry fires at most once
// per minute no matter how often Tick is called. It returns the names of the
// entries it fired.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) []string {
	minute := now.Truncate(time.Minute)

	var fired []string
	for _, e := range s.due(minute) {
		if ctx.Err() != nil {
			break
		}
		fired = append(fired, e.Name)
		_ = s.run(ctx, e, now)
	}

	s.mu.Lock()
	s.lastPoll = minute
	if len(fired) > 0 {
		if done := s.now().Truncate(time.Minute); done.After(minute) {
			s.lastPoll = done
		}
	}
	s.mu.Unlock()
	return fired
}

// due marks and returns the entries with an activation in the window
// (lastPoll, minute]. On the first poll, or after the clock moved backwards,
// the window is the single minute.
func (s *Scheduler) due(minute time.Time) []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := minute.Add(-time.Second)
	if !s.lastPoll.IsZero() && !minute.Before(s.lastPoll) {
		from = s.lastPoll
	}

	var out []*Entry
	for _, e := range s.entries {
		after := from
		if e.lastFired.After(after) {
			after = e.lastFired
		}
		next := e.schedule.Next(after)
		if next.IsZero() || next.After(minute) {
			continue
		}
		if next.Before(minute) {
			s.log.Warn("running late activation",
				logger.String("job", e.Name),
				logger.Time("scheduled_for", next),
				logger.Time("poll_minute", minute))
		}
		e.lastFired = minute
		out = append(out, e)
	}
	return out
}

// RunNow runs the named entry immediately, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	e, ok := s.index[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("scheduler: unknown entry %q", name)
	}
	return s.run(ctx, e, s.now())
}

// run executes one job with failure containment: errors and panics are
// logged and counted, never propagated to the loop.
func (s *Scheduler) run(ctx context.Context, e *Entry, at time.Time) (err error) {
	log := s.log.With(logger.String("job", e.Name))

	s.setState(e, StateRunning)
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scheduler: job %q panicked: %v", e.Name, r)
			log.Error("job panicked", logger.Any("panic", r), logger.Stack("stack"))
		}
		s.setState(e, StateIdle)
		s.metrics.ObserveJob(e.Name, err)

		elapsed := time.Since(start)
		if err != nil {
			log.Error("job failed", logger.Error(err), logger.Duration("elapsed", elapsed))
			return
		}
		log.Info("job finished", logger.Duration("elapsed", elapsed))
		s.markRun(ctx, e.Name, at)
	}()

	log.Info("job started")
	return e.Job(ctx)
}

func (s *Scheduler) setState(e *Entry, st State) {
	s.mu.Lock()
	e.state = st
	s.mu.Unlock()
}

func (s *Scheduler) markRun(ctx context.Context, name string, at time.Time) {
	if s.store == nil {
		return
	}
	if err := s.store.MarkRun(ctx, name, at); err != nil {
		s.log.Warn("could not record job run", logger.String("job", name), logger.Error(err))
	}
}

// CheckMissed compares each entry's last recorded run against its schedule
// and logs activations that passed while the process was down. With
// backfill set, each entry that missed at least one activation runs once.
// It returns the names of those entries.
func (s *Scheduler) CheckMissed(ctx context.Context, backfill bool) []string {
	if s.store == nil {
		return nil
	}
	now := s.now()

	s.mu.Lock()
	entries := append([]*Entry(nil), s.entries...)
	s.mu.Unlock()

	var missed []string
	for _, e := range entries {
		last, err := s.store.LastRun(ctx, e.Name)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			s.log.Warn("could not read last run", logger.String("job", e.Name), logger.Error(err))
			continue
		}

		next := e.schedule.Next(last)
		if next.After(now) {
			continue
		}
		missed = append(missed, e.Name)
		s.log.Warn("missed scheduled run",
			logger.String("job", e.Name),
			logger.Time("last_run", last),
			logger.Time("missed_at", next),
			logger.Bool("backfill", backfill),
		)
		if backfill {
			_ = s.run(ctx, e, now)
		}
	}
	return missed
}

// Run ticks once immediately and then every poll interval until ctx is
// cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("scheduler started", logger.Int("entries", len(s.Entries())))
	for _, e := range s.Entries() {
		s.log.Info("scheduled", logger.String("job", e.Name), logger.String("spec", e.Spec), logger.Time("next", e.Next))
	}

	s.Tick(ctx, s.now())

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			s.Tick(ctx, s.now())
		}
	}
}
