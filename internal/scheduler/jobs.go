package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rsilvagit/go-airdrop/internal/filter"
	"github.com/rsilvagit/go-airdrop/internal/logger"
	"github.com/rsilvagit/go-airdrop/internal/model"
	"github.com/rsilvagit/go-airdrop/internal/output"
	"github.com/rsilvagit/go-airdrop/internal/store"
)

// Names of the built-in jobs.
const (
	JobScan     = "scan"
	JobReminder = "reminder"
	JobReport   = "report"
)

const reportWindow = 7 * 24 * time.Hour

// Scanner runs one scan cycle. *pipeline.Pipeline implements it.
type Scanner interface {
	Scan(ctx context.Context) model.ScanResult
}

// ScanJob scans, stores the result and hands it to the writers.
func ScanJob(sc Scanner, st store.Store, w output.ResultWriter, log logger.Logger) Job {
	return func(ctx context.Context) error {
		res := sc.Scan(ctx)
		log.Info("scan complete",
			logger.String("cycle_id", res.CycleID),
			logger.Int("found", res.TotalFound()),
			logger.Int("rejected", res.Rejected),
			logger.Int("duplicates", res.Duplicates),
		)

		if st != nil {
			if err := st.SaveResult(ctx, res); err != nil {
				log.Warn("could not store scan result", logger.Error(err))
			}
		}
		if err := w.WriteResult(ctx, res); err != nil {
			return fmt.Errorf("scan: notify: %w", err)
		}
		return nil
	}
}

// ReminderJob sends the daily task list, followed by the airdrops from the
// most recent stored scan when there is one.
func ReminderJob(tasks []string, st store.Store, w output.ResultWriter, now func() time.Time) Job {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context) error {
		var last *model.ScanResult
		if st != nil {
			res, err := st.LastResult(ctx)
			switch {
			case err == nil:
				last = &res
			case !errors.Is(err, store.ErrNotFound):
				return fmt.Errorf("reminder: load last result: %w", err)
			}
		}
		if err := w.WriteText(ctx, reminderText(now(), tasks, last)); err != nil {
			return fmt.Errorf("reminder: notify: %w", err)
		}
		return nil
	}
}

const reminderAirdrops = 10

func reminderText(at time.Time, tasks []string, last *model.ScanResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Daily airdrop reminder, %s\n", at.Format("January 2, 2006"))

	if len(tasks) > 0 {
		b.WriteString("\nDon't forget your daily tasks:\n")
		for _, t := range tasks {
			fmt.Fprintf(&b, "- %s\n", t)
		}
	}

	if last != nil && last.TotalFound() > 0 {
		fmt.Fprintf(&b, "\nFrom the last scan (%s):\n", last.ScanTime.Format("Jan 2 15:04"))
		for i, a := range last.Airdrops {
			if i == reminderAirdrops {
				fmt.Fprintf(&b, "... and %d more\n", last.TotalFound()-reminderAirdrops)
				break
			}
			if a.Link != "" {
				fmt.Fprintf(&b, "- %s: %s\n", a.Name, a.Link)
			} else {
				fmt.Fprintf(&b, "- %s\n", a.Name)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// ReportJob sends a weekly summary of the stored scan results. When nothing
// was stored during the week it runs a fresh scan to report on. Airdrops seen
// in several scans are counted once, matched by name under mode.
func ReportJob(sc Scanner, st store.Store, w output.ResultWriter, mode model.DedupMode, log logger.Logger, now func() time.Time) Job {
	if now == nil {
		now = time.Now
	}
	if mode == "" {
		mode = model.DedupNormalized
	}
	return func(ctx context.Context) error {
		at := now()
		since := at.Add(-reportWindow)

		var results []model.ScanResult
		if st != nil {
			var err error
			results, err = st.Results(ctx, since)
			if err != nil {
				return fmt.Errorf("report: load results: %w", err)
			}
		}
		if len(results) == 0 {
			log.Info("no scans stored this week, running a fresh scan")
			res := sc.Scan(ctx)
			if st != nil {
				if err := st.SaveResult(ctx, res); err != nil {
					log.Warn("could not store scan result", logger.Error(err))
				}
			}
			results = []model.ScanResult{res}
		}

		lastRuns := map[string]time.Time{}
		if st != nil {
			for _, job := range []string{JobScan, JobReminder} {
				if t, err := st.LastRun(ctx, job); err == nil {
					lastRuns[job] = t
				}
			}
		}

		if err := w.WriteText(ctx, reportText(since, at, results, lastRuns, mode)); err != nil {
			return fmt.Errorf("report: notify: %w", err)
		}
		return nil
	}
}

const reportLatest = 10

// reportText expects results newest first.
func reportText(since, at time.Time, results []model.ScanResult, lastRuns map[string]time.Time, mode model.DedupMode) string {
	var all []model.Airdrop
	perSource := map[string]int{}
	failures := 0
	for _, r := range results {
		all = append(all, r.Airdrops...)
		failures += len(r.Failed())
	}
	unique, _ := filter.Dedup(all, mode)

	free := 0
	for _, a := range unique {
		perSource[a.Source]++
		if a.IsFree() {
			free++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Weekly airdrop summary (%s - %s)\n\n", since.Format("Jan 2"), at.Format("Jan 2, 2006"))
	fmt.Fprintf(&b, "Scans: %d\n", len(results))
	fmt.Fprintf(&b, "Unique airdrops: %d\n", len(unique))
	fmt.Fprintf(&b, "Free to join: %d\n", free)
	fmt.Fprintf(&b, "Failed source fetches: %d\n", failures)

	if len(perSource) > 0 {
		sources := make([]string, 0, len(perSource))
		for s := range perSource {
			sources = append(sources, s)
		}
		sort.Slice(sources, func(i, j int) bool {
			if perSource[sources[i]] != perSource[sources[j]] {
				return perSource[sources[i]] > perSource[sources[j]]
			}
			return sources[i] < sources[j]
		})
		b.WriteString("\nBy source:\n")
		for _, s := range sources {
			fmt.Fprintf(&b, "- %s: %d\n", s, perSource[s])
		}
	}

	if len(unique) > 0 {
		b.WriteString("\nLatest:\n")
		for i, a := range unique {
			if i == reportLatest {
				break
			}
			line := fmt.Sprintf("- %s (%s)", a.Name, a.Source)
			if a.Value != "" {
				line += " " + a.Value
			}
			b.WriteString(line + "\n")
		}
	}

	if len(lastRuns) > 0 {
		b.WriteString("\nLast runs:\n")
		for _, job := range []string{JobScan, JobReminder} {
			if t, ok := lastRuns[job]; ok {
				fmt.Fprintf(&b, "- %s: %s\n", job, t.Format(time.RFC3339))
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
