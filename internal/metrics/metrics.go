// Package metrics exposes Prometheus instruments for scan cycles and jobs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rsilvagit/go-airdrop/internal/model"
)

const namespace = "goairdrop"

// Metrics holds every collector the pipeline and scheduler update.
type Metrics struct {
	ScanCycles    prometheus.Counter
	ScanDuration  prometheus.Histogram
	SourceFetches *prometheus.CounterVec
	AirdropsFound prometheus.Gauge
	Rejected      prometheus.Counter
	Duplicates    prometheus.Counter
	JobRuns       *prometheus.CounterVec
	LastScan      prometheus.Gauge
}

// New creates and registers the collectors on reg. A nil reg gets a fresh
// private registry so tests and multiple pipelines never collide.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		ScanCycles: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_cycles_total",
			Help:      "Total number of completed scan cycles",
		}),
		ScanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Wall time of one scan cycle",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		SourceFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_fetch_total",
			Help:      "Source scrapes by outcome",
		}, []string{"source", "status"}),
		AirdropsFound: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "airdrops_found",
			Help:      "Airdrops in the most recent scan result",
		}),
		Rejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "airdrops_rejected_total",
			Help:      "Airdrops rejected by the legitimacy filter",
		}),
		Duplicates: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "airdrops_duplicate_total",
			Help:      "Airdrops dropped as duplicates",
		}),
		JobRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Scheduled job executions by result",
		}, []string{"job", "result"}),
		LastScan: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_scan_timestamp_seconds",
			Help:      "Unix time of the most recent scan cycle",
		}),
	}
}

// ObserveScan records one finished cycle.
func (m *Metrics) ObserveScan(res model.ScanResult, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ScanCycles.Inc()
	m.ScanDuration.Observe(elapsed.Seconds())
	m.AirdropsFound.Set(float64(res.TotalFound()))
	m.Rejected.Add(float64(res.Rejected))
	m.Duplicates.Add(float64(res.Duplicates))
	m.LastScan.Set(float64(res.ScanTime.Unix()))
	for _, s := range res.Sources {
		m.SourceFetches.WithLabelValues(s.Source, string(s.Status)).Inc()
	}
}

// ObserveJob records the outcome of one scheduled job run.
func (m *Metrics) ObserveJob(job string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.JobRuns.WithLabelValues(job, result).Inc()
}
