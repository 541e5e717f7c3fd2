package model

import "time"

// SourceStatus describes how a single source fared during one scan cycle.
type SourceStatus string

const (
	StatusOK             SourceStatus = "ok"
	StatusEmpty          SourceStatus = "empty"
	StatusMismatch       SourceStatus = "mismatch"
	StatusTransportError SourceStatus = "transport_error"
	StatusError          SourceStatus = "error"
)

// SourceReport is the per-source outcome of one cycle.
type SourceReport struct {
	Source   string        `json:"source"`
	Status   SourceStatus  `json:"status"`
	Found    int           `json:"found"`
	Accepted int           `json:"accepted"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// ScanResult is the filtered, deduplicated output of one pipeline execution.
type ScanResult struct {
	CycleID    string         `json:"cycle_id"`
	ScanTime   time.Time      `json:"scan_time"`
	Airdrops   []Airdrop      `json:"airdrops"`
	Sources    []SourceReport `json:"sources"`
	Rejected   int            `json:"rejected"`
	Duplicates int            `json:"duplicates"`
}

// TotalFound returns the number of airdrops that survived filtering and dedup.
func (r ScanResult) TotalFound() int {
	return len(r.Airdrops)
}

// Counts returns how many surviving airdrops each source contributed.
func (r ScanResult) Counts() map[string]int {
	counts := make(map[string]int, len(r.Sources))
	for _, s := range r.Sources {
		counts[s.Source] = 0
	}
	for _, a := range r.Airdrops {
		counts[a.Source]++
	}
	return counts
}

// Failed returns the reports of sources that contributed nothing because of an error.
func (r ScanResult) Failed() []SourceReport {
	var out []SourceReport
	for _, s := range r.Sources {
		switch s.Status {
		case StatusMismatch, StatusTransportError, StatusError:
			out = append(out, s)
		}
	}
	return out
}
