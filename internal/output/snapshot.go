package output

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rsilvagit/go-airdrop/internal/model"
)

// Snapshot is the on-disk diagnostic document. It is overwritten on every
// scan and never read back by the pipeline.
type Snapshot struct {
	ScanTime   time.Time       `json:"scan_time"`
	TotalFound int             `json:"total_found"`
	Airdrops   []model.Airdrop `json:"airdrops"`
}

// SnapshotWriter dumps each scan result to a JSON file.
type SnapshotWriter struct {
	path string
}

func NewSnapshotWriter(path string) *SnapshotWriter {
	return &SnapshotWriter{path: path}
}

func (sw *SnapshotWriter) Path() string {
	return sw.path
}

func (sw *SnapshotWriter) WriteResult(_ context.Context, res model.ScanResult) error {
	airdrops := res.Airdrops
	if airdrops == nil {
		airdrops = []model.Airdrop{}
	}
	data, err := json.MarshalIndent(Snapshot{
		ScanTime:   res.ScanTime,
		TotalFound: res.TotalFound(),
		Airdrops:   airdrops,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot: marshal: %w", err)
	}

	dir := filepath.Dir(sw.path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("snapshot: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("snapshot: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("snapshot: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), sw.path); err != nil {
		return fmt.Errorf("snapshot: rename: %w", err)
	}
	return nil
}

// WriteText is a no-op: notices are not part of the snapshot.
func (sw *SnapshotWriter) WriteText(context.Context, string) error {
	return nil
}
