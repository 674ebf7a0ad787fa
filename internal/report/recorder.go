package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"mailcannon/internal"
)

// Recorder buffers outcomes in memory; batches are one row per physical
// recipient so nothing is flushed until the run is over.
type Recorder struct {
	run      Run
	source   string
	dryRun   bool
	outcomes []internal.OrderOutcome
}

func NewRecorder(run Run, source string, dryRun bool) *Recorder {
	return &Recorder{run: run, source: source, dryRun: dryRun}
}

func (r *Recorder) Add(outcome internal.OrderOutcome) {
	r.outcomes = append(r.outcomes, outcome)
}

func (r *Recorder) Summary() internal.BatchSummary {
	s := internal.BatchSummary{
		RunID:  r.run.ID,
		RunAt:  r.run.At.Format(time.RFC3339),
		CSV:    r.source,
		DryRun: r.dryRun,
		Total:  len(r.outcomes),
		Orders: make([]internal.OrderOutcome, len(r.outcomes)),
	}
	copy(s.Orders, r.outcomes)
	for _, o := range r.outcomes {
		switch o.Status {
		case internal.OutcomeSent, internal.OutcomeDryRun:
			s.Succeeded++
		case internal.OutcomeFailed:
			s.Failed++
		}
	}
	return s
}

func WriteSummary(path string, summary internal.BatchSummary) error {
	blob, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, blob, 0o644)
}
