package report

import (
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const stampLayout = "20060102_150405"

// Run identifies one invocation. Its stamp names both the log file and the
// results file so they can be matched up by eye.
type Run struct {
	ID    string
	At    time.Time
	Stamp string
}

func NewRun(now time.Time) Run {
	at := now.UTC()
	return Run{
		ID:    uuid.NewString(),
		At:    at,
		Stamp: at.Format(stampLayout),
	}
}

func (r Run) LogPath(dir string) string {
	return filepath.Join(dir, "mail_cannon_"+r.Stamp+".log")
}

func (r Run) ResultsPath(dir string) string {
	return filepath.Join(dir, "mail_cannon_"+r.Stamp+"_results.json")
}
