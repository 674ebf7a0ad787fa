package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"mailcannon/internal"
)

func TestRunPathsShareStamp(t *testing.T) {
	run := NewRun(time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC))
	require.Equal(t, "20260304_050607", run.Stamp)
	require.Equal(t, filepath.Join("logs", "mail_cannon_20260304_050607.log"), run.LogPath("logs"))
	require.Equal(t, filepath.Join("logs", "mail_cannon_20260304_050607_results.json"), run.ResultsPath("logs"))
	require.NotEmpty(t, run.ID)
}

func TestRecorderSummary(t *testing.T) {
	run := NewRun(time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC))
	rec := NewRecorder(run, "orders.csv", false)
	rec.Add(internal.OrderOutcome{Row: 2, Email: "a@x", Status: internal.OutcomeSent, OrderID: "1"})
	rec.Add(internal.OrderOutcome{Row: 3, Email: "b@x", Status: internal.OutcomeFailed, Error: "boom"})
	rec.Add(internal.OrderOutcome{Row: 5, Email: "c@x", Status: internal.OutcomeSent, OrderID: "2"})

	s := rec.Summary()
	require.Equal(t, run.ID, s.RunID)
	require.Equal(t, "2026-03-04T05:06:07Z", s.RunAt)
	require.Equal(t, 3, s.Total)
	require.Equal(t, 2, s.Succeeded)
	require.Equal(t, 1, s.Failed)
	require.Equal(t, []int{2, 3, 5}, []int{s.Orders[0].Row, s.Orders[1].Row, s.Orders[2].Row})

	path := run.ResultsPath(t.TempDir())
	require.NoError(t, WriteSummary(path, s))
	blob, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(blob, &decoded))
	require.Equal(t, "orders.csv", decoded["csv"])
	require.EqualValues(t, 1, decoded["failed"])
	require.Len(t, decoded["orders"], 3)
}

func TestExportOutcomesToXLSX(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out", "run.xlsx")
	run := internal.RunRecord{RunID: "r1", RunAt: "t", Source: "orders.csv", Total: 2, Succeeded: 1, Failed: 1}
	outcomes := []internal.OrderOutcome{
		{Row: 2, Email: "a@x", Status: internal.OutcomeSent, OrderID: "who_1", HTTPStatus: 201},
		{Row: 3, Email: "b@x", Status: internal.OutcomeFailed, Error: "HTTP 422: blocked"},
	}
	require.NoError(t, ExportOutcomesToXLSX(run, outcomes, out))

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "row", rows[0][0])
	require.Equal(t, []string{"2", "a@x", "sent", "who_1", "201"}, rows[1][:5])
	require.True(t, strings.HasPrefix(rows[2][7], "HTTP 422"))

	summary, err := f.GetRows("Summary")
	require.NoError(t, err)
	require.Equal(t, []string{"failed", "1"}, summary[6])
}
