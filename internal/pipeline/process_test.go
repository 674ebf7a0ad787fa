package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mailcannon/internal"
	"mailcannon/internal/config"
	"mailcannon/internal/logging"
	"mailcannon/internal/report"
	"mailcannon/internal/storage"
	"mailcannon/internal/theseus"
	"mailcannon/internal/validate"
)

const header = "first_name,last_name,email,line_1,line_2,city,state,postal_code,country,S1,S2,S3,S4,S5,S6,S7,S8,S9,S10,S11,S12,attendee_count"

func csvRow(email string, qty ...string) string {
	cells := []string{"Ada", "", email, "1 Main St", "", "Springfield", "IL", "62701", "US"}
	for i := 0; i < 12; i++ {
		if i < len(qty) {
			cells = append(cells, qty[i])
		} else {
			cells = append(cells, "0")
		}
	}
	return strings.Join(append(cells, "3"), ",")
}

type harness struct {
	cfg     config.Config
	dir     string
	hits    *atomic.Int32
	mu      *sync.Mutex
	emails  *[]string
	server  *httptest.Server
	runLog  *logging.RunLog
	db      *storage.DB
	service *BatchService
	run     report.Run
}

func newHarness(t *testing.T, reject map[string]int) *harness {
	t.Helper()
	dir := t.TempDir()
	hits := &atomic.Int32{}
	var emails []string
	mu := &sync.Mutex{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		require.Equal(t, "Bearer live-key", r.Header.Get("Authorization"))
		var p theseus.Payload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		mu.Lock()
		emails = append(emails, p.WarehouseOrder.RecipientEmail)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if status, ok := reject[p.WarehouseOrder.RecipientEmail]; ok {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":"Destination country is not supported"}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = fmt.Fprintf(w, `{"id":"who_%d"}`, n)
	}))
	t.Cleanup(server.Close)

	skus := make([]string, 0, 12)
	for i := 1; i <= 12; i++ {
		skus = append(skus, fmt.Sprintf("S%d", i))
	}
	cfg := config.Config{
		ConfigPath:     filepath.Join(dir, "config.json"),
		OutputDir:      filepath.Join(dir, "logs"),
		TheseusBaseURL: server.URL,
		APIKey:         "live-key",
		Tags:           []string{"hackathon-2026"},
		SKUs:           skus,
		TimeoutMs:      5000,
		DelayMs:        1,
	}

	run := report.NewRun(time.Now())
	runLog, err := logging.Open(run.LogPath(cfg.OutputDir), &strings.Builder{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = runLog.Close() })

	db, err := storage.Open(filepath.Join(dir, "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	client := theseus.NewClient(cfg, runLog.Logger)
	return &harness{
		cfg:     cfg,
		dir:     dir,
		hits:    hits,
		mu:      mu,
		emails:  &emails,
		server:  server,
		runLog:  runLog,
		db:      db,
		service: NewBatchService(cfg, db, client, runLog.Logger),
		run:     run,
	}
}

func (h *harness) writeCSV(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(h.dir, "orders.csv")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func (h *harness) logText(t *testing.T) string {
	t.Helper()
	_ = h.runLog.Logger.Sync()
	blob, err := os.ReadFile(h.runLog.Path)
	require.NoError(t, err)
	return string(blob)
}

func TestRunRejectedBatchSendsNothing(t *testing.T) {
	h := newHarness(t, nil)
	path := h.writeCSV(t, header,
		csvRow("a@example.com", "1"),
		csvRow("", "1"),
		csvRow("c@example.com", "-1"),
	)

	res, err := h.service.Run(context.Background(), h.run, RunOptions{Source: path})

	var rejected *validate.BatchRejectedError
	require.True(t, errors.As(err, &rejected))
	require.Len(t, rejected.Errors, 1)
	require.Contains(t, rejected.Errors[0].Error(), "row 3: invalid quantity for S1")
	require.Equal(t, []int{3}, res.Validation.Skipped)

	require.Zero(t, h.hits.Load())
	require.Nil(t, res.Summary)
	_, statErr := os.Stat(h.run.ResultsPath(h.cfg.OutputDir))
	require.True(t, os.IsNotExist(statErr), "no results file for a rejected batch")
	require.Contains(t, h.logText(t), "row 3: invalid quantity for S1")

	runs, err := h.db.ListRuns(10)
	require.NoError(t, err)
	require.Empty(t, runs)
}

func TestRunOneBadRowOfFive(t *testing.T) {
	h := newHarness(t, nil)
	path := h.writeCSV(t, header,
		csvRow("a@example.com", "1"),
		csvRow("b@example.com", "1"),
		csvRow("c@example.com", "0", "x"),
		csvRow("d@example.com", "1"),
		csvRow("e@example.com", "1"),
	)

	_, err := h.service.Run(context.Background(), h.run, RunOptions{Source: path})
	require.Error(t, err)
	require.Zero(t, h.hits.Load())
}

func TestRunDispatchesEveryRowInOrder(t *testing.T) {
	h := newHarness(t, map[string]int{"b@example.com": http.StatusUnprocessableEntity})
	path := h.writeCSV(t, header,
		csvRow("a@example.com", "2", "0", "5"),
		csvRow("", "9"),
		csvRow("b@example.com", "1"),
		csvRow("c@example.com", "0", "0", "0", "4"),
	)

	res, err := h.service.Run(context.Background(), h.run, RunOptions{Source: path})
	require.NoError(t, err)

	require.EqualValues(t, 3, h.hits.Load())
	h.mu.Lock()
	require.Equal(t, []string{"a@example.com", "b@example.com", "c@example.com"}, *h.emails)
	h.mu.Unlock()

	s := res.Summary
	require.NotNil(t, s)
	require.Equal(t, 3, s.Total)
	require.Equal(t, 2, s.Succeeded)
	require.Equal(t, 1, s.Failed)
	require.Equal(t, []int{2, 3, 4}, []int{s.Orders[0].Row, s.Orders[1].Row, s.Orders[2].Row})
	require.Equal(t, internal.OutcomeFailed, s.Orders[1].Status)
	require.Equal(t, http.StatusUnprocessableEntity, s.Orders[1].HTTPStatus)
	require.Equal(t, internal.OutcomeSent, s.Orders[2].Status)

	var first theseus.Payload
	require.NoError(t, json.Unmarshal(s.Orders[0].Request, &first))
	require.Equal(t, []theseus.ContentLine{{SKU: "S1", Quantity: 2}, {SKU: "S3", Quantity: 5}}, first.Contents)
	require.Equal(t, []string{"hackathon-2026"}, first.WarehouseOrder.Tags)

	blob, err := os.ReadFile(res.SummaryPath)
	require.NoError(t, err)
	var onDisk internal.BatchSummary
	require.NoError(t, json.Unmarshal(blob, &onDisk))
	require.Equal(t, s.RunID, onDisk.RunID)
	require.Len(t, onDisk.Orders, 3)

	logText := h.logText(t)
	require.Contains(t, logText, "Destination country is not supported")
	require.Contains(t, logText, "DEBUG | request body")
	require.Contains(t, logText, `INFO | COMPLETE | {"succeeded": 2, "failed": 1, "total": 3}`)
	require.Contains(t, logText, `ERROR | FAILED | {"row": 3, "email": "b@example.com", "http_status": 422`)

	stored, err := h.db.GetOutcomes(s.RunID)
	require.NoError(t, err)
	require.Len(t, stored, 3)
}

func TestRunDryRunMatchesLiveValidation(t *testing.T) {
	h := newHarness(t, nil)
	path := h.writeCSV(t, header,
		csvRow("a@example.com", "1"),
		csvRow("", "1"),
		csvRow("b@example.com", "0", "3"),
	)

	dry, err := h.service.Run(context.Background(), h.run, RunOptions{Source: path, DryRun: true})
	require.NoError(t, err)
	require.Zero(t, h.hits.Load())
	require.True(t, dry.Summary.DryRun)
	require.Equal(t, 2, dry.Summary.Total)
	for _, o := range dry.Summary.Orders {
		require.Equal(t, internal.OutcomeDryRun, o.Status)
	}

	live, err := h.service.Run(context.Background(), report.NewRun(time.Now().Add(time.Second)), RunOptions{Source: path})
	require.NoError(t, err)
	require.EqualValues(t, 2, h.hits.Load())
	require.Equal(t, dry.Validation, live.Validation)
}

func TestRunValidateOnly(t *testing.T) {
	h := newHarness(t, nil)
	path := h.writeCSV(t, header, csvRow("a@example.com", "1"))

	res, err := h.service.Run(context.Background(), h.run, RunOptions{Source: path, ValidateOnly: true})
	require.NoError(t, err)
	require.Zero(t, h.hits.Load())
	require.Nil(t, res.Summary)
	require.Len(t, res.Validation.Rows, 1)
}

func TestRunMissingFile(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.service.Run(context.Background(), h.run, RunOptions{Source: filepath.Join(h.dir, "nope.csv")})
	require.Error(t, err)
	var rejected *validate.BatchRejectedError
	require.False(t, errors.As(err, &rejected))
}
