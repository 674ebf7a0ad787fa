package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"mailcannon/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  runId TEXT NOT NULL UNIQUE,
  runAt TEXT NOT NULL,
  source TEXT NOT NULL,
  dryRun INTEGER NOT NULL DEFAULT 0,
  total INTEGER NOT NULL,
  succeeded INTEGER NOT NULL,
  failed INTEGER NOT NULL,
  summaryPath TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS outcomes (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  runId TEXT NOT NULL,
  rowNo INTEGER NOT NULL,
  email TEXT NOT NULL,
  status TEXT NOT NULL,
  orderId TEXT,
  httpStatus INTEGER,
  requestJson TEXT,
  responseJson TEXT,
  error TEXT,
  skuLines INTEGER NOT NULL,
  durationMs INTEGER NOT NULL,
  UNIQUE(runId, rowNo),
  FOREIGN KEY(runId) REFERENCES runs(runId)
);
CREATE INDEX IF NOT EXISTS idx_outcomes_email ON outcomes(email);
`

	_, err := d.conn.Exec(schema)
	return err
}

// InsertRun stores a finished batch and all of its outcomes in one
// transaction.
func (d *DB) InsertRun(summary internal.BatchSummary, summaryPath string) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
INSERT INTO runs (runId, runAt, source, dryRun, total, succeeded, failed, summaryPath)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, summary.RunID, summary.RunAt, summary.CSV, boolInt(summary.DryRun), summary.Total, summary.Succeeded, summary.Failed, summaryPath); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(`
INSERT INTO outcomes (runId, rowNo, email, status, orderId, httpStatus, requestJson, responseJson, error, skuLines, durationMs)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, o := range summary.Orders {
		if _, err := stmt.Exec(
			summary.RunID, o.Row, o.Email, string(o.Status), nullString(o.OrderID), nullInt(o.HTTPStatus),
			nullString(string(o.Request)), nullString(string(o.Response)), nullString(o.Error), o.SKULines, o.DurationMs,
		); err != nil {
			return fmt.Errorf("insert outcome row %d: %w", o.Row, err)
		}
	}

	return tx.Commit()
}

func (d *DB) ListRuns(limit int) ([]internal.RunRecord, error) {
	rows, err := d.conn.Query(`
SELECT id, runId, runAt, source, dryRun, total, succeeded, failed, COALESCE(summaryPath, '')
FROM runs ORDER BY id DESC LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RunRecord
	for rows.Next() {
		var r internal.RunRecord
		if err := rows.Scan(&r.ID, &r.RunID, &r.RunAt, &r.Source, &r.DryRun, &r.Total, &r.Succeeded, &r.Failed, &r.SummaryPath); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (d *DB) GetRun(runID string) (*internal.RunRecord, error) {
	var r internal.RunRecord
	err := d.conn.QueryRow(`
SELECT id, runId, runAt, source, dryRun, total, succeeded, failed, COALESCE(summaryPath, '')
FROM runs WHERE runId = ?
`, runID).Scan(&r.ID, &r.RunID, &r.RunAt, &r.Source, &r.DryRun, &r.Total, &r.Succeeded, &r.Failed, &r.SummaryPath)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (d *DB) GetOutcomes(runID string) ([]internal.OrderOutcome, error) {
	rows, err := d.conn.Query(`
SELECT rowNo, email, status, orderId, httpStatus, requestJson, responseJson, error, skuLines, durationMs
FROM outcomes WHERE runId = ? ORDER BY rowNo ASC
`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.OrderOutcome
	for rows.Next() {
		var (
			o                                    internal.OrderOutcome
			status                               string
			orderID, request, response, errorMsg sql.NullString
			httpStatus                           sql.NullInt64
		)
		if err := rows.Scan(&o.Row, &o.Email, &status, &orderID, &httpStatus, &request, &response, &errorMsg, &o.SKULines, &o.DurationMs); err != nil {
			return nil, err
		}
		o.Status = internal.OutcomeStatus(status)
		o.OrderID = orderID.String
		o.HTTPStatus = int(httpStatus.Int64)
		if request.Valid {
			o.Request = []byte(request.String)
		}
		if response.Valid {
			o.Response = []byte(response.String)
		}
		o.Error = errorMsg.String
		out = append(out, o)
	}
	return out, rows.Err()
}

// MustRun is GetRun that treats a missing run as an error.
func (d *DB) MustRun(runID string) (internal.RunRecord, error) {
	run, err := d.GetRun(runID)
	if err != nil {
		return internal.RunRecord{}, err
	}
	if run == nil {
		return internal.RunRecord{}, fmt.Errorf("run not found: %s", runID)
	}
	return *run, nil
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func nullInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}
