package report

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"mailcannon/internal"
)

// ExportOutcomesToXLSX writes one sheet row per outcome, in row order.
func ExportOutcomesToXLSX(run internal.RunRecord, outcomes []internal.OrderOutcome, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	headers := []string{
		"row", "email", "status", "order_id", "http_status", "sku_lines", "duration_ms", "error", "response",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, o := range outcomes {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, o.Row)
		set(2, o.Email)
		set(3, string(o.Status))
		set(4, o.OrderID)
		set(5, blankZero(o.HTTPStatus))
		set(6, o.SKULines)
		set(7, o.DurationMs)
		set(8, o.Error)
		set(9, string(o.Response))
	}

	summary := "Summary"
	if _, err := f.NewSheet(summary); err != nil {
		return err
	}
	rows := [][]any{
		{"run_id", run.RunID},
		{"run_at", run.RunAt},
		{"source", run.Source},
		{"dry_run", run.DryRun},
		{"total", run.Total},
		{"succeeded", run.Succeeded},
		{"failed", run.Failed},
	}
	for i, kv := range rows {
		for j, v := range kv {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+1)
			_ = f.SetCellValue(summary, cell, v)
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func blankZero(v int) any {
	if v == 0 {
		return ""
	}
	return v
}
