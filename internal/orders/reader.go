package orders

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"mailcannon/internal/util"
)

// Record is one data row keyed by header column. Line is the 1-based
// physical line the record starts on; the header is line 1.
type Record struct {
	Line   int
	Values map[string]string
}

func (r Record) Get(column string) string {
	return util.CleanCell(r.Values[column])
}

type Sheet struct {
	Header  []string
	Records []Record
}

// ReadFile loads an orders sheet. Files ending in .xlsx are read from their
// first worksheet, everything else is treated as CSV.
func ReadFile(path string) (Sheet, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return Sheet{}, err
	}
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ReadXLSX(blob)
	}
	return ReadCSV(bytes.NewReader(blob))
}

func ReadCSV(r io.Reader) (Sheet, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return Sheet{}, errors.New("orders file is empty")
	}
	if err != nil {
		return Sheet{}, fmt.Errorf("read header: %w", err)
	}

	sheet := Sheet{Header: cleanHeader(header)}
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Sheet{}, fmt.Errorf("read csv: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if isBlank(fields) {
			continue
		}
		sheet.Records = append(sheet.Records, toRecord(sheet.Header, line, fields))
	}
	return sheet, nil
}

func ReadXLSX(content []byte) (Sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return Sheet{}, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Sheet{}, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Sheet{}, err
	}
	if len(rows) == 0 {
		return Sheet{}, errors.New("orders file is empty")
	}

	sheet := Sheet{Header: cleanHeader(rows[0])}
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		sheet.Records = append(sheet.Records, toRecord(sheet.Header, i+2, row))
	}
	return sheet, nil
}

func cleanHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = util.CleanHeader(h)
	}
	return out
}

func toRecord(header []string, line int, fields []string) Record {
	values := make(map[string]string, len(header))
	for i, column := range header {
		if column == "" {
			continue
		}
		if i < len(fields) {
			values[column] = fields[i]
		} else {
			values[column] = ""
		}
	}
	return Record{Line: line, Values: values}
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if util.CleanCell(f) != "" {
			return false
		}
	}
	return true
}
