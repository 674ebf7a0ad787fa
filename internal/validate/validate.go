package validate

import (
	"errors"
	"fmt"

	"mailcannon/internal"
	"mailcannon/internal/catalog"
	"mailcannon/internal/orders"
	"mailcannon/internal/util"
)

// HeaderRow is the row header problems are reported against. Data rows are
// numbered from FirstDataRow over the records that have an email, so a
// blank-email record does not shift the numbers of the rows after it.
const (
	HeaderRow    = 1
	FirstDataRow = 2
)

type Result struct {
	Rows   []internal.OrderRow
	Errors []internal.ValidationError
	// Skipped holds the source lines of the blank-email records.
	Skipped []int
}

func (r Result) Valid() bool { return len(r.Errors) == 0 }

// Validate checks the header and every data row of the sheet. It never stops
// at the first problem: each offending row gets one ValidationError listing
// all of its problems. Rows with a blank email are skipped without comment.
func Validate(sheet orders.Sheet, cat *catalog.Catalog) Result {
	var res Result
	if problems := checkHeader(sheet.Header, cat); len(problems) > 0 {
		res.Errors = append(res.Errors, internal.ValidationError{Row: HeaderRow, Problems: problems})
	}

	rowNo := FirstDataRow
	for _, rec := range sheet.Records {
		if rec.Get("email") == "" {
			res.Skipped = append(res.Skipped, rec.Line)
			continue
		}
		row, problems := checkRecord(rowNo, rec, cat)
		if len(problems) > 0 {
			res.Errors = append(res.Errors, internal.ValidationError{Row: rowNo, Problems: problems})
		} else {
			res.Rows = append(res.Rows, row)
		}
		rowNo++
	}
	return res
}

func checkHeader(header []string, cat *catalog.Catalog) []string {
	var problems []string
	seen := map[string]int{}
	for _, column := range header {
		if column == "" {
			continue
		}
		seen[column]++
		if seen[column] == 2 {
			problems = append(problems, fmt.Sprintf("duplicate column '%s'", column))
		}
	}

	for _, column := range internal.AddressColumns {
		if seen[column] == 0 {
			problems = append(problems, fmt.Sprintf("missing column '%s'", column))
		}
	}
	for _, sku := range cat.SKUs() {
		if seen[sku] == 0 {
			problems = append(problems, fmt.Sprintf("missing column '%s'", sku))
		}
	}
	for _, column := range header {
		if sku, ok := cat.NearMiss(column); ok {
			problems = append(problems, fmt.Sprintf("unrecognized SKU column %q (did you mean %q?)", column, sku))
		}
	}
	return problems
}

func checkRecord(rowNo int, rec orders.Record, cat *catalog.Catalog) (internal.OrderRow, []string) {
	var problems []string
	for _, column := range internal.RequiredAddressColumns {
		if rec.Get(column) == "" {
			problems = append(problems, fmt.Sprintf("missing required field '%s'", column))
		}
	}

	quantities := make(map[string]int, catalog.Size)
	hasItems := false
	for _, sku := range cat.SKUs() {
		raw := rec.Get(sku)
		qty, err := util.ParseQuantity(raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("invalid quantity for %s: %q %s", sku, raw, describe(err)))
			continue
		}
		quantities[sku] = qty
		if qty > 0 {
			hasItems = true
		}
	}
	if !hasItems {
		problems = append(problems, "no SKUs requested")
	}

	if len(problems) > 0 {
		return internal.OrderRow{}, problems
	}
	return internal.OrderRow{
		Row:   rowNo,
		Email: rec.Get("email"),
		Address: internal.Address{
			FirstName:  rec.Get("first_name"),
			LastName:   rec.Get("last_name"),
			Line1:      rec.Get("line_1"),
			Line2:      rec.Get("line_2"),
			City:       rec.Get("city"),
			State:      rec.Get("state"),
			PostalCode: rec.Get("postal_code"),
			Country:    rec.Get("country"),
		},
		Quantities: quantities,
	}, nil
}

func describe(err error) string {
	switch {
	case errors.Is(err, util.ErrNegative):
		return "is negative"
	default:
		return "is not a whole number"
	}
}
