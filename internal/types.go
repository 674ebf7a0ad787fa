package internal

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Address columns in the order they appear in the orders sheet.
var AddressColumns = []string{
	"first_name",
	"last_name",
	"email",
	"line_1",
	"line_2",
	"city",
	"state",
	"postal_code",
	"country",
}

var RequiredAddressColumns = []string{
	"first_name",
	"email",
	"line_1",
	"city",
	"state",
	"postal_code",
	"country",
}

type Address struct {
	FirstName  string
	LastName   string
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

// OrderRow is one validated recipient. Row counts from 2 over the records
// that have an email, the header being row 1.
type OrderRow struct {
	Row        int
	Email      string
	Address    Address
	Quantities map[string]int
}

// ValidationError collects every problem found on a single source line.
type ValidationError struct {
	Row      int      `json:"row"`
	Problems []string `json:"problems"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, strings.Join(e.Problems, "; "))
}

type OutcomeStatus string

const (
	OutcomeSent   OutcomeStatus = "sent"
	OutcomeFailed OutcomeStatus = "failed"
	OutcomeDryRun OutcomeStatus = "dry_run"
)

type OrderOutcome struct {
	Row        int             `json:"row"`
	Email      string          `json:"email"`
	Status     OutcomeStatus   `json:"status"`
	OrderID    string          `json:"order_id,omitempty"`
	HTTPStatus int             `json:"http_status,omitempty"`
	Request    json.RawMessage `json:"request,omitempty"`
	Response   json.RawMessage `json:"response,omitempty"`
	Error      string          `json:"error,omitempty"`
	SKULines   int             `json:"sku_lines"`
	DurationMs int64           `json:"duration_ms"`
}

type BatchSummary struct {
	RunID     string         `json:"run_id"`
	RunAt     string         `json:"run_at"`
	CSV       string         `json:"csv"`
	DryRun    bool           `json:"dry_run"`
	Total     int            `json:"total"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Orders    []OrderOutcome `json:"orders"`
}

type RunRecord struct {
	ID          int
	RunID       string
	RunAt       string
	Source      string
	DryRun      bool
	Total       int
	Succeeded   int
	Failed      int
	SummaryPath string
}
