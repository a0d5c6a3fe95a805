package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/garyjia/timesheet-invoicing/internal/domain/errs"
	"github.com/garyjia/timesheet-invoicing/internal/domain/money"
)

// Timesheet is a recorded block of work. The invoice core only reads entries
// and flips their exported flag.
type Timesheet struct {
	ID           int64        `json:"id"`
	UserID       int64        `json:"user_id"`
	UserName     string       `json:"user_name"`
	CustomerID   int64        `json:"customer_id"`
	CustomerName string       `json:"customer_name"`
	ProjectID    int64        `json:"project_id"`
	ProjectName  string       `json:"project_name"`
	ActivityID   int64        `json:"activity_id"`
	ActivityName string       `json:"activity_name"`
	Description  string       `json:"description"`
	Begin        time.Time    `json:"begin"`
	End          time.Time    `json:"end"`
	Duration     int64        `json:"duration"` // seconds
	HourlyRate   money.Amount `json:"hourly_rate"`
	Rate         money.Amount `json:"rate"` // billed amount of the entry
	Currency     string       `json:"currency"`
	Exported     bool         `json:"exported"`
}

// ExportState selects entries by their billing state
type ExportState string

const (
	ExportUnbilled ExportState = "unbilled"
	ExportBilled   ExportState = "billed"
	ExportAll      ExportState = "all"
)

// TimesheetFilter narrows the entries considered for an invoice
type TimesheetFilter struct {
	Begin       *time.Time  `json:"begin,omitempty"` // inclusive
	End         *time.Time  `json:"end,omitempty"`   // exclusive
	CustomerIDs []int64     `json:"customers,omitempty"`
	ProjectIDs  []int64     `json:"projects,omitempty"`
	ActivityIDs []int64     `json:"activities,omitempty"`
	UserIDs     []int64     `json:"users,omitempty"`
	ExportState ExportState `json:"exported,omitempty"`
}

// Normalize returns a copy with sorted, de-duplicated ids, UTC dates and the
// default export state
func (f TimesheetFilter) Normalize() TimesheetFilter {
	out := TimesheetFilter{
		CustomerIDs: uniqueSorted(f.CustomerIDs),
		ProjectIDs:  uniqueSorted(f.ProjectIDs),
		ActivityIDs: uniqueSorted(f.ActivityIDs),
		UserIDs:     uniqueSorted(f.UserIDs),
		ExportState: f.ExportState,
	}
	if out.ExportState == "" {
		out.ExportState = ExportUnbilled
	}
	if f.Begin != nil {
		b := f.Begin.UTC()
		out.Begin = &b
	}
	if f.End != nil {
		e := f.End.UTC()
		out.End = &e
	}
	return out
}

// Validate checks the filter for contradictory or malformed criteria
func (f TimesheetFilter) Validate() error {
	if f.Begin != nil && f.End != nil && f.Begin.After(*f.End) {
		return errs.Invalid("daterange", "begin must not be after end")
	}

	switch f.ExportState {
	case "", ExportUnbilled, ExportBilled, ExportAll:
	default:
		return errs.Invalid("exported", "unknown export state %q", f.ExportState)
	}

	for field, ids := range map[string][]int64{
		"customers":  f.CustomerIDs,
		"projects":   f.ProjectIDs,
		"activities": f.ActivityIDs,
		"users":      f.UserIDs,
	} {
		for _, id := range ids {
			if id <= 0 {
				return errs.Invalid(field, "ids must be positive")
			}
		}
	}
	return nil
}

// Fingerprint identifies the normalized filter; two filters selecting the
// same criteria produce the same fingerprint
func (f TimesheetFilter) Fingerprint() string {
	n := f.Normalize()

	var b strings.Builder
	writeTime := func(t *time.Time) {
		if t != nil {
			b.WriteString(t.Format(time.RFC3339))
		}
		b.WriteByte('|')
	}
	writeIDs := func(ids []int64) {
		for i, id := range ids {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.FormatInt(id, 10))
		}
		b.WriteByte('|')
	}

	writeTime(n.Begin)
	writeTime(n.End)
	writeIDs(n.CustomerIDs)
	writeIDs(n.ProjectIDs)
	writeIDs(n.ActivityIDs)
	writeIDs(n.UserIDs)
	b.WriteString(string(n.ExportState))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func uniqueSorted(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	out := append([]int64(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}
