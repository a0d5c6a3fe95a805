// Package calculator turns timesheet entries into invoice totals.
//
// All strategies work on integer minor units. The tax amount is rounded once
// (half away from zero) from the exact subtotal; line amounts are for display
// and are never re-summed after rounding.
package calculator

import (
	"time"

	"github.com/garyjia/timesheet-invoicing/internal/domain/entity"
	"github.com/garyjia/timesheet-invoicing/internal/domain/errs"
	"github.com/garyjia/timesheet-invoicing/internal/domain/money"
)

// Calculator is one pricing strategy
type Calculator interface {
	ID() string
	Calculate(entries []*entity.Timesheet, params Params) (*Totals, error)
}

// Params are the template values a calculator may use
type Params struct {
	TaxRate       money.Rate
	ActivityRates map[int64]money.Amount

	// Location decides which calendar day an entry belongs to; nil is UTC
	Location *time.Location
}

// ParamsFrom extracts calculator parameters from a template
func ParamsFrom(tpl *entity.InvoiceTemplate, loc *time.Location) Params {
	return Params{
		TaxRate:       tpl.TaxRate,
		ActivityRates: tpl.ActivityRates,
		Location:      loc,
	}
}

func (p Params) day(t time.Time) string {
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("2006-01-02")
}

// Line is one row of the invoice body
type Line struct {
	Key         string       `json:"key"`
	Description string       `json:"description"`
	EntryIDs    []int64      `json:"entry_ids"`
	Begin       time.Time    `json:"begin"`
	End         time.Time    `json:"end"`
	Duration    int64        `json:"duration"`
	HourlyRate  money.Amount `json:"hourly_rate"`
	Amount      money.Amount `json:"amount"`
}

// Totals is the computed result of a calculation
type Totals struct {
	Lines      []Line       `json:"lines"`
	Subtotal   money.Amount `json:"subtotal"`
	TaxRate    money.Rate   `json:"tax_rate"`
	TaxAmount  money.Amount `json:"tax_amount"`
	GrandTotal money.Amount `json:"grand_total"`
	Currency   string       `json:"currency"`
	Duration   int64        `json:"duration"`
}

// finish applies tax to an exact subtotal
func finish(lines []Line, subtotal money.Amount, duration int64, currency string, params Params) (*Totals, error) {
	if !params.TaxRate.Valid() {
		return nil, errs.Invalid("taxRate", "must be between 0 and 100")
	}

	tax := params.TaxRate.Apply(subtotal)
	return &Totals{
		Lines:      lines,
		Subtotal:   subtotal,
		TaxRate:    params.TaxRate,
		TaxAmount:  tax,
		GrandTotal: subtotal + tax,
		Currency:   currency,
		Duration:   duration,
	}, nil
}

// currencyOf returns the shared currency of all entries
func currencyOf(entries []*entity.Timesheet) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}
	currency := entries[0].Currency
	for _, e := range entries[1:] {
		if e.Currency != currency {
			return "", errs.Invalid("currency", "entries mix %s and %s", currency, e.Currency)
		}
	}
	return currency, nil
}

func entryLine(e *entity.Timesheet, amount money.Amount, hourly money.Amount, params Params) Line {
	description := e.Description
	if description == "" {
		description = e.ActivityName
	}
	return Line{
		Key:         params.day(e.Begin),
		Description: description,
		EntryIDs:    []int64{e.ID},
		Begin:       e.Begin,
		End:         e.End,
		Duration:    e.Duration,
		HourlyRate:  hourly,
		Amount:      amount,
	}
}
