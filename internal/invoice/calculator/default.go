package calculator

import (
	"github.com/garyjia/timesheet-invoicing/internal/domain/entity"
	"github.com/garyjia/timesheet-invoicing/internal/domain/money"
)

// Default lists every entry and sums their billed amounts
type Default struct{}

func (Default) ID() string { return "default" }

func (Default) Calculate(entries []*entity.Timesheet, params Params) (*Totals, error) {
	currency, err := currencyOf(entries)
	if err != nil {
		return nil, err
	}

	var (
		subtotal money.Amount
		duration int64
		lines    = make([]Line, 0, len(entries))
	)
	for _, e := range entries {
		subtotal += e.Rate
		duration += e.Duration
		lines = append(lines, entryLine(e, e.Rate, e.HourlyRate, params))
	}

	return finish(lines, subtotal, duration, currency, params)
}
