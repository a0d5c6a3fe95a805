package calculator

import (
	"github.com/garyjia/timesheet-invoicing/internal/domain/entity"
	"github.com/garyjia/timesheet-invoicing/internal/domain/money"
)

// ActivityRate reprices entries of activities that have an hourly override in
// the template. The subtotal is computed exactly in minor-unit seconds and
// rounded once; per-line amounts are rounded independently for display.
type ActivityRate struct{}

func (ActivityRate) ID() string { return "activity_rate" }

func (ActivityRate) Calculate(entries []*entity.Timesheet, params Params) (*Totals, error) {
	currency, err := currencyOf(entries)
	if err != nil {
		return nil, err
	}

	var (
		exact    int64 // minor units x seconds
		duration int64
		lines    = make([]Line, 0, len(entries))
	)

	for _, e := range entries {
		duration += e.Duration

		hourly, overridden := params.ActivityRates[e.ActivityID]
		if !overridden {
			exact += int64(e.Rate) * 3600
			lines = append(lines, entryLine(e, e.Rate, e.HourlyRate, params))
			continue
		}

		exact += e.Duration * int64(hourly)
		lines = append(lines, entryLine(e, money.ForDuration(e.Duration, hourly), hourly, params))
	}

	subtotal := money.Amount(money.DivRound(exact, 3600))
	return finish(lines, subtotal, duration, currency, params)
}
