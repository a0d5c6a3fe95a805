package calculator

import (
	"github.com/garyjia/timesheet-invoicing/internal/domain/entity"
	"github.com/garyjia/timesheet-invoicing/internal/domain/money"
)

type groupKey func(e *entity.Timesheet, params Params) (key, description string)

// Grouped merges entries sharing a key into one line. Groups keep the order
// in which their first entry appears.
type Grouped struct {
	id  string
	key groupKey
}

// NewGrouped creates a grouping strategy
func NewGrouped(id string, key func(e *entity.Timesheet, params Params) (string, string)) *Grouped {
	return &Grouped{id: id, key: key}
}

func (g *Grouped) ID() string { return g.id }

func (g *Grouped) Calculate(entries []*entity.Timesheet, params Params) (*Totals, error) {
	currency, err := currencyOf(entries)
	if err != nil {
		return nil, err
	}

	var (
		subtotal money.Amount
		duration int64
		lines    []Line
		index    = make(map[string]int)
	)

	for _, e := range entries {
		subtotal += e.Rate
		duration += e.Duration

		key, description := g.key(e, params)
		i, ok := index[key]
		if !ok {
			index[key] = len(lines)
			lines = append(lines, Line{
				Key:         key,
				Description: description,
				Begin:       e.Begin,
				End:         e.End,
				HourlyRate:  e.HourlyRate,
			})
			i = len(lines) - 1
		}

		line := &lines[i]
		line.EntryIDs = append(line.EntryIDs, e.ID)
		line.Duration += e.Duration
		line.Amount += e.Rate
		if e.End.After(line.End) {
			line.End = e.End
		}
		if line.HourlyRate != e.HourlyRate {
			line.HourlyRate = 0 // mixed rates
		}
	}

	if lines == nil {
		lines = []Line{}
	}
	return finish(lines, subtotal, duration, currency, params)
}

// Short bills everything as a single line
func Short() *Grouped {
	return NewGrouped("short", func(e *entity.Timesheet, _ Params) (string, string) {
		return "total", "Services rendered"
	})
}

// ByUser groups by the user who recorded the time
func ByUser() *Grouped {
	return NewGrouped("user", func(e *entity.Timesheet, _ Params) (string, string) {
		return idKey(e.UserID), e.UserName
	})
}

// ByProject groups by project
func ByProject() *Grouped {
	return NewGrouped("project", func(e *entity.Timesheet, _ Params) (string, string) {
		return idKey(e.ProjectID), e.ProjectName
	})
}

// ByActivity groups by activity
func ByActivity() *Grouped {
	return NewGrouped("activity", func(e *entity.Timesheet, _ Params) (string, string) {
		return idKey(e.ActivityID), e.ActivityName
	})
}

// ByDate groups by the local calendar day of the entry start
func ByDate() *Grouped {
	return NewGrouped("date", func(e *entity.Timesheet, params Params) (string, string) {
		day := params.day(e.Begin)
		return day, day
	})
}
