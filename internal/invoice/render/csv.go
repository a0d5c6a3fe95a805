package render

import (
	"bytes"
	"encoding/csv"

	"github.com/garyjia/timesheet-invoicing/internal/domain/entity"
	"github.com/garyjia/timesheet-invoicing/internal/domain/errs"
)

// CSV writes the invoice lines followed by a totals block
type CSV struct{}

func (CSV) ID() string { return "csv" }

func (r CSV) Render(in Input) (*entity.Document, error) {
	if err := requireFields(r.ID(), in, "company"); err != nil {
		return nil, err
	}

	v := newView(in)
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	records := [][]string{
		{v.heading()},
		{v.Company, v.IssueDate, v.DueDate},
		{"date", "description", "duration", "hourly_rate", "amount"},
	}
	for _, l := range v.Lines {
		records = append(records, []string{l.Date, l.Description, l.Duration, l.HourlyRate, l.Amount})
	}
	records = append(records,
		[]string{"", "subtotal", v.Duration, "", v.Subtotal},
		[]string{"", "tax " + v.TaxRate + "%", "", "", v.TaxAmount},
		[]string{"", "total " + v.Currency, "", "", v.Total},
	)

	if err := w.WriteAll(records); err != nil {
		return nil, &errs.RenderError{Renderer: r.ID(), Err: err}
	}

	return &entity.Document{
		Content:   buf.Bytes(),
		MimeType:  "text/csv",
		Extension: "csv",
	}, nil
}
