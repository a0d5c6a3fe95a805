package render

import (
	"fmt"

	"github.com/garyjia/timesheet-invoicing/internal/domain/money"
)

const dateLayout = "2006-01-02"

// view is the formatted form of an Input shared by all layouts
type view struct {
	Title          string     `json:"title"`
	Number         string     `json:"number,omitempty"`
	Preview        bool       `json:"preview"`
	IssueDate      string     `json:"issue_date"`
	DueDate        string     `json:"due_date"`
	Company        string     `json:"company"`
	Address        string     `json:"address,omitempty"`
	VatID          string     `json:"vat_id,omitempty"`
	Contact        string     `json:"contact,omitempty"`
	PaymentTerms   string     `json:"payment_terms,omitempty"`
	PaymentDetails string     `json:"payment_details,omitempty"`
	Currency       string     `json:"currency"`
	Lines          []viewLine `json:"lines"`
	Duration       string     `json:"duration"`
	Subtotal       string     `json:"subtotal"`
	TaxRate        string     `json:"tax_rate"`
	TaxAmount      string     `json:"tax_amount"`
	Total          string     `json:"total"`
}

type viewLine struct {
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Duration    string  `json:"duration"`
	HourlyRate  string  `json:"hourly_rate,omitempty"`
	Amount      string  `json:"amount"`
	Entries     []int64 `json:"entries"`
}

func newView(in Input) view {
	tpl := in.Template
	t := in.Totals

	title := tpl.Title
	if title == "" {
		title = "Invoice"
	}

	v := view{
		Title:          title,
		Number:         in.Number,
		Preview:        in.Preview(),
		IssueDate:      in.IssueDate.Format(dateLayout),
		DueDate:        in.DueDate.Format(dateLayout),
		Company:        tpl.Company,
		Address:        tpl.Address,
		VatID:          tpl.VatID,
		Contact:        tpl.Contact,
		PaymentTerms:   tpl.PaymentTerms,
		PaymentDetails: tpl.PaymentDetails,
		Currency:       t.Currency,
		Lines:          make([]viewLine, 0, len(t.Lines)),
		Duration:       formatDuration(t.Duration),
		Subtotal:       t.Subtotal.String(),
		TaxRate:        t.TaxRate.String(),
		TaxAmount:      t.TaxAmount.String(),
		Total:          t.GrandTotal.String(),
	}

	for _, l := range t.Lines {
		line := viewLine{
			Date:        l.Begin.Format(dateLayout),
			Description: l.Description,
			Duration:    formatDuration(l.Duration),
			Amount:      l.Amount.String(),
			Entries:     l.EntryIDs,
		}
		if l.HourlyRate != 0 {
			line.HourlyRate = l.HourlyRate.String()
		}
		v.Lines = append(v.Lines, line)
	}
	return v
}

// heading is the document title line, e.g. "Invoice 2026-0001"
func (v view) heading() string {
	if v.Preview {
		return v.Title + " (preview)"
	}
	return v.Title + " " + v.Number
}

func formatDuration(seconds int64) string {
	sign := ""
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	return fmt.Sprintf("%s%d:%02d", sign, seconds/3600, (seconds%3600)/60)
}

func formatMoney(a money.Amount, currency string) string {
	return a.String() + " " + currency
}
