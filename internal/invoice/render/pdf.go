package render

import (
	"bytes"

	"github.com/garyjia/timesheet-invoicing/internal/domain/entity"
	"github.com/garyjia/timesheet-invoicing/internal/domain/errs"
	"github.com/jung-kurt/gofpdf"
)

var pdfColumns = []float64{25, 85, 20, 25, 25}

// PDF renders a single-column A4 invoice with the core Helvetica font
type PDF struct{}

func (PDF) ID() string { return "pdf" }

func (r PDF) Render(in Input) (*entity.Document, error) {
	if err := requireFields(r.ID(), in, "company", "address"); err != nil {
		return nil, err
	}

	v := newView(in)
	pdf := gofpdf.New("P", "mm", "A4", "")

	// Fixed dates and sorted catalogs keep the output byte-stable.
	stamp := in.IssueDate.UTC()
	pdf.SetCreationDate(stamp)
	pdf.SetModificationDate(stamp)
	pdf.SetCatalogSort(true)

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr(v.heading()), false)
	pdf.SetAuthor(tr(v.Company), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	if v.Preview {
		pdf.SetTextColor(176, 0, 0)
	}
	pdf.CellFormat(0, 10, tr(v.heading()), "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 6, tr(v.Company), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 5, tr(v.Address), "", "L", false)
	if v.VatID != "" {
		pdf.CellFormat(0, 5, tr("VAT ID: "+v.VatID), "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)
	pdf.CellFormat(0, 5, "Date: "+v.IssueDate+"    Due: "+v.DueDate, "", 1, "L", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range []string{"Date", "Description", "Duration", "Rate", "Amount"} {
		align := "L"
		if i >= 2 {
			align = "R"
		}
		pdf.CellFormat(pdfColumns[i], 7, h, "B", 0, align, false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, l := range v.Lines {
		pdf.CellFormat(pdfColumns[0], 6, l.Date, "", 0, "L", false, 0, "")
		pdf.CellFormat(pdfColumns[1], 6, tr(truncate(l.Description, 48)), "", 0, "L", false, 0, "")
		pdf.CellFormat(pdfColumns[2], 6, l.Duration, "", 0, "R", false, 0, "")
		pdf.CellFormat(pdfColumns[3], 6, l.HourlyRate, "", 0, "R", false, 0, "")
		pdf.CellFormat(pdfColumns[4], 6, l.Amount, "", 1, "R", false, 0, "")
	}

	labelWidth := pdfColumns[0] + pdfColumns[1] + pdfColumns[2] + pdfColumns[3]
	totals := [][2]string{
		{"Subtotal", formatMoney(in.Totals.Subtotal, v.Currency)},
		{"Tax " + v.TaxRate + "%", formatMoney(in.Totals.TaxAmount, v.Currency)},
		{"Total", formatMoney(in.Totals.GrandTotal, v.Currency)},
	}
	pdf.Ln(2)
	for i, t := range totals {
		if i == len(totals)-1 {
			pdf.SetFont("Helvetica", "B", 10)
		}
		pdf.CellFormat(labelWidth, 6, t[0], "T", 0, "R", false, 0, "")
		pdf.CellFormat(pdfColumns[4], 6, t[1], "T", 1, "R", false, 0, "")
	}

	pdf.SetFont("Helvetica", "", 9)
	for _, text := range []string{v.PaymentTerms, v.PaymentDetails, v.Contact} {
		if text != "" {
			pdf.Ln(4)
			pdf.MultiCell(0, 5, tr(text), "", "L", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, &errs.RenderError{Renderer: r.ID(), Err: err}
	}

	return &entity.Document{
		Content:   buf.Bytes(),
		MimeType:  "application/pdf",
		Extension: "pdf",
	}, nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
