package render

import (
	"fmt"
	"time"

	"github.com/garyjia/timesheet-invoicing/internal/domain/entity"
	"github.com/xuri/excelize/v2"
)

// ExportInvoices writes an invoice listing spreadsheet. The file name
// carries the export date, e.g. invoices_20261015.xlsx.
func ExportInvoices(invoices []*entity.Invoice, at time.Time) (*entity.Document, string, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Invoices"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, "", err
	}

	w := &sheetWriter{f: f, sheet: sheet}
	w.row("Number", "Status", "Issue date", "Due date", "Payment date", "Currency", "Subtotal", "Tax", "Total", "Entries")
	for _, inv := range invoices {
		paid := ""
		if inv.PaymentDate != nil {
			paid = inv.PaymentDate.Format(dateLayout)
		}
		w.row(
			inv.Number,
			inv.Status.String(),
			inv.IssueDate.Format(dateLayout),
			inv.DueDate.Format(dateLayout),
			paid,
			inv.Currency,
			amountCell(inv.Subtotal),
			amountCell(inv.TaxAmount),
			amountCell(inv.Total),
			len(inv.EntryIDs),
		)
	}
	if w.err != nil {
		return nil, "", fmt.Errorf("failed to write invoice list: %w", w.err)
	}

	if err := f.AutoFilter(sheet, fmt.Sprintf("A1:J%d", len(invoices)+1), nil); err != nil {
		return nil, "", fmt.Errorf("failed to add filter: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("failed to write spreadsheet: %w", err)
	}

	content, err := normalizeZip(buf.Bytes())
	if err != nil {
		return nil, "", err
	}

	doc := &entity.Document{Content: content, MimeType: xlsxMimeType, Extension: "xlsx"}
	return doc, doc.FileName("invoices_" + at.Format("20060102")), nil
}
