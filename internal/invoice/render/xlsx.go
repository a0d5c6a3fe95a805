package render

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/garyjia/timesheet-invoicing/internal/domain/entity"
	"github.com/garyjia/timesheet-invoicing/internal/domain/errs"
	"github.com/garyjia/timesheet-invoicing/internal/domain/money"
	"github.com/xuri/excelize/v2"
)

const xlsxMimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// XLSX renders the invoice as a spreadsheet
type XLSX struct{}

func (XLSX) ID() string { return "xlsx" }

func (r XLSX) Render(in Input) (*entity.Document, error) {
	if err := requireFields(r.ID(), in, "company"); err != nil {
		return nil, err
	}

	v := newView(in)
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Invoice"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, &errs.RenderError{Renderer: r.ID(), Err: err}
	}

	w := &sheetWriter{f: f, sheet: sheet}
	w.row(v.heading())
	w.row(v.Company)
	w.row(v.Address)
	w.row("Date", v.IssueDate, "Due", v.DueDate)
	w.row()
	w.row("Date", "Description", "Duration", "Rate", "Amount")
	for i, l := range v.Lines {
		w.row(l.Date, l.Description, l.Duration, l.HourlyRate, amountCell(in.Totals.Lines[i].Amount))
	}
	w.row()
	w.row("", "Subtotal", v.Duration, "", amountCell(in.Totals.Subtotal))
	w.row("", "Tax "+v.TaxRate+"%", "", "", amountCell(in.Totals.TaxAmount))
	w.row("", "Total "+v.Currency, "", "", amountCell(in.Totals.GrandTotal))
	if v.PaymentTerms != "" {
		w.row()
		w.row(v.PaymentTerms)
	}
	if w.err != nil {
		return nil, &errs.RenderError{Renderer: r.ID(), Err: w.err}
	}

	stamp := in.IssueDate.UTC().Format(time.RFC3339)
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:    v.heading(),
		Creator:  v.Company,
		Created:  stamp,
		Modified: stamp,
	}); err != nil {
		return nil, &errs.RenderError{Renderer: r.ID(), Err: err}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, &errs.RenderError{Renderer: r.ID(), Err: err}
	}

	content, err := normalizeZip(buf.Bytes())
	if err != nil {
		return nil, &errs.RenderError{Renderer: r.ID(), Err: err}
	}

	return &entity.Document{
		Content:   content,
		MimeType:  xlsxMimeType,
		Extension: "xlsx",
	}, nil
}

// sheetWriter appends rows and keeps the first error
type sheetWriter struct {
	f     *excelize.File
	sheet string
	next  int
	err   error
}

func (w *sheetWriter) row(values ...interface{}) {
	w.next++
	if w.err != nil || len(values) == 0 {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, w.next)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetSheetRow(w.sheet, cell, &values); err != nil {
		w.err = fmt.Errorf("row %d: %w", w.next, err)
	}
}

// amountCell converts minor units for display in a numeric cell
func amountCell(a money.Amount) float64 {
	return float64(a) / 100
}

// zipStamp is the modification time written for every archive member
var zipStamp = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// normalizeZip rewrites an archive with sorted members and fixed timestamps
// so identical spreadsheets always have identical bytes
func normalizeZip(raw []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}

	files := append([]*zip.File(nil), zr.File...)
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	var out bytes.Buffer
	zw := zip.NewWriter(&out)
	for _, file := range files {
		dst, err := zw.CreateHeader(&zip.FileHeader{
			Name:     file.Name,
			Method:   zip.Deflate,
			Modified: zipStamp,
		})
		if err != nil {
			return nil, err
		}

		src, err := file.Open()
		if err != nil {
			return nil, err
		}
		_, err = io.Copy(dst, src)
		src.Close()
		if err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
