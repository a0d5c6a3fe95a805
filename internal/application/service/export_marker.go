package service

import (
	"context"
	"fmt"

	"github.com/garyjia/timesheet-invoicing/internal/application/port"
	"github.com/garyjia/timesheet-invoicing/internal/domain/errs"
)

// ExportMarker flips the billed state of entries together with their
// invoice association
type ExportMarker interface {
	MarkExported(ctx context.Context, entryIDs []int64, invoiceID int64) error
	UnmarkExported(ctx context.Context, invoiceID int64) ([]int64, error)
}

type exportMarkerImpl struct {
	timesheets port.TimesheetRepository
	invoices   port.InvoiceRepository
	txManager  port.TransactionManager
}

// NewExportMarker creates a new ExportMarker
func NewExportMarker(timesheets port.TimesheetRepository, invoices port.InvoiceRepository, txManager port.TransactionManager) ExportMarker {
	return &exportMarkerImpl{
		timesheets: timesheets,
		invoices:   invoices,
		txManager:  txManager,
	}
}

// MarkExported links entries to the invoice and flags them exported. It
// joins the caller's transaction when there is one. If any entry was
// already exported nothing changes and ErrAlreadyExported is returned.
func (m *exportMarkerImpl) MarkExported(ctx context.Context, entryIDs []int64, invoiceID int64) error {
	if len(entryIDs) == 0 {
		return errs.Invalid("entries", "no entries to mark")
	}
	seen := make(map[int64]bool, len(entryIDs))
	for _, id := range entryIDs {
		if seen[id] {
			return errs.Invalid("entries", "entry %d listed twice", id)
		}
		seen[id] = true
	}

	return m.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := m.invoices.AttachEntries(txCtx, invoiceID, entryIDs); err != nil {
			return err
		}

		changed, err := m.timesheets.MarkExported(txCtx, entryIDs)
		if err != nil {
			return fmt.Errorf("mark exported: %w", err)
		}
		if changed != int64(len(entryIDs)) {
			return fmt.Errorf("%w: %d of %d entries were still billable",
				errs.ErrAlreadyExported, changed, len(entryIDs))
		}
		return nil
	})
}

// UnmarkExported detaches the invoice's entries and makes them billable again
func (m *exportMarkerImpl) UnmarkExported(ctx context.Context, invoiceID int64) ([]int64, error) {
	var ids []int64
	err := m.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		if ids, err = m.invoices.DetachEntries(txCtx, invoiceID); err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := m.timesheets.UnmarkExported(txCtx, ids); err != nil {
			return fmt.Errorf("unmark exported: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}
