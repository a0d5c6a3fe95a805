package port

import (
	"context"
	"time"

	"github.com/garyjia/timesheet-invoicing/internal/domain/entity"
	"github.com/garyjia/timesheet-invoicing/internal/domain/workflow"
)

// TimesheetRepository reads timesheet entries and flips their exported flag
type TimesheetRepository interface {
	Create(ctx context.Context, ts *entity.Timesheet) error
	Find(ctx context.Context, filter entity.TimesheetFilter) ([]*entity.Timesheet, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*entity.Timesheet, error)
	// MarkExported flags entries that are not yet exported and returns how many changed
	MarkExported(ctx context.Context, ids []int64) (int64, error)
	UnmarkExported(ctx context.Context, ids []int64) error
}

// TemplateRepository defines persistence operations for InvoiceTemplate
type TemplateRepository interface {
	Create(ctx context.Context, tpl *entity.InvoiceTemplate) error
	Update(ctx context.Context, tpl *entity.InvoiceTemplate) error
	GetByID(ctx context.Context, id int64) (*entity.InvoiceTemplate, error)
	GetByName(ctx context.Context, name string) (*entity.InvoiceTemplate, error)
	List(ctx context.Context) ([]*entity.InvoiceTemplate, error)
	Delete(ctx context.Context, id int64) error
}

// InvoiceRepository defines persistence operations for Invoice
type InvoiceRepository interface {
	Create(ctx context.Context, inv *entity.Invoice) error
	GetByID(ctx context.Context, id int64) (*entity.Invoice, error)
	List(ctx context.Context, filter entity.InvoiceFilter) ([]*entity.Invoice, error)
	UpdateStatus(ctx context.Context, id int64, from, to workflow.State, paymentDate *time.Time) error
	Delete(ctx context.Context, id int64) error
	CountByTemplate(ctx context.Context, templateID int64) (int, error)

	// AttachEntries associates entries with an invoice; an entry belongs to at most one invoice
	AttachEntries(ctx context.Context, invoiceID int64, entryIDs []int64) error
	// DetachEntries removes and returns the invoice's entry associations
	DetachEntries(ctx context.Context, invoiceID int64) ([]int64, error)
}

// SequenceRepository holds invoice number counters
type SequenceRepository interface {
	// Increment atomically advances the counter for scheme and epoch and returns the new value
	Increment(ctx context.Context, scheme, epoch string) (int64, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
