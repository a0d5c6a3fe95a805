package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/timesheet-invoicing/internal/application/dispatcher"
	"github.com/garyjia/timesheet-invoicing/internal/application/port"
	"github.com/garyjia/timesheet-invoicing/internal/domain/entity"
	"github.com/garyjia/timesheet-invoicing/internal/domain/errs"
	"github.com/garyjia/timesheet-invoicing/internal/domain/event"
	"github.com/garyjia/timesheet-invoicing/internal/domain/workflow"
	"github.com/garyjia/timesheet-invoicing/pkg/utils"
)

// StatusCommand moves an invoice to a new status
type StatusCommand struct {
	InvoiceID   int64
	Operator    string
	Status      workflow.State
	PaymentDate string
	Token       string
}

// PaymentDateCommand changes the payment date of a paid invoice
type PaymentDateCommand struct {
	InvoiceID   int64
	Operator    string
	PaymentDate string
	Token       string
}

// DeleteCommand removes an invoice
type DeleteCommand struct {
	InvoiceID int64
	Operator  string
	Token     string
}

// DocumentDownload is a stored invoice document ready to send
type DocumentDownload struct {
	Content  []byte
	MimeType string
	FileName string
}

// InvoiceLifecycle manages invoices after creation
type InvoiceLifecycle interface {
	IssueConfirmation(ctx context.Context, operator string, invoiceID int64, purpose entity.TokenPurpose) (*entity.ActionToken, error)
	ChangeStatus(ctx context.Context, cmd StatusCommand) (*entity.Invoice, error)
	UpdatePaymentDate(ctx context.Context, cmd PaymentDateCommand) (*entity.Invoice, error)
	Delete(ctx context.Context, cmd DeleteCommand) error
	Download(ctx context.Context, invoiceID int64) (*DocumentDownload, error)
}

// LifecycleDependencies wires an InvoiceLifecycle
type LifecycleDependencies struct {
	Invoices   port.InvoiceRepository
	Marker     ExportMarker
	Documents  port.DocumentStore
	Guard      ActionTokenGuard
	TxManager  port.TransactionManager
	Dispatcher dispatcher.Dispatcher
	Logger     Logger
	Clock      Clock
	Location   *time.Location
}

type lifecycleImpl struct {
	LifecycleDependencies
}

// NewInvoiceLifecycle creates a new InvoiceLifecycle
func NewInvoiceLifecycle(deps LifecycleDependencies) InvoiceLifecycle {
	deps.Logger = orNop(deps.Logger)
	deps.Clock = orSystemClock(deps.Clock)
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	return &lifecycleImpl{LifecycleDependencies: deps}
}

// IssueConfirmation issues a token that authorizes one status change or
// deletion of one invoice
func (l *lifecycleImpl) IssueConfirmation(ctx context.Context, operator string, invoiceID int64, purpose entity.TokenPurpose) (*entity.ActionToken, error) {
	if purpose != entity.PurposeStatus && purpose != entity.PurposeDelete {
		return nil, errs.Invalid("intent", "unknown intent %q", purpose)
	}
	if _, err := l.load(ctx, invoiceID); err != nil {
		return nil, err
	}
	return l.Guard.Issue(ctx, ConfirmationContext(operator, invoiceID, purpose))
}

// ChangeStatus applies a status transition. Marking an invoice paid
// requires a payment date, which defaults to today.
func (l *lifecycleImpl) ChangeStatus(ctx context.Context, cmd StatusCommand) (*entity.Invoice, error) {
	tc := ConfirmationContext(cmd.Operator, cmd.InvoiceID, entity.PurposeStatus)
	if _, err := l.Guard.Consume(ctx, cmd.Token, tc); err != nil {
		return nil, err
	}

	inv, err := l.load(ctx, cmd.InvoiceID)
	if err != nil {
		return nil, err
	}

	trigger, ok := workflow.TriggerFor(cmd.Status)
	if !ok {
		return nil, errs.Invalid("status", "unknown status %q", cmd.Status)
	}

	var paymentDate *time.Time
	fireCtx := ctx
	switch cmd.Status {
	case workflow.StatePaid:
		date, err := l.paymentDate(cmd.PaymentDate)
		if err != nil {
			return nil, err
		}
		paymentDate = &date
		fireCtx = workflow.WithPaymentDate(ctx, date)
	case workflow.StatePending:
		paymentDate = inv.PaymentDate
	}

	from := inv.Status
	machine := workflow.NewInvoiceMachine(from)
	if err := machine.Fire(fireCtx, trigger); err != nil {
		return nil, transitionError(from, cmd.Status, err)
	}

	if err := l.Invoices.UpdateStatus(ctx, inv.ID, from, machine.State(), paymentDate); err != nil {
		return nil, statusWriteError("update status", err)
	}
	inv.Status = machine.State()
	inv.PaymentDate = paymentDate

	l.Logger.Info("Invoice status changed",
		"id", inv.ID,
		"from", from,
		"to", inv.Status,
		"operator", cmd.Operator)

	payload := map[string]interface{}{
		"from":     from.String(),
		"to":       inv.Status.String(),
		"operator": cmd.Operator,
	}
	if paymentDate != nil {
		payload["payment_date"] = paymentDate.Format(utils.DateLayout)
	}
	publish(ctx, l.Dispatcher, event.NewEvent(event.TypeInvoiceStatusChanged, inv.ID, payload))
	return inv, nil
}

// UpdatePaymentDate re-records the payment date of a paid invoice
func (l *lifecycleImpl) UpdatePaymentDate(ctx context.Context, cmd PaymentDateCommand) (*entity.Invoice, error) {
	tc := ConfirmationContext(cmd.Operator, cmd.InvoiceID, entity.PurposeStatus)
	if _, err := l.Guard.Consume(ctx, cmd.Token, tc); err != nil {
		return nil, err
	}

	inv, err := l.load(ctx, cmd.InvoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status != workflow.StatePaid {
		return nil, fmt.Errorf("%w: payment date can only be set on paid invoices, invoice is %s",
			errs.ErrInvalidTransition, inv.Status)
	}

	date, err := l.paymentDate(cmd.PaymentDate)
	if err != nil {
		return nil, err
	}

	if err := l.Invoices.UpdateStatus(ctx, inv.ID, inv.Status, inv.Status, &date); err != nil {
		return nil, statusWriteError("update payment date", err)
	}
	inv.PaymentDate = &date

	l.Logger.Info("Invoice payment date changed",
		"id", inv.ID,
		"payment_date", date.Format(utils.DateLayout),
		"operator", cmd.Operator)
	publish(ctx, l.Dispatcher, event.NewEvent(event.TypeInvoicePaymentDated, inv.ID, map[string]interface{}{
		"payment_date": date.Format(utils.DateLayout),
		"operator":     cmd.Operator,
	}))
	return inv, nil
}

// Delete removes an invoice and makes its entries billable again. The
// document is removed after the records; a missing document is ignored.
func (l *lifecycleImpl) Delete(ctx context.Context, cmd DeleteCommand) error {
	tc := ConfirmationContext(cmd.Operator, cmd.InvoiceID, entity.PurposeDelete)
	if _, err := l.Guard.Consume(ctx, cmd.Token, tc); err != nil {
		return err
	}

	inv, err := l.load(ctx, cmd.InvoiceID)
	if err != nil {
		return err
	}

	var restored []int64
	err = l.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		if restored, err = l.Marker.UnmarkExported(txCtx, inv.ID); err != nil {
			return err
		}
		return l.Invoices.Delete(txCtx, inv.ID)
	})
	if err != nil {
		l.Logger.Error("Failed to delete invoice", "error", err, "id", inv.ID)
		return &errs.PersistenceFailure{Op: "delete invoice", Err: err}
	}

	if inv.DocumentLocator == "" {
		l.Logger.Info("Deleted invoice had no document", "id", inv.ID)
	} else if err := l.Documents.Remove(ctx, inv.DocumentLocator); err != nil {
		l.Logger.Error("Failed to remove invoice document",
			"error", err,
			"id", inv.ID,
			"locator", inv.DocumentLocator)
	}

	l.Logger.Info("Invoice deleted",
		"id", inv.ID,
		"number", inv.Number,
		"restored_entries", len(restored),
		"operator", cmd.Operator)
	publish(ctx, l.Dispatcher, event.NewEvent(event.TypeInvoiceDeleted, inv.ID, map[string]interface{}{
		"number":   inv.Number,
		"entries":  len(restored),
		"operator": cmd.Operator,
	}))
	return nil
}

// Download returns the stored document of an invoice
func (l *lifecycleImpl) Download(ctx context.Context, invoiceID int64) (*DocumentDownload, error) {
	inv, err := l.load(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.DocumentLocator == "" {
		return nil, errs.ErrDocumentNotFound
	}

	content, err := l.Documents.Retrieve(ctx, inv.DocumentLocator)
	if err != nil {
		return nil, err
	}
	return &DocumentDownload{
		Content:  content,
		MimeType: inv.DocumentMimeType,
		FileName: inv.DocumentName,
	}, nil
}

func (l *lifecycleImpl) load(ctx context.Context, id int64) (*entity.Invoice, error) {
	inv, err := l.Invoices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, fmt.Errorf("invoice %d: %w", id, errs.ErrNotFound)
	}
	return inv, nil
}

// paymentDate parses a client supplied date; empty means today
func (l *lifecycleImpl) paymentDate(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return utils.DateOf(l.Clock(), l.Location), nil
	}
	date, err := utils.ParseDate(raw, l.Location)
	if err != nil {
		return time.Time{}, errs.Invalid("paymentDate", "%q is not a date (use YYYY-MM-DD)", raw)
	}
	return date, nil
}

// statusWriteError keeps lost races as domain errors
func statusWriteError(op string, err error) error {
	if errors.Is(err, errs.ErrInvalidTransition) || errors.Is(err, errs.ErrNotFound) {
		return err
	}
	return &errs.PersistenceFailure{Op: op, Err: err}
}

func transitionError(from, to workflow.State, err error) error {
	if errors.Is(err, workflow.ErrInvalidTransition) || errors.Is(err, workflow.ErrGuardFailed) {
		return fmt.Errorf("%w: %s to %s", errs.ErrInvalidTransition, from, to)
	}
	return err
}
