package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/timesheet-invoicing/internal/application/port"
	"github.com/garyjia/timesheet-invoicing/internal/domain/entity"
	"github.com/garyjia/timesheet-invoicing/internal/domain/errs"
	"github.com/garyjia/timesheet-invoicing/internal/domain/workflow"
	"github.com/garyjia/timesheet-invoicing/internal/infrastructure/persistence/sqlite"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const invoiceColumns = `
	id, number, status, template_id, operator, currency, subtotal, tax_rate,
	tax_amount, total, duration, issue_date, due_date, payment_date,
	document_locator, document_mime_type, document_name, created_at, updated_at`

// InvoiceRepository implements port.InvoiceRepository
type InvoiceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *sql.DB, logger *zap.Logger) port.InvoiceRepository {
	return &InvoiceRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts an invoice with its pre-assigned id
func (r *InvoiceRepository) Create(ctx context.Context, inv *entity.Invoice) error {
	query := `
		INSERT INTO invoices (
			id, number, status, template_id, operator, currency, subtotal,
			tax_rate, tax_amount, total, duration, issue_date, due_date,
			payment_date, document_locator, document_mime_type, document_name
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		inv.ID, inv.Number, inv.Status, inv.TemplateID, inv.Operator,
		inv.Currency, inv.Subtotal, inv.TaxRate, inv.TaxAmount, inv.Total,
		inv.Duration, inv.IssueDate.UTC(), inv.DueDate.UTC(), nullTime(inv.PaymentDate),
		inv.DocumentLocator, inv.DocumentMimeType, inv.DocumentName,
	)
	if err != nil {
		r.logger.Error("Failed to create invoice",
			zap.Int64("id", inv.ID),
			zap.String("number", inv.Number),
			zap.Error(err))
		return fmt.Errorf("failed to create invoice: %w", err)
	}
	return nil
}

// GetByID retrieves an invoice and its entry ids; nil when it does not exist
func (r *InvoiceRepository) GetByID(ctx context.Context, id int64) (*entity.Invoice, error) {
	exec := sqlite.ExecutorFrom(ctx, r.db)

	inv, err := scanInvoice(exec.QueryRowContext(ctx,
		"SELECT "+invoiceColumns+" FROM invoices WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get invoice", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	if inv.EntryIDs, err = r.entryIDs(ctx, id); err != nil {
		return nil, err
	}
	return inv, nil
}

// List returns invoices newest first
func (r *InvoiceRepository) List(ctx context.Context, filter entity.InvoiceFilter) ([]*entity.Invoice, error) {
	query := "SELECT " + invoiceColumns + " FROM invoices"
	var args []interface{}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			placeholders[i] = "?"
			args = append(args, s)
		}
		query += " WHERE status IN (" + strings.Join(placeholders, ", ") + ")"
	}

	query += " ORDER BY issue_date DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list invoices", zap.Error(err))
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	invoices := make([]*entity.Invoice, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// UpdateStatus moves an invoice from one status to another and sets the
// payment date. The write only applies while the invoice is still in from;
// otherwise ErrInvalidTransition is returned and nothing changes.
func (r *InvoiceRepository) UpdateStatus(ctx context.Context, id int64, from, to workflow.State, paymentDate *time.Time) error {
	exec := sqlite.ExecutorFrom(ctx, r.db)
	result, err := exec.ExecContext(ctx,
		"UPDATE invoices SET status = ?, payment_date = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = ?",
		to, nullTime(paymentDate), id, from)
	if err != nil {
		r.logger.Error("Failed to update invoice status",
			zap.Int64("id", id),
			zap.String("status", to.String()),
			zap.Error(err))
		return fmt.Errorf("failed to update invoice status: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update invoice status: %w", err)
	}
	if n > 0 {
		return nil
	}

	var current string
	err = exec.QueryRowContext(ctx, "SELECT status FROM invoices WHERE id = ?", id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("invoice %d: %w", id, errs.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read invoice status: %w", err)
	}
	return fmt.Errorf("%w: invoice %d is %s, expected %s", errs.ErrInvalidTransition, id, current, from)
}

// Delete removes an invoice; its entry associations cascade
func (r *InvoiceRepository) Delete(ctx context.Context, id int64) error {
	if _, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx,
		"DELETE FROM invoices WHERE id = ?", id); err != nil {
		r.logger.Error("Failed to delete invoice", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete invoice: %w", err)
	}
	return nil
}

// CountByTemplate counts invoices created from a template
func (r *InvoiceRepository) CountByTemplate(ctx context.Context, templateID int64) (int, error) {
	var n int
	if err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx,
		"SELECT COUNT(*) FROM invoices WHERE template_id = ?", templateID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count invoices: %w", err)
	}
	return n, nil
}

// AttachEntries links entries to an invoice; fails if any entry is already linked
func (r *InvoiceRepository) AttachEntries(ctx context.Context, invoiceID int64, entryIDs []int64) error {
	exec := sqlite.ExecutorFrom(ctx, r.db)
	for _, id := range entryIDs {
		if _, err := exec.ExecContext(ctx,
			"INSERT INTO invoice_entries (invoice_id, timesheet_id) VALUES (?, ?)",
			invoiceID, id); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: entry %d belongs to another invoice", errs.ErrAlreadyExported, id)
			}
			r.logger.Error("Failed to attach entry",
				zap.Int64("invoice_id", invoiceID),
				zap.Int64("timesheet_id", id),
				zap.Error(err))
			return fmt.Errorf("failed to attach entry %d: %w", id, err)
		}
	}
	return nil
}

// DetachEntries removes the invoice's entry links and returns the entry ids
func (r *InvoiceRepository) DetachEntries(ctx context.Context, invoiceID int64) ([]int64, error) {
	ids, err := r.entryIDs(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if _, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx,
		"DELETE FROM invoice_entries WHERE invoice_id = ?", invoiceID); err != nil {
		r.logger.Error("Failed to detach entries", zap.Int64("invoice_id", invoiceID), zap.Error(err))
		return nil, fmt.Errorf("failed to detach entries: %w", err)
	}
	return ids, nil
}

func (r *InvoiceRepository) entryIDs(ctx context.Context, invoiceID int64) ([]int64, error) {
	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx,
		"SELECT timesheet_id FROM invoice_entries WHERE invoice_id = ? ORDER BY timesheet_id", invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoice entries: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan invoice entry: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanInvoice(s scanner) (*entity.Invoice, error) {
	var (
		inv         entity.Invoice
		paymentDate sql.NullTime
	)

	err := s.Scan(
		&inv.ID, &inv.Number, &inv.Status, &inv.TemplateID, &inv.Operator,
		&inv.Currency, &inv.Subtotal, &inv.TaxRate, &inv.TaxAmount, &inv.Total,
		&inv.Duration, &inv.IssueDate, &inv.DueDate, &paymentDate,
		&inv.DocumentLocator, &inv.DocumentMimeType, &inv.DocumentName,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan invoice: %w", err)
	}

	if paymentDate.Valid {
		t := paymentDate.Time
		inv.PaymentDate = &t
	}
	return &inv, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

var _ port.InvoiceRepository = (*InvoiceRepository)(nil)

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}
