package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/garyjia/timesheet-invoicing/internal/application/port"
	"github.com/garyjia/timesheet-invoicing/internal/domain/entity"
	"github.com/garyjia/timesheet-invoicing/internal/domain/money"
	"github.com/garyjia/timesheet-invoicing/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const templateColumns = `
	id, name, title, company, address, vat_id, contact, payment_terms,
	payment_details, calculator, renderer, tax_rate, number_format, due_days,
	activity_rates, created_at, updated_at`

// TemplateRepository implements port.TemplateRepository
type TemplateRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTemplateRepository creates a new template repository
func NewTemplateRepository(db *sql.DB, logger *zap.Logger) port.TemplateRepository {
	return &TemplateRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a template
func (r *TemplateRepository) Create(ctx context.Context, tpl *entity.InvoiceTemplate) error {
	rates, err := encodeRates(tpl.ActivityRates)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO invoice_templates (
			name, title, company, address, vat_id, contact, payment_terms,
			payment_details, calculator, renderer, tax_rate, number_format,
			due_days, activity_rates
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		tpl.Name, tpl.Title, tpl.Company, tpl.Address, tpl.VatID, tpl.Contact,
		tpl.PaymentTerms, tpl.PaymentDetails, tpl.Calculator, tpl.Renderer,
		tpl.TaxRate, tpl.NumberFormat, tpl.DueDays, rates,
	)
	if err != nil {
		r.logger.Error("Failed to create template", zap.String("name", tpl.Name), zap.Error(err))
		return fmt.Errorf("failed to create template: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	tpl.ID = id
	return nil
}

// Update overwrites a template's configuration
func (r *TemplateRepository) Update(ctx context.Context, tpl *entity.InvoiceTemplate) error {
	rates, err := encodeRates(tpl.ActivityRates)
	if err != nil {
		return err
	}

	query := `
		UPDATE invoice_templates SET
			name = ?, title = ?, company = ?, address = ?, vat_id = ?, contact = ?,
			payment_terms = ?, payment_details = ?, calculator = ?, renderer = ?,
			tax_rate = ?, number_format = ?, due_days = ?, activity_rates = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err = sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		tpl.Name, tpl.Title, tpl.Company, tpl.Address, tpl.VatID, tpl.Contact,
		tpl.PaymentTerms, tpl.PaymentDetails, tpl.Calculator, tpl.Renderer,
		tpl.TaxRate, tpl.NumberFormat, tpl.DueDays, rates, tpl.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update template", zap.Int64("id", tpl.ID), zap.Error(err))
		return fmt.Errorf("failed to update template: %w", err)
	}
	return nil
}

// GetByID retrieves a template; nil when it does not exist
func (r *TemplateRepository) GetByID(ctx context.Context, id int64) (*entity.InvoiceTemplate, error) {
	row := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx,
		"SELECT "+templateColumns+" FROM invoice_templates WHERE id = ?", id)
	return r.scanOne(row)
}

// GetByName retrieves a template by its unique name; nil when it does not exist
func (r *TemplateRepository) GetByName(ctx context.Context, name string) (*entity.InvoiceTemplate, error) {
	row := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx,
		"SELECT "+templateColumns+" FROM invoice_templates WHERE name = ?", name)
	return r.scanOne(row)
}

// List returns all templates ordered by name
func (r *TemplateRepository) List(ctx context.Context) ([]*entity.InvoiceTemplate, error) {
	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx,
		"SELECT "+templateColumns+" FROM invoice_templates ORDER BY name ASC")
	if err != nil {
		r.logger.Error("Failed to list templates", zap.Error(err))
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	templates := make([]*entity.InvoiceTemplate, 0)
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, tpl)
	}
	return templates, rows.Err()
}

// Delete removes a template
func (r *TemplateRepository) Delete(ctx context.Context, id int64) error {
	if _, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx,
		"DELETE FROM invoice_templates WHERE id = ?", id); err != nil {
		r.logger.Error("Failed to delete template", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete template: %w", err)
	}
	return nil
}

func (r *TemplateRepository) scanOne(row *sql.Row) (*entity.InvoiceTemplate, error) {
	tpl, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get template", zap.Error(err))
		return nil, err
	}
	return tpl, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTemplate(s scanner) (*entity.InvoiceTemplate, error) {
	var (
		tpl   entity.InvoiceTemplate
		rates string
	)

	err := s.Scan(
		&tpl.ID, &tpl.Name, &tpl.Title, &tpl.Company, &tpl.Address, &tpl.VatID,
		&tpl.Contact, &tpl.PaymentTerms, &tpl.PaymentDetails, &tpl.Calculator,
		&tpl.Renderer, &tpl.TaxRate, &tpl.NumberFormat, &tpl.DueDays, &rates,
		&tpl.CreatedAt, &tpl.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan template: %w", err)
	}

	if tpl.ActivityRates, err = decodeRates(rates); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// activity rates are stored as {"<activity id>": minor units}
func encodeRates(rates map[int64]money.Amount) (string, error) {
	out := make(map[string]int64, len(rates))
	for id, amount := range rates {
		out[strconv.FormatInt(id, 10)] = int64(amount)
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("failed to encode activity rates: %w", err)
	}
	return string(b), nil
}

func decodeRates(raw string) (map[int64]money.Amount, error) {
	if raw == "" || raw == "{}" {
		return nil, nil
	}

	var in map[string]int64
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return nil, fmt.Errorf("failed to decode activity rates: %w", err)
	}

	rates := make(map[int64]money.Amount, len(in))
	for key, amount := range in {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid activity id %q in rates: %w", key, err)
		}
		rates[id] = money.Amount(amount)
	}
	return rates, nil
}

var _ port.TemplateRepository = (*TemplateRepository)(nil)
