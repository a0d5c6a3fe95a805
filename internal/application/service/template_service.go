package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/timesheet-invoicing/internal/application/port"
	"github.com/garyjia/timesheet-invoicing/internal/domain/entity"
	"github.com/garyjia/timesheet-invoicing/internal/domain/errs"
	"github.com/garyjia/timesheet-invoicing/internal/domain/money"
	"github.com/garyjia/timesheet-invoicing/internal/invoice/calculator"
	"github.com/garyjia/timesheet-invoicing/internal/invoice/numbering"
	"github.com/garyjia/timesheet-invoicing/internal/invoice/render"
)

// TemplateService manages invoice templates
type TemplateService interface {
	Create(ctx context.Context, tpl *entity.InvoiceTemplate) (*entity.InvoiceTemplate, error)
	Update(ctx context.Context, tpl *entity.InvoiceTemplate) (*entity.InvoiceTemplate, error)
	Get(ctx context.Context, id int64) (*entity.InvoiceTemplate, error)
	List(ctx context.Context) ([]*entity.InvoiceTemplate, error)
	Delete(ctx context.Context, id int64) error
	Copy(ctx context.Context, id int64) (*entity.InvoiceTemplate, error)
}

type templateServiceImpl struct {
	templates   port.TemplateRepository
	invoices    port.InvoiceRepository
	calculators *calculator.Registry
	renderers   *render.Registry
	logger      Logger
}

// NewTemplateService creates a new TemplateService
func NewTemplateService(
	templates port.TemplateRepository,
	invoices port.InvoiceRepository,
	calculators *calculator.Registry,
	renderers *render.Registry,
	logger Logger,
) TemplateService {
	return &templateServiceImpl{
		templates:   templates,
		invoices:    invoices,
		calculators: calculators,
		renderers:   renderers,
		logger:      orNop(logger),
	}
}

// Create validates and stores a new template
func (s *templateServiceImpl) Create(ctx context.Context, tpl *entity.InvoiceTemplate) (*entity.InvoiceTemplate, error) {
	tpl.ID = 0
	if err := s.validate(ctx, tpl); err != nil {
		return nil, err
	}
	if err := s.templates.Create(ctx, tpl); err != nil {
		s.logger.Error("Failed to create template", "error", err, "name", tpl.Name)
		return nil, err
	}

	s.logger.Info("Template created", "id", tpl.ID, "name", tpl.Name)
	return s.Get(ctx, tpl.ID)
}

// Update validates and overwrites an existing template
func (s *templateServiceImpl) Update(ctx context.Context, tpl *entity.InvoiceTemplate) (*entity.InvoiceTemplate, error) {
	if _, err := s.Get(ctx, tpl.ID); err != nil {
		return nil, err
	}
	if err := s.validate(ctx, tpl); err != nil {
		return nil, err
	}
	if err := s.templates.Update(ctx, tpl); err != nil {
		s.logger.Error("Failed to update template", "error", err, "id", tpl.ID)
		return nil, err
	}

	s.logger.Info("Template updated", "id", tpl.ID)
	return s.Get(ctx, tpl.ID)
}

// Get retrieves a template
func (s *templateServiceImpl) Get(ctx context.Context, id int64) (*entity.InvoiceTemplate, error) {
	tpl, err := s.templates.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tpl == nil {
		return nil, fmt.Errorf("template %d: %w", id, errs.ErrNotFound)
	}
	return tpl, nil
}

// List returns all templates ordered by name
func (s *templateServiceImpl) List(ctx context.Context) ([]*entity.InvoiceTemplate, error) {
	return s.templates.List(ctx)
}

// Delete removes a template nobody invoiced with
func (s *templateServiceImpl) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	n, err := s.invoices.CountByTemplate(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: %d invoices", errs.ErrTemplateInUse, n)
	}

	if err := s.templates.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete template", "error", err, "id", id)
		return err
	}
	s.logger.Info("Template deleted", "id", id)
	return nil
}

// Copy duplicates a template under a derived name
func (s *templateServiceImpl) Copy(ctx context.Context, id int64) (*entity.InvoiceTemplate, error) {
	original, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Create(ctx, original.Copy())
}

func (s *templateServiceImpl) validate(ctx context.Context, tpl *entity.InvoiceTemplate) error {
	tpl.Name = strings.TrimSpace(tpl.Name)
	if tpl.Name == "" {
		return errs.Invalid("name", "name is required")
	}
	existing, err := s.templates.GetByName(ctx, tpl.Name)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != tpl.ID {
		return errs.Invalid("name", "a template named %q already exists", tpl.Name)
	}

	if tpl.Calculator == "" {
		tpl.Calculator = "default"
	}
	if _, err := s.calculators.Get(tpl.Calculator); err != nil {
		return err
	}
	if tpl.Renderer == "" {
		tpl.Renderer = "json"
	}
	if _, err := s.renderers.Get(tpl.Renderer); err != nil {
		return err
	}

	if _, err := numbering.Parse(tpl.NumberFormat); err != nil {
		return err
	}
	if !tpl.TaxRate.Valid() {
		return errs.Invalid("taxRate", "tax rate must be between 0 and %s%%", money.MaxRate)
	}
	if tpl.DueDays < 0 {
		return errs.Invalid("dueDays", "due days must not be negative")
	}
	for activity, rate := range tpl.ActivityRates {
		if activity <= 0 || rate < 0 {
			return errs.Invalid("activityRates", "invalid rate for activity %d", activity)
		}
	}
	return nil
}
