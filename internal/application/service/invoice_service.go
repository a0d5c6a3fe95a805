package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/garyjia/timesheet-invoicing/internal/application/dispatcher"
	"github.com/garyjia/timesheet-invoicing/internal/application/port"
	"github.com/garyjia/timesheet-invoicing/internal/domain/entity"
	"github.com/garyjia/timesheet-invoicing/internal/domain/errs"
	"github.com/garyjia/timesheet-invoicing/internal/domain/event"
	"github.com/garyjia/timesheet-invoicing/internal/domain/workflow"
	"github.com/garyjia/timesheet-invoicing/internal/invoice/calculator"
	"github.com/garyjia/timesheet-invoicing/internal/invoice/numbering"
	"github.com/garyjia/timesheet-invoicing/internal/invoice/render"
	"github.com/garyjia/timesheet-invoicing/pkg/utils"
)

// SelectionRequest asks which entries a template and filter would bill
type SelectionRequest struct {
	Operator   string
	TemplateID int64
	Filter     entity.TimesheetFilter
}

// Selection is the result of a selection request. Tokens are only issued
// when there is something to bill; CreateToken only for unbilled filters.
type Selection struct {
	Template     *entity.InvoiceTemplate
	Entries      []*entity.Timesheet
	Totals       *calculator.Totals
	CreateToken  *entity.ActionToken
	PreviewToken *entity.ActionToken
}

// InvoiceCommand carries a tokened preview or commit request
type InvoiceCommand struct {
	Operator   string
	TemplateID int64
	Filter     entity.TimesheetFilter
	Token      string
}

// PreviewResult is a rendered preview plus a token for the next preview
type PreviewResult struct {
	Document  *entity.Document
	NextToken *entity.ActionToken
}

// InvoiceService creates invoices from timesheet entries
type InvoiceService interface {
	Prepare(ctx context.Context, req SelectionRequest) (*Selection, error)
	Preview(ctx context.Context, cmd InvoiceCommand) (*PreviewResult, error)
	Create(ctx context.Context, cmd InvoiceCommand) (*entity.Invoice, error)
	Get(ctx context.Context, id int64) (*entity.Invoice, error)
	List(ctx context.Context, filter entity.InvoiceFilter) ([]*entity.Invoice, error)
	Export(ctx context.Context, filter entity.InvoiceFilter) (*entity.Document, string, error)
}

// InvoiceDependencies wires an InvoiceService
type InvoiceDependencies struct {
	Selector    TimesheetSelector
	Templates   port.TemplateRepository
	Invoices    port.InvoiceRepository
	Calculators *calculator.Registry
	Renderers   *render.Registry
	Numbers     *numbering.Generator
	Marker      ExportMarker
	Documents   port.DocumentStore
	Guard       ActionTokenGuard
	TxManager   port.TransactionManager
	IDs         IDGenerator
	Dispatcher  dispatcher.Dispatcher
	Logger      Logger
	Clock       Clock
	Location    *time.Location
}

type invoiceServiceImpl struct {
	InvoiceDependencies

	// schemeLocks serializes commits sharing a numbering scheme so the
	// re-selection and the number assignment see each other's results
	schemeLocks sync.Map
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(deps InvoiceDependencies) InvoiceService {
	deps.Logger = orNop(deps.Logger)
	deps.Clock = orSystemClock(deps.Clock)
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	return &invoiceServiceImpl{InvoiceDependencies: deps}
}

// Prepare selects entries, calculates totals and issues the tokens needed
// to preview or commit exactly this selection
func (s *invoiceServiceImpl) Prepare(ctx context.Context, req SelectionRequest) (*Selection, error) {
	tpl, err := s.template(ctx, req.TemplateID)
	if err != nil {
		return nil, err
	}

	entries, err := s.Selector.Select(ctx, req.Filter)
	if err != nil {
		return nil, err
	}

	sel := &Selection{Template: tpl, Entries: entries}
	if len(entries) == 0 {
		return sel, nil
	}

	if sel.Totals, err = s.calculate(tpl, entries); err != nil {
		return nil, err
	}

	tc := TokenContext{
		Operator:    req.Operator,
		Fingerprint: req.Filter.Fingerprint(),
		TemplateID:  req.TemplateID,
		Purpose:     entity.PurposePreview,
	}
	if sel.PreviewToken, err = s.Guard.Issue(ctx, tc); err != nil {
		return nil, err
	}

	if req.Filter.Normalize().ExportState == entity.ExportUnbilled {
		tc.Purpose = entity.PurposeCreate
		tc.Selection = selectionDigest(entries, sel.Totals)
		if sel.CreateToken, err = s.Guard.Issue(ctx, tc); err != nil {
			return nil, err
		}
	}
	return sel, nil
}

// Preview renders the selection without a number. Nothing is persisted.
func (s *invoiceServiceImpl) Preview(ctx context.Context, cmd InvoiceCommand) (*PreviewResult, error) {
	tc := TokenContext{
		Operator:    cmd.Operator,
		Fingerprint: cmd.Filter.Fingerprint(),
		TemplateID:  cmd.TemplateID,
		Purpose:     entity.PurposePreview,
	}
	if _, err := s.Guard.Consume(ctx, cmd.Token, tc); err != nil {
		return nil, err
	}

	tpl, err := s.template(ctx, cmd.TemplateID)
	if err != nil {
		return nil, err
	}
	renderer, err := s.Renderers.Get(tpl.Renderer)
	if err != nil {
		return nil, err
	}

	entries, err := s.Selector.Select(ctx, cmd.Filter)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errs.ErrNothingToBill
	}

	totals, err := s.calculate(tpl, entries)
	if err != nil {
		return nil, err
	}

	issue := s.today()
	doc, err := renderer.Render(render.Input{
		Template:  tpl,
		Entries:   entries,
		Totals:    totals,
		IssueDate: issue,
		DueDate:   issue.AddDate(0, 0, tpl.DueDays),
	})
	if err != nil {
		return nil, err
	}

	next, err := s.Guard.Issue(ctx, tc)
	if err != nil {
		return nil, err
	}
	return &PreviewResult{Document: doc, NextToken: next}, nil
}

// Create commits an invoice. Either everything (number, document, invoice
// record, exported flags) persists or nothing does.
func (s *invoiceServiceImpl) Create(ctx context.Context, cmd InvoiceCommand) (*entity.Invoice, error) {
	tc := TokenContext{
		Operator:    cmd.Operator,
		Fingerprint: cmd.Filter.Fingerprint(),
		TemplateID:  cmd.TemplateID,
		Purpose:     entity.PurposeCreate,
	}
	token, err := s.Guard.Consume(ctx, cmd.Token, tc)
	if err != nil {
		return nil, err
	}
	tc.Selection = token.Selection

	inv, err := s.commit(ctx, cmd, tc)
	if err != nil {
		kind := errs.Kind(err)
		if kind == "nothing_to_bill" {
			s.Logger.Info("Nothing to bill", "operator", cmd.Operator, "template_id", cmd.TemplateID)
		} else {
			s.Logger.Error("Invoice commit failed",
				"error", err,
				"kind", kind,
				"operator", cmd.Operator,
				"template_id", cmd.TemplateID)
		}
		publish(ctx, s.Dispatcher, event.NewEvent(event.TypeCommitFailed, 0, map[string]interface{}{
			"kind":     kind,
			"operator": cmd.Operator,
		}))
		return nil, err
	}

	s.Logger.Info("Invoice created",
		"id", inv.ID,
		"number", inv.Number,
		"entries", len(inv.EntryIDs),
		"total", inv.Total.String())

	publish(ctx, s.Dispatcher, event.NewEvent(event.TypeInvoiceCreated, inv.ID, map[string]interface{}{
		"number":   inv.Number,
		"operator": inv.Operator,
		"entries":  len(inv.EntryIDs),
		"total":    int64(inv.Total),
		"currency": inv.Currency,
	}))
	return inv, nil
}

// commit bills exactly the selection the token in tc was issued for
func (s *invoiceServiceImpl) commit(ctx context.Context, cmd InvoiceCommand, tc TokenContext) (*entity.Invoice, error) {
	tpl, err := s.template(ctx, cmd.TemplateID)
	if err != nil {
		return nil, err
	}

	filter := cmd.Filter.Normalize()
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if filter.ExportState != entity.ExportUnbilled {
		return nil, errs.Invalid("exported", "only unbilled entries can be invoiced")
	}

	pattern, err := numbering.Parse(tpl.NumberFormat)
	if err != nil {
		return nil, err
	}
	calc, err := s.Calculators.Get(tpl.Calculator)
	if err != nil {
		return nil, err
	}
	renderer, err := s.Renderers.Get(tpl.Renderer)
	if err != nil {
		return nil, err
	}

	unlock := s.lockScheme(pattern.String())
	defer unlock()

	// Re-select under the lock: the entries the token was issued for may
	// have been billed by a concurrent commit since.
	entries, err := s.Selector.Select(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errs.ErrNothingToBill
	}

	totals, err := calc.Calculate(entries, calculator.ParamsFrom(tpl, s.Location))
	if err != nil {
		return nil, err
	}
	if tc.Selection != "" && tc.Selection != selectionDigest(entries, totals) {
		return nil, s.Guard.Reject(ctx, tc, errs.TokenStale)
	}

	now := s.Clock()
	issue := utils.DateOf(now, s.Location)
	entryIDs := make([]int64, len(entries))
	for i, e := range entries {
		entryIDs[i] = e.ID
	}

	inv := &entity.Invoice{
		ID:         s.IDs.NextID(),
		Status:     workflow.StateNew,
		TemplateID: tpl.ID,
		Operator:   cmd.Operator,
		Currency:   totals.Currency,
		Subtotal:   totals.Subtotal,
		TaxRate:    totals.TaxRate,
		TaxAmount:  totals.TaxAmount,
		Total:      totals.GrandTotal,
		Duration:   totals.Duration,
		IssueDate:  issue,
		DueDate:    issue.AddDate(0, 0, tpl.DueDays),
		EntryIDs:   entryIDs,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	var locator string
	err = s.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		number, err := s.Numbers.Next(txCtx, tpl.NumberFormat, issue)
		if err != nil {
			return err
		}

		doc, err := renderer.Render(render.Input{
			Template:  tpl,
			Entries:   entries,
			Totals:    totals,
			Number:    number,
			IssueDate: inv.IssueDate,
			DueDate:   inv.DueDate,
		})
		if err != nil {
			return err
		}

		if locator, err = s.Documents.Store(txCtx, inv.ID, doc); err != nil {
			return &errs.PersistenceFailure{Op: "store document", Err: err}
		}

		inv.Number = number
		inv.DocumentLocator = locator
		inv.DocumentMimeType = doc.MimeType
		inv.DocumentName = doc.FileName(utils.SanitizeFileName(number))

		if err := s.Invoices.Create(txCtx, inv); err != nil {
			return &errs.PersistenceFailure{Op: "create invoice", Err: err}
		}

		if err := s.Marker.MarkExported(txCtx, entryIDs, inv.ID); err != nil {
			if errors.Is(err, errs.ErrAlreadyExported) {
				return err
			}
			return &errs.PersistenceFailure{Op: "mark exported", Err: err}
		}
		return nil
	})
	if err != nil {
		if locator != "" {
			if rmErr := s.Documents.Remove(ctx, locator); rmErr != nil {
				s.Logger.Error("Failed to remove document of rolled back invoice",
					"error", rmErr,
					"locator", locator)
			}
		}
		return nil, classifyCommitError(err)
	}
	return inv, nil
}

// selectionDigest identifies a selection by its entries and totals, so a
// commit can tell whether it still bills what the operator was shown
func selectionDigest(entries []*entity.Timesheet, totals *calculator.Totals) string {
	h := sha256.New()
	for _, e := range entries {
		h.Write([]byte(strconv.FormatInt(e.ID, 10)))
		h.Write([]byte{','})
	}
	if totals != nil {
		fmt.Fprintf(h, "|%s|%d|%d", totals.Currency, totals.Subtotal, totals.GrandTotal)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// classifyCommitError keeps typed errors and reports everything else,
// such as a failed COMMIT, as a persistence failure
func classifyCommitError(err error) error {
	if errs.Kind(err) != "internal" {
		return err
	}
	return &errs.PersistenceFailure{Op: "commit invoice", Err: err}
}

// Get retrieves an invoice
func (s *invoiceServiceImpl) Get(ctx context.Context, id int64) (*entity.Invoice, error) {
	inv, err := s.Invoices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, fmt.Errorf("invoice %d: %w", id, errs.ErrNotFound)
	}
	return inv, nil
}

// List returns invoices newest first
func (s *invoiceServiceImpl) List(ctx context.Context, filter entity.InvoiceFilter) ([]*entity.Invoice, error) {
	for _, st := range filter.Statuses {
		if !st.IsValid() {
			return nil, errs.Invalid("status", "unknown status %q", st)
		}
	}
	return s.Invoices.List(ctx, filter)
}

// Export writes the filtered invoice list as a spreadsheet
func (s *invoiceServiceImpl) Export(ctx context.Context, filter entity.InvoiceFilter) (*entity.Document, string, error) {
	invoices, err := s.List(ctx, filter)
	if err != nil {
		return nil, "", err
	}
	return render.ExportInvoices(invoices, s.Clock().In(s.Location))
}

func (s *invoiceServiceImpl) template(ctx context.Context, id int64) (*entity.InvoiceTemplate, error) {
	if id <= 0 {
		return nil, errs.Invalid("template", "template is required")
	}
	tpl, err := s.Templates.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tpl == nil {
		return nil, errs.Invalid("template", "template %d does not exist", id)
	}
	return tpl, nil
}

func (s *invoiceServiceImpl) calculate(tpl *entity.InvoiceTemplate, entries []*entity.Timesheet) (*calculator.Totals, error) {
	calc, err := s.Calculators.Get(tpl.Calculator)
	if err != nil {
		return nil, err
	}
	return calc.Calculate(entries, calculator.ParamsFrom(tpl, s.Location))
}

func (s *invoiceServiceImpl) today() time.Time {
	return utils.DateOf(s.Clock(), s.Location)
}

func (s *invoiceServiceImpl) lockScheme(scheme string) func() {
	v, _ := s.schemeLocks.LoadOrStore(scheme, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
