package service

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/timesheet-invoicing/internal/application/dispatcher"
	"github.com/garyjia/timesheet-invoicing/internal/application/port"
	"github.com/garyjia/timesheet-invoicing/internal/domain/entity"
	"github.com/garyjia/timesheet-invoicing/internal/domain/money"
	"github.com/garyjia/timesheet-invoicing/internal/infrastructure/persistence/repository"
	"github.com/garyjia/timesheet-invoicing/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/timesheet-invoicing/internal/infrastructure/storage"
	"github.com/garyjia/timesheet-invoicing/internal/infrastructure/tokenstore"
	"github.com/garyjia/timesheet-invoicing/internal/invoice/calculator"
	"github.com/garyjia/timesheet-invoicing/internal/invoice/numbering"
	"github.com/garyjia/timesheet-invoicing/internal/invoice/render"
	"github.com/garyjia/timesheet-invoicing/migrations"
	"github.com/garyjia/timesheet-invoicing/pkg/database"
)

const operator = "alice"

var fixedNow = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

type seqIDs struct{ n int64 }

func (s *seqIDs) NextID() int64 { return atomic.AddInt64(&s.n, 1) }

// harness wires the services against a real SQLite database in a temp dir
type harness struct {
	db         *database.DB
	timesheets port.TimesheetRepository
	templates  port.TemplateRepository
	invoices   port.InvoiceRepository
	files      port.FileStorage
	documents  port.DocumentStore
	tokens     *tokenstore.MemoryStore
	dispatcher dispatcher.Dispatcher
	guard      ActionTokenGuard
	service    InvoiceService
	lifecycle  InvoiceLifecycle
	tplService TemplateService
	now        time.Time
}

type harnessOption func(h *harness)

func withFiles(files port.FileStorage) harnessOption {
	return func(h *harness) { h.files = files }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	logger := zap.NewNop()
	db, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "invoices.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.NewMigrator(db, logger).RunMigrations(migrations.FS))

	h := &harness{
		db:         db,
		timesheets: repository.NewTimesheetRepository(db.DB, logger),
		templates:  repository.NewTemplateRepository(db.DB, logger),
		invoices:   repository.NewInvoiceRepository(db.DB, logger),
		files:      storage.NewLocalFileStorage(t.TempDir(), logger),
		tokens:     tokenstore.NewMemoryStore(),
		dispatcher: dispatcher.NewDispatcher(),
		now:        fixedNow,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.documents = storage.NewDocumentStore(h.files, logger)

	clock := func() time.Time { return h.now }
	txManager := sqlite.NewDB(db.DB, logger)
	marker := NewExportMarker(h.timesheets, h.invoices, txManager)
	h.guard = NewActionTokenGuard(h.tokens, 0, clock, h.dispatcher, nil)

	h.service = NewInvoiceService(InvoiceDependencies{
		Selector:    NewTimesheetSelector(h.timesheets),
		Templates:   h.templates,
		Invoices:    h.invoices,
		Calculators: calculator.DefaultRegistry(),
		Renderers:   render.DefaultRegistry(),
		Numbers:     numbering.NewGenerator(repository.NewSequenceRepository(db.DB, logger)),
		Marker:      marker,
		Documents:   h.documents,
		Guard:       h.guard,
		TxManager:   txManager,
		IDs:         &seqIDs{n: 1000},
		Dispatcher:  h.dispatcher,
		Clock:       clock,
	})
	h.lifecycle = NewInvoiceLifecycle(LifecycleDependencies{
		Invoices:   h.invoices,
		Marker:     marker,
		Documents:  h.documents,
		Guard:      h.guard,
		TxManager:  txManager,
		Dispatcher: h.dispatcher,
		Clock:      clock,
	})
	h.tplService = NewTemplateService(h.templates, h.invoices,
		calculator.DefaultRegistry(), render.DefaultRegistry(), nil)
	return h
}

func (h *harness) template(t *testing.T, mutate ...func(*entity.InvoiceTemplate)) *entity.InvoiceTemplate {
	t.Helper()
	tpl := &entity.InvoiceTemplate{
		Name:         "Standard",
		Title:        "Invoice",
		Company:      "ACME GmbH",
		Address:      "Main Street 1, Berlin",
		Calculator:   "default",
		Renderer:     "json",
		TaxRate:      1900,
		NumberFormat: "INV-{Y}-{cy,4}",
		DueDays:      14,
	}
	for _, m := range mutate {
		m(tpl)
	}
	require.NoError(t, h.templates.Create(context.Background(), tpl))
	return tpl
}

// seed creates n unbilled entries of 100.00 each for customer 10
func (h *harness) seed(t *testing.T, n int) []*entity.Timesheet {
	t.Helper()
	start := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	entries := make([]*entity.Timesheet, 0, n)
	for i := 0; i < n; i++ {
		ts := &entity.Timesheet{
			UserID:       1,
			UserName:     "Alice",
			CustomerID:   10,
			CustomerName: "Globex",
			ProjectID:    100,
			ProjectName:  "Website",
			ActivityID:   1000,
			ActivityName: "Development",
			Begin:        start.Add(time.Duration(i) * time.Hour),
			End:          start.Add(time.Duration(i)*time.Hour + 30*time.Minute),
			Duration:     1800,
			HourlyRate:   money.Amount(20000),
			Rate:         money.Amount(10000),
			Currency:     "EUR",
		}
		require.NoError(t, h.timesheets.Create(context.Background(), ts))
		entries = append(entries, ts)
	}
	return entries
}

// prepare runs a selection request and returns its create token
func (h *harness) prepare(t *testing.T, tpl *entity.InvoiceTemplate, filter entity.TimesheetFilter) *Selection {
	t.Helper()
	sel, err := h.service.Prepare(context.Background(), SelectionRequest{
		Operator:   operator,
		TemplateID: tpl.ID,
		Filter:     filter,
	})
	require.NoError(t, err)
	return sel
}

func (h *harness) create(tpl *entity.InvoiceTemplate, filter entity.TimesheetFilter, token string) (*entity.Invoice, error) {
	return h.service.Create(context.Background(), InvoiceCommand{
		Operator:   operator,
		TemplateID: tpl.ID,
		Filter:     filter,
		Token:      token,
	})
}

func (h *harness) unbilled(t *testing.T) []*entity.Timesheet {
	t.Helper()
	entries, err := h.timesheets.Find(context.Background(), entity.TimesheetFilter{})
	require.NoError(t, err)
	return entries
}

func (h *harness) confirm(t *testing.T, invoiceID int64, purpose entity.TokenPurpose) string {
	t.Helper()
	tok, err := h.lifecycle.IssueConfirmation(context.Background(), operator, invoiceID, purpose)
	require.NoError(t, err)
	return tok.Value
}

func customerFilter() entity.TimesheetFilter {
	return entity.TimesheetFilter{CustomerIDs: []int64{10}}
}
