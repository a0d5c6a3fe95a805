package service

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/timesheet-invoicing/internal/domain/entity"
	"github.com/garyjia/timesheet-invoicing/internal/domain/errs"
	"github.com/garyjia/timesheet-invoicing/internal/domain/event"
	"github.com/garyjia/timesheet-invoicing/internal/domain/money"
	"github.com/garyjia/timesheet-invoicing/internal/domain/workflow"
)

func TestInvoiceService_CreateTwentyEntries(t *testing.T) {
	h := newHarness(t)
	tpl := h.template(t)
	h.seed(t, 20)

	created := make(chan *entityEvent, 1)
	h.dispatcher.Subscribe(event.TypeInvoiceCreated, func(ctx context.Context, evt *event.Event) error {
		created <- &entityEvent{id: evt.InvoiceID, number: evt.GetPayloadString("number")}
		return nil
	})

	sel := h.prepare(t, tpl, customerFilter())
	require.Len(t, sel.Entries, 20)
	require.NotNil(t, sel.CreateToken)
	require.NotNil(t, sel.PreviewToken)
	assert.Equal(t, money.Amount(200000), sel.Totals.Subtotal)

	inv, err := h.create(tpl, customerFilter(), sel.CreateToken.Value)
	require.NoError(t, err)

	assert.Equal(t, money.Amount(200000), inv.Subtotal)
	assert.Equal(t, money.Amount(38000), inv.TaxAmount)
	assert.Equal(t, money.Amount(238000), inv.Total)
	assert.Equal(t, "380.00", inv.TaxAmount.String())
	assert.Equal(t, "2380.00", inv.Total.String())
	assert.Equal(t, workflow.StateNew, inv.Status)
	assert.Regexp(t, regexp.MustCompile(`^INV-2026-\d{4}$`), inv.Number)
	assert.Equal(t, "INV-2026-0001", inv.Number)
	assert.Len(t, inv.EntryIDs, 20)
	assert.Equal(t, "2026-10-29", inv.DueDate.Format("2006-01-02"))

	stored, err := h.invoices.GetByID(context.Background(), inv.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, inv.Number, stored.Number)
	assert.Len(t, stored.EntryIDs, 20)

	assert.Empty(t, h.unbilled(t), "all 20 entries must be exported")

	dl, err := h.lifecycle.Download(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "application/json", dl.MimeType)
	assert.Equal(t, "INV-2026-0001.json", dl.FileName)
	assert.Contains(t, string(dl.Content), "INV-2026-0001")

	require.NoError(t, h.dispatcher.Close())
	got := <-created
	assert.Equal(t, inv.ID, got.id)
	assert.Equal(t, inv.Number, got.number)
}

type entityEvent struct {
	id     int64
	number string
}

func TestInvoiceService_DoubleSubmitRejected(t *testing.T) {
	h := newHarness(t)
	tpl := h.template(t)
	h.seed(t, 3)

	sel := h.prepare(t, tpl, customerFilter())
	_, err := h.create(tpl, customerFilter(), sel.CreateToken.Value)
	require.NoError(t, err)

	// New entries arrive; replaying the spent token must not bill them.
	h.seed(t, 2)
	_, err = h.create(tpl, customerFilter(), sel.CreateToken.Value)

	var tokenErr *errs.TokenError
	require.ErrorAs(t, err, &tokenErr)
	assert.Equal(t, errs.TokenInvalid, tokenErr.Reason)

	invoices, err := h.service.List(context.Background(), entity.InvoiceFilter{})
	require.NoError(t, err)
	assert.Len(t, invoices, 1, "no second invoice number may be issued")
	assert.Len(t, h.unbilled(t), 2, "exported flags unchanged")
}

func TestInvoiceService_CreateRejectsChangedSelection(t *testing.T) {
	h := newHarness(t)
	tpl := h.template(t)
	h.seed(t, 3)

	sel := h.prepare(t, tpl, customerFilter())
	require.Len(t, sel.Entries, 3)

	// An entry recorded after the selection was shown would change the total.
	h.seed(t, 1)
	_, err := h.create(tpl, customerFilter(), sel.CreateToken.Value)

	var tokenErr *errs.TokenError
	require.ErrorAs(t, err, &tokenErr)
	assert.Equal(t, errs.TokenStale, tokenErr.Reason)
	assert.Len(t, h.unbilled(t), 4, "nothing is billed")

	invoices, err := h.service.List(context.Background(), entity.InvoiceFilter{})
	require.NoError(t, err)
	assert.Empty(t, invoices)

	sel = h.prepare(t, tpl, customerFilter())
	inv, err := h.create(tpl, customerFilter(), sel.CreateToken.Value)
	require.NoError(t, err)
	assert.Len(t, inv.EntryIDs, 4)
	assert.Equal(t, "INV-2026-0001", inv.Number)
}

func TestInvoiceService_CreateRejectsTokenForOtherContext(t *testing.T) {
	h := newHarness(t)
	tpl := h.template(t)
	other := h.template(t, func(t *entity.InvoiceTemplate) { t.Name = "Other" })
	h.seed(t, 2)

	tests := []struct {
		name     string
		operator string
		tplID    int64
		filter   entity.TimesheetFilter
	}{
		{"other operator", "bob", tpl.ID, customerFilter()},
		{"other template", operator, other.ID, customerFilter()},
		{"other filter", operator, tpl.ID, entity.TimesheetFilter{CustomerIDs: []int64{11}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := h.prepare(t, tpl, customerFilter())
			_, err := h.service.Create(context.Background(), InvoiceCommand{
				Operator:   tt.operator,
				TemplateID: tt.tplID,
				Filter:     tt.filter,
				Token:      sel.CreateToken.Value,
			})
			var tokenErr *errs.TokenError
			require.ErrorAs(t, err, &tokenErr)
			assert.Equal(t, errs.TokenMismatch, tokenErr.Reason)
			assert.Len(t, h.unbilled(t), 2)
		})
	}
}

func TestInvoiceService_NothingToBill(t *testing.T) {
	h := newHarness(t)
	tpl := h.template(t)

	sel := h.prepare(t, tpl, customerFilter())
	assert.Empty(t, sel.Entries)
	assert.Nil(t, sel.CreateToken)
	assert.Nil(t, sel.Totals)

	tok, err := h.guard.Issue(context.Background(), TokenContext{
		Operator:    operator,
		Fingerprint: customerFilter().Fingerprint(),
		TemplateID:  tpl.ID,
		Purpose:     entity.PurposeCreate,
	})
	require.NoError(t, err)

	_, err = h.create(tpl, customerFilter(), tok.Value)
	assert.ErrorIs(t, err, errs.ErrNothingToBill)
	assert.Equal(t, "nothing_to_bill", errs.Kind(err))
}

func TestInvoiceService_RejectsBilledFilter(t *testing.T) {
	h := newHarness(t)
	tpl := h.template(t)
	h.seed(t, 1)

	filter := entity.TimesheetFilter{ExportState: entity.ExportAll}
	sel := h.prepare(t, tpl, filter)
	require.Len(t, sel.Entries, 1)
	assert.Nil(t, sel.CreateToken, "re-billing selections cannot be committed")
	assert.NotNil(t, sel.PreviewToken)

	tok, err := h.guard.Issue(context.Background(), TokenContext{
		Operator:    operator,
		Fingerprint: filter.Fingerprint(),
		TemplateID:  tpl.ID,
		Purpose:     entity.PurposeCreate,
	})
	require.NoError(t, err)

	_, err = h.create(tpl, filter, tok.Value)
	var vErr *errs.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "exported", vErr.Field)
}

func TestInvoiceService_RenderFailureRollsBack(t *testing.T) {
	h := newHarness(t)
	tpl := h.template(t, func(t *entity.InvoiceTemplate) {
		t.Renderer = "pdf"
		t.Address = ""
	})
	h.seed(t, 3)

	sel := h.prepare(t, tpl, customerFilter())
	_, err := h.create(tpl, customerFilter(), sel.CreateToken.Value)

	var rErr *errs.RenderError
	require.ErrorAs(t, err, &rErr)
	assert.Equal(t, "address", rErr.Field)
	assert.Len(t, h.unbilled(t), 3)

	invoices, err := h.service.List(context.Background(), entity.InvoiceFilter{})
	require.NoError(t, err)
	assert.Empty(t, invoices)

	// The counter advanced inside the rolled back transaction only.
	tpl.Address = "Main Street 1"
	require.NoError(t, h.templates.Update(context.Background(), tpl))
	sel = h.prepare(t, tpl, customerFilter())
	inv, err := h.create(tpl, customerFilter(), sel.CreateToken.Value)
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-0001", inv.Number)
	assert.Equal(t, "application/pdf", inv.DocumentMimeType)
}

type failingFiles struct {
	saveErr error
}

func (f *failingFiles) Save(ctx context.Context, path string, content []byte) error {
	return f.saveErr
}
func (f *failingFiles) Read(ctx context.Context, path string) ([]byte, error) { return nil, nil }
func (f *failingFiles) Exists(ctx context.Context, path string) bool { return false }
func (f *failingFiles) Delete(ctx context.Context, path string) error { return nil }

func TestInvoiceService_StorageFailureIsPersistenceFailure(t *testing.T) {
	h := newHarness(t, withFiles(&failingFiles{saveErr: errors.New("disk full")}))
	tpl := h.template(t)
	h.seed(t, 2)

	failed := make(chan string, 1)
	h.dispatcher.Subscribe(event.TypeCommitFailed, func(ctx context.Context, evt *event.Event) error {
		failed <- evt.GetPayloadString("kind")
		return nil
	})

	sel := h.prepare(t, tpl, customerFilter())
	_, err := h.create(tpl, customerFilter(), sel.CreateToken.Value)

	var pErr *errs.PersistenceFailure
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, "store document", pErr.Op)
	assert.Len(t, h.unbilled(t), 2)

	require.NoError(t, h.dispatcher.Close())
	assert.Equal(t, "persistence", <-failed)
}

func TestInvoiceService_ConcurrentCommitsBillOnce(t *testing.T) {
	h := newHarness(t)
	tpl := h.template(t)
	h.seed(t, 5)

	const workers = 4
	tokens := make([]string, workers)
	for i := range tokens {
		tokens[i] = h.prepare(t, tpl, customerFilter()).CreateToken.Value
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		nothing   int
	)
	for _, tok := range tokens {
		wg.Add(1)
		go func(tok string) {
			defer wg.Done()
			_, err := h.create(tpl, customerFilter(), tok)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, errs.ErrNothingToBill):
				nothing++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(tok)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, nothing)
	assert.Empty(t, h.unbilled(t))
}

func TestInvoiceService_NumbersAreSequential(t *testing.T) {
	h := newHarness(t)
	tpl := h.template(t)

	var numbers []string
	for i := 0; i < 3; i++ {
		h.seed(t, 1)
		sel := h.prepare(t, tpl, customerFilter())
		inv, err := h.create(tpl, customerFilter(), sel.CreateToken.Value)
		require.NoError(t, err)
		numbers = append(numbers, inv.Number)
	}
	assert.Equal(t, []string{"INV-2026-0001", "INV-2026-0002", "INV-2026-0003"}, numbers)
}

func TestInvoiceService_Preview(t *testing.T) {
	h := newHarness(t)
	tpl := h.template(t, func(t *entity.InvoiceTemplate) { t.Renderer = "html" })
	h.seed(t, 4)

	sel := h.prepare(t, tpl, customerFilter())
	cmd := InvoiceCommand{
		Operator:   operator,
		TemplateID: tpl.ID,
		Filter:     customerFilter(),
		Token:      sel.PreviewToken.Value,
	}

	first, err := h.service.Preview(context.Background(), cmd)
	require.NoError(t, err)
	require.NotNil(t, first.NextToken)
	assert.Equal(t, "text/html; charset=utf-8", first.Document.MimeType)
	assert.Contains(t, string(first.Document.Content), "preview")

	cmd.Token = first.NextToken.Value
	second, err := h.service.Preview(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, first.Document.Content, second.Document.Content)

	_, err = h.service.Preview(context.Background(), cmd)
	var tokenErr *errs.TokenError
	assert.ErrorAs(t, err, &tokenErr, "preview tokens are single use")

	assert.Len(t, h.unbilled(t), 4, "preview persists nothing")
	invoices, err := h.service.List(context.Background(), entity.InvoiceFilter{})
	require.NoError(t, err)
	assert.Empty(t, invoices)
}

func TestInvoiceService_PreviewTokenCannotCommit(t *testing.T) {
	h := newHarness(t)
	tpl := h.template(t)
	h.seed(t, 1)

	sel := h.prepare(t, tpl, customerFilter())
	_, err := h.create(tpl, customerFilter(), sel.PreviewToken.Value)

	var tokenErr *errs.TokenError
	require.ErrorAs(t, err, &tokenErr)
	assert.Equal(t, errs.TokenMismatch, tokenErr.Reason)
}

func TestInvoiceService_PrepareValidation(t *testing.T) {
	h := newHarness(t)
	tpl := h.template(t)

	tests := []struct {
		name   string
		tplID  int64
		filter entity.TimesheetFilter
		field  string
	}{
		{"missing template", 0, entity.TimesheetFilter{}, "template"},
		{"unknown template", 999, entity.TimesheetFilter{}, "template"},
		{"bad export state", tpl.ID, entity.TimesheetFilter{ExportState: "sometimes"}, "exported"},
		{"negative customer", tpl.ID, entity.TimesheetFilter{CustomerIDs: []int64{-1}}, "customers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.service.Prepare(context.Background(), SelectionRequest{
				Operator:   operator,
				TemplateID: tt.tplID,
				Filter:     tt.filter,
			})
			var vErr *errs.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestInvoiceService_ListAndExport(t *testing.T) {
	h := newHarness(t)
	tpl := h.template(t)
	h.seed(t, 2)

	sel := h.prepare(t, tpl, customerFilter())
	_, err := h.create(tpl, customerFilter(), sel.CreateToken.Value)
	require.NoError(t, err)

	pending, err := h.service.List(context.Background(), entity.InvoiceFilter{Statuses: []workflow.State{workflow.StatePending}})
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = h.service.List(context.Background(), entity.InvoiceFilter{Statuses: []workflow.State{"LOST"}})
	var vErr *errs.ValidationError
	assert.ErrorAs(t, err, &vErr)

	doc, name, err := h.service.Export(context.Background(), entity.InvoiceFilter{})
	require.NoError(t, err)
	assert.Equal(t, "invoices_20261015.xlsx", name)
	assert.NotEmpty(t, doc.Content)

	_, err = h.service.Get(context.Background(), 424242)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
