package http

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/garyjia/timesheet-invoicing/internal/application/service"
	"github.com/garyjia/timesheet-invoicing/internal/domain/entity"
)

type mockLogger struct{}

func (mockLogger) Info(string, ...interface{}) {}
func (mockLogger) Error(string, ...interface{}) {}

type mockInvoiceService struct {
	mock.Mock
}

func (m *mockInvoiceService) Prepare(ctx context.Context, req service.SelectionRequest) (*service.Selection, error) {
	args := m.Called(ctx, req)
	sel, _ := args.Get(0).(*service.Selection)
	return sel, args.Error(1)
}

func (m *mockInvoiceService) Preview(ctx context.Context, cmd service.InvoiceCommand) (*service.PreviewResult, error) {
	args := m.Called(ctx, cmd)
	res, _ := args.Get(0).(*service.PreviewResult)
	return res, args.Error(1)
}

func (m *mockInvoiceService) Create(ctx context.Context, cmd service.InvoiceCommand) (*entity.Invoice, error) {
	args := m.Called(ctx, cmd)
	inv, _ := args.Get(0).(*entity.Invoice)
	return inv, args.Error(1)
}

func (m *mockInvoiceService) Get(ctx context.Context, id int64) (*entity.Invoice, error) {
	args := m.Called(ctx, id)
	inv, _ := args.Get(0).(*entity.Invoice)
	return inv, args.Error(1)
}

func (m *mockInvoiceService) List(ctx context.Context, filter entity.InvoiceFilter) ([]*entity.Invoice, error) {
	args := m.Called(ctx, filter)
	invoices, _ := args.Get(0).([]*entity.Invoice)
	return invoices, args.Error(1)
}

func (m *mockInvoiceService) Export(ctx context.Context, filter entity.InvoiceFilter) (*entity.Document, string, error) {
	args := m.Called(ctx, filter)
	doc, _ := args.Get(0).(*entity.Document)
	return doc, args.String(1), args.Error(2)
}

type mockLifecycle struct {
	mock.Mock
}

func (m *mockLifecycle) IssueConfirmation(ctx context.Context, operator string, invoiceID int64, purpose entity.TokenPurpose) (*entity.ActionToken, error) {
	args := m.Called(ctx, operator, invoiceID, purpose)
	tok, _ := args.Get(0).(*entity.ActionToken)
	return tok, args.Error(1)
}

func (m *mockLifecycle) ChangeStatus(ctx context.Context, cmd service.StatusCommand) (*entity.Invoice, error) {
	args := m.Called(ctx, cmd)
	inv, _ := args.Get(0).(*entity.Invoice)
	return inv, args.Error(1)
}

func (m *mockLifecycle) UpdatePaymentDate(ctx context.Context, cmd service.PaymentDateCommand) (*entity.Invoice, error) {
	args := m.Called(ctx, cmd)
	inv, _ := args.Get(0).(*entity.Invoice)
	return inv, args.Error(1)
}

func (m *mockLifecycle) Delete(ctx context.Context, cmd service.DeleteCommand) error {
	return m.Called(ctx, cmd).Error(0)
}

func (m *mockLifecycle) Download(ctx context.Context, invoiceID int64) (*service.DocumentDownload, error) {
	args := m.Called(ctx, invoiceID)
	doc, _ := args.Get(0).(*service.DocumentDownload)
	return doc, args.Error(1)
}

type mockTemplateService struct {
	mock.Mock
}

func (m *mockTemplateService) Create(ctx context.Context, tpl *entity.InvoiceTemplate) (*entity.InvoiceTemplate, error) {
	args := m.Called(ctx, tpl)
	out, _ := args.Get(0).(*entity.InvoiceTemplate)
	return out, args.Error(1)
}

func (m *mockTemplateService) Update(ctx context.Context, tpl *entity.InvoiceTemplate) (*entity.InvoiceTemplate, error) {
	args := m.Called(ctx, tpl)
	out, _ := args.Get(0).(*entity.InvoiceTemplate)
	return out, args.Error(1)
}

func (m *mockTemplateService) Get(ctx context.Context, id int64) (*entity.InvoiceTemplate, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).(*entity.InvoiceTemplate)
	return out, args.Error(1)
}

func (m *mockTemplateService) List(ctx context.Context) ([]*entity.InvoiceTemplate, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]*entity.InvoiceTemplate)
	return out, args.Error(1)
}

func (m *mockTemplateService) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockTemplateService) Copy(ctx context.Context, id int64) (*entity.InvoiceTemplate, error) {
	args := m.Called(ctx, id)
	out, _ := args.Get(0).(*entity.InvoiceTemplate)
	return out, args.Error(1)
}
