package entity

import (
	"time"

	"github.com/garyjia/timesheet-invoicing/internal/domain/money"
	"github.com/garyjia/timesheet-invoicing/internal/domain/workflow"
)

// Invoice is the durable result of one invoice generation run
type Invoice struct {
	ID               int64          `json:"id,string"`
	Number           string         `json:"number"`
	Status           workflow.State `json:"status"`
	TemplateID       int64          `json:"template_id"`
	Operator         string         `json:"operator"`
	Currency         string         `json:"currency"`
	Subtotal         money.Amount   `json:"subtotal"`
	TaxRate          money.Rate     `json:"tax_rate"`
	TaxAmount        money.Amount   `json:"tax_amount"`
	Total            money.Amount   `json:"total"`
	Duration         int64          `json:"duration"`
	IssueDate        time.Time      `json:"issue_date"`
	DueDate          time.Time      `json:"due_date"`
	PaymentDate      *time.Time     `json:"payment_date,omitempty"`
	DocumentLocator  string         `json:"document_locator"`
	DocumentMimeType string         `json:"document_mime_type"`
	DocumentName     string         `json:"document_name"`
	EntryIDs         []int64        `json:"entry_ids"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// InvoiceFilter narrows invoice listings
type InvoiceFilter struct {
	Statuses []workflow.State
	Limit    int
	Offset   int
}

// Document is a rendered invoice artifact
type Document struct {
	Content   []byte
	MimeType  string
	Extension string
}

// FileName names the document for download
func (d *Document) FileName(base string) string {
	if base == "" {
		base = "invoice-preview"
	}
	return base + "." + d.Extension
}
