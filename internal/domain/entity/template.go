package entity

import (
	"time"

	"github.com/garyjia/timesheet-invoicing/internal/domain/money"
)

// InvoiceTemplate configures how invoices are calculated, rendered and numbered
type InvoiceTemplate struct {
	ID             int64                  `json:"id"`
	Name           string                 `json:"name"`
	Title          string                 `json:"title"`
	Company        string                 `json:"company"`
	Address        string                 `json:"address"`
	VatID          string                 `json:"vat_id"`
	Contact        string                 `json:"contact"`
	PaymentTerms   string                 `json:"payment_terms"`
	PaymentDetails string                 `json:"payment_details"`
	Calculator     string                 `json:"calculator"`
	Renderer       string                 `json:"renderer"`
	TaxRate        money.Rate             `json:"tax_rate"`
	NumberFormat   string                 `json:"number_format"`
	DueDays        int                    `json:"due_days"`
	ActivityRates  map[int64]money.Amount `json:"activity_rates,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// Field returns a free-text field by its external name
func (t *InvoiceTemplate) Field(name string) string {
	switch name {
	case "name":
		return t.Name
	case "title":
		return t.Title
	case "company":
		return t.Company
	case "address":
		return t.Address
	case "vatId":
		return t.VatID
	case "contact":
		return t.Contact
	case "paymentTerms":
		return t.PaymentTerms
	case "paymentDetails":
		return t.PaymentDetails
	}
	return ""
}

// Copy returns a detached copy named as the first duplicate of the original
func (t *InvoiceTemplate) Copy() *InvoiceTemplate {
	c := *t
	c.ID = 0
	c.Name = t.Name + " (1)"
	c.CreatedAt = time.Time{}
	c.UpdatedAt = time.Time{}
	if t.ActivityRates != nil {
		c.ActivityRates = make(map[int64]money.Amount, len(t.ActivityRates))
		for k, v := range t.ActivityRates {
			c.ActivityRates[k] = v
		}
	}
	return &c
}
