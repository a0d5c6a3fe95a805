package http

import (
	"strings"
	"time"

	"github.com/garyjia/timesheet-invoicing/internal/application/service"
	"github.com/garyjia/timesheet-invoicing/internal/domain/entity"
	"github.com/garyjia/timesheet-invoicing/internal/domain/errs"
	"github.com/garyjia/timesheet-invoicing/internal/domain/money"
	"github.com/garyjia/timesheet-invoicing/internal/invoice/calculator"
	"github.com/garyjia/timesheet-invoicing/pkg/utils"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// FilterParams selects timesheet entries. Dates are calendar days; end is
// inclusive.
type FilterParams struct {
	Begin      string  `form:"begin" json:"begin"`
	End        string  `form:"end" json:"end"`
	Customers  []int64 `form:"customers" json:"customers"`
	Projects   []int64 `form:"projects" json:"projects"`
	Activities []int64 `form:"activities" json:"activities"`
	Users      []int64 `form:"users" json:"users"`
	Exported   string  `form:"exported" json:"exported"`
}

func (p FilterParams) toFilter(loc *time.Location) (entity.TimesheetFilter, error) {
	f := entity.TimesheetFilter{
		CustomerIDs: p.Customers,
		ProjectIDs:  p.Projects,
		ActivityIDs: p.Activities,
		UserIDs:     p.Users,
		ExportState: entity.ExportState(strings.TrimSpace(p.Exported)),
	}
	if p.Begin != "" {
		begin, err := utils.ParseDate(p.Begin, loc)
		if err != nil {
			return f, errs.Invalid("begin", "%q is not a date (use YYYY-MM-DD)", p.Begin)
		}
		f.Begin = &begin
	}
	if p.End != "" {
		end, err := utils.ParseDate(p.End, loc)
		if err != nil {
			return f, errs.Invalid("end", "%q is not a date (use YYYY-MM-DD)", p.End)
		}
		// the whole end day is included; filter ends are exclusive
		end = end.AddDate(0, 0, 1)
		f.End = &end
	}
	return f, nil
}

// SelectionQuery is the query of a selection request
type SelectionQuery struct {
	FilterParams
	TemplateID int64 `form:"template"`
}

// InvoiceRequest is the body of preview and commit requests
type InvoiceRequest struct {
	TemplateID int64        `json:"template_id"`
	Filter     FilterParams `json:"filter"`
	Token      string       `json:"token"`
}

// StatusRequest is the body of a status change
type StatusRequest struct {
	Status      string `json:"status"`
	PaymentDate string `json:"payment_date"`
	Token       string `json:"token"`
}

// PaymentDateRequest is the body of a payment date edit
type PaymentDateRequest struct {
	PaymentDate string `json:"payment_date"`
	Token       string `json:"token"`
}

// TemplateRequest is the editable part of a template. Rates and amounts are
// decimal strings.
type TemplateRequest struct {
	Name           string           `json:"name"`
	Title          string           `json:"title"`
	Company        string           `json:"company"`
	Address        string           `json:"address"`
	VatID          string           `json:"vat_id"`
	Contact        string           `json:"contact"`
	PaymentTerms   string           `json:"payment_terms"`
	PaymentDetails string           `json:"payment_details"`
	Calculator     string           `json:"calculator"`
	Renderer       string           `json:"renderer"`
	TaxRate        string           `json:"tax_rate"`
	NumberFormat   string           `json:"number_format"`
	DueDays        *int             `json:"due_days"`
	ActivityRates  map[int64]string `json:"activity_rates"`
}

func (r TemplateRequest) toEntity(id int64) (*entity.InvoiceTemplate, error) {
	tpl := &entity.InvoiceTemplate{
		ID:             id,
		Name:           r.Name,
		Title:          r.Title,
		Company:        r.Company,
		Address:        r.Address,
		VatID:          r.VatID,
		Contact:        r.Contact,
		PaymentTerms:   r.PaymentTerms,
		PaymentDetails: r.PaymentDetails,
		Calculator:     r.Calculator,
		Renderer:       r.Renderer,
		NumberFormat:   r.NumberFormat,
		DueDays:        30,
	}
	if r.DueDays != nil {
		tpl.DueDays = *r.DueDays
	}
	if r.TaxRate != "" {
		rate, err := money.ParseRate(r.TaxRate)
		if err != nil {
			return nil, errs.Invalid("taxRate", "%q is not a percentage", r.TaxRate)
		}
		tpl.TaxRate = rate
	}
	if len(r.ActivityRates) > 0 {
		tpl.ActivityRates = make(map[int64]money.Amount, len(r.ActivityRates))
		for activity, raw := range r.ActivityRates {
			amount, err := money.ParseAmount(raw)
			if err != nil {
				return nil, errs.Invalid("activityRates", "%q is not an amount", raw)
			}
			tpl.ActivityRates[activity] = amount
		}
	}
	return tpl, nil
}

// TemplateResponse represents a template in API responses
type TemplateResponse struct {
	ID             int64            `json:"id"`
	Name           string           `json:"name"`
	Title          string           `json:"title"`
	Company        string           `json:"company"`
	Address        string           `json:"address"`
	VatID          string           `json:"vat_id,omitempty"`
	Contact        string           `json:"contact,omitempty"`
	PaymentTerms   string           `json:"payment_terms,omitempty"`
	PaymentDetails string           `json:"payment_details,omitempty"`
	Calculator     string           `json:"calculator"`
	Renderer       string           `json:"renderer"`
	TaxRate        string           `json:"tax_rate"`
	NumberFormat   string           `json:"number_format"`
	DueDays        int              `json:"due_days"`
	ActivityRates  map[int64]string `json:"activity_rates,omitempty"`
}

func toTemplateResponse(tpl *entity.InvoiceTemplate) TemplateResponse {
	resp := TemplateResponse{
		ID:             tpl.ID,
		Name:           tpl.Name,
		Title:          tpl.Title,
		Company:        tpl.Company,
		Address:        tpl.Address,
		VatID:          tpl.VatID,
		Contact:        tpl.Contact,
		PaymentTerms:   tpl.PaymentTerms,
		PaymentDetails: tpl.PaymentDetails,
		Calculator:     tpl.Calculator,
		Renderer:       tpl.Renderer,
		TaxRate:        tpl.TaxRate.String(),
		NumberFormat:   tpl.NumberFormat,
		DueDays:        tpl.DueDays,
	}
	if len(tpl.ActivityRates) > 0 {
		resp.ActivityRates = make(map[int64]string, len(tpl.ActivityRates))
		for activity, amount := range tpl.ActivityRates {
			resp.ActivityRates[activity] = amount.String()
		}
	}
	return resp
}

// TokenResponse is an issued action token
type TokenResponse struct {
	Value     string `json:"value"`
	ExpiresAt string `json:"expires_at"`
}

func toTokenResponse(tok *entity.ActionToken) *TokenResponse {
	if tok == nil {
		return nil
	}
	return &TokenResponse{
		Value:     tok.Value,
		ExpiresAt: tok.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

// EntryResponse represents a timesheet entry in a selection
type EntryResponse struct {
	ID          int64  `json:"id"`
	Begin       string `json:"begin"`
	User        string `json:"user"`
	Customer    string `json:"customer"`
	Project     string `json:"project"`
	Activity    string `json:"activity"`
	Description string `json:"description,omitempty"`
	Duration    int64  `json:"duration"`
	Rate        string `json:"rate"`
	Currency    string `json:"currency"`
}

// LineResponse is one calculated invoice line
type LineResponse struct {
	Description string `json:"description"`
	Entries     int    `json:"entries"`
	Duration    int64  `json:"duration"`
	Amount      string `json:"amount"`
}

// TotalsResponse is the calculation shown before committing
type TotalsResponse struct {
	Lines      []LineResponse `json:"lines"`
	Subtotal   string         `json:"subtotal"`
	TaxRate    string         `json:"tax_rate"`
	TaxAmount  string         `json:"tax_amount"`
	GrandTotal string         `json:"grand_total"`
	Currency   string         `json:"currency"`
	Duration   int64          `json:"duration"`
}

func toTotalsResponse(t *calculator.Totals) *TotalsResponse {
	if t == nil {
		return nil
	}
	lines := make([]LineResponse, 0, len(t.Lines))
	for _, l := range t.Lines {
		lines = append(lines, LineResponse{
			Description: l.Description,
			Entries:     len(l.EntryIDs),
			Duration:    l.Duration,
			Amount:      l.Amount.String(),
		})
	}
	return &TotalsResponse{
		Lines:      lines,
		Subtotal:   t.Subtotal.String(),
		TaxRate:    t.TaxRate.String(),
		TaxAmount:  t.TaxAmount.String(),
		GrandTotal: t.GrandTotal.String(),
		Currency:   t.Currency,
		Duration:   t.Duration,
	}
}

// SelectionResponse is the result of a selection request
type SelectionResponse struct {
	TemplateID   int64           `json:"template_id"`
	Entries      []EntryResponse `json:"entries"`
	Totals       *TotalsResponse `json:"totals,omitempty"`
	CreateToken  *TokenResponse  `json:"create_token,omitempty"`
	PreviewToken *TokenResponse  `json:"preview_token,omitempty"`
}

func toSelectionResponse(sel *service.Selection) SelectionResponse {
	entries := make([]EntryResponse, 0, len(sel.Entries))
	for _, e := range sel.Entries {
		entries = append(entries, EntryResponse{
			ID:          e.ID,
			Begin:       e.Begin.UTC().Format(time.RFC3339),
			User:        e.UserName,
			Customer:    e.CustomerName,
			Project:     e.ProjectName,
			Activity:    e.ActivityName,
			Description: e.Description,
			Duration:    e.Duration,
			Rate:        e.Rate.String(),
			Currency:    e.Currency,
		})
	}
	return SelectionResponse{
		TemplateID:   sel.Template.ID,
		Entries:      entries,
		Totals:       toTotalsResponse(sel.Totals),
		CreateToken:  toTokenResponse(sel.CreateToken),
		PreviewToken: toTokenResponse(sel.PreviewToken),
	}
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID           int64   `json:"id,string"`
	Number       string  `json:"number"`
	Status       string  `json:"status"`
	TemplateID   int64   `json:"template_id"`
	Operator     string  `json:"operator"`
	Currency     string  `json:"currency"`
	Subtotal     string  `json:"subtotal"`
	TaxRate      string  `json:"tax_rate"`
	TaxAmount    string  `json:"tax_amount"`
	Total        string  `json:"total"`
	Duration     int64   `json:"duration"`
	IssueDate    string  `json:"issue_date"`
	DueDate      string  `json:"due_date"`
	PaymentDate  *string `json:"payment_date,omitempty"`
	DocumentName string  `json:"document_name"`
	Entries      int     `json:"entries"`
}

func toInvoiceResponse(inv *entity.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		ID:           inv.ID,
		Number:       inv.Number,
		Status:       inv.Status.String(),
		TemplateID:   inv.TemplateID,
		Operator:     inv.Operator,
		Currency:     inv.Currency,
		Subtotal:     inv.Subtotal.String(),
		TaxRate:      inv.TaxRate.String(),
		TaxAmount:    inv.TaxAmount.String(),
		Total:        inv.Total.String(),
		Duration:     inv.Duration,
		IssueDate:    inv.IssueDate.Format(utils.DateLayout),
		DueDate:      inv.DueDate.Format(utils.DateLayout),
		DocumentName: inv.DocumentName,
		Entries:      len(inv.EntryIDs),
	}
	if inv.PaymentDate != nil {
		paid := inv.PaymentDate.Format(utils.DateLayout)
		resp.PaymentDate = &paid
	}
	return resp
}
