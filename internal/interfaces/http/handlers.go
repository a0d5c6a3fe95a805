package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/timesheet-invoicing/internal/application/service"
	"github.com/garyjia/timesheet-invoicing/internal/domain/entity"
	"github.com/garyjia/timesheet-invoicing/internal/domain/errs"
	"github.com/garyjia/timesheet-invoicing/internal/domain/workflow"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	location *time.Location
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, location *time.Location, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		location: location,
		logger:   logger,
	}
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// PrepareInvoice handles GET /api/invoices/selection
func (h *Handlers) PrepareInvoice(c *gin.Context) {
	var query SelectionQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		badRequest(c, "invalid query parameters")
		return
	}
	filter, err := query.toFilter(h.location)
	if err != nil {
		h.writeError(c, err)
		return
	}

	sel, err := h.services.Invoices.Prepare(c.Request.Context(), service.SelectionRequest{
		Operator:   operator(c),
		TemplateID: query.TemplateID,
		Filter:     filter,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := Response{Success: true, Data: toSelectionResponse(sel)}
	if len(sel.Entries) == 0 {
		resp.Notice = "nothing to bill for this selection"
	}
	c.JSON(http.StatusOK, resp)
}

// PreviewInvoice handles POST /api/invoices/preview. The document is
// returned inline; the token for the next preview is in a header.
func (h *Handlers) PreviewInvoice(c *gin.Context) {
	cmd, ok := h.bindInvoiceCommand(c)
	if !ok {
		return
	}

	result, err := h.services.Invoices.Preview(c.Request.Context(), cmd)
	if err != nil {
		h.writeError(c, err)
		return
	}

	if result.NextToken != nil {
		c.Header(PreviewTokenHeader, result.NextToken.Value)
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", result.Document.FileName("")))
	c.Data(http.StatusOK, result.Document.MimeType, result.Document.Content)
}

// CreateInvoice handles POST /api/invoices
func (h *Handlers) CreateInvoice(c *gin.Context) {
	cmd, ok := h.bindInvoiceCommand(c)
	if !ok {
		return
	}

	inv, err := h.services.Invoices.Create(c.Request.Context(), cmd)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: toInvoiceResponse(inv)})
}

// ListInvoices handles GET /api/invoices
func (h *Handlers) ListInvoices(c *gin.Context) {
	filter, ok := h.bindInvoiceFilter(c)
	if !ok {
		return
	}

	invoices, err := h.services.Invoices.List(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}

	data := make([]InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		data = append(data, toInvoiceResponse(inv))
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

// ExportInvoices handles GET /api/invoices/export
func (h *Handlers) ExportInvoices(c *gin.Context) {
	filter, ok := h.bindInvoiceFilter(c)
	if !ok {
		return
	}

	doc, name, err := h.services.Invoices.Export(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	attachment(c, name, doc.MimeType, doc.Content)
}

// GetInvoice handles GET /api/invoices/:id
func (h *Handlers) GetInvoice(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	inv, err := h.services.Invoices.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: toInvoiceResponse(inv)})
}

// DownloadDocument handles GET /api/invoices/:id/document
func (h *Handlers) DownloadDocument(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	doc, err := h.services.Lifecycle.Download(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	attachment(c, doc.FileName, doc.MimeType, doc.Content)
}

// IssueConfirmation handles GET /api/invoices/:id/confirm?intent=status|delete
func (h *Handlers) IssueConfirmation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var purpose entity.TokenPurpose
	switch intent := c.Query("intent"); intent {
	case "status":
		purpose = entity.PurposeStatus
	case "delete":
		purpose = entity.PurposeDelete
	default:
		purpose = entity.TokenPurpose(intent)
	}

	tok, err := h.services.Lifecycle.IssueConfirmation(c.Request.Context(), operator(c), id, purpose)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: toTokenResponse(tok)})
}

// ChangeStatus handles POST /api/invoices/:id/status
func (h *Handlers) ChangeStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	inv, err := h.services.Lifecycle.ChangeStatus(c.Request.Context(), service.StatusCommand{
		InvoiceID:   id,
		Operator:    operator(c),
		Status:      workflow.State(req.Status),
		PaymentDate: req.PaymentDate,
		Token:       req.Token,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: toInvoiceResponse(inv)})
}

// UpdatePaymentDate handles PUT /api/invoices/:id/payment-date
func (h *Handlers) UpdatePaymentDate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req PaymentDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	inv, err := h.services.Lifecycle.UpdatePaymentDate(c.Request.Context(), service.PaymentDateCommand{
		InvoiceID:   id,
		Operator:    operator(c),
		PaymentDate: req.PaymentDate,
		Token:       req.Token,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: toInvoiceResponse(inv)})
}

// DeleteInvoice handles DELETE /api/invoices/:id?token=
func (h *Handlers) DeleteInvoice(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	err := h.services.Lifecycle.Delete(c.Request.Context(), service.DeleteCommand{
		InvoiceID: id,
		Operator:  operator(c),
		Token:     c.Query("token"),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

func (h *Handlers) bindInvoiceCommand(c *gin.Context) (service.InvoiceCommand, bool) {
	var req InvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return service.InvoiceCommand{}, false
	}
	filter, err := req.Filter.toFilter(h.location)
	if err != nil {
		h.writeError(c, err)
		return service.InvoiceCommand{}, false
	}
	return service.InvoiceCommand{
		Operator:   operator(c),
		TemplateID: req.TemplateID,
		Filter:     filter,
		Token:      req.Token,
	}, true
}

func (h *Handlers) bindInvoiceFilter(c *gin.Context) (entity.InvoiceFilter, bool) {
	var query struct {
		Status []string `form:"status"`
		Limit  int      `form:"limit"`
		Offset int      `form:"offset"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		badRequest(c, "invalid query parameters")
		return entity.InvoiceFilter{}, false
	}
	if query.Limit < 0 || query.Offset < 0 {
		h.writeError(c, errs.Invalid("limit", "limit and offset must not be negative"))
		return entity.InvoiceFilter{}, false
	}

	filter := entity.InvoiceFilter{Limit: query.Limit, Offset: query.Offset}
	for _, s := range query.Status {
		filter.Statuses = append(filter.Statuses, workflow.State(s))
	}
	return filter, true
}

func operator(c *gin.Context) string {
	return c.GetString(operatorKey)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

func attachment(c *gin.Context, name, mimeType string, content []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, mimeType, content)
}
