package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/timesheet-invoicing/internal/domain/errs"
)

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Field   string      `json:"field,omitempty"`
	Notice  string      `json:"notice,omitempty"`
}

// writeError maps a service error onto a status code and message. Internal
// failures are logged and answered with a generic message.
func (h *Handlers) writeError(c *gin.Context, err error) {
	var (
		validation *errs.ValidationError
		render     *errs.RenderError
		token      *errs.TokenError
	)

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusUnprocessableEntity, Response{Error: validation.Message, Field: validation.Field})
	case errors.As(err, &render):
		c.JSON(http.StatusUnprocessableEntity, Response{Error: render.Error(), Field: render.Field})
	case errors.As(err, &token):
		c.JSON(http.StatusConflict, Response{Error: "the request was already handled or has expired, please retry"})
	case errors.Is(err, errs.ErrNothingToBill):
		c.JSON(http.StatusOK, Response{Notice: "nothing to bill for this selection"})
	case errors.Is(err, errs.ErrDocumentNotFound):
		c.JSON(http.StatusNotFound, Response{Error: "document not found"})
	case errors.Is(err, errs.ErrNotFound):
		c.JSON(http.StatusNotFound, Response{Error: "not found"})
	case errors.Is(err, errs.ErrInvalidTransition),
		errors.Is(err, errs.ErrTemplateInUse),
		errors.Is(err, errs.ErrAlreadyExported):
		c.JSON(http.StatusConflict, Response{Error: err.Error()})
	default:
		h.logger.Error("Request failed",
			"error", err,
			"kind", errs.Kind(err),
			"method", c.Request.Method,
			"path", c.FullPath())
		c.JSON(http.StatusInternalServerError, Response{Error: "internal error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Error: msg})
}
