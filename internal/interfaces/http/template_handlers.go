package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListTemplates handles GET /api/templates
func (h *Handlers) ListTemplates(c *gin.Context) {
	templates, err := h.services.Templates.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	data := make([]TemplateResponse, 0, len(templates))
	for _, tpl := range templates {
		data = append(data, toTemplateResponse(tpl))
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

// GetTemplate handles GET /api/templates/:id
func (h *Handlers) GetTemplate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	tpl, err := h.services.Templates.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: toTemplateResponse(tpl)})
}

// CreateTemplate handles POST /api/templates
func (h *Handlers) CreateTemplate(c *gin.Context) {
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	tpl, err := req.toEntity(0)
	if err != nil {
		h.writeError(c, err)
		return
	}

	created, err := h.services.Templates.Create(c.Request.Context(), tpl)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: toTemplateResponse(created)})
}

// UpdateTemplate handles PUT /api/templates/:id
func (h *Handlers) UpdateTemplate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	tpl, err := req.toEntity(id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	updated, err := h.services.Templates.Update(c.Request.Context(), tpl)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: toTemplateResponse(updated)})
}

// DeleteTemplate handles DELETE /api/templates/:id
func (h *Handlers) DeleteTemplate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.services.Templates.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

// CopyTemplate handles POST /api/templates/:id/copy
func (h *Handlers) CopyTemplate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	cp, err := h.services.Templates.Copy(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: toTemplateResponse(cp)})
}
