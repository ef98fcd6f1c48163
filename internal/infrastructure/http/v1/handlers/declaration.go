package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/domain/declaration"
	"stockbook/internal/infrastructure/http/v1/dto"
)

// DeclarationHandler drives the declaration and shipment workflow.
type DeclarationHandler struct {
	*BaseHandler
	service *declaration.Service
}

// NewDeclarationHandler creates a new declaration handler.
func NewDeclarationHandler(base *BaseHandler, service *declaration.Service) *DeclarationHandler {
	return &DeclarationHandler{BaseHandler: base, service: service}
}

// Create handles POST /declarations.
func (h *DeclarationHandler) Create(c *gin.Context) {
	var req dto.CreateDeclarationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	d, err := req.ToEntity()
	if err != nil {
		h.Error(c, err)
		return
	}

	created, err := h.service.Create(c.Request.Context(), d)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// Get handles GET /declarations/:id.
func (h *DeclarationHandler) Get(c *gin.Context) {
	declarationID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	d, err := h.service.GetByID(c.Request.Context(), declarationID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, d)
}

// List handles GET /declarations.
func (h *DeclarationHandler) List(c *gin.Context) {
	var query dto.DeclarationListQuery
	if !h.BindQuery(c, &query) {
		return
	}
	query.Defaults()

	items, err := h.service.List(c.Request.Context(), declaration.Filter{
		Status:   declaration.Status(query.Status),
		PONumber: query.PONumber,
		Limit:    query.Limit,
		Offset:   query.Offset,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: items, Count: len(items)})
}

// SubmitOutbound handles POST /declarations/:id/submit.
func (h *DeclarationHandler) SubmitOutbound(c *gin.Context) {
	declarationID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.SubmitOutboundRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.SubmitOutbound(c.Request.Context(), declarationID,
		req.TransactionDate, req.ToMeta())
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// Abandon handles DELETE /declarations/:id.
func (h *DeclarationHandler) Abandon(c *gin.Context) {
	declarationID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	if err := h.service.Abandon(c.Request.Context(), declarationID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// GetArchive handles GET /shipments/:id.
func (h *DeclarationHandler) GetArchive(c *gin.Context) {
	shipmentID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	shipment, activity, err := h.service.GetArchive(c.Request.Context(), shipmentID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ArchiveResponse{Shipment: shipment, Activity: activity})
}

// ListArchives handles GET /shipments.
func (h *DeclarationHandler) ListArchives(c *gin.Context) {
	var query dto.ArchiveListQuery
	if !h.BindQuery(c, &query) {
		return
	}
	query.Defaults()

	items, err := h.service.ListArchives(c.Request.Context(), declaration.ArchiveFilter{
		PONumber: query.PONumber,
		Limit:    query.Limit,
		Offset:   query.Offset,
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: items, Count: len(items)})
}

// Annotate handles POST /shipments/:id/activity.
func (h *DeclarationHandler) Annotate(c *gin.Context) {
	shipmentID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.AnnotateShipmentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	note, err := h.service.Annotate(c.Request.Context(), shipmentID, req.Note)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, note)
}
