package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/domain/product"
	"stockbook/internal/infrastructure/http/v1/dto"
)

// ProductHandler handles product master requests.
type ProductHandler struct {
	*BaseHandler
	service *product.Service
}

// NewProductHandler creates a new product handler.
func NewProductHandler(base *BaseHandler, service *product.Service) *ProductHandler {
	return &ProductHandler{BaseHandler: base, service: service}
}

// Create handles POST /products.
func (h *ProductHandler) Create(c *gin.Context) {
	var req dto.CreateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := req.ToEntity()
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid unit weight").
			WithDetail("value", req.UnitWeight))
		return
	}

	created, err := h.service.Create(c.Request.Context(), p)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// Update handles PUT /products/:id.
func (h *ProductHandler) Update(c *gin.Context) {
	productID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.UpdateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := h.service.GetByID(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := req.ApplyTo(p); err != nil {
		h.Error(c, apperror.NewValidation("invalid unit weight"))
		return
	}

	updated, err := h.service.Update(c.Request.Context(), p)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, updated)
}

// SetStatus handles PUT /products/:id/status.
func (h *ProductHandler) SetStatus(c *gin.Context) {
	productID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.SetProductStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}

	updated, err := h.service.SetStatus(c.Request.Context(), productID, product.Status(req.Status))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, updated)
}

// Get handles GET /products/:id.
func (h *ProductHandler) Get(c *gin.Context) {
	productID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	p, err := h.service.GetByID(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, p)
}

// GetByCode handles GET /products/by-code/:code.
func (h *ProductHandler) GetByCode(c *gin.Context) {
	p, err := h.service.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, p)
}

// List handles GET /products.
func (h *ProductHandler) List(c *gin.Context) {
	filter := product.Filter{
		Status:      product.Status(c.Query("status")),
		Country:     c.Query("country"),
		Vendor:      c.Query("vendor"),
		AccountCode: c.Query("accountCode"),
		WIPOnly:     c.Query("wip") == "true",
		Search:      c.Query("search"),
		Limit:       h.ParseIntQuery(c, "limit", 100),
		Offset:      h.ParseIntQuery(c, "offset", 0),
	}

	items, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: items, Count: len(items)})
}
