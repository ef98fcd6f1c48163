package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/domain/ledger"
	"stockbook/internal/domain/stock"
	"stockbook/internal/infrastructure/http/v1/dto"
)

// StockHandler answers derived stock queries.
type StockHandler struct {
	*BaseHandler
	service *stock.Service
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(base *BaseHandler, service *stock.Service) *StockHandler {
	return &StockHandler{BaseHandler: base, service: service}
}

// Get handles GET /stock/:productId.
func (h *StockHandler) Get(c *gin.Context) {
	productID, err := id.Parse(c.Param("productId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid product id"))
		return
	}

	level, err := h.service.CurrentStock(c.Request.Context(), productID,
		ledger.Warehouse(c.Query("warehouse")))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, level)
}

// GetBulk handles GET /stock?productIds=a,b,c.
func (h *StockHandler) GetBulk(c *gin.Context) {
	raw := c.Query("productIds")
	if raw == "" {
		h.Error(c, apperror.NewValidation("productIds query parameter is required"))
		return
	}

	var productIDs []id.ID
	for _, part := range strings.Split(raw, ",") {
		productID, err := id.Parse(strings.TrimSpace(part))
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid product id").
				WithDetail("value", part))
			return
		}
		productIDs = append(productIDs, productID)
	}

	levels, err := h.service.CurrentStockBulk(c.Request.Context(), productIDs,
		ledger.Warehouse(c.Query("warehouse")))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: levels, Count: len(levels)})
}
