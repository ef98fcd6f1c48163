package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/domain/ledger"
	"stockbook/internal/infrastructure/http/v1/dto"
)

// LedgerHandler handles stock register requests.
type LedgerHandler struct {
	*BaseHandler
	service *ledger.Service
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(base *BaseHandler, service *ledger.Service) *LedgerHandler {
	return &LedgerHandler{BaseHandler: base, service: service}
}

// PostInbound handles POST /ledger/inbound.
func (h *LedgerHandler) PostInbound(c *gin.Context) {
	var req dto.PostInboundRequest
	if !h.BindJSON(c, &req) {
		return
	}

	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	t, err := h.service.PostInbound(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, t.ID.String())
}

// PostAdjustment handles POST /ledger/adjustment.
func (h *LedgerHandler) PostAdjustment(c *gin.Context) {
	var req dto.PostAdjustmentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	t, err := h.service.PostAdjustment(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}

	if t == nil {
		h.OK(c, dto.AdjustmentResponse{Noop: true})
		return
	}

	c.JSON(http.StatusCreated, dto.AdjustmentResponse{
		TransactionID: t.ID.String(),
		Delta:         t.Quantity,
	})
}

// PostConversion handles POST /ledger/conversion.
func (h *LedgerHandler) PostConversion(c *gin.Context) {
	var req dto.PostConversionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	result, err := h.service.PostConversion(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ConversionResponse{
		OutTransactionID: result.Out.ID.String(),
		InTransactionID:  result.In.ID.String(),
	})
}

// Get handles GET /ledger/transactions/:id.
func (h *LedgerHandler) Get(c *gin.Context) {
	txID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	t, err := h.service.GetByID(c.Request.Context(), txID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, t)
}

// List handles GET /ledger/transactions.
func (h *LedgerHandler) List(c *gin.Context) {
	var query dto.TransactionListQuery
	if !h.BindQuery(c, &query) {
		return
	}
	query.Defaults()

	filter := ledger.Filter{
		Warehouse: ledger.Warehouse(query.Warehouse),
		Type:      ledger.Type(query.Type),
		BatchNo:   query.BatchNo,
		Limit:     query.Limit,
		Offset:    query.Offset,
	}

	if query.ProductID != "" {
		productID, err := id.Parse(query.ProductID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid product id").
				WithDetail("value", query.ProductID))
			return
		}
		filter.ProductID = productID
	}

	var ok bool
	if filter.DateFrom, ok = h.ParseDateQuery(c, "dateFrom"); !ok {
		return
	}
	if filter.DateTo, ok = h.ParseDateQuery(c, "dateTo"); !ok {
		return
	}

	items, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: items, Count: len(items)})
}
