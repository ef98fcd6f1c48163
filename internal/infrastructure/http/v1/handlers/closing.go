package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stockbook/internal/domain/closing"
	"stockbook/internal/domain/ledger"
)

// ClosingHandler drives monthly reconciliation.
type ClosingHandler struct {
	*BaseHandler
	service *closing.Service
}

// NewClosingHandler creates a new closing handler.
func NewClosingHandler(base *BaseHandler, service *closing.Service) *ClosingHandler {
	return &ClosingHandler{BaseHandler: base, service: service}
}

// MonthlyReport handles GET /closing/report?year=&month=&groupBy=&warehouse=.
func (h *ClosingHandler) MonthlyReport(c *gin.Context) {
	year, month, ok := h.ParsePeriod(c)
	if !ok {
		return
	}

	groupBy := closing.GroupBy(c.DefaultQuery("groupBy", string(closing.GroupByProduct)))

	report, err := h.service.BuildMonthlyReport(c.Request.Context(), year, month,
		groupBy, ledger.Warehouse(c.Query("warehouse")))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, report)
}

// PerformClosing handles POST /closing/perform?year=&month=.
func (h *ClosingHandler) PerformClosing(c *gin.Context) {
	year, month, ok := h.ParsePeriod(c)
	if !ok {
		return
	}

	result, err := h.service.PerformMonthlyClosing(c.Request.Context(), year, month)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}
