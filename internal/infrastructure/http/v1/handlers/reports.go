package handlers

import (
	"github.com/gin-gonic/gin"

	"stockbook/internal/domain/ledger"
	"stockbook/internal/domain/reports"
	"stockbook/internal/infrastructure/http/v1/dto"
)

// ReportsHandler renders the reporting projections.
type ReportsHandler struct {
	*BaseHandler
	service *reports.Service
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, service *reports.Service) *ReportsHandler {
	return &ReportsHandler{BaseHandler: base, service: service}
}

// DailyMatrix handles GET /reports/daily?year=&month=&warehouse=.
func (h *ReportsHandler) DailyMatrix(c *gin.Context) {
	year, month, ok := h.ParsePeriod(c)
	if !ok {
		return
	}

	matrix, err := h.service.DailyMatrix(c.Request.Context(), year, month,
		ledger.Warehouse(c.Query("warehouse")))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, matrix)
}

// MonthlySummary handles GET /reports/monthly?year=&month=&warehouse=.
func (h *ReportsHandler) MonthlySummary(c *gin.Context) {
	year, month, ok := h.ParsePeriod(c)
	if !ok {
		return
	}

	report, err := h.service.MonthlySummary(c.Request.Context(), year, month,
		ledger.Warehouse(c.Query("warehouse")))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, report)
}

// AccountWeightMovement handles GET /reports/account-weight?year=&month=&warehouse=.
func (h *ReportsHandler) AccountWeightMovement(c *gin.Context) {
	year, month, ok := h.ParsePeriod(c)
	if !ok {
		return
	}

	rows, err := h.service.AccountWeightMovement(c.Request.Context(), year, month,
		ledger.Warehouse(c.Query("warehouse")))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: rows, Count: len(rows)})
}
