// Package closing implements monthly reconciliation: opening stock,
// period movement totals, closing stock, and the close-month operation
// that materializes next month's OPENING rows.
package closing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain/ledger"
)

// GroupBy selects the report grouping axis.
type GroupBy string

const (
	GroupByProduct GroupBy = "product"
	GroupByAccount GroupBy = "accountCode"
)

// MovementRow is the raw per-(product, warehouse) aggregation for one
// period, as produced by the repository. Opening is anchored at the
// newest OPENING row at or before the period start, so materialized
// closings do not double-count history.
type MovementRow struct {
	ProductID   id.ID            `db:"product_id"`
	ProductCode string           `db:"product_code"`
	ProductName string           `db:"product_name"`
	AccountCode string           `db:"account_code"`
	UnitWeight  decimal.Decimal  `db:"unit_weight"`
	Warehouse   ledger.Warehouse `db:"warehouse"`

	Opening       types.Quantity `db:"opening"`
	Inbound       types.Quantity `db:"inbound"`
	Outbound      types.Quantity `db:"outbound"`
	ConversionIn  types.Quantity `db:"conversion_in"`
	ConversionOut types.Quantity `db:"conversion_out"`
	Adjustment    types.Quantity `db:"adjustment"`
}

// Closing derives the closing balance from the row's figures.
func (m *MovementRow) Closing() types.Quantity {
	return types.Quantity(
		int64(m.Opening) +
			int64(m.Inbound) -
			int64(m.Outbound) +
			int64(m.ConversionIn) -
			int64(m.ConversionOut) +
			int64(m.Adjustment))
}

// Repository is the aggregation port for reconciliation queries.
type Repository interface {
	// MovementRows aggregates register rows for [from, to) per
	// (product, warehouse). An empty warehouse returns both scopes as
	// separate rows.
	MovementRows(ctx context.Context, from, to time.Time, warehouse ledger.Warehouse) ([]*MovementRow, error)
}

// ReportRow is one line of the monthly reconciliation report.
// Weight figures are quantity times the product's unit weight; rows for
// products without an account code keep zero weights rather than
// failing the report.
type ReportRow struct {
	ProductID   id.ID  `json:"productId,omitempty"`
	ProductCode string `json:"productCode,omitempty"`
	ProductName string `json:"productName,omitempty"`
	AccountCode string `json:"accountCode,omitempty"`

	Opening       types.Quantity `json:"opening"`
	Inbound       types.Quantity `json:"inbound"`
	Outbound      types.Quantity `json:"outbound"`
	ConversionNet types.Quantity `json:"conversionNet"`
	AdjustmentNet types.Quantity `json:"adjustmentNet"`
	Closing       types.Quantity `json:"closing"`

	OpeningWeight  decimal.Decimal `json:"openingWeight"`
	InboundWeight  decimal.Decimal `json:"inboundWeight"`
	OutboundWeight decimal.Decimal `json:"outboundWeight"`
	ClosingWeight  decimal.Decimal `json:"closingWeight"`
}

// MonthlyReport is the reconciliation output for one period.
type MonthlyReport struct {
	Year    int          `json:"year"`
	Month   time.Month   `json:"month"`
	GroupBy GroupBy      `json:"groupBy"`
	Rows    []*ReportRow `json:"rows"`
}

// ClosingResult reports the outcome of a close-month run.
type ClosingResult struct {
	Reference   string     `json:"reference"`
	Year        int        `json:"year"`
	Month       time.Month `json:"month"`
	OpeningDate time.Time  `json:"openingDate"`
	RowsPosted  int        `json:"rowsPosted"`
}

// ClosingReference builds the reference tag stamped on materialized
// OPENING rows. Its presence in the register is the idempotency guard
// against closing the same month twice.
func ClosingReference(year int, month time.Month) string {
	return fmt.Sprintf("CLOSE-%04d-%02d", year, int(month))
}
