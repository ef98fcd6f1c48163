// Package reports builds the read-only projections: daily movement
// matrix, monthly summary, and weight-based account movement.
// Reports tolerate missing master data; a hole in the account-code
// mapping produces a zero-weight row, never a failed report.
package reports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain/ledger"
)

// DailyCell holds one product's movements for one day of the month.
type DailyCell struct {
	Inbound    types.Quantity `json:"inbound"`
	Outbound   types.Quantity `json:"outbound"`
	Adjustment types.Quantity `json:"adjustment"`
}

// DailyRow is one product's line of the daily matrix. Days is indexed
// 1..31; unused trailing days stay zero.
//
// Column order for export: product code, product name, then one
// in/out/adjustment triple per day in calendar order.
type DailyRow struct {
	ProductID   id.ID       `json:"productId"`
	ProductCode string      `json:"productCode"`
	ProductName string      `json:"productName"`
	Days        []DailyCell `json:"days"`
}

// DailyMatrix is the month-at-a-glance movement report.
type DailyMatrix struct {
	Year        int              `json:"year"`
	Month       time.Month       `json:"month"`
	Warehouse   ledger.Warehouse `json:"warehouse,omitempty"`
	DaysInMonth int              `json:"daysInMonth"`
	Rows        []*DailyRow      `json:"rows"`
}

// DailyMovement is the raw repository aggregation: per product per day
// per type.
type DailyMovement struct {
	ProductID   id.ID          `db:"product_id"`
	ProductCode string         `db:"product_code"`
	ProductName string         `db:"product_name"`
	Day         int            `db:"day"`
	Type        ledger.Type    `db:"type"`
	Quantity    types.Quantity `db:"quantity"`
}

// AccountWeightRow is one account code's weight movement for a period.
// Weights are quantity times unit weight in kilograms. Products without
// an account code are collected under the empty code with zero weights.
//
// Column order for export: account code, opening, inbound, outbound,
// adjustment, closing.
type AccountWeightRow struct {
	AccountCode string `json:"accountCode"`

	OpeningWeight    decimal.Decimal `json:"openingWeight"`
	InboundWeight    decimal.Decimal `json:"inboundWeight"`
	OutboundWeight   decimal.Decimal `json:"outboundWeight"`
	AdjustmentWeight decimal.Decimal `json:"adjustmentWeight"`
	ClosingWeight    decimal.Decimal `json:"closingWeight"`
}

// Repository is the aggregation port for reporting queries.
type Repository interface {
	// DailyMovements aggregates register rows of one month per
	// (product, day, type). An empty warehouse covers both scopes.
	DailyMovements(ctx context.Context, from, to time.Time, warehouse ledger.Warehouse) ([]*DailyMovement, error)
}
