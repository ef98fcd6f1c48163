// Package report_repo provides the PostgreSQL aggregation queries
// behind reconciliation and reporting.
package report_repo

import (
	"context"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"

	"stockbook/internal/core/apperror"
	"stockbook/internal/domain/closing"
	"stockbook/internal/domain/ledger"
	"stockbook/internal/domain/reports"
	"stockbook/internal/infrastructure/storage/postgres"
)

// ReportRepo implements closing.Repository and reports.Repository.
type ReportRepo struct {
	txManager *postgres.TxManager
}

var (
	_ closing.Repository = (*ReportRepo)(nil)
	_ reports.Repository = (*ReportRepo)(nil)
)

// NewReportRepo creates a new report repository.
func NewReportRepo(txManager *postgres.TxManager) *ReportRepo {
	return &ReportRepo{txManager: txManager}
}

// MovementRows aggregates the register for one period per
// (product, warehouse). The opening figure anchors at the newest
// OPENING row at or before the period start, so a materialized closing
// replaces the history it summarizes instead of doubling it.
func (r *ReportRepo) MovementRows(ctx context.Context, from, to time.Time, warehouse ledger.Warehouse) ([]*closing.MovementRow, error) {
	sql := `
		WITH anchors AS (
			SELECT product_id, warehouse, MAX(date) AS anchor
			FROM ledger_transactions
			WHERE type = 'OPENING' AND date <= $1
			GROUP BY product_id, warehouse
		),
		opening AS (
			SELECT t.product_id, t.warehouse,
			       SUM(CASE t.type
			             WHEN 'OUT' THEN -t.quantity
			             WHEN 'CONVERSION_OUT' THEN -t.quantity
			             ELSE t.quantity
			           END) AS opening
			FROM ledger_transactions t
			LEFT JOIN anchors a
			       ON a.product_id = t.product_id AND a.warehouse = t.warehouse
			WHERE (t.date < $1 AND (a.anchor IS NULL OR t.date >= a.anchor))
			   OR (t.type = 'OPENING' AND t.date = $1)
			GROUP BY t.product_id, t.warehouse
		),
		period AS (
			SELECT product_id, warehouse,
			       SUM(CASE WHEN type = 'IN' THEN quantity ELSE 0 END)             AS inbound,
			       SUM(CASE WHEN type = 'OUT' THEN quantity ELSE 0 END)            AS outbound,
			       SUM(CASE WHEN type = 'CONVERSION_IN' THEN quantity ELSE 0 END)  AS conversion_in,
			       SUM(CASE WHEN type = 'CONVERSION_OUT' THEN quantity ELSE 0 END) AS conversion_out,
			       SUM(CASE WHEN type = 'ADJUSTMENT' THEN quantity ELSE 0 END)     AS adjustment
			FROM ledger_transactions
			WHERE date >= $1 AND date < $2 AND type <> 'OPENING'
			GROUP BY product_id, warehouse
		),
		scopes AS (
			SELECT product_id, warehouse FROM opening
			UNION
			SELECT product_id, warehouse FROM period
		)
		SELECT p.id                         AS product_id,
		       p.code                       AS product_code,
		       p.name                       AS product_name,
		       COALESCE(p.account_code, '') AS account_code,
		       p.unit_weight                AS unit_weight,
		       s.warehouse                  AS warehouse,
		       COALESCE(o.opening, 0)        AS opening,
		       COALESCE(pr.inbound, 0)       AS inbound,
		       COALESCE(pr.outbound, 0)      AS outbound,
		       COALESCE(pr.conversion_in, 0)  AS conversion_in,
		       COALESCE(pr.conversion_out, 0) AS conversion_out,
		       COALESCE(pr.adjustment, 0)     AS adjustment
		FROM scopes s
		JOIN cat_products p ON p.id = s.product_id
		LEFT JOIN opening o
		       ON o.product_id = s.product_id AND o.warehouse = s.warehouse
		LEFT JOIN period pr
		       ON pr.product_id = s.product_id AND pr.warehouse = s.warehouse`
	args := []any{from, to}

	if warehouse != "" {
		sql += ` WHERE s.warehouse = $3`
		args = append(args, warehouse)
	}
	sql += ` ORDER BY p.code, s.warehouse`

	var rows []*closing.MovementRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, apperror.NewDatabase(err)
	}

	return rows, nil
}

// DailyMovements aggregates one month's register rows per
// (product, day, type). OPENING rows are carried balances, not
// movements, and stay out of the matrix.
func (r *ReportRepo) DailyMovements(ctx context.Context, from, to time.Time, warehouse ledger.Warehouse) ([]*reports.DailyMovement, error) {
	sql := `
		SELECT t.product_id                   AS product_id,
		       p.code                         AS product_code,
		       p.name                         AS product_name,
		       EXTRACT(DAY FROM t.date)::int  AS day,
		       t.type                         AS type,
		       SUM(t.quantity)                AS quantity
		FROM ledger_transactions t
		JOIN cat_products p ON p.id = t.product_id
		WHERE t.date >= $1 AND t.date < $2 AND t.type <> 'OPENING'`
	args := []any{from, to}

	if warehouse != "" {
		sql += ` AND t.warehouse = $3`
		args = append(args, warehouse)
	}
	sql += `
		GROUP BY t.product_id, p.code, p.name, day, t.type
		ORDER BY p.code, day`

	var rows []*reports.DailyMovement
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, apperror.NewDatabase(err)
	}

	return rows, nil
}
