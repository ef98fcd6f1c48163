// Package ledger_repo provides the PostgreSQL implementation of the
// stock transaction register.
package ledger_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain/ledger"
	"stockbook/internal/infrastructure/storage/postgres"
)

const (
	transactionsTable = "ledger_transactions"
	productsTable     = "cat_products"
)

// signedQuantitySQL folds the type sign convention into SQL so that
// aggregation happens in the database, matching Transaction.SignedQuantity.
const signedQuantitySQL = `CASE type
	WHEN 'OUT' THEN -quantity
	WHEN 'CONVERSION_OUT' THEN -quantity
	ELSE quantity
END`

var transactionColumns = []string{
	"id", "product_id", "warehouse", "type", "quantity",
	"date", "batch_no", "reference_no", "notes",
	"created_by", "created_at",
}

// TransactionRepo implements ledger.Repository.
//
// Stock sums anchor at the newest OPENING row per (product, warehouse),
// so materialized monthly closings never double-count the history they
// summarize.
type TransactionRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ ledger.Repository = (*TransactionRepo)(nil)

// NewTransactionRepo creates the register repository.
func NewTransactionRepo(txManager *postgres.TxManager) *TransactionRepo {
	return &TransactionRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a single register row.
func (r *TransactionRepo) Create(ctx context.Context, t *ledger.Transaction) error {
	q := r.builder.Insert(transactionsTable).
		Columns(transactionColumns...).
		Values(
			t.ID, t.ProductID, t.Warehouse, t.Type, t.Quantity,
			t.Date, t.BatchNo, t.ReferenceNo, t.Notes,
			t.CreatedBy, t.CreatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return apperror.NewDatabase(err)
	}

	return nil
}

// CreateBatch inserts register rows using COPY when inside a
// transaction, falling back to a multi-row insert otherwise.
func (r *TransactionRepo) CreateBatch(ctx context.Context, txs []*ledger.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	if tx := r.txManager.GetTx(ctx); tx != nil {
		inserter := postgres.NewBatchInserter(r.txManager)
		rows := make([][]any, 0, len(txs))
		for _, t := range txs {
			rows = append(rows, []any{
				t.ID, t.ProductID, t.Warehouse, t.Type, t.Quantity,
				t.Date, t.BatchNo, t.ReferenceNo, t.Notes,
				t.CreatedBy, t.CreatedAt,
			})
		}
		if _, err := inserter.CopyFromSlice(ctx, transactionsTable, transactionColumns, rows); err != nil {
			return apperror.NewDatabase(fmt.Errorf("copy transactions: %w", err))
		}
		return nil
	}

	q := r.builder.Insert(transactionsTable).Columns(transactionColumns...)
	for _, t := range txs {
		q = q.Values(
			t.ID, t.ProductID, t.Warehouse, t.Type, t.Quantity,
			t.Date, t.BatchNo, t.ReferenceNo, t.Notes,
			t.CreatedBy, t.CreatedAt,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return apperror.NewDatabase(err)
	}

	return nil
}

// GetByID retrieves one register row.
func (r *TransactionRepo) GetByID(ctx context.Context, txID id.ID) (*ledger.Transaction, error) {
	q := r.builder.Select(transactionColumns...).
		From(transactionsTable).
		Where(squirrel.Eq{"id": txID})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var t ledger.Transaction
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &t, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFound("transaction", txID.String())
		}
		return nil, apperror.NewDatabase(err)
	}

	return &t, nil
}

// List returns register rows matching the filter, newest first.
func (r *TransactionRepo) List(ctx context.Context, filter ledger.Filter) ([]*ledger.Transaction, error) {
	q := r.builder.Select(transactionColumns...).
		From(transactionsTable).
		OrderBy("date DESC", "created_at DESC")

	if !id.IsNil(filter.ProductID) {
		q = q.Where(squirrel.Eq{"product_id": filter.ProductID})
	}
	if filter.Warehouse != "" {
		q = q.Where(squirrel.Eq{"warehouse": filter.Warehouse})
	}
	if filter.Type != "" {
		q = q.Where(squirrel.Eq{"type": filter.Type})
	}
	if !filter.DateFrom.IsZero() {
		q = q.Where(squirrel.GtOrEq{"date": filter.DateFrom})
	}
	if !filter.DateTo.IsZero() {
		q = q.Where(squirrel.Lt{"date": filter.DateTo})
	}
	if filter.BatchNo != "" {
		q = q.Where(squirrel.Eq{"batch_no": filter.BatchNo})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var txs []*ledger.Transaction
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &txs, sql, args...); err != nil {
		return nil, apperror.NewDatabase(err)
	}

	return txs, nil
}

// LockProducts takes FOR UPDATE row locks on the given products.
// Ordered by id to keep lock acquisition deadlock-free across
// concurrent batches.
func (r *TransactionRepo) LockProducts(ctx context.Context, productIDs []id.ID) error {
	if len(productIDs) == 0 {
		return nil
	}

	querier := r.txManager.GetQuerier(ctx)
	rows, err := querier.Query(ctx,
		`SELECT id FROM `+productsTable+` WHERE id = ANY($1) ORDER BY id FOR UPDATE`,
		productIDs,
	)
	if err != nil {
		return apperror.NewDatabase(err)
	}
	rows.Close()

	return rows.Err()
}

// SumByProduct returns the anchored signed sum for one product.
func (r *TransactionRepo) SumByProduct(ctx context.Context, productID id.ID, warehouse ledger.Warehouse) (types.Quantity, error) {
	sums, err := r.SumByProducts(ctx, []id.ID{productID}, warehouse)
	if err != nil {
		return 0, err
	}
	return sums[productID], nil
}

// SumByProducts aggregates anchored signed sums per product.
func (r *TransactionRepo) SumByProducts(ctx context.Context, productIDs []id.ID, warehouse ledger.Warehouse) (map[id.ID]types.Quantity, error) {
	if len(productIDs) == 0 {
		return map[id.ID]types.Quantity{}, nil
	}

	sql := `
		SELECT t.product_id, COALESCE(SUM(` + signedQuantitySQL + `), 0) AS quantity
		FROM ` + transactionsTable + ` t
		LEFT JOIN (
			SELECT product_id, warehouse, MAX(date) AS anchor
			FROM ` + transactionsTable + `
			WHERE type = 'OPENING'
			GROUP BY product_id, warehouse
		) a ON a.product_id = t.product_id AND a.warehouse = t.warehouse
		WHERE t.product_id = ANY($1)
		  AND (a.anchor IS NULL OR t.date >= a.anchor)`
	args := []any{productIDs}

	if warehouse != "" {
		sql += ` AND t.warehouse = $2`
		args = append(args, warehouse)
	}
	sql += ` GROUP BY t.product_id`

	type sumRow struct {
		ProductID id.ID          `db:"product_id"`
		Quantity  types.Quantity `db:"quantity"`
	}

	var rows []*sumRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, apperror.NewDatabase(err)
	}

	sums := make(map[id.ID]types.Quantity, len(rows))
	for _, row := range rows {
		sums[row.ProductID] = row.Quantity
	}

	return sums, nil
}

// HasOpeningWithReference reports whether an OPENING row with the given
// reference exists. The closing service uses it as its run-once guard.
func (r *TransactionRepo) HasOpeningWithReference(ctx context.Context, referenceNo string) (bool, error) {
	querier := r.txManager.GetQuerier(ctx)

	var exists bool
	err := querier.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM `+transactionsTable+`
			WHERE type = 'OPENING' AND reference_no = $1
		)`,
		referenceNo,
	).Scan(&exists)
	if err != nil {
		return false, apperror.NewDatabase(err)
	}

	return exists, nil
}
