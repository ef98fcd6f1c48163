// Package document_repo provides PostgreSQL implementations for the
// declaration and shipment documents.
package document_repo

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
	"stockbook/internal/domain/declaration"
	"stockbook/internal/infrastructure/storage/postgres"
)

const (
	declarationsTable     = "doc_declarations"
	declarationItemsTable = "doc_declaration_items"
)

var declarationColumns = []string{
	"id", "po_number", "date", "status",
	"total_quantity", "net_weight", "carton_weight", "gross_weight",
	"version", "created_by", "created_at", "updated_at",
}

var declarationItemColumns = []string{
	"id", "declaration_id", "serial_no", "product_id", "customer_code",
	"batch_no", "quantity", "unit_weight", "total_weight", "manual",
}

// DeclarationRepo implements declaration.Repository.
type DeclarationRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ declaration.Repository = (*DeclarationRepo)(nil)

// NewDeclarationRepo creates a new declaration repository.
func NewDeclarationRepo(txManager *postgres.TxManager) *DeclarationRepo {
	return &DeclarationRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts the declaration header and its items.
func (r *DeclarationRepo) Create(ctx context.Context, d *declaration.Declaration) error {
	q := r.builder.Insert(declarationsTable).
		Columns(declarationColumns...).
		Values(
			d.ID, d.PONumber, d.Date, d.Status,
			d.TotalQuantity, d.NetWeight, d.CartonWeight, d.GrossWeight,
			d.Version, d.CreatedBy, d.CreatedAt, d.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return apperror.NewDatabase(err)
	}

	return r.insertItems(ctx, d.Items)
}

func (r *DeclarationRepo) insertItems(ctx context.Context, items []*declaration.Item) error {
	if len(items) == 0 {
		return nil
	}

	q := r.builder.Insert(declarationItemsTable).Columns(declarationItemColumns...)
	for _, item := range items {
		q = q.Values(
			item.ID, item.DeclarationID, item.SerialNo, nilIfNilID(item.ProductID), item.CustomerCode,
			item.BatchNo, item.Quantity, item.UnitWeight, item.TotalWeight, item.Manual,
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

// GetByID loads a declaration with its items.
func (r *DeclarationRepo) GetByID(ctx context.Context, declarationID id.ID) (*declaration.Declaration, error) {
	q := r.builder.Select(declarationColumns...).
		From(declarationsTable).
		Where(squirrel.Eq{"id": declarationID})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var d declaration.Declaration
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &d, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFound("declaration", declarationID.String())
		}
		return nil, apperror.NewDatabase(err)
	}

	items, err := r.loadItems(ctx, declarationID)
	if err != nil {
		return nil, err
	}
	d.Items = items

	return &d, nil
}

// itemRow is the storage shape of a declaration item; product_id is
// NULL for manual lines.
type itemRow struct {
	ID            id.ID          `db:"id"`
	DeclarationID id.ID          `db:"declaration_id"`
	SerialNo      int            `db:"serial_no"`
	ProductID     *id.ID         `db:"product_id"`
	CustomerCode  string         `db:"customer_code"`
	BatchNo       string         `db:"batch_no"`
	Quantity      types.Quantity `db:"quantity"`
	UnitWeight    types.Weight   `db:"unit_weight"`
	TotalWeight   types.Weight   `db:"total_weight"`
	Manual        bool           `db:"manual"`
}

func (row *itemRow) toModel() *declaration.Item {
	item := &declaration.Item{
		ID:            row.ID,
		DeclarationID: row.DeclarationID,
		SerialNo:      row.SerialNo,
		CustomerCode:  row.CustomerCode,
		BatchNo:       row.BatchNo,
		Quantity:      row.Quantity,
		UnitWeight:    row.UnitWeight,
		TotalWeight:   row.TotalWeight,
		Manual:        row.Manual,
	}
	if row.ProductID != nil {
		item.ProductID = *row.ProductID
	}
	return item
}

func (r *DeclarationRepo) loadItems(ctx context.Context, declarationID id.ID) ([]*declaration.Item, error) {
	q := r.builder.Select(declarationItemColumns...).
		From(declarationItemsTable).
		Where(squirrel.Eq{"declaration_id": declarationID}).
		OrderBy("serial_no ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var rows []*itemRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, apperror.NewDatabase(err)
	}

	items := make([]*declaration.Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toModel())
	}

	return items, nil
}

// List returns declaration headers matching the filter, newest first.
// Items are not loaded for listings.
func (r *DeclarationRepo) List(ctx context.Context, filter declaration.Filter) ([]*declaration.Declaration, error) {
	q := r.builder.Select(declarationColumns...).
		From(declarationsTable).
		OrderBy("date DESC", "created_at DESC")

	if filter.Status != "" {
		q = q.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.PONumber != "" {
		q = q.Where(squirrel.Eq{"po_number": filter.PONumber})
	}
	if !filter.DateFrom.IsZero() {
		q = q.Where(squirrel.GtOrEq{"date": filter.DateFrom})
	}
	if !filter.DateTo.IsZero() {
		q = q.Where(squirrel.Lt{"date": filter.DateTo})
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

	var items []*declaration.Declaration
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, apperror.NewDatabase(err)
	}

	return items, nil
}

// UpdateStatus flips the declaration state with a version check.
func (r *DeclarationRepo) UpdateStatus(ctx context.Context, declarationID id.ID, status declaration.Status, version int) error {
	q := r.builder.Update(declarationsTable).
		Set("status", status).
		Set("version", version+1).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": declarationID}).
		Where(squirrel.Eq{"version": version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return apperror.NewDatabase(err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConflict("declaration was modified concurrently").
			WithDetail("declarationId", declarationID.String())
	}

	return nil
}

// Delete removes a declaration and its items.
func (r *DeclarationRepo) Delete(ctx context.Context, declarationID id.ID) error {
	querier := r.txManager.GetQuerier(ctx)

	if _, err := querier.Exec(ctx,
		`DELETE FROM `+declarationItemsTable+` WHERE declaration_id = $1`,
		declarationID,
	); err != nil {
		return apperror.NewDatabase(err)
	}

	tag, err := querier.Exec(ctx,
		`DELETE FROM `+declarationsTable+` WHERE id = $1`,
		declarationID,
	)
	if err != nil {
		return apperror.NewDatabase(err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("declaration", declarationID.String())
	}

	return nil
}
