// Package catalog_repo provides PostgreSQL implementations for the
// master-data catalogs.
package catalog_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/domain/product"
	"stockbook/internal/infrastructure/storage/postgres"
)

const productsTable = "cat_products"

var productColumns = []string{
	"id", "code", "name", "local_name", "country", "vendor", "type",
	"unit_weight", "packing_size", "wip", "status", "account_code",
	"version", "created_at", "updated_at", "created_by", "updated_by",
}

// ProductRepo implements product.Repository.
type ProductRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ product.Repository = (*ProductRepo)(nil)

// NewProductRepo creates a new product repository.
func NewProductRepo(txManager *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new product.
func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	q := r.builder.Insert(productsTable).
		Columns(productColumns...).
		Values(
			p.ID, p.Code, p.Name, p.LocalName, p.Country, p.Vendor, p.Type,
			p.UnitWeight, p.PackingSize, p.WIP, p.Status, p.AccountCode,
			p.Version, p.CreatedAt, p.UpdatedAt, p.CreatedBy, p.UpdatedBy,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return apperror.NewDuplicate("product", "code", p.Code)
		}
		return apperror.NewDatabase(err)
	}

	return nil
}

// Update persists product changes with an optimistic version check.
func (r *ProductRepo) Update(ctx context.Context, p *product.Product) error {
	q := r.builder.Update(productsTable).
		Set("name", p.Name).
		Set("local_name", p.LocalName).
		Set("country", p.Country).
		Set("vendor", p.Vendor).
		Set("type", p.Type).
		Set("unit_weight", p.UnitWeight).
		Set("packing_size", p.PackingSize).
		Set("wip", p.WIP).
		Set("status", p.Status).
		Set("account_code", p.AccountCode).
		Set("version", p.Version).
		Set("updated_at", p.UpdatedAt).
		Set("updated_by", p.UpdatedBy).
		Where(squirrel.Eq{"id": p.ID}).
		Where(squirrel.Eq{"version": p.Version - 1})

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
		return apperror.NewConflict("product was modified concurrently").
			WithDetail("productId", p.ID.String())
	}

	return nil
}

// GetByID retrieves a product by ID.
func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	q := r.builder.Select(productColumns...).
		From(productsTable).
		Where(squirrel.Eq{"id": productID})

	return r.findOne(ctx, q, productID.String())
}

// GetByCode retrieves a product by its system code.
func (r *ProductRepo) GetByCode(ctx context.Context, code string) (*product.Product, error) {
	q := r.builder.Select(productColumns...).
		From(productsTable).
		Where(squirrel.Eq{"code": code})

	return r.findOne(ctx, q, code)
}

// GetByIDs retrieves several products at once.
func (r *ProductRepo) GetByIDs(ctx context.Context, ids []id.ID) ([]*product.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	q := r.builder.Select(productColumns...).
		From(productsTable).
		Where(squirrel.Eq{"id": ids})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var items []*product.Product
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, apperror.NewDatabase(err)
	}

	return items, nil
}

// List returns products matching the filter, ordered by code.
func (r *ProductRepo) List(ctx context.Context, filter product.Filter) ([]*product.Product, error) {
	q := r.builder.Select(productColumns...).
		From(productsTable).
		OrderBy("code ASC")

	if filter.Status != "" {
		q = q.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.Country != "" {
		q = q.Where(squirrel.Eq{"country": filter.Country})
	}
	if filter.Vendor != "" {
		q = q.Where(squirrel.Eq{"vendor": filter.Vendor})
	}
	if filter.AccountCode != "" {
		q = q.Where(squirrel.Eq{"account_code": filter.AccountCode})
	}
	if filter.WIPOnly {
		q = q.Where(squirrel.Eq{"wip": true})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"code": pattern},
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"local_name": pattern},
		})
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

	var items []*product.Product
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, apperror.NewDatabase(err)
	}

	return items, nil
}

// ExistsByCode checks system code uniqueness.
func (r *ProductRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	querier := r.txManager.GetQuerier(ctx)

	var exists bool
	err := querier.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+productsTable+` WHERE code = $1)`,
		code,
	).Scan(&exists)
	if err != nil {
		return false, apperror.NewDatabase(err)
	}

	return exists, nil
}

func (r *ProductRepo) findOne(ctx context.Context, q squirrel.SelectBuilder, key string) (*product.Product, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var p product.Product
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &p, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFound("product", key)
		}
		return nil, apperror.NewDatabase(err)
	}

	return &p, nil
}

// isUniqueViolation reports a PostgreSQL unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
