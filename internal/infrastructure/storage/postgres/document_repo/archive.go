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
	archivesTable     = "doc_archived_shipments"
	archiveItemsTable = "doc_archived_shipment_items"
)

var archiveColumns = []string{
	"id", "reference", "shipment_name", "container_no", "seal_no",
	"etd", "eta", "po_number", "declaration_id",
	"created_by", "created_at",
}

var archiveItemColumns = []string{
	"id", "shipment_id", "serial_no", "product_id", "product_code",
	"customer_code", "batch_no", "quantity", "total_weight", "manual",
	"transaction_id",
}

// ArchiveRepo implements declaration.ArchiveRepository.
// Archived shipments are write-once; there is no update path.
type ArchiveRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

var _ declaration.ArchiveRepository = (*ArchiveRepo)(nil)

// NewArchiveRepo creates a new archive repository.
func NewArchiveRepo(txManager *postgres.TxManager) *ArchiveRepo {
	return &ArchiveRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts the shipment header and its frozen items. Items go
// through COPY when a transaction is open, which is the normal path
// during outbound submission.
func (r *ArchiveRepo) Create(ctx context.Context, a *declaration.ArchivedShipment) error {
	q := r.builder.Insert(archivesTable).
		Columns(archiveColumns...).
		Values(
			a.ID, a.Reference, a.ShipmentName, a.ContainerNo, a.SealNo,
			a.ETD, a.ETA, a.PONumber, nilIfNilID(a.DeclarationID),
			a.CreatedBy, a.CreatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return apperror.NewDatabase(err)
	}

	if len(a.Items) == 0 {
		return nil
	}

	if tx := r.txManager.GetTx(ctx); tx != nil {
		inserter := postgres.NewBatchInserter(r.txManager)
		rows := make([][]any, 0, len(a.Items))
		for _, item := range a.Items {
			rows = append(rows, []any{
				item.ID, item.ShipmentID, item.SerialNo,
				nilIfNilID(item.ProductID), item.ProductCode,
				item.CustomerCode, item.BatchNo, item.Quantity,
				item.TotalWeight, item.Manual, nilIfNilID(item.TransactionID),
			})
		}
		if _, err := inserter.CopyFromSlice(ctx, archiveItemsTable, archiveItemColumns, rows); err != nil {
			return apperror.NewDatabase(fmt.Errorf("copy archive items: %w", err))
		}
		return nil
	}

	iq := r.builder.Insert(archiveItemsTable).Columns(archiveItemColumns...)
	for _, item := range a.Items {
		iq = iq.Values(
			item.ID, item.ShipmentID, item.SerialNo,
			nilIfNilID(item.ProductID), item.ProductCode,
			item.CustomerCode, item.BatchNo, item.Quantity,
			item.TotalWeight, item.Manual, nilIfNilID(item.TransactionID),
		)
	}

	sql, args, err = iq.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return apperror.NewDatabase(err)
	}

	return nil
}

// GetByID loads an archived shipment with its items.
func (r *ArchiveRepo) GetByID(ctx context.Context, shipmentID id.ID) (*declaration.ArchivedShipment, error) {
	q := r.builder.Select(archiveColumns...).
		From(archivesTable).
		Where(squirrel.Eq{"id": shipmentID})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var a declaration.ArchivedShipment
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &a, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFound("archived shipment", shipmentID.String())
		}
		return nil, apperror.NewDatabase(err)
	}

	iq := r.builder.Select(archiveItemColumns...).
		From(archiveItemsTable).
		Where(squirrel.Eq{"shipment_id": shipmentID}).
		OrderBy("serial_no ASC")

	sql, args, err = iq.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var rows []*archiveItemRow
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, apperror.NewDatabase(err)
	}
	for _, row := range rows {
		a.Items = append(a.Items, row.toModel())
	}

	return &a, nil
}

// archiveItemRow is the storage shape of a frozen shipment line;
// product_id and transaction_id are NULL for manual lines.
type archiveItemRow struct {
	ID            id.ID          `db:"id"`
	ShipmentID    id.ID          `db:"shipment_id"`
	SerialNo      int            `db:"serial_no"`
	ProductID     *id.ID         `db:"product_id"`
	ProductCode   string         `db:"product_code"`
	CustomerCode  string         `db:"customer_code"`
	BatchNo       string         `db:"batch_no"`
	Quantity      types.Quantity `db:"quantity"`
	TotalWeight   types.Weight   `db:"total_weight"`
	Manual        bool           `db:"manual"`
	TransactionID *id.ID         `db:"transaction_id"`
}

func (row *archiveItemRow) toModel() *declaration.ArchivedItem {
	item := &declaration.ArchivedItem{
		ID:           row.ID,
		ShipmentID:   row.ShipmentID,
		SerialNo:     row.SerialNo,
		ProductCode:  row.ProductCode,
		CustomerCode: row.CustomerCode,
		BatchNo:      row.BatchNo,
		Quantity:     row.Quantity,
		TotalWeight:  row.TotalWeight,
		Manual:       row.Manual,
	}
	if row.ProductID != nil {
		item.ProductID = *row.ProductID
	}
	if row.TransactionID != nil {
		item.TransactionID = *row.TransactionID
	}
	return item
}

// List returns shipment headers matching the filter, newest first.
func (r *ArchiveRepo) List(ctx context.Context, filter declaration.ArchiveFilter) ([]*declaration.ArchivedShipment, error) {
	q := r.builder.Select(archiveColumns...).
		From(archivesTable).
		OrderBy("created_at DESC")

	if filter.PONumber != "" {
		q = q.Where(squirrel.Eq{"po_number": filter.PONumber})
	}
	if !filter.DateFrom.IsZero() {
		q = q.Where(squirrel.GtOrEq{"created_at": filter.DateFrom})
	}
	if !filter.DateTo.IsZero() {
		q = q.Where(squirrel.Lt{"created_at": filter.DateTo})
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

	var items []*declaration.ArchivedShipment
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, apperror.NewDatabase(err)
	}

	return items, nil
}

// nilIfNilID maps the zero UUID to SQL NULL for nullable references.
func nilIfNilID(v id.ID) any {
	if id.IsNil(v) {
		return nil
	}
	return v
}
