package declaration

import (
	"context"
	"time"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/security"
	"stockbook/internal/core/tx"
	"stockbook/internal/domain/ledger"
	"stockbook/internal/domain/product"
	"stockbook/pkg/logger"
)

// OutboundPoster posts shipment lines to the stock register.
// Implemented by ledger.Service.
type OutboundPoster interface {
	PostOutboundBatch(ctx context.Context, batch ledger.OutboundBatch) ([]*ledger.Transaction, error)
}

// NumberGenerator issues shipment reference numbers.
type NumberGenerator interface {
	Next(ctx context.Context) (string, error)
}

// NumberFunc adapts a function to NumberGenerator.
type NumberFunc func(ctx context.Context) (string, error)

func (f NumberFunc) Next(ctx context.Context) (string, error) { return f(ctx) }

// SubmitResult reports a processed outbound shipment.
type SubmitResult struct {
	ArchiveID      id.ID   `json:"archiveId"`
	Reference      string  `json:"reference"`
	TransactionIDs []id.ID `json:"transactionIds"`
}

// Service drives the declaration and shipment workflow.
type Service struct {
	repo      Repository
	archives  ArchiveRepository
	activity  ActivityLog
	products  product.Lookup
	poster    OutboundPoster
	numbers   NumberGenerator
	txManager tx.Manager
	log       *logger.Logger
}

func NewService(
	repo Repository,
	archives ArchiveRepository,
	activity ActivityLog,
	products product.Lookup,
	poster OutboundPoster,
	numbers NumberGenerator,
	txManager tx.Manager,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:      repo,
		archives:  archives,
		activity:  activity,
		products:  products,
		poster:    poster,
		numbers:   numbers,
		txManager: txManager,
		log:       log,
	}
}

// Create saves a new pending declaration. Unit weights for non-manual
// items are snapshotted from the product master; totals are computed
// once here and never recomputed.
func (s *Service) Create(ctx context.Context, d *Declaration) (*Declaration, error) {
	if id.IsNil(d.ID) {
		d.ID = id.New()
	}
	d.Status = StatusPending
	d.Version = 1
	d.CreatedBy = security.GetActorID(ctx)
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	for i, item := range d.Items {
		if id.IsNil(item.ID) {
			item.ID = id.New()
		}
		item.DeclarationID = d.ID
		item.SerialNo = i + 1
	}

	if err := d.Validate(ctx); err != nil {
		return nil, err
	}

	if err := s.snapshotUnitWeights(ctx, d); err != nil {
		return nil, err
	}
	d.SnapshotTotals()

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, d)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithContext(ctx).Infow("declaration created",
		"declaration_id", d.ID, "po_number", d.PONumber, "items", len(d.Items))

	return d, nil
}

// SubmitOutbound processes the outbound shipment for a pending
// declaration: posts OUT transactions for every non-manual item,
// freezes the shipped state into an archived shipment, and marks the
// declaration completed. All of it commits or none of it does.
func (s *Service) SubmitOutbound(ctx context.Context, declarationID id.ID, txDate time.Time, meta ShipmentMeta) (*SubmitResult, error) {
	d, err := s.repo.GetByID(ctx, declarationID)
	if err != nil {
		return nil, err
	}
	if d.Status == StatusCompleted {
		return nil, apperror.NewConflict("declaration is already completed").
			WithDetail("declarationId", d.ID.String())
	}

	if meta.Warehouse == "" {
		meta.Warehouse = ledger.WarehouseExport
	}

	var result *SubmitResult
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		reference, err := s.numbers.Next(ctx)
		if err != nil {
			return err
		}

		archive, txs, err := s.buildShipment(ctx, d, txDate, reference, meta)
		if err != nil {
			return err
		}

		if err := s.archives.Create(ctx, archive); err != nil {
			return err
		}

		if err := s.repo.UpdateStatus(ctx, d.ID, StatusCompleted, d.Version); err != nil {
			return err
		}

		txIDs := make([]id.ID, len(txs))
		for i, t := range txs {
			txIDs[i] = t.ID
		}
		result = &SubmitResult{
			ArchiveID:      archive.ID,
			Reference:      reference,
			TransactionIDs: txIDs,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithContext(ctx).Infow("outbound submitted",
		"declaration_id", d.ID, "archive_id", result.ArchiveID,
		"reference", result.Reference, "transactions", len(result.TransactionIDs))

	return result, nil
}

// Abandon deletes a declaration that has not been submitted yet.
// Completed declarations are immutable together with their archive.
func (s *Service) Abandon(ctx context.Context, declarationID id.ID) error {
	d, err := s.repo.GetByID(ctx, declarationID)
	if err != nil {
		return err
	}
	if d.Status != StatusPending {
		return apperror.NewConflict("only pending declarations can be abandoned").
			WithDetail("declarationId", d.ID.String()).
			WithDetail("status", string(d.Status))
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Delete(ctx, declarationID)
	})
	if err != nil {
		return err
	}

	s.log.WithContext(ctx).Infow("declaration abandoned",
		"declaration_id", declarationID, "po_number", d.PONumber)

	return nil
}

func (s *Service) GetByID(ctx context.Context, declarationID id.ID) (*Declaration, error) {
	return s.repo.GetByID(ctx, declarationID)
}

func (s *Service) List(ctx context.Context, filter Filter) ([]*Declaration, error) {
	if filter.Limit <= 0 || filter.Limit > 1000 {
		filter.Limit = 100
	}
	return s.repo.List(ctx, filter)
}

// GetArchive returns an archived shipment with its activity log.
func (s *Service) GetArchive(ctx context.Context, shipmentID id.ID) (*ArchivedShipment, []*ActivityNote, error) {
	a, err := s.archives.GetByID(ctx, shipmentID)
	if err != nil {
		return nil, nil, err
	}
	notes, err := s.activity.List(ctx, shipmentID)
	if err != nil {
		return nil, nil, err
	}
	return a, notes, nil
}

func (s *Service) ListArchives(ctx context.Context, filter ArchiveFilter) ([]*ArchivedShipment, error) {
	if filter.Limit <= 0 || filter.Limit > 1000 {
		filter.Limit = 100
	}
	return s.archives.List(ctx, filter)
}

// Annotate appends a free-text note to a shipment's activity log.
// The shipment itself stays immutable.
func (s *Service) Annotate(ctx context.Context, shipmentID id.ID, note string) (*ActivityNote, error) {
	if note == "" {
		return nil, apperror.NewValidation("note is required")
	}
	if _, err := s.archives.GetByID(ctx, shipmentID); err != nil {
		return nil, err
	}
	return s.activity.Append(ctx, shipmentID, note)
}

// snapshotUnitWeights fills item unit weights from the product master.
// Manual items keep whatever weight the caller typed.
func (s *Service) snapshotUnitWeights(ctx context.Context, d *Declaration) error {
	ids := make([]id.ID, 0, len(d.Items))
	for _, item := range d.Items {
		if !item.Manual {
			ids = append(ids, item.ProductID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	prods, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	byID := make(map[id.ID]*product.Product, len(prods))
	for _, p := range prods {
		byID[p.ID] = p
	}

	for i, item := range d.Items {
		if item.Manual {
			continue
		}
		p, ok := byID[item.ProductID]
		if !ok {
			return apperror.NewNotFound("product", item.ProductID.String()).
				WithDetail("line", i+1)
		}
		item.UnitWeight = p.UnitWeight
	}
	return nil
}

// buildShipment posts the register side of a shipment and assembles the
// frozen archive. Must run inside a transaction.
func (s *Service) buildShipment(ctx context.Context, d *Declaration, txDate time.Time, reference string, meta ShipmentMeta) (*ArchivedShipment, []*ledger.Transaction, error) {
	outbound := ledger.OutboundBatch{
		Date:        txDate,
		ReferenceNo: reference,
		Notes:       meta.ShipmentName,
	}
	ledgerLines := make([]int, 0, len(d.Items))
	for i, item := range d.Items {
		if item.Manual {
			continue
		}
		outbound.Items = append(outbound.Items, ledger.OutboundItem{
			ProductID: item.ProductID,
			Warehouse: meta.Warehouse,
			Quantity:  item.Quantity,
			BatchNo:   item.BatchNo,
		})
		ledgerLines = append(ledgerLines, i)
	}

	var txs []*ledger.Transaction
	if len(outbound.Items) > 0 {
		var err error
		txs, err = s.poster.PostOutboundBatch(ctx, outbound)
		if err != nil {
			return nil, nil, err
		}
	}

	txByLine := make(map[int]id.ID, len(txs))
	for i, line := range ledgerLines {
		txByLine[line] = txs[i].ID
	}

	productCodes, err := s.productCodes(ctx, d)
	if err != nil {
		return nil, nil, err
	}

	archive := &ArchivedShipment{
		ID:            id.New(),
		Reference:     reference,
		ShipmentName:  meta.ShipmentName,
		ContainerNo:   meta.ContainerNo,
		SealNo:        meta.SealNo,
		ETD:           meta.ETD,
		ETA:           meta.ETA,
		PONumber:      d.PONumber,
		DeclarationID: d.ID,
		CreatedBy:     security.GetActorID(ctx),
		CreatedAt:     time.Now().UTC(),
	}
	for i, item := range d.Items {
		archive.Items = append(archive.Items, &ArchivedItem{
			ID:            id.New(),
			ShipmentID:    archive.ID,
			SerialNo:      item.SerialNo,
			ProductID:     item.ProductID,
			ProductCode:   productCodes[item.ProductID],
			CustomerCode:  item.CustomerCode,
			BatchNo:       item.BatchNo,
			Quantity:      item.Quantity,
			TotalWeight:   item.TotalWeight,
			Manual:        item.Manual,
			TransactionID: txByLine[i],
		})
	}

	return archive, txs, nil
}

func (s *Service) productCodes(ctx context.Context, d *Declaration) (map[id.ID]string, error) {
	ids := make([]id.ID, 0, len(d.Items))
	for _, item := range d.Items {
		if !item.Manual {
			ids = append(ids, item.ProductID)
		}
	}
	codes := make(map[id.ID]string, len(ids))
	if len(ids) == 0 {
		return codes, nil
	}
	prods, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, p := range prods {
		codes[p.ID] = p.Code
	}
	return codes, nil
}
