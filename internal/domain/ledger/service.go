package ledger

import (
	"context"
	"time"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/security"
	"stockbook/internal/core/tx"
	"stockbook/internal/core/types"
	"stockbook/internal/domain/product"
	"stockbook/pkg/logger"
)

// InboundInput describes a goods receipt line.
type InboundInput struct {
	ProductID   id.ID
	Warehouse   Warehouse
	Quantity    types.Quantity
	Date        time.Time
	BatchNo     string
	ReferenceNo string
	Notes       string
}

// OutboundItem is one line of an outbound shipment batch.
type OutboundItem struct {
	ProductID id.ID
	Warehouse Warehouse
	Quantity  types.Quantity
	BatchNo   string
}

// OutboundBatch groups shipment lines posted atomically.
type OutboundBatch struct {
	Items       []OutboundItem
	Date        time.Time
	ReferenceNo string
	Notes       string
}

// AdjustmentInput describes a stocktake correction. NewCount is the
// physically counted quantity; the service derives the signed delta.
type AdjustmentInput struct {
	ProductID id.ID
	Warehouse Warehouse
	NewCount  types.Quantity
	Date      time.Time
	Reason    string
}

// ConversionInput describes a package conversion: stock moves from the
// source product to the target product within one warehouse.
type ConversionInput struct {
	SourceProductID id.ID
	TargetProductID id.ID
	Warehouse       Warehouse
	Quantity        types.Quantity
	Date            time.Time
	Notes           string
}

// ConversionResult reports both sides of a posted conversion.
type ConversionResult struct {
	Out *Transaction
	In  *Transaction
}

// Service posts stock movements to the register.
// All mutations run inside a database transaction with the affected
// product rows locked, so stock checks cannot race.
type Service struct {
	repo      Repository
	products  product.Lookup
	policy    security.PostingPolicy
	txManager tx.Manager
	log       *logger.Logger
}

func NewService(
	repo Repository,
	products product.Lookup,
	policy security.PostingPolicy,
	txManager tx.Manager,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:      repo,
		products:  products,
		policy:    policy,
		txManager: txManager,
		log:       log,
	}
}

// PostInbound records a goods receipt.
func (s *Service) PostInbound(ctx context.Context, in InboundInput) (*Transaction, error) {
	t := &Transaction{
		ID:          id.New(),
		ProductID:   in.ProductID,
		Warehouse:   in.Warehouse,
		Type:        TypeIn,
		Quantity:    in.Quantity,
		Date:        in.Date,
		BatchNo:     in.BatchNo,
		ReferenceNo: in.ReferenceNo,
		Notes:       in.Notes,
		CreatedBy:   security.GetActorID(ctx),
		CreatedAt:   time.Now().UTC(),
	}

	if err := t.Validate(ctx); err != nil {
		return nil, err
	}
	if err := s.policy.CanPost(ctx, t.Date); err != nil {
		return nil, err
	}

	p, err := s.products.GetByID(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive() {
		return nil, apperror.NewValidation("product is not active").
			WithDetail("productId", p.ID.String()).
			WithDetail("status", string(p.Status))
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, t)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithContext(ctx).Infow("inbound posted",
		"tx_id", t.ID, "product_id", t.ProductID,
		"warehouse", t.Warehouse, "quantity", t.Quantity)

	return t, nil
}

// PostOutboundBatch posts all shipment lines or none of them.
// Each line is checked against the derived stock of its warehouse while
// the product rows are locked; the first shortage aborts the whole batch.
func (s *Service) PostOutboundBatch(ctx context.Context, batch OutboundBatch) ([]*Transaction, error) {
	if len(batch.Items) == 0 {
		return nil, apperror.NewValidation("outbound batch is empty")
	}
	if batch.Date.IsZero() {
		return nil, apperror.NewValidation("shipment date is required").
			WithDetail("field", "date")
	}
	if err := s.policy.CanPost(ctx, batch.Date); err != nil {
		return nil, err
	}

	actorID := security.GetActorID(ctx)
	now := time.Now().UTC()

	txs := make([]*Transaction, 0, len(batch.Items))
	for i, item := range batch.Items {
		t := &Transaction{
			ID:          id.New(),
			ProductID:   item.ProductID,
			Warehouse:   item.Warehouse,
			Type:        TypeOut,
			Quantity:    item.Quantity,
			Date:        batch.Date,
			BatchNo:     item.BatchNo,
			ReferenceNo: batch.ReferenceNo,
			Notes:       batch.Notes,
			CreatedBy:   actorID,
			CreatedAt:   now,
		}
		if err := t.Validate(ctx); err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				return nil, appErr.WithDetail("line", i+1)
			}
			return nil, err
		}
		txs = append(txs, t)
	}

	if err := s.requireProducts(ctx, txs); err != nil {
		return nil, err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.checkAvailability(ctx, txs); err != nil {
			return err
		}
		return s.repo.CreateBatch(ctx, txs)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithContext(ctx).Infow("outbound batch posted",
		"lines", len(txs), "reference_no", batch.ReferenceNo)

	return txs, nil
}

// PostAdjustment corrects stock to a physically counted quantity.
// Returns nil without posting when the counted quantity already matches
// the derived stock.
func (s *Service) PostAdjustment(ctx context.Context, in AdjustmentInput) (*Transaction, error) {
	if id.IsNil(in.ProductID) {
		return nil, apperror.NewValidation("product is required").
			WithDetail("field", "productId")
	}
	if !in.Warehouse.Valid() {
		return nil, apperror.NewValidation("unknown warehouse").
			WithDetail("value", string(in.Warehouse))
	}
	if in.NewCount.IsNegative() {
		return nil, apperror.NewValidation("counted quantity cannot be negative").
			WithDetail("value", in.NewCount.String())
	}
	if err := s.policy.CanPost(ctx, in.Date); err != nil {
		return nil, err
	}

	if _, err := s.products.GetByID(ctx, in.ProductID); err != nil {
		return nil, err
	}

	var posted *Transaction
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.LockProducts(ctx, []id.ID{in.ProductID}); err != nil {
			return err
		}

		current, err := s.repo.SumByProduct(ctx, in.ProductID, in.Warehouse)
		if err != nil {
			return err
		}

		delta := types.Quantity(int64(in.NewCount) - int64(current))
		if delta.IsZero() {
			return nil
		}

		posted = &Transaction{
			ID:        id.New(),
			ProductID: in.ProductID,
			Warehouse: in.Warehouse,
			Type:      TypeAdjustment,
			Quantity:  delta,
			Date:      in.Date,
			Notes:     in.Reason,
			CreatedBy: security.GetActorID(ctx),
			CreatedAt: time.Now().UTC(),
		}
		return s.repo.Create(ctx, posted)
	})
	if err != nil {
		return nil, err
	}

	if posted == nil {
		s.log.WithContext(ctx).Debugw("adjustment skipped, count matches stock",
			"product_id", in.ProductID, "warehouse", in.Warehouse)
		return nil, nil
	}

	s.log.WithContext(ctx).Infow("adjustment posted",
		"tx_id", posted.ID, "product_id", posted.ProductID,
		"delta", posted.Quantity)

	return posted, nil
}

// PostConversion repackages stock from the source product into the
// target product as a paired CONVERSION_OUT / CONVERSION_IN. Both rows
// post atomically; a source shortage aborts both.
func (s *Service) PostConversion(ctx context.Context, in ConversionInput) (*ConversionResult, error) {
	if id.IsNil(in.SourceProductID) || id.IsNil(in.TargetProductID) {
		return nil, apperror.NewValidation("source and target products are required")
	}
	if in.SourceProductID == in.TargetProductID {
		return nil, apperror.NewValidation("source and target products must differ")
	}
	if !in.Warehouse.Valid() {
		return nil, apperror.NewValidation("unknown warehouse").
			WithDetail("value", string(in.Warehouse))
	}
	if !in.Quantity.IsPositive() {
		return nil, apperror.NewValidation("quantity must be positive").
			WithDetail("value", in.Quantity.String())
	}
	if err := s.policy.CanPost(ctx, in.Date); err != nil {
		return nil, err
	}

	source, err := s.products.GetByID(ctx, in.SourceProductID)
	if err != nil {
		return nil, err
	}
	if !source.WIP {
		return nil, apperror.NewValidation("source product is not eligible for conversion").
			WithDetail("productId", source.ID.String())
	}

	target, err := s.products.GetByID(ctx, in.TargetProductID)
	if err != nil {
		return nil, err
	}
	if !target.IsActive() {
		return nil, apperror.NewValidation("target product is not active").
			WithDetail("productId", target.ID.String())
	}

	actorID := security.GetActorID(ctx)
	now := time.Now().UTC()

	out := &Transaction{
		ID:        id.New(),
		ProductID: in.SourceProductID,
		Warehouse: in.Warehouse,
		Type:      TypeConversionOut,
		Quantity:  in.Quantity,
		Date:      in.Date,
		Notes:     in.Notes,
		CreatedBy: actorID,
		CreatedAt: now,
	}
	inn := &Transaction{
		ID:        id.New(),
		ProductID: in.TargetProductID,
		Warehouse: in.Warehouse,
		Type:      TypeConversionIn,
		Quantity:  in.Quantity,
		Date:      in.Date,
		Notes:     in.Notes,
		CreatedBy: actorID,
		CreatedAt: now,
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.checkAvailability(ctx, []*Transaction{out}); err != nil {
			return err
		}
		return s.repo.CreateBatch(ctx, []*Transaction{out, inn})
	})
	if err != nil {
		return nil, err
	}

	s.log.WithContext(ctx).Infow("conversion posted",
		"source_id", in.SourceProductID, "target_id", in.TargetProductID,
		"warehouse", in.Warehouse, "quantity", in.Quantity)

	return &ConversionResult{Out: out, In: inn}, nil
}

// GetByID returns a single register row.
func (s *Service) GetByID(ctx context.Context, txID id.ID) (*Transaction, error) {
	return s.repo.GetByID(ctx, txID)
}

// List returns register rows matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter Filter) ([]*Transaction, error) {
	if filter.Warehouse != "" && !filter.Warehouse.Valid() {
		return nil, apperror.NewValidation("unknown warehouse").
			WithDetail("value", string(filter.Warehouse))
	}
	if filter.Limit <= 0 || filter.Limit > 1000 {
		filter.Limit = 100
	}
	return s.repo.List(ctx, filter)
}

// requireProducts verifies that every product referenced by the rows
// exists in the master. An unknown reference is a lookup failure, not a
// shortage.
func (s *Service) requireProducts(ctx context.Context, txs []*Transaction) error {
	productIDs := make([]id.ID, 0, len(txs))
	seen := make(map[id.ID]struct{})
	for _, t := range txs {
		if _, ok := seen[t.ProductID]; !ok {
			seen[t.ProductID] = struct{}{}
			productIDs = append(productIDs, t.ProductID)
		}
	}

	found, err := s.products.GetByIDs(ctx, productIDs)
	if err != nil {
		return err
	}
	known := make(map[id.ID]struct{}, len(found))
	for _, p := range found {
		known[p.ID] = struct{}{}
	}
	for _, pid := range productIDs {
		if _, ok := known[pid]; !ok {
			return apperror.NewNotFound("product", pid.String())
		}
	}
	return nil
}

// checkAvailability verifies that each outflow row is covered by the
// derived stock of its (product, warehouse) pair. Must run inside a
// transaction; it locks the product rows first.
func (s *Service) checkAvailability(ctx context.Context, txs []*Transaction) error {
	type scope struct {
		product   id.ID
		warehouse Warehouse
	}

	required := make(map[scope]types.Quantity)
	productIDs := make([]id.ID, 0, len(txs))
	seen := make(map[id.ID]struct{})
	for _, t := range txs {
		k := scope{t.ProductID, t.Warehouse}
		required[k] = types.Quantity(int64(required[k]) + int64(t.Quantity))
		if _, ok := seen[t.ProductID]; !ok {
			seen[t.ProductID] = struct{}{}
			productIDs = append(productIDs, t.ProductID)
		}
	}

	if err := s.repo.LockProducts(ctx, productIDs); err != nil {
		return err
	}

	for k, req := range required {
		available, err := s.repo.SumByProduct(ctx, k.product, k.warehouse)
		if err != nil {
			return err
		}
		if int64(available) < int64(req) {
			return apperror.NewInsufficientStock(
				k.product.String(), req.Float64(), available.Float64()).
				WithDetail("warehouse", string(k.warehouse))
		}
	}

	return nil
}
