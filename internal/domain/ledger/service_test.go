package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/security"
	"stockbook/internal/core/types"
	"stockbook/internal/domain/product"
	"stockbook/pkg/logger"
)

// fakeRegister is an in-memory Repository. Stock sums follow the same
// anchoring rule as the SQL implementation: only rows dated at or after
// the newest OPENING row per (product, warehouse) count.
type fakeRegister struct {
	rows []*Transaction
}

func (f *fakeRegister) Create(ctx context.Context, t *Transaction) error {
	f.rows = append(f.rows, t)
	return nil
}

func (f *fakeRegister) CreateBatch(ctx context.Context, txs []*Transaction) error {
	f.rows = append(f.rows, txs...)
	return nil
}

func (f *fakeRegister) GetByID(ctx context.Context, txID id.ID) (*Transaction, error) {
	for _, t := range f.rows {
		if t.ID == txID {
			return t, nil
		}
	}
	return nil, apperror.NewNotFound("transaction", txID.String())
}

func (f *fakeRegister) List(ctx context.Context, filter Filter) ([]*Transaction, error) {
	out := make([]*Transaction, 0, len(f.rows))
	for _, t := range f.rows {
		if !id.IsNil(filter.ProductID) && t.ProductID != filter.ProductID {
			continue
		}
		if filter.Warehouse != "" && t.Warehouse != filter.Warehouse {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeRegister) LockProducts(ctx context.Context, productIDs []id.ID) error {
	return nil
}

func (f *fakeRegister) anchor(productID id.ID, warehouse Warehouse) time.Time {
	var anchor time.Time
	for _, t := range f.rows {
		if t.ProductID == productID && t.Warehouse == warehouse && t.Type == TypeOpening {
			if t.Date.After(anchor) {
				anchor = t.Date
			}
		}
	}
	return anchor
}

func (f *fakeRegister) sumOne(productID id.ID, warehouse Warehouse) int64 {
	anchor := f.anchor(productID, warehouse)
	var sum int64
	for _, t := range f.rows {
		if t.ProductID != productID || t.Warehouse != warehouse {
			continue
		}
		if !anchor.IsZero() && t.Date.Before(anchor) {
			continue
		}
		sum += int64(t.SignedQuantity())
	}
	return sum
}

func (f *fakeRegister) SumByProduct(ctx context.Context, productID id.ID, warehouse Warehouse) (types.Quantity, error) {
	if warehouse != "" {
		return types.Quantity(f.sumOne(productID, warehouse)), nil
	}
	var total int64
	for _, wh := range Warehouses {
		total += f.sumOne(productID, wh)
	}
	return types.Quantity(total), nil
}

func (f *fakeRegister) SumByProducts(ctx context.Context, productIDs []id.ID, warehouse Warehouse) (map[id.ID]types.Quantity, error) {
	out := make(map[id.ID]types.Quantity, len(productIDs))
	for _, pid := range productIDs {
		sum, _ := f.SumByProduct(ctx, pid, warehouse)
		if sum != 0 {
			out[pid] = sum
		}
	}
	return out, nil
}

func (f *fakeRegister) HasOpeningWithReference(ctx context.Context, referenceNo string) (bool, error) {
	for _, t := range f.rows {
		if t.Type == TypeOpening && t.ReferenceNo == referenceNo {
			return true, nil
		}
	}
	return false, nil
}

// fakeTxManager snapshots the register before fn and restores it on
// error, mimicking a rollback.
type fakeTxManager struct {
	register *fakeRegister
}

func (m *fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	snapshot := make([]*Transaction, len(m.register.rows))
	copy(snapshot, m.register.rows)

	if err := fn(ctx); err != nil {
		m.register.rows = snapshot
		return err
	}
	return nil
}

// fakeLookup serves products from a map.
type fakeLookup struct {
	products map[id.ID]*product.Product
}

func (f *fakeLookup) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	p, ok := f.products[productID]
	if !ok {
		return nil, apperror.NewNotFound("product", productID.String())
	}
	return p, nil
}

func (f *fakeLookup) GetByIDs(ctx context.Context, ids []id.ID) ([]*product.Product, error) {
	out := make([]*product.Product, 0, len(ids))
	for _, pid := range ids {
		if p, ok := f.products[pid]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type ledgerFixture struct {
	service  *Service
	register *fakeRegister
	lookup   *fakeLookup
	now      time.Time
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()

	register := &fakeRegister{}
	lookup := &fakeLookup{products: make(map[id.ID]*product.Product)}
	now := time.Date(2026, time.September, 15, 12, 0, 0, 0, time.UTC)

	log, err := logger.New(logger.Config{Level: "error"})
	require.NoError(t, err)

	service := NewService(
		register,
		lookup,
		security.NewCurrentMonthPolicyAt(func() time.Time { return now }),
		&fakeTxManager{register: register},
		log,
	)

	return &ledgerFixture{service: service, register: register, lookup: lookup, now: now}
}

func (f *ledgerFixture) addProduct(code string, wip bool) *product.Product {
	p := &product.Product{
		ID:     id.New(),
		Code:   code,
		Name:   code,
		WIP:    wip,
		Status: product.StatusActive,
	}
	f.lookup.products[p.ID] = p
	return p
}

func (f *ledgerFixture) addStock(p *product.Product, wh Warehouse, qty float64) {
	f.register.rows = append(f.register.rows, &Transaction{
		ID:        id.New(),
		ProductID: p.ID,
		Warehouse: wh,
		Type:      TypeIn,
		Quantity:  types.NewQuantityFromFloat64(qty),
		Date:      f.now.AddDate(0, 0, -1),
	})
}

func TestPostInbound(t *testing.T) {
	f := newLedgerFixture(t)
	p := f.addProduct("FD-0001", false)
	ctx := context.Background()

	posted, err := f.service.PostInbound(ctx, InboundInput{
		ProductID: p.ID,
		Warehouse: WarehouseExport,
		Quantity:  types.NewQuantityFromFloat64(100),
		Date:      f.now,
		BatchNo:   "B-01",
	})
	require.NoError(t, err)
	require.NotNil(t, posted)
	assert.Equal(t, TypeIn, posted.Type)

	stock, err := f.register.SumByProduct(ctx, p.ID, WarehouseExport)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromFloat64(100), stock)
}

func TestPostInbound_InactiveProduct(t *testing.T) {
	f := newLedgerFixture(t)
	p := f.addProduct("FD-0001", false)
	p.Status = product.StatusDiscontinued

	_, err := f.service.PostInbound(context.Background(), InboundInput{
		ProductID: p.ID,
		Warehouse: WarehouseExport,
		Quantity:  types.NewQuantityFromFloat64(10),
		Date:      f.now,
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestPostInbound_DateOutsideWindow(t *testing.T) {
	f := newLedgerFixture(t)
	p := f.addProduct("FD-0001", false)

	tests := []struct {
		name string
		date time.Time
	}{
		{"previous month", f.now.AddDate(0, -1, 0)},
		{"future date", f.now.AddDate(0, 0, 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.PostInbound(context.Background(), InboundInput{
				ProductID: p.ID,
				Warehouse: WarehouseExport,
				Quantity:  types.NewQuantityFromFloat64(10),
				Date:      tt.date,
			})
			require.Error(t, err)
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeDateOutsideWindow, appErr.Code)
		})
	}
}

func TestPostOutboundBatch_InsufficientStockAbortsAll(t *testing.T) {
	f := newLedgerFixture(t)
	covered := f.addProduct("FD-0001", false)
	short := f.addProduct("FD-0002", false)
	f.addStock(covered, WarehouseExport, 100)
	f.addStock(short, WarehouseExport, 5)
	ctx := context.Background()

	rowsBefore := len(f.register.rows)

	_, err := f.service.PostOutboundBatch(ctx, OutboundBatch{
		Date:        f.now,
		ReferenceNo: "SHP-2026-00001",
		Items: []OutboundItem{
			{ProductID: covered.ID, Warehouse: WarehouseExport, Quantity: types.NewQuantityFromFloat64(50)},
			{ProductID: short.ID, Warehouse: WarehouseExport, Quantity: types.NewQuantityFromFloat64(10)},
		},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	// The covered line must not survive the failed batch.
	assert.Len(t, f.register.rows, rowsBefore)
}

func TestPostOutboundBatch_StockScopedPerWarehouse(t *testing.T) {
	f := newLedgerFixture(t)
	p := f.addProduct("FD-0001", false)
	f.addStock(p, WarehouseLocal, 100)
	ctx := context.Background()

	// Plenty in local, nothing in export.
	_, err := f.service.PostOutboundBatch(ctx, OutboundBatch{
		Date: f.now,
		Items: []OutboundItem{
			{ProductID: p.ID, Warehouse: WarehouseExport, Quantity: types.NewQuantityFromFloat64(10)},
		},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	txs, err := f.service.PostOutboundBatch(ctx, OutboundBatch{
		Date: f.now,
		Items: []OutboundItem{
			{ProductID: p.ID, Warehouse: WarehouseLocal, Quantity: types.NewQuantityFromFloat64(10)},
		},
	})
	require.NoError(t, err)
	require.Len(t, txs, 1)
}

func TestPostOutboundBatch_DuplicateLinesAccumulate(t *testing.T) {
	f := newLedgerFixture(t)
	p := f.addProduct("FD-0001", false)
	f.addStock(p, WarehouseExport, 30)

	// 20 + 20 exceeds the 30 available even though each line alone fits.
	_, err := f.service.PostOutboundBatch(context.Background(), OutboundBatch{
		Date: f.now,
		Items: []OutboundItem{
			{ProductID: p.ID, Warehouse: WarehouseExport, Quantity: types.NewQuantityFromFloat64(20)},
			{ProductID: p.ID, Warehouse: WarehouseExport, Quantity: types.NewQuantityFromFloat64(20)},
		},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))
}

func TestPostOutboundBatch_UnknownProductNotFound(t *testing.T) {
	f := newLedgerFixture(t)
	known := f.addProduct("FD-0001", false)
	f.addStock(known, WarehouseExport, 100)
	ctx := context.Background()

	rowsBefore := len(f.register.rows)

	_, err := f.service.PostOutboundBatch(ctx, OutboundBatch{
		Date:        f.now,
		ReferenceNo: "SHP-2026-00001",
		Items: []OutboundItem{
			{ProductID: known.ID, Warehouse: WarehouseExport, Quantity: types.NewQuantityFromFloat64(10)},
			{ProductID: id.New(), Warehouse: WarehouseExport, Quantity: types.NewQuantityFromFloat64(1)},
		},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
	assert.False(t, apperror.IsInsufficientStock(err))
	assert.Len(t, f.register.rows, rowsBefore)
}

func TestRegisterLifecycle(t *testing.T) {
	f := newLedgerFixture(t)
	p := f.addProduct("FD-0001", false)
	ctx := context.Background()

	_, err := f.service.PostInbound(ctx, InboundInput{
		ProductID: p.ID,
		Warehouse: WarehouseExport,
		Quantity:  types.NewQuantityFromFloat64(100),
		Date:      f.now,
		BatchNo:   "B-01",
	})
	require.NoError(t, err)

	_, err = f.service.PostOutboundBatch(ctx, OutboundBatch{
		Date:        f.now,
		ReferenceNo: "SHP-2026-00001",
		Items: []OutboundItem{
			{ProductID: p.ID, Warehouse: WarehouseExport, Quantity: types.NewQuantityFromFloat64(40)},
		},
	})
	require.NoError(t, err)

	adj, err := f.service.PostAdjustment(ctx, AdjustmentInput{
		ProductID: p.ID,
		Warehouse: WarehouseExport,
		NewCount:  types.NewQuantityFromFloat64(55),
		Date:      f.now,
		Reason:    "stocktake",
	})
	require.NoError(t, err)
	require.NotNil(t, adj)
	assert.Equal(t, types.NewQuantityFromFloat64(-5), adj.Quantity)

	_, err = f.service.PostOutboundBatch(ctx, OutboundBatch{
		Date:        f.now,
		ReferenceNo: "SHP-2026-00002",
		Items: []OutboundItem{
			{ProductID: p.ID, Warehouse: WarehouseExport, Quantity: types.NewQuantityFromFloat64(1000)},
		},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	stock, err := f.register.SumByProduct(ctx, p.ID, WarehouseExport)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromFloat64(55), stock)
}

func TestPostAdjustment(t *testing.T) {
	f := newLedgerFixture(t)
	p := f.addProduct("FD-0001", false)
	f.addStock(p, WarehouseExport, 100)
	ctx := context.Background()

	t.Run("shortage posts negative delta", func(t *testing.T) {
		posted, err := f.service.PostAdjustment(ctx, AdjustmentInput{
			ProductID: p.ID,
			Warehouse: WarehouseExport,
			NewCount:  types.NewQuantityFromFloat64(90),
			Date:      f.now,
			Reason:    "stocktake",
		})
		require.NoError(t, err)
		require.NotNil(t, posted)
		assert.Equal(t, TypeAdjustment, posted.Type)
		assert.Equal(t, types.NewQuantityFromFloat64(-10), posted.Quantity)

		stock, err := f.register.SumByProduct(ctx, p.ID, WarehouseExport)
		require.NoError(t, err)
		assert.Equal(t, types.NewQuantityFromFloat64(90), stock)
	})

	t.Run("matching count is a no-op", func(t *testing.T) {
		posted, err := f.service.PostAdjustment(ctx, AdjustmentInput{
			ProductID: p.ID,
			Warehouse: WarehouseExport,
			NewCount:  types.NewQuantityFromFloat64(90),
			Date:      f.now,
		})
		require.NoError(t, err)
		assert.Nil(t, posted)
	})

	t.Run("negative count rejected", func(t *testing.T) {
		_, err := f.service.PostAdjustment(ctx, AdjustmentInput{
			ProductID: p.ID,
			Warehouse: WarehouseExport,
			NewCount:  types.NewQuantityFromFloat64(-1),
			Date:      f.now,
		})
		require.Error(t, err)
	})
}

func TestPostConversion(t *testing.T) {
	f := newLedgerFixture(t)
	bulk := f.addProduct("FD-0005", true)
	packed := f.addProduct("FD-0006", false)
	f.addStock(bulk, WarehouseLocal, 50)
	ctx := context.Background()

	result, err := f.service.PostConversion(ctx, ConversionInput{
		SourceProductID: bulk.ID,
		TargetProductID: packed.ID,
		Warehouse:       WarehouseLocal,
		Quantity:        types.NewQuantityFromFloat64(20),
		Date:            f.now,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Out)
	require.NotNil(t, result.In)
	assert.Equal(t, TypeConversionOut, result.Out.Type)
	assert.Equal(t, TypeConversionIn, result.In.Type)

	sourceStock, err := f.register.SumByProduct(ctx, bulk.ID, WarehouseLocal)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromFloat64(30), sourceStock)

	targetStock, err := f.register.SumByProduct(ctx, packed.ID, WarehouseLocal)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromFloat64(20), targetStock)
}

func TestPostConversion_SourceMustBeWIP(t *testing.T) {
	f := newLedgerFixture(t)
	source := f.addProduct("FD-0001", false)
	target := f.addProduct("FD-0002", false)
	f.addStock(source, WarehouseLocal, 50)

	_, err := f.service.PostConversion(context.Background(), ConversionInput{
		SourceProductID: source.ID,
		TargetProductID: target.ID,
		Warehouse:       WarehouseLocal,
		Quantity:        types.NewQuantityFromFloat64(10),
		Date:            f.now,
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestPostConversion_ShortageLeavesNoHalfPair(t *testing.T) {
	f := newLedgerFixture(t)
	bulk := f.addProduct("FD-0005", true)
	packed := f.addProduct("FD-0006", false)
	f.addStock(bulk, WarehouseLocal, 5)
	ctx := context.Background()

	rowsBefore := len(f.register.rows)

	_, err := f.service.PostConversion(ctx, ConversionInput{
		SourceProductID: bulk.ID,
		TargetProductID: packed.ID,
		Warehouse:       WarehouseLocal,
		Quantity:        types.NewQuantityFromFloat64(20),
		Date:            f.now,
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))
	assert.Len(t, f.register.rows, rowsBefore)

	targetStock, err := f.register.SumByProduct(ctx, packed.ID, WarehouseLocal)
	require.NoError(t, err)
	assert.True(t, targetStock.IsZero())
}

func TestSumAnchorsAtNewestOpening(t *testing.T) {
	f := newLedgerFixture(t)
	p := f.addProduct("FD-0001", false)
	ctx := context.Background()

	monthStart := time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)

	// History from August: 100 in, 40 out.
	f.register.rows = append(f.register.rows,
		&Transaction{ID: id.New(), ProductID: p.ID, Warehouse: WarehouseExport,
			Type: TypeIn, Quantity: types.NewQuantityFromFloat64(100), Date: monthStart.AddDate(0, 0, -20)},
		&Transaction{ID: id.New(), ProductID: p.ID, Warehouse: WarehouseExport,
			Type: TypeOut, Quantity: types.NewQuantityFromFloat64(40), Date: monthStart.AddDate(0, 0, -10)},
		// Closing materialized the 60 as an OPENING row.
		&Transaction{ID: id.New(), ProductID: p.ID, Warehouse: WarehouseExport,
			Type: TypeOpening, Quantity: types.NewQuantityFromFloat64(60), Date: monthStart,
			ReferenceNo: "CLOSE-2026-08"},
	)

	// Pre-closing history must not be double counted.
	stock, err := f.register.SumByProduct(ctx, p.ID, WarehouseExport)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromFloat64(60), stock)
}
