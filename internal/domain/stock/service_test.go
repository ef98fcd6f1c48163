package stock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain/ledger"
)

type fakeReader struct {
	sums map[id.ID]map[ledger.Warehouse]types.Quantity
}

func (f *fakeReader) sum(productID id.ID, warehouse ledger.Warehouse) types.Quantity {
	byWh := f.sums[productID]
	if warehouse != "" {
		return byWh[warehouse]
	}
	var total types.Quantity
	for _, q := range byWh {
		total += q
	}
	return total
}

func (f *fakeReader) SumByProduct(ctx context.Context, productID id.ID, warehouse ledger.Warehouse) (types.Quantity, error) {
	return f.sum(productID, warehouse), nil
}

func (f *fakeReader) SumByProducts(ctx context.Context, productIDs []id.ID, warehouse ledger.Warehouse) (map[id.ID]types.Quantity, error) {
	out := make(map[id.ID]types.Quantity)
	for _, pid := range productIDs {
		if q := f.sum(pid, warehouse); q != 0 {
			out[pid] = q
		}
	}
	return out, nil
}

func TestCurrentStock(t *testing.T) {
	stocked := id.New()
	reader := &fakeReader{sums: map[id.ID]map[ledger.Warehouse]types.Quantity{
		stocked: {
			ledger.WarehouseExport: types.NewQuantityFromFloat64(100),
			ledger.WarehouseLocal:  types.NewQuantityFromFloat64(40),
		},
	}}
	svc := NewService(reader)
	ctx := context.Background()

	level, err := svc.CurrentStock(ctx, stocked, ledger.WarehouseExport)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromFloat64(100), level.Quantity)

	// Empty warehouse sums both scopes.
	level, err = svc.CurrentStock(ctx, stocked, "")
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromFloat64(140), level.Quantity)

	// Unknown product reports zero, not an error.
	level, err = svc.CurrentStock(ctx, id.New(), "")
	require.NoError(t, err)
	assert.True(t, level.Quantity.IsZero())

	_, err = svc.CurrentStock(ctx, id.Nil(), "")
	require.Error(t, err)

	_, err = svc.CurrentStock(ctx, stocked, "warehouse-9")
	require.Error(t, err)
}

func TestCurrentStockBulk(t *testing.T) {
	stocked := id.New()
	empty := id.New()
	reader := &fakeReader{sums: map[id.ID]map[ledger.Warehouse]types.Quantity{
		stocked: {ledger.WarehouseExport: types.NewQuantityFromFloat64(25)},
	}}
	svc := NewService(reader)
	ctx := context.Background()

	levels, err := svc.CurrentStockBulk(ctx, []id.ID{stocked, empty}, ledger.WarehouseExport)
	require.NoError(t, err)
	require.Len(t, levels, 2)
	assert.Equal(t, types.NewQuantityFromFloat64(25), levels[0].Quantity)
	assert.True(t, levels[1].Quantity.IsZero())

	_, err = svc.CurrentStockBulk(ctx, nil, "")
	require.Error(t, err)
}
