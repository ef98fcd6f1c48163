package closing

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain/ledger"
	"stockbook/pkg/logger"
)

type fakeProduct struct {
	id          id.ID
	code        string
	name        string
	accountCode string
	unitWeight  decimal.Decimal
}

// fakeStore backs both the aggregation port and the register port with
// one in-memory transaction list, so closing runs see their own OPENING
// rows exactly like they would against the database.
type fakeStore struct {
	products map[id.ID]*fakeProduct
	rows     []*ledger.Transaction
}

func newFakeStore() *fakeStore {
	return &fakeStore{products: make(map[id.ID]*fakeProduct)}
}

func (s *fakeStore) addProduct(code, accountCode, unitWeight string) *fakeProduct {
	p := &fakeProduct{
		id:          id.New(),
		code:        code,
		name:        code,
		accountCode: accountCode,
		unitWeight:  decimal.RequireFromString(unitWeight),
	}
	s.products[p.id] = p
	return p
}

func (s *fakeStore) add(p *fakeProduct, wh ledger.Warehouse, typ ledger.Type, qty float64, date time.Time) {
	s.rows = append(s.rows, &ledger.Transaction{
		ID:        id.New(),
		ProductID: p.id,
		Warehouse: wh,
		Type:      typ,
		Quantity:  types.NewQuantityFromFloat64(qty),
		Date:      date,
	})
}

// MovementRows mirrors the SQL aggregation: the opening figure anchors
// at the newest OPENING row dated at or before the period start.
func (s *fakeStore) MovementRows(ctx context.Context, from, to time.Time, warehouse ledger.Warehouse) ([]*MovementRow, error) {
	type scope struct {
		product   id.ID
		warehouse ledger.Warehouse
	}

	anchors := make(map[scope]time.Time)
	for _, t := range s.rows {
		if t.Type != ledger.TypeOpening || t.Date.After(from) {
			continue
		}
		k := scope{t.ProductID, t.Warehouse}
		if t.Date.After(anchors[k]) {
			anchors[k] = t.Date
		}
	}

	grouped := make(map[scope]*MovementRow)
	row := func(k scope) *MovementRow {
		m, ok := grouped[k]
		if !ok {
			p := s.products[k.product]
			m = &MovementRow{
				ProductID:   p.id,
				ProductCode: p.code,
				ProductName: p.name,
				AccountCode: p.accountCode,
				UnitWeight:  p.unitWeight,
				Warehouse:   k.warehouse,
			}
			grouped[k] = m
		}
		return m
	}

	for _, t := range s.rows {
		if warehouse != "" && t.Warehouse != warehouse {
			continue
		}
		k := scope{t.ProductID, t.Warehouse}

		if t.Date.Before(from) {
			anchor, ok := anchors[k]
			if ok && t.Date.Before(anchor) {
				continue
			}
			m := row(k)
			m.Opening = types.Quantity(int64(m.Opening) + int64(t.SignedQuantity()))
			continue
		}
		if t.Type == ledger.TypeOpening {
			if t.Date.Equal(from) {
				m := row(k)
				m.Opening = types.Quantity(int64(m.Opening) + int64(t.SignedQuantity()))
			}
			continue
		}
		if !t.Date.Before(to) {
			continue
		}

		m := row(k)
		switch t.Type {
		case ledger.TypeIn:
			m.Inbound += t.Quantity
		case ledger.TypeOut:
			m.Outbound += t.Quantity
		case ledger.TypeConversionIn:
			m.ConversionIn += t.Quantity
		case ledger.TypeConversionOut:
			m.ConversionOut += t.Quantity
		case ledger.TypeAdjustment:
			m.Adjustment += t.Quantity
		}
	}

	out := make([]*MovementRow, 0, len(grouped))
	for _, m := range grouped {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductCode != out[j].ProductCode {
			return out[i].ProductCode < out[j].ProductCode
		}
		return out[i].Warehouse < out[j].Warehouse
	})
	return out, nil
}

// ledger.Repository subset used by the closing service.

func (s *fakeStore) Create(ctx context.Context, t *ledger.Transaction) error {
	s.rows = append(s.rows, t)
	return nil
}

func (s *fakeStore) CreateBatch(ctx context.Context, txs []*ledger.Transaction) error {
	s.rows = append(s.rows, txs...)
	return nil
}

func (s *fakeStore) GetByID(ctx context.Context, txID id.ID) (*ledger.Transaction, error) {
	return nil, apperror.NewNotFound("transaction", txID.String())
}

func (s *fakeStore) List(ctx context.Context, filter ledger.Filter) ([]*ledger.Transaction, error) {
	return s.rows, nil
}

func (s *fakeStore) LockProducts(ctx context.Context, productIDs []id.ID) error { return nil }

func (s *fakeStore) SumByProduct(ctx context.Context, productID id.ID, warehouse ledger.Warehouse) (types.Quantity, error) {
	return 0, nil
}

func (s *fakeStore) SumByProducts(ctx context.Context, productIDs []id.ID, warehouse ledger.Warehouse) (map[id.ID]types.Quantity, error) {
	return nil, nil
}

func (s *fakeStore) HasOpeningWithReference(ctx context.Context, referenceNo string) (bool, error) {
	for _, t := range s.rows {
		if t.Type == ledger.TypeOpening && t.ReferenceNo == referenceNo {
			return true, nil
		}
	}
	return false, nil
}

type fakeTxManager struct {
	store *fakeStore
}

func (m *fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	snapshot := make([]*ledger.Transaction, len(m.store.rows))
	copy(snapshot, m.store.rows)

	if err := fn(ctx); err != nil {
		m.store.rows = snapshot
		return err
	}
	return nil
}

func newClosingService(t *testing.T, store *fakeStore, now time.Time) *Service {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error"})
	require.NoError(t, err)
	return NewServiceAt(store, store, &fakeTxManager{store: store}, log, func() time.Time { return now })
}

func day(d int) time.Time {
	return time.Date(2026, time.August, d, 0, 0, 0, 0, time.UTC)
}

func TestBuildMonthlyReport_ByProduct(t *testing.T) {
	store := newFakeStore()
	p := store.addProduct("FD-0001", "6101", "0.5")

	// July history establishing an opening of 60.
	store.add(p, ledger.WarehouseExport, ledger.TypeIn, 100, day(1).AddDate(0, -1, 0))
	store.add(p, ledger.WarehouseExport, ledger.TypeOut, 40, day(1).AddDate(0, -1, 10))

	// August movement.
	store.add(p, ledger.WarehouseExport, ledger.TypeIn, 30, day(5))
	store.add(p, ledger.WarehouseExport, ledger.TypeOut, 20, day(10))
	store.add(p, ledger.WarehouseExport, ledger.TypeAdjustment, -5, day(20))

	svc := newClosingService(t, store, time.Date(2026, time.September, 10, 0, 0, 0, 0, time.UTC))

	report, err := svc.BuildMonthlyReport(context.Background(), 2026, time.August, GroupByProduct, "")
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)

	row := report.Rows[0]
	assert.Equal(t, "FD-0001", row.ProductCode)
	assert.Equal(t, types.NewQuantityFromFloat64(60), row.Opening)
	assert.Equal(t, types.NewQuantityFromFloat64(30), row.Inbound)
	assert.Equal(t, types.NewQuantityFromFloat64(20), row.Outbound)
	assert.Equal(t, types.NewQuantityFromFloat64(-5), row.AdjustmentNet)
	assert.Equal(t, types.NewQuantityFromFloat64(65), row.Closing)

	// Weight figures at 0.5 kg per unit.
	assert.True(t, row.OpeningWeight.Equal(decimal.RequireFromString("30")), "opening weight %s", row.OpeningWeight)
	assert.True(t, row.ClosingWeight.Equal(decimal.RequireFromString("32.5")), "closing weight %s", row.ClosingWeight)
}

func TestBuildMonthlyReport_ByAccountMergesProducts(t *testing.T) {
	store := newFakeStore()
	a := store.addProduct("FD-0001", "6101", "0.5")
	b := store.addProduct("FD-0002", "6101", "1")
	unmapped := store.addProduct("FD-0003", "", "0.4")

	store.add(a, ledger.WarehouseExport, ledger.TypeIn, 10, day(3))
	store.add(b, ledger.WarehouseExport, ledger.TypeIn, 20, day(4))
	store.add(unmapped, ledger.WarehouseExport, ledger.TypeIn, 50, day(5))

	svc := newClosingService(t, store, time.Date(2026, time.September, 10, 0, 0, 0, 0, time.UTC))

	report, err := svc.BuildMonthlyReport(context.Background(), 2026, time.August, GroupByAccount, "")
	require.NoError(t, err)
	require.Len(t, report.Rows, 2)

	// Sorted by account code: the unmapped bucket first.
	assert.Equal(t, "", report.Rows[0].AccountCode)
	assert.Equal(t, types.NewQuantityFromFloat64(50), report.Rows[0].Inbound)
	assert.True(t, report.Rows[0].InboundWeight.IsZero())

	assert.Equal(t, "6101", report.Rows[1].AccountCode)
	assert.Equal(t, types.NewQuantityFromFloat64(30), report.Rows[1].Inbound)
	// 10 * 0.5 + 20 * 1 = 25 kg.
	assert.True(t, report.Rows[1].InboundWeight.Equal(decimal.RequireFromString("25")))
}

func TestPerformMonthlyClosing(t *testing.T) {
	store := newFakeStore()
	p := store.addProduct("FD-0001", "6101", "0.5")
	empty := store.addProduct("FD-0002", "6101", "1")

	store.add(p, ledger.WarehouseExport, ledger.TypeIn, 100, day(2))
	store.add(p, ledger.WarehouseExport, ledger.TypeOut, 30, day(15))
	// Nets to zero; no OPENING row should be written for it.
	store.add(empty, ledger.WarehouseLocal, ledger.TypeIn, 10, day(2))
	store.add(empty, ledger.WarehouseLocal, ledger.TypeOut, 10, day(3))

	svc := newClosingService(t, store, time.Date(2026, time.September, 10, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	result, err := svc.PerformMonthlyClosing(ctx, 2026, time.August)
	require.NoError(t, err)
	assert.Equal(t, "CLOSE-2026-08", result.Reference)
	assert.Equal(t, 1, result.RowsPosted)
	assert.Equal(t, time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC), result.OpeningDate)

	var openings []*ledger.Transaction
	for _, tx := range store.rows {
		if tx.Type == ledger.TypeOpening {
			openings = append(openings, tx)
		}
	}
	require.Len(t, openings, 1)
	assert.Equal(t, p.id, openings[0].ProductID)
	assert.Equal(t, types.NewQuantityFromFloat64(70), openings[0].Quantity)
	assert.Equal(t, result.OpeningDate, openings[0].Date)
	assert.Equal(t, result.Reference, openings[0].ReferenceNo)

	// September reports open with the carried balance, not doubled.
	report, err := svc.BuildMonthlyReport(ctx, 2026, time.September, GroupByProduct, "")
	require.NoError(t, err)
	require.NotEmpty(t, report.Rows)
	assert.Equal(t, "FD-0001", report.Rows[0].ProductCode)
	assert.Equal(t, types.NewQuantityFromFloat64(70), report.Rows[0].Opening)
}

func TestPerformMonthlyClosing_Idempotent(t *testing.T) {
	store := newFakeStore()
	p := store.addProduct("FD-0001", "6101", "0.5")
	store.add(p, ledger.WarehouseExport, ledger.TypeIn, 100, day(2))

	svc := newClosingService(t, store, time.Date(2026, time.September, 10, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	_, err := svc.PerformMonthlyClosing(ctx, 2026, time.August)
	require.NoError(t, err)

	_, err = svc.PerformMonthlyClosing(ctx, 2026, time.August)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodePeriodClosed, appErr.Code)
}

func TestPerformMonthlyClosing_MonthNotComplete(t *testing.T) {
	store := newFakeStore()
	svc := newClosingService(t, store, time.Date(2026, time.August, 20, 0, 0, 0, 0, time.UTC))

	_, err := svc.PerformMonthlyClosing(context.Background(), 2026, time.August)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestPerformMonthlyClosing_NegativeBalanceRejected(t *testing.T) {
	store := newFakeStore()
	p := store.addProduct("FD-0001", "6101", "0.5")
	// Adjustment drives the balance below zero.
	store.add(p, ledger.WarehouseExport, ledger.TypeIn, 10, day(2))
	store.add(p, ledger.WarehouseExport, ledger.TypeAdjustment, -15, day(20))

	svc := newClosingService(t, store, time.Date(2026, time.September, 10, 0, 0, 0, 0, time.UTC))

	_, err := svc.PerformMonthlyClosing(context.Background(), 2026, time.August)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeConflict, appErr.Code)

	// No partial OPENING rows may survive the failed run.
	for _, tx := range store.rows {
		assert.NotEqual(t, ledger.TypeOpening, tx.Type)
	}
}
