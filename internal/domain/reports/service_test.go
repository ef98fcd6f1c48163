package reports

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain/closing"
	"stockbook/internal/domain/ledger"
	"stockbook/pkg/logger"
)

type fakeRepo struct {
	movements []*DailyMovement
}

func (f *fakeRepo) DailyMovements(ctx context.Context, from, to time.Time, warehouse ledger.Warehouse) ([]*DailyMovement, error) {
	return f.movements, nil
}

type fakeReconciler struct {
	report *closing.MonthlyReport
}

func (f *fakeReconciler) BuildMonthlyReport(ctx context.Context, year int, month time.Month, groupBy closing.GroupBy, warehouse ledger.Warehouse) (*closing.MonthlyReport, error) {
	return f.report, nil
}

func newReportsService(t *testing.T, repo *fakeRepo, rec *fakeReconciler) *Service {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error"})
	require.NoError(t, err)
	return NewService(repo, rec, log)
}

func TestDailyMatrix(t *testing.T) {
	first := id.New()
	second := id.New()
	repo := &fakeRepo{movements: []*DailyMovement{
		{ProductID: second, ProductCode: "FD-0002", ProductName: "B", Day: 3,
			Type: ledger.TypeIn, Quantity: types.NewQuantityFromFloat64(20)},
		{ProductID: first, ProductCode: "FD-0001", ProductName: "A", Day: 3,
			Type: ledger.TypeIn, Quantity: types.NewQuantityFromFloat64(10)},
		{ProductID: first, ProductCode: "FD-0001", ProductName: "A", Day: 3,
			Type: ledger.TypeConversionOut, Quantity: types.NewQuantityFromFloat64(4)},
		{ProductID: first, ProductCode: "FD-0001", ProductName: "A", Day: 15,
			Type: ledger.TypeAdjustment, Quantity: types.NewQuantityFromFloat64(-2)},
	}}

	svc := newReportsService(t, repo, &fakeReconciler{})

	matrix, err := svc.DailyMatrix(context.Background(), 2026, time.September, "")
	require.NoError(t, err)
	assert.Equal(t, 30, matrix.DaysInMonth)
	require.Len(t, matrix.Rows, 2)

	// Sorted by product code.
	row := matrix.Rows[0]
	assert.Equal(t, "FD-0001", row.ProductCode)
	require.Len(t, row.Days, 30)

	day3 := row.Days[2]
	assert.Equal(t, types.NewQuantityFromFloat64(10), day3.Inbound)
	// Conversions count on the outbound side.
	assert.Equal(t, types.NewQuantityFromFloat64(4), day3.Outbound)

	day15 := row.Days[14]
	assert.Equal(t, types.NewQuantityFromFloat64(-2), day15.Adjustment)

	assert.Equal(t, "FD-0002", matrix.Rows[1].ProductCode)
}

func TestDailyMatrix_InvalidPeriod(t *testing.T) {
	svc := newReportsService(t, &fakeRepo{}, &fakeReconciler{})

	_, err := svc.DailyMatrix(context.Background(), 1999, time.January, "")
	require.Error(t, err)

	_, err = svc.DailyMatrix(context.Background(), 2026, time.Month(13), "")
	require.Error(t, err)

	_, err = svc.DailyMatrix(context.Background(), 2026, time.January, "warehouse-9")
	require.Error(t, err)
}

func TestAccountWeightMovement(t *testing.T) {
	rec := &fakeReconciler{report: &closing.MonthlyReport{
		Year:    2026,
		Month:   time.August,
		GroupBy: closing.GroupByAccount,
		Rows: []*closing.ReportRow{
			{
				AccountCode:    "6101",
				OpeningWeight:  decimal.RequireFromString("100"),
				InboundWeight:  decimal.RequireFromString("40"),
				OutboundWeight: decimal.RequireFromString("30"),
				ClosingWeight:  decimal.RequireFromString("105"),
			},
			{AccountCode: ""},
		},
	}}

	svc := newReportsService(t, &fakeRepo{}, rec)

	rows, err := svc.AccountWeightMovement(context.Background(), 2026, time.August, "")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Adjustment is the residual: closing - opening - inbound + outbound.
	assert.True(t, rows[0].AdjustmentWeight.Equal(decimal.RequireFromString("-5")),
		"adjustment %s", rows[0].AdjustmentWeight)

	// The unmapped bucket keeps its zero weights.
	assert.Equal(t, "", rows[1].AccountCode)
	assert.True(t, rows[1].OpeningWeight.IsZero())
	assert.True(t, rows[1].AdjustmentWeight.IsZero())
}
