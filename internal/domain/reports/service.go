package reports

import (
	"context"
	"sort"
	"time"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/domain/closing"
	"stockbook/internal/domain/ledger"
	"stockbook/pkg/logger"
)

// Reconciler is the slice of the closing service the reports use.
type Reconciler interface {
	BuildMonthlyReport(ctx context.Context, year int, month time.Month, groupBy closing.GroupBy, warehouse ledger.Warehouse) (*closing.MonthlyReport, error)
}

// Service renders reporting projections.
type Service struct {
	repo       Repository
	reconciler Reconciler
	log        *logger.Logger
}

func NewService(repo Repository, reconciler Reconciler, log *logger.Logger) *Service {
	return &Service{repo: repo, reconciler: reconciler, log: log}
}

// DailyMatrix builds the in/out/adjustment matrix for one month.
// Conversions count as inbound/outbound on their respective sides.
func (s *Service) DailyMatrix(ctx context.Context, year int, month time.Month, warehouse ledger.Warehouse) (*DailyMatrix, error) {
	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}
	if warehouse != "" && !warehouse.Valid() {
		return nil, apperror.NewValidation("unknown warehouse").
			WithDetail("value", string(warehouse))
	}

	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	days := to.AddDate(0, 0, -1).Day()

	movements, err := s.repo.DailyMovements(ctx, from, to, warehouse)
	if err != nil {
		return nil, err
	}

	rowIndex := make(map[id.ID]*DailyRow)
	var rows []*DailyRow
	for _, m := range movements {
		if m.Day < 1 || m.Day > days {
			continue
		}
		row, ok := rowIndex[m.ProductID]
		if !ok {
			row = &DailyRow{
				ProductID:   m.ProductID,
				ProductCode: m.ProductCode,
				ProductName: m.ProductName,
				Days:        make([]DailyCell, days),
			}
			rowIndex[m.ProductID] = row
			rows = append(rows, row)
		}

		cell := &row.Days[m.Day-1]
		switch m.Type {
		case ledger.TypeIn, ledger.TypeOpening, ledger.TypeConversionIn:
			cell.Inbound += m.Quantity
		case ledger.TypeOut, ledger.TypeConversionOut:
			cell.Outbound += m.Quantity
		case ledger.TypeAdjustment:
			cell.Adjustment += m.Quantity
		}
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].ProductCode < rows[j].ProductCode })

	return &DailyMatrix{
		Year:        year,
		Month:       month,
		Warehouse:   warehouse,
		DaysInMonth: days,
		Rows:        rows,
	}, nil
}

// MonthlySummary is the reconciliation report grouped by product.
func (s *Service) MonthlySummary(ctx context.Context, year int, month time.Month, warehouse ledger.Warehouse) (*closing.MonthlyReport, error) {
	return s.reconciler.BuildMonthlyReport(ctx, year, month, closing.GroupByProduct, warehouse)
}

// AccountWeightMovement reports period movement in kilograms per
// account code. Products without an account code land in a single row
// with an empty code and zero weights so the report stays complete.
func (s *Service) AccountWeightMovement(ctx context.Context, year int, month time.Month, warehouse ledger.Warehouse) ([]*AccountWeightRow, error) {
	report, err := s.reconciler.BuildMonthlyReport(ctx, year, month, closing.GroupByAccount, warehouse)
	if err != nil {
		return nil, err
	}

	rows := make([]*AccountWeightRow, 0, len(report.Rows))
	for _, r := range report.Rows {
		rows = append(rows, &AccountWeightRow{
			AccountCode:      r.AccountCode,
			OpeningWeight:    r.OpeningWeight,
			InboundWeight:    r.InboundWeight,
			OutboundWeight:   r.OutboundWeight,
			AdjustmentWeight: r.ClosingWeight.Sub(r.OpeningWeight).Sub(r.InboundWeight).Add(r.OutboundWeight),
			ClosingWeight:    r.ClosingWeight,
		})
	}
	return rows, nil
}

func validatePeriod(year int, month time.Month) error {
	if year < 2000 || year > 2100 {
		return apperror.NewValidation("year out of range").
			WithDetail("value", year)
	}
	if month < time.January || month > time.December {
		return apperror.NewValidation("month out of range").
			WithDetail("value", int(month))
	}
	return nil
}
