package closing

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/security"
	"stockbook/internal/core/tx"
	"stockbook/internal/core/types"
	"stockbook/internal/domain/ledger"
	"stockbook/pkg/logger"
)

// Service runs monthly reconciliation and closing.
type Service struct {
	repo      Repository
	register  ledger.Repository
	txManager tx.Manager
	log       *logger.Logger
	now       func() time.Time
}

func NewService(repo Repository, register ledger.Repository, txManager tx.Manager, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		register:  register,
		txManager: txManager,
		log:       log,
		now:       time.Now,
	}
}

// NewServiceAt is like NewService with an injected clock. Used in tests.
func NewServiceAt(repo Repository, register ledger.Repository, txManager tx.Manager, log *logger.Logger, now func() time.Time) *Service {
	s := NewService(repo, register, txManager, log)
	s.now = now
	return s
}

// BuildMonthlyReport computes the reconciliation report for one month.
// An empty warehouse combines both scopes. Products missing an account
// code are reported with zero weight figures instead of aborting.
func (s *Service) BuildMonthlyReport(ctx context.Context, year int, month time.Month, groupBy GroupBy, warehouse ledger.Warehouse) (*MonthlyReport, error) {
	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}
	if groupBy != GroupByProduct && groupBy != GroupByAccount {
		return nil, apperror.NewValidation("unknown grouping").
			WithDetail("value", string(groupBy))
	}
	if warehouse != "" && !warehouse.Valid() {
		return nil, apperror.NewValidation("unknown warehouse").
			WithDetail("value", string(warehouse))
	}

	from, to := monthBounds(year, month)
	movements, err := s.repo.MovementRows(ctx, from, to, warehouse)
	if err != nil {
		return nil, err
	}

	report := &MonthlyReport{
		Year:    year,
		Month:   month,
		GroupBy: groupBy,
	}

	switch groupBy {
	case GroupByProduct:
		report.Rows = groupRowsByProduct(movements)
	case GroupByAccount:
		report.Rows = groupRowsByAccount(movements)
	}

	return report, nil
}

// PerformMonthlyClosing materializes next month's OPENING rows from the
// closing balances of the given month. Re-running against an unchanged
// register is rejected: the closing reference tag already present on an
// OPENING row means the month was closed.
func (s *Service) PerformMonthlyClosing(ctx context.Context, year int, month time.Month) (*ClosingResult, error) {
	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}

	from, to := monthBounds(year, month)
	if s.now().Before(to) {
		return nil, apperror.NewValidation("month is not complete yet").
			WithDetail("period", fmt.Sprintf("%04d-%02d", year, int(month)))
	}

	reference := ClosingReference(year, month)
	actorID := security.GetActorID(ctx)
	posted := 0

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		closed, err := s.register.HasOpeningWithReference(ctx, reference)
		if err != nil {
			return err
		}
		if closed {
			return apperror.NewPeriodClosed(fmt.Sprintf("%04d-%02d", year, int(month)))
		}

		movements, err := s.repo.MovementRows(ctx, from, to, "")
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		openings := make([]*ledger.Transaction, 0, len(movements))
		for _, m := range movements {
			balance := m.Closing()
			if balance.IsZero() {
				continue
			}
			if balance.IsNegative() {
				return apperror.NewConflict("closing balance is negative").
					WithDetail("productId", m.ProductID.String()).
					WithDetail("warehouse", string(m.Warehouse)).
					WithDetail("balance", balance.String())
			}
			openings = append(openings, &ledger.Transaction{
				ID:          id.New(),
				ProductID:   m.ProductID,
				Warehouse:   m.Warehouse,
				Type:        ledger.TypeOpening,
				Quantity:    balance,
				Date:        to,
				ReferenceNo: reference,
				Notes:       fmt.Sprintf("carried forward from %04d-%02d", year, int(month)),
				CreatedBy:   actorID,
				CreatedAt:   now,
			})
		}

		if len(openings) == 0 {
			return nil
		}
		posted = len(openings)
		return s.register.CreateBatch(ctx, openings)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithContext(ctx).Infow("month closed",
		"reference", reference, "rows_posted", posted)

	return &ClosingResult{
		Reference:   reference,
		Year:        year,
		Month:       month,
		OpeningDate: to,
		RowsPosted:  posted,
	}, nil
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

func monthBounds(year int, month time.Month) (from, to time.Time) {
	from = time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}

func groupRowsByProduct(movements []*MovementRow) []*ReportRow {
	type key struct {
		product id.ID
	}
	grouped := make(map[key]*ReportRow)
	order := make([]key, 0, len(movements))

	for _, m := range movements {
		k := key{m.ProductID}
		row, ok := grouped[k]
		if !ok {
			row = &ReportRow{
				ProductID:   m.ProductID,
				ProductCode: m.ProductCode,
				ProductName: m.ProductName,
				AccountCode: m.AccountCode,
			}
			grouped[k] = row
			order = append(order, k)
		}
		accumulate(row, m)
	}

	rows := make([]*ReportRow, 0, len(order))
	for _, k := range order {
		rows = append(rows, grouped[k])
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ProductCode < rows[j].ProductCode })
	return rows
}

func groupRowsByAccount(movements []*MovementRow) []*ReportRow {
	grouped := make(map[string]*ReportRow)
	for _, m := range movements {
		row, ok := grouped[m.AccountCode]
		if !ok {
			row = &ReportRow{AccountCode: m.AccountCode}
			grouped[m.AccountCode] = row
		}
		accumulate(row, m)
	}

	rows := make([]*ReportRow, 0, len(grouped))
	for _, row := range grouped {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].AccountCode < rows[j].AccountCode })
	return rows
}

// accumulate folds one movement row into a report row, including the
// weight figures. Products without an account code contribute zero
// weight so the report stays partial instead of failing.
func accumulate(row *ReportRow, m *MovementRow) {
	row.Opening += m.Opening
	row.Inbound += m.Inbound
	row.Outbound += m.Outbound
	row.ConversionNet += m.ConversionIn - m.ConversionOut
	row.AdjustmentNet += m.Adjustment
	row.Closing += m.Closing()

	if m.AccountCode == "" || m.UnitWeight.IsZero() {
		return
	}
	row.OpeningWeight = row.OpeningWeight.Add(weightOf(m.Opening, m.UnitWeight))
	row.InboundWeight = row.InboundWeight.Add(weightOf(m.Inbound, m.UnitWeight))
	row.OutboundWeight = row.OutboundWeight.Add(weightOf(m.Outbound, m.UnitWeight))
	row.ClosingWeight = row.ClosingWeight.Add(weightOf(m.Closing(), m.UnitWeight))
}

func weightOf(q types.Quantity, unit decimal.Decimal) decimal.Decimal {
	return q.Decimal().Mul(unit)
}
