package security

import (
	"context"
	"time"

	"stockbook/internal/core/apperror"
)

// PostingPolicy defines which transaction dates the ledger accepts.
// The date-window rule is enforced here as a hard rule, not a UI
// affordance, to protect reconciliation integrity.
type PostingPolicy interface {
	// CanPost checks if a transaction can be posted with the given date.
	CanPost(ctx context.Context, txDate time.Time) error
}

// CurrentMonthPolicy accepts only dates within the current calendar month,
// up to and including today. Backdating into prior months would silently
// change already-reconciled balances.
type CurrentMonthPolicy struct {
	// now is injectable for tests; defaults to time.Now.
	now func() time.Time
}

// NewCurrentMonthPolicy creates the standard month-to-date posting policy.
func NewCurrentMonthPolicy() *CurrentMonthPolicy {
	return &CurrentMonthPolicy{now: time.Now}
}

// NewCurrentMonthPolicyAt creates a policy with a fixed clock, for tests.
func NewCurrentMonthPolicyAt(now func() time.Time) *CurrentMonthPolicy {
	return &CurrentMonthPolicy{now: now}
}

func (p *CurrentMonthPolicy) CanPost(ctx context.Context, txDate time.Time) error {
	now := p.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	dayEnd := now.Truncate(24 * time.Hour).Add(24 * time.Hour)

	d := txDate.UTC()
	if d.Before(monthStart) || !d.Before(dayEnd) {
		return apperror.NewDateOutsideWindow(
			d.Format("2006-01-02"),
			monthStart.Format("2006-01-02")+".."+now.Format("2006-01-02"),
		)
	}
	return nil
}

// OpenPolicy accepts any date. Used by the monthly closing operation, which
// writes OPENING rows dated on the first of the following month.
type OpenPolicy struct{}

func (OpenPolicy) CanPost(ctx context.Context, txDate time.Time) error { return nil }
