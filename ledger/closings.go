package ledger

import (
	"context"
	"fmt"
	"time"
)

// RegisterClosing records an end-of-day cash count for an operator. The
// variance is counted cash minus the cash total the system expects; its
// sign classifies the closing as balanced, over, or short. Closings are
// snapshots and are never recomputed after the fact.
func (l *Ledger) RegisterClosing(ctx context.Context, actorID int64, in ClosingInput) (int64, error) {
	if in.TotalSales.IsNegative() || in.CashTotal.IsNegative() || in.Counted.IsNegative() {
		return 0, rejectf(ErrInvalidAmount, "closing amounts cannot be negative")
	}

	variance := in.Counted.Sub(in.CashTotal)
	kind := ClassifyVariance(variance)

	var closingID int64
	err := l.store.WithTx(ctx, func(tx Tx) error {
		var err error
		closingID, err = tx.InsertClosing(ctx, CashClosing{
			UserID:     actorID,
			At:         l.now(),
			TotalSales: in.TotalSales,
			CashTotal:  in.CashTotal,
			Counted:    in.Counted,
			Variance:   variance,
			Notes:      in.Notes,
		})
		if err != nil {
			return err
		}
		return l.audit(ctx, tx, actorID, ActionClosingRecorded,
			fmt.Sprintf("closing %d: counted %s against %s expected, %s",
				closingID, in.Counted, in.CashTotal, kind))
	})
	if err != nil {
		return 0, err
	}
	return closingID, nil
}

// HasClosingToday reports whether the operator already closed today.
// Callers use it to warn on a second closing; recording more than one
// per day is allowed.
func (l *Ledger) HasClosingToday(ctx context.Context, userID int64) (bool, error) {
	return l.store.HasClosingOn(ctx, userID, l.now())
}

// DayTotals returns the operator's sales totals for a given day, the
// figures a closing is counted against.
func (l *Ledger) DayTotals(ctx context.Context, userID int64, day time.Time) (DayTotals, error) {
	return l.store.DayTotals(ctx, userID, day)
}

func (l *Ledger) Closing(ctx context.Context, id int64) (*CashClosing, error) {
	return l.store.GetClosing(ctx, id)
}

func (l *Ledger) ClosingsByOperator(ctx context.Context, userID int64) ([]CashClosing, error) {
	return l.store.ClosingsByOperator(ctx, userID)
}

func (l *Ledger) ClosingsByRange(ctx context.Context, from, to time.Time) ([]CashClosing, error) {
	return l.store.ClosingsByRange(ctx, from, to)
}
