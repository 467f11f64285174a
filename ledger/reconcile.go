package ledger

import "context"

// VerifyBalances cross-checks the stored running balances against the
// totals recomputed from the underlying movements. Debtor balances are
// compared to pending credit sales; sale pending amounts are compared to
// the sale total minus payments and credit refunds. A clean system
// returns no drifts; anything reported points at a write that bypassed
// the ledger.
func (l *Ledger) VerifyBalances(ctx context.Context) ([]BalanceDrift, error) {
	debtors, err := l.store.DebtorBalanceDrift(ctx)
	if err != nil {
		return nil, err
	}
	sales, err := l.store.SalePendingDrift(ctx)
	if err != nil {
		return nil, err
	}
	return append(debtors, sales...), nil
}
