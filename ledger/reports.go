package ledger

import (
	"context"
	"time"
)

// ProfitByRange aggregates revenue, cost of goods sold, and margin over
// a period. Cost is taken from the product's stored cost at query time.
func (l *Ledger) ProfitByRange(ctx context.Context, from, to time.Time) (ProfitReport, error) {
	return l.store.ProfitByRange(ctx, from, to)
}

func (l *Ledger) ProfitByProduct(ctx context.Context, from, to time.Time) ([]ProductProfit, error) {
	return l.store.ProfitByProduct(ctx, from, to)
}

func (l *Ledger) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]TopProduct, error) {
	if limit <= 0 {
		limit = 10
	}
	return l.store.TopProducts(ctx, from, to, limit)
}
