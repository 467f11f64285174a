package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// RegisterReturn reverses part or all of a prior sale. Refunds are priced
// from the unit price captured on the original sale items, never from the
// product's current price. Stock is restored, and if the sale was on
// credit both the sale's pending balance and the debtor's balance are
// reduced by the refund.
//
// Cumulative refunds against one sale are capped at the sale total across
// all of its returns, so repeated partial returns cannot over-refund.
func (l *Ledger) RegisterReturn(ctx context.Context, actorID, saleID int64, lines map[int64]int64, reason string) (int64, error) {
	if len(lines) == 0 {
		return 0, rejectf(ErrEmptyLines, "return has no items")
	}

	productIDs := make([]int64, 0, len(lines))
	for pid, qty := range lines {
		if qty <= 0 {
			return 0, rejectf(ErrInvalidLine, "return quantity for product %d must be positive", pid)
		}
		productIDs = append(productIDs, pid)
	}
	sort.Slice(productIDs, func(i, j int) bool { return productIDs[i] < productIDs[j] })

	var returnID int64
	err := l.store.WithTx(ctx, func(tx Tx) error {
		sale, err := tx.GetSale(ctx, saleID)
		if err != nil {
			return err
		}

		items, err := tx.ListSaleItems(ctx, saleID)
		if err != nil {
			return err
		}
		sold := make(map[int64]SaleItem, len(items))
		for _, it := range items {
			sold[it.ProductID] = it
		}

		prevQty, err := tx.ReturnedQtyBySale(ctx, saleID)
		if err != nil {
			return err
		}
		prevRefunded, err := tx.RefundedTotalBySale(ctx, saleID)
		if err != nil {
			return err
		}

		refund := decimal.Zero
		for _, pid := range productIDs {
			item, ok := sold[pid]
			if !ok {
				return rejectf(ErrProductNotInSale, "product %d was not part of sale %d", pid, saleID)
			}
			if lines[pid]+prevQty[pid] > item.Quantity {
				return rejectf(ErrReturnQtyExceedsSold,
					"product %d: returning %d with %d already returned exceeds %d sold",
					pid, lines[pid], prevQty[pid], item.Quantity)
			}
			refund = refund.Add(item.UnitPrice.Mul(decimal.NewFromInt(lines[pid])))
		}

		cumulative := prevRefunded.Add(refund)
		if cumulative.GreaterThan(sale.Total) {
			return rejectf(ErrReturnExceedsSale,
				"refunding %s with %s already refunded exceeds sale total %s",
				refund, prevRefunded, sale.Total)
		}

		kind := ReturnPartial
		if cumulative.GreaterThanOrEqual(sale.Total) {
			kind = ReturnFull
		}

		returnID, err = tx.InsertReturn(ctx, Return{
			SaleID: saleID,
			UserID: actorID,
			At:     l.now(),
			Total:  refund,
			Kind:   kind,
			Reason: reason,
		})
		if err != nil {
			return err
		}

		for _, pid := range productIDs {
			if _, err := tx.InsertReturnItem(ctx, ReturnItem{
				ReturnID:  returnID,
				ProductID: pid,
				Quantity:  lines[pid],
				UnitPrice: sold[pid].UnitPrice,
			}); err != nil {
				return err
			}
			if err := tx.AdjustStock(ctx, pid, lines[pid]); err != nil {
				return err
			}
		}

		if sale.PaymentKind == PaymentCredit {
			// Pending may already be lower than the refund when payments
			// were taken in between; the pending >= 0 check constraint
			// rejects the whole transaction in that case.
			if err := tx.AdjustSalePending(ctx, saleID, refund.Neg()); err != nil {
				return err
			}
			// The debtor may have been deleted after the sale settled, which
			// nulls the sale's debtor reference. Stock and pending are still
			// reversed; there is just no balance left to adjust.
			if sale.DebtorID != nil {
				if err := tx.AdjustDebtorBalance(ctx, *sale.DebtorID, refund.Neg()); err != nil {
					return err
				}
			}
		}

		return l.audit(ctx, tx, actorID, ActionReturnRegistered,
			fmt.Sprintf("return %d against sale %d: refund %s, %s, %s sale",
				returnID, saleID, refund, kind, sale.PaymentKind))
	})
	if err != nil {
		return 0, err
	}
	return returnID, nil
}

func (l *Ledger) Return(ctx context.Context, id int64) (*Return, error) {
	return l.store.GetReturn(ctx, id)
}

func (l *Ledger) ReturnItems(ctx context.Context, returnID int64) ([]ReturnItem, error) {
	return l.store.ListReturnItems(ctx, returnID)
}

func (l *Ledger) ReturnsBySale(ctx context.Context, saleID int64) ([]Return, error) {
	return l.store.ReturnsBySale(ctx, saleID)
}

func (l *Ledger) ReturnsByRange(ctx context.Context, from, to time.Time) ([]Return, error) {
	return l.store.ReturnsByRange(ctx, from, to)
}

func (l *Ledger) ReturnStatsByRange(ctx context.Context, from, to time.Time) (ReturnStats, error) {
	return l.store.ReturnStatsByRange(ctx, from, to)
}
