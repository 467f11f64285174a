package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// RegisterSale books a sale atomically: header, line items, stock
// decrements, debtor accrual when on credit, and the audit entry. The new
// sale's identity is returned on success.
//
// Stock sufficiency is deliberately NOT re-checked here; the caller
// validates availability before submitting, and an unvalidated sale may
// drive stock negative, matching the write contract.
func (l *Ledger) RegisterSale(ctx context.Context, actorID int64, in SaleInput) (int64, error) {
	if len(in.Lines) == 0 {
		return 0, rejectf(ErrEmptyLines, "sale has no items")
	}
	if !in.PaymentKind.Valid() {
		return 0, rejectf(ErrInvalidLine, "unknown payment kind %q", in.PaymentKind)
	}
	if in.PaymentKind == PaymentCredit && in.DebtorID == nil {
		return 0, rejectf(ErrCreditNeedsDebtor, "credit sale requires a debtor")
	}
	if in.PaymentKind == PaymentCash && in.DebtorID != nil {
		return 0, rejectf(ErrCashHasDebtor, "cash sale must not name a debtor")
	}
	if in.Total.IsNegative() {
		return 0, rejectf(ErrInvalidLine, "sale total must not be negative")
	}

	codes := make([]string, 0, len(in.Lines))
	sum := decimal.Zero
	for code, line := range in.Lines {
		if line.Quantity <= 0 {
			return 0, rejectf(ErrInvalidLine, "quantity for %q must be positive", code)
		}
		if line.UnitPrice.IsNegative() {
			return 0, rejectf(ErrInvalidLine, "unit price for %q must not be negative", code)
		}
		sum = sum.Add(line.UnitPrice.Mul(decimal.NewFromInt(line.Quantity)))
		codes = append(codes, code)
	}
	if !sum.Equal(in.Total) {
		return 0, rejectf(ErrLineTotalMismatch,
			"line items sum to %s, stated total is %s", sum, in.Total)
	}
	sort.Strings(codes)

	pending := decimal.Zero
	if in.PaymentKind == PaymentCredit {
		pending = in.Total
	}

	var saleID int64
	err := l.store.WithTx(ctx, func(tx Tx) error {
		var err error
		saleID, err = tx.InsertSale(ctx, Sale{
			UserID:      actorID,
			At:          l.now(),
			Total:       in.Total,
			PaymentKind: in.PaymentKind,
			DebtorID:    in.DebtorID,
			Pending:     pending,
		})
		if err != nil {
			return err
		}

		for _, code := range codes {
			line := in.Lines[code]
			p, err := tx.GetProductByCode(ctx, code)
			if err != nil {
				return err
			}
			if _, err := tx.InsertSaleItem(ctx, SaleItem{
				SaleID:    saleID,
				ProductID: p.ID,
				Quantity:  line.Quantity,
				UnitPrice: line.UnitPrice,
			}); err != nil {
				return err
			}
			if err := tx.AdjustStock(ctx, p.ID, -line.Quantity); err != nil {
				return err
			}
		}

		if in.PaymentKind == PaymentCredit {
			if err := tx.AdjustDebtorBalance(ctx, *in.DebtorID, in.Total); err != nil {
				return err
			}
		}

		return l.audit(ctx, tx, actorID, ActionSaleRegistered,
			fmt.Sprintf("sale %d registered: total %s, %s", saleID, in.Total, in.PaymentKind))
	})
	if err != nil {
		return 0, err
	}
	return saleID, nil
}

func (l *Ledger) Sale(ctx context.Context, id int64) (*Sale, error) {
	return l.store.GetSale(ctx, id)
}

func (l *Ledger) SaleItems(ctx context.Context, saleID int64) ([]SaleItem, error) {
	return l.store.ListSaleItems(ctx, saleID)
}

func (l *Ledger) SaleDetail(ctx context.Context, saleID int64) ([]SaleDetailLine, error) {
	return l.store.SaleDetail(ctx, saleID)
}

func (l *Ledger) SalesByRange(ctx context.Context, from, to time.Time) ([]SaleSummary, error) {
	return l.store.SalesByRange(ctx, from, to)
}

// SalesOfDay lists one day's sales, newest first.
func (l *Ledger) SalesOfDay(ctx context.Context, day time.Time) ([]SaleSummary, error) {
	return l.store.SalesOfDay(ctx, day)
}
