package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

func validateDebtorInput(in DebtorInput) error {
	if in.Name == "" {
		return rejectf(ErrInvalidLine, "debtor name is required")
	}
	return nil
}

func (l *Ledger) CreateDebtor(ctx context.Context, actorID int64, in DebtorInput) (int64, error) {
	if err := validateDebtorInput(in); err != nil {
		return 0, err
	}
	var id int64
	err := l.store.WithTx(ctx, func(tx Tx) error {
		var err error
		id, err = tx.InsertDebtor(ctx, Debtor{
			Name:    in.Name,
			Phone:   in.Phone,
			Address: in.Address,
			Notes:   in.Notes,
			Balance: decimal.Zero,
		})
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (l *Ledger) UpdateDebtor(ctx context.Context, actorID, id int64, in DebtorInput) error {
	if err := validateDebtorInput(in); err != nil {
		return err
	}
	return l.store.WithTx(ctx, func(tx Tx) error {
		current, err := tx.GetDebtor(ctx, id)
		if err != nil {
			return err
		}
		current.Name = in.Name
		current.Phone = in.Phone
		current.Address = in.Address
		current.Notes = in.Notes
		return tx.UpdateDebtor(ctx, *current)
	})
}

// DeleteDebtor removes a debtor record. Debtors carrying an outstanding
// balance cannot be deleted; the debt has to be settled or written off
// through payments first.
func (l *Ledger) DeleteDebtor(ctx context.Context, actorID, id int64) error {
	return l.store.WithTx(ctx, func(tx Tx) error {
		debtor, err := tx.GetDebtor(ctx, id)
		if err != nil {
			return err
		}
		if !debtor.Balance.IsZero() {
			return rejectf(ErrDebtorHasBalance,
				"debtor %q still owes %s", debtor.Name, debtor.Balance)
		}
		if err := tx.DeleteDebtor(ctx, id); err != nil {
			return err
		}
		return l.audit(ctx, tx, actorID, ActionDebtorDeleted,
			fmt.Sprintf("debtor %d (%s) deleted", id, debtor.Name))
	})
}

// RegisterPayment records a payment by a debtor against one of their
// credit sales. The amount is capped at the sale's remaining pending
// balance; both the sale's pending and the debtor's balance decrease by
// the same amount in the same transaction.
func (l *Ledger) RegisterPayment(ctx context.Context, actorID, debtorID, saleID int64, amount decimal.Decimal) (int64, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return 0, rejectf(ErrInvalidAmount, "payment amount must be positive, got %s", amount)
	}

	var paymentID int64
	err := l.store.WithTx(ctx, func(tx Tx) error {
		debtor, err := tx.GetDebtor(ctx, debtorID)
		if err != nil {
			return err
		}
		sale, err := tx.GetSale(ctx, saleID)
		if err != nil {
			return err
		}
		if sale.PaymentKind != PaymentCredit || sale.DebtorID == nil || *sale.DebtorID != debtorID {
			return rejectf(ErrSaleNotCredit,
				"sale %d is not a credit sale of debtor %d", saleID, debtorID)
		}
		if amount.GreaterThan(sale.Pending) {
			return rejectf(ErrPaymentExceedsPending,
				"payment %s exceeds pending %s on sale %d", amount, sale.Pending, saleID)
		}

		paymentID, err = tx.InsertPayment(ctx, Payment{
			DebtorID: debtorID,
			SaleID:   saleID,
			At:       l.now(),
			Amount:   amount,
		})
		if err != nil {
			return err
		}
		if err := tx.AdjustSalePending(ctx, saleID, amount.Neg()); err != nil {
			return err
		}
		if err := tx.AdjustDebtorBalance(ctx, debtorID, amount.Neg()); err != nil {
			return err
		}
		return l.audit(ctx, tx, actorID, ActionDebtorPayment,
			fmt.Sprintf("payment %s from debtor %d (%s) on sale %d", amount, debtorID, debtor.Name, saleID))
	})
	if err != nil {
		return 0, err
	}
	return paymentID, nil
}

func (l *Ledger) Debtor(ctx context.Context, id int64) (*Debtor, error) {
	return l.store.GetDebtor(ctx, id)
}

func (l *Ledger) ListDebtors(ctx context.Context) ([]Debtor, error) {
	return l.store.ListDebtors(ctx)
}

// DebtorStatement collects a debtor's credit history: sales still
// pending, sales fully settled, and the payments taken against each.
type DebtorStatement struct {
	Debtor  Debtor       `json:"debtor"`
	Pending []DebtorSale `json:"pending"`
	Settled []DebtorSale `json:"settled"`
}

func (l *Ledger) DebtorStatement(ctx context.Context, id int64) (*DebtorStatement, error) {
	debtor, err := l.store.GetDebtor(ctx, id)
	if err != nil {
		return nil, err
	}
	pending, err := l.store.PendingSalesOfDebtor(ctx, id)
	if err != nil {
		return nil, err
	}
	settled, err := l.store.SettledSalesOfDebtor(ctx, id)
	if err != nil {
		return nil, err
	}
	return &DebtorStatement{Debtor: *debtor, Pending: pending, Settled: settled}, nil
}

func (l *Ledger) CreditSalesOfDebtor(ctx context.Context, id int64) ([]DebtorSale, error) {
	return l.store.CreditSalesOfDebtor(ctx, id)
}

func (l *Ledger) PaymentsBySale(ctx context.Context, saleID int64) ([]Payment, error) {
	return l.store.PaymentsBySale(ctx, saleID)
}
