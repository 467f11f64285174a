package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// RegisterPurchase records goods received from a supplier and raises
// stock for every line. Lines are keyed by product code and priced at
// the unit cost paid, which may differ from the product's stored cost.
func (l *Ledger) RegisterPurchase(ctx context.Context, actorID int64, in PurchaseInput) (int64, error) {
	if len(in.Lines) == 0 {
		return 0, rejectf(ErrEmptyLines, "purchase has no items")
	}

	codes := make([]string, 0, len(in.Lines))
	total := decimal.Zero
	for code, line := range in.Lines {
		if line.Quantity <= 0 {
			return 0, rejectf(ErrInvalidLine, "quantity for %q must be positive", code)
		}
		if line.UnitCost.IsNegative() {
			return 0, rejectf(ErrInvalidLine, "unit cost for %q cannot be negative", code)
		}
		codes = append(codes, code)
		total = total.Add(line.UnitCost.Mul(decimal.NewFromInt(line.Quantity)))
	}
	if !total.Equal(in.TotalCost) {
		return 0, rejectf(ErrLineTotalMismatch,
			"line costs sum to %s but purchase total is %s", total, in.TotalCost)
	}
	sort.Strings(codes)

	var purchaseID int64
	err := l.store.WithTx(ctx, func(tx Tx) error {
		supplier, err := tx.GetSupplier(ctx, in.SupplierID)
		if err != nil {
			return err
		}

		purchaseID, err = tx.InsertPurchase(ctx, Purchase{
			SupplierID: in.SupplierID,
			At:         l.now(),
			TotalCost:  total,
		})
		if err != nil {
			return err
		}

		for _, code := range codes {
			line := in.Lines[code]
			product, err := tx.GetProductByCode(ctx, code)
			if err != nil {
				return err
			}
			if _, err := tx.InsertPurchaseItem(ctx, PurchaseItem{
				PurchaseID: purchaseID,
				ProductID:  product.ID,
				Quantity:   line.Quantity,
				UnitCost:   line.UnitCost,
			}); err != nil {
				return err
			}
			if err := tx.AdjustStock(ctx, product.ID, line.Quantity); err != nil {
				return err
			}
		}

		return l.audit(ctx, tx, actorID, ActionPurchaseRegistered,
			fmt.Sprintf("purchase %d from %s: total %s, %d products",
				purchaseID, supplier.Name, total, len(codes)))
	})
	if err != nil {
		return 0, err
	}
	return purchaseID, nil
}

func (l *Ledger) Purchase(ctx context.Context, id int64) (*Purchase, error) {
	return l.store.GetPurchase(ctx, id)
}

func (l *Ledger) PurchaseDetail(ctx context.Context, id int64) ([]PurchaseDetailLine, error) {
	return l.store.PurchaseDetail(ctx, id)
}

func (l *Ledger) PurchasesByRange(ctx context.Context, from, to time.Time) ([]PurchaseSummary, error) {
	return l.store.PurchasesByRange(ctx, from, to)
}

// =====================================================================
// Suppliers
// =====================================================================

func validateSupplierInput(in SupplierInput) error {
	if in.Name == "" {
		return rejectf(ErrInvalidLine, "supplier name is required")
	}
	return nil
}

func (l *Ledger) CreateSupplier(ctx context.Context, actorID int64, in SupplierInput) (int64, error) {
	if err := validateSupplierInput(in); err != nil {
		return 0, err
	}
	var id int64
	err := l.store.WithTx(ctx, func(tx Tx) error {
		var err error
		id, err = tx.InsertSupplier(ctx, Supplier{
			Name:    in.Name,
			Contact: in.Contact,
			Phone:   in.Phone,
			Email:   in.Email,
			Address: in.Address,
			Active:  true,
		})
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (l *Ledger) UpdateSupplier(ctx context.Context, actorID, id int64, in SupplierInput) error {
	if err := validateSupplierInput(in); err != nil {
		return err
	}
	return l.store.WithTx(ctx, func(tx Tx) error {
		current, err := tx.GetSupplier(ctx, id)
		if err != nil {
			return err
		}
		current.Name = in.Name
		current.Contact = in.Contact
		current.Phone = in.Phone
		current.Email = in.Email
		current.Address = in.Address
		return tx.UpdateSupplier(ctx, *current)
	})
}

// DeactivateSupplier hides a supplier from the active list while keeping
// its purchase history intact.
func (l *Ledger) DeactivateSupplier(ctx context.Context, actorID, id int64) error {
	return l.store.WithTx(ctx, func(tx Tx) error {
		if _, err := tx.GetSupplier(ctx, id); err != nil {
			return err
		}
		return tx.SetSupplierActive(ctx, id, false)
	})
}

// DeleteSupplier hard-deletes a supplier. Suppliers referenced by any
// product are protected and must be deactivated instead.
func (l *Ledger) DeleteSupplier(ctx context.Context, actorID, id int64) error {
	return l.store.WithTx(ctx, func(tx Tx) error {
		supplier, err := tx.GetSupplier(ctx, id)
		if err != nil {
			return err
		}
		n, err := tx.CountProductsOfSupplier(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return rejectf(ErrSupplierHasProducts,
				"supplier %q is referenced by %d products", supplier.Name, n)
		}
		return tx.DeleteSupplier(ctx, id)
	})
}

func (l *Ledger) Supplier(ctx context.Context, id int64) (*Supplier, error) {
	return l.store.GetSupplier(ctx, id)
}

func (l *Ledger) ListSuppliers(ctx context.Context, includeInactive bool) ([]Supplier, error) {
	return l.store.ListSuppliers(ctx, includeInactive)
}
