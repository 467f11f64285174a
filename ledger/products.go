package ledger

import (
	"context"
	"fmt"
	"strings"
)

// validateProductInput covers the range checks the schema also enforces, so
// bad input is rejected with a message instead of a constraint error.
func validateProductInput(in ProductInput) error {
	if strings.TrimSpace(in.Code) == "" || strings.TrimSpace(in.Name) == "" {
		return rejectf(ErrInvalidLine, "product code and name are required")
	}
	if in.Cost.IsNegative() || in.Price.IsNegative() {
		return rejectf(ErrInvalidLine, "cost and price must not be negative")
	}
	return nil
}

// CreateProduct inserts an active product and returns its identity.
func (l *Ledger) CreateProduct(ctx context.Context, actorID int64, in ProductInput) (int64, error) {
	if err := validateProductInput(in); err != nil {
		return 0, err
	}

	var id int64
	err := l.store.WithTx(ctx, func(tx Tx) error {
		var err error
		id, err = tx.InsertProduct(ctx, Product{
			Code:        strings.TrimSpace(in.Code),
			Name:        strings.TrimSpace(in.Name),
			Description: in.Description,
			Cost:        in.Cost,
			Price:       in.Price,
			Stock:       in.Stock,
			Active:      true,
			SupplierID:  in.SupplierID,
			CategoryID:  in.CategoryID,
		})
		if err != nil {
			return err
		}
		return l.audit(ctx, tx, actorID, ActionProductCreated,
			fmt.Sprintf("product '%s' (%s) created", strings.TrimSpace(in.Name), strings.TrimSpace(in.Code)))
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateProduct replaces every editable field, including a direct stock edit.
func (l *Ledger) UpdateProduct(ctx context.Context, actorID, id int64, in ProductInput) error {
	if err := validateProductInput(in); err != nil {
		return err
	}

	return l.store.WithTx(ctx, func(tx Tx) error {
		current, err := tx.GetProduct(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.UpdateProduct(ctx, Product{
			ID:          id,
			Code:        strings.TrimSpace(in.Code),
			Name:        strings.TrimSpace(in.Name),
			Description: in.Description,
			Cost:        in.Cost,
			Price:       in.Price,
			Stock:       in.Stock,
			Active:      current.Active,
			SupplierID:  in.SupplierID,
			CategoryID:  in.CategoryID,
		}); err != nil {
			return err
		}
		return l.audit(ctx, tx, actorID, ActionProductUpdated,
			fmt.Sprintf("product %d ('%s') updated, name now '%s'", id, current.Name, strings.TrimSpace(in.Name)))
	})
}

// DeactivateProduct soft-deletes: the product disappears from active
// listings but stays referenced by historical sales and purchases.
func (l *Ledger) DeactivateProduct(ctx context.Context, actorID, id int64) error {
	return l.store.WithTx(ctx, func(tx Tx) error {
		p, err := tx.GetProduct(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.SetProductActive(ctx, id, false); err != nil {
			return err
		}
		return l.audit(ctx, tx, actorID, ActionProductDeactivated,
			fmt.Sprintf("product %d ('%s') deactivated", id, p.Name))
	})
}

func (l *Ledger) Product(ctx context.Context, id int64) (*Product, error) {
	return l.store.GetProduct(ctx, id)
}

func (l *Ledger) ProductByCode(ctx context.Context, code string) (*Product, error) {
	return l.store.GetProductByCode(ctx, code)
}

// ListProducts returns active products matching the filter.
func (l *Ledger) ListProducts(ctx context.Context, f ProductFilter) ([]Product, error) {
	f.Text = strings.TrimSpace(f.Text)
	return l.store.ListProducts(ctx, f)
}

// Categories are plain lookup data; deletion fails while products point at
// one, surfaced as a constraint error by the store.

func (l *Ledger) ListCategories(ctx context.Context) ([]Category, error) {
	return l.store.ListCategories(ctx)
}

func (l *Ledger) CreateCategory(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, rejectf(ErrInvalidLine, "category name is required")
	}
	var id int64
	err := l.store.WithTx(ctx, func(tx Tx) error {
		var err error
		id, err = tx.InsertCategory(ctx, name)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (l *Ledger) DeleteCategory(ctx context.Context, id int64) error {
	return l.store.WithTx(ctx, func(tx Tx) error {
		return tx.DeleteCategory(ctx, id)
	})
}
