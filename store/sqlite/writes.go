package sqlite

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/verzalex4-ai/sistema-ventas/ledger"
)

// Write primitives, defined on txStore only: there is no way to mutate
// state outside Store.WithTx.

// =============================================================================
// PRODUCTS
// =============================================================================

func (t *txStore) InsertProduct(ctx context.Context, p ledger.Product) (int64, error) {
	res, err := t.db.ExecContext(ctx, `
		INSERT INTO products (code, name, description, cost, price, stock, active, supplier_id, category_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Code, p.Name, p.Description, p.Cost.String(), p.Price.String(),
		p.Stock, p.Active, nullID(p.SupplierID), nullID(p.CategoryID))
	if err != nil {
		return 0, mapConstraintErr(err)
	}
	return res.LastInsertId()
}

func (t *txStore) UpdateProduct(ctx context.Context, p ledger.Product) error {
	res, err := t.db.ExecContext(ctx, `
		UPDATE products SET code = ?, name = ?, description = ?, cost = ?, price = ?,
		       stock = ?, active = ?, supplier_id = ?, category_id = ?
		WHERE id = ?`,
		p.Code, p.Name, p.Description, p.Cost.String(), p.Price.String(),
		p.Stock, p.Active, nullID(p.SupplierID), nullID(p.CategoryID), p.ID)
	if err != nil {
		return mapConstraintErr(err)
	}
	return requireRow(res, ledger.ErrProductNotFound)
}

func (t *txStore) SetProductActive(ctx context.Context, id int64, active bool) error {
	res, err := t.db.ExecContext(ctx,
		"UPDATE products SET active = ? WHERE id = ?", active, id)
	if err != nil {
		return err
	}
	return requireRow(res, ledger.ErrProductNotFound)
}

func (t *txStore) AdjustStock(ctx context.Context, productID int64, delta int64) error {
	res, err := t.db.ExecContext(ctx,
		"UPDATE products SET stock = stock + ? WHERE id = ?", delta, productID)
	if err != nil {
		return err
	}
	return requireRow(res, ledger.ErrProductNotFound)
}

func (t *txStore) InsertCategory(ctx context.Context, name string) (int64, error) {
	res, err := t.db.ExecContext(ctx, "INSERT INTO categories (name) VALUES (?)", name)
	if err != nil {
		return 0, mapConstraintErr(err)
	}
	return res.LastInsertId()
}

func (t *txStore) DeleteCategory(ctx context.Context, id int64) error {
	res, err := t.db.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id)
	if err != nil {
		return mapConstraintErr(err)
	}
	return requireRow(res, ledger.ErrCategoryNotFound)
}

// =============================================================================
// SALES
// =============================================================================

func (t *txStore) InsertSale(ctx context.Context, s ledger.Sale) (int64, error) {
	res, err := t.db.ExecContext(ctx, `
		INSERT INTO sales (user_id, created_at, total, payment_kind, debtor_id, pending)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.UserID, fmtTime(s.At), s.Total.String(), s.PaymentKind,
		nullID(s.DebtorID), s.Pending.String())
	if err != nil {
		return 0, mapConstraintErr(err)
	}
	return res.LastInsertId()
}

func (t *txStore) InsertSaleItem(ctx context.Context, item ledger.SaleItem) (int64, error) {
	res, err := t.db.ExecContext(ctx, `
		INSERT INTO sale_items (sale_id, product_id, quantity, unit_price)
		VALUES (?, ?, ?, ?)`,
		item.SaleID, item.ProductID, item.Quantity, item.UnitPrice.String())
	if err != nil {
		return 0, mapConstraintErr(err)
	}
	return res.LastInsertId()
}

// AdjustSalePending reads, adds, and writes back so that the stored TEXT
// stays an exact decimal. The CHECK constraint on pending rejects going
// below zero or above the sale total.
func (t *txStore) AdjustSalePending(ctx context.Context, saleID int64, delta decimal.Decimal) error {
	sale, err := t.GetSale(ctx, saleID)
	if err != nil {
		return err
	}
	_, err = t.db.ExecContext(ctx,
		"UPDATE sales SET pending = ? WHERE id = ?",
		sale.Pending.Add(delta).String(), saleID)
	return mapConstraintErr(err)
}

// =============================================================================
// DEBTORS
// =============================================================================

func (t *txStore) InsertDebtor(ctx context.Context, d ledger.Debtor) (int64, error) {
	res, err := t.db.ExecContext(ctx, `
		INSERT INTO debtors (name, phone, address, notes, balance)
		VALUES (?, ?, ?, ?, ?)`,
		d.Name, d.Phone, d.Address, d.Notes, d.Balance.String())
	if err != nil {
		return 0, mapConstraintErr(err)
	}
	return res.LastInsertId()
}

func (t *txStore) UpdateDebtor(ctx context.Context, d ledger.Debtor) error {
	res, err := t.db.ExecContext(ctx, `
		UPDATE debtors SET name = ?, phone = ?, address = ?, notes = ? WHERE id = ?`,
		d.Name, d.Phone, d.Address, d.Notes, d.ID)
	if err != nil {
		return mapConstraintErr(err)
	}
	return requireRow(res, ledger.ErrDebtorNotFound)
}

func (t *txStore) DeleteDebtor(ctx context.Context, id int64) error {
	res, err := t.db.ExecContext(ctx, "DELETE FROM debtors WHERE id = ?", id)
	if err != nil {
		return mapConstraintErr(err)
	}
	return requireRow(res, ledger.ErrDebtorNotFound)
}

func (t *txStore) AdjustDebtorBalance(ctx context.Context, debtorID int64, delta decimal.Decimal) error {
	debtor, err := t.GetDebtor(ctx, debtorID)
	if err != nil {
		return err
	}
	_, err = t.db.ExecContext(ctx,
		"UPDATE debtors SET balance = ? WHERE id = ?",
		debtor.Balance.Add(delta).String(), debtorID)
	return mapConstraintErr(err)
}

func (t *txStore) InsertPayment(ctx context.Context, p ledger.Payment) (int64, error) {
	res, err := t.db.ExecContext(ctx, `
		INSERT INTO debtor_payments (debtor_id, sale_id, paid_at, amount)
		VALUES (?, ?, ?, ?)`,
		p.DebtorID, p.SaleID, fmtTime(p.At), p.Amount.String())
	if err != nil {
		return 0, mapConstraintErr(err)
	}
	return res.LastInsertId()
}

// =============================================================================
// SUPPLIERS AND PURCHASES
// =============================================================================

func (t *txStore) InsertSupplier(ctx context.Context, s ledger.Supplier) (int64, error) {
	res, err := t.db.ExecContext(ctx, `
		INSERT INTO suppliers (name, contact, phone, email, address, active)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.Name, s.Contact, s.Phone, s.Email, s.Address, s.Active)
	if err != nil {
		return 0, mapConstraintErr(err)
	}
	return res.LastInsertId()
}

func (t *txStore) UpdateSupplier(ctx context.Context, s ledger.Supplier) error {
	res, err := t.db.ExecContext(ctx, `
		UPDATE suppliers SET name = ?, contact = ?, phone = ?, email = ?, address = ?
		WHERE id = ?`,
		s.Name, s.Contact, s.Phone, s.Email, s.Address, s.ID)
	if err != nil {
		return mapConstraintErr(err)
	}
	return requireRow(res, ledger.ErrSupplierNotFound)
}

func (t *txStore) SetSupplierActive(ctx context.Context, id int64, active bool) error {
	res, err := t.db.ExecContext(ctx,
		"UPDATE suppliers SET active = ? WHERE id = ?", active, id)
	if err != nil {
		return err
	}
	return requireRow(res, ledger.ErrSupplierNotFound)
}

func (t *txStore) DeleteSupplier(ctx context.Context, id int64) error {
	res, err := t.db.ExecContext(ctx, "DELETE FROM suppliers WHERE id = ?", id)
	if err != nil {
		return mapConstraintErr(err)
	}
	return requireRow(res, ledger.ErrSupplierNotFound)
}

func (t *txStore) CountProductsOfSupplier(ctx context.Context, supplierID int64) (int64, error) {
	var count int64
	err := t.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM products WHERE supplier_id = ?", supplierID).Scan(&count)
	return count, err
}

func (t *txStore) InsertPurchase(ctx context.Context, p ledger.Purchase) (int64, error) {
	res, err := t.db.ExecContext(ctx, `
		INSERT INTO purchases (supplier_id, received_at, total_cost)
		VALUES (?, ?, ?)`,
		p.SupplierID, fmtTime(p.At), p.TotalCost.String())
	if err != nil {
		return 0, mapConstraintErr(err)
	}
	return res.LastInsertId()
}

func (t *txStore) InsertPurchaseItem(ctx context.Context, item ledger.PurchaseItem) (int64, error) {
	res, err := t.db.ExecContext(ctx, `
		INSERT INTO purchase_items (purchase_id, product_id, quantity, unit_cost)
		VALUES (?, ?, ?, ?)`,
		item.PurchaseID, item.ProductID, item.Quantity, item.UnitCost.String())
	if err != nil {
		return 0, mapConstraintErr(err)
	}
	return res.LastInsertId()
}

// =============================================================================
// RETURNS
// =============================================================================

func (t *txStore) InsertReturn(ctx context.Context, r ledger.Return) (int64, error) {
	res, err := t.db.ExecContext(ctx, `
		INSERT INTO returns (sale_id, user_id, created_at, total, kind, reason)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.SaleID, r.UserID, fmtTime(r.At), r.Total.String(), r.Kind, r.Reason)
	if err != nil {
		return 0, mapConstraintErr(err)
	}
	return res.LastInsertId()
}

func (t *txStore) InsertReturnItem(ctx context.Context, item ledger.ReturnItem) (int64, error) {
	res, err := t.db.ExecContext(ctx, `
		INSERT INTO return_items (return_id, product_id, quantity, unit_price)
		VALUES (?, ?, ?, ?)`,
		item.ReturnID, item.ProductID, item.Quantity, item.UnitPrice.String())
	if err != nil {
		return 0, mapConstraintErr(err)
	}
	return res.LastInsertId()
}

func (t *txStore) ReturnedQtyBySale(ctx context.Context, saleID int64) (map[int64]int64, error) {
	rows, err := t.db.QueryContext(ctx, `
		SELECT ri.product_id, SUM(ri.quantity)
		FROM return_items ri
		JOIN returns r ON r.id = ri.return_id
		WHERE r.sale_id = ?
		GROUP BY ri.product_id`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	qty := map[int64]int64{}
	for rows.Next() {
		var productID, n int64
		if err := rows.Scan(&productID, &n); err != nil {
			return nil, err
		}
		qty[productID] = n
	}
	return qty, rows.Err()
}

func (t *txStore) RefundedTotalBySale(ctx context.Context, saleID int64) (decimal.Decimal, error) {
	rows, err := t.db.QueryContext(ctx,
		"SELECT total FROM returns WHERE sale_id = ?", saleID)
	if err != nil {
		return decimal.Zero, err
	}
	defer rows.Close()

	sum := decimal.Zero
	for rows.Next() {
		var total string
		if err := rows.Scan(&total); err != nil {
			return decimal.Zero, err
		}
		sum = sum.Add(parseDec(total))
	}
	return sum, rows.Err()
}

// =============================================================================
// CLOSINGS, AUDIT, USERS
// =============================================================================

func (t *txStore) InsertClosing(ctx context.Context, c ledger.CashClosing) (int64, error) {
	res, err := t.db.ExecContext(ctx, `
		INSERT INTO cash_closings (user_id, closed_at, total_sales, cash_total, counted, variance, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.UserID, fmtTime(c.At), c.TotalSales.String(), c.CashTotal.String(),
		c.Counted.String(), c.Variance.String(), c.Notes)
	if err != nil {
		return 0, mapConstraintErr(err)
	}
	return res.LastInsertId()
}

func (t *txStore) AppendAudit(ctx context.Context, e ledger.AuditEntry) error {
	_, err := t.db.ExecContext(ctx, `
		INSERT INTO audit_log (user_id, created_at, action, actor_role, detail)
		VALUES (?, ?, ?, ?, ?)`,
		e.UserID, fmtTime(e.At), e.Action, e.ActorRole, e.Detail)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", mapConstraintErr(err))
	}
	return nil
}

func (t *txStore) InsertUser(ctx context.Context, u ledger.User) (int64, error) {
	res, err := t.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, role, active, created_at)
		VALUES (?, ?, ?, 1, ?)`,
		u.Username, u.PasswordHash, u.Role, fmtTime(timeOrNow(u.CreatedAt)))
	if err != nil {
		return 0, mapConstraintErr(err)
	}
	return res.LastInsertId()
}

func (t *txStore) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := t.db.ExecContext(ctx,
		"UPDATE users SET password_hash = ? WHERE id = ?", passwordHash, id)
	if err != nil {
		return err
	}
	return requireRow(res, ledger.ErrUserNotFound)
}

func (t *txStore) SetUserActive(ctx context.Context, id int64, active bool) error {
	res, err := t.db.ExecContext(ctx,
		"UPDATE users SET active = ? WHERE id = ?", active, id)
	if err != nil {
		return err
	}
	return requireRow(res, ledger.ErrUserNotFound)
}

func (t *txStore) DeleteUser(ctx context.Context, id int64) error {
	res, err := t.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return mapConstraintErr(err)
	}
	return requireRow(res, ledger.ErrUserNotFound)
}
