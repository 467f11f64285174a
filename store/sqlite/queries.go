package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/verzalex4-ai/sistema-ventas/ledger"
)

// queries implements ledger.Queries over either the database handle or an
// open transaction.
type queries struct {
	db dbtx
}

// =============================================================================
// PRODUCTS
// =============================================================================

const productCols = "id, code, name, description, cost, price, stock, active, supplier_id, category_id"

func scanProduct(row scanner) (*ledger.Product, error) {
	var (
		p           ledger.Product
		cost, price string
		supplierID  sql.NullInt64
		categoryID  sql.NullInt64
	)
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Description, &cost, &price,
		&p.Stock, &p.Active, &supplierID, &categoryID)
	if err != nil {
		return nil, err
	}
	p.Cost = parseDec(cost)
	p.Price = parseDec(price)
	p.SupplierID = idPtr(supplierID)
	p.CategoryID = idPtr(categoryID)
	return &p, nil
}

func (q queries) GetProduct(ctx context.Context, id int64) (*ledger.Product, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+productCols+" FROM products WHERE id = ?", id)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrProductNotFound
	}
	return p, err
}

func (q queries) GetProductByCode(ctx context.Context, code string) (*ledger.Product, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+productCols+" FROM products WHERE code = ?", code)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrProductNotFound
	}
	return p, err
}

// ListProducts returns active products, optionally narrowed by a text
// match (code prefix or name substring) and category/supplier.
func (q queries) ListProducts(ctx context.Context, f ledger.ProductFilter) ([]ledger.Product, error) {
	query := "SELECT " + productCols + " FROM products WHERE active = 1"
	var args []any
	if f.Text != "" {
		query += " AND (code LIKE ? OR name LIKE ?)"
		args = append(args, f.Text+"%", "%"+f.Text+"%")
	}
	if f.CategoryID != nil {
		query += " AND category_id = ?"
		args = append(args, *f.CategoryID)
	}
	if f.SupplierID != nil {
		query += " AND supplier_id = ?"
		args = append(args, *f.SupplierID)
	}
	query += " ORDER BY name"

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []ledger.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (q queries) ListCategories(ctx context.Context) ([]ledger.Category, error) {
	rows, err := q.db.QueryContext(ctx, "SELECT id, name FROM categories ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []ledger.Category
	for rows.Next() {
		var c ledger.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// =============================================================================
// SALES
// =============================================================================

func scanSale(row scanner) (*ledger.Sale, error) {
	var (
		s              ledger.Sale
		at             string
		total, pending string
		debtorID       sql.NullInt64
	)
	err := row.Scan(&s.ID, &s.UserID, &at, &total, &s.PaymentKind, &debtorID, &pending)
	if err != nil {
		return nil, err
	}
	s.At = parseTime(at)
	s.Total = parseDec(total)
	s.Pending = parseDec(pending)
	s.DebtorID = idPtr(debtorID)
	return &s, nil
}

func (q queries) GetSale(ctx context.Context, id int64) (*ledger.Sale, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT id, user_id, created_at, total, payment_kind, debtor_id, pending FROM sales WHERE id = ?", id)
	s, err := scanSale(row)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrSaleNotFound
	}
	return s, err
}

func (q queries) ListSaleItems(ctx context.Context, saleID int64) ([]ledger.SaleItem, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT id, sale_id, product_id, quantity, unit_price FROM sale_items WHERE sale_id = ? ORDER BY id",
		saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ledger.SaleItem
	for rows.Next() {
		var (
			it    ledger.SaleItem
			price string
		)
		if err := rows.Scan(&it.ID, &it.SaleID, &it.ProductID, &it.Quantity, &price); err != nil {
			return nil, err
		}
		it.UnitPrice = parseDec(price)
		items = append(items, it)
	}
	return items, rows.Err()
}

func (q queries) SaleDetail(ctx context.Context, saleID int64) ([]ledger.SaleDetailLine, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT p.name, si.quantity, si.unit_price
		FROM sale_items si
		JOIN products p ON p.id = si.product_id
		WHERE si.sale_id = ?
		ORDER BY si.id`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []ledger.SaleDetailLine
	for rows.Next() {
		var (
			l     ledger.SaleDetailLine
			price string
		)
		if err := rows.Scan(&l.ProductName, &l.Quantity, &price); err != nil {
			return nil, err
		}
		l.UnitPrice = parseDec(price)
		l.Subtotal = l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (q queries) querySaleSummaries(ctx context.Context, query string, args ...any) ([]ledger.SaleSummary, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sales []ledger.SaleSummary
	for rows.Next() {
		var (
			s         ledger.SaleSummary
			at, total string
		)
		if err := rows.Scan(&s.ID, &at, &s.Cashier, &total, &s.PaymentKind); err != nil {
			return nil, err
		}
		s.At = parseTime(at)
		s.Total = parseDec(total)
		sales = append(sales, s)
	}
	return sales, rows.Err()
}

func (q queries) SalesByRange(ctx context.Context, from, to time.Time) ([]ledger.SaleSummary, error) {
	return q.querySaleSummaries(ctx, `
		SELECT s.id, s.created_at, COALESCE(u.username, ''), s.total, s.payment_kind
		FROM sales s
		LEFT JOIN users u ON u.id = s.user_id
		WHERE s.created_at >= ? AND s.created_at <= ?
		ORDER BY s.created_at DESC, s.id DESC`,
		fmtTime(from), fmtTime(to))
}

func (q queries) SalesOfDay(ctx context.Context, day time.Time) ([]ledger.SaleSummary, error) {
	return q.querySaleSummaries(ctx, `
		SELECT s.id, s.created_at, COALESCE(u.username, ''), s.total, s.payment_kind
		FROM sales s
		LEFT JOIN users u ON u.id = s.user_id
		WHERE DATE(s.created_at) = ?
		ORDER BY s.created_at DESC, s.id DESC`,
		day.UTC().Format("2006-01-02"))
}

// DayTotals sums an operator's sales for one day in exact decimals.
func (q queries) DayTotals(ctx context.Context, userID int64, day time.Time) (ledger.DayTotals, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT total, payment_kind FROM sales
		WHERE user_id = ? AND DATE(created_at) = ?`,
		userID, day.UTC().Format("2006-01-02"))
	if err != nil {
		return ledger.DayTotals{}, err
	}
	defer rows.Close()

	totals := ledger.DayTotals{TotalSales: decimal.Zero, CashTotal: decimal.Zero}
	for rows.Next() {
		var (
			total string
			kind  ledger.PaymentKind
		)
		if err := rows.Scan(&total, &kind); err != nil {
			return ledger.DayTotals{}, err
		}
		d := parseDec(total)
		totals.TotalSales = totals.TotalSales.Add(d)
		if kind == ledger.PaymentCash {
			totals.CashTotal = totals.CashTotal.Add(d)
		}
	}
	return totals, rows.Err()
}

// =============================================================================
// DEBTORS
// =============================================================================

func scanDebtor(row scanner) (*ledger.Debtor, error) {
	var (
		d       ledger.Debtor
		balance string
	)
	err := row.Scan(&d.ID, &d.Name, &d.Phone, &d.Address, &d.Notes, &balance)
	if err != nil {
		return nil, err
	}
	d.Balance = parseDec(balance)
	return &d, nil
}

func (q queries) GetDebtor(ctx context.Context, id int64) (*ledger.Debtor, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT id, name, phone, address, notes, balance FROM debtors WHERE id = ?", id)
	d, err := scanDebtor(row)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrDebtorNotFound
	}
	return d, err
}

func (q queries) ListDebtors(ctx context.Context) ([]ledger.Debtor, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT id, name, phone, address, notes, balance FROM debtors ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var debtors []ledger.Debtor
	for rows.Next() {
		d, err := scanDebtor(rows)
		if err != nil {
			return nil, err
		}
		debtors = append(debtors, *d)
	}
	return debtors, rows.Err()
}

func (q queries) queryDebtorSales(ctx context.Context, query string, args ...any) ([]ledger.DebtorSale, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sales []ledger.DebtorSale
	for rows.Next() {
		var (
			s                  ledger.DebtorSale
			at, total, pending string
		)
		if err := rows.Scan(&s.SaleID, &at, &total, &pending); err != nil {
			return nil, err
		}
		s.At = parseTime(at)
		s.Total = parseDec(total)
		s.Pending = parseDec(pending)
		sales = append(sales, s)
	}
	return sales, rows.Err()
}

func (q queries) CreditSalesOfDebtor(ctx context.Context, debtorID int64) ([]ledger.DebtorSale, error) {
	return q.queryDebtorSales(ctx, `
		SELECT id, created_at, total, pending FROM sales
		WHERE debtor_id = ? AND payment_kind = 'credit'
		ORDER BY created_at DESC, id DESC`, debtorID)
}

func (q queries) PendingSalesOfDebtor(ctx context.Context, debtorID int64) ([]ledger.DebtorSale, error) {
	return q.queryDebtorSales(ctx, `
		SELECT id, created_at, total, pending FROM sales
		WHERE debtor_id = ? AND payment_kind = 'credit' AND CAST(pending AS REAL) > 0
		ORDER BY created_at ASC, id ASC`, debtorID)
}

func (q queries) SettledSalesOfDebtor(ctx context.Context, debtorID int64) ([]ledger.DebtorSale, error) {
	return q.queryDebtorSales(ctx, `
		SELECT id, created_at, total, pending FROM sales
		WHERE debtor_id = ? AND payment_kind = 'credit' AND CAST(pending AS REAL) = 0
		ORDER BY created_at DESC, id DESC`, debtorID)
}

func (q queries) PaymentsBySale(ctx context.Context, saleID int64) ([]ledger.Payment, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, debtor_id, sale_id, paid_at, amount FROM debtor_payments
		WHERE sale_id = ? ORDER BY id`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []ledger.Payment
	for rows.Next() {
		var (
			p          ledger.Payment
			at, amount string
			sid        sql.NullInt64
		)
		if err := rows.Scan(&p.ID, &p.DebtorID, &sid, &at, &amount); err != nil {
			return nil, err
		}
		p.SaleID = sid.Int64
		p.At = parseTime(at)
		p.Amount = parseDec(amount)
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// =============================================================================
// SUPPLIERS AND PURCHASES
// =============================================================================

func scanSupplier(row scanner) (*ledger.Supplier, error) {
	var s ledger.Supplier
	err := row.Scan(&s.ID, &s.Name, &s.Contact, &s.Phone, &s.Email, &s.Address, &s.Active)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (q queries) GetSupplier(ctx context.Context, id int64) (*ledger.Supplier, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT id, name, contact, phone, email, address, active FROM suppliers WHERE id = ?", id)
	s, err := scanSupplier(row)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrSupplierNotFound
	}
	return s, err
}

func (q queries) ListSuppliers(ctx context.Context, includeInactive bool) ([]ledger.Supplier, error) {
	query := "SELECT id, name, contact, phone, email, address, active FROM suppliers"
	if !includeInactive {
		query += " WHERE active = 1"
	}
	query += " ORDER BY name"

	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suppliers []ledger.Supplier
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, err
		}
		suppliers = append(suppliers, *s)
	}
	return suppliers, rows.Err()
}

func (q queries) GetPurchase(ctx context.Context, id int64) (*ledger.Purchase, error) {
	var (
		p         ledger.Purchase
		at, total string
	)
	err := q.db.QueryRowContext(ctx,
		"SELECT id, supplier_id, received_at, total_cost FROM purchases WHERE id = ?", id).
		Scan(&p.ID, &p.SupplierID, &at, &total)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrPurchaseNotFound
	}
	if err != nil {
		return nil, err
	}
	p.At = parseTime(at)
	p.TotalCost = parseDec(total)
	return &p, nil
}

func (q queries) PurchaseDetail(ctx context.Context, purchaseID int64) ([]ledger.PurchaseDetailLine, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT p.name, pi.quantity, pi.unit_cost
		FROM purchase_items pi
		JOIN products p ON p.id = pi.product_id
		WHERE pi.purchase_id = ?
		ORDER BY pi.id`, purchaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []ledger.PurchaseDetailLine
	for rows.Next() {
		var (
			l    ledger.PurchaseDetailLine
			cost string
		)
		if err := rows.Scan(&l.ProductName, &l.Quantity, &cost); err != nil {
			return nil, err
		}
		l.UnitCost = parseDec(cost)
		l.Subtotal = l.UnitCost.Mul(decimal.NewFromInt(l.Quantity))
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (q queries) PurchasesByRange(ctx context.Context, from, to time.Time) ([]ledger.PurchaseSummary, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT p.id, p.received_at, COALESCE(s.name, ''), p.total_cost
		FROM purchases p
		LEFT JOIN suppliers s ON s.id = p.supplier_id
		WHERE p.received_at >= ? AND p.received_at <= ?
		ORDER BY p.received_at DESC, p.id DESC`,
		fmtTime(from), fmtTime(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var purchases []ledger.PurchaseSummary
	for rows.Next() {
		var (
			p         ledger.PurchaseSummary
			at, total string
		)
		if err := rows.Scan(&p.ID, &at, &p.SupplierName, &total); err != nil {
			return nil, err
		}
		p.At = parseTime(at)
		p.TotalCost = parseDec(total)
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}

// =============================================================================
// RETURNS
// =============================================================================

func scanReturn(row scanner) (*ledger.Return, error) {
	var (
		r         ledger.Return
		at, total string
	)
	err := row.Scan(&r.ID, &r.SaleID, &r.UserID, &at, &total, &r.Kind, &r.Reason)
	if err != nil {
		return nil, err
	}
	r.At = parseTime(at)
	r.Total = parseDec(total)
	return &r, nil
}

func (q queries) GetReturn(ctx context.Context, id int64) (*ledger.Return, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT id, sale_id, user_id, created_at, total, kind, reason FROM returns WHERE id = ?", id)
	r, err := scanReturn(row)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrReturnNotFound
	}
	return r, err
}

func (q queries) ListReturnItems(ctx context.Context, returnID int64) ([]ledger.ReturnItem, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, return_id, product_id, quantity, unit_price FROM return_items
		WHERE return_id = ? ORDER BY id`, returnID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ledger.ReturnItem
	for rows.Next() {
		var (
			it    ledger.ReturnItem
			price string
		)
		if err := rows.Scan(&it.ID, &it.ReturnID, &it.ProductID, &it.Quantity, &price); err != nil {
			return nil, err
		}
		it.UnitPrice = parseDec(price)
		items = append(items, it)
	}
	return items, rows.Err()
}

func (q queries) queryReturns(ctx context.Context, query string, args ...any) ([]ledger.Return, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var returns []ledger.Return
	for rows.Next() {
		r, err := scanReturn(rows)
		if err != nil {
			return nil, err
		}
		returns = append(returns, *r)
	}
	return returns, rows.Err()
}

func (q queries) ReturnsBySale(ctx context.Context, saleID int64) ([]ledger.Return, error) {
	return q.queryReturns(ctx, `
		SELECT id, sale_id, user_id, created_at, total, kind, reason FROM returns
		WHERE sale_id = ? ORDER BY id`, saleID)
}

func (q queries) ReturnsByRange(ctx context.Context, from, to time.Time) ([]ledger.Return, error) {
	return q.queryReturns(ctx, `
		SELECT id, sale_id, user_id, created_at, total, kind, reason FROM returns
		WHERE created_at >= ? AND created_at <= ?
		ORDER BY created_at DESC, id DESC`,
		fmtTime(from), fmtTime(to))
}

func (q queries) ReturnStatsByRange(ctx context.Context, from, to time.Time) (ledger.ReturnStats, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT total, kind FROM returns
		WHERE created_at >= ? AND created_at <= ?`,
		fmtTime(from), fmtTime(to))
	if err != nil {
		return ledger.ReturnStats{}, err
	}
	defer rows.Close()

	stats := ledger.ReturnStats{Refunded: decimal.Zero}
	for rows.Next() {
		var (
			total string
			kind  ledger.ReturnKind
		)
		if err := rows.Scan(&total, &kind); err != nil {
			return ledger.ReturnStats{}, err
		}
		stats.Count++
		stats.Refunded = stats.Refunded.Add(parseDec(total))
		if kind == ledger.ReturnFull {
			stats.FullCount++
		} else {
			stats.PartialCount++
		}
	}
	return stats, rows.Err()
}

// =============================================================================
// CLOSINGS
// =============================================================================

func (q queries) GetClosing(ctx context.Context, id int64) (*ledger.CashClosing, error) {
	var (
		c                                        ledger.CashClosing
		at                                       string
		totalSales, cashTotal, counted, variance string
	)
	err := q.db.QueryRowContext(ctx, `
		SELECT c.id, c.user_id, c.closed_at, c.total_sales, c.cash_total, c.counted,
		       c.variance, c.notes, COALESCE(u.username, '')
		FROM cash_closings c
		LEFT JOIN users u ON u.id = c.user_id
		WHERE c.id = ?`, id).
		Scan(&c.ID, &c.UserID, &at, &totalSales, &cashTotal, &counted,
			&variance, &c.Notes, &c.OperatorName)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrClosingNotFound
	}
	if err != nil {
		return nil, err
	}
	c.At = parseTime(at)
	c.TotalSales = parseDec(totalSales)
	c.CashTotal = parseDec(cashTotal)
	c.Counted = parseDec(counted)
	c.Variance = parseDec(variance)
	return &c, nil
}

func (q queries) queryClosings(ctx context.Context, query string, args ...any) ([]ledger.CashClosing, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var closings []ledger.CashClosing
	for rows.Next() {
		var (
			c                                        ledger.CashClosing
			at                                       string
			totalSales, cashTotal, counted, variance string
		)
		if err := rows.Scan(&c.ID, &c.UserID, &at, &totalSales, &cashTotal,
			&counted, &variance, &c.Notes); err != nil {
			return nil, err
		}
		c.At = parseTime(at)
		c.TotalSales = parseDec(totalSales)
		c.CashTotal = parseDec(cashTotal)
		c.Counted = parseDec(counted)
		c.Variance = parseDec(variance)
		closings = append(closings, c)
	}
	return closings, rows.Err()
}

func (q queries) ClosingsByOperator(ctx context.Context, userID int64) ([]ledger.CashClosing, error) {
	return q.queryClosings(ctx, `
		SELECT id, user_id, closed_at, total_sales, cash_total, counted, variance, notes
		FROM cash_closings WHERE user_id = ?
		ORDER BY closed_at DESC, id DESC`, userID)
}

func (q queries) ClosingsByRange(ctx context.Context, from, to time.Time) ([]ledger.CashClosing, error) {
	return q.queryClosings(ctx, `
		SELECT id, user_id, closed_at, total_sales, cash_total, counted, variance, notes
		FROM cash_closings WHERE closed_at >= ? AND closed_at <= ?
		ORDER BY closed_at DESC, id DESC`,
		fmtTime(from), fmtTime(to))
}

func (q queries) HasClosingOn(ctx context.Context, userID int64, day time.Time) (bool, error) {
	var count int
	err := q.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM cash_closings WHERE user_id = ? AND DATE(closed_at) = ?",
		userID, day.UTC().Format("2006-01-02")).Scan(&count)
	return count > 0, err
}

// =============================================================================
// AUDIT
// =============================================================================

func (q queries) RecentAudit(ctx context.Context, limit int) ([]ledger.AuditEntry, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT a.id, a.user_id, a.created_at, a.action, a.actor_role, a.detail,
		       COALESCE(u.username, '')
		FROM audit_log a
		LEFT JOIN users u ON u.id = a.user_id
		ORDER BY a.id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ledger.AuditEntry
	for rows.Next() {
		var (
			e  ledger.AuditEntry
			at string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &at, &e.Action, &e.ActorRole,
			&e.Detail, &e.Username); err != nil {
			return nil, err
		}
		e.At = parseTime(at)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// REPORTS
// =============================================================================

// ProfitByRange computes revenue from captured sale prices and cost from
// the product's current stored cost, summed in exact decimals.
func (q queries) ProfitByRange(ctx context.Context, from, to time.Time) (ledger.ProfitReport, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT si.quantity, si.unit_price, p.cost
		FROM sale_items si
		JOIN sales s ON s.id = si.sale_id
		JOIN products p ON p.id = si.product_id
		WHERE s.created_at >= ? AND s.created_at <= ?`,
		fmtTime(from), fmtTime(to))
	if err != nil {
		return ledger.ProfitReport{}, err
	}
	defer rows.Close()

	report := ledger.ProfitReport{Revenue: decimal.Zero, Cost: decimal.Zero}
	for rows.Next() {
		var (
			qty         int64
			price, cost string
		)
		if err := rows.Scan(&qty, &price, &cost); err != nil {
			return ledger.ProfitReport{}, err
		}
		n := decimal.NewFromInt(qty)
		report.Revenue = report.Revenue.Add(parseDec(price).Mul(n))
		report.Cost = report.Cost.Add(parseDec(cost).Mul(n))
	}
	report.Net = report.Revenue.Sub(report.Cost)
	return report, rows.Err()
}

func (q queries) ProfitByProduct(ctx context.Context, from, to time.Time) ([]ledger.ProductProfit, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT p.name, si.quantity, si.unit_price, p.cost
		FROM sale_items si
		JOIN sales s ON s.id = si.sale_id
		JOIN products p ON p.id = si.product_id
		WHERE s.created_at >= ? AND s.created_at <= ?
		ORDER BY p.name, si.id`,
		fmtTime(from), fmtTime(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		result []ledger.ProductProfit
		index  = map[string]int{}
	)
	for rows.Next() {
		var (
			name        string
			qty         int64
			price, cost string
		)
		if err := rows.Scan(&name, &qty, &price, &cost); err != nil {
			return nil, err
		}
		i, ok := index[name]
		if !ok {
			i = len(result)
			index[name] = i
			result = append(result, ledger.ProductProfit{
				ProductName: name,
				Revenue:     decimal.Zero,
				Cost:        decimal.Zero,
			})
		}
		n := decimal.NewFromInt(qty)
		result[i].Quantity += qty
		result[i].Revenue = result[i].Revenue.Add(parseDec(price).Mul(n))
		result[i].Cost = result[i].Cost.Add(parseDec(cost).Mul(n))
	}
	for i := range result {
		result[i].Net = result[i].Revenue.Sub(result[i].Cost)
	}
	return result, rows.Err()
}

func (q queries) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]ledger.TopProduct, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT p.name, SUM(si.quantity) AS sold
		FROM sale_items si
		JOIN sales s ON s.id = si.sale_id
		JOIN products p ON p.id = si.product_id
		WHERE s.created_at >= ? AND s.created_at <= ?
		GROUP BY p.id
		ORDER BY sold DESC, p.name
		LIMIT ?`,
		fmtTime(from), fmtTime(to), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var top []ledger.TopProduct
	for rows.Next() {
		var t ledger.TopProduct
		if err := rows.Scan(&t.ProductName, &t.Quantity); err != nil {
			return nil, err
		}
		top = append(top, t)
	}
	return top, rows.Err()
}

// =============================================================================
// DIAGNOSTICS
// =============================================================================

// DebtorBalanceDrift recomputes every debtor's balance as the sum of
// pending amounts of their credit sales and reports disagreements with
// the stored column.
func (q queries) DebtorBalanceDrift(ctx context.Context) ([]ledger.BalanceDrift, error) {
	pending := map[int64]decimal.Decimal{}
	rows, err := q.db.QueryContext(ctx, `
		SELECT debtor_id, pending FROM sales
		WHERE payment_kind = 'credit' AND debtor_id IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			debtorID int64
			p        string
		)
		if err := rows.Scan(&debtorID, &p); err != nil {
			rows.Close()
			return nil, err
		}
		pending[debtorID] = pending[debtorID].Add(parseDec(p))
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	debtors, err := q.ListDebtors(ctx)
	if err != nil {
		return nil, err
	}

	var drifts []ledger.BalanceDrift
	for _, d := range debtors {
		computed := pending[d.ID]
		if !d.Balance.Equal(computed) {
			drifts = append(drifts, ledger.BalanceDrift{
				Kind:     "debtor",
				ID:       d.ID,
				Name:     d.Name,
				Stored:   d.Balance,
				Computed: computed,
			})
		}
	}
	return drifts, nil
}

// SalePendingDrift recomputes each credit sale's pending amount as
// total minus payments minus refunds and reports disagreements.
func (q queries) SalePendingDrift(ctx context.Context) ([]ledger.BalanceDrift, error) {
	paid, err := q.sumBySale(ctx,
		"SELECT sale_id, amount FROM debtor_payments WHERE sale_id IS NOT NULL")
	if err != nil {
		return nil, err
	}
	refunded, err := q.sumBySale(ctx, "SELECT sale_id, total FROM returns")
	if err != nil {
		return nil, err
	}

	rows, err := q.db.QueryContext(ctx,
		"SELECT id, total, pending FROM sales WHERE payment_kind = 'credit'")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drifts []ledger.BalanceDrift
	for rows.Next() {
		var (
			id             int64
			total, pending string
		)
		if err := rows.Scan(&id, &total, &pending); err != nil {
			return nil, err
		}
		computed := parseDec(total).Sub(paid[id]).Sub(refunded[id])
		stored := parseDec(pending)
		if !stored.Equal(computed) {
			drifts = append(drifts, ledger.BalanceDrift{
				Kind:     "sale",
				ID:       id,
				Name:     fmt.Sprintf("sale %d", id),
				Stored:   stored,
				Computed: computed,
			})
		}
	}
	return drifts, rows.Err()
}

func (q queries) sumBySale(ctx context.Context, query string) (map[int64]decimal.Decimal, error) {
	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sums := map[int64]decimal.Decimal{}
	for rows.Next() {
		var (
			saleID int64
			amount string
		)
		if err := rows.Scan(&saleID, &amount); err != nil {
			return nil, err
		}
		sums[saleID] = sums[saleID].Add(parseDec(amount))
	}
	return sums, rows.Err()
}

// =============================================================================
// USERS
// =============================================================================

func scanUser(row scanner) (*ledger.User, error) {
	var (
		u  ledger.User
		at string
	)
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.Active, &at)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = parseTime(at)
	return &u, nil
}

func (q queries) GetUser(ctx context.Context, id int64) (*ledger.User, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, role, active, created_at FROM users WHERE id = ?", id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrUserNotFound
	}
	return u, err
}

func (q queries) GetUserByUsername(ctx context.Context, username string) (*ledger.User, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, role, active, created_at FROM users WHERE username = ?", username)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrUserNotFound
	}
	return u, err
}

func (q queries) ListUsers(ctx context.Context) ([]ledger.User, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT id, username, password_hash, role, active, created_at FROM users ORDER BY username")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []ledger.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
