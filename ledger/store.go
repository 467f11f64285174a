/*
store.go - Persistence contracts implemented by the embedded store

PURPOSE:
  Declares what the ledger needs from storage, split in two:

  Queries - read-only lookups and reports, runnable outside a transaction.
  Tx      - the scoped-transaction surface. Every write primitive lives
            here, so a compound operation can only mutate state inside
            Store.WithTx. Tx embeds Queries: reads inside a transaction see
            its uncommitted writes.

TRANSACTION DISCIPLINE:
  WithTx opens a transaction, runs fn, commits when fn returns nil, and
  rolls back on any error or panic. There is no other write path. The
  audit append is one more Tx primitive, which is how "no mutation commits
  without its audit entry" is enforced rather than hoped for.

SEE ALSO:
  - store/sqlite: the only production implementation
  - ledger.go: the orchestrator composing these primitives
*/
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Store is the embedded store as seen by the ledger.
type Store interface {
	Queries

	// WithTx runs fn inside a single storage transaction. If fn returns an
	// error, every write made through its Tx is rolled back and the error
	// is returned unchanged.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Queries is the read-only surface.
type Queries interface {
	// Products
	GetProduct(ctx context.Context, id int64) (*Product, error)
	GetProductByCode(ctx context.Context, code string) (*Product, error)
	ListProducts(ctx context.Context, f ProductFilter) ([]Product, error)
	ListCategories(ctx context.Context) ([]Category, error)

	// Sales
	GetSale(ctx context.Context, id int64) (*Sale, error)
	ListSaleItems(ctx context.Context, saleID int64) ([]SaleItem, error)
	SaleDetail(ctx context.Context, saleID int64) ([]SaleDetailLine, error)
	SalesByRange(ctx context.Context, from, to time.Time) ([]SaleSummary, error)
	SalesOfDay(ctx context.Context, day time.Time) ([]SaleSummary, error)
	// DayTotals returns the operator's system-computed totals for one day:
	// all sales, and the cash subtotal a drawer count reconciles against.
	DayTotals(ctx context.Context, userID int64, day time.Time) (DayTotals, error)

	// Debtors
	GetDebtor(ctx context.Context, id int64) (*Debtor, error)
	ListDebtors(ctx context.Context) ([]Debtor, error)
	CreditSalesOfDebtor(ctx context.Context, debtorID int64) ([]DebtorSale, error)
	PendingSalesOfDebtor(ctx context.Context, debtorID int64) ([]DebtorSale, error)
	SettledSalesOfDebtor(ctx context.Context, debtorID int64) ([]DebtorSale, error)
	PaymentsBySale(ctx context.Context, saleID int64) ([]Payment, error)

	// Suppliers and purchases
	GetSupplier(ctx context.Context, id int64) (*Supplier, error)
	ListSuppliers(ctx context.Context, includeInactive bool) ([]Supplier, error)
	GetPurchase(ctx context.Context, id int64) (*Purchase, error)
	PurchaseDetail(ctx context.Context, purchaseID int64) ([]PurchaseDetailLine, error)
	PurchasesByRange(ctx context.Context, from, to time.Time) ([]PurchaseSummary, error)

	// Returns
	GetReturn(ctx context.Context, id int64) (*Return, error)
	ListReturnItems(ctx context.Context, returnID int64) ([]ReturnItem, error)
	ReturnsBySale(ctx context.Context, saleID int64) ([]Return, error)
	ReturnsByRange(ctx context.Context, from, to time.Time) ([]Return, error)
	ReturnStatsByRange(ctx context.Context, from, to time.Time) (ReturnStats, error)

	// Closings
	GetClosing(ctx context.Context, id int64) (*CashClosing, error)
	ClosingsByOperator(ctx context.Context, userID int64) ([]CashClosing, error)
	ClosingsByRange(ctx context.Context, from, to time.Time) ([]CashClosing, error)
	HasClosingOn(ctx context.Context, userID int64, day time.Time) (bool, error)

	// Audit
	RecentAudit(ctx context.Context, limit int) ([]AuditEntry, error)

	// Reports
	ProfitByRange(ctx context.Context, from, to time.Time) (ProfitReport, error)
	ProfitByProduct(ctx context.Context, from, to time.Time) ([]ProductProfit, error)
	TopProducts(ctx context.Context, from, to time.Time, limit int) ([]TopProduct, error)

	// Diagnostics
	DebtorBalanceDrift(ctx context.Context) ([]BalanceDrift, error)
	SalePendingDrift(ctx context.Context) ([]BalanceDrift, error)

	// Users
	GetUser(ctx context.Context, id int64) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// Tx is the write surface, only reachable inside Store.WithTx.
type Tx interface {
	Queries

	// Products
	InsertProduct(ctx context.Context, p Product) (int64, error)
	UpdateProduct(ctx context.Context, p Product) error
	SetProductActive(ctx context.Context, id int64, active bool) error
	// AdjustStock applies a signed delta to a product's stock. It does not
	// guard against going negative; the sale path relies on that.
	AdjustStock(ctx context.Context, productID int64, delta int64) error
	InsertCategory(ctx context.Context, name string) (int64, error)
	DeleteCategory(ctx context.Context, id int64) error

	// Sales
	InsertSale(ctx context.Context, s Sale) (int64, error)
	InsertSaleItem(ctx context.Context, item SaleItem) (int64, error)
	// AdjustSalePending applies a signed delta; the store's check constraint
	// rejects a pending balance below zero or above the sale total.
	AdjustSalePending(ctx context.Context, saleID int64, delta decimal.Decimal) error

	// Debtors
	InsertDebtor(ctx context.Context, d Debtor) (int64, error)
	UpdateDebtor(ctx context.Context, d Debtor) error
	DeleteDebtor(ctx context.Context, id int64) error
	AdjustDebtorBalance(ctx context.Context, debtorID int64, delta decimal.Decimal) error
	InsertPayment(ctx context.Context, p Payment) (int64, error)

	// Suppliers and purchases
	InsertSupplier(ctx context.Context, s Supplier) (int64, error)
	UpdateSupplier(ctx context.Context, s Supplier) error
	SetSupplierActive(ctx context.Context, id int64, active bool) error
	DeleteSupplier(ctx context.Context, id int64) error
	CountProductsOfSupplier(ctx context.Context, supplierID int64) (int64, error)
	InsertPurchase(ctx context.Context, p Purchase) (int64, error)
	InsertPurchaseItem(ctx context.Context, item PurchaseItem) (int64, error)

	// Returns
	InsertReturn(ctx context.Context, r Return) (int64, error)
	InsertReturnItem(ctx context.Context, item ReturnItem) (int64, error)
	// ReturnedQtyBySale sums previously returned quantities per product.
	ReturnedQtyBySale(ctx context.Context, saleID int64) (map[int64]int64, error)
	// RefundedTotalBySale sums the totals of all prior returns of a sale.
	RefundedTotalBySale(ctx context.Context, saleID int64) (decimal.Decimal, error)

	// Closings
	InsertClosing(ctx context.Context, c CashClosing) (int64, error)

	// Audit. Append-only: no update or delete primitive exists.
	AppendAudit(ctx context.Context, e AuditEntry) error

	// Users
	InsertUser(ctx context.Context, u User) (int64, error)
	UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error
	SetUserActive(ctx context.Context, id int64, active bool) error
	DeleteUser(ctx context.Context, id int64) error
}
