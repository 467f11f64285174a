/*
Package ledger contains the transactional core of the point-of-sale system.

PURPOSE:
  Everything that moves money or stock goes through this package: sales,
  returns/refunds, debtor credit and payments, purchase receiving, and
  cash-drawer closings. Each of those is a compound operation spanning
  several tables, and each one commits atomically together with the audit
  entry that describes it.

KEY CONCEPTS IN THIS FILE (types.go):
  - Entities: Product, Sale, Debtor, Payment, Purchase, Return, CashClosing
  - AuditEntry: one immutable row per ledger mutation
  - Closed enumerations: PaymentKind, ReturnKind, VarianceKind, Action, Role

DESIGN PRINCIPLES:
  1. Precision: money is decimal.Decimal, never float
  2. Captured prices: a sale line stores the unit price at sale time, so
     later price edits never rewrite history
  3. Soft delete: products and suppliers are deactivated, not removed
  4. Auditability: every mutation carries a same-transaction audit entry

SEE ALSO:
  - store.go: persistence contracts the sqlite store implements
  - ledger.go: the Ledger orchestrator and the audit post-condition
  - errors.go: rejection and not-found taxonomy
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ENUMERATIONS
// =============================================================================

// PaymentKind distinguishes cash sales from credit sales against a debtor.
type PaymentKind string

const (
	PaymentCash   PaymentKind = "cash"
	PaymentCredit PaymentKind = "credit"
)

func (k PaymentKind) Valid() bool {
	return k == PaymentCash || k == PaymentCredit
}

// ReturnKind classifies a return by comparing the cumulative refunded amount
// against the original sale total.
type ReturnKind string

const (
	ReturnFull    ReturnKind = "full"
	ReturnPartial ReturnKind = "partial"
)

// VarianceKind classifies the signed variance of a cash closing.
type VarianceKind string

const (
	VarianceBalanced VarianceKind = "balanced"
	VarianceOver     VarianceKind = "over"
	VarianceShort    VarianceKind = "short"
)

// ClassifyVariance maps counted-minus-system onto its closed classification.
func ClassifyVariance(v decimal.Decimal) VarianceKind {
	switch {
	case v.IsZero():
		return VarianceBalanced
	case v.IsPositive():
		return VarianceOver
	default:
		return VarianceShort
	}
}

// Action tags every audit entry with the kind of mutation it records.
type Action string

const (
	ActionProductCreated     Action = "product_created"
	ActionProductUpdated     Action = "product_updated"
	ActionProductDeactivated Action = "product_deactivated"
	ActionSaleRegistered     Action = "sale_registered"
	ActionReturnRegistered   Action = "return_registered"
	ActionPurchaseRegistered Action = "purchase_registered"
	ActionDebtorPayment      Action = "debtor_payment"
	ActionDebtorDeleted      Action = "debtor_deleted"
	ActionClosingRecorded    Action = "closing_recorded"
	ActionUserCreated        Action = "user_created"
	ActionUserDeactivated    Action = "user_deactivated"
	ActionUserDeleted        Action = "user_deleted"
	ActionPasswordChanged    Action = "password_changed"
)

// Role is the operator role recorded on users and captured on audit entries.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCashier Role = "cashier"
	RoleAuditor Role = "auditor"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleCashier || r == RoleAuditor
}

// =============================================================================
// ENTITIES
// =============================================================================

type Product struct {
	ID          int64           `json:"id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Cost        decimal.Decimal `json:"cost"`
	Price       decimal.Decimal `json:"price"`
	Stock       int64           `json:"stock"`
	Active      bool            `json:"active"`
	SupplierID  *int64          `json:"supplier_id,omitempty"`
	CategoryID  *int64          `json:"category_id,omitempty"`
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Supplier struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Contact string `json:"contact,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
	Active  bool   `json:"active"`
}

type Sale struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	At          time.Time       `json:"at"`
	Total       decimal.Decimal `json:"total"`
	PaymentKind PaymentKind     `json:"payment_kind"`
	DebtorID    *int64          `json:"debtor_id,omitempty"`
	Pending     decimal.Decimal `json:"pending"`
}

type SaleItem struct {
	ID        int64           `json:"id"`
	SaleID    int64           `json:"sale_id"`
	ProductID int64           `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Subtotal is quantity times the captured unit price.
func (i SaleItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(i.Quantity))
}

type Debtor struct {
	ID      int64           `json:"id"`
	Name    string          `json:"name"`
	Phone   string          `json:"phone,omitempty"`
	Address string          `json:"address,omitempty"`
	Notes   string          `json:"notes,omitempty"`
	Balance decimal.Decimal `json:"balance"`
}

type Payment struct {
	ID       int64           `json:"id"`
	DebtorID int64           `json:"debtor_id"`
	SaleID   int64           `json:"sale_id"`
	At       time.Time       `json:"at"`
	Amount   decimal.Decimal `json:"amount"`
}

type Purchase struct {
	ID         int64           `json:"id"`
	SupplierID int64           `json:"supplier_id"`
	At         time.Time       `json:"at"`
	TotalCost  decimal.Decimal `json:"total_cost"`
}

type PurchaseItem struct {
	ID         int64           `json:"id"`
	PurchaseID int64           `json:"purchase_id"`
	ProductID  int64           `json:"product_id"`
	Quantity   int64           `json:"quantity"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
}

type Return struct {
	ID     int64           `json:"id"`
	SaleID int64           `json:"sale_id"`
	UserID int64           `json:"user_id"`
	At     time.Time       `json:"at"`
	Total  decimal.Decimal `json:"total"`
	Kind   ReturnKind      `json:"kind"`
	Reason string          `json:"reason,omitempty"`
}

type ReturnItem struct {
	ID        int64           `json:"id"`
	ReturnID  int64           `json:"return_id"`
	ProductID int64           `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type CashClosing struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"user_id"`
	At         time.Time       `json:"at"`
	TotalSales decimal.Decimal `json:"total_sales"`
	CashTotal  decimal.Decimal `json:"cash_total"`
	Counted    decimal.Decimal `json:"counted"`
	Variance   decimal.Decimal `json:"variance"`
	Notes      string          `json:"notes,omitempty"`
	// OperatorName is populated on single-closing lookups.
	OperatorName string `json:"operator_name,omitempty"`
}

func (c CashClosing) Classification() VarianceKind {
	return ClassifyVariance(c.Variance)
}

// AuditEntry is one immutable row of the audit trail. ActorRole is captured
// at write time; later role changes never rewrite how an entry reads.
type AuditEntry struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	At        time.Time `json:"at"`
	Action    Action    `json:"action"`
	ActorRole Role      `json:"actor_role"`
	Detail    string    `json:"detail"`
	// Username is the actor's display name at lookup time.
	Username string `json:"username,omitempty"`
}

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// =============================================================================
// OPERATION INPUTS
// =============================================================================

type ProductInput struct {
	Code        string
	Name        string
	Description string
	Cost        decimal.Decimal
	Price       decimal.Decimal
	Stock       int64
	SupplierID  *int64
	CategoryID  *int64
}

type ProductFilter struct {
	Text       string // matches code prefix or name substring
	CategoryID *int64
	SupplierID *int64
}

// SaleLine is one cart entry keyed by product code.
type SaleLine struct {
	Quantity  int64
	UnitPrice decimal.Decimal
}

type SaleInput struct {
	Total       decimal.Decimal
	PaymentKind PaymentKind
	DebtorID    *int64
	Lines       map[string]SaleLine // product code -> line
}

// PurchaseLine is one receiving entry keyed by product code.
type PurchaseLine struct {
	Quantity int64
	UnitCost decimal.Decimal
}

type PurchaseInput struct {
	SupplierID int64
	TotalCost  decimal.Decimal
	Lines      map[string]PurchaseLine
}

type DebtorInput struct {
	Name    string
	Phone   string
	Address string
	Notes   string
}

type SupplierInput struct {
	Name    string
	Contact string
	Phone   string
	Email   string
	Address string
}

type ClosingInput struct {
	TotalSales decimal.Decimal
	CashTotal  decimal.Decimal
	Counted    decimal.Decimal
	Notes      string
}

// =============================================================================
// READ MODELS
// =============================================================================

// SaleSummary is a sale row as shown in history listings.
type SaleSummary struct {
	ID          int64           `json:"id"`
	At          time.Time       `json:"at"`
	Cashier     string          `json:"cashier"`
	Total       decimal.Decimal `json:"total"`
	PaymentKind PaymentKind     `json:"payment_kind"`
}

// SaleDetailLine resolves a sale item against the product catalog.
type SaleDetailLine struct {
	ProductName string          `json:"product_name"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// DebtorSale is one credit sale on a debtor statement.
type DebtorSale struct {
	SaleID  int64           `json:"sale_id"`
	At      time.Time       `json:"at"`
	Total   decimal.Decimal `json:"total"`
	Pending decimal.Decimal `json:"pending"`
}

type PurchaseSummary struct {
	ID           int64           `json:"id"`
	At           time.Time       `json:"at"`
	SupplierName string          `json:"supplier_name"`
	TotalCost    decimal.Decimal `json:"total_cost"`
}

type PurchaseDetailLine struct {
	ProductName string          `json:"product_name"`
	Quantity    int64           `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// DayTotals are the system-computed figures a cash closing reconciles against.
type DayTotals struct {
	TotalSales decimal.Decimal `json:"total_sales"`
	CashTotal  decimal.Decimal `json:"cash_total"`
}

type ProfitReport struct {
	Revenue decimal.Decimal `json:"revenue"`
	Cost    decimal.Decimal `json:"cost"`
	Net     decimal.Decimal `json:"net"`
}

type ProductProfit struct {
	ProductName string          `json:"product_name"`
	Quantity    int64           `json:"quantity"`
	Revenue     decimal.Decimal `json:"revenue"`
	Cost        decimal.Decimal `json:"cost"`
	Net         decimal.Decimal `json:"net"`
}

type TopProduct struct {
	ProductName string `json:"product_name"`
	Quantity    int64  `json:"quantity"`
}

type ReturnStats struct {
	Count        int64           `json:"count"`
	Refunded     decimal.Decimal `json:"refunded"`
	FullCount    int64           `json:"full_count"`
	PartialCount int64           `json:"partial_count"`
}

// BalanceDrift reports one stored running total that disagrees with the sum
// of its underlying ledger rows. An empty result means the store is
// consistent.
type BalanceDrift struct {
	Kind     string          `json:"kind"` // "debtor" or "sale"
	ID       int64           `json:"id"`
	Name     string          `json:"name,omitempty"`
	Stored   decimal.Decimal `json:"stored"`
	Computed decimal.Decimal `json:"computed"`
}
