/*
dto.go - Request and response shapes of the HTTP API

PURPOSE:
  JSON payloads exchanged with the UI layer. Money fields are
  decimal.Decimal, which accepts both JSON numbers and quoted strings on
  input and always serializes exactly.

SEE ALSO:
  - handlers.go: where these are parsed and validated
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/verzalex4-ai/sistema-ventas/ledger"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type productRequest struct {
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Cost        decimal.Decimal `json:"cost"`
	Price       decimal.Decimal `json:"price"`
	Stock       int64           `json:"stock"`
	SupplierID  *int64          `json:"supplier_id"`
	CategoryID  *int64          `json:"category_id"`
}

func (r productRequest) input() ledger.ProductInput {
	return ledger.ProductInput{
		Code:        r.Code,
		Name:        r.Name,
		Description: r.Description,
		Cost:        r.Cost,
		Price:       r.Price,
		Stock:       r.Stock,
		SupplierID:  r.SupplierID,
		CategoryID:  r.CategoryID,
	}
}

type categoryRequest struct {
	Name string `json:"name"`
}

type saleLineRequest struct {
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type saleRequest struct {
	Total       decimal.Decimal            `json:"total"`
	PaymentKind ledger.PaymentKind         `json:"payment_kind"`
	DebtorID    *int64                     `json:"debtor_id"`
	Lines       map[string]saleLineRequest `json:"lines"`
}

func (r saleRequest) input() ledger.SaleInput {
	lines := make(map[string]ledger.SaleLine, len(r.Lines))
	for code, l := range r.Lines {
		lines[code] = ledger.SaleLine{Quantity: l.Quantity, UnitPrice: l.UnitPrice}
	}
	return ledger.SaleInput{
		Total:       r.Total,
		PaymentKind: r.PaymentKind,
		DebtorID:    r.DebtorID,
		Lines:       lines,
	}
}

type returnRequest struct {
	SaleID int64           `json:"sale_id"`
	Lines  map[int64]int64 `json:"lines"` // product id -> quantity
	Reason string          `json:"reason"`
}

type debtorRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

func (r debtorRequest) input() ledger.DebtorInput {
	return ledger.DebtorInput{Name: r.Name, Phone: r.Phone, Address: r.Address, Notes: r.Notes}
}

type paymentRequest struct {
	SaleID int64           `json:"sale_id"`
	Amount decimal.Decimal `json:"amount"`
}

type supplierRequest struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

func (r supplierRequest) input() ledger.SupplierInput {
	return ledger.SupplierInput{
		Name:    r.Name,
		Contact: r.Contact,
		Phone:   r.Phone,
		Email:   r.Email,
		Address: r.Address,
	}
}

type purchaseLineRequest struct {
	Quantity int64           `json:"quantity"`
	UnitCost decimal.Decimal `json:"unit_cost"`
}

type purchaseRequest struct {
	SupplierID int64                          `json:"supplier_id"`
	TotalCost  decimal.Decimal                `json:"total_cost"`
	Lines      map[string]purchaseLineRequest `json:"lines"`
}

func (r purchaseRequest) input() ledger.PurchaseInput {
	lines := make(map[string]ledger.PurchaseLine, len(r.Lines))
	for code, l := range r.Lines {
		lines[code] = ledger.PurchaseLine{Quantity: l.Quantity, UnitCost: l.UnitCost}
	}
	return ledger.PurchaseInput{SupplierID: r.SupplierID, TotalCost: r.TotalCost, Lines: lines}
}

type closingRequest struct {
	TotalSales decimal.Decimal `json:"total_sales"`
	CashTotal  decimal.Decimal `json:"cash_total"`
	Counted    decimal.Decimal `json:"counted"`
	Notes      string          `json:"notes"`
}

type userRequest struct {
	Username string      `json:"username"`
	Password string      `json:"password"`
	Role     ledger.Role `json:"role"`
}

type passwordRequest struct {
	Password string `json:"password"`
}

type activeRequest struct {
	Active bool `json:"active"`
}

type idResponse struct {
	ID int64 `json:"id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// saleResponse bundles the header with its resolved lines.
type saleResponse struct {
	Sale  *ledger.Sale            `json:"sale"`
	Lines []ledger.SaleDetailLine `json:"lines"`
}

type returnResponse struct {
	Return *ledger.Return      `json:"return"`
	Items  []ledger.ReturnItem `json:"items"`
}

type purchaseResponse struct {
	Purchase *ledger.Purchase            `json:"purchase"`
	Lines    []ledger.PurchaseDetailLine `json:"lines"`
}

type closingStatusResponse struct {
	Totals     ledger.DayTotals `json:"totals"`
	HasClosing bool             `json:"has_closing"`
}
