/*
handlers.go - HTTP handlers over the ledger

PURPOSE:
  The local API the UI consumes. Handlers parse JSON, resolve the acting
  operator from the request context, call the ledger, and map its error
  taxonomy onto HTTP statuses.

ERROR MAPPING:
  422: business-rule rejection (message shown to the operator as-is)
  404: referenced record does not exist
  409: uniqueness conflict
  400: malformed request body or parameters
  500: storage failure; the body stays generic

SEE ALSO:
  - dto.go: payload shapes
  - server.go: routing and middleware
  - ledger/errors.go: the taxonomy being mapped
*/
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/verzalex4-ai/sistema-ventas/auth"
	"github.com/verzalex4-ai/sistema-ventas/ledger"
)

// Handler holds the dependencies of every endpoint.
type Handler struct {
	Ledger *ledger.Ledger
	Auth   *auth.Manager
}

func NewHandler(core *ledger.Ledger, authManager *auth.Manager) *Handler {
	return &Handler{Ledger: core, Auth: authManager}
}

// =============================================================================
// PLUMBING
// =============================================================================

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			log.Printf("failed to encode response: %v", err)
		}
	}
}

func respondErr(w http.ResponseWriter, err error) {
	switch {
	case ledger.IsRejection(err):
		respond(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	case ledger.IsNotFound(err):
		respond(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case ledger.IsConflict(err):
		respond(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		log.Printf("internal error: %v", err)
		respond(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respond(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		respond(w, http.StatusBadRequest, errorResponse{Error: "invalid " + name})
		return 0, false
	}
	return id, true
}

func actorID(r *http.Request) int64 {
	actor, _ := auth.ActorFromContext(r.Context())
	if actor == nil {
		return 0
	}
	return actor.ID
}

// parseRange reads from/to query parameters, accepting YYYY-MM-DD or
// RFC3339. Missing from means the beginning of time; missing to means
// the end of today.
func parseRange(r *http.Request) (time.Time, time.Time, error) {
	parse := func(s string) (time.Time, error) {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			return t.UTC(), nil
		}
		return time.Parse(time.RFC3339, s)
	}

	from := time.Time{}
	if s := r.URL.Query().Get("from"); s != "" {
		t, err := parse(s)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = t
	}
	to := time.Now().UTC().Truncate(24 * time.Hour).Add(24*time.Hour - time.Second)
	if s := r.URL.Query().Get("to"); s != "" {
		t, err := parse(s)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		// A bare date means the whole day inclusive.
		if len(s) == len("2006-01-02") {
			t = t.Add(24*time.Hour - time.Second)
		}
		to = t
	}
	return from, to, nil
}

// =============================================================================
// AUTH
// =============================================================================

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	session, err := h.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		respond(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
		return
	}
	respond(w, http.StatusOK, session)
}

// =============================================================================
// PRODUCTS
// =============================================================================

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	f := ledger.ProductFilter{Text: r.URL.Query().Get("q")}
	if s := r.URL.Query().Get("category_id"); s != "" {
		if id, err := strconv.ParseInt(s, 10, 64); err == nil {
			f.CategoryID = &id
		}
	}
	if s := r.URL.Query().Get("supplier_id"); s != "" {
		if id, err := strconv.ParseInt(s, 10, 64); err == nil {
			f.SupplierID = &id
		}
	}
	products, err := h.Ledger.ListProducts(r.Context(), f)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, products)
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !decode(w, r, &req) {
		return
	}
	id, err := h.Ledger.CreateProduct(r.Context(), actorID(r), req.input())
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusCreated, idResponse{ID: id})
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	product, err := h.Ledger.Product(r.Context(), id)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, product)
}

func (h *Handler) GetProductByCode(w http.ResponseWriter, r *http.Request) {
	product, err := h.Ledger.ProductByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, product)
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req productRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.Ledger.UpdateProduct(r.Context(), actorID(r), id, req.input()); err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, idResponse{ID: id})
}

func (h *Handler) DeactivateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Ledger.DeactivateProduct(r.Context(), actorID(r), id); err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusNoContent, nil)
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Ledger.ListCategories(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, categories)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decode(w, r, &req) {
		return
	}
	id, err := h.Ledger.CreateCategory(r.Context(), req.Name)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusCreated, idResponse{ID: id})
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Ledger.DeleteCategory(r.Context(), id); err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusNoContent, nil)
}

// =============================================================================
// SALES
// =============================================================================

func (h *Handler) RegisterSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if !decode(w, r, &req) {
		return
	}
	id, err := h.Ledger.RegisterSale(r.Context(), actorID(r), req.input())
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusCreated, idResponse{ID: id})
}

func (h *Handler) GetSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	sale, err := h.Ledger.Sale(r.Context(), id)
	if err != nil {
		respondErr(w, err)
		return
	}
	lines, err := h.Ledger.SaleDetail(r.Context(), id)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, saleResponse{Sale: sale, Lines: lines})
}

func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	if day := r.URL.Query().Get("day"); day != "" {
		t, err := time.Parse("2006-01-02", day)
		if err != nil {
			respond(w, http.StatusBadRequest, errorResponse{Error: "invalid day"})
			return
		}
		sales, err := h.Ledger.SalesOfDay(r.Context(), t)
		if err != nil {
			respondErr(w, err)
			return
		}
		respond(w, http.StatusOK, sales)
		return
	}

	from, to, err := parseRange(r)
	if err != nil {
		respond(w, http.StatusBadRequest, errorResponse{Error: "invalid range"})
		return
	}
	sales, err := h.Ledger.SalesByRange(r.Context(), from, to)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, sales)
}

func (h *Handler) SaleReturns(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	returns, err := h.Ledger.ReturnsBySale(r.Context(), id)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, returns)
}

func (h *Handler) SalePayments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	payments, err := h.Ledger.PaymentsBySale(r.Context(), id)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, payments)
}

// =============================================================================
// RETURNS
// =============================================================================

func (h *Handler) RegisterReturn(w http.ResponseWriter, r *http.Request) {
	var req returnRequest
	if !decode(w, r, &req) {
		return
	}
	id, err := h.Ledger.RegisterReturn(r.Context(), actorID(r), req.SaleID, req.Lines, req.Reason)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusCreated, idResponse{ID: id})
}

func (h *Handler) GetReturn(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ret, err := h.Ledger.Return(r.Context(), id)
	if err != nil {
		respondErr(w, err)
		return
	}
	items, err := h.Ledger.ReturnItems(r.Context(), id)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, returnResponse{Return: ret, Items: items})
}

func (h *Handler) ListReturns(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		respond(w, http.StatusBadRequest, errorResponse{Error: "invalid range"})
		return
	}
	returns, err := h.Ledger.ReturnsByRange(r.Context(), from, to)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, returns)
}

// =============================================================================
// DEBTORS
// =============================================================================

func (h *Handler) ListDebtors(w http.ResponseWriter, r *http.Request) {
	debtors, err := h.Ledger.ListDebtors(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, debtors)
}

func (h *Handler) CreateDebtor(w http.ResponseWriter, r *http.Request) {
	var req debtorRequest
	if !decode(w, r, &req) {
		return
	}
	id, err := h.Ledger.CreateDebtor(r.Context(), actorID(r), req.input())
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusCreated, idResponse{ID: id})
}

func (h *Handler) GetDebtor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	statement, err := h.Ledger.DebtorStatement(r.Context(), id)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, statement)
}

func (h *Handler) UpdateDebtor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req debtorRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.Ledger.UpdateDebtor(r.Context(), actorID(r), id, req.input()); err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, idResponse{ID: id})
}

func (h *Handler) DeleteDebtor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Ledger.DeleteDebtor(r.Context(), actorID(r), id); err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusNoContent, nil)
}

func (h *Handler) RegisterPayment(w http.ResponseWriter, r *http.Request) {
	debtorID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req paymentRequest
	if !decode(w, r, &req) {
		return
	}
	id, err := h.Ledger.RegisterPayment(r.Context(), actorID(r), debtorID, req.SaleID, req.Amount)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusCreated, idResponse{ID: id})
}

// =============================================================================
// SUPPLIERS AND PURCHASES
// =============================================================================

func (h *Handler) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("all") == "true"
	suppliers, err := h.Ledger.ListSuppliers(r.Context(), includeInactive)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, suppliers)
}

func (h *Handler) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req supplierRequest
	if !decode(w, r, &req) {
		return
	}
	id, err := h.Ledger.CreateSupplier(r.Context(), actorID(r), req.input())
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusCreated, idResponse{ID: id})
}

func (h *Handler) GetSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	supplier, err := h.Ledger.Supplier(r.Context(), id)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, supplier)
}

func (h *Handler) UpdateSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req supplierRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.Ledger.UpdateSupplier(r.Context(), actorID(r), id, req.input()); err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, idResponse{ID: id})
}

func (h *Handler) DeactivateSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Ledger.DeactivateSupplier(r.Context(), actorID(r), id); err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusNoContent, nil)
}

func (h *Handler) DeleteSupplier(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Ledger.DeleteSupplier(r.Context(), actorID(r), id); err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusNoContent, nil)
}

func (h *Handler) RegisterPurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if !decode(w, r, &req) {
		return
	}
	id, err := h.Ledger.RegisterPurchase(r.Context(), actorID(r), req.input())
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusCreated, idResponse{ID: id})
}

func (h *Handler) GetPurchase(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	purchase, err := h.Ledger.Purchase(r.Context(), id)
	if err != nil {
		respondErr(w, err)
		return
	}
	lines, err := h.Ledger.PurchaseDetail(r.Context(), id)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, purchaseResponse{Purchase: purchase, Lines: lines})
}

func (h *Handler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		respond(w, http.StatusBadRequest, errorResponse{Error: "invalid range"})
		return
	}
	purchases, err := h.Ledger.PurchasesByRange(r.Context(), from, to)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, purchases)
}

// =============================================================================
// CLOSINGS
// =============================================================================

func (h *Handler) RegisterClosing(w http.ResponseWriter, r *http.Request) {
	var req closingRequest
	if !decode(w, r, &req) {
		return
	}
	id, err := h.Ledger.RegisterClosing(r.Context(), actorID(r), ledger.ClosingInput{
		TotalSales: req.TotalSales,
		CashTotal:  req.CashTotal,
		Counted:    req.Counted,
		Notes:      req.Notes,
	})
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusCreated, idResponse{ID: id})
}

func (h *Handler) GetClosing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	closing, err := h.Ledger.Closing(r.Context(), id)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, closing)
}

func (h *Handler) ListClosings(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		respond(w, http.StatusBadRequest, errorResponse{Error: "invalid range"})
		return
	}
	closings, err := h.Ledger.ClosingsByRange(r.Context(), from, to)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, closings)
}

// ClosingStatus reports the operator's computed totals for today and
// whether they have already closed, feeding the closing form.
func (h *Handler) ClosingStatus(w http.ResponseWriter, r *http.Request) {
	uid := actorID(r)
	totals, err := h.Ledger.DayTotals(r.Context(), uid, time.Now().UTC())
	if err != nil {
		respondErr(w, err)
		return
	}
	hasClosing, err := h.Ledger.HasClosingToday(r.Context(), uid)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, closingStatusResponse{Totals: totals, HasClosing: hasClosing})
}

// =============================================================================
// AUDIT, REPORTS, DIAGNOSTICS
// =============================================================================

func (h *Handler) RecentAudit(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		limit, _ = strconv.Atoi(s)
	}
	entries, err := h.Ledger.RecentAudit(r.Context(), limit)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, entries)
}

func (h *Handler) ProfitReport(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		respond(w, http.StatusBadRequest, errorResponse{Error: "invalid range"})
		return
	}
	report, err := h.Ledger.ProfitByRange(r.Context(), from, to)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, report)
}

func (h *Handler) ProfitByProduct(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		respond(w, http.StatusBadRequest, errorResponse{Error: "invalid range"})
		return
	}
	report, err := h.Ledger.ProfitByProduct(r.Context(), from, to)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, report)
}

func (h *Handler) TopProducts(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		respond(w, http.StatusBadRequest, errorResponse{Error: "invalid range"})
		return
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		limit, _ = strconv.Atoi(s)
	}
	top, err := h.Ledger.TopProducts(r.Context(), from, to, limit)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, top)
}

func (h *Handler) ReturnStats(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		respond(w, http.StatusBadRequest, errorResponse{Error: "invalid range"})
		return
	}
	stats, err := h.Ledger.ReturnStatsByRange(r.Context(), from, to)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, stats)
}

func (h *Handler) VerifyBalances(w http.ResponseWriter, r *http.Request) {
	drifts, err := h.Ledger.VerifyBalances(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	if drifts == nil {
		drifts = []ledger.BalanceDrift{}
	}
	respond(w, http.StatusOK, drifts)
}

// =============================================================================
// USERS (admin only)
// =============================================================================

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Ledger.ListUsers(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, users)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Password == "" {
		respond(w, http.StatusUnprocessableEntity, errorResponse{Error: "password must not be empty"})
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondErr(w, err)
		return
	}
	id, err := h.Ledger.CreateUser(r.Context(), actorID(r), req.Username, hash, req.Role)
	if err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusCreated, idResponse{ID: id})
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req passwordRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Password == "" {
		respond(w, http.StatusUnprocessableEntity, errorResponse{Error: "password must not be empty"})
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondErr(w, err)
		return
	}
	if err := h.Ledger.ChangePassword(r.Context(), actorID(r), id, hash); err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, idResponse{ID: id})
}

func (h *Handler) SetUserActive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req activeRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.Ledger.SetUserActive(r.Context(), actorID(r), id, req.Active); err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusOK, idResponse{ID: id})
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Ledger.DeleteUser(r.Context(), actorID(r), id); err != nil {
		respondErr(w, err)
		return
	}
	respond(w, http.StatusNoContent, nil)
}
