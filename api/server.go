/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the desktop UI shell

AUTHENTICATION:
  POST /api/login is the only public endpoint. Every other route sits
  behind the bearer-token middleware, which resolves the acting operator
  on each request. User administration additionally requires the admin
  role.

ROUTE GROUPS:
  /api/products/*       Catalog and categories
  /api/sales/*          Sale registration and lookups
  /api/returns/*        Returns and refunds
  /api/debtors/*        Credit ledger and payments
  /api/suppliers/*      Supplier registry
  /api/purchases/*      Stock receiving
  /api/closings/*       Cash closings
  /api/reports/*        Profit, top products, return stats
  /api/audit            Recent audit trail
  /api/diagnostics/*    Balance reconciliation
  /api/users/*          User administration (admin only)

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/verzalex4-ai/sistema-ventas/auth"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigin string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{allowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/login", h.Login)

		// Everything past this point needs a valid token.
		r.Group(func(r chi.Router) {
			r.Use(h.Auth.Middleware)

			// Catalog routes
			r.Route("/products", func(r chi.Router) {
				r.Get("/", h.ListProducts)
				r.Post("/", h.CreateProduct)
				r.Get("/code/{code}", h.GetProductByCode)
				r.Get("/{id}", h.GetProduct)
				r.Put("/{id}", h.UpdateProduct)
				r.Delete("/{id}", h.DeactivateProduct)
			})
			r.Route("/categories", func(r chi.Router) {
				r.Get("/", h.ListCategories)
				r.Post("/", h.CreateCategory)
				r.Delete("/{id}", h.DeleteCategory)
			})

			// Sale routes
			r.Route("/sales", func(r chi.Router) {
				r.Get("/", h.ListSales)
				r.Post("/", h.RegisterSale)
				r.Get("/{id}", h.GetSale)
				r.Get("/{id}/returns", h.SaleReturns)
				r.Get("/{id}/payments", h.SalePayments)
			})
			r.Route("/returns", func(r chi.Router) {
				r.Get("/", h.ListReturns)
				r.Post("/", h.RegisterReturn)
				r.Get("/{id}", h.GetReturn)
			})

			// Credit ledger routes
			r.Route("/debtors", func(r chi.Router) {
				r.Get("/", h.ListDebtors)
				r.Post("/", h.CreateDebtor)
				r.Get("/{id}", h.GetDebtor)
				r.Put("/{id}", h.UpdateDebtor)
				r.Delete("/{id}", h.DeleteDebtor)
				r.Post("/{id}/payments", h.RegisterPayment)
			})

			// Receiving routes
			r.Route("/suppliers", func(r chi.Router) {
				r.Get("/", h.ListSuppliers)
				r.Post("/", h.CreateSupplier)
				r.Get("/{id}", h.GetSupplier)
				r.Put("/{id}", h.UpdateSupplier)
				r.Post("/{id}/deactivate", h.DeactivateSupplier)
				r.Delete("/{id}", h.DeleteSupplier)
			})
			r.Route("/purchases", func(r chi.Router) {
				r.Get("/", h.ListPurchases)
				r.Post("/", h.RegisterPurchase)
				r.Get("/{id}", h.GetPurchase)
			})

			// Cash closing routes
			r.Route("/closings", func(r chi.Router) {
				r.Get("/", h.ListClosings)
				r.Post("/", h.RegisterClosing)
				r.Get("/status", h.ClosingStatus)
				r.Get("/{id}", h.GetClosing)
			})

			// Reporting routes
			r.Route("/reports", func(r chi.Router) {
				r.Get("/profit", h.ProfitReport)
				r.Get("/profit/products", h.ProfitByProduct)
				r.Get("/top-products", h.TopProducts)
				r.Get("/returns", h.ReturnStats)
			})
			r.Get("/audit", h.RecentAudit)
			r.Get("/diagnostics/balances", h.VerifyBalances)

			// User administration
			r.Route("/users", func(r chi.Router) {
				r.Use(auth.RequireAdmin)
				r.Get("/", h.ListUsers)
				r.Post("/", h.CreateUser)
				r.Put("/{id}/password", h.ChangePassword)
				r.Put("/{id}/active", h.SetUserActive)
				r.Delete("/{id}", h.DeleteUser)
			})
		})
	})

	return r
}
