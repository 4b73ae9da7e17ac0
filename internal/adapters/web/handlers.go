// Package web is the HTTP adapter: routing, authentication, and translation
// between JSON requests and the application services.
package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"station-backoffice/internal/app"
)

const defaultBodyLimit = 1 << 20 // 1 MB

type Server struct {
	app       *app.ApplicationService
	logger    *zap.Logger
	jwtSecret []byte
}

func NewServer(app *app.ApplicationService, logger *zap.Logger, jwtSecret []byte) *Server {
	return &Server{app: app, logger: logger, jwtSecret: jwtSecret}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(corsHeaders)

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(requestBodyLimit(defaultBodyLimit))
		r.Post("/api/auth/login", s.handleLogin)
		r.Post("/api/auth/logout", s.handleLogout)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Get("/api/auth/me", s.handleMe)

		// Bulk import takes file uploads, so it gets its own body limit.
		r.Group(func(r chi.Router) {
			r.Use(requestBodyLimit(importBodyLimit))
			r.Post("/api/bulk-import", s.handleImport)
		})

		r.Group(func(r chi.Router) {
			r.Use(requestBodyLimit(defaultBodyLimit))

			r.Get("/api/bulk-import/template", s.handleImportTemplate)

			r.Get("/api/sales", s.handleListSales)
			r.Post("/api/sales", s.handleCreateSale)
			r.Get("/api/sales/{id}", s.handleGetSale)
			r.Delete("/api/sales/{id}", s.handleDeleteSale)

			r.Get("/api/purchase-orders", s.handleListPOs)
			r.Post("/api/purchase-orders", s.handleCreatePO)
			r.Get("/api/purchase-orders/{id}", s.handleGetPO)
			r.Put("/api/purchase-orders/{id}", s.handleUpdatePO)
			r.Delete("/api/purchase-orders/{id}", s.handleDeletePO)
			r.Post("/api/purchase-orders/{id}/approve", s.handleApprovePO)
			r.Post("/api/purchase-orders/{id}/deliver", s.handleDeliverPO)
			r.Post("/api/purchase-orders/{id}/cancel", s.handleCancelPO)

			r.Get("/api/dashboard", s.handleDashboard)

			r.Get("/api/tanks", s.handleListTanks)
			r.Post("/api/tanks", s.handleCreateTank)
			r.Get("/api/tanks/{id}/movements", s.handleTankMovements)
			r.Get("/api/tanks/{id}/reconcile", s.handleTankReconcile)
			r.Post("/api/tanks/{id}/adjust", s.handleTankAdjust)

			r.Get("/api/customers", s.handleListCustomers)
			r.Post("/api/customers", s.handleCreateCustomer)
			r.Post("/api/customers/{id}/payments", s.handleCustomerPayment)

			r.Get("/api/suppliers", s.handleListSuppliers)
			r.Post("/api/suppliers", s.handleCreateSupplier)
			r.Post("/api/suppliers/{id}/payments", s.handleSupplierPayment)

			r.Get("/api/products", s.handleListProducts)
			r.Post("/api/products", s.handleCreateProduct)
			r.Put("/api/products/{id}/price", s.handleUpdatePrice)
			r.Get("/api/products/{id}/price-history", s.handlePriceHistory)

			r.Get("/api/expenses", s.handleListExpenses)
			r.Post("/api/expenses", s.handleCreateExpense)

			r.Get("/api/accounts/trial-balance", s.handleTrialBalance)
			r.Post("/api/journal-entries", s.handlePostEntry)
			r.Post("/api/journal-entries/validate", s.handleValidateEntry)
		})
	})

	return r
}

// idParam reads the {id} route parameter.
func idParam(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// stationQuery reads an optional stationId query parameter.
func stationQuery(r *http.Request) int {
	id, _ := strconv.Atoi(r.URL.Query().Get("stationId"))
	return id
}
