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
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/books/*       Book catalog
  /api/authors/*     Authors and payments
  /api/sales/*       Sale line items and royalties
  /api/scenarios/*   Demo scenarios

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Book routes
		r.Route("/books", func(r chi.Router) {
			r.Get("/", h.ListBooks)
			r.Post("/", h.CreateBook)
			r.Get("/{id}", h.GetBook)
			r.Patch("/{id}", h.UpdateBook)
			r.Delete("/{id}", h.DeleteBook)
			r.Get("/{id}/sales/totals", h.GetBookSalesTotals)
		})

		// Author routes
		r.Route("/authors", func(r chi.Router) {
			r.Get("/", h.ListAuthors)
			r.Post("/", h.CreateAuthor)
			r.Get("/payments", h.GetAuthorPayments)
			r.Get("/{id}/unpaid/subtotal", h.GetAuthorUnpaidSubtotal)
			r.Post("/{id}/pay_unpaid_sales", h.PayAuthorUnpaidSales)
		})

		// Sale routes
		r.Route("/sales", func(r chi.Router) {
			r.Get("/", h.ListSales)
			r.Post("/", h.CreateSale)
			r.Post("/bulk", h.CreateSalesBulk)
			r.Get("/{id}", h.GetSale)
			r.Post("/{id}", h.UpdateSale)
			r.Delete("/{id}", h.DeleteSale)
			r.Post("/{id}/pay_authors", h.PaySaleAuthors)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
