/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client IP behind proxies
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. RequestLogger: Structured request logging via logrus
  5. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/cotizaciones/*    Quotations (incl. spreadsheet import)
  /api/ordenes-compra/*  Purchase orders
  /api/asistencias/*     Attendance batches
  /api/productos         Product catalog
  /api/empleados/*       Employees and their attendance history

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/anta/backoffice/documents"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(h.log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Quotation routes
		r.Route("/cotizaciones", func(r chi.Router) {
			r.Get("/", h.ListDocuments(documents.TypeQuotation))
			r.Post("/", h.CreateDocument(documents.TypeQuotation))
			r.Post("/importar", h.ImportQuotation)
			r.Get("/{id}", h.GetDocument)
			r.Put("/{id}", h.UpdateDocument)
			r.Delete("/{id}", h.DeleteDocument)
		})

		// Purchase order routes
		r.Route("/ordenes-compra", func(r chi.Router) {
			r.Get("/", h.ListDocuments(documents.TypePurchaseOrder))
			r.Post("/", h.CreateDocument(documents.TypePurchaseOrder))
			r.Get("/{id}", h.GetDocument)
			r.Put("/{id}", h.UpdateDocument)
			r.Delete("/{id}", h.DeleteDocument)
		})

		// Attendance routes
		r.Route("/asistencias", func(r chi.Router) {
			r.Post("/lote", h.ApplyAttendanceBatch)
		})

		// Catalog routes
		r.Route("/productos", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.CreateProduct)
		})
		r.Route("/empleados", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
			r.Get("/{id}/asistencias", h.ListEmployeeAttendance)
		})
	})

	return r
}
