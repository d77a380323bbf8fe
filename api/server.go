/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

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
  /api/professionals/*  Professional accounts, balances, abonos
  /api/patients/*       Patient records
  /api/appointments/*   Appointment lifecycle and reconciliation
  /api/requests/*       Change request approval workflow
  /api/dashboard/*      Aggregate views
  /api/activity/*       Activity feed
  /api/reset            Database reset (dev only)

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
// allowedOrigins feeds the CORS middleware; an empty slice means the
// localhost development defaults.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Professional routes
		r.Route("/professionals", func(r chi.Router) {
			r.Get("/", h.ListProfessionals)
			r.Post("/", h.CreateProfessional)
			r.Get("/{id}", h.GetProfessional)
			r.Put("/{id}/commission", h.UpdateCommission)
			r.Get("/{id}/balance", h.GetBalance)
			r.Get("/{id}/statement", h.GetStatement)
			r.Get("/{id}/abonos", h.ListAbonos)
			r.Post("/{id}/abonos", h.RecordAbono)
		})

		// Patient routes
		r.Route("/patients", func(r chi.Router) {
			r.Get("/", h.ListPatients)
			r.Post("/", h.CreatePatient)
			r.Get("/{id}", h.GetPatient)
		})

		// Appointment routes
		r.Route("/appointments", func(r chi.Router) {
			r.Post("/", h.CreateAppointment)
			r.Get("/{id}", h.GetAppointment)
			r.Post("/{id}/complete", h.CompleteAppointment)
			r.Post("/{id}/cancel", h.CancelAppointment)
			r.Delete("/{id}", h.DeleteAppointment)
		})

		// Change request approval routes
		r.Route("/requests", func(r chi.Router) {
			r.Post("/", h.CreateChangeRequest)
			r.Get("/pending", h.ListPendingRequests)
			r.Post("/{id}/approve", h.ApproveRequest)
			r.Post("/{id}/reject", h.RejectRequest)
		})

		// Dashboard routes
		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/debt", h.GetDebtSummary)
		})

		// Activity feed routes
		r.Route("/activity", func(r chi.Router) {
			r.Get("/", h.ListActivity)
			r.Get("/unread-count", h.GetUnreadCount)
			r.Post("/{id}/read", h.MarkActivityRead)
			r.Post("/read-all", h.MarkAllActivityRead)
			r.Delete("/", h.ClearActivity)
		})

		// Dev/demo only
		r.Post("/reset", h.ResetDatabase)
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
