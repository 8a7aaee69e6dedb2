/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the admin frontend

ROUTE GROUPS:
  /api/investors/*        Investor management
  /api/transactions/*     Ledger entries
  /api/financial-years/*  Years, distribution lifecycle, rollover
  /api/distributions/*    Single-distribution rollover
  /api/notifications/*    In-app notifications
  /api/fx/*               Currency conversion
  /api/admin/jobs/*       Background job control
  /api/admin/scenarios/*  Demo data loaders
  /health                 Liveness check

SECURITY NOTE:
  No authentication middleware. The API expects to sit behind a gateway
  that authenticates admins and forwards X-Actor-ID.

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

// NewRouter creates a new router with all routes configured. An empty
// origins list allows any origin.
func NewRouter(h *Handler, origins []string) *chi.Mux {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", ActorHeader},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/investors", func(r chi.Router) {
			r.Get("/", h.ListInvestors)
			r.Post("/", h.CreateInvestor)
			r.Get("/{id}", h.GetInvestor)
			r.Put("/{id}", h.UpdateInvestor)
			r.Delete("/{id}", h.DeleteInvestor)
			r.Get("/{id}/balance", h.GetInvestorBalance)
			r.Get("/{id}/transactions", h.GetInvestorTransactions)
			r.Get("/{id}/profits", h.GetInvestorProfits)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.ListTransactions)
			r.Post("/", h.CreateTransaction)
			r.Get("/{id}", h.GetTransaction)
			r.Put("/{id}", h.UpdateTransaction)
			r.Delete("/{id}", h.DeleteTransaction)
		})

		r.Route("/financial-years", func(r chi.Router) {
			r.Get("/", h.ListFinancialYears)
			r.Post("/", h.CreateFinancialYear)
			r.Post("/execute-auto-rollover", h.ExecuteAutoRollover)
			r.Get("/{id}", h.GetFinancialYear)
			r.Put("/{id}", h.UpdateFinancialYear)
			r.Delete("/{id}", h.DeleteFinancialYear)
			r.Post("/{id}/calculate-distributions", h.CalculateDistributions)
			r.Get("/{id}/distributions", h.GetDistributions)
			r.Get("/{id}/summary", h.GetYearSummary)
			r.Get("/{id}/report", h.GetDistributionReport)
			r.Put("/{id}/approve-distributions", h.ApproveDistributions)
			r.Post("/{id}/rollover-profits", h.RolloverProfits)
			r.Post("/{id}/distribute-profits", h.DistributeProfits)
			r.Put("/{id}/close", h.CloseFinancialYear)
			r.Put("/{id}/auto-rollover", h.SetAutoRollover)
		})

		r.Post("/distributions/{id}/rollover", h.RolloverDistribution)

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", h.ListNotifications)
			r.Put("/{id}/read", h.MarkNotificationRead)
		})

		r.Route("/fx", func(r chi.Router) {
			r.Get("/rate", h.GetRate)
			r.Get("/convert", h.Convert)
		})

		r.Get("/admin/scenarios", h.ListScenarios)
		r.Post("/admin/scenarios/load", h.LoadScenario)

		r.Route("/admin/jobs", func(r chi.Router) {
			r.Get("/", h.ListJobs)
			r.Post("/{name}/{action}", h.JobAction)
		})
	})

	return r
}
