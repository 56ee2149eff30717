package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/splitbook/splitbook/internal/auth"
	"github.com/splitbook/splitbook/internal/middleware"
)

// NewRouter assembles the HTTP routing table. Registration and login are
// public; everything else requires a bearer token.
func NewRouter(h *Handler, jwt *auth.JWTManager) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.Logging)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(jwt))

			r.Route("/users", func(r chi.Router) {
				r.Get("/", h.ListUsers)
				r.Delete("/{id}", h.DeleteUser)
				r.Post("/{id}/restore", h.RestoreUser)
				r.Delete("/{id}/purge", h.PurgeUser)
				r.Get("/{id}/audit", h.GetActorAudit)
			})

			r.Route("/groups", func(r chi.Router) {
				r.Post("/", h.CreateGroup)
				r.Get("/", h.ListGroups)
				r.Get("/{id}", h.GetGroup)
				r.Put("/{id}", h.UpdateGroup)
				r.Delete("/{id}", h.DeleteGroup)
				r.Post("/{id}/restore", h.RestoreGroup)
				r.Delete("/{id}/purge", h.PurgeGroup)

				r.Post("/{id}/members", h.AddMember)
				r.Put("/{id}/members/{userID}", h.UpdateMemberRole)
				r.Delete("/{id}/members/{userID}", h.RemoveMember)

				r.Get("/{id}/balances", h.GetBalances)
				r.Get("/{id}/settlement", h.GetSettlementPlan)
				r.Get("/{id}/audit", h.GetGroupAudit)

				r.Post("/{id}/expenses", h.CreateExpense)
				r.Get("/{id}/expenses", h.ListExpenses)
				r.Post("/{id}/payments", h.CreatePayment)
				r.Get("/{id}/payments", h.ListPayments)
			})

			r.Route("/expenses", func(r chi.Router) {
				r.Put("/{id}", h.UpdateExpense)
				r.Get("/{id}/split-check", h.CheckSplit)
				r.Delete("/{id}", h.DeleteExpense)
				r.Post("/{id}/restore", h.RestoreExpense)
				r.Delete("/{id}/purge", h.PurgeExpense)
			})

			r.Route("/payments", func(r chi.Router) {
				r.Delete("/{id}", h.DeletePayment)
				r.Post("/{id}/restore", h.RestorePayment)
				r.Delete("/{id}/purge", h.PurgePayment)
			})

			r.Get("/audit/{entity}/*", h.GetEntityAudit)
		})
	})

	return r
}
