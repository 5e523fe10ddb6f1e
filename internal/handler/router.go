package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	custommiddleware "github.com/mmeshcher/coin-rewards/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса наград.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Get("/ping", h.Ping)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)

		r.Get("/dashboard", h.GetDashboard)

		r.Get("/ads/status", h.GetAdStatus)
		r.Post("/ads/watch", h.WatchAd)

		r.Post("/daily/claim", h.ClaimDaily)

		r.Get("/tasks", h.GetTasks)
		r.Post("/tasks/{id}/start", h.StartTask)
		r.Post("/tasks/{id}/complete", h.CompleteTask)

		r.Get("/withdrawals", h.GetWithdrawals)
		r.Post("/withdrawals", h.Withdraw)
		r.Put("/payout-draft", h.SavePayoutDraft)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
