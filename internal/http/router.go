package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robertarktes/hotel-reservations/internal/auth"
	"github.com/robertarktes/hotel-reservations/internal/observability"
	"github.com/robertarktes/hotel-reservations/internal/rateLimit"
)

func SetupRouter(h *Handlers, logger observability.Logger, rl *rateLimit.RateLimiter, jwtSecret string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)

	authenticated := AuthMiddleware(jwtSecret)
	adminOnly := AuthMiddleware(jwtSecret, auth.RoleAdmin, auth.RoleSuperAdmin)

	r.Group(func(r chi.Router) {
		r.Use(authenticated)
		r.Use(RateLimitMiddleware(rl))
		r.Post("/v1/reservations", h.CreateReservation)
		r.Get("/v1/reservations", h.ListReservations)
		r.Post("/v1/reservations/confirm", h.ConfirmReservation)
		r.Post("/v1/reservations/cancel", h.CancelReservation)
	})

	r.Group(func(r chi.Router) {
		r.Use(adminOnly)
		r.Use(RateLimitMiddleware(rl))
		r.Get("/v1/refunds", h.ListRefunds)
		r.Post("/v1/refunds/review", h.ReviewRefund)
	})

	r.Get("/v1/rooms/{id}/availability", h.RoomAvailability)
	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
