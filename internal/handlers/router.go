package handlers

import (
	"log/slog"
	"net/http"
	"slices"

	"kogma/internal/auth"
	"kogma/internal/events"
	"kogma/internal/metrics"
	"kogma/internal/ratelimit"
	"kogma/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	Auth *auth.Middleware
	// Limiter guards login and password recovery. Nil disables it.
	Limiter     ratelimit.Limiter
	CORSOrigins []string
	// Hub serves the live order feed. Nil disables /ws/orders.
	Hub    *events.Hub
	Logger *slog.Logger
}

func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(metrics.HTTPMetricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.NotFound(h.NotFoundHandler)

	r.Get("/health", h.PingHandler)
	r.Get("/readyz", h.ReadyHandler)
	r.Handle("/metrics", promhttp.Handler())

	limited := func(r chi.Router) chi.Router {
		if cfg.Limiter == nil {
			return r
		}
		return r.With(ratelimit.Middleware(cfg.Limiter, log))
	}
	adminOnly := auth.RequireRole(models.RoleAdmin)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.RegisterHandler)
		limited(r).Post("/login", h.LoginHandler)
		limited(r).Post("/password/recover", h.RecoverPasswordHandler)
		r.Get("/password/check", h.CheckResetTokenHandler)
		r.Post("/password/reset", h.ResetPasswordHandler)

		r.Group(func(r chi.Router) {
			r.Use(cfg.Auth.RequireAuth)
			r.Get("/me", h.MeHandler)
			r.With(adminOnly).Get("/admin-gate", h.AdminGateHandler)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(cfg.Auth.RequireAuth)

		r.Route("/companies", func(r chi.Router) {
			r.Get("/", h.ListCompaniesHandler)
			r.Post("/", h.CreateCompanyHandler)
			r.Get("/{id}", h.GetCompanyHandler)
			r.Patch("/{id}", h.PatchCompanyHandler)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.ListOrdersHandler)
			r.Post("/", h.CreateOrderHandler)
			r.Get("/{id}", h.GetOrderHandler)
			r.Patch("/{id}", h.PatchOrderHandler)
		})

		users := func(r chi.Router) {
			r.Use(adminOnly)
			r.Get("/", h.ListUsersHandler)
			r.Post("/", h.CreateUserHandler)
			r.Patch("/{id}", h.PatchUserHandler)
			r.Put("/{id}", h.PatchUserHandler)
			r.Delete("/{id}", h.DeleteUserHandler)
		}
		r.Route("/users", users)
		r.Route("/admin/users", users)

		if cfg.Hub != nil {
			allowed := func(origin string) bool {
				return slices.Contains(cfg.CORSOrigins, "*") || slices.Contains(cfg.CORSOrigins, origin)
			}
			r.Get("/ws/orders", events.ServeWS(cfg.Hub, allowed, log))
		}
	})

	return r
}
