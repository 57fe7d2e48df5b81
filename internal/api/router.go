package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nur1kesh/ai-model-marketplace/internal/api/handlers"
	"github.com/nur1kesh/ai-model-marketplace/internal/auth"
	"github.com/nur1kesh/ai-model-marketplace/internal/config"
	"github.com/nur1kesh/ai-model-marketplace/internal/events"
	"github.com/nur1kesh/ai-model-marketplace/internal/middleware"
	"github.com/nur1kesh/ai-model-marketplace/internal/models"
	"github.com/nur1kesh/ai-model-marketplace/internal/services"
)

type RouterDeps struct {
	Cfg     config.Config
	TM      *auth.TokenManager
	UserSvc *services.UserService
	Token   *services.TokenService
	Market  *services.MarketService
	Feed    *events.Feed
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics, middleware.RateLimit(d.Cfg.RateRPS))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", promhttp.Handler())

	authH := handlers.NewAuthHandler(d.UserSvc)
	tokenH := handlers.NewTokenHandler(d.Token)
	marketH := handlers.NewMarketHandler(d.Market)
	eventsH := handlers.NewEventsHandler(d.Feed)
	authMW := middleware.NewAuthMiddleware(d.TM, d.Cfg.Env)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", authH.Register)
		r.Post("/auth/login", authH.Login)
		r.Post("/auth/refresh", authH.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(authMW.Auth)

			r.Route("/token", func(r chi.Router) {
				r.Get("/balance", tokenH.Balance)
				r.Get("/supply", tokenH.Supply)
				r.Get("/last-transaction", tokenH.LastTransaction)
				r.Get("/allowance", tokenH.Allowance)
				r.Get("/transfers", tokenH.Transfers)
				r.Post("/transfer", tokenH.Transfer)
				r.Post("/approve", tokenH.Approve)
				r.Post("/transfer-from", tokenH.TransferFrom)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(models.RoleOwner))
					r.Post("/mint", tokenH.Mint)
					r.Post("/burn", tokenH.Burn)
					r.Post("/burn-treasury", tokenH.BurnTreasury)
				})
			})

			r.Route("/models", func(r chi.Router) {
				r.Get("/", marketH.Catalog)
				r.Post("/", marketH.List)
				r.Get("/count", marketH.Count)
				r.Get("/{id}", marketH.Details)
				r.Post("/{id}/purchase", marketH.Purchase)
				r.Post("/{id}/rate", marketH.Rate)
				r.Delete("/{id}", marketH.Delete)
			})

			r.Route("/market", func(r chi.Router) {
				r.Get("/owner", marketH.Owner)
				r.With(middleware.RequireRole(models.RoleOwner)).Post("/withdraw", marketH.Withdraw)
			})

			r.Get("/events", eventsH.Recent)
		})
	})

	return r
}
