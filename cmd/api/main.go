package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nur1kesh/ai-model-marketplace/internal/api"
	"github.com/nur1kesh/ai-model-marketplace/internal/auth"
	"github.com/nur1kesh/ai-model-marketplace/internal/config"
	"github.com/nur1kesh/ai-model-marketplace/internal/db"
	"github.com/nur1kesh/ai-model-marketplace/internal/events"
	"github.com/nur1kesh/ai-model-marketplace/internal/logger"
	"github.com/nur1kesh/ai-model-marketplace/internal/metrics"
	"github.com/nur1kesh/ai-model-marketplace/internal/models"
	"github.com/nur1kesh/ai-model-marketplace/internal/repository/postgres"
	"github.com/nur1kesh/ai-model-marketplace/internal/services"
	"github.com/nur1kesh/ai-model-marketplace/internal/worker"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if os.Getenv("APP_MIGRATE") != "false" {
		if err := db.RunMigrations(ctx, pool); err != nil {
			log.Error("migrations", "err", err)
			os.Exit(1)
		}
	}

	metrics.Init()
	repos := postgres.NewRepositories(pool)
	wp := worker.NewPool(4)
	defer wp.Stop()
	feed := events.NewFeed(256)

	tm := auth.NewTokenManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.JWTIssuer, 15*time.Minute, 7*24*time.Hour)
	userSvc := services.NewUserService(repos.Users, tm)
	tokenSvc := services.NewTokenService(repos.Accounts, repos.Allowances, repos.Transfers, repos.Users, repos.AuditLogs, feed, wp)

	listingFee, err := models.ParseAmount(cfg.ListingFee)
	if err != nil {
		log.Error("bad MARKET_LISTING_FEE", "err", err)
		os.Exit(1)
	}
	marketSvc := services.NewMarketService(tokenSvc, repos.Listings, repos.Users, repos.AuditLogs, feed, wp, listingFee)

	// First start: create the owner + treasury identities and mint the
	// initial supply to the owner.
	owner, err := userSvc.EnsureSystemUsers(ctx, cfg.OwnerUsername, cfg.OwnerEmail, cfg.OwnerPassword)
	if err != nil {
		log.Error("bootstrap users", "err", err)
		os.Exit(1)
	}
	initial, err := models.ParseAmount(cfg.InitialSupply)
	if err != nil {
		log.Error("bad TOKEN_INITIAL_SUPPLY", "err", err)
		os.Exit(1)
	}
	if err := tokenSvc.Bootstrap(ctx, owner.ID, initial); err != nil {
		log.Error("bootstrap supply", "err", err)
		os.Exit(1)
	}

	r := api.NewRouter(api.RouterDeps{
		Cfg:     cfg,
		TM:      tm,
		UserSvc: userSvc,
		Token:   tokenSvc,
		Market:  marketSvc,
		Feed:    feed,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
