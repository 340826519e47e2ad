package main

import (
	"context"
	"errors"
	"log"
	stdhttp "net/http"
	"os/signal"
	"syscall"

	"shortlink/pkg/cache"
	"shortlink/pkg/config"
	"shortlink/pkg/http"
	"shortlink/pkg/logging"
	"shortlink/pkg/middleware"
	"shortlink/pkg/reaper"
	"shortlink/pkg/service"
	"shortlink/pkg/storage"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.NewLogger(logging.LogLevel(cfg.Log.Level))
	ctx := context.Background()

	// DB pool, constructed once and owned here until shutdown.
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		logger.Error(ctx, "invalid database url", "error", err)
		log.Fatal(err)
	}
	poolCfg.MinConns = cfg.Database.MinConns
	poolCfg.MaxConns = cfg.Database.MaxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		logger.Error(ctx, "database connection failed", "error", err)
		log.Fatal(err)
	}
	defer pool.Close()

	if err := storage.Migrate(ctx, pool); err != nil {
		logger.Error(ctx, "migration failed", "error", err)
		log.Fatal(err)
	}

	// Redis is optional; without it every redirect goes to the store.
	var targetCache cache.TargetCacheInterface
	if cfg.Redis.URL != "" {
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			logger.Error(ctx, "invalid redis url", "error", err)
			log.Fatal(err)
		}
		redisClient := redis.NewClient(opt)
		defer redisClient.Close()
		targetCache = cache.NewTargetCache(redisClient)
	}

	linkStorage := storage.NewPostgresLinkStorage(pool)
	linkService := service.NewLinkService(linkStorage, targetCache, logger, cfg.Links.DefaultTTL)
	handler := http.NewHandler(linkService, logger, cfg.Links.FallbackURL)

	linkReaper := reaper.New(linkStorage, logger, cfg.Reaper.Interval, cfg.Reaper.RunOnStart)
	if err := linkReaper.Start(); err != nil {
		logger.Error(ctx, "reaper start failed", "error", err)
		log.Fatal(err)
	}

	r := chi.NewRouter()
	http.SetupRoutes(r, handler, middleware.APIKeyAuth(cfg.Auth.APIKey, logger))

	server := &stdhttp.Server{
		Addr:    cfg.Server.Addr,
		Handler: r,
	}

	notifyCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info(ctx, "server listening", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			logger.Error(ctx, "server failed", "error", err)
			log.Fatal(err)
		}
	}()

	<-notifyCtx.Done()
	logger.Info(ctx, "shutting down")

	// In-flight requests get the grace window; the pool closes after them.
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "server shutdown failed", "error", err)
	}
	linkReaper.Stop()
	logger.Info(ctx, "server stopped")
}
