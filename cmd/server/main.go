package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/dharmasatrya/awardsearch/internal/airlines"
	"github.com/dharmasatrya/awardsearch/internal/alert"
	"github.com/dharmasatrya/awardsearch/internal/cache"
	"github.com/dharmasatrya/awardsearch/internal/config"
	"github.com/dharmasatrya/awardsearch/internal/engine"
	"github.com/dharmasatrya/awardsearch/internal/handler"
	"github.com/dharmasatrya/awardsearch/internal/ratelimit"
	"github.com/dharmasatrya/awardsearch/internal/session"
	"github.com/dharmasatrya/awardsearch/internal/strategy"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	sessions, err := session.Open(cfg.Session.Path)
	if err != nil {
		logger.Error("failed to open session store", "path", cfg.Session.Path, "err", err)
		os.Exit(1)
	}
	defer sessions.Close()
	go pruneLoop(sessions, cfg.Session, logger)

	registry := airlines.BuildRegistry(airlines.Config{
		NavigateTimeout: cfg.Browser.NavigateTimeout.Std(),
		CaptureTimeout:  cfg.Browser.CaptureTimeout.Std(),
	}, logger)
	logger.Info("registered airlines", "codes", registry.Codes())

	rateLimiter := ratelimit.NewAirlineLimiterWithDefaults()
	rateLimiter.SetAirlineLimit("delta", 2, 4)
	rateLimiter.SetAirlineLimit("virginatlantic", 1, 2)

	var alerts alert.Sink = alert.Noop{}
	if cfg.AlertWebhook != "" {
		alerts = alert.NewWebhook(cfg.AlertWebhook, logger)
	}

	eng := engine.New(registry, strategy.Deps{
		Sessions: sessions,
	}, alerts, engine.Config{
		Attempts:        cfg.Engine.Attempts,
		StrategyTimeout: cfg.Engine.StrategyTimeout.Std(),
		RateLimiter:     rateLimiter,
	}, logger)

	var offerCache cache.Cache
	if cfg.CacheEnabled {
		redisCache, err := cache.NewRedisCache(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL.Std(),
		})
		if err != nil {
			logger.Error("failed to connect to redis", "err", err)
			os.Exit(1)
		}
		offerCache = redisCache
		logger.Info("redis cache enabled",
			"host", cfg.Redis.Host, "port", cfg.Redis.Port, "ttl", cfg.Redis.TTL)
	} else {
		offerCache = cache.NewNoOpCache()
		logger.Info("cache disabled")
	}
	defer offerCache.Close()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())

	searchHandler := handler.NewSearchHandler(eng, offerCache)

	api := e.Group("/api/v1")
	api.POST("/awards/search", searchHandler.Search)
	e.GET("/health", handler.HealthHandler)

	logger.Info("starting award search server", "port", cfg.Port)
	if err := e.Start(":" + cfg.Port); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

// pruneLoop is the housekeeping job that owns deletion of retired
// credentials; the store's read path never deletes.
func pruneLoop(sessions *session.Store, cfg config.SessionConfig, logger *slog.Logger) {
	ticker := time.NewTicker(cfg.PruneInterval.Std())
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		pruned, err := sessions.PruneInactive(ctx, cfg.PruneMaxAge.Std())
		cancel()
		if err != nil {
			logger.Warn("credential prune failed", "err", err)
			continue
		}
		if pruned > 0 {
			logger.Info("pruned retired credentials", "count", pruned)
		}
	}
}
