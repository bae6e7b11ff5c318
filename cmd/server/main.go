package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/justweather/just-weather/internal/cities"
	"github.com/justweather/just-weather/internal/config"
	"github.com/justweather/just-weather/internal/eventloop"
	"github.com/justweather/just-weather/internal/fetch"
	"github.com/justweather/just-weather/internal/geocode"
	"github.com/justweather/just-weather/internal/httpapi"
	"github.com/justweather/just-weather/internal/meteo"
	"github.com/justweather/just-weather/internal/observability"
)

func main() {
	// Missing .env is fine; config falls back to YAML and defaults.
	_ = godotenv.Load()

	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	loop := eventloop.New(cfg.UpstreamTimeout, logger)
	bridge := fetch.NewBridgeWithTimeout(loop, loop, cfg.UpstreamTimeout, logger)

	weather := meteo.NewResolver(meteo.Config{
		CacheDir: cfg.WeatherCacheDir,
		CacheTTL: cfg.WeatherCacheTTL,
		UseCache: cfg.WeatherUseCache,
	}, bridge, logger)
	logger.Info("weather resolver ready",
		zap.String("cache_dir", cfg.WeatherCacheDir),
		zap.Duration("cache_ttl", cfg.WeatherCacheTTL),
		zap.Bool("use_cache", cfg.WeatherUseCache))

	cityIndex := cities.NewIndex(cities.Defaults())
	geocoder := geocode.NewResolver(geocode.Config{
		CacheDir:   cfg.GeocodingCacheDir,
		CacheTTL:   cfg.GeocodingCacheTTL,
		UseCache:   cfg.GeocodingUseCache,
		MaxResults: cfg.GeocodingMaxResults,
		Language:   cfg.GeocodingLanguage,
	}, bridge, cityIndex, logger)
	logger.Info("geocoding resolver ready",
		zap.String("cache_dir", cfg.GeocodingCacheDir),
		zap.Duration("cache_ttl", cfg.GeocodingCacheTTL),
		zap.Int("curated_cities", cityIndex.Len()))

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}

	handler := httpapi.NewHandler(weather, geocoder, logger)
	router := httpapi.NewRouter(handler, logger, limiter, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
