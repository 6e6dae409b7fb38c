package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/regionsvc/region-api/internal/config"
	"github.com/regionsvc/region-api/internal/handler"
	preferenceHandler "github.com/regionsvc/region-api/internal/handler/preference"
	regionHandler "github.com/regionsvc/region-api/internal/handler/region"
	"github.com/regionsvc/region-api/internal/middleware"
	"github.com/regionsvc/region-api/internal/repository"
	"github.com/regionsvc/region-api/internal/repository/memory"
	"github.com/regionsvc/region-api/internal/repository/postgres"
	"github.com/regionsvc/region-api/internal/repository/redis"
	"github.com/regionsvc/region-api/internal/router"
	"github.com/regionsvc/region-api/internal/service/detection"
	"github.com/regionsvc/region-api/internal/service/geofence"
	"github.com/regionsvc/region-api/internal/service/preference"
	"github.com/regionsvc/region-api/internal/service/probe"
	"github.com/regionsvc/region-api/internal/service/timezone"
	"github.com/regionsvc/region-api/pkg/logger"
	"github.com/regionsvc/region-api/pkg/metrics"
	"github.com/regionsvc/region-api/pkg/validator"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.New(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Pretty:     cfg.Log.Pretty,
	})
	log.Logger = appLogger

	if err := validator.Register(); err != nil {
		log.Fatal().Err(err).Msg("failed to register request validations")
	}

	store, cleanup, err := newStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Store.Backend).Msg("failed to initialize store")
	}
	defer cleanup()

	m := metrics.NewMetrics("region_api")

	// Detection waterfall: cache, timezone, racing network probe,
	// static default.
	cache := detection.NewCache(store, cfg.Detection.CacheTTL, m, appLogger)
	network := probe.NewNetworkProbe(cfg.Detection.Providers, cfg.Detection.NetworkTimeout, m, appLogger)
	detectionSvc := detection.NewService(cache, timezone.New(), nil, network, m, appLogger)

	// Explicit-coordinate classification; no platform location provider
	// on the server, so only DetectAt is reachable.
	geoProbe := probe.NewGeoProbe(nil, geofence.New(appLogger), cfg.Detection.GeolocationTimeout, appLogger)

	prefSvc := preference.NewService(store, detectionSvc, m, appLogger)
	reconciler := preference.NewReconciler(prefSvc, detectionSvc, cfg.Detection.MismatchCooldown, m, appLogger)

	h := handler.NewHandler()
	regionH := regionHandler.NewHandler(detectionSvc, geoProbe)
	prefH := preferenceHandler.NewHandler(prefSvc, reconciler)

	r := router.NewRouter(regionH, prefH, h, router.RouterConfig{
		RateLimit:     float64(cfg.Server.RateLimit),
		RateBurst:     cfg.Server.RateBurst,
		CORSConfig:    middleware.DefaultCORSConfig(),
		MetricsPrefix: "region_api",
	})
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	// Warm the detection cache so the first client request hits tier 1.
	go detectionSvc.PreDetect(context.Background())

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Server.Port).Msg("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}

func newStore(cfg *config.Config) (repository.KVStore, func(), error) {
	switch cfg.Store.Backend {
	case "redis":
		store, err := redis.NewStore(cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case "postgres":
		db, err := postgres.NewDB(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		store, err := postgres.NewStore(db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, func() { _ = db.Close() }, nil
	default:
		return memory.NewStore(), func() {}, nil
	}
}
