package main

import (
	"context"
	"log"
	"time"

	"parcel-tracker/internal/core/cache"
	"parcel-tracker/internal/core/config"
	"parcel-tracker/internal/core/credentials"
	"parcel-tracker/internal/core/httpclient"
	"parcel-tracker/internal/core/logger"
	"parcel-tracker/internal/core/server"
	parcelhandler "parcel-tracker/internal/features/parcels/handler"
	parcelservice "parcel-tracker/internal/features/parcels/service"
	"parcel-tracker/internal/features/parcels/store"
	settingshandler "parcel-tracker/internal/features/settings/handler"
	trackingdomain "parcel-tracker/internal/features/tracking/domain"
	trackinghandler "parcel-tracker/internal/features/tracking/handler"
	"parcel-tracker/internal/features/tracking/ports"
	provider "parcel-tracker/internal/features/tracking/providers"
	"parcel-tracker/internal/features/tracking/scraper"
	trackingservice "parcel-tracker/internal/features/tracking/service"

	"go.uber.org/zap"
)

// @title Parcel Tracker API
// @version 1.0
// @description Normalizes parcel tracking data from multiple providers into one timeline.
// @license.name MIT
// @host localhost:8080
// @BasePath /
func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	l := logger.Get()
	l.Info("Application starting",
		zap.String("environment", cfg.Environment),
		zap.String("log_level", cfg.LogLevel),
	)

	// Storage
	parcelStore, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		l.Fatal("Failed to open parcel store", zap.Error(err))
	}
	defer parcelStore.Close()

	// Cache is optional: without it the sync cooldown is disabled.
	var syncCache cache.Cache
	if cfg.Redis.URL != "" {
		redisCache, err := cache.NewRedisAdapter(cfg.Redis.URL)
		if err != nil {
			l.Warn("Cache unavailable, sync cooldown disabled", zap.Error(err))
		} else {
			defer redisCache.Close()
			if err := redisCache.Ping(context.Background()); err != nil {
				l.Warn("Cache unreachable, sync cooldown disabled", zap.Error(err))
			} else {
				syncCache = redisCache
			}
		}
	}

	// Credentials
	credStore := credentials.NewKeyringStore(cfg.Credentials.Dir)

	// Tracking providers
	httpc := httpclient.NewClient(30 * time.Second)
	syncProviders := []ports.SyncProvider{
		provider.NewTrackingmoreProvider(cfg.Providers.TrackingmoreURL, httpc),
		provider.NewTrack123Provider(cfg.Providers.Track123URL, httpc),
	}

	activeProvider := trackingdomain.Provider(cfg.Sync.ActiveProvider)
	if !activeProvider.Valid() {
		l.Fatal("Unknown active provider", zap.String("provider", cfg.Sync.ActiveProvider))
	}

	// Services & Handlers
	syncSvc := trackingservice.NewSyncService(
		parcelStore,
		credStore,
		syncProviders,
		scraper.NewRodSource(),
		syncCache,
		time.Duration(cfg.Sync.CooldownSeconds)*time.Second,
	)
	trackingHdl := trackinghandler.NewTrackingHandler(syncSvc, activeProvider)

	parcelSvc := parcelservice.NewParcelService(parcelStore)
	parcelHdl := parcelhandler.NewParcelHandler(parcelSvc)

	credentialsHdl := settingshandler.NewCredentialsHandler(credStore)

	srv := server.New(cfg)

	// Register Routes
	srv.App.Post("/parcels", parcelHdl.Create)
	srv.App.Get("/parcels", parcelHdl.List)
	srv.App.Post("/parcels/parse", parcelHdl.Parse)
	srv.App.Get("/parcels/:id", parcelHdl.Get)
	srv.App.Patch("/parcels/:id/archive", parcelHdl.Archive)
	srv.App.Delete("/parcels/:id", parcelHdl.Delete)

	srv.App.Post("/sync", trackingHdl.Sync)
	srv.App.Get("/parcels/:id/events", trackingHdl.Events)
	srv.App.Post("/parcels/:id/scrape", trackingHdl.Scrape)

	srv.App.Put("/settings/credentials/:provider", credentialsHdl.Set)
	srv.App.Delete("/settings/credentials/:provider", credentialsHdl.Delete)

	if err := srv.Run(); err != nil {
		l.Fatal("Server failed to start", zap.Error(err))
	}
}
