package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prodair/fieldinstall/internal/capture"
	"github.com/prodair/fieldinstall/internal/config"
	"github.com/prodair/fieldinstall/internal/db"
	"github.com/prodair/fieldinstall/internal/export"
	"github.com/prodair/fieldinstall/internal/geo"
	"github.com/prodair/fieldinstall/internal/logging"
	"github.com/prodair/fieldinstall/internal/metrics"
	"github.com/prodair/fieldinstall/internal/photostore"
	"github.com/prodair/fieldinstall/internal/photostore/local"
	"github.com/prodair/fieldinstall/internal/service"
	"github.com/prodair/fieldinstall/internal/store"
	"github.com/prodair/fieldinstall/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var blobs store.BlobStore
	if cfg.TestMode {
		logger.Warn("test mode: records are kept in memory only")
		blobs = store.NewMemoryBlobStore()
	} else {
		database, err := db.Open(cfg.DBPath)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			return
		}
		defer func() {
			if err := database.Close(); err != nil {
				logger.Error("failed to close database", "error", err)
			}
		}()
		blobs = store.NewSQLiteBlobStore(database)
	}

	installationStore := store.NewInstallationStore(blobs, logger)
	sessionStore := store.NewSessionStore(blobs, logger)

	var photoStg photostore.PhotoStore
	if cfg.PhotoAutoSave {
		lps, err := local.NewLocalPhotoStore(cfg.PhotoPath)
		if err != nil {
			logger.Error("failed to initialize photo store", "error", err)
			return
		}
		photoStg = lps
	}

	photos := capture.NewSession(capture.Options{
		MaxEdge:   cfg.PhotoMaxEdge,
		MaxPixels: cfg.PhotoMaxPixels,
		Quality:   cfg.PhotoJPEGQuality,
		Location:  cfg.Location,
	}, photoStg, logger)

	tracker := geo.NewTracker(newGeoProvider(cfg, logger), geo.Options{
		Timeout:      cfg.GeoTimeout,
		MaxCacheAge:  cfg.GeoMaxAge,
		HighAccuracy: cfg.GeoHighAccuracy,
	}, logger)

	formatter, err := export.NewFormatter(cfg.Location, cfg.ShareRecipient, cfg.ShareRegion)
	if err != nil {
		logger.Error("failed to configure share recipient", "error", err)
		return
	}

	m := metrics.New()
	installationService := service.NewInstallationService(installationStore, photos, tracker, cfg.Zones, m, logger)
	sessionService := service.NewSessionService(sessionStore, logger)

	if _, err := sessionService.Restore(ctx); err != nil {
		logger.Error("failed to restore session", "error", err)
	}

	// First fix in the background, as the form does on open.
	go func() {
		if _, err := installationService.RefreshLocation(ctx); err != nil {
			logger.Warn("initial location unavailable", "error", err)
		}
	}()

	server := web.NewServer(installationService, sessionService, formatter, m, logger)
	if err := server.ListenAndServe(ctx, cfg.ListenAddr); err != nil {
		logger.Error("server error", "error", err)
	}
}

func newGeoProvider(cfg *config.Config, logger *slog.Logger) geo.Provider {
	switch cfg.GeoBackend {
	case "static":
		logger.Info("using static position", "lat", cfg.GeoStaticLat, "lng", cfg.GeoStaticLng)
		return &geo.Static{
			Latitude:  cfg.GeoStaticLat,
			Longitude: cfg.GeoStaticLng,
			Accuracy:  cfg.GeoStaticAcc,
		}
	case "none":
		logger.Info("geolocation disabled")
		return geo.Unavailable{}
	default:
		logger.Info("using gpsd position source", "addr", cfg.GPSDAddr)
		return geo.NewCached(geo.NewGPSD(cfg.GPSDAddr, logger))
	}
}
