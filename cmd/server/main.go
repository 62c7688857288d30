package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"dronewatch/internal/drones"
	dronemetrics "dronewatch/internal/drones/metrics"
	pilotmetrics "dronewatch/internal/pilot/metrics"
	"dronewatch/internal/pilot/loader"
	"dronewatch/internal/pilot/registry"
	"dronewatch/internal/platform/config"
	"dronewatch/internal/platform/httpserver"
	"dronewatch/internal/platform/logger"
	"dronewatch/internal/updater"
	"dronewatch/internal/violations/handler"
	"dronewatch/pkg/platform/middleware/requestid"
	"dronewatch/pkg/platform/middleware/requesttime"
)

// main wires high-level dependencies and keeps the process lifecycle
// small. Domain logic lives in the internal packages.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(config.DefaultLogLevel).Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	source, err := drones.NewSource(cfg.SnapshotURL, drones.WithLogger(log))
	if err != nil {
		log.Error("building snapshot source", "error", err)
		os.Exit(1)
	}
	detector, err := drones.NewDetector(cfg.NestX, cfg.NestY, cfg.RadiusMM)
	if err != nil {
		log.Error("building detector", "error", err)
		os.Exit(1)
	}
	load, err := loader.New(cfg.PilotBaseURL, cfg.Retention, loader.WithLogger(log))
	if err != nil {
		log.Error("building pilot loader", "error", err)
		os.Exit(1)
	}
	reg, err := registry.New(load,
		registry.WithLogger(log),
		registry.WithMetrics(pilotmetrics.New()),
	)
	if err != nil {
		log.Error("building registry", "error", err)
		os.Exit(1)
	}
	upd, err := updater.New(source, detector, reg, cfg.PollInterval,
		updater.WithLogger(log),
		updater.WithMetrics(dronemetrics.New()),
	)
	if err != nil {
		log.Error("building updater", "error", err)
		os.Exit(1)
	}

	router := chi.NewRouter()
	router.Use(requestid.Middleware)
	router.Use(requesttime.Middleware)
	handler.New(reg, source, log).Register(router)
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return upd.Run(ctx)
	})
	g.Go(func() error {
		log.Info("starting dronewatch", "addr", cfg.Addr, "snapshotURL", cfg.SnapshotURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("dronewatch exited", "error", err)
		os.Exit(1)
	}
	log.Info("dronewatch stopped")
}
