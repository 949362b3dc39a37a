package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/blogapi/internal/config"
	"github.com/geocoder89/blogapi/internal/observability"
	"github.com/geocoder89/blogapi/internal/repo"
	"github.com/geocoder89/blogapi/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg := config.Load()
	log := observability.NewLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	prom := observability.NewProm(prometheus.DefaultRegisterer)

	stores, err := repo.Open(ctx, cfg, prom)
	if err != nil {
		log.Error("store open failed", "err", err)
		os.Exit(1)
	}
	defer stores.Close()

	if stores.Pool == nil {
		// the memory driver has nothing shared to sweep
		log.Warn("worker started with the memory driver; sweeps only this process")
	}

	s := worker.New(worker.Config{Interval: cfg.SweepInterval}, stores.Users, log).
		WithObserver(prom)

	healthSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port+1),
		Handler:           s.HealthHandler(stores.Ping),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := healthSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("worker health server failed", "err", err)
		}
	}()

	log.Info("worker has started", "health_addr", healthSrv.Addr)

	if err := s.Run(ctx); err != nil {
		log.Error("worker stopped with error", "err", err)
	}

	shutdownCtx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()
	_ = healthSrv.Shutdown(shutdownCtx)

	log.Info("worker shutdown complete")
}
