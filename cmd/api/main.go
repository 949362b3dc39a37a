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

	"github.com/geocoder89/blogapi/internal/auth"
	"github.com/geocoder89/blogapi/internal/cache"
	"github.com/geocoder89/blogapi/internal/config"
	"github.com/geocoder89/blogapi/internal/db"
	httpx "github.com/geocoder89/blogapi/internal/http"
	"github.com/geocoder89/blogapi/internal/mail"
	"github.com/geocoder89/blogapi/internal/observability"
	"github.com/geocoder89/blogapi/internal/repo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, "blog-api", cfg.OTLPEndpoint)
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}
	defer func() {
		tctx, cancel := config.WithTimeout(5 * time.Second)
		defer cancel()
		_ = shutdownTracer(tctx)
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	stores, err := repo.Open(ctx, cfg, prom)
	if err != nil {
		log.Error("store open failed", "driver", cfg.StoreDriver, "err", err)
		os.Exit(1)
	}
	defer stores.Close()

	applied, err := stores.Migrate(ctx)
	if err != nil {
		log.Error("migrations failed", "err", err)
		os.Exit(1)
	}
	if len(applied) > 0 {
		log.Info("migrations applied", "files", applied)
	}

	created, err := db.EnsureAdminUser(ctx, stores.Users, cfg)
	if err != nil {
		log.Error("admin bootstrap failed", "err", err)
		os.Exit(1)
	}
	if created {
		log.Info("admin user created", "email", cfg.AdminEmail)
	}

	var store cache.Store = cache.New(cfg.CacheTTL)
	if cfg.RedisAddr != "" {
		rc := cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, cfg.CacheTTL, log)
		defer rc.Close()

		if err := rc.Ping(ctx); err != nil {
			// misses until redis comes back
			log.Warn("redis unreachable at startup", "addr", cfg.RedisAddr, "err", err)
		}
		store = rc
	}

	var mailer mail.Mailer = mail.NewLogMailer(log)
	if cfg.MailHost != "" {
		smtp, err := mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     cfg.MailHost,
			Port:     cfg.MailPort,
			Username: cfg.MailUsername,
			Password: cfg.MailPassword,
			From:     cfg.MailFrom,
		})
		if err != nil {
			log.Error("smtp setup failed", "err", err)
			os.Exit(1)
		}
		mailer = smtp
	}
	mailer = mail.NewProtectedMailer(mailer, mail.ProtectedMailerConfig{
		Timeout:          10 * time.Second,
		FailureThreshold: 3,
		Cooldown:         30 * time.Second,
	})

	router := httpx.NewRouter(httpx.Deps{
		Config:     cfg,
		Log:        log,
		Users:      stores.Users,
		Posts:      stores.Posts,
		Categories: stores.Categories,
		Tokens:     auth.NewManager(cfg.JWTSecret, cfg.JWTTTL),
		Mailer:     mailer,
		Cache:      store,
		Prom:       prom,
		Metrics:    promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Ping:       stores.Ping,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "driver", stores.Driver)
		err := srv.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	log.Info("server shutting down")

	shutdownCtx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
		return
	}

	log.Info("shutdown complete")
}
