package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkpublisher/showcase/config"
	"github.com/mkpublisher/showcase/internal/bootstrap"
	"github.com/mkpublisher/showcase/internal/catalog"
	"github.com/mkpublisher/showcase/internal/logging"
	"github.com/mkpublisher/showcase/internal/realtime"
	"github.com/mkpublisher/showcase/internal/session"
)

const serviceName = "mk-publisher"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info", "").WithError(err).Fatal("invalid configuration")
	}

	log := logging.New(cfg.App.LogLevel, cfg.App.Environment)
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var db *pgxpool.Pool
	if cfg.Remote.Tables == config.TablesPostgres {
		db, err = bootstrap.OpenDB(ctx, bootstrap.DBOptions{
			DSN:      cfg.Database.DSN,
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
		})
		if err != nil {
			log.WithError(err).Fatal("database unavailable")
		}
		defer db.Close()
	}

	rdb, err := bootstrap.OpenRedis(ctx, bootstrap.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.WithError(err).Fatal("redis unavailable")
	}
	defer rdb.Close()

	backend, err := bootstrap.NewBackend(cfg.Remote, db, log)
	if err != nil {
		log.WithError(err).Fatal("remote backend")
	}
	verifier, err := bootstrap.NewVerifier(cfg.Remote, backend)
	if err != nil {
		log.WithError(err).Fatal("token verifier")
	}

	secret := cfg.Session.Secret
	if secret == "" {
		secret = uuid.NewString()
		log.Warn("SESSION_SECRET not set; sessions will not survive a restart")
	}
	sessions := session.NewManager(
		session.NewCookies(secret, strings.HasPrefix(cfg.Server.BaseURL, "https://"), int(cfg.Session.TTL.Seconds())),
		session.NewStore(rdb, cfg.Session.TTL),
		session.NewNotifier(rdb, log),
		backend.Auth,
		log,
	)

	cat := catalog.New()
	hub := realtime.NewHub(backend, cat, log)
	if err := hub.Mount(ctx); err != nil {
		log.WithError(err).Warn("catalog mounted with errors")
	}

	router, err := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: serviceName,
		Version:     cfg.App.Version,
		BaseURL:     cfg.Server.BaseURL,
		CORSOrigins: cfg.Server.CORSOrigins,
		Log:         log,
		DB:          db,
		Redis:       rdb,
		Backend:     backend,
		Verifier:    verifier,
		Sessions:    sessions,
		Catalog:     cat,
		Hub:         hub,
	})
	if err != nil {
		log.WithError(err).Fatal("build router")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	// closing the hub ends the open event streams so Shutdown can drain
	if err := hub.Unmount(); err != nil {
		log.WithError(err).Warn("unsubscribe failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}
