package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kogma/db"
	"kogma/db/migrations"
	"kogma/internal/auth"
	"kogma/internal/config"
	"kogma/internal/events"
	"kogma/internal/handlers"
	"kogma/internal/mailer"
	"kogma/internal/ratelimit"
	"kogma/internal/service"
	"kogma/internal/tracing"
	"kogma/internal/validators"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := config.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, log, cfg.Tracing)
	if err != nil {
		return err
	}

	conn, err := db.Open(ctx, cfg.DBDriver, cfg.DSN, db.PoolConfig{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := migrations.Run(ctx, conn.DB, cfg.DBDriver, log); err != nil {
		return err
	}
	store := db.NewStorage(conn)

	tokens, err := auth.NewTokenManager(cfg.JWTSecret, "", cfg.JWTExpiresIn)
	if err != nil {
		return err
	}
	validate := validators.New(cfg.StrictCNPJ)

	var mail mailer.Mailer = mailer.Log{Logger: log}
	if cfg.SMTP.Enabled() {
		mail = mailer.SMTP{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			User:     cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}
	} else {
		log.Warn("SMTP not configured, reset links will only be logged")
	}

	hub := events.NewHub(log)
	go hub.Run()
	defer hub.Stop()

	notifiers := events.Fanout{hub}
	if cfg.RabbitURI != "" {
		pub, err := events.NewPublisher(cfg.RabbitURI, cfg.RabbitQueue)
		if err != nil {
			return err
		}
		defer pub.Close()
		notifiers = append(notifiers, pub)
		log.Info("publishing order events", "queue", cfg.RabbitQueue)
	}

	var limiter ratelimit.Limiter
	if cfg.RedisURL != "" {
		rdb, err := ratelimit.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		limiter = ratelimit.NewRedis(rdb, "kogma:rl:", 10, time.Minute)
	} else {
		mem := ratelimit.NewMemory(10, time.Minute)
		defer mem.Stop()
		limiter = mem
	}

	authSvc := service.NewAuth(store, tokens, mail, validate, cfg.FrontendBaseURL, cfg.FrontendResetPath, log)
	if cfg.AdminEmail != "" {
		if err := authSvc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return err
		}
	}

	h := handlers.NewHandler(handlers.Services{
		Companies: service.NewCompanies(store, validate, cfg.StrictCNPJ, log),
		Orders:    service.NewOrders(store, validate, notifiers, log),
		Auth:      authSvc,
		Users:     service.NewUsers(store, validate, log),
	}, store, log)

	router := handlers.NewRouter(h, handlers.RouterConfig{
		Auth:        auth.NewMiddleware(tokens, store, log),
		Limiter:     limiter,
		CORSOrigins: cfg.CORSOrigins,
		Hub:         hub,
		Logger:      log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           otelhttp.NewHandler(router, cfg.Tracing.ServiceName),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", srv.Addr, "driver", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", "err", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown", "err", err)
	}
	return nil
}
