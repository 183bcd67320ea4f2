package main

import (
	"context"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CorrelAid/application_uploader/config"
	"github.com/CorrelAid/application_uploader/handlers"
	"github.com/CorrelAid/application_uploader/inits"
	"github.com/CorrelAid/application_uploader/logging"
	"github.com/CorrelAid/application_uploader/middleware"
	"github.com/CorrelAid/application_uploader/notify"
	"github.com/CorrelAid/application_uploader/operations"
	"github.com/CorrelAid/application_uploader/routines"
	"github.com/CorrelAid/application_uploader/sinks"
	"github.com/CorrelAid/application_uploader/storage"
	"github.com/CorrelAid/application_uploader/submission"
	"github.com/CorrelAid/application_uploader/validators"
	"github.com/gin-gonic/gin"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		stdlog.Fatalf("Error loading .env file: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("Invalid configuration: %v", err)
	}

	logger := logging.New(os.Stderr, cfg.LogFormat, cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	uploader, err := storage.New(ctx, cfg.Storage, logger)
	if err != nil {
		fatal(logger, "configuring storage failed", err)
	}

	client := &http.Client{Timeout: cfg.SubmitTimeout}
	targets, err := sinks.FromConfig(ctx, cfg.Sinks, client)
	if err != nil {
		fatal(logger, "configuring sinks failed", err)
	}

	opts := []submission.Option{submission.WithMaxFileSize(cfg.MaxFileSize)}
	if cfg.Cooldown > 0 {
		db, err := inits.DBInit()
		if err != nil {
			fatal(logger, "creating cooldown registry failed", err)
		}
		registry := operations.NewRegistry(db, cfg.Cooldown, logger)
		go routines.StartCleanupRoutine(ctx, registry, cfg.CooldownCleanupInterval, logger)
		opts = append(opts, submission.WithCooldown(registry))
	}
	if cfg.SendGrid.Enabled() {
		opts = append(opts, submission.WithNotifier(notify.NewMailer(cfg.SendGrid)))
	}
	orchestrator := submission.New(uploader, targets, logger, opts...)

	verifier := validators.NewTurnstileVerifier(cfg.TurnstileSecret, cfg.TestToken, cfg.GinMode == gin.ReleaseMode, nil, logger)
	if !verifier.Enabled() {
		level.Warn(logger).Log("msg", "TURNSTILE_SECRET_KEY not set, captcha verification disabled")
	}

	router := handlers.NewRouter(
		handlers.NewApplyHandler(orchestrator, verifier, cfg.MaxFileSize, logger),
		middleware.CORSMiddleware(cfg.CORSAllowedOrigins),
		middleware.DomainWhitelistMiddleware(cfg.AllowedHosts, logger),
		middleware.RateLimitMiddleware(cfg.RateLimitPerMinute, logger),
	)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	level.Info(logger).Log("msg", "listening", "port", cfg.Port, "sinks", len(targets), "storage", cfg.Storage.Provider)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fatal(logger, "server stopped", err)
	}
}

func fatal(logger log.Logger, msg string, err error) {
	level.Error(logger).Log("msg", msg, "err", err)
	os.Exit(1)
}
