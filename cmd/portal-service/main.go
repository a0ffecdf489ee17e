package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jesusllicag/gesa-sub000/internal/api"
	"github.com/jesusllicag/gesa-sub000/internal/billing"
	"github.com/jesusllicag/gesa-sub000/internal/config"
	"github.com/jesusllicag/gesa-sub000/internal/db"
	"github.com/jesusllicag/gesa-sub000/internal/gates/pasarela"
	"github.com/jesusllicag/gesa-sub000/internal/notify"
	"github.com/jesusllicag/gesa-sub000/internal/scheduler"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     slog.LevelInfo,
		AddSource: true,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting portal-service", "pid", os.Getpid())

	cfg := config.Load()
	slog.Info("Configuration loaded",
		"db_dsn", cfg.DBDsn,
		"http_addr", cfg.HTTPAddr,
		"pasarela_url", cfg.PasarelaURL,
		"has_bot_token", cfg.BotToken != "",
		"pago_vence_dias", cfg.PagoVenceDias,
	)

	repo, err := db.NewRepository(cfg.DBDsn)
	if err != nil {
		slog.Error("Failed to initialize database repository", "error", err, "dsn", cfg.DBDsn)
		os.Exit(1)
	}

	if err := repo.AutoMigrate(); err != nil {
		slog.Error("Database migration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database migrations completed")

	var notifier notify.Notifier = notify.Noop{}
	if cfg.BotToken != "" && cfg.AdminChatID != "" {
		tg, err := notify.NewTelegram(cfg.BotToken, cfg.AdminChatID)
		if err != nil {
			slog.Error("Failed to create Telegram notifier", "error", err)
			slog.Warn("Continuing without admin notifications")
		} else {
			notifier = tg
			slog.Info("Telegram notifier ready")
		}
	}

	gateway := pasarela.NewClient(pasarela.Config{
		BaseURL:     cfg.PasarelaURL,
		AccessToken: cfg.PasarelaToken,
	})

	clock := billing.SystemClock()
	engine := billing.NewEngine(repo, gateway, notifier, clock)

	sched := scheduler.NewScheduler(repo, notifier, cfg, clock)
	if err := sched.Start(); err != nil {
		slog.Error("Failed to start scheduler", "error", err)
		slog.Warn("Continuing without scheduler - pending transfers will not expire automatically")
	} else {
		defer sched.Stop()
	}

	portal := api.NewServer(cfg.HTTPAddr, engine, repo, clock)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		if err := portal.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Portal HTTP server failed", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	slog.Info("Stopping portal HTTP server")
	if err := portal.Stop(); err != nil {
		slog.Error("Failed to stop portal HTTP server", "error", err)
	}

	slog.Info("Portal service shutdown completed")
}
