package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tgbot "github.com/go-telegram/bot"
	"github.com/joho/godotenv"

	"bookline/internal/bitrix"
	"bookline/internal/config"
	"bookline/internal/payment"
	"bookline/internal/service/booking"
	"bookline/internal/session"
	"bookline/internal/store/postgres"
	"bookline/internal/transport/telegram"
	"bookline/internal/zoom"
)

func main() {
	// Absent .env is fine in production; variables come from the environment.
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", "bookline-bot"),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", "bookline-bot"),
	)
	slog.SetDefault(log)

	log.Info("starting",
		slog.String("log_level", cfg.LogLevel),
		slog.String("timezone", cfg.Timezone),
		slog.Int("horizon_days", cfg.BookingHorizonDays),
		slog.Bool("payment_test_mode", cfg.PaymentTestMode),
	)

	log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
	db, err := postgres.Open(cfg.DatabaseURL, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		args := append([]any{slog.Any("err", err)}, databaseLogArgs(cfg.DatabaseURL)...)
		log.Error("database connection failed", args...)
		os.Exit(1)
	}
	defer func() {
		if err := postgres.Close(db); err != nil {
			log.Warn("database close failed", slog.Any("err", err))
		}
	}()

	repo := postgres.NewBookingRepo(db)
	payments := payment.NewProvider(payment.Config{
		LiveToken: cfg.PaymentLiveToken,
		TestToken: cfg.PaymentTestToken,
		TestMode:  cfg.PaymentTestMode,
	}, log)
	video := zoom.NewClient(zoom.Config{
		AccountID:    cfg.ZoomAccountID,
		ClientID:     cfg.ZoomClientID,
		ClientSecret: cfg.ZoomClientSecret,
	}, log)
	calendar := bitrix.NewClient(cfg.BitrixWebhookURL, log)

	svc, err := booking.NewService(repo, payments, video, calendar, session.NewStore(), booking.Config{
		HorizonDays:     cfg.BookingHorizonDays,
		Timezone:        cfg.Timezone,
		ProviderTimeout: cfg.ProviderTimeout,
	}, log)
	if err != nil {
		log.Error("service init failed", slog.Any("err", err))
		os.Exit(1)
	}

	handler := telegram.NewHandler(svc, log)

	b, err := tgbot.New(cfg.TelegramToken, tgbot.WithDefaultHandler(handler.HandleUpdate))
	if err != nil {
		log.Error("telegram bot init failed", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("bot started")
	b.Start(ctx)
	log.Info("shutdown signal received, bot stopped")
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func databaseLogArgs(databaseURL string) []any {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
