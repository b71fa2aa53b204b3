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

	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/api"
	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/config"
	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/database"
	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/gateway"
	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/handler"
	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/infrastructure/auth"
	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/infrastructure/kafka"
	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/infrastructure/redis"
	"github.com/DebiyaQugan28/vallblox-gaming-store/internal/observability"
	core "github.com/DebiyaQugan28/vallblox-gaming-store/internal/repository/postgres"
	service "github.com/DebiyaQugan28/vallblox-gaming-store/internal/services"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Логи и трейсы
	shutdownTelemetry, err := observability.Setup(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			slog.Error("failed to flush traces", "error", err)
		}
	}()

	if cfg.MigrateOnStart {
		if err := database.RunMigrations(cfg.PostgresDSN); err != nil {
			return err
		}
		slog.Info("migrations applied")
	}

	db, err := database.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient, err := redis.NewClient(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	var producer kafka.KafkaProducer = kafka.NopProducer{}
	if len(cfg.KafkaBrokers) > 0 {
		producer = kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	} else {
		slog.Warn("KAFKA_BROKERS not set, order events are not published")
	}
	defer producer.Close()

	// Репозитории
	accountRepo := core.NewPostgresAccountRepository(db)
	resetTokenRepo := core.NewPostgresResetTokenRepository(db)
	productRepo := core.NewPostgresProductRepository(db)
	orderRepo := core.NewPostgresOrderRepository(db)
	txManager := core.NewTxManager(db)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.SessionTTL, cfg.ResetTokenTTL)
	midtrans, err := gateway.NewMidtransClient(cfg.MidtransServerKey, cfg.MidtransProduction, cfg.MidtransBaseURL, cfg.GatewayTimeout)
	if err != nil {
		return err
	}

	// Сервисы
	accountSvc := service.NewAccountService(accountRepo, resetTokenRepo, txManager, redisClient, tokens, cfg.BcryptCost)
	catalogSvc := service.NewCatalogService(productRepo, redisClient, cfg.CatalogCacheTTL)
	orderSvc := service.NewOrderService(orderRepo, accountRepo, catalogSvc, txManager, midtrans, producer, cfg.OrderPrefix)
	webhook := gateway.NewWebhookProcessor(orderSvc, cfg.MidtransServerKey)

	h := handler.NewHandler(accountSvc, catalogSvc, orderSvc, webhook, db)
	router := api.SetupRouter(h, tokens, redisClient, api.NewRateLimiter(cfg.AuthRatePerMinute, 10*time.Minute))

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	// Graceful shutdown
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slog.Info("server stopped")
	return nil
}
