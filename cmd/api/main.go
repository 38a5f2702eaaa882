package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/metagameshop/shop-backend/api/routes"
	"github.com/metagameshop/shop-backend/internal/config"
	"github.com/metagameshop/shop-backend/internal/handlers"
	"github.com/metagameshop/shop-backend/internal/jobs"
	"github.com/metagameshop/shop-backend/internal/middleware"
	"github.com/metagameshop/shop-backend/internal/repositories"
	"github.com/metagameshop/shop-backend/internal/repositories/memory"
	mongorepo "github.com/metagameshop/shop-backend/internal/repositories/mongodb"
	"github.com/metagameshop/shop-backend/internal/services"
	mongodb "github.com/metagameshop/shop-backend/pkg/mongodb"
	"github.com/metagameshop/shop-backend/pkg/telegram"
	"github.com/redis/go-redis/v9"
	"golang.org/x/exp/slog"
)

// storage bundles the repositories of one driver.
type storage struct {
	tx        repositories.Transactor
	balances  repositories.BalanceRepository
	payments  repositories.PaymentRepository
	purchases repositories.PurchaseRepository
	close     func(ctx context.Context) error
}

func main() {
	// Load configuration
	cfg, err := config.Load(".")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.LogLevel, cfg.LogFormat))
	gin.SetMode(cfg.Server.Mode)

	signupCredit, _ := cfg.Ledger.SignupCreditAmount()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open storage", "driver", cfg.Storage, "error", err)
		os.Exit(1)
	}

	dispatcher := services.NewNotificationDispatcher(newGateway(cfg.Telegram), cfg.Telegram.Timeout)

	var authorizer services.Authorizer = services.RoleAuthorizer{}
	if !cfg.Auth.AdminAuthEnabled() {
		slog.Warn("No admin credentials configured, admin routes are open to every caller")
		authorizer = services.AllowAllAuthorizer{}
	}

	// Initialize Services
	paymentService := services.NewPaymentService(store.tx, store.balances, store.payments, authorizer, signupCredit)
	purchaseService := services.NewPurchaseService(store.tx, store.balances, store.purchases, dispatcher, signupCredit)
	orderService := services.NewOrderService(store.purchases)

	handlerDeps := routes.HandlerDependencies{
		PaymentHandler:  handlers.NewPaymentHandler(paymentService),
		AdminHandler:    handlers.NewAdminHandler(paymentService),
		PurchaseHandler: handlers.NewPurchaseHandler(purchaseService),
		OrderHandler:    handlers.NewOrderHandler(orderService),
	}

	var redisClient *redis.Client
	if cfg.RateLimit.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RateLimit.RedisAddr,
			Password: cfg.RateLimit.RedisPassword,
			DB:       cfg.RateLimit.RedisDB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			slog.Warn("Redis unreachable, rate limiter will fail open", "addr", cfg.RateLimit.RedisAddr, "error", err)
		}
		handlerDeps.RateLimiter = middleware.NewRedisCounter(redisClient)
	}

	router := routes.SetupRouter(cfg, handlerDeps)

	scheduler := jobs.NewScheduler(cfg.Jobs.Timezone, cfg.Jobs.PendingDigestCron, store.payments, dispatcher)
	if err := scheduler.Start(ctx); err != nil {
		slog.Error("Failed to start job scheduler", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Run server in a goroutine so that it doesn't block
	go func() {
		slog.Info("Server starting", "port", cfg.Server.Port, "storage", cfg.Storage, "basePath", cfg.Server.BasePath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	scheduler.Stop()
	dispatcher.Close()
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			slog.Warn("Error closing Redis client", "error", err)
		}
	}
	if err := store.close(shutdownCtx); err != nil {
		slog.Warn("Error closing storage", "error", err)
	}

	slog.Info("Server exiting")
}

func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	if cfg.Storage == config.StorageMemory {
		slog.Warn("Using in-memory storage, data is lost on restart")
		store := memory.NewStore()
		return &storage{
			tx:        store,
			balances:  store.Balances(),
			payments:  store.Payments(),
			purchases: store.Purchases(),
			close:     func(context.Context) error { return nil },
		}, nil
	}

	client, err := mongodb.NewClient(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
	if err != nil {
		return nil, err
	}
	db := client.Database(cfg.MongoDB.Database)

	indexCtx, cancel := context.WithTimeout(ctx, cfg.MongoDB.Timeout)
	defer cancel()
	if err := mongorepo.EnsureIndexes(indexCtx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return &storage{
		tx:        mongorepo.NewTransactor(client.Mongo(), cfg.MongoDB.Transactions),
		balances:  mongorepo.NewBalanceRepository(db),
		payments:  mongorepo.NewPaymentRepository(db),
		purchases: mongorepo.NewPurchaseRepository(db),
		close:     client.Disconnect,
	}, nil
}

// newGateway falls back to a log-only gateway when the bot is not configured.
func newGateway(cfg config.TelegramConfig) telegram.Gateway {
	if cfg.Mock || cfg.BotToken == "" {
		slog.Warn("Telegram bot not configured, admin notifications are only logged")
		return telegram.LogGateway{}
	}
	gateway, err := telegram.NewBotGateway(telegram.Config{BotToken: cfg.BotToken, ChatID: cfg.ChatID})
	if err != nil {
		slog.Warn("Failed to create Telegram gateway, notifications are only logged", "error", err)
		return telegram.LogGateway{}
	}
	return gateway
}

func newLogger(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
