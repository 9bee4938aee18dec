package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/billing"
	"github.com/mmynk/splitledger/internal/config"
	"github.com/mmynk/splitledger/internal/events"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/internal/storage/memory"
	"github.com/mmynk/splitledger/internal/storage/sqlite"
	"github.com/mmynk/splitledger/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	cfg := config.Load()
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	defer store.Close()
	logger.Info("Storage initialized", "backend", cfg.StoreBackend, "database", cfg.DBPath)

	var revoker auth.Revoker = auth.NewMemoryRevoker()
	if cfg.RedisURL != "" {
		redisRevoker, err := auth.NewRedisRevoker(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer redisRevoker.Close()
		revoker = redisRevoker
		logger.Info("Token revocation backed by Redis")
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return fmt.Errorf("connect to AMQP: %w", err)
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
		logger.Info("Publishing domain events", "exchange", cfg.AMQPExchange)
	}

	if cfg.UsingDefaultSecret() {
		logger.Warn("JWT_SECRET not set, signing tokens with the development key")
	}

	m := metrics.New()
	ledger := billing.NewService(store,
		billing.WithPublisher(publisher),
		billing.WithMetrics(m),
		billing.WithLogger(logger),
	)

	router := newRouter(routerDeps{
		store:      store,
		ledger:     ledger,
		jwtManager: auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL),
		revoker:    revoker,
		metrics:    m,
		logger:     logger,
	})

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		// h2c serves HTTP/2 without TLS, which gRPC clients of Connect need.
		Handler:           h2c.NewHandler(router, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Connect server starting", "address", srv.Addr, "url", fmt.Sprintf("http://localhost%s", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", "timeout", cfg.ShutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return memory.New(), nil
	default:
		return sqlite.New(cfg.DBPath)
	}
}
