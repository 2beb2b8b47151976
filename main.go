package main

// GET   /                                - health
// GET   /metrics                         - Prometheus metrics
// GET   /products                        - list active products
// POST  /products                        - create a product
// GET   /products/low_stock              - low stock report
// GET   /products/{id}                   - single product
// PUT   /products/{id}                   - partial update
// PATCH /products/{id}/active            - toggle visibility
// POST  /customers                       - register a customer
// GET   /customers/{id}/credit_cards     - list card references
// GET   /customers/{id}/purchases        - purchase history
// POST  /credit_cards                    - store a card reference
// POST  /purchases                       - place a purchase (optional Idempotency-Key)
// GET   /purchases/{id}                  - purchase detail

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"storefront/config"
	"storefront/handler"
	"storefront/idempotency"
	"storefront/logging"
	"storefront/metrics"
	"storefront/service"
	"storefront/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.Init(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Store ---
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	st, err := store.NewPostgresStore(connectCtx, cfg.DatabaseURL, store.PoolConfig{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Migrate(connectCtx); err != nil {
		return err
	}
	logger.Info("database migrations executed")

	// --- Service ---
	var opts []service.Option
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(connectCtx).Err(); err != nil {
			return err
		}
		defer rdb.Close()
		opts = append(opts, service.WithIdempotencyGuard(idempotency.NewRedisGuard(rdb, cfg.IdempotencyTTL)))
		logger.Info("idempotency guard enabled", "redis_addr", cfg.RedisAddr, "ttl", cfg.IdempotencyTTL)
	}
	svc := service.NewService(st, opts...)

	// --- Handlers ---
	h := handler.NewHandler(svc, logger, metrics.New())

	// --- Router ---
	r := mux.NewRouter()
	h.RegisterRoutes(r)

	// --- Server ---
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.CORS(cfg.CORSOrigins)(r),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("server running", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
