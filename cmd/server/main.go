package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/taskhub/notifier/internal/api"
	"github.com/taskhub/notifier/internal/broker"
	"github.com/taskhub/notifier/internal/config"
	"github.com/taskhub/notifier/internal/db"
	"github.com/taskhub/notifier/internal/dedup"
	"github.com/taskhub/notifier/internal/gateway"
	"github.com/taskhub/notifier/internal/metrics"
	"github.com/taskhub/notifier/internal/queue"
	"github.com/taskhub/notifier/internal/ratelimiter"
	"github.com/taskhub/notifier/internal/registry"
	"github.com/taskhub/notifier/internal/repository"
	"github.com/taskhub/notifier/internal/service"
	"github.com/taskhub/notifier/internal/worker"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ---- database ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	schemaVersion, err := db.Migrate(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied", zap.Uint("schema_version", schemaVersion))

	// ---- message broker ----
	conn, err := broker.Dial(ctx, cfg.BrokerURL, cfg.BrokerConnectRetry, cfg.BrokerConnectWait, logger)
	if err != nil {
		logger.Fatal("failed to connect to broker", zap.Error(err))
	}
	defer conn.Close()

	// ---- duplicate-delivery guard ----
	// Redis is optional: without an address the guard is a no-op and every
	// broker redelivery is processed again.
	var guard dedup.Guard = dedup.NoopGuard{}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		guard = dedup.NewRedisGuard(rdb, cfg.DedupTTL)
		logger.Info("redis dedup guard enabled", zap.String("addr", cfg.RedisAddr))
	}

	// ---- core dependencies ----
	promReg := prometheus.NewRegistry()
	m := metrics.New(promReg)
	q := queue.New()
	repo := repository.NewPgNotificationRepository(pool)
	connReg := registry.New()
	limiter := ratelimiter.New(cfg.PushRate)
	svc := service.NewNotificationService(repo, q, logger, m.OnCreated())

	hub := gateway.NewHub(connReg, svc, logger, m.OnlineGauge())
	gw := gateway.New(hub, cfg.JWTSecret, gateway.Options{
		WriteWait:     cfg.WSWriteWait,
		PongWait:      cfg.WSPongWait,
		MaxMsgBytes:   cfg.WSMaxMsgBytes,
		AllowedOrigin: cfg.AllowedOrigin,
	}, logger)

	// ---- background goroutines ----
	// Context for the consumer and all workers; cancelled on shutdown signal.
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	onConsumed, onDropped := m.ConsumerHooks()
	consumer := broker.NewConsumer(conn, cfg.ConsumerQueue, cfg.ConsumerPrefetch, svc, guard, broker.Hooks{
		OnConsumed: onConsumed,
		OnDropped:  onDropped,
	}, logger)
	go func() {
		if err := consumer.Run(workerCtx); err != nil {
			logger.Fatal("consumer stopped", zap.Error(err))
		}
	}()

	onDelivered, onSkipped := m.WorkerHooks()
	deliveryPool := worker.NewPool(cfg, q, repo, hub, connReg, limiter, logger, worker.MetricHooks{
		OnDelivered: onDelivered,
		OnSkipped:   onSkipped,
	})
	deliveryPool.Start(workerCtx)

	// Queue depth gauges are sampled rather than tracked per operation.
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				m.ObserveQueueDepths(q)
			}
		}
	}()

	// ---- HTTP server ----
	router := api.NewRouter(cfg, svc, gw, q, consumer, connReg, promReg, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests and websocket handshakes.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Signal the consumer and all workers to stop.
	cancelWorkers()

	// 3. Wait for in-flight deliveries to finish.
	deliveryPool.Wait()

	logger.Info("server stopped cleanly")
}
