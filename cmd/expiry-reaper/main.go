// cmd/expiry-reaper/main.go
//
// 独立的过期预占清理进程：不对外提供 HTTP 接口，只跑定时扫描
// 与 inventory-service 内嵌的 Reaper 互为替代，按部署形态二选一
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/otel"

	"stockd/internal/pkg/bootstrap"
	"stockd/internal/pkg/logger"
	"stockd/internal/pkg/mq"
	"stockd/internal/pkg/redis"
	"stockd/internal/pkg/tracing"
	"stockd/internal/service/inventory/application"
	"stockd/internal/service/inventory/domain"
	"stockd/internal/service/inventory/infrastructure"
	"stockd/internal/service/inventory/infrastructure/adapter"
)

const serviceName = "expiry-reaper"

func main() {
	bootstrap.Init(serviceName)
	cfg := bootstrap.GetCurrentConfig()

	tp, err := tracing.InitTracerProvider(serviceName, cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		logger.Logger().Fatal().Err(err).Msg("failed to initialize tracer provider")
	}
	tracer := otel.Tracer(serviceName)

	store, err := newStore(cfg)
	if err != nil {
		logger.Logger().Fatal().Err(err).Msg("failed to initialize inventory store")
	}

	redisClient := redis.NewClient(cfg.Infra.Redis.Addr)
	cache := adapter.NewAvailabilityRedisAdapter(redisClient)

	eventWriter := mq.NewKafkaWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.StockEventsTopic)
	publisher := adapter.NewStockEventKafkaAdapter(eventWriter)

	opts := application.EngineOptions{
		MaxPerReservation: int64(cfg.App.Reservation.MaxPerReservation),
		SoftHoldTTL:       cfg.App.Reservation.SoftHoldTTL.Duration,
		RetryAttempts:     cfg.App.Reservation.RetryAttempts,
		RetryBackoff:      cfg.App.Reservation.RetryBackoff.Duration,
		CacheTTL:          cfg.App.Cache.AvailabilityTTL.Duration,
	}
	// Reaper 只走释放路径，准入策略用不到
	reservations := application.NewReservationService(store, publisher, cache, nil, tracer, opts)
	reaper := application.NewReaper(store, reservations, tracer, cfg.App.Reaper.Interval.Duration, cfg.App.Reaper.BatchSize)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		reaper.Run(ctx)
		close(done)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Logger().Info().Msg("Shutting down expiry reaper...")

	cancel()
	<-done
	if err := publisher.Close(); err != nil {
		logger.Logger().Error().Err(err).Msg("Error closing event publisher")
	}
	if err := redisClient.Close(); err != nil {
		logger.Logger().Error().Err(err).Msg("Error closing redis client")
	}
	if err := tp.Shutdown(context.Background()); err != nil {
		logger.Logger().Error().Err(err).Msg("Error shutting down tracer provider")
	}
	logger.Logger().Info().Msg("Expiry reaper stopped.")
}

func newStore(cfg *bootstrap.Config) (domain.InventoryStore, error) {
	if cfg.Store.Driver == "memory" {
		return infrastructure.NewMemoryInventoryStore(), nil
	}
	db, err := infrastructure.NewMySQLDB(cfg.Infra.Mysql)
	if err != nil {
		return nil, err
	}
	return infrastructure.NewGormInventoryStore(db), nil
}
