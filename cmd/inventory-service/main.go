// cmd/inventory-service/main.go
package main

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"

	"stockd/internal/pkg/bootstrap"
	"stockd/internal/pkg/httpclient"
	"stockd/internal/pkg/logger"
	"stockd/internal/pkg/mq"
	"stockd/internal/pkg/redis"
	"stockd/internal/service/inventory/application"
	"stockd/internal/service/inventory/domain"
	"stockd/internal/service/inventory/infrastructure"
	"stockd/internal/service/inventory/infrastructure/adapter"
	"stockd/internal/service/inventory/infrastructure/rule"
	"stockd/internal/service/inventory/interfaces"
	"stockd/internal/service/inventory/port"
	"stockd/internal/zookeeper"
)

const (
	serviceName = "inventory-service"
	servicePort = 8082

	// catalogServiceName 商品目录服务在 Nacos 中的名字
	catalogServiceName = "catalog-service"
)

func main() {
	bootstrap.Init(serviceName)
	cfg := bootstrap.GetCurrentConfig()
	tracer := otel.Tracer(serviceName)

	store, err := newStore(cfg)
	if err != nil {
		logger.Logger().Fatal().Err(err).Msg("failed to initialize inventory store")
	}

	redisClient := redis.NewClient(cfg.Infra.Redis.Addr)
	cache := adapter.NewAvailabilityRedisAdapter(redisClient)

	eventWriter := mq.NewKafkaWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.StockEventsTopic)
	publisher := adapter.NewStockEventKafkaAdapter(eventWriter)

	policy, err := rule.NewCelAdmissionPolicy(cfg.App.Reservation.AdmissionRule)
	if err != nil {
		logger.Logger().Fatal().Err(err).Msg("failed to compile admission rule")
	}

	zkConn, err := zookeeper.NewConn(cfg.Infra.Zookeeper.Addrs)
	if err != nil {
		logger.Logger().Fatal().Err(err).Msg("failed to connect to zookeeper")
	}
	locker := adapter.NewZkRowLocker(zkConn)

	opts := application.EngineOptions{
		MaxPerReservation: int64(cfg.App.Reservation.MaxPerReservation),
		SoftHoldTTL:       cfg.App.Reservation.SoftHoldTTL.Duration,
		RetryAttempts:     cfg.App.Reservation.RetryAttempts,
		RetryBackoff:      cfg.App.Reservation.RetryBackoff.Duration,
		CacheTTL:          cfg.App.Cache.AvailabilityTTL.Duration,
	}

	reservations := application.NewReservationService(store, publisher, cache, policy, tracer, opts)
	availability := application.NewAvailabilityService(store, cache, tracer, opts)
	reconciler := application.NewReconciler(store, locker, tracer, opts)

	reaper := application.NewReaper(store, reservations, tracer, cfg.App.Reaper.Interval.Duration, cfg.App.Reaper.BatchSize)
	reaperCtx, stopReaper := context.WithCancel(context.Background())
	go reaper.Run(reaperCtx)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			// 目录服务通过 Nacos 发现；不可用时建行接口跳过存在性校验
			var catalog port.CatalogService
			if ip, p, err := appCtx.Nacos.DiscoverServiceInstance(catalogServiceName); err != nil {
				logger.Logger().Warn().Err(err).Msg("Catalog service not discoverable, variant resolution disabled")
			} else {
				catalog = adapter.NewCatalogHTTPAdapter(httpclient.NewClient(tracer), fmt.Sprintf("http://%s:%d", ip, p))
			}
			stocks := application.NewStockService(store, publisher, cache, catalog, tracer, opts)

			handler := interfaces.NewInventoryHandler(stocks, reservations, availability, reconciler)
			handler.RegisterRoutes(appCtx.Mux)
		},
		OnShutdown: func(ctx context.Context) {
			stopReaper()
			if err := publisher.Close(); err != nil {
				logger.Logger().Error().Err(err).Msg("Error closing event publisher")
			}
			if err := redisClient.Close(); err != nil {
				logger.Logger().Error().Err(err).Msg("Error closing redis client")
			}
			zkConn.Close()
		},
	})
}

// newStore 按配置选择持久化驱动
func newStore(cfg *bootstrap.Config) (domain.InventoryStore, error) {
	switch cfg.Store.Driver {
	case "memory":
		return infrastructure.NewMemoryInventoryStore(), nil
	case "mysql", "":
		db, err := infrastructure.NewMySQLDB(cfg.Infra.Mysql)
		if err != nil {
			return nil, err
		}
		store := infrastructure.NewGormInventoryStore(db)
		if err := store.AutoMigrate(); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
