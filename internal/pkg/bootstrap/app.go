// internal/pkg/bootstrap/app.go
package bootstrap

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"stockd/internal/pkg/logger"
	"stockd/internal/pkg/nacos"
	"stockd/internal/pkg/tracing"
	"stockd/internal/pkg/utils"
)

type AppCtx struct {
	Mux   *http.ServeMux
	Nacos *nacos.Client
}

// AppInfo 包含了启动一个微服务所需的所有特定信息。
type AppInfo struct {
	ServiceName string
	Port        int
	// RegisterHandlers 允许每个服务注册自己独特的 HTTP 路由
	RegisterHandlers func(appCtx AppCtx)
	// OnShutdown 在 HTTP 服务器关闭前执行，用于停掉后台组件（消费者、清理协程等）
	OnShutdown func(ctx context.Context)
}

// StartService 封装了所有微服务的通用启动和优雅关停逻辑。
func StartService(info AppInfo) {
	cfg := GetCurrentConfig()

	// 1. 初始化核心组件
	// a. Tracer
	tp, err := tracing.InitTracerProvider(info.ServiceName, cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		logger.Logger().Fatal().Err(err).Msg("failed to initialize tracer provider")
	}

	// b. Nacos 注册中心客户端
	namingClient, err := nacos.NewNacosClient(cfg.Infra.Nacos.Addrs, cfg.Infra.Nacos.Namespace, cfg.Infra.Nacos.Group)
	if err != nil {
		logger.Logger().Fatal().Err(err).Msg("failed to initialize nacos client")
	}

	// 2. 获取本机 IP 用于注册
	ip, err := utils.GetOutboundIP()
	if err != nil {
		logger.Logger().Fatal().Err(err).Msg("failed to get outbound IP address")
	}

	// 3. 执行服务注册
	if err := namingClient.RegisterServiceInstance(info.ServiceName, ip, info.Port); err != nil {
		logger.Logger().Fatal().Err(err).Msg("failed to register service with nacos")
	}

	// 4. 创建并启动 HTTP Server
	mux := http.NewServeMux()
	if info.RegisterHandlers != nil {
		info.RegisterHandlers(AppCtx{Mux: mux, Nacos: namingClient})
	}
	server := &http.Server{Addr: ":" + strconv.Itoa(info.Port), Handler: mux}
	go func() {
		logger.Logger().Info().Str("addr", server.Addr).Msgf("%s listening", info.ServiceName)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger().Fatal().Err(err).Msgf("could not listen on %s", server.Addr)
		}
	}()

	// 5. 优雅关停
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// 阻塞主 goroutine，直到接收到退出信号
	<-quit
	logger.Logger().Info().Msgf("Shutting down service %s...", info.ServiceName)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 按顺序执行清理操作 (后进先出)
	// a. 从 Nacos 注销服务，让流量先切走
	if err := namingClient.DeregisterServiceInstance(info.ServiceName, ip, info.Port); err != nil {
		logger.Logger().Error().Err(err).Msg("Error deregistering from Nacos")
	}

	// b. 停掉服务自己的后台组件
	if info.OnShutdown != nil {
		info.OnShutdown(ctx)
	}

	// c. 关闭 Tracer Provider，确保所有缓冲的 trace 都被发送出去
	if err := tp.Shutdown(ctx); err != nil {
		logger.Logger().Error().Err(err).Msg("Error shutting down tracer provider")
	}

	// d. 关闭 HTTP 服务器
	if err := server.Shutdown(ctx); err != nil {
		logger.Logger().Error().Err(err).Msg("Error shutting down http server")
	}

	logger.Logger().Info().Msgf("Service %s gracefully shut down.", info.ServiceName)
}
