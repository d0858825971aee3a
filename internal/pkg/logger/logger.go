// internal/pkg/logger/logger.go
package logger

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// base 是全局的基础 Logger，所有带上下文的 Logger 都从它派生
var base zerolog.Logger

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
	base = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// Init 在服务启动时设置服务名等全局字段
// 由 bootstrap 在进程初始化阶段调用一次
func Init(serviceName string) {
	base = zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

// Logger 返回不携带追踪上下文的基础 Logger
func Logger() *zerolog.Logger {
	return &base
}

// Ctx 返回一个携带当前链路信息的 Logger
// 如果 ctx 中存在有效的 Span，会自动附加 trace_id / span_id 字段，
// 这样日志就可以和 Jaeger 中的链路关联起来
func Ctx(ctx context.Context) *zerolog.Logger {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return &base
	}
	l := base.With().
		Str("trace_id", spanCtx.TraceID().String()).
		Str("span_id", spanCtx.SpanID().String()).
		Logger()
	return &l
}
