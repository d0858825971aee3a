// internal/service/inventory/port/cache.go
package port

import (
	"context"
	"time"
)

// AvailabilitySnapshot 是缓存中的可用量快照
type AvailabilitySnapshot struct {
	VariantID string `json:"variant_id"`
	Available int64  `json:"available"`
}

// AvailabilityCache 是注入式的 KV 缓存抽象，带显式 TTL 契约
// 读路径允许轻微滞后；正确性相关的状态绝不依赖进程内可变 map
type AvailabilityCache interface {
	// Get 未命中时返回 (nil, nil)
	Get(ctx context.Context, variantID string) (*AvailabilitySnapshot, error)
	Set(ctx context.Context, snapshot *AvailabilitySnapshot, ttl time.Duration) error
	// Invalidate 在写路径变更后调用，收敛缓存滞后窗口
	Invalidate(ctx context.Context, variantID string) error
}
