package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"stockd/internal/pkg/redis"
	"stockd/internal/service/inventory/port"
)

const availabilityKeyPrefix = "stockd:availability:"

// AvailabilityRedisAdapter 是 port.AvailabilityCache 的 Redis 实现
// 缓存的只有可用量快照，正确性判定永远回到数据库的原子单元里做
type AvailabilityRedisAdapter struct {
	redisClient *redis.Client
}

// NewAvailabilityRedisAdapter 创建一个新的可用量缓存适配器
func NewAvailabilityRedisAdapter(redisClient *redis.Client) *AvailabilityRedisAdapter {
	return &AvailabilityRedisAdapter{redisClient: redisClient}
}

// Get 未命中时返回 (nil, nil)
func (a *AvailabilityRedisAdapter) Get(ctx context.Context, variantID string) (*port.AvailabilitySnapshot, error) {
	data, err := a.redisClient.GetClient().Get(ctx, availabilityKey(variantID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var snapshot port.AvailabilitySnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("corrupt availability snapshot for %s: %w", variantID, err)
	}
	return &snapshot, nil
}

func (a *AvailabilityRedisAdapter) Set(ctx context.Context, snapshot *port.AvailabilitySnapshot, ttl time.Duration) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return a.redisClient.GetClient().Set(ctx, availabilityKey(snapshot.VariantID), data, ttl).Err()
}

func (a *AvailabilityRedisAdapter) Invalidate(ctx context.Context, variantID string) error {
	return a.redisClient.GetClient().Del(ctx, availabilityKey(variantID)).Err()
}

func availabilityKey(variantID string) string {
	return availabilityKeyPrefix + variantID
}
