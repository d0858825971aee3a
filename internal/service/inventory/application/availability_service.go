// internal/service/inventory/application/availability_service.go
package application

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"stockd/internal/pkg/logger"
	"stockd/internal/service/inventory/domain"
	"stockd/internal/service/inventory/port"
)

// AvailabilityService 提供只读的可用性查询
// 结果来自可缓存的快照读路径，允许轻微滞后；
// 真正的扣减判定永远发生在 Reserve 的原子单元内
type AvailabilityService struct {
	store  domain.InventoryStore
	cache  port.AvailabilityCache
	tracer trace.Tracer
	opts   EngineOptions
}

func NewAvailabilityService(store domain.InventoryStore, cache port.AvailabilityCache, tracer trace.Tracer, opts EngineOptions) *AvailabilityService {
	return &AvailabilityService{
		store:  store,
		cache:  cache,
		tracer: tracer,
		opts:   opts,
	}
}

// Check 批量检查一组 variant 的可用性，逐项并发执行
// 单项结果三分类：available / partial（附可满足数量）/ unavailable
func (s *AvailabilityService) Check(ctx context.Context, items []AvailabilityItem) (*AvailabilityResult, error) {
	ctx, span := s.tracer.Start(ctx, "availability.Check")
	defer span.End()
	span.SetAttributes(attribute.Int("items", len(items)))

	results := make([]ItemAvailability, len(items))
	g, gctx := errgroup.WithContext(ctx)
	for i, item := range items {
		g.Go(func() error {
			available, err := s.availableQuantity(gctx, item.VariantID)
			if err != nil {
				return err
			}
			results[i] = classify(item, available)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	result := &AvailabilityResult{FullyAvailable: true, Items: results}
	for _, item := range results {
		if item.Status != AvailabilityFull {
			result.FullyAvailable = false
			break
		}
	}
	return result, nil
}

// availableQuantity 先读缓存，未命中时回源库存行并回填
// 缓存故障只降级为回源，不影响查询结果
func (s *AvailabilityService) availableQuantity(ctx context.Context, variantID string) (int64, error) {
	if s.cache != nil {
		snapshot, err := s.cache.Get(ctx, variantID)
		if err != nil {
			logger.Ctx(ctx).Warn().Err(err).
				Str("variant_id", variantID).
				Msg("Availability cache read failed, falling back to store")
		} else if snapshot != nil {
			return snapshot.Available, nil
		}
	}

	inv, err := s.store.GetInventoryByVariant(ctx, variantID)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		snapshot := &port.AvailabilitySnapshot{VariantID: variantID, Available: inv.AvailableQuantity}
		if err := s.cache.Set(ctx, snapshot, s.opts.CacheTTL); err != nil {
			logger.Ctx(ctx).Warn().Err(err).
				Str("variant_id", variantID).
				Msg("Availability cache write failed")
		}
	}
	return inv.AvailableQuantity, nil
}

func classify(item AvailabilityItem, available int64) ItemAvailability {
	result := ItemAvailability{
		VariantID: item.VariantID,
		Requested: item.Quantity,
		Available: available,
	}
	switch {
	case available >= item.Quantity:
		result.Status = AvailabilityFull
	case available > 0:
		result.Status = AvailabilityPartial
		result.SuggestedQuantity = available
	default:
		result.Status = AvailabilityUnavailable
	}
	return result
}
