// internal/service/inventory/application/stock_service.go
package application

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"stockd/internal/pkg/logger"
	"stockd/internal/service/inventory/domain"
	"stockd/internal/service/inventory/port"
)

// EngineOptions 汇集引擎的策略常量，来源是 bootstrap 配置
type EngineOptions struct {
	MaxPerReservation int64
	SoftHoldTTL       time.Duration
	RetryAttempts     int
	RetryBackoff      time.Duration
	CacheTTL          time.Duration
}

// StockService 实现台账驱动的库存量操作：入库、出库、校准
// 每个操作都是针对单条库存行的一个原子单元：CAS 快照 + 恰好一条分录
type StockService struct {
	store     domain.InventoryStore
	publisher port.EventPublisher
	cache     port.AvailabilityCache
	catalog   port.CatalogService
	tracer    trace.Tracer
	opts      EngineOptions
}

func NewStockService(store domain.InventoryStore, publisher port.EventPublisher, cache port.AvailabilityCache, catalog port.CatalogService, tracer trace.Tracer, opts EngineOptions) *StockService {
	return &StockService{
		store:     store,
		publisher: publisher,
		cache:     cache,
		catalog:   catalog,
		tracer:    tracer,
		opts:      opts,
	}
}

// ProvisionInventory 为一个 variant 建库存行，数量全零
// variant 存在性通过目录服务校验一次；后续操作默认调用方已校验
func (s *StockService) ProvisionInventory(ctx context.Context, variantID, sellerID, warehouseID string, lowThreshold, outThreshold int64) (*InventorySummary, error) {
	ctx, span := s.tracer.Start(ctx, "stock.ProvisionInventory")
	defer span.End()
	span.SetAttributes(attribute.String("variant.id", variantID))

	if s.catalog != nil {
		if err := s.catalog.ResolveVariant(ctx, variantID); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "variant resolution failed")
			return nil, err
		}
	}

	inv := domain.NewInventory(variantID, sellerID, warehouseID)
	inv.LowStockThreshold = lowThreshold
	inv.OutOfStockThreshold = outThreshold
	if err := s.store.CreateInventory(ctx, inv); err != nil {
		span.RecordError(err)
		return nil, err
	}

	logger.Ctx(ctx).Info().
		Str("inventory_id", inv.ID).
		Str("variant_id", variantID).
		Msg("Inventory row provisioned")
	summary := summarize(inv)
	return &summary, nil
}

// IncreaseStock 入库 qty 并追加一条 INBOUND 分录
func (s *StockService) IncreaseStock(ctx context.Context, inventoryID string, qty int64, reason, refType, refID, actor string) (*InventorySummary, error) {
	ctx, span := s.tracer.Start(ctx, "stock.IncreaseStock")
	defer span.End()
	span.SetAttributes(
		attribute.String("inventory.id", inventoryID),
		attribute.Int64("quantity", qty),
	)

	return s.mutate(ctx, inventoryID, func(inv *domain.Inventory) (*domain.LedgerEntry, error) {
		if err := inv.Increase(qty); err != nil {
			return nil, err
		}
		return domain.NewLedgerEntry(inv.ID, domain.EntryInbound, qty, inv.TotalQuantity, refType, refID, reason, actor), nil
	})
}

// DecreaseStock 出库 qty 并追加一条 OUTBOUND 分录
// 只能消耗可用量；可用不足时返回 InsufficientStockError
func (s *StockService) DecreaseStock(ctx context.Context, inventoryID string, qty int64, reason, refType, refID, actor string) (*InventorySummary, error) {
	ctx, span := s.tracer.Start(ctx, "stock.DecreaseStock")
	defer span.End()
	span.SetAttributes(
		attribute.String("inventory.id", inventoryID),
		attribute.Int64("quantity", qty),
	)

	return s.mutate(ctx, inventoryID, func(inv *domain.Inventory) (*domain.LedgerEntry, error) {
		if err := inv.Decrease(qty); err != nil {
			return nil, err
		}
		return domain.NewLedgerEntry(inv.ID, domain.EntryOutbound, -qty, inv.TotalQuantity, refType, refID, reason, actor), nil
	})
}

// AdjustStock 把总量校准到 newTotal（盘点）
// newTotal 低于当前预占量时拒绝：预占是对买家的承诺
func (s *StockService) AdjustStock(ctx context.Context, inventoryID string, newTotal int64, reason, actor string) (*InventorySummary, error) {
	ctx, span := s.tracer.Start(ctx, "stock.AdjustStock")
	defer span.End()
	span.SetAttributes(
		attribute.String("inventory.id", inventoryID),
		attribute.Int64("new_total", newTotal),
	)

	return s.mutate(ctx, inventoryID, func(inv *domain.Inventory) (*domain.LedgerEntry, error) {
		delta := newTotal - inv.TotalQuantity
		if err := inv.AdjustTotal(newTotal); err != nil {
			return nil, err
		}
		return domain.NewLedgerEntry(inv.ID, domain.EntryAdjustment, delta, inv.TotalQuantity, "", "", reason, actor), nil
	})
}

// BulkAdjustStock 批量校准；单项失败不影响其余项，结果按项返回
func (s *StockService) BulkAdjustStock(ctx context.Context, items []AdjustItem, actor string) *BulkAdjustResult {
	ctx, span := s.tracer.Start(ctx, "stock.BulkAdjustStock")
	defer span.End()
	span.SetAttributes(attribute.Int("items", len(items)))

	result := &BulkAdjustResult{}
	for _, item := range items {
		summary, err := s.AdjustStock(ctx, item.InventoryID, item.NewTotal, item.Reason, actor)
		if err != nil {
			result.Failed = append(result.Failed, AdjustFailure{InventoryID: item.InventoryID, Error: err.Error()})
			continue
		}
		result.Succeeded = append(result.Succeeded, *summary)
	}
	return result
}

// GetInventory 读取一条库存行的当前快照
func (s *StockService) GetInventory(ctx context.Context, inventoryID string) (*InventorySummary, error) {
	inv, err := s.store.GetInventory(ctx, inventoryID)
	if err != nil {
		return nil, err
	}
	summary := summarize(inv)
	return &summary, nil
}

// mutate 是量操作的公共骨架：读取 → 领域变更 → CAS 提交 → 事件翻译
// 版本冲突时整体重做，重试预算耗尽后对外返回 ErrConcurrencyConflict
func (s *StockService) mutate(ctx context.Context, inventoryID string, apply func(*domain.Inventory) (*domain.LedgerEntry, error)) (*InventorySummary, error) {
	var (
		change *domain.StockChange
		inv    *domain.Inventory
	)

	err := withConflictRetry(ctx, s.opts.RetryAttempts, s.opts.RetryBackoff, func() error {
		var err error
		inv, err = s.store.GetInventory(ctx, inventoryID)
		if err != nil {
			return err
		}

		before := inv.Level()
		prev := inv.Version

		entry, err := apply(inv)
		if err != nil {
			return err
		}
		if err := inv.CheckInvariant(); err != nil {
			return err
		}
		inv.Version = prev + 1

		if err := s.store.Apply(ctx, &domain.Mutation{
			Inventory:   inv,
			PrevVersion: prev,
			Entry:       entry,
		}); err != nil {
			return err
		}

		change = &domain.StockChange{
			InventoryID: inv.ID,
			VariantID:   inv.VariantID,
			Before:      before,
			After:       inv.Level(),
			Available:   inv.AvailableQuantity,
			Reserved:    inv.ReservedQuantity,
			Total:       inv.TotalQuantity,
			Entry:       entry,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterChange(ctx, change)
	summary := summarize(inv)
	return &summary, nil
}

// afterChange 在事务之外完成事件翻译与缓存失效
func (s *StockService) afterChange(ctx context.Context, change *domain.StockChange) {
	if s.publisher != nil {
		if events := change.LevelEvents(time.Now()); len(events) > 0 {
			s.publisher.Publish(ctx, events)
		}
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, change.VariantID); err != nil {
			logger.Ctx(ctx).Warn().Err(err).
				Str("variant_id", change.VariantID).
				Msg("Failed to invalidate availability cache")
		}
	}
}
