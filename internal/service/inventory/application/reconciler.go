// internal/service/inventory/application/reconciler.go
package application

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"stockd/internal/pkg/logger"
	"stockd/internal/service/inventory/domain"
	"stockd/internal/service/inventory/port"
)

// Reconciler 对账器：重放台账、汇总 ACTIVE 预占，与快照互相验证
// 两类守恒分别检查：
//   - 快照总量 == 台账重放总量（只累加影响总量的分录）
//   - 快照预占量 == ACTIVE 预占之和
// 全程持行锁执行，避免两个实例同时对同一行写校正分录
type Reconciler struct {
	store  domain.InventoryStore
	locker port.RowLocker
	tracer trace.Tracer
	opts   EngineOptions
}

func NewReconciler(store domain.InventoryStore, locker port.RowLocker, tracer trace.Tracer, opts EngineOptions) *Reconciler {
	return &Reconciler{
		store:  store,
		locker: locker,
		tracer: tracer,
		opts:   opts,
	}
}

// Reconcile 对单条库存行做一次对账
// correct=true 时把台账校准到快照：追加一条校正 ADJUSTMENT 分录
// 预占侧的漂移只报告不自动修复，需要人工介入
func (r *Reconciler) Reconcile(ctx context.Context, inventoryID string, correct bool) (*ReconcileReport, error) {
	ctx, span := r.tracer.Start(ctx, "reconciler.Reconcile")
	defer span.End()
	span.SetAttributes(
		attribute.String("inventory.id", inventoryID),
		attribute.Bool("correct", correct),
	)

	if r.locker != nil {
		unlock, err := r.locker.Lock(inventoryID)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		defer func() {
			if err := unlock(); err != nil {
				logger.Ctx(ctx).Warn().Err(err).
					Str("inventory_id", inventoryID).
					Msg("Failed to release reconcile lock")
			}
		}()
	}

	inv, err := r.store.GetInventory(ctx, inventoryID)
	if err != nil {
		return nil, err
	}

	ledgerTotal, err := r.store.SumLedgerTotal(ctx, inventoryID)
	if err != nil {
		return nil, err
	}
	activeSum, err := r.store.SumActiveQuantity(ctx, inv.VariantID)
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{InventoryID: inventoryID, Snapshot: summarize(inv)}
	if inv.TotalQuantity == ledgerTotal && inv.ReservedQuantity == activeSum {
		report.Consistent = true
		return report, nil
	}

	drift := &domain.LedgerInconsistencyError{
		InventoryID:    inventoryID,
		SnapshotTotal:  inv.TotalQuantity,
		LedgerTotal:    ledgerTotal,
		SnapshotHold:   inv.ReservedQuantity,
		ActiveHoldsSum: activeSum,
	}
	report.Drift = drift.Error()
	logger.Ctx(ctx).Error().
		Str("inventory_id", inventoryID).
		Int64("snapshot_total", inv.TotalQuantity).
		Int64("ledger_total", ledgerTotal).
		Int64("snapshot_reserved", inv.ReservedQuantity).
		Int64("active_holds", activeSum).
		Msg("Ledger inconsistency detected")

	if !correct {
		return report, nil
	}
	if inv.TotalQuantity == ledgerTotal {
		// 只剩预占侧漂移，校正分录解决不了
		return report, nil
	}

	delta := inv.TotalQuantity - ledgerTotal
	prev := inv.Version
	inv.Version = prev + 1
	entry := domain.NewLedgerEntry(inventoryID, domain.EntryAdjustment, delta, inv.TotalQuantity, "", "",
		fmt.Sprintf("reconcile correction: ledger total %d, snapshot total %d", ledgerTotal, inv.TotalQuantity), "SYSTEM")
	if err := r.store.Apply(ctx, &domain.Mutation{
		Inventory:   inv,
		PrevVersion: prev,
		Entry:       entry,
	}); err != nil {
		return nil, err
	}
	report.Corrected = true
	report.Snapshot = summarize(inv)
	return report, nil
}
