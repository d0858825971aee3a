package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockd/internal/service/inventory/domain"
)

func TestIncreaseDecreaseWithLedger(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	invID := e.seedInventory(t, "variant-1", 0)

	summary, err := e.stocks.IncreaseStock(ctx, invID, 10, "purchase order", "SYSTEM", "po-1", "ops")
	require.NoError(t, err)
	assert.Equal(t, int64(10), summary.Available)
	assert.Equal(t, int64(10), summary.Total)

	summary, err = e.stocks.DecreaseStock(ctx, invID, 3, "damage writeoff", "SYSTEM", "wo-1", "ops")
	require.NoError(t, err)
	assert.Equal(t, int64(7), summary.Available)
	assert.Equal(t, int64(7), summary.Total)

	// 台账重放必须得到当前总量
	ledgerTotal, err := e.store.SumLedgerTotal(ctx, invID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), ledgerTotal)

	entries, err := e.store.LedgerEntries(ctx, invID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.EntryInbound, entries[0].Type)
	assert.Equal(t, int64(10), entries[0].RunningBalance)
	assert.Equal(t, domain.EntryOutbound, entries[1].Type)
	assert.Equal(t, int64(-3), entries[1].Quantity)
	assert.Equal(t, int64(7), entries[1].RunningBalance)
}

func TestAdjustStockRespectsReserved(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	invID := e.seedInventory(t, "variant-1", 10)

	_, err := e.reservations.Reserve(ctx, ReserveCommand{
		VariantID: "variant-1", Quantity: 6,
		ReferenceType: domain.RefOrder, ReferenceID: "order-1", CreatedBy: "u",
	})
	require.NoError(t, err)

	// 盘点结果低于预占量必须拒绝
	_, err = e.stocks.AdjustStock(ctx, invID, 5, "cycle count", "ops")
	assert.ErrorIs(t, err, domain.ErrInvalidAdjustment)

	summary, err := e.stocks.AdjustStock(ctx, invID, 8, "cycle count", "ops")
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.Available)
	assert.Equal(t, int64(6), summary.Reserved)
	assert.Equal(t, int64(8), summary.Total)

	entries, err := e.store.LedgerEntries(ctx, invID)
	require.NoError(t, err)
	last := entries[len(entries)-1]
	assert.Equal(t, domain.EntryAdjustment, last.Type)
	assert.Equal(t, int64(-2), last.Quantity)
	assert.Equal(t, int64(8), last.RunningBalance)
}

func TestBulkAdjustStockPartialFailure(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	inv1 := e.seedInventory(t, "variant-1", 10)
	inv2 := e.seedInventory(t, "variant-2", 10)

	result := e.stocks.BulkAdjustStock(ctx, []AdjustItem{
		{InventoryID: inv1, NewTotal: 20, Reason: "count"},
		{InventoryID: "missing", NewTotal: 5, Reason: "count"},
		{InventoryID: inv2, NewTotal: -1, Reason: "count"},
	}, "ops")

	require.Len(t, result.Succeeded, 1)
	assert.Equal(t, int64(20), result.Succeeded[0].Total)
	require.Len(t, result.Failed, 2)
	assert.Equal(t, "missing", result.Failed[0].InventoryID)
	assert.Equal(t, inv2, result.Failed[1].InventoryID)
}

func TestLevelEventsPublishedOnTransitions(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	invID := e.seedInventory(t, "variant-1", 0)

	// 0 -> 5 触发 restocked
	_, err := e.stocks.IncreaseStock(ctx, invID, 5, "restock", "", "", "ops")
	require.NoError(t, err)
	assert.Contains(t, e.publisher.types(), domain.EventRestocked)

	// 5 -> 0 触发 out_of_stock
	_, err = e.stocks.DecreaseStock(ctx, invID, 5, "sold out", "", "", "ops")
	require.NoError(t, err)
	assert.Contains(t, e.publisher.types(), domain.EventOutOfStock)
}

func TestReconcileDetectsAndCorrectsDrift(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	invID := e.seedInventory(t, "variant-1", 10)

	report, err := e.reconciler.Reconcile(ctx, invID, false)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	assert.False(t, report.Corrected)

	// 绕过分录直接改快照，制造台账漂移
	inv, err := e.store.GetInventory(ctx, invID)
	require.NoError(t, err)
	prev := inv.Version
	inv.TotalQuantity = 13
	inv.AvailableQuantity = 13
	inv.Version = prev + 1
	require.NoError(t, e.store.Apply(ctx, &domain.Mutation{Inventory: inv, PrevVersion: prev}))

	report, err = e.reconciler.Reconcile(ctx, invID, false)
	require.NoError(t, err)
	assert.False(t, report.Consistent)
	assert.False(t, report.Corrected)
	assert.NotEmpty(t, report.Drift)

	report, err = e.reconciler.Reconcile(ctx, invID, true)
	require.NoError(t, err)
	assert.False(t, report.Consistent)
	assert.True(t, report.Corrected)

	// 校正分录之后台账重放与快照对齐
	ledgerTotal, err := e.store.SumLedgerTotal(ctx, invID)
	require.NoError(t, err)
	assert.Equal(t, int64(13), ledgerTotal)

	report, err = e.reconciler.Reconcile(ctx, invID, false)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
}
