package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"stockd/internal/service/inventory/domain"
)

func TestReaperReleasesExpiredHolds(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	invID := e.seedInventory(t, "variant-1", 10)

	expired := time.Now().Add(-time.Minute)
	soft, err := e.reservations.Reserve(ctx, ReserveCommand{
		VariantID: "variant-1", Quantity: 4,
		ReferenceType: domain.RefCart, ReferenceID: "cart-1",
		ExpiresAt: &expired, CreatedBy: "u",
	})
	require.NoError(t, err)

	// 未过期的软预占和不过期的硬预占都不能被扫走
	future := time.Now().Add(time.Hour)
	fresh, err := e.reservations.Reserve(ctx, ReserveCommand{
		VariantID: "variant-1", Quantity: 2,
		ReferenceType: domain.RefCart, ReferenceID: "cart-2",
		ExpiresAt: &future, CreatedBy: "u",
	})
	require.NoError(t, err)
	hard, err := e.reservations.Reserve(ctx, ReserveCommand{
		VariantID: "variant-1", Quantity: 1,
		ReferenceType: domain.RefOrder, ReferenceID: "order-1", CreatedBy: "u",
	})
	require.NoError(t, err)

	reaper := NewReaper(e.store, e.reservations, otel.Tracer("test"), time.Minute, 100)
	report := reaper.SweepOnce(ctx)
	assert.Equal(t, 1, report.Attempted)
	assert.Equal(t, 1, report.Released)
	assert.Equal(t, 0, report.Failed)

	rsv, err := e.store.GetReservation(ctx, soft.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationReleased, rsv.Status)
	assert.Equal(t, "EXPIRED", rsv.ReleaseReason)
	assert.Equal(t, "SYSTEM", rsv.ReleasedBy)

	for _, id := range []string{fresh.ReservationID, hard.ReservationID} {
		rsv, err := e.store.GetReservation(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.ReservationActive, rsv.Status)
	}

	// 数量回到可用池，分录闭环
	inv, err := e.store.GetInventory(ctx, invID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), inv.AvailableQuantity)
	assert.Equal(t, int64(3), inv.ReservedQuantity)
	require.NoError(t, inv.CheckInvariant())

	entries, err := e.store.LedgerEntries(ctx, invID)
	require.NoError(t, err)
	last := entries[len(entries)-1]
	assert.Equal(t, domain.EntryRelease, last.Type)
	assert.Equal(t, int64(4), last.Quantity)

	// 第二轮无事可做
	report = reaper.SweepOnce(ctx)
	assert.Equal(t, 0, report.Attempted)
}

// releaseBeforeReapStore 在扫描到过期预占之后、Reaper 处理之前插入一次
// 用户释放，复现扫描与释放竞争的交错
type releaseBeforeReapStore struct {
	domain.InventoryStore
	reservations *ReservationService
	released     bool
	t            *testing.T
}

func (s *releaseBeforeReapStore) FindExpired(ctx context.Context, now time.Time, limit int) ([]*domain.Reservation, error) {
	out, err := s.InventoryStore.FindExpired(ctx, now, limit)
	if err == nil && !s.released && len(out) > 0 {
		s.released = true
		_, rerr := s.reservations.Release(ctx, out[0].ID, "user cancelled", "u")
		require.NoError(s.t, rerr)
	}
	return out, err
}

func TestReaperSkipsHoldReleasedDuringSweep(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	invID := e.seedInventory(t, "variant-1", 10)

	expired := time.Now().Add(-time.Minute)
	soft, err := e.reservations.Reserve(ctx, ReserveCommand{
		VariantID: "variant-1", Quantity: 4,
		ReferenceType: domain.RefCart, ReferenceID: "cart-1",
		ExpiresAt: &expired, CreatedBy: "u",
	})
	require.NoError(t, err)
	_, err = e.reservations.Reserve(ctx, ReserveCommand{
		VariantID: "variant-1", Quantity: 6,
		ReferenceType: domain.RefOrder, ReferenceID: "order-1", CreatedBy: "u",
	})
	require.NoError(t, err)

	wrapped := &releaseBeforeReapStore{InventoryStore: e.store, reservations: e.reservations, t: t}
	reaper := NewReaper(wrapped, e.reservations, otel.Tracer("test"), time.Minute, 100)
	report := reaper.SweepOnce(ctx)
	assert.Equal(t, 1, report.Attempted)
	assert.Equal(t, 0, report.Failed)

	// 用户释放的结果保留，Reaper 不把终态行改回 EXPIRED，更不二次归还数量
	rsv, err := e.store.GetReservation(ctx, soft.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationReleased, rsv.Status)
	assert.Equal(t, "user cancelled", rsv.ReleaseReason)
	assert.Equal(t, "u", rsv.ReleasedBy)

	inv, err := e.store.GetInventory(ctx, invID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), inv.AvailableQuantity)
	assert.Equal(t, int64(6), inv.ReservedQuantity)
	require.NoError(t, inv.CheckInvariant())

	activeSum, err := e.store.SumActiveQuantity(ctx, "variant-1")
	require.NoError(t, err)
	assert.Equal(t, inv.ReservedQuantity, activeSum)

	// RELEASE 分录只有用户释放的那一条
	entries, err := e.store.LedgerEntries(ctx, invID)
	require.NoError(t, err)
	releases := 0
	for _, entry := range entries {
		if entry.Type == domain.EntryRelease {
			releases++
		}
	}
	assert.Equal(t, 1, releases)
}

func TestReaperRunStopsOnCancel(t *testing.T) {
	e := newEngine(t)
	reaper := NewReaper(e.store, e.reservations, otel.Tracer("test"), 10*time.Millisecond, 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		reaper.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop after context cancellation")
	}
}
