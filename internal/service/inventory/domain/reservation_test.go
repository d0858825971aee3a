package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReservationLifecycle(t *testing.T) {
	expiry := time.Now().Add(30 * time.Minute)
	r := NewReservation("variant-1", 5, RefCart, "cart-1", RefCart, &expiry, "user-1")

	assert.Equal(t, ReservationActive, r.Status)
	assert.False(t, r.IsTerminal())
	assert.False(t, r.IsExpired(time.Now()))
	assert.True(t, r.IsExpired(expiry.Add(time.Second)))

	require.NoError(t, r.Commit())
	assert.Equal(t, ReservationCommitted, r.Status)
	assert.True(t, r.IsTerminal())

	// 终态之后任何流转都非法
	assert.ErrorIs(t, r.Commit(), ErrInvalidTransition)
	assert.ErrorIs(t, r.Release("late", "user-1"), ErrInvalidTransition)
	assert.ErrorIs(t, r.MarkExpired(), ErrInvalidTransition)
}

func TestReservationRelease(t *testing.T) {
	r := NewReservation("variant-1", 5, RefOrder, "order-1", RefOrder, nil, "user-1")

	require.NoError(t, r.Release("cancelled", "user-1"))
	assert.Equal(t, ReservationReleased, r.Status)
	assert.Equal(t, "cancelled", r.ReleaseReason)
	assert.Equal(t, "user-1", r.ReleasedBy)
	require.NotNil(t, r.ReleasedAt)

	assert.ErrorIs(t, r.Release("again", "user-1"), ErrInvalidTransition)
}

func TestReservationExpiryFlow(t *testing.T) {
	expiry := time.Now().Add(-time.Minute)
	r := NewReservation("variant-1", 2, RefCart, "cart-1", RefCart, &expiry, "user-1")

	require.NoError(t, r.MarkExpired())
	assert.Equal(t, ReservationExpired, r.Status)
	assert.False(t, r.IsTerminal())

	// EXPIRED 是瞬态，随后的释放完成账务闭环
	require.NoError(t, r.Release("EXPIRED", "SYSTEM"))
	assert.Equal(t, ReservationReleased, r.Status)
}

func TestReservationConvertTo(t *testing.T) {
	expiry := time.Now().Add(30 * time.Minute)
	soft := NewReservation("variant-1", 3, RefCart, "cart-1", RefCart, &expiry, "user-1")

	require.NoError(t, soft.ConvertTo("hard-id"))
	assert.Equal(t, ReservationCommitted, soft.Status)
	assert.Equal(t, "hard-id", soft.ConvertedToReservationID)

	released := NewReservation("variant-1", 3, RefCart, "cart-2", RefCart, &expiry, "user-1")
	require.NoError(t, released.Release("cancelled", "user-1"))
	assert.ErrorIs(t, released.ConvertTo("hard-id"), ErrInvalidTransition)
}

func TestEntryTypeAffectsTotal(t *testing.T) {
	assert.True(t, EntryInbound.AffectsTotal())
	assert.True(t, EntryOutbound.AffectsTotal())
	assert.True(t, EntryAdjustment.AffectsTotal())
	assert.False(t, EntryReservation.AffectsTotal())
	assert.False(t, EntryRelease.AffectsTotal())
}

func TestStockChangeLevelEvents(t *testing.T) {
	now := time.Now()

	change := &StockChange{
		InventoryID: "inv-1",
		VariantID:   "variant-1",
		Before:      StockLevel{InStock: true},
		After:       StockLevel{InStock: false},
	}
	events := change.LevelEvents(now)
	require.Len(t, events, 1)
	assert.Equal(t, EventOutOfStock, events[0].Type)

	change = &StockChange{
		Before: StockLevel{InStock: false},
		After:  StockLevel{InStock: true, LowStock: true},
	}
	events = change.LevelEvents(now)
	require.Len(t, events, 2)
	assert.Equal(t, EventRestocked, events[0].Type)
	assert.Equal(t, EventLowStock, events[1].Type)

	change = &StockChange{
		Before: StockLevel{InStock: true},
		After:  StockLevel{InStock: true},
	}
	assert.Empty(t, change.LevelEvents(now))
}
