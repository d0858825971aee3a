package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInventory(t *testing.T, available, reserved int64) *Inventory {
	t.Helper()
	inv := NewInventory("variant-1", "seller-1", "")
	inv.AvailableQuantity = available
	inv.ReservedQuantity = reserved
	inv.TotalQuantity = available + reserved
	require.NoError(t, inv.CheckInvariant())
	return inv
}

func TestInventoryIncreaseDecrease(t *testing.T) {
	inv := newTestInventory(t, 0, 0)

	require.NoError(t, inv.Increase(10))
	assert.Equal(t, int64(10), inv.AvailableQuantity)
	assert.Equal(t, int64(10), inv.TotalQuantity)

	require.NoError(t, inv.Decrease(4))
	assert.Equal(t, int64(6), inv.AvailableQuantity)
	assert.Equal(t, int64(6), inv.TotalQuantity)
	assert.NoError(t, inv.CheckInvariant())

	assert.ErrorIs(t, inv.Increase(0), ErrInvalidQuantity)
	assert.ErrorIs(t, inv.Decrease(-1), ErrInvalidQuantity)
}

func TestInventoryDecreaseInsufficient(t *testing.T) {
	inv := newTestInventory(t, 3, 5)

	err := inv.Decrease(4)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	var insufficient *InsufficientStockError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, int64(3), insufficient.Available)
	assert.Equal(t, int64(4), insufficient.Requested)

	// 预占中的数量不允许被出库扣走
	assert.Equal(t, int64(3), inv.AvailableQuantity)
	assert.Equal(t, int64(5), inv.ReservedQuantity)
}

func TestInventoryHoldAndRelease(t *testing.T) {
	inv := newTestInventory(t, 10, 0)

	require.NoError(t, inv.Hold(6))
	assert.Equal(t, int64(4), inv.AvailableQuantity)
	assert.Equal(t, int64(6), inv.ReservedQuantity)
	assert.Equal(t, int64(10), inv.TotalQuantity)
	assert.NoError(t, inv.CheckInvariant())

	// 剩余可用 4，再占 6 必须整体失败
	err := inv.Hold(6)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, int64(4), inv.AvailableQuantity)
	assert.Equal(t, int64(6), inv.ReservedQuantity)

	require.NoError(t, inv.ReleaseHold(6))
	assert.Equal(t, int64(10), inv.AvailableQuantity)
	assert.Equal(t, int64(0), inv.ReservedQuantity)
	assert.Equal(t, int64(10), inv.TotalQuantity)

	assert.ErrorIs(t, inv.ReleaseHold(1), ErrInvalidQuantity)
}

func TestInventoryConsumeHold(t *testing.T) {
	inv := newTestInventory(t, 4, 6)

	require.NoError(t, inv.ConsumeHold(6))
	assert.Equal(t, int64(4), inv.AvailableQuantity)
	assert.Equal(t, int64(0), inv.ReservedQuantity)
	assert.Equal(t, int64(4), inv.TotalQuantity)
	assert.NoError(t, inv.CheckInvariant())

	assert.ErrorIs(t, inv.ConsumeHold(1), ErrInvalidQuantity)
}

func TestInventoryAdjustTotal(t *testing.T) {
	inv := newTestInventory(t, 5, 5)

	require.NoError(t, inv.AdjustTotal(12))
	assert.Equal(t, int64(7), inv.AvailableQuantity)
	assert.Equal(t, int64(5), inv.ReservedQuantity)
	assert.Equal(t, int64(12), inv.TotalQuantity)
	assert.NoError(t, inv.CheckInvariant())

	// 总量不允许调到预占量以下
	assert.ErrorIs(t, inv.AdjustTotal(4), ErrInvalidAdjustment)
	assert.ErrorIs(t, inv.AdjustTotal(-1), ErrInvalidAdjustment)
	assert.Equal(t, int64(12), inv.TotalQuantity)
}

func TestInventoryLevel(t *testing.T) {
	inv := newTestInventory(t, 10, 0)
	inv.LowStockThreshold = 3

	level := inv.Level()
	assert.True(t, level.InStock)
	assert.False(t, level.LowStock)

	inv.AvailableQuantity = 3
	inv.TotalQuantity = 3
	level = inv.Level()
	assert.True(t, level.InStock)
	assert.True(t, level.LowStock)

	inv.AvailableQuantity = 0
	inv.TotalQuantity = 0
	level = inv.Level()
	assert.False(t, level.InStock)
}

func TestInventoryCheckInvariant(t *testing.T) {
	inv := newTestInventory(t, 5, 5)

	inv.TotalQuantity = 11
	assert.ErrorIs(t, inv.CheckInvariant(), ErrInvariantViolated)

	inv.TotalQuantity = 10
	inv.AvailableQuantity = -1
	assert.ErrorIs(t, inv.CheckInvariant(), ErrInvariantViolated)
}
