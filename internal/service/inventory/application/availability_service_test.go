package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"stockd/internal/service/inventory/domain"
	"stockd/internal/service/inventory/port"
)

// mapCache 是 AvailabilityCache 的进程内替身
type mapCache struct {
	mu        sync.Mutex
	snapshots map[string]*port.AvailabilitySnapshot
	hits      int
}

func newMapCache() *mapCache {
	return &mapCache{snapshots: make(map[string]*port.AvailabilitySnapshot)}
}

func (c *mapCache) Get(_ context.Context, variantID string) (*port.AvailabilitySnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.snapshots[variantID]; ok {
		c.hits++
		copied := *s
		return &copied, nil
	}
	return nil, nil
}

func (c *mapCache) Set(_ context.Context, snapshot *port.AvailabilitySnapshot, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	copied := *snapshot
	c.snapshots[snapshot.VariantID] = &copied
	return nil
}

func (c *mapCache) Invalidate(_ context.Context, variantID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.snapshots, variantID)
	return nil
}

func TestCheckAvailabilityClassification(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	e.seedInventory(t, "variant-full", 10)
	e.seedInventory(t, "variant-partial", 3)
	e.seedInventory(t, "variant-empty", 0)

	result, err := e.availability.Check(ctx, []AvailabilityItem{
		{VariantID: "variant-full", Quantity: 5},
		{VariantID: "variant-partial", Quantity: 5},
		{VariantID: "variant-empty", Quantity: 5},
	})
	require.NoError(t, err)
	assert.False(t, result.FullyAvailable)
	require.Len(t, result.Items, 3)

	assert.Equal(t, AvailabilityFull, result.Items[0].Status)
	assert.Equal(t, AvailabilityPartial, result.Items[1].Status)
	assert.Equal(t, int64(3), result.Items[1].SuggestedQuantity)
	assert.Equal(t, AvailabilityUnavailable, result.Items[2].Status)
	assert.Zero(t, result.Items[2].SuggestedQuantity)
}

func TestCheckAvailabilityFullyAvailable(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	e.seedInventory(t, "variant-1", 10)
	e.seedInventory(t, "variant-2", 10)

	result, err := e.availability.Check(ctx, []AvailabilityItem{
		{VariantID: "variant-1", Quantity: 10},
		{VariantID: "variant-2", Quantity: 1},
	})
	require.NoError(t, err)
	assert.True(t, result.FullyAvailable)
}

func TestCheckAvailabilityUnknownVariant(t *testing.T) {
	e := newEngine(t)
	_, err := e.availability.Check(context.Background(), []AvailabilityItem{
		{VariantID: "missing", Quantity: 1},
	})
	assert.ErrorIs(t, err, domain.ErrInventoryNotFound)
}

func TestAvailabilityUsesAndInvalidatesCache(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	cache := newMapCache()
	availability := NewAvailabilityService(e.store, cache, otel.Tracer("test"), testOpts)
	reservations := NewReservationService(e.store, nil, cache, nil, otel.Tracer("test"), testOpts)
	e.seedInventory(t, "variant-1", 10)

	// 第一次回源并回填，第二次命中缓存
	_, err := availability.Check(ctx, []AvailabilityItem{{VariantID: "variant-1", Quantity: 1}})
	require.NoError(t, err)
	_, err = availability.Check(ctx, []AvailabilityItem{{VariantID: "variant-1", Quantity: 1}})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)

	// 写路径变更后缓存被失效，下一次查询看到新的可用量
	_, err = reservations.Reserve(ctx, ReserveCommand{
		VariantID: "variant-1", Quantity: 8,
		ReferenceType: domain.RefOrder, ReferenceID: "order-1", CreatedBy: "u",
	})
	require.NoError(t, err)

	result, err := availability.Check(ctx, []AvailabilityItem{{VariantID: "variant-1", Quantity: 5}})
	require.NoError(t, err)
	assert.Equal(t, AvailabilityPartial, result.Items[0].Status)
	assert.Equal(t, int64(2), result.Items[0].Available)
}
