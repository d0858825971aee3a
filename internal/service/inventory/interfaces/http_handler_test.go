package interfaces

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"stockd/internal/service/inventory/application"
	"stockd/internal/service/inventory/infrastructure"
)

func newTestServer(t *testing.T) (*httptest.Server, *application.StockService) {
	t.Helper()
	store := infrastructure.NewMemoryInventoryStore()
	tracer := otel.Tracer("test")
	opts := application.EngineOptions{
		MaxPerReservation: 100,
		SoftHoldTTL:       30 * time.Minute,
		RetryAttempts:     3,
		RetryBackoff:      time.Millisecond,
	}
	stocks := application.NewStockService(store, nil, nil, nil, tracer, opts)
	reservations := application.NewReservationService(store, nil, nil, nil, tracer, opts)
	availability := application.NewAvailabilityService(store, nil, tracer, opts)
	reconciler := application.NewReconciler(store, nil, tracer, opts)

	mux := http.NewServeMux()
	NewInventoryHandler(stocks, reservations, availability, reconciler).RegisterRoutes(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, stocks
}

func post(t *testing.T, server *httptest.Server, path string, body interface{}) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(server.URL+path, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestReserveEndpoint(t *testing.T) {
	server, stocks := newTestServer(t)
	ctx := context.Background()

	summary, err := stocks.ProvisionInventory(ctx, "variant-1", "seller-1", "", 0, 0)
	require.NoError(t, err)
	_, err = stocks.IncreaseStock(ctx, summary.InventoryID, 10, "seed", "", "", "test")
	require.NoError(t, err)

	resp := post(t, server, "/reserve", map[string]interface{}{
		"variant_id":     "variant-1",
		"quantity":       6,
		"reference_type": "ORDER",
		"reference_id":   "order-1",
		"created_by":     "u",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result application.ReserveResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.NotEmpty(t, result.ReservationID)
	assert.Equal(t, int64(4), result.Snapshot.Available)

	// 可用不足映射为 409
	resp = post(t, server, "/reserve", map[string]interface{}{
		"variant_id":     "variant-1",
		"quantity":       6,
		"reference_type": "ORDER",
		"reference_id":   "order-2",
		"created_by":     "u",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestErrorStatusMapping(t *testing.T) {
	server, stocks := newTestServer(t)
	ctx := context.Background()

	summary, err := stocks.ProvisionInventory(ctx, "variant-1", "seller-1", "", 0, 0)
	require.NoError(t, err)
	_, err = stocks.IncreaseStock(ctx, summary.InventoryID, 10, "seed", "", "", "test")
	require.NoError(t, err)

	// 未知预占 -> 404
	resp := post(t, server, "/release", map[string]interface{}{
		"reservation_id": "missing", "reason": "test", "released_by": "u",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// 未知库存行 -> 404
	resp = post(t, server, "/adjust_stock", map[string]interface{}{
		"inventory_id": "missing", "new_total": 5, "reason": "count", "actor": "ops",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// 非法校准 -> 422
	resp = post(t, server, "/adjust_stock", map[string]interface{}{
		"inventory_id": summary.InventoryID, "new_total": -1, "reason": "count", "actor": "ops",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	reserveResp := post(t, server, "/reserve", map[string]interface{}{
		"variant_id": "variant-1", "quantity": 2,
		"reference_type": "ORDER", "reference_id": "order-1", "created_by": "u",
	})
	var reserved application.ReserveResult
	require.NoError(t, json.NewDecoder(reserveResp.Body).Decode(&reserved))
	resp = post(t, server, "/commit", map[string]interface{}{
		"reservation_id": reserved.ReservationID, "committed_by": "u",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// 重复提交 -> 403
	resp = post(t, server, "/commit", map[string]interface{}{
		"reservation_id": reserved.ReservationID, "committed_by": "u",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// 已提交的预占再释放是幂等空操作 -> 200
	resp = post(t, server, "/release", map[string]interface{}{
		"reservation_id": reserved.ReservationID, "reason": "late", "released_by": "u",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rel application.ReleaseResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rel))
	assert.False(t, rel.Released)
}

func TestCheckAvailabilityEndpoint(t *testing.T) {
	server, stocks := newTestServer(t)
	ctx := context.Background()

	summary, err := stocks.ProvisionInventory(ctx, "variant-1", "seller-1", "", 0, 0)
	require.NoError(t, err)
	_, err = stocks.IncreaseStock(ctx, summary.InventoryID, 3, "seed", "", "", "test")
	require.NoError(t, err)

	resp := post(t, server, "/check_availability", map[string]interface{}{
		"items": []map[string]interface{}{
			{"variant_id": "variant-1", "quantity": 5},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result application.AvailabilityResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.False(t, result.FullyAvailable)
	require.Len(t, result.Items, 1)
	assert.Equal(t, application.AvailabilityPartial, result.Items[0].Status)
	assert.Equal(t, int64(3), result.Items[0].SuggestedQuantity)
}

func TestGetInventoryEndpoint(t *testing.T) {
	server, stocks := newTestServer(t)
	ctx := context.Background()

	summary, err := stocks.ProvisionInventory(ctx, "variant-1", "seller-1", "", 0, 0)
	require.NoError(t, err)

	resp, err := http.Get(server.URL + "/inventory?inventory_id=" + summary.InventoryID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got application.InventorySummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "variant-1", got.VariantID)

	resp, err = http.Get(server.URL + "/inventory")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
