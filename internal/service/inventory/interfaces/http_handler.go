package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"stockd/internal/pkg/logger"
	"stockd/internal/service/inventory/application"
	"stockd/internal/service/inventory/domain"
)

// InventoryHandler 封装库存引擎的 HTTP 处理器
type InventoryHandler struct {
	stocks       *application.StockService
	reservations *application.ReservationService
	availability *application.AvailabilityService
	reconciler   *application.Reconciler
}

// NewInventoryHandler 创建一个新的 HTTP 处理器实例
func NewInventoryHandler(stocks *application.StockService, reservations *application.ReservationService, availability *application.AvailabilityService, reconciler *application.Reconciler) *InventoryHandler {
	return &InventoryHandler{
		stocks:       stocks,
		reservations: reservations,
		availability: availability,
		reconciler:   reconciler,
	}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *InventoryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/reserve", h.reserve)
	mux.HandleFunc("/release", h.release)
	mux.HandleFunc("/commit", h.commit)
	mux.HandleFunc("/convert_soft_to_hard", h.convertSoftToHard)
	mux.HandleFunc("/check_availability", h.checkAvailability)

	mux.HandleFunc("/provision_inventory", h.provisionInventory)
	mux.HandleFunc("/increase_stock", h.increaseStock)
	mux.HandleFunc("/decrease_stock", h.decreaseStock)
	mux.HandleFunc("/adjust_stock", h.adjustStock)
	mux.HandleFunc("/bulk_adjust_stock", h.bulkAdjustStock)
	mux.HandleFunc("/reconcile", h.reconcile)
	mux.HandleFunc("/inventory", h.getInventory)
}

func (h *InventoryHandler) reserve(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	var cmd application.ReserveCommand
	if !decode(w, r, &cmd) {
		return
	}
	result, err := h.reservations.Reserve(ctx, cmd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

type releaseRequest struct {
	ReservationID string `json:"reservation_id"`
	Reason        string `json:"reason"`
	ReleasedBy    string `json:"released_by"`
}

func (h *InventoryHandler) release(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	var req releaseRequest
	if !decode(w, r, &req) {
		return
	}
	result, err := h.reservations.Release(ctx, req.ReservationID, req.Reason, req.ReleasedBy)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type commitRequest struct {
	ReservationID string `json:"reservation_id"`
	CommittedBy   string `json:"committed_by"`
}

func (h *InventoryHandler) commit(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	var req commitRequest
	if !decode(w, r, &req) {
		return
	}
	summary, err := h.reservations.Commit(ctx, req.ReservationID, req.CommittedBy)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type convertRequest struct {
	CartID      string `json:"cart_id"`
	OrderID     string `json:"order_id"`
	ConvertedBy string `json:"converted_by"`
}

func (h *InventoryHandler) convertSoftToHard(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	var req convertRequest
	if !decode(w, r, &req) {
		return
	}
	result, err := h.reservations.ConvertSoftToHard(ctx, req.CartID, req.OrderID, req.ConvertedBy)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type checkAvailabilityRequest struct {
	Items []application.AvailabilityItem `json:"items"`
}

func (h *InventoryHandler) checkAvailability(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	var req checkAvailabilityRequest
	if !decode(w, r, &req) {
		return
	}
	result, err := h.availability.Check(ctx, req.Items)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type provisionRequest struct {
	VariantID           string `json:"variant_id"`
	SellerID            string `json:"seller_id"`
	WarehouseID         string `json:"warehouse_id"`
	LowStockThreshold   int64  `json:"low_stock_threshold"`
	OutOfStockThreshold int64  `json:"out_of_stock_threshold"`
}

func (h *InventoryHandler) provisionInventory(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	var req provisionRequest
	if !decode(w, r, &req) {
		return
	}
	summary, err := h.stocks.ProvisionInventory(ctx, req.VariantID, req.SellerID, req.WarehouseID, req.LowStockThreshold, req.OutOfStockThreshold)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, summary)
}

type quantityRequest struct {
	InventoryID   string `json:"inventory_id"`
	Quantity      int64  `json:"quantity"`
	Reason        string `json:"reason"`
	ReferenceType string `json:"reference_type"`
	ReferenceID   string `json:"reference_id"`
	Actor         string `json:"actor"`
}

func (h *InventoryHandler) increaseStock(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	var req quantityRequest
	if !decode(w, r, &req) {
		return
	}
	summary, err := h.stocks.IncreaseStock(ctx, req.InventoryID, req.Quantity, req.Reason, req.ReferenceType, req.ReferenceID, req.Actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *InventoryHandler) decreaseStock(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	var req quantityRequest
	if !decode(w, r, &req) {
		return
	}
	summary, err := h.stocks.DecreaseStock(ctx, req.InventoryID, req.Quantity, req.Reason, req.ReferenceType, req.ReferenceID, req.Actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type adjustRequest struct {
	InventoryID string `json:"inventory_id"`
	NewTotal    int64  `json:"new_total"`
	Reason      string `json:"reason"`
	Actor       string `json:"actor"`
}

func (h *InventoryHandler) adjustStock(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	var req adjustRequest
	if !decode(w, r, &req) {
		return
	}
	summary, err := h.stocks.AdjustStock(ctx, req.InventoryID, req.NewTotal, req.Reason, req.Actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type bulkAdjustRequest struct {
	Items []application.AdjustItem `json:"items"`
	Actor string                   `json:"actor"`
}

func (h *InventoryHandler) bulkAdjustStock(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	var req bulkAdjustRequest
	if !decode(w, r, &req) {
		return
	}
	result := h.stocks.BulkAdjustStock(ctx, req.Items, req.Actor)
	writeJSON(w, http.StatusOK, result)
}

type reconcileRequest struct {
	InventoryID string `json:"inventory_id"`
	Correct     bool   `json:"correct"`
}

func (h *InventoryHandler) reconcile(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	var req reconcileRequest
	if !decode(w, r, &req) {
		return
	}
	report, err := h.reconciler.Reconcile(ctx, req.InventoryID, req.Correct)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *InventoryHandler) getInventory(w http.ResponseWriter, r *http.Request) {
	ctx := extract(r)
	id := r.URL.Query().Get("inventory_id")
	if id == "" {
		http.Error(w, "inventory_id is required", http.StatusBadRequest)
		return
	}
	summary, err := h.stocks.GetInventory(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// extract 从请求头恢复上游链路上下文
func extract(r *http.Request) context.Context {
	return otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError 把领域错误映射为 HTTP 状态码
// ConcurrencyConflict 返回 503，提示调用方可以安全重试
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInventoryNotFound), errors.Is(err, domain.ErrReservationNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientStock):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInvalidTransition):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidAdjustment), errors.Is(err, domain.ErrInvalidQuantity):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrReservationRejected):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrConcurrencyConflict):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		logger.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}
	http.Error(w, err.Error(), status)
}
