// internal/service/inventory/application/dto.go
package application

import (
	"time"

	"stockd/internal/service/inventory/domain"
)

// ReserveCommand 是一次预占请求
type ReserveCommand struct {
	VariantID     string               `json:"variant_id"`
	Quantity      int64                `json:"quantity"`
	ReferenceType domain.ReferenceType `json:"reference_type"`
	ReferenceID   string               `json:"reference_id"`
	Priority      domain.Priority      `json:"priority"`
	ExpiresAt     *time.Time           `json:"expires_at,omitempty"`
	CreatedBy     string               `json:"created_by"`
}

// ReserveResult 返回新建预占的标识与当时的库存快照
type ReserveResult struct {
	ReservationID string           `json:"reservation_id"`
	Snapshot      InventorySummary `json:"snapshot"`
}

// ReleaseResult Released=false 表示这是一次幂等的空操作
type ReleaseResult struct {
	ReservationID string `json:"reservation_id"`
	Released      bool   `json:"released"`
}

// ConvertFailure 记录单条转换失败的原因
type ConvertFailure struct {
	ReservationID string `json:"reservation_id"`
	Error         string `json:"error"`
}

// ConvertResult 是软转硬的分项结果；部分失败不会中止整批
type ConvertResult struct {
	Converted []string         `json:"converted"`
	Failed    []ConvertFailure `json:"failed"`
}

// AvailabilityItem 是批量可用性查询中的一项
type AvailabilityItem struct {
	VariantID string `json:"variant_id"`
	Quantity  int64  `json:"quantity"`
}

// ItemAvailability 对单项请求的分类结果
type ItemAvailability struct {
	VariantID string `json:"variant_id"`
	Requested int64  `json:"requested"`
	Available int64  `json:"available"`
	// Status: available | partial | unavailable
	Status string `json:"status"`
	// SuggestedQuantity 部分可用时给出的可满足数量
	SuggestedQuantity int64 `json:"suggested_quantity,omitempty"`
}

// AvailabilityResult 汇总整批查询
type AvailabilityResult struct {
	FullyAvailable bool               `json:"fully_available"`
	Items          []ItemAvailability `json:"items"`
}

const (
	AvailabilityFull        = "available"
	AvailabilityPartial     = "partial"
	AvailabilityUnavailable = "unavailable"
)

// InventorySummary 是对外暴露的库存快照
type InventorySummary struct {
	InventoryID string `json:"inventory_id"`
	VariantID   string `json:"variant_id"`
	Available   int64  `json:"available"`
	Reserved    int64  `json:"reserved"`
	Total       int64  `json:"total"`
	Version     int64  `json:"version"`
	InStock     bool   `json:"in_stock"`
	LowStock    bool   `json:"low_stock"`
}

func summarize(inv *domain.Inventory) InventorySummary {
	level := inv.Level()
	return InventorySummary{
		InventoryID: inv.ID,
		VariantID:   inv.VariantID,
		Available:   inv.AvailableQuantity,
		Reserved:    inv.ReservedQuantity,
		Total:       inv.TotalQuantity,
		Version:     inv.Version,
		InStock:     level.InStock,
		LowStock:    level.LowStock,
	}
}

// AdjustItem 批量校准中的一项
type AdjustItem struct {
	InventoryID string `json:"inventory_id"`
	NewTotal    int64  `json:"new_total"`
	Reason      string `json:"reason"`
}

// AdjustFailure 单项校准失败
type AdjustFailure struct {
	InventoryID string `json:"inventory_id"`
	Error       string `json:"error"`
}

// BulkAdjustResult 批量校准的分项结果
type BulkAdjustResult struct {
	Succeeded []InventorySummary `json:"succeeded"`
	Failed    []AdjustFailure    `json:"failed"`
}

// ReconcileReport 是一次对账的结论
type ReconcileReport struct {
	InventoryID string `json:"inventory_id"`
	Consistent  bool   `json:"consistent"`
	// Drift 不一致时的详情描述
	Drift string `json:"drift,omitempty"`
	// Corrected 是否已写入校正分录
	Corrected bool             `json:"corrected"`
	Snapshot  InventorySummary `json:"snapshot"`
}

// SweepReport 是 Reaper 单轮扫描的汇总
type SweepReport struct {
	Attempted int `json:"attempted"`
	Released  int `json:"released"`
	Failed    int `json:"failed"`
}
