// internal/service/inventory/domain/events.go
package domain

import "time"

// EventType 是对外发布的库存领域事件类型
type EventType string

const (
	EventReserved   EventType = "stock.reserved"
	EventReleased   EventType = "stock.released"
	EventCommitted  EventType = "stock.committed"
	EventLowStock   EventType = "stock.low_stock"
	EventOutOfStock EventType = "stock.out_of_stock"
	EventRestocked  EventType = "stock.restocked"
)

// StockEvent 是发布给外部协作方的事件载体
// 引擎自身只产出结构化结果，事件的翻译和投递由 publisher 适配器完成
type StockEvent struct {
	Type          EventType `json:"type"`
	InventoryID   string    `json:"inventory_id"`
	VariantID     string    `json:"variant_id"`
	Quantity      int64     `json:"quantity,omitempty"`
	ReservationID string    `json:"reservation_id,omitempty"`
	ReferenceType string    `json:"reference_type,omitempty"`
	ReferenceID   string    `json:"reference_id,omitempty"`
	Available     int64     `json:"available"`
	Reserved      int64     `json:"reserved"`
	Total         int64     `json:"total"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// StockChange 是一次成功变更的前后对照，由引擎返回给调用方
type StockChange struct {
	InventoryID string
	VariantID   string

	Before StockLevel
	After  StockLevel

	Available int64
	Reserved  int64
	Total     int64

	Entry *LedgerEntry
}

// LevelEvents 根据前后水位推导出水位跃迁事件
// 引擎不直接发事件，只把跃迁交给调用方翻译
func (c *StockChange) LevelEvents(now time.Time) []StockEvent {
	var events []StockEvent
	base := StockEvent{
		InventoryID: c.InventoryID,
		VariantID:   c.VariantID,
		Available:   c.Available,
		Reserved:    c.Reserved,
		Total:       c.Total,
		OccurredAt:  now,
	}

	if !c.Before.InStock && c.After.InStock {
		e := base
		e.Type = EventRestocked
		events = append(events, e)
	}
	if c.Before.InStock && !c.After.InStock {
		e := base
		e.Type = EventOutOfStock
		events = append(events, e)
	}
	if !c.Before.LowStock && c.After.LowStock && c.After.InStock {
		e := base
		e.Type = EventLowStock
		events = append(events, e)
	}
	return events
}
