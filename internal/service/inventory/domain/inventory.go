// internal/service/inventory/domain/inventory.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Inventory 是某个 variant×seller×warehouse 维度的库存快照聚合
// 不变式: TotalQuantity == AvailableQuantity + ReservedQuantity，任何已提交的变更之后都必须成立
type Inventory struct {
	ID          string
	VariantID   string
	SellerID    string
	WarehouseID string // 可选，为空表示不按仓库拆分

	AvailableQuantity int64
	ReservedQuantity  int64
	TotalQuantity     int64

	// LowStockThreshold 低库存水位线，0 表示未配置
	LowStockThreshold int64
	// OutOfStockThreshold 低于等于该值视为无货，默认 0
	OutOfStockThreshold int64

	// Version 乐观并发令牌，每次快照写入时递增
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewInventory 创建一条新的库存行，所有数量从零开始
// 数量只能通过分录驱动的操作变化，不允许直接赋值
func NewInventory(variantID, sellerID, warehouseID string) *Inventory {
	now := time.Now()
	return &Inventory{
		ID:          uuid.New().String(),
		VariantID:   variantID,
		SellerID:    sellerID,
		WarehouseID: warehouseID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Increase 入库，qty 必须为正
func (inv *Inventory) Increase(qty int64) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	inv.AvailableQuantity += qty
	inv.TotalQuantity += qty
	inv.UpdatedAt = time.Now()
	return nil
}

// Decrease 出库，只能扣减可用部分；已预占的数量不允许被出库扣走
func (inv *Inventory) Decrease(qty int64) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if qty > inv.AvailableQuantity {
		return &InsufficientStockError{Available: inv.AvailableQuantity, Requested: qty}
	}
	inv.AvailableQuantity -= qty
	inv.TotalQuantity -= qty
	inv.UpdatedAt = time.Now()
	return nil
}

// AdjustTotal 将总量直接校准到 newTotal（盘点场景）
// 预占中的数量是对买家的承诺，总量不允许调到预占量以下
func (inv *Inventory) AdjustTotal(newTotal int64) error {
	if newTotal < 0 {
		return ErrInvalidAdjustment
	}
	if newTotal < inv.ReservedQuantity {
		return ErrInvalidAdjustment
	}
	inv.TotalQuantity = newTotal
	inv.AvailableQuantity = newTotal - inv.ReservedQuantity
	inv.UpdatedAt = time.Now()
	return nil
}

// Hold 把 qty 从可用移入预占；检查和扣减必须在同一个原子单元内提交
// 调用方负责把返回后的快照用 CAS 写回，版本冲突时整体重做
func (inv *Inventory) Hold(qty int64) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if inv.AvailableQuantity < qty {
		return &InsufficientStockError{Available: inv.AvailableQuantity, Requested: qty}
	}
	inv.AvailableQuantity -= qty
	inv.ReservedQuantity += qty
	inv.UpdatedAt = time.Now()
	return nil
}

// ReleaseHold 把 qty 从预占退回可用
func (inv *Inventory) ReleaseHold(qty int64) error {
	if qty <= 0 || qty > inv.ReservedQuantity {
		return ErrInvalidQuantity
	}
	inv.ReservedQuantity -= qty
	inv.AvailableQuantity += qty
	inv.UpdatedAt = time.Now()
	return nil
}

// ConsumeHold 预占提交：数量永久离开预占池，等待履约时的 OUTBOUND 出库
func (inv *Inventory) ConsumeHold(qty int64) error {
	if qty <= 0 || qty > inv.ReservedQuantity {
		return ErrInvalidQuantity
	}
	inv.ReservedQuantity -= qty
	inv.TotalQuantity -= qty
	inv.UpdatedAt = time.Now()
	return nil
}

// Level 返回当前的库存水位标志
func (inv *Inventory) Level() StockLevel {
	return StockLevel{
		InStock:  inv.AvailableQuantity > inv.OutOfStockThreshold,
		LowStock: inv.LowStockThreshold > 0 && inv.AvailableQuantity <= inv.LowStockThreshold,
	}
}

// CheckInvariant 校验快照自身的守恒等式
func (inv *Inventory) CheckInvariant() error {
	if inv.AvailableQuantity < 0 || inv.ReservedQuantity < 0 || inv.TotalQuantity < 0 {
		return ErrInvariantViolated
	}
	if inv.TotalQuantity != inv.AvailableQuantity+inv.ReservedQuantity {
		return ErrInvariantViolated
	}
	return nil
}

// StockLevel 是一次操作前后的库存水位，用于推导事件信号
type StockLevel struct {
	InStock  bool
	LowStock bool
}
