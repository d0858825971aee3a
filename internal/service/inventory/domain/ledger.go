// internal/service/inventory/domain/ledger.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// EntryType 是分录类型
type EntryType string

const (
	EntryInbound     EntryType = "INBOUND"     // 入库
	EntryOutbound    EntryType = "OUTBOUND"    // 出库
	EntryAdjustment  EntryType = "ADJUSTMENT"  // 盘点校准 / 对账校正
	EntryReservation EntryType = "RESERVATION" // 预占（只在可用与预占之间移动，不改变总量）
	EntryRelease     EntryType = "RELEASE"     // 预占释放
)

// AffectsTotal 返回该类型分录是否改变总量
// 重放分录推导总量时只累加这类分录
func (t EntryType) AffectsTotal() bool {
	switch t {
	case EntryInbound, EntryOutbound, EntryAdjustment:
		return true
	}
	return false
}

// LedgerEntry 是库存台账中的一条分录，追加后不可修改、不可删除
// 对账发现差异时只会追加校正分录，绝不改写历史
type LedgerEntry struct {
	ID          string
	InventoryID string
	Type        EntryType
	// Quantity 带符号的数量变化
	Quantity int64
	// RunningBalance 本条分录提交后的总量
	RunningBalance int64

	ReferenceType string
	ReferenceID   string
	Reason        string
	CreatedBy     string
	CreatedAt     time.Time
}

// NewLedgerEntry 生成一条新分录；runningBalance 由调用方在同一原子单元内计算
func NewLedgerEntry(inventoryID string, entryType EntryType, quantity, runningBalance int64, refType, refID, reason, createdBy string) *LedgerEntry {
	return &LedgerEntry{
		ID:             uuid.New().String(),
		InventoryID:    inventoryID,
		Type:           entryType,
		Quantity:       quantity,
		RunningBalance: runningBalance,
		ReferenceType:  refType,
		ReferenceID:    refID,
		Reason:         reason,
		CreatedBy:      createdBy,
		CreatedAt:      time.Now(),
	}
}
