// internal/service/inventory/domain/repository.go
package domain

import (
	"context"
	"time"
)

// Mutation 描述一次对单条库存行的原子变更单元:
// 快照 CAS 写入、恰好一条分录、可选的预占行创建/更新，三者要么全部落库要么全部回滚
// 快照写入以 PrevVersion 做条件，预占更新以 PrevReservationStatus 做条件，
// 任一条件不满足时实现必须整体放弃并返回 ErrConcurrencyConflict
type Mutation struct {
	Inventory   *Inventory
	PrevVersion int64

	Entry *LedgerEntry

	CreateReservation *Reservation
	UpdateReservation *Reservation
	// PrevReservationStatus 非空时要求存量预占行仍处于该状态才允许覆盖，
	// 防止把并发方已推进到终态的预占行改回去
	PrevReservationStatus ReservationStatus
}

// InventoryStore 是库存引擎的持久化端口，由基础设施层实现
type InventoryStore interface {
	// CreateInventory 建一条全零的库存行
	CreateInventory(ctx context.Context, inv *Inventory) error

	// GetInventory 按行 ID 查找
	GetInventory(ctx context.Context, id string) (*Inventory, error)

	// GetInventoryByVariant 按 variant 查找库存行
	GetInventoryByVariant(ctx context.Context, variantID string) (*Inventory, error)

	// Apply 原子提交一个 Mutation
	Apply(ctx context.Context, m *Mutation) error

	// GetReservation 按 ID 查找预占
	GetReservation(ctx context.Context, id string) (*Reservation, error)

	// FindActiveByReference 查找挂在某个业务对象上的全部 ACTIVE 预占
	FindActiveByReference(ctx context.Context, refType ReferenceType, refID string) ([]*Reservation, error)

	// FindExpired 查找 expiresAt 早于 now 的 ACTIVE 预占，供 Reaper 扫描
	FindExpired(ctx context.Context, now time.Time, limit int) ([]*Reservation, error)

	// SumActiveQuantity 汇总某 variant 上所有 ACTIVE 预占的数量，对账用
	SumActiveQuantity(ctx context.Context, variantID string) (int64, error)

	// LedgerEntries 按创建顺序返回一条库存行的全部分录
	LedgerEntries(ctx context.Context, inventoryID string) ([]*LedgerEntry, error)

	// SumLedgerTotal 重放分录得到总量（只累加影响总量的分录类型）
	SumLedgerTotal(ctx context.Context, inventoryID string) (int64, error)
}
