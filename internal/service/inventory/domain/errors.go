// internal/service/inventory/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInventoryNotFound   = errors.New("inventory not found")
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrInvalidQuantity 数量参数非法（非正数、超出预占量等）
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrInvalidAdjustment 校准目标总量非法（为负，或低于当前预占量）
	ErrInvalidAdjustment = errors.New("invalid stock adjustment")

	// ErrInvalidTransition 预占状态机不允许的流转
	ErrInvalidTransition = errors.New("invalid reservation state transition")

	// ErrConcurrencyConflict 乐观锁版本冲突；调用方可在有限次数内重试
	ErrConcurrencyConflict = errors.New("concurrency conflict")

	// ErrInvariantViolated 快照守恒等式被破坏，属于必须告警的数据故障
	ErrInvariantViolated = errors.New("inventory invariant violated")

	// ErrReservationRejected 预占请求未通过准入策略
	ErrReservationRejected = errors.New("reservation rejected by admission policy")

	// ErrInsufficientStock 供 errors.Is 匹配的哨兵；具体可用量在 InsufficientStockError 里
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrLedgerInconsistency 供 errors.Is 匹配的哨兵；详情见 LedgerInconsistencyError
	ErrLedgerInconsistency = errors.New("ledger inconsistency")
)

// InsufficientStockError 表示条件扣减失败，携带当下的可用量供调用方决策
type InsufficientStockError struct {
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: requested %d, available %d", e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// LedgerInconsistencyError 表示对账时发现快照与台账/预占的不一致
// 差异被限定在单条库存行内，通过追加校正分录解决
type LedgerInconsistencyError struct {
	InventoryID    string
	SnapshotTotal  int64
	LedgerTotal    int64
	SnapshotHold   int64
	ActiveHoldsSum int64
}

func (e *LedgerInconsistencyError) Error() string {
	return fmt.Sprintf("ledger inconsistency on inventory %s: snapshot total=%d ledger total=%d, snapshot reserved=%d active holds=%d",
		e.InventoryID, e.SnapshotTotal, e.LedgerTotal, e.SnapshotHold, e.ActiveHoldsSum)
}

func (e *LedgerInconsistencyError) Is(target error) bool {
	return target == ErrLedgerInconsistency
}
