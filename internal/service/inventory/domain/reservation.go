// internal/service/inventory/domain/reservation.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReservationStatus 是预占的生命周期状态
type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "ACTIVE"    // 占用中，计入 reservedQuantity
	ReservationCommitted ReservationStatus = "COMMITTED" // 已提交（终态）
	ReservationReleased  ReservationStatus = "RELEASED"  // 已释放（终态）
	ReservationExpired   ReservationStatus = "EXPIRED"   // 已过期，等待释放做账务闭环
)

// ReferenceType 标识预占挂在哪类业务对象上
type ReferenceType string

const (
	RefCart   ReferenceType = "CART"   // 购物车软预占，必须带过期时间
	RefOrder  ReferenceType = "ORDER"  // 订单硬预占，默认不过期
	RefSystem ReferenceType = "SYSTEM" // 系统内部占用
)

// Priority 与 ReferenceType 同值域，决定运营侧处理优先级
type Priority = ReferenceType

// Reservation 是一次库存占用的记录
type Reservation struct {
	ID        string
	VariantID string
	Quantity  int64

	ReferenceType ReferenceType
	ReferenceID   string
	Status        ReservationStatus
	Priority      Priority

	// ExpiresAt 软预占的过期时刻；硬预占为 nil
	ExpiresAt *time.Time

	// ParentReservationID 硬预占指回它转换自的软预占
	ParentReservationID string
	// ConvertedToReservationID 软预占转换完成后指向新的硬预占
	ConvertedToReservationID string

	CreatedBy     string
	ReleasedBy    string
	ReleasedAt    *time.Time
	ReleaseReason string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewReservation 创建一条 ACTIVE 状态的预占
// 只允许在库存条件扣减成功之后调用
func NewReservation(variantID string, quantity int64, refType ReferenceType, refID string, priority Priority, expiresAt *time.Time, createdBy string) *Reservation {
	now := time.Now()
	return &Reservation{
		ID:            uuid.New().String(),
		VariantID:     variantID,
		Quantity:      quantity,
		ReferenceType: refType,
		ReferenceID:   refID,
		Status:        ReservationActive,
		Priority:      priority,
		ExpiresAt:     expiresAt,
		CreatedBy:     createdBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsTerminal 返回预占是否已进入终态
func (r *Reservation) IsTerminal() bool {
	return r.Status == ReservationCommitted || r.Status == ReservationReleased
}

// IsExpired 判断软预占在 now 时刻是否已过期
func (r *Reservation) IsExpired(now time.Time) bool {
	return r.ExpiresAt != nil && r.ExpiresAt.Before(now)
}

// Release 状态机: ACTIVE/EXPIRED -> RELEASED
// 终态上的重复释放由应用层按幂等处理，这里只负责合法流转
func (r *Reservation) Release(reason, releasedBy string) error {
	if r.Status != ReservationActive && r.Status != ReservationExpired {
		return ErrInvalidTransition
	}
	now := time.Now()
	r.Status = ReservationReleased
	r.ReleaseReason = reason
	r.ReleasedBy = releasedBy
	r.ReleasedAt = &now
	r.UpdatedAt = now
	return nil
}

// Commit 状态机: ACTIVE -> COMMITTED；其余状态一律拒绝
func (r *Reservation) Commit() error {
	if r.Status != ReservationActive {
		return ErrInvalidTransition
	}
	r.Status = ReservationCommitted
	r.UpdatedAt = time.Now()
	return nil
}

// MarkExpired 状态机: ACTIVE -> EXPIRED
// 过期是瞬态，真正的数量归还发生在随后的 Release
func (r *Reservation) MarkExpired() error {
	if r.Status != ReservationActive {
		return ErrInvalidTransition
	}
	r.Status = ReservationExpired
	r.UpdatedAt = time.Now()
	return nil
}

// ConvertTo 把软预占标记为已转换：状态置为 COMMITTED 并记录新硬预占的 ID
// 这是账务转移而不是释放再预占，数量在转换过程中保持不动
func (r *Reservation) ConvertTo(hardReservationID string) error {
	if r.Status != ReservationActive {
		return ErrInvalidTransition
	}
	r.Status = ReservationCommitted
	r.ConvertedToReservationID = hardReservationID
	r.UpdatedAt = time.Now()
	return nil
}
