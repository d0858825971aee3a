package infrastructure

import (
	"time"

	"stockd/internal/service/inventory/domain"
)

// InventoryModel 对应数据库中的 inventory 表
type InventoryModel struct {
	ID          string `gorm:"primaryKey;size:36"`
	VariantID   string `gorm:"uniqueIndex;size:64"`
	SellerID    string `gorm:"size:64"`
	WarehouseID string `gorm:"size:64"`

	AvailableQuantity int64
	ReservedQuantity  int64
	TotalQuantity     int64

	LowStockThreshold   int64
	OutOfStockThreshold int64

	// Version 乐观锁令牌，条件更新的 WHERE 条件
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 指定 GORM 应该使用的表名
func (InventoryModel) TableName() string {
	return "inventory"
}

// ReservationModel 对应数据库中的 reservation 表
type ReservationModel struct {
	ID        string `gorm:"primaryKey;size:36"`
	VariantID string `gorm:"index;size:64"`
	Quantity  int64

	ReferenceType string                   `gorm:"size:16;index:idx_reference"`
	ReferenceID   string                   `gorm:"size:64;index:idx_reference"`
	Status        domain.ReservationStatus `gorm:"size:16;index"`
	Priority      string                   `gorm:"size:16"`

	// ExpiresAt 为空表示不过期；Reaper 按 (status, expires_at) 扫描
	ExpiresAt *time.Time `gorm:"index"`

	ParentReservationID      string `gorm:"size:36"`
	ConvertedToReservationID string `gorm:"size:36"`

	CreatedBy     string `gorm:"size:64"`
	ReleasedBy    string `gorm:"size:64"`
	ReleasedAt    *time.Time
	ReleaseReason string `gorm:"size:255"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 指定 GORM 应该使用的表名
func (ReservationModel) TableName() string {
	return "reservation"
}

// LedgerEntryModel 对应数据库中的 stock_ledger 表，只插入不更新
type LedgerEntryModel struct {
	ID          string `gorm:"primaryKey;size:36"`
	InventoryID string `gorm:"index;size:36"`
	Type        string `gorm:"size:16"`

	Quantity       int64
	RunningBalance int64

	ReferenceType string `gorm:"size:16"`
	ReferenceID   string `gorm:"size:64"`
	Reason        string `gorm:"size:255"`
	CreatedBy     string `gorm:"size:64"`

	CreatedAt time.Time
}

// TableName 指定 GORM 应该使用的表名
func (LedgerEntryModel) TableName() string {
	return "stock_ledger"
}
