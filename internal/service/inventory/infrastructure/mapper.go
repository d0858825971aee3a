package infrastructure

import (
	"stockd/internal/service/inventory/domain"
)

// ToInventoryModel 领域聚合 -> 数据库模型
func ToInventoryModel(inv *domain.Inventory) *InventoryModel {
	return &InventoryModel{
		ID:                  inv.ID,
		VariantID:           inv.VariantID,
		SellerID:            inv.SellerID,
		WarehouseID:         inv.WarehouseID,
		AvailableQuantity:   inv.AvailableQuantity,
		ReservedQuantity:    inv.ReservedQuantity,
		TotalQuantity:       inv.TotalQuantity,
		LowStockThreshold:   inv.LowStockThreshold,
		OutOfStockThreshold: inv.OutOfStockThreshold,
		Version:             inv.Version,
		CreatedAt:           inv.CreatedAt,
		UpdatedAt:           inv.UpdatedAt,
	}
}

// ToDomainInventory 数据库模型 -> 领域聚合
func ToDomainInventory(m *InventoryModel) *domain.Inventory {
	return &domain.Inventory{
		ID:                  m.ID,
		VariantID:           m.VariantID,
		SellerID:            m.SellerID,
		WarehouseID:         m.WarehouseID,
		AvailableQuantity:   m.AvailableQuantity,
		ReservedQuantity:    m.ReservedQuantity,
		TotalQuantity:       m.TotalQuantity,
		LowStockThreshold:   m.LowStockThreshold,
		OutOfStockThreshold: m.OutOfStockThreshold,
		Version:             m.Version,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

// ToReservationModel 领域预占 -> 数据库模型
func ToReservationModel(r *domain.Reservation) *ReservationModel {
	return &ReservationModel{
		ID:                       r.ID,
		VariantID:                r.VariantID,
		Quantity:                 r.Quantity,
		ReferenceType:            string(r.ReferenceType),
		ReferenceID:              r.ReferenceID,
		Status:                   r.Status,
		Priority:                 string(r.Priority),
		ExpiresAt:                r.ExpiresAt,
		ParentReservationID:      r.ParentReservationID,
		ConvertedToReservationID: r.ConvertedToReservationID,
		CreatedBy:                r.CreatedBy,
		ReleasedBy:               r.ReleasedBy,
		ReleasedAt:               r.ReleasedAt,
		ReleaseReason:            r.ReleaseReason,
		CreatedAt:                r.CreatedAt,
		UpdatedAt:                r.UpdatedAt,
	}
}

// ToDomainReservation 数据库模型 -> 领域预占
func ToDomainReservation(m *ReservationModel) *domain.Reservation {
	return &domain.Reservation{
		ID:                       m.ID,
		VariantID:                m.VariantID,
		Quantity:                 m.Quantity,
		ReferenceType:            domain.ReferenceType(m.ReferenceType),
		ReferenceID:              m.ReferenceID,
		Status:                   m.Status,
		Priority:                 domain.Priority(m.Priority),
		ExpiresAt:                m.ExpiresAt,
		ParentReservationID:      m.ParentReservationID,
		ConvertedToReservationID: m.ConvertedToReservationID,
		CreatedBy:                m.CreatedBy,
		ReleasedBy:               m.ReleasedBy,
		ReleasedAt:               m.ReleasedAt,
		ReleaseReason:            m.ReleaseReason,
		CreatedAt:                m.CreatedAt,
		UpdatedAt:                m.UpdatedAt,
	}
}

// ToLedgerEntryModel 分录 -> 数据库模型
func ToLedgerEntryModel(e *domain.LedgerEntry) *LedgerEntryModel {
	return &LedgerEntryModel{
		ID:             e.ID,
		InventoryID:    e.InventoryID,
		Type:           string(e.Type),
		Quantity:       e.Quantity,
		RunningBalance: e.RunningBalance,
		ReferenceType:  e.ReferenceType,
		ReferenceID:    e.ReferenceID,
		Reason:         e.Reason,
		CreatedBy:      e.CreatedBy,
		CreatedAt:      e.CreatedAt,
	}
}

// ToDomainLedgerEntry 数据库模型 -> 分录
func ToDomainLedgerEntry(m *LedgerEntryModel) *domain.LedgerEntry {
	return &domain.LedgerEntry{
		ID:             m.ID,
		InventoryID:    m.InventoryID,
		Type:           domain.EntryType(m.Type),
		Quantity:       m.Quantity,
		RunningBalance: m.RunningBalance,
		ReferenceType:  m.ReferenceType,
		ReferenceID:    m.ReferenceID,
		Reason:         m.Reason,
		CreatedBy:      m.CreatedBy,
		CreatedAt:      m.CreatedAt,
	}
}
