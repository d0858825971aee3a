package infrastructure

import (
	"context"
	"sort"
	"sync"
	"time"

	"stockd/internal/service/inventory/domain"
)

// MemoryInventoryStore 是 InventoryStore 的进程内实现，驱动名 "memory"
// 用于本地运行和测试；和 MySQL 实现一样通过版本 CAS 暴露并发冲突
type MemoryInventoryStore struct {
	mu           sync.Mutex
	inventories  map[string]*domain.Inventory  // by inventory ID
	byVariant    map[string]string             // variant ID -> inventory ID
	reservations map[string]*domain.Reservation
	ledger       map[string][]*domain.LedgerEntry // by inventory ID
}

func NewMemoryInventoryStore() *MemoryInventoryStore {
	return &MemoryInventoryStore{
		inventories:  make(map[string]*domain.Inventory),
		byVariant:    make(map[string]string),
		reservations: make(map[string]*domain.Reservation),
		ledger:       make(map[string][]*domain.LedgerEntry),
	}
}

func (s *MemoryInventoryStore) CreateInventory(ctx context.Context, inv *domain.Inventory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *inv
	s.inventories[inv.ID] = &copied
	s.byVariant[inv.VariantID] = inv.ID
	return nil
}

func (s *MemoryInventoryStore) GetInventory(ctx context.Context, id string) (*domain.Inventory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.inventories[id]
	if !ok {
		return nil, domain.ErrInventoryNotFound
	}
	copied := *inv
	return &copied, nil
}

func (s *MemoryInventoryStore) GetInventoryByVariant(ctx context.Context, variantID string) (*domain.Inventory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byVariant[variantID]
	if !ok {
		return nil, domain.ErrInventoryNotFound
	}
	copied := *s.inventories[id]
	return &copied, nil
}

// Apply 在持锁状态下完成整个 Mutation，对调用方呈现与数据库事务相同的原子性
// 先做完全部条件检查再落任何写入，任一条件不满足时不留半套状态
func (s *MemoryInventoryStore) Apply(ctx context.Context, m *domain.Mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.Inventory != nil {
		current, ok := s.inventories[m.Inventory.ID]
		if !ok {
			return domain.ErrInventoryNotFound
		}
		if current.Version != m.PrevVersion {
			return domain.ErrConcurrencyConflict
		}
	}
	if m.UpdateReservation != nil {
		current, ok := s.reservations[m.UpdateReservation.ID]
		if !ok {
			return domain.ErrReservationNotFound
		}
		if m.PrevReservationStatus != "" && current.Status != m.PrevReservationStatus {
			return domain.ErrConcurrencyConflict
		}
	}

	if m.Inventory != nil {
		copied := *m.Inventory
		s.inventories[m.Inventory.ID] = &copied
	}
	if m.Entry != nil {
		entry := *m.Entry
		s.ledger[entry.InventoryID] = append(s.ledger[entry.InventoryID], &entry)
	}
	if m.CreateReservation != nil {
		copied := *m.CreateReservation
		s.reservations[copied.ID] = &copied
	}
	if m.UpdateReservation != nil {
		copied := *m.UpdateReservation
		s.reservations[copied.ID] = &copied
	}
	return nil
}

func (s *MemoryInventoryStore) GetReservation(ctx context.Context, id string) (*domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok {
		return nil, domain.ErrReservationNotFound
	}
	copied := *r
	return &copied, nil
}

func (s *MemoryInventoryStore) FindActiveByReference(ctx context.Context, refType domain.ReferenceType, refID string) ([]*domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Reservation
	for _, r := range s.reservations {
		if r.ReferenceType == refType && r.ReferenceID == refID && r.Status == domain.ReservationActive {
			copied := *r
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryInventoryStore) FindExpired(ctx context.Context, now time.Time, limit int) ([]*domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Reservation
	for _, r := range s.reservations {
		if r.Status == domain.ReservationActive && r.IsExpired(now) {
			copied := *r
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ExpiresAt.Before(*out[j].ExpiresAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryInventoryStore) SumActiveQuantity(ctx context.Context, variantID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum int64
	for _, r := range s.reservations {
		if r.VariantID == variantID && r.Status == domain.ReservationActive {
			sum += r.Quantity
		}
	}
	return sum, nil
}

func (s *MemoryInventoryStore) LedgerEntries(ctx context.Context, inventoryID string) ([]*domain.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.ledger[inventoryID]
	out := make([]*domain.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		copied := *e
		out = append(out, &copied)
	}
	return out, nil
}

func (s *MemoryInventoryStore) SumLedgerTotal(ctx context.Context, inventoryID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum int64
	for _, e := range s.ledger[inventoryID] {
		if e.Type.AffectsTotal() {
			sum += e.Quantity
		}
	}
	return sum, nil
}
