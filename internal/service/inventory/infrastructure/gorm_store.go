package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"stockd/internal/pkg/bootstrap"
	"stockd/internal/service/inventory/domain"
)

// NewMySQLDB 按配置建立 GORM 连接
func NewMySQLDB(cfg bootstrap.MysqlConfig) (*gorm.DB, error) {
	dsnCfg := gomysql.NewConfig()
	dsnCfg.Net = "tcp"
	dsnCfg.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	dsnCfg.User = cfg.User
	dsnCfg.Passwd = cfg.Password
	dsnCfg.DBName = cfg.Database
	dsnCfg.ParseTime = true
	dsnCfg.Loc = time.UTC

	return gorm.Open(mysql.Open(dsnCfg.FormatDSN()), &gorm.Config{})
}

// GormInventoryStore 是 InventoryStore 的 GORM 实现
// Apply 把一次 Mutation 的全部写入放进同一个数据库事务，
// 快照写入用 WHERE version = ? 做条件更新实现乐观锁
type GormInventoryStore struct {
	db *gorm.DB
}

func NewGormInventoryStore(db *gorm.DB) *GormInventoryStore {
	return &GormInventoryStore{db: db}
}

// AutoMigrate 建表，仅限本地与测试环境使用
func (s *GormInventoryStore) AutoMigrate() error {
	return s.db.AutoMigrate(&InventoryModel{}, &ReservationModel{}, &LedgerEntryModel{})
}

func (s *GormInventoryStore) CreateInventory(ctx context.Context, inv *domain.Inventory) error {
	return s.db.WithContext(ctx).Create(ToInventoryModel(inv)).Error
}

func (s *GormInventoryStore) GetInventory(ctx context.Context, id string) (*domain.Inventory, error) {
	var model InventoryModel
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInventoryNotFound
		}
		return nil, err
	}
	return ToDomainInventory(&model), nil
}

func (s *GormInventoryStore) GetInventoryByVariant(ctx context.Context, variantID string) (*domain.Inventory, error) {
	var model InventoryModel
	err := s.db.WithContext(ctx).Where("variant_id = ?", variantID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInventoryNotFound
		}
		return nil, err
	}
	return ToDomainInventory(&model), nil
}

// Apply 原子提交一个 Mutation
// 快照条件更新命中 0 行说明版本已被并发方推进，返回 ErrConcurrencyConflict 让调用方重做
func (s *GormInventoryStore) Apply(ctx context.Context, m *domain.Mutation) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if m.Inventory != nil {
			model := ToInventoryModel(m.Inventory)
			result := tx.Model(&InventoryModel{}).
				Where("id = ? AND version = ?", model.ID, m.PrevVersion).
				Updates(map[string]interface{}{
					"available_quantity": model.AvailableQuantity,
					"reserved_quantity":  model.ReservedQuantity,
					"total_quantity":     model.TotalQuantity,
					"version":            model.Version,
					"updated_at":         model.UpdatedAt,
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return domain.ErrConcurrencyConflict
			}
		}

		if m.Entry != nil {
			if err := tx.Create(ToLedgerEntryModel(m.Entry)).Error; err != nil {
				return err
			}
		}
		if m.CreateReservation != nil {
			if err := tx.Create(ToReservationModel(m.CreateReservation)).Error; err != nil {
				return err
			}
		}
		if m.UpdateReservation != nil {
			model := ToReservationModel(m.UpdateReservation)
			if m.PrevReservationStatus != "" {
				// 状态条件更新：存量行已被并发方推进到其他状态时命中 0 行，
				// 整个事务回滚，不允许把终态预占改回去
				result := tx.Model(&ReservationModel{}).
					Where("id = ? AND status = ?", model.ID, string(m.PrevReservationStatus)).
					Select("*").
					Updates(model)
				if result.Error != nil {
					return result.Error
				}
				if result.RowsAffected == 0 {
					return domain.ErrConcurrencyConflict
				}
			} else if err := tx.Save(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *GormInventoryStore) GetReservation(ctx context.Context, id string) (*domain.Reservation, error) {
	var model ReservationModel
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrReservationNotFound
		}
		return nil, err
	}
	return ToDomainReservation(&model), nil
}

func (s *GormInventoryStore) FindActiveByReference(ctx context.Context, refType domain.ReferenceType, refID string) ([]*domain.Reservation, error) {
	var models []ReservationModel
	err := s.db.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ? AND status = ?", string(refType), refID, domain.ReservationActive).
		Order("created_at").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Reservation, 0, len(models))
	for i := range models {
		out = append(out, ToDomainReservation(&models[i]))
	}
	return out, nil
}

func (s *GormInventoryStore) FindExpired(ctx context.Context, now time.Time, limit int) ([]*domain.Reservation, error) {
	var models []ReservationModel
	err := s.db.WithContext(ctx).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", domain.ReservationActive, now).
		Order("expires_at").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Reservation, 0, len(models))
	for i := range models {
		out = append(out, ToDomainReservation(&models[i]))
	}
	return out, nil
}

func (s *GormInventoryStore) SumActiveQuantity(ctx context.Context, variantID string) (int64, error) {
	var sum int64
	err := s.db.WithContext(ctx).Model(&ReservationModel{}).
		Where("variant_id = ? AND status = ?", variantID, domain.ReservationActive).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&sum).Error
	return sum, err
}

func (s *GormInventoryStore) LedgerEntries(ctx context.Context, inventoryID string) ([]*domain.LedgerEntry, error) {
	var models []LedgerEntryModel
	err := s.db.WithContext(ctx).
		Where("inventory_id = ?", inventoryID).
		Order("created_at").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]*domain.LedgerEntry, 0, len(models))
	for i := range models {
		out = append(out, ToDomainLedgerEntry(&models[i]))
	}
	return out, nil
}

func (s *GormInventoryStore) SumLedgerTotal(ctx context.Context, inventoryID string) (int64, error) {
	var sum int64
	err := s.db.WithContext(ctx).Model(&LedgerEntryModel{}).
		Where("inventory_id = ? AND type IN ?", inventoryID,
			[]string{string(domain.EntryInbound), string(domain.EntryOutbound), string(domain.EntryAdjustment)}).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&sum).Error
	return sum, err
}
