// internal/service/inventory/application/reservation_service.go
package application

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"stockd/internal/pkg/logger"
	"stockd/internal/service/inventory/domain"
	"stockd/internal/service/inventory/port"
)

// ReservationService 实现预占生命周期：创建、释放、提交、软转硬
// 所有数量变动都走与 StockService 相同的 Mutation 原子单元，
// 条件扣减（检查+扣减）从不拆成两次提交
type ReservationService struct {
	store     domain.InventoryStore
	publisher port.EventPublisher
	cache     port.AvailabilityCache
	policy    port.AdmissionPolicy
	tracer    trace.Tracer
	opts      EngineOptions
}

func NewReservationService(store domain.InventoryStore, publisher port.EventPublisher, cache port.AvailabilityCache, policy port.AdmissionPolicy, tracer trace.Tracer, opts EngineOptions) *ReservationService {
	return &ReservationService{
		store:     store,
		publisher: publisher,
		cache:     cache,
		policy:    policy,
		tracer:    tracer,
		opts:      opts,
	}
}

// Reserve 创建预占：可用充足时把 qty 移入预占并记一条 RESERVATION 分录
// 可用不足时整体失败，不做部分预占
func (s *ReservationService) Reserve(ctx context.Context, cmd ReserveCommand) (*ReserveResult, error) {
	ctx, span := s.tracer.Start(ctx, "reservation.Reserve")
	defer span.End()
	span.SetAttributes(
		attribute.String("variant.id", cmd.VariantID),
		attribute.Int64("quantity", cmd.Quantity),
		attribute.String("reference.type", string(cmd.ReferenceType)),
	)

	if cmd.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if cmd.Quantity > s.opts.MaxPerReservation {
		return nil, errors.Wrapf(domain.ErrReservationRejected, "quantity %d exceeds per-reservation limit %d", cmd.Quantity, s.opts.MaxPerReservation)
	}
	if cmd.ReferenceID == "" {
		return nil, errors.Wrap(domain.ErrReservationRejected, "reference id is required")
	}
	if cmd.Priority == "" {
		cmd.Priority = cmd.ReferenceType
	}
	// CART 预占必须有过期时间，缺省补足策略 TTL
	if cmd.ReferenceType == domain.RefCart && cmd.ExpiresAt == nil {
		t := time.Now().Add(s.opts.SoftHoldTTL)
		cmd.ExpiresAt = &t
	}

	if s.policy != nil {
		ok, err := s.policy.Admit(port.AdmissionFact{
			Quantity:          cmd.Quantity,
			ReferenceType:     string(cmd.ReferenceType),
			ReferenceID:       cmd.ReferenceID,
			Priority:          string(cmd.Priority),
			HasExpiry:         cmd.ExpiresAt != nil,
			MaxPerReservation: s.opts.MaxPerReservation,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "admission evaluation failed")
			return nil, errors.Wrap(err, "admission policy evaluation")
		}
		if !ok {
			return nil, domain.ErrReservationRejected
		}
	}

	var (
		rsv    *domain.Reservation
		change *domain.StockChange
		inv    *domain.Inventory
	)
	err := withConflictRetry(ctx, s.opts.RetryAttempts, s.opts.RetryBackoff, func() error {
		var err error
		inv, err = s.store.GetInventoryByVariant(ctx, cmd.VariantID)
		if err != nil {
			return err
		}

		before := inv.Level()
		prev := inv.Version
		if err := inv.Hold(cmd.Quantity); err != nil {
			return err
		}
		inv.Version = prev + 1

		rsv = domain.NewReservation(cmd.VariantID, cmd.Quantity, cmd.ReferenceType, cmd.ReferenceID, cmd.Priority, cmd.ExpiresAt, cmd.CreatedBy)
		entry := domain.NewLedgerEntry(inv.ID, domain.EntryReservation, -cmd.Quantity, inv.TotalQuantity, string(cmd.ReferenceType), cmd.ReferenceID, "reservation created", cmd.CreatedBy)

		if err := s.store.Apply(ctx, &domain.Mutation{
			Inventory:         inv,
			PrevVersion:       prev,
			Entry:             entry,
			CreateReservation: rsv,
		}); err != nil {
			return err
		}
		change = &domain.StockChange{
			InventoryID: inv.ID,
			VariantID:   inv.VariantID,
			Before:      before,
			After:       inv.Level(),
			Available:   inv.AvailableQuantity,
			Reserved:    inv.ReservedQuantity,
			Total:       inv.TotalQuantity,
			Entry:       entry,
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.afterReservation(ctx, change, domain.EventReserved, rsv)
	logger.Ctx(ctx).Info().
		Str("reservation_id", rsv.ID).
		Str("variant_id", cmd.VariantID).
		Int64("quantity", cmd.Quantity).
		Str("reference_id", cmd.ReferenceID).
		Msg("Reservation created")
	return &ReserveResult{ReservationID: rsv.ID, Snapshot: summarize(inv)}, nil
}

// Release 释放预占，数量从预占退回可用并记一条 RELEASE 分录
// 幂等：对已处于 RELEASED/COMMITTED 终态的预占只记日志，不做任何变更
func (s *ReservationService) Release(ctx context.Context, reservationID, reason, releasedBy string) (*ReleaseResult, error) {
	ctx, span := s.tracer.Start(ctx, "reservation.Release")
	defer span.End()
	span.SetAttributes(attribute.String("reservation.id", reservationID))

	var (
		change   *domain.StockChange
		rsv      *domain.Reservation
		released bool
	)
	err := withConflictRetry(ctx, s.opts.RetryAttempts, s.opts.RetryBackoff, func() error {
		var err error
		rsv, err = s.store.GetReservation(ctx, reservationID)
		if err != nil {
			return err
		}
		if rsv.Status == domain.ReservationReleased || rsv.Status == domain.ReservationCommitted {
			logger.Ctx(ctx).Info().
				Str("reservation_id", reservationID).
				Str("status", string(rsv.Status)).
				Msg("Release skipped, reservation already terminal")
			released = false
			change = nil
			return nil
		}

		inv, err := s.store.GetInventoryByVariant(ctx, rsv.VariantID)
		if err != nil {
			return err
		}

		before := inv.Level()
		prev := inv.Version
		prevStatus := rsv.Status
		if err := inv.ReleaseHold(rsv.Quantity); err != nil {
			return err
		}
		inv.Version = prev + 1
		if err := rsv.Release(reason, releasedBy); err != nil {
			return err
		}

		entry := domain.NewLedgerEntry(inv.ID, domain.EntryRelease, rsv.Quantity, inv.TotalQuantity, string(rsv.ReferenceType), rsv.ReferenceID, reason, releasedBy)
		if err := s.store.Apply(ctx, &domain.Mutation{
			Inventory:             inv,
			PrevVersion:           prev,
			Entry:                 entry,
			UpdateReservation:     rsv,
			PrevReservationStatus: prevStatus,
		}); err != nil {
			return err
		}
		change = &domain.StockChange{
			InventoryID: inv.ID,
			VariantID:   inv.VariantID,
			Before:      before,
			After:       inv.Level(),
			Available:   inv.AvailableQuantity,
			Reserved:    inv.ReservedQuantity,
			Total:       inv.TotalQuantity,
			Entry:       entry,
		}
		released = true
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if released {
		s.afterReservation(ctx, change, domain.EventReleased, rsv)
		logger.Ctx(ctx).Info().
			Str("reservation_id", reservationID).
			Str("reason", reason).
			Msg("Reservation released")
	}
	return &ReleaseResult{ReservationID: reservationID, Released: released}, nil
}

// Commit 提交预占：数量永久离开库存池（reserved 与 total 同步扣减），
// 并记一条 OUTBOUND 分录完成账务闭环
func (s *ReservationService) Commit(ctx context.Context, reservationID, committedBy string) (*InventorySummary, error) {
	ctx, span := s.tracer.Start(ctx, "reservation.Commit")
	defer span.End()
	span.SetAttributes(attribute.String("reservation.id", reservationID))

	var (
		change *domain.StockChange
		rsv    *domain.Reservation
		inv    *domain.Inventory
	)
	err := withConflictRetry(ctx, s.opts.RetryAttempts, s.opts.RetryBackoff, func() error {
		var err error
		rsv, err = s.store.GetReservation(ctx, reservationID)
		if err != nil {
			return err
		}

		inv, err = s.store.GetInventoryByVariant(ctx, rsv.VariantID)
		if err != nil {
			return err
		}

		before := inv.Level()
		prev := inv.Version
		prevStatus := rsv.Status
		if err := rsv.Commit(); err != nil {
			return err
		}
		if err := inv.ConsumeHold(rsv.Quantity); err != nil {
			return err
		}
		inv.Version = prev + 1

		entry := domain.NewLedgerEntry(inv.ID, domain.EntryOutbound, -rsv.Quantity, inv.TotalQuantity, string(rsv.ReferenceType), rsv.ReferenceID, "reservation committed", committedBy)
		if err := s.store.Apply(ctx, &domain.Mutation{
			Inventory:             inv,
			PrevVersion:           prev,
			Entry:                 entry,
			UpdateReservation:     rsv,
			PrevReservationStatus: prevStatus,
		}); err != nil {
			return err
		}
		change = &domain.StockChange{
			InventoryID: inv.ID,
			VariantID:   inv.VariantID,
			Before:      before,
			After:       inv.Level(),
			Available:   inv.AvailableQuantity,
			Reserved:    inv.ReservedQuantity,
			Total:       inv.TotalQuantity,
			Entry:       entry,
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.afterReservation(ctx, change, domain.EventCommitted, rsv)
	logger.Ctx(ctx).Info().
		Str("reservation_id", reservationID).
		Int64("quantity", rsv.Quantity).
		Msg("Reservation committed")
	summary := summarize(inv)
	return &summary, nil
}

// ConvertSoftToHard 把挂在购物车上的全部软预占转成挂在订单上的硬预占
// 这是纯账务转移：数量不动、不产生分录，只改预占行
// 按条处理，单条失败不回滚已成功的条目
func (s *ReservationService) ConvertSoftToHard(ctx context.Context, cartID, orderID, convertedBy string) (*ConvertResult, error) {
	ctx, span := s.tracer.Start(ctx, "reservation.ConvertSoftToHard")
	defer span.End()
	span.SetAttributes(
		attribute.String("cart.id", cartID),
		attribute.String("order.id", orderID),
	)

	softs, err := s.store.FindActiveByReference(ctx, domain.RefCart, cartID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	result := &ConvertResult{}
	for _, soft := range softs {
		hard := domain.NewReservation(soft.VariantID, soft.Quantity, domain.RefOrder, orderID, domain.RefOrder, nil, convertedBy)
		hard.ParentReservationID = soft.ID

		if err := soft.ConvertTo(hard.ID); err != nil {
			result.Failed = append(result.Failed, ConvertFailure{ReservationID: soft.ID, Error: err.Error()})
			continue
		}
		// 数量守恒：软预占转终态与硬预占生效在同一个 Mutation 里落库
		// 状态条件保证扫描后被并发释放的软预占不会被改回终态、凭空造出硬预占
		if err := s.store.Apply(ctx, &domain.Mutation{
			CreateReservation:     hard,
			UpdateReservation:     soft,
			PrevReservationStatus: domain.ReservationActive,
		}); err != nil {
			result.Failed = append(result.Failed, ConvertFailure{ReservationID: soft.ID, Error: err.Error()})
			continue
		}
		result.Converted = append(result.Converted, hard.ID)
	}

	logger.Ctx(ctx).Info().
		Str("cart_id", cartID).
		Str("order_id", orderID).
		Int("converted", len(result.Converted)).
		Int("failed", len(result.Failed)).
		Msg("Soft reservations converted to hard")
	return result, nil
}

// GetReservation 查询单条预占
func (s *ReservationService) GetReservation(ctx context.Context, reservationID string) (*domain.Reservation, error) {
	return s.store.GetReservation(ctx, reservationID)
}

// afterReservation 发布预占事件与水位跃迁事件，并失效可用量缓存
func (s *ReservationService) afterReservation(ctx context.Context, change *domain.StockChange, eventType domain.EventType, rsv *domain.Reservation) {
	if change == nil {
		return
	}
	now := time.Now()
	if s.publisher != nil {
		events := []domain.StockEvent{{
			Type:          eventType,
			InventoryID:   change.InventoryID,
			VariantID:     change.VariantID,
			Quantity:      rsv.Quantity,
			ReservationID: rsv.ID,
			ReferenceType: string(rsv.ReferenceType),
			ReferenceID:   rsv.ReferenceID,
			Available:     change.Available,
			Reserved:      change.Reserved,
			Total:         change.Total,
			OccurredAt:    now,
		}}
		events = append(events, change.LevelEvents(now)...)
		s.publisher.Publish(ctx, events)
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, change.VariantID); err != nil {
			logger.Ctx(ctx).Warn().Err(err).
				Str("variant_id", change.VariantID).
				Msg("Failed to invalidate availability cache")
		}
	}
}
