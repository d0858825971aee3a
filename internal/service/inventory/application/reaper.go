// internal/service/inventory/application/reaper.go
package application

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"stockd/internal/pkg/logger"
	"stockd/internal/service/inventory/domain"
)

var (
	reaperSweepTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockd_reaper_sweeps_total",
		Help: "Number of reaper sweep rounds executed.",
	})
	reaperReleasedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockd_reaper_released_total",
		Help: "Number of expired reservations released by the reaper.",
	})
	reaperFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockd_reaper_failures_total",
		Help: "Number of expired reservations the reaper failed to release.",
	})
)

// Reaper 定时扫描过期的软预占并释放回可用池
// 释放走与人工释放完全相同的状态机与账务路径，Reaper 只是触发者
type Reaper struct {
	store        domain.InventoryStore
	reservations *ReservationService
	tracer       trace.Tracer

	interval  time.Duration
	batchSize int
}

func NewReaper(store domain.InventoryStore, reservations *ReservationService, tracer trace.Tracer, interval time.Duration, batchSize int) *Reaper {
	return &Reaper{
		store:        store,
		reservations: reservations,
		tracer:       tracer,
		interval:     interval,
		batchSize:    batchSize,
	}
}

// Run 以固定间隔执行扫描直到 ctx 取消
func (r *Reaper) Run(ctx context.Context) {
	logger.Ctx(ctx).Info().
		Dur("interval", r.interval).
		Int("batch_size", r.batchSize).
		Msg("Expiry reaper started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Ctx(ctx).Info().Msg("Expiry reaper stopped")
			return
		case <-ticker.C:
			report := r.SweepOnce(ctx)
			if report.Attempted > 0 {
				logger.Ctx(ctx).Info().
					Int("attempted", report.Attempted).
					Int("released", report.Released).
					Int("failed", report.Failed).
					Msg("Reaper sweep finished")
			}
		}
	}
}

// SweepOnce 执行一轮扫描：捞取一批已过期的 ACTIVE 预占，逐条标记过期并释放
// 单条失败不影响其余条目，失败条目留给下一轮重试
func (r *Reaper) SweepOnce(ctx context.Context) SweepReport {
	ctx, span := r.tracer.Start(ctx, "reaper.SweepOnce")
	defer span.End()
	reaperSweepTotal.Inc()

	report := SweepReport{}
	expired, err := r.store.FindExpired(ctx, time.Now(), r.batchSize)
	if err != nil {
		span.RecordError(err)
		logger.Ctx(ctx).Error().Err(err).Msg("Reaper failed to list expired reservations")
		return report
	}
	span.SetAttributes(attribute.Int("expired", len(expired)))

	for _, rsv := range expired {
		report.Attempted++
		if err := r.reap(ctx, rsv); err != nil {
			report.Failed++
			reaperFailedTotal.Inc()
			logger.Ctx(ctx).Error().Err(err).
				Str("reservation_id", rsv.ID).
				Msg("Reaper failed to release expired reservation")
			continue
		}
		report.Released++
		reaperReleasedTotal.Inc()
	}
	return report
}

// reap 先把预占标记为 EXPIRED，再走统一的释放路径归还数量
// EXPIRED 标记以存量行仍为 ACTIVE 为条件落库：扫描与处理之间被用户
// 释放（或转换）的预占行命中冲突，说明已有人处理，按成功跳过
func (r *Reaper) reap(ctx context.Context, rsv *domain.Reservation) error {
	if err := rsv.MarkExpired(); err != nil {
		return nil
	}
	err := r.store.Apply(ctx, &domain.Mutation{
		UpdateReservation:     rsv,
		PrevReservationStatus: domain.ReservationActive,
	})
	if errors.Is(err, domain.ErrConcurrencyConflict) {
		return nil
	}
	if err != nil {
		return err
	}

	_, err = r.reservations.Release(ctx, rsv.ID, "EXPIRED", "SYSTEM")
	return err
}
