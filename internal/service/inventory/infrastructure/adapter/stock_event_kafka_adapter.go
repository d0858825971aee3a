package adapter

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"stockd/internal/pkg/logger"
	"stockd/internal/pkg/mq"
	"stockd/internal/service/inventory/domain"
)

// StockEventKafkaAdapter 是 port.EventPublisher 的 Kafka 实现
// 以 variant ID 为 Key，保证同一商品的事件进同一分区、保持顺序
type StockEventKafkaAdapter struct {
	writer *kafka.Writer
}

// NewStockEventKafkaAdapter 创建一个新的库存事件生产者适配器
func NewStockEventKafkaAdapter(writer *kafka.Writer) *StockEventKafkaAdapter {
	return &StockEventKafkaAdapter{writer: writer}
}

// Publish 投递一批库存事件
// fire-and-forget：失败只记日志，绝不回灌到库存主流程
func (a *StockEventKafkaAdapter) Publish(ctx context.Context, events []domain.StockEvent) {
	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			logger.Ctx(ctx).Error().Err(err).
				Str("event_type", string(event.Type)).
				Msg("Failed to marshal stock event")
			continue
		}
		if err := mq.ProduceMessage(ctx, a.writer, []byte(event.VariantID), payload); err != nil {
			logger.Ctx(ctx).Error().Err(err).
				Str("event_type", string(event.Type)).
				Str("variant_id", event.VariantID).
				Msg("Failed to publish stock event")
		}
	}
}

// Close 关闭底层的 Kafka writer
func (a *StockEventKafkaAdapter) Close() error {
	return a.writer.Close()
}
