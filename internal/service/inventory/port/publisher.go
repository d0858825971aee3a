// internal/service/inventory/port/publisher.go
package port

import (
	"context"

	"stockd/internal/service/inventory/domain"
)

// EventPublisher 是库存事件的出站端口
// 投递是 fire-and-forget 语义：失败由实现方记录，不回灌到核心流程
type EventPublisher interface {
	Publish(ctx context.Context, events []domain.StockEvent)
}
