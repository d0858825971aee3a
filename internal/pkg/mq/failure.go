// internal/pkg/mq/failure.go
package mq

import (
	"context"

	"github.com/segmentio/kafka-go"

	"stockd/internal/pkg/logger"
)

// FailureHandler 负责把处理失败的消息转发到死信主题（DLT）
// 转发时保留原始消息体，并附加失败原因头，方便人工排查和重放
type FailureHandler struct {
	dltWriter *kafka.Writer
}

func NewFailureHandler(dltWriter *kafka.Writer) *FailureHandler {
	return &FailureHandler{dltWriter: dltWriter}
}

// Handle 将失败消息移交 DLT；移交本身失败时只能记日志，不能阻塞消费循环
func (h *FailureHandler) Handle(ctx context.Context, msg kafka.Message, processingErr error) {
	dltMsg := kafka.Message{
		Key:   msg.Key,
		Value: msg.Value,
		Headers: append(msg.Headers,
			kafka.Header{Key: "x-failure-reason", Value: []byte(processingErr.Error())},
			kafka.Header{Key: "x-original-topic", Value: []byte(msg.Topic)},
		),
	}
	InjectTraceContext(ctx, &dltMsg.Headers)

	if err := h.dltWriter.WriteMessages(ctx, dltMsg); err != nil {
		logger.Ctx(ctx).Error().Err(err).
			Str("original_topic", msg.Topic).
			Msg("CRITICAL: failed to forward message to DLT")
		return
	}
	logger.Ctx(ctx).Warn().
		Str("original_topic", msg.Topic).
		Err(processingErr).
		Msg("Message forwarded to DLT")
}
