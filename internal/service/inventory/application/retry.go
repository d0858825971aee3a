// internal/service/inventory/application/retry.go
package application

import (
	"context"
	"errors"
	"time"

	"stockd/internal/service/inventory/domain"
)

// withConflictRetry 在乐观锁冲突时重做 fn，最多 attempts 次
// 只有 ErrConcurrencyConflict 会触发重试，业务性失败立即返回
// 重试预算用尽后把最后一次的冲突错误原样交给调用方
func withConflictRetry(ctx context.Context, attempts int, backoff time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if !errors.Is(err, domain.ErrConcurrencyConflict) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff << i):
		}
	}
	return err
}
