package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"stockd/internal/service/inventory/domain"
)

func TestWithConflictRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds after transient conflicts", func(t *testing.T) {
		calls := 0
		err := withConflictRetry(ctx, 3, time.Microsecond, func() error {
			calls++
			if calls < 3 {
				return domain.ErrConcurrencyConflict
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after budget", func(t *testing.T) {
		calls := 0
		err := withConflictRetry(ctx, 3, time.Microsecond, func() error {
			calls++
			return domain.ErrConcurrencyConflict
		})
		assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)
		assert.Equal(t, 3, calls)
	})

	t.Run("business errors are not retried", func(t *testing.T) {
		calls := 0
		err := withConflictRetry(ctx, 3, time.Microsecond, func() error {
			calls++
			return domain.ErrInvalidQuantity
		})
		assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
		assert.Equal(t, 1, calls)
	})

	t.Run("stops when context is cancelled", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		err := withConflictRetry(cancelled, 3, time.Hour, func() error {
			return domain.ErrConcurrencyConflict
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
