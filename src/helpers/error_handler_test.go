package helpers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"dashboard-observer/src/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorTypes(t *testing.T) {
	cause := errors.New("connection refused")

	ne := NewNetworkError("/api/x", 502, cause)
	assert.Equal(t, "request to /api/x failed with status 502: connection refused", ne.Error())
	assert.ErrorIs(t, ne, cause)

	wrapped := fmt.Errorf("sales trends: %w", ne)
	assert.True(t, IsNetworkError(wrapped))
	assert.False(t, IsNetworkError(cause))

	ex := NewExhaustedFallbackError(ne, errors.New("fallback down"))
	assert.ErrorIs(t, ex, cause)
	assert.Contains(t, ex.Error(), "serving reference dataset")

	ve := NewValidationError("bad %s", "timeframe")
	assert.Equal(t, "bad timeframe", ve.Error())
}

func TestRetryWithBackoff(t *testing.T) {
	t.Run("succeeds after failures", func(t *testing.T) {
		calls := 0
		v, err := RetryWithBackoff(context.Background(), 3, time.Millisecond, func(ctx context.Context) (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.New("not yet")
			}
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, v)
		assert.Equal(t, 3, calls)
	})

	t.Run("returns last error", func(t *testing.T) {
		calls := 0
		_, err := RetryWithBackoff(context.Background(), 2, time.Millisecond, func(ctx context.Context) (string, error) {
			calls++
			return "", fmt.Errorf("attempt %d", calls)
		})
		assert.EqualError(t, err, "attempt 2")
	})

	t.Run("stops on cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := RetryWithBackoff(ctx, 5, time.Hour, func(ctx context.Context) (int, error) {
			return 0, errors.New("fail")
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestErrorHandlerCounts(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewLogger(nil, "test")
	log.SetOutput(&buf)

	h := NewErrorHandler(log)
	h.Handle(nil, "noop")
	h.Handle(NewNetworkError("/api/y", 0, errors.New("timeout")), "Fetch")
	h.Handle(NewDatabaseError("insert", errors.New("locked")), "Persist")

	assert.Equal(t, 2, h.Count())
	assert.Contains(t, buf.String(), "Network failure in Fetch (/api/y)")
	assert.Contains(t, buf.String(), "Database failure in Persist")

	h.ResetErrorCount()
	assert.Zero(t, h.Count())
}
