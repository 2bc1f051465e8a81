package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_FixedWindow(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter(2, time.Hour)
	now := time.Date(2024, 1, 1, 10, 15, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	res, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, int64(1), res.Remaining)
	assert.Equal(t, time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC), res.ResetAt)

	res, _ = l.Allow(ctx, "1.2.3.4")
	assert.True(t, res.Allowed)
	assert.Equal(t, int64(0), res.Remaining)

	res, _ = l.Allow(ctx, "1.2.3.4")
	assert.False(t, res.Allowed)
	assert.Equal(t, 45*time.Minute, res.RetryAfter)

	res, _ = l.Allow(ctx, "5.6.7.8")
	assert.True(t, res.Allowed, "keys are independent")

	now = now.Add(time.Hour)
	res, _ = l.Allow(ctx, "1.2.3.4")
	assert.True(t, res.Allowed, "new window resets the count")
}
