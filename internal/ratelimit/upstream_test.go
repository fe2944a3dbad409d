package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpstreamLimiter_Allow(t *testing.T) {
	limiter, err := NewUpstreamLimiter("mcp", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, "mcp", limiter.Name())
	assert.Equal(t, "upstream_token_bucket", limiter.Type())

	assert.True(t, limiter.Allow())
	assert.True(t, limiter.Allow())
	assert.False(t, limiter.Allow(), "burst exhausted")
}

func TestUpstreamLimiter_Nil(t *testing.T) {
	var limiter *UpstreamLimiter
	assert.True(t, limiter.Allow())
	assert.NoError(t, limiter.Wait(context.Background()))
}

func TestUpstreamLimiter_Wait(t *testing.T) {
	limiter, err := NewUpstreamLimiter("mcp", 1, 1)
	require.NoError(t, err)
	require.True(t, limiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, limiter.Wait(ctx), "next token is a second away")
}

func TestNewUpstreamLimiter_Validation(t *testing.T) {
	_, err := NewUpstreamLimiter("mcp", 0, 1)
	assert.ErrorIs(t, err, ErrInvalidPerSecond)

	_, err = NewUpstreamLimiter("mcp", 1, 0)
	assert.ErrorIs(t, err, ErrInvalidBurst)
}
