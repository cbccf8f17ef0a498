package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNow_FallsBackToWallClock(t *testing.T) {
	before := time.Now().UTC()
	got := Now(context.Background())
	after := time.Now().UTC()

	assert.False(t, got.Before(before))
	assert.False(t, got.After(after))
}

func TestNow_ReturnsInjectedTime(t *testing.T) {
	fixed := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	ctx := WithTime(context.Background(), fixed)

	assert.Equal(t, fixed, Now(ctx))
}

func TestRequestID_RoundTrip(t *testing.T) {
	assert.Empty(t, RequestID(context.Background()))

	ctx := WithRequestID(context.Background(), "req-123")
	assert.Equal(t, "req-123", RequestID(ctx))
}

func TestClientIP_RoundTrip(t *testing.T) {
	assert.Empty(t, ClientIP(context.Background()))

	ctx := WithClientIP(context.Background(), "10.0.0.7")
	assert.Equal(t, "10.0.0.7", ClientIP(ctx))
}
