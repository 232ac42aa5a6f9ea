package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostLimiter_PerHost(t *testing.T) {
	hl := NewHostLimiter(time.Hour, 1)
	ctx := context.Background()

	require.NoError(t, hl.WaitURL(ctx, "https://a.example.com/jobs"))
	require.NoError(t, hl.WaitURL(ctx, "https://b.example.com/jobs"))

	// a second request to the same host would wait an hour
	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.Error(t, hl.WaitURL(short, "https://a.example.com/other"))
}

func TestHostLimiter_NilAndUnlimited(t *testing.T) {
	var hl *HostLimiter
	assert.NoError(t, hl.WaitURL(context.Background(), "https://x.example.com"))

	unlimited := NewHostLimiter(0, 0)
	for i := 0; i < 5; i++ {
		assert.NoError(t, unlimited.WaitURL(context.Background(), "::bad url"))
	}
}
