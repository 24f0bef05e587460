package gameserver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"pgregory.net/rapid"
)

func newTestLimiter(t *testing.T, burst int) (*SessionRateLimiter, *time.Time) {
	t.Helper()
	rl := NewSessionRateLimiter(RateLimitConfig{ActionsPerSecond: 1, Burst: burst, CleanupInterval: time.Minute})
	t.Cleanup(rl.Stop)
	now := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestSessionRateLimiter_BurstThenReject(t *testing.T) {
	rl, now := newTestLimiter(t, 2)

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"), "sessions are limited independently")
	assert.Equal(t, uint64(1), rl.Rejected())

	*now = now.Add(time.Second)
	assert.True(t, rl.Allow("a"), "a token refills after one second")
}

func TestSessionRateLimiter_CleanupDropsIdle(t *testing.T) {
	rl, now := newTestLimiter(t, 1)
	require.True(t, rl.Allow("a"))
	require.False(t, rl.Allow("a"))

	*now = now.Add(3 * time.Minute)
	rl.cleanup()

	_, ok := rl.limiters.Load("a")
	assert.False(t, ok)
}

func TestSessionRateLimiter_Interceptor(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	rejected := 0
	intercept := rl.UnaryInterceptor(func() { rejected++ })
	handler := func(context.Context, any) (any, error) { return "ok", nil }
	req, err := structpb.NewStruct(map[string]any{"session_id": "s1"})
	require.NoError(t, err)
	act := &grpc.UnaryServerInfo{FullMethod: MethodAct}

	out, err := intercept(context.Background(), req, act, handler)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	_, err = intercept(context.Background(), req, act, handler)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
	assert.Equal(t, 1, rejected)

	_, err = intercept(context.Background(), req, &grpc.UnaryServerInfo{FullMethod: MethodGetState}, handler)
	assert.NoError(t, err, "only Act is limited")
}

func TestProperty_SessionRateLimiter_AllowsExactlyBurst(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		burst := rapid.IntRange(1, 20).Draw(rt, "burst")
		calls := rapid.IntRange(burst, 50).Draw(rt, "calls")
		rl := NewSessionRateLimiter(RateLimitConfig{ActionsPerSecond: 1, Burst: burst, CleanupInterval: time.Minute})
		defer rl.Stop()
		now := time.Unix(1_700_000_000, 0)
		rl.now = func() time.Time { return now }

		allowed := 0
		for i := 0; i < calls; i++ {
			if rl.Allow("s") {
				allowed++
			}
		}
		if allowed != burst {
			rt.Fatalf("allowed %d of %d calls, want burst %d", allowed, calls, burst)
		}
	})
}
