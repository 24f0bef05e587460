package gameserver

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// RateLimitConfig configures the per-session action limiter.
type RateLimitConfig struct {
	ActionsPerSecond float64
	Burst            int
	// CleanupInterval is how often limiters idle for twice this long are dropped.
	CleanupInterval time.Duration
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// SessionRateLimiter throttles Act calls per session ID.
type SessionRateLimiter struct {
	limiters sync.Map // map[string]*limiterEntry
	cfg      RateLimitConfig
	now      func() time.Time
	stopChan chan struct{}
	stopOnce sync.Once

	rejected atomic.Uint64
}

// NewSessionRateLimiter creates a limiter and starts its cleanup goroutine.
//
// Precondition: cfg.ActionsPerSecond > 0 and cfg.Burst >= 1.
// Postcondition: Stop must be called to release the cleanup goroutine.
func NewSessionRateLimiter(cfg RateLimitConfig) *SessionRateLimiter {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	rl := &SessionRateLimiter{cfg: cfg, now: time.Now, stopChan: make(chan struct{})}
	go rl.cleanupLoop()
	return rl
}

// Stop stops the cleanup goroutine. Safe to call more than once.
func (rl *SessionRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopChan) })
}

func (rl *SessionRateLimiter) entry(key string) *limiterEntry {
	if e, ok := rl.limiters.Load(key); ok {
		return e.(*limiterEntry)
	}
	e := &limiterEntry{limiter: rate.NewLimiter(rate.Limit(rl.cfg.ActionsPerSecond), rl.cfg.Burst)}
	actual, _ := rl.limiters.LoadOrStore(key, e)
	return actual.(*limiterEntry)
}

// Allow reports whether an action for key may proceed now.
func (rl *SessionRateLimiter) Allow(key string) bool {
	e := rl.entry(key)
	now := rl.now()
	e.lastSeen.Store(now.UnixNano())
	if e.limiter.AllowN(now, 1) {
		return true
	}
	rl.rejected.Add(1)
	return false
}

// Rejected returns the number of rejected actions.
func (rl *SessionRateLimiter) Rejected() uint64 { return rl.rejected.Load() }

func (rl *SessionRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stopChan:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

func (rl *SessionRateLimiter) cleanup() {
	cutoff := rl.now().Add(-2 * rl.cfg.CleanupInterval).UnixNano()
	rl.limiters.Range(func(key, value any) bool {
		if value.(*limiterEntry).lastSeen.Load() < cutoff {
			rl.limiters.Delete(key)
		}
		return true
	})
}

// UnaryInterceptor rejects Act calls over the limit with ResourceExhausted.
// onReject, when non-nil, is called for every rejection. Other methods pass through.
func (rl *SessionRateLimiter) UnaryInterceptor(onReject func()) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if info.FullMethod != MethodAct {
			return handler(ctx, req)
		}
		in, ok := req.(*structpb.Struct)
		if !ok {
			return handler(ctx, req)
		}
		id := stringField(in, "session_id")
		if id != "" && !rl.Allow(id) {
			if onReject != nil {
				onReject()
			}
			return nil, status.Errorf(codes.ResourceExhausted, "too many actions for session %s", id)
		}
		return handler(ctx, req)
	}
}
