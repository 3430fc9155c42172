package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func seedStale(rl *RateLimiter, ip string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.requests[ip] = []time.Time{time.Now().Add(-2 * rl.window)}
}

func entryCount(rl *RateLimiter) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.requests)
}

func TestCleanupDropsStaleEntries(t *testing.T) {
	rl := NewRateLimiter(5, 50*time.Millisecond)
	seedStale(rl, "10.0.0.1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl.StartCleanup(ctx, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return entryCount(rl) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestCleanupStopsOnCancel(t *testing.T) {
	rl := NewRateLimiter(5, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	rl.StartCleanup(ctx, 10*time.Millisecond)
	cancel()

	// give the goroutine time to observe the cancel, then seed and make
	// sure nothing sweeps the entry away
	time.Sleep(30 * time.Millisecond)
	seedStale(rl, "10.0.0.2")
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, entryCount(rl))
}
