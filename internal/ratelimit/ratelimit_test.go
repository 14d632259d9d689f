package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitForRateLimit_EnforcesMinimumGap(t *testing.T) {
	limiter := NewLimiter()
	limiter.SetRateLimit("lastfm", 20) // 50ms interval

	ctx := context.Background()
	require.NoError(t, limiter.WaitForRateLimit(ctx, "lastfm"))

	start := time.Now()
	require.NoError(t, limiter.WaitForRateLimit(ctx, "lastfm"))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 45*time.Millisecond, "second call resolved before the minimum interval")
}

func TestWaitForRateLimit_ProvidersAreIndependent(t *testing.T) {
	limiter := NewLimiter()
	limiter.SetRateLimit("lastfm", 1)
	limiter.SetRateLimit("fanarttv", 1)

	ctx := context.Background()
	require.NoError(t, limiter.WaitForRateLimit(ctx, "lastfm"))

	// A different provider has its own stamp and should not wait.
	start := time.Now()
	require.NoError(t, limiter.WaitForRateLimit(ctx, "fanarttv"))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestWaitForRateLimit_ConcurrentCallersDoNotBurst(t *testing.T) {
	limiter := NewLimiter()
	limiter.SetRateLimit("musicbrainz", 25) // 40ms interval

	ctx := context.Background()
	const callers = 5

	var mu sync.Mutex
	var stamps []time.Time

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, limiter.WaitForRateLimit(ctx, "musicbrainz"))
			mu.Lock()
			stamps = append(stamps, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, stamps, callers)
	for i := range stamps {
		for j := range stamps {
			if i == j {
				continue
			}
			gap := stamps[i].Sub(stamps[j])
			if gap < 0 {
				gap = -gap
			}
			assert.GreaterOrEqual(t, gap, 35*time.Millisecond,
				"two callers were admitted within the minimum interval")
		}
	}
}

func TestSetRateLimit_CeilsInterval(t *testing.T) {
	limiter := NewLimiter()
	limiter.SetRateLimit("wikipedia", 3) // 1000/3 -> 334ms
	assert.Equal(t, 334*time.Millisecond, limiter.Interval("wikipedia"))
}

func TestReset_ClearsStamp(t *testing.T) {
	limiter := NewLimiter()
	limiter.SetRateLimit("coverart", 2)

	ctx := context.Background()
	require.NoError(t, limiter.WaitForRateLimit(ctx, "coverart"))

	limiter.Reset("coverart")

	start := time.Now()
	require.NoError(t, limiter.WaitForRateLimit(ctx, "coverart"))
	assert.Less(t, time.Since(start), 100*time.Millisecond, "reset should clear the pacing stamp")
}

func TestWaitForRateLimit_ContextCancellation(t *testing.T) {
	limiter := NewLimiter()
	limiter.SetRateLimit("slow", 0.2) // 5s interval

	ctx := context.Background()
	require.NoError(t, limiter.WaitForRateLimit(ctx, "slow"))

	cancelCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	err := limiter.WaitForRateLimit(cancelCtx, "slow")
	assert.Error(t, err)
}
