package lock

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bulk-auction/internal/biddingerrors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker_SameKeyTimesOut(t *testing.T) {
	l := NewLocalLocker(50 * time.Millisecond)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "listing1")
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "listing1")
	require.ErrorIs(t, err, biddingerrors.ErrLockTimeout)
	require.ErrorIs(t, err, biddingerrors.ErrConflict)

	other, err := l.Acquire(ctx, "listing2")
	require.NoError(t, err, "different keys never block each other")
	other()

	release()
	release() // second call is a no-op

	again, err := l.Acquire(ctx, "listing1")
	require.NoError(t, err)
	again()
	require.Zero(t, l.Len())
}

func TestLocalLocker_CancelledContext(t *testing.T) {
	l := NewLocalLocker(0)
	release, err := l.Acquire(context.Background(), "listing1")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Acquire(ctx, "listing1")
	require.ErrorIs(t, err, context.Canceled)
}

func TestLocalLocker_Serializes(t *testing.T) {
	l := NewLocalLocker(5 * time.Second)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		inside  int32
		maxSeen int32
		count   int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(ctx, "listing1")
			require.NoError(t, err)
			defer release()

			n := atomic.AddInt32(&inside, 1)
			if n > atomic.LoadInt32(&maxSeen) {
				atomic.StoreInt32(&maxSeen, n)
			}
			count++
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), maxSeen)
	require.Equal(t, 50, count)
	require.Zero(t, l.Len())
}

// Test RedisLocker against a real server. Set REDIS_ADDR to run.
func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	l, err := NewRedisLocker(addr, os.Getenv("REDIS_PASSWORD"), 0, 5*time.Second, 100*time.Millisecond)
	require.NoError(t, err)
	defer l.Close()

	ctx := context.Background()
	key := "test-" + uuid.NewString()

	release, err := l.Acquire(ctx, key)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, key)
	require.ErrorIs(t, err, biddingerrors.ErrLockTimeout)

	release()

	again, err := l.Acquire(ctx, key)
	require.NoError(t, err)
	again()
}
