package locks

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemory_SerialisesSameKey(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := m.Lock(ctx, "cabin:1")
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Empty(t, m.slots, "released keys are dropped")
}

func TestMemory_DifferentKeysDoNotBlock(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	unlockA, err := m.Lock(ctx, "cabin:1")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	unlockB, err := m.Lock(ctx, "cabin:2")
	require.NoError(t, err)
	unlockB()
}

func TestMemory_ContextCancelledWhileWaiting(t *testing.T) {
	m := NewMemory()

	unlock, err := m.Lock(context.Background(), "reservation:1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = m.Lock(ctx, "reservation:1")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock() // second call is a no-op

	unlock, err = m.Lock(context.Background(), "reservation:1")
	require.NoError(t, err)
	unlock()
}

func TestRedis_LockRoundTrip(t *testing.T) {
	addr := os.Getenv("CABANAS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CABANAS_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	client, err := ConnectRedis(ctx, addr, "")
	require.NoError(t, err)
	defer client.Close()

	l := NewRedis(client, 5*time.Second, zap.NewNop())

	unlock, err := l.Lock(ctx, "test:lock")
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	_, err = l.Lock(waitCtx, "test:lock")
	assert.Error(t, err)

	unlock()

	unlock, err = l.Lock(ctx, "test:lock")
	require.NoError(t, err)
	unlock()
}
