package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cabecera/ing-software-caba-itas/pkg/locks"
)

// sessionLocker records calls and hands out a single release per LockAll
type sessionLocker struct {
	mu       sync.Mutex
	single   []string
	batches  [][]string
	releases int
	err      error
}

func (l *sessionLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.single = append(l.single, key)
	return func() {}, nil
}

func (l *sessionLocker) LockAll(ctx context.Context, keys ...string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.batches = append(l.batches, keys)
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.releases++
	}, nil
}

func TestRuntimeLock_TakesAllKeysInOneCall(t *testing.T) {
	locker := &sessionLocker{}
	rt := Runtime{Locker: locker, Logger: zap.NewNop()}

	unlock, err := rt.lock(context.Background(), "reservation:1", "cabin:a", "cabin:b")
	require.NoError(t, err)
	unlock()
	unlock()

	assert.Empty(t, locker.single)
	require.Len(t, locker.batches, 1)
	assert.Equal(t, []string{"reservation:1", "cabin:a", "cabin:b"}, locker.batches[0])
	assert.Equal(t, 1, locker.releases, "release runs once")
}

func TestRuntimeLock_MultiLockerError(t *testing.T) {
	locker := &sessionLocker{err: errors.New("connection refused")}
	rt := Runtime{Locker: locker, Logger: zap.NewNop()}

	_, err := rt.lock(context.Background(), "cabin:a", "cabin:b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cabin:a, cabin:b")
}

func TestRuntimeLock_PerKeyLocker(t *testing.T) {
	rt := Runtime{Locker: locks.NewMemory(), Logger: zap.NewNop()}
	ctx := context.Background()

	unlock, err := rt.lock(ctx, "cabin:a", "cabin:b")
	require.NoError(t, err)
	unlock()

	// both keys are free again
	unlock, err = rt.lock(ctx, "cabin:b", "cabin:a")
	require.NoError(t, err)
	unlock()
}
