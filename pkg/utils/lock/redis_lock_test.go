package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLock(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLock()

	token, ok, err := l.Acquire(ctx, "nonce:1:0xabc", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.Acquire(ctx, "nonce:1:0xabc", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, l.Release(ctx, "nonce:1:0xabc", "someone-else"), ErrNotHeld)
	require.NoError(t, l.Release(ctx, "nonce:1:0xabc", token))

	_, ok, err = l.Acquire(ctx, "nonce:1:0xabc", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryLock_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0)
	l := NewMemoryLock()
	l.nowFn = func() time.Time { return now }

	_, ok, _ := l.Acquire(ctx, "k", time.Second)
	require.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok, _ = l.Acquire(ctx, "k", time.Second)
	assert.True(t, ok)
}

func TestWait(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLock()

	unlock, err := Wait(ctx, l, "k", time.Minute, time.Millisecond)
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		second, err := Wait(ctx, l, "k", time.Minute, time.Millisecond)
		if err == nil {
			_ = second()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second waiter acquired a held lock")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, unlock())
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second waiter never acquired the lock")
	}
}

func TestWait_ContextCanceled(t *testing.T) {
	l := NewMemoryLock()
	_, ok, _ := l.Acquire(context.Background(), "k", time.Minute)
	require.True(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := Wait(ctx, l, "k", time.Minute, time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
