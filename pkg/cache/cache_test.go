package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, time.Minute)

	var got []string
	assert.ErrorIs(t, c.Get(ctx, "0x095ea7b3", &got), ErrMiss)

	require.NoError(t, c.Set(ctx, "0x095ea7b3", []string{"approve(address,uint256)"}, time.Minute))
	require.NoError(t, c.Get(ctx, "0x095ea7b3", &got))
	assert.Equal(t, []string{"approve(address,uint256)"}, got)

	// 读出的是拷贝
	got[0] = "changed"
	var again []string
	require.NoError(t, c.Get(ctx, "0x095ea7b3", &again))
	assert.Equal(t, "approve(address,uint256)", again[0])

	require.NoError(t, c.Delete(ctx, "0x095ea7b3"))
	assert.ErrorIs(t, c.Get(ctx, "0x095ea7b3", &got), ErrMiss)
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute, time.Minute)

	require.NoError(t, c.Set(ctx, "k", 1, 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	var v int
	assert.ErrorIs(t, c.Get(ctx, "k", &v), ErrMiss)
}

func TestMultiLevelCache_BackfillsLocal(t *testing.T) {
	ctx := context.Background()
	local := NewMemoryCache(time.Minute, time.Minute)
	remote := NewMemoryCache(time.Minute, time.Minute)
	m := NewMultiLevelCache(local, remote)

	require.NoError(t, remote.Set(ctx, "k", []string{"a"}, time.Hour))

	var got []string
	require.NoError(t, m.Get(ctx, "k", &got))
	assert.Equal(t, []string{"a"}, got)

	var fromLocal []string
	require.NoError(t, local.Get(ctx, "k", &fromLocal))
	assert.Equal(t, []string{"a"}, fromLocal)

	require.NoError(t, m.Delete(ctx, "k"))
	assert.ErrorIs(t, m.Get(ctx, "k", &got), ErrMiss)
}
