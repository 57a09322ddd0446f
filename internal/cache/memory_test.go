package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, err := NewMemoryCache(10, time.Minute)
	require.NoError(t, err)

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	value := []byte(`{"version":"3.0"}`)
	require.NoError(t, c.Set(ctx, Key("base", "u1"), value))
	value[0] = 'X'

	got, ok, err := c.Get(ctx, Key("base", "u1"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"version":"3.0"}`, string(got))

	got[0] = 'Y'
	again, _, _ := c.Get(ctx, Key("base", "u1"))
	assert.Equal(t, `{"version":"3.0"}`, string(again))

	require.NoError(t, c.Delete(ctx, Key("base", "u1"), "never-set"))
	_, ok, _ = c.Get(ctx, Key("base", "u1"))
	assert.False(t, ok)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c, err := NewMemoryCache(2, time.Minute)
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "a", []byte("1")))
	require.NoError(t, c.Set(ctx, "b", []byte("2")))
	_, _, _ = c.Get(ctx, "a")
	require.NoError(t, c.Set(ctx, "c", []byte("3")))

	_, okA, _ := c.Get(ctx, "a")
	_, okB, _ := c.Get(ctx, "b")
	assert.True(t, okA)
	assert.False(t, okB)
	assert.Equal(t, 2, c.Len())
}

func TestMemoryCacheExpires(t *testing.T) {
	ctx := context.Background()
	c, err := NewMemoryCache(5, 20*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "k", []byte("v")))
	assert.Eventually(t, func() bool {
		_, ok, _ := c.Get(ctx, "k")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryCacheValidation(t *testing.T) {
	_, err := NewMemoryCache(0, time.Minute)
	assert.Error(t, err)

	c, err := NewMemoryCache(1, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, c.TTL())
	require.NoError(t, c.Close())
}

func TestKey(t *testing.T) {
	assert.Equal(t, "radreport:study:u1:mri_knee", Key("study", "u1", "mri_knee"))
}
