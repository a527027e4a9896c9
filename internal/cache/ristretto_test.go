package cache

import (
	"testing"
	"time"

	"prime-conversion-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestCache(t *testing.T) *RistrettoCache {
	t.Helper()
	c, err := NewRistrettoCache(models.CacheConfig{
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestRistrettoCache(t *testing.T) {
	var _ Cache = (*RistrettoCache)(nil)

	c := newTestCache(t)

	t.Run("set-and-get", func(t *testing.T) {
		require.True(t, c.Set("quote:1", "ETH-USD", time.Hour))
		c.Wait()

		v, found := c.Get("quote:1")
		require.True(t, found)
		assert.Equal(t, "ETH-USD", v)
	})

	t.Run("miss", func(t *testing.T) {
		_, found := c.Get("missing")
		assert.False(t, found)
	})

	t.Run("delete", func(t *testing.T) {
		require.True(t, c.Set("quote:2", 2, time.Hour))
		c.Wait()
		c.Delete("quote:2")

		_, found := c.Get("quote:2")
		assert.False(t, found)
	})

	t.Run("ttl-expiry", func(t *testing.T) {
		require.True(t, c.Set("quote:3", 3, 50*time.Millisecond))
		c.Wait()

		assert.Eventually(t, func() bool {
			_, found := c.Get("quote:3")
			return !found
		}, 2*time.Second, 20*time.Millisecond)
	})

	t.Run("clear", func(t *testing.T) {
		require.True(t, c.Set("quote:4", 4, time.Hour))
		c.Wait()
		c.Clear()

		_, found := c.Get("quote:4")
		assert.False(t, found)
	})

	assert.NotNil(t, c.Metrics())
}

func TestNewRistrettoCacheRejectsBadSizes(t *testing.T) {
	_, err := NewRistrettoCache(models.CacheConfig{NumCounters: 0, MaxCost: 10, BufferItems: 64}, nil)
	assert.Error(t, err)
}

func TestMetricsRegistered(t *testing.T) {
	assert.NotNil(t, CacheHitsTotal)
	assert.NotNil(t, CacheMissesTotal)
	assert.NotNil(t, CacheSetsTotal)
	assert.NotNil(t, CacheDeletesTotal)
}
