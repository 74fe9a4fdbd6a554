package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/social-api/internal/config"
)

func TestRedisOptions(t *testing.T) {
	t.Run("single uses the first address", func(t *testing.T) {
		opts, mode, err := redisOptions(config.RedisConfig{Addrs: []string{"a:6379", "b:6379"}, DB: 2, MinRetryBackoff: 8})
		require.NoError(t, err)
		assert.Equal(t, "single", mode)
		assert.Equal(t, []string{"a:6379"}, opts.Addrs)
		assert.Equal(t, 2, opts.DB)
		assert.Equal(t, 8*time.Millisecond, opts.MinRetryBackoff)
	})

	t.Run("addr fallback", func(t *testing.T) {
		opts, _, err := redisOptions(config.RedisConfig{Addr: "localhost:6379"})
		require.NoError(t, err)
		assert.Equal(t, []string{"localhost:6379"}, opts.Addrs)
	})

	t.Run("sentinel requires master name", func(t *testing.T) {
		_, _, err := redisOptions(config.RedisConfig{Mode: "sentinel", Addr: "s:26379"})
		assert.Error(t, err)

		opts, _, err := redisOptions(config.RedisConfig{Mode: "sentinel", Addr: "s:26379", MasterName: "main"})
		require.NoError(t, err)
		assert.Equal(t, "main", opts.MasterName)
	})

	t.Run("cluster keeps all addresses and db 0", func(t *testing.T) {
		opts, _, err := redisOptions(config.RedisConfig{Mode: "cluster", Addrs: []string{"a:1", "b:1", "c:1"}, DB: 3})
		require.NoError(t, err)
		assert.Len(t, opts.Addrs, 3)
		assert.Zero(t, opts.DB)
	})

	t.Run("errors", func(t *testing.T) {
		_, _, err := redisOptions(config.RedisConfig{})
		assert.Error(t, err)

		_, _, err = redisOptions(config.RedisConfig{Mode: "ring", Addr: "a:1"})
		assert.Error(t, err)
	})
}
