package timeoutcache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	disk, err := OpenDiskTier(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { disk.Close() })
	return NewCache(zerolog.Nop(), disk, 64, time.Minute)
}

func TestCached_SingleComputeOnHit(t *testing.T) {
	c := newTestCache(t)
	calls := 0
	compute := func() (int, error) {
		calls++
		return 42, nil
	}

	key := Key("fn", "arg1")
	v1, err := Cached(c, key, time.Minute, compute)
	require.NoError(t, err)
	assert.Equal(t, 42, v1)

	v2, err := Cached(c, key, time.Minute, compute)
	require.NoError(t, err)
	assert.Equal(t, 42, v2)
	assert.Equal(t, 1, calls, "second call within TTL must not invoke compute again (P5)")
}

func TestCached_DiskTierSurvivesMemoryEviction(t *testing.T) {
	disk, err := OpenDiskTier(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer disk.Close()

	c := NewCache(zerolog.Nop(), disk, 1, time.Minute)
	key1 := Key("fn", 1)
	key2 := Key("fn", 2)

	_, err = Cached(c, key1, time.Minute, func() (string, error) { return "one", nil })
	require.NoError(t, err)
	// Evict key1 from the memory tier by inserting a second key into a
	// size-1 LRU.
	_, err = Cached(c, key2, time.Minute, func() (string, error) { return "two", nil })
	require.NoError(t, err)

	calls := 0
	v, err := Cached(c, key1, time.Minute, func() (string, error) {
		calls++
		return "recomputed", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "one", v, "disk tier must serve the value even after memory eviction")
	assert.Equal(t, 0, calls)
}

func TestCached_DifferentArgsDifferentKeys(t *testing.T) {
	assert.NotEqual(t, Key("fn", "a"), Key("fn", "b"))
	assert.NotEqual(t, Key("fn1", "a"), Key("fn2", "a"))
}

func TestCached_ComputeErrorNotCached(t *testing.T) {
	c := newTestCache(t)
	key := Key("fn", "x")
	calls := 0
	_, err := Cached(c, key, time.Minute, func() (int, error) {
		calls++
		return 0, assert.AnError
	})
	assert.Error(t, err)

	_, err = Cached(c, key, time.Minute, func() (int, error) {
		calls++
		return 99, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "a failed compute must not poison the cache")
}
