package util

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSharedClientIsSingleton(t *testing.T) {
	t.Parallel()

	a := GetSharedClient()
	b := GetSharedClient()
	require.NotNil(t, a)
	assert.Same(t, a, b)
	assert.Nil(t, a.Jar)
}

func TestResponseCache(t *testing.T) {
	t.Parallel()

	cache := NewResponseCache(time.Minute, 10)

	_, ok := cache.Get("missing")
	assert.False(t, ok)

	cache.Set("page", []byte("<html>"))
	data, ok := cache.Get("page")
	require.True(t, ok)
	assert.Equal(t, []byte("<html>"), data)
}

func TestResponseCacheExpiry(t *testing.T) {
	t.Parallel()

	cache := NewResponseCache(30*time.Millisecond, 10)
	cache.Set("page", []byte("x"))

	_, ok := cache.Get("page")
	require.True(t, ok)

	time.Sleep(60 * time.Millisecond)
	_, ok = cache.Get("page")
	assert.False(t, ok)
}

func TestResponseCacheEvictsOldestAtCapacity(t *testing.T) {
	t.Parallel()

	cache := NewResponseCache(time.Minute, 2)
	cache.Set("first", []byte("1"))
	time.Sleep(5 * time.Millisecond)
	cache.Set("second", []byte("2"))
	time.Sleep(5 * time.Millisecond)
	cache.Set("third", []byte("3"))

	_, ok := cache.Get("first")
	assert.False(t, ok, "oldest entry is evicted")
	_, ok = cache.Get("second")
	assert.True(t, ok)
	_, ok = cache.Get("third")
	assert.True(t, ok)
}

func TestWorkerPoolRunsAllTasks(t *testing.T) {
	t.Parallel()

	pool := NewWorkerPool(3)
	var done atomic.Int32
	for i := 0; i < 20; i++ {
		pool.Submit(func() {
			done.Add(1)
		})
	}
	pool.Wait()
	assert.Equal(t, int32(20), done.Load())
}

func TestWorkerPoolBoundsConcurrency(t *testing.T) {
	t.Parallel()

	pool := NewWorkerPool(2)
	var current, peak atomic.Int32
	for i := 0; i < 10; i++ {
		pool.Submit(func() {
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			current.Add(-1)
		})
	}
	pool.Wait()
	assert.LessOrEqual(t, peak.Load(), int32(2))
}
