package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medir/amharic-medsearch/internal/searcher/executor"
	"github.com/medir/amharic-medsearch/internal/searcher/parser"
	"github.com/medir/amharic-medsearch/pkg/config"
	"github.com/medir/amharic-medsearch/pkg/metrics"
	pkgredis "github.com/medir/amharic-medsearch/pkg/redis"
	"github.com/medir/amharic-medsearch/pkg/resilience"
)

func newTestCache(t *testing.T) (*QueryCache, *miniredis.Miniredis, *metrics.Metrics) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := pkgredis.NewClient(config.RedisConfig{Addr: mr.Addr(), PoolSize: 4})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	m := metrics.New(prometheus.NewRegistry())
	return New(client, time.Minute, m), mr, m
}

func result(query string, ids ...string) *executor.SearchResult {
	res := executor.EmptyResult(query)
	for i, id := range ids {
		res.Results = append(res.Results, executor.Hit{ID: id, Score: float64(len(ids) - i), Rank: i + 1})
	}
	res.TotalHits = len(ids)
	return res
}

func TestBuildKey(t *testing.T) {
	k := BuildKey(1, parser.Parse("ራስ ምታት"), 10)
	assert.Contains(t, k, keyPrefix)

	assert.Equal(t, k, BuildKey(1, parser.Parse("ምታት ራስ"), 10))
	assert.Equal(t, k, BuildKey(1, parser.Parse("ራስ  ምታት።"), 10))
	assert.NotEqual(t, k, BuildKey(2, parser.Parse("ራስ ምታት"), 10))
	assert.NotEqual(t, k, BuildKey(1, parser.Parse("ራስ ምታት"), 5))
	assert.NotEqual(t, k, BuildKey(1, parser.Parse("ራስ AND ምታት"), 10))
	assert.NotEqual(t, k, BuildKey(1, parser.Parse("ራስ ምታት NOT ህመም"), 10))
	assert.NotEqual(t, k, BuildKey(1, parser.Parse("ራስ ራስ ምታት"), 10))
}

func TestGetOrComputeCachesResult(t *testing.T) {
	c, mr, m := newTestCache(t)
	ctx := context.Background()
	key := BuildKey(1, parser.Parse("ህመም"), 10)

	var calls atomic.Int32
	compute := func() (*executor.SearchResult, error) {
		calls.Add(1)
		return result("ህመም", "doc-2", "doc-4"), nil
	}

	first, hit, err := c.GetOrCompute(ctx, key, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.True(t, mr.Exists(key))
	assert.Equal(t, time.Minute, mr.TTL(key))

	second, hit, err := c.GetOrCompute(ctx, key, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load())

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMissesTotal))
}

func TestGetOrComputeConcurrentCallersShareResult(t *testing.T) {
	c, _, _ := newTestCache(t)
	key := BuildKey(3, parser.Parse("ተኩስ"), 10)

	var (
		calls atomic.Int32
		wg    sync.WaitGroup
	)
	results := make([]*executor.SearchResult, 8)
	for i := range results {
		wg.Go(func() {
			res, _, err := c.GetOrCompute(context.Background(), key, func() (*executor.SearchResult, error) {
				calls.Add(1)
				time.Sleep(20 * time.Millisecond)
				return result("ተኩስ", "doc-1", "doc-10"), nil
			})
			assert.NoError(t, err)
			results[i] = res
		})
	}
	wg.Wait()
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
	assert.Less(t, calls.Load(), int32(len(results)))
	for _, r := range results {
		assert.Equal(t, []string{"doc-1", "doc-10"}, r.IDs())
	}
}

func TestGetOrComputeErrorIsNotCached(t *testing.T) {
	c, mr, _ := newTestCache(t)
	key := BuildKey(1, parser.Parse("ህመም"), 10)
	boom := errors.New("boom")

	_, _, err := c.GetOrCompute(context.Background(), key, func() (*executor.SearchResult, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(key))
}

func TestRedisFailureDegradesToCompute(t *testing.T) {
	c, mr, _ := newTestCache(t)
	mr.Close()

	res, hit, err := c.GetOrCompute(context.Background(), "medsearch:search:x", func() (*executor.SearchResult, error) {
		return result("q", "a"), nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []string{"a"}, res.IDs())
}

func TestRepeatedRedisFailuresOpenBreaker(t *testing.T) {
	c, mr, _ := newTestCache(t)
	mr.Close()

	for range 5 {
		_, ok := c.Get(context.Background(), keyPrefix+"x")
		assert.False(t, ok)
	}
	assert.Equal(t, resilience.StateOpen, c.BreakerState())

	_, misses := c.Stats()
	assert.Equal(t, int64(5), misses)
}

func TestCorruptEntryIsMiss(t *testing.T) {
	c, mr, _ := newTestCache(t)
	require.NoError(t, mr.Set(keyPrefix+"bad", "{not json"))
	_, ok := c.Get(context.Background(), keyPrefix+"bad")
	assert.False(t, ok)
}

func TestInvalidate(t *testing.T) {
	c, mr, _ := newTestCache(t)
	ctx := context.Background()
	for _, q := range []string{"ህመም", "ትኩሳት", "ተኩስ"} {
		c.Set(ctx, BuildKey(1, parser.Parse(q), 10), result(q, "doc-1"))
	}
	require.NoError(t, mr.Set("other:key", "keep"))

	deleted, err := c.Invalidate(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
	assert.True(t, mr.Exists("other:key"))

	_, ok := c.Get(ctx, BuildKey(1, parser.Parse("ህመም"), 10))
	assert.False(t, ok)
}
