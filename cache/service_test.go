/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/acronis/go-cachekit/config"
	"github.com/acronis/go-cachekit/retry"
	"github.com/acronis/go-cachekit/testutil"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(ms int64) *fakeClock {
	return &fakeClock{now: time.UnixMilli(ms)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(ms int64) {
	c.mu.Lock()
	c.now = time.UnixMilli(ms)
	c.mu.Unlock()
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestService(t *testing.T, cfg Config, mc MetricsCollector) (*Service[string], *fakeClock) {
	t.Helper()
	clock := newFakeClock(1000)
	svc, err := NewWithOpts[string](cfg, mc, Options{Clock: clock.Now})
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc, clock
}

var testKeys = NewNamespace("notes", "journal")

func TestService_SetAndGet(t *testing.T) {
	svc, clock := newTestService(t, NewDefaultConfig(), nil)
	key := testKeys("1")

	meta := svc.Set(key, "entry-1")
	require.Equal(t, key, meta.Key)
	require.Equal(t, time.UnixMilli(1000), meta.CreatedAt)
	require.Equal(t, time.UnixMilli(1000), meta.LastAccessedAt)
	require.Equal(t, time.UnixMilli(1000).Add(DefaultTTL), meta.ExpiresAt)
	require.Zero(t, meta.Hits)

	clock.Advance(time.Second)
	res, ok := svc.Get(key)
	require.True(t, ok)
	require.True(t, res.Hit)
	require.Equal(t, "entry-1", res.Value)
	require.Equal(t, 1, res.Metadata.Hits)
	require.Equal(t, time.UnixMilli(2000), res.Metadata.LastAccessedAt)

	res, _ = svc.Get(key)
	require.Equal(t, 2, res.Metadata.Hits)

	// A fresh set fully replaces the metadata.
	meta = svc.Set(key, "entry-2", WithTags("journal"))
	require.Zero(t, meta.Hits)
	require.Equal(t, []string{"journal"}, meta.Tags)
	res, _ = svc.Get(key)
	require.Equal(t, "entry-2", res.Value)
	require.Equal(t, 1, res.Metadata.Hits)

	_, ok = svc.Get(testKeys("missing"))
	require.False(t, ok)

	require.Equal(t, Statistics{Hits: 3, Misses: 1, Size: 1, Enabled: true}, svc.Statistics())
	require.InDelta(t, 0.75, svc.Statistics().HitRatio(), 1e-9)
}

func TestService_Expiration(t *testing.T) {
	t.Run("expired entry is removed on get", func(t *testing.T) {
		svc, clock := newTestService(t, NewDefaultConfig(), nil)
		key := testKeys("1")

		svc.Set(key, "entry-1", WithTTL(500*time.Millisecond))
		clock.Set(1600)

		_, ok := svc.Get(key)
		require.False(t, ok)
		require.EqualValues(t, 1, svc.Statistics().Evictions)
		require.EqualValues(t, 1, svc.Statistics().Misses)
		require.Zero(t, svc.Len())

		_, ok = svc.Get(key)
		require.False(t, ok)
		require.EqualValues(t, 1, svc.Statistics().Evictions)
		require.EqualValues(t, 2, svc.Statistics().Misses)
	})

	t.Run("entry expires exactly at expiresAt", func(t *testing.T) {
		svc, clock := newTestService(t, NewDefaultConfig(), nil)
		key := testKeys("1")

		svc.Set(key, "entry-1", WithTTL(500*time.Millisecond))
		clock.Set(1499)
		require.True(t, svc.Has(key))
		clock.Set(1500)
		require.False(t, svc.Has(key))
	})

	t.Run("has and getMetadata remove expired entries without counting misses", func(t *testing.T) {
		svc, clock := newTestService(t, NewDefaultConfig(), nil)
		svc.Set(testKeys("1"), "a", WithTTL(time.Second))
		svc.Set(testKeys("2"), "b", WithTTL(time.Second))
		clock.Advance(time.Second)

		require.False(t, svc.Has(testKeys("1")))
		_, ok := svc.GetMetadata(testKeys("2"))
		require.False(t, ok)
		require.False(t, svc.Has(testKeys("1")))
		require.Equal(t, Statistics{Evictions: 2, Enabled: true}, svc.Statistics())
	})

	t.Run("non-positive ttl means never expires", func(t *testing.T) {
		svc, clock := newTestService(t, NewDefaultConfig(), nil)
		for i, ttl := range []time.Duration{0, -time.Second} {
			meta := svc.Set(testKeys(fmt.Sprint(i)), "v", WithTTL(ttl))
			require.True(t, meta.ExpiresAt.IsZero())
		}
		clock.Advance(24 * time.Hour)
		require.Equal(t, 0, svc.PurgeExpired())
		require.True(t, svc.Has(testKeys("0")))
		require.True(t, svc.Has(testKeys("1")))
	})

	t.Run("zero default ttl means never expires", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.DefaultTTL = 0
		svc, _ := newTestService(t, cfg, nil)
		require.True(t, svc.Set(testKeys("1"), "v").ExpiresAt.IsZero())
		require.Equal(t, time.UnixMilli(1000).Add(time.Minute), svc.Set(testKeys("2"), "v", WithTTL(time.Minute)).ExpiresAt)
	})

	t.Run("purge expired", func(t *testing.T) {
		svc, clock := newTestService(t, NewDefaultConfig(), nil)
		svc.Set(testKeys("1"), "a", WithTTL(time.Second))
		svc.Set(testKeys("2"), "b", WithTTL(time.Hour))
		svc.Set(testKeys("3"), "c", WithTTL(0))
		clock.Advance(time.Minute)

		require.Equal(t, 1, svc.PurgeExpired())
		require.Equal(t, 2, svc.Len())
		require.EqualValues(t, 1, svc.Statistics().Evictions)
	})
}

func TestService_RunPeriodicCleanup(t *testing.T) {
	svc, clock := newTestService(t, NewDefaultConfig(), nil)
	svc.Set(testKeys("1"), "a", WithTTL(time.Second))
	svc.Set(testKeys("2"), "b", WithTTL(time.Hour))
	clock.Advance(time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.RunPeriodicCleanup(ctx, 10*time.Millisecond)
	}()

	require.Eventually(t, func() bool { return svc.Len() == 1 }, time.Second, 10*time.Millisecond)
	cancel()
	<-done
	require.True(t, svc.Has(testKeys("2")))
}

func TestService_Tags(t *testing.T) {
	svc, _ := newTestService(t, NewDefaultConfig(), nil)

	require.Equal(t, []string{"hidden"}, svc.Set(testKeys("1"), "v", WithTags("hidden", "hidden")).Tags)
	require.Equal(t, []string{"A", "a"}, svc.Set(testKeys("2"), "v", WithTags("A", "a")).Tags)
	require.Equal(t, []string{"x", "y"}, svc.Set(testKeys("3"), "v", WithTags("x"), WithTags("y", "x")).Tags)
	require.Nil(t, svc.Set(testKeys("4"), "v").Tags)
}

func TestService_GetMetadataReturnsCopy(t *testing.T) {
	svc, _ := newTestService(t, NewDefaultConfig(), nil)
	key := testKeys("1")
	svc.Set(key, "v", WithTags("journal", "hidden"))

	meta, ok := svc.GetMetadata(key)
	require.True(t, ok)
	meta.Tags[0] = "changed"
	meta.Tags = append(meta.Tags, "extra")
	meta.Hits = 100

	meta, ok = svc.GetMetadata(key)
	require.True(t, ok)
	require.Equal(t, []string{"journal", "hidden"}, meta.Tags)
	require.Zero(t, meta.Hits)

	res, _ := svc.Get(key)
	res.Metadata.Tags[1] = "changed"
	meta, _ = svc.GetMetadata(key)
	require.Equal(t, []string{"journal", "hidden"}, meta.Tags)
}

func TestService_HasDoesNotTouchEntry(t *testing.T) {
	svc, clock := newTestService(t, NewDefaultConfig(), nil)
	key := testKeys("1")
	svc.Set(key, "v")
	clock.Advance(time.Second)

	require.True(t, svc.Has(key))
	require.False(t, svc.Has(testKeys("missing")))
	meta, _ := svc.GetMetadata(key)
	require.Zero(t, meta.Hits)
	require.Equal(t, time.UnixMilli(1000), meta.LastAccessedAt)
	require.Equal(t, Statistics{Size: 1, Enabled: true}, svc.Statistics())
}

func TestService_DeleteAndClear(t *testing.T) {
	svc, _ := newTestService(t, NewDefaultConfig(), nil)

	svc.Set(testKeys("1"), "a")
	require.True(t, svc.Delete(testKeys("1")))
	require.EqualValues(t, 1, svc.Statistics().Evictions)
	require.False(t, svc.Delete(testKeys("1")))
	require.EqualValues(t, 1, svc.Statistics().Evictions)

	require.Equal(t, 0, svc.Clear())
	require.EqualValues(t, 1, svc.Statistics().Evictions)

	for i := 0; i < 3; i++ {
		svc.Set(testKeys(fmt.Sprint(i)), "v")
	}
	require.Equal(t, 3, svc.Clear())
	require.EqualValues(t, 4, svc.Statistics().Evictions)
	require.Zero(t, svc.Len())
}

func TestService_Capacity(t *testing.T) {
	t.Run("oldest entry is evicted when limit is exceeded", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.MaxEntries = 1
		svc, _ := newTestService(t, cfg, nil)
		keyA, keyB := testKeys("a"), testKeys("b")

		svc.Set(keyA, "a")
		svc.Set(keyB, "b")
		require.False(t, svc.Has(keyA))
		require.True(t, svc.Has(keyB))
		require.EqualValues(t, 1, svc.Statistics().Evictions)
	})

	t.Run("least recently accessed entry is evicted", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.MaxEntries = 2
		svc, clock := newTestService(t, cfg, nil)

		svc.Set(testKeys("a"), "a")
		clock.Advance(time.Second)
		svc.Set(testKeys("b"), "b")
		clock.Advance(time.Second)
		_, ok := svc.Get(testKeys("a"))
		require.True(t, ok)
		clock.Advance(time.Second)
		svc.Set(testKeys("c"), "c")

		require.Equal(t, 2, svc.Len())
		require.True(t, svc.Has(testKeys("a")))
		require.False(t, svc.Has(testKeys("b")))
		require.True(t, svc.Has(testKeys("c")))
	})

	t.Run("N+1 inserts leave N entries", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.MaxEntries = 10
		svc, clock := newTestService(t, cfg, nil)
		for i := 0; i <= 10; i++ {
			svc.Set(testKeys(fmt.Sprint(i)), "v")
			clock.Advance(time.Millisecond)
		}
		require.Equal(t, 10, svc.Len())
		require.False(t, svc.Has(testKeys("0")))
	})

	t.Run("shrinking limit is enforced on config update", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.MaxEntries = 10
		svc, _ := newTestService(t, cfg, nil)
		for i := 0; i < 3; i++ {
			svc.Set(testKeys(fmt.Sprint(i)), "v")
		}

		svc.UpdateConfig(UpdateMaxEntries(2))
		require.LessOrEqual(t, svc.Len(), 2)
		require.EqualValues(t, 1, svc.Statistics().Evictions)

		svc.UpdateConfig(ClearMaxEntries())
		for i := 3; i < 20; i++ {
			svc.Set(testKeys(fmt.Sprint(i)), "v")
		}
		require.Equal(t, 19, svc.Len())
	})

	t.Run("custom strategy from registry", func(t *testing.T) {
		registry := NewDefaultEvictionStrategyRegistry()
		registry.Register("newest-first", EvictionStrategyFunc(func(entries EntrySource, count int) []Key {
			var keys []Key
			entries.Range(func(meta EntryMetadata) bool {
				keys = append([]Key{meta.Key}, keys...)
				return true
			})
			return keys[:count]
		}))
		cfg := NewDefaultConfig()
		cfg.MaxEntries = 2
		cfg.EvictionStrategy = "newest-first"
		svc, err := NewWithOpts[string](cfg, nil, Options{Registry: registry})
		require.NoError(t, err)
		defer svc.Close()

		svc.Set(testKeys("a"), "a")
		svc.Set(testKeys("b"), "b")
		svc.Set(testKeys("c"), "c")
		require.True(t, svc.Has(testKeys("a")))
		require.True(t, svc.Has(testKeys("b")))
		require.False(t, svc.Has(testKeys("c")))
	})
}

func TestService_InvalidateWhere(t *testing.T) {
	svc, _ := newTestService(t, NewDefaultConfig(), nil)
	keyA, keyB := testKeys("a"), testKeys("b")
	svc.Set(keyA, "a", WithTags("journal", "hidden"))
	svc.Set(keyB, "b", WithTags("journal"))

	require.Equal(t, 1, svc.InvalidateWhere(func(meta EntryMetadata) bool { return meta.HasTag("hidden") }))
	require.False(t, svc.Has(keyA))
	require.True(t, svc.Has(keyB))
	require.EqualValues(t, 1, svc.Statistics().Evictions)

	require.Equal(t, 0, svc.InvalidateWhere(HasTag("hidden")))
	require.Equal(t, 0, svc.InvalidateWhere(nil))

	t.Run("entries removed concurrently are not counted", func(t *testing.T) {
		svc.Set(keyA, "a", WithTags("journal"))
		removed := svc.InvalidateWhere(func(meta EntryMetadata) bool {
			if meta.Key == keyA {
				svc.store.Delete(keyB) // removed behind the service's back
			}
			return true
		})
		require.Equal(t, 1, removed)
		require.Zero(t, svc.Len())
	})
}

func TestService_GetOrSet(t *testing.T) {
	ctx := context.Background()

	t.Run("factory is called only on miss", func(t *testing.T) {
		svc, _ := newTestService(t, NewDefaultConfig(), nil)
		key := testKeys("1")
		calls := 0
		factory := func(ctx context.Context) (string, error) {
			calls++
			return "entry-1", nil
		}

		res, err := svc.GetOrSet(ctx, key, factory, WithTags("journal"))
		require.NoError(t, err)
		require.False(t, res.Hit)
		require.Equal(t, "entry-1", res.Value)
		require.Equal(t, []string{"journal"}, res.Metadata.Tags)
		require.Equal(t, 1, calls)

		res, err = svc.GetOrSet(ctx, key, factory)
		require.NoError(t, err)
		require.True(t, res.Hit)
		require.Equal(t, "entry-1", res.Value)
		require.Equal(t, 1, calls)
	})

	t.Run("factory error", func(t *testing.T) {
		svc, _ := newTestService(t, NewDefaultConfig(), nil)
		key := testKeys("1")
		errBoom := errors.New("boom")

		_, err := svc.GetOrSet(ctx, key, func(ctx context.Context) (string, error) { return "", errBoom })
		require.EqualError(t, err, "Factory failed: boom")
		require.ErrorIs(t, err, errBoom)
		var factoryErr *FactoryError
		require.ErrorAs(t, err, &factoryErr)
		require.False(t, svc.Has(key))
	})

	t.Run("factory panic", func(t *testing.T) {
		svc, _ := newTestService(t, NewDefaultConfig(), nil)
		key := testKeys("1")

		_, err := svc.GetOrSet(ctx, key, func(ctx context.Context) (string, error) { panic("unexpected") })
		require.Error(t, err)
		var panicErr *PanicError
		require.ErrorAs(t, err, &panicErr)
		require.Equal(t, "unexpected", panicErr.Value)
		require.NotEmpty(t, panicErr.Stack)
		require.False(t, svc.Has(key))

		errCause := errors.New("cause")
		_, err = svc.GetOrSet(ctx, key, func(ctx context.Context) (string, error) { panic(errCause) })
		require.ErrorIs(t, err, errCause)
	})

	t.Run("nil factory", func(t *testing.T) {
		svc, _ := newTestService(t, NewDefaultConfig(), nil)
		_, err := svc.GetOrSet(ctx, testKeys("1"), nil)
		require.EqualError(t, err, "Factory failed: factory is nil")
	})

	t.Run("retrying factory", func(t *testing.T) {
		svc, _ := newTestService(t, NewDefaultConfig(), nil)
		attempts := 0
		factory := RetryingFactory(func(ctx context.Context) (string, error) {
			attempts++
			if attempts < 3 {
				return "", errors.New("temporary")
			}
			return "loaded", nil
		}, retry.ConstantPolicy(time.Millisecond, 5), nil)

		res, err := svc.GetOrSet(ctx, testKeys("1"), factory)
		require.NoError(t, err)
		require.Equal(t, "loaded", res.Value)
		require.Equal(t, 3, attempts)
		require.True(t, svc.Has(testKeys("1")))
	})

	t.Run("concurrent misses both run the factory", func(t *testing.T) {
		svc, _ := newTestService(t, NewDefaultConfig(), nil)
		key := testKeys("1")
		started := make(chan struct{}, 2)
		release := make(chan struct{})
		var mu sync.Mutex
		calls := 0
		factory := func(ctx context.Context) (string, error) {
			mu.Lock()
			calls++
			n := calls
			mu.Unlock()
			started <- struct{}{}
			<-release
			return fmt.Sprint("value-", n), nil
		}

		var wg sync.WaitGroup
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.GetOrSet(ctx, key, factory)
				assert.NoError(t, err)
			}()
		}
		<-started
		<-started
		close(release)
		wg.Wait()

		require.Equal(t, 2, calls)
		require.Equal(t, 1, svc.Len())
	})
}

func TestService_Disabled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Enabled = false
	mc := NewPrometheusMetrics()
	svc, _ := newTestService(t, cfg, mc)
	key := testKeys("1")

	require.Equal(t, EntryMetadata{}, svc.Set(key, "entry"))
	_, ok := svc.Get(key)
	require.False(t, ok)
	require.False(t, svc.Has(key))
	_, ok = svc.GetMetadata(key)
	require.False(t, ok)
	require.False(t, svc.Delete(key))
	require.Zero(t, svc.Clear())
	require.Zero(t, svc.InvalidateWhere(func(EntryMetadata) bool { return true }))
	require.Zero(t, svc.PurgeExpired())
	require.Zero(t, svc.Len())
	require.False(t, svc.Enabled())

	calls := 0
	res, err := svc.GetOrSet(context.Background(), key, func(ctx context.Context) (string, error) {
		calls++
		return "computed", nil
	})
	require.NoError(t, err)
	require.Equal(t, LookupResult[string]{Value: "computed"}, res)
	require.Equal(t, 1, calls)
	require.Zero(t, svc.Len())

	require.Equal(t, Statistics{}, svc.Statistics())
	testutil.RequireMetricValue(t, mc.HitsTotal.WithLabelValues(), 0, "metrics hook must not be called")
	testutil.RequireMetricValue(t, mc.MissesTotal.WithLabelValues(), 0, "metrics hook must not be called")
}

func TestService_ToggleKeepsEntries(t *testing.T) {
	svc, _ := newTestService(t, NewDefaultConfig(), nil)
	key := testKeys("1")
	svc.Set(key, "v")

	svc.UpdateConfig(UpdateEnabled(false))
	require.False(t, svc.Enabled())
	require.False(t, svc.Has(key))
	require.Equal(t, 1, svc.Len())

	svc.UpdateConfig(UpdateEnabled(true))
	require.True(t, svc.Has(key))
}

func TestService_SharedConfigManager(t *testing.T) {
	cm, err := NewConfigManager(NewDefaultConfig())
	require.NoError(t, err)

	notes, err := NewWithConfigManager[string](cm, nil, Options{})
	require.NoError(t, err)
	counters, err := NewWithConfigManager[int](cm, nil, Options{})
	require.NoError(t, err)
	require.Same(t, cm, notes.ConfigManager())

	notes.Set(testKeys("1"), "v")
	counters.Set(testKeys("1"), 1)

	cm.UpdateConfig(UpdateEnabled(false))
	require.False(t, notes.Enabled())
	require.False(t, counters.Enabled())

	counters.Close()
	cm.UpdateConfig(UpdateEnabled(true))
	require.True(t, notes.Enabled())
	require.False(t, counters.Enabled())
	notes.Close()

	_, err = NewWithConfigManager[string](nil, nil, Options{})
	require.Error(t, err)
}

func TestService_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.MaxEntries = -1
	_, err := New[string](cfg, nil)
	require.Error(t, err)
}

func TestService_ConcurrentAccess(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.MaxEntries = 50
	svc, err := New[int](cfg, NewPrometheusMetrics())
	require.NoError(t, err)
	defer svc.Close()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := testKeys(fmt.Sprint(i % 80))
				svc.Set(key, i, WithTags(fmt.Sprint("g", g)))
				svc.Get(key)
				svc.Has(key)
				if i%50 == 0 {
					svc.InvalidateWhere(HasTag(fmt.Sprint("g", g)))
				}
			}
		}(g)
	}
	wg.Wait()
	require.LessOrEqual(t, svc.Len(), 50)
}

func TestService_ConfigAccessors(t *testing.T) {
	svc, _ := newTestService(t, NewDefaultConfig(), nil)
	cfg := svc.UpdateConfig(UpdateDefaultTTL(time.Second), UpdateNamespace("journal"))
	require.Equal(t, cfg, svc.Config())
	require.Equal(t, config.TimeDuration(time.Second), svc.Config().DefaultTTL)
	require.Equal(t, time.UnixMilli(1000).Add(time.Second), svc.Set(testKeys("1"), "v").ExpiresAt)
}

func TestService_ConcurrentConfigUpdates(t *testing.T) {
	cm, err := NewConfigManager(Config{Enabled: true})
	require.NoError(t, err)

	disabling := make(chan struct{})
	release := make(chan struct{})
	cm.Subscribe(ConfigObserverFunc(func(cfg Config) {
		if !cfg.Enabled {
			close(disabling)
			<-release
		}
	}))

	svc, err := NewWithConfigManager[string](cm, nil, Options{})
	require.NoError(t, err)
	defer svc.Close()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		cm.UpdateConfig(UpdateEnabled(false))
	}()
	<-disabling

	enablingDone := atomic.NewBool(false)
	go func() {
		defer wg.Done()
		cm.UpdateConfig(UpdateEnabled(true))
		enablingDone.Store(true)
	}()
	require.Never(t, enablingDone.Load, 50*time.Millisecond, 5*time.Millisecond,
		"update must wait until observers are notified about the previous one")

	close(release)
	wg.Wait()
	require.True(t, cm.Config().Enabled)
	require.True(t, svc.Enabled())
}

func TestService_RunPeriodicCleanupNonPositiveInterval(t *testing.T) {
	svc, clock := newTestService(t, Config{Enabled: true}, nil)
	svc.Set("a", "v", WithTTL(time.Second))
	clock.Advance(time.Minute)

	for _, interval := range []time.Duration{0, -time.Second} {
		done := make(chan struct{})
		go func() {
			defer close(done)
			svc.RunPeriodicCleanup(context.Background(), interval)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("cleanup with interval %s didn't return", interval)
		}
	}
	require.Equal(t, 1, svc.Len())
}
