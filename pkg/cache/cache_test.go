package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(ttl time.Duration) *Store {
	return NewStore(Config{
		PriceTTL:       ttl,
		FundamentalTTL: ttl,
		NewsTTL:        ttl,
	})
}

func TestStoreGetAfterPut(t *testing.T) {
	store := newTestStore(time.Minute)

	store.Put(CategoryPrice, "600519", []float64{1, 2, 3})

	got, ok := store.Get(CategoryPrice, "600519")
	require.True(t, ok)
	assert.Equal(t, []float64{1, 2, 3}, got)

	// Other categories are independent keyspaces.
	_, ok = store.Get(CategoryNews, "600519")
	assert.False(t, ok)
}

func TestStoreExpiry(t *testing.T) {
	store := newTestStore(30 * time.Millisecond)

	store.Put(CategoryFundamental, "AAPL", "payload")
	_, ok := store.Get(CategoryFundamental, "AAPL")
	require.True(t, ok)

	time.Sleep(60 * time.Millisecond)

	_, ok = store.Get(CategoryFundamental, "AAPL")
	assert.False(t, ok, "entry must be absent once its TTL elapsed")
}

func TestStoreGetOrFetchPopulates(t *testing.T) {
	store := newTestStore(time.Minute)

	calls := 0
	v, err := store.GetOrFetch(context.Background(), CategoryNews, "0700.HK", func(ctx context.Context) (interface{}, error) {
		calls++
		return "fetched", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fetched", v)
	assert.Equal(t, 1, calls)

	// Second call is served from the cache.
	v, err = store.GetOrFetch(context.Background(), CategoryNews, "0700.HK", func(ctx context.Context) (interface{}, error) {
		calls++
		return "refetched", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fetched", v)
	assert.Equal(t, 1, calls)
}

func TestStoreGetOrFetchCollapsesConcurrentFetches(t *testing.T) {
	store := newTestStore(time.Minute)

	var calls int64
	fetch := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt64(&calls, 1)
		time.Sleep(20 * time.Millisecond)
		return "payload", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := store.GetOrFetch(context.Background(), CategoryPrice, "TSLA", fetch)
			assert.NoError(t, err)
			assert.Equal(t, "payload", v)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), atomic.LoadInt64(&calls), "concurrent fetches for one key must collapse")
}

func TestStoreFetchSurvivesInitiatorCancellation(t *testing.T) {
	store := newTestStore(time.Minute)

	release := make(chan struct{})
	started := make(chan struct{})
	fetch := func(ctx context.Context) (interface{}, error) {
		close(started)
		select {
		case <-release:
			return "payload", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	ctx1, cancel1 := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, err := store.GetOrFetch(ctx1, CategoryPrice, "600519", fetch)
		errs <- err
	}()
	<-started

	second := make(chan struct {
		v   interface{}
		err error
	}, 1)
	go func() {
		v, err := store.GetOrFetch(context.Background(), CategoryPrice, "600519", fetch)
		second <- struct {
			v   interface{}
			err error
		}{v, err}
	}()

	// The initiating client disconnects while the fetch is in flight.
	cancel1()
	select {
	case err := <-errs:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(release)
	select {
	case res := <-second:
		require.NoError(t, res.err, "waiters must not inherit the initiator's cancellation")
		assert.Equal(t, "payload", res.v)
	case <-time.After(time.Second):
		t.Fatal("second caller did not return")
	}

	v, ok := store.Get(CategoryPrice, "600519")
	require.True(t, ok, "the detached fetch must still populate the cache")
	assert.Equal(t, "payload", v)
}

func TestStoreFetchErrorNotCached(t *testing.T) {
	store := newTestStore(time.Minute)

	_, err := store.GetOrFetch(context.Background(), CategoryPrice, "BAD", func(ctx context.Context) (interface{}, error) {
		return nil, assert.AnError
	})
	require.Error(t, err)

	_, ok := store.Get(CategoryPrice, "BAD")
	assert.False(t, ok, "failed fetches must not populate the cache")
}
