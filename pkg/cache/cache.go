package cache

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Category identifies an independently expiring slice of the store.
type Category string

const (
	CategoryPrice       Category = "price"
	CategoryFundamental Category = "fundamental"
	CategoryNews        Category = "news"
)

// Config holds the per-category TTLs.
type Config struct {
	PriceTTL       time.Duration `mapstructure:"price_ttl"`
	FundamentalTTL time.Duration `mapstructure:"fundamental_ttl"`
	NewsTTL        time.Duration `mapstructure:"news_ttl"`
}

// Store is a read-through TTL cache partitioned by category. Each category
// carries its own expiry window; entries are replaced on refresh, never
// mutated in place. Expired entries are purged lazily on lookup and by the
// underlying janitor. There is no size-based eviction.
type Store struct {
	categories map[Category]*gocache.Cache
	group      singleflight.Group
}

// NewStore creates a Store with one backing cache per category.
func NewStore(cfg Config) *Store {
	return &Store{
		categories: map[Category]*gocache.Cache{
			CategoryPrice:       gocache.New(cfg.PriceTTL, 2*cfg.PriceTTL),
			CategoryFundamental: gocache.New(cfg.FundamentalTTL, 2*cfg.FundamentalTTL),
			CategoryNews:        gocache.New(cfg.NewsTTL, 2*cfg.NewsTTL),
		},
	}
}

// Get returns the cached payload for (category, key) iff an unexpired entry
// exists. Cache operations never fail; a miss is the absence path.
func (s *Store) Get(category Category, key string) (interface{}, bool) {
	c, ok := s.categories[category]
	if !ok {
		return nil, false
	}
	return c.Get(key)
}

// Put stores or replaces the entry for (category, key), stamped with the
// category's configured TTL.
func (s *Store) Put(category Category, key string, value interface{}) {
	if c, ok := s.categories[category]; ok {
		c.SetDefault(key, value)
	}
}

// GetOrFetch returns the cached payload or, on a miss, invokes fetch and
// populates the cache. Concurrent callers for the same (category, key)
// collapse onto a single upstream fetch. The fetch runs detached from the
// initiating caller's cancellation (it keeps only the deadline), so a caller
// disconnecting mid-flight does not abort the fetch for the other waiters;
// each waiter stops waiting when its own context ends.
func (s *Store) GetOrFetch(ctx context.Context, category Category, key string, fetch func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	if v, ok := s.Get(category, key); ok {
		return v, nil
	}

	flightKey := fmt.Sprintf("%s:%s", category, key)
	ch := s.group.DoChan(flightKey, func() (interface{}, error) {
		// Re-check under the flight: a concurrent refresh may have landed.
		if v, ok := s.Get(category, key); ok {
			return v, nil
		}
		fetchCtx := context.WithoutCancel(ctx)
		if deadline, ok := ctx.Deadline(); ok {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithDeadline(fetchCtx, deadline)
			defer cancel()
		}
		v, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		s.Put(category, key, v)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

// Flush drops every entry in every category.
func (s *Store) Flush() {
	for _, c := range s.categories {
		c.Flush()
	}
}

// ItemCount reports the number of entries (including not-yet-purged expired
// ones) in a category.
func (s *Store) ItemCount(category Category) int {
	if c, ok := s.categories[category]; ok {
		return c.ItemCount()
	}
	return 0
}
