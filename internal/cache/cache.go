package cache

import (
	"context"
	"sync"
	"time"
)

// Store caches rendered list responses. Each collection has a generation
// counter that is part of every key, so bumping it invalidates all of the
// collection's cached pages at once.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte)
	Generation(ctx context.Context, collection string) int64
	Bump(ctx context.Context, collection string)
}

type Cache struct {
	mu   sync.RWMutex
	ttl  time.Duration
	m    map[string]entry
	gens map[string]int64
}

type entry struct {
	val []byte
	exp time.Time
}

func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}

	return &Cache{
		ttl:  ttl,
		m:    make(map[string]entry),
		gens: make(map[string]int64),
	}
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, bool) {
	now := time.Now()
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if now.After(e.exp) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return nil, false
	}

	return e.val, true
}

func (c *Cache) Set(_ context.Context, key string, val []byte) {
	c.mu.Lock()
	c.m[key] = entry{val: val, exp: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *Cache) Generation(_ context.Context, collection string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gens[collection]
}

// Bump advances the generation and drops every stored entry. Old keys
// would never be read again; clearing just frees them early.
func (c *Cache) Bump(_ context.Context, collection string) {
	c.mu.Lock()
	c.gens[collection]++
	c.m = make(map[string]entry)
	c.mu.Unlock()
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (Noop) Set(context.Context, string, []byte)        {}
func (Noop) Generation(context.Context, string) int64   { return 0 }
func (Noop) Bump(context.Context, string)               {}
