// Package metacache provides a sharded, bounded cache for filesystem
// metadata snapshots. Entries expire by TTL (age since insertion) and TTI
// (age since last access), each shard holds at most its quota of entries,
// and the cache as a whole stays under an approximate memory budget.
package metacache

import (
	"container/list"
	"io/fs"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
)

const (
	// DefaultMaxCapacity is the total entry budget across all shards.
	DefaultMaxCapacity = 4096
	// DefaultNumShards partitions the key space.
	DefaultNumShards = 16
	// DefaultTTL bounds entry age since insertion.
	DefaultTTL = 30 * time.Second
	// DefaultTTI bounds entry idle time since last access.
	DefaultTTI = 15 * time.Second
	// DefaultMaxMemoryMB bounds approximate aggregate memory usage.
	DefaultMaxMemoryMB = 64

	// entryOverhead approximates the fixed per-entry cost: the entry
	// struct, its list element and the map bucket slot.
	entryOverhead = 160

	// sweepProbeLimit caps how many tail entries an insert-triggered
	// expiry sweep examines per shard.
	sweepProbeLimit = 8
)

// Snapshot is the cached metadata for one filesystem path.
type Snapshot struct {
	Size    int64
	ModTime time.Time
	Mode    fs.FileMode
}

// Config sizes the cache. Zero values fall back to the defaults above.
type Config struct {
	MaxCapacity int
	TTL         time.Duration
	TTI         time.Duration
	MaxMemoryMB int
	EnableStats bool
	NumShards   int
}

func (c Config) withDefaults() Config {
	if c.MaxCapacity <= 0 {
		c.MaxCapacity = DefaultMaxCapacity
	}
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.TTI <= 0 {
		c.TTI = DefaultTTI
	}
	if c.MaxMemoryMB <= 0 {
		c.MaxMemoryMB = DefaultMaxMemoryMB
	}
	if c.NumShards <= 0 {
		c.NumShards = DefaultNumShards
	}
	return c
}

// Stats holds hit/miss/eviction counters. Counters are collected only when
// Config.EnableStats is set; otherwise all fields stay zero.
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	Expirations int64
}

type entry struct {
	key        string
	snap       Snapshot
	insertedAt time.Time
	lastAccess time.Time
	bytes      int64
}

type shard struct {
	mu    sync.Mutex
	items map[string]*list.Element
	lru   *list.List // front = most recently used
	quota int
}

// Cache is a sharded metadata cache. All methods are safe for concurrent
// use; operations on different shards never contend.
type Cache struct {
	cfg       Config
	shards    []*shard
	memBytes  atomic.Int64
	memBudget int64

	hits        atomic.Int64
	misses      atomic.Int64
	evictions   atomic.Int64
	expirations atomic.Int64
}

// New creates a cache from cfg, applying defaults for zero fields.
func New(cfg Config) *Cache {
	cfg = cfg.withDefaults()
	quota := cfg.MaxCapacity / cfg.NumShards
	if quota < 1 {
		quota = 1
	}
	shards := make([]*shard, cfg.NumShards)
	for i := range shards {
		shards[i] = &shard{
			items: make(map[string]*list.Element),
			lru:   list.New(),
			quota: quota,
		}
	}
	return &Cache{
		cfg:       cfg,
		shards:    shards,
		memBudget: int64(cfg.MaxMemoryMB) << 20,
	}
}

// Canonical normalizes a path into the cache's key form. Symlinks are not
// resolved, so a linked directory caches under its visible path.
func Canonical(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return abs
}

func (c *Cache) shardFor(key string) *shard {
	return c.shards[xxhash.Sum64String(key)%uint64(len(c.shards))]
}

// Get returns the snapshot for path if present and unexpired. Expired
// entries are purged and reported as absent, never served stale.
func (c *Cache) Get(path string) (Snapshot, bool) {
	key := Canonical(path)
	s := c.shardFor(key)
	now := time.Now()

	s.mu.Lock()
	el, ok := s.items[key]
	if !ok {
		s.mu.Unlock()
		if c.cfg.EnableStats {
			c.misses.Add(1)
		}
		return Snapshot{}, false
	}
	e := el.Value.(*entry)
	if c.expired(e, now) {
		c.removeLocked(s, el)
		s.mu.Unlock()
		if c.cfg.EnableStats {
			c.expirations.Add(1)
			c.misses.Add(1)
		}
		return Snapshot{}, false
	}
	e.lastAccess = now
	s.lru.MoveToFront(el)
	snap := e.snap
	s.mu.Unlock()

	if c.cfg.EnableStats {
		c.hits.Add(1)
	}
	return snap, true
}

// Insert stores a snapshot for path, then enforces the shard quota and the
// aggregate memory budget, evicting least-recently-used entries first.
func (c *Cache) Insert(path string, snap Snapshot) {
	key := Canonical(path)
	s := c.shardFor(key)
	now := time.Now()
	size := int64(entryOverhead + len(key))

	s.mu.Lock()
	if el, ok := s.items[key]; ok {
		e := el.Value.(*entry)
		c.memBytes.Add(size - e.bytes)
		e.snap = snap
		e.insertedAt = now
		e.lastAccess = now
		e.bytes = size
		s.lru.MoveToFront(el)
	} else {
		e := &entry{key: key, snap: snap, insertedAt: now, lastAccess: now, bytes: size}
		s.items[key] = s.lru.PushFront(e)
		c.memBytes.Add(size)
	}

	c.sweepExpiredLocked(s, now)
	for s.lru.Len() > s.quota {
		c.removeLocked(s, s.lru.Back())
		if c.cfg.EnableStats {
			c.evictions.Add(1)
		}
	}
	s.mu.Unlock()

	c.enforceMemoryBudget()
}

// Invalidate drops any entry for path.
func (c *Cache) Invalidate(path string) {
	key := Canonical(path)
	s := c.shardFor(key)
	s.mu.Lock()
	if el, ok := s.items[key]; ok {
		c.removeLocked(s, el)
	}
	s.mu.Unlock()
}

// Len reports the number of live entries across all shards.
func (c *Cache) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.Lock()
		n += s.lru.Len()
		s.mu.Unlock()
	}
	return n
}

// Stats returns a snapshot of the counters. All zero unless EnableStats.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Evictions:   c.evictions.Load(),
		Expirations: c.expirations.Load(),
	}
}

// MemoryBytes reports the approximate aggregate memory usage.
func (c *Cache) MemoryBytes() int64 {
	return c.memBytes.Load()
}

// StartSweeper runs a periodic expiry sweep over all shards until the
// returned stop function is called. The cache works without it; expiry is
// otherwise lazy on Get and opportunistic on Insert.
func (c *Cache) StartSweeper(interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = DefaultTTI
	}
	done := make(chan struct{})
	var once sync.Once
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case now := <-t.C:
				for _, s := range c.shards {
					s.mu.Lock()
					c.sweepAllExpiredLocked(s, now)
					s.mu.Unlock()
				}
			case <-done:
				return
			}
		}
	}()
	return func() { once.Do(func() { close(done) }) }
}

func (c *Cache) expired(e *entry, now time.Time) bool {
	return now.Sub(e.insertedAt) >= c.cfg.TTL || now.Sub(e.lastAccess) >= c.cfg.TTI
}

// removeLocked unlinks el from its shard. Caller holds s.mu.
func (c *Cache) removeLocked(s *shard, el *list.Element) {
	e := el.Value.(*entry)
	s.lru.Remove(el)
	delete(s.items, e.key)
	c.memBytes.Add(-e.bytes)
}

// sweepExpiredLocked probes a bounded number of LRU-tail entries for
// expiry. Caller holds s.mu.
func (c *Cache) sweepExpiredLocked(s *shard, now time.Time) {
	el := s.lru.Back()
	for i := 0; i < sweepProbeLimit && el != nil; i++ {
		prev := el.Prev()
		if e := el.Value.(*entry); c.expired(e, now) {
			c.removeLocked(s, el)
			if c.cfg.EnableStats {
				c.expirations.Add(1)
			}
		}
		el = prev
	}
}

// sweepAllExpiredLocked removes every expired entry. Caller holds s.mu.
func (c *Cache) sweepAllExpiredLocked(s *shard, now time.Time) {
	for el := s.lru.Back(); el != nil; {
		prev := el.Prev()
		if e := el.Value.(*entry); c.expired(e, now) {
			c.removeLocked(s, el)
			if c.cfg.EnableStats {
				c.expirations.Add(1)
			}
		}
		el = prev
	}
}

// enforceMemoryBudget evicts the least-recently-accessed tail entry across
// shards until aggregate usage drops under the budget. Shards are locked
// one at a time, so unrelated lookups keep making progress.
func (c *Cache) enforceMemoryBudget() {
	for c.memBytes.Load() > c.memBudget {
		var victim *shard
		var oldest time.Time
		for _, s := range c.shards {
			s.mu.Lock()
			if el := s.lru.Back(); el != nil {
				if la := el.Value.(*entry).lastAccess; victim == nil || la.Before(oldest) {
					victim = s
					oldest = la
				}
			}
			s.mu.Unlock()
		}
		if victim == nil {
			return
		}
		victim.mu.Lock()
		if el := victim.lru.Back(); el != nil {
			c.removeLocked(victim, el)
			if c.cfg.EnableStats {
				c.evictions.Add(1)
			}
		}
		victim.mu.Unlock()
	}
}
