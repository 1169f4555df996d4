package core

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/huangsam/mergecheck/internal/contract"
	"github.com/huangsam/mergecheck/internal/logger"
	"github.com/huangsam/mergecheck/schema"
)

// currentCacheVersion defines the version of the cache schema
const currentCacheVersion = 1

// ResultCache memoizes cacheable check results keyed by (fingerprint, check id).
// A memory tier serves repeated lookups in one process; the optional store
// shares entries across processes.
//
// The memory tier is sized for a single run, such as one EvaluateMany batch.
// Entries for superseded fingerprints are never evicted, and expired entries
// are only dropped when looked up, so long-lived callers should create a new
// ResultCache per run.
type ResultCache struct {
	memory sync.Map // cacheKey -> schema.CacheEntry
	store  contract.CacheStore
	ttl    time.Duration
	now    func() time.Time
	log    *logger.Logger
}

// NewResultCache returns a cache backed by store, which may be nil.
// Entries older than ttl are ignored.
func NewResultCache(store contract.CacheStore, ttl time.Duration, log *logger.Logger) *ResultCache {
	if ttl <= 0 {
		ttl = contract.DefaultCacheTTL
	}
	if log == nil {
		log = logger.Discard()
	}
	return &ResultCache{store: store, ttl: ttl, now: time.Now, log: log}
}

func cacheKey(fingerprint, checkID string) string {
	return fingerprint + ":" + checkID
}

// Lookup returns the cached result, if a fresh one exists.
func (c *ResultCache) Lookup(fingerprint, checkID string) (schema.CheckResult, bool) {
	key := cacheKey(fingerprint, checkID)

	if v, ok := c.memory.Load(key); ok {
		entry := v.(schema.CacheEntry)
		if c.fresh(entry.ComputedAt) {
			return entry.Result, true
		}
		c.memory.CompareAndDelete(key, v)
	}

	if c.store == nil {
		return schema.CheckResult{}, false
	}
	entry := c.checkCacheHit(key)
	if entry == nil || entry.Fingerprint != fingerprint || entry.CheckID != checkID {
		return schema.CheckResult{}, false
	}
	c.memory.Store(key, *entry)
	return entry.Result, true
}

// Store records a result. Concurrent stores of the same key are last-writer-wins.
func (c *ResultCache) Store(fingerprint, checkID string, res schema.CheckResult) {
	key := cacheKey(fingerprint, checkID)
	entry := schema.CacheEntry{
		Fingerprint: fingerprint,
		CheckID:     checkID,
		Result:      res,
		ComputedAt:  c.now(),
	}
	c.memory.Store(key, entry)

	if c.store == nil {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		c.log.Warn("cache encode failed", "check", checkID, "error", err)
		return
	}
	if err := c.store.Set(key, data, currentCacheVersion, entry.ComputedAt.Unix()); err != nil {
		c.log.Warn("cache write failed", "check", checkID, "error", err)
	}
}

// checkCacheHit attempts to retrieve and validate a stored entry
func (c *ResultCache) checkCacheHit(key string) *schema.CacheEntry {
	data, version, ts, err := c.store.Get(key)
	if err != nil {
		return nil // Cache miss
	}

	// Validate version and staleness
	if version != currentCacheVersion || !c.fresh(time.Unix(ts, 0)) {
		return nil
	}

	var entry schema.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.log.Warn("cache decode failed", "key", key, "error", err)
		return nil
	}
	if !entry.Result.Status.Valid() {
		return nil
	}
	return &entry
}

func (c *ResultCache) fresh(computedAt time.Time) bool {
	return c.now().Sub(computedAt) <= c.ttl
}
