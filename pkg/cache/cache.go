// Package cache provides the shared TTL+LRU response caches used by the LLM
// gateway and the synthesis/indicator stages. Caching is opportunistic: a
// miss under concurrency may cause duplicate upstream calls, which is
// acceptable for idempotent generations.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache is a size-bounded cache with per-entry TTL.
type Cache[V any] struct {
	lru *expirable.LRU[string, V]
}

// New creates a cache evicting least-recently-used entries past size and
// expiring entries after ttl.
func New[V any](size int, ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		lru: expirable.NewLRU[string, V](size, nil, ttl),
	}
}

func (c *Cache[V]) Get(key string) (V, bool) {
	return c.lru.Get(key)
}

func (c *Cache[V]) Add(key string, value V) {
	c.lru.Add(key, value)
}

func (c *Cache[V]) Len() int {
	return c.lru.Len()
}

func (c *Cache[V]) Purge() {
	c.lru.Purge()
}

// Key derives a deterministic cache key from a prefix and a payload.
// The payload is canonicalized through encoding/json (struct field order is
// fixed, map keys are sorted) and hashed; the first 16 hex characters are
// kept, matching the gateway's key contract.
func Key(prefix string, payload any) string {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte(fmt.Sprintf("%v", payload))
	}
	sum := sha256.Sum256(append([]byte(prefix), data...))
	return hex.EncodeToString(sum[:])[:16]
}

// FullKey is Key without truncation, used where key collisions must be
// negligible (profile-keyed synthesis cache).
func FullKey(prefix string, payload any) string {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte(fmt.Sprintf("%v", payload))
	}
	sum := sha256.Sum256(append([]byte(prefix), data...))
	return hex.EncodeToString(sum[:])
}
