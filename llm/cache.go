package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// promptHash derives the (role, prompt_hash) cache key from the role and the
// exact prompt + state digest sent to the model, so a cache hit is only ever
// returned for byte-identical inputs.
func promptHash(role, prompt, stateDigest string) string {
	h := sha256.New()
	h.Write([]byte(role))
	h.Write([]byte{0})
	h.Write([]byte(prompt))
	h.Write([]byte{0})
	h.Write([]byte(stateDigest))
	return hex.EncodeToString(h.Sum(nil))
}

// Cache stores Decisions keyed by (role, prompt_hash). A cache hit must
// return a byte-identical Decision to what a fresh call would have
// produced — callers populate the cache only with real (non-fallback)
// decisions.
type Cache interface {
	Get(ctx context.Context, key string) (Decision, bool)
	Set(ctx context.Context, key string, decision Decision, ttl time.Duration)
}

// memCache is the zero-configuration fallback cache used when no Redis URL
// is configured.
type memCache struct {
	m sync.Map
}

// NewMemCache constructs an in-process cache with no external dependency.
func NewMemCache() Cache { return &memCache{} }

type memCacheEntry struct {
	decision Decision
	expires  time.Time
}

func (c *memCache) Get(_ context.Context, key string) (Decision, bool) {
	v, ok := c.m.Load(key)
	if !ok {
		return Decision{}, false
	}
	entry := v.(memCacheEntry)
	if !entry.expires.IsZero() && time.Now().After(entry.expires) {
		c.m.Delete(key)
		return Decision{}, false
	}
	return entry.decision, true
}

func (c *memCache) Set(_ context.Context, key string, decision Decision, ttl time.Duration) {
	var expires time.Time
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}
	c.m.Store(key, memCacheEntry{decision: decision, expires: expires})
}

// redisCache is the opt-in distributed cache used when WORKFLOW_REDIS_URL is
// configured, letting multiple engine instances share LLM decision caching.
type redisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache constructs a Cache backed by client, namespacing keys under
// prefix (e.g. "workflow-engine:llm:").
func NewRedisCache(client *redis.Client, prefix string) Cache {
	return &redisCache{client: client, prefix: prefix}
}

func (c *redisCache) Get(ctx context.Context, key string) (Decision, bool) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		return Decision{}, false
	}
	var d Decision
	if err := json.Unmarshal(raw, &d); err != nil {
		return Decision{}, false
	}
	return d, true
}

func (c *redisCache) Set(ctx context.Context, key string, decision Decision, ttl time.Duration) {
	raw, err := json.Marshal(decision)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, c.prefix+key, raw, ttl).Err()
}
