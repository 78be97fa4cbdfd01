package scorer

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/flare-risk-server/internal/domain"
)

const (
	cacheKeyPrefix       = "flare:verdict:"
	defaultMemoryEntries = 4096
	defaultMemoryTTL     = 15 * time.Minute
)

// CachedVerdict is a verdict stored in Redis with metadata.
type CachedVerdict struct {
	FlareLikely bool      `json:"flare_likely"`
	CachedAt    time.Time `json:"cached_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// CacheStats counts lookups per tier.
type CacheStats struct {
	MemoryHits  int64 `json:"memory_hits"`
	RedisHits   int64 `json:"redis_hits"`
	Misses      int64 `json:"misses"`
	ScoreErrors int64 `json:"score_errors"`
}

type memoryEntry struct {
	flareLikely bool
	expiry      time.Time
}

// CachedScorer memoises verdicts of an underlying scorer in two tiers: an
// in-process LRU (hot) and, when configured, Redis (shared). Cache failures
// never fail a score; they fall through to the underlying scorer.
type CachedScorer struct {
	next      domain.RiskScorer
	memory    *lru.Cache
	memoryTTL time.Duration
	redis     *redis.Client
	ttl       time.Duration
	logger    *logrus.Logger

	memoryHits  atomic.Int64
	redisHits   atomic.Int64
	misses      atomic.Int64
	scoreErrors atomic.Int64
}

// NewCachedScorer wraps next. Redis is used only when config.RedisURL is set;
// an unreachable Redis is an error.
func NewCachedScorer(next domain.RiskScorer, config domain.CacheConfig, ttl time.Duration, logger *logrus.Logger) (*CachedScorer, error) {
	if config.MemoryEntries <= 0 {
		config.MemoryEntries = defaultMemoryEntries
	}
	if config.MemoryTTL <= 0 {
		config.MemoryTTL = defaultMemoryTTL
	}
	if ttl <= 0 {
		ttl = config.DefaultTTL
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	memory, err := lru.New(config.MemoryEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}

	c := &CachedScorer{
		next:      next,
		memory:    memory,
		memoryTTL: config.MemoryTTL,
		ttl:       ttl,
		logger:    logger,
	}

	if config.RedisURL == "" {
		return c, nil
	}

	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	if config.PoolTimeout > 0 {
		opts.PoolTimeout = config.PoolTimeout
	}
	if config.MaxRetries > 0 {
		opts.MaxRetries = config.MaxRetries
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	c.redis = client
	return c, nil
}

// Score returns a cached verdict or asks the underlying scorer.
func (c *CachedScorer) Score(ctx context.Context, vector domain.FeatureVector) (bool, error) {
	key := CacheKey(vector)

	if verdict, found := c.getFromMemory(key); found {
		c.memoryHits.Add(1)
		return verdict, nil
	}
	if verdict, found := c.getFromRedis(ctx, key); found {
		c.redisHits.Add(1)
		c.setInMemory(key, verdict)
		return verdict, nil
	}
	c.misses.Add(1)

	verdict, err := c.next.Score(ctx, vector)
	if err != nil {
		c.scoreErrors.Add(1)
		return false, err
	}

	c.setInMemory(key, verdict)
	if err := c.setInRedis(ctx, key, verdict); err != nil {
		c.logger.WithError(err).Warn("Failed to cache verdict")
	}
	return verdict, nil
}

// Stats returns lookup counters.
func (c *CachedScorer) Stats() CacheStats {
	return CacheStats{
		MemoryHits:  c.memoryHits.Load(),
		RedisHits:   c.redisHits.Load(),
		Misses:      c.misses.Load(),
		ScoreErrors: c.scoreErrors.Load(),
	}
}

func (c *CachedScorer) getFromMemory(key string) (bool, bool) {
	value, ok := c.memory.Get(key)
	if !ok {
		return false, false
	}
	if entry, ok := value.(memoryEntry); ok && time.Now().Before(entry.expiry) {
		return entry.flareLikely, true
	}
	c.memory.Remove(key)
	return false, false
}

func (c *CachedScorer) setInMemory(key string, verdict bool) {
	c.memory.Add(key, memoryEntry{
		flareLikely: verdict,
		expiry:      time.Now().Add(c.memoryTTL),
	})
}

func (c *CachedScorer) getFromRedis(ctx context.Context, key string) (bool, bool) {
	if c.redis == nil {
		return false, false
	}

	val, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, false
	}
	if err != nil {
		c.logger.WithError(err).Debug("Verdict cache lookup failed")
		return false, false
	}

	var cached CachedVerdict
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		c.redis.Del(ctx, key)
		return false, false
	}
	if time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, key)
		return false, false
	}
	return cached.FlareLikely, true
}

func (c *CachedScorer) setInRedis(ctx context.Context, key string, verdict bool) error {
	if c.redis == nil {
		return nil
	}

	now := time.Now()
	data, err := json.Marshal(CachedVerdict{
		FlareLikely: verdict,
		CachedAt:    now,
		ExpiresAt:   now.Add(c.ttl),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal cached verdict: %w", err)
	}
	return c.redis.Set(ctx, key, data, c.ttl).Err()
}

// Close releases the Redis connection.
func (c *CachedScorer) Close() error {
	c.memory.Purge()
	if c.redis == nil {
		return nil
	}
	return c.redis.Close()
}

// CacheKey derives the cache key for vector.
func CacheKey(vector domain.FeatureVector) string {
	h := sha256.New()
	var buf [8]byte
	for _, v := range vector {
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}
	return fmt.Sprintf("%s%x", cacheKeyPrefix, h.Sum(nil))
}
