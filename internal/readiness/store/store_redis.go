package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"mirathi/internal/readiness/metrics"
	"mirathi/internal/readiness/models"
	"mirathi/internal/sentinel"
	"mirathi/pkg/domain"
	"mirathi/pkg/platform/circuit"
)

const (
	redisAssessmentKeyPrefix = "readiness:assessment:"
	redisEstateKeyPrefix     = "readiness:estate:"
)

// RedisCache keeps assessment snapshots in Redis with TTL-based eviction.
// It is a read-through accelerator in front of the Postgres store: a miss
// or a decode failure is never fatal, callers fall back to the database.
// The estate key holds a pointer to the assessment key, so both lookup
// paths land on one cached document.
//
// A circuit breaker guards the round trips: while Redis is consecutively
// failing, reads short-circuit to a miss and writes are skipped, so a
// cache outage costs one database read instead of a Redis timeout per
// request. Invalidate always attempts the delete; dropping an invalidation
// silently is what leaves stale snapshots behind.
type RedisCache struct {
	client   *redis.Client
	cacheTTL time.Duration
	metrics  *metrics.Metrics
	breaker  *circuit.Breaker
}

// NewRedisCache constructs a Redis-backed assessment snapshot cache.
// Usage: pass a configured Redis client; metrics may be nil.
func NewRedisCache(client *redis.Client, cacheTTL time.Duration, metrics *metrics.Metrics) *RedisCache {
	return &RedisCache{
		client:   client,
		cacheTTL: cacheTTL,
		metrics:  metrics,
		breaker:  circuit.New("readiness-snapshot-cache"),
	}
}

// Find loads a cached assessment snapshot by ID.
//
// Errors: returns sentinel.ErrNotFound on cache miss; wraps Redis or decode
// failures.
func (c *RedisCache) Find(ctx context.Context, assessmentID domain.AssessmentID) (*models.ReadinessAssessment, error) {
	if c.breaker.IsOpen() {
		c.recordMiss()
		return nil, sentinel.ErrNotFound
	}
	data, err := c.client.Get(ctx, assessmentKey(assessmentID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.breaker.RecordSuccess()
			c.recordMiss()
			return nil, sentinel.ErrNotFound
		}
		c.breaker.RecordFailure()
		return nil, fmt.Errorf("find assessment cache: %w", err)
	}
	c.breaker.RecordSuccess()

	assessment, err := decodeAssessment(data)
	if err != nil {
		return nil, err
	}
	c.recordHit()
	return assessment, nil
}

// FindByEstate loads a cached assessment snapshot through the estate pointer key.
//
// Errors: returns sentinel.ErrNotFound when either key is missing; wraps
// Redis or decode failures.
func (c *RedisCache) FindByEstate(ctx context.Context, estateID domain.EstateID) (*models.ReadinessAssessment, error) {
	if c.breaker.IsOpen() {
		c.recordMiss()
		return nil, sentinel.ErrNotFound
	}
	raw, err := c.client.Get(ctx, estateKey(estateID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.breaker.RecordSuccess()
			c.recordMiss()
			return nil, sentinel.ErrNotFound
		}
		c.breaker.RecordFailure()
		return nil, fmt.Errorf("find estate cache pointer: %w", err)
	}
	c.breaker.RecordSuccess()
	assessmentID, err := domain.ParseAssessmentID(raw)
	if err != nil {
		return nil, fmt.Errorf("decode estate cache pointer: %w", err)
	}
	return c.Find(ctx, assessmentID)
}

// Save writes an assessment snapshot and its estate pointer with TTL eviction.
func (c *RedisCache) Save(ctx context.Context, assessment *models.ReadinessAssessment) error {
	if assessment == nil {
		return fmt.Errorf("assessment is required")
	}
	if c.breaker.IsOpen() {
		return nil
	}
	payload, err := json.Marshal(assessment.ToState())
	if err != nil {
		return fmt.Errorf("encode assessment cache: %w", err)
	}
	if err := c.client.Set(ctx, assessmentKey(assessment.ID), payload, c.cacheTTL).Err(); err != nil {
		c.breaker.RecordFailure()
		return fmt.Errorf("save assessment cache: %w", err)
	}
	if err := c.client.Set(ctx, estateKey(assessment.EstateID), assessment.ID.String(), c.cacheTTL).Err(); err != nil {
		c.breaker.RecordFailure()
		return fmt.Errorf("save estate cache pointer: %w", err)
	}
	c.breaker.RecordSuccess()
	return nil
}

// Invalidate drops the snapshot and its estate pointer.
func (c *RedisCache) Invalidate(ctx context.Context, assessmentID domain.AssessmentID, estateID domain.EstateID) error {
	if err := c.client.Del(ctx, assessmentKey(assessmentID), estateKey(estateID)).Err(); err != nil {
		c.breaker.RecordFailure()
		return fmt.Errorf("invalidate assessment cache: %w", err)
	}
	c.breaker.RecordSuccess()
	return nil
}

func (c *RedisCache) recordHit() {
	if c.metrics == nil {
		return
	}
	c.metrics.IncrementCacheHits()
}

func (c *RedisCache) recordMiss() {
	if c.metrics == nil {
		return
	}
	c.metrics.IncrementCacheMisses()
}

func assessmentKey(assessmentID domain.AssessmentID) string {
	return redisAssessmentKeyPrefix + assessmentID.String()
}

func estateKey(estateID domain.EstateID) string {
	return redisEstateKeyPrefix + estateID.String()
}
