package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mini-maxit/judge-engine/internal/logger"
	"github.com/mini-maxit/judge-engine/pkg/constants"
	"github.com/mini-maxit/judge-engine/pkg/submission"
)

// CachedStore serves problems and test cases from redis and falls back to the
// wrapped store on a miss or on any cache failure. Submissions are never cached.
type CachedStore struct {
	Store
	logger *zap.SugaredLogger
	client redis.Cmdable
	ttl    time.Duration
}

func NewCachedStore(inner Store, client redis.Cmdable, ttl time.Duration) *CachedStore {
	return &CachedStore{
		Store:  inner,
		logger: logger.NewNamedLogger("store-cache"),
		client: client,
		ttl:    ttl,
	}
}

func (c *CachedStore) LoadProblem(ctx context.Context, id string) (*submission.Problem, error) {
	key := constants.CacheKeyProblem + id

	var problem submission.Problem
	if c.get(ctx, key, &problem) {
		return &problem, nil
	}

	loaded, err := c.Store.LoadProblem(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, loaded)
	return loaded, nil
}

func (c *CachedStore) LoadTestCases(ctx context.Context, problemID string) ([]submission.TestCase, error) {
	key := constants.CacheKeyTestCases + problemID

	var testCases []submission.TestCase
	if c.get(ctx, key, &testCases) {
		return testCases, nil
	}

	loaded, err := c.Store.LoadTestCases(ctx, problemID)
	if err != nil {
		return nil, err
	}
	// An empty set is not cached so newly added cases show up immediately.
	if len(loaded) > 0 {
		c.set(ctx, key, loaded)
	}
	return loaded, nil
}

// Invalidate drops the cached problem and its test cases.
func (c *CachedStore) Invalidate(ctx context.Context, problemID string) error {
	return c.client.Del(ctx, constants.CacheKeyProblem+problemID, constants.CacheKeyTestCases+problemID).Err()
}

func (c *CachedStore) get(ctx context.Context, key string, dst any) bool {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warnf("Cache read failed for %s: %s", key, err)
		}
		return false
	}
	if err := json.Unmarshal([]byte(val), dst); err != nil {
		c.logger.Warnf("Dropping malformed cache entry %s: %s", key, err)
		_ = c.client.Del(ctx, key).Err()
		return false
	}
	return true
}

func (c *CachedStore) set(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warnf("Cannot encode cache entry %s: %s", key, err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warnf("Cache write failed for %s: %s", key, err)
	}
}
