package plan

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"planpass/internal/logger"
	"planpass/internal/metrics"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "planpass:plan:"

// cachedRepository is a read-through redis cache over plan lookups by id.
// Writes go to the underlying repository and evict the cached entry.
// Cache errors are logged and never fail the call.
type cachedRepository struct {
	Repository
	client redis.Cmdable
	ttl    time.Duration
}

func NewCachedRepository(next Repository, client redis.Cmdable, ttl time.Duration) Repository {
	return &cachedRepository{Repository: next, client: client, ttl: ttl}
}

func cacheKey(id uuid.UUID) string {
	return cacheKeyPrefix + id.String()
}

func (r *cachedRepository) GetByID(ctx context.Context, id uuid.UUID) (*Plan, error) {
	key := cacheKey(id)

	raw, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var p Plan
		if jsonErr := json.Unmarshal(raw, &p); jsonErr == nil {
			metrics.RecordPlanCache("hit")
			return &p, nil
		}
		logger.Warn("discarding undecodable cached plan", "key", key)
	case !errors.Is(err, redis.Nil):
		logger.Warn("plan cache read failed", "key", key, "error", err)
	}
	metrics.RecordPlanCache("miss")

	p, err := r.Repository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(p)
	if err == nil {
		err = r.client.Set(ctx, key, data, r.ttl).Err()
	}
	if err != nil {
		logger.Warn("plan cache write failed", "key", key, "error", err)
	}

	return p, nil
}

func (r *cachedRepository) Update(ctx context.Context, p *Plan) (*Plan, error) {
	updated, err := r.Repository.Update(ctx, p)
	if err != nil {
		return nil, err
	}
	r.evict(ctx, p.ID)
	return updated, nil
}

func (r *cachedRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	if err := r.Repository.Deactivate(ctx, id); err != nil {
		return err
	}
	r.evict(ctx, id)
	return nil
}

func (r *cachedRepository) evict(ctx context.Context, id uuid.UUID) {
	if err := r.client.Del(ctx, cacheKey(id)).Err(); err != nil {
		logger.Warn("plan cache eviction failed", "plan_id", id, "error", err)
	}
}
