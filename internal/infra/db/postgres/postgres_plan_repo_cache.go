package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"pos-provisioning/internal/domain/model"
	"pos-provisioning/internal/domain/ports/repository"
	"pos-provisioning/internal/infra/metrics"
	red "pos-provisioning/internal/infra/redis"
)

var _ repository.PlanRepository = (*planRepoCacheDecorator)(nil)

const planListKey = "plans:all"

func planKey(id string) string         { return fmt.Sprintf("plan:%s", id) }
func planSlugKey(slug string) string   { return fmt.Sprintf("plan_slug:%s", slug) }
func planFeaturesKey(id string) string { return fmt.Sprintf("plan_features:%s", id) }

// planRepoCacheDecorator is a read-through cache in front of the plan catalog.
// Writes invalidate every key that may hold the plan.
type planRepoCacheDecorator struct {
	inner repository.PlanRepository
	cache red.RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewPlanRepoCacheDecorator(inner repository.PlanRepository, cache red.RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.PlanRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &planRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl, log: logger}
}

// cached loads key into dst. It reports false on miss, on a Redis error and on
// a value that no longer decodes.
func (d *planRepoCacheDecorator) cached(ctx context.Context, name, key string, dst any) bool {
	val, err := d.cache.Get(ctx, key)
	if err == nil && json.Unmarshal([]byte(val), dst) == nil {
		metrics.IncCacheRequest(name, "hit")
		return true
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		d.log.Warn().Err(err).Str("key", key).Msg("plan cache read failed")
	}
	metrics.IncCacheRequest(name, "miss")
	return false
}

func (d *planRepoCacheDecorator) store(ctx context.Context, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := d.cache.Set(ctx, key, b, d.ttl); err != nil {
		d.log.Warn().Err(err).Str("key", key).Msg("plan cache write failed")
	}
}

func (d *planRepoCacheDecorator) invalidate(ctx context.Context, keys ...string) {
	if err := d.cache.Del(ctx, keys...); err != nil {
		d.log.Warn().Err(err).Strs("keys", keys).Msg("plan cache invalidation failed")
	}
}

func (d *planRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	var plan model.Plan
	if d.cached(ctx, "plan", planKey(id), &plan) {
		return &plan, nil
	}
	p, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	d.store(ctx, planKey(id), p)
	return p, nil
}

func (d *planRepoCacheDecorator) FindBySlug(ctx context.Context, tx repository.Tx, slug string) (*model.Plan, error) {
	var plan model.Plan
	if d.cached(ctx, "plan", planSlugKey(slug), &plan) {
		return &plan, nil
	}
	p, err := d.inner.FindBySlug(ctx, tx, slug)
	if err != nil {
		return nil, err
	}
	d.store(ctx, planSlugKey(slug), p)
	return p, nil
}

func (d *planRepoCacheDecorator) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	var plans []*model.Plan
	if d.cached(ctx, "plan_list", planListKey, &plans) {
		return plans, nil
	}
	plans, err := d.inner.ListAll(ctx, tx)
	if err != nil {
		return nil, err
	}
	if len(plans) > 0 {
		d.store(ctx, planListKey, plans)
	}
	return plans, nil
}

func (d *planRepoCacheDecorator) ListFeatures(ctx context.Context, tx repository.Tx, planID string) ([]model.PlanFeature, error) {
	var features []model.PlanFeature
	if d.cached(ctx, "plan_features", planFeaturesKey(planID), &features) {
		return features, nil
	}
	features, err := d.inner.ListFeatures(ctx, tx, planID)
	if err != nil {
		return nil, err
	}
	d.store(ctx, planFeaturesKey(planID), features)
	return features, nil
}

// For write operations, we must invalidate the cache.
func (d *planRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, plan *model.Plan) error {
	if err := d.inner.Save(ctx, tx, plan); err != nil {
		return err
	}
	d.invalidate(ctx, planKey(plan.ID), planSlugKey(plan.Slug), planListKey)
	return nil
}

func (d *planRepoCacheDecorator) SaveFeatures(ctx context.Context, tx repository.Tx, planID string, features []model.PlanFeature) error {
	if err := d.inner.SaveFeatures(ctx, tx, planID, features); err != nil {
		return err
	}
	d.invalidate(ctx, planFeaturesKey(planID))
	return nil
}
