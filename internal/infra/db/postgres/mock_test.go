//go:build !integration

package postgres

import (
	"context"
	"time"

	"pos-provisioning/internal/domain/model"
	"pos-provisioning/internal/domain/ports/repository"
	red "pos-provisioning/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerPlanRepo mocks the database repository that the Plan decorator wraps.
type mockInnerPlanRepo struct {
	SaveFunc         func(ctx context.Context, tx repository.Tx, plan *model.Plan) error
	FindByIDFunc     func(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error)
	FindBySlugFunc   func(ctx context.Context, tx repository.Tx, slug string) (*model.Plan, error)
	ListAllFunc      func(ctx context.Context, tx repository.Tx) ([]*model.Plan, error)
	ListFeaturesFunc func(ctx context.Context, tx repository.Tx, planID string) ([]model.PlanFeature, error)
	SaveFeaturesFunc func(ctx context.Context, tx repository.Tx, planID string, features []model.PlanFeature) error
}

func (m *mockInnerPlanRepo) Save(ctx context.Context, tx repository.Tx, plan *model.Plan) error {
	return m.SaveFunc(ctx, tx, plan)
}
func (m *mockInnerPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	return m.FindByIDFunc(ctx, tx, id)
}
func (m *mockInnerPlanRepo) FindBySlug(ctx context.Context, tx repository.Tx, slug string) (*model.Plan, error) {
	return m.FindBySlugFunc(ctx, tx, slug)
}
func (m *mockInnerPlanRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	return m.ListAllFunc(ctx, tx)
}
func (m *mockInnerPlanRepo) ListFeatures(ctx context.Context, tx repository.Tx, planID string) ([]model.PlanFeature, error) {
	return m.ListFeaturesFunc(ctx, tx, planID)
}
func (m *mockInnerPlanRepo) SaveFeatures(ctx context.Context, tx repository.Tx, planID string, features []model.PlanFeature) error {
	return m.SaveFeaturesFunc(ctx, tx, planID, features)
}

// mockRedisClient mocks our Redis client wrapper.
type mockRedisClient struct {
	GetFunc    func(ctx context.Context, key string) (string, error)
	SetFunc    func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	SetNXFunc  func(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	DelFunc    func(ctx context.Context, keys ...string) error
	PingFunc   func(ctx context.Context) error
	IncrFunc   func(ctx context.Context, key string) (int64, error)
	ExpireFunc func(ctx context.Context, key string, expiration time.Duration) error
	CloseFunc  func() error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc == nil {
		return nil
	}
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return m.SetNXFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return m.PingFunc(ctx) }
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return m.IncrFunc(ctx, key)
}
func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return m.ExpireFunc(ctx, key, expiration)
}
func (m *mockRedisClient) Close() error { return m.CloseFunc() }
