package repository

import (
	"context"

	"pos-provisioning/internal/domain/model"
)

// PlanRepository is the port for the read-mostly plan catalog.
type PlanRepository interface {
	Save(ctx context.Context, tx Tx, plan *model.Plan) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Plan, error)
	FindBySlug(ctx context.Context, tx Tx, slug string) (*model.Plan, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.Plan, error)
	ListFeatures(ctx context.Context, tx Tx, planID string) ([]model.PlanFeature, error)
	// SaveFeatures replaces the feature table of a plan.
	SaveFeatures(ctx context.Context, tx Tx, planID string, features []model.PlanFeature) error
}
