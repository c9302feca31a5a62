package usecase

import (
	"context"
	"errors"
	"fmt"

	"pos-provisioning/internal/domain"
	"pos-provisioning/internal/domain/model"
	"pos-provisioning/internal/domain/ports/repository"
)

// PlanUseCase is the read side of the plan catalog plus the admin/seed writes.
type PlanUseCase struct {
	repo repository.PlanRepository
}

// NewPlanUseCase constructs a PlanUseCase.
func NewPlanUseCase(repo repository.PlanRepository) *PlanUseCase {
	return &PlanUseCase{repo: repo}
}

// Create saves a plan together with its feature table.
func (uc *PlanUseCase) Create(ctx context.Context, plan *model.Plan, features []model.PlanFeature) error {
	if plan == nil {
		return domain.ErrInvalidArgument
	}
	if _, err := uc.repo.FindBySlug(ctx, nil, plan.Slug); err == nil {
		return fmt.Errorf("plan %q: %w", plan.Slug, domain.ErrAlreadyExists)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if err := uc.repo.Save(ctx, nil, plan); err != nil {
		return err
	}
	for i := range features {
		features[i].PlanID = plan.ID
	}
	return uc.repo.SaveFeatures(ctx, nil, plan.ID, features)
}

// Get retrieves a plan by ID.
func (uc *PlanUseCase) Get(ctx context.Context, id string) (*model.Plan, error) {
	return uc.repo.FindByID(ctx, nil, id)
}

// List returns all plans.
func (uc *PlanUseCase) List(ctx context.Context) ([]*model.Plan, error) {
	return uc.repo.ListAll(ctx, nil)
}

// Features returns the feature table of a plan.
func (uc *PlanUseCase) Features(ctx context.Context, planID string) ([]model.PlanFeature, error) {
	return uc.repo.ListFeatures(ctx, nil, planID)
}

// FindActive resolves a plan that can be sold. Missing and inactive plans are
// both reported as ErrPlanNotFound.
func (uc *PlanUseCase) FindActive(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	if id == "" {
		return nil, domain.ErrPlanNotFound
	}
	plan, err := uc.repo.FindByID(ctx, tx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrPlanNotFound
		}
		return nil, err
	}
	if !plan.IsActive {
		return nil, domain.ErrPlanNotFound
	}
	return plan, nil
}
