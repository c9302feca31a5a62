package repository

import (
	"context"

	"pos-provisioning/internal/domain/model"
)

// -----------------------------
// Stores & assignments
// -----------------------------

type StoreRepository interface {
	Save(ctx context.Context, tx Tx, s *model.Store) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Store, error)
	// ListByTenant returns stores ordered by creation time (oldest first).
	ListByTenant(ctx context.Context, tx Tx, tenantID string) ([]*model.Store, error)
}

type StoreAssignmentRepository interface {
	// Upsert is keyed by (store_id, user_id).
	Upsert(ctx context.Context, tx Tx, a *model.StoreAssignment) error
	Find(ctx context.Context, tx Tx, storeID, userID string) (*model.StoreAssignment, error)
	// FindPrimaryByUser returns ErrNotFound when the user has no primary assignment.
	FindPrimaryByUser(ctx context.Context, tx Tx, userID string) (*model.StoreAssignment, error)
}
