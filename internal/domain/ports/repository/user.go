package repository

import (
	"context"

	"pos-provisioning/internal/domain/model"
)

// -----------------------------
// Users
// -----------------------------

type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	// FindByEmail matches on the normalized (lower-cased) email.
	FindByEmail(ctx context.Context, tx Tx, email string) (*model.User, error)
}
