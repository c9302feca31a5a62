package model

import (
	"strings"
	"time"

	"pos-provisioning/internal/domain"

	"github.com/google/uuid"
)

type StoreStatus string

const (
	StoreStatusActive   StoreStatus = "active"
	StoreStatusInactive StoreStatus = "inactive"
)

// DefaultStoreName is the name of the store created for a tenant that has none.
const DefaultStoreName = "Main Store"

// Store is an operating location owned by exactly one tenant.
type Store struct {
	ID        string
	TenantID  string
	Name      string
	Status    StoreStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewStore(tenantID, name string) (*Store, error) {
	name = strings.TrimSpace(name)
	if tenantID == "" || name == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Store{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Name:      name,
		Status:    StoreStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// StoreAssignment links a user to a store. (StoreID, UserID) is unique and a
// user should have exactly one primary assignment.
type StoreAssignment struct {
	StoreID   string
	UserID    string
	Role      Role
	IsPrimary bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
