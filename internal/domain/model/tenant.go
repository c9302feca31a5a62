package model

import (
	"fmt"
	"strings"
	"time"

	"pos-provisioning/internal/domain"

	"github.com/google/uuid"
)

type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusSuspended TenantStatus = "suspended"
)

// Tenant is the billing/account entity that owns stores and the current subscription.
type Tenant struct {
	ID        string
	Name      string
	Email     string
	Status    TenantStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewTenant(name, email string) (*Tenant, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	if name == "" || email == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Tenant{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		Status:    TenantStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (t *Tenant) IsZero() bool   { return t == nil || t.ID == "" }
func (t *Tenant) IsActive() bool { return t != nil && t.Status == TenantStatusActive }

// DefaultBusinessName is used when the checkout did not carry a business name.
func DefaultBusinessName(ownerName string) string {
	return fmt.Sprintf("%s's Business", strings.TrimSpace(ownerName))
}

// NormalizeEmail is the natural key form of an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
