package model

import (
	"strings"
	"time"

	"pos-provisioning/internal/domain"

	"github.com/google/uuid"
)

// User is a human login identity. Email is unique across the platform and is
// the natural key used by provisioning to find an existing user.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewUser(id, name, email, passwordHash string) (*User, error) {
	if id == "" {
		id = uuid.NewString()
	}
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	if name == "" || email == "" || !strings.Contains(email, "@") {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	u := &User{
		ID:           id,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return u, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }
