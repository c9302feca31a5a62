package model

import (
	"strings"
	"time"

	"pos-provisioning/internal/domain"

	"github.com/google/uuid"
)

// Plan is a catalog entry. It is immutable at provisioning time; SortOrder
// (not price) decides whether a plan change is an upgrade or a downgrade.
type Plan struct {
	ID           string
	Slug         string
	Name         string
	Price        int64 // monthly price in minor units
	SortOrder    int
	DurationDays int
	IsActive     bool
	CreatedAt    time.Time
}

func (p *Plan) IsZero() bool { return p == nil || p.ID == "" }

// NewPlan validates and constructs a plan.
func NewPlan(id, slug, name string, price int64, sortOrder, durationDays int) (*Plan, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" || name == "" || price < 0 || durationDays <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if id == "" {
		id = uuid.NewString()
	}
	return &Plan{
		ID:           id,
		Slug:         slug,
		Name:         name,
		Price:        price,
		SortOrder:    sortOrder,
		DurationDays: durationDays,
		IsActive:     true,
		CreatedAt:    time.Now(),
	}, nil
}

// Compare returns -1, 0 or 1 when p ranks below, equal to or above other.
func (p *Plan) Compare(other *Plan) int {
	switch {
	case p.SortOrder < other.SortOrder:
		return -1
	case p.SortOrder > other.SortOrder:
		return 1
	}
	return 0
}

// Feature codes known to the platform.
const (
	FeatureMaxStores              = "MAX_STORES"
	FeatureMaxUsers               = "MAX_USERS"
	FeatureMaxProducts            = "MAX_PRODUCTS"
	FeatureMaxTransactionsPerYear = "MAX_TRANSACTIONS_PER_YEAR"
	FeatureAllowLoyalty           = "ALLOW_LOYALTY"
	FeatureAllowExpenses          = "ALLOW_EXPENSES"
	FeatureAllowReports           = "ALLOW_REPORTS"
)

// PlanFeature is a named capability or numeric limit of a plan.
// A nil LimitValue on a MAX_* feature means unlimited.
type PlanFeature struct {
	PlanID      string
	FeatureCode string
	LimitValue  *int64
	IsEnabled   bool
}

// usageFeatureTypes maps limit codes that are tracked as usage counters.
var usageFeatureTypes = map[string]string{
	FeatureMaxTransactionsPerYear: UsageTransactions,
	FeatureMaxProducts:            UsageProducts,
	FeatureMaxUsers:               UsageUsers,
	FeatureMaxStores:              UsageStores,
}

// UsageFeatureType returns the usage counter name for a feature code, if any.
func UsageFeatureType(featureCode string) (string, bool) {
	ft, ok := usageFeatureTypes[featureCode]
	return ft, ok
}

// FeatureCodeForUsage is the inverse of UsageFeatureType.
func FeatureCodeForUsage(featureType string) (string, bool) {
	for code, ft := range usageFeatureTypes {
		if ft == featureType {
			return code, true
		}
	}
	return "", false
}

// TracksUsage reports whether the feature should produce a usage counter.
func (f PlanFeature) TracksUsage() bool {
	if !f.IsEnabled || f.LimitValue == nil {
		return false
	}
	_, ok := usageFeatureTypes[f.FeatureCode]
	return ok
}

func (f PlanFeature) IsLimit() bool { return strings.HasPrefix(f.FeatureCode, "MAX_") }
