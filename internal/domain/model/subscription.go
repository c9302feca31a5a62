package model

import (
	"encoding/json"
	"fmt"
	"time"

	"pos-provisioning/internal/domain"

	"github.com/google/uuid"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusInactive SubscriptionStatus = "inactive"
	SubscriptionStatusExpired  SubscriptionStatus = "expired"
)

type BillingCycle string

const (
	BillingMonthly BillingCycle = "monthly"
	BillingYearly  BillingCycle = "yearly"
)

func (c BillingCycle) Valid() bool { return c == BillingMonthly || c == BillingYearly }

// Months is the number of calendar months one cycle covers.
func (c BillingCycle) Months() int {
	if c == BillingYearly {
		return 12
	}
	return 1
}

// PeriodEnd returns the end of a billing period starting at start.
func (c BillingCycle) PeriodEnd(start time.Time) time.Time {
	return start.AddDate(0, c.Months(), 0)
}

// Subscription is the billing state of a tenant (not of a store). A tenant has
// at most one active subscription; plan changes mutate that row in place.
type Subscription struct {
	ID           string
	TenantID     string
	PlanID       string
	Status       SubscriptionStatus
	BillingCycle BillingCycle
	StartsAt     time.Time
	EndsAt       time.Time
	Change       SubscriptionChange
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewSubscription creates an active subscription for a tenant that has none.
func NewSubscription(tenantID string, plan *Plan, cycle BillingCycle, now time.Time) (*Subscription, error) {
	if tenantID == "" || plan.IsZero() || !cycle.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	return &Subscription{
		ID:           uuid.NewString(),
		TenantID:     tenantID,
		PlanID:       plan.ID,
		Status:       SubscriptionStatusActive,
		BillingCycle: cycle,
		StartsAt:     now,
		EndsAt:       cycle.PeriodEnd(now),
		Change:       NewChange(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ApplyPlanChange moves the subscription to plan in place and records change.
func (s *Subscription) ApplyPlanChange(plan *Plan, cycle BillingCycle, change SubscriptionChange, now time.Time) error {
	if plan.IsZero() || !cycle.Valid() {
		return domain.ErrInvalidArgument
	}
	if err := change.Validate(); err != nil {
		return err
	}
	s.PlanID = plan.ID
	s.BillingCycle = cycle
	s.Status = SubscriptionStatusActive
	s.StartsAt = now
	s.EndsAt = cycle.PeriodEnd(now)
	s.Change = change
	s.UpdatedAt = now
	return nil
}

func (s *Subscription) IsActive(now time.Time) bool {
	return s != nil && s.Status == SubscriptionStatusActive && now.Before(s.EndsAt)
}

// ChangeAction classifies how the current plan was reached.
type ChangeAction string

const (
	ActionNew       ChangeAction = "new"
	ActionUpgrade   ChangeAction = "upgrade"
	ActionDowngrade ChangeAction = "downgrade"
	ActionRenewal   ChangeAction = "renewal"
)

// ClassifyPlanChange compares plans by sort order only.
func ClassifyPlanChange(previous, next *Plan) ChangeAction {
	if previous.IsZero() {
		return ActionNew
	}
	if previous.ID == next.ID {
		return ActionRenewal
	}
	switch next.Compare(previous) {
	case 1:
		return ActionUpgrade
	case -1:
		return ActionDowngrade
	}
	return ActionRenewal
}

// UsageSnapshot is the audit copy of one usage counter taken before a plan change.
type UsageSnapshot struct {
	FeatureType      string `json:"feature_type"`
	CurrentUsage     int64  `json:"current_usage"`
	AnnualQuota      int64  `json:"annual_quota"`
	SoftCapTriggered bool   `json:"soft_cap_triggered"`
}

// SubscriptionChange is the typed form of the subscription metadata column.
// Variants: New{}, Upgrade{previous, snapshot}, Downgrade{previous, snapshot},
// Renewal{previous, snapshot}. Build it through the constructors below.
type SubscriptionChange struct {
	Action         ChangeAction
	PreviousPlanID string
	UsageBackup    []UsageSnapshot
}

func NewChange() SubscriptionChange { return SubscriptionChange{Action: ActionNew} }

func UpgradeChange(previousPlanID string, backup []UsageSnapshot) SubscriptionChange {
	return SubscriptionChange{Action: ActionUpgrade, PreviousPlanID: previousPlanID, UsageBackup: backup}
}

func DowngradeChange(previousPlanID string, backup []UsageSnapshot) SubscriptionChange {
	return SubscriptionChange{Action: ActionDowngrade, PreviousPlanID: previousPlanID, UsageBackup: backup}
}

func RenewalChange(previousPlanID string, backup []UsageSnapshot) SubscriptionChange {
	return SubscriptionChange{Action: ActionRenewal, PreviousPlanID: previousPlanID, UsageBackup: backup}
}

// ChangeFor builds the variant matching action.
func ChangeFor(action ChangeAction, previousPlanID string, backup []UsageSnapshot) SubscriptionChange {
	switch action {
	case ActionUpgrade:
		return UpgradeChange(previousPlanID, backup)
	case ActionDowngrade:
		return DowngradeChange(previousPlanID, backup)
	case ActionRenewal:
		return RenewalChange(previousPlanID, backup)
	}
	return NewChange()
}

func (c SubscriptionChange) Validate() error {
	switch c.Action {
	case ActionNew:
		if c.PreviousPlanID != "" || len(c.UsageBackup) > 0 {
			return fmt.Errorf("%w: new subscription carries previous plan data", domain.ErrInvalidArgument)
		}
	case ActionUpgrade, ActionDowngrade, ActionRenewal:
		if c.PreviousPlanID == "" {
			return fmt.Errorf("%w: %s without previous plan", domain.ErrInvalidArgument, c.Action)
		}
	default:
		return fmt.Errorf("%w: unknown action %q", domain.ErrInvalidArgument, c.Action)
	}
	return nil
}

type changeJSON struct {
	ActionType     ChangeAction    `json:"action_type"`
	PreviousPlanID *string         `json:"previous_plan_id,omitempty"`
	UsageBackup    []UsageSnapshot `json:"usage_backup_before_change,omitempty"`
}

func (c SubscriptionChange) MarshalJSON() ([]byte, error) {
	out := changeJSON{ActionType: c.Action, UsageBackup: c.UsageBackup}
	if c.PreviousPlanID != "" {
		prev := c.PreviousPlanID
		out.PreviousPlanID = &prev
	}
	return json.Marshal(out)
}

func (c *SubscriptionChange) UnmarshalJSON(b []byte) error {
	var in changeJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	if in.ActionType == "" {
		in.ActionType = ActionNew
	}
	prev := ""
	if in.PreviousPlanID != nil {
		prev = *in.PreviousPlanID
	}
	decoded := SubscriptionChange{Action: in.ActionType, PreviousPlanID: prev, UsageBackup: in.UsageBackup}
	if err := decoded.Validate(); err != nil {
		return err
	}
	*c = decoded
	return nil
}
