package model

// ProvisionResult is the outcome of provisioning a paid checkout. On failure
// Success is false, Err is set and no entity is populated.
type ProvisionResult struct {
	Success            bool
	Tenant             *Tenant
	User               *User
	Store              *Store
	Subscription       *Subscription
	Usage              []*SubscriptionUsage
	Action             ChangeAction
	NewUser            bool
	TemporaryPassword  string // only set when NewUser
	AlreadyProvisioned bool
	Err                error
}

func FailedProvision(err error) *ProvisionResult {
	return &ProvisionResult{Success: false, Err: err}
}
