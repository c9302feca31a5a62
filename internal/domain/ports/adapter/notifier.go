package adapter

import "context"

// WelcomeMessage carries what a newly created owner needs to sign in.
type WelcomeMessage struct {
	Name              string
	Email             string
	TemporaryPassword string
	TenantName        string
	PlanName          string
}

// WelcomeNotifier is the hex port for the mail subsystem. Delivery is
// fire-and-forget from the caller's point of view.
type WelcomeNotifier interface {
	SendWelcome(ctx context.Context, msg WelcomeMessage) error
}
