package usecase

import (
	"context"

	"pos-provisioning/internal/domain/model"
)

// Provisioner is what background workers and HTTP handlers need from the
// provisioning use case.
type Provisioner interface {
	ProvisionFromPaidLandingSubscription(ctx context.Context, landingID, paymentID string) (*model.ProvisionResult, error)
}
