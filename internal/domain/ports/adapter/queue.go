package adapter

import "context"

// ProvisioningJob identifies one provisioning attempt. LandingID and PaymentID
// are the idempotency keys; re-running a job with the same pair is safe.
type ProvisioningJob struct {
	ID        string
	LandingID string
	PaymentID string
}

// ProvisioningQueue hands provisioning work to the asynchronous job runner.
type ProvisioningQueue interface {
	Enqueue(ctx context.Context, job ProvisioningJob) error
}
