package redis

import (
	"context"
	"fmt"
	"time"
)

// DeliveryGuard remembers gateway event ids so a redelivered webhook is
// acknowledged without being processed twice. The database stays the source
// of truth; the guard only saves work.
type DeliveryGuard struct {
	client RedisClient
	ttl    time.Duration
}

func NewDeliveryGuard(client RedisClient, ttl time.Duration) *DeliveryGuard {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DeliveryGuard{client: client, ttl: ttl}
}

func deliveryKey(eventID string) string { return fmt.Sprintf("webhook:event:%s", eventID) }

// Claim reports true the first time eventID is seen within the TTL.
func (g *DeliveryGuard) Claim(ctx context.Context, eventID string) (bool, error) {
	return g.client.SetNX(ctx, deliveryKey(eventID), time.Now().Unix(), g.ttl)
}

// Release forgets eventID so the gateway's next retry is processed again.
// Callers release when processing failed after a successful Claim.
func (g *DeliveryGuard) Release(ctx context.Context, eventID string) error {
	return g.client.Del(ctx, deliveryKey(eventID))
}
