package redis

import (
	"context"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/taskbot/domain"
	"github.com/fastygo/taskbot/repository"
)

type deliveryLedger struct {
	client *redislib.Client
	prefix string
	ttl    time.Duration
}

// NewDeliveryLedger creates a Redis-backed ledger of delivered reminder instants.
func NewDeliveryLedger(client *redislib.Client, ttl time.Duration) repository.DeliveryLedger {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &deliveryLedger{
		client: client,
		prefix: "reminder:delivered:",
		ttl:    ttl,
	}
}

func (r *deliveryLedger) Claim(ctx context.Context, key domain.JobKey, fireAt time.Time) (bool, error) {
	return r.client.SetNX(ctx, r.key(key, fireAt), time.Now().UTC().Format(time.RFC3339), r.ttl).Result()
}

func (r *deliveryLedger) key(key domain.JobKey, fireAt time.Time) string {
	return fmt.Sprintf("%s%s:%d", r.prefix, key, fireAt.Unix())
}
