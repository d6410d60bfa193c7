package memory

import (
	"context"
	"sync"
	"time"

	"github.com/fastygo/taskbot/domain"
	"github.com/fastygo/taskbot/repository"
)

type deliveryKey struct {
	key    domain.JobKey
	fireAt int64
}

// DeliveryLedger remembers claimed reminder instants until ttl elapses.
type DeliveryLedger struct {
	mu      sync.Mutex
	ttl     time.Duration
	claimed map[deliveryKey]time.Time
	now     func() time.Time
}

var _ repository.DeliveryLedger = (*DeliveryLedger)(nil)

func NewDeliveryLedger(ttl time.Duration) *DeliveryLedger {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &DeliveryLedger{
		ttl:     ttl,
		claimed: make(map[deliveryKey]time.Time),
		now:     time.Now,
	}
}

func (l *DeliveryLedger) Claim(_ context.Context, key domain.JobKey, fireAt time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, expires := range l.claimed {
		if now.After(expires) {
			delete(l.claimed, k)
		}
	}

	k := deliveryKey{key: key, fireAt: fireAt.UnixNano()}
	if _, ok := l.claimed[k]; ok {
		return false, nil
	}
	l.claimed[k] = now.Add(l.ttl)
	return true, nil
}
