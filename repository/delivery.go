package repository

import (
	"context"
	"time"

	"github.com/fastygo/taskbot/domain"
)

// DeliveryLedger records which reminder instants were already delivered.
type DeliveryLedger interface {
	// Claim returns true exactly once per (key, fireAt) pair.
	Claim(ctx context.Context, key domain.JobKey, fireAt time.Time) (bool, error)
}
