package ports

import (
	"context"
	"errors"
	"time"

	"github.com/danielmoisemontezima/zw-storefront-service/internal/model"
)

var ErrOrderNotFound = errors.New("order not found")

// IOrderRepository updates the externally owned orders table.
type IOrderRepository interface {
	// UpdatePaymentStatus returns false when the row was already in a state
	// that makes the update a no-op.
	UpdatePaymentStatus(ctx context.Context, update OrderPaymentUpdate) (bool, error)
}

type OrderPaymentUpdate struct {
	OrderNumber     string
	PaymentIntentID string
	Status          string
	AmountMinor     int64
	Currency        string
	OccurredAt      time.Time
}

// IEventDeduper remembers which webhook side effects already ran.
type IEventDeduper interface {
	// Claim returns true the first time key is seen within ttl.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release forgets key so a failed side effect can run again on redelivery.
	Release(ctx context.Context, key string) error
}

type IEventPublisher interface {
	Publish(ctx context.Context, event model.PaymentLifecycleEvent) error
}
