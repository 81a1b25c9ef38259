package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/danielmoisemontezima/zw-storefront-service/internal/metrics"
	"github.com/danielmoisemontezima/zw-storefront-service/internal/model"
	"github.com/danielmoisemontezima/zw-storefront-service/internal/ports"
)

func intentEvent(kind model.EventKind, metadata map[string]string) *model.WebhookEvent {
	return &model.WebhookEvent{
		ID:       "evt_9",
		Kind:     kind,
		Provider: "stripe",
		Object: model.GatewayObject{
			ID: "pi_9", PaymentIntentID: "pi_9", Amount: 1500, Currency: "usd", Metadata: metadata,
		},
	}
}

func TestOnPaymentFailed_RecordsFailure(t *testing.T) {
	orders, pub := &fakeOrders{}, &fakePublisher{}
	h := NewPaymentEventHandlers(orders, nil, pub, 0, zap.NewNop(), metrics.New())

	require.NoError(t, h.OnPaymentFailed(context.Background(), intentEvent(model.EventPaymentFailed, map[string]string{"orderNumber": "ORD-9"})))

	require.Len(t, orders.updates, 1)
	assert.Equal(t, model.PaymentStatusFailed, orders.updates[0].Status)
	assert.Equal(t, "ORD-9", orders.updates[0].OrderNumber)
	assert.Equal(t, int64(1500), orders.updates[0].AmountMinor)
	require.Len(t, pub.events, 1)
	assert.Equal(t, LifecyclePaymentFailed, pub.events[0].Type)
}

func TestOnChargeSucceeded_PublishesOnly(t *testing.T) {
	orders, pub := &fakeOrders{}, &fakePublisher{}
	h := NewPaymentEventHandlers(orders, newFakeDeduper(), pub, 0, zap.NewNop(), metrics.New())

	event := &model.WebhookEvent{ID: "evt_c", Kind: model.EventChargeSucceeded, Provider: "stripe",
		Object: model.GatewayObject{ID: "ch_1", PaymentIntentID: "pi_9", Amount: 1500, Currency: "usd"}}
	require.NoError(t, h.OnChargeSucceeded(context.Background(), event))

	assert.Empty(t, orders.updates)
	require.Len(t, pub.events, 1)
	assert.Equal(t, "ch_1", pub.events[0].ObjectID)
	assert.Equal(t, "pi_9", pub.events[0].PaymentIntentID)
}

func TestPaymentHandlers_SkipUnconfiguredDependencies(t *testing.T) {
	h := NewPaymentEventHandlers(nil, nil, nil, 0, zap.NewNop(), metrics.New())

	assert.NoError(t, h.OnPaymentSucceeded(context.Background(), intentEvent(model.EventPaymentSucceeded, nil)))
	assert.NoError(t, h.OnCustomerCreated(context.Background(), &model.WebhookEvent{Kind: model.EventCustomerCreated}))
}

func TestPaymentHandlers_MissingOrderIsNotAFailure(t *testing.T) {
	orders := &fakeOrders{err: fmt.Errorf("%w: order_number ORD-404", ports.ErrOrderNotFound)}
	pub := &fakePublisher{}
	deduper := newFakeDeduper()
	h := NewPaymentEventHandlers(orders, deduper, pub, 0, zap.NewNop(), metrics.New())

	require.NoError(t, h.OnPaymentSucceeded(context.Background(), intentEvent(model.EventPaymentSucceeded, map[string]string{"order_number": "ORD-404"})))
	assert.Len(t, pub.events, 1)
	assert.Empty(t, deduper.released)
}

func TestPaymentHandlers_DedupeOutageFallsThrough(t *testing.T) {
	orders, pub := &fakeOrders{}, &fakePublisher{}
	deduper := newFakeDeduper()
	deduper.err = errors.New("redis: connection refused")
	h := NewPaymentEventHandlers(orders, deduper, pub, 0, zap.NewNop(), metrics.New())

	require.NoError(t, h.OnPaymentSucceeded(context.Background(), intentEvent(model.EventPaymentSucceeded, nil)))
	assert.Len(t, orders.updates, 1)
	assert.Len(t, pub.events, 1)
}

func TestPaymentHandlers_PublishFailureReleasesClaim(t *testing.T) {
	pub := &fakePublisher{err: errors.New("kafka: leader not available")}
	deduper := newFakeDeduper()
	h := NewPaymentEventHandlers(&fakeOrders{}, deduper, pub, 0, zap.NewNop(), metrics.New())

	err := h.OnPaymentSucceeded(context.Background(), intentEvent(model.EventPaymentSucceeded, nil))
	assert.Error(t, err)
	assert.Equal(t, []string{"stripe:evt_9"}, deduper.released)
	assert.Empty(t, deduper.claimed)
}

func TestDedupeKey(t *testing.T) {
	assert.Equal(t, "stripe:evt_5", dedupeKey(&model.WebhookEvent{ID: "evt_5", Kind: model.EventCustomerCreated, Provider: "stripe"}))
	assert.Equal(t, "stripe:payment_failed:pi_9", dedupeKey(&model.WebhookEvent{Kind: model.EventPaymentFailed, Provider: "stripe",
		Object: model.GatewayObject{ID: "pi_9"}}))
}

func TestOnPaymentFailed_EachFailedAttemptIsPublished(t *testing.T) {
	pub := &fakePublisher{}
	h := NewPaymentEventHandlers(&fakeOrders{}, newFakeDeduper(), pub, 0, zap.NewNop(), metrics.New())

	first := intentEvent(model.EventPaymentFailed, nil)
	second := intentEvent(model.EventPaymentFailed, nil)
	second.ID = "evt_10"

	require.NoError(t, h.OnPaymentFailed(context.Background(), first))
	require.NoError(t, h.OnPaymentFailed(context.Background(), second))
	require.NoError(t, h.OnPaymentFailed(context.Background(), first))

	require.Len(t, pub.events, 2)
	assert.Equal(t, "evt_9", pub.events[0].EventID)
	assert.Equal(t, "evt_10", pub.events[1].EventID)
}

func TestPaymentHandlers_TimedOutHandlerReleasesClaim(t *testing.T) {
	deduper := newFakeDeduper()
	deduper.honorContext = true
	orders := &fakeOrders{}
	h := NewPaymentEventHandlers(orders, deduper, &fakePublisher{}, 0, zap.NewNop(), metrics.New())

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	orders.block = true
	err := h.OnPaymentSucceeded(ctx, intentEvent(model.EventPaymentSucceeded, nil))
	require.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Equal(t, []string{"stripe:evt_9"}, deduper.released)
	assert.Empty(t, deduper.claimed)

	// the redelivery is not mistaken for a duplicate
	orders.block = false
	require.NoError(t, h.OnPaymentSucceeded(context.Background(), intentEvent(model.EventPaymentSucceeded, nil)))
	assert.Len(t, orders.updates, 2)
}
