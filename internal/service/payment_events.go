package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/danielmoisemontezima/zw-storefront-service/internal/metrics"
	"github.com/danielmoisemontezima/zw-storefront-service/internal/model"
	"github.com/danielmoisemontezima/zw-storefront-service/internal/ports"
)

const releaseTimeout = 2 * time.Second

// Lifecycle event types published to the event stream.
const (
	LifecyclePaymentSucceeded = "payment.succeeded"
	LifecyclePaymentFailed    = "payment.failed"
	LifecycleChargeSucceeded  = "charge.succeeded"
)

// PaymentEventHandlers are the side effects of verified payment events. Any
// dependency may be nil when its backing service is not configured; the
// matching side effect is then skipped.
type PaymentEventHandlers struct {
	orders    ports.IOrderRepository
	deduper   ports.IEventDeduper
	publisher ports.IEventPublisher
	dedupeTTL time.Duration
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

func NewPaymentEventHandlers(orders ports.IOrderRepository, deduper ports.IEventDeduper, publisher ports.IEventPublisher, dedupeTTL time.Duration, logger *zap.Logger, m *metrics.Metrics) *PaymentEventHandlers {
	if dedupeTTL <= 0 {
		dedupeTTL = 72 * time.Hour
	}
	return &PaymentEventHandlers{
		orders:    orders,
		deduper:   deduper,
		publisher: publisher,
		dedupeTTL: dedupeTTL,
		logger:    logger,
		metrics:   m,
	}
}

func (h *PaymentEventHandlers) Register(d *WebhookDispatcher) {
	d.Handle(model.EventPaymentSucceeded, h.OnPaymentSucceeded)
	d.Handle(model.EventPaymentFailed, h.OnPaymentFailed)
	d.Handle(model.EventChargeSucceeded, h.OnChargeSucceeded)
	d.Handle(model.EventCustomerCreated, h.OnCustomerCreated)
}

func (h *PaymentEventHandlers) OnPaymentSucceeded(ctx context.Context, event *model.WebhookEvent) error {
	return h.once(ctx, event, func(ctx context.Context) error {
		if err := h.recordPayment(ctx, event, model.PaymentStatusPaid); err != nil {
			return err
		}
		return h.publish(ctx, event, LifecyclePaymentSucceeded)
	})
}

func (h *PaymentEventHandlers) OnPaymentFailed(ctx context.Context, event *model.WebhookEvent) error {
	return h.once(ctx, event, func(ctx context.Context) error {
		if err := h.recordPayment(ctx, event, model.PaymentStatusFailed); err != nil {
			return err
		}
		return h.publish(ctx, event, LifecyclePaymentFailed)
	})
}

func (h *PaymentEventHandlers) OnChargeSucceeded(ctx context.Context, event *model.WebhookEvent) error {
	return h.once(ctx, event, func(ctx context.Context) error {
		return h.publish(ctx, event, LifecycleChargeSucceeded)
	})
}

func (h *PaymentEventHandlers) OnCustomerCreated(ctx context.Context, event *model.WebhookEvent) error {
	h.logger.Info("customer created",
		zap.String("customer_id", event.Object.ID),
		zap.String("email", event.Object.Email),
	)
	return nil
}

// once runs fn at most once per event subject. A failed fn releases its
// claim so the gateway's redelivery can try again.
func (h *PaymentEventHandlers) once(ctx context.Context, event *model.WebhookEvent, fn func(context.Context) error) error {
	if h.deduper == nil {
		return fn(ctx)
	}

	key := dedupeKey(event)
	claimed, err := h.deduper.Claim(ctx, key, h.dedupeTTL)
	if err != nil {
		// side effects are idempotent on their own; run without the claim
		h.logger.Warn("webhook dedupe unavailable", zap.String("key", key), zap.Error(err))
		return fn(ctx)
	}
	if !claimed {
		h.logger.Info("duplicate webhook event skipped", zap.String("key", key), zap.String("event_id", event.ID))
		h.metrics.WebhookHandlers.WithLabelValues(string(event.Kind), metrics.OutcomeDuplicate).Inc()
		return nil
	}

	if err := fn(ctx); err != nil {
		// ctx may be the expired handler deadline
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if rerr := h.deduper.Release(rctx, key); rerr != nil {
			h.logger.Warn("failed to release dedupe claim", zap.String("key", key), zap.Error(rerr))
		}
		return err
	}
	return nil
}

// dedupeKey uses the gateway event id, which redeliveries reuse. A new event
// about the same object, such as a second failed attempt, gets its own key.
func dedupeKey(event *model.WebhookEvent) string {
	if event.ID != "" {
		return fmt.Sprintf("%s:%s", event.Provider, event.ID)
	}
	return fmt.Sprintf("%s:%s:%s", event.Provider, event.Kind, event.Object.ID)
}

func (h *PaymentEventHandlers) recordPayment(ctx context.Context, event *model.WebhookEvent, status string) error {
	if h.orders == nil {
		return nil
	}

	update := ports.OrderPaymentUpdate{
		OrderNumber:     orderNumber(event.Object.Metadata),
		PaymentIntentID: event.Object.PaymentIntentID,
		Status:          status,
		AmountMinor:     event.Object.Amount,
		Currency:        event.Object.Currency,
		OccurredAt:      time.Now().UTC(),
	}
	if update.OrderNumber == "" && update.PaymentIntentID == "" {
		h.logger.Warn("payment event carries no order reference", zap.String("event_id", event.ID))
		return nil
	}

	changed, err := h.orders.UpdatePaymentStatus(ctx, update)
	if errors.Is(err, ports.ErrOrderNotFound) {
		// intents created outside the storefront checkout have no order row
		h.logger.Warn("no order for payment event", zap.String("event_id", event.ID), zap.Error(err))
		return nil
	}
	if err != nil {
		return fmt.Errorf("update order payment status: %w", err)
	}
	h.logger.Info("order payment status recorded",
		zap.String("order_number", update.OrderNumber),
		zap.String("payment_intent_id", update.PaymentIntentID),
		zap.String("status", status),
		zap.Bool("changed", changed),
	)
	return nil
}

func (h *PaymentEventHandlers) publish(ctx context.Context, event *model.WebhookEvent, eventType string) error {
	if h.publisher == nil {
		return nil
	}
	err := h.publisher.Publish(ctx, model.PaymentLifecycleEvent{
		Type:            eventType,
		EventID:         event.ID,
		Provider:        string(event.Provider),
		ObjectID:        event.Object.ID,
		PaymentIntentID: event.Object.PaymentIntentID,
		OrderNumber:     orderNumber(event.Object.Metadata),
		Amount:          event.Object.Amount,
		Currency:        event.Object.Currency,
		Metadata:        event.Object.Metadata,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

func orderNumber(metadata map[string]string) string {
	if n := metadata["order_number"]; n != "" {
		return n
	}
	return metadata["orderNumber"]
}
