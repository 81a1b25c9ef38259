package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/danielmoisemontezima/zw-storefront-service/internal/logging"
	"github.com/danielmoisemontezima/zw-storefront-service/internal/metrics"
	"github.com/danielmoisemontezima/zw-storefront-service/internal/model"
)

// EventHandler acts on one verified webhook event. Handlers must be
// idempotent: gateways deliver at least once, in no particular order.
type EventHandler func(ctx context.Context, event *model.WebhookEvent) error

// WebhookDispatcher routes verified events to handlers by kind. Handlers are
// registered at startup; Dispatch only reads the map.
type WebhookDispatcher struct {
	handlers       map[model.EventKind]EventHandler
	handlerTimeout time.Duration
	logger         *zap.Logger
	metrics        *metrics.Metrics
}

func NewWebhookDispatcher(handlerTimeout time.Duration, logger *zap.Logger, m *metrics.Metrics) *WebhookDispatcher {
	if handlerTimeout <= 0 {
		handlerTimeout = 5 * time.Second
	}
	return &WebhookDispatcher{
		handlers:       make(map[model.EventKind]EventHandler),
		handlerTimeout: handlerTimeout,
		logger:         logger,
		metrics:        m,
	}
}

func (d *WebhookDispatcher) Handle(kind model.EventKind, h EventHandler) {
	d.handlers[kind] = h
}

// Dispatch always acknowledges. Handler errors and panics are logged, never
// returned, so a downstream fault does not make the gateway redeliver.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, event *model.WebhookEvent) model.WebhookAck {
	log := d.logger.With(
		logging.Provider(string(event.Provider)),
		logging.EventID(event.ID),
		zap.String("kind", string(event.Kind)),
		zap.String("gateway_type", event.GatewayType),
		zap.String("object_id", event.Object.ID),
	)

	h, ok := d.handlers[event.Kind]
	if !ok {
		log.Info("webhook event ignored")
		d.metrics.WebhookEvents.WithLabelValues(string(event.Provider), string(event.Kind), metrics.OutcomeIgnored).Inc()
		return model.WebhookAck{Received: true}
	}

	// the handler outlives a dropped gateway connection but not the timeout
	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.handlerTimeout)
	defer cancel()

	err := d.run(hctx, h, event)
	d.metrics.WebhookHandlers.WithLabelValues(string(event.Kind), metrics.Outcome(err)).Inc()
	d.metrics.WebhookEvents.WithLabelValues(string(event.Provider), string(event.Kind), metrics.Outcome(err)).Inc()
	if err != nil {
		log.Error("webhook handler failed", zap.Error(err))
	} else {
		log.Info("webhook event handled")
	}
	return model.WebhookAck{Received: true}
}

func (d *WebhookDispatcher) run(ctx context.Context, h EventHandler, event *model.WebhookEvent) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler panic: %v", p)
		}
	}()
	return h(ctx, event)
}
