package service

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/danielmoisemontezima/zw-storefront-service/internal/apperr"
	"github.com/danielmoisemontezima/zw-storefront-service/internal/core"
	"github.com/danielmoisemontezima/zw-storefront-service/internal/guard"
	"github.com/danielmoisemontezima/zw-storefront-service/internal/metrics"
	"github.com/danielmoisemontezima/zw-storefront-service/internal/model"
	"github.com/danielmoisemontezima/zw-storefront-service/internal/telemetry"
)

const (
	successPath = "/shop/checkout/success?session_id={CHECKOUT_SESSION_ID}"
	cancelPath  = "/shop/checkout"
)

type PaymentServiceConfig struct {
	BaseURL         string
	DefaultCurrency string
	GatewayTimeout  time.Duration
}

type PaymentService struct {
	providers  *core.ProviderRegistry
	dispatcher *WebhookDispatcher
	cfg        PaymentServiceConfig
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

func NewPaymentService(providers *core.ProviderRegistry, dispatcher *WebhookDispatcher, cfg PaymentServiceConfig, logger *zap.Logger, m *metrics.Metrics) *PaymentService {
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "usd"
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = 10 * time.Second
	}
	return &PaymentService{
		providers:  providers,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger,
		metrics:    m,
	}
}

func (s *PaymentService) CreateCheckoutSession(ctx context.Context, provider model.PaymentProvider, req model.CheckoutSessionRequest, idempotencyKey string) (*model.CheckoutSessionResponse, error) {
	params, err := s.checkoutParams(req, idempotencyKey)
	if err != nil {
		return nil, err
	}

	gateway, err := s.providers.Get(provider)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()

	ctx, span := telemetry.StartSpan(ctx, "gateway.create_checkout_session",
		attribute.String("provider", string(provider)),
		attribute.Int("line_items", len(params.LineItems)),
	)
	resp, err := gateway.CreateCheckoutSession(ctx, params)
	telemetry.EndSpan(span, err)
	s.metrics.GatewayRequests.WithLabelValues(string(provider), "create_checkout_session", metrics.Outcome(err)).Inc()

	if err != nil {
		s.logger.Error("checkout session creation failed", zap.String("provider", string(provider)), zap.Error(err))
		return nil, err
	}

	s.logger.Info("checkout session created",
		zap.String("provider", string(provider)),
		zap.String("session_id", resp.ID),
		zap.String("mode", string(params.Mode)),
	)
	return resp, nil
}

func (s *PaymentService) checkoutParams(req model.CheckoutSessionRequest, idempotencyKey string) (model.CheckoutSessionParams, error) {
	if len(req.LineItems) == 0 {
		return model.CheckoutSessionParams{}, apperr.Validation("line_items must be a non-empty array")
	}

	items := make([]model.LineItem, 0, len(req.LineItems))
	for i, item := range req.LineItems {
		if item.Quantity <= 0 {
			return model.CheckoutSessionParams{}, apperr.Validation(fmt.Sprintf("line_items[%d].quantity must be a positive integer", i))
		}
		if item.Price == "" {
			if item.UnitAmount <= 0 {
				return model.CheckoutSessionParams{}, apperr.Validation(fmt.Sprintf("line_items[%d].unit_amount must be a positive integer in minor units", i))
			}
			if item.SKU == "" && item.Name == "" {
				return model.CheckoutSessionParams{}, apperr.Validation(fmt.Sprintf("line_items[%d] needs a sku or name", i))
			}
		}
		item.Currency = strings.ToLower(strings.TrimSpace(item.Currency))
		if item.Currency == "" {
			item.Currency = s.cfg.DefaultCurrency
		}
		items = append(items, item)
	}

	mode := req.Mode
	if mode == "" {
		mode = model.ModePayment
	}
	if !mode.Valid() {
		return model.CheckoutSessionParams{}, apperr.Validation(fmt.Sprintf("mode %q must be one of payment, subscription, setup", req.Mode))
	}

	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}

	return model.CheckoutSessionParams{
		LineItems:      items,
		SuccessURL:     s.redirectURL(req.SuccessURL, successPath),
		CancelURL:      s.redirectURL(req.CancelURL, cancelPath),
		Metadata:       req.Metadata,
		CustomerEmail:  strings.TrimSpace(req.CustomerEmail),
		Mode:           mode,
		IdempotencyKey: idempotencyKey,
	}, nil
}

// redirectURL keeps the gateway from redirecting shoppers off-site. A
// relative path is checked by the guard and joined to the base URL; an
// absolute URL is accepted only on the base URL's origin.
func (s *PaymentService) redirectURL(requested, defaultPath string) string {
	fallback := s.cfg.BaseURL + defaultPath
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return fallback
	}

	if strings.HasPrefix(requested, "/") {
		path := guard.ValidateRedirectTarget(requested, "")
		if path == "" {
			return fallback
		}
		return s.cfg.BaseURL + path
	}

	target, err := url.Parse(requested)
	if err != nil || target.User != nil {
		return fallback
	}
	base, err := url.Parse(s.cfg.BaseURL)
	if err != nil {
		return fallback
	}
	if !strings.EqualFold(target.Scheme, base.Scheme) || !strings.EqualFold(target.Host, base.Host) {
		return fallback
	}
	return requested
}

func (s *PaymentService) CreatePaymentIntent(ctx context.Context, provider model.PaymentProvider, req model.PaymentIntentRequest) (*model.PaymentIntentResponse, error) {
	if req.Amount == nil {
		return nil, apperr.Validation("amount is required")
	}
	minor, err := ToMinorUnits(*req.Amount)
	if err != nil {
		return nil, err
	}

	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}

	gateway, err := s.providers.Get(provider)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()

	ctx, span := telemetry.StartSpan(ctx, "gateway.create_payment_intent",
		attribute.String("provider", string(provider)),
		attribute.Int64("amount_minor", minor),
		attribute.String("currency", currency),
	)
	resp, err := gateway.CreatePaymentIntent(ctx, model.PaymentIntentParams{
		AmountMinorUnits: minor,
		Currency:         currency,
		Metadata:         req.Metadata,
	})
	telemetry.EndSpan(span, err)
	s.metrics.GatewayRequests.WithLabelValues(string(provider), "create_payment_intent", metrics.Outcome(err)).Inc()

	if err != nil {
		s.logger.Error("payment intent creation failed", zap.String("provider", string(provider)), zap.Error(err))
		return nil, err
	}

	s.logger.Info("payment intent created",
		zap.String("provider", string(provider)),
		zap.String("payment_intent_id", resp.PaymentIntentID),
		zap.Int64("amount_minor", minor),
		zap.String("currency", currency),
	)
	return resp, nil
}

var maxMinorUnits = decimal.NewFromInt(math.MaxInt64)

// ToMinorUnits converts a major-unit amount to minor units, rounding half
// away from zero on the decimal value (19.995 -> 2000).
func ToMinorUnits(amount float64) (int64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, apperr.Validation("amount must be a finite number")
	}
	d := decimal.NewFromFloat(amount)
	if !d.IsPositive() {
		return 0, apperr.Validation("amount must be a positive number")
	}
	minor := d.Mul(decimal.NewFromInt(100)).Round(0)
	if !minor.IsPositive() {
		return 0, apperr.Validation("amount is below the smallest currency unit")
	}
	if minor.GreaterThan(maxMinorUnits) {
		return 0, apperr.Validation("amount is too large")
	}
	return minor.IntPart(), nil
}

// ParseWebhook verifies the delivery against the raw body and hands the
// event to the dispatcher. Signature and configuration failures return
// before the dispatcher is reached.
func (s *PaymentService) ParseWebhook(ctx context.Context, provider model.PaymentProvider, rawBody []byte, signatureHeader string) (*model.WebhookAck, error) {
	gateway, err := s.providers.Get(provider)
	if err != nil {
		return nil, err
	}

	event, err := gateway.VerifyWebhook(ctx, rawBody, signatureHeader)
	if err != nil {
		s.metrics.WebhookEvents.WithLabelValues(string(provider), "", metrics.OutcomeRejected).Inc()
		s.logger.Warn("webhook rejected", zap.String("provider", string(provider)), zap.Error(err))
		return nil, err
	}

	ack := s.dispatcher.Dispatch(ctx, event)
	return &ack, nil
}
