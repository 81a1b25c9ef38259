package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/danielmoisemontezima/zw-storefront-service/internal/apperr"
	"github.com/danielmoisemontezima/zw-storefront-service/internal/model"
)

const ProviderStripe model.PaymentProvider = "stripe"

// Stripe event types mapped to internal kinds. Anything else is unknown and
// still acknowledged.
var stripeEventKinds = map[string]model.EventKind{
	"payment_intent.succeeded":      model.EventPaymentSucceeded,
	"payment_intent.payment_failed": model.EventPaymentFailed,
	"charge.succeeded":              model.EventChargeSucceeded,
	"customer.created":              model.EventCustomerCreated,
}

type StripeAdapter struct {
	api           *client.API
	webhookSecret string
	tolerance     time.Duration
}

// NewStripeAdapter keeps a private client per adapter instead of setting the
// package level stripe.Key. An empty apiKey or webhookSecret disables the
// operations that need it.
func NewStripeAdapter(apiKey, webhookSecret string, tolerance time.Duration) *StripeAdapter {
	var api *client.API
	if apiKey != "" {
		api = client.New(apiKey, nil)
	}
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	return &StripeAdapter{
		api:           api,
		webhookSecret: webhookSecret,
		tolerance:     tolerance,
	}
}

func (s *StripeAdapter) Name() model.PaymentProvider {
	return ProviderStripe
}

func (s *StripeAdapter) CreateCheckoutSession(ctx context.Context, p model.CheckoutSessionParams) (*model.CheckoutSessionResponse, error) {
	if s.api == nil {
		return nil, apperr.Configuration("stripe secret key is not configured")
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(p.Mode)),
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
	}
	params.Context = ctx

	for _, item := range p.LineItems {
		params.LineItems = append(params.LineItems, stripeLineItem(item))
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	if p.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(p.CustomerEmail)
	}
	if p.IdempotencyKey != "" {
		params.SetIdempotencyKey(p.IdempotencyKey)
	}

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, apperr.Gateway("checkout session creation failed", stripeErrorDetail(err), err)
	}

	return &model.CheckoutSessionResponse{
		ID:  sess.ID,
		URL: sess.URL,
	}, nil
}

func stripeLineItem(item model.LineItem) *stripe.CheckoutSessionLineItemParams {
	li := &stripe.CheckoutSessionLineItemParams{
		Quantity: stripe.Int64(item.Quantity),
	}
	if item.Price != "" {
		li.Price = stripe.String(item.Price)
		return li
	}

	name := item.Name
	if name == "" {
		name = item.SKU
	}
	product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name: stripe.String(name),
	}
	if item.SKU != "" {
		product.Metadata = map[string]string{"sku": item.SKU}
	}
	li.PriceData = &stripe.CheckoutSessionLineItemPriceDataParams{
		Currency:    stripe.String(item.Currency),
		UnitAmount:  stripe.Int64(item.UnitAmount),
		ProductData: product,
	}
	return li
}

func (s *StripeAdapter) CreatePaymentIntent(ctx context.Context, p model.PaymentIntentParams) (*model.PaymentIntentResponse, error) {
	if s.api == nil {
		return nil, apperr.Configuration("stripe secret key is not configured")
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(p.AmountMinorUnits),
		Currency: stripe.String(p.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return nil, apperr.Gateway("payment intent creation failed", stripeErrorDetail(err), err)
	}

	return &model.PaymentIntentResponse{
		ClientSecret:    pi.ClientSecret,
		PaymentIntentID: pi.ID,
	}, nil
}

func (s *StripeAdapter) VerifyWebhook(ctx context.Context, rawBody []byte, signatureHeader string) (*model.WebhookEvent, error) {
	if s.webhookSecret == "" {
		return nil, apperr.Configuration("stripe webhook secret is not configured")
	}
	if strings.TrimSpace(signatureHeader) == "" {
		return nil, apperr.Signature("missing Stripe-Signature header", nil)
	}

	event, err := webhook.ConstructEventWithOptions(rawBody, signatureHeader, s.webhookSecret, webhook.ConstructEventOptions{
		Tolerance:                s.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, apperr.Signature("invalid webhook signature", err)
	}

	gatewayType := string(event.Type)
	kind, known := stripeEventKinds[gatewayType]
	if !known {
		kind = model.EventUnknown
	}

	out := &model.WebhookEvent{
		ID:              event.ID,
		Kind:            kind,
		GatewayType:     gatewayType,
		Provider:        ProviderStripe,
		RawBody:         rawBody,
		SignatureHeader: signatureHeader,
	}
	if event.Data != nil {
		out.Payload = event.Data.Raw
		out.Object = decodeStripeObject(event.Data.Raw)
	}
	return out, nil
}

// decodeStripeObject reads the fields handlers need. The payload is already
// authenticated, so a shape we do not understand leaves fields empty rather
// than rejecting the delivery.
func decodeStripeObject(raw json.RawMessage) model.GatewayObject {
	var obj model.GatewayObject
	if len(raw) == 0 {
		return obj
	}
	_ = json.Unmarshal(raw, &obj)

	if obj.Object == "payment_intent" {
		obj.PaymentIntentID = obj.ID
		return obj
	}

	// charges carry the intent either as an id or, when expanded, as an object
	var ref struct {
		PaymentIntent json.RawMessage `json:"payment_intent"`
	}
	if err := json.Unmarshal(raw, &ref); err == nil && len(ref.PaymentIntent) > 0 {
		var id string
		if json.Unmarshal(ref.PaymentIntent, &id) == nil {
			obj.PaymentIntentID = id
		} else {
			var expanded struct {
				ID string `json:"id"`
			}
			if json.Unmarshal(ref.PaymentIntent, &expanded) == nil {
				obj.PaymentIntentID = expanded.ID
			}
		}
	}
	return obj
}

// stripeErrorDetail returns the provider message that is safe to show callers.
func stripeErrorDetail(err error) string {
	var serr *stripe.Error
	if errors.As(err, &serr) {
		return serr.Msg
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "payment gateway timed out"
	}
	return ""
}
