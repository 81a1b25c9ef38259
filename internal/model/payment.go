package model

import (
	"encoding/json"
)

type PaymentProvider string

type CheckoutMode string

const (
	ModePayment      CheckoutMode = "payment"
	ModeSubscription CheckoutMode = "subscription"
	ModeSetup        CheckoutMode = "setup"
)

func (m CheckoutMode) Valid() bool {
	switch m {
	case ModePayment, ModeSubscription, ModeSetup:
		return true
	}
	return false
}

// LineItem is either an ad-hoc item priced in minor units or a reference to
// a price already defined at the gateway.
type LineItem struct {
	SKU        string `json:"sku"`
	Name       string `json:"name,omitempty"`
	Price      string `json:"price,omitempty"`
	Quantity   int64  `json:"quantity"`
	UnitAmount int64  `json:"unit_amount"`
	Currency   string `json:"currency,omitempty"`
}

type CheckoutSessionRequest struct {
	LineItems     []LineItem        `json:"line_items"`
	SuccessURL    string            `json:"success_url,omitempty"`
	CancelURL     string            `json:"cancel_url,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	CustomerEmail string            `json:"customer_email,omitempty"`
	Mode          CheckoutMode      `json:"mode,omitempty"`
}

// CheckoutSessionParams is what the gateway receives once defaults are
// applied and the request is validated.
type CheckoutSessionParams struct {
	LineItems      []LineItem
	SuccessURL     string
	CancelURL      string
	Metadata       map[string]string
	CustomerEmail  string
	Mode           CheckoutMode
	IdempotencyKey string
}

type CheckoutSessionResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type PaymentIntentRequest struct {
	Amount   *float64          `json:"amount"`
	Currency string            `json:"currency,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type PaymentIntentParams struct {
	AmountMinorUnits int64
	Currency         string
	Metadata         map[string]string
}

type PaymentIntentResponse struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
}

type EventKind string

const (
	EventPaymentSucceeded EventKind = "payment_succeeded"
	EventPaymentFailed    EventKind = "payment_failed"
	EventChargeSucceeded  EventKind = "charge_succeeded"
	EventCustomerCreated  EventKind = "customer_created"
	EventUnknown          EventKind = "unknown"
)

// GatewayObject holds the fields handlers read from the event's data object.
type GatewayObject struct {
	ID              string            `json:"id"`
	Object          string            `json:"object"`
	Amount          int64             `json:"amount"`
	Currency        string            `json:"currency"`
	Status          string            `json:"status"`
	Email           string            `json:"email"`
	PaymentIntentID string            `json:"-"`
	Metadata        map[string]string `json:"metadata"`
}

// WebhookEvent only exists for deliveries whose signature verified.
type WebhookEvent struct {
	ID              string
	Kind            EventKind
	GatewayType     string
	Provider        PaymentProvider
	Object          GatewayObject
	Payload         json.RawMessage
	RawBody         []byte
	SignatureHeader string
}

type WebhookAck struct {
	Received bool `json:"received"`
}
