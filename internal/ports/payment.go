package ports

import (
	"context"

	"github.com/danielmoisemontezima/zw-storefront-service/internal/model"
)

// IPaymentGateway is the capability surface of a payment provider SDK.
type IPaymentGateway interface {
	Name() model.PaymentProvider
	CreateCheckoutSession(ctx context.Context, params model.CheckoutSessionParams) (*model.CheckoutSessionResponse, error)
	CreatePaymentIntent(ctx context.Context, params model.PaymentIntentParams) (*model.PaymentIntentResponse, error)
	// VerifyWebhook must authenticate rawBody exactly as received and fail
	// before interpreting the event.
	VerifyWebhook(ctx context.Context, rawBody []byte, signatureHeader string) (*model.WebhookEvent, error)
}
