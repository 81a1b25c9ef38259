package controller

import (
	"context"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/danielmoisemontezima/zw-storefront-service/internal/apperr"
	"github.com/danielmoisemontezima/zw-storefront-service/internal/model"
	"github.com/danielmoisemontezima/zw-storefront-service/pkg/utils"
)

const maxWebhookBody = 1 << 20

// PaymentService is the part of service.PaymentService the controller calls.
type PaymentService interface {
	CreateCheckoutSession(ctx context.Context, provider model.PaymentProvider, req model.CheckoutSessionRequest, idempotencyKey string) (*model.CheckoutSessionResponse, error)
	CreatePaymentIntent(ctx context.Context, provider model.PaymentProvider, req model.PaymentIntentRequest) (*model.PaymentIntentResponse, error)
	ParseWebhook(ctx context.Context, provider model.PaymentProvider, rawBody []byte, signatureHeader string) (*model.WebhookAck, error)
}

type PaymentController struct {
	service         PaymentService
	defaultProvider model.PaymentProvider
	logger          *zap.Logger
}

func NewPaymentController(service PaymentService, defaultProvider model.PaymentProvider, logger *zap.Logger) *PaymentController {
	return &PaymentController{service: service, defaultProvider: defaultProvider, logger: logger}
}

// provider reads {provider} from the route; routes without it use the
// configured default.
func (c *PaymentController) provider(r *http.Request) model.PaymentProvider {
	if p := r.PathValue("provider"); p != "" {
		return model.PaymentProvider(p)
	}
	return c.defaultProvider
}

func (c *PaymentController) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req model.CheckoutSessionRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	response, err := c.service.CreateCheckoutSession(r.Context(), c.provider(r), req, r.Header.Get("Idempotency-Key"))
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, response)
}

func (c *PaymentController) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req model.PaymentIntentRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	response, err := c.service.CreatePaymentIntent(r.Context(), c.provider(r), req)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, response)
}

// ParseWebhook hands the body to the service byte for byte; signatures are
// computed over the raw payload.
func (c *PaymentController) ParseWebhook(w http.ResponseWriter, r *http.Request) {
	provider := c.provider(r)

	rawBody, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.RespondWithError(w, http.StatusRequestEntityTooLarge, "webhook body too large")
			return
		}
		utils.RespondWithError(w, http.StatusBadRequest, "invalid body")
		return
	}

	ack, err := c.service.ParseWebhook(r.Context(), provider, rawBody, signatureHeader(provider, r.Header))
	if err != nil {
		if errors.Is(err, apperr.ErrConfiguration) {
			c.logger.Error("webhook endpoint misconfigured", zap.String("provider", string(provider)), zap.Error(err))
		}
		utils.RespondWithAppError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, ack)
}

func signatureHeader(provider model.PaymentProvider, h http.Header) string {
	switch provider {
	case "stripe":
		return h.Get("Stripe-Signature")
	default:
		return h.Get("Webhook-Signature")
	}
}

func (c *PaymentController) GetHealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{
		"status": "OK",
	}

	utils.RespondWithJSON(w, http.StatusOK, response)
}
