package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/danielmoisemontezima/zw-storefront-service/internal/apperr"
	"github.com/danielmoisemontezima/zw-storefront-service/internal/model"
)

type stubPayments struct {
	provider  model.PaymentProvider
	idemKey   string
	rawBody   []byte
	signature string
	err       error
}

func (s *stubPayments) CreateCheckoutSession(ctx context.Context, provider model.PaymentProvider, req model.CheckoutSessionRequest, idempotencyKey string) (*model.CheckoutSessionResponse, error) {
	s.provider, s.idemKey = provider, idempotencyKey
	if s.err != nil {
		return nil, s.err
	}
	return &model.CheckoutSessionResponse{ID: "cs_1", URL: "https://pay.example.com/cs_1"}, nil
}

func (s *stubPayments) CreatePaymentIntent(ctx context.Context, provider model.PaymentProvider, req model.PaymentIntentRequest) (*model.PaymentIntentResponse, error) {
	s.provider = provider
	if s.err != nil {
		return nil, s.err
	}
	return &model.PaymentIntentResponse{ClientSecret: "pi_1_secret", PaymentIntentID: "pi_1"}, nil
}

func (s *stubPayments) ParseWebhook(ctx context.Context, provider model.PaymentProvider, rawBody []byte, signatureHeader string) (*model.WebhookAck, error) {
	s.provider, s.rawBody, s.signature = provider, rawBody, signatureHeader
	if s.err != nil {
		return nil, s.err
	}
	return &model.WebhookAck{Received: true}, nil
}

type stubNotifications struct {
	result *model.NotificationResult
	err    error
}

func (s *stubNotifications) Welcome(ctx context.Context, req model.WelcomeRequest) (*model.NotificationResult, error) {
	return s.result, s.err
}

func (s *stubNotifications) AdminOrderAlert(ctx context.Context, req model.AdminOrderAlertRequest) (*model.NotificationResult, error) {
	return s.result, s.err
}

func (s *stubNotifications) OrderStatusUpdate(ctx context.Context, req model.OrderStatusRequest) (*model.NotificationResult, error) {
	return s.result, s.err
}

func newTestRouter(p *stubPayments, n *stubNotifications) http.Handler {
	return NewRouter(
		NewPaymentController(p, "stripe", zap.NewNop()),
		NewNotificationController(n),
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }),
	)
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestCreateCheckoutSession(t *testing.T) {
	p := &stubPayments{}
	h := newTestRouter(p, &stubNotifications{})

	rec, out := do(t, h, http.MethodPost, "/payments/stripe/checkout-session",
		`{"line_items":[{"sku":"tee","quantity":1,"unit_amount":1500}]}`, map[string]string{"Idempotency-Key": "k-1"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cs_1", out["id"])
	assert.Equal(t, "https://pay.example.com/cs_1", out["url"])
	assert.Equal(t, model.PaymentProvider("stripe"), p.provider)
	assert.Equal(t, "k-1", p.idemKey)
}

func TestCreateCheckoutSession_DefaultProviderRoute(t *testing.T) {
	p := &stubPayments{}
	h := newTestRouter(p, &stubNotifications{})

	rec, _ := do(t, h, http.MethodPost, "/payments/checkout-session", `{"line_items":[]}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.PaymentProvider("stripe"), p.provider)
}

func TestCreateCheckoutSession_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"validation", apperr.Validation("line_items must be a non-empty array"), http.StatusBadRequest},
		{"configuration", apperr.Configuration("stripe secret key is not configured"), http.StatusInternalServerError},
		{"gateway", apperr.Gateway("checkout session creation failed", "rate limited", errors.New("sk_live_secret")), http.StatusInternalServerError},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h := newTestRouter(&stubPayments{err: c.err}, &stubNotifications{})
			rec, out := do(t, h, http.MethodPost, "/payments/stripe/checkout-session", `{}`, nil)
			assert.Equal(t, c.code, rec.Code)
			assert.Equal(t, apperr.Message(c.err), out["error"])
			assert.NotContains(t, rec.Body.String(), "sk_live_secret")
		})
	}
}

func TestCreatePaymentIntent_MalformedBody(t *testing.T) {
	h := newTestRouter(&stubPayments{}, &stubNotifications{})

	rec, out := do(t, h, http.MethodPost, "/payments/stripe/intent", `{"amount":`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, out["error"], "invalid JSON body")

	rec, out = do(t, h, http.MethodPost, "/payments/stripe/intent", ``, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "request body is required", out["error"])
}

func TestCreatePaymentIntent(t *testing.T) {
	h := newTestRouter(&stubPayments{}, &stubNotifications{})

	rec, out := do(t, h, http.MethodPost, "/payments/stripe/intent", `{"amount":19.995}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pi_1_secret", out["clientSecret"])
	assert.Equal(t, "pi_1", out["paymentIntentId"])
}

func TestParseWebhook_PassesRawBodyAndSignature(t *testing.T) {
	p := &stubPayments{}
	h := newTestRouter(p, &stubNotifications{})

	body := `{"id": "evt_1",   "type":"payment_intent.succeeded"}`
	rec, out := do(t, h, http.MethodPost, "/webhooks/stripe", body, map[string]string{"Stripe-Signature": "t=1,v1=abc"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["received"])
	assert.Equal(t, body, string(p.rawBody))
	assert.Equal(t, "t=1,v1=abc", p.signature)
}

func TestParseWebhook_SignatureFailureIs400(t *testing.T) {
	h := newTestRouter(&stubPayments{err: apperr.Signature("webhook signature verification failed", errors.New("no valid signature"))}, &stubNotifications{})

	rec, out := do(t, h, http.MethodPost, "/webhooks/stripe", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "webhook signature verification failed", out["error"])
}

func TestParseWebhook_MisconfiguredIs500(t *testing.T) {
	h := newTestRouter(&stubPayments{err: apperr.Configuration("stripe webhook secret is not configured")}, &stubNotifications{})

	rec, out := do(t, h, http.MethodPost, "/webhooks/stripe", `{}`, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "stripe webhook secret is not configured", out["error"])
}

func TestParseWebhook_BodyTooLarge(t *testing.T) {
	p := &stubPayments{}
	h := newTestRouter(p, &stubNotifications{})

	rec, _ := do(t, h, http.MethodPost, "/webhooks/stripe", strings.Repeat("a", maxWebhookBody+1), nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Nil(t, p.rawBody)
}

func TestNotifications(t *testing.T) {
	n := &stubNotifications{result: &model.NotificationResult{Success: true, MessageID: "m-1", Recipients: []string{"a@example.com", "b@example.com"}}}
	h := newTestRouter(&stubPayments{}, n)

	rec, out := do(t, h, http.MethodPost, "/emails/welcome", `{"customer":{"email":"ada@example.com"}}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "Welcome email sent", out["message"])
	assert.Equal(t, "m-1", out["messageId"])
	assert.NotContains(t, out, "recipients")

	rec, out = do(t, h, http.MethodPost, "/emails/admin-order-alert", `{"order":{"orderNumber":"1"},"customer":{"email":"ada@example.com"}}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"a@example.com", "b@example.com"}, out["recipients"])

	rec, out = do(t, h, http.MethodPost, "/emails/order-status", `{"order":{"orderNumber":"1"},"newStatus":"shipped"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Order status email sent", out["message"])
}

func TestNotifications_Failures(t *testing.T) {
	h := newTestRouter(&stubPayments{}, &stubNotifications{err: apperr.Validation("customer email is required")})
	rec, out := do(t, h, http.MethodPost, "/emails/welcome", `{"customer":{}}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "customer email is required", out["error"])

	h = newTestRouter(&stubPayments{}, &stubNotifications{result: &model.NotificationResult{Success: false, Error: "email transport timed out"}})
	rec, out = do(t, h, http.MethodPost, "/emails/order-status", `{"order":{},"newStatus":"shipped"}`, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "email transport timed out", out["detail"])
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestRouter(&stubPayments{}, &stubNotifications{})

	rec, out := do(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", out["status"])

	rec, _ = do(t, h, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
