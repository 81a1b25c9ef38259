package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/danielmoisemontezima/zw-storefront-service/internal/telemetry"
)

// NewRouter wires every route. metricsHandler may be nil.
func NewRouter(payments *PaymentController, notifications *NotificationController, metricsHandler http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(telemetry.TracingMiddleware)

	r.Post("/payments/{provider}/checkout-session", payments.CreateCheckoutSession)
	r.Post("/payments/{provider}/intent", payments.CreatePaymentIntent)
	r.Post("/payments/checkout-session", payments.CreateCheckoutSession)
	r.Post("/payments/intent", payments.CreatePaymentIntent)
	r.Post("/webhooks/{provider}", payments.ParseWebhook)

	r.Post("/emails/welcome", notifications.SendWelcome)
	r.Post("/emails/admin-order-alert", notifications.SendAdminOrderAlert)
	r.Post("/emails/order-status", notifications.SendOrderStatus)

	r.Get("/health", payments.GetHealthCheck)
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}
	return r
}
