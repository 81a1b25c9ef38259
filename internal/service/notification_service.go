package service

import (
	"context"
	"errors"
	htmltemplate "html/template"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/danielmoisemontezima/zw-storefront-service/internal/apperr"
	"github.com/danielmoisemontezima/zw-storefront-service/internal/guard"
	"github.com/danielmoisemontezima/zw-storefront-service/internal/metrics"
	"github.com/danielmoisemontezima/zw-storefront-service/internal/model"
	"github.com/danielmoisemontezima/zw-storefront-service/internal/ports"
	"github.com/danielmoisemontezima/zw-storefront-service/internal/render"
)

// NotificationService renders transactional emails and hands them to the
// transport. Each request runs validate, render, send in that order.
type NotificationService struct {
	renderer    *render.Renderer
	transport   ports.IEmailTransport
	adminEmails []string
	timeout     time.Duration
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

// NewNotificationService accepts a nil transport; every send then fails with
// a configuration error.
func NewNotificationService(renderer *render.Renderer, transport ports.IEmailTransport, adminEmails []string, timeout time.Duration, logger *zap.Logger, m *metrics.Metrics) *NotificationService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NotificationService{
		renderer:    renderer,
		transport:   transport,
		adminEmails: append([]string(nil), adminEmails...),
		timeout:     timeout,
		logger:      logger,
		metrics:     m,
	}
}

func (s *NotificationService) Welcome(ctx context.Context, req model.WelcomeRequest) (*model.NotificationResult, error) {
	if req.Customer == nil || strings.TrimSpace(req.Customer.Email) == "" {
		return nil, apperr.Validation("customer email is required")
	}

	content, err := s.renderer.Welcome(render.WelcomeView{Name: displayName(req.Customer.Name, "there")})
	if err != nil {
		return nil, err
	}
	return s.send(ctx, model.NotifyWelcome, []string{strings.TrimSpace(req.Customer.Email)}, content)
}

// AdminOrderAlert sends one message to the configured admin list exactly as
// configured, duplicates and order included.
func (s *NotificationService) AdminOrderAlert(ctx context.Context, req model.AdminOrderAlertRequest) (*model.NotificationResult, error) {
	if req.Order == nil || req.Customer == nil {
		return nil, apperr.Validation("order and customer are required")
	}
	if len(s.adminEmails) == 0 {
		return nil, apperr.Configuration("admin email recipients are not configured")
	}

	content, err := s.renderer.AdminOrderAlert(render.AdminOrderView{Order: *req.Order, Customer: *req.Customer})
	if err != nil {
		return nil, err
	}
	return s.send(ctx, model.NotifyAdminOrderAlert, s.adminEmails, content)
}

func (s *NotificationService) OrderStatusUpdate(ctx context.Context, req model.OrderStatusRequest) (*model.NotificationResult, error) {
	status := strings.TrimSpace(req.NewStatus)
	if req.Order == nil || status == "" {
		return nil, apperr.Validation("order and newStatus are required")
	}
	if req.Order.Customer == nil || strings.TrimSpace(req.Order.Customer.Email) == "" {
		return nil, apperr.Validation("order customer email is required")
	}

	name := req.Order.Customer.Name
	if name == "" && req.Order.ShippingAddress != nil {
		name = req.Order.ShippingAddress.FirstName
	}
	note := strings.TrimSpace(req.Note)

	content, err := s.renderer.OrderStatus(render.OrderStatusView{
		Order:       *req.Order,
		Name:        displayName(name, "there"),
		Status:      status,
		StatusLabel: render.StatusLabel(status),
		Headline:    render.StatusHeadline(status),
		NoteHTML:    htmltemplate.HTML(guard.EscapeMarkup(note)),
		Note:        note,
	})
	if err != nil {
		return nil, err
	}
	return s.send(ctx, model.NotifyOrderStatusUpdate, []string{strings.TrimSpace(req.Order.Customer.Email)}, content)
}

// send reports transport failures in the result rather than as an error so
// the caller can decide whether to retry.
func (s *NotificationService) send(ctx context.Context, kind model.NotificationKind, to []string, content *render.Content) (*model.NotificationResult, error) {
	if s.transport == nil {
		return nil, apperr.Configuration("email transport is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	id, err := s.transport.Send(ctx, &model.EmailMessage{
		To:       to,
		Subject:  content.Subject,
		HTML:     content.HTML,
		Text:     content.Text,
		Category: kind,
	})
	s.metrics.EmailsSent.WithLabelValues(string(kind), metrics.Outcome(err)).Inc()

	if err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			return nil, err
		}
		detail := apperr.Detail(err)
		if detail == "" {
			detail = err.Error()
		}
		s.logger.Error("email send failed",
			zap.String("kind", string(kind)),
			zap.Int("recipients", len(to)),
			zap.Error(err),
		)
		return &model.NotificationResult{Success: false, Recipients: to, Error: detail}, nil
	}

	s.logger.Info("email sent",
		zap.String("kind", string(kind)),
		zap.String("message_id", id),
		zap.Int("recipients", len(to)),
	)
	return &model.NotificationResult{Success: true, MessageID: id, Recipients: to}, nil
}

func displayName(name, fallback string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return fallback
}
