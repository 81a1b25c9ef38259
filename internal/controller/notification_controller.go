package controller

import (
	"context"
	"net/http"

	"github.com/danielmoisemontezima/zw-storefront-service/internal/model"
	"github.com/danielmoisemontezima/zw-storefront-service/pkg/utils"
)

type NotificationService interface {
	Welcome(ctx context.Context, req model.WelcomeRequest) (*model.NotificationResult, error)
	AdminOrderAlert(ctx context.Context, req model.AdminOrderAlertRequest) (*model.NotificationResult, error)
	OrderStatusUpdate(ctx context.Context, req model.OrderStatusRequest) (*model.NotificationResult, error)
}

type NotificationController struct {
	service NotificationService
}

func NewNotificationController(service NotificationService) *NotificationController {
	return &NotificationController{service: service}
}

type notificationResponse struct {
	Success    bool     `json:"success"`
	Message    string   `json:"message"`
	MessageID  string   `json:"messageId"`
	Recipients []string `json:"recipients,omitempty"`
}

func (c *NotificationController) SendWelcome(w http.ResponseWriter, r *http.Request) {
	var req model.WelcomeRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	result, err := c.service.Welcome(r.Context(), req)
	respondWithNotification(w, result, err, "Welcome email sent", false)
}

func (c *NotificationController) SendAdminOrderAlert(w http.ResponseWriter, r *http.Request) {
	var req model.AdminOrderAlertRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	result, err := c.service.AdminOrderAlert(r.Context(), req)
	respondWithNotification(w, result, err, "Admin order alert sent", true)
}

func (c *NotificationController) SendOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req model.OrderStatusRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	result, err := c.service.OrderStatusUpdate(r.Context(), req)
	respondWithNotification(w, result, err, "Order status email sent", false)
}

func respondWithNotification(w http.ResponseWriter, result *model.NotificationResult, err error, message string, withRecipients bool) {
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if !result.Success {
		utils.RespondWithFailure(w, http.StatusInternalServerError, "Failed to send email", result.Error)
		return
	}

	response := notificationResponse{
		Success:   true,
		Message:   message,
		MessageID: result.MessageID,
	}
	if withRecipients {
		response.Recipients = result.Recipients
	}
	utils.RespondWithJSON(w, http.StatusOK, response)
}
