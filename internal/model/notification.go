package model

type NotificationKind string

const (
	NotifyWelcome           NotificationKind = "welcome"
	NotifyAdminOrderAlert   NotificationKind = "adminOrderAlert"
	NotifyOrderStatusUpdate NotificationKind = "orderStatusUpdate"
)

type WelcomeRequest struct {
	Customer *Customer `json:"customer"`
}

type AdminOrderAlertRequest struct {
	Order    *Order    `json:"order"`
	Customer *Customer `json:"customer"`
}

type OrderStatusRequest struct {
	Order     *Order `json:"order"`
	NewStatus string `json:"newStatus"`
	Note      string `json:"note,omitempty"`
}

// NotificationResult reports the transport outcome. A failed send is a
// result with Success false, not an error.
type NotificationResult struct {
	Success    bool     `json:"success"`
	MessageID  string   `json:"messageId,omitempty"`
	Recipients []string `json:"recipients,omitempty"`
	Error      string   `json:"error,omitempty"`
}

type EmailMessage struct {
	To       []string
	Subject  string
	HTML     string
	Text     string
	Category NotificationKind
}

// PaymentLifecycleEvent is published for downstream consumers after a
// webhook handler has acted on a delivery.
type PaymentLifecycleEvent struct {
	Type            string            `json:"type"`
	EventID         string            `json:"event_id"`
	Provider        string            `json:"provider"`
	ObjectID        string            `json:"object_id"`
	PaymentIntentID string            `json:"payment_intent_id,omitempty"`
	OrderNumber     string            `json:"order_number,omitempty"`
	Amount          int64             `json:"amount"`
	Currency        string            `json:"currency"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}
