package adapters

import (
	"context"
	"errors"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/danielmoisemontezima/zw-storefront-service/internal/apperr"
	"github.com/danielmoisemontezima/zw-storefront-service/internal/model"
	"github.com/danielmoisemontezima/zw-storefront-service/pkg/utils"
)

// sendgridClient is the part of *sendgrid.Client the transport uses.
type sendgridClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

type SendGridTransport struct {
	client sendgridClient
	from   *mail.Email
}

func NewSendGridTransport(apiKey, fromAddress, fromName string) *SendGridTransport {
	return &SendGridTransport{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(fromName, fromAddress),
	}
}

// Send delivers one message. Each recipient gets its own personalization so
// admin recipients do not see each other's addresses.
func (t *SendGridTransport) Send(ctx context.Context, msg *model.EmailMessage) (string, error) {
	if len(msg.To) == 0 {
		return "", apperr.Validation("email has no recipients")
	}

	m := mail.NewV3Mail()
	m.SetFrom(t.from)
	m.Subject = msg.Subject
	for _, to := range msg.To {
		p := mail.NewPersonalization()
		p.AddTos(mail.NewEmail("", to))
		m.AddPersonalizations(p)
	}
	// text/plain must come before text/html
	m.AddContent(
		mail.NewContent("text/plain", msg.Text),
		mail.NewContent("text/html", msg.HTML),
	)
	if msg.Category != "" {
		m.AddCategories(string(msg.Category))
	}

	resp, err := t.client.SendWithContext(ctx, m)
	if err != nil {
		detail := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			detail = "email transport timed out"
		}
		return "", apperr.Transport("email delivery failed", detail, err)
	}
	if resp.StatusCode >= 300 {
		return "", apperr.Transport("email delivery failed",
			fmt.Sprintf("sendgrid responded %d: %s", resp.StatusCode, resp.Body), nil)
	}

	return utils.GetHeader(resp.Headers, "X-Message-Id"), nil
}
