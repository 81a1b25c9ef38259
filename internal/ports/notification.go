package ports

import (
	"context"

	"github.com/danielmoisemontezima/zw-storefront-service/internal/model"
)

// IEmailTransport delivers one rendered message and returns the transport's
// message id.
type IEmailTransport interface {
	Send(ctx context.Context, msg *model.EmailMessage) (string, error)
}
