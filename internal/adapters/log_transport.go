package adapters

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danielmoisemontezima/zw-storefront-service/internal/model"
)

// LogTransport writes emails to the log instead of delivering them. Used with
// EMAIL_MODE=log in development.
type LogTransport struct {
	logger *zap.Logger
}

func NewLogTransport(logger *zap.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Send(ctx context.Context, msg *model.EmailMessage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := "log-" + uuid.NewString()
	t.logger.Info("email (log transport)",
		zap.String("message_id", id),
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("category", string(msg.Category)),
		zap.String("text", msg.Text),
	)
	return id, nil
}
