package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogTransport writes messages to the log instead of sending them.
type LogTransport struct {
	logger *zap.Logger
}

func NewLogTransport(logger *zap.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

func (t *LogTransport) Send(_ context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	t.logger.Info("email (log transport)",
		zap.String("kind", msg.Kind),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}
