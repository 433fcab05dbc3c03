package email

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/grcwatch/notify-engine/internal/logger"
)

// LogSender writes messages to the log instead of sending them.
type LogSender struct {
	log logger.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(log logger.Logger) *LogSender {
	return &LogSender{log: log.Module("email")}
}

func (s *LogSender) Send(ctx context.Context, msg *Message) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validate(msg); err != nil {
		return nil, err
	}
	id := uuid.NewString()
	s.log.Info("email (log transport)",
		logger.String("message_id", id),
		logger.String("to", msg.To),
		logger.String("subject", msg.Subject),
		logger.Int("body_bytes", len(msg.Body)))
	return &Receipt{Success: true, MessageID: id, Timestamp: time.Now().UTC()}, nil
}
