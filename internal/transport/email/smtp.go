package email

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/grcwatch/notify-engine/internal/errors"
	"gopkg.in/gomail.v2"
)

// SMTPConfig configures the gomail dialer.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender dials the SMTP server for each message.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPSender creates a sender for cfg.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg *Message) (*Receipt, error) {
	if err := validate(msg); err != nil {
		return nil, err
	}
	id := uuid.NewString()
	m := buildMessage(s.from, id, msg)

	done := make(chan error, 1)
	go func() { done <- s.dialer.DialAndSend(m) }()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-done:
		if err != nil {
			return nil, errors.New(err).
				Component("email").
				Category(errors.CategoryDelivery).
				Context("transport", "smtp").
				Context("host", s.dialer.Host).
				Build()
		}
	}
	return &Receipt{Success: true, MessageID: id, Timestamp: time.Now().UTC()}, nil
}

func buildMessage(from, id string, msg *Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-ID", fmt.Sprintf("<%s@notify-engine>", id))
	m.SetBody("text/plain", msg.Body)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}
	return m
}
