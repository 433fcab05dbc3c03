// Package email delivers rendered notifications by email.
package email

import (
	"context"
	"time"
)

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	Body    string
	// HTML is an optional alternative body.
	HTML string
}

// Receipt acknowledges an accepted message.
type Receipt struct {
	Success   bool      `json:"success"`
	MessageID string    `json:"messageId"`
	Timestamp time.Time `json:"timestamp"`
}

// Sender delivers a message. Failures are returned as errors, never as a
// receipt with Success false.
type Sender interface {
	Send(ctx context.Context, msg *Message) (*Receipt, error)
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, msg *Message) (*Receipt, error)

func (f SenderFunc) Send(ctx context.Context, msg *Message) (*Receipt, error) { return f(ctx, msg) }
