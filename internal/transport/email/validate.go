package email

import (
	"net/mail"

	"github.com/grcwatch/notify-engine/internal/errors"
)

func validate(msg *Message) error {
	if msg == nil {
		return errors.Newf("email message is nil").
			Component("email").
			Category(errors.CategoryValidation).
			Build()
	}
	if _, err := mail.ParseAddress(msg.To); err != nil {
		return errors.Newf("invalid recipient address %q: %w", msg.To, err).
			Component("email").
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}
