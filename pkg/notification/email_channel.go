package notification

import (
	"context"
)

// MailSender is satisfied by mailing.Mailer.
type MailSender interface {
	Configured() bool
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type EmailChannel struct {
	mailer MailSender
}

func NewEmailChannel(mailer MailSender) *EmailChannel {
	return &EmailChannel{mailer: mailer}
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Accepts(r Recipient) bool {
	return r.EmailEnabled && r.Email != "" && c.mailer != nil && c.mailer.Configured()
}

func (c *EmailChannel) Send(ctx context.Context, r Recipient, msg Message) error {
	return c.mailer.Send(ctx, r.Email, msg.Subject, msg.HTMLBody)
}
