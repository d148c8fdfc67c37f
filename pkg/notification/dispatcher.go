// Package notification delivers lifecycle messages to users over the
// channels they have enabled.
package notification

import (
	"Surplus-Share-Backend/entities"
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
)

var ErrUnknownTemplate = errors.New("unknown notification template")

type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeSkipped Outcome = "skipped"
)

// Recipient is a user's address book entry plus their channel preferences.
type Recipient struct {
	UserID       string
	Name         string
	Email        string
	Phone        string
	EmailEnabled bool
	SMSEnabled   bool
	WebEnabled   bool
}

func RecipientFromUser(u *entities.User) Recipient {
	return Recipient{
		UserID:       u.ID.String(),
		Name:         u.Name,
		Email:        u.Email,
		Phone:        u.Phone,
		EmailEnabled: u.EmailNotifications,
		SMSEnabled:   u.SMSNotifications,
		WebEnabled:   u.WebNotifications,
	}
}

type Message struct {
	Subject  string
	HTMLBody string
}

// Channel is one delivery transport. Accepts reports whether the channel is
// configured and the recipient opted in; channels that do not accept are
// skipped without error.
type Channel interface {
	Name() string
	Accepts(r Recipient) bool
	Send(ctx context.Context, r Recipient, msg Message) error
}

type Notifier interface {
	Notify(ctx context.Context, r Recipient, templateKey string, payload map[string]any) (Outcome, error)
}

type Dispatcher struct {
	channels  []Channel
	templates map[string]messageTemplate
}

func NewDispatcher(channels ...Channel) (*Dispatcher, error) {
	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	return &Dispatcher{channels: channels, templates: templates}, nil
}

// Notify renders templateKey and sends it on every accepting channel. The
// outcome is sent when at least one channel delivered it.
func (d *Dispatcher) Notify(ctx context.Context, r Recipient, templateKey string, payload map[string]any) (Outcome, error) {
	tmpl, ok := d.templates[templateKey]
	if !ok {
		return OutcomeSkipped, fmt.Errorf("%w: %s", ErrUnknownTemplate, templateKey)
	}

	data := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		data[k] = v
	}
	if _, ok := data["Name"]; !ok {
		data["Name"] = r.Name
	}

	msg, err := tmpl.render(data)
	if err != nil {
		return OutcomeSkipped, fmt.Errorf("render %s: %w", templateKey, err)
	}

	var errs []error
	sent := false
	for _, ch := range d.channels {
		if !ch.Accepts(r) {
			continue
		}
		if err := ch.Send(ctx, r, msg); err != nil {
			log.Warnw("notification channel failed", "channel", ch.Name(), "template", templateKey, "user_id", r.UserID, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
			continue
		}
		sent = true
	}

	if sent {
		return OutcomeSent, nil
	}
	if len(errs) > 0 {
		return OutcomeSkipped, errors.Join(errs...)
	}
	return OutcomeSkipped, nil
}
