package mailing

import (
	"Surplus-Share-Backend/internal/utils"
	"context"
	"errors"
	"strconv"
	"time"

	retry "github.com/codeGROOVE-dev/retry-go"
	"github.com/gofiber/fiber/v2/log"
	"gopkg.in/gomail.v2"
)

var ErrMailerNotConfigured = errors.New("smtp is not configured")

type MailConfig struct {
	AppURL       string
	SMTPHost     string
	SMTPPort     string
	SMTPSender   string
	SMTPEmail    string
	SMTPPassword string
}

func LoadMailConfig() MailConfig {
	return MailConfig{
		AppURL:       utils.GetConfig("APP_URL"),
		SMTPHost:     utils.GetConfig("SMTP_HOST"),
		SMTPPort:     utils.GetConfig("SMTP_PORT"),
		SMTPSender:   utils.GetConfig("SMTP_SENDER_NAME"),
		SMTPEmail:    utils.GetConfig("SMTP_AUTH_EMAIL"),
		SMTPPassword: utils.GetConfig("SMTP_AUTH_PASSWORD"),
	}
}

type Mailer struct {
	config   MailConfig
	attempts uint
}

func NewMailer(config MailConfig) *Mailer {
	return &Mailer{config: config, attempts: 3}
}

func (m *Mailer) Configured() bool {
	return m.config.SMTPHost != "" && m.config.SMTPPort != "" && m.config.SMTPEmail != ""
}

func (m *Mailer) message(toEmail, subject, body string) *gomail.Message {
	mailer := gomail.NewMessage()
	if m.config.SMTPSender != "" {
		mailer.SetAddressHeader("From", m.config.SMTPEmail, m.config.SMTPSender)
	} else {
		mailer.SetHeader("From", m.config.SMTPEmail)
	}
	mailer.SetHeader("To", toEmail)
	mailer.SetHeader("Subject", subject)
	mailer.SetBody("text/html", body)
	return mailer
}

// Send delivers one HTML email, retrying transient SMTP failures.
func (m *Mailer) Send(ctx context.Context, toEmail, subject, body string) error {
	if !m.Configured() {
		return ErrMailerNotConfigured
	}
	port, err := strconv.Atoi(m.config.SMTPPort)
	if err != nil {
		return err
	}
	dialer := gomail.NewDialer(
		m.config.SMTPHost,
		port,
		m.config.SMTPEmail,
		m.config.SMTPPassword,
	)
	msg := m.message(toEmail, subject, body)

	return retry.Do(
		func() error {
			return dialer.DialAndSend(msg)
		},
		retry.Attempts(m.attempts),
		retry.Delay(time.Second),
		retry.MaxDelay(30*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			log.Warnw("smtp send failed, will retry", "attempt", n+1, "to", toEmail, "error", err)
		}),
	)
}
