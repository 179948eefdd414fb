package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
	mail "gopkg.in/mail.v2"

	"daily-tracker/internal/config"
	"daily-tracker/internal/model"
)

// MailSender is satisfied by *mail.Dialer.
type MailSender interface {
	DialAndSend(m ...*mail.Message) error
}

// NewSMTPSender builds an SMTP dialer, or returns nil when credentials are
// missing.
func NewSMTPSender(cfg config.EmailConfig, timeout time.Duration) MailSender {
	if !cfg.Configured() {
		return nil
	}
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	d.Timeout = timeout
	return d
}

type EmailChannel struct {
	sender  MailSender
	from    string
	limiter *rate.Limiter
}

// NewEmailChannel returns a channel that is permanently disabled when sender
// is nil.
func NewEmailChannel(sender MailSender, from string, limiter *rate.Limiter) *EmailChannel {
	return &EmailChannel{sender: sender, from: from, limiter: limiter}
}

func (c *EmailChannel) Name() string { return ChannelEmail }

func (c *EmailChannel) Enabled(p model.UserPreferences) bool { return p.EnableEmail }

func (c *EmailChannel) Configured() bool { return c.sender != nil }

func (c *EmailChannel) Send(ctx context.Context, r Reminder) error {
	if c.sender == nil {
		return ErrUnconfigured
	}
	to := strings.TrimSpace(r.Prefs.Email)
	if !strings.Contains(to, "@") {
		return ErrBadRecipient
	}
	if err := wait(ctx, c.limiter); err != nil {
		return fmt.Errorf("email: %w", err)
	}

	m := mail.NewMessage()
	m.SetHeader("From", c.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", EmailSubject(r.Task, r.Type))
	m.SetBody("text/html", EmailBody(r.Task, r.Type))

	if err := callWithContext(ctx, func() error { return c.sender.DialAndSend(m) }); err != nil {
		return fmt.Errorf("email: %w", err)
	}
	return nil
}
