package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"golang.org/x/time/rate"

	"daily-tracker/internal/config"
	"daily-tracker/internal/model"
)

// SMSAPI is the part of the Twilio REST API the channel uses.
type SMSAPI interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// NewTwilioAPI returns a Twilio client, or nil when credentials are missing.
func NewTwilioAPI(cfg config.TwilioConfig) SMSAPI {
	if !cfg.Configured() {
		return nil
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return client.Api
}

type SMSChannel struct {
	api     SMSAPI
	from    string
	limiter *rate.Limiter
}

func NewSMSChannel(api SMSAPI, from string, limiter *rate.Limiter) *SMSChannel {
	return &SMSChannel{api: api, from: from, limiter: limiter}
}

func (c *SMSChannel) Name() string { return ChannelSMS }

func (c *SMSChannel) Enabled(p model.UserPreferences) bool { return p.EnableSMS }

func (c *SMSChannel) Configured() bool { return c.api != nil }

// Send requires an E.164 number with a leading '+'.
func (c *SMSChannel) Send(ctx context.Context, r Reminder) error {
	if c.api == nil {
		return ErrUnconfigured
	}
	to := strings.TrimSpace(r.Prefs.PhoneNumber)
	if !strings.HasPrefix(to, "+") {
		return ErrBadRecipient
	}
	if err := wait(ctx, c.limiter); err != nil {
		return fmt.Errorf("sms: %w", err)
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(c.from)
	params.SetBody(SMSText(r.Task, r.Type))

	err := callWithContext(ctx, func() error {
		_, err := c.api.CreateMessage(params)
		return err
	})
	if err != nil {
		return fmt.Errorf("sms: %w", err)
	}
	return nil
}
