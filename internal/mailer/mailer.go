// Package mailer renders and sends transactional email.
package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/flicky/go-storefront/internal/config"
	"github.com/flicky/go-storefront/internal/model"
)

type Mailer interface {
	SendReceipt(ctx context.Context, order *model.Order) error
}

type sendClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

type SendGridMailer struct {
	client  sendClient
	from    *mail.Email
	appName string
}

func NewSendGrid(cfg config.SendGridConfig, appName string) *SendGridMailer {
	return &SendGridMailer{
		client:  sendgrid.NewSendClient(cfg.APIKey),
		from:    mail.NewEmail(cfg.FromName, cfg.FromEmail),
		appName: appName,
	}
}

func (m *SendGridMailer) SendReceipt(ctx context.Context, order *model.Order) error {
	subject, body, err := RenderReceipt(m.appName, order)
	if err != nil {
		return err
	}
	to := mail.NewEmail(order.UserName, order.UserEmail)
	msg := mail.NewSingleEmail(m.from, subject, to, "", body)

	resp, err := m.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("send receipt: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("send receipt: sendgrid status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
