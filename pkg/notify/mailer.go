package notify

import (
	"context"
	"fmt"

	"github.com/example/storefront/pkg/config"
	"github.com/mailgun/mailgun-go/v4"
)

type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, m Message) error
}

type MailgunMailer struct {
	mg *mailgun.MailgunImpl
}

func NewMailgunMailer(cfg *config.MailgunConfig) *MailgunMailer {
	return &MailgunMailer{mg: mailgun.NewMailgun(cfg.Domain, cfg.APIKey)}
}

func (m *MailgunMailer) Send(ctx context.Context, msg Message) error {
	message := m.mg.NewMessage(msg.From, msg.Subject, "", msg.To)
	message.SetHtml(msg.HTML)

	if _, _, err := m.mg.Send(ctx, message); err != nil {
		return fmt.Errorf("mailgun send to %s: %w", msg.To, err)
	}
	return nil
}
