// Package mail delivers the digest over authenticated SMTP.
package mail

import (
	"context"
	"fmt"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"

	"LiteratureDigest/internal/config"
	"LiteratureDigest/internal/domain"
	"LiteratureDigest/internal/ports"
)

// Mailer sends one plain-text message per call: connect, login, send, quit.
type Mailer struct {
	server    string
	port      int
	tlsPolicy string
	sender    string
	recipient string
	password  string
	timeout   time.Duration
}

var _ ports.Mailer = (*Mailer)(nil)

// NewMailer registers the SMTP endpoint and the account used to submit the digest.
func NewMailer(cfg config.MailConfig, timeout time.Duration) *Mailer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Mailer{
		server:    cfg.Server,
		port:      cfg.Port,
		tlsPolicy: strings.ToLower(cfg.TLSPolicy),
		sender:    cfg.Sender,
		recipient: cfg.Recipient,
		password:  cfg.Password,
		timeout:   timeout,
	}
}

// Send delivers the digest to the configured recipient.
func (m *Mailer) Send(ctx context.Context, subject, body string) error {
	if m.server == "" || m.sender == "" || m.recipient == "" || m.password == "" {
		return fmt.Errorf("mailer misconfigured")
	}

	msg, err := m.buildMessage(subject, body)
	if err != nil {
		return err
	}

	client, err := m.newClient()
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("%w: send mail via %s: %v", domain.ErrFetch, client.ServerAddr(), err)
	}
	return nil
}

func (m *Mailer) buildMessage(subject, body string) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(m.sender); err != nil {
		return nil, fmt.Errorf("sender %q: %w", m.sender, err)
	}
	if err := msg.To(m.recipient); err != nil {
		return nil, fmt.Errorf("recipient %q: %w", m.recipient, err)
	}
	msg.Subject(subject)
	msg.SetDate()
	msg.SetBodyString(gomail.TypeTextPlain, body)
	return msg, nil
}

func (m *Mailer) newClient() (*gomail.Client, error) {
	opts := []gomail.Option{
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(m.sender),
		gomail.WithPassword(m.password),
		gomail.WithTimeout(m.timeout),
	}

	switch m.tlsPolicy {
	case "ssl":
		opts = append(opts, gomail.WithSSLPort(false))
	case "opportunistic":
		opts = append(opts, gomail.WithTLSPortPolicy(gomail.TLSOpportunistic))
	case "none":
		opts = append(opts, gomail.WithTLSPortPolicy(gomail.NoTLS))
	default:
		opts = append(opts, gomail.WithTLSPortPolicy(gomail.TLSMandatory))
	}

	// explicit port last so it wins over the policy defaults
	if m.port > 0 {
		opts = append(opts, gomail.WithPort(m.port))
	}

	return gomail.NewClient(m.server, opts...)
}
