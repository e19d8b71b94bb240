// Package mailer packages rendered artifacts as an email and hands it to the SMTP transport.
package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/textproto"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/wneessen/go-mail"

	"github.com/poliacredita/qdigest/internal/config"
	qerrors "github.com/poliacredita/qdigest/internal/errors"
)

const (
	ContentTypeText = "text/plain"
	ContentTypeJSON = "application/json"
)

// Attachment is one file carried by the message.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Envelope is everything needed to compose one report message.
type Envelope struct {
	Subject     string
	Body        string
	Recipients  []string
	Attachments []Attachment
}

// Sender delivers a composed message.
type Sender interface {
	Send(ctx context.Context, msg *mail.Msg) error
}

// Distributor composes messages from the configured sender address.
type Distributor struct {
	from   string
	sender Sender
	logger hclog.Logger
}

// NewDistributor creates a Distributor that sends as from.
func NewDistributor(from string, sender Sender, logger hclog.Logger) *Distributor {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Distributor{from: from, sender: sender, logger: logger}
}

// Distribute composes the message and sends it. Rejected credentials yield AuthenticationError; any other
// failure yields DeliveryError. Attachments are never touched on disk.
func (d *Distributor) Distribute(ctx context.Context, env Envelope) error {
	const op = "mailer.distribute"

	if len(env.Recipients) == 0 {
		return qerrors.Newf(qerrors.KindDelivery, op, "no recipients")
	}
	msg, err := Compose(d.from, env)
	if err != nil {
		return qerrors.New(qerrors.KindDelivery, op, err)
	}

	if err := d.sender.Send(ctx, msg); err != nil {
		if IsAuthError(err) {
			return qerrors.New(qerrors.KindAuthentication, op, err)
		}
		return qerrors.New(qerrors.KindDelivery, op, err)
	}

	d.logger.Info("report sent", "recipients", strings.Join(env.Recipients, ", "), "attachments", len(env.Attachments))
	return nil
}

// Compose builds the multipart message: a plain-text body followed by the attachments in order.
func Compose(from string, env Envelope) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(env.Recipients...); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(env.Subject)
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextPlain, env.Body)

	for _, a := range env.Attachments {
		ct := a.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		msg.AttachReadSeeker(a.Name, bytes.NewReader(a.Data), mail.WithFileContentType(mail.ContentType(ct)))
	}
	return msg, nil
}

// IsAuthError reports whether err is an SMTP authentication rejection.
func IsAuthError(err error) bool {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		switch tpErr.Code {
		case 530, 534, 535:
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "smtp auth failed") || strings.Contains(msg, "authentication failed")
}

// SMTPSender delivers over SMTP with mandatory STARTTLS and PLAIN authentication.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	timeout  time.Duration
}

// NewSMTPSender creates a sender from the email configuration.
func NewSMTPSender(cfg config.Email) *SMTPSender {
	return &SMTPSender{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.Sender,
		password: cfg.Password,
		timeout:  cfg.Timeout,
	}
}

// Send dials the server, authenticates and delivers msg.
func (s *SMTPSender) Send(ctx context.Context, msg *mail.Msg) error {
	opts := []mail.Option{
		mail.WithPort(s.port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.username),
		mail.WithPassword(s.password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	}
	if s.timeout > 0 {
		opts = append(opts, mail.WithTimeout(s.timeout))
	}

	client, err := mail.NewClient(s.host, opts...)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	return client.DialAndSendWithContext(ctx, msg)
}
