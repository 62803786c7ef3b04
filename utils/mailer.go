package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/cppla/quillpost/config"
)

// ErrMailerNotConfigured is returned when no SMTP host or sender is set.
var ErrMailerNotConfigured = errors.New("smtp not configured")

// Mail is a single outbound message with a plain text and an HTML body.
type Mail struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// SMTPMailer delivers messages through the configured SMTP relay.
type SMTPMailer struct {
	cfg config.AppConfig
	log *zap.Logger
}

// NewSMTPMailer creates an SMTPMailer from config.
func NewSMTPMailer(cfg config.AppConfig, log *zap.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, log: log.Named("mailer")}
}

// Send dials the relay, delivers m and hangs up.
func (s *SMTPMailer) Send(ctx context.Context, m Mail) error {
	if s.cfg.SMTPHost == "" || s.cfg.SMTPFrom == "" {
		return ErrMailerNotConfigured
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(s.cfg.SMTPFromName, s.cfg.SMTPFrom); err != nil {
		return fmt.Errorf("mailer: from address: %w", err)
	}
	if err := msg.To(m.To); err != nil {
		return fmt.Errorf("mailer: recipient: %w", err)
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(mail.TypeTextPlain, m.Text)
	if m.HTML != "" {
		msg.AddAlternativeString(mail.TypeTextHTML, m.HTML)
	}

	client, err := mail.NewClient(s.cfg.SMTPHost, s.clientOptions()...)
	if err != nil {
		return fmt.Errorf("mailer: client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		s.log.Error("send failed", zap.String("to", m.To), zap.String("subject", m.Subject), zap.Error(err))
		return fmt.Errorf("mailer: send: %w", err)
	}
	s.log.Info("mail sent", zap.String("to", m.To), zap.String("subject", m.Subject))
	return nil
}

func (s *SMTPMailer) clientOptions() []mail.Option {
	policy := mail.TLSOpportunistic
	if s.cfg.SMTPTLS {
		policy = mail.TLSMandatory
	}
	opts := []mail.Option{
		mail.WithPort(s.cfg.SMTPPort),
		mail.WithTLSPolicy(policy),
		mail.WithTimeout(time.Duration(nz(s.cfg.SMTPTimeoutSec, 15)) * time.Second),
	}
	if s.cfg.SMTPUsername != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.SMTPUsername),
			mail.WithPassword(s.cfg.SMTPPassword),
		)
	}
	return opts
}
