package utils

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/smtp"
	"strconv"

	"github.com/jordan-wright/email"
	"go.uber.org/zap"
)

// GenerateOTP returns a uniformly random six digit code in [100000, 999999].
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}

// Mail is one outbound message with a plain-text and an HTML body.
type Mail struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers transactional email.
type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

// SMTPConfig holds the SMTP relay credentials.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
}

// Configured reports whether enough is set to talk to a relay.
func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.Port != 0 && c.From != ""
}

// SMTPMailer sends mail through an SMTP relay.
type SMTPMailer struct {
	cfg SMTPConfig
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// Send sends m. The context is only checked before dialing; the SMTP client
// has no cancellation of its own.
func (s *SMTPMailer) Send(ctx context.Context, m Mail) error {
	if !s.cfg.Configured() {
		return errors.New("smtp not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e := email.NewEmail()
	e.From = s.cfg.From
	if s.cfg.FromName != "" {
		e.From = fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.From)
	}
	e.To = []string{m.To}
	e.Subject = m.Subject
	e.Text = []byte(m.Text)
	e.HTML = []byte(m.HTML)

	var auth smtp.Auth
	if s.cfg.User != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
	}
	addr := s.cfg.Host + ":" + strconv.Itoa(s.cfg.Port)
	if err := e.Send(addr, auth); err != nil {
		return fmt.Errorf("smtp send to %s: %w", m.To, err)
	}
	return nil
}

// LogMailer writes mail to the log instead of sending it. Used in
// development when no relay is configured.
type LogMailer struct {
	log *zap.Logger
}

func NewLogMailer(log *zap.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (l *LogMailer) Send(_ context.Context, m Mail) error {
	l.log.Info("mail not sent, smtp not configured (dev-only)",
		zap.String("to", m.To),
		zap.String("subject", m.Subject),
		zap.String("text", m.Text),
	)
	return nil
}
