// Package mailer sends transactional email. The smtp driver talks to a real
// relay; the log driver writes messages to the logger for development.
package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/agriconnect/farmerportal/pkg/idx"
	"github.com/agriconnect/farmerportal/pkg/slogx"
)

// Mailer delivers one HTML message.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

var ErrInvalidAddress = errors.New("mailer: invalid address")

// SMTPConfig configures an SMTP relay. Username empty disables auth.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	Timeout  time.Duration
}

// SMTPMailer sends through an SMTP relay using STARTTLS when offered.
type SMTPMailer struct {
	cfg SMTPConfig

	// sendMail is swapped in tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, errors.New("mailer: smtp host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if !validAddress(cfg.From) {
		return nil, fmt.Errorf("%w: from %q", ErrInvalidAddress, cfg.From)
	}
	return &SMTPMailer{cfg: cfg, sendMail: smtp.SendMail}, nil
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, html string) error {
	if !validAddress(to) {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, to)
	}
	msg := buildMessage(m.cfg.FromName, m.cfg.From, to, subject, html, time.Now())

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))

	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- m.sendMail(addr, auth, m.cfg.From, []string{to}, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("mailer: smtp send: %w", err)
		}
		slogx.FromContext(ctx).Info("mail sent", slog.String("to", to), slog.String("subject", subject))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("mailer: smtp send: %w", ctx.Err())
	}
}

func buildMessage(fromName, from, to, subject, html string, now time.Time) []byte {
	var b bytes.Buffer
	sender := from
	if fromName != "" {
		sender = mime.QEncoding.Encode("utf-8", fromName) + " <" + from + ">"
	}
	domainPart := from[strings.LastIndexByte(from, '@')+1:]

	fmt.Fprintf(&b, "From: %s\r\n", sender)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Date: %s\r\n", now.Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Message-ID: <%s@%s>\r\n", idx.New(), domainPart)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	b.WriteString(strings.ReplaceAll(html, "\n", "\r\n"))
	return b.Bytes()
}

func validAddress(s string) bool {
	at := strings.LastIndexByte(s, '@')
	return at > 0 && at < len(s)-1 && !strings.ContainsAny(s, "\r\n<> ")
}

// LogMailer writes messages to the logger instead of sending them. It is
// meant for development, where reading the code from the log is the point.
type LogMailer struct {
	Logger *slog.Logger
}

func (m *LogMailer) Send(ctx context.Context, to, subject, html string) error {
	if !validAddress(to) {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, to)
	}
	log := m.Logger
	if log == nil {
		log = slogx.FromContext(ctx)
	}
	log.Info("mail (log driver)",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.String("body", html),
	)
	return nil
}
