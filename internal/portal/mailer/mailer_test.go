package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewSMTPMailerValidates(t *testing.T) {
	t.Parallel()

	_, err := NewSMTPMailer(SMTPConfig{From: "noreply@portal.in"})
	require.Error(t, err)

	_, err = NewSMTPMailer(SMTPConfig{Host: "smtp.portal.in", From: "not-an-address"})
	require.ErrorIs(t, err, ErrInvalidAddress)

	m, err := NewSMTPMailer(SMTPConfig{Host: "smtp.portal.in", From: "noreply@portal.in"})
	require.NoError(t, err)
	require.Equal(t, 587, m.cfg.Port)
}

func TestSMTPMailerSend(t *testing.T) {
	t.Parallel()

	m, err := NewSMTPMailer(SMTPConfig{
		Host:     "smtp.portal.in",
		Port:     2525,
		Username: "mailer",
		Password: "s3cret",
		From:     "noreply@portal.in",
		FromName: "Krushi Mithra",
	})
	require.NoError(t, err)

	var (
		gotAddr string
		gotTo   []string
		gotMsg  []byte
		gotAuth smtp.Auth
	)
	m.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotTo, gotMsg = addr, a, to, msg
		return nil
	}

	require.NoError(t, m.Send(context.Background(), "ravi@example.in", "Your code", "<p>123456</p>"))
	require.Equal(t, "smtp.portal.in:2525", gotAddr)
	require.NotNil(t, gotAuth)
	require.Equal(t, []string{"ravi@example.in"}, gotTo)

	msg := string(gotMsg)
	require.Contains(t, msg, "To: ravi@example.in\r\n")
	require.Contains(t, msg, "Subject: Your code\r\n")
	require.Contains(t, msg, "<noreply@portal.in>")
	require.Contains(t, msg, "Content-Type: text/html")
	require.True(t, strings.HasSuffix(msg, "<p>123456</p>"))
}

func TestSMTPMailerErrors(t *testing.T) {
	t.Parallel()

	m, err := NewSMTPMailer(SMTPConfig{Host: "smtp.portal.in", From: "noreply@portal.in", Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	require.ErrorIs(t, m.Send(context.Background(), "bad\r\nBcc: x@y.z", "s", "b"), ErrInvalidAddress)

	boom := errors.New("connection refused")
	m.sendMail = func(string, smtp.Auth, string, []string, []byte) error { return boom }
	require.ErrorIs(t, m.Send(context.Background(), "a@example.in", "s", "b"), boom)

	m.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		time.Sleep(time.Second)
		return nil
	}
	require.ErrorIs(t, m.Send(context.Background(), "a@example.in", "s", "b"), context.DeadlineExceeded)
}

func TestLogMailer(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	m := &LogMailer{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}
	require.NoError(t, m.Send(context.Background(), "a@example.in", "Your code", "<b>654321</b>"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "a@example.in", line["to"])
	require.Contains(t, line["body"], "654321")

	require.ErrorIs(t, m.Send(context.Background(), "nope", "s", "b"), ErrInvalidAddress)
}
