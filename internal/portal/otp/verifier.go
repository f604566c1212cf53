package otp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"strconv"
	"time"

	"github.com/agriconnect/farmerportal/internal/portal/domain"
	"github.com/agriconnect/farmerportal/pkg/cryptox"
	"github.com/agriconnect/farmerportal/pkg/slogx"
)

// ErrDelivery wraps a mail failure during Issue. The challenge is withdrawn.
var ErrDelivery = errors.New("otp: code delivery failed")

// Sender delivers the code to the farmer.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// Verifier issues codes and checks them against the Store.
type Verifier struct {
	Store       Store
	Sender      Sender
	TTL         time.Duration
	MaxAttempts int
	AppName     string
	Now         func() time.Time

	locks keyedMutex
}

func NewVerifier(store Store, sender Sender) *Verifier {
	return &Verifier{
		Store:       store,
		Sender:      sender,
		TTL:         DefaultTTL,
		MaxAttempts: DefaultMaxAttempts,
		AppName:     "Krushi Mithra",
		Now:         time.Now,
	}
}

func (v *Verifier) now() time.Time {
	if v.Now == nil {
		return time.Now().UTC()
	}
	return v.Now().UTC()
}

func (v *Verifier) ttl() time.Duration {
	if v.TTL <= 0 {
		return DefaultTTL
	}
	return v.TTL
}

func (v *Verifier) maxAttempts() int {
	if v.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return v.MaxAttempts
}

// Issue generates a fresh code for email, replaces any earlier challenge
// and mails the code. The plaintext code is returned for the caller's own
// use and is never stored.
func (v *Verifier) Issue(ctx context.Context, email, displayName string) (string, error) {
	email = domain.NormalizeEmail(email)
	n, err := cryptox.RandomInt(codeMin, codeMax)
	if err != nil {
		return "", fmt.Errorf("otp: generate code: %w", err)
	}
	code := strconv.FormatInt(n, 10)

	unlock := v.locks.Lock(email)
	err = v.Store.Put(ctx, Challenge{
		Email:      email,
		HashedCode: hashCode(code),
		ExpiresAt:  v.now().Add(v.ttl()),
	})
	unlock()
	if err != nil {
		return "", fmt.Errorf("otp: store challenge: %w", err)
	}

	html, err := v.render(displayName, code)
	if err != nil {
		return "", err
	}
	subject := "Your " + v.AppName + " verification code"
	if err := v.Sender.Send(ctx, email, subject, html); err != nil {
		if werr := v.withdraw(ctx, email, code); werr != nil {
			slogx.FromContext(ctx).Warn("otp withdraw failed", slog.String("email", email), slog.Any("error", werr))
		}
		return "", fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	slogx.FromContext(ctx).Info("otp issued", slog.String("email", email), slog.Duration("ttl", v.ttl()))
	return code, nil
}

// withdraw deletes the challenge for email only while it still holds code,
// so a newer Issue that raced the failed delivery keeps its challenge.
func (v *Verifier) withdraw(ctx context.Context, email, code string) error {
	unlock := v.locks.Lock(email)
	defer unlock()

	c, err := v.Store.Get(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !codeMatches(code, c.HashedCode) {
		return nil
	}
	return v.Store.Delete(ctx, email)
}

// Verify checks code against the challenge for email. Checks run in a fixed
// order: missing, expired, locked out, wrong code. Expired and locked out
// challenges are deleted; a wrong code counts an attempt; a match consumes
// the challenge.
func (v *Verifier) Verify(ctx context.Context, email, code string) (Result, error) {
	email = domain.NormalizeEmail(email)
	unlock := v.locks.Lock(email)
	defer unlock()

	log := slogx.FromContext(ctx).With(slog.String("email", email))

	c, err := v.Store.Get(ctx, email)
	if errors.Is(err, ErrNotFound) {
		log.Info("otp verify failed", slog.String("reason", string(ReasonNotFound)))
		return Result{Reason: ReasonNotFound}, nil
	}
	if err != nil {
		return Result{}, err
	}

	if c.Expired(v.now()) {
		if err := v.Store.Delete(ctx, email); err != nil {
			return Result{}, err
		}
		log.Info("otp verify failed", slog.String("reason", string(ReasonExpired)))
		return Result{Reason: ReasonExpired}, nil
	}

	if c.Attempts >= v.maxAttempts() {
		if err := v.Store.Delete(ctx, email); err != nil {
			return Result{}, err
		}
		log.Warn("otp verify failed", slog.String("reason", string(ReasonTooManyAttempts)))
		return Result{Reason: ReasonTooManyAttempts}, nil
	}

	if !codeMatches(code, c.HashedCode) {
		c.Attempts++
		if err := v.Store.Update(ctx, c); err != nil && !errors.Is(err, ErrNotFound) {
			return Result{}, err
		}
		log.Info("otp verify failed", slog.String("reason", string(ReasonInvalidCode)), slog.Int("attempts", c.Attempts))
		return Result{Reason: ReasonInvalidCode}, nil
	}

	if err := v.Store.Delete(ctx, email); err != nil {
		return Result{}, err
	}
	log.Info("otp verified")
	return Result{Valid: true}, nil
}

// Sweep drops expired challenges and returns how many went.
func (v *Verifier) Sweep(ctx context.Context) (int, error) {
	return v.Store.DeleteExpired(ctx, v.now())
}

var mailTemplate = template.Must(template.New("otp").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>{{.App}}</h2>
  <p>Hello {{.Name}},</p>
  <p>Use this code to verify your email address:</p>
  <p style="font-size: 32px; font-weight: bold; letter-spacing: 5px;">{{.Code}}</p>
  <p>The code is valid for <strong>{{.Minutes}} minutes</strong>. Never share it with anyone.</p>
  <p>If you did not request it, ignore this email.</p>
</body>
</html>`))

func (v *Verifier) render(name, code string) (string, error) {
	if name == "" {
		name = "Farmer"
	}
	var buf bytes.Buffer
	err := mailTemplate.Execute(&buf, map[string]any{
		"App":     v.AppName,
		"Name":    name,
		"Code":    code,
		"Minutes": int(v.ttl().Minutes()),
	})
	if err != nil {
		return "", fmt.Errorf("otp: render mail: %w", err)
	}
	return buf.String(), nil
}
