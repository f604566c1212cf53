package otp_test

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/agriconnect/farmerportal/internal/portal/otp"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type outbox struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (o *outbox) Send(_ context.Context, to, subject, html string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.sent = append(o.sent, to+"|"+subject+"|"+html)
	return nil
}

func newVerifier(t *testing.T) (*otp.Verifier, *otp.MemoryStore, *clock, *outbox) {
	t.Helper()
	store := otp.NewMemoryStore()
	mail := &outbox{}
	clk := &clock{now: time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)}
	v := otp.NewVerifier(store, mail)
	v.Now = clk.Now
	return v, store, clk, mail
}

var sixDigits = regexp.MustCompile(`^[1-9]\d{5}$`)

func TestIssue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	v, store, clk, mail := newVerifier(t)

	code, err := v.Issue(ctx, "Ravi@Example.IN", "Ravi")
	require.NoError(t, err)
	require.Regexp(t, sixDigits, code)

	c, err := store.Get(ctx, "ravi@example.in")
	require.NoError(t, err)
	require.NotContains(t, c.HashedCode, code)
	require.Len(t, c.HashedCode, 43)
	require.Equal(t, clk.Now().Add(5*time.Minute), c.ExpiresAt)
	require.Zero(t, c.Attempts)

	require.Len(t, mail.sent, 1)
	require.True(t, strings.HasPrefix(mail.sent[0], "ravi@example.in|"))
	require.Contains(t, mail.sent[0], code)
	require.Contains(t, mail.sent[0], "Ravi")
}

func TestIssueCodesStayInRange(t *testing.T) {
	t.Parallel()
	v, _, _, _ := newVerifier(t)
	for range 200 {
		code, err := v.Issue(context.Background(), "range@example.in", "")
		require.NoError(t, err)
		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, 100000)
		require.LessOrEqual(t, n, 999999)
	}
}

func TestIssueReplacesEarlierChallenge(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	v, store, _, _ := newVerifier(t)

	first, err := v.Issue(ctx, "a@example.in", "A")
	require.NoError(t, err)
	second, err := v.Issue(ctx, "a@example.in", "A")
	require.NoError(t, err)
	require.Equal(t, 1, store.Len())

	if first != second {
		res, err := v.Verify(ctx, "a@example.in", first)
		require.NoError(t, err)
		require.False(t, res.Valid)
	}
	res, err := v.Verify(ctx, "a@example.in", second)
	require.NoError(t, err)
	require.True(t, res.Valid)
}

func TestIssueDeliveryFailureWithdrawsChallenge(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	v, store, _, mail := newVerifier(t)
	mail.err = errors.New("smtp down")

	_, err := v.Issue(ctx, "a@example.in", "A")
	require.ErrorIs(t, err, otp.ErrDelivery)
	require.Zero(t, store.Len())
}

// reissueSender fails its first delivery after a second Issue for the same
// address has already stored a newer challenge.
type reissueSender struct {
	v     *otp.Verifier
	calls int
	code  string
}

func (s *reissueSender) Send(ctx context.Context, to, _, _ string) error {
	s.calls++
	if s.calls > 1 {
		return nil
	}
	code, err := s.v.Issue(ctx, to, "")
	if err != nil {
		return err
	}
	s.code = code
	return errors.New("smtp timeout")
}

func TestIssueDeliveryFailureKeepsNewerChallenge(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	v, store, _, _ := newVerifier(t)
	sender := &reissueSender{v: v}
	v.Sender = sender

	_, err := v.Issue(ctx, "a@example.in", "A")
	require.ErrorIs(t, err, otp.ErrDelivery)
	require.Equal(t, 2, sender.calls)
	require.Equal(t, 1, store.Len())

	res, err := v.Verify(ctx, "a@example.in", sender.code)
	require.NoError(t, err)
	require.True(t, res.Valid)
}

func TestVerifySingleUse(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	v, _, _, _ := newVerifier(t)

	code, err := v.Issue(ctx, "a@example.in", "A")
	require.NoError(t, err)

	res, err := v.Verify(ctx, "A@EXAMPLE.IN", code)
	require.NoError(t, err)
	require.Equal(t, otp.Result{Valid: true}, res)

	res, err = v.Verify(ctx, "a@example.in", code)
	require.NoError(t, err)
	require.Equal(t, otp.ReasonNotFound, res.Reason)
}

func TestVerifyExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("valid at exactly five minutes", func(t *testing.T) {
		v, _, clk, _ := newVerifier(t)
		code, err := v.Issue(ctx, "a@example.in", "A")
		require.NoError(t, err)
		clk.Advance(5 * time.Minute)

		res, err := v.Verify(ctx, "a@example.in", code)
		require.NoError(t, err)
		require.True(t, res.Valid)
	})

	t.Run("expired one second later", func(t *testing.T) {
		v, store, clk, _ := newVerifier(t)
		code, err := v.Issue(ctx, "a@example.in", "A")
		require.NoError(t, err)
		clk.Advance(5*time.Minute + time.Second)

		res, err := v.Verify(ctx, "a@example.in", code)
		require.NoError(t, err)
		require.Equal(t, otp.ReasonExpired, res.Reason)
		require.Zero(t, store.Len(), "expired challenge is deleted")
	})
}

func TestVerifyLockout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	v, store, _, _ := newVerifier(t)

	code, err := v.Issue(ctx, "a@example.in", "A")
	require.NoError(t, err)
	wrong := "000000"

	for i := 1; i <= 3; i++ {
		res, err := v.Verify(ctx, "a@example.in", wrong)
		require.NoError(t, err)
		require.Equal(t, otp.ReasonInvalidCode, res.Reason)

		c, err := store.Get(ctx, "a@example.in")
		require.NoError(t, err)
		require.Equal(t, i, c.Attempts)
	}

	res, err := v.Verify(ctx, "a@example.in", code)
	require.NoError(t, err)
	require.Equal(t, otp.ReasonTooManyAttempts, res.Reason)

	res, err = v.Verify(ctx, "a@example.in", code)
	require.NoError(t, err)
	require.Equal(t, otp.ReasonNotFound, res.Reason)
}

func TestVerifyConcurrentSubmissionsConsumeOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	v, _, _, _ := newVerifier(t)

	code, err := v.Issue(ctx, "a@example.in", "A")
	require.NoError(t, err)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		valid int
	)
	for range 10 {
		wg.Go(func() {
			res, err := v.Verify(ctx, "a@example.in", code)
			if err == nil && res.Valid {
				mu.Lock()
				valid++
				mu.Unlock()
			}
		})
	}
	wg.Wait()
	require.Equal(t, 1, valid)
}

func TestSweep(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	v, store, clk, _ := newVerifier(t)

	_, err := v.Issue(ctx, "old@example.in", "")
	require.NoError(t, err)
	clk.Advance(4 * time.Minute)
	_, err = v.Issue(ctx, "new@example.in", "")
	require.NoError(t, err)
	clk.Advance(2 * time.Minute)

	n, err := v.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, err = store.Get(ctx, "old@example.in")
	require.ErrorIs(t, err, otp.ErrNotFound)
	_, err = store.Get(ctx, "new@example.in")
	require.NoError(t, err)
}
