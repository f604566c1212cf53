package httpx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/agriconnect/farmerportal/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig is a token bucket holding Burst tokens, refilled at
// RequestsPerWindow per Window.
type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	Burst             int
}

// Default profiles for the portal's endpoint groups.
var (
	// StrictLimit guards credential checks: 5 attempts per 15 minutes.
	StrictLimit = RateLimitConfig{RequestsPerWindow: 5, Window: 15 * time.Minute, Burst: 5}

	// RegistrationLimit guards account creation and OTP mail: 3 per hour.
	RegistrationLimit = RateLimitConfig{RequestsPerWindow: 3, Window: time.Hour, Burst: 3}

	// ModerateLimit for authenticated writes.
	ModerateLimit = RateLimitConfig{RequestsPerWindow: 20, Window: time.Minute, Burst: 20}

	// LenientLimit for authenticated reads: 100 per 15 minutes.
	LenientLimit = RateLimitConfig{RequestsPerWindow: 100, Window: 15 * time.Minute, Burst: 100}

	// PublicLimit for health and docs.
	PublicLimit = RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000}
)

// ParseRateLimit reads "requests/window" or "requests/window/burst", e.g.
// "5/15m" or "20/1m/40". Burst defaults to requests.
func ParseRateLimit(s string) (RateLimitConfig, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) < 2 || len(parts) > 3 {
		return RateLimitConfig{}, fmt.Errorf("rate limit %q: want requests/window[/burst]", s)
	}

	n, err := strconv.Atoi(parts[0])
	if err != nil || n <= 0 {
		return RateLimitConfig{}, fmt.Errorf("rate limit %q: requests must be a positive integer", s)
	}
	window, err := time.ParseDuration(parts[1])
	if err != nil || window <= 0 {
		return RateLimitConfig{}, fmt.Errorf("rate limit %q: window must be a positive duration", s)
	}

	c := RateLimitConfig{RequestsPerWindow: n, Window: window, Burst: n}
	if len(parts) == 3 {
		burst, err := strconv.Atoi(parts[2])
		if err != nil || burst <= 0 {
			return RateLimitConfig{}, fmt.Errorf("rate limit %q: burst must be a positive integer", s)
		}
		c.Burst = burst
	}
	return c, nil
}

// KeyExtractor names the bucket a request draws from. Requests with an
// empty key are not limited.
type KeyExtractor func(*http.Request) string

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the
// host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// JSONField keys on a top-level string field of a JSON body, lowercased.
// The body is put back for the handler.
func JSONField(name string) KeyExtractor {
	return func(r *http.Request) string {
		if r.Body == nil {
			return ""
		}
		raw, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes))
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(raw))
		if err != nil {
			return ""
		}

		var fields map[string]json.RawMessage
		if json.Unmarshal(raw, &fields) != nil {
			return ""
		}
		var v string
		if json.Unmarshal(fields[name], &v) != nil {
			return ""
		}
		return strings.ToLower(strings.TrimSpace(v))
	}
}

// joinKeys joins the non-empty keys with ":".
func joinKeys(extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(extractors))
		for _, extract := range extractors {
			if k := extract(r); k != "" {
				parts = append(parts, k)
			}
		}
		return strings.Join(parts, ":")
	}
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// buckets holds one limiter per key. A bucket left alone long enough to
// refill completely is indistinguishable from a new one, so sweep drops it.
type buckets struct {
	mu      sync.Mutex
	every   rate.Limit
	burst   int
	refill  time.Duration
	entries map[string]*bucket
	swept   time.Time
}

func newBuckets(c RateLimitConfig) *buckets {
	perSecond := float64(c.RequestsPerWindow) / c.Window.Seconds()
	return &buckets{
		every:   rate.Limit(perSecond),
		burst:   c.Burst,
		refill:  time.Duration(float64(c.Burst) / perSecond * float64(time.Second)),
		entries: make(map[string]*bucket),
	}
}

// take spends a token for key, or reports how long until one is available.
func (b *buckets) take(key string, now time.Time) (bool, time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if now.Sub(b.swept) >= b.refill {
		for k, e := range b.entries {
			if now.Sub(e.seen) >= b.refill {
				delete(b.entries, k)
			}
		}
		b.swept = now
	}

	e, ok := b.entries[key]
	if !ok {
		e = &bucket{lim: rate.NewLimiter(b.every, b.burst)}
		b.entries[key] = e
	}
	e.seen = now

	res := e.lim.ReserveN(now, 1)
	if !res.OK() {
		return false, b.refill
	}
	if wait := res.DelayFrom(now); wait > 0 {
		res.CancelAt(now)
		return false, wait
	}
	return true, 0
}

// RateLimit answers 429 with Retry-After once a key has spent its bucket.
func RateLimit(c RateLimitConfig, key KeyExtractor) Middleware {
	b := newBuckets(c)
	limit := strconv.Itoa(c.RequestsPerWindow)
	window := c.Window.String()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}
			ok, wait := b.take(k, time.Now())
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			retry := max(int(math.Ceil(wait.Seconds())), 1)
			h := w.Header()
			h.Set("Retry-After", strconv.Itoa(retry))
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Window", window)

			slogx.FromContext(r.Context()).Warn("rate limit exceeded",
				slog.String("path", r.URL.Path),
				slog.Int("retry_after", retry),
			)
			WriteJSON(w, http.StatusTooManyRequests, map[string]string{
				"error":   "rate_limit_exceeded",
				"message": "Too many requests. Please try again later.",
			})
		})
	}
}

// RateLimitByIP limits per client IP.
func RateLimitByIP(c RateLimitConfig) Middleware {
	return RateLimit(c, ClientIP)
}

// RateLimitBySubject limits per authenticated subject and IP, so a shared
// NAT does not pool farmers into one bucket.
func RateLimitBySubject(c RateLimitConfig) Middleware {
	return RateLimit(c, joinKeys(func(r *http.Request) string { return SubjectFromContext(r.Context()) }, ClientIP))
}

// RateLimitByIPAndJSONField limits per IP and body field, e.g. the email on
// a login attempt.
func RateLimitByIPAndJSONField(c RateLimitConfig, field string) Middleware {
	return RateLimit(c, joinKeys(ClientIP, JSONField(field)))
}
