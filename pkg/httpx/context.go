package httpx

import "context"

type ctxKey string

const (
	// CtxKeySubject holds the authenticated subject id (farmer or admin).
	CtxKeySubject ctxKey = "subject"
)

// WithSubject stores the authenticated subject id on the context so rate
// limiters and loggers can key on it.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, CtxKeySubject, subject)
}

// SubjectFromContext returns the subject set by WithSubject, or "".
func SubjectFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeySubject).(string); ok {
		return v
	}
	return ""
}
