package httpx

import (
	"errors"
	"net/http"
	"strings"
)

// ErrNoBearer is returned when the Authorization header is missing or is not
// a Bearer credential.
var ErrNoBearer = errors.New("httpx: missing bearer token")

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme match is case-insensitive per RFC 6750.
func BearerToken(r *http.Request) (string, error) {
	authz := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(authz, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrNoBearer
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrNoBearer
	}
	return token, nil
}

// WriteBearerChallenge sets the RFC 6750 WWW-Authenticate header. The caller
// still writes the status and body.
func WriteBearerChallenge(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
}
