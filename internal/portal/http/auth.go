package http

import (
	"context"
	"net/http"

	"github.com/agriconnect/farmerportal/internal/portal/domain"
	"github.com/agriconnect/farmerportal/internal/portal/service"
	"github.com/agriconnect/farmerportal/pkg/httpx"
	"github.com/agriconnect/farmerportal/pkg/slogx"
)

type ctxKey int

const (
	ctxKeyFarmer ctxKey = iota
	ctxKeyAdmin
)

// FarmerFromContext returns the farmer resolved by the farmer middleware.
func FarmerFromContext(ctx context.Context) (domain.Farmer, bool) {
	f, ok := ctx.Value(ctxKeyFarmer).(domain.Farmer)
	return f, ok
}

// AdminFromContext returns the admin resolved by the admin middleware.
func AdminFromContext(ctx context.Context) (domain.Admin, bool) {
	a, ok := ctx.Value(ctxKeyAdmin).(domain.Admin)
	return a, ok
}

// bearer returns the request's bearer token, or "" so the guard reports the
// missing credential.
func bearer(r *http.Request) string {
	token, err := httpx.BearerToken(r)
	if err != nil {
		return ""
	}
	return token
}

// farmerAuth resolves the bearer token to a farmer. With active set the
// account must also pass the login gates; without it any existing account is
// accepted, which keeps the profile readable while pending.
func farmerAuth(g *service.Guard, active bool) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			check := g.AuthenticateFarmer
			if active {
				check = g.RequireFarmer
			}
			f, err := check(ctx, bearer(r))
			if err != nil {
				writeError(w, r, err)
				return
			}

			ctx = context.WithValue(ctx, ctxKeyFarmer, f)
			ctx = httpx.WithSubject(ctx, f.ID)
			ctx = slogx.With(ctx, "farmer_id", f.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// adminAuth requires an active administrator holding role.
func adminAuth(g *service.Guard, role domain.Role) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			a, err := g.RequireAdmin(ctx, bearer(r), role)
			if err != nil {
				writeError(w, r, err)
				return
			}

			ctx = context.WithValue(ctx, ctxKeyAdmin, a)
			ctx = httpx.WithSubject(ctx, a.ID)
			ctx = slogx.With(ctx, "admin_id", a.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
