package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/agriconnect/farmerportal/internal/portal/domain"
	"github.com/agriconnect/farmerportal/internal/portal/store"
	"github.com/agriconnect/farmerportal/pkg/jwtx"
	"github.com/agriconnect/farmerportal/pkg/portalsdk"
)

// Guard resolves bearer tokens into live accounts. Tokens cannot be revoked,
// so every check re-reads the account behind the token.
type Guard struct {
	Tokens   *TokenService
	Store    store.Store
	Accounts *AccountService
}

// claims verifies token and wraps any failure in ErrUnauthorized, keeping
// the jwtx cause for callers that want to tell expired from invalid.
func (g *Guard) claims(token string) (jwtx.Claims, error) {
	if token == "" {
		return jwtx.Claims{}, ErrUnauthorized
	}
	c, err := g.Tokens.Verify(token)
	if err != nil {
		return jwtx.Claims{}, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return c, nil
}

// AuthenticateFarmer accepts any farmer token whose account still exists,
// whatever its status. It backs the profile read.
func (g *Guard) AuthenticateFarmer(ctx context.Context, token string) (domain.Farmer, error) {
	c, err := g.claims(token)
	if err != nil {
		return domain.Farmer{}, err
	}
	if c.Type != jwtx.TypeFarmer || c.Role != string(domain.RoleFarmer) {
		return domain.Farmer{}, ErrUnauthorized
	}

	f, err := g.Store.Farmers().GetByID(ctx, c.Subject)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Farmer{}, ErrUnauthorized
	}
	if err != nil {
		return domain.Farmer{}, fmt.Errorf("load farmer: %w", err)
	}
	return f, nil
}

// RequireFarmer additionally demands an approved, active account, so a
// farmer suspended after login is refused on the next request.
func (g *Guard) RequireFarmer(ctx context.Context, token string) (domain.Farmer, error) {
	f, err := g.AuthenticateFarmer(ctx, token)
	if err != nil {
		return domain.Farmer{}, err
	}
	if el := g.Accounts.statusEligibility(f); !el.OK() {
		return f, el.Err()
	}
	return f, nil
}

// RequireAdmin accepts only an active admin whose role is exactly required.
// An empty required role means MAIN_ADMIN.
func (g *Guard) RequireAdmin(ctx context.Context, token string, required domain.Role) (domain.Admin, error) {
	if required == "" {
		required = domain.RoleMainAdmin
	}
	c, err := g.claims(token)
	if err != nil {
		return domain.Admin{}, err
	}
	if c.Type != jwtx.TypeAdmin {
		return domain.Admin{}, ErrInsufficientRole
	}

	a, err := g.Store.Admins().GetByID(ctx, c.Subject)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Admin{}, ErrUnauthorized
	}
	if err != nil {
		return domain.Admin{}, fmt.Errorf("load admin: %w", err)
	}
	if !a.IsActive {
		return domain.Admin{}, &ForbiddenError{Status: portalsdk.AccountStatusInactive}
	}
	if a.Role != required {
		return domain.Admin{}, ErrInsufficientRole
	}
	return a, nil
}
