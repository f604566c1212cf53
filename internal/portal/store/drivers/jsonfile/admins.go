package jsonfile

import (
	"context"
	"slices"
	"time"

	"github.com/agriconnect/farmerportal/internal/portal/domain"
	"github.com/agriconnect/farmerportal/internal/portal/store"
)

type adminsRepo struct {
	r runner
}

func findAdmin(d *dataset, id string) int {
	return slices.IndexFunc(d.admins, func(a domain.Admin) bool { return a.ID == id })
}

func (r *adminsRepo) Create(ctx context.Context, a domain.Admin) error {
	return r.r.write(colAdmins, func(d *dataset) error {
		if slices.ContainsFunc(d.admins, func(x domain.Admin) bool {
			return x.ID == a.ID || x.Email == a.Email || x.Username == a.Username
		}) {
			return store.ErrAlreadyExists
		}
		d.admins = append(d.admins, a)
		return nil
	})
}

func (r *adminsRepo) GetByID(ctx context.Context, id string) (domain.Admin, error) {
	return r.get(func(a domain.Admin) bool { return a.ID == id })
}

func (r *adminsRepo) GetByEmail(ctx context.Context, email string) (domain.Admin, error) {
	return r.get(func(a domain.Admin) bool { return a.Email == email })
}

func (r *adminsRepo) get(match func(domain.Admin) bool) (domain.Admin, error) {
	var out domain.Admin
	err := r.r.read(func(d *dataset) error {
		i := slices.IndexFunc(d.admins, match)
		if i < 0 {
			return store.ErrNotFound
		}
		out = d.admins[i]
		return nil
	})
	return out, err
}

func (r *adminsRepo) ExistsWithRole(ctx context.Context, role domain.Role) (bool, error) {
	var ok bool
	err := r.r.read(func(d *dataset) error {
		ok = slices.ContainsFunc(d.admins, func(a domain.Admin) bool { return a.Role == role })
		return nil
	})
	return ok, err
}

// update applies fn to the admin with id.
func (r *adminsRepo) update(id string, fn func(a *domain.Admin) error) error {
	return r.r.write(colAdmins, func(d *dataset) error {
		i := findAdmin(d, id)
		if i < 0 {
			return store.ErrNotFound
		}
		return fn(&d.admins[i])
	})
}

func (r *adminsRepo) RecordLogin(ctx context.Context, id string, at time.Time) error {
	return r.update(id, func(a *domain.Admin) error {
		a.LastLoginAt = &at
		return nil
	})
}

func (r *adminsRepo) UpdatePasswordHash(ctx context.Context, id, hash string, at time.Time) error {
	return r.update(id, func(a *domain.Admin) error {
		a.PasswordHash = hash
		a.UpdatedAt = at
		return nil
	})
}

func (r *adminsRepo) SetMFASecret(ctx context.Context, id, secret string) error {
	return r.update(id, func(a *domain.Admin) error {
		a.MFASecret = &secret
		a.MFAEnabledAt = nil
		return nil
	})
}

func (r *adminsRepo) EnableMFA(ctx context.Context, id string, at time.Time) error {
	return r.update(id, func(a *domain.Admin) error {
		if a.MFASecret == nil {
			return store.ErrNotFound
		}
		a.MFAEnabledAt = &at
		return nil
	})
}

func (r *adminsRepo) DisableMFA(ctx context.Context, id string) error {
	return r.update(id, func(a *domain.Admin) error {
		a.MFASecret = nil
		a.MFAEnabledAt = nil
		return nil
	})
}
