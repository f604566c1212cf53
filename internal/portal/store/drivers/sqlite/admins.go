package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/agriconnect/farmerportal/internal/portal/domain"
)

type adminsRepo struct {
	db dbtx
}

const adminColumns = `id, email, username, password_hash, role, is_active, last_login_at,
	mfa_secret, mfa_enabled_at, created_at, updated_at`

func scanAdmin(row scanner) (domain.Admin, error) {
	var (
		a                       domain.Admin
		role                    string
		lastLogin, mfaEnabledAt sql.NullTime
		mfaSecret               sql.NullString
	)
	err := row.Scan(&a.ID, &a.Email, &a.Username, &a.PasswordHash, &role, &a.IsActive, &lastLogin,
		&mfaSecret, &mfaEnabledAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return domain.Admin{}, err
	}
	a.Role = domain.Role(role)
	a.LastLoginAt = mapNullTimePtr(lastLogin)
	a.MFASecret = mapNullStringPtr(mfaSecret)
	a.MFAEnabledAt = mapNullTimePtr(mfaEnabledAt)
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return a, nil
}

func (r *adminsRepo) Create(ctx context.Context, a domain.Admin) error {
	var secret sql.NullString
	if a.MFASecret != nil {
		secret = sql.NullString{String: *a.MFASecret, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO admins (`+adminColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Email, a.Username, a.PasswordHash, string(a.Role), a.IsActive, mapOptionalTime(a.LastLoginAt),
		secret, mapOptionalTime(a.MFAEnabledAt), a.CreatedAt.UTC(), a.UpdatedAt.UTC(),
	)
	return mapConstraint(err)
}

func (r *adminsRepo) GetByID(ctx context.Context, id string) (domain.Admin, error) {
	a, err := scanAdmin(r.db.QueryRowContext(ctx, `SELECT `+adminColumns+` FROM admins WHERE id = ?`, id))
	return a, mapNotFound(err)
}

func (r *adminsRepo) GetByEmail(ctx context.Context, email string) (domain.Admin, error) {
	a, err := scanAdmin(r.db.QueryRowContext(ctx, `SELECT `+adminColumns+` FROM admins WHERE email = ?`, email))
	return a, mapNotFound(err)
}

func (r *adminsRepo) ExistsWithRole(ctx context.Context, role domain.Role) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins WHERE role = ?`, string(role)).Scan(&n)
	return n > 0, err
}

func (r *adminsRepo) RecordLogin(ctx context.Context, id string, at time.Time) error {
	return expectOne(r.db.ExecContext(ctx, `UPDATE admins SET last_login_at = ? WHERE id = ?`, at.UTC(), id))
}

func (r *adminsRepo) UpdatePasswordHash(ctx context.Context, id, hash string, at time.Time) error {
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE admins SET password_hash = ?, updated_at = ? WHERE id = ?`, hash, at.UTC(), id))
}

func (r *adminsRepo) SetMFASecret(ctx context.Context, id, secret string) error {
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE admins SET mfa_secret = ?, mfa_enabled_at = NULL WHERE id = ?`, secret, id))
}

func (r *adminsRepo) EnableMFA(ctx context.Context, id string, at time.Time) error {
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE admins SET mfa_enabled_at = ? WHERE id = ? AND mfa_secret IS NOT NULL`, at.UTC(), id))
}

func (r *adminsRepo) DisableMFA(ctx context.Context, id string) error {
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE admins SET mfa_secret = NULL, mfa_enabled_at = NULL WHERE id = ?`, id))
}
