package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/agriconnect/farmerportal/internal/portal/domain"
	"github.com/agriconnect/farmerportal/internal/portal/store"
)

type farmersRepo struct {
	db dbtx
}

const farmerColumns = `id, email, mobile, full_name, password_hash, location, crop_type, language,
	status, is_active, is_verified, registered_at, approved_at, approved_by,
	rejection_reason, suspension_reason, last_login_at, updated_at`

func scanFarmer(row scanner) (domain.Farmer, error) {
	var (
		f                                 domain.Farmer
		cropType, language, status        string
		approvedAt, lastLoginAt           sql.NullTime
		approvedBy, rejection, suspension sql.NullString
	)
	err := row.Scan(
		&f.ID, &f.Email, &f.Mobile, &f.FullName, &f.PasswordHash, &f.Location, &cropType, &language,
		&status, &f.IsActive, &f.IsVerified, &f.RegisteredAt, &approvedAt, &approvedBy,
		&rejection, &suspension, &lastLoginAt, &f.UpdatedAt,
	)
	if err != nil {
		return domain.Farmer{}, err
	}
	f.CropType = domain.CropType(cropType)
	f.Language = domain.Language(language)
	f.Status = domain.FarmerStatus(status)
	f.RegisteredAt = f.RegisteredAt.UTC()
	f.UpdatedAt = f.UpdatedAt.UTC()
	f.ApprovedAt = mapNullTimePtr(approvedAt)
	f.ApprovedBy = mapNullString(approvedBy)
	f.RejectionReason = mapNullString(rejection)
	f.SuspensionReason = mapNullString(suspension)
	f.LastLoginAt = mapNullTimePtr(lastLoginAt)
	return f, nil
}

func (r *farmersRepo) Create(ctx context.Context, f domain.Farmer) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO farmers (`+farmerColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Email, f.Mobile, f.FullName, f.PasswordHash, f.Location, string(f.CropType), string(f.Language),
		string(f.Status), f.IsActive, f.IsVerified, f.RegisteredAt.UTC(), mapOptionalTime(f.ApprovedAt), mapStringNull(f.ApprovedBy),
		mapStringNull(f.RejectionReason), mapStringNull(f.SuspensionReason), mapOptionalTime(f.LastLoginAt), f.UpdatedAt.UTC(),
	)
	return mapConstraint(err)
}

func (r *farmersRepo) GetByID(ctx context.Context, id string) (domain.Farmer, error) {
	f, err := scanFarmer(r.db.QueryRowContext(ctx, `SELECT `+farmerColumns+` FROM farmers WHERE id = ?`, id))
	return f, mapNotFound(err)
}

func (r *farmersRepo) GetByEmail(ctx context.Context, email string) (domain.Farmer, error) {
	f, err := scanFarmer(r.db.QueryRowContext(ctx, `SELECT `+farmerColumns+` FROM farmers WHERE email = ?`, email))
	return f, mapNotFound(err)
}

func (r *farmersRepo) GetByEmailOrMobile(ctx context.Context, email, mobile string) (domain.Farmer, error) {
	f, err := scanFarmer(r.db.QueryRowContext(ctx,
		`SELECT `+farmerColumns+` FROM farmers WHERE email = ? OR mobile = ? ORDER BY registered_at LIMIT 1`,
		email, mobile))
	return f, mapNotFound(err)
}

func (r *farmersRepo) UpdateProfile(ctx context.Context, f domain.Farmer) error {
	return expectOne(r.db.ExecContext(ctx, `UPDATE farmers
		SET full_name = ?, mobile = ?, location = ?, crop_type = ?, language = ?, updated_at = ?
		WHERE id = ?`,
		f.FullName, f.Mobile, f.Location, string(f.CropType), string(f.Language), f.UpdatedAt.UTC(), f.ID,
	))
}

func (r *farmersRepo) UpdatePasswordHash(ctx context.Context, id, hash string, at time.Time) error {
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE farmers SET password_hash = ?, updated_at = ? WHERE id = ?`, hash, at.UTC(), id))
}

// TransitionStatus reads the row, applies change in memory and writes it
// back guarded by the status it read, so two concurrent transitions cannot
// both succeed.
func (r *farmersRepo) TransitionStatus(
	ctx context.Context,
	id string,
	from []domain.FarmerStatus,
	change domain.StatusChange,
) (domain.Farmer, error) {
	cur, err := r.GetByID(ctx, id)
	if err != nil {
		return domain.Farmer{}, err
	}
	if !slices.Contains(from, cur.Status) {
		return cur, fmt.Errorf("%w: farmer is %s", store.ErrStateChanged, cur.Status)
	}

	next := cur
	change.Apply(&next)

	res, err := r.db.ExecContext(ctx, `UPDATE farmers
		SET status = ?, is_active = ?, approved_at = ?, approved_by = ?,
		    rejection_reason = ?, suspension_reason = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(next.Status), next.IsActive, mapOptionalTime(next.ApprovedAt), mapStringNull(next.ApprovedBy),
		mapStringNull(next.RejectionReason), mapStringNull(next.SuspensionReason), next.UpdatedAt.UTC(),
		id, string(cur.Status),
	)
	if err != nil {
		return domain.Farmer{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Farmer{}, err
	}
	if n == 0 {
		return domain.Farmer{}, store.ErrStateChanged
	}
	return next, nil
}

func (r *farmersRepo) RecordLogin(ctx context.Context, id string, at time.Time) error {
	return expectOne(r.db.ExecContext(ctx, `UPDATE farmers SET last_login_at = ? WHERE id = ?`, at.UTC(), id))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *farmersRepo) List(ctx context.Context, filter domain.FarmerFilter) ([]domain.Farmer, int, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if s := strings.ToLower(strings.TrimSpace(filter.Search)); s != "" {
		pattern := "%" + likeEscaper.Replace(s) + "%"
		where = append(where, `(lower(full_name) LIKE ? ESCAPE '\' OR email LIKE ? ESCAPE '\'
			OR mobile LIKE ? ESCAPE '\' OR lower(location) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern, pattern)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM farmers`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+farmerColumns+` FROM farmers`+clause+` ORDER BY registered_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, limit, filter.Offset)...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []domain.Farmer
	for rows.Next() {
		f, err := scanFarmer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, f)
	}
	return out, total, rows.Err()
}

func (r *farmersRepo) CountByStatus(ctx context.Context) (domain.StatusCounts, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM farmers GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := domain.StatusCounts{}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[domain.FarmerStatus(status)] = n
	}
	return counts, rows.Err()
}
