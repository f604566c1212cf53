package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/agriconnect/farmerportal/internal/portal/domain"
)

type subsidiesRepo struct {
	db dbtx
}

const subsidyColumns = `id, title, description, amount, eligibility, category, state, deadline,
	application_link, contact_info, is_active, created_by, created_at, updated_at`

func scanSubsidy(row scanner) (domain.Subsidy, error) {
	var (
		s             domain.Subsidy
		category      string
		deadline      sql.NullTime
		link, contact sql.NullString
	)
	err := row.Scan(&s.ID, &s.Title, &s.Description, &s.Amount, &s.Eligibility, &category, &s.State, &deadline,
		&link, &contact, &s.IsActive, &s.CreatedBy, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return domain.Subsidy{}, err
	}
	s.Category = domain.SubsidyCategory(category)
	s.Deadline = mapNullTimePtr(deadline)
	s.ApplicationLink = mapNullString(link)
	s.ContactInfo = mapNullString(contact)
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}

func (r *subsidiesRepo) Create(ctx context.Context, s domain.Subsidy) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO subsidies (`+subsidyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Title, s.Description, s.Amount, s.Eligibility, string(s.Category), s.State, mapOptionalTime(s.Deadline),
		mapStringNull(s.ApplicationLink), mapStringNull(s.ContactInfo), s.IsActive, s.CreatedBy, s.CreatedAt.UTC(), s.UpdatedAt.UTC(),
	)
	return mapConstraint(err)
}

func (r *subsidiesRepo) GetByID(ctx context.Context, id string) (domain.Subsidy, error) {
	s, err := scanSubsidy(r.db.QueryRowContext(ctx, `SELECT `+subsidyColumns+` FROM subsidies WHERE id = ?`, id))
	return s, mapNotFound(err)
}

func (r *subsidiesRepo) Update(ctx context.Context, s domain.Subsidy) error {
	return expectOne(r.db.ExecContext(ctx, `UPDATE subsidies
		SET title = ?, description = ?, amount = ?, eligibility = ?, category = ?, state = ?, deadline = ?,
		    application_link = ?, contact_info = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		s.Title, s.Description, s.Amount, s.Eligibility, string(s.Category), s.State, mapOptionalTime(s.Deadline),
		mapStringNull(s.ApplicationLink), mapStringNull(s.ContactInfo), s.IsActive, s.UpdatedAt.UTC(), s.ID,
	))
}

func (r *subsidiesRepo) Delete(ctx context.Context, id string) error {
	return expectOne(r.db.ExecContext(ctx, `DELETE FROM subsidies WHERE id = ?`, id))
}

func (r *subsidiesRepo) List(ctx context.Context, activeOnly bool, category domain.SubsidyCategory) ([]domain.Subsidy, error) {
	var (
		where []string
		args  []any
	)
	if activeOnly {
		where = append(where, "is_active = 1")
	}
	if category != "" {
		where = append(where, "category = ?")
		args = append(args, string(category))
	}
	q := `SELECT ` + subsidyColumns + ` FROM subsidies`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	rows, err := r.db.QueryContext(ctx, q+` ORDER BY created_at DESC, id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Subsidy
	for rows.Next() {
		s, err := scanSubsidy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
