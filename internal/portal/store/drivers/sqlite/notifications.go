package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/agriconnect/farmerportal/internal/portal/domain"
)

type notificationsRepo struct {
	db dbtx
}

const notificationColumns = `id, title, message, type, priority, target_audience, target_locations,
	target_crops, expires_at, is_active, created_by, created_at`

func scanNotification(row scanner) (domain.Notification, error) {
	var (
		n                   domain.Notification
		typ, prio, audience string
		locations, crops    string
		expires             sql.NullTime
	)
	err := row.Scan(&n.ID, &n.Title, &n.Message, &typ, &prio, &audience, &locations,
		&crops, &expires, &n.IsActive, &n.CreatedBy, &n.CreatedAt)
	if err != nil {
		return domain.Notification{}, err
	}
	n.Type = domain.NotificationType(typ)
	n.Priority = domain.Priority(prio)
	n.Audience = domain.Audience(audience)
	n.ExpiresAt = mapNullTimePtr(expires)
	n.CreatedAt = n.CreatedAt.UTC()
	if err := json.Unmarshal([]byte(locations), &n.TargetLocations); err != nil {
		return domain.Notification{}, err
	}
	if err := json.Unmarshal([]byte(crops), &n.TargetCrops); err != nil {
		return domain.Notification{}, err
	}
	return n, nil
}

// encodeList stores string lists as JSON arrays; nil becomes "[]".
func encodeList(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	return string(b), err
}

func (r *notificationsRepo) Create(ctx context.Context, n domain.Notification) error {
	locations, err := encodeList(n.TargetLocations)
	if err != nil {
		return err
	}
	crops, err := encodeList(n.TargetCrops)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO notifications (`+notificationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.Title, n.Message, string(n.Type), string(n.Priority), string(n.Audience), locations,
		crops, mapOptionalTime(n.ExpiresAt), n.IsActive, n.CreatedBy, n.CreatedAt.UTC(),
	)
	return mapConstraint(err)
}

func (r *notificationsRepo) GetByID(ctx context.Context, id string) (domain.Notification, error) {
	n, err := scanNotification(r.db.QueryRowContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = ?`, id))
	return n, mapNotFound(err)
}

func (r *notificationsRepo) List(ctx context.Context, activeOnly bool) ([]domain.Notification, error) {
	q := `SELECT ` + notificationColumns + ` FROM notifications`
	if activeOnly {
		q += ` WHERE is_active = 1`
	}
	rows, err := r.db.QueryContext(ctx, q+` ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *notificationsRepo) Deactivate(ctx context.Context, id string) error {
	return expectOne(r.db.ExecContext(ctx, `UPDATE notifications SET is_active = 0 WHERE id = ?`, id))
}

func (r *notificationsRepo) MarkRead(ctx context.Context, rd domain.NotificationRead) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO notification_reads (notification_id, farmer_id, read_at)
		VALUES (?, ?, ?) ON CONFLICT (notification_id, farmer_id) DO NOTHING`,
		rd.NotificationID, rd.FarmerID, rd.ReadAt.UTC())
	return mapConstraint(err)
}

func (r *notificationsRepo) ReadIDs(ctx context.Context, farmerID string) (map[string]time.Time, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT notification_id, read_at FROM notification_reads WHERE farmer_id = ?`, farmerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]time.Time)
	for rows.Next() {
		var (
			id string
			at time.Time
		)
		if err := rows.Scan(&id, &at); err != nil {
			return nil, err
		}
		out[id] = at.UTC()
	}
	return out, rows.Err()
}
