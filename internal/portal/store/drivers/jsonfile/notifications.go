package jsonfile

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/agriconnect/farmerportal/internal/portal/domain"
	"github.com/agriconnect/farmerportal/internal/portal/store"
)

type notificationsRepo struct {
	r runner
}

func findNotification(d *dataset, id string) int {
	return slices.IndexFunc(d.notifications, func(n domain.Notification) bool { return n.ID == id })
}

func (r *notificationsRepo) Create(ctx context.Context, n domain.Notification) error {
	n.TargetLocations = slices.Clone(n.TargetLocations)
	n.TargetCrops = slices.Clone(n.TargetCrops)
	return r.r.write(colNotifications, func(d *dataset) error {
		if findNotification(d, n.ID) >= 0 {
			return store.ErrAlreadyExists
		}
		if findAdmin(d, n.CreatedBy) < 0 {
			return store.ErrNotFound
		}
		d.notifications = append(d.notifications, n)
		return nil
	})
}

func (r *notificationsRepo) GetByID(ctx context.Context, id string) (domain.Notification, error) {
	var out domain.Notification
	err := r.r.read(func(d *dataset) error {
		i := findNotification(d, id)
		if i < 0 {
			return store.ErrNotFound
		}
		out = d.notifications[i]
		return nil
	})
	return out, err
}

func (r *notificationsRepo) List(ctx context.Context, activeOnly bool) ([]domain.Notification, error) {
	var out []domain.Notification
	err := r.r.read(func(d *dataset) error {
		for _, n := range d.notifications {
			if activeOnly && !n.IsActive {
				continue
			}
			out = append(out, n)
		}
		return nil
	})
	slices.SortFunc(out, func(a, b domain.Notification) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, err
}

func (r *notificationsRepo) Deactivate(ctx context.Context, id string) error {
	return r.r.write(colNotifications, func(d *dataset) error {
		i := findNotification(d, id)
		if i < 0 {
			return store.ErrNotFound
		}
		d.notifications[i].IsActive = false
		return nil
	})
}

func (r *notificationsRepo) MarkRead(ctx context.Context, rd domain.NotificationRead) error {
	return r.r.write(colNotifications, func(d *dataset) error {
		if findNotification(d, rd.NotificationID) < 0 || findFarmer(d, rd.FarmerID) < 0 {
			return store.ErrNotFound
		}
		if slices.ContainsFunc(d.reads, func(x domain.NotificationRead) bool {
			return x.NotificationID == rd.NotificationID && x.FarmerID == rd.FarmerID
		}) {
			return nil
		}
		d.reads = append(d.reads, rd)
		return nil
	})
}

func (r *notificationsRepo) ReadIDs(ctx context.Context, farmerID string) (map[string]time.Time, error) {
	out := make(map[string]time.Time)
	err := r.r.read(func(d *dataset) error {
		for _, rd := range d.reads {
			if rd.FarmerID == farmerID {
				out[rd.NotificationID] = rd.ReadAt
			}
		}
		return nil
	})
	return out, err
}
