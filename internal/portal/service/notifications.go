package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/agriconnect/farmerportal/internal/portal/domain"
	"github.com/agriconnect/farmerportal/internal/portal/store"
	"github.com/agriconnect/farmerportal/pkg/idx"
	"github.com/agriconnect/farmerportal/pkg/slogx"
)

// FarmerNotification is a notification as one farmer sees it.
type FarmerNotification struct {
	domain.Notification
	Read bool
}

type NotificationService struct {
	Store store.Store
	Now   func() time.Time
}

func (s *NotificationService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Broadcast stores an active notification. Type, priority and audience
// default to info, medium and all.
func (s *NotificationService) Broadcast(ctx context.Context, n domain.Notification, adminID string) (domain.Notification, error) {
	if n.Type == "" {
		n.Type = domain.NotificationInfo
	}
	if n.Priority == "" {
		n.Priority = domain.PriorityMedium
	}
	if n.Audience == "" {
		n.Audience = domain.AudienceAll
	}
	n.ID = idx.NewPrefixed(idx.PrefixNotification).String()
	n.Title = strings.TrimSpace(n.Title)
	n.IsActive = true
	n.CreatedBy = adminID
	n.CreatedAt = s.now()

	if _, err := notFound(n, s.Store.Notifications().Create(ctx, n)); err != nil {
		return domain.Notification{}, fmt.Errorf("create notification: %w", err)
	}
	slogx.FromContext(ctx).Info("notification broadcast",
		slog.String("notification_id", n.ID),
		slog.String("audience", string(n.Audience)),
		slog.String("admin_id", adminID),
	)
	return n, nil
}

// ListAll returns every notification, newest first.
func (s *NotificationService) ListAll(ctx context.Context) ([]domain.Notification, error) {
	return s.Store.Notifications().List(ctx, false)
}

func (s *NotificationService) Deactivate(ctx context.Context, id string) error {
	_, err := notFound(struct{}{}, s.Store.Notifications().Deactivate(ctx, id))
	return err
}

// ForFarmer lists the live notifications addressed to f with their read
// state, and the unread count.
func (s *NotificationService) ForFarmer(ctx context.Context, f domain.Farmer) ([]FarmerNotification, int, error) {
	all, err := s.Store.Notifications().List(ctx, true)
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	read, err := s.Store.Notifications().ReadIDs(ctx, f.ID)
	if err != nil {
		return nil, 0, fmt.Errorf("load read receipts: %w", err)
	}

	now := s.now()
	out := make([]FarmerNotification, 0, len(all))
	unread := 0
	for _, n := range all {
		if !n.RelevantTo(f, now) {
			continue
		}
		_, seen := read[n.ID]
		if !seen {
			unread++
		}
		out = append(out, FarmerNotification{Notification: n, Read: seen})
	}
	return out, unread, nil
}

// MarkRead records that f read notification id. Notifications not addressed
// to f are reported as not found.
func (s *NotificationService) MarkRead(ctx context.Context, f domain.Farmer, id string) error {
	n, err := notFound(s.Store.Notifications().GetByID(ctx, id))
	if err != nil {
		return err
	}
	now := s.now()
	if !n.RelevantTo(f, now) {
		return ErrNotFound
	}
	_, err = notFound(struct{}{}, s.Store.Notifications().MarkRead(ctx, domain.NotificationRead{
		NotificationID: id,
		FarmerID:       f.ID,
		ReadAt:         now,
	}))
	return err
}
