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

type SubsidyService struct {
	Store store.Store
	Now   func() time.Time
}

func (s *SubsidyService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Create stores a new, active subsidy authored by adminID.
func (s *SubsidyService) Create(ctx context.Context, in domain.Subsidy, adminID string) (domain.Subsidy, error) {
	now := s.now()
	in.ID = idx.NewPrefixed(idx.PrefixSubsidy).String()
	in.State = stateOrDefault(in.State)
	in.IsActive = true
	in.CreatedBy = adminID
	in.CreatedAt = now
	in.UpdatedAt = now

	if _, err := notFound(in, s.Store.Subsidies().Create(ctx, in)); err != nil {
		return domain.Subsidy{}, fmt.Errorf("create subsidy: %w", err)
	}
	slogx.FromContext(ctx).Info("subsidy created", slog.String("subsidy_id", in.ID), slog.String("admin_id", adminID))
	return in, nil
}

func (s *SubsidyService) Get(ctx context.Context, id string) (domain.Subsidy, error) {
	return notFound(s.Store.Subsidies().GetByID(ctx, id))
}

// Update replaces the editable fields. Author, creation time and the active
// flag are kept.
func (s *SubsidyService) Update(ctx context.Context, id string, in domain.Subsidy) (domain.Subsidy, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return domain.Subsidy{}, err
	}
	in.ID = cur.ID
	in.State = stateOrDefault(in.State)
	in.IsActive = cur.IsActive
	in.CreatedBy = cur.CreatedBy
	in.CreatedAt = cur.CreatedAt
	in.UpdatedAt = s.now()

	if _, err := notFound(in, s.Store.Subsidies().Update(ctx, in)); err != nil {
		return domain.Subsidy{}, err
	}
	return in, nil
}

// Toggle flips the active flag.
func (s *SubsidyService) Toggle(ctx context.Context, id string) (domain.Subsidy, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return domain.Subsidy{}, err
	}
	cur.IsActive = !cur.IsActive
	cur.UpdatedAt = s.now()
	if _, err := notFound(cur, s.Store.Subsidies().Update(ctx, cur)); err != nil {
		return domain.Subsidy{}, err
	}
	return cur, nil
}

func (s *SubsidyService) Delete(ctx context.Context, id string) error {
	_, err := notFound(struct{}{}, s.Store.Subsidies().Delete(ctx, id))
	if err == nil {
		slogx.FromContext(ctx).Info("subsidy deleted", slog.String("subsidy_id", id))
	}
	return err
}

// ListAll returns every subsidy for the admin console.
func (s *SubsidyService) ListAll(ctx context.Context, category domain.SubsidyCategory) ([]domain.Subsidy, error) {
	return s.Store.Subsidies().List(ctx, false, category)
}

// ListOpen returns the active subsidies whose deadline has not passed.
func (s *SubsidyService) ListOpen(ctx context.Context, category domain.SubsidyCategory) ([]domain.Subsidy, error) {
	all, err := s.Store.Subsidies().List(ctx, true, category)
	if err != nil {
		return nil, err
	}
	now := s.now()
	open := all[:0]
	for _, sub := range all {
		if sub.OpenAt(now) {
			open = append(open, sub)
		}
	}
	return open, nil
}

func stateOrDefault(s string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return domain.DefaultSubsidyState
}
