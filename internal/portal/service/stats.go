package service

import (
	"context"
	"fmt"

	"github.com/agriconnect/farmerportal/internal/portal/domain"
	"github.com/agriconnect/farmerportal/internal/portal/store"
)

const recentRegistrations = 5

// Stats summarises registrations for the admin dashboard.
type Stats struct {
	Counts domain.StatusCounts
	Recent []domain.Farmer
}

type StatsService struct {
	Store store.Store
}

func (s *StatsService) Stats(ctx context.Context) (Stats, error) {
	counts, err := s.Store.Farmers().CountByStatus(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count farmers: %w", err)
	}
	recent, _, err := s.Store.Farmers().List(ctx, domain.FarmerFilter{Limit: recentRegistrations})
	if err != nil {
		return Stats{}, fmt.Errorf("recent farmers: %w", err)
	}
	return Stats{Counts: counts, Recent: recent}, nil
}
