package jsonfile

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/agriconnect/farmerportal/internal/portal/domain"
	"github.com/agriconnect/farmerportal/internal/portal/store"
)

type marketPricesRepo struct {
	r runner
}

func findMarketPrice(d *dataset, id string) int {
	return slices.IndexFunc(d.marketPrices, func(p domain.MarketPrice) bool { return p.ID == id })
}

func (r *marketPricesRepo) Create(ctx context.Context, p domain.MarketPrice) error {
	return r.r.write(colMarketPrices, func(d *dataset) error {
		if findMarketPrice(d, p.ID) >= 0 {
			return store.ErrAlreadyExists
		}
		if findAdmin(d, p.CreatedBy) < 0 {
			return store.ErrNotFound
		}
		d.marketPrices = append(d.marketPrices, p)
		return nil
	})
}

func (r *marketPricesRepo) GetByID(ctx context.Context, id string) (domain.MarketPrice, error) {
	var out domain.MarketPrice
	err := r.r.read(func(d *dataset) error {
		i := findMarketPrice(d, id)
		if i < 0 {
			return store.ErrNotFound
		}
		out = d.marketPrices[i]
		return nil
	})
	return out, err
}

func (r *marketPricesRepo) Update(ctx context.Context, p domain.MarketPrice) error {
	return r.r.write(colMarketPrices, func(d *dataset) error {
		i := findMarketPrice(d, p.ID)
		if i < 0 {
			return store.ErrNotFound
		}
		p.CreatedBy = d.marketPrices[i].CreatedBy
		p.CreatedAt = d.marketPrices[i].CreatedAt
		d.marketPrices[i] = p
		return nil
	})
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func (r *marketPricesRepo) List(ctx context.Context, filter domain.MarketPriceFilter) ([]domain.MarketPrice, error) {
	market := strings.TrimSpace(filter.Market)
	search := strings.TrimSpace(filter.Search)

	var out []domain.MarketPrice
	err := r.r.read(func(d *dataset) error {
		for _, p := range d.marketPrices {
			if filter.ActiveOnly && !p.IsActive {
				continue
			}
			if filter.Category != "" && p.Category != filter.Category {
				continue
			}
			if market != "" && !containsFold(p.Market, market) {
				continue
			}
			if search != "" && !containsFold(p.Commodity, search) {
				continue
			}
			out = append(out, p)
		}
		return nil
	})
	slices.SortFunc(out, func(a, b domain.MarketPrice) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, err
}
