package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/agriconnect/farmerportal/internal/portal/domain"
	"github.com/agriconnect/farmerportal/internal/portal/feeds"
	"github.com/agriconnect/farmerportal/internal/portal/store"
	"github.com/agriconnect/farmerportal/pkg/idx"
	"github.com/agriconnect/farmerportal/pkg/slogx"
)

const (
	defaultPriceListLimit = 100
	maxPriceListLimit     = 500
	recentPriceUpdates    = 50
)

// MarketStats summarises the admin-entered prices.
type MarketStats struct {
	Total             int
	Active            int
	UniqueCommodities int
	// RecentUpdates counts prices updated in the last 24 hours.
	RecentUpdates int
	LastUpdated   *time.Time
	Recent        []domain.MarketPrice
}

// MarketPriceService manages admin-entered prices and serves them laid over
// the upstream Feed, so it can stand in wherever a feeds.MarketPriceProvider
// is expected.
type MarketPriceService struct {
	Store store.Store
	Feed  feeds.MarketPriceProvider
	Now   func() time.Time
}

var _ feeds.MarketPriceProvider = (*MarketPriceService)(nil)

func (s *MarketPriceService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// normalize fills defaults and checks the price band. Zero bounds take the
// price itself.
func (s *MarketPriceService) normalize(p *domain.MarketPrice) error {
	p.Commodity = strings.TrimSpace(p.Commodity)
	p.Market = strings.TrimSpace(p.Market)
	p.District = strings.TrimSpace(p.District)
	p.State = stateOrDefault(p.State)
	if p.Category == "" {
		p.Category = domain.PriceCategoryVegetable
	}
	if p.Unit == "" {
		p.Unit = domain.UnitKg
	}
	if p.MinPrice.IsZero() {
		p.MinPrice = p.Price
	}
	if p.MaxPrice.IsZero() {
		p.MaxPrice = p.Price
	}
	if p.PriceDate.IsZero() {
		p.PriceDate = s.now()
	}

	fields := map[string]string{}
	if p.Commodity == "" {
		fields["commodity"] = "required"
	}
	if p.Market == "" {
		fields["market"] = "required"
	}
	switch {
	case !p.Price.IsPositive():
		fields["price"] = "must be positive"
	case p.MinPrice.GreaterThan(p.Price):
		fields["minPrice"] = "must not exceed price"
	case p.MaxPrice.LessThan(p.Price):
		fields["maxPrice"] = "must not be below price"
	}
	return invalid(fields)
}

// Create stores a new, active price entered by adminID.
func (s *MarketPriceService) Create(ctx context.Context, in domain.MarketPrice, adminID string) (domain.MarketPrice, error) {
	if err := s.normalize(&in); err != nil {
		return domain.MarketPrice{}, err
	}
	now := s.now()
	in.ID = idx.NewPrefixed(idx.PrefixMarketPrice).String()
	in.IsActive = true
	in.CreatedBy = adminID
	in.UpdatedBy = ""
	in.CreatedAt = now
	in.UpdatedAt = now

	if _, err := notFound(in, s.Store.MarketPrices().Create(ctx, in)); err != nil {
		return domain.MarketPrice{}, fmt.Errorf("create market price: %w", err)
	}
	slogx.FromContext(ctx).Info("market price added",
		slog.String("price_id", in.ID),
		slog.String("commodity", in.Commodity),
		slog.String("market", in.Market),
		slog.String("price", in.Price.String()),
		slog.String("admin_id", adminID),
	)
	return in, nil
}

func (s *MarketPriceService) Get(ctx context.Context, id string) (domain.MarketPrice, error) {
	return notFound(s.Store.MarketPrices().GetByID(ctx, id))
}

// Update replaces the editable fields. A nil active keeps the current flag.
func (s *MarketPriceService) Update(ctx context.Context, id string, in domain.MarketPrice, active *bool, adminID string) (domain.MarketPrice, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return domain.MarketPrice{}, err
	}
	if in.PriceDate.IsZero() {
		in.PriceDate = cur.PriceDate
	}
	if err := s.normalize(&in); err != nil {
		return domain.MarketPrice{}, err
	}
	in.ID = cur.ID
	in.IsActive = cur.IsActive
	if active != nil {
		in.IsActive = *active
	}
	in.CreatedBy = cur.CreatedBy
	in.CreatedAt = cur.CreatedAt
	in.UpdatedBy = adminID
	in.UpdatedAt = s.now()

	if _, err := notFound(in, s.Store.MarketPrices().Update(ctx, in)); err != nil {
		return domain.MarketPrice{}, err
	}
	slogx.FromContext(ctx).Info("market price updated", slog.String("price_id", id), slog.String("admin_id", adminID))
	return in, nil
}

// Delete hides the price from farmers. The row is kept.
func (s *MarketPriceService) Delete(ctx context.Context, id, adminID string) error {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	cur.IsActive = false
	cur.UpdatedBy = adminID
	cur.UpdatedAt = s.now()
	if _, err := notFound(cur, s.Store.MarketPrices().Update(ctx, cur)); err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("market price deleted", slog.String("price_id", id), slog.String("admin_id", adminID))
	return nil
}

// List returns prices for the admin console. The limit defaults to 100 and
// is capped at 500.
func (s *MarketPriceService) List(ctx context.Context, filter domain.MarketPriceFilter) ([]domain.MarketPrice, error) {
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultPriceListLimit
	case filter.Limit > maxPriceListLimit:
		filter.Limit = maxPriceListLimit
	}
	return s.Store.MarketPrices().List(ctx, filter)
}

// Stats counts every stored price, active or not.
func (s *MarketPriceService) Stats(ctx context.Context) (MarketStats, error) {
	all, err := s.Store.MarketPrices().List(ctx, domain.MarketPriceFilter{})
	if err != nil {
		return MarketStats{}, fmt.Errorf("list market prices: %w", err)
	}

	since := s.now().Add(-24 * time.Hour)
	commodities := map[string]struct{}{}
	out := MarketStats{Total: len(all)}
	for _, p := range all {
		if p.IsActive {
			out.Active++
		}
		if !p.UpdatedAt.Before(since) {
			out.RecentUpdates++
		}
		commodities[strings.ToLower(p.Commodity)] = struct{}{}
	}
	out.UniqueCommodities = len(commodities)
	if len(all) > 0 {
		last := all[0].UpdatedAt
		out.LastUpdated = &last
	}
	out.Recent = all[:min(len(all), recentPriceUpdates)]
	return out, nil
}

// Latest returns the feed's prices with the active admin prices laid over
// them. A store failure serves the feed alone.
func (s *MarketPriceService) Latest(ctx context.Context) feeds.PriceSet {
	var set feeds.PriceSet
	if s.Feed != nil {
		set = s.Feed.Latest(ctx)
	}

	manual, err := s.Store.MarketPrices().List(ctx, domain.MarketPriceFilter{ActiveOnly: true})
	if err != nil {
		slogx.FromContext(ctx).Warn("manual market prices unavailable", slog.Any("error", err))
		return set
	}
	if set.Source == "" && len(manual) > 0 {
		set.Source = feeds.SourceManual
		set.FetchedAt = manual[0].UpdatedAt
	}

	quotes := make([]feeds.Price, 0, len(manual))
	for _, p := range manual {
		quotes = append(quotes, manualQuote(p))
	}
	return feeds.Merge(set, quotes)
}

// Refresh refetches the upstream feed.
func (s *MarketPriceService) Refresh(ctx context.Context) error {
	if s.Feed == nil {
		return feeds.ErrNotConfigured
	}
	return s.Feed.Refresh(ctx)
}

func manualQuote(p domain.MarketPrice) feeds.Price {
	return feeds.Price{
		Commodity:  p.Commodity,
		Market:     p.Market,
		District:   p.District,
		State:      p.State,
		MinPrice:   p.MinPrice,
		MaxPrice:   p.MaxPrice,
		ModalPrice: p.Price,
		Unit:       "Rs/" + string(p.Unit),
		Date:       p.PriceDate.Format("02/01/2006"),
		Source:     feeds.SourceManual,
	}
}
