package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/agriconnect/farmerportal/pkg/slogx"
	"github.com/shopspring/decimal"
)

const (
	SourceDataGov  = "data.gov.in"
	SourceFallback = "fallback"
	SourceManual   = "manual"

	defaultUnit = "Rs/quintal"
)

// Price is one commodity quote from one market.
type Price struct {
	Commodity  string
	Market     string
	District   string
	State      string
	MinPrice   decimal.Decimal
	MaxPrice   decimal.Decimal
	ModalPrice decimal.Decimal
	Unit       string
	Date       string

	// Source is set on quotes that did not come with the set, such as
	// SourceManual.
	Source string
}

// PriceSet is a batch of quotes fetched together.
type PriceSet struct {
	Prices    []Price
	FetchedAt time.Time
	Source    string
	Stale     bool
}

// MarketPriceProvider serves the most recent price set.
type MarketPriceProvider interface {
	Latest(ctx context.Context) PriceSet
	Refresh(ctx context.Context) error
}

// DataGovConfig points at a data.gov.in style mandi price resource.
type DataGovConfig struct {
	URL    string
	APIKey string
	State  string
	Limit  int
	Client *http.Client
	Now    func() time.Time
}

// DataGovMarket fetches daily mandi prices and keeps the last good set.
type DataGovMarket struct {
	cfg    DataGovConfig
	client *http.Client

	mu   sync.RWMutex
	last *PriceSet
}

func NewDataGovMarket(cfg DataGovConfig) *DataGovMarket {
	if cfg.State == "" {
		cfg.State = "Karnataka"
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 100
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &DataGovMarket{cfg: cfg, client: newHTTPClient(cfg.Client)}
}

// Latest returns the cached set, fetching once if nothing is cached yet.
// A failed first fetch yields the fallback set.
func (m *DataGovMarket) Latest(ctx context.Context) PriceSet {
	m.mu.RLock()
	last := m.last
	m.mu.RUnlock()
	if last != nil {
		return *last
	}

	if err := m.Refresh(ctx); err != nil {
		slogx.FromContext(ctx).Warn("market prices unavailable, serving fallback", slog.Any("error", err))
		return fallbackPrices(m.cfg.Now())
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return *m.last
}

// Refresh fetches a new set. On failure a previously cached set is kept and
// marked stale.
func (m *DataGovMarket) Refresh(ctx context.Context) error {
	if m.cfg.URL == "" {
		return ErrNotConfigured
	}
	set, err := m.fetch(ctx)
	if err != nil {
		m.mu.Lock()
		if m.last != nil {
			m.last.Stale = true
		}
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	m.last = &set
	m.mu.Unlock()
	slogx.FromContext(ctx).Info("market prices refreshed", slog.Int("count", len(set.Prices)))
	return nil
}

type dataGovResponse struct {
	Records []struct {
		State       string `json:"state"`
		District    string `json:"district"`
		Market      string `json:"market"`
		Commodity   string `json:"commodity"`
		ArrivalDate string `json:"arrival_date"`
		MinPrice    string `json:"min_price"`
		MaxPrice    string `json:"max_price"`
		ModalPrice  string `json:"modal_price"`
	} `json:"records"`
}

func (m *DataGovMarket) fetch(ctx context.Context) (PriceSet, error) {
	u, err := url.Parse(m.cfg.URL)
	if err != nil {
		return PriceSet{}, fmt.Errorf("feeds: market url: %w", err)
	}
	q := u.Query()
	q.Set("api-key", m.cfg.APIKey)
	q.Set("format", "json")
	q.Set("limit", fmt.Sprint(m.cfg.Limit))
	q.Set("filters[state]", m.cfg.State)
	u.RawQuery = q.Encode()

	body, err := getJSON(ctx, m.client, u.String())
	if err != nil {
		return PriceSet{}, err
	}
	var resp dataGovResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return PriceSet{}, fmt.Errorf("%w: decode: %v", ErrUpstream, err)
	}

	prices := make([]Price, 0, len(resp.Records))
	for _, r := range resp.Records {
		modal, err := decimal.NewFromString(strings.TrimSpace(r.ModalPrice))
		if err != nil || !modal.IsPositive() || r.Commodity == "" {
			continue
		}
		prices = append(prices, Price{
			Commodity:  strings.TrimSpace(r.Commodity),
			Market:     strings.TrimSpace(r.Market),
			District:   strings.TrimSpace(r.District),
			State:      strings.TrimSpace(r.State),
			MinPrice:   parseOr(r.MinPrice, modal),
			MaxPrice:   parseOr(r.MaxPrice, modal),
			ModalPrice: modal,
			Unit:       defaultUnit,
			Date:       r.ArrivalDate,
		})
	}
	if len(prices) == 0 {
		return PriceSet{}, fmt.Errorf("%w: no usable records", ErrUpstream)
	}
	sortPrices(prices)

	return PriceSet{Prices: prices, FetchedAt: m.cfg.Now().UTC(), Source: SourceDataGov}, nil
}

func parseOr(s string, def decimal.Decimal) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return d
}

func sortPrices(p []Price) {
	sort.SliceStable(p, func(i, j int) bool {
		if p[i].Commodity != p[j].Commodity {
			return p[i].Commodity < p[j].Commodity
		}
		return p[i].Market < p[j].Market
	})
}

// Merge lays manual quotes over set. A manual quote replaces every set quote
// for the same commodity and market, compared case-insensitively; among
// manual quotes for one pair the first wins. set is not modified.
func Merge(set PriceSet, manual []Price) PriceSet {
	if len(manual) == 0 {
		return set
	}
	key := func(p Price) string {
		return strings.ToLower(strings.TrimSpace(p.Commodity)) + "\x00" + strings.ToLower(strings.TrimSpace(p.Market))
	}

	seen := make(map[string]struct{}, len(manual))
	out := make([]Price, 0, len(set.Prices)+len(manual))
	for _, p := range manual {
		k := key(p)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, p)
	}
	for _, p := range set.Prices {
		if _, overridden := seen[key(p)]; !overridden {
			out = append(out, p)
		}
	}
	sortPrices(out)
	set.Prices = out
	return set
}

// ModalAverage is the mean modal price per commodity, rounded to rupees.
func (s PriceSet) ModalAverage() map[string]decimal.Decimal {
	sums := map[string]decimal.Decimal{}
	counts := map[string]int64{}
	for _, p := range s.Prices {
		sums[p.Commodity] = sums[p.Commodity].Add(p.ModalPrice)
		counts[p.Commodity]++
	}
	out := make(map[string]decimal.Decimal, len(sums))
	for c, sum := range sums {
		out[c] = sum.Div(decimal.NewFromInt(counts[c])).Round(0)
	}
	return out
}

func fallbackPrices(now time.Time) PriceSet {
	date := now.UTC().Format("02/01/2006")
	quote := func(commodity, market, district string, modal int64) Price {
		m := decimal.NewFromInt(modal)
		return Price{
			Commodity:  commodity,
			Market:     market,
			District:   district,
			State:      "Karnataka",
			MinPrice:   m.Mul(decimal.RequireFromString("0.9")).Round(0),
			MaxPrice:   m.Mul(decimal.RequireFromString("1.1")).Round(0),
			ModalPrice: m,
			Unit:       defaultUnit,
			Date:       date,
		}
	}
	prices := []Price{
		quote("Tomato", "Bangalore APMC", "Bangalore", 3500),
		quote("Onion", "Mysore", "Mysore", 2800),
		quote("Potato", "Hubli", "Dharwad", 2200),
		quote("Beans", "Hassan", "Hassan", 4500),
		quote("Banana", "Bangalore APMC", "Bangalore", 2500),
		quote("Mango", "Mysore", "Mysore", 4500),
		quote("Pomegranate", "Shimoga", "Shimoga", 9500),
		quote("Rice", "Mandya", "Mandya", 2200),
		quote("Wheat", "Dharwad", "Dharwad", 2000),
		quote("Ragi", "Hassan", "Hassan", 3500),
	}
	sortPrices(prices)
	return PriceSet{Prices: prices, FetchedAt: now.UTC(), Source: SourceFallback, Stale: true}
}
