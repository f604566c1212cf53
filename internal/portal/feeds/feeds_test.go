package feeds_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agriconnect/farmerportal/internal/portal/feeds"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mandiBody = `{
  "records": [
    {"state":"Karnataka","district":"Mandya","market":"Mandya","commodity":"Rice","arrival_date":"01/07/2024","min_price":"2100","max_price":"2400","modal_price":"2250"},
    {"state":"Karnataka","district":"Kolar","market":"Kolar","commodity":"Tomato","arrival_date":"01/07/2024","min_price":"800","max_price":"1200","modal_price":"1000"},
    {"state":"Karnataka","district":"Bangalore","market":"Binny Mill","commodity":"Tomato","arrival_date":"01/07/2024","min_price":"","max_price":"1500","modal_price":"1201"},
    {"state":"Karnataka","district":"Hassan","market":"Hassan","commodity":"Beans","arrival_date":"01/07/2024","min_price":"0","max_price":"0","modal_price":"NR"}
  ]
}`

func TestDataGovMarketRefresh(t *testing.T) {
	t.Parallel()

	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret-key", r.URL.Query().Get("api-key"))
		assert.Equal(t, "Karnataka", r.URL.Query().Get("filters[state]"))
		if fail.Load() {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(mandiBody))
	}))
	t.Cleanup(srv.Close)

	m := feeds.NewDataGovMarket(feeds.DataGovConfig{URL: srv.URL, APIKey: "secret-key"})
	ctx := context.Background()

	set := m.Latest(ctx)
	require.Equal(t, feeds.SourceDataGov, set.Source)
	require.False(t, set.Stale)
	require.Len(t, set.Prices, 3, "records without a numeric modal price are skipped")
	require.Equal(t, "Rice", set.Prices[0].Commodity)
	require.Equal(t, "Binny Mill", set.Prices[1].Market)
	require.True(t, set.Prices[1].MinPrice.Equal(decimal.NewFromInt(1201)), "missing min falls back to modal")

	avg := set.ModalAverage()
	require.True(t, avg["Tomato"].Equal(decimal.NewFromInt(1101)), avg["Tomato"].String())

	fail.Store(true)
	require.ErrorIs(t, m.Refresh(ctx), feeds.ErrUpstream)
	stale := m.Latest(ctx)
	require.True(t, stale.Stale)
	require.Len(t, stale.Prices, 3)

	fail.Store(false)
	require.NoError(t, m.Refresh(ctx))
	require.False(t, m.Latest(ctx).Stale)
}

func TestDataGovMarketFallback(t *testing.T) {
	t.Parallel()

	m := feeds.NewDataGovMarket(feeds.DataGovConfig{})
	require.ErrorIs(t, m.Refresh(context.Background()), feeds.ErrNotConfigured)

	set := m.Latest(context.Background())
	require.Equal(t, feeds.SourceFallback, set.Source)
	require.True(t, set.Stale)
	require.NotEmpty(t, set.Prices)
	for _, p := range set.Prices {
		require.True(t, p.MinPrice.LessThanOrEqual(p.ModalPrice))
		require.True(t, p.MaxPrice.GreaterThanOrEqual(p.ModalPrice))
	}
}

const weatherBody = `{"name":"Mysuru","main":{"temp":26.44,"feels_like":27.1,"humidity":71},"wind":{"speed":2.5},"weather":[{"description":"light rain"}]}`

func TestOpenWeatherCachesAndCollapses(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "Mysuru,IN", r.URL.Query().Get("q"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		<-release
		_, _ = w.Write([]byte(weatherBody))
	}))
	t.Cleanup(srv.Close)

	now := time.Date(2024, 7, 1, 6, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time { mu.Lock(); defer mu.Unlock(); return now }
	w := feeds.NewOpenWeather(feeds.OpenWeatherConfig{URL: srv.URL, APIKey: "k", Now: clock})

	var wg sync.WaitGroup
	results := make([]feeds.WeatherSnapshot, 5)
	for i := range results {
		wg.Go(func() { results[i] = w.ByLocation(context.Background(), "Mysuru") })
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		require.Equal(t, "Mysuru", r.Location)
		require.InDelta(t, 26.4, r.TemperatureC, 0.001)
		require.InDelta(t, 9.0, r.WindKph, 0.001)
		require.Equal(t, "light rain", r.Description)
		require.False(t, r.Stale)
	}

	_ = w.ByLocation(context.Background(), "mysuru")
	require.Equal(t, int32(1), calls.Load(), "cache is case-insensitive")

	mu.Lock()
	now = now.Add(31 * time.Minute)
	mu.Unlock()
	_ = w.ByLocation(context.Background(), "Mysuru")
	require.Equal(t, int32(2), calls.Load())
}

func TestOpenWeatherDegrades(t *testing.T) {
	t.Parallel()

	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(weatherBody))
	}))
	t.Cleanup(srv.Close)

	now := time.Date(2024, 7, 1, 6, 0, 0, 0, time.UTC)
	w := feeds.NewOpenWeather(feeds.OpenWeatherConfig{URL: srv.URL, Now: func() time.Time { return now }, TTL: time.Nanosecond})

	fresh := w.ByLocation(context.Background(), "Mysuru")
	require.False(t, fresh.Stale)

	fail.Store(true)
	now = now.Add(time.Minute)
	stale := w.ByLocation(context.Background(), "Mysuru")
	require.True(t, stale.Stale)
	require.InDelta(t, fresh.TemperatureC, stale.TemperatureC, 0.001)

	neutral := w.ByLocation(context.Background(), "Udupi")
	require.True(t, neutral.Stale)
	require.Equal(t, "Udupi", neutral.Location)
	require.Equal(t, "weather data unavailable", neutral.Description)
}

func TestMergeManualPrices(t *testing.T) {
	t.Parallel()

	quote := func(commodity, market string, modal int64) feeds.Price {
		d := decimal.NewFromInt(modal)
		return feeds.Price{Commodity: commodity, Market: market, MinPrice: d, MaxPrice: d, ModalPrice: d, Unit: "Rs/quintal"}
	}
	set := feeds.PriceSet{
		Prices: []feeds.Price{
			quote("Onion", "Mysore", 2800),
			quote("Tomato", "Bangalore APMC", 3500),
		},
		Source: feeds.SourceDataGov,
	}

	manual := []feeds.Price{
		quote("tomato", "bangalore apmc", 40),
		quote("Tomato", "Bangalore APMC", 38),
		quote("Beans", "Hassan", 60),
	}
	for i := range manual {
		manual[i].Unit = "Rs/kg"
		manual[i].Source = feeds.SourceManual
	}

	merged := feeds.Merge(set, manual)
	require.Equal(t, feeds.SourceDataGov, merged.Source)
	require.Len(t, merged.Prices, 3)

	got := map[string]feeds.Price{}
	for _, p := range merged.Prices {
		got[p.Commodity] = p
	}
	assert.True(t, got["tomato"].ModalPrice.Equal(decimal.NewFromInt(40)), "first manual quote wins")
	assert.Equal(t, feeds.SourceManual, got["tomato"].Source)
	assert.Equal(t, "Rs/kg", got["tomato"].Unit)
	assert.Empty(t, got["Onion"].Source)
	assert.Contains(t, got, "Beans")
	require.Equal(t, "Beans", merged.Prices[0].Commodity, "sorted by commodity")

	require.Len(t, set.Prices, 2, "input set untouched")
	require.Equal(t, set, feeds.Merge(set, nil))
}
