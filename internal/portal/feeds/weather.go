package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/agriconnect/farmerportal/pkg/slogx"
	"golang.org/x/sync/singleflight"
)

const DefaultWeatherTTL = 30 * time.Minute

// WeatherSnapshot is the current weather at a named place.
type WeatherSnapshot struct {
	Location     string
	TemperatureC float64
	FeelsLikeC   float64
	Humidity     int
	WindKph      float64
	Description  string
	FetchedAt    time.Time
	Stale        bool
}

type WeatherProvider interface {
	ByLocation(ctx context.Context, location string) WeatherSnapshot
}

type OpenWeatherConfig struct {
	URL     string
	APIKey  string
	Country string
	TTL     time.Duration
	Client  *http.Client
	Now     func() time.Time
}

// OpenWeather reads current conditions from an OpenWeatherMap style API and
// caches them per location. Concurrent misses for one location share a
// single upstream call.
type OpenWeather struct {
	cfg    OpenWeatherConfig
	client *http.Client
	group  singleflight.Group

	mu    sync.RWMutex
	cache map[string]WeatherSnapshot
}

func NewOpenWeather(cfg OpenWeatherConfig) *OpenWeather {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultWeatherTTL
	}
	if cfg.Country == "" {
		cfg.Country = "IN"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &OpenWeather{
		cfg:    cfg,
		client: newHTTPClient(cfg.Client),
		cache:  make(map[string]WeatherSnapshot),
	}
}

func (w *OpenWeather) ByLocation(ctx context.Context, location string) WeatherSnapshot {
	location = strings.TrimSpace(location)
	if location == "" {
		location = "Bangalore"
	}
	key := strings.ToLower(location)

	w.mu.RLock()
	cached, ok := w.cache[key]
	w.mu.RUnlock()
	if ok && w.cfg.Now().Sub(cached.FetchedAt) < w.cfg.TTL {
		return cached
	}

	v, err, _ := w.group.Do(key, func() (any, error) {
		snap, err := w.fetch(ctx, location)
		if err != nil {
			return nil, err
		}
		w.mu.Lock()
		w.cache[key] = snap
		w.mu.Unlock()
		return snap, nil
	})
	if err == nil {
		return v.(WeatherSnapshot)
	}

	slogx.FromContext(ctx).Warn("weather unavailable", slog.String("location", location), slog.Any("error", err))
	if ok {
		cached.Stale = true
		return cached
	}
	return WeatherSnapshot{
		Location:     location,
		TemperatureC: 27,
		FeelsLikeC:   28,
		Humidity:     65,
		WindKph:      10,
		Description:  "weather data unavailable",
		FetchedAt:    w.cfg.Now().UTC(),
		Stale:        true,
	}
}

type openWeatherResponse struct {
	Name string `json:"name"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
}

func (w *OpenWeather) fetch(ctx context.Context, location string) (WeatherSnapshot, error) {
	if w.cfg.URL == "" {
		return WeatherSnapshot{}, ErrNotConfigured
	}
	u, err := url.Parse(w.cfg.URL)
	if err != nil {
		return WeatherSnapshot{}, fmt.Errorf("feeds: weather url: %w", err)
	}
	q := u.Query()
	q.Set("q", location+","+w.cfg.Country)
	q.Set("units", "metric")
	q.Set("appid", w.cfg.APIKey)
	u.RawQuery = q.Encode()

	body, err := getJSON(ctx, w.client, u.String())
	if err != nil {
		return WeatherSnapshot{}, err
	}
	var resp openWeatherResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return WeatherSnapshot{}, fmt.Errorf("%w: decode: %v", ErrUpstream, err)
	}

	snap := WeatherSnapshot{
		Location:     location,
		TemperatureC: math.Round(resp.Main.Temp*10) / 10,
		FeelsLikeC:   math.Round(resp.Main.FeelsLike*10) / 10,
		Humidity:     resp.Main.Humidity,
		WindKph:      math.Round(resp.Wind.Speed*3.6*10) / 10,
		FetchedAt:    w.cfg.Now().UTC(),
	}
	if resp.Name != "" {
		snap.Location = resp.Name
	}
	if len(resp.Weather) > 0 {
		snap.Description = resp.Weather[0].Description
	}
	return snap, nil
}
