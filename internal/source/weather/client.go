package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/nhle/daily-digest/internal/model"
	"github.com/nhle/daily-digest/internal/source"
)

const defaultBaseURL = "https://api.openweathermap.org/data/2.5/forecast"

// sample is one forecast entry as decoded from the API. Pop is a pointer so
// an absent probability-of-precipitation field is distinguishable from 0.
type sample struct {
	timestamp   string
	temperature float64
	condition   string
	pop         *float64
}

// Client fetches the multi-sample forecast for a location and reduces it to a
// single daily summary.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client

	// now is injectable so tests can pin "today".
	now func() time.Time
}

// NewClient creates a forecast client. Outbound requests are bounded by a
// fixed 10 second timeout; past it the call fails rather than hangs.
func NewClient(cfg model.WeatherConfig) *Client {
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		now: time.Now,
	}
}

// DailyWeather returns today's weather summary for the given location, where
// "today" is the current UTC calendar date. When the forecast holds no sample
// for today, the single earliest sample stands in. A forecast with no samples
// at all yields a nil summary and no error: a degraded result, not a failure.
func (c *Client) DailyWeather(ctx context.Context, location string) (*model.WeatherSummary, error) {
	if c.apiKey == "" {
		return nil, &model.ConfigError{Setting: "weather api key"}
	}

	values := url.Values{}
	values.Set("q", location)
	values.Set("appid", c.apiKey)
	values.Set("units", "metric")

	reqURL := fmt.Sprintf("%s?%s", c.baseURL, values.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating forecast request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching forecast: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &source.AuthError{
			SourceType: source.SourceTypeWeather,
			Message:    fmt.Sprintf("forecast API rejected the key (status %d)", resp.StatusCode),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("forecast API returned status %d", resp.StatusCode)
	}

	var payload struct {
		List []struct {
			DtTxt string `json:"dt_txt"`
			Main  struct {
				Temp float64 `json:"temp"`
			} `json:"main"`
			Weather []struct {
				Description string `json:"description"`
			} `json:"weather"`
			Pop *float64 `json:"pop"`
		} `json:"list"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding forecast response: %w", err)
	}

	samples := make([]sample, 0, len(payload.List))
	for _, entry := range payload.List {
		s := sample{
			timestamp:   entry.DtTxt,
			temperature: entry.Main.Temp,
			pop:         entry.Pop,
		}
		if len(entry.Weather) > 0 {
			s.condition = entry.Weather[0].Description
		}
		samples = append(samples, s)
	}

	today := c.now().UTC().Format("2006-01-02")
	return summarize(workingSet(samples, today)), nil
}

// workingSet partitions samples by whether their timestamp falls on the given
// UTC date. An empty partition falls back to the first sample so any returned
// data produces a non-empty working set.
func workingSet(samples []sample, date string) []sample {
	var todays []sample
	for _, s := range samples {
		if len(s.timestamp) >= len(date) && s.timestamp[:len(date)] == date {
			todays = append(todays, s)
		}
	}
	if len(todays) == 0 && len(samples) > 0 {
		todays = samples[:1]
	}
	return todays
}
