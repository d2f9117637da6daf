package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/daily-digest/internal/model"
	"github.com/nhle/daily-digest/internal/source"
)

// ErrNoSelector is returned when a query carries neither keywords nor a
// category. It is a caller error; no request is made.
var ErrNoSelector = errors.New("either keywords or a category must be provided")

// Headline count bounds. Requested limits are clamped into this band, and the
// clamped value is also the page size requested from the API.
const (
	minLimit = 3
	maxLimit = 5
)

const defaultBaseURL = "https://newsapi.org/v2/top-headlines"

// Query selects which headlines to fetch. Keywords take precedence over
// Category when both are set; the terms are joined by spaces into a single
// query string.
type Query struct {
	Keywords []string
	Category string
	Limit    int
}

// Client is a thin HTTP client for the NewsAPI top-headlines endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a headlines client. Outbound requests are bounded by a
// fixed 10 second timeout; past it the call fails rather than hangs.
func NewClient(cfg model.NewsConfig) *Client {
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// TopHeadlines fetches the current top headlines matching the query.
// Only entries with both a title and a url are kept; the API's ranking order
// is preserved and the result is truncated to the clamped limit.
func (c *Client) TopHeadlines(ctx context.Context, q Query) ([]model.Headline, error) {
	if c.apiKey == "" {
		return nil, &model.ConfigError{Setting: "news api key"}
	}
	if len(q.Keywords) == 0 && q.Category == "" {
		return nil, ErrNoSelector
	}

	limit := clampLimit(q.Limit)

	values := url.Values{}
	values.Set("apiKey", c.apiKey)
	values.Set("pageSize", strconv.Itoa(limit))
	if len(q.Keywords) > 0 {
		values.Set("q", strings.Join(q.Keywords, " "))
	} else {
		values.Set("category", q.Category)
	}

	reqURL := fmt.Sprintf("%s?%s", c.baseURL, values.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating headlines request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching headlines: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &source.AuthError{
			SourceType: source.SourceTypeNews,
			Message:    fmt.Sprintf("headlines API rejected the key (status %d)", resp.StatusCode),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("headlines API returned status %d", resp.StatusCode)
	}

	var payload struct {
		Articles []struct {
			Title string `json:"title"`
			URL   string `json:"url"`
		} `json:"articles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding headlines response: %w", err)
	}

	headlines := make([]model.Headline, 0, limit)
	for _, article := range payload.Articles {
		if article.Title == "" || article.URL == "" {
			continue
		}
		headlines = append(headlines, model.Headline{
			Title: article.Title,
			URL:   article.URL,
		})
		if len(headlines) == limit {
			break
		}
	}

	return headlines, nil
}

// clampLimit forces the requested count into [minLimit, maxLimit].
func clampLimit(limit int) int {
	if limit < minLimit {
		return minLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
