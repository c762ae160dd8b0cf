package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fundsight/fundsight/internal/metrics"
	"github.com/fundsight/fundsight/internal/models"
)

const navFeedDisabledMsg = "nav feed is disabled"

// HTTPNavClient fetches NAV histories, fund profiles and index levels from
// the upstream fund-data API. It implements NavProvider, FundCatalog and
// BenchmarkProvider.
type HTTPNavClient struct {
	httpClient *RateLimitedHTTPClient
	baseURL    string
	apiKey     string
	enabled    bool
	logger     *log.Logger
}

// navEntry is a single NAV observation as the feed reports it. NAVs arrive
// as decimal strings (e.g. "104.2310") and must not be parsed as floats
// directly.
type navEntry struct {
	Date string `json:"date"`
	Nav  string `json:"nav"`
}

type navHistoryResponse struct {
	FundID  string     `json:"fundId"`
	Entries []navEntry `json:"data"`
}

type fundProfileResponse struct {
	FundID        string  `json:"fundId"`
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	Subcategory   string  `json:"subcategory"`
	ExpenseRatio  *string `json:"expenseRatio"`
	AumValue      *string `json:"aum"`
	InceptionDate string  `json:"inceptionDate"`
}

// NewHTTPNavClient creates a client for the fund-data API
func NewHTTPNavClient(httpClient *RateLimitedHTTPClient, baseURL, apiKey string, enabled bool, logger *log.Logger) *HTTPNavClient {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &HTTPNavClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		enabled:    enabled,
		logger:     logger,
	}
}

// GetNavSeries retrieves the NAV history for a fund within the date range
func (c *HTTPNavClient) GetNavSeries(ctx context.Context, fundID string, start, end time.Time) (models.NavSeries, error) {
	if !c.enabled {
		return nil, NewProviderError("nav_feed", ErrCodeNetworkError, navFeedDisabledMsg, nil)
	}

	endpoint := fmt.Sprintf("%s/funds/%s/nav?from=%s&to=%s",
		c.baseURL, url.PathEscape(fundID),
		start.Format("2006-01-02"), end.Format("2006-01-02"))

	body, err := c.get(ctx, endpoint, "fund NAV history not found")
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var payload navHistoryResponse
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return nil, NewProviderError("nav_feed", ErrCodeInvalidData, "failed to parse NAV history", err)
	}

	series := make(models.NavSeries, 0, len(payload.Entries))
	for _, entry := range payload.Entries {
		point, err := convertNavEntry(entry)
		if err != nil {
			c.logger.Printf("Skipping bad NAV entry for fund %s: %v", fundID, err)
			continue
		}
		series = append(series, point)
	}

	// The feed does not guarantee order.
	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })

	if err := series.Validate(); err != nil {
		return nil, NewProviderError("nav_feed", ErrCodeInvalidData, "NAV history failed validation", err)
	}
	metrics.RecordNavPointsIngested(len(series))
	return series, nil
}

// GetLatestNav retrieves the most recent NAV observation for a fund
func (c *HTTPNavClient) GetLatestNav(ctx context.Context, fundID string) (models.NavPoint, error) {
	if !c.enabled {
		return models.NavPoint{}, NewProviderError("nav_feed", ErrCodeNetworkError, navFeedDisabledMsg, nil)
	}

	endpoint := fmt.Sprintf("%s/funds/%s/nav/latest", c.baseURL, url.PathEscape(fundID))
	body, err := c.get(ctx, endpoint, "fund not found")
	if err != nil {
		return models.NavPoint{}, err
	}
	defer body.Close()

	var entry navEntry
	if err := json.NewDecoder(body).Decode(&entry); err != nil {
		return models.NavPoint{}, NewProviderError("nav_feed", ErrCodeInvalidData, "failed to parse latest NAV", err)
	}
	point, err := convertNavEntry(entry)
	if err != nil {
		return models.NavPoint{}, NewProviderError("nav_feed", ErrCodeInvalidData, "bad latest NAV entry", err)
	}
	return point, nil
}

// GetIndexSeries retrieves benchmark index levels within the date range
func (c *HTTPNavClient) GetIndexSeries(ctx context.Context, indexName string, start, end time.Time) (models.NavSeries, error) {
	if !c.enabled {
		return nil, NewProviderError("nav_feed", ErrCodeNetworkError, navFeedDisabledMsg, nil)
	}

	endpoint := fmt.Sprintf("%s/indexes/%s/levels?from=%s&to=%s",
		c.baseURL, url.PathEscape(indexName),
		start.Format("2006-01-02"), end.Format("2006-01-02"))

	body, err := c.get(ctx, endpoint, "index not found")
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var payload navHistoryResponse
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return nil, NewProviderError("nav_feed", ErrCodeInvalidData, "failed to parse index levels", err)
	}

	series := make(models.NavSeries, 0, len(payload.Entries))
	for _, entry := range payload.Entries {
		point, err := convertNavEntry(entry)
		if err != nil {
			c.logger.Printf("Skipping bad level for index %s: %v", indexName, err)
			continue
		}
		series = append(series, point)
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	return series, nil
}

// GetFundProfile retrieves static fund attributes
func (c *HTTPNavClient) GetFundProfile(ctx context.Context, fundID string) (*models.FundProfile, error) {
	if !c.enabled {
		return nil, NewProviderError("nav_feed", ErrCodeNetworkError, navFeedDisabledMsg, nil)
	}

	endpoint := fmt.Sprintf("%s/funds/%s", c.baseURL, url.PathEscape(fundID))
	body, err := c.get(ctx, endpoint, "fund not found")
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var payload fundProfileResponse
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return nil, NewProviderError("nav_feed", ErrCodeInvalidData, "failed to parse fund profile", err)
	}
	return convertFundProfile(&payload), nil
}

// GetFundsByCategory retrieves all fund profiles in a category
func (c *HTTPNavClient) GetFundsByCategory(ctx context.Context, category string) ([]*models.FundProfile, error) {
	if !c.enabled {
		return nil, NewProviderError("nav_feed", ErrCodeNetworkError, navFeedDisabledMsg, nil)
	}

	endpoint := fmt.Sprintf("%s/funds?category=%s", c.baseURL, url.QueryEscape(category))
	body, err := c.get(ctx, endpoint, "category not found")
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var payload []fundProfileResponse
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return nil, NewProviderError("nav_feed", ErrCodeInvalidData, "failed to parse fund list", err)
	}

	profiles := make([]*models.FundProfile, 0, len(payload))
	for i := range payload {
		profiles = append(profiles, convertFundProfile(&payload[i]))
	}
	return profiles, nil
}

// Name returns the provider name
func (c *HTTPNavClient) Name() string {
	return "nav_feed"
}

// IsEnabled returns whether this provider is enabled
func (c *HTTPNavClient) IsEnabled() bool {
	return c.enabled
}

// get issues an authenticated GET and maps transport-level failures onto
// provider errors. The caller owns the returned body.
func (c *HTTPNavClient) get(ctx context.Context, endpoint, notFoundMsg string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, NewProviderError("nav_feed", ErrCodeNetworkError, "failed to create request", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return nil, NewProviderError("nav_feed", ErrCodeNetworkError, "request failed", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return resp.Body, nil
	case http.StatusNotFound:
		resp.Body.Close()
		return nil, NewProviderError("nav_feed", ErrCodeNotFound, notFoundMsg, models.ErrNotFound)
	case http.StatusUnauthorized:
		resp.Body.Close()
		return nil, NewProviderError("nav_feed", ErrCodeAuthenticationFailed, "invalid API key", nil)
	case http.StatusTooManyRequests:
		resp.Body.Close()
		return nil, NewProviderError("nav_feed", ErrCodeRateLimitExceeded, "rate limit exceeded", ErrRateLimitExceeded)
	default:
		payload, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, NewProviderError("nav_feed", ErrCodeServerError,
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(payload)), nil)
	}
}

// convertNavEntry parses a feed entry into a NavPoint
func convertNavEntry(entry navEntry) (models.NavPoint, error) {
	date, err := time.Parse("2006-01-02", entry.Date)
	if err != nil {
		return models.NavPoint{}, fmt.Errorf("invalid date %q: %w", entry.Date, err)
	}
	value, err := decimal.NewFromString(entry.Nav)
	if err != nil {
		return models.NavPoint{}, fmt.Errorf("invalid NAV %q: %w", entry.Nav, err)
	}
	if value.Sign() <= 0 {
		return models.NavPoint{}, fmt.Errorf("non-positive NAV %q: %w", entry.Nav, models.ErrInvalidNavValue)
	}
	return models.NavPoint{Date: date, Value: value.InexactFloat64()}, nil
}

// convertFundProfile maps the feed's profile format onto the domain model
func convertFundProfile(payload *fundProfileResponse) *models.FundProfile {
	profile := &models.FundProfile{
		FundID:       payload.FundID,
		Name:         payload.Name,
		Category:     payload.Category,
		Subcategory:  payload.Subcategory,
		ExpenseRatio: parseDecimalField(payload.ExpenseRatio),
		AumValue:     parseDecimalField(payload.AumValue),
	}
	if inception, err := time.Parse("2006-01-02", payload.InceptionDate); err == nil {
		profile.InceptionDate = inception
	}
	return profile
}

// parseDecimalField parses an optional decimal string, returning zero if absent or invalid
func parseDecimalField(s *string) float64 {
	if s == nil || *s == "" {
		return 0
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}
