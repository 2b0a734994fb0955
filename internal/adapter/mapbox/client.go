package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/pm25-field-data/internal/domain"
	"github.com/couchcryptid/pm25-field-data/internal/observability"
)

const (
	defaultBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

	// candidates is how many features are requested per lookup.
	candidates = 5

	// DefaultMinRelevance is the lowest Mapbox relevance accepted for a site.
	DefaultMinRelevance = 0.5
)

// Client looks up monitoring site coordinates with the Mapbox Geocoding API.
// It implements domain.Geocoder.
type Client struct {
	token        string
	baseURL      string
	country      string
	minRelevance float64
	httpClient   *http.Client
	logger       *slog.Logger
	metrics      *observability.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithCountry restricts results to an ISO 3166 alpha-2 country code.
func WithCountry(code string) Option {
	return func(c *Client) { c.country = strings.ToLower(strings.TrimSpace(code)) }
}

// NewClient creates a Mapbox geocoding client.
func NewClient(token string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Client {
	c := &Client{
		token:        token,
		baseURL:      defaultBaseURL,
		minRelevance: DefaultMinRelevance,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logger,
		metrics:      metrics,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ForwardGeocode resolves a site name within region. The first candidate at
// or above the relevance floor wins; when none qualifies the zero result is
// returned without error.
func (c *Client) ForwardGeocode(ctx context.Context, name, region string) (domain.GeocodingResult, error) {
	query := strings.TrimSpace(name)
	if region != "" {
		query += ", " + region
	}

	features, err := c.search(ctx, query)
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return domain.GeocodingResult{}, err
	}

	for _, f := range features {
		if f.Relevance < c.minRelevance || len(f.Center) != 2 {
			continue
		}
		c.metrics.GeocodeRequests.WithLabelValues("success").Inc()
		return domain.GeocodingResult{
			Lon:              f.Center[0],
			Lat:              f.Center[1],
			FormattedAddress: f.PlaceName,
			PlaceName:        f.Text,
			Confidence:       f.Relevance,
		}, nil
	}

	c.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
	c.logger.Debug("no confident mapbox match", "query", query, "candidates", len(features))
	return domain.GeocodingResult{}, nil
}

func (c *Client) search(ctx context.Context, query string) ([]feature, error) {
	u, err := url.Parse(c.baseURL + "/" + url.PathEscape(query) + ".json")
	if err != nil {
		return nil, fmt.Errorf("build geocode url: %w", err)
	}
	params := url.Values{
		"access_token": {c.token},
		"limit":        {fmt.Sprint(candidates)},
		"types":        {"poi,neighborhood,locality,place"},
	}
	if c.country != "" {
		params.Set("country", c.country)
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.GeocodeAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("geocode %q: %w", query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("mapbox API error: status %d: %s", resp.StatusCode, body)
	}

	var decoded response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return decoded.Features, nil
}

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Center    []float64 `json:"center"` // [lon, lat]
	PlaceName string    `json:"place_name"`
	Text      string    `json:"text"`
	Relevance float64   `json:"relevance"`
}
