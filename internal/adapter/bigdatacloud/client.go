// Package bigdatacloud implements reverse-geocoding enrichment against the
// BigDataCloud API. The client endpoint works without an API key at a reduced
// quota, so an empty key is a valid configuration.
package bigdatacloud

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/firewatch-etl/internal/domain"
	"github.com/couchcryptid/firewatch-etl/internal/observability"
)

// maxRetries bounds transient-failure retries per lookup; with the initial
// attempt that is three requests before the caller degrades to unset
// enrichment fields.
const maxRetries = 2

// Client implements domain.Geocoder using the BigDataCloud reverse-geocode
// API with client-side rate limiting and bounded retry.
type Client struct {
	apiKey        string
	httpClient    *http.Client
	baseURL       string
	limiter       *rate.Limiter
	retryInterval time.Duration
	metrics       *observability.Metrics
	logger        *slog.Logger
}

// NewClient creates a BigDataCloud geocoding client. ratePerSec caps outbound
// request rate to respect the API's quota; timeout bounds each attempt.
func NewClient(apiKey string, timeout time.Duration, ratePerSec float64, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:       "https://api.bigdatacloud.net",
		limiter:       rate.NewLimiter(rate.Limit(ratePerSec), 1),
		retryInterval: 200 * time.Millisecond,
		metrics:       metrics,
		logger:        logger,
	}
}

// ReverseGeocode converts coordinates to place names. Network errors, 5xx
// responses, and rate-limit signals are retried with exponential backoff;
// other failures are permanent. An exhausted retry budget surfaces as an
// error the caller treats as "enrichment unavailable".
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.LocationInfo, error) {
	var info domain.LocationInfo

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.retryInterval
	expo.MaxElapsedTime = 0 // the retry count bounds the budget, not wall time
	policy := backoff.WithContext(backoff.WithMaxRetries(expo, maxRetries), ctx)

	err := backoff.Retry(func() error {
		result, err := c.lookup(ctx, lat, lon)
		if err != nil {
			return err
		}
		info = result
		return nil
	}, policy)
	if err != nil {
		return domain.LocationInfo{}, err
	}
	return info, nil
}

func (c *Client) lookup(ctx context.Context, lat, lon float64) (domain.LocationInfo, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.LocationInfo{}, backoff.Permanent(err)
	}

	params := url.Values{
		"latitude":         {fmt.Sprintf("%f", lat)},
		"longitude":        {fmt.Sprintf("%f", lon)},
		"localityLanguage": {"en"},
	}
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	fullURL := c.baseURL + "/data/reverse-geocode-client?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.LocationInfo{}, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.EnrichAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.EnrichRequests.WithLabelValues("error").Inc()
		return domain.LocationInfo{}, fmt.Errorf("reverse geocode request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		c.metrics.EnrichRequests.WithLabelValues("error").Inc()
		return domain.LocationInfo{}, fmt.Errorf("bigdatacloud API error: status %d", resp.StatusCode)
	default:
		c.metrics.EnrichRequests.WithLabelValues("error").Inc()
		return domain.LocationInfo{}, backoff.Permanent(fmt.Errorf("bigdatacloud API error: status %d", resp.StatusCode))
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.metrics.EnrichRequests.WithLabelValues("error").Inc()
		return domain.LocationInfo{}, fmt.Errorf("decode response: %w", err)
	}

	info := domain.LocationInfo{
		City:     body.City,
		Locality: body.Locality,
		State:    body.PrincipalSubdivision,
		Country:  body.CountryName,
	}
	if info == (domain.LocationInfo{}) {
		c.metrics.EnrichRequests.WithLabelValues("empty").Inc()
	} else {
		c.metrics.EnrichRequests.WithLabelValues("success").Inc()
	}
	return info, nil
}

// BigDataCloud API response fields used by the pipeline.
type response struct {
	City                 string `json:"city"`
	Locality             string `json:"locality"`
	PrincipalSubdivision string `json:"principalSubdivision"`
	CountryName          string `json:"countryName"`
}
