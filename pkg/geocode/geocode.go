// Package geocode turns post coordinates into street addresses using the
// Nominatim reverse geocoding API.
package geocode

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"osintgram/pkg/config"
	errs "osintgram/pkg/errors"
	"osintgram/pkg/logger"
	"osintgram/pkg/ratelimit"
	"osintgram/pkg/record"
	"osintgram/pkg/retry"
)

// ReversePath is the Nominatim reverse lookup endpoint
const ReversePath = "/reverse"

// Client resolves coordinates to addresses. Lookups are paced to the
// configured requests per second and repeated coordinates are served from
// memory.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    ratelimit.Limiter
	retry      *retry.Config
	logger     logger.Logger

	mu    sync.Mutex
	cache map[string]string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetry replaces the retry policy
func WithRetry(cfg *retry.Config) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithLimiter replaces the request pacing
func WithLimiter(l ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// NewClient creates a geocoder from configuration
func NewClient(cfg config.GeocodeConfig, log logger.Logger, opts ...Option) *Client {
	if log == nil {
		log = logger.NewNopLogger()
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		userAgent:  cfg.UserAgent,
		limiter:    ratelimit.NewSlidingWindow(rps, time.Second),
		retry:      retry.DefaultConfig(),
		logger:     log.WithField("component", "geocode"),
		cache:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Reverse returns the display address of a coordinate. A coordinate the
// service cannot place yields an error wrapping record.ErrMissingField.
func (c *Client) Reverse(ctx context.Context, lat, lng float64) (string, error) {
	key := coordKey(lat, lng)

	c.mu.Lock()
	if addr, ok := c.cache[key]; ok {
		c.mu.Unlock()
		return addr, nil
	}
	c.mu.Unlock()

	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	endpoint := c.baseURL + ReversePath + "?" + q.Encode()

	rec, err := retry.DoWithResult(ctx, func(ctx context.Context) (record.Record, error) {
		return c.fetch(ctx, endpoint)
	}, c.retry)
	if err != nil {
		return "", err
	}

	addr, ok := rec.String("display_name")
	if !ok || addr == "" {
		c.logger.DebugWithFields("no address for coordinate", map[string]interface{}{
			"coordinate": key,
			"reason":     rec.StringOr("error", ""),
		})
		return "", record.MissingField("display_name")
	}

	c.mu.Lock()
	c.cache[key] = addr
	c.mu.Unlock()
	return addr, nil
}

func (c *Client) fetch(ctx context.Context, endpoint string) (record.Record, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeUnknown, 0, "failed to create request: %v", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.LogRequest(c.logger, http.MethodGet, ReversePath, 0, elapsed)
		return nil, errs.New(errs.ErrorTypeNetwork, 0, "network error: %v", err)
	}
	defer resp.Body.Close()
	logger.LogRequest(c.logger, http.MethodGet, ReversePath, resp.StatusCode, elapsed)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeNetwork, 0, "failed to read response body: %v", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, errs.New(errs.ErrorTypeRateLimit, resp.StatusCode, "geocoding service is throttling")
	case resp.StatusCode >= 500:
		return nil, errs.New(errs.ErrorTypeServerError, resp.StatusCode, "geocoding service error")
	case resp.StatusCode != http.StatusOK:
		return nil, errs.New(errs.ErrorTypeUnknown, resp.StatusCode, "unexpected geocoding status %d", resp.StatusCode)
	}

	rec, err := record.DecodeBytes(body)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeParsing, resp.StatusCode, "failed to parse JSON: %v", err)
	}
	return rec, nil
}

func coordKey(lat, lng float64) string {
	return fmt.Sprintf("%.6f,%.6f", lat, lng)
}
