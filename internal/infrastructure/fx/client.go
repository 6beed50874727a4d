// Package fx fetches live exchange rates for currency normalization.
package fx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const maxResponseSize = 1 << 20 // 1MB

var (
	// ErrRequestFailed indicates the rate provider returned a non-2xx status
	ErrRequestFailed = errors.New("fx: request failed")
	// ErrBadResponse indicates the rate provider returned an unparseable body
	ErrBadResponse = errors.New("fx: bad response")
)

// Client fetches exchange rates from an exchangerate.host-compatible
// endpoint.
type Client struct {
	httpClient *http.Client
	endpoint   string
	logger     *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithTimeout sets the request timeout
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		cl.httpClient.Timeout = d
	}
}

// NewClient creates an FX rate client for the given endpoint
func NewClient(endpoint string, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		endpoint:   endpoint,
		logger:     logger.Named("fx"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ratesResponse is the provider's wire shape: rates keyed by currency
// code, quoted as base-per-unit.
type ratesResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// FetchRates returns multipliers that convert each currency into the base
// currency. The provider quotes rates the other way around (units of
// foreign currency per base unit), so each rate is inverted. The base
// currency always maps to 1.0.
func (c *Client) FetchRates(ctx context.Context, base string) (map[string]float64, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("fx: invalid endpoint %q: %w", c.endpoint, err)
	}
	q := u.Query()
	q.Set("base", base)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("fx: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fx: fetch rates: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("fx: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrRequestFailed, resp.StatusCode)
	}

	var parsed ratesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if len(parsed.Rates) == 0 {
		return nil, fmt.Errorf("%w: no rates in body", ErrBadResponse)
	}

	rates := make(map[string]float64, len(parsed.Rates)+1)
	for code, r := range parsed.Rates {
		if r > 0 {
			rates[code] = 1 / r
		}
	}
	rates[base] = 1.0

	c.logger.Debug("fetched exchange rates",
		zap.String("base", base),
		zap.Int("count", len(rates)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return rates, nil
}
