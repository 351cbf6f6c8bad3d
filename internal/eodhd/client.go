package eodhd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the base URL for the EODHD API.
	DefaultBaseURL = "https://eodhd.com/api"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 10
)

// Client is an EODHD API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the HTTP timeout of the default client.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 && c.httpClient != nil {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit. Non-positive values keep the default.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// NewClient creates a new EODHD API client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// get issues one rate-limited GET and decodes the JSON body into result.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &RateLimitError{RetryAfter: time.Second}
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_token", c.apiKey)
	params.Set("fmt", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("eodhd %s: %w", path, err)
	}
	defer resp.Body.Close()

	if c.logger != nil {
		c.logger.Debug().
			Str("endpoint", path).
			Int("status", resp.StatusCode).
			Dur("elapsed", time.Since(started)).
			Msg("EODHD API request")
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{RetryAfter: retryAfter(resp.Header.Get("Retry-After"))}
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("eodhd %s: failed to decode response: %w", path, err)
	}
	return nil
}

// retryAfter reads a Retry-After header in seconds, defaulting to a minute
func retryAfter(header string) time.Duration {
	if secs, err := strconv.Atoi(strings.TrimSpace(header)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return time.Minute
}

// parseTime tries each layout in turn; the zero time means none matched
func parseTime(value string, layouts ...string) time.Time {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

// GetEOD returns daily bars for symbol (TICKER.EXCHANGE, e.g. "2330.TW"),
// oldest first unless WithOrder says otherwise.
func (c *Client) GetEOD(ctx context.Context, symbol string, opts ...QueryOption) (EODResponse, error) {
	q := newQuery(query{period: "d", order: "a"}, opts)

	var bars EODResponse
	if err := c.get(ctx, "/eod/"+symbol, q.values(), &bars); err != nil {
		return nil, err
	}
	for i := range bars {
		bars[i].Date = parseTime(bars[i].DateStr, dateLayout)
	}
	return bars, nil
}

// GetFundamentals returns the General block of the fundamentals document.
func (c *Client) GetFundamentals(ctx context.Context, symbol string) (*FundamentalsResponse, error) {
	var general GeneralInfo
	if err := c.get(ctx, "/fundamentals/"+symbol, url.Values{"filter": {"General"}}, &general); err != nil {
		return nil, err
	}
	return &FundamentalsResponse{General: &general}, nil
}

// GetAnnualEarnings returns the Earnings::Annual block of the fundamentals document.
// Symbols without earnings data decode to an empty map.
func (c *Client) GetAnnualEarnings(ctx context.Context, symbol string) (AnnualEarnings, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/fundamentals/"+symbol, url.Values{"filter": {"Earnings::Annual"}}, &raw); err != nil {
		return nil, err
	}

	earnings := AnnualEarnings{}
	if !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsObject() {
		return earnings, nil
	}
	if err := json.Unmarshal(raw, &earnings); err != nil {
		return nil, fmt.Errorf("decode annual earnings: %w", err)
	}
	return earnings, nil
}

// GetNews returns articles tagged with any of symbols, newest first.
func (c *Client) GetNews(ctx context.Context, symbols []string, opts ...QueryOption) (NewsResponse, error) {
	q := newQuery(query{limit: 50}, opts)
	params := q.values()
	params.Set("s", strings.Join(symbols, ","))

	var items NewsResponse
	if err := c.get(ctx, "/news", params, &items); err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Date = parseTime(items[i].DateStr, time.RFC3339, "2006-01-02 15:04:05", dateLayout)
	}
	return items, nil
}

// GetRealTimeQuote returns the live (or 15-minute delayed) quote for symbol.
func (c *Client) GetRealTimeQuote(ctx context.Context, symbol string) (*RealTimeQuote, error) {
	var quote RealTimeQuote
	if err := c.get(ctx, "/real-time/"+symbol, nil, &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}
