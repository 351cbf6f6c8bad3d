// Package eodhd provides a client for the EODHD (End of Day Historical Data) API.
package eodhd

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

const dateLayout = "2006-01-02"

// QueryOption narrows an EOD or news request.
type QueryOption func(*query)

// query collects the optional parameters shared by the list endpoints.
type query struct {
	from   time.Time
	to     time.Time
	period string // d, w, m
	order  string // a, d
	limit  int
}

// WithDateRange restricts results to [from, to].
func WithDateRange(from, to time.Time) QueryOption {
	return func(q *query) {
		q.from, q.to = from, to
	}
}

// WithPeriod sets the bar period (d, w or m).
func WithPeriod(period string) QueryOption {
	return func(q *query) { q.period = period }
}

// WithOrder sets the sort order (a or d).
func WithOrder(order string) QueryOption {
	return func(q *query) { q.order = order }
}

// WithLimit caps the number of results.
func WithLimit(limit int) QueryOption {
	return func(q *query) { q.limit = limit }
}

func newQuery(base query, opts []QueryOption) query {
	for _, opt := range opts {
		opt(&base)
	}
	return base
}

// values renders the set parameters; zero values are omitted
func (q query) values() url.Values {
	v := url.Values{}
	if !q.from.IsZero() {
		v.Set("from", q.from.Format(dateLayout))
	}
	if !q.to.IsZero() {
		v.Set("to", q.to.Format(dateLayout))
	}
	if q.period != "" {
		v.Set("period", q.period)
	}
	if q.order != "" {
		v.Set("order", q.order)
	}
	if q.limit > 0 {
		v.Set("limit", strconv.Itoa(q.limit))
	}
	return v
}

// APIError is a non-200 answer from the API.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("eodhd %s: status %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// RateLimitError is returned on HTTP 429.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("eodhd rate limit exceeded, retry after %v", e.RetryAfter)
}
