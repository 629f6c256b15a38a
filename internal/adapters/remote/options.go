package remote

import (
	"net/http"
	"time"

	"github.com/okian/formation/pkg/logger"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithBreaker sets how many consecutive failures open the circuit and how
// long it stays open before a trial request.
func WithBreaker(maxFailures uint32, openTimeout time.Duration) Option {
	return func(c *Client) {
		if maxFailures > 0 {
			c.maxFailures = maxFailures
		}
		if openTimeout > 0 {
			c.openTimeout = openTimeout
		}
	}
}

// WithLogger sets a custom logger for the client.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRequestIDs overrides the X-Request-ID generator for reads.
func WithRequestIDs(next func() string) Option {
	return func(c *Client) {
		if next != nil {
			c.nextID = next
		}
	}
}
