package apphistory

// This file defines functional options that configure the Client during
// construction. Keeping them in a standalone file makes it easy to
// discover all available knobs at a glance.

import (
	"fmt"
	"time"

	"github.com/easypluginz/apphistory/internal/shardqueue"
	"github.com/easypluginz/apphistory/internal/zoho"
)

// Option configures a Client during construction in New.
//
// Options are applied before the auth transport wrapper is installed, so
// transport-related options (like debug logging) sit underneath it.
// Options must be deterministic and side-effect free.
type Option func(*Client) error

// WithHTTPTimeout sets the underlying http.Client Timeout used by the SDK.
//
// Prefer per-request context deadlines where possible; this timeout is a
// coarse safety net that bounds the total time spent on a single HTTP
// request. The value must be greater than zero.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("http timeout must be > 0")
		}
		c.http.Timeout = d
		return nil
	}
}

// WithDataCenter overrides the configured data-center code.
func WithDataCenter(code string) Option {
	return func(c *Client) error {
		if code == "" {
			return fmt.Errorf("data center code must not be empty")
		}
		c.cfg.DataCenter = code
		return nil
	}
}

// WithBaseURL points the client at an explicit API origin instead of the
// data-center default. Useful against sandbox orgs and in tests.
func WithBaseURL(u string) Option {
	return func(c *Client) error {
		if u == "" {
			return fmt.Errorf("base url must not be empty")
		}
		c.baseURL = u
		return nil
	}
}

// WithDownloadProxy sets the attachment download proxy endpoint and the
// token URL forwarded to it.
func WithDownloadProxy(proxyURL, tokenURL string) Option {
	return func(c *Client) error {
		c.cfg.DownloadProxyURL = proxyURL
		c.cfg.AccessTokenURL = tokenURL
		return nil
	}
}

// WithExecutorConfig replaces the default background executor settings.
func WithExecutorConfig(cfg shardqueue.Config) Option {
	return func(c *Client) error {
		c.exec = shardqueue.NewShardExecutor(cfg)
		return nil
	}
}

// WithBridge substitutes the CRM bridge. Intended for tests and for
// embedding contexts that already hold an authenticated transport.
func WithBridge(b zoho.Bridge) Option {
	return func(c *Client) error {
		if b == nil {
			return fmt.Errorf("bridge must not be nil")
		}
		c.bridge = b
		return nil
	}
}

// WithSearchDebounce overrides the settle delay for stakeholder search.
func WithSearchDebounce(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("search debounce must be > 0")
		}
		c.searchDelay = d
		return nil
	}
}

// WithDebugLogging wraps the client's transport so each request and
// response is dumped to the log when enabled is true. Development only.
func WithDebugLogging(enabled bool) Option {
	return func(c *Client) error {
		if enabled {
			c.http.Transport = &debugTransport{base: orDefault(c.http.Transport)}
		}
		return nil
	}
}
