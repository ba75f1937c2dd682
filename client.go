// Package apphistory is a client SDK for the Application History widget
// backend: it loads, filters and mutates history records (meetings, calls,
// to-dos) attached to Applications and Deals in the CRM.
//
// Reads assemble through a dual-path loader (bulk query with related-list
// fallback). Writes apply optimistically to an in-memory store and are
// confirmed by background reloads that run FIFO per parent record.
package apphistory

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/easypluginz/apphistory/internal/debounce"
	"github.com/easypluginz/apphistory/internal/history"
	"github.com/easypluginz/apphistory/internal/shardqueue"
	"github.com/easypluginz/apphistory/internal/types"
	"github.com/easypluginz/apphistory/internal/zoho"
)

// defaultSearchDelay matches the widget's type-ahead settle time.
const defaultSearchDelay = 500 * time.Millisecond

type Client struct {
	cfg     Config
	http    *http.Client
	bridge  zoho.Bridge
	baseURL string
	exec    *shardqueue.ShardExecutor

	loader *history.Loader
	store  *history.Store
	recon  *history.Reconciler

	searchDelay  time.Duration
	searchBounce *debounce.Debouncer
	searchGate   debounce.Gate

	// Parent context captured by LoadHistory; mutations require it.
	mu       sync.Mutex
	module   string
	parentID string
	parent   *types.ParentRecord

	closedOnce uint32
}

// New constructs a Client authenticated with the given OAuth access token.
// Deployment settings come from the environment (see Config) and can be
// overridden with options.
func New(accessToken string, opts ...Option) *Client {
	if accessToken == "" {
		panic("accessToken cannot be empty")
	}
	cfg, err := LoadConfig()
	if err != nil {
		panic(err)
	}

	c := &Client{
		cfg:         cfg,
		http:        &http.Client{Timeout: cfg.HTTPTimeout},
		searchDelay: defaultSearchDelay,
	}

	// Auto-enable debug via env variable without changing code.
	if debugLoggingRequested() {
		opts = append(opts, WithDebugLogging(true))
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			panic(err)
		}
	}

	c.http.Transport = &oauthTransport{
		base:  orDefault(c.http.Transport),
		token: accessToken,
	}

	if c.exec == nil {
		c.exec = newDefaultExecutor()
	}
	if c.bridge == nil {
		baseURL := c.baseURL
		if baseURL == "" {
			baseURL = zoho.DataCenterURL(c.cfg.DataCenter)
		}
		c.bridge = &zoho.HTTPBridge{
			HTTP:          c.http,
			BaseURL:       baseURL,
			ProxyURL:      c.cfg.DownloadProxyURL,
			TokenURL:      c.cfg.AccessTokenURL,
			DataCenterURL: baseURL,
		}
	}

	c.loader = history.NewLoader(c.bridge)
	c.store = history.NewStore()
	c.recon = history.NewReconciler(c.loader, c.store, c.exec)
	c.searchBounce = debounce.New(c.searchDelay)

	return c
}

func orDefault(rt http.RoundTripper) http.RoundTripper {
	if rt == nil {
		return http.DefaultTransport
	}
	return rt
}

// oauthTransport adds the CRM authorization header to every request.
type oauthTransport struct {
	base  http.RoundTripper
	token string
}

func (t *oauthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	cloned := req.Clone(req.Context())
	cloned.Header.Set("Authorization", "Zoho-oauthtoken "+t.token)
	return t.base.RoundTrip(cloned)
}

// Close stops the background executor. Safe to call multiple times.
func (c *Client) Close() error {
	if !atomic.CompareAndSwapUint32(&c.closedOnce, 0, 1) {
		return nil
	}
	if c.exec != nil {
		c.exec.Stop()
	}
	return nil
}

// AwaitIdle blocks until every background reload queued for the parent
// record has completed.
func (c *Client) AwaitIdle(ctx context.Context, parentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.recon.Flush(ctx, parentID)
}

// newDefaultExecutor constructs the shardqueue executor, honoring SQ_ env
// overrides and falling back to defaults when they are absent or invalid.
func newDefaultExecutor() *shardqueue.ShardExecutor {
	cfg, err := shardqueue.LoadConfig()
	if err != nil {
		cfg = shardqueue.Config{}
	}
	return shardqueue.NewShardExecutor(cfg)
}
