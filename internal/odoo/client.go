// Package odoo is a small XML-RPC client for the Odoo external API. It only
// exposes what the mirror needs: authenticate and search_read.
//
// Calls are synchronous and never retried. A failed call surfaces as
// ErrAuthFailed (authenticate) or *QueryError (object calls) so callers can
// decide between aborting and degrading.
package odoo

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kolo/xmlrpc"
)

// Config holds the connection settings of one Odoo database.
type Config struct {
	URL      string
	Database string
	Username string
	Password string
	// Timeout bounds the wait for response headers; zero keeps the
	// transport default.
	Timeout time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithLogger sets the logger used for call diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTransport replaces the HTTP transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		if rt != nil {
			c.transport = rt
		}
	}
}

// Client talks to the /xmlrpc/2/common and /xmlrpc/2/object endpoints.
// It is not safe for concurrent use; the mirror issues one call at a time.
type Client struct {
	cfg       Config
	logger    *slog.Logger
	transport http.RoundTripper
	common    *xmlrpc.Client
	object    *xmlrpc.Client
	uid       int64
}

// NewClient prepares both endpoints. No network call is made.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if base == "" {
		return nil, fmt.Errorf("odoo: missing server url")
	}
	c := &Client{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	if c.transport == nil {
		c.transport = defaultTransport(cfg.Timeout)
	}
	var err error
	c.common, err = xmlrpc.NewClient(base+"/xmlrpc/2/common", c.transport)
	if err != nil {
		return nil, fmt.Errorf("odoo: common endpoint: %w", err)
	}
	c.object, err = xmlrpc.NewClient(base+"/xmlrpc/2/object", c.transport)
	if err != nil {
		_ = c.common.Close()
		return nil, fmt.Errorf("odoo: object endpoint: %w", err)
	}
	return c, nil
}

func defaultTransport(timeout time.Duration) http.RoundTripper {
	t := http.DefaultTransport.(*http.Transport).Clone()
	if timeout > 0 {
		t.ResponseHeaderTimeout = timeout
	}
	return t
}

// Authenticate obtains the user id for the configured credentials.
func (c *Client) Authenticate(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var reply any
	args := []any{c.cfg.Database, c.cfg.Username, c.cfg.Password, map[string]any{}}
	if err := c.common.Call("authenticate", args, &reply); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	uid, ok := AsInt(reply)
	if !ok || uid <= 0 {
		return 0, fmt.Errorf("%w: credentials rejected for %s", ErrAuthFailed, c.cfg.Username)
	}
	c.uid = uid
	c.logger.Debug("authenticated", "user", c.cfg.Username, "uid", uid)
	return uid, nil
}

// UID returns the authenticated user id, or 0.
func (c *Client) UID() int64 { return c.uid }

// SearchRead runs model.search_read(domain, fields) and returns the rows in
// server order.
func (c *Client) SearchRead(ctx context.Context, model string, domain Domain, fields []string) ([]Record, error) {
	if c.uid == 0 {
		return nil, ErrNotAuthenticated
	}
	if err := ctx.Err(); err != nil {
		return nil, &QueryError{Model: model, Method: "search_read", Err: err}
	}
	start := time.Now()
	var reply any
	args := []any{
		c.cfg.Database, c.uid, c.cfg.Password,
		model, "search_read",
		[]any{domain.args()},
		map[string]any{"fields": fields},
	}
	if err := c.object.Call("execute_kw", args, &reply); err != nil {
		c.logger.Debug("search_read failed", "model", model, "fields", fields, "error", err)
		return nil, &QueryError{Model: model, Method: "search_read", Err: err}
	}
	rows, err := toRecords(reply)
	if err != nil {
		return nil, &QueryError{Model: model, Method: "search_read", Err: err}
	}
	c.logger.Debug("search_read", "model", model, "rows", len(rows), "duration", time.Since(start))
	return rows, nil
}

// Close releases both endpoints.
func (c *Client) Close() error {
	errC := c.common.Close()
	errO := c.object.Close()
	if errC != nil {
		return errC
	}
	return errO
}

func toRecords(reply any) ([]Record, error) {
	switch v := reply.(type) {
	case nil:
		return nil, nil
	case []any:
		out := make([]Record, 0, len(v))
		for i, it := range v {
			m, ok := it.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("row %d: unexpected type %T", i, it)
			}
			out = append(out, Record(m))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unexpected reply type %T", reply)
	}
}
