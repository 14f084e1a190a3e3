// Package supabase implements the backend client: PostgREST row operations,
// the exec_sql/exec_sql_select RPC convention, and the storage object API.
// The client is an explicit handle threaded through every dispatcher call;
// it holds only credentials and a base URL, so sharing one across items is
// safe.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	restPrefix    = "/rest/v1"
	storagePrefix = "/storage/v1"
)

// Credentials is the backend credential contract.
type Credentials struct {
	Host       string `json:"host" yaml:"host"`
	ServiceKey string `json:"serviceKey" yaml:"serviceKey"`
	// Schema is the database schema row operations run against.
	// Defaults to "public".
	Schema string `json:"schema" yaml:"schema"`
}

// Client issues authenticated requests against a backend host. All methods
// take a context; there is no retry, backoff, or client-level timeout beyond
// what the supplied http.Client imposes.
type Client struct {
	base       *url.URL
	creds      Credentials
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient substitutes the underlying HTTP client, primarily for
// tests and hosts that require custom transports.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Client for the given credentials. The host must be an
// absolute URL; the schema defaults to "public".
func New(creds Credentials, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(creds.Host, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse host URL: %w", err)
	}
	if !base.IsAbs() || base.Host == "" {
		return nil, fmt.Errorf("host %q is not an absolute URL", creds.Host)
	}
	if creds.Schema == "" {
		creds.Schema = "public"
	}

	c := &Client{
		base:       base,
		creds:      creds,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Schema returns the schema row operations run against.
func (c *Client) Schema() string { return c.creds.Schema }

// Host returns the backend base URL.
func (c *Client) Host() string { return c.base.String() }

// ---------------------------------------------------------------------------
// Ordered query builder
// ---------------------------------------------------------------------------

type queryParam struct {
	key   string
	value string
}

// Query builds a backend query string, preserving the order in which
// parameters were added. net/url.Values sorts keys on encode, which would
// break deterministic filter-chain construction.
type Query struct {
	params []queryParam
}

// Add appends one key=value pair.
func (q *Query) Add(key, value string) {
	q.params = append(q.params, queryParam{key: key, value: value})
}

// Encode renders the query string without a leading "?". Empty queries
// render as "".
func (q *Query) Encode() string {
	if q == nil || len(q.params) == 0 {
		return ""
	}
	var b strings.Builder
	for i, p := range q.params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.value))
	}
	return b.String()
}

// ---------------------------------------------------------------------------
// Request plumbing
// ---------------------------------------------------------------------------

// do issues one request and returns the raw response. Responses with status
// >= 400 are drained, normalized, and returned as a *BackendError.
func (c *Client) do(ctx context.Context, method, path string, q *Query, headers http.Header, body io.Reader) (*http.Response, error) {
	u := *c.base
	// Path carries the unescaped form; clearing RawPath makes URL.String
	// encode it exactly once.
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawPath = ""
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("apikey", c.creds.ServiceKey)
	req.Header.Set("Authorization", "Bearer "+c.creds.ServiceKey)
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s %s: %w", method, path, err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return resp, nil
}

// doJSON issues a request with an optional JSON body and decodes the JSON
// response into out (skipped when out is nil or the body is empty).
func (c *Client) doJSON(ctx context.Context, method, path string, q *Query, headers http.Header, payload, out any) error {
	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(buf)
		if headers == nil {
			headers = http.Header{}
		}
		headers.Set("Content-Type", "application/json")
	}

	resp, err := c.do(ctx, method, path, q, headers, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

// Ping checks that the row API root is reachable with the configured
// credentials.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, restPrefix+"/", nil, nil, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
