// Package rpcclient calls JSON-RPC 2.0 services over HTTP.
//
// Both the ledger and the chat gateway speak JSON-RPC; this package owns the
// envelope encoding (gorilla/rpc json2) and the HTTP round trip so that the
// adapters only deal with method names and payloads.
package rpcclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/rpc/v2/json2"
)

// DefaultTimeout bounds a call when the caller's context has no deadline.
const DefaultTimeout = 30 * time.Second

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 8 << 20

// Client calls methods on a single JSON-RPC endpoint.
// Safe for concurrent use.
type Client struct {
	endpoint string
	http     *http.Client
	timeout  time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client (e.g. for tests or custom TLS).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per-call deadline applied when the context has none.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// New creates a client for the given endpoint URL.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		http:     http.DefaultClient,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the endpoint URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Call invokes method with args and decodes the result into reply.
//
// A JSON-RPC error response is returned as *json2.Error so callers can
// inspect its code and data with AsRPCError.
func (c *Client) Call(ctx context.Context, method string, args, reply any) error {
	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json2.EncodeClientRequest(method, args)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", method, err)
	}

	err = json2.DecodeClientResponse(bytes.NewReader(payload), reply)
	if rpcErr, ok := AsRPCError(err); ok {
		return fmt.Errorf("%s: %w", method, rpcErr)
	}
	// Some servers report JSON-RPC errors with a non-200 status; those are
	// handled above. Anything else outside 200 is a transport failure.
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: http status %d: %s", method, resp.StatusCode, snippet(payload))
	}
	if err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	return nil
}

func snippet(b []byte) []byte {
	b = bytes.TrimSpace(b)
	if len(b) > 256 {
		b = b[:256]
	}
	return b
}

// AsRPCError extracts a JSON-RPC error response from err.
func AsRPCError(err error) (*json2.Error, bool) {
	var rpcErr *json2.Error
	if errors.As(err, &rpcErr) {
		return rpcErr, true
	}
	return nil, false
}
