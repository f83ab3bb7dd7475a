// Package toncenter is the outbound client for a toncenter-compatible
// ledger indexing API: read-only contract get-method calls, account state
// lookups, and masterchain info. The HTTP transport is pooled and shared
// by all in-flight requests; every call carries a bounded deadline and
// passes through an optional outbound rate limiter so repeated polling
// stays inside the service's limits.
package toncenter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tonbound/sbtid-verifier/internal/observability/metrics"
)

// Defaults for options not supplied at construction.
const (
	DefaultCallTimeout = 10 * time.Second
	DefaultSeqnoTTL    = time.Minute
)

// Client issues requests against one indexing endpoint.
type Client struct {
	endpoint    string
	apiKey      string
	httpClient  *http.Client
	limiter     *rate.Limiter
	callTimeout time.Duration
	logger      *slog.Logger

	// Cached masterchain seqno, used to pin get-method reads to a recent
	// block so answers stay consistent across indexer nodes.
	seqnoTTL time.Duration
	mu       sync.Mutex
	seqno    uint32
	seqnoAt  time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithAPIKey sets the X-API-Key header on every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithCallTimeout bounds each remote call.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.callTimeout = d
		}
	}
}

// WithRateLimit bounds outbound request rate. Excess requests wait for a
// token (or their deadline) instead of failing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithSeqnoTTL sets how long a fetched masterchain seqno is reused.
func WithSeqnoTTL(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.seqnoTTL = d
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a client for the given endpoint.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:    strings.TrimRight(endpoint, "/"),
		callTimeout: DefaultCallTimeout,
		seqnoTTL:    DefaultSeqnoTTL,
		logger:      slog.Default(),
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Close releases pooled transport connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// Exit codes that do not indicate a contract-level failure. Some indexer
// deployments report -1 instead of 0 for successful get-method runs.
func exitOK(code int) bool {
	return code == 0 || code == 1 || code == -1
}

// RunGetMethod invokes a read-only get-method on a contract and returns
// its decoded result stack.
func (c *Client) RunGetMethod(ctx context.Context, address, method string, args ...Arg) (*GetMethodResult, error) {
	body := runGetMethodRequest{
		Address: address,
		Method:  method,
		Stack:   args,
		Seqno:   c.currentSeqno(ctx),
	}
	if body.Stack == nil {
		body.Stack = []Arg{}
	}

	var result GetMethodResult
	if err := c.call(ctx, http.MethodPost, "/runGetMethod", nil, body, &result); err != nil {
		return nil, err
	}
	if !exitOK(result.ExitCode) {
		return nil, &RemoteError{
			ExitCode: result.ExitCode,
			Message:  fmt.Sprintf("%s on %s failed", method, address),
		}
	}
	return &result, nil
}

// GetAddressInformation looks up the current ledger state of an account.
func (c *Client) GetAddressInformation(ctx context.Context, address string) (*AccountInfo, error) {
	var info AccountInfo
	query := url.Values{"address": {address}}
	if err := c.call(ctx, http.MethodGet, "/getAddressInformation", query, nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// MasterchainSeqno returns the latest masterchain block seqno, refreshing
// the cached value when it is older than the TTL.
func (c *Client) MasterchainSeqno(ctx context.Context) (uint32, error) {
	var info masterchainInfo
	if err := c.call(ctx, http.MethodGet, "/getMasterchainInfo", nil, nil, &info); err != nil {
		return 0, err
	}
	return info.Last.Seqno, nil
}

// currentSeqno returns the cached seqno if fresh, otherwise refreshes it.
// A refresh failure falls back to the stale value (or zero, which omits
// the pin) so a masterchain hiccup never fails a verification by itself.
func (c *Client) currentSeqno(ctx context.Context) uint32 {
	c.mu.Lock()
	cached := c.seqno
	fresh := cached != 0 && time.Since(c.seqnoAt) < c.seqnoTTL
	c.mu.Unlock()
	if fresh {
		return cached
	}

	seqno, err := c.MasterchainSeqno(ctx)
	if err != nil {
		c.logger.Warn("masterchain seqno refresh failed, using cached value",
			"error", err, "cached_seqno", cached)
		return cached
	}

	c.mu.Lock()
	c.seqno = seqno
	c.seqnoAt = time.Now()
	c.mu.Unlock()
	return seqno
}

func (c *Client) call(ctx context.Context, method, path string, query url.Values, body, result any) error {
	start := time.Now()
	err := c.doCall(ctx, method, path, query, body, result)
	metrics.ObserveIndexerRequest(strings.TrimPrefix(path, "/"), callStatus(err), time.Since(start).Seconds())
	return err
}

func callStatus(err error) string {
	switch err.(type) {
	case nil:
		return "ok"
	case *TransportError:
		return "transport_error"
	case *RemoteError:
		return "remote_error"
	default:
		return "decode_error"
	}
}

func (c *Client) doCall(ctx context.Context, method, path string, query url.Values, body, result any) error {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &TransportError{Err: err}
		}
	}

	u := c.endpoint + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = &buf
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &RemoteError{
			Message: fmt.Sprintf("HTTP %d from %s: %s", resp.StatusCode, path, strings.TrimSpace(string(detail))),
		}
	}

	var env apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &DecodeError{Reason: "invalid JSON envelope: " + err.Error()}
	}
	if !env.OK {
		msg := env.Error
		if msg == "" {
			msg = "unknown error"
		}
		return &RemoteError{Message: msg}
	}
	if result != nil {
		if err := json.Unmarshal(env.Result, result); err != nil {
			return &DecodeError{Reason: "unexpected result shape: " + err.Error()}
		}
	}
	return nil
}
