// Package transport sends JSON requests to the inventory backend and
// classifies every failure as a server, no-response or request error.
package transport

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

	"github.com/google/uuid"

	"github.com/kenchiwar/fe-invetory/pkg/apiversion"
)

const logPrefix = "transport:client"

// Defaults applied by New when Config leaves them empty.
const (
	DefaultBaseURL = "http://localhost:5000/api"
	DefaultTimeout = 300 * time.Second
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// Config holds the settings shared by every request sent through a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// Headers are added to every request after the JSON defaults.
	Headers http.Header
}

// Request describes one call. Body is only sent for POST, PUT and PATCH;
// a DELETE payload travels in Config.Data.
type Request struct {
	Method string
	Path   string
	Body   any
	Config *RequestConfig
}

// RequestConfig carries per-call settings.
type RequestConfig struct {
	Params  url.Values
	Headers http.Header
	Data    any
}

// Response is a fully read backend response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client is the configured transport. Build one at startup and share it.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	headers     http.Header
	requestHook RequestHook
	signer      *TokenSigner
	version     *apiversion.Constraint
	requestIDs  bool

	versionWarned sync.Once
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient uses a copy of hc as the underlying http.Client. The copy's
// Timeout is set from Config.Timeout; hc itself is left untouched.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			cp := *hc
			c.httpClient = &cp
		}
	}
}

// WithRequestHook installs the outgoing body hook.
func WithRequestHook(h RequestHook) Option {
	return func(c *Client) { c.requestHook = h }
}

// WithTokenSigner sends a bearer token signed by s on every request.
func WithTokenSigner(s *TokenSigner) Option {
	return func(c *Client) { c.signer = s }
}

// WithVersionCheck warns once when the backend reports an API version outside constraint.
func WithVersionCheck(constraint *apiversion.Constraint) Option {
	return func(c *Client) { c.version = constraint }
}

// WithRequestIDs adds an X-Request-ID header to every request.
func WithRequestIDs() Option {
	return func(c *Client) { c.requestIDs = true }
}

// New creates a Client from cfg.
func New(cfg Config, opts ...Option) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	headers.Set("Accept", "application/json")
	for k, vs := range cfg.Headers {
		headers.Del(k)
		for _, v := range vs {
			headers.Add(k, v)
		}
	}

	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		headers:    headers,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.httpClient.Timeout = timeout
	return c
}

// BaseURL returns the resolved base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Timeout returns the global request timeout.
func (c *Client) Timeout() time.Duration {
	return c.httpClient.Timeout
}

// Send performs req. Any non-2xx status, transport failure or setup failure is
// logged and returned as *Error. Nothing is retried.
func (c *Client) Send(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, c.fail(&Error{Kind: KindRequest, Cause: fmt.Errorf("nil request")})
	}
	method := strings.ToUpper(req.Method)
	cfg := req.Config
	if cfg == nil {
		cfg = &RequestConfig{}
	}

	target, err := c.resolve(req.Path, cfg.Params)
	if err != nil {
		return nil, c.fail(&Error{Kind: KindRequest, Method: method, Path: req.Path, Cause: err})
	}

	var payload any
	switch {
	case isMutating(method):
		payload = req.Body
		if c.requestHook != nil {
			payload, err = c.requestHook(ctx, method, payload)
			if err != nil {
				return nil, c.fail(&Error{Kind: KindRequest, Method: method, Path: req.Path, Cause: err})
			}
		}
	case method == http.MethodDelete:
		payload = cfg.Data
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, c.fail(&Error{Kind: KindRequest, Method: method, Path: req.Path, Cause: err})
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, c.fail(&Error{Kind: KindRequest, Method: method, Path: req.Path, Cause: err})
	}
	if err := c.applyHeaders(httpReq, cfg.Headers); err != nil {
		return nil, c.fail(&Error{Kind: KindRequest, Method: method, Path: req.Path, Cause: err})
	}

	slog.Debug(fmt.Sprintf("%s - %s %s", logPrefix, method, target))
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.fail(&Error{Kind: KindNoResponse, Method: method, Path: req.Path, Cause: err})
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, c.fail(&Error{Kind: KindNoResponse, Method: method, Path: req.Path, Cause: err})
	}

	c.checkVersion(httpResp.Header.Get(apiversion.Header))

	resp := &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: respBody}
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return resp, c.fail(&Error{
			Kind:       KindServer,
			Method:     method,
			Path:       req.Path,
			StatusCode: httpResp.StatusCode,
			Body:       respBody,
		})
	}
	return resp, nil
}

// resolve joins path onto the base URL and merges params into any query already on path.
func (c *Client) resolve(path string, params url.Values) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", path, err)
	}
	if ref.IsAbs() {
		return "", fmt.Errorf("path %q must be relative to the base URL", path)
	}
	u, err := url.Parse(c.baseURL + "/" + strings.TrimLeft(ref.EscapedPath(), "/"))
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", c.baseURL, err)
	}
	q := ref.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) applyHeaders(req *http.Request, extra http.Header) error {
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for k, vs := range extra {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if c.requestIDs && req.Header.Get(RequestIDHeader) == "" {
		req.Header.Set(RequestIDHeader, uuid.NewString())
	}
	if c.signer != nil {
		token, err := c.signer.Sign()
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}

func (c *Client) checkVersion(reported string) {
	if c.version == nil || reported == "" {
		return
	}
	ok, err := c.version.Check(reported)
	if err == nil && ok {
		return
	}
	c.versionWarned.Do(func() {
		if err != nil {
			slog.Warn(fmt.Sprintf("%s - Backend reported unparsable API version %q: %v", logPrefix, reported, err))
			return
		}
		slog.Warn(fmt.Sprintf("%s - Backend API version %s does not satisfy %s", logPrefix, reported, c.version))
	})
}

// fail logs e according to its kind and returns it.
func (c *Client) fail(e *Error) error {
	switch e.Kind {
	case KindServer:
		slog.Error(fmt.Sprintf("%s - API error: %s %s responded with status %d", logPrefix, e.Method, e.Path, e.StatusCode),
			"status", e.StatusCode, "body", truncate(e.Body, 512))
	case KindNoResponse:
		slog.Error(fmt.Sprintf("%s - No response received from server: %s %s: %v", logPrefix, e.Method, e.Path, e.Cause))
	default:
		slog.Error(fmt.Sprintf("%s - Error setting up the request: %s %s: %v", logPrefix, e.Method, e.Path, e.Cause))
	}
	return e
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
