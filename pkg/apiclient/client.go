// Package apiclient is a synchronous HTTP facade over the Notes REST API.
//
// A Client joins endpoints onto a base URL, attaches the x-auth-token header
// whenever a token is held, and turns every transport failure or non-2xx
// response into a single *Error. Successful responses are returned as-is in a
// *Result; callers decode the body themselves.
//
// A Client is not safe for concurrent use. The Token field is read on every
// request and written by Login without synchronisation; concurrent callers
// should each own a Client.
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/notesprobe/pkg/protocol"
)

// DefaultBaseURL is the public practice deployment of the Notes API.
const DefaultBaseURL = "https://practice.expandtesting.com/notes/api"

// DefaultTimeout bounds a request when neither the client nor the call sets one.
const DefaultTimeout = 30 * time.Second

// AuthHeader carries the session token returned by login.
const AuthHeader = "x-auth-token"

const (
	mimeJSON = "application/json"
	mimeForm = "application/x-www-form-urlencoded"
)

// Client issues requests against one Notes API deployment.
type Client struct {
	// Token is the session token replayed in the x-auth-token header.
	// Login sets it; callers may clear it to make unauthenticated calls.
	Token string

	baseURL     string
	timeout     time.Duration
	verifyTLS   bool
	http2       bool
	maxIdle     int
	idleTimeout time.Duration
	headers     map[string]string
	transport   protocol.Client
	ownsConn    bool
	wrap        []func(protocol.Client) protocol.Client
}

// New constructs a Client for baseURL. Trailing slashes are stripped.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("base url cannot be empty")
	}
	if u, err := url.Parse(baseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", baseURL)
	}

	c := &Client{
		baseURL:   baseURL,
		timeout:   DefaultTimeout,
		verifyTLS: true,
		headers:   map[string]string{},
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.transport == nil {
		cfg := protocol.DefaultClientConfig()
		cfg.TLSInsecure = !c.verifyTLS
		if c.maxIdle > 0 {
			cfg.MaxIdleConns = c.maxIdle
		}
		if c.idleTimeout > 0 {
			cfg.IdleConnTimeout = c.idleTimeout
		}
		if c.http2 {
			c.transport = protocol.NewHTTP2Client(cfg)
		} else {
			c.transport = protocol.NewHTTPClient(cfg)
		}
		c.ownsConn = true
	}
	for _, w := range c.wrap {
		c.transport = w(c.transport)
	}

	return c, nil
}

// BaseURL returns the root every endpoint is resolved against.
func (c *Client) BaseURL() string { return c.baseURL }

// Timeout returns the default per-request timeout.
func (c *Client) Timeout() time.Duration { return c.timeout }

// VerifyTLS reports whether server certificates are verified.
func (c *Client) VerifyTLS() bool { return c.verifyTLS }

// Authenticated reports whether a token is currently held.
func (c *Client) Authenticated() bool { return c.Token != "" }

// Close releases idle connections of a transport the client created itself.
// Injected transports are left to their owner.
func (c *Client) Close() error {
	if c.ownsConn {
		return c.transport.Close()
	}
	return nil
}

// BuildURL joins the base URL and endpoint with exactly one slash.
func (c *Client) BuildURL(endpoint string) string {
	return c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
}

// DefaultHeaders returns the headers sent with every request given the
// current auth state. The map is fresh on every call.
func (c *Client) DefaultHeaders() map[string]string {
	headers := make(map[string]string, len(c.headers)+3)
	for k, v := range c.headers {
		headers[k] = v
	}
	headers["Accept"] = mimeJSON
	headers["Content-Type"] = mimeJSON
	if c.Token != "" {
		headers[AuthHeader] = c.Token
	}
	return headers
}

// Request sends one request and normalises the outcome.
func (c *Client) Request(ctx context.Context, method, endpoint string, opts ...RequestOption) (*Result, error) {
	var call requestOptions
	for _, opt := range opts {
		opt(&call)
	}

	target := c.BuildURL(endpoint)

	headers := c.DefaultHeaders()
	for k, v := range call.headers {
		headers[k] = v
	}

	payload, err := encodeBody(call.body, call.contentType)
	if err != nil {
		return nil, &Error{Message: fmt.Sprintf("encode request body: %v", err), Err: err}
	}
	if payload != nil && call.contentType == ContentForm {
		headers["Content-Type"] = mimeForm
	}

	timeout := c.timeout
	if call.timeout > 0 {
		timeout = call.timeout
	}

	resp := c.transport.Do(ctx, &protocol.Request{
		Method:  strings.ToUpper(method),
		URL:     target,
		Headers: headers,
		Query:   call.params,
		Body:    payload,
		Timeout: timeout,
	})

	return normalize(target, resp)
}

// Get sends a GET request.
func (c *Client) Get(ctx context.Context, endpoint string, opts ...RequestOption) (*Result, error) {
	return c.Request(ctx, http.MethodGet, endpoint, opts...)
}

// Post sends a POST request with body.
func (c *Client) Post(ctx context.Context, endpoint string, body map[string]any, opts ...RequestOption) (*Result, error) {
	return c.Request(ctx, http.MethodPost, endpoint, append([]RequestOption{WithBody(body)}, opts...)...)
}

// Put sends a PUT request with body.
func (c *Client) Put(ctx context.Context, endpoint string, body map[string]any, opts ...RequestOption) (*Result, error) {
	return c.Request(ctx, http.MethodPut, endpoint, append([]RequestOption{WithBody(body)}, opts...)...)
}

// Patch sends a PATCH request with body.
func (c *Client) Patch(ctx context.Context, endpoint string, body map[string]any, opts ...RequestOption) (*Result, error) {
	return c.Request(ctx, http.MethodPatch, endpoint, append([]RequestOption{WithBody(body)}, opts...)...)
}

// Delete sends a DELETE request.
func (c *Client) Delete(ctx context.Context, endpoint string, opts ...RequestOption) (*Result, error) {
	return c.Request(ctx, http.MethodDelete, endpoint, opts...)
}

// Options sends an OPTIONS request.
func (c *Client) Options(ctx context.Context, endpoint string, opts ...RequestOption) (*Result, error) {
	return c.Request(ctx, http.MethodOptions, endpoint, opts...)
}

// HealthCheck calls GET /health-check. Only header and timeout options are
// meaningful here.
func (c *Client) HealthCheck(ctx context.Context, opts ...RequestOption) (*Result, error) {
	return c.Get(ctx, "/health-check", opts...)
}

// Login posts the credentials as a form and, when the response reports
// success, stores data.token in Token. The decoded payload is returned
// whatever its success flag says; a 200 with "success": false is not an
// error and leaves Token untouched.
func (c *Client) Login(ctx context.Context, email, password string) (map[string]any, error) {
	_, data, err := c.Authenticate(ctx, email, password)
	return data, err
}

// Authenticate is Login that also returns the raw HTTP result.
func (c *Client) Authenticate(ctx context.Context, email, password string) (*Result, map[string]any, error) {
	res, err := c.Post(ctx, "/users/login", map[string]any{
		"email":    email,
		"password": password,
	}, AsForm())
	if err != nil {
		return nil, nil, err
	}

	data, err := res.JSON()
	if err != nil {
		return res, nil, &Error{
			Message:    fmt.Sprintf("decode login response: %v", err),
			StatusCode: res.StatusCode,
			Response:   res.Text(),
			Err:        err,
		}
	}

	if ok, _ := data["success"].(bool); ok {
		token, found := lookupToken(data)
		if !found {
			return res, data, &Error{
				Message:    "login response is missing data.token",
				StatusCode: res.StatusCode,
				Response:   data,
			}
		}
		c.Token = token
	}
	return res, data, nil
}

func lookupToken(data map[string]any) (string, bool) {
	inner, ok := data["data"].(map[string]any)
	if !ok {
		return "", false
	}
	token, ok := inner["token"].(string)
	return token, ok && token != ""
}

// normalize maps a transport response onto the Result/Error split.
func normalize(target string, resp *protocol.Response) (*Result, error) {
	if resp.Error != nil {
		apiErr := &Error{
			Message:    fmt.Sprintf("request failed: %v", resp.Error),
			StatusCode: resp.StatusCode,
			Err:        resp.Error,
		}
		if len(resp.Body) > 0 {
			apiErr.Response = string(resp.Body)
		}
		return nil, apiErr
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		generic := fmt.Sprintf("%d %s for url: %s", resp.StatusCode, http.StatusText(resp.StatusCode), target)
		apiErr := &Error{
			Message:    generic,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: %s", ErrHTTPStatus, generic),
		}
		var parsed any
		if len(resp.Body) > 0 {
			if json.Unmarshal(resp.Body, &parsed) == nil {
				apiErr.Response = parsed
				if obj, ok := parsed.(map[string]any); ok {
					if msg, ok := obj["message"].(string); ok && msg != "" {
						apiErr.Message = msg
					}
				}
			} else {
				apiErr.Response = string(resp.Body)
			}
		}
		return nil, apiErr
	}

	return &Result{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Elapsed:    resp.Duration,
		Body:       resp.Body,
	}, nil
}
