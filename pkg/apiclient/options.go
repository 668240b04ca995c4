package apiclient

import (
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/notesprobe/pkg/protocol"
)

// Option configures a Client during construction in New.
type Option func(*Client) error

// WithTimeout sets the default per-request timeout. The value must be > 0.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be > 0")
		}
		c.timeout = d
		return nil
	}
}

// WithTLSVerify toggles server certificate verification on the default
// transport. It has no effect when WithTransport is used.
func WithTLSVerify(verify bool) Option {
	return func(c *Client) error {
		c.verifyTLS = verify
		return nil
	}
}

// WithHTTP2 makes the default transport speak HTTP/2.
func WithHTTP2(enabled bool) Option {
	return func(c *Client) error {
		c.http2 = enabled
		return nil
	}
}

// WithIdleConns tunes connection reuse on the default transport.
func WithIdleConns(max int, timeout time.Duration) Option {
	return func(c *Client) error {
		if max < 0 || timeout < 0 {
			return fmt.Errorf("idle connection settings must not be negative")
		}
		c.maxIdle = max
		c.idleTimeout = timeout
		return nil
	}
}

// WithDefaultHeader adds a header to the template sent with every request.
// Accept, Content-Type and x-auth-token are always managed by the client.
func WithDefaultHeader(key, value string) Option {
	return func(c *Client) error {
		c.headers[key] = value
		return nil
	}
}

// WithToken starts the client with a session token already held.
func WithToken(token string) Option {
	return func(c *Client) error {
		c.Token = token
		return nil
	}
}

// WithTransport replaces the HTTP transport. The client never closes an
// injected transport.
func WithTransport(t protocol.Client) Option {
	return func(c *Client) error {
		if t == nil {
			return fmt.Errorf("transport cannot be nil")
		}
		c.transport = t
		c.ownsConn = false
		return nil
	}
}

// WithDebugLogging logs every exchange at debug level through logger.
// Options apply in order, so pass it after WithTransport to wrap an injected
// transport; otherwise it wraps the default one.
func WithDebugLogging(logger zerolog.Logger) Option {
	return func(c *Client) error {
		c.wrap = append(c.wrap, func(next protocol.Client) protocol.Client {
			return &debugTransport{base: next, log: logger}
		})
		return nil
	}
}

// RequestOption tunes a single call.
type RequestOption func(*requestOptions)

// ContentType selects how a request body is encoded.
type ContentType string

const (
	// ContentJSON sends the body as JSON text. It is the default.
	ContentJSON ContentType = "json"
	// ContentForm sends the body URL-encoded.
	ContentForm ContentType = "form"
)

type requestOptions struct {
	body        map[string]any
	params      url.Values
	headers     map[string]string
	timeout     time.Duration
	contentType ContentType
}

// WithBody sets the request payload. A nil or empty map sends no payload.
func WithBody(body map[string]any) RequestOption {
	return func(o *requestOptions) {
		o.body = body
	}
}

// WithParams merges query parameters into the request.
func WithParams(params url.Values) RequestOption {
	return func(o *requestOptions) {
		if o.params == nil {
			o.params = url.Values{}
		}
		for k, vs := range params {
			o.params[k] = append(o.params[k], vs...)
		}
	}
}

// WithQuery adds a single query parameter.
func WithQuery(key, value string) RequestOption {
	return WithParams(url.Values{key: {value}})
}

// WithHeaders overrides default headers for this call; caller values win.
func WithHeaders(headers map[string]string) RequestOption {
	return func(o *requestOptions) {
		if o.headers == nil {
			o.headers = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			o.headers[k] = v
		}
	}
}

// WithRequestTimeout overrides the client timeout for this call.
// Non-positive values keep the client default.
func WithRequestTimeout(d time.Duration) RequestOption {
	return func(o *requestOptions) {
		o.timeout = d
	}
}

// WithContentType selects the body encoding.
func WithContentType(ct ContentType) RequestOption {
	return func(o *requestOptions) {
		o.contentType = ct
	}
}

// AsForm is shorthand for WithContentType(ContentForm).
func AsForm() RequestOption {
	return WithContentType(ContentForm)
}
