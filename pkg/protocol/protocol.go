package protocol

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"
)

// ErrTimeout is wrapped by Response.Error when a request exceeds its deadline.
var ErrTimeout = errors.New("connection timed out")

// Request represents a generic request to be sent.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Query   url.Values
	Body    []byte
	Timeout time.Duration
}

// Response represents the result of a request.
//
// Error is set only for transport-level failures (dial, TLS, timeout,
// truncated body). A completed exchange leaves Error nil whatever the
// status code is. StatusCode may still be set alongside Error when the
// failure happened after the response headers arrived.
type Response struct {
	StatusCode   int
	Header       http.Header
	Body         []byte
	Duration     time.Duration
	BytesRead    int64
	BytesWritten int64
	Error        error
}

// Client is the interface for protocol implementations.
type Client interface {
	// Do executes a request and returns the response.
	Do(ctx context.Context, req *Request) *Response

	// Close releases any resources held by the client.
	Close() error
}

// ClientConfig contains common configuration for all clients.
type ClientConfig struct {
	MaxIdleConns    int
	IdleConnTimeout time.Duration
	DialTimeout     time.Duration
	TLSInsecure     bool
	FollowRedirects bool
}

// DefaultClientConfig returns the settings used when a caller has no opinion.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		MaxIdleConns:    100,
		IdleConnTimeout: 90 * time.Second,
		DialTimeout:     30 * time.Second,
		FollowRedirects: true,
	}
}

// Func adapts an ordinary function to the Client interface.
type Func func(ctx context.Context, req *Request) *Response

// Do calls f(ctx, req).
func (f Func) Do(ctx context.Context, req *Request) *Response {
	return f(ctx, req)
}

// Close is a no-op.
func (f Func) Close() error {
	return nil
}
