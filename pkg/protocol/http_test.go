package protocol

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func TestHTTPClient_RoundTrip(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Method", r.Method)
		w.Header().Set("X-Token", r.Header.Get("x-auth-token"))
		w.Header().Set("X-Query", r.URL.RawQuery)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	c := NewHTTPClient(DefaultClientConfig())
	defer c.Close()

	resp := c.Do(context.Background(), &Request{
		Method:  http.MethodPost,
		URL:     srv.URL + "/notes?a=1",
		Headers: map[string]string{"x-auth-token": "T1"},
		Query:   url.Values{"b": {"2"}},
		Body:    []byte(`{"title":"x"}`),
		Timeout: time.Second,
	})
	require.NoError(t, resp.Error)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, `{"title":"x"}`, string(resp.Body))
	assert.Equal(t, http.MethodPost, resp.Header.Get("X-Method"))
	assert.Equal(t, "T1", resp.Header.Get("X-Token"))
	assert.Equal(t, "a=1&b=2", resp.Header.Get("X-Query"))
	assert.Equal(t, int64(len(`{"title":"x"}`)), resp.BytesRead)
	assert.Equal(t, int64(len(`{"title":"x"}`)), resp.BytesWritten)
	assert.Positive(t, resp.Duration)
}

func TestHTTPClient_NonSuccessIsNotTransportError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewHTTPClient(DefaultClientConfig())
	resp := c.Do(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL})
	require.NoError(t, resp.Error)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHTTPClient_Timeout(t *testing.T) {
	t.Parallel()
	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-done:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(done)

	c := NewHTTPClient(DefaultClientConfig())
	resp := c.Do(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL, Timeout: 10 * time.Millisecond})
	require.Error(t, resp.Error)
	assert.ErrorIs(t, resp.Error, ErrTimeout)
	assert.Zero(t, resp.StatusCode)
}

func TestHTTPClient_ConnectionRefused(t *testing.T) {
	t.Parallel()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	c := NewHTTPClient(DefaultClientConfig())
	resp := c.Do(context.Background(), &Request{Method: http.MethodGet, URL: "http://" + addr, Timeout: time.Second})
	require.Error(t, resp.Error)
	assert.NotErrorIs(t, resp.Error, ErrTimeout)
}

func TestHTTPClient_BadURL(t *testing.T) {
	t.Parallel()
	c := NewHTTPClient(DefaultClientConfig())
	resp := c.Do(context.Background(), &Request{Method: "BAD METHOD", URL: "http://x"})
	assert.Error(t, resp.Error)
}

func TestHTTPClient_RedirectPolicy(t *testing.T) {
	t.Parallel()
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "moved")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	follow := NewHTTPClient(DefaultClientConfig())
	resp := follow.Do(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL + "/old"})
	require.NoError(t, resp.Error)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "moved", string(resp.Body))

	cfg := DefaultClientConfig()
	cfg.FollowRedirects = false
	stay := NewHTTPClient(cfg)
	resp = stay.Do(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL + "/old"})
	require.NoError(t, resp.Error)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestHTTP2Client_PriorKnowledge(t *testing.T) {
	t.Parallel()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, r.Proto)
	})
	srv := httptest.NewServer(h2c.NewHandler(handler, &http2.Server{}))
	defer srv.Close()

	c := NewHTTP2Client(DefaultClientConfig())
	defer c.Close()

	resp := c.Do(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL, Timeout: time.Second})
	require.NoError(t, resp.Error)
	assert.Equal(t, "HTTP/2.0", string(resp.Body))
}

func TestHTTP2Client_TLS(t *testing.T) {
	t.Parallel()
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, r.Proto)
	}))
	srv.EnableHTTP2 = true
	srv.StartTLS()
	defer srv.Close()

	cfg := DefaultClientConfig()
	cfg.TLSInsecure = true
	c := NewHTTP2Client(cfg)
	defer c.Close()

	resp := c.Do(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL, Timeout: 2 * time.Second})
	require.NoError(t, resp.Error)
	assert.Equal(t, "HTTP/2.0", string(resp.Body))
}

func TestFunc_ImplementsClient(t *testing.T) {
	t.Parallel()
	var c Client = Func(func(_ context.Context, req *Request) *Response {
		return &Response{StatusCode: http.StatusTeapot, Body: []byte(req.URL)}
	})
	resp := c.Do(context.Background(), &Request{URL: "u"})
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	assert.Equal(t, "u", string(resp.Body))
	assert.NoError(t, c.Close())
}
