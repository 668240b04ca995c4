package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notesprobe/pkg/protocol"
)

// recorder is a stub transport that remembers the last request and answers
// with a canned response.
type recorder struct {
	last   *protocol.Request
	calls  int
	answer func(req *protocol.Request) *protocol.Response
}

func (r *recorder) Do(_ context.Context, req *protocol.Request) *protocol.Response {
	r.last = req
	r.calls++
	if r.answer == nil {
		return &protocol.Response{StatusCode: http.StatusOK, Body: []byte(`{}`)}
	}
	return r.answer(req)
}

func (r *recorder) Close() error { return nil }

func jsonResponse(status int, body string) func(*protocol.Request) *protocol.Response {
	return func(*protocol.Request) *protocol.Response {
		return &protocol.Response{
			StatusCode: status,
			Header:     http.Header{"Content-Type": {"application/json"}},
			Body:       []byte(body),
			Duration:   5 * time.Millisecond,
		}
	}
}

func newTestClient(t *testing.T, rec *recorder, opts ...Option) *Client {
	t.Helper()
	c, err := New("https://h/api/", append([]Option{WithTransport(rec)}, opts...)...)
	require.NoError(t, err)
	return c
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	t.Parallel()
	for _, base := range []string{"", "   ", "not a url", "/relative/only"} {
		_, err := New(base)
		assert.Error(t, err, "base %q", base)
	}
	_, err := New("https://h/api", WithTimeout(0))
	assert.Error(t, err)
}

func TestBuildURL(t *testing.T) {
	t.Parallel()
	cases := []struct {
		base, endpoint string
	}{
		{"https://h/api/", "/health-check"},
		{"https://h/api", "health-check"},
		{"https://h/api//", "//health-check"},
		{"https://h/api", "/health-check"},
	}
	for _, tc := range cases {
		c, err := New(tc.base, WithTransport(&recorder{}))
		require.NoError(t, err)
		assert.Equal(t, "https://h/api/health-check", c.BuildURL(tc.endpoint), "base=%q endpoint=%q", tc.base, tc.endpoint)
	}

	c, err := New("https://h/api", WithTransport(&recorder{}))
	require.NoError(t, err)
	assert.Equal(t, "https://h/api/notes/abc", c.BuildURL("notes/abc"))
	assert.Equal(t, "https://h/api/", c.BuildURL(""))
}

func TestDefaultHeaders_TokenPresence(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, &recorder{})

	h := c.DefaultHeaders()
	assert.Equal(t, map[string]string{
		"Accept":       "application/json",
		"Content-Type": "application/json",
	}, h)

	c.Token = "T1"
	assert.Equal(t, "T1", c.DefaultHeaders()[AuthHeader])

	// The map is a copy; mutating it must not leak into the client.
	h = c.DefaultHeaders()
	h[AuthHeader] = "tampered"
	assert.Equal(t, "T1", c.DefaultHeaders()[AuthHeader])

	c.Token = ""
	_, ok := c.DefaultHeaders()[AuthHeader]
	assert.False(t, ok)
}

func TestDefaultHeaders_Template(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, &recorder{}, WithDefaultHeader("User-Agent", "notesprobe"), WithDefaultHeader("Accept", "text/plain"))
	h := c.DefaultHeaders()
	assert.Equal(t, "notesprobe", h["User-Agent"])
	assert.Equal(t, "application/json", h["Accept"])
}

func TestRequest_JSONBody(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	c := newTestClient(t, rec)

	_, err := c.Post(context.Background(), "/notes", map[string]any{"title": "N", "completed": false})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, rec.last.Method)
	assert.Equal(t, "https://h/api/notes", rec.last.URL)
	assert.Equal(t, "application/json", rec.last.Headers["Content-Type"])
	var sent map[string]any
	require.NoError(t, json.Unmarshal(rec.last.Body, &sent))
	assert.Equal(t, map[string]any{"title": "N", "completed": false}, sent)
}

func TestRequest_FormBody(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	c := newTestClient(t, rec)

	_, err := c.Post(context.Background(), "/users/register", map[string]any{
		"name":  "a b",
		"email": "x@y.z",
		"age":   3,
		"admin": true,
	}, AsForm())
	require.NoError(t, err)

	assert.Equal(t, "application/x-www-form-urlencoded", rec.last.Headers["Content-Type"])
	values, err := url.ParseQuery(string(rec.last.Body))
	require.NoError(t, err)
	assert.Equal(t, "a b", values.Get("name"))
	assert.Equal(t, "x@y.z", values.Get("email"))
	assert.Equal(t, "3", values.Get("age"))
	assert.Equal(t, "true", values.Get("admin"))
}

func TestRequest_FormOverridesCallerContentType(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	c := newTestClient(t, rec)

	_, err := c.Post(context.Background(), "/x", map[string]any{"k": "v"}, AsForm(),
		WithHeaders(map[string]string{"Content-Type": "text/plain"}))
	require.NoError(t, err)
	assert.Equal(t, "application/x-www-form-urlencoded", rec.last.Headers["Content-Type"])
}

func TestRequest_NoBodyNoPayload(t *testing.T) {
	t.Parallel()
	for _, ct := range []ContentType{ContentJSON, ContentForm} {
		rec := &recorder{}
		c := newTestClient(t, rec)

		_, err := c.Request(context.Background(), http.MethodPost, "/x", WithContentType(ct))
		require.NoError(t, err)
		assert.Nil(t, rec.last.Body, "content type %s", ct)
		assert.Equal(t, "application/json", rec.last.Headers["Content-Type"])

		_, err = c.Request(context.Background(), http.MethodPost, "/x", WithContentType(ct), WithBody(map[string]any{}))
		require.NoError(t, err)
		assert.Nil(t, rec.last.Body, "empty body with content type %s", ct)
	}
}

func TestRequest_HeaderOverridesWin(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	c := newTestClient(t, rec, WithToken("T0"))

	_, err := c.HealthCheck(context.Background(), WithHeaders(map[string]string{
		"Accept":          "application/xml",
		"x-custom-header": "test",
	}))
	require.NoError(t, err)
	assert.Equal(t, "application/xml", rec.last.Headers["Accept"])
	assert.Equal(t, "test", rec.last.Headers["x-custom-header"])
	assert.Equal(t, "T0", rec.last.Headers[AuthHeader])
	assert.Equal(t, "https://h/api/health-check", rec.last.URL)
	assert.Equal(t, http.MethodGet, rec.last.Method)
}

func TestRequest_ParamsForwarded(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	c := newTestClient(t, rec)

	_, err := c.Get(context.Background(), "/notes", WithQuery("page", "2"), WithParams(url.Values{"tag": {"a", "b"}}))
	require.NoError(t, err)
	assert.Equal(t, "2", rec.last.Query.Get("page"))
	assert.Equal(t, []string{"a", "b"}, rec.last.Query["tag"])
}

func TestRequest_MethodUppercased(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	c := newTestClient(t, rec)

	_, err := c.Request(context.Background(), "patch", "/notes/1")
	require.NoError(t, err)
	assert.Equal(t, http.MethodPatch, rec.last.Method)
}

func TestRequest_SuccessReturnedUnmodified(t *testing.T) {
	t.Parallel()
	rec := &recorder{answer: jsonResponse(http.StatusCreated, `{"success":true,"message":"created"}`)}
	c := newTestClient(t, rec)

	res, err := c.Post(context.Background(), "/users/register", map[string]any{"name": "n"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Equal(t, 5*time.Millisecond, res.Elapsed)
	assert.Equal(t, "application/json", res.Header.Get("Content-Type"))
	assert.Equal(t, `{"success":true,"message":"created"}`, res.Text())

	data, err := res.JSON()
	require.NoError(t, err)
	assert.Equal(t, "created", data["message"])

	var typed struct {
		Success bool `json:"success"`
	}
	require.NoError(t, res.Decode(&typed))
	assert.True(t, typed.Success)
}

func TestRequest_HTTPErrorWithJSONMessage(t *testing.T) {
	t.Parallel()
	rec := &recorder{answer: jsonResponse(http.StatusConflict, `{"success":false,"status":409,"message":"An account already exists with the same email address"}`)}
	c := newTestClient(t, rec)

	res, err := c.Post(context.Background(), "/users/register", map[string]any{"email": "x"}, AsForm())
	require.Error(t, err)
	assert.Nil(t, res)

	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "An account already exists with the same email address", apiErr.Message)
	assert.Equal(t, "An account already exists with the same email address", err.Error())
	assert.Equal(t, float64(409), apiErr.Response.(map[string]any)["status"])
	assert.ErrorIs(t, err, ErrHTTPStatus)
	assert.False(t, apiErr.Timeout())
}

func TestRequest_HTTPErrorBodyVariants(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name     string
		status   int
		body     string
		wantMsg  string
		wantResp any
	}{
		{"malformed json", http.StatusInternalServerError, `{"message":`, "500 Internal Server Error for url: https://h/api/x", `{"message":`},
		{"plain text", http.StatusBadGateway, "upstream down", "502 Bad Gateway for url: https://h/api/x", "upstream down"},
		{"empty body", http.StatusNotFound, "", "404 Not Found for url: https://h/api/x", nil},
		{"json without message", http.StatusBadRequest, `{"error":"bad"}`, "400 Bad Request for url: https://h/api/x", map[string]any{"error": "bad"}},
		{"json array", http.StatusBadRequest, `[1,2]`, "400 Bad Request for url: https://h/api/x", []any{float64(1), float64(2)}},
		{"redirect status", http.StatusFound, "", "302 Found for url: https://h/api/x", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := &recorder{answer: jsonResponse(tc.status, tc.body)}
			c := newTestClient(t, rec)

			_, err := c.Get(context.Background(), "/x")
			apiErr, ok := AsError(err)
			require.True(t, ok)
			assert.Equal(t, tc.status, apiErr.StatusCode)
			assert.Equal(t, tc.status, StatusCode(err))
			assert.Equal(t, tc.wantMsg, apiErr.Message)
			assert.Equal(t, tc.wantResp, apiErr.Response)
		})
	}
}

func TestRequest_TransportFailure(t *testing.T) {
	t.Parallel()
	cause := errors.New("dial tcp: connection refused")
	rec := &recorder{answer: func(*protocol.Request) *protocol.Response {
		return &protocol.Response{Error: cause}
	}}
	c := newTestClient(t, rec)

	_, err := c.Get(context.Background(), "/x")
	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.False(t, apiErr.HasStatus())
	assert.Contains(t, apiErr.Message, "connection refused")
	assert.Nil(t, apiErr.Response)
	assert.ErrorIs(t, err, cause)
}

func TestRequest_TransportFailureWithPartialResponse(t *testing.T) {
	t.Parallel()
	rec := &recorder{answer: func(*protocol.Request) *protocol.Response {
		return &protocol.Response{StatusCode: http.StatusOK, Body: []byte(`{"succ`), Error: errors.New("unexpected EOF")}
	}}
	c := newTestClient(t, rec)

	_, err := c.Get(context.Background(), "/x")
	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, apiErr.StatusCode)
	assert.Equal(t, `{"succ`, apiErr.Response)
	assert.Equal(t, "request failed: unexpected EOF", apiErr.Message)
}

func TestLogin_StoresToken(t *testing.T) {
	t.Parallel()
	rec := &recorder{answer: jsonResponse(http.StatusOK, `{"success":true,"status":200,"message":"Login successful","data":{"id":"u1","token":"T1"}}`)}
	c := newTestClient(t, rec)

	data, err := c.Login(context.Background(), "a@b.c", "secret")
	require.NoError(t, err)
	assert.Equal(t, "Login successful", data["message"])
	assert.Equal(t, "T1", c.Token)
	assert.Equal(t, "T1", c.DefaultHeaders()[AuthHeader])

	assert.Equal(t, "https://h/api/users/login", rec.last.URL)
	assert.Equal(t, "application/x-www-form-urlencoded", rec.last.Headers["Content-Type"])
	values, err := url.ParseQuery(string(rec.last.Body))
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", values.Get("email"))
	assert.Equal(t, "secret", values.Get("password"))
}

func TestAuthenticate_ReturnsHTTPStatus(t *testing.T) {
	t.Parallel()
	rec := &recorder{answer: jsonResponse(http.StatusOK, `{"success":true,"data":{"token":"T1"}}`)}
	c := newTestClient(t, rec)

	res, data, err := c.Authenticate(context.Background(), "a@b.c", "secret")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Nil(t, data["status"])
	assert.Equal(t, "T1", c.Token)
}

func TestLogin_OverwritesPreviousToken(t *testing.T) {
	t.Parallel()
	rec := &recorder{answer: jsonResponse(http.StatusOK, `{"success":true,"data":{"token":"T2"}}`)}
	c := newTestClient(t, rec, WithToken("T1"))

	_, err := c.Login(context.Background(), "a@b.c", "secret")
	require.NoError(t, err)
	assert.Equal(t, "T2", c.Token)
	// The login request itself carried the old token.
	assert.Equal(t, "T1", rec.last.Headers[AuthHeader])
}

func TestLogin_UnsuccessfulPayloadKeepsToken(t *testing.T) {
	t.Parallel()
	rec := &recorder{answer: jsonResponse(http.StatusOK, `{"success":false,"status":200,"message":"nope"}`)}
	c := newTestClient(t, rec, WithToken("T0"))

	data, err := c.Login(context.Background(), "a@b.c", "wrong")
	require.NoError(t, err)
	assert.Equal(t, false, data["success"])
	assert.Equal(t, "nope", data["message"])
	assert.Equal(t, "T0", c.Token)
}

func TestLogin_HTTPFailureKeepsToken(t *testing.T) {
	t.Parallel()
	rec := &recorder{answer: jsonResponse(http.StatusUnauthorized, `{"success":false,"status":401,"message":"Incorrect email address or password"}`)}
	c := newTestClient(t, rec)

	data, err := c.Login(context.Background(), "a@b.c", "wrong")
	assert.Nil(t, data)
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
	assert.Equal(t, "Incorrect email address or password", err.Error())
	assert.Empty(t, c.Token)
}

func TestLogin_MissingTokenIsError(t *testing.T) {
	t.Parallel()
	rec := &recorder{answer: jsonResponse(http.StatusOK, `{"success":true,"data":{}}`)}
	c := newTestClient(t, rec, WithToken("T0"))

	data, err := c.Login(context.Background(), "a@b.c", "pw")
	require.Error(t, err)
	assert.NotNil(t, data)
	assert.Equal(t, "T0", c.Token)
}

func TestLogin_NonJSONBody(t *testing.T) {
	t.Parallel()
	rec := &recorder{answer: jsonResponse(http.StatusOK, `<html>`)}
	c := newTestClient(t, rec)

	_, err := c.Login(context.Background(), "a@b.c", "pw")
	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, apiErr.StatusCode)
	assert.Equal(t, "<html>", apiErr.Response)
}

func TestTimeout_DefaultPassedUnchanged(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	c := newTestClient(t, rec, WithTimeout(7*time.Second))

	_, err := c.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7*time.Second, rec.last.Timeout)

	_, err = c.HealthCheck(context.Background(), WithRequestTimeout(500*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, rec.last.Timeout)

	_, err = c.HealthCheck(context.Background(), WithRequestTimeout(0))
	require.NoError(t, err)
	assert.Equal(t, 7*time.Second, rec.last.Timeout)
}

func TestTimeout_ShortOverrideFailsAgainstSlowServer(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	defer close(release)

	c, err := New(srv.URL+"/notes/api", WithTimeout(5*time.Second))
	require.NoError(t, err)
	defer c.Close()

	_, err = c.HealthCheck(context.Background(), WithRequestTimeout(time.Millisecond))
	apiErr, ok := AsError(err)
	require.True(t, ok)
	assert.True(t, apiErr.Timeout())
	assert.ErrorIs(t, err, protocol.ErrTimeout)
	assert.Contains(t, apiErr.Message, "connection timed out")
}

func TestDebugLogging_WrapsInjectedTransport(t *testing.T) {
	t.Parallel()
	rec := &recorder{answer: jsonResponse(http.StatusOK, `{}`)}
	c, err := New("https://h/api", WithTransport(rec), WithDebugLogging(testLogger(t)))
	require.NoError(t, err)

	_, err = c.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rec.calls)
	require.NoError(t, c.Close())
}
