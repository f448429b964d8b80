package session

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parsatv/imvbox/internal/httpx"
)

type rtFunc func(*http.Request) (*http.Response, error)

func (f rtFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func response(req *http.Request, status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    req,
	}
}

func stubFetcher(rt rtFunc) *httpx.Fetcher {
	return httpx.New(
		httpx.WithInterval(time.Millisecond),
		httpx.WithAuthClient(&http.Client{Transport: rt}),
	)
}

func TestAnonymous(t *testing.T) {
	t.Parallel()

	var a Anonymous
	assert.False(t, a.EnsureAuthenticated(context.Background()))
	assert.False(t, a.IsLoggedIn())
	assert.NotNil(t, a.Client())
	assert.Nil(t, a.BrowserCookies())
}

func TestCookieSessionLogin(t *testing.T) {
	t.Parallel()

	var gets, posts atomic.Int32
	rt := rtFunc(func(req *http.Request) (*http.Response, error) {
		if req.Method == http.MethodGet {
			gets.Add(1)
			return response(req, 200, `<form><input name="_token" value="tok-login"></form>`), nil
		}
		posts.Add(1)
		body, _ := io.ReadAll(req.Body)
		assert.Contains(t, string(body), "_token=tok-login")
		assert.Contains(t, string(body), "email=viewer%40example.com")
		assert.Equal(t, "tok-login", req.Header.Get("X-CSRF-TOKEN"))
		return response(req, 200, `<html>Welcome back</html>`), nil
	})

	s, err := NewCookieSession("viewer@example.com", "hunter2")
	require.NoError(t, err)
	s.Bind(stubFetcher(rt))

	assert.False(t, s.IsLoggedIn())
	assert.True(t, s.EnsureAuthenticated(context.Background()))
	assert.True(t, s.IsLoggedIn())

	// Already authenticated: no further traffic.
	assert.True(t, s.EnsureAuthenticated(context.Background()))
	assert.Equal(t, int32(1), gets.Load())
	assert.Equal(t, int32(1), posts.Load())

	s.Logout()
	assert.False(t, s.IsLoggedIn())
}

func TestCookieSessionRejectedCredentials(t *testing.T) {
	t.Parallel()

	rt := rtFunc(func(req *http.Request) (*http.Response, error) {
		if req.Method == http.MethodGet {
			return response(req, 200, `<meta name="csrf-token" content="tok">`), nil
		}
		return response(req, 200, `<div class="alert">Invalid credentials</div>`), nil
	})

	s, err := NewCookieSession("viewer@example.com", "wrong")
	require.NoError(t, err)
	s.Bind(stubFetcher(rt))

	assert.False(t, s.EnsureAuthenticated(context.Background()))
	assert.False(t, s.IsLoggedIn())
}

func TestCookieSessionWithoutBind(t *testing.T) {
	t.Parallel()

	s, err := NewCookieSession("viewer@example.com", "pw")
	require.NoError(t, err)
	assert.False(t, s.EnsureAuthenticated(context.Background()))
}

func TestCookieSessionLoginPageMissingToken(t *testing.T) {
	t.Parallel()

	rt := rtFunc(func(req *http.Request) (*http.Response, error) {
		return response(req, 200, `<html><body>maintenance</body></html>`), nil
	})

	s, err := NewCookieSession("viewer@example.com", "pw")
	require.NoError(t, err)
	s.Bind(stubFetcher(rt))
	assert.False(t, s.EnsureAuthenticated(context.Background()))
}
