package api

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parsatv/imvbox/internal/extractor"
	"github.com/parsatv/imvbox/internal/httpx"
)

// rtFunc serves canned responses in place of the real site.
type rtFunc func(*http.Request) (*http.Response, error)

func (f rtFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func htmlResponse(req *http.Request, status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     http.Header{"Content-Type": []string{"text/html"}},
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    req,
	}
}

// newStubService routes all traffic through rt.
func newStubService(rt rtFunc, opts ...Option) *Service {
	client := &http.Client{Transport: rt}
	f := httpx.New(
		httpx.WithInterval(time.Millisecond),
		httpx.WithAnonClient(client),
		httpx.WithAuthClient(client),
	)
	return New(append([]Option{WithFetcher(f)}, opts...)...)
}

// stubDynamic is a canned browser extractor recording whether it ran.
type stubDynamic struct {
	calls  atomic.Int32
	result extractor.Result
	err    error
}

func (d *stubDynamic) Extract(ctx context.Context, playURL string, cookies []*http.Cookie) (extractor.Result, error) {
	d.calls.Add(1)
	return d.result, d.err
}

func TestSearchWebRejectsShortQueryBeforeNetwork(t *testing.T) {
	t.Parallel()

	svc := New()
	start := time.Now()
	_, err := svc.SearchWeb(context.Background(), "  ab ")
	require.Error(t, err)
	assert.True(t, IsNoData(err))
	assert.Contains(t, err.Error(), "too short")
	// No request was issued, so not even the rate limiter ran.
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestSearchRetriesOnceOnStaleToken(t *testing.T) {
	t.Parallel()

	var tokenFetches, posts atomic.Int32
	rt := rtFunc(func(req *http.Request) (*http.Response, error) {
		if req.Method == http.MethodGet {
			tokenFetches.Add(1)
			return htmlResponse(req, 200, `<head><meta name="csrf-token" content="tok-`+strconv.Itoa(int(tokenFetches.Load()))+`"></head>`), nil
		}
		if posts.Add(1) == 1 {
			// Stale token: the framework answers 419 Page Expired.
			return htmlResponse(req, 419, "expired"), nil
		}
		assert.Equal(t, "tok-2", req.Header.Get("X-CSRF-TOKEN"))
		return htmlResponse(req, 200, `<div class="card"><a href="/en/movies/the-salesman"><h5 class="card-title">The Salesman</h5></a></div>`), nil
	})

	svc := newStubService(rt)
	results, err := svc.Search(context.Background(), "salesman")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "the-salesman", results[0].Slug)
	assert.Equal(t, int32(2), tokenFetches.Load())
	assert.Equal(t, int32(2), posts.Load())
}

func TestSearchReusesCachedToken(t *testing.T) {
	t.Parallel()

	var tokenFetches atomic.Int32
	rt := rtFunc(func(req *http.Request) (*http.Response, error) {
		if req.Method == http.MethodGet {
			tokenFetches.Add(1)
			return htmlResponse(req, 200, `<head><meta name="csrf-token" content="tok-x"></head>`), nil
		}
		return htmlResponse(req, 200, `<div class="card"><a href="/en/movies/hit-the-road"><h5 class="card-title">Hit the Road</h5></a></div>`), nil
	})

	svc := newStubService(rt)
	_, err := svc.Search(context.Background(), "road")
	require.NoError(t, err)
	_, err = svc.Search(context.Background(), "road")
	require.NoError(t, err)
	assert.Equal(t, int32(1), tokenFetches.Load())
}

func TestExtractVideoURL_StaticHLSSkipsBrowser(t *testing.T) {
	t.Parallel()

	rt := rtFunc(func(req *http.Request) (*http.Response, error) {
		assert.Contains(t, req.URL.Path, "/play")
		return htmlResponse(req, 200,
			`<video><source src="https://stream.imvbox.com/media/48213/48213.m3u8"></video>`), nil
	})
	dyn := &stubDynamic{}

	svc := newStubService(rt, WithDynamicExtractor(dyn))
	v, err := svc.ExtractVideoURL(context.Background(), "https://www.imvbox.com/en/movies/the-salesman")
	require.NoError(t, err)

	assert.Equal(t, "https://stream.imvbox.com/media/48213/48213.m3u8", v.URL)
	assert.Equal(t, "Auto", v.Quality)
	assert.Equal(t, "IMVBox", v.Host)
	assert.True(t, v.IsHLS())
	assert.Equal(t, int32(0), dyn.calls.Load(), "browser must not launch when static parse succeeds")
}

func TestExtractVideoURL_DynamicFallback(t *testing.T) {
	t.Parallel()

	rt := rtFunc(func(req *http.Request) (*http.Response, error) {
		// Player shell with no static source at all.
		return htmlResponse(req, 200, `<div id="player"></div>`), nil
	})
	dyn := &stubDynamic{result: extractor.Result{Kind: extractor.KindHLS, URL: "https://stream.imvbox.com/media/52000/52000.m3u8", MediaID: "52000"}}

	svc := newStubService(rt, WithDynamicExtractor(dyn))
	v, err := svc.ExtractVideoURL(context.Background(), "https://www.imvbox.com/en/movies/the-salesman/play")
	require.NoError(t, err)

	assert.Equal(t, "https://stream.imvbox.com/media/52000/52000.m3u8", v.URL)
	assert.Equal(t, int32(1), dyn.calls.Load())
}

func TestExtractVideoURL_StaticYouTubeOnlyAfterBrowserFails(t *testing.T) {
	t.Parallel()

	rt := rtFunc(func(req *http.Request) (*http.Response, error) {
		return htmlResponse(req, 200,
			`<div id="player" data-plyr-embed-id="abc12345678"></div>`), nil
	})
	dyn := &stubDynamic{err: context.DeadlineExceeded}

	svc := newStubService(rt, WithDynamicExtractor(dyn))
	v, err := svc.ExtractVideoURL(context.Background(), "https://www.imvbox.com/en/movies/some-documentary")
	require.NoError(t, err)

	// The static YouTube hit is kept as a last resort once the browser
	// phase comes up empty.
	assert.Equal(t, int32(1), dyn.calls.Load())
	assert.Equal(t, "https://www.youtube.com/watch?v=abc12345678", v.URL)
	assert.Equal(t, "YouTube", v.Quality)
}

func TestExtractVideoURL_DynamicYouTubeResult(t *testing.T) {
	t.Parallel()

	rt := rtFunc(func(req *http.Request) (*http.Response, error) {
		return htmlResponse(req, 200, `<div id="player"></div>`), nil
	})
	dyn := &stubDynamic{result: extractor.Result{Kind: extractor.KindYouTube, VideoID: "xyz98765432"}}

	svc := newStubService(rt, WithDynamicExtractor(dyn))
	v, err := svc.ExtractVideoURL(context.Background(), "https://www.imvbox.com/en/shows/shahrzad/season-2/episode-5")
	require.NoError(t, err)
	assert.Equal(t, "https://www.youtube.com/watch?v=xyz98765432", v.URL)
}

func TestExtractVideoURL_SubscriptionGate(t *testing.T) {
	t.Parallel()

	rt := rtFunc(func(req *http.Request) (*http.Response, error) {
		return htmlResponse(req, 200, `<body><p>Become a Plus member to watch</p></body>`), nil
	})
	dyn := &stubDynamic{}

	svc := newStubService(rt, WithDynamicExtractor(dyn))
	_, err := svc.ExtractVideoURL(context.Background(), "https://www.imvbox.com/en/movies/premium-only")
	require.Error(t, err)
	assert.True(t, IsNoData(err))
	assert.Equal(t, int32(0), dyn.calls.Load(), "gated content never reaches the browser phase")
}

func TestExtractVideoURL_NothingFound(t *testing.T) {
	t.Parallel()

	rt := rtFunc(func(req *http.Request) (*http.Response, error) {
		return htmlResponse(req, 200, `<div id="player"></div>`), nil
	})
	dyn := &stubDynamic{err: context.DeadlineExceeded}

	svc := newStubService(rt, WithDynamicExtractor(dyn))
	_, err := svc.ExtractVideoURL(context.Background(), "https://www.imvbox.com/en/movies/no-sources")
	require.Error(t, err)
	assert.True(t, IsNoData(err))
}

func TestExtractVideoURL_RejectsNonContentURL(t *testing.T) {
	t.Parallel()

	svc := newStubService(func(req *http.Request) (*http.Response, error) {
		t.Fatal("no request should be issued for a non-content URL")
		return nil, nil
	})
	_, err := svc.ExtractVideoURL(context.Background(), "https://www.imvbox.com/en/cast/asghar-farhadi")
	require.Error(t, err)
	assert.True(t, IsParseError(err))
}

func TestNormalizePlayURL(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		expected string
		ok       bool
	}{
		{
			name:     "movie detail URL",
			input:    "https://www.imvbox.com/en/movies/the-salesman",
			expected: "https://www.imvbox.com/en/movies/the-salesman/play",
			ok:       true,
		},
		{
			name:     "movie play URL is already canonical",
			input:    "https://www.imvbox.com/en/movies/the-salesman/play",
			expected: "https://www.imvbox.com/en/movies/the-salesman/play",
			ok:       true,
		},
		{
			name:     "episode detail URL",
			input:    "https://www.imvbox.com/en/shows/shahrzad/season-2/episode-5",
			expected: "https://www.imvbox.com/en/shows/shahrzad/season-2/episode-5/play",
			ok:       true,
		},
		{
			name:  "person URL is not playable",
			input: "https://www.imvbox.com/en/cast/asghar-farhadi",
			ok:    false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := normalizePlayURL(tc.input)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.expected, got)
			}
		})
	}
}

func TestHashIDDistinguishesPositions(t *testing.T) {
	t.Parallel()

	a := hashID(Source, "the-salesman", 1, 0)
	b := hashID(Source, "the-salesman", 1, 1)
	c := hashID(Source, "the-salesman", 2, 0)
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, a, hashID(Source, "the-salesman", 1, 0))
}
