// Package httpx executes rate-limited HTTP requests against the source
// site. One Fetcher instance is shared by everything that talks to the
// host: the pacing constraint is per-host, not per-call-site.
package httpx

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/parsatv/imvbox/internal/util"
)

const (
	// DefaultInterval is the minimum spacing between request starts.
	DefaultInterval = 500 * time.Millisecond

	// MaxResponseBytes caps response bodies. The site serves HTML pages in
	// the tens of kilobytes; anything near this ceiling is not a page we
	// want buffered.
	MaxResponseBytes = 5 << 20

	// UserAgent mimics a desktop Chrome. The site degrades or blocks
	// responses for obviously non-browser agents.
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0.0.0 Safari/537.36"

	acceptHeader   = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	acceptLanguage = "en-US,en;q=0.9"
)

// StatusError reports a non-2xx response.
type StatusError struct {
	Code   int
	Status string
	URL    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %s for %s", e.Status, e.URL)
}

// ErrResponseTooLarge is returned before buffering when Content-Length
// exceeds MaxResponseBytes.
var ErrResponseTooLarge = errors.New("response exceeds size ceiling")

// Fetcher serializes outbound requests behind a shared rate limiter and
// selects between the anonymous and session-authenticated transports.
type Fetcher struct {
	limiter *rate.Limiter
	anon    *http.Client
	auth    *http.Client
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithInterval overrides the minimum inter-request spacing.
func WithInterval(d time.Duration) Option {
	return func(f *Fetcher) {
		f.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithAuthClient sets the client used for authenticated requests.
func WithAuthClient(c *http.Client) Option {
	return func(f *Fetcher) { f.auth = c }
}

// WithAnonClient replaces the shared anonymous client.
func WithAnonClient(c *http.Client) Option {
	return func(f *Fetcher) { f.anon = c }
}

// New creates a Fetcher around the shared anonymous client. Callers that
// need authenticated traffic attach the session client with WithAuthClient.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		limiter: rate.NewLimiter(rate.Every(DefaultInterval), 1),
		anon:    util.GetSharedClient(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.auth == nil {
		f.auth = f.anon
	}
	return f
}

// SetAuthClient swaps the authenticated transport after construction, for
// sessions established later than the fetcher.
func (f *Fetcher) SetAuthClient(c *http.Client) {
	if c != nil {
		f.auth = c
	}
}

// Do executes one request through the rate limiter. The limiter wait is a
// suspension point honoring ctx; cancellation during the wait never hits
// the network.
func (f *Fetcher) Do(ctx context.Context, req *http.Request, authed bool) (*http.Response, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	decorate(req)
	client := f.anon
	if authed {
		client = f.auth
	}

	start := time.Now()
	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, errors.Wrapf(err, "request failed: %s", req.URL)
	}
	util.Debugf("httpx: %s %s -> %d (%s)", req.Method, req.URL, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		status := resp.Status
		_ = resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, Status: status, URL: req.URL.String()}
	}
	if resp.ContentLength > MaxResponseBytes {
		_ = resp.Body.Close()
		return nil, errors.Wrapf(ErrResponseTooLarge, "%d bytes from %s", resp.ContentLength, req.URL)
	}
	return resp, nil
}

// Get fetches a URL and returns the buffered body.
func (f *Fetcher) Get(ctx context.Context, rawURL string, authed bool) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	return f.readAll(ctx, req, authed)
}

// GetDocument fetches a URL and parses it as HTML.
func (f *Fetcher) GetDocument(ctx context.Context, rawURL string, authed bool) (*goquery.Document, error) {
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	resp, err := f.Do(ctx, req, authed)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, MaxResponseBytes))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse HTML from %s", rawURL)
	}
	doc.Url = resp.Request.URL
	return doc, nil
}

// PostForm sends an authenticated-token AJAX POST the way the site's own
// frontend does, with the CSRF header and the XHR marker.
func (f *Fetcher) PostForm(ctx context.Context, rawURL, body, csrfToken string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodPost, rawURL, strings.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-CSRF-TOKEN", csrfToken)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	return f.readAll(ctx, req, true)
}

func (f *Fetcher) readAll(ctx context.Context, req *http.Request, authed bool) ([]byte, error) {
	resp, err := f.Do(ctx, req, authed)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read body from %s", req.URL)
	}
	return data, nil
}

func decorate(req *http.Request) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", UserAgent)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", acceptHeader)
	}
	req.Header.Set("Accept-Language", acceptLanguage)
}
