package api

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"

	"github.com/parsatv/imvbox/internal/parser"
	"github.com/parsatv/imvbox/internal/urls"
	"github.com/parsatv/imvbox/internal/util"
)

// csrfTTL is how long a fetched token is trusted before refetching.
const csrfTTL = 5 * time.Minute

// csrfCache holds the short-lived anti-forgery token for POST search.
// Read-check-write happens under one lock, so concurrent callers share a
// single refetch.
type csrfCache struct {
	mu        sync.Mutex
	token     string
	fetchedAt time.Time
	ttl       time.Duration
}

func newCSRFCache() *csrfCache {
	return &csrfCache{ttl: csrfTTL}
}

// get returns the cached token, refetching through fetch when the cache is
// empty or older than the freshness window.
func (c *csrfCache) get(ctx context.Context, fetch func(context.Context) (string, error)) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Since(c.fetchedAt) < c.ttl {
		return c.token, nil
	}

	token, err := fetch(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	c.fetchedAt = time.Now()
	util.Debug("csrf: token refreshed")
	return token, nil
}

// invalidate drops the cached token, forcing a refetch on next use.
func (c *csrfCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
}

// fetchCSRFToken loads the site root and pulls the token out of it.
func (s *Service) fetchCSRFToken(ctx context.Context) (string, error) {
	page, err := s.fetcher.Get(ctx, urls.Base, true)
	if err != nil {
		return "", err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(page)))
	if err != nil {
		return "", errors.Wrap(err, "failed to parse site root")
	}
	token, ok := parser.ExtractCSRFToken(doc)
	if !ok {
		return "", errors.New("no CSRF token on site root")
	}
	return token, nil
}
