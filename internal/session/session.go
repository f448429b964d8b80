// Package session supplies authenticated cookies and the login contract
// the scraping core consumes. The core only depends on the Manager
// interface; credential storage stays with the caller.
package session

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"golang.org/x/net/publicsuffix"

	"github.com/parsatv/imvbox/internal/httpx"
	"github.com/parsatv/imvbox/internal/parser"
	"github.com/parsatv/imvbox/internal/urls"
	"github.com/parsatv/imvbox/internal/util"
)

// Manager is the contract the scraping core needs from a session.
type Manager interface {
	// EnsureAuthenticated logs in if needed and reports whether an
	// authenticated session is available afterwards.
	EnsureAuthenticated(ctx context.Context) bool

	// IsLoggedIn reports the current session state without side effects.
	IsLoggedIn() bool

	// Client returns the HTTP client carrying the session cookies.
	Client() *http.Client

	// BrowserCookies returns the session cookies for injection into an
	// embedded browser surface.
	BrowserCookies() []*http.Cookie
}

// Anonymous is a Manager with no credentials. Play pages fetched through
// it only reach trailer-tier content.
type Anonymous struct{}

func (Anonymous) EnsureAuthenticated(context.Context) bool { return false }
func (Anonymous) IsLoggedIn() bool                         { return false }
func (Anonymous) Client() *http.Client                     { return util.GetSharedClient() }
func (Anonymous) BrowserCookies() []*http.Cookie           { return nil }

// CookieSession is a Manager backed by a cookie jar and the site's form
// login. Login traffic goes through the shared rate-limited fetcher like
// every other request to the host.
type CookieSession struct {
	email    string
	password string

	mu       sync.Mutex
	loggedIn bool

	jar     *cookiejar.Jar
	client  *http.Client
	fetcher *httpx.Fetcher
}

// NewCookieSession creates a session for the given credentials. Bind must
// be called before EnsureAuthenticated.
func NewCookieSession(email, password string) (*CookieSession, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cookie jar")
	}
	return &CookieSession{
		email:    email,
		password: password,
		jar:      jar,
		client:   util.NewJarClient(jar),
	}, nil
}

// Bind attaches the shared fetcher used for login traffic.
func (s *CookieSession) Bind(f *httpx.Fetcher) {
	s.fetcher = f
}

// Client returns the cookie-carrying HTTP client.
func (s *CookieSession) Client() *http.Client {
	return s.client
}

// IsLoggedIn reports whether a login has succeeded in this session.
func (s *CookieSession) IsLoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loggedIn
}

// EnsureAuthenticated performs the form login on first use. Failures are
// logged and reported as false; the caller decides whether anonymous
// access is good enough.
func (s *CookieSession) EnsureAuthenticated(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loggedIn {
		return true
	}
	if s.fetcher == nil || s.email == "" {
		return false
	}
	if err := s.login(ctx); err != nil {
		util.Warn("login failed", "err", err)
		return false
	}
	s.loggedIn = true
	return true
}

// Logout drops the session state. The jar is not cleared; the next login
// overwrites the relevant cookies.
func (s *CookieSession) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loggedIn = false
}

// BrowserCookies returns the site cookies currently held by the jar.
func (s *CookieSession) BrowserCookies() []*http.Cookie {
	base, err := url.Parse(urls.Base)
	if err != nil {
		return nil
	}
	return s.jar.Cookies(base)
}

func (s *CookieSession) login(ctx context.Context) error {
	loginURL := urls.Base + "/login"

	page, err := s.fetcher.Get(ctx, loginURL, true)
	if err != nil {
		return errors.Wrap(err, "failed to load login page")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(page)))
	if err != nil {
		return errors.Wrap(err, "failed to parse login page")
	}
	token, ok := parser.ExtractCSRFToken(doc)
	if !ok {
		return errors.New("login page has no CSRF token")
	}

	form := url.Values{}
	form.Set("_token", token)
	form.Set("email", s.email)
	form.Set("password", s.password)

	body, err := s.fetcher.PostForm(ctx, loginURL, form.Encode(), token)
	if err != nil {
		return errors.Wrap(err, "login request failed")
	}
	if strings.Contains(strings.ToLower(string(body)), "invalid credentials") {
		return errors.New("invalid credentials")
	}
	util.Debug("session: login ok", "email", s.email)
	return nil
}
