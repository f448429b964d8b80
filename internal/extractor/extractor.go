// Package extractor recovers video sources that only materialize after
// client-side script execution, by driving a real Chromium surface through
// playwright. The site loads its player configuration via JavaScript and
// blocks plain non-interactive fetchers, so for anything the static parse
// misses this is the path of last resort.
package extractor

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/pkg/errors"
	"github.com/playwright-community/playwright-go"

	"github.com/parsatv/imvbox/internal/parser"
	"github.com/parsatv/imvbox/internal/urls"
	"github.com/parsatv/imvbox/internal/util"
)

// Kind discriminates the two source families the extractor can resolve.
type Kind int

const (
	KindHLS Kind = iota
	KindYouTube
)

// Result is the terminal outcome of one extraction.
type Result struct {
	Kind    Kind
	URL     string // HLS playlist URL for KindHLS
	MediaID string
	VideoID string // 11-char id for KindYouTube
}

const (
	// DefaultProbeDelay is how long after page load the in-page probe runs
	// if no intercepted request has resolved the extraction yet.
	DefaultProbeDelay = 5 * time.Second

	// DefaultTimeout is the hard ceiling for one extraction.
	DefaultTimeout = 30 * time.Second
)

var (
	ytEmbedRe    = regexp.MustCompile(`youtube\.com/embed/([A-Za-z0-9_-]{11})`)
	siteHLSRe    = regexp.MustCompile(`https?://stream\.imvbox\.com/media/(?:trailers/)?(\d+)/[^?\s]*\.m3u8`)
	genericM3URe = regexp.MustCompile(`\.m3u8(\?|$)`)
)

// Extractor drives the embedded browser. One Extractor is safe for
// concurrent use; each Extract call owns its own browser context.
type Extractor struct {
	introIDs   map[string]bool
	probeDelay time.Duration
	timeout    time.Duration
	headless   bool
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithIntroIDs overrides the intro-clip exclusion set.
func WithIntroIDs(ids map[string]bool) Option {
	return func(e *Extractor) { e.introIDs = ids }
}

// WithProbeDelay overrides the page-settled probe delay.
func WithProbeDelay(d time.Duration) Option {
	return func(e *Extractor) { e.probeDelay = d }
}

// WithTimeout overrides the hard extraction ceiling.
func WithTimeout(d time.Duration) Option {
	return func(e *Extractor) { e.timeout = d }
}

// WithHeadful runs the browser with a visible window, for debugging.
func WithHeadful() Option {
	return func(e *Extractor) { e.headless = false }
}

// New creates an Extractor with the default intro exclusions and timings.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		introIDs:   parser.DefaultIntroMediaIDs,
		probeDelay: DefaultProbeDelay,
		timeout:    DefaultTimeout,
		headless:   true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract loads the play page and resolves the first video source observed
// either on the wire or in settled page state. Session cookies are injected
// before navigation when provided; without them only trailer-tier content
// is reachable. Cancelling ctx tears the browser surface down.
func (e *Extractor) Extract(ctx context.Context, playURL string, cookies []*http.Cookie) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	pw, err := playwright.Run()
	if err != nil {
		return Result{}, errors.Wrap(err, "failed to start playwright")
	}
	defer func() { _ = pw.Stop() }()

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(e.headless),
	})
	if err != nil {
		return Result{}, errors.Wrap(err, "failed to launch browser")
	}
	defer func() { _ = browser.Close() }()

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0.0.0 Safari/537.36"),
	})
	if err != nil {
		return Result{}, errors.Wrap(err, "failed to create browser context")
	}
	defer func() { _ = bctx.Close() }()

	if len(cookies) > 0 {
		if err := bctx.AddCookies(browserCookies(cookies)); err != nil {
			util.Warn("extractor: cookie injection failed", "err", err)
		}
	}

	page, err := bctx.NewPage()
	if err != nil {
		return Result{}, errors.Wrap(err, "failed to open page")
	}

	// Exactly one terminal transition: the first send wins, every later
	// interception or probe hit is a no-op against the full channel.
	resolved := make(chan Result, 1)
	resolve := func(r Result) {
		select {
		case resolved <- r:
			util.Debug("extractor: resolved", "kind", r.Kind, "url", r.URL, "video", r.VideoID)
		default:
		}
	}

	page.OnRequest(func(req playwright.Request) {
		if r, ok := e.classifyRequest(req.URL()); ok {
			resolve(r)
		}
	})

	loaded := make(chan struct{}, 1)
	page.OnLoad(func(playwright.Page) {
		select {
		case loaded <- struct{}{}:
		default:
		}
	})

	go func() {
		_, err := page.Goto(playURL, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateNetworkidle,
			Timeout:   playwright.Float(float64(e.timeout.Milliseconds())),
		})
		if err != nil {
			util.Debugf("extractor: navigation: %v", err)
		}
	}()

	// The probe is armed by page load and fires once after the settle
	// delay, independent of the hard timeout.
	go e.probeAfterLoad(ctx, page, loaded, resolve)

	select {
	case r := <-resolved:
		return r, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Result{}, errors.Errorf("no video source found within %s", e.timeout)
		}
		return Result{}, ctx.Err()
	}
}

func (e *Extractor) probeAfterLoad(ctx context.Context, page playwright.Page, loaded <-chan struct{}, resolve func(Result)) {
	select {
	case <-loaded:
	case <-ctx.Done():
		return
	}
	select {
	case <-time.After(e.probeDelay):
	case <-ctx.Done():
		return
	}

	raw, err := page.Evaluate(probeScript)
	if err != nil {
		util.Debugf("extractor: probe evaluate: %v", err)
		return
	}
	if r, ok := e.parseProbe(raw); ok {
		resolve(r)
	}
}

// classifyRequest inspects one outgoing sub-request URL. Site-host HLS and
// YouTube embeds resolve immediately; a bare .m3u8 anywhere is accepted as
// a last resort. Intro-clip ids never resolve, interception continues past
// them.
func (e *Extractor) classifyRequest(reqURL string) (Result, bool) {
	if m := ytEmbedRe.FindStringSubmatch(reqURL); m != nil {
		return Result{Kind: KindYouTube, VideoID: m[1]}, true
	}
	if m := siteHLSRe.FindStringSubmatch(reqURL); m != nil {
		if e.introIDs[m[1]] {
			return Result{}, false
		}
		return Result{Kind: KindHLS, URL: m[0], MediaID: m[1]}, true
	}
	if genericM3URe.MatchString(reqURL) {
		if id, ok := urls.ExtractMediaID(reqURL); ok && e.introIDs[id] {
			return Result{}, false
		}
		id, _ := urls.ExtractMediaID(reqURL)
		return Result{Kind: KindHLS, URL: reqURL, MediaID: id}, true
	}
	return Result{}, false
}

// parseProbe maps the probe script's return value onto a Result.
func (e *Extractor) parseProbe(raw interface{}) (Result, bool) {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return Result{}, false
	}
	typ, _ := m["type"].(string)
	value, _ := m["value"].(string)
	if value == "" {
		return Result{}, false
	}
	switch typ {
	case "hls":
		if id, ok := urls.ExtractMediaID(value); ok && e.introIDs[id] {
			return Result{}, false
		}
		id, _ := urls.ExtractMediaID(value)
		return Result{Kind: KindHLS, URL: value, MediaID: id}, true
	case "youtube":
		return Result{Kind: KindYouTube, VideoID: value}, true
	}
	return Result{}, false
}

func browserCookies(cookies []*http.Cookie) []playwright.OptionalCookie {
	out := make([]playwright.OptionalCookie, 0, len(cookies))
	for _, c := range cookies {
		domain := c.Domain
		if domain == "" {
			domain = ".imvbox.com"
		}
		path := c.Path
		if path == "" {
			path = "/"
		}
		out = append(out, playwright.OptionalCookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: playwright.String(domain),
			Path:   playwright.String(path),
		})
	}
	return out
}
