package api

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/parsatv/imvbox/internal/extractor"
	"github.com/parsatv/imvbox/internal/httpx"
	"github.com/parsatv/imvbox/internal/models"
	"github.com/parsatv/imvbox/internal/parser"
	"github.com/parsatv/imvbox/internal/session"
	"github.com/parsatv/imvbox/internal/urls"
	"github.com/parsatv/imvbox/internal/util"
)

// Source labels records produced by this service.
const Source = "imvbox"

// minSearchQueryLen is the shortest query SearchWeb will send; the site
// returns the full catalog for anything shorter.
const minSearchQueryLen = 3

// DynamicExtractor is the browser-driven fallback for play pages whose
// video source only appears after script execution.
type DynamicExtractor interface {
	Extract(ctx context.Context, playURL string, cookies []*http.Cookie) (extractor.Result, error)
}

// Service exposes the scraping operations. Construct exactly one per
// process: the rate limiter and token cache it owns are the per-host
// shared state.
type Service struct {
	fetcher     *httpx.Fetcher
	parser      *parser.Parser
	session     session.Manager
	dynamic     DynamicExtractor
	csrf        *csrfCache
	searchCache *util.ResponseCache
}

// Option configures a Service.
type Option func(*Service)

// WithFetcher overrides the rate-limited fetcher.
func WithFetcher(f *httpx.Fetcher) Option {
	return func(s *Service) { s.fetcher = f }
}

// WithParser overrides the HTML parser.
func WithParser(p *parser.Parser) Option {
	return func(s *Service) { s.parser = p }
}

// WithSession attaches a session manager for authenticated traffic.
func WithSession(m session.Manager) Option {
	return func(s *Service) { s.session = m }
}

// WithDynamicExtractor overrides the browser-driven extractor.
func WithDynamicExtractor(d DynamicExtractor) Option {
	return func(s *Service) { s.dynamic = d }
}

// New creates a Service. Without options it runs anonymously with default
// pacing and the real browser extractor.
func New(opts ...Option) *Service {
	s := &Service{
		csrf:        newCSRFCache(),
		searchCache: util.NewResponseCache(2*time.Minute, 100),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.session == nil {
		s.session = session.Anonymous{}
	}
	if s.fetcher == nil {
		s.fetcher = httpx.New(httpx.WithAuthClient(s.session.Client()))
	}
	if s.parser == nil {
		s.parser = parser.New()
	}
	if s.dynamic == nil {
		s.dynamic = extractor.New()
	}
	return s
}

// Search issues the token-authenticated AJAX search the site's own
// frontend uses. The CSRF token is cached and refetched after its
// freshness window.
func (s *Service) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	token, err := s.csrf.get(ctx, s.fetchCSRFToken)
	if err != nil {
		return nil, netErr("failed to obtain search token", err)
	}

	form := url.Values{}
	form.Set("q", query)
	body, err := s.fetcher.PostForm(ctx, urls.AjaxSearchURL(), form.Encode(), token)
	if err != nil {
		// A rejected token means our cached one outlived the session
		// server-side; refetch once.
		// 419 is the framework's "page expired" response to a stale token.
		var se *httpx.StatusError
		if errors.As(err, &se) && (se.Code == 419 || se.Code == http.StatusForbidden) {
			s.csrf.invalidate()
			if token, err = s.csrf.get(ctx, s.fetchCSRFToken); err == nil {
				body, err = s.fetcher.PostForm(ctx, urls.AjaxSearchURL(), form.Encode(), token)
			}
		}
		if err != nil {
			return nil, netErr("search request failed", err)
		}
	}

	results, err := s.parseSearchBody(body)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, noData(fmt.Sprintf("no results for %q", query))
	}
	return results, nil
}

// SearchWeb issues the plain GET full-page search. Queries under three
// characters are rejected before any network traffic.
func (s *Service) SearchWeb(ctx context.Context, query string) ([]models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if len(query) < minSearchQueryLen {
		return nil, noData(fmt.Sprintf("query %q too short (minimum %d characters)", query, minSearchQueryLen))
	}

	searchURL := urls.SearchURL(query)
	body, cached := s.searchCache.Get(searchURL)
	if !cached {
		var err error
		body, err = s.fetcher.Get(ctx, searchURL, false)
		if err != nil {
			return nil, netErr("search request failed", err)
		}
		s.searchCache.Set(searchURL, body)
	}

	results, err := s.parseSearchBody(body)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, noData(fmt.Sprintf("no results for %q", query))
	}
	return results, nil
}

func (s *Service) parseSearchBody(body []byte) ([]models.SearchResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, parseErr("failed to parse search response", err)
	}
	return s.parser.ParseSearchResults(doc), nil
}

// GetMovies fetches one movie listing page. The second return reports
// whether another page follows.
func (s *Service) GetMovies(ctx context.Context, page int, sortBy models.SortBy) ([]models.Movie, bool, error) {
	doc, err := s.fetcher.GetDocument(ctx, urls.MoviesListURL(page, sortBy), false)
	if err != nil {
		return nil, false, netErr("failed to fetch movie listing", err)
	}

	cards := s.parser.ParseMovieCards(doc)
	if len(cards) == 0 {
		return nil, false, noData(fmt.Sprintf("no movies on page %d", page))
	}

	movies := make([]models.Movie, 0, len(cards))
	for i, c := range cards {
		movies = append(movies, models.Movie{
			// Synthesized from position; not stable if page size or sort
			// order changes between fetches. Downstream caching keys on
			// this, so the scheme stays as-is.
			ID:        hashID(Source, c.Slug, page, i),
			Title:     c.Title,
			TitleFa:   c.TitleFa,
			Slug:      c.Slug,
			URL:       c.URL,
			PosterURL: c.PosterURL,
			Year:      c.Year,
			Rating:    c.Rating,
			Source:    Source,
		})
	}
	return movies, parser.HasNextPage(doc, page), nil
}

// GetSeries fetches one TV series listing page.
func (s *Service) GetSeries(ctx context.Context, page int, sortBy models.SortBy) ([]models.Series, bool, error) {
	doc, err := s.fetcher.GetDocument(ctx, urls.SeriesListURL(page, sortBy), false)
	if err != nil {
		return nil, false, netErr("failed to fetch series listing", err)
	}

	cards := s.parser.ParseSeriesCards(doc)
	if len(cards) == 0 {
		return nil, false, noData(fmt.Sprintf("no series on page %d", page))
	}

	series := make([]models.Series, 0, len(cards))
	for i, c := range cards {
		series = append(series, models.Series{
			ID:           hashID(Source, c.Slug, page, i),
			Title:        c.Title,
			TitleFa:      c.TitleFa,
			Slug:         c.Slug,
			URL:          c.URL,
			PosterURL:    c.PosterURL,
			Year:         c.Year,
			Rating:       c.Rating,
			TotalSeasons: c.TotalSeasons,
			Source:       Source,
		})
	}
	return series, parser.HasNextPage(doc, page), nil
}

// GetMovieDetails fetches and parses one movie detail page.
func (s *Service) GetMovieDetails(ctx context.Context, slug string) (models.MovieMetadata, error) {
	doc, err := s.fetcher.GetDocument(ctx, urls.MovieDetailURL(slug), false)
	if err != nil {
		return models.MovieMetadata{}, netErr("failed to fetch movie details", err)
	}
	md, ok := s.parser.ParseMovieMetadata(doc)
	if !ok {
		return models.MovieMetadata{}, parseErr(fmt.Sprintf("no metadata on detail page for %q", slug), nil)
	}
	return md, nil
}

// GetEpisodes fetches one season's episode list, attaching the
// caller-supplied parent identifiers.
func (s *Service) GetEpisodes(ctx context.Context, showSlug string, season int, seriesID int64, seriesTitle string) ([]models.Episode, error) {
	doc, err := s.fetcher.GetDocument(ctx, urls.SeasonURL(showSlug, season), false)
	if err != nil {
		return nil, netErr("failed to fetch season page", err)
	}

	items := s.parser.ParseEpisodeList(doc, season)
	if len(items) == 0 {
		return nil, noData(fmt.Sprintf("no episodes for %s season %d", showSlug, season))
	}

	episodes := make([]models.Episode, 0, len(items))
	for _, it := range items {
		episodes = append(episodes, models.Episode{
			SeriesID:     seriesID,
			SeriesTitle:  seriesTitle,
			Season:       it.Season,
			Number:       it.Number,
			Title:        it.Title,
			URL:          it.URL,
			ThumbnailURL: it.ThumbnailURL,
			Runtime:      it.Runtime,
		})
	}
	return episodes, nil
}

// SeasonCount fetches the season page of a show and reports how many
// seasons it links.
func (s *Service) SeasonCount(ctx context.Context, showSlug string) (int, error) {
	doc, err := s.fetcher.GetDocument(ctx, urls.SeasonURL(showSlug, 1), false)
	if err != nil {
		return 0, netErr("failed to fetch show page", err)
	}
	return parser.MaxSeason(doc), nil
}

// ExtractMovieVideoURL is the static-only fast path for a movie play page.
func (s *Service) ExtractMovieVideoURL(ctx context.Context, slug string) (models.VideoURL, error) {
	return s.staticExtract(ctx, urls.MoviePlayURL(slug))
}

// ExtractEpisodeVideoURL is the static-only fast path for an episode play
// page.
func (s *Service) ExtractEpisodeVideoURL(ctx context.Context, showSlug string, season, episode int) (models.VideoURL, error) {
	return s.staticExtract(ctx, urls.EpisodePlayURL(showSlug, season, episode))
}

func (s *Service) staticExtract(ctx context.Context, playURL string) (models.VideoURL, error) {
	s.session.EnsureAuthenticated(ctx)

	doc, err := s.fetcher.GetDocument(ctx, playURL, true)
	if err != nil {
		return models.VideoURL{}, netErr("failed to fetch play page", err)
	}
	if s.parser.RequiresSubscription(doc) {
		return models.VideoURL{}, noData("content requires a plus membership")
	}
	if hls, ok := s.parser.ExtractHLSURL(doc); ok {
		return hlsResult(hls), nil
	}
	return models.VideoURL{}, noData("no static video source on play page")
}

// ExtractVideoURL resolves a playable source for any movie or episode page
// URL, static parse first and the embedded browser as fallback. A static
// YouTube hit alone does not end the operation: YouTube embeds on this
// site are usually trailers, and the dynamic phase may still surface the
// real stream.
func (s *Service) ExtractVideoURL(ctx context.Context, pageURL string) (models.VideoURL, error) {
	playURL, ok := normalizePlayURL(pageURL)
	if !ok {
		return models.VideoURL{}, parseErr(fmt.Sprintf("not a playable page URL: %s", pageURL), nil)
	}

	authed := s.session.EnsureAuthenticated(ctx)

	// Static phase. Any failure here is non-fatal: the dynamic phase can
	// succeed where a blocked or partial static fetch did not.
	staticYT := ""
	doc, err := s.fetcher.GetDocument(ctx, playURL, true)
	if err != nil {
		util.Debugf("api: static phase fetch failed: %v", err)
	} else if s.parser.RequiresSubscription(doc) {
		return models.VideoURL{}, noData("content requires a plus membership")
	} else {
		if hls, ok := s.parser.ExtractHLSURL(doc); ok {
			return hlsResult(hls), nil
		}
		staticYT, _ = s.parser.ExtractYouTubeID(doc)
	}

	// Dynamic phase.
	var cookies []*http.Cookie
	if authed {
		cookies = s.session.BrowserCookies()
	}
	res, err := s.dynamic.Extract(ctx, playURL, cookies)
	if err != nil {
		util.Debugf("api: dynamic phase failed: %v", err)
		if staticYT != "" {
			return youtubeResult(staticYT), nil
		}
		return models.VideoURL{}, noData("no video source found on play page")
	}

	switch res.Kind {
	case extractor.KindHLS:
		return hlsResult(res.URL), nil
	case extractor.KindYouTube:
		return youtubeResult(res.VideoID), nil
	}
	return models.VideoURL{}, parseErr("extractor returned an unknown result kind", nil)
}

func hlsResult(hlsURL string) models.VideoURL {
	return models.VideoURL{URL: hlsURL, Quality: "Auto", Host: "IMVBox"}
}

func youtubeResult(videoID string) models.VideoURL {
	return models.VideoURL{
		URL:     "https://www.youtube.com/watch?v=" + videoID,
		Quality: "YouTube",
		Host:    "YouTube",
	}
}

// normalizePlayURL turns a detail or play URL into the canonical play URL.
func normalizePlayURL(pageURL string) (string, bool) {
	if season, episode, ok := urls.ExtractEpisodeRef(pageURL); ok {
		if slug, ok := urls.ExtractShowSlug(pageURL); ok {
			return urls.EpisodePlayURL(slug, season, episode), true
		}
		return "", false
	}
	if slug, ok := urls.ExtractMovieSlug(pageURL); ok {
		return urls.MoviePlayURL(slug), true
	}
	return "", false
}

// hashID synthesizes a listing id from position. See the note at the call
// sites: this is cache-keying, not a stable identity.
func hashID(source, slug string, page, index int) int64 {
	h := fnv.New32a()
	fmt.Fprintf(h, "%s:%s:%d:%d", source, slug, page, index)
	return int64(h.Sum32())
}
