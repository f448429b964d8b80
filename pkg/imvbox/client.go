// Package imvbox provides the public client for browsing and resolving
// IMVBox content. It can be used as a library in other Go projects.
package imvbox

import (
	"context"

	"github.com/parsatv/imvbox/internal/api"
	"github.com/parsatv/imvbox/internal/httpx"
	"github.com/parsatv/imvbox/internal/models"
	"github.com/parsatv/imvbox/internal/session"
	"github.com/parsatv/imvbox/internal/util"
	"github.com/parsatv/imvbox/pkg/imvbox/types"
)

// Client is the main entry point. One Client owns the per-host rate
// limiter; construct it once and share it.
type Client struct {
	svc *api.Service
}

// NewClient creates an anonymous client.
func NewClient() *Client {
	return &Client{svc: api.New()}
}

// NewClientWithLogin creates a client that authenticates with the given
// account before fetching play pages.
func NewClientWithLogin(email, password string) (*Client, error) {
	sess, err := session.NewCookieSession(email, password)
	if err != nil {
		return nil, err
	}
	fetcher := httpx.New(httpx.WithAuthClient(sess.Client()))
	sess.Bind(fetcher)
	return &Client{svc: api.New(api.WithFetcher(fetcher), api.WithSession(sess))}, nil
}

// Search queries the site's AJAX search endpoint.
func (c *Client) Search(ctx context.Context, query string) ([]types.SearchResult, error) {
	results, err := c.svc.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	return fromSearchResults(results), nil
}

// SearchWeb queries the full-page search. Queries under three characters
// return api.NoDataError without touching the network.
func (c *Client) SearchWeb(ctx context.Context, query string) ([]types.SearchResult, error) {
	results, err := c.svc.SearchWeb(ctx, query)
	if err != nil {
		return nil, err
	}
	return fromSearchResults(results), nil
}

// Movies fetches one listing page of movies.
func (c *Client) Movies(ctx context.Context, page int, sortBy types.SortBy) ([]types.Movie, bool, error) {
	movies, hasNext, err := c.svc.GetMovies(ctx, page, models.SortBy(sortBy))
	if err != nil {
		return nil, false, err
	}
	out := make([]types.Movie, 0, len(movies))
	for _, m := range movies {
		out = append(out, fromMovie(m))
	}
	return out, hasNext, nil
}

// Series fetches one listing page of TV series.
func (c *Client) Series(ctx context.Context, page int, sortBy types.SortBy) ([]types.Series, bool, error) {
	series, hasNext, err := c.svc.GetSeries(ctx, page, models.SortBy(sortBy))
	if err != nil {
		return nil, false, err
	}
	out := make([]types.Series, 0, len(series))
	for _, s := range series {
		out = append(out, fromSeries(s))
	}
	return out, hasNext, nil
}

// MovieDetails fetches the full metadata for one movie.
func (c *Client) MovieDetails(ctx context.Context, slug string) (types.Movie, error) {
	md, err := c.svc.GetMovieDetails(ctx, slug)
	if err != nil {
		return types.Movie{}, err
	}
	return types.Movie{
		Title:       md.Title,
		TitleFa:     md.TitleFa,
		Slug:        slug,
		Description: md.Description,
		Year:        md.Year,
		Rating:      md.Rating,
		Runtime:     md.Runtime,
		Genres:      md.Genres,
		Director:    md.Director,
		Cast:        md.Cast,
		PosterURL:   md.PosterURL,
	}, nil
}

// Episodes fetches one season of a show.
func (c *Client) Episodes(ctx context.Context, showSlug string, season int, seriesID int64, seriesTitle string) ([]types.Episode, error) {
	episodes, err := c.svc.GetEpisodes(ctx, showSlug, season, seriesID, seriesTitle)
	if err != nil {
		return nil, err
	}
	out := make([]types.Episode, 0, len(episodes))
	for _, e := range episodes {
		out = append(out, fromEpisode(e))
	}
	return out, nil
}

// AllEpisodes fetches every season of a show. Seasons load concurrently;
// the shared rate limiter paces the actual requests.
func (c *Client) AllEpisodes(ctx context.Context, showSlug string, seriesID int64, seriesTitle string) ([]types.Episode, error) {
	total, err := c.svc.SeasonCount(ctx, showSlug)
	if err != nil {
		return nil, err
	}

	results := make([][]types.Episode, total)
	pool := util.NewWorkerPool(4)
	for season := 1; season <= total; season++ {
		season := season
		pool.Submit(func() {
			eps, err := c.Episodes(ctx, showSlug, season, seriesID, seriesTitle)
			if err != nil {
				util.Debugf("season %d: %v", season, err)
				return
			}
			results[season-1] = eps
		})
	}
	pool.Wait()

	var all []types.Episode
	for _, eps := range results {
		all = append(all, eps...)
	}
	if len(all) == 0 {
		return nil, &api.NoDataError{Message: "no episodes found for " + showSlug}
	}
	return all, nil
}

// ResolveVideo resolves a playable source for any movie or episode page
// URL, trying static parsing first and the embedded browser as fallback.
func (c *Client) ResolveVideo(ctx context.Context, pageURL string) (types.VideoURL, error) {
	v, err := c.svc.ExtractVideoURL(ctx, pageURL)
	if err != nil {
		return types.VideoURL{}, err
	}
	return types.VideoURL{URL: v.URL, Quality: v.Quality, Host: v.Host}, nil
}

// ResolveMovieVideo is the static-only fast path for a movie slug.
func (c *Client) ResolveMovieVideo(ctx context.Context, slug string) (types.VideoURL, error) {
	v, err := c.svc.ExtractMovieVideoURL(ctx, slug)
	if err != nil {
		return types.VideoURL{}, err
	}
	return types.VideoURL{URL: v.URL, Quality: v.Quality, Host: v.Host}, nil
}

func fromMovie(m models.Movie) types.Movie {
	return types.Movie{
		ID:          m.ID,
		Title:       m.Title,
		TitleFa:     m.TitleFa,
		Slug:        m.Slug,
		URL:         m.URL,
		PosterURL:   m.PosterURL,
		Description: m.Description,
		Year:        m.Year,
		Rating:      m.Rating,
		Runtime:     m.Runtime,
		Genres:      m.Genres,
		Director:    m.Director,
		Cast:        m.Cast,
	}
}

func fromSeries(s models.Series) types.Series {
	return types.Series{
		ID:           s.ID,
		Title:        s.Title,
		TitleFa:      s.TitleFa,
		Slug:         s.Slug,
		URL:          s.URL,
		PosterURL:    s.PosterURL,
		Year:         s.Year,
		Rating:       s.Rating,
		TotalSeasons: s.TotalSeasons,
	}
}

func fromEpisode(e models.Episode) types.Episode {
	return types.Episode{
		SeriesID:     e.SeriesID,
		SeriesTitle:  e.SeriesTitle,
		Season:       e.Season,
		Number:       e.Number,
		Title:        e.Title,
		URL:          e.URL,
		ThumbnailURL: e.ThumbnailURL,
		Runtime:      e.Runtime,
	}
}

func fromSearchResults(results []models.SearchResult) []types.SearchResult {
	out := make([]types.SearchResult, 0, len(results))
	for _, r := range results {
		out = append(out, types.SearchResult{
			Title:        r.Title,
			Type:         types.MediaType(r.Type),
			Slug:         r.Slug,
			ThumbnailURL: r.ThumbnailURL,
			URL:          r.URL,
		})
	}
	return out
}
