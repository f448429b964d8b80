// Package urls maps logical identifiers to IMVBox URLs and back.
// All functions are pure; extraction helpers return ok=false when the
// input does not match rather than failing.
package urls

import (
	"fmt"
	"net/url"
	"regexp"

	"github.com/parsatv/imvbox/internal/models"
)

const (
	// Base is the canonical English-language site root.
	Base = "https://www.imvbox.com/en"

	// AssetsBase serves posters, thumbnails and cast photos.
	AssetsBase = "https://assets.imvbox.com"

	// StreamHost serves the HLS playlists.
	StreamHost = "https://stream.imvbox.com"
)

var (
	movieSlugRe   = regexp.MustCompile(`/movies/([a-z0-9-]+)`)
	showSlugRe    = regexp.MustCompile(`/shows/([a-z0-9-]+)`)
	episodePathRe = regexp.MustCompile(`/season-(\d+)/episode-(\d+)`)
	mediaIDRe     = regexp.MustCompile(`/media/(?:trailers?/)?(\d+)/`)
	trailerRe     = regexp.MustCompile(`/trailers?/`)
)

// SearchURL builds the GET full-page search endpoint.
func SearchURL(query string) string {
	return fmt.Sprintf("%s/search?q=%s", Base, url.QueryEscape(query))
}

// AjaxSearchURL is the POST search endpoint used with a CSRF token.
func AjaxSearchURL() string {
	return Base + "/search"
}

// MoviesListURL builds a movie listing page URL. Page 1 is the canonical
// base listing; the page parameter appears only for later pages, and
// sort_by only when a sort order is requested.
func MoviesListURL(page int, sortBy models.SortBy) string {
	return listURL("movies", page, sortBy)
}

// SeriesListURL builds a TV series listing page URL with the same page-1
// and sort_by rules as MoviesListURL.
func SeriesListURL(page int, sortBy models.SortBy) string {
	return listURL("tv-series", page, sortBy)
}

func listURL(section string, page int, sortBy models.SortBy) string {
	u := fmt.Sprintf("%s/%s", Base, section)
	q := url.Values{}
	if sortBy != "" {
		q.Set("sort_by", string(sortBy))
	}
	if page > 1 {
		q.Set("page", fmt.Sprintf("%d", page))
	}
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// MovieDetailURL builds the movie detail page URL for a slug.
func MovieDetailURL(slug string) string {
	return fmt.Sprintf("%s/movies/%s", Base, slug)
}

// MoviePlayURL builds the movie play page URL for a slug.
func MoviePlayURL(slug string) string {
	return MovieDetailURL(slug) + "/play"
}

// ShowDetailURL builds the series detail page URL for a slug.
func ShowDetailURL(slug string) string {
	return fmt.Sprintf("%s/shows/%s", Base, slug)
}

// SeasonURL builds the URL for one season of a show. The site serves season
// one at the bare show URL (it redirects /season-1 there), so only later
// seasons carry an explicit season path segment.
func SeasonURL(showSlug string, season int) string {
	if season <= 1 {
		return ShowDetailURL(showSlug)
	}
	return fmt.Sprintf("%s/season-%d", ShowDetailURL(showSlug), season)
}

// EpisodeDetailURL builds the episode detail page URL.
func EpisodeDetailURL(showSlug string, season, episode int) string {
	return fmt.Sprintf("%s/season-%d/episode-%d", ShowDetailURL(showSlug), season, episode)
}

// EpisodePlayURL builds the episode play page URL.
func EpisodePlayURL(showSlug string, season, episode int) string {
	return EpisodeDetailURL(showSlug, season, episode) + "/play"
}

// HLSStreamURL builds the adaptive playlist URL for a media id.
func HLSStreamURL(mediaID string) string {
	return fmt.Sprintf("%s/media/%s/%s.m3u8", StreamHost, mediaID, mediaID)
}

// TrailerStreamURL builds the trailer playlist URL for a media id. Trailers
// nest an extra path segment on the same host.
func TrailerStreamURL(mediaID string) string {
	return fmt.Sprintf("%s/media/trailers/%s/%s.m3u8", StreamHost, mediaID, mediaID)
}

// PosterURL builds the asset URL for a movie poster.
func PosterURL(slug string) string {
	return fmt.Sprintf("%s/movies/%s/poster.jpg", AssetsBase, slug)
}

// SeriesPosterURL builds the asset URL for a series poster.
func SeriesPosterURL(slug string) string {
	return fmt.Sprintf("%s/shows/%s/poster.jpg", AssetsBase, slug)
}

// EpisodeThumbnailURL builds the asset URL for an episode thumbnail.
func EpisodeThumbnailURL(showSlug string, season, episode int) string {
	return fmt.Sprintf("%s/shows/%s/s%02de%02d.jpg", AssetsBase, showSlug, season, episode)
}

// CastPhotoURL builds the asset URL for a cast member photo.
func CastPhotoURL(personSlug string) string {
	return fmt.Sprintf("%s/cast/%s/photo.jpg", AssetsBase, personSlug)
}

// ExtractMovieSlug pulls the movie slug out of any movie URL.
func ExtractMovieSlug(rawURL string) (string, bool) {
	return firstGroup(movieSlugRe, rawURL)
}

// ExtractShowSlug pulls the show slug out of any show URL.
func ExtractShowSlug(rawURL string) (string, bool) {
	return firstGroup(showSlugRe, rawURL)
}

// ExtractSlug pulls a content slug out of a movie or show URL, whichever
// matches first.
func ExtractSlug(rawURL string) (string, bool) {
	if slug, ok := ExtractMovieSlug(rawURL); ok {
		return slug, true
	}
	return ExtractShowSlug(rawURL)
}

// ExtractEpisodeRef pulls (season, episode) out of an episode URL.
func ExtractEpisodeRef(rawURL string) (season, episode int, ok bool) {
	m := episodePathRe.FindStringSubmatch(rawURL)
	if m == nil {
		return 0, 0, false
	}
	fmt.Sscanf(m[1], "%d", &season)
	fmt.Sscanf(m[2], "%d", &episode)
	return season, episode, true
}

// ExtractMediaID pulls the numeric media id out of an HLS playlist URL.
func ExtractMediaID(hlsURL string) (string, bool) {
	return firstGroup(mediaIDRe, hlsURL)
}

// IsTrailerURL reports whether a stream URL points at the trailer tree.
func IsTrailerURL(streamURL string) bool {
	return trailerRe.MatchString(streamURL)
}

// Resolve resolves a possibly relative href against the site base.
func Resolve(ref string) string {
	base, err := url.Parse(Base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(refURL).String()
}

func firstGroup(re *regexp.Regexp, s string) (string, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}
