// Package models contains data structures for media content
package models

import (
	"fmt"
	"strings"
)

// MediaType represents the type of media content
type MediaType string

const (
	MediaTypeMovie   MediaType = "movie"
	MediaTypeSeries  MediaType = "series"
	MediaTypeEpisode MediaType = "episode"
)

// SortBy is a listing sort order understood by the site.
type SortBy string

const (
	SortByNewReleases SortBy = "new-releases"
	SortByMostViewed  SortBy = "most-viewed"
	SortByAlphabetic  SortBy = "alphabetic"
)

// Movie represents one movie as shown on a listing page, enriched with
// detail-page metadata when available.
type Movie struct {
	ID          int64
	Title       string
	TitleFa     string // localized (Farsi) title when the site provides one
	Slug        string
	URL         string
	PosterURL   string
	Description string
	Year        int
	Rating      float64
	Runtime     int // minutes
	Genres      []string
	Director    string
	Cast        string
	Source      string
}

// Series represents one TV series listing entry.
type Series struct {
	ID           int64
	Title        string
	TitleFa      string
	Slug         string
	URL          string
	PosterURL    string
	BackdropURL  string
	Description  string
	Year         int
	Rating       float64
	TotalSeasons int
	Genres       []string
	Source       string
}

// Episode represents a single episode of a series.
type Episode struct {
	SeriesID     int64
	SeriesTitle  string
	Season       int
	Number       int
	Title        string
	URL          string
	ThumbnailURL string
	Runtime      int // minutes, 0 when unknown
}

// MovieMetadata is the full record parsed from a detail page. Separate from
// Movie because a detail parse can fail as a whole while list cards survive.
type MovieMetadata struct {
	Title       string
	TitleFa     string
	Description string
	Year        int
	Runtime     int
	Rating      float64
	Genres      []string
	PosterURL   string
	Director    string
	Cast        string
	Writer      string
	Producer    string
	ViewCount   int64
	UploadDate  string
	VideoID     string // filled after extraction, empty until then
}

// SearchResult is one hit on a search results page. Cast/person hits are
// never emitted as SearchResults.
type SearchResult struct {
	Title        string
	Type         MediaType
	Slug         string
	ThumbnailURL string
	URL          string
}

// VideoURL is a resolved playable source.
type VideoURL struct {
	URL     string
	Quality string // "Auto" for adaptive HLS, "YouTube" for embed fallback
	Host    string
}

// IsHLS reports whether the resolved source is an adaptive HLS stream.
func (v VideoURL) IsHLS() bool {
	return strings.Contains(v.URL, ".m3u8")
}

// DisplayName returns a formatted display name with the release year.
func (m *Movie) DisplayName() string {
	if m.Year > 0 {
		return fmt.Sprintf("%s (%d)", m.Title, m.Year)
	}
	return m.Title
}

// DisplayName returns a formatted display name with the release year.
func (s *Series) DisplayName() string {
	if s.Year > 0 {
		return fmt.Sprintf("%s (%d)", s.Title, s.Year)
	}
	return s.Title
}

// RuntimeDisplay returns the runtime in human-readable form, or "" when unknown.
func (m *Movie) RuntimeDisplay() string {
	return runtimeDisplay(m.Runtime)
}

// RuntimeDisplay returns the runtime in human-readable form, or "" when unknown.
func (e *Episode) RuntimeDisplay() string {
	return runtimeDisplay(e.Runtime)
}

func runtimeDisplay(minutes int) string {
	if minutes <= 0 {
		return ""
	}
	hours := minutes / 60
	mins := minutes % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	return fmt.Sprintf("%dm", mins)
}

// GenresDisplay returns up to three genres as a comma-separated string.
func (m *Movie) GenresDisplay() string {
	if len(m.Genres) == 0 {
		return ""
	}
	maxGenres := 3
	if len(m.Genres) < maxGenres {
		maxGenres = len(m.Genres)
	}
	return strings.Join(m.Genres[:maxGenres], ", ")
}
