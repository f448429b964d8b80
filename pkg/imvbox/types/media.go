// Package types defines the public data types returned by the imvbox
// client, decoupled from the internal models.
package types

// MediaType discriminates the content kinds the site serves.
type MediaType string

const (
	MediaTypeMovie  MediaType = "movie"
	MediaTypeSeries MediaType = "series"
)

// SortBy is a listing sort order.
type SortBy string

const (
	SortByNewReleases SortBy = "new-releases"
	SortByMostViewed  SortBy = "most-viewed"
	SortByAlphabetic  SortBy = "alphabetic"
)

// Movie is one movie record.
type Movie struct {
	ID          int64
	Title       string
	TitleFa     string
	Slug        string
	URL         string
	PosterURL   string
	Description string
	Year        int
	Rating      float64
	Runtime     int
	Genres      []string
	Director    string
	Cast        string
}

// Series is one TV series record.
type Series struct {
	ID           int64
	Title        string
	TitleFa      string
	Slug         string
	URL          string
	PosterURL    string
	Year         int
	Rating       float64
	TotalSeasons int
}

// Episode is one episode of a series.
type Episode struct {
	SeriesID     int64
	SeriesTitle  string
	Season       int
	Number       int
	Title        string
	URL          string
	ThumbnailURL string
	Runtime      int
}

// SearchResult is one search hit.
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
	Quality string
	Host    string
}
