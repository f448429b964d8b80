package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const moviesListing = `<html><body>
	<div class="card">
		<a href="/en/movies/the-salesman">
			<picture><data-img src="/assets/movies/the-salesman.jpg"></data-img></picture>
		</a>
		<h5 class="card-title">The Salesman</h5>
		<h6 class="card-subtitle">فروشنده</h6>
		<span class="year">2016</span>
		<span class="rating">7.8</span>
	</div>
	<div class="card">
		<a href="/en/movies/trending">Trending</a>
	</div>
	<div class="card">
		<a href="/en/movies/a-separation">A Separation</a>
		<h5 class="card-title">A Separation</h5>
	</div>
	<div class="card">
		<a href="/en/movies/genre/drama">Drama</a>
	</div>
</body></html>`

func TestParseMovieCards(t *testing.T) {
	t.Parallel()

	cards := New().ParseMovieCards(mustDoc(t, moviesListing))
	require.Len(t, cards, 2)

	first := cards[0]
	assert.Equal(t, "The Salesman", first.Title)
	assert.Equal(t, "فروشنده", first.TitleFa)
	assert.Equal(t, "the-salesman", first.Slug)
	assert.Equal(t, "https://www.imvbox.com/en/movies/the-salesman", first.URL)
	assert.Equal(t, "https://www.imvbox.com/assets/movies/the-salesman.jpg", first.PosterURL)
	assert.Equal(t, 2016, first.Year)
	assert.Equal(t, 7.8, first.Rating)

	assert.Equal(t, "a-separation", cards[1].Slug)
}

func TestParseMovieCards_SkipsCategoryLinks(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `<html><body>
		<div class="card"><a href="/en/movies/subtitled">Subtitled</a></div>
		<div class="card"><a href="/en/movies?page=2">Next</a></div>
	</body></html>`)

	assert.Empty(t, New().ParseMovieCards(doc))
}

func TestParseSeriesCards(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `<html><body>
		<div class="card">
			<a href="/en/shows/shahrzad">Shahrzad</a>
			<h5 class="card-title">Shahrzad</h5>
			<span class="seasons-count">3 Seasons</span>
		</div>
	</body></html>`)

	cards := New().ParseSeriesCards(doc)
	require.Len(t, cards, 1)
	assert.Equal(t, "shahrzad", cards[0].Slug)
	assert.Equal(t, 3, cards[0].TotalSeasons)
	assert.Equal(t, "https://www.imvbox.com/en/shows/shahrzad", cards[0].URL)
}

func TestHasNextPage(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		html     string
		page     int
		expected bool
	}{
		{
			name:     "rel next pagination link",
			html:     `<a class="page-link" rel="next" href="/en/movies?page=2">›</a>`,
			page:     1,
			expected: true,
		},
		{
			name:     "numbered link to the following page",
			html:     `<a href="/en/movies?page=3">3</a>`,
			page:     2,
			expected: true,
		},
		{
			name:     "only earlier pages linked",
			html:     `<a href="/en/movies?page=2">2</a>`,
			page:     4,
			expected: false,
		},
		{
			name:     "no pagination at all",
			html:     `<div class="card"></div>`,
			page:     1,
			expected: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, HasNextPage(mustDoc(t, tc.html), tc.page))
		})
	}
}
