package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parsatv/imvbox/internal/models"
)

const searchPage = `<html><body>
	<div class="search-results-mobile">
		<div class="card">
			<a href="/en/movies/the-salesman"><h5 class="card-title">The Salesman</h5></a>
			<img src="https://assets.imvbox.com/movies/the-salesman/poster.jpg">
		</div>
		<div class="card">
			<a href="/en/shows/shahrzad"><h5 class="card-title">Shahrzad</h5></a>
		</div>
		<div class="card">
			<a href="/en/cast/asghar-farhadi"><h5 class="card-title">Asghar Farhadi</h5></a>
		</div>
	</div>
	<div class="cover-item">
		<a href="/en/movies/the-salesman">The Salesman</a>
	</div>
	<div class="cover-item">
		<a href="/en/movies/a-separation">A Separation</a>
	</div>
</body></html>`

func TestParseSearchResults(t *testing.T) {
	t.Parallel()

	results := New().ParseSearchResults(mustDoc(t, searchPage))
	require.Len(t, results, 3)

	// The Salesman appears in both layouts but is emitted once, from the
	// card layout which was seen first.
	assert.Equal(t, "The Salesman", results[0].Title)
	assert.Equal(t, models.MediaTypeMovie, results[0].Type)
	assert.Equal(t, "the-salesman", results[0].Slug)
	assert.Equal(t, "https://www.imvbox.com/en/movies/the-salesman", results[0].URL)
	assert.Equal(t, "https://assets.imvbox.com/movies/the-salesman/poster.jpg", results[0].ThumbnailURL)

	assert.Equal(t, models.MediaTypeSeries, results[1].Type)
	assert.Equal(t, "shahrzad", results[1].Slug)

	// The cover-only hit still makes it in.
	assert.Equal(t, "a-separation", results[2].Slug)

	// The cast hit never does.
	for _, r := range results {
		assert.NotContains(t, r.URL, "/cast/")
	}
}

func TestParseSearchResults_Empty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, New().ParseSearchResults(mustDoc(t, `<html><body><p>No results</p></body></html>`)))
}

func TestExtractCSRFToken(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		html     string
		expected string
		ok       bool
	}{
		{
			name:     "meta tag",
			html:     `<head><meta name="csrf-token" content="tok-abc123"></head>`,
			expected: "tok-abc123",
			ok:       true,
		},
		{
			name:     "hidden form input fallback",
			html:     `<form><input type="hidden" name="_token" value="tok-form456"></form>`,
			expected: "tok-form456",
			ok:       true,
		},
		{
			name:     "meta wins over input",
			html:     `<head><meta name="csrf-token" content="tok-meta"></head><body><input name="_token" value="tok-form"></body>`,
			expected: "tok-meta",
			ok:       true,
		},
		{
			name: "absent",
			html: `<body></body>`,
			ok:   false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			token, ok := ExtractCSRFToken(mustDoc(t, tc.html))
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.expected, token)
		})
	}
}
