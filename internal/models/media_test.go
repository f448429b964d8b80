package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayName(t *testing.T) {
	t.Parallel()

	m := Movie{Title: "The Salesman", Year: 2016}
	assert.Equal(t, "The Salesman (2016)", m.DisplayName())

	m.Year = 0
	assert.Equal(t, "The Salesman", m.DisplayName())

	s := Series{Title: "Shahrzad", Year: 2015}
	assert.Equal(t, "Shahrzad (2015)", s.DisplayName())
}

func TestRuntimeDisplay(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		minutes  int
		expected string
	}{
		{"under an hour", 52, "52m"},
		{"over an hour", 124, "2h 4m"},
		{"exactly an hour", 60, "1h 0m"},
		{"unknown", 0, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := Movie{Runtime: tc.minutes}
			assert.Equal(t, tc.expected, m.RuntimeDisplay())
		})
	}
}

func TestGenresDisplay(t *testing.T) {
	t.Parallel()

	m := Movie{Genres: []string{"Drama", "Thriller", "Mystery", "Crime"}}
	assert.Equal(t, "Drama, Thriller, Mystery", m.GenresDisplay())

	m.Genres = nil
	assert.Equal(t, "", m.GenresDisplay())
}

func TestVideoURLIsHLS(t *testing.T) {
	t.Parallel()

	assert.True(t, VideoURL{URL: "https://stream.imvbox.com/media/1/1.m3u8"}.IsHLS())
	assert.False(t, VideoURL{URL: "https://www.youtube.com/watch?v=abc12345678"}.IsHLS())
}
