package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEmpty(t *testing.T) {
	got := Parse("")
	assert.Equal(t, []string{}, got.MovieTitles)
	assert.Equal(t, []string{}, got.PeopleNames)
	assert.True(t, got.Empty())
}

func TestParseSections(t *testing.T) {
	got := Parse("Movie Titles:\n1. Dune\n2. Arrival\n\nPeople:\nDenis Villeneuve")
	assert.Equal(t, []string{"Dune", "Arrival"}, got.MovieTitles)
	assert.Equal(t, []string{"Denis Villeneuve"}, got.PeopleNames)
}

func TestParseDedupesMoviesOnly(t *testing.T) {
	got := Parse("Movie Titles:\nDune\nArrival\nDune\n\nPeople:\nZendaya\nZendaya")
	assert.Equal(t, []string{"Dune", "Arrival"}, got.MovieTitles)
	assert.Equal(t, []string{"Zendaya", "Zendaya"}, got.PeopleNames)
}

func TestParseNoise(t *testing.T) {
	text := "**Movie Titles:**\n" +
		"1. **Blade Runner** (1982)\n" +
		"2. Alien (Director's Cut) (1979)\n" +
		"\n" +
		"### People:\n" +
		"- Ridley Scott (Director)\n" +
		"- Sigourney Weaver\n" +
		"\n" +
		"Movie Genres:\n" +
		"Science Fiction\n" +
		"Horror"

	got := Parse(text)
	assert.Equal(t, []string{"Blade Runner", "Alien (1979)"}, got.MovieTitles)
	assert.Equal(t, []string{"Ridley Scott", "Sigourney Weaver"}, got.PeopleNames)
	assert.Equal(t, []string{"Science Fiction", "Horror"}, got.Genres)
}

func TestParseQualifiedHeading(t *testing.T) {
	got := Parse("Movie Titles (Top 10):\nHeat\n\nPeople (Cast):\nAl Pacino")
	assert.Equal(t, []string{"Heat"}, got.MovieTitles)
	assert.Equal(t, []string{"Al Pacino"}, got.PeopleNames)
}

func TestParseFallbackSentence(t *testing.T) {
	got := Parse("Could not find any information with the provided query")
	assert.True(t, got.Empty())
}

func TestParseLaterSectionReplacesEarlier(t *testing.T) {
	got := Parse("Movie Titles:\nHeat\n\nMovie Titles:\nRonin")
	assert.Equal(t, []string{"Ronin"}, got.MovieTitles)
}

func TestParseStripsBulletDashes(t *testing.T) {
	got := Parse("Movie Titles:\n- Spider-Man\n- The Thing")
	assert.Equal(t, []string{"Spider-Man", "The Thing"}, got.MovieTitles)
}

func TestParseNormalizesUnicode(t *testing.T) {
	got := Parse("People:\nAme\u0301lie Nothomb")
	assert.Equal(t, []string{"Am\u00e9lie Nothomb"}, got.PeopleNames)
}
