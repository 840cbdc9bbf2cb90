package search

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	movieTitlesKey = "movie_titles"
	peopleKey      = "people"
	genresKey      = "movie_genres"
)

var (
	whitespaceRun    = regexp.MustCompile(`\s+`)
	numberedPrefix   = regexp.MustCompile(`^\s*\d+\.\s*`)
	dashPrefix       = regexp.MustCompile(`^\s*-\s*`)
	parentheticalRun = regexp.MustCompile(`\s*\([^)]*\)`)
	titleNoise       = strings.NewReplacer("(", "", ")", "", "-", "", "*", "", "#", "")
)

// ParsedCandidates holds the names extracted from one completion answer.
// Genres is informational and is never looked up.
type ParsedCandidates struct {
	MovieTitles []string `json:"movie_titles"`
	PeopleNames []string `json:"people_names"`
	Genres      []string `json:"genres,omitempty"`
}

// Empty reports whether there is nothing to look up.
func (p ParsedCandidates) Empty() bool {
	return len(p.MovieTitles) == 0 && len(p.PeopleNames) == 0
}

// Parse turns the sectioned completion text into candidate lists. Sections are
// separated by blank lines and introduced by a "Label:" heading. Movie titles
// are de-duplicated, people names are not. Unparseable text yields empty lists.
func Parse(text string) ParsedCandidates {
	text = strings.TrimSpace(strings.ReplaceAll(text, "- ", ""))
	if text == "" {
		return ParsedCandidates{MovieTitles: []string{}, PeopleNames: []string{}}
	}

	sections := make(map[string][]string)
	for _, section := range strings.Split(text, "\n\n") {
		title, body := "", section
		if i := strings.Index(section, ":"); i >= 0 {
			title, body = section[:i], section[i+1:]
		}
		sections[normalizeTitle(title)] = cleanLines(body)
	}

	return ParsedCandidates{
		MovieTitles: dedupe(lookupSection(sections, movieTitlesKey)),
		PeopleNames: append([]string{}, lookupSection(sections, peopleKey)...),
		Genres:      lookupSection(sections, genresKey),
	}
}

func normalizeTitle(title string) string {
	title = whitespaceRun.ReplaceAllString(strings.TrimSpace(title), "_")
	title = titleNoise.Replace(strings.ToLower(title))
	return strings.Trim(title, "_")
}

// lookupSection prefers the exact key and otherwise takes a qualified heading
// such as "Movie Titles (Top 10)", which normalizes to "movie_titles_top_10".
func lookupSection(sections map[string][]string, key string) []string {
	if lines, ok := sections[key]; ok {
		return lines
	}
	var match string
	for name := range sections {
		if strings.HasPrefix(name, key+"_") && (match == "" || name < match) {
			match = name
		}
	}
	if match == "" {
		return []string{}
	}
	return sections[match]
}

func cleanLines(body string) []string {
	lines := []string{}
	for _, line := range strings.Split(body, "\n") {
		line = numberedPrefix.ReplaceAllString(line, "")
		line = dashPrefix.ReplaceAllString(line, "")
		line = strings.ReplaceAll(line, "*", "")
		if loc := parentheticalRun.FindStringIndex(line); loc != nil {
			line = line[:loc[0]] + line[loc[1]:]
		}
		line = norm.NFC.String(strings.TrimSpace(line))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
