package metadata

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// MaxPage is the highest page TMDB serves for list endpoints.
const MaxPage = 500

// DiscoverFilter maps the discovery filter onto discover/movie parameters.
// An exact Year wins over a range; a range is applied only when both ends
// are set.
type DiscoverFilter struct {
	GenreIDs   []int
	KeywordIDs []int
	Country    string
	Year       int
	YearFrom   int
	YearTo     int
	SortBy     string
	Page       int
}

func (f DiscoverFilter) Params() url.Values {
	params := url.Values{}
	params.Set("page", strconv.Itoa(ClampPage(f.Page)))
	params.Set("include_adult", "false")

	if len(f.GenreIDs) > 0 {
		params.Set("with_genres", joinInts(f.GenreIDs))
	}
	if len(f.KeywordIDs) > 0 {
		params.Set("with_keywords", joinInts(f.KeywordIDs))
	}
	if country := strings.ToUpper(strings.TrimSpace(f.Country)); country != "" {
		params.Set("with_origin_country", country)
	}

	switch {
	case f.Year > 0:
		params.Set("year", strconv.Itoa(f.Year))
	case f.YearFrom > 0 && f.YearTo > 0:
		params.Set("primary_release_date.gte", fmt.Sprintf("%04d-01-01", f.YearFrom))
		params.Set("primary_release_date.lte", fmt.Sprintf("%04d-12-31", f.YearTo))
	}

	if f.SortBy != "" {
		params.Set("sort_by", f.SortBy)
	}
	return params
}

// ClampPage keeps page inside 1..MaxPage.
func ClampPage(page int) int {
	if page < 1 {
		return 1
	}
	if page > MaxPage {
		return MaxPage
	}
	return page
}

func joinInts(values []int) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, strconv.Itoa(v))
	}
	return strings.Join(parts, ",")
}
