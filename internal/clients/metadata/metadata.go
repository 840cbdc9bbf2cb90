package metadata

import "errors"

var (
	ErrNotConfigured = errors.New("tmdb api key not configured")
	ErrNotFound      = errors.New("not found on tmdb")
)

// SearchHit is one entry of a TMDB result list. Movie and person results share
// the type; person results carry Gender, movie results never do.
type SearchHit struct {
	ID                 int        `json:"id"`
	MediaType          string     `json:"media_type,omitempty"`
	Title              string     `json:"title,omitempty"`
	OriginalTitle      string     `json:"original_title,omitempty"`
	Name               string     `json:"name,omitempty"`
	Overview           string     `json:"overview,omitempty"`
	ReleaseDate        string     `json:"release_date,omitempty"`
	PosterPath         string     `json:"poster_path,omitempty"`
	BackdropPath       string     `json:"backdrop_path,omitempty"`
	ProfilePath        string     `json:"profile_path,omitempty"`
	VoteAverage        float64    `json:"vote_average,omitempty"`
	VoteCount          int        `json:"vote_count,omitempty"`
	Popularity         float64    `json:"popularity,omitempty"`
	GenreIDs           []int      `json:"genre_ids,omitempty"`
	Gender             *int       `json:"gender,omitempty"`
	KnownForDepartment string     `json:"known_for_department,omitempty"`
	Adult              bool       `json:"adult,omitempty"`
	KnownFor           []KnownFor `json:"known_for,omitempty"`
}

// KnownFor is the short credit list TMDB attaches to person search results.
type KnownFor struct {
	ID         int    `json:"id"`
	MediaType  string `json:"media_type,omitempty"`
	Title      string `json:"title,omitempty"`
	Name       string `json:"name,omitempty"`
	PosterPath string `json:"poster_path,omitempty"`
}

func (h SearchHit) DisplayName() string {
	if h.Title != "" {
		return h.Title
	}
	return h.Name
}

// Page is TMDB's paginated list envelope.
type Page[T any] struct {
	Page         int `json:"page"`
	Results      []T `json:"results"`
	TotalPages   int `json:"total_pages"`
	TotalResults int `json:"total_results"`
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Country struct {
	ISO  string `json:"iso_3166_1"`
	Name string `json:"name"`
}

type CollectionRef struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	PosterPath   string `json:"poster_path,omitempty"`
	BackdropPath string `json:"backdrop_path,omitempty"`
}

type Movie struct {
	ID                  int            `json:"id"`
	IMDbID              string         `json:"imdb_id,omitempty"`
	Title               string         `json:"title"`
	OriginalTitle       string         `json:"original_title,omitempty"`
	OriginalLanguage    string         `json:"original_language,omitempty"`
	Tagline             string         `json:"tagline,omitempty"`
	Overview            string         `json:"overview,omitempty"`
	ReleaseDate         string         `json:"release_date,omitempty"`
	Runtime             int            `json:"runtime,omitempty"`
	Status              string         `json:"status,omitempty"`
	Budget              int64          `json:"budget,omitempty"`
	Revenue             int64          `json:"revenue,omitempty"`
	Homepage            string         `json:"homepage,omitempty"`
	VoteAverage         float64        `json:"vote_average"`
	VoteCount           int            `json:"vote_count"`
	Genres              []Genre        `json:"genres,omitempty"`
	PosterPath          string         `json:"poster_path,omitempty"`
	BackdropPath        string         `json:"backdrop_path,omitempty"`
	BelongsToCollection *CollectionRef `json:"belongs_to_collection,omitempty"`
	ProductionCountries []Country      `json:"production_countries,omitempty"`
}

type CastMember struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character,omitempty"`
	ProfilePath string `json:"profile_path,omitempty"`
	Gender      int    `json:"gender"`
	Order       int    `json:"order"`
}

type CrewMember struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Job         string `json:"job,omitempty"`
	Department  string `json:"department,omitempty"`
	ProfilePath string `json:"profile_path,omitempty"`
}

type Credits struct {
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

type ReviewAuthor struct {
	Name       string   `json:"name,omitempty"`
	Username   string   `json:"username,omitempty"`
	AvatarPath string   `json:"avatar_path,omitempty"`
	Rating     *float64 `json:"rating,omitempty"`
}

type Review struct {
	ID            string       `json:"id"`
	Author        string       `json:"author"`
	AuthorDetails ReviewAuthor `json:"author_details"`
	Content       string       `json:"content"`
	Excerpt       string       `json:"excerpt,omitempty"`
	CreatedAt     string       `json:"created_at,omitempty"`
	URL           string       `json:"url,omitempty"`
}

type Keyword struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Video struct {
	ID          string `json:"id"`
	Key         string `json:"key"`
	Name        string `json:"name"`
	Site        string `json:"site"`
	Type        string `json:"type"`
	Official    bool   `json:"official"`
	PublishedAt string `json:"published_at,omitempty"`
}

type Image struct {
	FilePath    string  `json:"file_path"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio float64 `json:"aspect_ratio"`
	VoteAverage float64 `json:"vote_average"`
	Language    string  `json:"iso_639_1,omitempty"`
}

type Images struct {
	ID        int     `json:"id"`
	Backdrops []Image `json:"backdrops,omitempty"`
	Posters   []Image `json:"posters,omitempty"`
	Logos     []Image `json:"logos,omitempty"`
	Profiles  []Image `json:"profiles,omitempty"`
}

type Person struct {
	ID                 int      `json:"id"`
	IMDbID             string   `json:"imdb_id,omitempty"`
	Name               string   `json:"name"`
	AlsoKnownAs        []string `json:"also_known_as,omitempty"`
	Biography          string   `json:"biography,omitempty"`
	Birthday           string   `json:"birthday,omitempty"`
	Deathday           string   `json:"deathday,omitempty"`
	PlaceOfBirth       string   `json:"place_of_birth,omitempty"`
	Gender             int      `json:"gender"`
	KnownForDepartment string   `json:"known_for_department,omitempty"`
	ProfilePath        string   `json:"profile_path,omitempty"`
	Homepage           string   `json:"homepage,omitempty"`
	Popularity         float64  `json:"popularity,omitempty"`
}

type ExternalIDs struct {
	IMDbID      string `json:"imdb_id,omitempty"`
	WikidataID  string `json:"wikidata_id,omitempty"`
	FacebookID  string `json:"facebook_id,omitempty"`
	InstagramID string `json:"instagram_id,omitempty"`
	TwitterID   string `json:"twitter_id,omitempty"`
	TikTokID    string `json:"tiktok_id,omitempty"`
	YouTubeID   string `json:"youtube_id,omitempty"`
}

type CreditEntry struct {
	ID           int     `json:"id"`
	MediaType    string  `json:"media_type,omitempty"`
	Title        string  `json:"title,omitempty"`
	Name         string  `json:"name,omitempty"`
	Character    string  `json:"character,omitempty"`
	Job          string  `json:"job,omitempty"`
	Department   string  `json:"department,omitempty"`
	ReleaseDate  string  `json:"release_date,omitempty"`
	FirstAirDate string  `json:"first_air_date,omitempty"`
	PosterPath   string  `json:"poster_path,omitempty"`
	VoteAverage  float64 `json:"vote_average,omitempty"`
	Popularity   float64 `json:"popularity,omitempty"`
}

type CombinedCredits struct {
	Cast []CreditEntry `json:"cast"`
	Crew []CreditEntry `json:"crew"`
}

type Collection struct {
	ID           int         `json:"id"`
	Name         string      `json:"name"`
	Overview     string      `json:"overview,omitempty"`
	PosterPath   string      `json:"poster_path,omitempty"`
	BackdropPath string      `json:"backdrop_path,omitempty"`
	Parts        []SearchHit `json:"parts"`
}

// FilterCountries are the origin countries offered by the discovery filter.
var FilterCountries = []Country{
	{ISO: "AU", Name: "Australia"},
	{ISO: "CA", Name: "Canada"},
	{ISO: "FR", Name: "France"},
	{ISO: "DE", Name: "Germany"},
	{ISO: "IT", Name: "Italy"},
	{ISO: "JP", Name: "Japan"},
	{ISO: "NZ", Name: "New Zealand"},
	{ISO: "GB", Name: "United Kingdom"},
	{ISO: "US", Name: "United States"},
}
