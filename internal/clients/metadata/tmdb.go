package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"popcorn/internal/metrics"
	"popcorn/internal/retry"
	"popcorn/internal/utils"
)

const (
	defaultBaseURL  = "https://api.themoviedb.org/3"
	defaultLanguage = "en-US"
	maxBodyBytes    = 4 << 20
	reviewExcerpt   = 400
)

type TMDBConfig struct {
	APIKey   string
	BaseURL  string
	Language string
	Timeout  time.Duration
	// RequestsPerSecond paces outgoing calls, 0 disables pacing.
	RequestsPerSecond float64
	CacheTTL          time.Duration
	Cache             Cache
	Retry             retry.Config
	HTTPClient        *http.Client
}

type TMDBClient struct {
	apiKey     string
	baseURL    string
	language   string
	cacheTTL   time.Duration
	cache      Cache
	limiter    *rate.Limiter
	retry      retry.Config
	httpClient *http.Client
}

func NewTMDBClient(cfg TMDBConfig) *TMDBClient {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	language := cfg.Language
	if language == "" {
		language = defaultLanguage
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 6 * time.Hour
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), int(cfg.RequestsPerSecond)+1)
	}
	retryCfg := cfg.Retry
	if retryCfg.MaxAttempts == 0 {
		retryCfg = retry.DefaultConfig()
	}

	return &TMDBClient{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   language,
		cacheTTL:   cacheTTL,
		cache:      cfg.Cache,
		limiter:    limiter,
		retry:      retryCfg,
		httpClient: httpClient,
	}
}

func (t *TMDBClient) Enabled() bool {
	return t.apiKey != ""
}

type request struct {
	endpoint string // metrics label
	path     string
	params   url.Values
	retry    bool
}

// getJSON serves path from the cache when possible, otherwise fetches it and
// caches the raw body on success.
func (t *TMDBClient) getJSON(ctx context.Context, req request, out interface{}) error {
	if !t.Enabled() {
		return ErrNotConfigured
	}

	params := url.Values{}
	for k, v := range req.params {
		params[k] = v
	}
	if params.Get("language") == "" {
		params.Set("language", t.language)
	}
	cacheKey := req.path + "?" + params.Encode()

	if t.cache != nil {
		if data, ok, err := t.cache.Get(ctx, cacheKey); err == nil && ok {
			if err := json.Unmarshal(data, out); err == nil {
				metrics.CacheHitsTotal.Inc()
				return nil
			}
		}
		metrics.CacheMissesTotal.Inc()
	}

	var body []byte
	fetch := func() error {
		var err error
		body, err = t.fetch(ctx, req.endpoint, req.path, params)
		return err
	}

	var err error
	if req.retry {
		err = retry.Do(ctx, t.retry, fetch)
	} else {
		err = fetch()
	}
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode TMDB %s response: %w", req.endpoint, err)
	}

	if t.cache != nil {
		// cache write failures do not fail the request
		_ = t.cache.Set(ctx, cacheKey, body, t.cacheTTL)
	}
	return nil
}

func (t *TMDBClient) fetch(ctx context.Context, endpoint, path string, params url.Values) ([]byte, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	bearer := strings.HasPrefix(t.apiKey, "eyJ")
	if !bearer {
		query.Set("api_key", t.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build TMDB request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if bearer {
		// v4 read access tokens are JWTs
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	start := time.Now()
	resp, err := t.httpClient.Do(req)
	metrics.TMDBRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.TMDBRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("failed to query TMDB %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	metrics.TMDBRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%s %s: %w", endpoint, path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &retry.StatusError{Service: "tmdb", StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read TMDB %s response: %w", endpoint, err)
	}
	return body, nil
}

// Ping checks that the API key is accepted.
func (t *TMDBClient) Ping(ctx context.Context) error {
	var out struct {
		Images struct {
			SecureBaseURL string `json:"secure_base_url"`
		} `json:"images"`
	}
	return t.getJSON(ctx, request{endpoint: "configuration", path: "/configuration"}, &out)
}

// SearchMovie runs a title lookup and returns the first result page.
// Lookups are not retried; callers treat a failure as no hit.
func (t *TMDBClient) SearchMovie(ctx context.Context, title string) ([]SearchHit, error) {
	var page Page[SearchHit]
	err := t.getJSON(ctx, request{
		endpoint: "search_movie",
		path:     "/search/movie",
		params:   url.Values{"query": {title}, "page": {"1"}, "include_adult": {"false"}},
	}, &page)
	if err != nil {
		return nil, err
	}
	return page.Results, nil
}

// SearchPerson runs a person lookup and returns the first result page.
func (t *TMDBClient) SearchPerson(ctx context.Context, name string) ([]SearchHit, error) {
	var page Page[SearchHit]
	err := t.getJSON(ctx, request{
		endpoint: "search_person",
		path:     "/search/person",
		params:   url.Values{"query": {name}, "page": {"1"}, "include_adult": {"false"}},
	}, &page)
	if err != nil {
		return nil, err
	}
	return page.Results, nil
}

func (t *TMDBClient) Popular(ctx context.Context, page int) (*Page[SearchHit], error) {
	params := url.Values{
		"sort_by":       {"popularity.desc"},
		"include_adult": {"false"},
		"include_video": {"false"},
		"page":          {strconv.Itoa(ClampPage(page))},
	}
	return t.hitPage(ctx, "popular", "/discover/movie", params)
}

func (t *TMDBClient) Trending(ctx context.Context, page int) (*Page[SearchHit], error) {
	return t.hitPage(ctx, "trending", "/trending/movie/week", url.Values{"page": {strconv.Itoa(ClampPage(page))}})
}

func (t *TMDBClient) Upcoming(ctx context.Context, page int) (*Page[SearchHit], error) {
	return t.hitPage(ctx, "upcoming", "/movie/upcoming", url.Values{"page": {strconv.Itoa(ClampPage(page))}})
}

func (t *TMDBClient) Discover(ctx context.Context, filter DiscoverFilter) (*Page[SearchHit], error) {
	return t.hitPage(ctx, "discover", "/discover/movie", filter.Params())
}

func (t *TMDBClient) Genres(ctx context.Context) ([]Genre, error) {
	var out struct {
		Genres []Genre `json:"genres"`
	}
	if err := t.getJSON(ctx, request{endpoint: "genres", path: "/genre/movie/list", retry: true}, &out); err != nil {
		return nil, err
	}
	return out.Genres, nil
}

func (t *TMDBClient) Movie(ctx context.Context, id int) (*Movie, error) {
	var out Movie
	if err := t.getJSON(ctx, request{endpoint: "movie", path: fmt.Sprintf("/movie/%d", id), retry: true}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *TMDBClient) MovieCredits(ctx context.Context, id int) (*Credits, error) {
	var out Credits
	if err := t.getJSON(ctx, request{endpoint: "movie_credits", path: fmt.Sprintf("/movie/%d/credits", id), retry: true}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MovieReviews returns a review page with plain-text excerpts filled in.
func (t *TMDBClient) MovieReviews(ctx context.Context, id, page int) (*Page[Review], error) {
	var out Page[Review]
	err := t.getJSON(ctx, request{
		endpoint: "movie_reviews",
		path:     fmt.Sprintf("/movie/%d/reviews", id),
		params:   url.Values{"page": {strconv.Itoa(ClampPage(page))}},
		retry:    true,
	}, &out)
	if err != nil {
		return nil, err
	}
	for i := range out.Results {
		out.Results[i].Excerpt = utils.Excerpt(utils.HTMLToText(out.Results[i].Content), reviewExcerpt)
	}
	return &out, nil
}

func (t *TMDBClient) MovieKeywords(ctx context.Context, id int) ([]Keyword, error) {
	var out struct {
		Keywords []Keyword `json:"keywords"`
	}
	if err := t.getJSON(ctx, request{endpoint: "movie_keywords", path: fmt.Sprintf("/movie/%d/keywords", id), retry: true}, &out); err != nil {
		return nil, err
	}
	return out.Keywords, nil
}

func (t *TMDBClient) Recommendations(ctx context.Context, id, page int) (*Page[SearchHit], error) {
	return t.hitPage(ctx, "recommendations", fmt.Sprintf("/movie/%d/recommendations", id), url.Values{"page": {strconv.Itoa(ClampPage(page))}})
}

func (t *TMDBClient) Similar(ctx context.Context, id, page int) (*Page[SearchHit], error) {
	return t.hitPage(ctx, "similar", fmt.Sprintf("/movie/%d/similar", id), url.Values{"page": {strconv.Itoa(ClampPage(page))}})
}

func (t *TMDBClient) Videos(ctx context.Context, id int) ([]Video, error) {
	var out struct {
		Results []Video `json:"results"`
	}
	if err := t.getJSON(ctx, request{endpoint: "videos", path: fmt.Sprintf("/movie/%d/videos", id), retry: true}, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

func (t *TMDBClient) MovieImages(ctx context.Context, id int) (*Images, error) {
	var out Images
	// images are mostly untagged; without this TMDB only returns the ones
	// matching the request language
	params := url.Values{"include_image_language": {"en,null"}}
	if err := t.getJSON(ctx, request{endpoint: "movie_images", path: fmt.Sprintf("/movie/%d/images", id), params: params, retry: true}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *TMDBClient) Person(ctx context.Context, id int) (*Person, error) {
	var out Person
	if err := t.getJSON(ctx, request{endpoint: "person", path: fmt.Sprintf("/person/%d", id), retry: true}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *TMDBClient) PersonExternalIDs(ctx context.Context, id int) (*ExternalIDs, error) {
	var out ExternalIDs
	if err := t.getJSON(ctx, request{endpoint: "person_external_ids", path: fmt.Sprintf("/person/%d/external_ids", id), retry: true}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *TMDBClient) PersonCombinedCredits(ctx context.Context, id int) (*CombinedCredits, error) {
	var out CombinedCredits
	if err := t.getJSON(ctx, request{endpoint: "person_credits", path: fmt.Sprintf("/person/%d/combined_credits", id), retry: true}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *TMDBClient) PersonImages(ctx context.Context, id int) (*Images, error) {
	var out Images
	if err := t.getJSON(ctx, request{endpoint: "person_images", path: fmt.Sprintf("/person/%d/images", id), retry: true}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *TMDBClient) Keyword(ctx context.Context, id int) (*Keyword, error) {
	var out Keyword
	if err := t.getJSON(ctx, request{endpoint: "keyword", path: fmt.Sprintf("/keyword/%d", id), retry: true}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *TMDBClient) MoviesByKeyword(ctx context.Context, id, page int) (*Page[SearchHit], error) {
	return t.Discover(ctx, DiscoverFilter{KeywordIDs: []int{id}, Page: page})
}

func (t *TMDBClient) Collection(ctx context.Context, id int) (*Collection, error) {
	var out Collection
	if err := t.getJSON(ctx, request{endpoint: "collection", path: fmt.Sprintf("/collection/%d", id), retry: true}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (t *TMDBClient) hitPage(ctx context.Context, endpoint, path string, params url.Values) (*Page[SearchHit], error) {
	var out Page[SearchHit]
	if err := t.getJSON(ctx, request{endpoint: endpoint, path: path, params: params, retry: true}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// IsNotFound reports whether err means the TMDB resource does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
