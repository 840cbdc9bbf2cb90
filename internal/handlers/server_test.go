package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"popcorn/internal/clients/metadata"
	"popcorn/internal/config"
	"popcorn/internal/core"
	"popcorn/internal/database"
	"popcorn/internal/utils"
)

const completionText = "Movie Titles:\n1. Dune\n2. Arrival\n\nPeople:\nDenis Villeneuve\n\nMovie Genres:\nScience Fiction"

func fakeUpstream(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	switch r.URL.Path {
	case "/chat/completions":
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{{"message": map[string]string{"content": completionText}}},
		})
	case "/search/movie":
		switch q.Get("query") {
		case "Dune":
			w.Write([]byte(`{"results":[{"id":438631,"title":"Dune"}]}`))
		case "Arrival":
			w.Write([]byte(`{"results":[{"id":329865,"title":"Arrival"}]}`))
		default:
			w.Write([]byte(`{"results":[]}`))
		}
	case "/search/person":
		w.Write([]byte(`{"results":[{"id":137427,"name":"Denis Villeneuve","gender":2}]}`))
	case "/trending/movie/week":
		w.Write([]byte(`{"page":1,"results":[{"id":438631,"title":"Dune"}],"total_pages":1,"total_results":1}`))
	case "/discover/movie":
		// echo the filter back so tests can inspect it
		w.Write([]byte(`{"page":1,"results":[{"id":1,"title":"` + r.URL.RawQuery + `"}]}`))
	case "/movie/438631":
		w.Write([]byte(`{"id":438631,"title":"Dune","poster_path":"/dune.jpg"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"status_code":34}`))
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	upstream := httptest.NewServer(http.HandlerFunc(fakeUpstream))
	t.Cleanup(upstream.Close)

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	cfg.TMDB.APIKey = "test"
	cfg.TMDB.BaseURL = upstream.URL
	cfg.TMDB.RequestsPerSecond = 0
	cfg.Completion.APIKey = "test"
	cfg.Completion.BaseURL = upstream.URL
	cfg.Completion.MaxAttempts = 1
	cfg.Search.Debounce = "5ms"
	cfg.Search.MaxQueryLength = 20
	cfg.App.RateLimitRPS = 0

	db, err := database.NewSQLite(filepath.Join(t.TempDir(), "popcorn.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	logger := utils.NewDiscardLogger()
	require.NoError(t, database.RunMigrations(db, logger))

	manager := core.NewManager(cfg, db, metadata.NewMemoryCache(100), logger)
	t.Cleanup(manager.Stop)

	srv := httptest.NewServer(NewServer(cfg, manager, logger).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, user, body string, out interface{}) int {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if user != "" {
		req.Header.Set("X-Forwarded-User", user)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type hitJSON struct {
	Origin string `json:"origin"`
	Hit    struct {
		ID int `json:"id"`
	} `json:"hit"`
}

func ids(hits []hitJSON) []int {
	out := make([]int, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.Hit.ID)
	}
	return out
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	var body map[string]string
	assert.Equal(t, http.StatusOK, doJSON(t, "GET", srv.URL+"/health", "", "", &body))
	assert.Equal(t, "ok", body["status"])
}

func TestOneShotSearch(t *testing.T) {
	srv := newTestServer(t)

	var res struct {
		Movies     []hitJSON `json:"movies"`
		People     []hitJSON `json:"people"`
		Disclaimer string    `json:"disclaimer"`
		Candidates struct {
			Genres []string `json:"genres"`
		} `json:"candidates"`
	}
	status := doJSON(t, "GET", srv.URL+"/api/v1/search?q=villeneuve", "", "", &res)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []int{438631, 329865}, ids(res.Movies))
	assert.Equal(t, []int{137427}, ids(res.People))
	assert.NotEmpty(t, res.Disclaimer)

	assert.Equal(t, http.StatusBadRequest, doJSON(t, "GET", srv.URL+"/api/v1/search?q=%20", "", "", nil))
	assert.Equal(t, http.StatusBadRequest, doJSON(t, "GET", srv.URL+"/api/v1/search?q="+strings.Repeat("a", 21), "", "", nil))
}

func TestCatalogueRoutes(t *testing.T) {
	srv := newTestServer(t)

	var page struct {
		Results []struct {
			ID    int    `json:"id"`
			Title string `json:"title"`
		} `json:"results"`
	}
	require.Equal(t, http.StatusOK, doJSON(t, "GET", srv.URL+"/api/v1/movies/trending", "", "", &page))
	assert.Equal(t, 438631, page.Results[0].ID)

	require.Equal(t, http.StatusOK, doJSON(t, "GET", srv.URL+"/api/v1/discover?genres=28,12&country=us&year_from=1990&year_to=1999", "", "", &page))
	filter := page.Results[0].Title
	assert.Contains(t, filter, "with_genres=28%2C12")
	assert.Contains(t, filter, "with_origin_country=US")
	assert.Contains(t, filter, "primary_release_date.gte=1990-01-01")

	assert.Equal(t, http.StatusBadRequest, doJSON(t, "GET", srv.URL+"/api/v1/discover?genres=abc", "", "", nil))
	assert.Equal(t, http.StatusNotFound, doJSON(t, "GET", srv.URL+"/api/v1/movies/5", "", "", nil))
	assert.Equal(t, http.StatusNotFound, doJSON(t, "GET", srv.URL+"/api/v1/nowhere", "", "", nil))

	var countries []metadata.Country
	require.Equal(t, http.StatusOK, doJSON(t, "GET", srv.URL+"/api/v1/countries", "", "", &countries))
	assert.Len(t, countries, len(metadata.FilterCountries))
}

func TestPolledSessionLifecycle(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/api/v1/search/sessions"

	var created struct {
		ID string `json:"id"`
	}
	require.Equal(t, http.StatusCreated, doJSON(t, "POST", base, "", "", &created))
	require.NotEmpty(t, created.ID)

	require.Equal(t, http.StatusAccepted, doJSON(t, "POST", base+"/"+created.ID+"/input", "", `{"text":"villeneuve"}`, nil))

	type snapshotBody struct {
		Snapshot struct {
			Phase  string    `json:"phase"`
			Movies []hitJSON `json:"movies"`
		} `json:"snapshot"`
	}
	require.Eventually(t, func() bool {
		var body snapshotBody
		doJSON(t, "GET", base+"/"+created.ID, "", "", &body)
		return body.Snapshot.Phase == "settled" && len(body.Snapshot.Movies) == 2
	}, 3*time.Second, 10*time.Millisecond)

	var cleared snapshotBody
	require.Equal(t, http.StatusOK, doJSON(t, "POST", base+"/"+created.ID+"/clear", "", "", &cleared))
	assert.Equal(t, "idle", cleared.Snapshot.Phase)

	assert.Equal(t, http.StatusNoContent, doJSON(t, "DELETE", base+"/"+created.ID, "", "", nil))
	assert.Equal(t, http.StatusNotFound, doJSON(t, "GET", base+"/"+created.ID, "", "", nil))
}

func TestSearchSocket(t *testing.T) {
	srv := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/search/ws"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	}
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "session", hello.Type)
	assert.NotEmpty(t, hello.ID)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "input", "text": "villeneuve"}))

	type frame struct {
		Type   string    `json:"type"`
		Phase  string    `json:"phase"`
		Movies []hitJSON `json:"movies"`
		People []hitJSON `json:"people"`
	}
	var last frame
	for last.Phase != "settled" {
		last = frame{}
		require.NoError(t, conn.ReadJSON(&last))
		require.Equal(t, "snapshot", last.Type)
	}
	assert.Equal(t, []int{438631, 329865}, ids(last.Movies))
	assert.Equal(t, []int{137427}, ids(last.People))

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "clear"}))
	var cleared frame
	require.NoError(t, conn.ReadJSON(&cleared))
	assert.Equal(t, "idle", cleared.Phase)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "bogus"}))
	var bad struct {
		Type  string `json:"type"`
		Error string `json:"error"`
	}
	require.NoError(t, conn.ReadJSON(&bad))
	assert.Equal(t, "error", bad.Type)
}

func TestUserLists(t *testing.T) {
	srv := newTestServer(t)
	base := srv.URL + "/api/v1/me"

	assert.Equal(t, http.StatusUnauthorized, doJSON(t, "GET", base, "", "", nil))

	var item struct {
		MovieID int    `json:"movie_id"`
		Title   string `json:"title"`
	}
	require.Equal(t, http.StatusCreated, doJSON(t, "POST", base+"/favorites", "alice", `{"movie_id":438631}`, &item))
	assert.Equal(t, "Dune", item.Title)

	assert.Equal(t, http.StatusConflict, doJSON(t, "POST", base+"/favorites", "alice", `{"movie_id":438631}`, nil))
	assert.Equal(t, http.StatusNotFound, doJSON(t, "POST", base+"/ratings", "alice", `{"movie_id":1}`, nil))
	assert.Equal(t, http.StatusBadRequest, doJSON(t, "POST", base+"/watchlist", "alice", `{"movie_id":0}`, nil))

	var items []struct {
		MovieID int `json:"movie_id"`
	}
	require.Equal(t, http.StatusOK, doJSON(t, "GET", base+"/favorites", "alice", "", &items))
	require.Len(t, items, 1)

	var summary struct {
		User  string         `json:"user"`
		Lists map[string]int `json:"lists"`
	}
	require.Equal(t, http.StatusOK, doJSON(t, "GET", base, "alice", "", &summary))
	assert.Equal(t, 1, summary.Lists["favorites"])

	assert.Equal(t, http.StatusNoContent, doJSON(t, "DELETE", base+"/favorites/438631", "alice", "", nil))
	assert.Equal(t, http.StatusNotFound, doJSON(t, "DELETE", base+"/favorites/438631", "alice", "", nil))
}

func TestRateLimitPerClient(t *testing.T) {
	limiter := newIPRateLimiter(1, 2)
	assert.True(t, limiter.allow("10.0.0.1"))
	assert.True(t, limiter.allow("10.0.0.1"))
	assert.False(t, limiter.allow("10.0.0.1"))
	assert.True(t, limiter.allow("10.0.0.2"))
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.0.2.1:5555"
	assert.Equal(t, "192.0.2.1", clientIP(r, false))

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "192.0.2.1", clientIP(r, false))
	assert.Equal(t, "203.0.113.9", clientIP(r, true))

	r.Header.Del("X-Forwarded-For")
	r.Header.Set("X-Real-IP", "198.51.100.4")
	assert.Equal(t, "198.51.100.4", clientIP(r, true))
}

func TestRateLimitIgnoresForwardedForByDefault(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	send := func(h http.Handler, xff string) int {
		r := httptest.NewRequest("GET", "/api/v1/movies/popular", nil)
		r.RemoteAddr = "192.0.2.1:5555"
		r.Header.Set("X-Forwarded-For", xff)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w.Code
	}

	direct := rateLimitMiddleware(1, 1, false, ok)
	assert.Equal(t, http.StatusOK, send(direct, "203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, send(direct, "203.0.113.2"))

	proxied := rateLimitMiddleware(1, 1, true, ok)
	assert.Equal(t, http.StatusOK, send(proxied, "203.0.113.1"))
	assert.Equal(t, http.StatusOK, send(proxied, "203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, send(proxied, "203.0.113.2"))
}
