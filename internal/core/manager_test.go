package core

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"popcorn/internal/clients/metadata"
	"popcorn/internal/config"
	"popcorn/internal/database"
	"popcorn/internal/database/models"
	"popcorn/internal/search"
	"popcorn/internal/utils"
)

const answer = "Movie Titles:\n1. Dune\n2. Madonna\n\nPeople:\n- Denis Villeneuve"

func fakeTMDB(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch r.URL.Path {
		case "/search/movie":
			switch q.Get("query") {
			case "Dune":
				w.Write([]byte(`{"results":[{"id":438631,"title":"Dune"}]}`))
			case "Madonna":
				w.Write([]byte(`{"results":[{"id":3125,"name":"Madonna","gender":1}]}`))
			default:
				w.Write([]byte(`{"results":[]}`))
			}
		case "/search/person":
			w.Write([]byte(`{"results":[{"id":137427,"name":"Denis Villeneuve","gender":2}]}`))
		case "/movie/438631":
			w.Write([]byte(`{"id":438631,"title":"Dune","poster_path":"/dune.jpg"}`))
		case "/movie/438631/credits":
			w.Write([]byte(`{"cast":[{"id":1,"name":"Timothée Chalamet"}],"crew":[]}`))
		case "/movie/438631/reviews":
			w.Write([]byte(`{"page":1,"results":[{"id":"r1","author":"a","content":"<p>Great</p>"}]}`))
		case "/movie/438631/recommendations":
			w.Write([]byte(`{"page":1,"results":[{"id":693134,"title":"Dune: Part Two"}]}`))
		case "/person/137427":
			w.Write([]byte(`{"id":137427,"name":"Denis Villeneuve","gender":2}`))
		case "/person/137427/combined_credits":
			w.Write([]byte(`{"cast":[],"crew":[{"id":438631,"title":"Dune","job":"Director"}]}`))
		case "/keyword/818":
			w.Write([]byte(`{"id":818,"name":"based on novel or book"}`))
		case "/discover/movie":
			w.Write([]byte(`{"page":1,"results":[{"id":438631,"title":"Dune"}],"total_pages":1,"total_results":1}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"status_code":34}`))
		}
	}
}

func fakeCompletion(text string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{{"message": map[string]string{"role": "assistant", "content": text}}},
		})
	}
}

func newTestManager(t *testing.T, completion http.HandlerFunc) *Manager {
	t.Helper()

	tmdbSrv := httptest.NewServer(fakeTMDB(t))
	t.Cleanup(tmdbSrv.Close)
	llmSrv := httptest.NewServer(completion)
	t.Cleanup(llmSrv.Close)

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	cfg.TMDB.APIKey = "test"
	cfg.TMDB.BaseURL = tmdbSrv.URL
	cfg.TMDB.RequestsPerSecond = 0
	cfg.Completion.APIKey = "test"
	cfg.Completion.BaseURL = llmSrv.URL
	cfg.Completion.MaxAttempts = 1
	cfg.Search.Debounce = "5ms"

	db, err := database.NewSQLite(filepath.Join(t.TempDir(), "popcorn.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.RunMigrations(db, utils.NewDiscardLogger()))

	m := NewManager(cfg, db, metadata.NewMemoryCache(100), utils.NewDiscardLogger())
	t.Cleanup(m.Stop)
	return m
}

func hitIDs(hits []search.ResolvedHit) []int {
	ids := make([]int, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.Hit.ID)
	}
	return ids
}

func TestManagerSearch(t *testing.T) {
	m := newTestManager(t, fakeCompletion(answer))

	res := m.Search(context.Background(), "  villeneuve  ")
	assert.Equal(t, "villeneuve", res.Query)
	assert.Equal(t, []int{438631}, hitIDs(res.Movies))
	assert.Equal(t, []int{3125, 137427}, hitIDs(res.People))
	assert.Equal(t, search.Disclaimer, res.Disclaimer)
}

func TestManagerSearchCompletionDown(t *testing.T) {
	m := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	res := m.Search(context.Background(), "anything")
	assert.Empty(t, res.Movies)
	assert.Empty(t, res.People)
}

func TestManagerSessions(t *testing.T) {
	m := newTestManager(t, fakeCompletion(answer))

	snaps := make(chan search.Snapshot, 16)
	s := m.NewSession(func(sn search.Snapshot) {
		select {
		case snaps <- sn:
		default:
		}
	})
	assert.Equal(t, 1, m.ActiveSessions())

	got, err := m.GetSession(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	s.OnInput("villeneuve")
	require.Eventually(t, func() bool { return s.Snapshot().Phase == search.PhaseSettled }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []int{438631}, hitIDs(s.Snapshot().Movies))

	require.NoError(t, m.CloseSession(s.ID()))
	assert.Equal(t, 0, m.ActiveSessions())
	assert.ErrorIs(t, m.CloseSession(s.ID()), search.ErrSessionNotFound)

	_, err = m.GetSession("nope")
	assert.ErrorIs(t, err, search.ErrSessionNotFound)
}

func TestManagerReapsOnlyIdlePolledSessions(t *testing.T) {
	m := newTestManager(t, fakeCompletion(answer))
	m.config.Search.SessionIdleTimeout = "1ms"

	polled := m.NewPolledSession()
	pushed := m.NewSession(func(search.Snapshot) {})
	time.Sleep(5 * time.Millisecond)

	m.reapIdleSessions()

	_, err := m.GetSession(polled.ID())
	assert.ErrorIs(t, err, search.ErrSessionNotFound)
	_, err = m.GetSession(pushed.ID())
	assert.NoError(t, err)
}

func TestManagerMovieDetailsBestEffortExtras(t *testing.T) {
	m := newTestManager(t, fakeCompletion(answer))

	details, err := m.MovieDetails(context.Background(), 438631)
	require.NoError(t, err)
	assert.Equal(t, "Dune", details.Movie.Title)
	require.NotNil(t, details.Credits)
	assert.Len(t, details.Credits.Cast, 1)
	require.Len(t, details.Reviews, 1)
	assert.Equal(t, "Great", details.Reviews[0].Excerpt)
	assert.Equal(t, []metadata.SearchHit{{ID: 693134, Title: "Dune: Part Two"}}, details.Recommendations)
	// keywords 404 in the fake
	assert.Empty(t, details.Keywords)
	assert.NotNil(t, details.Keywords)
}

func TestManagerMovieDetailsNotFound(t *testing.T) {
	m := newTestManager(t, fakeCompletion(answer))

	_, err := m.MovieDetails(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, metadata.IsNotFound(err))
}

func TestManagerPersonDetails(t *testing.T) {
	m := newTestManager(t, fakeCompletion(answer))

	details, err := m.PersonDetails(context.Background(), 137427)
	require.NoError(t, err)
	assert.Equal(t, "Denis Villeneuve", details.Person.Name)
	require.NotNil(t, details.Credits)
	assert.Equal(t, "Director", details.Credits.Crew[0].Job)
	assert.Nil(t, details.ExternalIDs)
}

func TestManagerKeywordMovies(t *testing.T) {
	m := newTestManager(t, fakeCompletion(answer))

	res, err := m.KeywordMovies(context.Background(), 818, 1)
	require.NoError(t, err)
	assert.Equal(t, "based on novel or book", res.Keyword.Name)
	assert.Len(t, res.Movies.Results, 1)
}

func TestManagerLists(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, fakeCompletion(answer))

	_, err := m.ListMovies(ctx, "", "favorites")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = m.ListMovies(ctx, "alice", "ratings")
	assert.ErrorIs(t, err, ErrUnknownList)
	_, err = m.AddToList(ctx, "alice", "favorites", models.ListItem{})
	assert.ErrorIs(t, err, ErrInvalidMovie)

	item, err := m.AddToList(ctx, "alice", "favorites", models.ListItem{MovieID: 438631})
	require.NoError(t, err)
	assert.Equal(t, "Dune", item.Title)
	assert.Equal(t, "/dune.jpg", item.PosterPath)

	_, err = m.AddToList(ctx, "alice", "favorites", models.ListItem{MovieID: 438631})
	assert.ErrorIs(t, err, models.ErrAlreadyListed)

	summary, err := m.UserSummary(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Lists[models.ListFavorites])

	require.NoError(t, m.RemoveFromList(ctx, "alice", "favorites", 438631))
	assert.ErrorIs(t, m.RemoveFromList(ctx, "alice", "favorites", 438631), ErrNotInList)
}

func TestManagerApplyConfig(t *testing.T) {
	m := newTestManager(t, fakeCompletion(answer))

	next := *m.Config()
	next.App.Debug = true
	next.Search.MaxQueryLength = 42
	next.TMDB.APIKey = "ignored"
	m.ApplyConfig(&next)

	assert.True(t, m.logger.IsDebug())
	assert.Equal(t, 42, m.MaxQueryLength())
	assert.Equal(t, "test", m.Config().TMDB.APIKey)
}

func TestManagerSystemStatus(t *testing.T) {
	m := newTestManager(t, fakeCompletion(answer))

	status := m.GetSystemStatus(context.Background())
	assert.True(t, status.TMDB)
	assert.True(t, status.Completion)
	assert.True(t, status.Cache)
	assert.True(t, status.Database)
	assert.Equal(t, 0, status.ActiveSessions)
}
