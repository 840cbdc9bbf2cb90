package core

import (
	"context"

	"golang.org/x/sync/errgroup"

	"popcorn/internal/clients/metadata"
)

type MovieDetails struct {
	Movie           *metadata.Movie      `json:"movie"`
	Credits         *metadata.Credits    `json:"credits,omitempty"`
	Reviews         []metadata.Review    `json:"reviews"`
	Keywords        []metadata.Keyword   `json:"keywords"`
	Recommendations []metadata.SearchHit `json:"recommendations"`
}

type PersonDetails struct {
	Person      *metadata.Person          `json:"person"`
	ExternalIDs *metadata.ExternalIDs     `json:"external_ids,omitempty"`
	Credits     *metadata.CombinedCredits `json:"credits,omitempty"`
	Images      *metadata.Images          `json:"images,omitempty"`
}

type KeywordMovies struct {
	Keyword *metadata.Keyword                  `json:"keyword"`
	Movies  *metadata.Page[metadata.SearchHit] `json:"movies"`
}

func (m *Manager) Popular(ctx context.Context, page int) (*metadata.Page[metadata.SearchHit], error) {
	return m.tmdb.Popular(ctx, page)
}

func (m *Manager) Trending(ctx context.Context, page int) (*metadata.Page[metadata.SearchHit], error) {
	return m.tmdb.Trending(ctx, page)
}

func (m *Manager) Upcoming(ctx context.Context, page int) (*metadata.Page[metadata.SearchHit], error) {
	return m.tmdb.Upcoming(ctx, page)
}

func (m *Manager) Genres(ctx context.Context) ([]metadata.Genre, error) {
	return m.tmdb.Genres(ctx)
}

func (m *Manager) Discover(ctx context.Context, filter metadata.DiscoverFilter) (*metadata.Page[metadata.SearchHit], error) {
	return m.tmdb.Discover(ctx, filter)
}

func (m *Manager) Countries() []metadata.Country {
	return metadata.FilterCountries
}

// MovieDetails loads a movie and its extras concurrently. Only the movie
// itself is required; failed extras are logged and left empty.
func (m *Manager) MovieDetails(ctx context.Context, id int) (*MovieDetails, error) {
	details := &MovieDetails{
		Reviews:         []metadata.Review{},
		Keywords:        []metadata.Keyword{},
		Recommendations: []metadata.SearchHit{},
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		movie, err := m.tmdb.Movie(ctx, id)
		if err != nil {
			return err
		}
		details.Movie = movie
		return nil
	})
	g.Go(func() error {
		credits, err := m.tmdb.MovieCredits(ctx, id)
		if err != nil {
			m.logger.Warn("Credits unavailable for movie", id, ":", err)
			return nil
		}
		details.Credits = credits
		return nil
	})
	g.Go(func() error {
		reviews, err := m.tmdb.MovieReviews(ctx, id, 1)
		if err != nil {
			m.logger.Warn("Reviews unavailable for movie", id, ":", err)
			return nil
		}
		if reviews.Results != nil {
			details.Reviews = reviews.Results
		}
		return nil
	})
	g.Go(func() error {
		keywords, err := m.tmdb.MovieKeywords(ctx, id)
		if err != nil {
			m.logger.Warn("Keywords unavailable for movie", id, ":", err)
			return nil
		}
		if keywords != nil {
			details.Keywords = keywords
		}
		return nil
	})
	g.Go(func() error {
		recs, err := m.tmdb.Recommendations(ctx, id, 1)
		if err != nil {
			m.logger.Warn("Recommendations unavailable for movie", id, ":", err)
			return nil
		}
		if recs.Results != nil {
			details.Recommendations = recs.Results
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return details, nil
}

func (m *Manager) SimilarMovies(ctx context.Context, id, page int) (*metadata.Page[metadata.SearchHit], error) {
	return m.tmdb.Similar(ctx, id, page)
}

func (m *Manager) MovieVideos(ctx context.Context, id int) ([]metadata.Video, error) {
	return m.tmdb.Videos(ctx, id)
}

func (m *Manager) MovieImages(ctx context.Context, id int) (*metadata.Images, error) {
	return m.tmdb.MovieImages(ctx, id)
}

// PersonDetails mirrors MovieDetails for people.
func (m *Manager) PersonDetails(ctx context.Context, id int) (*PersonDetails, error) {
	details := &PersonDetails{}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		person, err := m.tmdb.Person(ctx, id)
		if err != nil {
			return err
		}
		details.Person = person
		return nil
	})
	g.Go(func() error {
		ids, err := m.tmdb.PersonExternalIDs(ctx, id)
		if err != nil {
			m.logger.Warn("External ids unavailable for person", id, ":", err)
			return nil
		}
		details.ExternalIDs = ids
		return nil
	})
	g.Go(func() error {
		credits, err := m.tmdb.PersonCombinedCredits(ctx, id)
		if err != nil {
			m.logger.Warn("Credits unavailable for person", id, ":", err)
			return nil
		}
		details.Credits = credits
		return nil
	})
	g.Go(func() error {
		images, err := m.tmdb.PersonImages(ctx, id)
		if err != nil {
			m.logger.Warn("Images unavailable for person", id, ":", err)
			return nil
		}
		details.Images = images
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return details, nil
}

func (m *Manager) KeywordMovies(ctx context.Context, id, page int) (*KeywordMovies, error) {
	var result KeywordMovies

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		keyword, err := m.tmdb.Keyword(ctx, id)
		result.Keyword = keyword
		return err
	})
	g.Go(func() error {
		movies, err := m.tmdb.MoviesByKeyword(ctx, id, page)
		result.Movies = movies
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &result, nil
}

func (m *Manager) Collection(ctx context.Context, id int) (*metadata.Collection, error) {
	return m.tmdb.Collection(ctx, id)
}
