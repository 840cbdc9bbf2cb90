package core

import (
	"context"
	"errors"
	"fmt"

	"popcorn/internal/database/models"
)

var (
	ErrUnknownList      = errors.New("unknown list")
	ErrUnauthenticated  = errors.New("user identity missing")
	ErrNotInList        = errors.New("movie not in list")
	ErrInvalidMovie     = errors.New("movie id must be positive")
	ErrListsUnavailable = errors.New("user lists storage not configured")
)

type UserSummary struct {
	User  string                  `json:"user"`
	Lists map[models.ListType]int `json:"lists"`
}

func (m *Manager) UserSummary(ctx context.Context, user string) (*UserSummary, error) {
	if err := m.checkLists(user); err != nil {
		return nil, err
	}
	counts, err := m.userLists.Counts(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to count lists: %w", err)
	}
	return &UserSummary{User: user, Lists: counts}, nil
}

func (m *Manager) ListMovies(ctx context.Context, user, list string) ([]models.ListItem, error) {
	if err := m.checkLists(user); err != nil {
		return nil, err
	}
	listType, ok := models.ParseListType(list)
	if !ok {
		return nil, ErrUnknownList
	}
	items, err := m.userLists.List(ctx, user, listType)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", list, err)
	}
	return items, nil
}

// AddToList stores a movie in one of the user's lists. When the caller did
// not send a title it is filled in from TMDB if possible. Adding a movie
// twice returns models.ErrAlreadyListed.
func (m *Manager) AddToList(ctx context.Context, user, list string, item models.ListItem) (*models.ListItem, error) {
	if err := m.checkLists(user); err != nil {
		return nil, err
	}
	listType, ok := models.ParseListType(list)
	if !ok {
		return nil, ErrUnknownList
	}
	if item.MovieID <= 0 {
		return nil, ErrInvalidMovie
	}

	if item.Title == "" && m.tmdb.Enabled() {
		if movie, err := m.tmdb.Movie(ctx, item.MovieID); err == nil {
			item.Title = movie.Title
			if item.PosterPath == "" {
				item.PosterPath = movie.PosterPath
			}
		} else {
			m.logger.Warn("Could not fill in title for movie", item.MovieID, ":", err)
		}
	}

	item.UserID = user
	item.List = listType
	if err := m.userLists.Add(ctx, &item); err != nil {
		if errors.Is(err, models.ErrAlreadyListed) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to add to %s: %w", list, err)
	}

	m.logger.Info("User", user, "added movie", item.MovieID, "to", list)
	return &item, nil
}

func (m *Manager) RemoveFromList(ctx context.Context, user, list string, movieID int) error {
	if err := m.checkLists(user); err != nil {
		return err
	}
	listType, ok := models.ParseListType(list)
	if !ok {
		return ErrUnknownList
	}
	removed, err := m.userLists.Remove(ctx, user, listType, movieID)
	if err != nil {
		return fmt.Errorf("failed to remove from %s: %w", list, err)
	}
	if !removed {
		return ErrNotInList
	}
	return nil
}

func (m *Manager) checkLists(user string) error {
	if user == "" {
		return ErrUnauthenticated
	}
	if m.userLists == nil {
		return ErrListsUnavailable
	}
	return nil
}
