package models

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type ListType string

const (
	ListFavorites ListType = "favorites"
	ListWatchlist ListType = "watchlist"
)

var ErrAlreadyListed = errors.New("movie already in list")

// ParseListType accepts the path form of a list name.
func ParseListType(s string) (ListType, bool) {
	switch ListType(s) {
	case ListFavorites, ListWatchlist:
		return ListType(s), true
	}
	return "", false
}

type ListItem struct {
	ID         int64     `json:"id" db:"id"`
	UserID     string    `json:"-" db:"user_id"`
	List       ListType  `json:"list" db:"list"`
	MovieID    int       `json:"movie_id" db:"movie_id"`
	Title      string    `json:"title" db:"title"`
	PosterPath string    `json:"poster_path,omitempty" db:"poster_path"`
	Note       string    `json:"note,omitempty" db:"note"`
	AddedAt    time.Time `json:"added_at" db:"added_at"`
}

type UserListRepository struct {
	db *sql.DB
}

func NewUserListRepository(db *sql.DB) *UserListRepository {
	return &UserListRepository{db: db}
}

// Add inserts item and fills in ID and AddedAt. A movie can be in each list
// once per user; a second add returns ErrAlreadyListed.
func (r *UserListRepository) Add(ctx context.Context, item *ListItem) error {
	now := time.Now().UTC().Truncate(time.Second)
	query := `
        INSERT INTO user_lists (user_id, list, movie_id, title, poster_path, note, added_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (user_id, list, movie_id) DO NOTHING
    `
	result, err := r.db.ExecContext(ctx, query, item.UserID, item.List, item.MovieID,
		item.Title, item.PosterPath, item.Note, now.Unix())
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAlreadyListed
	}

	id, _ := result.LastInsertId()
	item.ID = id
	item.AddedAt = now
	return nil
}

// Remove reports whether a row was deleted.
func (r *UserListRepository) Remove(ctx context.Context, userID string, list ListType, movieID int) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM user_lists WHERE user_id = ? AND list = ? AND movie_id = ?",
		userID, list, movieID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// List returns the newest entries first.
func (r *UserListRepository) List(ctx context.Context, userID string, list ListType) ([]ListItem, error) {
	query := `
        SELECT id, user_id, list, movie_id, title, poster_path, note, added_at
        FROM user_lists WHERE user_id = ? AND list = ?
        ORDER BY added_at DESC, id DESC
    `
	rows, err := r.db.QueryContext(ctx, query, userID, list)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []ListItem{}
	for rows.Next() {
		var item ListItem
		var addedAt int64
		if err := rows.Scan(&item.ID, &item.UserID, &item.List, &item.MovieID,
			&item.Title, &item.PosterPath, &item.Note, &addedAt); err != nil {
			return nil, err
		}
		item.AddedAt = time.Unix(addedAt, 0).UTC()
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *UserListRepository) Contains(ctx context.Context, userID string, list ListType, movieID int) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		"SELECT 1 FROM user_lists WHERE user_id = ? AND list = ? AND movie_id = ?",
		userID, list, movieID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Counts returns the number of entries per list for a user.
func (r *UserListRepository) Counts(ctx context.Context, userID string) (map[ListType]int, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT list, COUNT(*) FROM user_lists WHERE user_id = ? GROUP BY list", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[ListType]int{ListFavorites: 0, ListWatchlist: 0}
	for rows.Next() {
		var list ListType
		var n int
		if err := rows.Scan(&list, &n); err != nil {
			return nil, err
		}
		counts[list] = n
	}
	return counts, rows.Err()
}
