package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"popcorn/internal/clients/metadata"
	"popcorn/internal/core"
	"popcorn/internal/database/models"
	"popcorn/internal/utils"
)

type APIHandler struct {
	manager *core.Manager
	logger  *utils.Logger
}

// A helper function to respond with JSON
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// A helper function to respond with a JSON error
func respondError(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, map[string]string{"error": message})
}

func NewAPIHandler(manager *core.Manager, logger *utils.Logger) *APIHandler {
	return &APIHandler{manager: manager, logger: logger}
}

// respondUpstreamError maps TMDB failures onto HTTP statuses.
func (h *APIHandler) respondUpstreamError(w http.ResponseWriter, err error, what string) {
	switch {
	case errors.Is(err, metadata.ErrNotFound):
		respondError(w, http.StatusNotFound, what+" not found")
	case errors.Is(err, metadata.ErrNotConfigured):
		respondError(w, http.StatusServiceUnavailable, "Movie database is not configured")
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "Movie database timed out")
	default:
		h.logger.Error("Failed to fetch", what+":", err)
		respondError(w, http.StatusBadGateway, "Failed to fetch "+what)
	}
}

func pathID(r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// pageParam reads ?page=, defaulting to 1 and clamping to TMDB's range.
func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		page = 1
	}
	return metadata.ClampPage(page)
}

func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *APIHandler) GetSystemStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.manager.GetSystemStatus(r.Context()))
}

func (h *APIHandler) Popular(w http.ResponseWriter, r *http.Request) {
	page, err := h.manager.Popular(r.Context(), pageParam(r))
	if err != nil {
		h.respondUpstreamError(w, err, "popular movies")
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (h *APIHandler) Trending(w http.ResponseWriter, r *http.Request) {
	page, err := h.manager.Trending(r.Context(), pageParam(r))
	if err != nil {
		h.respondUpstreamError(w, err, "trending movies")
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (h *APIHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	page, err := h.manager.Upcoming(r.Context(), pageParam(r))
	if err != nil {
		h.respondUpstreamError(w, err, "upcoming movies")
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (h *APIHandler) Genres(w http.ResponseWriter, r *http.Request) {
	genres, err := h.manager.Genres(r.Context())
	if err != nil {
		h.respondUpstreamError(w, err, "genres")
		return
	}
	respondJSON(w, http.StatusOK, genres)
}

func (h *APIHandler) Countries(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.manager.Countries())
}

func (h *APIHandler) Discover(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	genres, err := parseIDList(q.Get("genres"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid genres")
		return
	}
	keywords, err := parseIDList(q.Get("keywords"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid keywords")
		return
	}

	filter := metadata.DiscoverFilter{
		GenreIDs:   genres,
		KeywordIDs: keywords,
		Country:    strings.TrimSpace(q.Get("country")),
		SortBy:     strings.TrimSpace(q.Get("sort_by")),
		Page:       pageParam(r),
	}
	for name, dst := range map[string]*int{"year": &filter.Year, "year_from": &filter.YearFrom, "year_to": &filter.YearTo} {
		raw := strings.TrimSpace(q.Get(name))
		if raw == "" {
			continue
		}
		year, err := strconv.Atoi(raw)
		if err != nil || year < 1800 || year > 2200 {
			respondError(w, http.StatusBadRequest, "Invalid "+name)
			return
		}
		*dst = year
	}

	page, err := h.manager.Discover(r.Context(), filter)
	if err != nil {
		h.respondUpstreamError(w, err, "movies")
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func parseIDList(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var ids []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil || id <= 0 {
			return nil, errors.New("invalid id " + part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (h *APIHandler) MovieDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid movie ID")
		return
	}
	details, err := h.manager.MovieDetails(r.Context(), id)
	if err != nil {
		h.respondUpstreamError(w, err, "movie")
		return
	}
	respondJSON(w, http.StatusOK, details)
}

func (h *APIHandler) SimilarMovies(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid movie ID")
		return
	}
	page, err := h.manager.SimilarMovies(r.Context(), id, pageParam(r))
	if err != nil {
		h.respondUpstreamError(w, err, "similar movies")
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (h *APIHandler) MovieVideos(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid movie ID")
		return
	}
	videos, err := h.manager.MovieVideos(r.Context(), id)
	if err != nil {
		h.respondUpstreamError(w, err, "videos")
		return
	}
	respondJSON(w, http.StatusOK, videos)
}

func (h *APIHandler) MovieImages(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid movie ID")
		return
	}
	images, err := h.manager.MovieImages(r.Context(), id)
	if err != nil {
		h.respondUpstreamError(w, err, "images")
		return
	}
	respondJSON(w, http.StatusOK, images)
}

func (h *APIHandler) PersonDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid person ID")
		return
	}
	details, err := h.manager.PersonDetails(r.Context(), id)
	if err != nil {
		h.respondUpstreamError(w, err, "person")
		return
	}
	respondJSON(w, http.StatusOK, details)
}

func (h *APIHandler) KeywordMovies(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid keyword ID")
		return
	}
	result, err := h.manager.KeywordMovies(r.Context(), id, pageParam(r))
	if err != nil {
		h.respondUpstreamError(w, err, "keyword")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *APIHandler) Collection(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid collection ID")
		return
	}
	collection, err := h.manager.Collection(r.Context(), id)
	if err != nil {
		h.respondUpstreamError(w, err, "collection")
		return
	}
	respondJSON(w, http.StatusOK, collection)
}

// respondListError maps user list failures onto HTTP statuses.
func (h *APIHandler) respondListError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrUnauthenticated):
		respondError(w, http.StatusUnauthorized, "Authentication required")
	case errors.Is(err, core.ErrUnknownList):
		respondError(w, http.StatusNotFound, "Unknown list")
	case errors.Is(err, core.ErrNotInList):
		respondError(w, http.StatusNotFound, "Movie not in list")
	case errors.Is(err, core.ErrInvalidMovie):
		respondError(w, http.StatusBadRequest, "Invalid movie ID")
	case errors.Is(err, models.ErrAlreadyListed):
		respondError(w, http.StatusConflict, "Movie already in list")
	case errors.Is(err, core.ErrListsUnavailable):
		respondError(w, http.StatusServiceUnavailable, "Lists are unavailable")
	default:
		h.logger.Error("User list operation failed:", err)
		respondError(w, http.StatusInternalServerError, "List operation failed")
	}
}

func (h *APIHandler) Me(w http.ResponseWriter, r *http.Request) {
	summary, err := h.manager.UserSummary(r.Context(), userFromContext(r.Context()))
	if err != nil {
		h.respondListError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (h *APIHandler) GetList(w http.ResponseWriter, r *http.Request) {
	items, err := h.manager.ListMovies(r.Context(), userFromContext(r.Context()), mux.Vars(r)["list"])
	if err != nil {
		h.respondListError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

func (h *APIHandler) AddToList(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MovieID    int    `json:"movie_id"`
		Title      string `json:"title"`
		PosterPath string `json:"poster_path"`
		Note       string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item, err := h.manager.AddToList(r.Context(), userFromContext(r.Context()), mux.Vars(r)["list"], models.ListItem{
		MovieID:    req.MovieID,
		Title:      strings.TrimSpace(req.Title),
		PosterPath: req.PosterPath,
		Note:       req.Note,
	})
	if err != nil {
		h.respondListError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, item)
}

func (h *APIHandler) RemoveFromList(w http.ResponseWriter, r *http.Request) {
	movieID, ok := pathID(r, "movieID")
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid movie ID")
		return
	}
	if err := h.manager.RemoveFromList(r.Context(), userFromContext(r.Context()), mux.Vars(r)["list"], movieID); err != nil {
		h.respondListError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
