package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"popcorn/internal/config"
	"popcorn/internal/core"
	"popcorn/internal/utils"
)

type Server struct {
	config     *config.Config
	manager    *core.Manager
	logger     *utils.Logger
	httpServer *http.Server
	apiHandler *APIHandler
}

func NewServer(cfg *config.Config, manager *core.Manager, logger *utils.Logger) *Server {
	return &Server{
		config:     cfg,
		manager:    manager,
		logger:     logger,
		apiHandler: NewAPIHandler(manager, logger),
	}
}

// Handler builds the full middleware chain around the router.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(metricsMiddleware)

	router.HandleFunc("/health", s.apiHandler.Health).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/status", s.apiHandler.GetSystemStatus).Methods("GET")

	// Discovery
	api.HandleFunc("/movies/popular", s.apiHandler.Popular).Methods("GET")
	api.HandleFunc("/movies/trending", s.apiHandler.Trending).Methods("GET")
	api.HandleFunc("/movies/upcoming", s.apiHandler.Upcoming).Methods("GET")
	api.HandleFunc("/movies/{id:[0-9]+}", s.apiHandler.MovieDetails).Methods("GET")
	api.HandleFunc("/movies/{id:[0-9]+}/similar", s.apiHandler.SimilarMovies).Methods("GET")
	api.HandleFunc("/movies/{id:[0-9]+}/videos", s.apiHandler.MovieVideos).Methods("GET")
	api.HandleFunc("/movies/{id:[0-9]+}/images", s.apiHandler.MovieImages).Methods("GET")
	api.HandleFunc("/people/{id:[0-9]+}", s.apiHandler.PersonDetails).Methods("GET")
	api.HandleFunc("/keywords/{id:[0-9]+}", s.apiHandler.KeywordMovies).Methods("GET")
	api.HandleFunc("/collections/{id:[0-9]+}", s.apiHandler.Collection).Methods("GET")
	api.HandleFunc("/genres", s.apiHandler.Genres).Methods("GET")
	api.HandleFunc("/countries", s.apiHandler.Countries).Methods("GET")
	api.HandleFunc("/discover", s.apiHandler.Discover).Methods("GET")

	// Search
	api.HandleFunc("/search", s.apiHandler.Search).Methods("GET")
	api.HandleFunc("/search/ws", s.apiHandler.SearchSocket).Methods("GET")
	api.HandleFunc("/search/sessions", s.apiHandler.CreateSession).Methods("POST")
	api.HandleFunc("/search/sessions/{id}", s.apiHandler.GetSession).Methods("GET")
	api.HandleFunc("/search/sessions/{id}", s.apiHandler.DeleteSession).Methods("DELETE")
	api.HandleFunc("/search/sessions/{id}/input", s.apiHandler.SessionInput).Methods("POST")
	api.HandleFunc("/search/sessions/{id}/clear", s.apiHandler.SessionClear).Methods("POST")

	// Per-user lists
	me := api.PathPrefix("/me").Subrouter()
	me.Use(authMiddleware(s.config.Auth.UserHeader))
	me.HandleFunc("", s.apiHandler.Me).Methods("GET")
	me.HandleFunc("/{list}", s.apiHandler.GetList).Methods("GET")
	me.HandleFunc("/{list}", s.apiHandler.AddToList).Methods("POST")
	me.HandleFunc("/{list}/{movieID:[0-9]+}", s.apiHandler.RemoveFromList).Methods("DELETE")

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "Not found")
	})

	log := s.logger.Slog()
	var handler http.Handler = router
	trustProxy := s.config.App.TrustProxy
	handler = rateLimitMiddleware(s.config.App.RateLimitRPS, s.config.App.RateLimitBurst, trustProxy, handler)
	handler = loggingMiddleware(log, trustProxy, handler)
	handler = recoveryMiddleware(log, handler)
	return otelhttp.NewHandler(handler, "popcorn")
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.App.Port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 75 * time.Second,
	}

	s.logger.Info("Starting server on port", s.config.App.Port)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
