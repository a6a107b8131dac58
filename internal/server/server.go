// package server contains routing, middleware and handlers for the presentation web service
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songdeck/internal/present"
	"github.com/desertthunder/songdeck/internal/repositories"
	"github.com/desertthunder/songdeck/internal/services"
	"github.com/desertthunder/songdeck/internal/tasks"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// Common middleware includes logging, recovery, CORS, rate limiting, etc.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers that own several routes.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
// Implementations register handlers, apply middleware, and configure the HTTP server.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// Deps are the collaborators a [Server] serves from. Repositories may be nil, in which case the
// library routes answer 503.
type Deps struct {
	Catalog   services.CatalogSource
	Documents services.DocumentStore
	Loader    *tasks.SongLoader
	Presenter *present.Presenter
	States    present.StateStore
	Handshake *present.HandshakeTransport

	Users *repositories.UserRepository
	Saved *repositories.SavedSongRepository
	Daily *repositories.DailySongRepository

	PollInterval time.Duration
	Logger       *log.Logger
}

// Server is the presenter web service.
type Server struct {
	Deps
	router *BasicRouter
}

// New creates a [Server] and registers every route.
func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard)
	}
	if deps.PollInterval <= 0 {
		deps.PollInterval = 500 * time.Millisecond
	}

	s := &Server{Deps: deps, router: NewBasicRouter()}
	s.router.Use(RecoverMiddleware(deps.Logger), LoggingMiddleware(deps.Logger))
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.HandleFunc(http.MethodGet, "/", s.handlePresenterPage)
	r.HandleFunc(http.MethodGet, "/audience/{channel}", s.handleAudiencePage)
	r.HandleFunc(http.MethodGet, "/healthz", s.handleHealth)

	r.HandleFunc(http.MethodGet, "/api/catalog", s.handleCatalog)
	r.HandleFunc(http.MethodGet, "/api/songs/{key}/slides", s.handleSlides)
	r.HandleFunc(http.MethodGet, "/api/songs/{key}/document", s.handleDocument)

	r.HandleFunc(http.MethodPost, "/api/present/select", s.handleSelect)
	r.HandleFunc(http.MethodPost, "/api/present/index", s.handleIndex)
	r.HandleFunc(http.MethodPost, "/api/present/key", s.handleKey)
	r.HandleFunc(http.MethodGet, "/api/present/state", s.handlePresentState)
	r.HandleFunc(http.MethodGet, "/api/state/{channel}", s.handleStoredState)
	r.HandleFunc(http.MethodGet, "/ws/{channel}", s.handleWebsocket)

	r.HandleFunc(http.MethodGet, "/api/users/{email}/saved", s.handleListSaved)
	r.HandleFunc(http.MethodPost, "/api/users/{email}/saved", s.handleSaveSong)
	r.HandleFunc(http.MethodDelete, "/api/users/{email}/saved/{key}", s.handleRemoveSaved)
	r.HandleFunc(http.MethodGet, "/api/daily/{date}", s.handleGetDaily)
	r.HandleFunc(http.MethodPut, "/api/daily/{date}", s.handleSetDaily)
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		s.Logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	}
}
