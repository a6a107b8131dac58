package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/desertthunder/songdeck/internal/chords"
	"github.com/desertthunder/songdeck/internal/formatter"
	"github.com/desertthunder/songdeck/internal/models"
	"github.com/desertthunder/songdeck/internal/present"
	"github.com/desertthunder/songdeck/internal/services"
	"github.com/desertthunder/songdeck/internal/shared"
	"github.com/desertthunder/songdeck/internal/web"
	"github.com/gorilla/mux"
)

type catalogResponse struct {
	Songs      []models.Song `json:"songs"`
	Categories []string      `json:"categories"`
}

func (s *Server) handlePresenterPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := web.Render(w, web.PresenterPage, web.PageData{Title: "Presenter"}); err != nil {
		s.Logger.Error("failed to render presenter page", "err", err)
	}
}

func (s *Server) handleAudiencePage(w http.ResponseWriter, r *http.Request) {
	channel := mux.Vars(r)["channel"]
	data := web.PageData{
		Title:       "Audience",
		Channel:     channel,
		Placeholder: present.Placeholder,
		PollMS:      int(s.PollInterval.Milliseconds()),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := web.Render(w, web.AudiencePage, data); err != nil {
		s.Logger.Error("failed to render audience page", "err", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if s.Catalog == nil {
		writeError(w, shared.ErrServiceUnavailable)
		return
	}

	catalog, err := s.Catalog.FetchCatalog(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	songs := catalog.Songs
	if category := r.URL.Query().Get("category"); category != "" {
		songs = services.FilterByCategory(songs, category)
	}
	if q := r.URL.Query().Get("q"); q != "" {
		songs = services.SearchSongs(songs, q)
	}
	if songs == nil {
		songs = []models.Song{}
	}

	writeJSON(w, http.StatusOK, catalogResponse{Songs: songs, Categories: services.Categories(catalog.Songs)})
}

// findSong resolves a content key or title slug against the catalog.
func (s *Server) findSong(ctx context.Context, key string) (models.Song, error) {
	if s.Catalog == nil {
		return models.Song{}, shared.ErrServiceUnavailable
	}
	catalog, err := s.Catalog.FetchCatalog(ctx)
	if err != nil {
		return models.Song{}, err
	}
	return services.FindSong(catalog, key)
}

func (s *Server) handleSlides(w http.ResponseWriter, r *http.Request) {
	if s.Loader == nil {
		writeError(w, shared.ErrServiceUnavailable)
		return
	}

	song, err := s.findSong(r.Context(), mux.Vars(r)["key"])
	if err != nil {
		writeError(w, err)
		return
	}

	deck, err := s.Loader.Load(r.Context(), song)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, formatter.NewDeckExport(song, deck))
}

// handleDocument serves the song's chord sheet, optionally transposed or with chords removed.
func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	if s.Documents == nil {
		writeError(w, shared.ErrServiceUnavailable)
		return
	}

	song, err := s.findSong(r.Context(), mux.Vars(r)["key"])
	if err != nil {
		writeError(w, err)
		return
	}

	steps := 0
	if v := r.URL.Query().Get("transpose"); v != "" {
		steps, err = strconv.Atoi(v)
		if err != nil {
			writeError(w, fmt.Errorf("%w: transpose %q", shared.ErrInvalidArgument, v))
			return
		}
	}

	doc, err := s.Documents.FetchDocument(r.Context(), song.Key())
	if err != nil {
		writeError(w, err)
		return
	}

	switch {
	case r.URL.Query().Get("chords") == "0":
		doc = chords.StripChords(doc)
	case steps != 0:
		doc = chords.TransposeDocument(doc, steps)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(doc))
}
