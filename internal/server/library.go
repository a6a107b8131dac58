package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/songdeck/internal/models"
	"github.com/desertthunder/songdeck/internal/shared"
	"github.com/gorilla/mux"
	"github.com/samber/lo"
)

type savedSongJSON struct {
	Key     string    `json:"key"`
	Title   string    `json:"title"`
	SavedAt time.Time `json:"savedAt"`
}

type dailySongJSON struct {
	Position int    `json:"position"`
	Key      string `json:"key"`
	Title    string `json:"title"`
}

type dailyResponse struct {
	Day   string          `json:"day"`
	Songs []dailySongJSON `json:"songs"`
}

func savedJSON(songs []*models.SavedSong) []savedSongJSON {
	return lo.Map(songs, func(s *models.SavedSong, _ int) savedSongJSON {
		return savedSongJSON{Key: s.SongKey(), Title: s.Title(), SavedAt: s.CreatedAt()}
	})
}

func dailyJSON(day string, songs []*models.DailySong) dailyResponse {
	return dailyResponse{Day: day, Songs: lo.Map(songs, func(d *models.DailySong, _ int) dailySongJSON {
		return dailySongJSON{Position: d.Position(), Key: d.SongKey(), Title: d.Title()}
	})}
}

// user resolves the email in the path, creating the account on first use when create is set.
func (s *Server) user(r *http.Request, create bool) (*models.User, error) {
	email := mux.Vars(r)["email"]

	user, err := s.Users.GetByEmail(email)
	if err == nil || !create || !errors.Is(err, shared.ErrNotFound) {
		return user, err
	}

	user = models.NewUser(0, email, "")
	if err := s.Users.Create(user); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
	}
	s.Logger.Info("created user", "email", user.Email())
	return user, nil
}

func (s *Server) libraryReady(w http.ResponseWriter) bool {
	if s.Users == nil || s.Saved == nil {
		writeError(w, shared.ErrServiceUnavailable)
		return false
	}
	return true
}

func (s *Server) handleListSaved(w http.ResponseWriter, r *http.Request) {
	if !s.libraryReady(w) {
		return
	}

	user, err := s.user(r, false)
	if errors.Is(err, shared.ErrNotFound) {
		writeJSON(w, http.StatusOK, []savedSongJSON{})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	songs, err := s.Saved.ListByUser(user.ID())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, savedJSON(songs))
}

func (s *Server) handleSaveSong(w http.ResponseWriter, r *http.Request) {
	if !s.libraryReady(w) {
		return
	}

	var body struct {
		Key string `json:"key"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}

	song, err := s.findSong(r.Context(), body.Key)
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := s.user(r, true)
	if err != nil {
		writeError(w, err)
		return
	}

	saved, err := s.Saved.Save(user.ID(), song.Key(), song.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, savedJSON([]*models.SavedSong{saved})[0])
}

func (s *Server) handleRemoveSaved(w http.ResponseWriter, r *http.Request) {
	if !s.libraryReady(w) {
		return
	}

	user, err := s.user(r, false)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.Saved.Remove(user.ID(), mux.Vars(r)["key"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetDaily(w http.ResponseWriter, r *http.Request) {
	if s.Daily == nil {
		writeError(w, shared.ErrServiceUnavailable)
		return
	}

	day := mux.Vars(r)["date"]
	if _, err := time.Parse(models.DayLayout, day); err != nil {
		writeError(w, fmt.Errorf("%w: invalid day %q", shared.ErrInvalidInput, day))
		return
	}

	songs, err := s.Daily.ListByDay(day)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dailyJSON(day, songs))
}

// handleSetDaily replaces a day's set list with the songs named by keys, in order.
func (s *Server) handleSetDaily(w http.ResponseWriter, r *http.Request) {
	if s.Daily == nil {
		writeError(w, shared.ErrServiceUnavailable)
		return
	}

	var body struct {
		Keys []string `json:"keys"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}

	songs := make([]models.Song, 0, len(body.Keys))
	for _, key := range body.Keys {
		song, err := s.findSong(r.Context(), key)
		if err != nil {
			writeError(w, err)
			return
		}
		songs = append(songs, song)
	}

	day := mux.Vars(r)["date"]
	entries, err := s.Daily.Replace(day, songs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dailyJSON(day, entries))
}
