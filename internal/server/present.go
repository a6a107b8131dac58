package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/songdeck/internal/models"
	"github.com/desertthunder/songdeck/internal/present"
	"github.com/desertthunder/songdeck/internal/shared"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// presentResponse reports the presenter after every control request.
type presentResponse struct {
	Status string                   `json:"status"`
	Key    string                   `json:"key,omitempty"`
	Song   string                   `json:"song,omitempty"`
	State  models.PresentationState `json:"state"`
	Labels []string                 `json:"labels,omitempty"`
	Error  string                   `json:"error,omitempty"`
}

func (s *Server) presentResponse(err error) presentResponse {
	p := s.Presenter
	resp := presentResponse{
		Status: p.Status().String(),
		Key:    p.Key(),
		Song:   p.Song().Title,
		State:  p.State(),
		Labels: p.Deck().Labels,
	}
	if err == nil {
		err = p.Err()
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

func (s *Server) writePresent(w http.ResponseWriter, err error) {
	status := http.StatusOK
	if err != nil {
		status = statusFor(err)
	}
	writeJSON(w, status, s.presentResponse(err))
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	if s.Presenter == nil {
		writeError(w, shared.ErrServiceUnavailable)
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
	s.writePresent(w, s.Presenter.Select(r.Context(), song))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.Presenter == nil {
		writeError(w, shared.ErrServiceUnavailable)
		return
	}

	var body struct {
		Index *int `json:"index"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if body.Index == nil {
		writeError(w, fmt.Errorf("%w: index", shared.ErrMissingArgument))
		return
	}

	_, err := s.Presenter.SetIndex(r.Context(), *body.Index)
	s.writePresent(w, err)
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	if s.Presenter == nil {
		writeError(w, shared.ErrServiceUnavailable)
		return
	}

	var body struct {
		Key string `json:"key"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}

	handled, err := s.Presenter.HandleKey(r.Context(), body.Key)
	if err == nil && !handled {
		err = fmt.Errorf("%w: key %q", shared.ErrInvalidArgument, body.Key)
	}
	s.writePresent(w, err)
}

func (s *Server) handlePresentState(w http.ResponseWriter, r *http.Request) {
	if s.Presenter == nil {
		writeError(w, shared.ErrServiceUnavailable)
		return
	}
	s.writePresent(w, nil)
}

// handleStoredState returns the raw message last stored for a channel, for polling audiences.
func (s *Server) handleStoredState(w http.ResponseWriter, r *http.Request) {
	if s.States == nil {
		writeError(w, shared.ErrServiceUnavailable)
		return
	}

	rec, err := s.States.Get(r.Context(), mux.Vars(r)["channel"])
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(rec.Value)
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	if s.Handshake == nil {
		writeError(w, shared.ErrServiceUnavailable)
		return
	}

	channel := mux.Vars(r)["channel"]
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger.Warn("websocket upgrade failed", "channel", channel, "err", err)
		return
	}

	logger := s.Logger.With("channel", channel)
	logger.Debug("audience attached")
	if err := s.Handshake.Attach(r.Context(), channel, present.NewWebsocketPeer(conn)); err != nil && !errors.Is(err, shared.ErrChannelClosed) {
		logger.Warn("audience detached with error", "err", err)
	}
	logger.Debug("audience detached")
}
