// Package server exposes the saved form collection over HTTP: a JSON
// listing, rendered HTML previews, and a websocket channel that runs a
// live preview session with server-side derivation and validation.
package server

import (
	"fmt"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-formbuilder/pkg/builder"
	"github.com/goliatone/go-formbuilder/pkg/preview"
)

// Option configures the Server.
type Option func(*Server)

// WithLogger attaches a request logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithRenderer overrides the HTML renderer, typically to apply a theme.
func WithRenderer(renderer *preview.Renderer) Option {
	return func(s *Server) {
		if renderer != nil {
			s.renderer = renderer
		}
	}
}

// Server serves the form collection.
type Server struct {
	builder  *builder.Builder
	renderer *preview.Renderer
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// New wires a Server around a loaded form builder.
func New(b *builder.Builder, options ...Option) (*Server, error) {
	renderer, err := preview.NewRenderer()
	if err != nil {
		return nil, err
	}
	s := &Server{
		builder:  b,
		renderer: renderer,
		logger:   zerolog.Nop(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /forms", s.handleList)
	mux.HandleFunc("GET /forms/{id}/preview", s.handlePreview)
	mux.HandleFunc("GET /forms/{id}/live", s.handleLive)
	return mux
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	type entry struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Fields int    `json:"fields"`
	}
	forms := s.builder.SavedForms()
	entries := make([]entry, 0, len(forms))
	for _, form := range forms {
		entries = append(entries, entry{ID: form.ID, Name: form.Name, Fields: len(form.Schema.Fields)})
	}
	s.writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	form, err := s.builder.SavedForm(r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	page, err := s.renderer.RenderHTML(preview.NewSession(form.Schema))
	if err != nil {
		s.logger.Error().Err(err).Str("form", r.PathValue("id")).Msg("render preview")
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(page); err != nil {
		s.logger.Debug().Err(err).Msg("write preview response")
	}
}

// clientMessage is one command from the browser: set a value or submit.
type clientMessage struct {
	Set    *setCommand `json:"set,omitempty"`
	Submit bool        `json:"submit,omitempty"`
}

type setCommand struct {
	Index int `json:"index"`
	Value any `json:"value"`
}

// stateMessage mirrors the session back after every command.
type stateMessage struct {
	Values []any            `json:"values"`
	Issues []string         `json:"issues,omitempty"`
	Errors map[int][]string `json:"errors,omitempty"`
	Valid  *bool            `json:"valid,omitempty"`
	Error  string           `json:"error,omitempty"`
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	form, err := s.builder.SavedForm(r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug().Err(err).Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	session := preview.NewSession(form.Schema)
	if err := s.sendState(conn, session, nil); err != nil {
		return
	}

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug().Err(err).Msg("websocket closed")
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			if err := s.sendError(conn, session, fmt.Sprintf("bad message: %v", err)); err != nil {
				return
			}
			continue
		}

		switch {
		case msg.Set != nil:
			if err := session.SetValue(msg.Set.Index, msg.Set.Value); err != nil {
				if err := s.sendError(conn, session, err.Error()); err != nil {
					return
				}
				continue
			}
			if err := s.sendState(conn, session, nil); err != nil {
				return
			}
		case msg.Submit:
			_, ok := session.Submit()
			if err := s.sendState(conn, session, &ok); err != nil {
				return
			}
		default:
			if err := s.sendError(conn, session, "empty command"); err != nil {
				return
			}
		}
	}
}

func (s *Server) sendState(conn *websocket.Conn, session *preview.Session, valid *bool) error {
	state := stateMessage{
		Values: session.Values(),
		Errors: session.FieldErrors(),
		Valid:  valid,
	}
	for _, issue := range session.Issues() {
		state.Issues = append(state.Issues, issue.String())
	}
	return s.writeMessage(conn, state)
}

func (s *Server) sendError(conn *websocket.Conn, session *preview.Session, message string) error {
	return s.writeMessage(conn, stateMessage{
		Values: session.Values(),
		Errors: session.FieldErrors(),
		Error:  message,
	})
}

func (s *Server) writeMessage(conn *websocket.Conn, state stateMessage) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, payload)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		http.Error(w, "encode failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		s.logger.Debug().Err(err).Msg("write json response")
	}
}
