// Package web exposes flows over a JSON HTTP surface. A client drives a
// flow by POSTing widget values for a session and receiving the rendered
// widget tree back, one settled pass at a time.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/flowdeck"
	"github.com/aretw0/flowdeck/internal/logging"
	"github.com/aretw0/flowdeck/internal/template"
	"github.com/aretw0/flowdeck/pkg/domain"
)

// Server serves the JSON flow surface for one App.
type Server struct {
	app    *flowdeck.App
	logger *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewHandler creates the HTTP handler for an App.
func NewHandler(app *flowdeck.App, opts ...Option) http.Handler {
	s := &Server{app: app, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/templates", s.listTemplates)
	r.Get("/sessions", s.listSessions)
	r.Post("/sessions", s.createSession)
	r.Post("/sessions/{name}/rename", s.renameSession)
	r.Post("/sessions/{name}/duplicate", s.duplicateSession)
	r.Delete("/sessions/{name}", s.deleteSession)
	r.Post("/sessions/{name}/pass", s.runPass)
	r.Handle("/metrics", promhttp.HandlerFor(app.MetricsRegistry(), promhttp.HandlerOpts{}))
	return r
}

type templateGroup struct {
	Icon        string                           `json:"icon,omitempty"`
	Title       string                           `json:"title"`
	Description string                           `json:"description,omitempty"`
	Templates   map[string]template.TemplateInfo `json:"templates"`
}

func (s *Server) listTemplates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groups, err := s.app.Templates().Groups(ctx)
	if err != nil {
		s.serverError(w, "listing template groups", err)
		return
	}

	response := make(map[string]templateGroup, len(groups))
	for name, info := range groups {
		templates, err := s.app.Templates().GroupTemplates(ctx, name)
		if err != nil {
			s.serverError(w, "listing group templates", err)
			return
		}
		response[name] = templateGroup{
			Icon:        info.Icon,
			Title:       info.Title,
			Description: info.Description,
			Templates:   templates,
		}
	}
	s.respond(w, http.StatusOK, response)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	names, err := s.app.Sessions().List(r.Context())
	if err != nil {
		s.serverError(w, "listing sessions", err)
		return
	}
	s.respond(w, http.StatusOK, map[string]any{
		"sessions": names,
		"current":  s.app.Sessions().Current(),
	})
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	name, err := s.app.Sessions().Create(r.Context(), domain.NewState())
	if err != nil {
		s.serverError(w, "creating session", err)
		return
	}
	s.respond(w, http.StatusCreated, map[string]string{"name": name})
}

func (s *Server) renameSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		NewName string `json:"new_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.NewName == "" {
		http.Error(w, "new_name is required", http.StatusBadRequest)
		return
	}

	err := s.app.Sessions().Rename(r.Context(), chi.URLParam(r, "name"), body.NewName)
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrSessionExists):
		http.Error(w, err.Error(), http.StatusConflict)
	case err != nil:
		s.serverError(w, "renaming session", err)
	default:
		s.respond(w, http.StatusOK, map[string]string{"name": body.NewName})
	}
}

func (s *Server) duplicateSession(w http.ResponseWriter, r *http.Request) {
	name, err := s.app.Sessions().Duplicate(r.Context(), chi.URLParam(r, "name"))
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case err != nil:
		s.serverError(w, "duplicating session", err)
	default:
		s.respond(w, http.StatusCreated, map[string]string{"name": name})
	}
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	err := s.app.Sessions().Delete(r.Context(), chi.URLParam(r, "name"))
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case err != nil:
		s.serverError(w, "deleting session", err)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

type passRequest struct {
	Template string                         `json:"template"`
	Inputs   map[string]string              `json:"inputs,omitempty"`
	Clicks   []string                       `json:"clicks,omitempty"`
	Chat     []string                       `json:"chat,omitempty"`
	Files    map[string][]FileUploadRequest `json:"files,omitempty"`
}

type passResponse struct {
	Session  string     `json:"session"`
	Template string     `json:"template"`
	Title    string     `json:"title"`
	Header   []Widget   `json:"header,omitempty"`
	Steps    []StepView `json:"steps"`
}

// runPass applies the submitted widget values to the named session,
// drives the flow until it settles and returns the rendered tree.
func (s *Server) runPass(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "name")

	var req passRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Template == "" {
		http.Error(w, "template is required", http.StatusBadRequest)
		return
	}

	sessions := s.app.Sessions()
	sessions.SetCurrent(name)
	state := domain.NewState()
	snapshot, err := sessions.LoadNamed(ctx, name)
	switch {
	case err == nil:
		sessions.ApplySnapshot(state, snapshot)
	case errors.Is(err, domain.ErrSessionNotFound):
		// First pass on a fresh session.
	default:
		s.serverError(w, "loading session", err)
		return
	}

	renderer := newPassRenderer()
	for key, value := range req.Inputs {
		renderer.inputs[key] = value
	}
	for _, key := range req.Clicks {
		renderer.clicks[key]++
	}
	renderer.chat = req.Chat
	for key, files := range req.Files {
		renderer.files[key] = files
	}

	f, err := s.app.LoadFlow(ctx, req.Template, renderer)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := f.Run(ctx, state); err != nil {
		s.serverError(w, "running flow", err)
		return
	}

	views := make([]StepView, 0, len(renderer.views))
	for _, view := range renderer.views {
		views = append(views, *view)
	}
	s.respond(w, http.StatusOK, passResponse{
		Session:  name,
		Template: req.Template,
		Title:    renderer.title,
		Header:   renderer.header,
		Steps:    views,
	})
}

func (s *Server) respond(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encoding response", "error", err)
	}
}

func (s *Server) serverError(w http.ResponseWriter, action string, err error) {
	s.logger.Error(action, "error", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
