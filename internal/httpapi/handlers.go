// handlers.go implements the JSON endpoints.

package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jpl-au/vela/internal/action"
	"github.com/jpl-au/vela/internal/app"
	"github.com/jpl-au/vela/internal/command"
	"github.com/jpl-au/vela/internal/manager"
	"github.com/jpl-au/vela/internal/search"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps sentinel errors to status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, command.ErrNotFound),
		errors.Is(err, action.ErrNotFound),
		errors.Is(err, manager.ErrUnknownPlugin),
		errors.Is(err, app.ErrNoResult):
		status = http.StatusNotFound
	case errors.Is(err, action.ErrInvalid),
		errors.Is(err, manager.ErrInvalidID),
		errors.Is(err, manager.ErrInvalidView),
		errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, manager.ErrBuiltIn):
		status = http.StatusConflict
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

var errBadRequest = errors.New("bad request")

// decode reads an optional JSON body into v. An empty body leaves v as is.
func decode(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("%w: %v", errBadRequest, err)
}

// search handles GET /search?q=. An empty query returns the default list.
func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	writeJSON(w, http.StatusOK, s.app.Input(r.Context(), q))
}

// SelectRequest is the body of POST /search/select.
type SelectRequest struct {
	Query string `json:"query"`
	ID    string `json:"id"`
}

// SelectResponse reports the selected result and what the action did.
type SelectResponse struct {
	Result search.Result       `json:"result"`
	Action search.ActionResult `json:"action"`
}

// selectResult handles POST /search/select.
func (s *Server) selectResult(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, ar, err := s.app.Pick(r.Context(), req.Query, req.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SelectResponse{Result: res, Action: ar})
}

// listCommands handles GET /commands.
func (s *Server) listCommands(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Commands.Commands())
}

// ExecuteRequest is the body of POST /commands/{id}.
type ExecuteRequest struct {
	Args map[string]any `json:"args"`
}

// ExecuteResponse carries a command's return value.
type ExecuteResponse struct {
	ID     string `json:"id"`
	Result any    `json:"result,omitempty"`
}

// executeCommand handles POST /commands/{id}.
func (s *Server) executeCommand(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req ExecuteRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	out, err := s.app.Manager.ExecuteCommand(r.Context(), id, req.Args)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ExecuteResponse{ID: id, Result: out})
}

// listActions handles GET /actions. ?all=true lists every action instead
// of those visible in the current context.
func (s *Server) listActions(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("all") == "true" {
		writeJSON(w, http.StatusOK, s.app.Actions.All())
		return
	}
	writeJSON(w, http.StatusOK, s.app.Actions.Visible())
}

// ContextRequest is the body of PUT /actions/context.
type ContextRequest struct {
	Context string `json:"context"`
}

// setContext handles PUT /actions/context.
func (s *Server) setContext(w http.ResponseWriter, r *http.Request) {
	var req ContextRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	c, err := action.ParseContext(req.Context)
	if err != nil {
		writeError(w, err)
		return
	}
	s.app.Actions.SetContext(c)
	writeJSON(w, http.StatusOK, s.app.Actions.Visible())
}

// executeAction handles POST /actions/{id}.
func (s *Server) executeAction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.app.Actions.Execute(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// currentView handles GET /view.
func (s *Server) currentView(w http.ResponseWriter, _ *http.Request) {
	vs, ok := s.app.Manager.CurrentView()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"view": nil, "depth": 0})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"view": vs, "depth": s.app.Manager.Stack().Depth()})
}

// NavigateRequest is the body of POST /navigate.
type NavigateRequest struct {
	View string `json:"view"`
}

// navigate handles POST /navigate.
func (s *Server) navigate(w http.ResponseWriter, r *http.Request) {
	var req NavigateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.View == "" {
		writeError(w, fmt.Errorf("%w: view is required", errBadRequest))
		return
	}
	if err := s.app.Manager.NavigateToView(r.Context(), req.View); err != nil {
		writeError(w, err)
		return
	}
	s.currentView(w, r)
}

// back handles POST /back.
func (s *Server) back(w http.ResponseWriter, r *http.Request) {
	s.app.Manager.GoBack(r.Context())
	s.currentView(w, r)
}

// listPlugins handles GET /plugins.
func (s *Server) listPlugins(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Manager.Plugins())
}

// getPlugin handles GET /plugins/{id}.
func (s *Server) getPlugin(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	info, ok := s.app.Manager.Info(id)
	if !ok {
		writeError(w, fmt.Errorf("%w: %s", manager.ErrUnknownPlugin, id))
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) enablePlugin(w http.ResponseWriter, r *http.Request) {
	s.setEnabled(w, r, true)
}

func (s *Server) disablePlugin(w http.ResponseWriter, r *http.Request) {
	s.setEnabled(w, r, false)
}

func (s *Server) setEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	id := chi.URLParam(r, "id")
	if err := s.app.Manager.SetEnabled(r.Context(), id, enabled); err != nil {
		writeError(w, err)
		return
	}
	s.getPlugin(w, r)
}

// uninstallPlugin handles DELETE /plugins/{id}.
func (s *Server) uninstallPlugin(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.app.Manager.Uninstall(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
