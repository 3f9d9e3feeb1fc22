package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"strider/internal/report"
	"strider/internal/server/store"
)

// Walker names. These are the operations the gateway dispatches; the
// response body is always {"reports": ...}.
const (
	walkerReadTodos     = "read_todos"
	walkerCreateTodo    = "create_todo"
	walkerToggleTodo    = "toggle_todo"
	walkerDeleteTodo    = "delete_todo"
	walkerServerMessage = "get_server_message"
)

func (s *Server) handleWalker(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]
	node := vars["node"]

	if name == walkerServerMessage {
		s.writeReports(w, []string{"get_server_message: " + serviceName + " is up"})
		return
	}

	owner, ok := s.currentUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	payload := map[string]any{}
	if r.Body != nil {
		// walkers are also reachable via GET with no body
		_ = json.NewDecoder(r.Body).Decode(&payload)
	}
	if node == "" {
		if id, ok := payload["id"].(string); ok {
			node = id
		}
	}

	switch name {
	case walkerReadTodos:
		todos, err := s.store.List(r.Context(), owner)
		if err != nil {
			s.walkerError(w, name, err)
			return
		}
		s.writeReports(w, todos)

	case walkerCreateTodo:
		text, _ := payload["text"].(string)
		text = strings.TrimSpace(text)
		if text == "" {
			writeError(w, http.StatusBadRequest, "todo text is required")
			return
		}
		todo, err := s.store.Create(r.Context(), owner, text)
		if err != nil {
			s.walkerError(w, name, err)
			return
		}
		s.log.Info("todo created", "user", owner, "id", todo.ID)
		s.writeReports(w, []any{todo})

	case walkerToggleTodo:
		if node == "" {
			writeError(w, http.StatusBadRequest, "todo id is required")
			return
		}
		todo, err := s.store.Toggle(r.Context(), owner, node)
		if err != nil {
			s.walkerError(w, name, err)
			return
		}
		s.writeReports(w, []any{todo})

	case walkerDeleteTodo:
		if node == "" {
			writeError(w, http.StatusBadRequest, "todo id is required")
			return
		}
		if err := s.store.Delete(r.Context(), owner, node); err != nil {
			s.walkerError(w, name, err)
			return
		}
		s.writeReports(w, []any{})

	default:
		writeError(w, http.StatusNotFound, "unknown walker: "+name)
	}
}

func (s *Server) writeReports(w http.ResponseWriter, payload any) {
	v, err := report.Of(payload)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": v})
}

func (s *Server) walkerError(w http.ResponseWriter, name string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.log.Error("walker failed", "walker", name, "err", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}
