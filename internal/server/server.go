// Package server is the walker backend: named operations dispatched over
// HTTP, each scoped to the authenticated user's session, answering with
// report entries. It also carries the app shell page and static assets.
package server

import (
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"strider/internal/server/store"
)

const serviceName = "strider API server"

type Server struct {
	store     store.Store
	auth      *authRegistry
	log       *slog.Logger
	appName   string
	staticDir string
}

func New(st store.Store, logger *slog.Logger, appName, staticDir string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if appName == "" {
		appName = "app"
	}
	return &Server{
		store:     st,
		auth:      newAuthRegistry(),
		log:       logger,
		appName:   appName,
		staticDir: staticDir,
	}
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/user/signup", s.handleSignup).Methods(http.MethodPost)
	r.HandleFunc("/user/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/walker/{name}", s.handleWalker).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/walker/{name}/{node}", s.handleWalker).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/page/{app}", s.handlePage).Methods(http.MethodGet)
	if s.staticDir != "" {
		r.PathPrefix("/static/").Handler(
			http.StripPrefix("/static/", http.FileServer(http.Dir(s.staticDir))))
	}
	return s.requestLogger(r)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": serviceName,
		"endpoints": []string{
			"/user/signup",
			"/user/login",
			"/walker/" + walkerServerMessage,
			"/walker/" + walkerReadTodos,
			"/walker/" + walkerCreateTodo,
			"/walker/" + walkerToggleTodo + "/{id}",
			"/walker/" + walkerDeleteTodo + "/{id}",
			"/page/" + s.appName,
			"/static/",
		},
	})
}

type credentialsBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Confirm  string `json:"confirm"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	token, err := s.auth.signup(body.Username, body.Password, body.Confirm)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.log.Info("user signed up", "user", body.Username)
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	token, err := s.auth.login(body.Username, body.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	s.log.Info("user logged in", "user", body.Username)
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>{{.App}}</title>
  <link rel="stylesheet" href="/static/main.css">
</head>
<body>
  <div id="root" data-app="{{.App}}"></div>
</body>
</html>
`))

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	app := mux.Vars(r)["app"]
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, map[string]string{"App": app}); err != nil {
		s.log.Error("render page", "app", app, "err", err)
	}
}

// currentUser resolves the bearer token of the request.
func (s *Server) currentUser(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return "", false
	}
	return s.auth.lookup(token)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", fmt.Sprintf("%.1fms", float64(time.Since(start).Microseconds())/1000),
		)
	})
}
