// Package web is a development backend speaking the task REST API: JWT
// bearer auth, per-user tasks and tags, backed by db.Store.
package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/Joseda-hg/taskdock/internal/db"
)

type Options struct {
	JWTSecret      []byte
	TokenTTL       time.Duration
	AllowedOrigins []string
	Logger         zerolog.Logger
}

type Server struct {
	store   *db.Store
	tokens  tokenIssuer
	origins []string
	log     zerolog.Logger
	started time.Time
}

func NewServer(store *db.Store, opts Options) *Server {
	ttl := opts.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &Server{
		store:   store,
		tokens:  tokenIssuer{secret: opts.JWTSecret, ttl: ttl},
		origins: opts.AllowedOrigins,
		log:     opts.Logger,
		started: time.Now(),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.healthHandler)

	mux.HandleFunc("POST /api/auth/register", s.registerHandler)
	mux.HandleFunc("POST /api/auth/login", s.loginHandler)
	mux.HandleFunc("GET /api/auth/profile", s.requireAuth(s.profileHandler))

	mux.HandleFunc("GET /api/tasks", s.requireAuth(s.listTasksHandler))
	mux.HandleFunc("POST /api/tasks", s.requireAuth(s.createTaskHandler))
	mux.HandleFunc("GET /api/tasks/{id}", s.requireAuth(s.getTaskHandler))
	mux.HandleFunc("PUT /api/tasks/{id}", s.requireAuth(s.updateTaskHandler))
	mux.HandleFunc("DELETE /api/tasks/{id}", s.requireAuth(s.deleteTaskHandler))

	mux.HandleFunc("GET /api/tags", s.requireAuth(s.listTagsHandler))
	mux.HandleFunc("POST /api/tags", s.requireAuth(s.createTagHandler))
	mux.HandleFunc("GET /api/tags/{id}", s.requireAuth(s.getTagHandler))
	mux.HandleFunc("PUT /api/tags/{id}", s.requireAuth(s.updateTagHandler))
	mux.HandleFunc("DELETE /api/tags/{id}", s.requireAuth(s.deleteTagHandler))

	c := cors.New(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return s.logRequests(c.Handler(mux))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "OK",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(s.started).Seconds(),
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

func decodeJSON(r *http.Request, dst any) bool {
	return json.NewDecoder(r.Body).Decode(dst) == nil
}
