// Package http serves a team of agents over HTTP.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/JovanVeljanoski/ateam/agent"
	"github.com/JovanVeljanoski/ateam/llm"
	obs "github.com/JovanVeljanoski/ateam/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

// Directory looks agents up by name; *team.Team implements it.
type Directory interface {
	Agent(name string) (*agent.Agent, bool)
	Names() []string
}

// Server exposes agents with HTTP endpoints
type Server struct {
	agents Directory
	config Config
	server *http.Server
}

// Config holds HTTP server configuration
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	EnableCORS   bool
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

// NewServer creates a new HTTP server for a set of agents
func NewServer(agents Directory, config Config) *Server {
	if config.Addr == "" {
		config.Addr = ":8080"
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = 10 * time.Second
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = 5 * time.Minute
	}

	s := &Server{agents: agents, config: config}
	s.server = &http.Server{
		Addr:         config.Addr,
		Handler:      s.Routes(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Routes returns the router with all middleware applied.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID, recovery, logging)
	if s.config.EnableCORS {
		r.Use(cors)
	}

	r.Get("/health", s.healthHandler)
	if s.config.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.config.Metrics)
	}
	r.Route("/v1/agents", func(r chi.Router) {
		r.Get("/", s.listAgentsHandler)
		r.Route("/{name}", func(r chi.Router) {
			r.Post("/runs", s.runHandler)
			r.Get("/state", s.stateHandler)
			r.Delete("/state", s.clearStateHandler)
		})
	})
	return r
}

// RunRequest starts a run
type RunRequest struct {
	Input string `json:"input" validate:"required"`
}

// AgentInfo describes an agent in GET /v1/agents
type AgentInfo struct {
	Name  string   `json:"name"`
	Model string   `json:"model"`
	Tools []string `json:"tools"`
}

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

var validate = validator.New()

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"agents": len(s.agents.Names()),
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) listAgentsHandler(w http.ResponseWriter, r *http.Request) {
	names := s.agents.Names()
	out := make([]AgentInfo, 0, len(names))
	for _, n := range names {
		a, ok := s.agents.Agent(n)
		if !ok {
			continue
		}
		out = append(out, AgentInfo{Name: n, Model: a.Model(), Tools: a.Tools()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*agent.Agent, bool) {
	name := chi.URLParam(r, "name")
	a, ok := s.agents.Agent(name)
	if !ok {
		writeError(w, r, http.StatusNotFound, "agent "+name+" not found")
	}
	return a, ok
}

func (s *Server) runHandler(w http.ResponseWriter, r *http.Request) {
	a, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, "input is required")
		return
	}

	res, err := a.Run(r.Context(), req.Input)
	if err != nil {
		status := statusFor(err)
		log.Ctx(r.Context()).Warn().Err(err).Str("agent", a.Name()).Int("status", status).Msg("run failed")
		writeError(w, r, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) stateHandler(w http.ResponseWriter, r *http.Request) {
	a, ok := s.lookup(w, r)
	if !ok {
		return
	}
	snap, err := a.State().Snapshot(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) clearStateHandler(w http.ResponseWriter, r *http.Request) {
	a, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := a.State().Clear(r.Context()); err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// statusFor maps run errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, agent.ErrBlocked),
		errors.Is(err, agent.ErrRefusal),
		errors.Is(err, agent.ErrToolCallLimit):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case llm.IsRateLimitError(err):
		return http.StatusTooManyRequests
	}
	if _, ok := llm.IsLLMError(err); ok {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, message string) {
	id, _ := obs.RequestIDFromContext(r.Context())
	writeJSON(w, code, ErrorResponse{Error: message, RequestID: id})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.config.Addr).Msg("HTTP server starting")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("graceful shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
