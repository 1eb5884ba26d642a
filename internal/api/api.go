// Package api provides HTTP handlers and the main API server logic for Cora
// Onboarding.
//
// It exposes RESTful endpoints for starting, answering, and inspecting
// onboarding sessions. The API integrates with the flow, completion, and
// store modules.
package api

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/corahq/cora-onboarding/internal/flow"
	"github.com/corahq/cora-onboarding/internal/store"
)

// DefaultAddr is the default listen address for the API server.
const DefaultAddr = ":8080"

// Opts holds configuration options for the API server.
type Opts struct {
	Addr         string
	StrategyName string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithStrategy selects the prompt strategy used by new sessions.
func WithStrategy(name string) Option {
	return func(o *Opts) { o.StrategyName = name }
}

// Server hosts the onboarding API. Engines are created per participant and
// held in a mutex-guarded registry; each engine serializes its own
// operations, so a session's transitions are strictly sequential.
type Server struct {
	addr         string
	st           store.Store
	submitter    flow.CompletionSubmitter
	strategyName string

	mu      sync.Mutex
	engines map[string]*flow.Engine
}

// NewServer creates an API server over the given store and completion
// submitter.
func NewServer(st store.Store, submitter flow.CompletionSubmitter, opts ...Option) *Server {
	cfg := Opts{
		Addr:         DefaultAddr,
		StrategyName: flow.StrategyLinear,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("Server.NewServer: creating API server", "addr", cfg.Addr, "strategy", cfg.StrategyName)
	return &Server{
		addr:         cfg.Addr,
		st:           st,
		submitter:    submitter,
		strategyName: cfg.StrategyName,
		engines:      make(map[string]*flow.Engine),
	}
}

// Handler returns the route mux for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/onboarding/start", s.startHandler)
	mux.HandleFunc("/onboarding/text", s.textHandler)
	mux.HandleFunc("/onboarding/choices", s.choicesHandler)
	mux.HandleFunc("/onboarding/session", s.sessionHandler)
	mux.HandleFunc("/onboarding/transcript", s.transcriptHandler)
	return mux
}

// Run starts the HTTP server and blocks until it exits.
func (s *Server) Run() error {
	slog.Info("Cora Onboarding API running", "addr", s.addr)
	return http.ListenAndServe(s.addr, s.Handler())
}

// engine returns the participant's engine, creating one on first use.
func (s *Server) engine(participantID string) *flow.Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.engines[participantID]; ok {
		return e
	}
	e := flow.NewEngine(participantID, s.st, s.submitter, flow.WithStrategy(s.strategyName))
	s.engines[participantID] = e
	slog.Debug("Server.engine: created engine", "participantID", participantID, "strategy", s.strategyName)
	return e
}

// lookupEngine returns the participant's engine without creating one.
func (s *Server) lookupEngine(participantID string) (*flow.Engine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.engines[participantID]
	return e, ok
}
