package api

import (
	"encoding/json"
	"net/http"

	"github.com/hochfrequenz/claude-exec-monitor/internal/domain"
	"github.com/hochfrequenz/claude-exec-monitor/internal/history"
	"github.com/hochfrequenz/claude-exec-monitor/internal/reconcile"
)

// Server exposes the reconciled execution state read-only over HTTP and SSE
type Server struct {
	reconciler *reconcile.Reconciler
	journal    *history.Store // optional
	addr       string
	mux        *http.ServeMux
	sseHub     *SSEHub
}

// NewServer creates a new API server. journal may be nil when history is
// disabled.
func NewServer(reconciler *reconcile.Reconciler, journal *history.Store, addr string) *Server {
	s := &Server{
		reconciler: reconciler,
		journal:    journal,
		addr:       addr,
		mux:        http.NewServeMux(),
		sseHub:     NewSSEHub(),
	}
	s.setupRoutes()

	// Every reconciled change streams to SSE clients.
	reconciler.OnChange(func(state domain.ExecutionState) {
		s.sseHub.Broadcast(SSEEvent{Type: "state", Data: state})
	})

	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/state", s.stateHandler())
	s.mux.HandleFunc("/api/plans/", s.planHandler())
	s.mux.HandleFunc("/api/queue", s.queueHandler())
	s.mux.HandleFunc("/api/releases", s.releasesHandler())
	s.mux.HandleFunc("/api/history", s.historyHandler())
	s.mux.HandleFunc("/api/events", s.sseHandler())
}

// Start starts the HTTP server
func (s *Server) Start() error {
	go s.sseHub.Run()
	return http.ListenAndServe(s.addr, s.mux)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
