// Package httpapi exposes the engine's case graph over plain JSON HTTP, the
// manual-testing boundary SPEC_FULL.md's CLI section calls for. No example
// repo in the retrieval pack pulls in an HTTP router or framework (the
// teacher is a Docker-orchestrating CLI, not a web service), and two routes
// don't warrant one: net/http's ServeMux is the idiomatic choice here.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/campusafe/blackboard/internal/logging"
	"github.com/campusafe/blackboard/pkg/graph"
)

// Server serves read-only JSON views of the graph store for CLI and
// operator use. It never mutates the store.
type Server struct {
	store *graph.Store
	log   *logging.Logger
	mux   *http.ServeMux
}

// New builds a Server backed by store.
func New(store *graph.Store) *Server {
	s := &Server{store: store, log: logging.New("httpapi"), mux: http.NewServeMux()}
	s.mux.HandleFunc("/cases", s.handleCases)
	s.mux.HandleFunc("/cases/", s.handleCaseSnapshot)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleCases(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.store.AllCases())
}

func (s *Server) handleCaseSnapshot(w http.ResponseWriter, r *http.Request) {
	caseID := r.URL.Path[len("/cases/"):]
	if caseID == "" {
		http.NotFound(w, r)
		return
	}
	snapshot, err := s.store.CaseSnapshot(caseID)
	if err != nil {
		s.log.Warn("httpapi.case_not_found", map[string]interface{}{"case_id": caseID, "error": err.Error()})
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, snapshot)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
