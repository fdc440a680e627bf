package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// TransitionResponse is the API response for one journal entry
type TransitionResponse struct {
	SessionID      string    `json:"session_id"`
	Issue          *int      `json:"issue,omitempty"`
	From           string    `json:"from"`
	To             string    `json:"to"`
	CompletedCount int       `json:"completed_count"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func (s *Server) stateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, s.reconciler.State())
	}
}

func (s *Server) planHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.URL.Path, "/api/plans/")
		issue, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid issue number")
			return
		}

		plan := s.reconciler.Plan(issue)
		if plan == nil {
			writeError(w, http.StatusNotFound, "no plan for issue")
			return
		}
		writeJSON(w, plan)
	}
}

func (s *Server) queueHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, s.reconciler.Queue())
	}
}

func (s *Server) releasesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, s.reconciler.Releases())
	}
}

func (s *Server) historyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.journal == nil {
			writeError(w, http.StatusNotFound, "history disabled")
			return
		}

		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				limit = n
			}
		}

		transitions, err := s.journal.Recent(limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		out := make([]TransitionResponse, len(transitions))
		for i, t := range transitions {
			out[i] = TransitionResponse{
				SessionID:      t.SessionID,
				Issue:          t.Issue,
				From:           string(t.From),
				To:             string(t.To),
				CompletedCount: t.CompletedCount,
				OccurredAt:     t.OccurredAt,
			}
		}
		writeJSON(w, out)
	}
}
