package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/contest-engine/internal/models"
)

// handleSubmit handles POST /api/v1/submissions
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var req models.SubmissionContent
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := s.manager.CreateOrUpdateSubmission(r.Context(), user.ID, req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
		slog.Info("submission created",
			"submission_id", result.Submission.ID,
			"team_id", result.Submission.TeamID,
			"evaluators", result.Submission.AssignedEvaluators,
		)
	}

	respondJSON(w, status, result)
}

// handleTeamSubmission handles GET /api/v1/submissions/my-team
func (s *Server) handleTeamSubmission(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	sub, err := s.manager.GetSubmissionForTeam(r.Context(), user.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, sub)
}

// handleMyAssignments handles GET /api/v1/submissions/my-assignments
func (s *Server) handleMyAssignments(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	subs, err := s.manager.ListAssignedTo(r.Context(), user.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"submissions": subs,
		"total":       len(subs),
	})
}

// handleListSubmissions handles GET /api/v1/submissions
func (s *Server) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.manager.ListSubmissions(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"submissions": subs,
		"total":       len(subs),
	})
}

// handleGetSubmission handles GET /api/v1/submissions/{id}
func (s *Server) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := s.manager.GetSubmission(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, sub)
}

// handleRecordEvaluation handles POST /api/v1/evaluations
func (s *Server) handleRecordEvaluation(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var req models.EvaluationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	eval, err := s.manager.RecordEvaluation(r.Context(), user.ID, req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, eval)
}

// handleListEvaluations handles GET /api/v1/evaluations/submission/{id}
func (s *Server) handleListEvaluations(w http.ResponseWriter, r *http.Request) {
	resp, err := s.manager.ListEvaluations(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// handleLeaderboard handles GET /api/v1/leaderboard
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := s.manager.Leaderboard(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"leaderboard": entries,
		"total":       len(entries),
	})
}
