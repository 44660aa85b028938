package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/contest-engine/internal/models"
)

// handleAddTeamMember handles POST /api/v1/teams/members
func (s *Server) handleAddTeamMember(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var req models.AddMemberRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	team, err := s.manager.AddTeamMember(r.Context(), user.ID, req.MemberEmail)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, team)
}

// handleListEvaluators handles GET /api/v1/admin/evaluators?approved=
func (s *Server) handleListEvaluators(w http.ResponseWriter, r *http.Request) {
	approved := false
	if raw := r.URL.Query().Get("approved"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "validation_error", "approved must be true or false")
			return
		}
		approved = v
	}

	users, err := s.manager.ListEvaluators(r.Context(), approved)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"evaluators": users,
		"total":      len(users),
	})
}

// handleApproveEvaluator handles POST /api/v1/admin/evaluators/{id}/approve
func (s *Server) handleApproveEvaluator(w http.ResponseWriter, r *http.Request) {
	admin := UserFromContext(r.Context())
	id := chi.URLParam(r, "id")

	user, err := s.manager.ApproveEvaluator(r.Context(), admin.ID, id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// handleStats handles GET /api/v1/admin/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.manager.Stats(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}
