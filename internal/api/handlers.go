package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/terra-clan/contest-engine/internal/contest"
	"github.com/terra-clan/contest-engine/internal/panel"
	"github.com/terra-clan/contest-engine/internal/rubric"
)

// retryAfter is advertised when a submission cannot get a panel yet
const retryAfter = 60 * time.Second

const maxBodyBytes = 1 << 20

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// decodeJSON reads a bounded JSON body into v, answering 400 on failure
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// respondServiceError maps contest errors onto HTTP statuses
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var scoreErr *rubric.ScoreError
	var validationErr *contest.ValidationError

	switch {
	case errors.As(err, &scoreErr):
		respondError(w, http.StatusBadRequest, "validation_error", scoreErr.Error())
	case errors.As(err, &validationErr):
		respondError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
	case errors.Is(err, contest.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, contest.ErrNotInTeam):
		respondError(w, http.StatusBadRequest, "not_in_team", "you must be part of a team")

	case errors.Is(err, panel.ErrInsufficientEvaluators):
		w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
		respondError(w, http.StatusServiceUnavailable, "insufficient_evaluators",
			"not enough approved evaluators to assign a panel, try again later")

	case errors.Is(err, contest.ErrUnauthenticated):
		respondError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
	case errors.Is(err, contest.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
	case errors.Is(err, contest.ErrPendingApproval):
		respondError(w, http.StatusUnauthorized, "pending_approval", "your account is pending admin approval")

	case errors.Is(err, contest.ErrForbidden):
		respondError(w, http.StatusForbidden, "forbidden", "you cannot perform this action")
	case errors.Is(err, contest.ErrNotAssigned):
		respondError(w, http.StatusForbidden, "not_assigned", "you are not assigned to this submission")

	case errors.Is(err, contest.ErrSubmissionNotFound):
		respondError(w, http.StatusNotFound, "not_found", "submission not found")
	case errors.Is(err, contest.ErrTeamNotFound):
		respondError(w, http.StatusNotFound, "not_found", "team not found")
	case errors.Is(err, contest.ErrUserNotFound):
		respondError(w, http.StatusNotFound, "not_found", "user not found")
	case errors.Is(err, contest.ErrEvaluatorNotFound):
		respondError(w, http.StatusNotFound, "not_found", "evaluator not found")

	case errors.Is(err, contest.ErrAlreadyEvaluated):
		respondError(w, http.StatusConflict, "already_evaluated", "you have already evaluated this submission")
	case errors.Is(err, contest.ErrEmailTaken):
		respondError(w, http.StatusConflict, "email_taken", "email already registered")
	case errors.Is(err, contest.ErrTeamNameTaken):
		respondError(w, http.StatusConflict, "team_name_taken", "team name already taken")
	case errors.Is(err, contest.ErrTeamFull):
		respondError(w, http.StatusConflict, "team_full", "team is full (maximum 5 members)")
	case errors.Is(err, contest.ErrAlreadyInTeam):
		respondError(w, http.StatusConflict, "already_in_team", "user already in a team")

	default:
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())
	if !report.Healthy {
		for name, status := range report.Checks {
			if status != "ok" {
				slog.Warn("readiness check failed", "check", name, "status", status)
			}
		}
		respondError(w, http.StatusServiceUnavailable, "not_ready", "service not ready")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ready",
		"checks": report.Checks,
	})
}
