package models

import "github.com/terra-clan/contest-engine/internal/rubric"

// RegisterRequest represents a request to create an account
type RegisterRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	Role          Role   `json:"role,omitempty"`
	Address       string `json:"address,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Qualification string `json:"qualification,omitempty"`
	Experience    string `json:"experience,omitempty"`
	TeamName      string `json:"teamName,omitempty"`
}

// LoginRequest represents a login attempt
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned after register and login
type AuthResponse struct {
	User      *User  `json:"user"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}

// MeResponse is returned for the current user
type MeResponse struct {
	User *User     `json:"user"`
	Team *TeamView `json:"team,omitempty"`
}

// EvaluationRequest represents a request to record an evaluation
type EvaluationRequest struct {
	SubmissionID string          `json:"submissionId"`
	Criteria     rubric.Criteria `json:"criteria"`
	Comments     string          `json:"comments"`
}

// AddMemberRequest represents a team lead adding a member by email
type AddMemberRequest struct {
	MemberEmail string `json:"memberEmail"`
}

// SubmissionResult is returned by create-or-update
type SubmissionResult struct {
	Created    bool            `json:"created"`
	Message    string          `json:"message"`
	Submission *SubmissionView `json:"submission"`
}

// EvaluationsResponse lists a submission's evaluations with their average
type EvaluationsResponse struct {
	Evaluations []EvaluationView `json:"evaluations"`
	AvgScore    float64          `json:"avgScore"`
	Total       int              `json:"total"`
}
