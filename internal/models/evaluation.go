package models

import (
	"time"

	"github.com/terra-clan/contest-engine/internal/rubric"
)

// Evaluation is one evaluator's scored rubric for a submission. Immutable once stored.
type Evaluation struct {
	ID           string          `json:"id" bson:"_id"`
	SubmissionID string          `json:"submissionId" bson:"submissionId"`
	EvaluatorID  string          `json:"evaluatorId" bson:"evaluatorId"`
	Criteria     rubric.Criteria `json:"criteria" bson:"criteria"`
	TotalScore   float64         `json:"totalScore" bson:"totalScore"`
	Comments     string          `json:"comments,omitempty" bson:"comments"`
	EvaluatedAt  time.Time       `json:"evaluatedAt" bson:"evaluatedAt"`
}

// EvaluationView is an evaluation with the evaluator's name resolved
type EvaluationView struct {
	Evaluation
	EvaluatorName string `json:"evaluatorName"`
}

// LeaderboardEntry is one ranked row of the leaderboard
type LeaderboardEntry struct {
	SubmissionID    string           `json:"submissionId"`
	TeamID          string           `json:"teamId"`
	TeamName        string           `json:"teamName"`
	Topic           string           `json:"topic"`
	AvgScore        float64          `json:"avgScore"`
	EvaluationCount int              `json:"evaluationCount"`
	Evaluations     []EvaluationView `json:"evaluations"`
}

// Stats holds the admin dashboard counters
type Stats struct {
	TotalEvaluators    int64 `json:"totalEvaluators"`
	PendingEvaluators  int64 `json:"pendingEvaluators"`
	TotalSubmissions   int64 `json:"totalSubmissions"`
	PendingSubmissions int64 `json:"pendingSubmissions"`
	UnderReview        int64 `json:"underReview"`
	Evaluated          int64 `json:"evaluated"`
}
