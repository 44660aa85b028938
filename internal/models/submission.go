package models

import (
	"time"
)

// SubmissionStatus represents the review state of a submission
type SubmissionStatus string

const (
	StatusPending     SubmissionStatus = "pending"
	StatusUnderReview SubmissionStatus = "under_review"
	StatusEvaluated   SubmissionStatus = "evaluated"
)

// Valid reports whether s is a known status
func (s SubmissionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusUnderReview, StatusEvaluated:
		return true
	}
	return false
}

// IsTerminal returns true once the panel has fully reported
func (s SubmissionStatus) IsTerminal() bool {
	return s == StatusEvaluated
}

// Submission is a team's video entry. A team owns at most one.
type Submission struct {
	ID                 string           `json:"id" bson:"_id"`
	TeamID             string           `json:"teamId" bson:"teamId"`
	VideoLink          string           `json:"videoLink" bson:"videoLink"`
	Topic              string           `json:"topic" bson:"topic"`
	LearningOutcomes   string           `json:"learningOutcomes" bson:"learningOutcomes"`
	Description        string           `json:"description,omitempty" bson:"description"`
	Status             SubmissionStatus `json:"status" bson:"status"`
	AssignedEvaluators []string         `json:"assignedEvaluators" bson:"assignedEvaluators"`
	SubmittedAt        time.Time        `json:"submittedAt" bson:"submittedAt"`
	UpdatedAt          time.Time        `json:"updatedAt" bson:"updatedAt"`
	Deadline           time.Time        `json:"deadline" bson:"deadline"`
}

// IsAssigned checks if the evaluator sits on this submission's panel
func (s *Submission) IsAssigned(evaluatorID string) bool {
	for _, id := range s.AssignedEvaluators {
		if id == evaluatorID {
			return true
		}
	}
	return false
}

// IsOverdue reports whether the review window closed before the panel finished
func (s *Submission) IsOverdue(now time.Time) bool {
	return !s.Status.IsTerminal() && now.After(s.Deadline)
}

// SubmissionContent holds the participant-editable fields
type SubmissionContent struct {
	VideoLink        string `json:"videoLink"`
	Topic            string `json:"topic"`
	LearningOutcomes string `json:"learningOutcomes"`
	Description      string `json:"description"`
}

// SubmissionFilter defines filters for listing submissions
type SubmissionFilter struct {
	Status      SubmissionStatus
	EvaluatorID string
}

// SubmissionView is a submission with team and panel names resolved
type SubmissionView struct {
	Submission
	TeamName   string        `json:"teamName"`
	Evaluators []UserSummary `json:"evaluators"`
}
