package contest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/terra-clan/contest-engine/internal/models"
	"github.com/terra-clan/contest-engine/internal/panel"
	"github.com/terra-clan/contest-engine/internal/rubric"
	"github.com/terra-clan/contest-engine/internal/storage"
)

// RecordEvaluation stores one panel member's rubric for a submission and
// closes the submission once the whole panel has reported.
func (s *Service) RecordEvaluation(ctx context.Context, evaluatorID string, req models.EvaluationRequest) (*models.Evaluation, error) {
	evaluator, err := s.repo.GetUser(ctx, evaluatorID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrForbidden
		}
		return nil, fmt.Errorf("failed to get evaluator: %w", err)
	}
	if !evaluator.CanEvaluate() {
		return nil, ErrForbidden
	}

	submissionID := strings.TrimSpace(req.SubmissionID)
	if submissionID == "" {
		return nil, invalidf("submission id is required")
	}

	if err := rubric.Validate(req.Criteria); err != nil {
		return nil, err
	}

	sub, err := s.repo.GetSubmission(ctx, submissionID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	if !sub.IsAssigned(evaluatorID) {
		return nil, ErrNotAssigned
	}

	eval := &models.Evaluation{
		ID:           uuid.New().String(),
		SubmissionID: sub.ID,
		EvaluatorID:  evaluatorID,
		Criteria:     req.Criteria,
		TotalScore:   rubric.ComputeTotal(req.Criteria),
		Comments:     strings.TrimSpace(req.Comments),
		EvaluatedAt:  s.now(),
	}

	if err := s.repo.CreateEvaluation(ctx, eval); err != nil {
		if errors.Is(err, storage.ErrDuplicateEvaluation) {
			return nil, ErrAlreadyEvaluated
		}
		return nil, fmt.Errorf("failed to create evaluation: %w", err)
	}

	s.metrics.EvaluationRecorded()
	s.logger.Info("evaluation recorded",
		"submission_id", sub.ID,
		"evaluator_id", evaluatorID,
		"total_score", eval.TotalScore,
	)

	// Runs after our insert, so the last of the panel always sees a full count
	flipped, err := s.repo.MarkEvaluated(ctx, sub.ID, panel.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to update submission status: %w", err)
	}
	if flipped {
		s.metrics.SubmissionEvaluated()
		s.logger.Info("submission evaluated", "submission_id", sub.ID)
	}

	return eval, nil
}

// AverageScore returns the mean total of a submission's evaluations, 0 when none
func (s *Service) AverageScore(ctx context.Context, submissionID string) (float64, error) {
	evals, err := s.repo.ListEvaluations(ctx, submissionID)
	if err != nil {
		return 0, fmt.Errorf("failed to list evaluations: %w", err)
	}
	return average(evals), nil
}

// ListEvaluations returns a submission's evaluations with evaluator names and
// their rounded average
func (s *Service) ListEvaluations(ctx context.Context, submissionID string) (*models.EvaluationsResponse, error) {
	if _, err := s.repo.GetSubmission(ctx, submissionID); err != nil {
		if isNotFound(err) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	evals, err := s.repo.ListEvaluations(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}

	views, err := s.evaluationViews(ctx, evals)
	if err != nil {
		return nil, err
	}

	return &models.EvaluationsResponse{
		Evaluations: views,
		AvgScore:    round2(average(evals)),
		Total:       len(evals),
	}, nil
}

func (s *Service) evaluationViews(ctx context.Context, evals []*models.Evaluation) ([]models.EvaluationView, error) {
	views := make([]models.EvaluationView, 0, len(evals))
	for _, e := range evals {
		view := models.EvaluationView{Evaluation: *e}

		u, err := s.repo.GetUser(ctx, e.EvaluatorID)
		switch {
		case err == nil:
			view.EvaluatorName = u.Name
		case !isNotFound(err):
			return nil, fmt.Errorf("failed to resolve evaluator %s: %w", e.EvaluatorID, err)
		}

		views = append(views, view)
	}
	return views, nil
}
