package contest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/terra-clan/contest-engine/internal/models"
	"github.com/terra-clan/contest-engine/internal/storage"
)

func normalizeContent(in models.SubmissionContent) models.SubmissionContent {
	return models.SubmissionContent{
		VideoLink:        strings.TrimSpace(in.VideoLink),
		Topic:            strings.TrimSpace(in.Topic),
		LearningOutcomes: strings.TrimSpace(in.LearningOutcomes),
		Description:      strings.TrimSpace(in.Description),
	}
}

func validateContent(in models.SubmissionContent) error {
	switch {
	case in.VideoLink == "":
		return invalidf("video link is required")
	case in.Topic == "":
		return invalidf("topic is required")
	case in.LearningOutcomes == "":
		return invalidf("learning outcomes are required")
	}
	return nil
}

// CreateOrUpdateSubmission stores the caller's team submission. The first
// call assigns a panel; later calls only replace the content.
func (s *Service) CreateOrUpdateSubmission(ctx context.Context, userID string, input models.SubmissionContent) (*models.SubmissionResult, error) {
	input = normalizeContent(input)
	if err := validateContent(input); err != nil {
		return nil, err
	}

	team, err := s.teamOf(ctx, userID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetSubmissionByTeam(ctx, team.ID)
	if err == nil {
		return s.updateSubmission(ctx, existing, team, input)
	}
	if !isNotFound(err) {
		return nil, fmt.Errorf("failed to get team submission: %w", err)
	}

	approved := true
	evaluators, err := s.repo.ListUsers(ctx, models.UserFilter{Role: models.RoleEvaluator, Approved: &approved})
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluators: %w", err)
	}

	pool := make([]string, 0, len(evaluators))
	for _, e := range evaluators {
		pool = append(pool, e.ID)
	}

	assigned, err := s.selector.SelectPanel(pool)
	if err != nil {
		s.metrics.AssignmentFailed()
		s.logger.Warn("panel assignment failed",
			"team_id", team.ID,
			"approved_evaluators", len(pool),
			"error", err,
		)
		return nil, err
	}

	now := s.now()
	sub := &models.Submission{
		ID:                 uuid.New().String(),
		TeamID:             team.ID,
		VideoLink:          input.VideoLink,
		Topic:              input.Topic,
		LearningOutcomes:   input.LearningOutcomes,
		Description:        input.Description,
		Status:             models.StatusUnderReview,
		AssignedEvaluators: assigned,
		SubmittedAt:        now,
		UpdatedAt:          now,
		Deadline:           now.Add(s.submissionWindow),
	}

	if err := s.repo.CreateSubmission(ctx, sub); err != nil {
		if !errors.Is(err, storage.ErrDuplicateSubmission) {
			return nil, fmt.Errorf("failed to create submission: %w", err)
		}

		// Another request for the same team won the insert; apply ours as an edit
		existing, gerr := s.repo.GetSubmissionByTeam(ctx, team.ID)
		if gerr != nil {
			return nil, fmt.Errorf("failed to reload team submission: %w", gerr)
		}
		return s.updateSubmission(ctx, existing, team, input)
	}

	s.metrics.SubmissionWritten(true)
	s.logger.Info("submission created",
		"submission_id", sub.ID,
		"team_id", team.ID,
		"evaluators", assigned,
	)

	view, err := s.submissionView(ctx, sub, team)
	if err != nil {
		return nil, err
	}

	return &models.SubmissionResult{
		Created:    true,
		Message:    "Submission created successfully",
		Submission: view,
	}, nil
}

func (s *Service) updateSubmission(ctx context.Context, sub *models.Submission, team *models.Team, input models.SubmissionContent) (*models.SubmissionResult, error) {
	sub.VideoLink = input.VideoLink
	sub.Topic = input.Topic
	sub.LearningOutcomes = input.LearningOutcomes
	sub.Description = input.Description
	sub.UpdatedAt = s.now()

	if err := s.repo.UpdateSubmissionContent(ctx, sub); err != nil {
		if isNotFound(err) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to update submission: %w", err)
	}

	s.metrics.SubmissionWritten(false)
	s.logger.Info("submission updated", "submission_id", sub.ID, "team_id", team.ID)

	view, err := s.submissionView(ctx, sub, team)
	if err != nil {
		return nil, err
	}

	return &models.SubmissionResult{
		Created:    false,
		Message:    "Submission updated successfully",
		Submission: view,
	}, nil
}

// teamOf resolves the team the user belongs to
func (s *Service) teamOf(ctx context.Context, userID string) (*models.Team, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if user.TeamID == "" {
		return nil, ErrNotInTeam
	}

	team, err := s.repo.GetTeam(ctx, user.TeamID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team: %w", err)
	}

	return team, nil
}

// GetSubmissionForTeam returns the submission of the caller's team
func (s *Service) GetSubmissionForTeam(ctx context.Context, userID string) (*models.SubmissionView, error) {
	team, err := s.teamOf(ctx, userID)
	if err != nil {
		return nil, err
	}

	sub, err := s.repo.GetSubmissionByTeam(ctx, team.ID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get team submission: %w", err)
	}

	return s.submissionView(ctx, sub, team)
}

// GetSubmission returns one submission by id
func (s *Service) GetSubmission(ctx context.Context, id string) (*models.SubmissionView, error) {
	sub, err := s.repo.GetSubmission(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	return s.submissionView(ctx, sub, nil)
}

// ListSubmissions returns every submission in submission order
func (s *Service) ListSubmissions(ctx context.Context) ([]*models.SubmissionView, error) {
	return s.listSubmissions(ctx, models.SubmissionFilter{})
}

// ListAssignedTo returns the submissions whose panel includes evaluatorID
func (s *Service) ListAssignedTo(ctx context.Context, evaluatorID string) ([]*models.SubmissionView, error) {
	return s.listSubmissions(ctx, models.SubmissionFilter{EvaluatorID: evaluatorID})
}

func (s *Service) listSubmissions(ctx context.Context, filter models.SubmissionFilter) ([]*models.SubmissionView, error) {
	subs, err := s.repo.ListSubmissions(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	views := make([]*models.SubmissionView, 0, len(subs))
	for _, sub := range subs {
		view, err := s.submissionView(ctx, sub, nil)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// submissionView resolves team and evaluator names. team may be nil.
func (s *Service) submissionView(ctx context.Context, sub *models.Submission, team *models.Team) (*models.SubmissionView, error) {
	view := &models.SubmissionView{Submission: *sub}

	if team == nil {
		t, err := s.repo.GetTeam(ctx, sub.TeamID)
		switch {
		case err == nil:
			team = t
		case !isNotFound(err):
			return nil, fmt.Errorf("failed to get team: %w", err)
		}
	}
	if team != nil {
		view.TeamName = team.Name
	}

	evaluators, err := s.summaries(ctx, sub.AssignedEvaluators)
	if err != nil {
		return nil, err
	}
	view.Evaluators = evaluators

	return view, nil
}
