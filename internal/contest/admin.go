package contest

import (
	"context"
	"errors"
	"fmt"

	"github.com/terra-clan/contest-engine/internal/models"
	"github.com/terra-clan/contest-engine/internal/storage"
)

// AddTeamMember adds the user registered under memberEmail to the team led by leadID
func (s *Service) AddTeamMember(ctx context.Context, leadID, memberEmail string) (*models.TeamView, error) {
	email := models.NormalizeEmail(memberEmail)
	if email == "" {
		return nil, invalidf("member email is required")
	}

	team, err := s.repo.GetTeamByLead(ctx, leadID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team: %w", err)
	}

	if team.IsFull() {
		return nil, ErrTeamFull
	}

	member, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if member.TeamID != "" {
		return nil, ErrAlreadyInTeam
	}

	if err := s.repo.AddTeamMember(ctx, team.ID, member.ID); err != nil {
		switch {
		case errors.Is(err, storage.ErrTeamFull):
			return nil, ErrTeamFull
		case errors.Is(err, storage.ErrAlreadyInTeam):
			return nil, ErrAlreadyInTeam
		case isNotFound(err):
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to add team member: %w", err)
	}

	s.logger.Info("team member added", "team_id", team.ID, "user_id", member.ID)

	team, err = s.repo.GetTeam(ctx, team.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload team: %w", err)
	}
	return s.teamView(ctx, team)
}

func (s *Service) teamView(ctx context.Context, team *models.Team) (*models.TeamView, error) {
	members, err := s.summaries(ctx, team.Members)
	if err != nil {
		return nil, err
	}

	view := &models.TeamView{Team: *team, MemberList: members}
	for i := range members {
		if members[i].ID == team.LeadID {
			lead := members[i]
			view.Lead = &lead
			break
		}
	}
	return view, nil
}

// ApproveEvaluator marks an evaluator as eligible for future panels
func (s *Service) ApproveEvaluator(ctx context.Context, adminID, userID string) (*models.User, error) {
	admin, err := s.repo.GetUser(ctx, adminID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrForbidden
		}
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}
	if !admin.HasRole(models.RoleAdmin) {
		return nil, ErrForbidden
	}

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrEvaluatorNotFound
		}
		return nil, fmt.Errorf("failed to get evaluator: %w", err)
	}
	if user.Role != models.RoleEvaluator {
		return nil, ErrEvaluatorNotFound
	}

	if user.Approved {
		return user, nil
	}

	if err := s.repo.SetUserApproved(ctx, userID, true); err != nil {
		return nil, fmt.Errorf("failed to approve evaluator: %w", err)
	}
	user.Approved = true

	s.logger.Info("evaluator approved", "user_id", userID, "admin_id", adminID)
	return user, nil
}

// ListEvaluators returns evaluators with the given approval state
func (s *Service) ListEvaluators(ctx context.Context, approved bool) ([]*models.User, error) {
	users, err := s.repo.ListUsers(ctx, models.UserFilter{Role: models.RoleEvaluator, Approved: &approved})
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluators: %w", err)
	}
	if users == nil {
		users = []*models.User{}
	}
	return users, nil
}

// Stats returns the admin dashboard counters
func (s *Service) Stats(ctx context.Context) (*models.Stats, error) {
	approved, pending := true, false
	stats := &models.Stats{}

	counts := []struct {
		dst *int64
		fn  func() (int64, error)
	}{
		{&stats.TotalEvaluators, func() (int64, error) {
			return s.repo.CountUsers(ctx, models.UserFilter{Role: models.RoleEvaluator, Approved: &approved})
		}},
		{&stats.PendingEvaluators, func() (int64, error) {
			return s.repo.CountUsers(ctx, models.UserFilter{Role: models.RoleEvaluator, Approved: &pending})
		}},
		{&stats.TotalSubmissions, func() (int64, error) {
			return s.repo.CountSubmissions(ctx, models.SubmissionFilter{})
		}},
		{&stats.PendingSubmissions, func() (int64, error) {
			return s.repo.CountSubmissions(ctx, models.SubmissionFilter{Status: models.StatusPending})
		}},
		{&stats.UnderReview, func() (int64, error) {
			return s.repo.CountSubmissions(ctx, models.SubmissionFilter{Status: models.StatusUnderReview})
		}},
		{&stats.Evaluated, func() (int64, error) {
			return s.repo.CountSubmissions(ctx, models.SubmissionFilter{Status: models.StatusEvaluated})
		}},
	}

	for _, c := range counts {
		n, err := c.fn()
		if err != nil {
			return nil, fmt.Errorf("failed to compute stats: %w", err)
		}
		*c.dst = n
	}

	return stats, nil
}
