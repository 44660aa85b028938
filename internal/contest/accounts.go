package contest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"golang.org/x/crypto/bcrypt"

	"github.com/terra-clan/contest-engine/internal/models"
	"github.com/terra-clan/contest-engine/internal/storage"
)

// MinPasswordLength is the shortest accepted password
const MinPasswordLength = 6

// Register creates a participant or evaluator account. A participant that
// names a team becomes its lead and first member.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = models.NormalizeEmail(req.Email)
	req.TeamName = strings.TrimSpace(req.TeamName)

	if req.Name == "" || req.Email == "" || req.Password == "" {
		return nil, invalidf("name, email, and password are required")
	}
	if !strings.Contains(req.Email, "@") {
		return nil, invalidf("email address is invalid")
	}
	if len(req.Password) < MinPasswordLength {
		return nil, invalidf("password must be at least %d characters", MinPasswordLength)
	}

	if req.Role == "" {
		req.Role = models.RoleParticipant
	}
	switch req.Role {
	case models.RoleParticipant, models.RoleEvaluator:
	case models.RoleAdmin:
		return nil, invalidf("admin accounts cannot be self-registered")
	default:
		return nil, invalidf("unknown role %q", req.Role)
	}

	var teamSlug string
	if req.Role == models.RoleParticipant && req.TeamName != "" {
		teamSlug = slug.Make(req.TeamName)
		if teamSlug == "" {
			return nil, invalidf("team name must contain letters or digits")
		}
		if _, err := s.repo.GetTeamBySlug(ctx, teamSlug); err == nil {
			return nil, ErrTeamNameTaken
		} else if !isNotFound(err) {
			return nil, fmt.Errorf("failed to check team name: %w", err)
		}
	}

	user, err := s.createUser(ctx, &models.User{
		Name:          req.Name,
		Email:         req.Email,
		Role:          req.Role,
		Approved:      req.Role == models.RoleParticipant,
		Address:       strings.TrimSpace(req.Address),
		Phone:         strings.TrimSpace(req.Phone),
		Qualification: strings.TrimSpace(req.Qualification),
		Experience:    strings.TrimSpace(req.Experience),
	}, req.Password)
	if err != nil {
		return nil, err
	}

	if teamSlug != "" {
		team := &models.Team{
			ID:        uuid.New().String(),
			Name:      req.TeamName,
			Slug:      teamSlug,
			LeadID:    user.ID,
			Members:   []string{user.ID},
			CreatedAt: s.now(),
		}
		if err := s.repo.CreateTeam(ctx, team); err != nil {
			if errors.Is(err, storage.ErrDuplicateTeamName) {
				return nil, ErrTeamNameTaken
			}
			return nil, fmt.Errorf("failed to create team: %w", err)
		}
		user.TeamID = team.ID
		s.logger.Info("team created", "team_id", team.ID, "lead_id", user.ID)
	}

	s.logger.Info("user registered", "user_id", user.ID, "role", user.Role)

	return s.issueToken(ctx, user)
}

// ProvisionUser creates an account with an explicit role and approval,
// bypassing self-registration rules. Used by seeding. Reports false when the
// email is already registered.
func (s *Service) ProvisionUser(ctx context.Context, name, email, password string, role models.Role, approved bool) (bool, error) {
	email = models.NormalizeEmail(email)
	if !role.Valid() {
		return false, invalidf("unknown role %q", role)
	}
	if strings.TrimSpace(name) == "" || email == "" || len(password) < MinPasswordLength {
		return false, invalidf("name, email, and a password of at least %d characters are required", MinPasswordLength)
	}

	_, err := s.createUser(ctx, &models.User{
		Name:     strings.TrimSpace(name),
		Email:    email,
		Role:     role,
		Approved: approved,
	}, password)
	if errors.Is(err, ErrEmailTaken) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) createUser(ctx context.Context, u *models.User, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u.ID = uuid.New().String()
	u.PasswordHash = string(hash)
	u.CreatedAt = s.now()

	if err := s.repo.CreateUser(ctx, u); err != nil {
		if errors.Is(err, storage.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

// Login checks credentials and issues a fresh token
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.repo.GetUserByEmail(ctx, models.NormalizeEmail(req.Email))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if user.Role == models.RoleEvaluator && !user.Approved {
		return nil, ErrPendingApproval
	}

	return s.issueToken(ctx, user)
}

func (s *Service) issueToken(ctx context.Context, user *models.User) (*models.AuthResponse, error) {
	token, err := models.GenerateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	now := s.now()
	t := &models.AuthToken{
		Token:     token,
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.tokenTTL),
	}
	if err := s.repo.CreateToken(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to store token: %w", err)
	}

	return &models.AuthResponse{
		User:      user,
		Token:     token,
		ExpiresAt: t.ExpiresAt.Format(time.RFC3339),
	}, nil
}

// Authenticate resolves a live token to its user
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	t, err := s.repo.GetToken(ctx, token)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	if t.IsExpired(s.now()) {
		return nil, ErrUnauthenticated
	}

	user, err := s.repo.GetUser(ctx, t.UserID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// Me returns the user with their team resolved
func (s *Service) Me(ctx context.Context, userID string) (*models.MeResponse, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	resp := &models.MeResponse{User: user}
	if user.TeamID == "" {
		return resp, nil
	}

	team, err := s.repo.GetTeam(ctx, user.TeamID)
	if err != nil {
		if isNotFound(err) {
			return resp, nil
		}
		return nil, fmt.Errorf("failed to get team: %w", err)
	}

	view, err := s.teamView(ctx, team)
	if err != nil {
		return nil, err
	}
	resp.Team = view
	return resp, nil
}
