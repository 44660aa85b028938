package contest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/terra-clan/contest-engine/internal/metrics"
	"github.com/terra-clan/contest-engine/internal/models"
	"github.com/terra-clan/contest-engine/internal/panel"
	"github.com/terra-clan/contest-engine/internal/storage"
)

// Defaults applied when Options leaves a field zero
const (
	DefaultTokenTTL         = 7 * 24 * time.Hour
	DefaultSubmissionWindow = 30 * 24 * time.Hour
)

// Manager defines the competition operations exposed over HTTP
type Manager interface {
	// Accounts
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	Authenticate(ctx context.Context, token string) (*models.User, error)
	Me(ctx context.Context, userID string) (*models.MeResponse, error)

	// Submissions
	CreateOrUpdateSubmission(ctx context.Context, userID string, input models.SubmissionContent) (*models.SubmissionResult, error)
	GetSubmissionForTeam(ctx context.Context, userID string) (*models.SubmissionView, error)
	GetSubmission(ctx context.Context, id string) (*models.SubmissionView, error)
	ListSubmissions(ctx context.Context) ([]*models.SubmissionView, error)
	ListAssignedTo(ctx context.Context, evaluatorID string) ([]*models.SubmissionView, error)

	// Evaluations
	RecordEvaluation(ctx context.Context, evaluatorID string, req models.EvaluationRequest) (*models.Evaluation, error)
	AverageScore(ctx context.Context, submissionID string) (float64, error)
	ListEvaluations(ctx context.Context, submissionID string) (*models.EvaluationsResponse, error)
	Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error)

	// Teams and admin
	AddTeamMember(ctx context.Context, leadID, memberEmail string) (*models.TeamView, error)
	ApproveEvaluator(ctx context.Context, adminID, userID string) (*models.User, error)
	ListEvaluators(ctx context.Context, approved bool) ([]*models.User, error)
	Stats(ctx context.Context) (*models.Stats, error)

	Ping(ctx context.Context) error
}

// Options holds optional dependencies and tunables for Service
type Options struct {
	TokenTTL         time.Duration
	SubmissionWindow time.Duration
	Selector         *panel.Selector
	Metrics          *metrics.Metrics
	Logger           *slog.Logger
	Now              func() time.Time
}

// Service implements Manager on top of a storage.Repository
type Service struct {
	repo     storage.Repository
	selector *panel.Selector
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time

	tokenTTL         time.Duration
	submissionWindow time.Duration
}

// NewService creates a new Service
func NewService(repo storage.Repository, opts Options) *Service {
	s := &Service{
		repo:             repo,
		selector:         opts.Selector,
		metrics:          opts.Metrics,
		logger:           opts.Logger,
		now:              opts.Now,
		tokenTTL:         opts.TokenTTL,
		submissionWindow: opts.SubmissionWindow,
	}

	if s.selector == nil {
		s.selector = panel.NewSelector(nil)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.tokenTTL <= 0 {
		s.tokenTTL = DefaultTokenTTL
	}
	if s.submissionWindow <= 0 {
		s.submissionWindow = DefaultSubmissionWindow
	}

	return s
}

// Ping checks store connectivity
func (s *Service) Ping(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// summaries resolves user ids to their public identity, skipping unknown ids
func (s *Service) summaries(ctx context.Context, ids []string) ([]models.UserSummary, error) {
	out := make([]models.UserSummary, 0, len(ids))
	for _, id := range ids {
		u, err := s.repo.GetUser(ctx, id)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("failed to resolve user %s: %w", id, err)
		}
		out = append(out, u.Summary())
	}
	return out, nil
}
