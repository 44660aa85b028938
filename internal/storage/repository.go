package storage

import (
	"context"
	"errors"

	"github.com/terra-clan/contest-engine/internal/models"
)

// Errors returned by every Repository implementation
var (
	ErrNotFound            = errors.New("record not found")
	ErrDuplicateEmail      = errors.New("email already registered")
	ErrDuplicateTeamName   = errors.New("team name already taken")
	ErrDuplicateSubmission = errors.New("team already has a submission")
	ErrDuplicateEvaluation = errors.New("evaluator already evaluated this submission")
	ErrTeamFull            = errors.New("team is full")
	ErrAlreadyInTeam       = errors.New("user already in a team")
)

// Repository defines the interface for contest persistence
type Repository interface {
	// Users
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context, filter models.UserFilter) ([]*models.User, error)
	CountUsers(ctx context.Context, filter models.UserFilter) (int64, error)
	SetUserApproved(ctx context.Context, id string, approved bool) error

	// Auth tokens
	CreateToken(ctx context.Context, t *models.AuthToken) error
	GetToken(ctx context.Context, token string) (*models.AuthToken, error)

	// Teams
	// CreateTeam stores the team and links each initial member's teamId.
	CreateTeam(ctx context.Context, t *models.Team) error
	GetTeam(ctx context.Context, id string) (*models.Team, error)
	GetTeamByLead(ctx context.Context, leadID string) (*models.Team, error)
	GetTeamBySlug(ctx context.Context, slug string) (*models.Team, error)
	// AddTeamMember links userID to the team only if the user has no team
	// and the team has fewer than models.MaxTeamMembers members.
	AddTeamMember(ctx context.Context, teamID, userID string) error

	// Submissions
	CreateSubmission(ctx context.Context, s *models.Submission) error
	GetSubmission(ctx context.Context, id string) (*models.Submission, error)
	GetSubmissionByTeam(ctx context.Context, teamID string) (*models.Submission, error)
	// UpdateSubmissionContent overwrites the content fields and updatedAt only.
	UpdateSubmissionContent(ctx context.Context, s *models.Submission) error
	ListSubmissions(ctx context.Context, filter models.SubmissionFilter) ([]*models.Submission, error)
	CountSubmissions(ctx context.Context, filter models.SubmissionFilter) (int64, error)
	// MarkEvaluated sets status to evaluated iff the stored evaluation count
	// for the submission is at least quorum. Reports whether it did.
	MarkEvaluated(ctx context.Context, submissionID string, quorum int) (bool, error)

	// Evaluations
	CreateEvaluation(ctx context.Context, e *models.Evaluation) error
	ListEvaluations(ctx context.Context, submissionID string) ([]*models.Evaluation, error)
	CountEvaluations(ctx context.Context, submissionID string) (int64, error)

	// Chat
	CreateChatMessage(ctx context.Context, m *models.ChatMessage) error
	ListChatMessages(ctx context.Context, limit int) ([]*models.ChatMessage, error)

	// Health
	Ping(ctx context.Context) error
	Close() error
}
