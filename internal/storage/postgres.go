package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terra-clan/contest-engine/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	// Set pool configuration
	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 25 // default
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 5 // default
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Users

const userColumns = `id, name, email, password_hash, role, approved, team_id, address, phone, qualification, experience, created_at`

// CreateUser inserts a new user
func (r *PostgresRepository) CreateUser(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.pool.Exec(ctx, query,
		u.ID,
		u.Name,
		u.Email,
		u.PasswordHash,
		string(u.Role),
		u.Approved,
		nullString(u.TeamID),
		nullString(u.Address),
		nullString(u.Phone),
		nullString(u.Qualification),
		nullString(u.Experience),
		u.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUser retrieves a user by ID
func (r *PostgresRepository) GetUser(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.getUser(ctx, query, id)
}

// GetUserByEmail retrieves a user by normalized email
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.getUser(ctx, query, email)
}

func (r *PostgresRepository) getUser(ctx context.Context, query string, arg string) (*models.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var role string
	var teamID, address, phone, qualification, experience sql.NullString

	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&role,
		&u.Approved,
		&teamID,
		&address,
		&phone,
		&qualification,
		&experience,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.Role = models.Role(role)
	u.TeamID = teamID.String
	u.Address = address.String
	u.Phone = phone.String
	u.Qualification = qualification.String
	u.Experience = experience.String
	return &u, nil
}

// userWhere builds the WHERE clause shared by ListUsers and CountUsers
func userWhere(filter models.UserFilter) (string, []interface{}) {
	where := ` WHERE 1=1`
	args := make([]interface{}, 0)
	argNum := 1

	if filter.Role != "" {
		where += fmt.Sprintf(" AND role = $%d", argNum)
		args = append(args, string(filter.Role))
		argNum++
	}

	if filter.Approved != nil {
		where += fmt.Sprintf(" AND approved = $%d", argNum)
		args = append(args, *filter.Approved)
	}

	return where, args
}

// ListUsers returns users matching filter, oldest first
func (r *PostgresRepository) ListUsers(ctx context.Context, filter models.UserFilter) ([]*models.User, error) {
	where, args := userWhere(filter)
	query := `SELECT ` + userColumns + ` FROM users` + where + ` ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// CountUsers counts users matching filter
func (r *PostgresRepository) CountUsers(ctx context.Context, filter models.UserFilter) (int64, error) {
	where, args := userWhere(filter)

	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// SetUserApproved flips the approval flag
func (r *PostgresRepository) SetUserApproved(ctx context.Context, id string, approved bool) error {
	result, err := r.pool.Exec(ctx, `UPDATE users SET approved = $2 WHERE id = $1`, id, approved)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Auth tokens

// CreateToken stores an issued token
func (r *PostgresRepository) CreateToken(ctx context.Context, t *models.AuthToken) error {
	query := `
		INSERT INTO auth_tokens (token, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := r.pool.Exec(ctx, query, t.Token, t.UserID, t.CreatedAt, t.ExpiresAt); err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}

	return nil
}

// GetToken retrieves a token record
func (r *PostgresRepository) GetToken(ctx context.Context, token string) (*models.AuthToken, error) {
	query := `SELECT token, user_id, created_at, expires_at FROM auth_tokens WHERE token = $1`

	var t models.AuthToken
	err := r.pool.QueryRow(ctx, query, token).Scan(&t.Token, &t.UserID, &t.CreatedAt, &t.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	return &t, nil
}

// Teams

const teamColumns = `id, name, slug, lead_id, members, created_at`

// CreateTeam inserts the team and links its initial members in one transaction
func (r *PostgresRepository) CreateTeam(ctx context.Context, t *models.Team) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO teams (` + teamColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := tx.Exec(ctx, query, t.ID, t.Name, t.Slug, t.LeadID, t.Members, t.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateTeamName
		}
		return fmt.Errorf("failed to create team: %w", err)
	}

	if _, err := tx.Exec(ctx, `UPDATE users SET team_id = $1 WHERE id = ANY($2)`, t.ID, t.Members); err != nil {
		return fmt.Errorf("failed to link team members: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit team: %w", err)
	}

	return nil
}

// GetTeam retrieves a team by ID
func (r *PostgresRepository) GetTeam(ctx context.Context, id string) (*models.Team, error) {
	return r.getTeam(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = $1`, id)
}

// GetTeamByLead retrieves the team led by a user
func (r *PostgresRepository) GetTeamByLead(ctx context.Context, leadID string) (*models.Team, error) {
	return r.getTeam(ctx, `SELECT `+teamColumns+` FROM teams WHERE lead_id = $1`, leadID)
}

// GetTeamBySlug retrieves a team by its name slug
func (r *PostgresRepository) GetTeamBySlug(ctx context.Context, slug string) (*models.Team, error) {
	return r.getTeam(ctx, `SELECT `+teamColumns+` FROM teams WHERE slug = $1`, slug)
}

func (r *PostgresRepository) getTeam(ctx context.Context, query, arg string) (*models.Team, error) {
	var t models.Team
	err := r.pool.QueryRow(ctx, query, arg).Scan(&t.ID, &t.Name, &t.Slug, &t.LeadID, &t.Members, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return &t, nil
}

// AddTeamMember claims the user and appends it to the team. Both updates are
// conditional, so concurrent adds cannot exceed the member cap.
func (r *PostgresRepository) AddTeamMember(ctx context.Context, teamID, userID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := tx.Exec(ctx, `UPDATE users SET team_id = $2 WHERE id = $1 AND team_id IS NULL`, userID, teamID)
	if err != nil {
		return fmt.Errorf("failed to link user: %w", err)
	}
	if result.RowsAffected() == 0 {
		if exists, err := rowExists(ctx, tx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID); err != nil {
			return err
		} else if !exists {
			return ErrNotFound
		}
		return ErrAlreadyInTeam
	}

	result, err = tx.Exec(ctx, `
		UPDATE teams SET members = array_append(members, $2)
		WHERE id = $1 AND cardinality(members) < $3
	`, teamID, userID, models.MaxTeamMembers)
	if err != nil {
		return fmt.Errorf("failed to add team member: %w", err)
	}
	if result.RowsAffected() == 0 {
		if exists, err := rowExists(ctx, tx, `SELECT EXISTS (SELECT 1 FROM teams WHERE id = $1)`, teamID); err != nil {
			return err
		} else if !exists {
			return ErrNotFound
		}
		return ErrTeamFull
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit team member: %w", err)
	}

	return nil
}

func rowExists(ctx context.Context, tx pgx.Tx, query, arg string) (bool, error) {
	var exists bool
	if err := tx.QueryRow(ctx, query, arg).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return exists, nil
}

// Submissions

const submissionColumns = `id, team_id, video_link, topic, learning_outcomes, description, status, assigned_evaluators, submitted_at, updated_at, deadline`

// CreateSubmission inserts a new submission
func (r *PostgresRepository) CreateSubmission(ctx context.Context, s *models.Submission) error {
	query := `
		INSERT INTO submissions (` + submissionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.pool.Exec(ctx, query,
		s.ID,
		s.TeamID,
		s.VideoLink,
		s.Topic,
		s.LearningOutcomes,
		s.Description,
		string(s.Status),
		s.AssignedEvaluators,
		s.SubmittedAt,
		s.UpdatedAt,
		s.Deadline,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSubmission
		}
		return fmt.Errorf("failed to create submission: %w", err)
	}

	return nil
}

// GetSubmission retrieves a submission by ID
func (r *PostgresRepository) GetSubmission(ctx context.Context, id string) (*models.Submission, error) {
	return r.getSubmission(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id)
}

// GetSubmissionByTeam retrieves the submission owned by a team
func (r *PostgresRepository) GetSubmissionByTeam(ctx context.Context, teamID string) (*models.Submission, error) {
	return r.getSubmission(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE team_id = $1`, teamID)
}

func (r *PostgresRepository) getSubmission(ctx context.Context, query, arg string) (*models.Submission, error) {
	s, err := scanSubmission(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return s, nil
}

func scanSubmission(row rowScanner) (*models.Submission, error) {
	var s models.Submission
	var status string

	err := row.Scan(
		&s.ID,
		&s.TeamID,
		&s.VideoLink,
		&s.Topic,
		&s.LearningOutcomes,
		&s.Description,
		&status,
		&s.AssignedEvaluators,
		&s.SubmittedAt,
		&s.UpdatedAt,
		&s.Deadline,
	)
	if err != nil {
		return nil, err
	}

	s.Status = models.SubmissionStatus(status)
	return &s, nil
}

// UpdateSubmissionContent overwrites content fields, leaving status and panel alone
func (r *PostgresRepository) UpdateSubmissionContent(ctx context.Context, s *models.Submission) error {
	query := `
		UPDATE submissions
		SET video_link = $2, topic = $3, learning_outcomes = $4, description = $5, updated_at = $6
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, s.ID, s.VideoLink, s.Topic, s.LearningOutcomes, s.Description, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update submission: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// submissionWhere builds the WHERE clause shared by list and count
func submissionWhere(filter models.SubmissionFilter) (string, []interface{}) {
	where := ` WHERE 1=1`
	args := make([]interface{}, 0)
	argNum := 1

	if filter.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, string(filter.Status))
		argNum++
	}

	if filter.EvaluatorID != "" {
		where += fmt.Sprintf(" AND $%d = ANY(assigned_evaluators)", argNum)
		args = append(args, filter.EvaluatorID)
	}

	return where, args
}

// ListSubmissions returns submissions matching filter in submission order
func (r *PostgresRepository) ListSubmissions(ctx context.Context, filter models.SubmissionFilter) ([]*models.Submission, error) {
	where, args := submissionWhere(filter)
	query := `SELECT ` + submissionColumns + ` FROM submissions` + where + ` ORDER BY submitted_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var submissions []*models.Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		submissions = append(submissions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating submissions: %w", err)
	}

	return submissions, nil
}

// CountSubmissions counts submissions matching filter
func (r *PostgresRepository) CountSubmissions(ctx context.Context, filter models.SubmissionFilter) (int64, error) {
	where, args := submissionWhere(filter)

	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM submissions`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count submissions: %w", err)
	}
	return n, nil
}

// MarkEvaluated flips status in a single statement whose count subquery sees
// every evaluation committed before it runs
func (r *PostgresRepository) MarkEvaluated(ctx context.Context, submissionID string, quorum int) (bool, error) {
	query := `
		UPDATE submissions
		SET status = 'evaluated'
		WHERE id = $1
		  AND status <> 'evaluated'
		  AND (SELECT COUNT(*) FROM evaluations WHERE submission_id = $1) >= $2
	`

	result, err := r.pool.Exec(ctx, query, submissionID, quorum)
	if err != nil {
		return false, fmt.Errorf("failed to mark submission evaluated: %w", err)
	}

	if result.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM submissions WHERE id = $1)`, submissionID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check submission: %w", err)
	}
	if !exists {
		return false, ErrNotFound
	}

	return false, nil
}

// Evaluations

// CreateEvaluation inserts an evaluation; the unique key rejects a second one per evaluator
func (r *PostgresRepository) CreateEvaluation(ctx context.Context, e *models.Evaluation) error {
	criteriaJSON, err := json.Marshal(e.Criteria)
	if err != nil {
		return fmt.Errorf("failed to marshal criteria: %w", err)
	}

	query := `
		INSERT INTO evaluations (id, submission_id, evaluator_id, criteria, total_score, comments, evaluated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.pool.Exec(ctx, query,
		e.ID,
		e.SubmissionID,
		e.EvaluatorID,
		criteriaJSON,
		e.TotalScore,
		e.Comments,
		e.EvaluatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEvaluation
		}
		return fmt.Errorf("failed to create evaluation: %w", err)
	}

	return nil
}

// ListEvaluations returns a submission's evaluations, oldest first
func (r *PostgresRepository) ListEvaluations(ctx context.Context, submissionID string) ([]*models.Evaluation, error) {
	query := `
		SELECT id, submission_id, evaluator_id, criteria, total_score, comments, evaluated_at
		FROM evaluations
		WHERE submission_id = $1
		ORDER BY evaluated_at ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	defer rows.Close()

	var evaluations []*models.Evaluation
	for rows.Next() {
		var e models.Evaluation
		var criteriaJSON []byte

		err := rows.Scan(
			&e.ID,
			&e.SubmissionID,
			&e.EvaluatorID,
			&criteriaJSON,
			&e.TotalScore,
			&e.Comments,
			&e.EvaluatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}

		if err := json.Unmarshal(criteriaJSON, &e.Criteria); err != nil {
			return nil, fmt.Errorf("failed to unmarshal criteria: %w", err)
		}

		evaluations = append(evaluations, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating evaluations: %w", err)
	}

	return evaluations, nil
}

// CountEvaluations counts a submission's evaluations
func (r *PostgresRepository) CountEvaluations(ctx context.Context, submissionID string) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM evaluations WHERE submission_id = $1`, submissionID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count evaluations: %w", err)
	}
	return n, nil
}

// Chat

// CreateChatMessage stores a chat message
func (r *PostgresRepository) CreateChatMessage(ctx context.Context, m *models.ChatMessage) error {
	query := `
		INSERT INTO chat_messages (id, sender_id, sender_name, sender_role, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if _, err := r.pool.Exec(ctx, query, m.ID, m.SenderID, m.SenderName, string(m.SenderRole), m.Message, m.CreatedAt); err != nil {
		return fmt.Errorf("failed to create chat message: %w", err)
	}

	return nil
}

// ListChatMessages returns the latest limit messages, oldest first
func (r *PostgresRepository) ListChatMessages(ctx context.Context, limit int) ([]*models.ChatMessage, error) {
	query := `
		SELECT id, sender_id, sender_name, sender_role, message, created_at
		FROM (
			SELECT id, sender_id, sender_name, sender_role, message, created_at
			FROM chat_messages
			ORDER BY created_at DESC
			LIMIT $1
		) latest
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		var role string
		if err := rows.Scan(&m.ID, &m.SenderID, &m.SenderName, &role, &m.Message, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		m.SenderRole = models.Role(role)
		messages = append(messages, &m)
	}

	return messages, rows.Err()
}

// Helper functions for nullable values

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
