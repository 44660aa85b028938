package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/terra-clan/contest-engine/internal/models"
)

// MemoryRepository implements Repository in process memory. Used for
// development (STORAGE_DRIVER=memory) and as the fake backend in tests.
type MemoryRepository struct {
	mu sync.RWMutex

	users       map[string]models.User
	tokens      map[string]models.AuthToken
	teams       map[string]models.Team
	submissions map[string]models.Submission
	evaluations map[string]models.Evaluation
	messages    []models.ChatMessage
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:       make(map[string]models.User),
		tokens:      make(map[string]models.AuthToken),
		teams:       make(map[string]models.Team),
		submissions: make(map[string]models.Submission),
		evaluations: make(map[string]models.Evaluation),
	}
}

// Ping always succeeds
func (r *MemoryRepository) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op
func (r *MemoryRepository) Close() error {
	return nil
}

// Users

func (r *MemoryRepository) CreateUser(_ context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == u.Email {
			return ErrDuplicateEmail
		}
	}
	r.users[u.ID] = *u
	return nil
}

func (r *MemoryRepository) GetUser(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *MemoryRepository) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) ListUsers(_ context.Context, filter models.UserFilter) ([]*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var users []*models.User
	for _, u := range r.users {
		if !matchUser(u, filter) {
			continue
		}
		u := u
		users = append(users, &u)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (r *MemoryRepository) CountUsers(_ context.Context, filter models.UserFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, u := range r.users {
		if matchUser(u, filter) {
			n++
		}
	}
	return n, nil
}

func matchUser(u models.User, filter models.UserFilter) bool {
	if filter.Role != "" && u.Role != filter.Role {
		return false
	}
	if filter.Approved != nil && u.Approved != *filter.Approved {
		return false
	}
	return true
}

func (r *MemoryRepository) SetUserApproved(_ context.Context, id string, approved bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Approved = approved
	r.users[id] = u
	return nil
}

// Auth tokens

func (r *MemoryRepository) CreateToken(_ context.Context, t *models.AuthToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tokens[t.Token] = *t
	return nil
}

func (r *MemoryRepository) GetToken(_ context.Context, token string) (*models.AuthToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tokens[token]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

// Teams

func (r *MemoryRepository) CreateTeam(_ context.Context, t *models.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.teams {
		if existing.Slug == t.Slug {
			return ErrDuplicateTeamName
		}
	}

	// Creating the team links every initial member, as the lead registers with it
	for _, m := range t.Members {
		if u, ok := r.users[m]; ok {
			u.TeamID = t.ID
			r.users[m] = u
		}
	}

	stored := *t
	stored.Members = append([]string(nil), t.Members...)
	r.teams[t.ID] = stored
	return nil
}

func (r *MemoryRepository) GetTeam(_ context.Context, id string) (*models.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.teams[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyTeam(t), nil
}

func (r *MemoryRepository) GetTeamByLead(_ context.Context, leadID string) (*models.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.teams {
		if t.LeadID == leadID {
			return copyTeam(t), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) GetTeamBySlug(_ context.Context, slug string) (*models.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.teams {
		if t.Slug == slug {
			return copyTeam(t), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) AddTeamMember(_ context.Context, teamID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.teams[teamID]
	if !ok {
		return ErrNotFound
	}
	u, ok := r.users[userID]
	if !ok {
		return ErrNotFound
	}
	if u.TeamID != "" {
		return ErrAlreadyInTeam
	}
	if t.IsFull() {
		return ErrTeamFull
	}

	t.Members = append(append([]string(nil), t.Members...), userID)
	r.teams[teamID] = t
	u.TeamID = teamID
	r.users[userID] = u
	return nil
}

func copyTeam(t models.Team) *models.Team {
	t.Members = append([]string(nil), t.Members...)
	return &t
}

// Submissions

func (r *MemoryRepository) CreateSubmission(_ context.Context, s *models.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.submissions {
		if existing.TeamID == s.TeamID {
			return ErrDuplicateSubmission
		}
	}
	r.submissions[s.ID] = *copySubmission(*s)
	return nil
}

func (r *MemoryRepository) GetSubmission(_ context.Context, id string) (*models.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.submissions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copySubmission(s), nil
}

func (r *MemoryRepository) GetSubmissionByTeam(_ context.Context, teamID string) (*models.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.submissions {
		if s.TeamID == teamID {
			return copySubmission(s), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) UpdateSubmissionContent(_ context.Context, s *models.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.submissions[s.ID]
	if !ok {
		return ErrNotFound
	}
	existing.VideoLink = s.VideoLink
	existing.Topic = s.Topic
	existing.LearningOutcomes = s.LearningOutcomes
	existing.Description = s.Description
	existing.UpdatedAt = s.UpdatedAt
	r.submissions[s.ID] = existing
	return nil
}

func (r *MemoryRepository) ListSubmissions(_ context.Context, filter models.SubmissionFilter) ([]*models.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []*models.Submission
	for _, s := range r.submissions {
		if matchSubmission(s, filter) {
			items = append(items, copySubmission(s))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].SubmittedAt.Equal(items[j].SubmittedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].SubmittedAt.Before(items[j].SubmittedAt)
	})
	return items, nil
}

func (r *MemoryRepository) CountSubmissions(_ context.Context, filter models.SubmissionFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, s := range r.submissions {
		if matchSubmission(s, filter) {
			n++
		}
	}
	return n, nil
}

func matchSubmission(s models.Submission, filter models.SubmissionFilter) bool {
	if filter.Status != "" && s.Status != filter.Status {
		return false
	}
	if strings.TrimSpace(filter.EvaluatorID) != "" && !s.IsAssigned(filter.EvaluatorID) {
		return false
	}
	return true
}

func (r *MemoryRepository) MarkEvaluated(_ context.Context, submissionID string, quorum int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.submissions[submissionID]
	if !ok {
		return false, ErrNotFound
	}
	if s.Status == models.StatusEvaluated {
		return false, nil
	}

	count := 0
	for _, e := range r.evaluations {
		if e.SubmissionID == submissionID {
			count++
		}
	}
	if count < quorum {
		return false, nil
	}

	s.Status = models.StatusEvaluated
	r.submissions[submissionID] = s
	return true, nil
}

func copySubmission(s models.Submission) *models.Submission {
	s.AssignedEvaluators = append([]string(nil), s.AssignedEvaluators...)
	return &s
}

// Evaluations

func (r *MemoryRepository) CreateEvaluation(_ context.Context, e *models.Evaluation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.evaluations {
		if existing.SubmissionID == e.SubmissionID && existing.EvaluatorID == e.EvaluatorID {
			return ErrDuplicateEvaluation
		}
	}
	r.evaluations[e.ID] = *e
	return nil
}

func (r *MemoryRepository) ListEvaluations(_ context.Context, submissionID string) ([]*models.Evaluation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []*models.Evaluation
	for _, e := range r.evaluations {
		if e.SubmissionID == submissionID {
			e := e
			items = append(items, &e)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].EvaluatedAt.Equal(items[j].EvaluatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].EvaluatedAt.Before(items[j].EvaluatedAt)
	})
	return items, nil
}

func (r *MemoryRepository) CountEvaluations(_ context.Context, submissionID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, e := range r.evaluations {
		if e.SubmissionID == submissionID {
			n++
		}
	}
	return n, nil
}

// Chat

func (r *MemoryRepository) CreateChatMessage(_ context.Context, m *models.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = append(r.messages, *m)
	return nil
}

func (r *MemoryRepository) ListChatMessages(_ context.Context, limit int) ([]*models.ChatMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	start := 0
	if limit > 0 && len(r.messages) > limit {
		start = len(r.messages) - limit
	}

	items := make([]*models.ChatMessage, 0, len(r.messages)-start)
	for _, m := range r.messages[start:] {
		m := m
		items = append(items, &m)
	}
	return items, nil
}
