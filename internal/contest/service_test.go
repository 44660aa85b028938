package contest

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/terra-clan/contest-engine/internal/models"
	"github.com/terra-clan/contest-engine/internal/panel"
	"github.com/terra-clan/contest-engine/internal/rubric"
	"github.com/terra-clan/contest-engine/internal/storage"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	svc   *Service
	repo  *storage.MemoryRepository
	clock *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := storage.NewMemoryRepository()
	clock := &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc := NewService(repo, Options{
		Selector: panel.NewSelector(rand.NewPCG(7, 11)),
		Now:      clock.Now,
	})

	return &fixture{t: t, ctx: context.Background(), svc: svc, repo: repo, clock: clock}
}

// evaluator provisions an evaluator and returns its id
func (f *fixture) evaluator(name string, approved bool) string {
	f.t.Helper()

	email := fmt.Sprintf("%s@judges.test", name)
	created, err := f.svc.ProvisionUser(f.ctx, name, email, "password", models.RoleEvaluator, approved)
	require.NoError(f.t, err)
	require.True(f.t, created)

	u, err := f.repo.GetUserByEmail(f.ctx, email)
	require.NoError(f.t, err)
	return u.ID
}

func (f *fixture) evaluators(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = f.evaluator(fmt.Sprintf("judge%d", i), true)
	}
	return ids
}

func (f *fixture) admin() string {
	f.t.Helper()

	created, err := f.svc.ProvisionUser(f.ctx, "Admin", "admin@contest.test", "password", models.RoleAdmin, true)
	require.NoError(f.t, err)
	require.True(f.t, created)

	u, err := f.repo.GetUserByEmail(f.ctx, "admin@contest.test")
	require.NoError(f.t, err)
	return u.ID
}

// lead registers a participant leading a team of the given name
func (f *fixture) lead(team string) string {
	f.t.Helper()

	resp, err := f.svc.Register(f.ctx, models.RegisterRequest{
		Name:     team + " Lead",
		Email:    team + "-lead@teams.test",
		Password: "secret1",
		TeamName: team,
	})
	require.NoError(f.t, err)
	require.NotEmpty(f.t, resp.User.TeamID)
	return resp.User.ID
}

func (f *fixture) participant(name string) string {
	f.t.Helper()

	resp, err := f.svc.Register(f.ctx, models.RegisterRequest{
		Name:     name,
		Email:    name + "@teams.test",
		Password: "secret1",
	})
	require.NoError(f.t, err)
	return resp.User.ID
}

func (f *fixture) submit(userID, topic string) *models.SubmissionView {
	f.t.Helper()

	res, err := f.svc.CreateOrUpdateSubmission(f.ctx, userID, content(topic))
	require.NoError(f.t, err)
	return res.Submission
}

func (f *fixture) evaluate(evaluatorID, submissionID string, total float64) {
	f.t.Helper()

	_, err := f.svc.RecordEvaluation(f.ctx, evaluatorID, models.EvaluationRequest{
		SubmissionID: submissionID,
		Criteria:     criteriaWithTotal(total),
	})
	require.NoError(f.t, err)
}

func content(topic string) models.SubmissionContent {
	return models.SubmissionContent{
		VideoLink:        "https://video.test/" + topic,
		Topic:            topic,
		LearningOutcomes: "Understand " + topic,
		Description:      "About " + topic,
	}
}

// criteriaWithTotal fills criteria in rubric order until total is reached
func criteriaWithTotal(total float64) rubric.Criteria {
	remaining := total
	scores := make(map[string]float64)
	for _, b := range rubric.Bounds() {
		v := b.Max
		if remaining < v {
			v = remaining
		}
		scores[b.Name] = v
		remaining -= v
	}

	return rubric.Criteria{
		RelevanceToLOs:          scores["relevanceToLOs"],
		InnovationCreativity:    scores["innovationCreativity"],
		ClarityAccessibility:    scores["clarityAccessibility"],
		Depth:                   scores["depth"],
		InteractivityEngagement: scores["interactivityEngagement"],
		UseOfTechnology:         scores["useOfTechnology"],
		ScalabilityAdaptability: scores["scalabilityAdaptability"],
		EthicalStandards:        scores["ethicalStandards"],
		PracticalApplication:    scores["practicalApplication"],
		VideoQuality:            scores["videoQuality"],
	}
}

func TestCriteriaWithTotalHelper(t *testing.T) {
	for _, total := range []float64{0, 70, 80, 90, 100} {
		require.Equal(t, total, rubric.ComputeTotal(criteriaWithTotal(total)))
		require.NoError(t, rubric.Validate(criteriaWithTotal(total)))
	}
}
