package contest

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/contest-engine/internal/models"
)

func TestTeamMemberCap(t *testing.T) {
	f := newFixture(t)
	lead := f.lead("alpha")

	for i := 1; i < models.MaxTeamMembers; i++ {
		name := fmt.Sprintf("member%d", i)
		f.participant(name)
		view, err := f.svc.AddTeamMember(f.ctx, lead, name+"@teams.test")
		require.NoError(t, err)
		assert.Len(t, view.MemberList, i+1)
	}

	f.participant("extra")
	_, err := f.svc.AddTeamMember(f.ctx, lead, "extra@teams.test")
	require.ErrorIs(t, err, ErrTeamFull)

	extra, err := f.repo.GetUserByEmail(f.ctx, "extra@teams.test")
	require.NoError(t, err)
	assert.Empty(t, extra.TeamID)
}

func TestAddTeamMemberRejections(t *testing.T) {
	f := newFixture(t)
	lead := f.lead("alpha")
	f.lead("beta")
	loner := f.participant("loner")

	_, err := f.svc.AddTeamMember(f.ctx, lead, "nobody@teams.test")
	require.ErrorIs(t, err, ErrUserNotFound)

	_, err = f.svc.AddTeamMember(f.ctx, lead, "beta-lead@teams.test")
	require.ErrorIs(t, err, ErrAlreadyInTeam)

	_, err = f.svc.AddTeamMember(f.ctx, loner, "alpha-lead@teams.test")
	require.ErrorIs(t, err, ErrTeamNotFound)

	_, err = f.svc.AddTeamMember(f.ctx, lead, " ")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestApproveEvaluator(t *testing.T) {
	f := newFixture(t)
	admin := f.admin()
	pending := f.evaluator("pending", false)
	lead := f.lead("alpha")

	_, err := f.svc.ApproveEvaluator(f.ctx, lead, pending)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.ApproveEvaluator(f.ctx, admin, lead)
	require.ErrorIs(t, err, ErrEvaluatorNotFound)

	_, err = f.svc.ApproveEvaluator(f.ctx, admin, "ghost")
	require.ErrorIs(t, err, ErrEvaluatorNotFound)

	for i := 0; i < 2; i++ {
		u, err := f.svc.ApproveEvaluator(f.ctx, admin, pending)
		require.NoError(t, err)
		assert.True(t, u.Approved)
	}

	approved, err := f.svc.ListEvaluators(f.ctx, true)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, pending, approved[0].ID)

	waiting, err := f.svc.ListEvaluators(f.ctx, false)
	require.NoError(t, err)
	assert.Empty(t, waiting)
}

func TestApprovalDoesNotChangeExistingPanels(t *testing.T) {
	f := newFixture(t)
	admin := f.admin()
	f.evaluators(3)
	sub := f.submit(f.lead("alpha"), "fractions")

	late := f.evaluator("late", false)
	_, err := f.svc.ApproveEvaluator(f.ctx, admin, late)
	require.NoError(t, err)

	stored, err := f.svc.GetSubmission(f.ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.AssignedEvaluators, stored.AssignedEvaluators)
	assert.False(t, stored.IsAssigned(late))
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	judges := f.evaluators(3)
	f.evaluator("pending", false)

	a := f.submit(f.lead("alpha"), "fractions")
	f.submit(f.lead("beta"), "decimals")
	for _, j := range judges {
		f.evaluate(j, a.ID, 50)
	}

	stats, err := f.svc.Stats(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, &models.Stats{
		TotalEvaluators:    3,
		PendingEvaluators:  1,
		TotalSubmissions:   2,
		PendingSubmissions: 0,
		UnderReview:        1,
		Evaluated:          1,
	}, stats)
}
