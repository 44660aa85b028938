package contest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/contest-engine/internal/models"
)

func TestRegisterParticipantWithTeam(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Register(f.ctx, models.RegisterRequest{
		Name:     "Ada",
		Email:    "  Ada@Example.TEST ",
		Password: "secret1",
		TeamName: "The Analysts",
	})
	require.NoError(t, err)

	assert.Equal(t, "ada@example.test", resp.User.Email)
	assert.Equal(t, models.RoleParticipant, resp.User.Role)
	assert.True(t, resp.User.Approved)
	assert.Len(t, resp.Token, 48)
	assert.NotEqual(t, "secret1", resp.User.PasswordHash)

	me, err := f.svc.Me(f.ctx, resp.User.ID)
	require.NoError(t, err)
	require.NotNil(t, me.Team)
	assert.Equal(t, "The Analysts", me.Team.Name)
	assert.Equal(t, "the-analysts", me.Team.Slug)
	require.NotNil(t, me.Team.Lead)
	assert.Equal(t, resp.User.ID, me.Team.Lead.ID)
	assert.Len(t, me.Team.MemberList, 1)
}

func TestRegisterRejections(t *testing.T) {
	f := newFixture(t)
	f.lead("alpha")

	tests := []struct {
		name string
		req  models.RegisterRequest
		want error
	}{
		{"missing name", models.RegisterRequest{Email: "a@b.test", Password: "secret1"}, ErrInvalidInput},
		{"short password", models.RegisterRequest{Name: "A", Email: "a@b.test", Password: "123"}, ErrInvalidInput},
		{"bad email", models.RegisterRequest{Name: "A", Email: "nobody", Password: "secret1"}, ErrInvalidInput},
		{"admin role", models.RegisterRequest{Name: "A", Email: "a@b.test", Password: "secret1", Role: models.RoleAdmin}, ErrInvalidInput},
		{"unknown role", models.RegisterRequest{Name: "A", Email: "a@b.test", Password: "secret1", Role: "judge"}, ErrInvalidInput},
		{"duplicate email", models.RegisterRequest{Name: "A", Email: "ALPHA-lead@teams.test", Password: "secret1"}, ErrEmailTaken},
		{"duplicate team", models.RegisterRequest{Name: "A", Email: "a@b.test", Password: "secret1", TeamName: "  ALPHA "}, ErrTeamNameTaken},
		{"symbol-only team", models.RegisterRequest{Name: "A", Email: "a@b.test", Password: "secret1", TeamName: "!!!"}, ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Register(f.ctx, tt.req)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLogin(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Register(f.ctx, models.RegisterRequest{
		Name:     "Grace",
		Email:    "grace@judges.test",
		Password: "secret1",
		Role:     models.RoleEvaluator,
	})
	require.NoError(t, err)

	_, err = f.svc.Login(f.ctx, models.LoginRequest{Email: "grace@judges.test", Password: "secret1"})
	require.ErrorIs(t, err, ErrPendingApproval)

	_, err = f.svc.Login(f.ctx, models.LoginRequest{Email: "grace@judges.test", Password: "wrong-pass"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(f.ctx, models.LoginRequest{Email: "nobody@judges.test", Password: "secret1"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	grace, err := f.repo.GetUserByEmail(f.ctx, "grace@judges.test")
	require.NoError(t, err)
	_, err = f.svc.ApproveEvaluator(f.ctx, f.admin(), grace.ID)
	require.NoError(t, err)

	resp, err := f.svc.Login(f.ctx, models.LoginRequest{Email: "GRACE@judges.test", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, grace.ID, resp.User.ID)
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Register(f.ctx, models.RegisterRequest{Name: "Ada", Email: "ada@x.test", Password: "secret1"})
	require.NoError(t, err)

	user, err := f.svc.Authenticate(f.ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, user.ID)

	_, err = f.svc.Authenticate(f.ctx, "")
	require.ErrorIs(t, err, ErrUnauthenticated)

	_, err = f.svc.Authenticate(f.ctx, "deadbeef")
	require.ErrorIs(t, err, ErrUnauthenticated)

	f.clock.Advance(DefaultTokenTTL + time.Second)
	_, err = f.svc.Authenticate(f.ctx, resp.Token)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestProvisionUserIsIdempotent(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.ProvisionUser(f.ctx, "Root", "root@x.test", "password", models.RoleAdmin, true)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.svc.ProvisionUser(f.ctx, "Root Again", "ROOT@x.test", "password", models.RoleAdmin, true)
	require.NoError(t, err)
	assert.False(t, created)

	_, err = f.svc.ProvisionUser(f.ctx, "Bad", "bad@x.test", "password", "overlord", true)
	require.ErrorIs(t, err, ErrInvalidInput)
}
