package client

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/contest-engine/internal/api"
	"github.com/terra-clan/contest-engine/internal/chat"
	"github.com/terra-clan/contest-engine/internal/config"
	"github.com/terra-clan/contest-engine/internal/contest"
	"github.com/terra-clan/contest-engine/internal/models"
	"github.com/terra-clan/contest-engine/internal/panel"
	"github.com/terra-clan/contest-engine/internal/storage"
)

func newServer(t *testing.T) (*httptest.Server, *contest.Service) {
	t.Helper()

	repo := storage.NewMemoryRepository()
	svc := contest.NewService(repo, contest.Options{Selector: panel.NewSelector(rand.NewPCG(1, 2))})
	server := api.NewServer(config.ServerConfig{}, svc, chat.NewHub(repo, chat.NewLocalBroadcaster(), nil), nil, nil)

	srv := httptest.NewServer(server.Router())
	t.Cleanup(srv.Close)
	return srv, svc
}

func TestRegisterStoresToken(t *testing.T) {
	srv, _ := newServer(t)
	ctx := context.Background()
	c := NewClient(srv.URL)

	require.NoError(t, c.Health(ctx))

	auth, err := c.Register(ctx, models.RegisterRequest{
		Name: "Lead", Email: "lead@teams.test", Password: "secret1", TeamName: "Owls",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, auth.Token)

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, auth.User.ID, me.User.ID)
	require.NotNil(t, me.Team)
	assert.Equal(t, "Owls", me.Team.Name)
}

func TestAPIErrorCarriesRetryAfter(t *testing.T) {
	srv, _ := newServer(t)
	ctx := context.Background()
	c := NewClient(srv.URL)

	_, err := c.Register(ctx, models.RegisterRequest{
		Name: "Lead", Email: "lead@teams.test", Password: "secret1", TeamName: "Owls",
	})
	require.NoError(t, err)

	_, err = c.Submit(ctx, models.SubmissionContent{
		VideoLink: "https://video.test/a", Topic: "A", LearningOutcomes: "B",
	})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, "insufficient_evaluators", apiErr.Code)
	assert.Equal(t, time.Minute, apiErr.RetryAfter)
	assert.True(t, apiErr.Retryable())
}

func TestUnauthenticatedCall(t *testing.T) {
	srv, _ := newServer(t)

	_, err := NewClient(srv.URL, WithToken("bogus")).Me(context.Background())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.False(t, apiErr.Retryable())
}

func TestRetryOnServiceUnavailable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"success":false,"error":{"code":"insufficient_evaluators","message":"later"}}`))
			return
		}
		w.Write([]byte(`{"success":true,"data":{"leaderboard":[{"teamName":"Owls","avgScore":80}],"total":1}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, WithRetry(3, 10*time.Millisecond))
	entries, err := c.Leaderboard(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Owls", entries[0].TeamName)
	assert.Equal(t, int32(3), calls.Load())
}
