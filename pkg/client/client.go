package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/terra-clan/contest-engine/internal/models"
)

// Client is a Go SDK for the contest-engine API
type Client struct {
	rest *resty.Client
}

// Option configures the client
type Option func(*Client)

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.rest.SetTimeout(timeout)
	}
}

// WithToken authenticates every request with a bearer token
func WithToken(token string) Option {
	return func(c *Client) {
		c.rest.SetAuthToken(token)
	}
}

// WithHTTPClient sets a custom transport-level HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.rest = resty.NewWithClient(hc).
			SetBaseURL(c.rest.BaseURL).
			SetHeader("Content-Type", "application/json")
	}
}

// WithRetry retries requests answered with 503, which the server uses when
// a submission cannot get a panel yet
func WithRetry(count int, wait time.Duration) Option {
	return func(c *Client) {
		c.rest.
			SetRetryCount(count).
			SetRetryWaitTime(wait).
			SetRetryMaxWaitTime(wait * time.Duration(count+1)).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				return r != nil && r.StatusCode() == http.StatusServiceUnavailable
			})
	}
}

// NewClient creates a new contest-engine client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		rest: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(30*time.Second).
			SetHeader("Content-Type", "application/json"),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SetToken replaces the bearer token used for subsequent requests
func (c *Client) SetToken(token string) {
	c.rest.SetAuthToken(token)
}

// APIError is a non-success response from the API
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (HTTP %d): %s - %s", e.StatusCode, e.Code, e.Message)
}

// Retryable reports whether the request may succeed later unchanged
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusServiceUnavailable
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Register creates an account and stores its token on the client
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/register", req, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

// Login authenticates and stores the token on the client
func (c *Client) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", models.LoginRequest{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

// Me returns the current user and team
func (c *Client) Me(ctx context.Context) (*models.MeResponse, error) {
	var out models.MeResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Submit creates or updates the caller's team submission
func (c *Client) Submit(ctx context.Context, content models.SubmissionContent) (*models.SubmissionResult, error) {
	var out models.SubmissionResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/submissions", content, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TeamSubmission returns the caller's team submission
func (c *Client) TeamSubmission(ctx context.Context) (*models.SubmissionView, error) {
	var out models.SubmissionView
	if err := c.do(ctx, http.MethodGet, "/api/v1/submissions/my-team", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSubmission retrieves a submission by ID
func (c *Client) GetSubmission(ctx context.Context, id string) (*models.SubmissionView, error) {
	var out models.SubmissionView
	if err := c.do(ctx, http.MethodGet, "/api/v1/submissions/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSubmissions lists every submission (admins and evaluators)
func (c *Client) ListSubmissions(ctx context.Context) ([]models.SubmissionView, error) {
	var out struct {
		Submissions []models.SubmissionView `json:"submissions"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/submissions", nil, &out); err != nil {
		return nil, err
	}
	return out.Submissions, nil
}

// MyAssignments lists the submissions assigned to the calling evaluator
func (c *Client) MyAssignments(ctx context.Context) ([]models.SubmissionView, error) {
	var out struct {
		Submissions []models.SubmissionView `json:"submissions"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/submissions/my-assignments", nil, &out); err != nil {
		return nil, err
	}
	return out.Submissions, nil
}

// Evaluate records the calling evaluator's scores
func (c *Client) Evaluate(ctx context.Context, req models.EvaluationRequest) (*models.Evaluation, error) {
	var out models.Evaluation
	if err := c.do(ctx, http.MethodPost, "/api/v1/evaluations", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListEvaluations returns a submission's evaluations and average
func (c *Client) ListEvaluations(ctx context.Context, submissionID string) (*models.EvaluationsResponse, error) {
	var out models.EvaluationsResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/evaluations/submission/"+submissionID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Leaderboard returns the current ranking
func (c *Client) Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error) {
	var out struct {
		Leaderboard []models.LeaderboardEntry `json:"leaderboard"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/leaderboard", nil, &out); err != nil {
		return nil, err
	}
	return out.Leaderboard, nil
}

// AddTeamMember adds a registered user to the caller's team
func (c *Client) AddTeamMember(ctx context.Context, email string) (*models.TeamView, error) {
	var out models.TeamView
	if err := c.do(ctx, http.MethodPost, "/api/v1/teams/members", models.AddMemberRequest{MemberEmail: email}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListEvaluators lists evaluators by approval state (admin only)
func (c *Client) ListEvaluators(ctx context.Context, approved bool) ([]models.User, error) {
	var out struct {
		Evaluators []models.User `json:"evaluators"`
	}
	path := "/api/v1/admin/evaluators?approved=" + strconv.FormatBool(approved)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Evaluators, nil
}

// ApproveEvaluator approves an evaluator account (admin only)
func (c *Client) ApproveEvaluator(ctx context.Context, id string) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, http.MethodPost, "/api/v1/admin/evaluators/"+id+"/approve", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Stats returns the admin dashboard counters
func (c *Client) Stats(ctx context.Context) (*models.Stats, error) {
	var out models.Stats
	if err := c.do(ctx, http.MethodGet, "/api/v1/admin/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChatHistory returns the latest support chat messages, oldest first
func (c *Client) ChatHistory(ctx context.Context) ([]models.ChatMessage, error) {
	var out struct {
		Messages []models.ChatMessage `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/chat/messages", nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// Health checks if the API is healthy
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	req := c.rest.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return fmt.Errorf("failed to unmarshal response (HTTP %d): %w", resp.StatusCode(), err)
	}

	if resp.IsError() || !env.Success {
		apiErr := &APIError{StatusCode: resp.StatusCode()}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		if secs, err := strconv.Atoi(resp.Header().Get("Retry-After")); err == nil {
			apiErr.RetryAfter = time.Duration(secs) * time.Second
		}
		return apiErr
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to unmarshal response data: %w", err)
	}
	return nil
}
