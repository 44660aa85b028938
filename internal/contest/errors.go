package contest

import (
	"errors"
	"fmt"

	"github.com/terra-clan/contest-engine/internal/storage"
)

// Common errors
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotInTeam          = errors.New("user is not in a team")
	ErrTeamNotFound       = errors.New("team not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrEvaluatorNotFound  = errors.New("evaluator not found")
	ErrForbidden          = errors.New("forbidden")
	ErrNotAssigned        = errors.New("evaluator is not assigned to this submission")
	ErrAlreadyEvaluated   = errors.New("submission already evaluated by this evaluator")
	ErrEmailTaken         = errors.New("email already registered")
	ErrTeamNameTaken      = errors.New("team name already taken")
	ErrTeamFull           = errors.New("team is full")
	ErrAlreadyInTeam      = errors.New("user already in a team")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrPendingApproval    = errors.New("evaluator account pending approval")
	ErrUnauthenticated    = errors.New("unauthenticated")
)

// ValidationError carries a user-facing message for rejected input
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

func invalidf(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
