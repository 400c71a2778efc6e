package repositories

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrProductNotFound is returned when a requested product does not exist.
var ErrProductNotFound = errors.New("product not found")

// CommitReason classifies why staged changes could not be saved.
type CommitReason string

const (
	ReasonConflict    CommitReason = "conflict"
	ReasonUnavailable CommitReason = "unavailable"
	ReasonInvalid     CommitReason = "invalid"
)

// Targets for errors.Is against a *CommitError.
var (
	ErrConflict    = errors.New("changes conflict with stored data")
	ErrUnavailable = errors.New("store unavailable")
	ErrInvalid     = errors.New("changes rejected by store")
)

// CommitError is returned by SaveChanges when the transaction fails. Nothing
// staged in the failed unit of work has been persisted.
type CommitError struct {
	Reason CommitReason
	Err    error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("failed to save changes (%s): %v", e.Reason, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel matching the error's reason.
func (e *CommitError) Is(target error) bool {
	switch e.Reason {
	case ReasonConflict:
		return target == ErrConflict
	case ReasonUnavailable:
		return target == ErrUnavailable
	case ReasonInvalid:
		return target == ErrInvalid
	}
	return false
}

func newCommitError(err error) *CommitError {
	reason := ReasonInvalid
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, gorm.ErrForeignKeyViolated):
		reason = ReasonConflict
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone):
		reason = ReasonUnavailable
	}
	return &CommitError{Reason: reason, Err: err}
}
