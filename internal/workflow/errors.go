package workflow

import (
	"errors"
	"fmt"
)

// 业务错误：调用方通过 errors.Is 区分，均不会修改 Job/Candidate 状态。
var (
	ErrNotEligible    = errors.New("candidate does not meet the eligibility threshold")
	ErrAlreadyApplied = errors.New("candidate has already applied to this job")
	ErrNotApplied     = errors.New("candidate must apply before taking the assessment")
	ErrInvalidStatus  = errors.New("invalid job status")
	ErrNotFound       = errors.New("record not found")
	ErrForbidden      = errors.New("operation not permitted")
	ErrInvalidJob     = errors.New("invalid job")
	ErrInvalidAnswers = errors.New("invalid answer set")
	ErrInvalidProfile = errors.New("invalid profile")
	ErrPersistence    = errors.New("persistence failure")
)

// PersistenceError wraps an opaque storage failure with the operation that produced it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrPersistence) match any PersistenceError.
func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// Persistence builds a PersistenceError unless err is nil or already a workflow error.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAlreadyApplied) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// DegradedError reports a fan-out failure after the primary mutation committed.
type DegradedError struct {
	Event EventKind
	Err   error
}

func (e *DegradedError) Error() string {
	return fmt.Sprintf("notification fan-out for %s failed: %v", e.Event, e.Err)
}

func (e *DegradedError) Unwrap() error { return e.Err }

func invalidJob(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidJob, reason)
}

func invalidAnswers(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidAnswers, reason)
}
