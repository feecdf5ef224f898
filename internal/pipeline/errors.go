package pipeline

import (
	"errors"
	"fmt"
)

// ─── Sentinel errors ─────────────────────────────────────────────────────────

// ErrNotFound is returned when a referenced phase, workflow, stage or work
// item does not exist. Callers match it with errors.Is.
var ErrNotFound = errors.New("not found")

// ErrStaleWorkItem is returned by WorkItemStore implementations when the
// optimistic version check fails on update. The TransitionService surfaces
// it to callers as a ConflictError.
var ErrStaleWorkItem = errors.New("work item was modified concurrently")

// notFoundf wraps ErrNotFound with the identity of the missing record.
func notFoundf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

// ─── Typed errors ────────────────────────────────────────────────────────────

// IntegrityError reports a violated configuration invariant: a stage outside
// its claimed workflow, a workflow without a phase, or an unresolvable
// cascade chain.
type IntegrityError struct{ Msg string }

func (e *IntegrityError) Error() string { return e.Msg }

// ConflictError reports a request that is valid in shape but rejected by
// current state: pending interviews blocking a stage change, a concurrent
// update, or a duplicate registration.
type ConflictError struct{ Msg string }

func (e *ConflictError) Error() string { return e.Msg }

// PermissionError reports a caller lacking authorization. Raised by the
// command layer on top of the PermissionService; the TransitionService
// itself is authorization-agnostic.
type PermissionError struct{ Msg string }

func (e *PermissionError) Error() string { return e.Msg }
