package pipeline

import (
	"errors"
	"fmt"
)

// ErrRunInProgress is returned when another run holds the run lock. Nothing is read or written in that case.
var ErrRunInProgress = errors.New("a pipeline run is already in progress")

// StagingError is fatal to the run, the watermark is not advanced.
type StagingError struct {
	Table string
	Err   error
}

func (e *StagingError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("failed to prepare staging: %v", e.Err)
	}
	return fmt.Sprintf("failed to stage table %q: %v", e.Table, e.Err)
}

func (e *StagingError) Unwrap() error {
	return e.Err
}

// MergeError only affects its own table, sibling merges carry on.
type MergeError struct {
	Table string
	Err   error
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("failed to merge table %q: %v", e.Table, e.Err)
}

func (e *MergeError) Unwrap() error {
	return e.Err
}

// ConstraintError is logged and reported, it never fails a run.
type ConstraintError struct {
	Table     string
	Statement string
	Err       error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("failed to apply constraint on table %q: %v", e.Table, e.Err)
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}
