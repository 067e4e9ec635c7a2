package pipeline

import (
	"fmt"
	"slices"

	"github.com/artie-labs/starsync/lib/watermark"
)

type State string

const (
	Init                 State = "INIT"
	ExtractStage         State = "EXTRACT_STAGE"
	AwaitStagingComplete State = "AWAIT_STAGING_COMPLETE"
	Merge                State = "MERGE"
	ApplyConstraints     State = "APPLY_CONSTRAINTS"
	AdvanceWatermark     State = "ADVANCE_WATERMARK"
	ResetStaging         State = "RESET_STAGING"
	Done                 State = "DONE"
	Failed               State = "FAILED"
)

var transitions = map[State][]State{
	Init:                 {ExtractStage},
	ExtractStage:         {AwaitStagingComplete, Failed},
	AwaitStagingComplete: {Merge, Failed},
	Merge:                {ApplyConstraints},
	ApplyConstraints:     {AdvanceWatermark},
	AdvanceWatermark:     {ResetStaging},
	ResetStaging:         {Done},
}

func (s State) CanTransitionTo(next State) bool {
	return slices.Contains(transitions[s], next)
}

func (s State) IsTerminal() bool {
	return len(transitions[s]) == 0
}

type TableResult struct {
	RowsExtracted  int
	StageErr       error
	MergeErr       error
	ConstraintErrs []error
}

type RunResult struct {
	State State
	// History lists every state the run went through, starting with [Init].
	History []State

	Previous watermark.Watermark
	// Advanced is the watermark stored at the end of the run, equal to [Previous] when it was not moved.
	Advanced watermark.Watermark

	// Tables is keyed by table name. Entries are created before any work starts and each one is only
	// written by the goroutine working on that table.
	Tables map[string]*TableResult

	// Err is the error that stopped the run: lock contention or a [StagingError].
	Err          error
	WatermarkErr error
	ResetErr     error
}

func newRunResult(tableNames []string) *RunResult {
	result := &RunResult{
		State:    Init,
		History:  []State{Init},
		Previous: watermark.Epoch,
		Advanced: watermark.Epoch,
		Tables:   make(map[string]*TableResult, len(tableNames)),
	}

	for _, name := range tableNames {
		result.Tables[name] = &TableResult{}
	}
	return result
}

func (r *RunResult) transition(next State) {
	if !r.State.CanTransitionTo(next) {
		panic(fmt.Sprintf("illegal state transition from %s to %s", r.State, next))
	}

	r.State = next
	r.History = append(r.History, next)
}

func (r *RunResult) MergeFailed() bool {
	for _, table := range r.Tables {
		if table.MergeErr != nil {
			return true
		}
	}
	return false
}

// Failed is true when the run stopped early or any table failed to merge.
func (r *RunResult) Failed() bool {
	return r.State == Failed || r.Err != nil || r.MergeFailed()
}

func (r *RunResult) RowsExtracted() int {
	var total int
	for _, table := range r.Tables {
		total += table.RowsExtracted
	}
	return total
}
