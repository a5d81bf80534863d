package prer

import (
	"fmt"
	"strings"
)

// State is a step of the submission workflow.
type State int

// Workflow states, in order. Failed absorbs any step.
const (
	Init State = iota
	SnapshotFetched
	BranchResolved
	Synced
	DiffComputed
	Committed
	PullRequestReady
	Done
	Failed
)

var stateNames = [...]string{
	Init:             "init",
	SnapshotFetched:  "snapshot fetched",
	BranchResolved:   "branch resolved",
	Synced:           "synced",
	DiffComputed:     "diff computed",
	Committed:        "committed",
	PullRequestReady: "pull request ready",
	Done:             "done",
	Failed:           "failed",
}

// String returns a human readable state.
func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}

	return fmt.Sprintf("state(%d)", int(s))
}

// StageError reports a failed step together with the
// remote state the run left behind.
type StageError struct {
	// Stage is the state the run was moving to.
	Stage State
	// Reached is the last state completed.
	Reached State
	// Persisted describes what remains on the remote,
	// empty when nothing was written.
	Persisted []string
	Err       error
}

// Error implements error.
func (e *StageError) Error() string {
	var sb strings.Builder

	sb.WriteString("reaching ")
	sb.WriteString(e.Stage.String())

	if len(e.Persisted) > 0 {
		sb.WriteString(" (persisted: ")
		sb.WriteString(strings.Join(e.Persisted, ", "))
		sb.WriteByte(')')
	}

	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}

	return sb.String()
}

// Unwrap returns the underlying failure.
func (e *StageError) Unwrap() error {
	return e.Err
}
