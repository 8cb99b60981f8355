package sync

import (
	"context"
	"time"

	"github.com/agentstation/utc"

	"github.com/caremesh/calsync/internal/allowlist"
)

// taskEnv carries the run-scoped collaborators and policy every task
// shares: clients, link stores, the allow-list, and the clock.
type taskEnv struct {
	deps  Deps
	allow *allowlist.List
	now   func() utc.Time
	skew  time.Duration
}

// stampTime is the instant written into LastSyncAt. It is biased a few
// seconds forward so the next run's changed-since query does not re-select
// the records this run just wrote during the systems' read-after-write lag.
func (e *taskEnv) stampTime() utc.Time {
	return e.now().Add(e.skew)
}

// Task is one unit of reconciliation work for one changed record.
type Task interface {
	// Run drives the task to a terminal state. The returned error is the
	// task's failure, already scoped to the record; callers log it and move
	// on to the next task.
	Run(ctx context.Context) error

	// State returns the task's current state.
	State() State

	// RecordID identifies the source record.
	RecordID() string

	// System names the system that owns the source record.
	System() string
}
