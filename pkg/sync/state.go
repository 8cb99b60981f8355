// Package sync orchestrates one reconciliation run between the two
// calendar systems. Each changed record gets one task; tasks run in a fixed
// order (carecal-driven, then workcal-driven, then orphan cleanup) and a
// task's failure never aborts the run.
package sync

// State is a task's position in its lifecycle. Every task starts at
// NotStarted and finishes in exactly one of the four terminal states.
type State string

// Task states.
const (
	StateNotStarted State = "not_started"
	StateEvaluating State = "evaluating"
	StateResolved   State = "resolved"
	StateCreated    State = "created"
	StateSkipped    State = "skipped"
	StateFailed     State = "failed"
)

// Terminal reports whether the state ends a task.
func (s State) Terminal() bool {
	switch s {
	case StateResolved, StateCreated, StateSkipped, StateFailed:
		return true
	}
	return false
}
