package sync

// Result is the complete outcome of one reconciliation run.
type Result struct {
	Tasks   []TaskResult // one entry per executed task, in execution order
	Cleanup CleanupStats

	// Summary counts
	Resolved int
	Created  int
	Skipped  int
	Failed   int
}

// TaskResult records one task's terminal state.
type TaskResult struct {
	System   string
	RecordID string
	State    State
	Err      error
}

// HasFailures reports whether any task or cleanup candidate failed.
func (r *Result) HasFailures() bool {
	return r.Failed > 0 || len(r.Cleanup.Errors) > 0
}

func (r *Result) record(task Task, err error) {
	r.Tasks = append(r.Tasks, TaskResult{
		System:   task.System(),
		RecordID: task.RecordID(),
		State:    task.State(),
		Err:      err,
	})
	switch task.State() {
	case StateResolved:
		r.Resolved++
	case StateCreated:
		r.Created++
	case StateSkipped:
		r.Skipped++
	case StateFailed:
		r.Failed++
	}
}
