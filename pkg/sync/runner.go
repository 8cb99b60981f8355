package sync

import (
	"context"
	"time"

	"github.com/caremesh/calsync/pkg/errors"
	"github.com/caremesh/calsync/pkg/logging"
)

// Runner executes one reconciliation run: carecal-driven tasks first, then
// workcal-driven tasks, then orphan cleanup, so a link created earlier in
// the run is already visible to the later phases. Tasks are independent;
// one task's failure is logged and the run continues.
type Runner struct {
	env     *taskEnv
	options *Options
}

// NewRunner builds a Runner from its collaborators.
func NewRunner(deps Deps, opts ...Option) (*Runner, error) {
	if deps.Work == nil || deps.Care == nil {
		return nil, &errors.ConfigError{Component: "runner", Message: "both system clients are required"}
	}
	if deps.WorkStore == nil || deps.CareStore == nil {
		return nil, &errors.ConfigError{Component: "runner", Message: "both link stores are required"}
	}
	if deps.CareMatcher == nil || deps.WorkResolver == nil {
		return nil, &errors.ConfigError{Component: "runner", Message: "identity resolution for both directions is required"}
	}

	options := Defaults().Apply(opts...)
	return &Runner{
		env: &taskEnv{
			deps:  deps,
			allow: options.Allow,
			now:   options.Now,
			skew:  options.Skew,
		},
		options: options,
	}, nil
}

// Run executes the full run and always returns a Result; per-task failures
// live inside it, never as a run-level error.
func (r *Runner) Run(ctx context.Context) *Result {
	result := &Result{}
	now := r.env.now()

	// Carecal changes surface through an occurring window rather than a
	// changed-since filter; reach slightly behind now so an event moved to
	// the immediate present is not missed.
	careFrom := now.Add(-time.Minute)
	careTo := now.Add(r.options.OccurringWindow)
	careEvents, err := r.env.deps.Care.EventsOccurring(ctx, careFrom, careTo)
	if err != nil {
		logging.Error().Str("system", "carecal").Err(err).Msg("Could not list carecal events, skipping phase")
	}
	for _, event := range careEvents {
		r.execute(ctx, newCareTask(r.env, event), result)
	}

	since := now.Add(-r.options.Lookback)
	workEvents, err := r.env.deps.Work.EventsChangedSince(ctx, since)
	if err != nil {
		logging.Error().Str("system", "workcal").Err(err).Msg("Could not list workcal events, skipping phase")
	}
	for _, event := range workEvents {
		r.execute(ctx, newWorkTask(r.env, event), result)
	}

	result.Cleanup = (&cleaner{env: r.env, window: r.options.OrphanWindow}).run(ctx)

	logging.Info().
		Int("resolved", result.Resolved).
		Int("created", result.Created).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Int("orphans_cancelled", result.Cleanup.Cancelled).
		Msg("Run complete")
	return result
}

func (r *Runner) execute(ctx context.Context, task Task, result *Result) {
	err := task.Run(ctx)
	if err != nil {
		logging.Error().
			Str("system", task.System()).
			Str("record_id", task.RecordID()).
			Err(err).
			Msg("Task failed")
	}
	result.record(task, err)
}
