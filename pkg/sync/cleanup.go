package sync

import (
	"context"
	"time"

	"github.com/caremesh/calsync/internal/carecal"
	"github.com/caremesh/calsync/internal/workcal"
	"github.com/caremesh/calsync/pkg/errors"
	"github.com/caremesh/calsync/pkg/logging"
)

// CleanupStats summarizes an orphan cleanup pass.
type CleanupStats struct {
	Examined      int // linked placeholders inspected
	Cancelled     int // orphans retired
	Indeterminate int // counterpart fetch failed for a non-not-found reason
	Errors        []error
}

// cleaner retires placeholders whose linked counterpart no longer exists.
// It walks a forward window on both systems; only an explicit not-found
// from the counterpart fetch counts as orphaned. Anything ambiguous is
// left alone.
type cleaner struct {
	env    *taskEnv
	window time.Duration
}

func (c *cleaner) run(ctx context.Context) CleanupStats {
	var stats CleanupStats
	from := c.env.now()
	to := from.Add(c.window)

	careEvents, err := c.env.deps.Care.EventsOccurring(ctx, from, to)
	if err != nil {
		stats.Errors = append(stats.Errors, err)
		logging.Error().Str("system", carecal.SystemName).Err(err).Msg("Cleanup could not list events")
	}
	for _, event := range careEvents {
		c.cleanCare(ctx, event, &stats)
	}

	workEvents, err := c.env.deps.Work.EventsBetween(ctx, from, to)
	if err != nil {
		stats.Errors = append(stats.Errors, err)
		logging.Error().Str("system", workcal.SystemName).Err(err).Msg("Cleanup could not list events")
	}
	for _, event := range workEvents {
		c.cleanWork(ctx, event, &stats)
	}

	return stats
}

func (c *cleaner) cleanCare(ctx context.Context, event *carecal.Event, stats *CleanupStats) {
	linkedID := event.Metadata().LinkedID()
	if !event.Metadata().IsPlaceholder() || linkedID == "" {
		return
	}
	stats.Examined++

	_, err := c.env.deps.Work.Event(ctx, linkedID)
	if err == nil {
		return
	}
	if !errors.IsNotFound(err) {
		stats.Indeterminate++
		logging.Warn().
			Str("system", carecal.SystemName).
			Str("record_id", event.ID).
			Str("counterpart_id", linkedID).
			Err(err).
			Msg("Counterpart fetch indeterminate, leaving placeholder alone")
		return
	}

	if err := c.env.deps.Care.CancelEvent(ctx, event); err != nil {
		stats.Errors = append(stats.Errors, errors.NewSyncError(carecal.SystemName, event.ID, linkedID, err))
		return
	}
	stats.Cancelled++
	logging.Info().
		Str("system", carecal.SystemName).
		Str("record_id", event.ID).
		Str("counterpart_id", linkedID).
		Msg("Cancelled orphaned placeholder")
}

func (c *cleaner) cleanWork(ctx context.Context, event *workcal.Event, stats *CleanupStats) {
	linkedID := event.Metadata().LinkedID()
	if !event.Metadata().IsPlaceholder() || linkedID == "" {
		return
	}
	if event.IsCancelled {
		return
	}
	stats.Examined++

	_, err := c.env.deps.Care.Event(ctx, linkedID)
	if err == nil {
		return
	}
	if !errors.IsNotFound(err) {
		stats.Indeterminate++
		logging.Warn().
			Str("system", workcal.SystemName).
			Str("record_id", event.ID).
			Str("counterpart_id", linkedID).
			Err(err).
			Msg("Counterpart fetch indeterminate, leaving placeholder alone")
		return
	}

	if err := c.env.deps.Work.CancelEvent(ctx, event); err != nil {
		stats.Errors = append(stats.Errors, errors.NewSyncError(workcal.SystemName, event.ID, linkedID, err))
		return
	}
	stats.Cancelled++
	logging.Info().
		Str("system", workcal.SystemName).
		Str("record_id", event.ID).
		Str("counterpart_id", linkedID).
		Msg("Cancelled orphaned placeholder")
}
