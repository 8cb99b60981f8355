package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caremesh/calsync/pkg/errors"
)

func TestCleanupCancelsOrphanedCarePlaceholder(t *testing.T) {
	h := newHarness()
	orphan := careEvent("c1", "cl-1", instant(earlier))
	orphan.Metadata().MarkPlaceholder()
	orphan.Metadata().SetLinkedID("w-gone")
	h.care.occurring = append(h.care.occurring, orphan)
	h.care.clinicians["cl-1"] = clinician("cl-1")

	result := h.runner.Run(context.Background())

	assert.Equal(t, 1, result.Cleanup.Cancelled)
	assert.Contains(t, h.care.cancelled, "c1")
}

func TestCleanupSparesPlaceholderWithLivingCounterpart(t *testing.T) {
	h := newHarness()
	placeholder := careEvent("c1", "cl-1", instant(earlier))
	placeholder.Metadata().MarkPlaceholder()
	placeholder.Metadata().SetLinkedID("w1")
	h.care.occurring = append(h.care.occurring, placeholder)
	h.care.clinicians["cl-1"] = clinician("cl-1")
	h.work.events["w1"] = workEvent("w1", "jdoe@corp.example", instant(earlier))

	result := h.runner.Run(context.Background())

	assert.Zero(t, result.Cleanup.Cancelled)
	assert.Empty(t, h.care.cancelled)
}

func TestCleanupNeverCancelsNonPlaceholder(t *testing.T) {
	h := newHarness()
	real := careEvent("c1", "cl-1", instant(earlier))
	real.Metadata().SetLinkedID("w-gone")
	h.care.occurring = append(h.care.occurring, real)
	h.care.clinicians["cl-1"] = clinician("cl-1")

	// The sync phase fails this task (counterpart vanished), but cleanup
	// must still leave the record alone.
	result := h.runner.Run(context.Background())

	assert.Zero(t, result.Cleanup.Cancelled)
	assert.Empty(t, h.care.cancelled)
	assert.Zero(t, result.Cleanup.Examined)
}

func TestCleanupSkipsOnIndeterminateFetch(t *testing.T) {
	h := newHarness()
	placeholder := careEvent("c1", "cl-1", instant(earlier))
	placeholder.Metadata().MarkPlaceholder()
	placeholder.Metadata().SetLinkedID("w1")
	h.care.occurring = append(h.care.occurring, placeholder)
	h.care.clinicians["cl-1"] = clinician("cl-1")
	h.work.eventErr["w1"] = &errors.APIError{System: "workcal", StatusCode: 503}

	result := h.runner.Run(context.Background())

	assert.Zero(t, result.Cleanup.Cancelled)
	assert.Equal(t, 1, result.Cleanup.Indeterminate)
	assert.Empty(t, h.care.cancelled, "ambiguous fetch never cancels")
}

func TestCleanupCancelsOrphanedWorkPlaceholder(t *testing.T) {
	h := newHarness()
	orphan := workEvent("w1", "jdoe@corp.example", instant(earlier))
	orphan.Metadata().MarkPlaceholder()
	orphan.Metadata().SetLinkedID("c-gone")
	h.work.between = append(h.work.between, orphan)

	result := h.runner.Run(context.Background())

	require.Equal(t, 1, result.Cleanup.Cancelled)
	assert.Equal(t, []string{"w1"}, h.work.cancelled)
	assert.True(t, orphan.IsCancelled)
}

func TestCleanupIgnoresUnlinkedPlaceholder(t *testing.T) {
	h := newHarness()
	unlinked := workEvent("w1", "jdoe@corp.example", instant(earlier))
	unlinked.Metadata().MarkPlaceholder()
	h.work.between = append(h.work.between, unlinked)

	result := h.runner.Run(context.Background())

	assert.Zero(t, result.Cleanup.Examined)
	assert.Empty(t, h.work.cancelled)
}
