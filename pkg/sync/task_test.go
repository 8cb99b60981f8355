package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caremesh/calsync/internal/allowlist"
	"github.com/caremesh/calsync/pkg/errors"
	"github.com/caremesh/calsync/pkg/identity"
)

var (
	earlier = time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)
	later   = time.Date(2025, 6, 3, 11, 0, 0, 0, time.UTC)
)

func TestWorkTaskCreatesAndLinksPlaceholder(t *testing.T) {
	h := newHarness()
	source := workEvent("w1", "bob@corp.example", nil)
	h.work.changed = append(h.work.changed, source)
	h.directory.identities["bob@clinic.example"] = &identity.Identity{ID: "cl-1", Address: "bob@clinic.example"}

	result := h.runner.Run(context.Background())

	require.Equal(t, 1, result.Created)
	require.Len(t, h.care.created, 1)

	placeholder := h.care.created[0]
	assert.NotEmpty(t, placeholder.ID)
	assert.Equal(t, "cl-1", placeholder.HostID)
	assert.Equal(t, "Workplace appointment - Checkup", placeholder.Title)
	assert.True(t, placeholder.Metadata().IsPlaceholder())
	require.NotNil(t, placeholder.Patient())
	assert.Equal(t, "pat-0", placeholder.Patient().ParticipantID)

	// The placeholder blocks the source event's whole day.
	window := placeholder.Window()
	assert.True(t, window.AllDay)
	assert.True(t, window.Day().Time.Equal(source.Window().Day().Time))

	// Both sides point at each other.
	assert.Equal(t, placeholder.ID, source.Metadata().LinkedID())
	assert.Equal(t, "w1", placeholder.Metadata().LinkedID())

	// LastSyncAt is biased forward and persisted.
	stamped, ok := source.Metadata().LastSyncAt()
	require.True(t, ok)
	assert.True(t, stamped.Time.Equal(t0.Add(3*time.Second).Time))
	assert.Contains(t, h.work.metaWrites, "w1")
}

func TestWorkTaskCounterpartWins(t *testing.T) {
	h := newHarness()
	source := workEvent("w1", "bob@corp.example", instant(earlier))
	source.Metadata().SetLinkedID("c1")
	h.work.changed = append(h.work.changed, source)

	counterpart := careEvent("c1", "cl-1", instant(later))
	h.care.events["c1"] = counterpart

	result := h.runner.Run(context.Background())

	require.Equal(t, 1, result.Resolved)
	assert.Empty(t, h.care.updated, "no write issued to the winning counterpart")
	assert.Contains(t, h.work.updated, "w1", "losing source persisted with counterpart's fields")
	assert.True(t, source.Window().Equal(counterpart.Window()))
}

func TestWorkTaskSourceWins(t *testing.T) {
	h := newHarness()
	source := workEvent("w1", "bob@corp.example", instant(later))
	source.Metadata().SetLinkedID("c1")
	h.work.changed = append(h.work.changed, source)

	counterpart := careEvent("c1", "cl-1", instant(earlier))
	h.care.events["c1"] = counterpart

	result := h.runner.Run(context.Background())

	require.Equal(t, 1, result.Resolved)
	assert.Equal(t, []string{"c1"}, h.care.updated)
	assert.True(t, counterpart.Window().Equal(source.Window()))
}

func TestWorkTaskAllowListSkip(t *testing.T) {
	h := newHarness(WithAllowList(allowlist.Parse("alice@corp.example")))
	source := workEvent("w1", "bob@corp.example", nil)
	h.work.changed = append(h.work.changed, source)

	result := h.runner.Run(context.Background())

	require.Equal(t, 1, result.Skipped)
	assert.Empty(t, h.care.created)
	assert.Empty(t, h.care.updated)
	assert.Empty(t, h.work.updated)
	assert.Empty(t, h.work.metaWrites)
	assert.Zero(t, h.workStore.saves)
	assert.Zero(t, h.careStore.saves)
	assert.Empty(t, source.Metadata().LinkedID())
}

func TestWorkTaskSkipsWhenNoIdentityResolves(t *testing.T) {
	h := newHarness()
	source := workEvent("w1", "ghost@corp.example", nil)
	h.work.changed = append(h.work.changed, source)

	result := h.runner.Run(context.Background())

	require.Equal(t, 1, result.Skipped)
	assert.Zero(t, result.Failed, "a missing identity is a skip, not an error")
	assert.Empty(t, h.care.created)
}

func TestWorkTaskFailsWhenCounterpartFetchFails(t *testing.T) {
	h := newHarness()
	source := workEvent("w1", "bob@corp.example", instant(earlier))
	source.Metadata().SetLinkedID("c1")
	h.work.changed = append(h.work.changed, source)
	h.care.eventErr["c1"] = &errors.APIError{System: "carecal", StatusCode: 500}

	result := h.runner.Run(context.Background())

	require.Equal(t, 1, result.Failed)
	taskErr := result.Tasks[0].Err
	require.Error(t, taskErr)

	var syncErr *errors.SyncError
	require.True(t, errors.As(taskErr, &syncErr))
	assert.Equal(t, "w1", syncErr.RecordID)
	assert.Equal(t, "c1", syncErr.CounterpartID)
}

func TestCareTaskCreatesAndLinksPlaceholder(t *testing.T) {
	h := newHarness()
	source := careEvent("c1", "cl-1", instant(earlier))
	h.care.occurring = append(h.care.occurring, source)
	h.care.clinicians["cl-1"] = clinician("cl-1")

	result := h.runner.Run(context.Background())

	require.Equal(t, 1, result.Created)
	require.Len(t, h.work.created, 1)

	placeholder := h.work.created[0]
	assert.Equal(t, []string{"user:jdoe@corp.example"}, h.work.createTargets)
	assert.Equal(t, "Care appointment - Ada Nkemka", placeholder.Subject)
	assert.True(t, placeholder.Metadata().IsPlaceholder())

	assert.Equal(t, placeholder.ID, source.Metadata().LinkedID())
	assert.Equal(t, "c1", placeholder.Metadata().LinkedID())

	stamped, ok := source.Metadata().LastSyncAt()
	require.True(t, ok)
	assert.True(t, stamped.Time.Equal(t0.Add(3*time.Second).Time))
	assert.Contains(t, h.care.updated, "c1")
}

func TestCareTaskAdoptsExistingCounterpart(t *testing.T) {
	h := newHarness()
	source := careEvent("c1", "cl-1", instant(earlier))
	h.care.occurring = append(h.care.occurring, source)
	h.care.clinicians["cl-1"] = clinician("cl-1")

	// A prior half-finished run left a counterpart already pointing here.
	existing := workEvent("w9", "jdoe@corp.example", instant(earlier))
	existing.Metadata().SetLinkedID("c1")
	h.work.events["w9"] = existing

	result := h.runner.Run(context.Background())

	require.Equal(t, 1, result.Created)
	assert.Empty(t, h.work.created, "no duplicate placeholder created")
	assert.Equal(t, "w9", source.Metadata().LinkedID())
}

func TestCareTaskRollsBackOnLinkFailure(t *testing.T) {
	h := newHarness()
	source := careEvent("c1", "cl-1", instant(earlier))
	h.care.occurring = append(h.care.occurring, source)
	h.care.clinicians["cl-1"] = clinician("cl-1")
	h.workStore.saveErr = &errors.APIError{System: "workcal", StatusCode: 500}

	result := h.runner.Run(context.Background())

	require.Equal(t, 1, result.Failed)
	assert.True(t, errors.Is(result.Tasks[0].Err, errors.ErrLinkIncomplete))

	// First leg rolled back, freshly created counterpart deleted.
	assert.Empty(t, source.Metadata().LinkedID())
	assert.Equal(t, 1, h.careStore.clears)
	require.Len(t, h.work.created, 1)
	assert.Equal(t, []string{h.work.created[0].ID}, h.workStore.deleted)
}

func TestCareTaskResolvesLinkedPair(t *testing.T) {
	h := newHarness()
	source := careEvent("c1", "cl-1", instant(later))
	source.Metadata().SetLinkedID("w1")
	h.care.occurring = append(h.care.occurring, source)
	h.care.clinicians["cl-1"] = clinician("cl-1")

	counterpart := workEvent("w1", "jdoe@corp.example", instant(earlier))
	h.work.events["w1"] = counterpart

	result := h.runner.Run(context.Background())

	require.Equal(t, 1, result.Resolved)
	assert.Equal(t, []string{"w1"}, h.work.updated)
	assert.True(t, counterpart.Window().Equal(source.Window()))
}

func TestCareTaskFailsWhenClinicianMissing(t *testing.T) {
	h := newHarness()
	source := careEvent("c1", "cl-unknown", instant(earlier))
	h.care.occurring = append(h.care.occurring, source)

	result := h.runner.Run(context.Background())

	require.Equal(t, 1, result.Failed)
	var syncErr *errors.SyncError
	assert.True(t, errors.As(result.Tasks[0].Err, &syncErr))
}

func TestCareTaskAllowListSkip(t *testing.T) {
	h := newHarness(WithAllowList(allowlist.Parse("alice@clinic.example")))
	source := careEvent("c1", "cl-1", instant(earlier))
	h.care.occurring = append(h.care.occurring, source)
	h.care.clinicians["cl-1"] = clinician("cl-1")

	result := h.runner.Run(context.Background())

	require.Equal(t, 1, result.Skipped)
	assert.Empty(t, h.work.created)
	assert.Empty(t, h.care.updated)
}
