package compliance_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/physics-compliance/compliance"
	"github.com/warp/physics-compliance/generic"
	"github.com/warp/physics-compliance/store/memory"
)

func seedStore(t *testing.T) *memory.Memory {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	ct := equipment(0, "Annual - TJC")
	ct.Facility = "Main"
	require.NoError(t, store.SaveEquipment(ctx, &ct))

	mri := equipment(0, "Annual - ACR")
	mri.Class = "MRI"
	mri.Facility = "Outpatient"
	require.NoError(t, store.SaveEquipment(ctx, &mri))

	gone := equipment(0, "Quarterly")
	gone.Retired = true
	require.NoError(t, store.SaveEquipment(ctx, &gone))

	tst := testRow(0, ct.ID, "Annual", "2023-01-15")
	require.NoError(t, store.SaveTest(ctx, &tst))
	sch := schedule(0, mri.ID, "2024-05-01")
	require.NoError(t, store.SaveSchedule(ctx, &sch))
	return store
}

func TestLoadSnapshot_ActiveAndFiltered(t *testing.T) {
	// GIVEN: Two active and one retired equipment
	store := seedStore(t)
	ctx := context.Background()
	today := mustDate("2024-04-05")

	// WHEN: Loaded without a filter
	snap, err := compliance.LoadSnapshot(ctx, store, today, compliance.Filter{})
	require.NoError(t, err)

	// THEN: Retired equipment is excluded, history is attached
	require.Len(t, snap.Equipment, 2)
	assert.Len(t, snap.Tests[1], 1)
	assert.Len(t, snap.Schedules[2], 1)

	// WHEN: Filtered to one facility
	snap, err = compliance.LoadSnapshot(ctx, store, today, compliance.Filter{Facility: "outpatient"})
	require.NoError(t, err)
	require.Len(t, snap.Equipment, 1)
	assert.Equal(t, generic.EquipmentID(2), snap.Equipment[0].ID)
	_, loaded := snap.Tests[1]
	assert.False(t, loaded, "filtered-out equipment history is not fetched")
}

func TestLoadSnapshot_FeedsBuild(t *testing.T) {
	store := seedStore(t)
	today := mustDate("2024-04-05")

	snap, err := compliance.LoadSnapshot(context.Background(), store, today, compliance.Filter{})
	require.NoError(t, err)

	wl := newBuilder().Build(today, snap, 90)
	require.Len(t, wl.Overdue, 1)
	require.Len(t, wl.NoFrequency, 1)
	require.Len(t, wl.Scheduled, 1)
	assert.Equal(t, generic.EquipmentID(2), wl.Scheduled[0].Equipment.ID)
}

func TestFillSnapshot_HonoursCancellation(t *testing.T) {
	store := seedStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := compliance.FillSnapshot(ctx, store, []compliance.Equipment{equipment(1)})
	assert.ErrorIs(t, err, context.Canceled)
}
