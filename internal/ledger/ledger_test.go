package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shriyanssahoo/Byte-Me/internal/models"
	appErrors "github.com/shriyanssahoo/Byte-Me/pkg/errors"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := New(5, 54)
	require.NoError(t, err)
	return l
}

func sessionTriple(sessionID string, day models.Day, r models.SlotRange) []models.Booking {
	mk := func(id string, kind models.ResourceKind, res string) models.Booking {
		return models.Booking{
			ID: id, SessionID: sessionID, CourseCode: "CS101",
			Session: models.SessionLecture, Period: models.PeriodPre,
			Day: day, Slots: r, Kind: kind, ResourceID: res,
			State: models.BookingFinalized,
		}
	}
	return []models.Booking{
		mk(sessionID+"-room", models.ResourceRoom, "C101"),
		mk(sessionID+"-fac", models.ResourceFaculty, "F1"),
		mk(sessionID+"-sec", models.ResourceSection, "CSE-Sem1-PRE-A"),
	}
}

func TestCommitMarksAllThreeResourcesBusy(t *testing.T) {
	l := newTestLedger(t)
	r := models.SlotRange{Start: 0, Length: 9}

	require.NoError(t, l.Commit(sessionTriple("s1", models.Monday, r)...))

	assert.False(t, l.IsFree(models.ResourceRoom, "C101", models.PeriodPre, models.Monday, r))
	assert.False(t, l.IsFree(models.ResourceFaculty, "F1", models.PeriodPre, models.Monday, r))
	assert.False(t, l.IsFree(models.ResourceSection, "CSE-Sem1-PRE-A", models.PeriodPre, models.Monday, r))
	assert.True(t, l.IsFree(models.ResourceRoom, "C101", models.PeriodPre, models.Tuesday, r))
	assert.True(t, l.IsFree(models.ResourceRoom, "C101", models.PeriodPost, models.Monday, r),
		"periods are independent grids")
}

func TestCommitIsAtomicAcrossTheTriple(t *testing.T) {
	l := newTestLedger(t)
	r := models.SlotRange{Start: 0, Length: 9}

	// Occupy only the faculty ahead of time.
	require.NoError(t, l.Commit(models.Booking{
		ID: "pre", SessionID: "pre", CourseCode: "DS201", Period: models.PeriodPre,
		Day: models.Monday, Slots: r, Kind: models.ResourceFaculty, ResourceID: "F1",
	}))

	err := l.Commit(sessionTriple("s1", models.Monday, r)...)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrPlacementFailed.Code))

	// Room and section must be untouched by the failed commit.
	assert.True(t, l.IsFree(models.ResourceRoom, "C101", models.PeriodPre, models.Monday, r))
	assert.True(t, l.IsFree(models.ResourceSection, "CSE-Sem1-PRE-A", models.PeriodPre, models.Monday, r))
	assert.Len(t, l.Bookings(), 1)
}

func TestCommitRejectsSelfOverlapWithinOneSet(t *testing.T) {
	l := newTestLedger(t)
	a := models.Booking{ID: "a", Period: models.PeriodPre, Day: models.Monday,
		Slots: models.SlotRange{Start: 0, Length: 9}, Kind: models.ResourceRoom, ResourceID: "C101"}
	b := a
	b.ID = "b"
	b.Slots = models.SlotRange{Start: 4, Length: 9}

	err := l.Commit(a, b)
	require.Error(t, err)
	assert.Empty(t, l.Bookings())
}

func TestReleaseFreesTheRange(t *testing.T) {
	l := newTestLedger(t)
	r := models.SlotRange{Start: 10, Length: 6}
	triple := sessionTriple("s1", models.Wednesday, r)
	require.NoError(t, l.Commit(triple...))

	assert.True(t, l.Release(triple[0].ID))
	assert.False(t, l.Release(triple[0].ID), "double release is a no-op")
	assert.True(t, l.IsFree(models.ResourceRoom, "C101", models.PeriodPre, models.Wednesday, r))
	assert.False(t, l.IsFree(models.ResourceFaculty, "F1", models.PeriodPre, models.Wednesday, r))
}

func TestIsFreePaddedEnforcesBreakSpacing(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.Commit(models.Booking{
		ID: "a", Period: models.PeriodPre, Day: models.Monday,
		Slots: models.SlotRange{Start: 0, Length: 9},
		Kind:  models.ResourceFaculty, ResourceID: "F1",
	}))

	next := models.SlotRange{Start: 10, Length: 9}
	assert.True(t, l.IsFree(models.ResourceFaculty, "F1", models.PeriodPre, models.Monday, next))
	assert.False(t, l.IsFreePadded(models.ResourceFaculty, "F1", models.PeriodPre, models.Monday, next, 3),
		"a 30-minute faculty break needs 3 clear slots before the next session")
	assert.True(t, l.IsFreePadded(models.ResourceFaculty, "F1", models.PeriodPre, models.Monday,
		models.SlotRange{Start: 12, Length: 9}, 3))
}

func TestBookingsOrderIsDeterministic(t *testing.T) {
	l := newTestLedger(t)
	require.NoError(t, l.Commit(sessionTriple("s2", models.Tuesday, models.SlotRange{Start: 9, Length: 9})...))
	require.NoError(t, l.Commit(sessionTriple("s1", models.Monday, models.SlotRange{Start: 0, Length: 9})...))

	got := l.Bookings()
	require.Len(t, got, 6)
	assert.Equal(t, models.Monday, got[0].Day)
	assert.Equal(t, models.ResourceFaculty, got[0].Kind, "kind breaks ties in fixed order")

	again := l.Bookings()
	assert.Equal(t, got, again)
}

func TestSnapshotIsIndependentOfLiveLedger(t *testing.T) {
	l := newTestLedger(t)
	r := models.SlotRange{Start: 0, Length: 9}
	require.NoError(t, l.Commit(sessionTriple("s1", models.Monday, r)...))

	snap := l.Snapshot()
	require.NoError(t, l.Commit(sessionTriple("s2", models.Tuesday, r)...))

	assert.True(t, snap.IsFree(models.ResourceRoom, "C101", models.PeriodPre, models.Tuesday, r))
	assert.False(t, l.IsFree(models.ResourceRoom, "C101", models.PeriodPre, models.Tuesday, r))
}

func TestNewRejectsImpossibleGeometry(t *testing.T) {
	for _, tc := range []struct{ days, slots int }{{0, 54}, {5, 0}, {5, 65}} {
		_, err := New(tc.days, tc.slots)
		require.Error(t, err)
		assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidConfig.Code))
	}
}
