package exam

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shriyanssahoo/Byte-Me/internal/models"
	appErrors "github.com/shriyanssahoo/Byte-Me/pkg/errors"
)

func date(day int) time.Time {
	return time.Date(2025, time.December, day, 0, 0, 0, 0, time.UTC)
}

func testConfig() Config {
	return Config{
		// Dec 1 2025 is a Monday; Dec 7 a Sunday.
		WindowStart: date(1),
		WindowEnd:   date(8),
		MaxPerDay:   1,
		Duration:    3 * time.Hour,
		InvigilatorsPool: []models.Faculty{
			{ID: "F1", Name: "One"},
			{ID: "F2", Name: "Two"},
		},
	}
}

func testExamRooms() []models.ExamRoom {
	return []models.ExamRoom{
		{ID: "H-1", Capacity: 4, Rows: 2, Columns: 2},
		{ID: "H-2", Capacity: 8, Rows: 4, Columns: 2},
	}
}

func alloc(t *testing.T, cfg Config, rooms []models.ExamRoom) *Allocator {
	t.Helper()
	a, err := New(cfg, rooms, zap.NewNop())
	require.NoError(t, err)
	return a
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()

	bad := cfg
	bad.WindowEnd = date(1)
	bad.WindowStart = date(8)
	_, err := New(bad, testExamRooms(), zap.NewNop())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidConfig.Code))

	bad = cfg
	bad.MaxPerDay = 0
	_, err = New(bad, testExamRooms(), zap.NewNop())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidConfig.Code))

	_, err = New(cfg, nil, zap.NewNop())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidConfig.Code))
}

func TestNewRejectsGridSmallerThanCapacity(t *testing.T) {
	// A 3x4 grid seats 12; capacity 40 would budget students the seating
	// pass can never place.
	rooms := []models.ExamRoom{{ID: "H-1", Capacity: 40, Rows: 3, Columns: 4}}
	_, err := New(testConfig(), rooms, zap.NewNop())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidConfig.Code))

	// Geometry-free halls fall back to a single column and stay valid.
	rooms = []models.ExamRoom{{ID: "H-2", Capacity: 40}}
	_, err = New(testConfig(), rooms, zap.NewNop())
	assert.NoError(t, err)
}

func TestCalendarSkipsSundays(t *testing.T) {
	a := alloc(t, testConfig(), testExamRooms())
	for _, slot := range a.calendar() {
		assert.NotEqual(t, time.Sunday, slot.Date.Weekday())
	}
	// Seven non-Sunday dates, two sittings each.
	assert.Len(t, a.calendar(), 14)
}

func TestConflictingCoursesNeverShareSitting(t *testing.T) {
	a := alloc(t, testConfig(), testExamRooms())
	courses := []models.Course{
		{Code: "A", Department: "CSE"},
		{Code: "B", Department: "CSE"},
		{Code: "C", Department: "ECE"},
	}
	students := []models.Student{
		{Roll: "R1", Department: "CSE", Courses: []string{"A", "B"}},
		{Roll: "R2", Department: "CSE", Courses: []string{"B", "C"}},
		{Roll: "R3", Department: "ECE", Courses: []string{"C"}},
	}
	sched, err := a.Allocate(courses, students)
	require.NoError(t, err)
	require.Empty(t, sched.Unscheduled)
	require.Len(t, sched.Exams, 3)

	for _, st := range students {
		seen := map[string]bool{}
		for _, e := range sched.StudentExams(st.Roll) {
			k := e.Slot.Date.Format("2006-01-02") + string(e.Slot.Session)
			assert.False(t, seen[k], "student %s double-booked", st.Roll)
			seen[k] = true
		}
	}
}

func TestDailyCapHonored(t *testing.T) {
	a := alloc(t, testConfig(), testExamRooms())
	// All three courses share one student; cap is one exam per day, so the
	// exams must land on three distinct dates.
	courses := []models.Course{{Code: "A"}, {Code: "B"}, {Code: "C"}}
	students := []models.Student{{Roll: "R1", Courses: []string{"A", "B", "C"}}}

	sched, err := a.Allocate(courses, students)
	require.NoError(t, err)
	require.Empty(t, sched.Unscheduled)

	dates := map[string]int{}
	for _, e := range sched.Exams {
		dates[e.Slot.Date.Format("2006-01-02")]++
	}
	for d, n := range dates {
		assert.Equal(t, 1, n, "date %s", d)
	}
}

func TestUnschedulableCourseReported(t *testing.T) {
	cfg := testConfig()
	cfg.WindowEnd = cfg.WindowStart // a single date, cap one per day
	a := alloc(t, cfg, testExamRooms())

	courses := []models.Course{{Code: "A"}, {Code: "B"}, {Code: "C"}}
	students := []models.Student{{Roll: "R1", Courses: []string{"A", "B", "C"}}}

	sched, err := a.Allocate(courses, students)
	require.NoError(t, err)
	assert.Len(t, sched.Exams, 1)
	require.Len(t, sched.Unscheduled, 2)
	for _, u := range sched.Unscheduled {
		assert.Equal(t, ReasonNoSitting, u.Reason)
	}
}

func TestRoomSplitAndCapacity(t *testing.T) {
	a := alloc(t, testConfig(), testExamRooms())
	courses := []models.Course{{Code: "A", Department: "CSE"}}
	var students []models.Student
	for _, roll := range []string{"R01", "R02", "R03", "R04", "R05", "R06", "R07", "R08", "R09", "R10"} {
		students = append(students, models.Student{Roll: roll, Department: "CSE", Courses: []string{"A"}})
	}

	sched, err := a.Allocate(courses, students)
	require.NoError(t, err)
	require.Empty(t, sched.Unscheduled)
	require.Len(t, sched.Exams, 1)

	// Ten students cannot fit one hall; the split spans both without
	// exceeding either capacity.
	exam := sched.Exams[0]
	require.Len(t, exam.Rooms, 2)
	caps := map[string]int{"H-1": 4, "H-2": 8}
	total := 0
	for _, al := range exam.Rooms {
		assert.LessOrEqual(t, len(al.Rolls), caps[al.RoomID])
		total += len(al.Rolls)
	}
	assert.Equal(t, 10, total)
}

func TestSmallestSufficientHallPreferred(t *testing.T) {
	a := alloc(t, testConfig(), testExamRooms())
	courses := []models.Course{{Code: "A", Department: "CSE"}}
	students := []models.Student{
		{Roll: "R1", Courses: []string{"A"}},
		{Roll: "R2", Courses: []string{"A"}},
		{Roll: "R3", Courses: []string{"A"}},
	}

	sched, err := a.Allocate(courses, students)
	require.NoError(t, err)
	require.Len(t, sched.Exams, 1)
	require.Len(t, sched.Exams[0].Rooms, 1)
	assert.Equal(t, "H-1", sched.Exams[0].Rooms[0].RoomID)
}

func TestSeatingAlternatesDepartmentsByColumn(t *testing.T) {
	a := alloc(t, testConfig(), testExamRooms())
	// Two non-conflicting departments share the first sitting and fit one
	// hall together.
	courses := []models.Course{
		{Code: "A", Department: "CSE"},
		{Code: "B", Department: "ECE"},
	}
	students := []models.Student{
		{Roll: "C1", Department: "CSE", Courses: []string{"A"}},
		{Roll: "C2", Department: "CSE", Courses: []string{"A"}},
		{Roll: "E1", Department: "ECE", Courses: []string{"B"}},
		{Roll: "E2", Department: "ECE", Courses: []string{"B"}},
	}

	sched, err := a.Allocate(courses, students)
	require.NoError(t, err)
	require.Empty(t, sched.Unscheduled)

	// Both cohorts land in H-1 (2x2) at the same sitting: column 0 seats one
	// course, column 1 the other.
	byColumn := map[int]map[string]bool{}
	for _, seat := range sched.Seating {
		require.Equal(t, "H-1", seat.RoomID)
		if byColumn[seat.Column] == nil {
			byColumn[seat.Column] = map[string]bool{}
		}
		byColumn[seat.Column][seat.CourseCode] = true
	}
	require.Len(t, byColumn, 2)
	assert.Equal(t, map[string]bool{"A": true}, byColumn[0])
	assert.Equal(t, map[string]bool{"B": true}, byColumn[1])
}

func TestInvigilatorFairness(t *testing.T) {
	a := alloc(t, testConfig(), testExamRooms())
	// Three exams on separate sittings, one room each: duties must rotate
	// F1, F2, F1 rather than loading one faculty member.
	courses := []models.Course{{Code: "A"}, {Code: "B"}, {Code: "C"}}
	students := []models.Student{{Roll: "R1", Courses: []string{"A", "B", "C"}}}

	sched, err := a.Allocate(courses, students)
	require.NoError(t, err)
	require.Len(t, sched.Invigilations, 3)

	load := map[string]int{}
	for _, inv := range sched.Invigilations {
		load[inv.FacultyID]++
	}
	assert.Equal(t, 2, load["F1"])
	assert.Equal(t, 1, load["F2"])
}

func TestDeterministicAllocation(t *testing.T) {
	courses := []models.Course{
		{Code: "A", Department: "CSE"}, {Code: "B", Department: "CSE"},
		{Code: "C", Department: "ECE"}, {Code: "D", Department: "DSAI"},
	}
	students := []models.Student{
		{Roll: "R1", Courses: []string{"A", "B"}},
		{Roll: "R2", Courses: []string{"B", "C"}},
		{Roll: "R3", Courses: []string{"C", "D"}},
		{Roll: "R4", Courses: []string{"D", "A"}},
	}

	first, err := alloc(t, testConfig(), testExamRooms()).Allocate(courses, students)
	require.NoError(t, err)
	second, err := alloc(t, testConfig(), testExamRooms()).Allocate(courses, students)
	require.NoError(t, err)

	assert.Equal(t, first.Exams, second.Exams)
	assert.Equal(t, first.Seating, second.Seating)
	assert.Equal(t, first.Invigilations, second.Invigilations)
}
