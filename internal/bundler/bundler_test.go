package bundler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shriyanssahoo/Byte-Me/internal/models"
	"github.com/shriyanssahoo/Byte-Me/internal/timegrid"
	appErrors "github.com/shriyanssahoo/Byte-Me/pkg/errors"
)

func testGrid(t *testing.T) *timegrid.Grid {
	t.Helper()
	g, err := timegrid.New(timegrid.DefaultConfig())
	require.NoError(t, err)
	return g
}

func testRooms() []models.Room {
	return []models.Room{
		{ID: "C-101", Type: models.RoomClassroom, Capacity: 120},
		{ID: "C-201", Type: models.RoomClassroom, Capacity: 240},
		{ID: "L-001", Type: models.RoomLab, Capacity: 60},
	}
}

func testSections() []models.Section {
	return []models.Section{
		{ID: "CSE-1-A", Department: "CSE", Semester: 1, Label: "A", Strength: 60},
		{ID: "CSE-1-B", Department: "CSE", Semester: 1, Label: "B", Strength: 60},
		{ID: "ECE-1", Department: "ECE", Semester: 1, Strength: 70},
		{ID: "DSAI-1", Department: "DSAI", Semester: 1, Strength: 50},
	}
}

func TestParseLTPSC(t *testing.T) {
	l, tt, p, s, c, err := ParseLTPSC("3-1-2-0-4")
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1, 2, 0, 4}, []int{l, tt, p, s, c})

	_, _, _, _, _, err = ParseLTPSC("3-1-2")
	assert.Error(t, err)
	_, _, _, _, _, err = ParseLTPSC("3-x-2-0-4")
	assert.Error(t, err)
	_, _, _, _, _, err = ParseLTPSC("3--1-2-0-4")
	assert.Error(t, err)
}

func TestRequirementsDerivation(t *testing.T) {
	b := New(testGrid(t), zap.NewNop())

	reqs, err := b.requirements(models.Course{Code: "CS101", LTPSC: "3-1-2-0-4"})
	require.NoError(t, err)
	require.Len(t, reqs, 3)
	// 3 lecture hours at 1.5h per session means two lectures.
	assert.Equal(t, models.SessionLecture, reqs[0].Type)
	assert.Equal(t, 2, reqs[0].Count)
	assert.Equal(t, 9, reqs[0].Slots)
	assert.Equal(t, models.SessionTutorial, reqs[1].Type)
	assert.Equal(t, 1, reqs[1].Count)
	assert.Equal(t, 6, reqs[1].Slots)
	assert.Equal(t, models.SessionPractical, reqs[2].Type)
	assert.Equal(t, 1, reqs[2].Count)
	assert.Equal(t, 12, reqs[2].Slots)

	// 4 lecture hours round up to three sessions.
	reqs, err = b.requirements(models.Course{Code: "CS201", LTPSC: "4-0-0-0-4"})
	require.NoError(t, err)
	assert.Equal(t, 3, reqs[0].Count)
}

func TestOddPracticalHoursRejected(t *testing.T) {
	b := New(testGrid(t), zap.NewNop())
	_, err := b.requirements(models.Course{Code: "CS301", LTPSC: "3-0-3-0-4"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrDataIntegrity.Code))
}

func TestBundleRejectsBadCourses(t *testing.T) {
	b := New(testGrid(t), zap.NewNop())
	courses := []models.Course{
		{Code: "OK1", Department: "ECE", Semester: 1, LTPSC: "3-0-0-0-3", Instructors: []string{"F1"}, Enrolled: 70, Period: models.PeriodFull},
		{Code: "BADLTPSC", Department: "ECE", Semester: 1, LTPSC: "3-0", Instructors: []string{"F1"}, Enrolled: 70},
		{Code: "NOFAC", Department: "ECE", Semester: 1, LTPSC: "3-0-0-0-3", Enrolled: 70},
		{Code: "TOOBIG", Department: "ECE", Semester: 1, LTPSC: "0-0-2-0-1", Instructors: []string{"F2"}, Enrolled: 300},
	}
	res := b.Bundle(courses, testSections(), testRooms())

	require.Len(t, res.Units, 1)
	assert.Equal(t, "OK1", res.Units[0].Course.Code)
	require.Len(t, res.Rejected, 3)
	for _, rej := range res.Rejected {
		assert.True(t, appErrors.HasCode(rej.Err, appErrors.ErrDataIntegrity.Code), rej.CourseCode)
	}
}

func TestHalfSemesterCSESplitsIntoSections(t *testing.T) {
	b := New(testGrid(t), zap.NewNop())
	courses := []models.Course{
		{Code: "CS150", Department: "CSE", Semester: 1, LTPSC: "3-0-0-0-3",
			Instructors: []string{"F1"}, Enrolled: 60, HalfSemester: true, Period: models.PeriodPre},
	}
	res := b.Bundle(courses, testSections(), testRooms())

	require.Empty(t, res.Rejected)
	require.Len(t, res.Units, 2)
	assert.Equal(t, []string{"CSE-1-A"}, res.Units[0].SectionIDs)
	assert.Equal(t, []string{"CSE-1-B"}, res.Units[1].SectionIDs)
	assert.Equal(t, []models.Period{models.PeriodPre}, res.Units[0].Periods)
}

func TestFullSemesterCSEKeepsSectionsTogether(t *testing.T) {
	b := New(testGrid(t), zap.NewNop())
	courses := []models.Course{
		{Code: "CS160", Department: "CSE", Semester: 1, LTPSC: "3-0-0-0-3",
			Instructors: []string{"F1"}, Enrolled: 120, Period: models.PeriodFull},
	}
	res := b.Bundle(courses, testSections(), testRooms())

	require.Empty(t, res.Rejected)
	require.Len(t, res.Units, 1)
	assert.Equal(t, []string{"CSE-1-A", "CSE-1-B"}, res.Units[0].SectionIDs)
	assert.Equal(t, []models.Period{models.PeriodPre, models.PeriodPost}, res.Units[0].Periods)
}

func TestCombinedCourseTargetsAllSemesterSections(t *testing.T) {
	b := New(testGrid(t), zap.NewNop())
	courses := []models.Course{
		{Code: "HS101", Department: "ECE", Semester: 1, LTPSC: "2-0-0-0-2",
			Instructors: []string{"F9"}, Enrolled: 240, Combined: true, Period: models.PeriodFull},
	}
	res := b.Bundle(courses, testSections(), testRooms())

	require.Empty(t, res.Rejected)
	require.Len(t, res.Units, 1)
	assert.Equal(t, models.PathwayCombined, res.Units[0].Pathway)
	assert.Equal(t, []string{"CSE-1-A", "CSE-1-B", "DSAI-1", "ECE-1"}, res.Units[0].SectionIDs)
}

func TestCombinedCourseWithoutOwnDepartmentSection(t *testing.T) {
	b := New(testGrid(t), zap.NewNop())
	// HSS runs no section of its own; the course still targets every
	// section of the semester.
	courses := []models.Course{
		{Code: "HS102", Department: "HSS", Semester: 1, LTPSC: "2-0-0-0-2",
			Instructors: []string{"F9"}, Enrolled: 240, Combined: true, Period: models.PeriodFull},
	}
	res := b.Bundle(courses, testSections(), testRooms())

	require.Empty(t, res.Rejected)
	require.Len(t, res.Units, 1)
	assert.Equal(t, models.PathwayCombined, res.Units[0].Pathway)
	assert.Equal(t, []string{"CSE-1-A", "CSE-1-B", "DSAI-1", "ECE-1"}, res.Units[0].SectionIDs)
}

func TestFinalSemesterRestrictedToPre(t *testing.T) {
	b := New(testGrid(t), zap.NewNop())
	sections := []models.Section{
		{ID: "CSE-7-A", Department: "CSE", Semester: models.MirrorSemester, Label: "A", Strength: 55},
	}
	courses := []models.Course{
		{Code: "CS701", Department: "CSE", Semester: models.MirrorSemester, LTPSC: "3-0-0-0-3",
			Instructors: []string{"F1"}, Enrolled: 55, Period: models.PeriodFull},
	}
	res := b.Bundle(courses, sections, testRooms())

	require.Empty(t, res.Rejected)
	require.Len(t, res.Units, 1)
	assert.Equal(t, []models.Period{models.PeriodPre}, res.Units[0].Periods)
}

func TestBasketClassification(t *testing.T) {
	b := New(testGrid(t), zap.NewNop())
	courses := []models.Course{
		{Code: "EL1", Department: "CSE", Semester: 1, LTPSC: "3-0-0-0-3", Enrolled: 40,
			Elective: true, Basket: "B1", Period: models.PeriodPre},
		{Code: "EL2", Department: "ECE", Semester: 1, LTPSC: "3-0-0-0-3", Enrolled: 30,
			Elective: true, Basket: "B1", Period: models.PeriodPre},
		{Code: "EL3", Department: "DSAI", Semester: 1, LTPSC: "3-0-0-0-3", Enrolled: 25,
			Elective: true, Basket: "B2", Period: models.PeriodPre},
	}
	res := b.Bundle(courses, testSections(), testRooms())

	require.Empty(t, res.Rejected)
	require.Len(t, res.Baskets, 2)

	b1 := res.Baskets["B1"]
	require.NotNil(t, b1)
	assert.Equal(t, models.PathwayBasketX, b1.Pathway)
	assert.Equal(t, []string{"CSE", "ECE"}, b1.Departments)
	assert.Equal(t, 70, b1.Enrollment)

	b2 := res.Baskets["B2"]
	require.NotNil(t, b2)
	assert.Equal(t, models.PathwayBasketDept, b2.Pathway)

	for _, u := range b1.Units {
		assert.Equal(t, models.PathwayBasketX, u.Pathway)
	}
}
