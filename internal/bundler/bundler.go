// Package bundler turns raw catalog records into schedulable units: it
// derives weekly session requirements from the L-T-P-S-C encoding, resolves
// each course onto its target sections, and classifies every course into
// exactly one scheduling pathway.
package bundler

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/shriyanssahoo/Byte-Me/internal/models"
	"github.com/shriyanssahoo/Byte-Me/internal/timegrid"
	appErrors "github.com/shriyanssahoo/Byte-Me/pkg/errors"
)

// lectureSessionHours is the teaching length one lecture session covers when
// converting weekly lecture hours into a session count.
const lectureSessionHours = 1.5

// Unit is one schedulable request: a course bound to the sections that must
// attend it, with its derived weekly session requirements.
type Unit struct {
	Course       models.Course
	Pathway      models.Pathway
	SectionIDs   []string
	Requirements []models.SessionRequirement
	Periods      []models.Period
}

// Basket groups the elective units sharing one reserved weekly slot.
type Basket struct {
	Code        string
	Pathway     models.Pathway
	Units       []*Unit
	Departments []string
	Enrollment  int
}

// Rejected records one course excluded from scheduling with its reason.
type Rejected struct {
	CourseCode string
	Err        error
}

// Result is the bundler output consumed by the phased scheduler.
type Result struct {
	Units    []*Unit
	Baskets  map[string]*Basket
	Rejected []Rejected
}

// Bundler derives schedulable units for one run.
type Bundler struct {
	grid   *timegrid.Grid
	logger *zap.Logger
}

// New builds a bundler over the run's time grid.
func New(grid *timegrid.Grid, logger *zap.Logger) *Bundler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bundler{grid: grid, logger: logger}
}

// ParseLTPSC splits an "L-T-P-S-C" string into its five components.
func ParseLTPSC(s string) (l, t, p, ss, c int, err error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 5 {
		return 0, 0, 0, 0, 0, fmt.Errorf("ltpsc %q must have five components", s)
	}
	vals := make([]int, 5)
	for i, part := range parts {
		v, convErr := strconv.Atoi(strings.TrimSpace(part))
		if convErr != nil || v < 0 {
			return 0, 0, 0, 0, 0, fmt.Errorf("ltpsc %q component %d is not a non-negative integer", s, i+1)
		}
		vals[i] = v
	}
	return vals[0], vals[1], vals[2], vals[3], vals[4], nil
}

// Bundle derives the schedulable units for the catalog. Courses failing a
// data-integrity check are excluded with a diagnostic; the run continues with
// the rest.
func (b *Bundler) Bundle(courses []models.Course, sections []models.Section, rooms []models.Room) Result {
	res := Result{Baskets: make(map[string]*Basket)}

	maxCap := map[models.RoomType]int{}
	for _, r := range rooms {
		if r.Capacity > maxCap[r.Type] {
			maxCap[r.Type] = r.Capacity
		}
	}

	for _, course := range courses {
		units, err := b.bundleCourse(course, sections, maxCap)
		if err != nil {
			b.logger.Warn("course excluded from scheduling",
				zap.String("course", course.Code), zap.Error(err))
			res.Rejected = append(res.Rejected, Rejected{CourseCode: course.Code, Err: err})
			continue
		}
		res.Units = append(res.Units, units...)
	}

	b.classifyBaskets(&res)
	return res
}

func (b *Bundler) bundleCourse(course models.Course, sections []models.Section, maxCap map[models.RoomType]int) ([]*Unit, error) {
	reqs, err := b.requirements(course)
	if err != nil {
		return nil, err
	}
	if course.Basket == "" && len(course.Instructors) == 0 {
		return nil, appErrors.Clone(appErrors.ErrDataIntegrity,
			fmt.Sprintf("course %s has no instructor", course.Code))
	}
	for _, req := range reqs {
		roomType := models.RoomClassroom
		if req.Type == models.SessionPractical {
			roomType = models.RoomLab
		}
		if course.Enrolled > maxCap[roomType] {
			return nil, appErrors.Clone(appErrors.ErrDataIntegrity,
				fmt.Sprintf("course %s enrollment %d exceeds every %s", course.Code, course.Enrolled, roomType))
		}
	}

	periods := periodsFor(course.Period)
	if course.Semester == models.MirrorSemester {
		// Final-semester teaching runs in the PRE half only; the scheduler
		// copies its pattern into POST.
		periods = []models.Period{models.PeriodPre}
	}

	own := ownSections(course, sections)

	pathway := models.PathwayCore
	switch {
	case course.Combined:
		pathway = models.PathwayCombined
		own = allSections(course.Semester, sections)
	case course.Elective && course.Basket != "":
		// Refined to basket-cross / basket-dept once baskets are grouped.
		pathway = models.PathwayBasketDept
	}
	// Combined courses resolve onto the whole semester, so the check runs
	// after the pathway is settled.
	if len(own) == 0 {
		return nil, appErrors.Clone(appErrors.ErrDataIntegrity,
			fmt.Sprintf("course %s has no section for department %s semester %d", course.Code, course.Department, course.Semester))
	}

	if course.HalfSemester && course.Department == "CSE" && pathway == models.PathwayCore {
		// One record becomes two section-specific requests, A and B.
		units := make([]*Unit, 0, len(own))
		for _, sec := range own {
			units = append(units, &Unit{
				Course:       course,
				Pathway:      pathway,
				SectionIDs:   []string{sec},
				Requirements: reqs,
				Periods:      periods,
			})
		}
		return units, nil
	}

	return []*Unit{{
		Course:       course,
		Pathway:      pathway,
		SectionIDs:   own,
		Requirements: reqs,
		Periods:      periods,
	}}, nil
}

// requirements converts L-T-P-S-C into weekly session demands. L is weekly
// lecture hours; T tutorial sessions; P practical hours, two per session.
func (b *Bundler) requirements(course models.Course) ([]models.SessionRequirement, error) {
	l, t, p, _, _, err := ParseLTPSC(course.LTPSC)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDataIntegrity.Code, appErrors.ErrDataIntegrity.Status,
			fmt.Sprintf("course %s has malformed LTPSC", course.Code))
	}
	if p%2 != 0 {
		return nil, appErrors.Clone(appErrors.ErrDataIntegrity,
			fmt.Sprintf("course %s practical hours %d must be even", course.Code, p))
	}

	var reqs []models.SessionRequirement
	if l > 0 {
		count := int((float64(l) + lectureSessionHours - 1e-9) / lectureSessionHours)
		reqs = append(reqs, models.SessionRequirement{
			Type:  models.SessionLecture,
			Count: count,
			Slots: b.grid.SessionSlots(models.SessionLecture),
		})
	}
	if t > 0 {
		reqs = append(reqs, models.SessionRequirement{
			Type:  models.SessionTutorial,
			Count: t,
			Slots: b.grid.SessionSlots(models.SessionTutorial),
		})
	}
	if p > 0 {
		reqs = append(reqs, models.SessionRequirement{
			Type:  models.SessionPractical,
			Count: p / 2,
			Slots: b.grid.SessionSlots(models.SessionPractical),
		})
	}
	if len(reqs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrDataIntegrity,
			fmt.Sprintf("course %s requires no sessions", course.Code))
	}
	return reqs, nil
}

func periodsFor(p models.Period) []models.Period {
	switch p {
	case models.PeriodPre:
		return []models.Period{models.PeriodPre}
	case models.PeriodPost:
		return []models.Period{models.PeriodPost}
	default:
		return []models.Period{models.PeriodPre, models.PeriodPost}
	}
}

func ownSections(course models.Course, sections []models.Section) []string {
	var out []string
	for _, s := range sections {
		if s.Department == course.Department && s.Semester == course.Semester {
			out = append(out, s.ID)
		}
	}
	sort.Strings(out)
	return out
}

func allSections(semester int, sections []models.Section) []string {
	var out []string
	for _, s := range sections {
		if s.Semester == semester {
			out = append(out, s.ID)
		}
	}
	sort.Strings(out)
	return out
}

// classifyBaskets groups elective units by basket code and settles the
// cross-departmental vs department-specific split, which is only knowable
// once the whole basket is visible.
func (b *Bundler) classifyBaskets(res *Result) {
	for _, u := range res.Units {
		if u.Course.Basket == "" || !u.Course.Elective {
			continue
		}
		basket, ok := res.Baskets[u.Course.Basket]
		if !ok {
			basket = &Basket{Code: u.Course.Basket}
			res.Baskets[u.Course.Basket] = basket
		}
		basket.Units = append(basket.Units, u)
		basket.Enrollment += u.Course.Enrolled
		if !containsString(basket.Departments, u.Course.Department) {
			basket.Departments = append(basket.Departments, u.Course.Department)
		}
	}
	for _, basket := range res.Baskets {
		sort.Strings(basket.Departments)
		pathway := models.PathwayBasketDept
		if len(basket.Departments) > 1 {
			pathway = models.PathwayBasketX
		}
		basket.Pathway = pathway
		for _, u := range basket.Units {
			u.Pathway = pathway
		}
	}
}

func containsString(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
