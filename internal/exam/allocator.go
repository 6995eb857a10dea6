// Package exam assigns end-semester sittings, rooms, seats and invigilators.
// It is a pipeline separate from the weekly timetable: courses are colored
// onto (date, session) sittings via their student-conflict graph, then split
// across rooms and seated column by column.
package exam

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/shriyanssahoo/Byte-Me/internal/models"
	appErrors "github.com/shriyanssahoo/Byte-Me/pkg/errors"
)

// Failure reasons recorded on unscheduled exams.
const (
	ReasonNoSitting    = "no conflict-free sitting in exam window"
	ReasonNoCapacity   = "insufficient room capacity at sitting"
	ReasonNoEnrollment = "no enrolled students"
)

// Config bounds the exam calendar.
type Config struct {
	WindowStart      time.Time
	WindowEnd        time.Time
	MaxPerDay        int // exams one student may sit per date
	Duration         time.Duration
	Sessions         []models.ExamSession
	InvigilatorsPool []models.Faculty
}

// DefaultSessions is the standard two-sitting day.
var DefaultSessions = []models.ExamSession{models.SessionForenoon, models.SessionAfternoon}

// Allocator runs one exam scheduling pass. Not safe for concurrent use.
type Allocator struct {
	cfg    Config
	rooms  []models.ExamRoom
	logger *zap.Logger
}

// New validates the exam window and room inventory.
func New(cfg Config, rooms []models.ExamRoom, logger *zap.Logger) (*Allocator, error) {
	if cfg.WindowEnd.Before(cfg.WindowStart) {
		return nil, appErrors.Clone(appErrors.ErrInvalidConfig, "exam window end precedes start")
	}
	if cfg.MaxPerDay <= 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidConfig, "per-student daily exam cap must be positive")
	}
	if len(cfg.Sessions) == 0 {
		cfg.Sessions = DefaultSessions
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 3 * time.Hour
	}
	if len(rooms) == 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidConfig, "exam room inventory is empty")
	}
	for _, r := range rooms {
		// Seating lays out Rows x Columns positions; a grid smaller than
		// the stated capacity would leave budgeted students unseated.
		if r.Rows > 0 && r.Columns > 0 && r.Rows*r.Columns < r.Capacity {
			return nil, appErrors.Clone(appErrors.ErrInvalidConfig,
				fmt.Sprintf("room %s grid %dx%d seats fewer than capacity %d", r.ID, r.Rows, r.Columns, r.Capacity))
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	sorted := make([]models.ExamRoom, len(rooms))
	copy(sorted, rooms)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Capacity != sorted[j].Capacity {
			return sorted[i].Capacity < sorted[j].Capacity
		}
		return sorted[i].ID < sorted[j].ID
	})
	return &Allocator{cfg: cfg, rooms: sorted, logger: logger}, nil
}

// Allocate produces the complete exam schedule for the catalog and the
// enrollment list. Courses that cannot be placed are reported, the rest of
// the calendar is still produced.
func (a *Allocator) Allocate(courses []models.Course, students []models.Student) (*models.ExamSchedule, error) {
	enrollment := buildEnrollment(students)
	conflicts := buildConflicts(students)
	slots := a.calendar()

	schedule := &models.ExamSchedule{}
	assigned := make(map[string]models.ExamSlot)

	for _, course := range orderByDegree(courses, conflicts) {
		rolls := enrollment[course.Code]
		if len(rolls) == 0 {
			a.logger.Warn("exam skipped", zap.String("course", course.Code), zap.String("reason", ReasonNoEnrollment))
			schedule.Unscheduled = append(schedule.Unscheduled, models.UnscheduledExam{
				CourseCode: course.Code, Reason: ReasonNoEnrollment,
			})
			continue
		}
		slot, ok := a.pickSlot(course.Code, rolls, students, conflicts, assigned, slots)
		if !ok {
			schedule.Unscheduled = append(schedule.Unscheduled, models.UnscheduledExam{
				CourseCode: course.Code, Reason: ReasonNoSitting,
			})
			continue
		}
		assigned[course.Code] = slot
		schedule.Exams = append(schedule.Exams, models.Exam{
			CourseCode: course.Code,
			CourseName: course.Name,
			Department: course.Department,
			Slot:       slot,
			Duration:   a.cfg.Duration,
			Students:   rolls,
		})
	}

	sort.Slice(schedule.Exams, func(i, j int) bool {
		a, b := schedule.Exams[i], schedule.Exams[j]
		if !a.Slot.Date.Equal(b.Slot.Date) {
			return a.Slot.Date.Before(b.Slot.Date)
		}
		if a.Slot.Session != b.Slot.Session {
			return a.Slot.Session < b.Slot.Session
		}
		return a.CourseCode < b.CourseCode
	})

	a.allocateRooms(schedule)
	a.seat(schedule)
	a.invigilate(schedule)
	return schedule, nil
}

// calendar expands the window into ordered sittings, skipping Sundays.
func (a *Allocator) calendar() []models.ExamSlot {
	var out []models.ExamSlot
	for d := a.cfg.WindowStart; !d.After(a.cfg.WindowEnd); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Sunday {
			continue
		}
		for _, s := range a.cfg.Sessions {
			out = append(out, models.ExamSlot{Date: d, Session: s})
		}
	}
	return out
}

func buildEnrollment(students []models.Student) map[string][]string {
	enrollment := make(map[string][]string)
	for _, st := range students {
		for _, code := range st.Courses {
			enrollment[code] = append(enrollment[code], st.Roll)
		}
	}
	for code := range enrollment {
		sort.Strings(enrollment[code])
	}
	return enrollment
}

// buildConflicts links every pair of courses sharing at least one student.
func buildConflicts(students []models.Student) map[string]map[string]bool {
	conflicts := make(map[string]map[string]bool)
	link := func(a, b string) {
		if conflicts[a] == nil {
			conflicts[a] = make(map[string]bool)
		}
		conflicts[a][b] = true
	}
	for _, st := range students {
		for i := 0; i < len(st.Courses); i++ {
			for j := i + 1; j < len(st.Courses); j++ {
				link(st.Courses[i], st.Courses[j])
				link(st.Courses[j], st.Courses[i])
			}
		}
	}
	return conflicts
}

// orderByDegree sorts most-constrained-first: descending conflict degree,
// course code as the deterministic tie-break.
func orderByDegree(courses []models.Course, conflicts map[string]map[string]bool) []models.Course {
	out := make([]models.Course, len(courses))
	copy(out, courses)
	sort.Slice(out, func(i, j int) bool {
		a, b := len(conflicts[out[i].Code]), len(conflicts[out[j].Code])
		if a != b {
			return a > b
		}
		return out[i].Code < out[j].Code
	})
	return out
}

// pickSlot returns the first sitting where no conflicting course is already
// seated and every enrolled student stays under the daily cap.
func (a *Allocator) pickSlot(code string, rolls []string, students []models.Student, conflicts map[string]map[string]bool, assigned map[string]models.ExamSlot, slots []models.ExamSlot) (models.ExamSlot, bool) {
	perDay := make(map[string]map[string]int) // roll -> date -> count
	rollCourses := make(map[string][]string)
	for _, st := range students {
		rollCourses[st.Roll] = st.Courses
	}
	for _, roll := range rolls {
		perDay[roll] = make(map[string]int)
		for _, c := range rollCourses[roll] {
			if slot, ok := assigned[c]; ok {
				perDay[roll][dateKey(slot.Date)]++
			}
		}
	}

	for _, slot := range slots {
		blocked := false
		for other := range conflicts[code] {
			if got, ok := assigned[other]; ok && sameSlot(got, slot) {
				blocked = true
				break
			}
		}
		if blocked {
			continue
		}
		day := dateKey(slot.Date)
		for _, roll := range rolls {
			if perDay[roll][day] >= a.cfg.MaxPerDay {
				blocked = true
				break
			}
		}
		if !blocked {
			return slot, true
		}
	}
	return models.ExamSlot{}, false
}

// allocateRooms splits each exam's cohort across rooms, preferring the
// smallest single room with enough free seats and spilling across rooms in
// descending free capacity when none suffices. Rooms may be shared by
// several departments within one sitting.
func (a *Allocator) allocateRooms(schedule *models.ExamSchedule) {
	free := make(map[string]map[string]int) // slot key -> room -> free seats
	kept := schedule.Exams[:0]

	for i := range schedule.Exams {
		exam := schedule.Exams[i]
		key := slotKey(exam.Slot)
		if free[key] == nil {
			free[key] = make(map[string]int, len(a.rooms))
			for _, r := range a.rooms {
				free[key][r.ID] = r.Capacity
			}
		}

		allocs, ok := a.splitRooms(free[key], exam.Students)
		if !ok {
			a.logger.Warn("exam dropped", zap.String("course", exam.CourseCode), zap.String("reason", ReasonNoCapacity))
			schedule.Unscheduled = append(schedule.Unscheduled, models.UnscheduledExam{
				CourseCode: exam.CourseCode, Reason: ReasonNoCapacity,
			})
			continue
		}
		for _, al := range allocs {
			free[key][al.RoomID] -= len(al.Rolls)
		}
		exam.Rooms = allocs
		kept = append(kept, exam)
	}
	schedule.Exams = kept
}

func (a *Allocator) splitRooms(free map[string]int, rolls []string) ([]models.ExamRoomAllocation, bool) {
	n := len(rolls)
	// Smallest single room that still fits the whole cohort.
	for _, r := range a.rooms {
		if free[r.ID] >= n {
			return []models.ExamRoomAllocation{{RoomID: r.ID, Rolls: rolls}}, true
		}
	}
	// Split, filling the largest free rooms first to minimize fragments.
	order := make([]models.ExamRoom, len(a.rooms))
	copy(order, a.rooms)
	sort.Slice(order, func(i, j int) bool {
		if free[order[i].ID] != free[order[j].ID] {
			return free[order[i].ID] > free[order[j].ID]
		}
		return order[i].ID < order[j].ID
	})
	var allocs []models.ExamRoomAllocation
	rest := rolls
	for _, r := range order {
		if len(rest) == 0 {
			break
		}
		take := free[r.ID]
		if take <= 0 {
			continue
		}
		if take > len(rest) {
			take = len(rest)
		}
		allocs = append(allocs, models.ExamRoomAllocation{RoomID: r.ID, Rolls: rest[:take]})
		rest = rest[take:]
	}
	if len(rest) > 0 {
		return nil, false
	}
	return allocs, true
}

// seat lays every shared room out column by column, alternating departments
// across columns so same-department neighbours sit apart. The cycle is fixed
// by sorted department order, never randomized.
func (a *Allocator) seat(schedule *models.ExamSchedule) {
	type group struct {
		dept   string
		course string
		rolls  []string
	}
	byRoom := make(map[string][]group) // slotKey|room -> groups

	for _, exam := range schedule.Exams {
		for _, al := range exam.Rooms {
			k := slotKey(exam.Slot) + "|" + al.RoomID
			byRoom[k] = append(byRoom[k], group{dept: exam.Department, course: exam.CourseCode, rolls: al.Rolls})
		}
	}

	keys := make([]string, 0, len(byRoom))
	for k := range byRoom {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		groups := byRoom[k]
		sort.Slice(groups, func(i, j int) bool {
			if groups[i].dept != groups[j].dept {
				return groups[i].dept < groups[j].dept
			}
			return groups[i].course < groups[j].course
		})
		room := a.roomByID(roomFromKey(k))
		rows, cols := roomLayout(room)

		queues := make([][]string, len(groups))
		courseOf := make([]string, len(groups))
		for i, g := range groups {
			queues[i] = g.rolls
			courseOf[i] = g.course
		}

		next := func(start int) int {
			for off := 0; off < len(queues); off++ {
				i := (start + off) % len(queues)
				if len(queues[i]) > 0 {
					return i
				}
			}
			return -1
		}

		for col := 0; col < cols; col++ {
			qi := next(col % len(queues))
			if qi < 0 {
				break
			}
			for row := 0; row < rows; row++ {
				if len(queues[qi]) == 0 {
					qi = next(qi + 1)
					if qi < 0 {
						break
					}
				}
				roll := queues[qi][0]
				queues[qi] = queues[qi][1:]
				schedule.Seating = append(schedule.Seating, models.SeatAssignment{
					RoomID:     room.ID,
					Column:     col,
					Row:        row,
					Roll:       roll,
					CourseCode: courseOf[qi],
				})
			}
		}
	}
}

// invigilate assigns the least-loaded eligible faculty member to every
// occupied (room, sitting), ties broken by identifier.
func (a *Allocator) invigilate(schedule *models.ExamSchedule) {
	if len(a.cfg.InvigilatorsPool) == 0 {
		return
	}
	pool := make([]models.Faculty, len(a.cfg.InvigilatorsPool))
	copy(pool, a.cfg.InvigilatorsPool)
	sort.Slice(pool, func(i, j int) bool { return pool[i].ID < pool[j].ID })

	load := make(map[string]int)
	busy := make(map[string]bool) // slotKey|faculty

	type duty struct {
		slot models.ExamSlot
		room string
	}
	seen := make(map[string]bool)
	var duties []duty
	for _, exam := range schedule.Exams {
		for _, al := range exam.Rooms {
			k := slotKey(exam.Slot) + "|" + al.RoomID
			if !seen[k] {
				seen[k] = true
				duties = append(duties, duty{slot: exam.Slot, room: al.RoomID})
			}
		}
	}
	sort.Slice(duties, func(i, j int) bool {
		if !duties[i].slot.Date.Equal(duties[j].slot.Date) {
			return duties[i].slot.Date.Before(duties[j].slot.Date)
		}
		if duties[i].slot.Session != duties[j].slot.Session {
			return duties[i].slot.Session < duties[j].slot.Session
		}
		return duties[i].room < duties[j].room
	})

	for _, d := range duties {
		best := ""
		for _, f := range pool {
			if busy[slotKey(d.slot)+"|"+f.ID] {
				continue
			}
			if best == "" || load[f.ID] < load[best] {
				best = f.ID
			}
		}
		if best == "" {
			a.logger.Warn("no free invigilator",
				zap.String("room", d.room), zap.String("date", dateKey(d.slot.Date)))
			continue
		}
		load[best]++
		busy[slotKey(d.slot)+"|"+best] = true
		schedule.Invigilations = append(schedule.Invigilations, models.Invigilation{
			RoomID: d.room, Slot: d.slot, FacultyID: best,
		})
	}
}

func (a *Allocator) roomByID(id string) models.ExamRoom {
	for _, r := range a.rooms {
		if r.ID == id {
			return r
		}
	}
	return models.ExamRoom{ID: id}
}

// roomLayout falls back to a single column when the hall geometry is not
// recorded.
func roomLayout(r models.ExamRoom) (rows, cols int) {
	if r.Rows > 0 && r.Columns > 0 {
		return r.Rows, r.Columns
	}
	return r.Capacity, 1
}

func dateKey(d time.Time) string { return d.Format("2006-01-02") }

func slotKey(s models.ExamSlot) string {
	return fmt.Sprintf("%s|%s", dateKey(s.Date), s.Session)
}

func sameSlot(a, b models.ExamSlot) bool {
	return a.Date.Equal(b.Date) && a.Session == b.Session
}

func roomFromKey(k string) string {
	for i := len(k) - 1; i >= 0; i-- {
		if k[i] == '|' {
			return k[i+1:]
		}
	}
	return k
}
