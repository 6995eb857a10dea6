// Package scheduler runs the phased placement algorithm that turns bundled
// course units into a committed weekly timetable. Phases run strictly in
// order: basket placeholders, combined classes, core courses, then elective
// finalization. Placement failures accumulate as diagnostics; the run always
// completes with a partial timetable rather than aborting.
package scheduler

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/shriyanssahoo/Byte-Me/internal/bundler"
	"github.com/shriyanssahoo/Byte-Me/internal/ledger"
	"github.com/shriyanssahoo/Byte-Me/internal/models"
	"github.com/shriyanssahoo/Byte-Me/internal/timegrid"
	appErrors "github.com/shriyanssahoo/Byte-Me/pkg/errors"
)

// Failure reasons recorded on unscheduled sessions.
const (
	ReasonNoSectionSlot = "no section slot"
	ReasonNoFacultySlot = "no faculty slot"
	ReasonNoRoom        = "no room"
	ReasonNoSharedSlot  = "no shared room/slot"
	ReasonProbeBudget   = "probe budget exhausted"
)

// Config bounds one scheduling run.
type Config struct {
	Days      int
	MaxProbes int
}

// DefaultConfig returns the standard five-day week with a probe cap high
// enough for realistic catalogs.
func DefaultConfig() Config {
	return Config{Days: 5, MaxProbes: 20000}
}

// Scheduler owns the ledger for one run. Not safe for concurrent Run calls.
type Scheduler struct {
	grid   *timegrid.Grid
	cfg    Config
	rooms  []models.Room
	logger *zap.Logger

	led       *ledger.Ledger
	courseDay map[string]bool
	dayLoad   map[string]int
	promoted  map[string]bool
	unsched   []models.UnscheduledSession
}

// placeholderSlot is one basket reservation waiting for finalization.
type placeholderSlot struct {
	sessionID string
	period    models.Period
	day       models.Day
	slots     models.SlotRange
}

// New validates configuration and room inventory before any phase runs.
func New(grid *timegrid.Grid, rooms []models.Room, cfg Config, logger *zap.Logger) (*Scheduler, error) {
	if grid == nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidConfig, "time grid is required")
	}
	if cfg.Days <= 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidConfig, "day count must be positive")
	}
	if cfg.MaxProbes <= 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidConfig, "probe budget must be positive")
	}
	if len(rooms) == 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidConfig, "room inventory is empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	sorted := make([]models.Room, len(rooms))
	copy(sorted, rooms)
	// Smallest sufficient room first keeps large rooms available for
	// large-enrollment courses placed later.
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Capacity != sorted[j].Capacity {
			return sorted[i].Capacity < sorted[j].Capacity
		}
		return sorted[i].ID < sorted[j].ID
	})
	return &Scheduler{grid: grid, cfg: cfg, rooms: sorted, logger: logger}, nil
}

// Run executes all four phases over the bundled catalog and returns the
// finalized timetable. Input records are not mutated.
func (s *Scheduler) Run(res bundler.Result) (*models.Timetable, error) {
	led, err := ledger.New(s.cfg.Days, s.grid.SlotsPerDay())
	if err != nil {
		return nil, err
	}
	s.led = led
	s.courseDay = make(map[string]bool)
	s.dayLoad = make(map[string]int)
	s.promoted = make(map[string]bool)
	s.unsched = nil

	placeholders := s.phasePlaceholders(res.Baskets)
	s.phaseCombined(res.Units)
	s.phaseCore(res.Units)
	s.phaseFinalize(res.Baskets, placeholders)

	bookings := s.led.Bookings()
	for i := range bookings {
		if bookings[i].State == models.BookingPlaceholder && s.promoted[bookings[i].SessionID] {
			bookings[i].State = models.BookingFinalized
		}
	}
	sort.Slice(s.unsched, func(i, j int) bool {
		a, b := s.unsched[i], s.unsched[j]
		if a.CourseCode != b.CourseCode {
			return a.CourseCode < b.CourseCode
		}
		if a.SectionID != b.SectionID {
			return a.SectionID < b.SectionID
		}
		return a.Session < b.Session
	})
	return &models.Timetable{Bookings: bookings, Unscheduled: s.unsched}, nil
}

// phasePlaceholders reserves one shared slot range per weekly basket session
// across every participating section, before dense core packing consumes the
// good slots. Rooms and instructors stay unresolved until finalization.
func (s *Scheduler) phasePlaceholders(baskets map[string]*bundler.Basket) map[string][]placeholderSlot {
	reserved := make(map[string][]placeholderSlot)
	for _, code := range sortedBasketCodes(baskets) {
		basket := baskets[code]
		sections := basketSections(basket)
		length, count := basketDemand(basket)
		if length == 0 || count == 0 || len(sections) == 0 {
			continue
		}
		semester := basket.Units[0].Course.Semester
		period := models.PeriodPre
		mirror := semester == models.MirrorSemester

		for n := 0; n < count; n++ {
			sessionID := fmt.Sprintf("%s:placeholder:%s:%d", code, period, n)
			day, slots, reason := s.findSharedSlot(sections, nil, semester, period, code, length)
			if reason != "" {
				s.reportBasket(basket, period, reason)
				continue
			}
			var set []models.Booking
			for _, sec := range sections {
				set = append(set, models.Booking{
					ID:         sessionID + ":section:" + sec,
					SessionID:  sessionID,
					CourseCode: code,
					Session:    models.SessionLecture,
					Period:     period,
					Day:        day,
					Slots:      slots,
					Kind:       models.ResourceSection,
					ResourceID: sec,
					State:      models.BookingPlaceholder,
					Basket:     code,
				})
			}
			if mirror {
				set = withMirrors(set)
			}
			if err := s.led.Commit(set...); err != nil {
				s.reportBasket(basket, period, ReasonNoSectionSlot)
				continue
			}
			s.markPlaced(code, sections, period, day)
			if mirror {
				s.markPlaced(code, sections, models.PeriodPost, day)
			}
			reserved[code] = append(reserved[code], placeholderSlot{
				sessionID: sessionID, period: period, day: day, slots: slots,
			})
		}
	}
	return reserved
}

// phaseCombined places courses attended jointly by every section of a
// semester into the shared high-capacity rooms.
func (s *Scheduler) phaseCombined(units []*bundler.Unit) {
	for _, u := range sortedUnits(units, models.PathwayCombined) {
		for _, period := range u.Periods {
			for _, req := range u.Requirements {
				for n := 0; n < req.Count; n++ {
					if !s.placeSession(u, period, req, n, ReasonNoSharedSlot) {
						break
					}
				}
			}
		}
	}
}

// phaseCore places per-section sessions most-constrained-first, spreading
// each section's load across the least-loaded days.
func (s *Scheduler) phaseCore(units []*bundler.Unit) {
	for _, u := range sortedUnits(units, models.PathwayCore) {
		for _, period := range u.Periods {
			for _, req := range u.Requirements {
				for n := 0; n < req.Count; n++ {
					s.placeSession(u, period, req, n, "")
				}
			}
		}
	}
}

// phaseFinalize promotes basket placeholders: each elective binds a concrete
// room and instructor inside the reserved ranges, overflowing into the POST
// period once the reserved PRE allocation is exhausted.
func (s *Scheduler) phaseFinalize(baskets map[string]*bundler.Basket, reserved map[string][]placeholderSlot) {
	for _, code := range sortedBasketCodes(baskets) {
		basket := baskets[code]
		slots := reserved[code]
		units := make([]*bundler.Unit, len(basket.Units))
		copy(units, basket.Units)
		sort.Slice(units, func(i, j int) bool { return units[i].Course.Code < units[j].Course.Code })

		for _, u := range units {
			plan := sessionPlan(u)
			mirror := u.Course.Semester == models.MirrorSemester
			placed := 0
			for _, ph := range slots {
				if placed == len(plan) {
					break
				}
				if s.bindElective(u, plan[placed], ph) {
					s.promoted[ph.sessionID] = true
					if mirror {
						s.promoted[mirrorID(ph.sessionID)] = true
					}
					placed++
				}
			}
			// PRE reservation exhausted; remaining sessions spill into POST.
			// Mirrored electives own the POST half already and cannot spill.
			for placed < len(plan) {
				if mirror {
					s.report(u, models.PeriodPre, plan[placed].Type, ReasonNoSectionSlot)
					placed++
					continue
				}
				if !s.placeSession(u, models.PeriodPost, plan[placed], placed, "") {
					break
				}
				placed++
			}
		}
	}
}

// bindElective attaches a room and the course's instructors to one reserved
// placeholder range. The section reservations already exist, so only room and
// faculty availability are at stake. The room matches the session type:
// practicals bind labs.
func (s *Scheduler) bindElective(u *bundler.Unit, req models.SessionRequirement, ph placeholderSlot) bool {
	course := u.Course
	roomType := models.RoomClassroom
	if req.Type == models.SessionPractical {
		roomType = models.RoomLab
	}
	mirror := course.Semester == models.MirrorSemester
	sessionID := fmt.Sprintf("%s:%s", ph.sessionID, course.Code)

	for _, room := range s.rooms {
		if room.Type != roomType || room.Capacity < course.Enrolled {
			continue
		}
		if !s.led.IsFree(models.ResourceRoom, room.ID, ph.period, ph.day, ph.slots) {
			continue
		}
		if !s.facultyFree(course.Instructors, ph.period, ph.day, ph.slots) {
			continue
		}
		if mirror {
			if !s.led.IsFree(models.ResourceRoom, room.ID, models.PeriodPost, ph.day, ph.slots) {
				continue
			}
			if !s.facultyFree(course.Instructors, models.PeriodPost, ph.day, ph.slots) {
				continue
			}
		}
		set := []models.Booking{{
			ID:         sessionID + ":room:" + room.ID,
			SessionID:  sessionID,
			CourseCode: course.Code,
			Session:    req.Type,
			Period:     ph.period,
			Day:        ph.day,
			Slots:      ph.slots,
			Kind:       models.ResourceRoom,
			ResourceID: room.ID,
			State:      models.BookingFinalized,
			Basket:     course.Basket,
		}}
		for _, fac := range course.Instructors {
			set = append(set, models.Booking{
				ID:         sessionID + ":faculty:" + fac,
				SessionID:  sessionID,
				CourseCode: course.Code,
				Session:    req.Type,
				Period:     ph.period,
				Day:        ph.day,
				Slots:      ph.slots,
				Kind:       models.ResourceFaculty,
				ResourceID: fac,
				State:      models.BookingFinalized,
				Basket:     course.Basket,
			})
		}
		if mirror {
			set = withMirrors(set)
		}
		if err := s.led.Commit(set...); err != nil {
			continue
		}
		return true
	}
	return false
}

// placeSession finds and commits one session of a unit. Returns false and
// records a diagnostic when no feasible placement exists. failOverride, when
// set, replaces the scanned failure reason (structural infeasibility for
// combined classes).
func (s *Scheduler) placeSession(u *bundler.Unit, period models.Period, req models.SessionRequirement, n int, failOverride string) bool {
	course := u.Course
	roomType := models.RoomClassroom
	if req.Type == models.SessionPractical {
		roomType = models.RoomLab
	}

	sessionID := fmt.Sprintf("%s:%s:%s:%d", course.Code, req.Type, period, n)
	day, slots, roomID, reason := s.findPlacement(u, period, req.Slots, roomType)
	if reason != "" {
		if failOverride != "" {
			reason = failOverride
		}
		s.report(u, period, req.Type, reason)
		return false
	}

	set := []models.Booking{{
		ID:         sessionID + ":room:" + roomID,
		SessionID:  sessionID,
		CourseCode: course.Code,
		Session:    req.Type,
		Period:     period,
		Day:        day,
		Slots:      slots,
		Kind:       models.ResourceRoom,
		ResourceID: roomID,
		State:      models.BookingFinalized,
		Basket:     course.Basket,
	}}
	for _, fac := range course.Instructors {
		set = append(set, models.Booking{
			ID:         sessionID + ":faculty:" + fac,
			SessionID:  sessionID,
			CourseCode: course.Code,
			Session:    req.Type,
			Period:     period,
			Day:        day,
			Slots:      slots,
			Kind:       models.ResourceFaculty,
			ResourceID: fac,
			State:      models.BookingFinalized,
			Basket:     course.Basket,
		})
	}
	for _, sec := range u.SectionIDs {
		set = append(set, models.Booking{
			ID:         sessionID + ":section:" + sec,
			SessionID:  sessionID,
			CourseCode: course.Code,
			Session:    req.Type,
			Period:     period,
			Day:        day,
			Slots:      slots,
			Kind:       models.ResourceSection,
			ResourceID: sec,
			State:      models.BookingFinalized,
			Basket:     course.Basket,
		})
	}
	if course.Semester == models.MirrorSemester {
		set = withMirrors(set)
	}
	if err := s.led.Commit(set...); err != nil {
		s.report(u, period, req.Type, ReasonNoSectionSlot)
		return false
	}
	s.markPlaced(course.Code, u.SectionIDs, period, day)
	if course.Semester == models.MirrorSemester {
		s.markPlaced(course.Code, u.SectionIDs, models.PeriodPost, day)
	}
	return true
}

// findPlacement scans room, then day, then slot index for the first range
// free across room, instructors and every target section, honoring lunch
// windows, break spacing and the one-session-per-course-per-day rule. Room
// order is ascending capacity then identifier; day order prefers the least
// loaded day for the unit's sections.
func (s *Scheduler) findPlacement(u *bundler.Unit, period models.Period, length int, roomType models.RoomType) (models.Day, models.SlotRange, string, string) {
	course := u.Course
	days := s.orderedDays(u.SectionIDs, period)
	lunch, hasLunch := s.grid.LunchWindow(course.Semester)
	sectionPad := s.grid.BreakSlots(models.ResourceSection)
	facultyPad := s.grid.BreakSlots(models.ResourceFaculty)

	probes := 0
	sectionSeen := false
	facultySeen := false
	mirror := course.Semester == models.MirrorSemester

	for _, room := range s.rooms {
		if room.Type != roomType || room.Capacity < course.Enrolled {
			continue
		}
		for _, day := range days {
			if s.onDay(course.Code, u.SectionIDs, period, day) {
				continue
			}
			for start := 0; start+length <= s.grid.SlotsPerDay(); start++ {
				probes++
				if probes > s.cfg.MaxProbes {
					return 0, models.SlotRange{}, "", ReasonProbeBudget
				}
				r := models.SlotRange{Start: start, Length: length}
				if hasLunch && r.Overlaps(lunch) {
					continue
				}
				if !s.sectionsFree(u.SectionIDs, period, day, r, sectionPad) {
					continue
				}
				sectionSeen = true
				if !s.facultyFreePadded(course.Instructors, period, day, r, facultyPad) {
					continue
				}
				facultySeen = true
				if !s.led.IsFree(models.ResourceRoom, room.ID, period, day, r) {
					continue
				}
				if mirror && !s.mirrorFree(u, room.ID, day, r, sectionPad, facultyPad) {
					continue
				}
				return day, r, room.ID, ""
			}
		}
	}

	switch {
	case !sectionSeen:
		return 0, models.SlotRange{}, "", ReasonNoSectionSlot
	case !facultySeen:
		return 0, models.SlotRange{}, "", ReasonNoFacultySlot
	default:
		return 0, models.SlotRange{}, "", ReasonNoRoom
	}
}

// findSharedSlot is the roomless variant used for basket placeholders.
func (s *Scheduler) findSharedSlot(sections, instructors []string, semester int, period models.Period, courseCode string, length int) (models.Day, models.SlotRange, string) {
	days := s.orderedDays(sections, period)
	lunch, hasLunch := s.grid.LunchWindow(semester)
	sectionPad := s.grid.BreakSlots(models.ResourceSection)

	for _, day := range days {
		if s.onDay(courseCode, sections, period, day) {
			continue
		}
		for start := 0; start+length <= s.grid.SlotsPerDay(); start++ {
			r := models.SlotRange{Start: start, Length: length}
			if hasLunch && r.Overlaps(lunch) {
				continue
			}
			if !s.sectionsFree(sections, period, day, r, sectionPad) {
				continue
			}
			if semester == models.MirrorSemester && !s.sectionsFree(sections, models.PeriodPost, day, r, sectionPad) {
				continue
			}
			if len(instructors) > 0 && !s.facultyFreePadded(instructors, period, day, r, s.grid.BreakSlots(models.ResourceFaculty)) {
				continue
			}
			return day, r, ""
		}
	}
	return 0, models.SlotRange{}, ReasonNoSectionSlot
}

func (s *Scheduler) sectionsFree(sections []string, period models.Period, day models.Day, r models.SlotRange, pad int) bool {
	for _, sec := range sections {
		if !s.led.IsFreePadded(models.ResourceSection, sec, period, day, r, pad) {
			return false
		}
	}
	return true
}

func (s *Scheduler) facultyFree(instructors []string, period models.Period, day models.Day, r models.SlotRange) bool {
	for _, fac := range instructors {
		if !s.led.IsFree(models.ResourceFaculty, fac, period, day, r) {
			return false
		}
	}
	return true
}

func (s *Scheduler) facultyFreePadded(instructors []string, period models.Period, day models.Day, r models.SlotRange, pad int) bool {
	for _, fac := range instructors {
		if !s.led.IsFreePadded(models.ResourceFaculty, fac, period, day, r, pad) {
			return false
		}
	}
	return true
}

// mirrorFree reports whether the same range is open in the POST period for
// every resource a mirrored placement copies forward.
func (s *Scheduler) mirrorFree(u *bundler.Unit, roomID string, day models.Day, r models.SlotRange, sectionPad, facultyPad int) bool {
	if !s.sectionsFree(u.SectionIDs, models.PeriodPost, day, r, sectionPad) {
		return false
	}
	if !s.facultyFreePadded(u.Course.Instructors, models.PeriodPost, day, r, facultyPad) {
		return false
	}
	return s.led.IsFree(models.ResourceRoom, roomID, models.PeriodPost, day, r)
}

func mirrorID(id string) string { return id + ":post" }

// withMirrors appends a POST-period copy of every booking so the ledger
// reserves both halves in one atomic commit.
func withMirrors(set []models.Booking) []models.Booking {
	out := make([]models.Booking, 0, 2*len(set))
	for _, b := range set {
		out = append(out, b)
		c := b
		c.ID = mirrorID(b.ID)
		c.SessionID = mirrorID(b.SessionID)
		c.Period = models.PeriodPost
		out = append(out, c)
	}
	return out
}

// orderedDays sorts the working days by the sections' current load, keeping
// ascending day index as the tie-break so identical input replays identically.
func (s *Scheduler) orderedDays(sections []string, period models.Period) []models.Day {
	type dayLoad struct {
		day  models.Day
		load int
	}
	entries := make([]dayLoad, s.cfg.Days)
	for i := 0; i < s.cfg.Days; i++ {
		day := models.Day(i)
		load := 0
		for _, sec := range sections {
			if l := s.dayLoad[loadKey(sec, period, day)]; l > load {
				load = l
			}
		}
		entries[i] = dayLoad{day: day, load: load}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].load < entries[j].load })
	out := make([]models.Day, len(entries))
	for i, e := range entries {
		out[i] = e.day
	}
	return out
}

func (s *Scheduler) onDay(courseCode string, sections []string, period models.Period, day models.Day) bool {
	for _, sec := range sections {
		if s.courseDay[courseDayKey(courseCode, sec, period, day)] {
			return true
		}
	}
	return false
}

func (s *Scheduler) markPlaced(courseCode string, sections []string, period models.Period, day models.Day) {
	for _, sec := range sections {
		s.courseDay[courseDayKey(courseCode, sec, period, day)] = true
		s.dayLoad[loadKey(sec, period, day)]++
	}
}

func (s *Scheduler) report(u *bundler.Unit, period models.Period, st models.SessionType, reason string) {
	s.logger.Warn("session left unscheduled",
		zap.String("course", u.Course.Code),
		zap.String("period", string(period)),
		zap.String("reason", reason))
	for _, sec := range u.SectionIDs {
		s.unsched = append(s.unsched, models.UnscheduledSession{
			CourseCode: u.Course.Code,
			SectionID:  sec,
			Session:    st,
			Period:     period,
			Reason:     reason,
		})
	}
}

func (s *Scheduler) reportBasket(basket *bundler.Basket, period models.Period, reason string) {
	for _, sec := range basketSections(basket) {
		s.unsched = append(s.unsched, models.UnscheduledSession{
			CourseCode: basket.Code,
			SectionID:  sec,
			Session:    models.SessionLecture,
			Period:     period,
			Reason:     reason,
		})
	}
}

func courseDayKey(course, section string, period models.Period, day models.Day) string {
	return fmt.Sprintf("%s|%s|%s|%d", course, section, period, day)
}

func loadKey(section string, period models.Period, day models.Day) string {
	return fmt.Sprintf("%s|%s|%d", section, period, day)
}

func sortedBasketCodes(baskets map[string]*bundler.Basket) []string {
	codes := make([]string, 0, len(baskets))
	for code := range baskets {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func basketSections(basket *bundler.Basket) []string {
	seen := map[string]bool{}
	var out []string
	for _, u := range basket.Units {
		for _, sec := range u.SectionIDs {
			if !seen[sec] {
				seen[sec] = true
				out = append(out, sec)
			}
		}
	}
	sort.Strings(out)
	return out
}

// basketDemand returns the slot length and weekly count a basket reserves:
// the widest session and the highest weekly count among its offerings.
func basketDemand(basket *bundler.Basket) (length, count int) {
	for _, u := range basket.Units {
		if n := weeklySessions(u); n > count {
			count = n
		}
		for _, req := range u.Requirements {
			if req.Slots > length {
				length = req.Slots
			}
		}
	}
	return length, count
}

func weeklySessions(u *bundler.Unit) int {
	total := 0
	for _, req := range u.Requirements {
		total += req.Count
	}
	return total
}

// sessionPlan expands a unit's requirements into one entry per weekly
// session, in requirement order.
func sessionPlan(u *bundler.Unit) []models.SessionRequirement {
	var plan []models.SessionRequirement
	for _, req := range u.Requirements {
		for n := 0; n < req.Count; n++ {
			plan = append(plan, req)
		}
	}
	return plan
}

// sortedUnits filters by pathway and orders most-constrained-first, with the
// course code as the final tie-break.
func sortedUnits(units []*bundler.Unit, pathway models.Pathway) []*bundler.Unit {
	var out []*bundler.Unit
	for _, u := range units {
		if u.Pathway == pathway {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := weeklySessions(out[i]), weeklySessions(out[j])
		if a != b {
			return a > b
		}
		return out[i].Course.Code < out[j].Course.Code
	})
	return out
}
