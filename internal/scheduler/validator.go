package scheduler

import (
	"fmt"
	"sort"

	"github.com/shriyanssahoo/Byte-Me/internal/bundler"
	"github.com/shriyanssahoo/Byte-Me/internal/models"
	"github.com/shriyanssahoo/Byte-Me/internal/timegrid"
)

// Violation kinds reported by the validator.
const (
	ViolationOverlap     = "overlap"
	ViolationDuplicate   = "duplicate-day"
	ViolationPartial     = "partial-fulfillment"
	ViolationRoomType    = "room-type-mismatch"
	ViolationCapacity    = "capacity-exceeded"
	ViolationBreakSpacer = "break-spacing"
)

// Validator is a pure read pass over a committed booking set. It never
// mutates or corrects; findings are returned as a structured list and an
// empty list means the timetable holds every hard constraint.
type Validator struct {
	grid  *timegrid.Grid
	rooms map[string]models.Room
}

// NewValidator indexes the room inventory for capacity and type checks.
func NewValidator(grid *timegrid.Grid, rooms []models.Room) *Validator {
	idx := make(map[string]models.Room, len(rooms))
	for _, r := range rooms {
		idx[r.ID] = r
	}
	return &Validator{grid: grid, rooms: idx}
}

// Validate checks the finalized timetable against the bundled requirements.
func (v *Validator) Validate(t *models.Timetable, res bundler.Result) []models.Violation {
	var out []models.Violation
	out = append(out, v.checkOverlaps(t)...)
	out = append(out, v.checkOncePerDay(t)...)
	out = append(out, v.checkFulfillment(t, res)...)
	out = append(out, v.checkRooms(t, res)...)
	out = append(out, v.checkBreakSpacing(t)...)
	return out
}

type occupancyKey struct {
	kind   models.ResourceKind
	id     string
	period models.Period
	day    models.Day
}

func groupByOccupancy(t *models.Timetable) map[occupancyKey][]models.Booking {
	groups := make(map[occupancyKey][]models.Booking)
	for _, b := range t.Bookings {
		k := occupancyKey{kind: b.Kind, id: b.ResourceID, period: b.Period, day: b.Day}
		groups[k] = append(groups[k], b)
	}
	for k := range groups {
		g := groups[k]
		sort.Slice(g, func(i, j int) bool { return g[i].Slots.Start < g[j].Slots.Start })
		groups[k] = g
	}
	return groups
}

func (v *Validator) checkOverlaps(t *models.Timetable) []models.Violation {
	var out []models.Violation
	for key, group := range groupByOccupancy(t) {
		for i := 1; i < len(group); i++ {
			if group[i].Slots.Overlaps(group[i-1].Slots) {
				out = append(out, models.Violation{
					Kind:       ViolationOverlap,
					CourseCode: group[i].CourseCode,
					ResourceID: key.id,
					Day:        key.day,
					Slots:      group[i].Slots,
					Detail: fmt.Sprintf("%s %s double-booked with %s",
						key.kind, key.id, group[i-1].CourseCode),
				})
			}
		}
	}
	return out
}

func (v *Validator) checkOncePerDay(t *models.Timetable) []models.Violation {
	type key struct {
		section string
		course  string
		period  models.Period
		day     models.Day
	}
	sessions := make(map[key]map[string]bool)
	first := make(map[key]models.Booking)
	for _, b := range t.Bookings {
		if b.Kind != models.ResourceSection {
			continue
		}
		k := key{section: b.ResourceID, course: b.CourseCode, period: b.Period, day: b.Day}
		if sessions[k] == nil {
			sessions[k] = make(map[string]bool)
			first[k] = b
		}
		sessions[k][b.SessionID] = true
	}

	var out []models.Violation
	for k, ids := range sessions {
		if len(ids) <= 1 {
			continue
		}
		b := first[k]
		out = append(out, models.Violation{
			Kind:       ViolationDuplicate,
			CourseCode: k.course,
			ResourceID: k.section,
			Day:        k.day,
			Slots:      b.Slots,
			Detail:     fmt.Sprintf("%d sessions of the course on the same day", len(ids)),
		})
	}
	return out
}

// checkFulfillment verifies every unit's committed session count matches its
// derived weekly requirement. A partially placed course is a distinct finding
// from one the scheduler already reported as unscheduled.
func (v *Validator) checkFulfillment(t *models.Timetable, res bundler.Result) []models.Violation {
	committed := make(map[string]map[string]bool)
	for _, b := range t.Bookings {
		if b.Kind != models.ResourceRoom {
			continue
		}
		if committed[b.CourseCode] == nil {
			committed[b.CourseCode] = make(map[string]bool)
		}
		committed[b.CourseCode][b.SessionID] = true
	}

	var out []models.Violation
	seen := make(map[string]bool)
	for _, u := range res.Units {
		if seen[u.Course.Code] {
			continue
		}
		seen[u.Course.Code] = true
		expected := weeklySessions(u) * unitMultiplier(u)
		got := len(committed[u.Course.Code])
		if got > 0 && got < expected {
			out = append(out, models.Violation{
				Kind:       ViolationPartial,
				CourseCode: u.Course.Code,
				Detail:     fmt.Sprintf("committed %d of %d weekly sessions", got, expected),
			})
		}
	}
	return out
}

// unitMultiplier accounts for full-period courses repeating their weekly
// demand in both semester halves, final-semester courses mirrored into POST,
// and half-semester splits doubling the request count under one course code.
func unitMultiplier(u *bundler.Unit) int {
	m := len(u.Periods)
	if u.Course.HalfSemester && u.Course.Department == "CSE" && u.Pathway == models.PathwayCore {
		m *= 2
	}
	if u.Course.Semester == models.MirrorSemester {
		m *= 2
	}
	if u.Course.Basket != "" {
		m = 1
	}
	return m
}

func (v *Validator) checkRooms(t *models.Timetable, res bundler.Result) []models.Violation {
	enrolled := make(map[string]int)
	for _, u := range res.Units {
		enrolled[u.Course.Code] = u.Course.Enrolled
	}

	var out []models.Violation
	for _, b := range t.Bookings {
		if b.Kind != models.ResourceRoom {
			continue
		}
		room, ok := v.rooms[b.ResourceID]
		if !ok {
			out = append(out, models.Violation{
				Kind:       ViolationRoomType,
				CourseCode: b.CourseCode,
				ResourceID: b.ResourceID,
				Day:        b.Day,
				Slots:      b.Slots,
				Detail:     "booked room is not in the inventory",
			})
			continue
		}
		if b.Session == models.SessionPractical && room.Type != models.RoomLab {
			out = append(out, models.Violation{
				Kind:       ViolationRoomType,
				CourseCode: b.CourseCode,
				ResourceID: b.ResourceID,
				Day:        b.Day,
				Slots:      b.Slots,
				Detail:     "practical session booked outside a lab",
			})
		}
		if n := enrolled[b.CourseCode]; n > room.Capacity {
			out = append(out, models.Violation{
				Kind:       ViolationCapacity,
				CourseCode: b.CourseCode,
				ResourceID: b.ResourceID,
				Day:        b.Day,
				Slots:      b.Slots,
				Detail:     fmt.Sprintf("enrollment %d exceeds room capacity %d", n, room.Capacity),
			})
		}
	}
	return out
}

func (v *Validator) checkBreakSpacing(t *models.Timetable) []models.Violation {
	var out []models.Violation
	for key, group := range groupByOccupancy(t) {
		pad := v.grid.BreakSlots(key.kind)
		if pad == 0 {
			continue
		}
		for i := 1; i < len(group); i++ {
			gap := group[i].Slots.Start - group[i-1].Slots.End()
			if gap >= 0 && gap < pad {
				out = append(out, models.Violation{
					Kind:       ViolationBreakSpacer,
					CourseCode: group[i].CourseCode,
					ResourceID: key.id,
					Day:        key.day,
					Slots:      group[i].Slots,
					Detail: fmt.Sprintf("%s break of %d slots after %s, %d required",
						key.kind, gap, group[i-1].CourseCode, pad),
				})
			}
		}
	}
	return out
}
