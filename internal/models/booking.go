package models

// SlotRange is a contiguous run of slots within one day.
type SlotRange struct {
	Start  int
	Length int
}

// End returns the first slot index after the range.
func (r SlotRange) End() int { return r.Start + r.Length }

// Overlaps reports whether two ranges share any slot.
func (r SlotRange) Overlaps(other SlotRange) bool {
	return r.Start < other.End() && other.Start < r.End()
}

// Booking records one committed (or placeholder) claim on the weekly grid.
// One class session produces three linked bookings sharing a SessionID:
// room, faculty and section. Placeholder bookings carry empty RoomID and
// FacultyID until elective finalization promotes them.
type Booking struct {
	ID         string
	SessionID  string
	CourseCode string
	Session    SessionType
	Period     Period
	Day        Day
	Slots      SlotRange
	Kind       ResourceKind
	ResourceID string
	State      BookingState
	Basket     string
}

// UnscheduledSession diagnoses one session the scheduler could not place.
type UnscheduledSession struct {
	CourseCode string
	SectionID  string
	Session    SessionType
	Period     Period
	Reason     string
}

// Timetable is the finalized output of a scheduling run: the committed
// booking set plus diagnostics for everything that could not be placed.
// Read-only once the run completes.
type Timetable struct {
	Bookings    []Booking
	Unscheduled []UnscheduledSession
}

// BySection returns the section bookings belonging to one cohort.
func (t *Timetable) BySection(sectionID string) []Booking {
	var out []Booking
	for _, b := range t.Bookings {
		if b.Kind == ResourceSection && b.ResourceID == sectionID {
			out = append(out, b)
		}
	}
	return out
}

// ByFaculty returns the faculty bookings belonging to one instructor.
func (t *Timetable) ByFaculty(facultyID string) []Booking {
	var out []Booking
	for _, b := range t.Bookings {
		if b.Kind == ResourceFaculty && b.ResourceID == facultyID {
			out = append(out, b)
		}
	}
	return out
}

// Violation is one constraint validator finding.
type Violation struct {
	Kind       string
	CourseCode string
	ResourceID string
	Day        Day
	Slots      SlotRange
	Detail     string
}
