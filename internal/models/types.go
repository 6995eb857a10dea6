package models

// Day indexes a teaching day within the week, Monday first.
type Day int

const (
	Monday Day = iota
	Tuesday
	Wednesday
	Thursday
	Friday
)

var dayNames = [...]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

func (d Day) String() string {
	if d < 0 || int(d) >= len(dayNames) {
		return "Invalid"
	}
	return dayNames[d]
}

// ResourceKind identifies which dimension of the ledger a booking occupies.
type ResourceKind string

const (
	ResourceRoom    ResourceKind = "room"
	ResourceFaculty ResourceKind = "faculty"
	ResourceSection ResourceKind = "section"
)

// SessionType distinguishes the contact-hour flavours of a course.
type SessionType string

const (
	SessionLecture   SessionType = "lecture"
	SessionTutorial  SessionType = "tutorial"
	SessionPractical SessionType = "practical"
)

// RoomType constrains which sessions a room may host.
type RoomType string

const (
	RoomClassroom RoomType = "classroom"
	RoomLab       RoomType = "lab"
)

// Period splits the semester around the mid-semester break.
type Period string

const (
	PeriodPre  Period = "PRE"
	PeriodPost Period = "POST"
	PeriodFull Period = "FULL"
)

// Pathway is the scheduling route a course takes through the phases.
type Pathway string

const (
	PathwayCore       Pathway = "core"
	PathwayCombined   Pathway = "combined"
	PathwayBasketX    Pathway = "basket-cross" // cross-departmental elective basket
	PathwayBasketDept Pathway = "basket-dept"  // department-specific elective basket
)

// BookingState tags a booking as a basket placeholder or a finalized commitment.
type BookingState string

const (
	BookingPlaceholder BookingState = "placeholder"
	BookingFinalized   BookingState = "finalized"
)
