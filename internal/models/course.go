package models

// MirrorSemester is the final teaching semester. Its courses are scheduled
// into the PRE half only; the same pattern occupies the identical day and
// range in the POST half.
const MirrorSemester = 7

// Course is one catalog record as loaded for a scheduling run. Records are
// immutable for the duration of the run.
type Course struct {
	Code         string
	Name         string
	Department   string
	Semester     int
	LTPSC        string
	L            int
	T            int
	P            int
	S            int
	Credits      int
	Instructors  []string
	Enrolled     int
	Elective     bool
	HalfSemester bool
	Combined     bool
	Period       Period
	Basket       string
}

// SessionRequirement is the bundler-derived weekly demand for one session type.
type SessionRequirement struct {
	Type  SessionType
	Count int
	Slots int // contiguous slots per session
}

// Section is a schedulable student cohort.
type Section struct {
	ID         string
	Department string
	Semester   int
	Label      string // "A", "B", or empty for unsplit departments
	Period     Period
	Strength   int
}

// Room is a classroom or laboratory.
type Room struct {
	ID         string
	Type       RoomType
	Capacity   int
	Facilities []string
}

// Faculty is an instructor eligible for teaching and invigilation duty.
type Faculty struct {
	ID   string
	Name string
}

// Student is one enrollment record, consumed by the exam allocator.
type Student struct {
	Roll       string
	Name       string
	Department string
	Section    string
	Semester   int
	Courses    []string
}
