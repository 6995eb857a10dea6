package models

import "time"

// ExamSession labels the two daily sittings.
type ExamSession string

const (
	SessionForenoon  ExamSession = "FN"
	SessionAfternoon ExamSession = "AN"
)

// ExamSlot is one sitting on the exam calendar.
type ExamSlot struct {
	Date    time.Time
	Session ExamSession
}

// Exam is one course's scheduled sitting with its room split.
type Exam struct {
	CourseCode string
	CourseName string
	Department string
	Slot       ExamSlot
	Duration   time.Duration
	Rooms      []ExamRoomAllocation
	Students   []string // roll numbers, ascending
}

// ExamRoomAllocation assigns part of an exam's cohort to one room.
type ExamRoomAllocation struct {
	RoomID string
	Rolls  []string
}

// ExamRoom is an exam hall laid out as rows x columns of seats.
type ExamRoom struct {
	ID       string
	Capacity int
	Rows     int
	Columns  int
}

// SeatAssignment places one student at a physical seat.
type SeatAssignment struct {
	RoomID     string
	Column     int
	Row        int
	Roll       string
	CourseCode string
}

// Invigilation is one faculty duty at a (room, date, session).
type Invigilation struct {
	RoomID    string
	Slot      ExamSlot
	FacultyID string
}

// ExamSchedule is the exam allocator's complete output.
type ExamSchedule struct {
	Exams         []Exam
	Seating       []SeatAssignment
	Invigilations []Invigilation
	Unscheduled   []UnscheduledExam
}

// UnscheduledExam diagnoses a course that found no feasible sitting.
type UnscheduledExam struct {
	CourseCode string
	Reason     string
}

// StudentExams returns the sittings assigned to one student.
func (s *ExamSchedule) StudentExams(roll string) []Exam {
	var out []Exam
	for _, e := range s.Exams {
		for _, r := range e.Students {
			if r == roll {
				out = append(out, e)
				break
			}
		}
	}
	return out
}
