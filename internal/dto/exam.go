package dto

// StudentInput is one enrollment record consumed by the exam allocator.
type StudentInput struct {
	Roll       string   `json:"roll" validate:"required"`
	Name       string   `json:"name"`
	Department string   `json:"department"`
	Section    string   `json:"section"`
	Semester   int      `json:"semester" validate:"omitempty,min=1,max=8"`
	Courses    []string `json:"courses" validate:"required,min=1"`
}

// ExamRoomInput is one exam hall record.
type ExamRoomInput struct {
	ID       string `json:"id" validate:"required"`
	Capacity int    `json:"capacity" validate:"required,min=1"`
	Rows     int    `json:"rows" validate:"omitempty,min=1"`
	Columns  int    `json:"columns" validate:"omitempty,min=1"`
}

// GenerateExamScheduleRequest instructs the allocator to build an exam
// calendar for the term.
type GenerateExamScheduleRequest struct {
	Term        string          `json:"term" validate:"required"`
	WindowStart string          `json:"windowStart" validate:"required,datetime=2006-01-02"`
	WindowEnd   string          `json:"windowEnd" validate:"required,datetime=2006-01-02"`
	MaxPerDay   int             `json:"maxPerDay" validate:"required,min=1,max=3"`
	Courses     []CourseInput   `json:"courses" validate:"required,min=1,dive"`
	Students    []StudentInput  `json:"students" validate:"required,min=1,dive"`
	Rooms       []ExamRoomInput `json:"rooms" validate:"required,min=1,dive"`
	Faculty     []string        `json:"faculty"`
}

// ExamView is one scheduled sitting.
type ExamView struct {
	CourseCode string   `json:"courseCode"`
	Department string   `json:"department"`
	Date       string   `json:"date"`
	Session    string   `json:"session"`
	Rooms      []string `json:"rooms"`
	Students   int      `json:"students"`
}

// SeatView is one seat assignment.
type SeatView struct {
	RoomID     string `json:"roomId"`
	Column     int    `json:"column"`
	Row        int    `json:"row"`
	Roll       string `json:"roll"`
	CourseCode string `json:"courseCode"`
}

// InvigilationView is one faculty duty.
type InvigilationView struct {
	RoomID    string `json:"roomId"`
	Date      string `json:"date"`
	Session   string `json:"session"`
	FacultyID string `json:"facultyId"`
}

// UnscheduledExamView diagnoses one exam without a feasible sitting.
type UnscheduledExamView struct {
	CourseCode string `json:"courseCode"`
	Reason     string `json:"reason"`
}

// GenerateExamScheduleResponse returns the built exam calendar.
type GenerateExamScheduleResponse struct {
	ProposalID    string                `json:"proposalId"`
	Term          string                `json:"term"`
	Exams         []ExamView            `json:"exams"`
	Seating       []SeatView            `json:"seating"`
	Invigilations []InvigilationView    `json:"invigilations"`
	Unscheduled   []UnscheduledExamView `json:"unscheduled"`
}

// SaveExamScheduleRequest persists a proposal as a versioned exam schedule.
type SaveExamScheduleRequest struct {
	ProposalID string `json:"proposalId" validate:"required"`
	Publish    bool   `json:"publish"`
}

// ExamScheduleQuery filters stored exam schedules by term.
type ExamScheduleQuery struct {
	Term string `form:"term" json:"term"`
}
