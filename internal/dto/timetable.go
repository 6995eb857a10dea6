package dto

// CourseInput is one catalog record submitted for scheduling.
type CourseInput struct {
	Code         string   `json:"code" validate:"required"`
	Name         string   `json:"name"`
	Department   string   `json:"department" validate:"required"`
	Semester     int      `json:"semester" validate:"required,min=1,max=8"`
	LTPSC        string   `json:"ltpsc" validate:"required"`
	Credits      int      `json:"credits" validate:"omitempty,min=0"`
	Instructors  []string `json:"instructors"`
	Enrolled     int      `json:"enrolled" validate:"required,min=1"`
	Elective     bool     `json:"elective"`
	HalfSemester bool     `json:"halfSemester"`
	Combined     bool     `json:"combined"`
	Period       string   `json:"period" validate:"omitempty,oneof=PRE POST FULL"`
	Basket       string   `json:"basket"`
}

// RoomInput is one room inventory record.
type RoomInput struct {
	ID         string   `json:"id" validate:"required"`
	Type       string   `json:"type" validate:"required,oneof=classroom lab"`
	Capacity   int      `json:"capacity" validate:"required,min=1"`
	Facilities []string `json:"facilities"`
}

// SectionInput is one student cohort record.
type SectionInput struct {
	ID         string `json:"id" validate:"required"`
	Department string `json:"department" validate:"required"`
	Semester   int    `json:"semester" validate:"required,min=1,max=8"`
	Label      string `json:"label"`
	Strength   int    `json:"strength" validate:"omitempty,min=0"`
}

// GenerateTimetableRequest instructs the engine to build a proposal for the
// term.
type GenerateTimetableRequest struct {
	Term     string         `json:"term" validate:"required"`
	Courses  []CourseInput  `json:"courses" validate:"required,min=1,dive"`
	Rooms    []RoomInput    `json:"rooms" validate:"required,min=1,dive"`
	Sections []SectionInput `json:"sections" validate:"required,min=1,dive"`
}

// BookingView is one committed booking with resolved wall-clock times.
type BookingView struct {
	SessionID  string `json:"sessionId"`
	CourseCode string `json:"courseCode"`
	Session    string `json:"session"`
	Period     string `json:"period"`
	Day        string `json:"day"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Kind       string `json:"resourceKind"`
	ResourceID string `json:"resourceId"`
	State      string `json:"state"`
	Basket     string `json:"basket,omitempty"`
}

// UnscheduledView diagnoses one session the engine could not place.
type UnscheduledView struct {
	CourseCode string `json:"courseCode"`
	SectionID  string `json:"sectionId"`
	Session    string `json:"session"`
	Period     string `json:"period"`
	Reason     string `json:"reason"`
}

// RejectedCourseView diagnoses one catalog record excluded before scheduling.
type RejectedCourseView struct {
	CourseCode string `json:"courseCode"`
	Reason     string `json:"reason"`
}

// ViolationView is one validator finding on the generated timetable.
type ViolationView struct {
	Kind       string `json:"kind"`
	CourseCode string `json:"courseCode,omitempty"`
	ResourceID string `json:"resourceId,omitempty"`
	Day        string `json:"day,omitempty"`
	Detail     string `json:"detail"`
}

// GenerateTimetableResponse returns the built proposal.
type GenerateTimetableResponse struct {
	ProposalID  string               `json:"proposalId"`
	Term        string               `json:"term"`
	Bookings    []BookingView        `json:"bookings"`
	Unscheduled []UnscheduledView    `json:"unscheduled"`
	Rejected    []RejectedCourseView `json:"rejected"`
	Violations  []ViolationView      `json:"violations"`
}

// SaveTimetableRequest persists a proposal as a versioned timetable.
type SaveTimetableRequest struct {
	ProposalID string `json:"proposalId" validate:"required"`
	Publish    bool   `json:"publish"`
}

// TimetableQuery filters stored timetables by term.
type TimetableQuery struct {
	Term string `form:"term" json:"term"`
}
