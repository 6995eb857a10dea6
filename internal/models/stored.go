package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// TimetableStatus represents lifecycle phases for persisted timetables.
type TimetableStatus string

const (
	TimetableStatusDraft     TimetableStatus = "DRAFT"
	TimetableStatusPublished TimetableStatus = "PUBLISHED"
	TimetableStatusArchived  TimetableStatus = "ARCHIVED"
)

// StoredTimetable is a versioned, persisted timetable for one academic term.
type StoredTimetable struct {
	ID        string          `db:"id" json:"id"`
	Term      string          `db:"term" json:"term"`
	Version   int             `db:"version" json:"version"`
	Status    TimetableStatus `db:"status" json:"status"`
	Meta      types.JSONText  `db:"meta" json:"meta"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// StoredBooking is one committed booking row inside a stored timetable.
type StoredBooking struct {
	ID          string    `db:"id" json:"id"`
	TimetableID string    `db:"timetable_id" json:"timetable_id"`
	SessionID   string    `db:"session_id" json:"session_id"`
	CourseCode  string    `db:"course_code" json:"course_code"`
	Session     string    `db:"session_type" json:"session_type"`
	Period      string    `db:"period" json:"period"`
	Day         int       `db:"day" json:"day"`
	SlotStart   int       `db:"slot_start" json:"slot_start"`
	SlotLength  int       `db:"slot_length" json:"slot_length"`
	Kind        string    `db:"resource_kind" json:"resource_kind"`
	ResourceID  string    `db:"resource_id" json:"resource_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// StoredExamSchedule is a versioned, persisted exam calendar.
type StoredExamSchedule struct {
	ID        string          `db:"id" json:"id"`
	Term      string          `db:"term" json:"term"`
	Version   int             `db:"version" json:"version"`
	Status    TimetableStatus `db:"status" json:"status"`
	Meta      types.JSONText  `db:"meta" json:"meta"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// StoredExamSitting is one course sitting row inside a stored exam schedule.
type StoredExamSitting struct {
	ID         string    `db:"id" json:"id"`
	ScheduleID string    `db:"schedule_id" json:"schedule_id"`
	CourseCode string    `db:"course_code" json:"course_code"`
	ExamDate   time.Time `db:"exam_date" json:"exam_date"`
	Session    string    `db:"session" json:"session"`
	RoomIDs    string    `db:"room_ids" json:"room_ids"` // comma-joined, stable order
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}
