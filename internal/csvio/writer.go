package csvio

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/shriyanssahoo/Byte-Me/internal/models"
	"github.com/shriyanssahoo/Byte-Me/internal/timegrid"
	appErrors "github.com/shriyanssahoo/Byte-Me/pkg/errors"
)

// TimetableRow is one exported booking with resolved wall-clock times.
type TimetableRow struct {
	Course   string `csv:"course_code"`
	Session  string `csv:"session"`
	Period   string `csv:"period"`
	Day      string `csv:"day"`
	Start    string `csv:"start"`
	End      string `csv:"end"`
	Kind     string `csv:"resource_kind"`
	Resource string `csv:"resource_id"`
	State    string `csv:"state"`
	Basket   string `csv:"basket"`
}

// ExamRow is one exported exam sitting, one line per allocated room.
type ExamRow struct {
	Course     string `csv:"course_code"`
	Department string `csv:"department"`
	Date       string `csv:"date"`
	Session    string `csv:"session"`
	Room       string `csv:"room_id"`
	Seated     int    `csv:"seated"`
}

// SeatRow is one exported seat assignment.
type SeatRow struct {
	Room   string `csv:"room_id"`
	Column int    `csv:"column"`
	Row    int    `csv:"row"`
	Roll   string `csv:"roll_no"`
	Course string `csv:"course_code"`
}

// TimetableRows flattens a timetable for export, resolving slot indices to
// wall-clock strings.
func TimetableRows(t *models.Timetable, grid *timegrid.Grid) []TimetableRow {
	rows := make([]TimetableRow, 0, len(t.Bookings))
	for _, b := range t.Bookings {
		rows = append(rows, TimetableRow{
			Course:   b.CourseCode,
			Session:  string(b.Session),
			Period:   string(b.Period),
			Day:      b.Day.String(),
			Start:    grid.SlotClock(b.Slots.Start),
			End:      grid.SlotClock(b.Slots.End()),
			Kind:     string(b.Kind),
			Resource: b.ResourceID,
			State:    string(b.State),
			Basket:   b.Basket,
		})
	}
	return rows
}

// ExamRows flattens an exam schedule for export.
func ExamRows(s *models.ExamSchedule) []ExamRow {
	var rows []ExamRow
	for _, e := range s.Exams {
		for _, al := range e.Rooms {
			rows = append(rows, ExamRow{
				Course:     e.CourseCode,
				Department: e.Department,
				Date:       e.Slot.Date.Format("2006-01-02"),
				Session:    string(e.Slot.Session),
				Room:       al.RoomID,
				Seated:     len(al.Rolls),
			})
		}
	}
	return rows
}

// SeatRows flattens the seating plan for export.
func SeatRows(s *models.ExamSchedule) []SeatRow {
	rows := make([]SeatRow, 0, len(s.Seating))
	for _, seat := range s.Seating {
		rows = append(rows, SeatRow{
			Room:   seat.RoomID,
			Column: seat.Column,
			Row:    seat.Row,
			Roll:   seat.Roll,
			Course: seat.CourseCode,
		})
	}
	return rows
}

func marshalFile[T any](rows []T, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status,
			fmt.Sprintf("cannot create %s", path))
	}
	defer f.Close()
	if err := gocsv.MarshalFile(&rows, f); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status,
			fmt.Sprintf("cannot write %s", path))
	}
	return nil
}

// ExportTimetable writes the flattened timetable to a CSV file.
func ExportTimetable(t *models.Timetable, grid *timegrid.Grid, path string) error {
	return marshalFile(TimetableRows(t, grid), path)
}

// ExportExamSchedule writes the exam calendar and seating plan to two files.
func ExportExamSchedule(s *models.ExamSchedule, examPath, seatPath string) error {
	if err := marshalFile(ExamRows(s), examPath); err != nil {
		return err
	}
	return marshalFile(SeatRows(s), seatPath)
}

// TimetableCSV renders the timetable as an in-memory CSV document.
func TimetableCSV(t *models.Timetable, grid *timegrid.Grid) (string, error) {
	rows := TimetableRows(t, grid)
	out, err := gocsv.MarshalString(&rows)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "cannot render timetable csv")
	}
	return out, nil
}

// ExamScheduleCSV renders the exam calendar as an in-memory CSV document.
func ExamScheduleCSV(s *models.ExamSchedule) (string, error) {
	rows := ExamRows(s)
	out, err := gocsv.MarshalString(&rows)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "cannot render exam csv")
	}
	return out, nil
}
