// Package csvio loads catalog records from CSV files and exports finished
// schedules back out. List-valued cells (instructors, enrolled courses) use a
// semicolon separator inside one CSV field.
package csvio

import (
	"fmt"
	"os"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/shriyanssahoo/Byte-Me/internal/models"
	appErrors "github.com/shriyanssahoo/Byte-Me/pkg/errors"
)

const listSep = ";"

// CourseRow mirrors one line of the course catalog file.
type CourseRow struct {
	Code         string `csv:"course_code"`
	Name         string `csv:"course_name"`
	Department   string `csv:"department"`
	Semester     int    `csv:"semester"`
	LTPSC        string `csv:"ltpsc"`
	Credits      int    `csv:"credits"`
	Instructors  string `csv:"instructors"`
	Enrolled     int    `csv:"enrolled"`
	Elective     bool   `csv:"elective"`
	HalfSemester bool   `csv:"half_semester"`
	Combined     bool   `csv:"combined"`
	Period       string `csv:"period"`
	Basket       string `csv:"basket"`
}

// RoomRow mirrors one line of the room inventory file.
type RoomRow struct {
	ID         string `csv:"room_id"`
	Type       string `csv:"room_type"`
	Capacity   int    `csv:"capacity"`
	Facilities string `csv:"facilities"`
}

// StudentRow mirrors one line of the enrollment file.
type StudentRow struct {
	Roll       string `csv:"roll_no"`
	Name       string `csv:"name"`
	Department string `csv:"department"`
	Section    string `csv:"section"`
	Semester   int    `csv:"semester"`
	Courses    string `csv:"courses"`
}

// ExamRoomRow mirrors one line of the exam hall file.
type ExamRoomRow struct {
	ID       string `csv:"room_id"`
	Capacity int    `csv:"capacity"`
	Rows     int    `csv:"rows"`
	Columns  int    `csv:"columns"`
}

func unmarshalFile[T any](path string) ([]*T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDataIntegrity.Code, appErrors.ErrDataIntegrity.Status,
			fmt.Sprintf("cannot open %s", path))
	}
	defer f.Close()

	var rows []*T
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDataIntegrity.Code, appErrors.ErrDataIntegrity.Status,
			fmt.Sprintf("cannot parse %s", path))
	}
	return rows, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, listSep) {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// LoadCourses reads the course catalog file.
func LoadCourses(path string) ([]models.Course, error) {
	rows, err := unmarshalFile[CourseRow](path)
	if err != nil {
		return nil, err
	}
	out := make([]models.Course, 0, len(rows))
	for _, r := range rows {
		period := models.Period(strings.ToUpper(strings.TrimSpace(r.Period)))
		if period == "" {
			period = models.PeriodFull
		}
		out = append(out, models.Course{
			Code:         r.Code,
			Name:         r.Name,
			Department:   r.Department,
			Semester:     r.Semester,
			LTPSC:        r.LTPSC,
			Credits:      r.Credits,
			Instructors:  splitList(r.Instructors),
			Enrolled:     r.Enrolled,
			Elective:     r.Elective,
			HalfSemester: r.HalfSemester,
			Combined:     r.Combined,
			Period:       period,
			Basket:       strings.TrimSpace(r.Basket),
		})
	}
	return out, nil
}

// LoadRooms reads the room inventory file.
func LoadRooms(path string) ([]models.Room, error) {
	rows, err := unmarshalFile[RoomRow](path)
	if err != nil {
		return nil, err
	}
	out := make([]models.Room, 0, len(rows))
	for _, r := range rows {
		roomType := models.RoomType(strings.ToLower(strings.TrimSpace(r.Type)))
		if roomType != models.RoomClassroom && roomType != models.RoomLab {
			return nil, appErrors.Clone(appErrors.ErrDataIntegrity,
				fmt.Sprintf("room %s has unknown type %q", r.ID, r.Type))
		}
		out = append(out, models.Room{
			ID:         r.ID,
			Type:       roomType,
			Capacity:   r.Capacity,
			Facilities: splitList(r.Facilities),
		})
	}
	return out, nil
}

// LoadStudents reads the enrollment file.
func LoadStudents(path string) ([]models.Student, error) {
	rows, err := unmarshalFile[StudentRow](path)
	if err != nil {
		return nil, err
	}
	out := make([]models.Student, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.Student{
			Roll:       r.Roll,
			Name:       r.Name,
			Department: r.Department,
			Section:    r.Section,
			Semester:   r.Semester,
			Courses:    splitList(r.Courses),
		})
	}
	return out, nil
}

// LoadExamRooms reads the exam hall file.
func LoadExamRooms(path string) ([]models.ExamRoom, error) {
	rows, err := unmarshalFile[ExamRoomRow](path)
	if err != nil {
		return nil, err
	}
	out := make([]models.ExamRoom, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.ExamRoom{
			ID:       r.ID,
			Capacity: r.Capacity,
			Rows:     r.Rows,
			Columns:  r.Columns,
		})
	}
	return out, nil
}
