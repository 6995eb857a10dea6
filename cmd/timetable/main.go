package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shriyanssahoo/Byte-Me/internal/bundler"
	"github.com/shriyanssahoo/Byte-Me/internal/csvio"
	"github.com/shriyanssahoo/Byte-Me/internal/exam"
	"github.com/shriyanssahoo/Byte-Me/internal/models"
	"github.com/shriyanssahoo/Byte-Me/internal/scheduler"
	"github.com/shriyanssahoo/Byte-Me/internal/timegrid"
)

func main() {
	var (
		coursesPath   = flag.String("courses", "courses.csv", "course catalog CSV")
		roomsPath     = flag.String("rooms", "rooms.csv", "room inventory CSV")
		sectionsArg   = flag.String("sections", "", "comma-separated section specs as dept:semester:label:strength")
		outPath       = flag.String("out", "timetable.csv", "timetable output CSV")
		examMode      = flag.Bool("exams", false, "allocate end-semester exams instead of the weekly timetable")
		studentsPath  = flag.String("students", "students.csv", "student enrollment CSV (exam mode)")
		examRoomsPath = flag.String("exam-rooms", "exam_rooms.csv", "exam hall CSV (exam mode)")
		windowStart   = flag.String("window-start", "", "exam window start, YYYY-MM-DD (exam mode)")
		windowEnd     = flag.String("window-end", "", "exam window end, YYYY-MM-DD (exam mode)")
		maxPerDay     = flag.Int("max-per-day", 1, "exams per student per day (exam mode)")
		seatsPath     = flag.String("seats", "seating.csv", "seating plan output CSV (exam mode)")
		verbose       = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	logger := newLogger(*verbose)
	defer logger.Sync() //nolint:errcheck

	courses, err := csvio.LoadCourses(*coursesPath)
	fatalOn(logger, err, "load courses")

	if *examMode {
		runExams(logger, courses, *studentsPath, *examRoomsPath, *windowStart, *windowEnd, *maxPerDay, *outPath, *seatsPath)
		return
	}

	rooms, err := csvio.LoadRooms(*roomsPath)
	fatalOn(logger, err, "load rooms")

	sections, err := parseSections(*sectionsArg)
	fatalOn(logger, err, "parse sections")

	grid, err := timegrid.New(timegrid.DefaultConfig())
	fatalOn(logger, err, "build grid")

	result := bundler.New(grid, logger).Bundle(courses, sections, rooms)
	for _, rej := range result.Rejected {
		logger.Warn("course rejected", zap.String("course", rej.CourseCode), zap.Error(rej.Err))
	}

	engine, err := scheduler.New(grid, rooms, scheduler.DefaultConfig(), logger)
	fatalOn(logger, err, "init scheduler")

	timetable, err := engine.Run(result)
	fatalOn(logger, err, "run scheduler")

	for _, u := range timetable.Unscheduled {
		logger.Warn("session unscheduled",
			zap.String("course", u.CourseCode),
			zap.String("section", u.SectionID),
			zap.String("reason", u.Reason))
	}

	violations := scheduler.NewValidator(grid, rooms).Validate(timetable, result)
	for _, v := range violations {
		logger.Error("constraint violation", zap.String("kind", v.Kind), zap.String("detail", v.Detail))
	}

	fatalOn(logger, csvio.ExportTimetable(timetable, grid, *outPath), "write timetable")
	logger.Info("timetable written",
		zap.String("path", *outPath),
		zap.Int("bookings", len(timetable.Bookings)),
		zap.Int("unscheduled", len(timetable.Unscheduled)),
		zap.Int("violations", len(violations)))
}

func runExams(logger *zap.Logger, courses []models.Course, studentsPath, roomsPath, start, end string, maxPerDay int, outPath, seatsPath string) {
	students, err := csvio.LoadStudents(studentsPath)
	fatalOn(logger, err, "load students")

	rooms, err := csvio.LoadExamRooms(roomsPath)
	fatalOn(logger, err, "load exam rooms")

	windowStart, err := time.Parse("2006-01-02", start)
	fatalOn(logger, err, "parse window start")
	windowEnd, err := time.Parse("2006-01-02", end)
	fatalOn(logger, err, "parse window end")

	allocator, err := exam.New(exam.Config{
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		MaxPerDay:   maxPerDay,
	}, rooms, logger)
	fatalOn(logger, err, "init allocator")

	schedule, err := allocator.Allocate(courses, students)
	fatalOn(logger, err, "run allocator")

	for _, u := range schedule.Unscheduled {
		logger.Warn("exam unscheduled", zap.String("course", u.CourseCode), zap.String("reason", u.Reason))
	}

	fatalOn(logger, csvio.ExportExamSchedule(schedule, outPath, seatsPath), "write exam schedule")
	logger.Info("exam schedule written",
		zap.String("exams", outPath),
		zap.String("seating", seatsPath),
		zap.Int("sittings", len(schedule.Exams)),
		zap.Int("unscheduled", len(schedule.Unscheduled)))
}

// parseSections expands dept:semester:label:strength specs, e.g.
// "CSE:1:A:70,CSE:1:B:70,ECE:1:A:60".
func parseSections(raw string) ([]models.Section, error) {
	if raw == "" {
		return nil, fmt.Errorf("at least one section spec is required")
	}
	var out []models.Section
	for _, spec := range strings.Split(raw, ",") {
		spec = strings.TrimSpace(spec)
		if spec == "" {
			continue
		}
		parts := strings.Split(spec, ":")
		if len(parts) != 4 {
			return nil, fmt.Errorf("bad section spec %q, want dept:semester:label:strength", spec)
		}
		dept, label := parts[0], parts[2]
		semester, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("bad semester in %q: %w", spec, err)
		}
		strength, err := strconv.Atoi(parts[3])
		if err != nil {
			return nil, fmt.Errorf("bad strength in %q: %w", spec, err)
		}
		out = append(out, models.Section{
			ID:         fmt.Sprintf("%s-%d-%s", dept, semester, label),
			Department: dept,
			Semester:   semester,
			Label:      label,
			Strength:   strength,
		})
	}
	return out, nil
}

func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func fatalOn(logger *zap.Logger, err error, what string) {
	if err != nil {
		logger.Fatal(what, zap.Error(err))
	}
}
