// Package timegrid discretizes the teaching day into fixed-length slots and
// provides the pure slot arithmetic the scheduler and validator build on.
// A Grid is immutable after construction; every function is deterministic.
package timegrid

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shriyanssahoo/Byte-Me/internal/models"
	appErrors "github.com/shriyanssahoo/Byte-Me/pkg/errors"
)

// Config describes one working day. Durations are minutes.
type Config struct {
	DayStart         string // "09:00"
	DayEnd           string // "18:00"
	SlotMinutes      int
	LectureMinutes   int
	TutorialMinutes  int
	PracticalMinutes int
	ClassBreakMins   int
	FacultyBreakMins int
	LunchMinutes     int
	// LunchStarts maps semester to the wall-clock start of its staggered
	// lunch window. Semesters without an entry have no reserved window.
	LunchStarts map[int]string
}

// DefaultConfig mirrors the institute's standard day: 09:00-18:00 in
// 10-minute slots, 90-minute lectures, 60-minute tutorials, 120-minute
// practicals, staggered 30-minute lunches.
func DefaultConfig() Config {
	return Config{
		DayStart:         "09:00",
		DayEnd:           "18:00",
		SlotMinutes:      10,
		LectureMinutes:   90,
		TutorialMinutes:  60,
		PracticalMinutes: 120,
		ClassBreakMins:   10,
		FacultyBreakMins: 30,
		LunchMinutes:     30,
		LunchStarts: map[int]string{
			1: "12:30",
			7: "12:30",
			3: "13:00",
			5: "13:30",
		},
	}
}

// Grid is the addressable slot space for one day-of-week grid.
type Grid struct {
	startMinute   int
	slotMinutes   int
	slotsPerDay   int
	lectureSlots  int
	tutorialSlots int
	practicalSlot int
	classBreak    int
	facultyBreak  int
	lunchSlots    int
	lunchStarts   map[int]int // semester -> start slot
}

// New validates the configuration and builds a Grid. Invalid configuration
// is the one initialization-time fatal error the engine produces.
func New(cfg Config) (*Grid, error) {
	if cfg.SlotMinutes <= 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidConfig, "slot duration must be positive")
	}
	start, err := parseClock(cfg.DayStart)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidConfig.Code, appErrors.ErrInvalidConfig.Status, "invalid day start")
	}
	end, err := parseClock(cfg.DayEnd)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidConfig.Code, appErrors.ErrInvalidConfig.Status, "invalid day end")
	}
	if end <= start {
		return nil, appErrors.Clone(appErrors.ErrInvalidConfig, "day end must be after day start")
	}
	total := end - start
	if total%cfg.SlotMinutes != 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidConfig, "day length must be a whole number of slots")
	}
	slotsPerDay := total / cfg.SlotMinutes
	if slotsPerDay > 64 {
		return nil, appErrors.Clone(appErrors.ErrInvalidConfig, "more than 64 slots per day is unsupported")
	}
	for _, mins := range []int{cfg.LectureMinutes, cfg.TutorialMinutes, cfg.PracticalMinutes} {
		if mins <= 0 || mins%cfg.SlotMinutes != 0 {
			return nil, appErrors.Clone(appErrors.ErrInvalidConfig, "session lengths must be positive multiples of the slot duration")
		}
	}

	g := &Grid{
		startMinute:   start,
		slotMinutes:   cfg.SlotMinutes,
		slotsPerDay:   slotsPerDay,
		lectureSlots:  cfg.LectureMinutes / cfg.SlotMinutes,
		tutorialSlots: cfg.TutorialMinutes / cfg.SlotMinutes,
		practicalSlot: cfg.PracticalMinutes / cfg.SlotMinutes,
		classBreak:    ceilDiv(cfg.ClassBreakMins, cfg.SlotMinutes),
		facultyBreak:  ceilDiv(cfg.FacultyBreakMins, cfg.SlotMinutes),
		lunchSlots:    ceilDiv(cfg.LunchMinutes, cfg.SlotMinutes),
		lunchStarts:   make(map[int]int, len(cfg.LunchStarts)),
	}
	for sem, clock := range cfg.LunchStarts {
		slot, err := parseClock(clock)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInvalidConfig.Code, appErrors.ErrInvalidConfig.Status, fmt.Sprintf("invalid lunch start for semester %d", sem))
		}
		idx := (slot - start) / cfg.SlotMinutes
		if idx < 0 || idx+g.lunchSlots > slotsPerDay {
			return nil, appErrors.Clone(appErrors.ErrInvalidConfig, fmt.Sprintf("lunch window for semester %d falls outside the day", sem))
		}
		g.lunchStarts[sem] = idx
	}
	return g, nil
}

// SlotsPerDay returns the number of addressable slots in one day.
func (g *Grid) SlotsPerDay() int { return g.slotsPerDay }

// SlotsFor converts a duration in minutes to a contiguous slot count.
func (g *Grid) SlotsFor(minutes int) int { return ceilDiv(minutes, g.slotMinutes) }

// SessionSlots returns the fixed slot length of one session type.
func (g *Grid) SessionSlots(t models.SessionType) int {
	switch t {
	case models.SessionTutorial:
		return g.tutorialSlots
	case models.SessionPractical:
		return g.practicalSlot
	default:
		return g.lectureSlots
	}
}

// SlotClock converts a slot index back to its wall-clock start, "HH:MM".
func (g *Grid) SlotClock(index int) string {
	if index < 0 || index > g.slotsPerDay {
		return "??:??"
	}
	mins := g.startMinute + index*g.slotMinutes
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}

// ClockSlot converts "HH:MM" to its slot index, or -1 when outside the day.
func (g *Grid) ClockSlot(clock string) int {
	mins, err := parseClock(clock)
	if err != nil {
		return -1
	}
	idx := (mins - g.startMinute) / g.slotMinutes
	if idx < 0 || idx >= g.slotsPerDay {
		return -1
	}
	return idx
}

// LunchWindow returns the reserved lunch range for a semester. The second
// return is false for semesters without a staggered window (e.g. faculty and
// room grids).
func (g *Grid) LunchWindow(semester int) (models.SlotRange, bool) {
	start, ok := g.lunchStarts[semester]
	if !ok {
		return models.SlotRange{}, false
	}
	return models.SlotRange{Start: start, Length: g.lunchSlots}, true
}

// BreakSlots returns the minimum idle slots required after a session before
// the same resource may start another. Rooms need none.
func (g *Grid) BreakSlots(kind models.ResourceKind) int {
	switch kind {
	case models.ResourceSection:
		return g.classBreak
	case models.ResourceFaculty:
		return g.facultyBreak
	default:
		return 0
	}
}

// Fits reports whether the range lies inside the day.
func (g *Grid) Fits(r models.SlotRange) bool {
	return r.Start >= 0 && r.Length > 0 && r.End() <= g.slotsPerDay
}

func parseClock(s string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("malformed clock %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("malformed clock %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("malformed clock %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock %q out of range", s)
	}
	return h*60 + m, nil
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
